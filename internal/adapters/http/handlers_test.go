package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"

	handler "github.com/samirrijal/fieldroute/internal/adapters/http"
	"github.com/samirrijal/fieldroute/internal/core/domain"
	"github.com/samirrijal/fieldroute/internal/core/usecases"
)

var (
	bengaluru = domain.GeoPoint{Lat: 12.9716, Lon: 77.5946}
	mysuru    = domain.GeoPoint{Lat: 12.2958, Lon: 76.6394}
	chennai   = domain.GeoPoint{Lat: 13.0827, Lon: 80.2707}
)

// ---- Mock ports ----

type mockProvider struct {
	directionsFn func(ctx context.Context, req domain.DirectionsRequest) (*domain.ProviderRoute, error)
}

func (m *mockProvider) Name() string { return "mock" }
func (m *mockProvider) Directions(ctx context.Context, req domain.DirectionsRequest) (*domain.ProviderRoute, error) {
	if m.directionsFn != nil {
		return m.directionsFn(ctx, req)
	}
	return nil, domain.ErrProviderUnavailable
}

type mockClientRepo struct {
	listByRepFn  func(ctx context.Context, repID string, limit, offset int) ([]domain.Client, error)
	countByRepFn func(ctx context.Context, repID string) (int, error)
	getByIDsFn   func(ctx context.Context, ids []string) ([]domain.Client, error)
	withinFn     func(ctx context.Context, repID string, center domain.GeoPoint, radius float64, limit int) ([]domain.Client, error)
}

func (m *mockClientRepo) ListByRep(ctx context.Context, repID string, limit, offset int) ([]domain.Client, error) {
	if m.listByRepFn != nil {
		return m.listByRepFn(ctx, repID, limit, offset)
	}
	return nil, nil
}
func (m *mockClientRepo) CountByRep(ctx context.Context, repID string) (int, error) {
	if m.countByRepFn != nil {
		return m.countByRepFn(ctx, repID)
	}
	return 0, nil
}
func (m *mockClientRepo) GetByIDs(ctx context.Context, ids []string) ([]domain.Client, error) {
	if m.getByIDsFn != nil {
		return m.getByIDsFn(ctx, ids)
	}
	return nil, nil
}
func (m *mockClientRepo) ListWithinRadius(ctx context.Context, repID string, center domain.GeoPoint, radius float64, limit int) ([]domain.Client, error) {
	if m.withinFn != nil {
		return m.withinFn(ctx, repID, center, radius, limit)
	}
	return nil, nil
}

type mockPublisher struct {
	mu       sync.Mutex
	planned  []*domain.RoutePlanned
	requests []*domain.PlanRequest
}

func (m *mockPublisher) PublishRoutePlanned(ctx context.Context, event *domain.RoutePlanned) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.planned = append(m.planned, event)
	return nil
}
func (m *mockPublisher) PublishDegraded(ctx context.Context, notice *domain.DegradedNotice) error {
	return nil
}
func (m *mockPublisher) PublishPlanRequest(ctx context.Context, req *domain.PlanRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	return nil
}

// ---- Test helpers ----

type testEnv struct {
	provider *mockProvider
	repo     *mockClientRepo
	pub      *mockPublisher
}

func setupApp(deps *handler.Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	handler.SetupRoutes(app, deps, handler.RouterConfig{})
	return app
}

// makeDeps wires real services over mock ports. A nil provider leaves the
// directions service on the straight-line fallback.
func makeDeps(env *testEnv) *handler.Dependencies {
	if env.repo == nil {
		env.repo = &mockClientRepo{}
	}
	if env.pub == nil {
		env.pub = &mockPublisher{}
	}

	directions := usecases.NewDirectionsService(nil, 50)
	if env.provider != nil {
		directions = usecases.NewDirectionsService(env.provider, 50)
	}
	optimizer := usecases.NewRouteOptimizer(directions, nil)
	clients := usecases.NewClientService(env.repo, nil)

	return &handler.Dependencies{
		Directions: directions,
		Optimizer:  optimizer,
		Clients:    clients,
		Planning:   usecases.NewPlanningService(clients, optimizer, env.pub),
	}
}

func postJSON(t *testing.T, app *fiber.App, path, body string) *http.Response {
	t.Helper()
	req := httptest.NewRequest("POST", path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func get(t *testing.T, app *fiber.App, path string) *http.Response {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest("GET", path, nil), -1)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func readBody(t *testing.T, body io.Reader) []byte {
	t.Helper()
	b, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return b
}

func clientJSON(id string, p *domain.GeoPoint) string {
	if p == nil {
		return fmt.Sprintf(`{"id":%q,"name":%q}`, id, id)
	}
	return fmt.Sprintf(`{"id":%q,"name":%q,"location":{"latitude":%v,"longitude":%v}}`, id, id, p.Lat, p.Lon)
}

func routeBody(clients ...string) string {
	return `{"clients":[` + strings.Join(clients, ",") + `]}`
}

type outcomeResp struct {
	Success bool               `json:"success"`
	Route   domain.RouteResult `json:"route"`
	Error   string             `json:"error"`
	Code    string             `json:"code"`
}

func decodeOutcome(t *testing.T, resp *http.Response) outcomeResp {
	t.Helper()
	var out outcomeResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	return out
}

func clientIDs(clients []domain.Client) []string {
	out := make([]string, len(clients))
	for i, c := range clients {
		out[i] = c.ID
	}
	return out
}

// ---- Route handler tests ----

func TestOptimizeRoute_StraightLineFallback(t *testing.T) {
	app := setupApp(makeDeps(&testEnv{}))

	resp := postJSON(t, app, "/v1/routes/optimize", routeBody(
		clientJSON("bengaluru", &bengaluru),
		clientJSON("chennai", &chennai),
		clientJSON("mysuru", &mysuru),
	))
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	out := decodeOutcome(t, resp)
	if !out.Success {
		t.Fatalf("expected success, got %+v", out)
	}
	if got := strings.Join(clientIDs(out.Route.OrderedClients), ","); got != "bengaluru,mysuru,chennai" {
		t.Errorf("expected nearest-neighbour order, got %s", got)
	}
	if out.Route.Source != domain.SourceStraightLine {
		t.Errorf("expected straight_line source, got %s", out.Route.Source)
	}
	if out.Route.TotalDistanceMeters < 525000 || out.Route.TotalDistanceMeters > 538000 {
		t.Errorf("expected ~531 km, got %.0f m", out.Route.TotalDistanceMeters)
	}
	if out.Route.EncodedPath == nil || *out.Route.EncodedPath == "" {
		t.Error("expected encoded path")
	}
}

func TestOptimizeRoute_NoValidLocations(t *testing.T) {
	app := setupApp(makeDeps(&testEnv{}))

	resp := postJSON(t, app, "/v1/routes/optimize", routeBody(clientJSON("a", nil), clientJSON("b", nil)))
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	out := decodeOutcome(t, resp)
	if out.Success || out.Code != "no_valid_locations" {
		t.Errorf("expected no_valid_locations outcome, got %+v", out)
	}
}

func TestOptimizeRoute_SingleClient(t *testing.T) {
	called := false
	app := setupApp(makeDeps(&testEnv{provider: &mockProvider{
		directionsFn: func(ctx context.Context, req domain.DirectionsRequest) (*domain.ProviderRoute, error) {
			called = true
			return nil, domain.ErrProviderUnavailable
		},
	}}))

	resp := postJSON(t, app, "/v1/routes/optimize", routeBody(clientJSON("a", &mysuru), clientJSON("b", nil)))
	out := decodeOutcome(t, resp)
	if !out.Success || out.Route.Source != domain.SourceNone {
		t.Fatalf("expected single-stop route, got %+v", out)
	}
	if out.Route.EncodedPath != nil {
		t.Errorf("expected null encoded path, got %q", *out.Route.EncodedPath)
	}
	if called {
		t.Error("provider must not be called for a single client")
	}
}

func TestOptimizeRoute_ProviderFailure(t *testing.T) {
	app := setupApp(makeDeps(&testEnv{provider: &mockProvider{
		directionsFn: func(ctx context.Context, req domain.DirectionsRequest) (*domain.ProviderRoute, error) {
			return nil, errors.New("ZERO_RESULTS")
		},
	}}))

	resp := postJSON(t, app, "/v1/routes/optimize", routeBody(clientJSON("a", &bengaluru), clientJSON("b", &chennai)))
	if resp.StatusCode != 502 {
		t.Fatalf("expected 502, got %d", resp.StatusCode)
	}
	out := decodeOutcome(t, resp)
	if out.Success || out.Code != "provider_request_failed" {
		t.Errorf("expected provider_request_failed outcome, got %+v", out)
	}
}

func TestOptimizeRoute_InvalidMode(t *testing.T) {
	app := setupApp(makeDeps(&testEnv{}))

	resp := postJSON(t, app, "/v1/routes/optimize",
		`{"mode":"teleport","clients":[`+clientJSON("a", &bengaluru)+`]}`)
	out := decodeOutcome(t, resp)
	if out.Success || out.Code != "invalid_input" {
		t.Errorf("expected invalid_input outcome, got %+v", out)
	}
}

func TestOptimizeRoute_MalformedBody(t *testing.T) {
	app := setupApp(makeDeps(&testEnv{}))

	resp := postJSON(t, app, "/v1/routes/optimize", `{"clients":`)
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}

	var apiErr struct {
		Status int    `json:"status"`
		Code   string `json:"code"`
	}
	json.NewDecoder(resp.Body).Decode(&apiErr)
	if apiErr.Code != "bad_request" {
		t.Errorf("expected bad_request error, got %s", apiErr.Code)
	}
}

func TestOptimizeRoute_CSVItinerary(t *testing.T) {
	app := setupApp(makeDeps(&testEnv{}))

	resp := postJSON(t, app, "/v1/routes/optimize?format=csv", routeBody(
		clientJSON("bengaluru", &bengaluru),
		clientJSON("chennai", &chennai),
		clientJSON("mysuru", &mysuru),
	))
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("expected text/csv, got %s", ct)
	}

	lines := strings.Split(strings.TrimSpace(string(readBody(t, resp.Body))), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected header and 3 stops, got %d lines: %v", len(lines), lines)
	}
	if !strings.HasPrefix(lines[0], "stop,client_id,name") {
		t.Errorf("unexpected header %q", lines[0])
	}
	if !strings.HasPrefix(lines[2], "2,mysuru,") {
		t.Errorf("expected mysuru second, got %q", lines[2])
	}
}

func TestSimpleRoute_KeepsOrder(t *testing.T) {
	app := setupApp(makeDeps(&testEnv{}))

	resp := postJSON(t, app, "/v1/routes/simple", routeBody(
		clientJSON("bengaluru", &bengaluru),
		clientJSON("chennai", &chennai),
		clientJSON("mysuru", &mysuru),
	))
	out := decodeOutcome(t, resp)
	if !out.Success {
		t.Fatalf("expected success, got %+v", out)
	}
	if got := strings.Join(clientIDs(out.Route.OrderedClients), ","); got != "bengaluru,chennai,mysuru" {
		t.Errorf("expected caller order, got %s", got)
	}
}

func TestSimpleRoute_InsufficientWaypoints(t *testing.T) {
	app := setupApp(makeDeps(&testEnv{}))

	resp := postJSON(t, app, "/v1/routes/simple", routeBody(clientJSON("a", &bengaluru), clientJSON("b", nil)))
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	out := decodeOutcome(t, resp)
	if out.Success || out.Code != "insufficient_waypoints" {
		t.Errorf("expected insufficient_waypoints outcome, got %+v", out)
	}
}

// ---- Directions handler tests ----

func decodeDirections(t *testing.T, resp *http.Response) domain.DirectionsOutcome {
	t.Helper()
	var out domain.DirectionsOutcome
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode directions outcome: %v", err)
	}
	return out
}

func TestDirections_Fallback(t *testing.T) {
	app := setupApp(makeDeps(&testEnv{}))

	resp := postJSON(t, app, "/v1/directions",
		`{"waypoints":[{"latitude":12.9716,"longitude":77.5946},{"latitude":12.2958,"longitude":76.6394}]}`)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	out := decodeDirections(t, resp)
	if !out.Success || out.Directions == nil {
		t.Fatalf("expected success, got %+v", out)
	}
	if out.Directions.Source != domain.SourceStraightLine || len(out.Directions.Legs) != 1 {
		t.Errorf("unexpected directions %+v", out.Directions)
	}
}

func TestDirections_TooFewWaypoints(t *testing.T) {
	app := setupApp(makeDeps(&testEnv{}))

	resp := postJSON(t, app, "/v1/directions", `{"waypoints":[{"latitude":1,"longitude":1}]}`)
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestDirections_InvalidCoordinates(t *testing.T) {
	app := setupApp(makeDeps(&testEnv{}))

	resp := postJSON(t, app, "/v1/directions",
		`{"waypoints":[{"latitude":95,"longitude":1},{"latitude":1,"longitude":1}]}`)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	out := decodeDirections(t, resp)
	if out.Success || out.Code != "invalid_input" || out.Directions != nil {
		t.Errorf("expected invalid_input outcome, got %+v", out)
	}
}

// The same provider failure has the same shape on /v1/directions as on the
// route endpoints.
func TestDirections_ProviderFailureIsTagged(t *testing.T) {
	app := setupApp(makeDeps(&testEnv{provider: &mockProvider{
		directionsFn: func(ctx context.Context, req domain.DirectionsRequest) (*domain.ProviderRoute, error) {
			return nil, fmt.Errorf("%w: OVER_QUERY_LIMIT", domain.ErrProviderRequestFailed)
		},
	}}))

	body := `{"waypoints":[{"latitude":12.9716,"longitude":77.5946},{"latitude":13.0827,"longitude":80.2707}]}`
	resp := postJSON(t, app, "/v1/directions", body)
	if resp.StatusCode != 502 {
		t.Fatalf("expected 502, got %d", resp.StatusCode)
	}
	out := decodeDirections(t, resp)
	if out.Success || out.Code != "provider_request_failed" || !strings.Contains(out.Error, "OVER_QUERY_LIMIT") {
		t.Errorf("expected tagged provider_request_failed, got %+v", out)
	}

	routeResp := postJSON(t, app, "/v1/routes/simple", routeBody(clientJSON("a", &bengaluru), clientJSON("b", &chennai)))
	if routeResp.StatusCode != resp.StatusCode {
		t.Errorf("expected matching status, got %d and %d", resp.StatusCode, routeResp.StatusCode)
	}
	route := decodeOutcome(t, routeResp)
	if route.Code != out.Code || route.Success != out.Success {
		t.Errorf("expected matching outcome, got %+v and %+v", out, route)
	}
}

// ---- Rep planning tests ----

func TestRepRoute_Sync(t *testing.T) {
	env := &testEnv{repo: &mockClientRepo{
		listByRepFn: func(ctx context.Context, repID string, limit, offset int) ([]domain.Client, error) {
			return []domain.Client{
				{ID: "a", RepID: repID, Location: &bengaluru},
				{ID: "b", RepID: repID, Location: &chennai},
			}, nil
		},
	}}
	app := setupApp(makeDeps(env))

	resp := postJSON(t, app, "/v1/reps/rep-7/route", `{"mode":"driving"}`)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var event domain.RoutePlanned
	json.NewDecoder(resp.Body).Decode(&event)
	if event.RepID != "rep-7" || !event.Outcome.Success {
		t.Errorf("unexpected event %+v", event)
	}
	if event.RequestID == "" {
		t.Error("expected request id to be carried into the event")
	}
	if len(env.pub.planned) != 1 {
		t.Errorf("expected one published event, got %d", len(env.pub.planned))
	}
}

func TestRepRoute_Async(t *testing.T) {
	env := &testEnv{}
	app := setupApp(makeDeps(env))

	resp := postJSON(t, app, "/v1/reps/rep-7/route?async=true", `{"client_ids":["a","b"]}`)
	if resp.StatusCode != 202 {
		t.Fatalf("expected 202, got %d", resp.StatusCode)
	}

	var body struct {
		RequestID string `json:"request_id"`
		Status    string `json:"status"`
	}
	json.NewDecoder(resp.Body).Decode(&body)
	if body.RequestID == "" || body.Status != "queued" {
		t.Errorf("unexpected body %+v", body)
	}
	if len(env.pub.requests) != 1 || env.pub.requests[0].RepID != "rep-7" {
		t.Errorf("expected queued plan request, got %+v", env.pub.requests)
	}
}

func TestRepRoute_StoreError(t *testing.T) {
	app := setupApp(makeDeps(&testEnv{repo: &mockClientRepo{
		listByRepFn: func(ctx context.Context, repID string, limit, offset int) ([]domain.Client, error) {
			return nil, errors.New("connection refused")
		},
	}}))

	resp := postJSON(t, app, "/v1/reps/rep-7/route", "")
	if resp.StatusCode != 500 {
		t.Fatalf("expected 500, got %d", resp.StatusCode)
	}
}

// ---- Client handler tests ----

func TestListClients_MissingRep(t *testing.T) {
	app := setupApp(makeDeps(&testEnv{}))

	resp := get(t, app, "/v1/clients")
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestListClients_Paginated(t *testing.T) {
	app := setupApp(makeDeps(&testEnv{repo: &mockClientRepo{
		listByRepFn: func(ctx context.Context, repID string, limit, offset int) ([]domain.Client, error) {
			return []domain.Client{
				{ID: "a", RepID: repID, Location: &bengaluru},
				{ID: "b", RepID: repID},
				{ID: "c", RepID: repID, Location: &mysuru},
			}, nil
		},
		countByRepFn: func(ctx context.Context, repID string) (int, error) { return 12, nil },
	}}))

	resp := get(t, app, "/v1/clients?rep_id=rep-1&limit=3")
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if link := resp.Header.Get("Link"); !strings.Contains(link, `rel="next"`) || !strings.Contains(link, "rep_id=rep-1") {
		t.Errorf("expected next link carrying rep_id, got %q", link)
	}

	var result struct {
		Data       []domain.Client `json:"data"`
		Pagination struct {
			Total int `json:"total"`
		} `json:"pagination"`
		Meta struct {
			Region domain.Region `json:"region"`
		} `json:"meta"`
	}
	json.NewDecoder(resp.Body).Decode(&result)
	if len(result.Data) != 2 {
		t.Errorf("expected 2 plottable clients, got %d", len(result.Data))
	}
	if result.Pagination.Total != 12 {
		t.Errorf("expected total 12, got %d", result.Pagination.Total)
	}
	if result.Meta.Region.LatSpan <= 0 {
		t.Errorf("expected region framing the clients, got %+v", result.Meta.Region)
	}
}

func TestListClients_NearbyLargeRadius(t *testing.T) {
	var gotRadius float64
	app := setupApp(makeDeps(&testEnv{repo: &mockClientRepo{
		withinFn: func(ctx context.Context, repID string, center domain.GeoPoint, radius float64, limit int) ([]domain.Client, error) {
			gotRadius = radius
			return nil, nil
		},
	}}))

	resp := get(t, app, "/v1/clients?rep_id=r1&lat=12.97&lon=77.59&radius=80000")
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if gotRadius != 80000 {
		t.Errorf("expected radius 80000, got %v", gotRadius)
	}

	resp = get(t, app, "/v1/clients?rep_id=r1&lat=12.97&lon=77.59&radius=100001")
	if resp.StatusCode != 400 {
		t.Errorf("expected 400 above the maximum radius, got %d", resp.StatusCode)
	}
}

func TestListClients_Nearby(t *testing.T) {
	app := setupApp(makeDeps(&testEnv{repo: &mockClientRepo{
		withinFn: func(ctx context.Context, repID string, center domain.GeoPoint, radius float64, limit int) ([]domain.Client, error) {
			if radius != 2000 {
				t.Errorf("expected radius 2000, got %v", radius)
			}
			return []domain.Client{{ID: "a", RepID: repID, Location: &center}}, nil
		},
	}}))

	resp := get(t, app, "/v1/clients?rep_id=rep-1&lat=12.97&lon=77.59&radius=2000")
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	resp = get(t, app, "/v1/clients?rep_id=rep-1&lat=abc&lon=77.59")
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400 for bad lat, got %d", resp.StatusCode)
	}
}

// ---- Geo and polyline tests ----

func TestDistance_Success(t *testing.T) {
	app := setupApp(makeDeps(&testEnv{}))

	resp := get(t, app, "/v1/geo/distance?from_lat=12.9716&from_lon=77.5946&to_lat=12.2958&to_lon=76.6394")
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body struct {
		Meters float64 `json:"distance_meters"`
		Text   string  `json:"distance_text"`
	}
	json.NewDecoder(resp.Body).Decode(&body)
	if body.Text != "128.0 km" {
		t.Errorf("expected 128.0 km, got %s (%.0f m)", body.Text, body.Meters)
	}
}

func TestDistance_MissingParams(t *testing.T) {
	app := setupApp(makeDeps(&testEnv{}))

	resp := get(t, app, "/v1/geo/distance?from_lat=12.9")
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestRegion_Success(t *testing.T) {
	app := setupApp(makeDeps(&testEnv{}))

	resp := postJSON(t, app, "/v1/geo/region",
		`{"points":[{"latitude":10,"longitude":20},{"latitude":12,"longitude":24}],"padding":1}`)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body struct {
		Region   domain.Region   `json:"region"`
		Centroid domain.GeoPoint `json:"centroid"`
	}
	json.NewDecoder(resp.Body).Decode(&body)
	if body.Region.Center != (domain.GeoPoint{Lat: 11, Lon: 22}) || body.Region.LatSpan != 2 || body.Region.LonSpan != 4 {
		t.Errorf("unexpected region %+v", body.Region)
	}
}

func TestMatrix_Success(t *testing.T) {
	app := setupApp(makeDeps(&testEnv{}))

	resp := postJSON(t, app, "/v1/geo/matrix",
		`{"origins":[{"latitude":12.9716,"longitude":77.5946}],"destinations":[{"latitude":12.2958,"longitude":76.6394},{"latitude":13.0827,"longitude":80.2707}]}`)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body struct {
		Rows []domain.MatrixRow `json:"rows"`
	}
	json.NewDecoder(resp.Body).Decode(&body)
	if len(body.Rows) != 1 || len(body.Rows[0].Elements) != 2 {
		t.Fatalf("unexpected matrix %+v", body.Rows)
	}
}

func TestPolyline_EncodeDecode(t *testing.T) {
	app := setupApp(makeDeps(&testEnv{}))

	resp := postJSON(t, app, "/v1/polyline/encode",
		`{"points":[{"latitude":38.5,"longitude":-120.2},{"latitude":40.7,"longitude":-120.95},{"latitude":43.252,"longitude":-126.453}]}`)
	var enc struct {
		Encoded string `json:"encoded"`
	}
	json.NewDecoder(resp.Body).Decode(&enc)
	if enc.Encoded != "_p~iF~ps|U_ulLnnqC_mqNvxq`@" {
		t.Fatalf("unexpected encoding %q", enc.Encoded)
	}

	resp = get(t, app, "/v1/polyline/decode?path=_p~iF~ps%7CU_ulLnnqC_mqNvxq%60%40")
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var dec struct {
		Count int `json:"count"`
	}
	json.NewDecoder(resp.Body).Decode(&dec)
	if dec.Count != 3 {
		t.Errorf("expected 3 points, got %d", dec.Count)
	}
}

func TestPolyline_EncodeRejectsOutOfRange(t *testing.T) {
	app := setupApp(makeDeps(&testEnv{}))

	resp := postJSON(t, app, "/v1/polyline/encode",
		`{"points":[{"latitude":1e300,"longitude":-7e250}]}`)
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}

	resp = postJSON(t, app, "/v1/polyline/encode",
		`{"points":[{"latitude":12.9716,"longitude":77.5946},{"latitude":-91,"longitude":0}]}`)
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400 for latitude -91, got %d", resp.StatusCode)
	}
}

func TestPolyline_DecodeMalformed(t *testing.T) {
	app := setupApp(makeDeps(&testEnv{}))

	resp := get(t, app, "/v1/polyline/decode?path=_p~iF~ps")
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

// ---- GraphQL tests ----

func TestGraphQL_Distance(t *testing.T) {
	app := setupApp(makeDeps(&testEnv{}))

	q := `{"query":"{ distance(from:{latitude:12.9716,longitude:77.5946}, to:{latitude:12.2958,longitude:76.6394}) { meters text } }"}`
	resp := postJSON(t, app, "/graphql", q)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body struct {
		Data struct {
			Distance struct {
				Text string `json:"text"`
			} `json:"distance"`
		} `json:"data"`
		Errors []any `json:"errors"`
	}
	json.NewDecoder(resp.Body).Decode(&body)
	if len(body.Errors) > 0 || body.Data.Distance.Text != "128.0 km" {
		t.Errorf("unexpected result %+v", body)
	}
}

func TestGraphQL_RejectsOutOfRangePoints(t *testing.T) {
	app := setupApp(makeDeps(&testEnv{}))

	for _, q := range []string{
		`{"query":"{ distance(from:{latitude:1e300,longitude:0}, to:{latitude:0,longitude:0}) { meters } }"}`,
		`{"query":"{ region(points:[{latitude:10,longitude:10},{latitude:0,longitude:200}]) { latitude_delta } }"}`,
	} {
		resp := postJSON(t, app, "/graphql", q)
		var body struct {
			Errors []any `json:"errors"`
		}
		json.NewDecoder(resp.Body).Decode(&body)
		if len(body.Errors) == 0 {
			t.Errorf("expected an error for %s", q)
		}
	}
}

func TestGraphQL_OptimizeRoute(t *testing.T) {
	app := setupApp(makeDeps(&testEnv{}))

	q := `{"query":"mutation { optimizeRoute(clients:[{id:\"b\", location:{latitude:13.0827,longitude:80.2707}}, {id:\"a\", location:{latitude:12.9716,longitude:77.5946}}, {id:\"x\"}]) { success code route { source ordered_clients { id } } } }"}`
	resp := postJSON(t, app, "/graphql", q)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body struct {
		Data struct {
			OptimizeRoute struct {
				Success bool `json:"success"`
				Route   struct {
					Source         string `json:"source"`
					OrderedClients []struct {
						ID string `json:"id"`
					} `json:"ordered_clients"`
				} `json:"route"`
			} `json:"optimizeRoute"`
		} `json:"data"`
		Errors []any `json:"errors"`
	}
	json.NewDecoder(resp.Body).Decode(&body)
	if len(body.Errors) > 0 {
		t.Fatalf("graphql errors: %v", body.Errors)
	}
	r := body.Data.OptimizeRoute
	if !r.Success || r.Route.Source != "straight_line" || len(r.Route.OrderedClients) != 2 {
		t.Errorf("unexpected outcome %+v", r)
	}
}

func TestGraphQL_DecodePolylineMalformed(t *testing.T) {
	app := setupApp(makeDeps(&testEnv{}))

	resp := postJSON(t, app, "/graphql", `{"query":"{ decodePolyline(path:\"_p~iF~ps\") { latitude } }"}`)
	var body struct {
		Errors []any `json:"errors"`
	}
	json.NewDecoder(resp.Body).Decode(&body)
	if len(body.Errors) == 0 {
		t.Error("expected an error for a truncated polyline")
	}
}

// ---- Health tests ----

func TestHealth(t *testing.T) {
	app := setupApp(makeDeps(&testEnv{}))

	resp := get(t, app, "/v1/health")
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestReady_NoDatabase(t *testing.T) {
	app := setupApp(makeDeps(&testEnv{}))

	resp := get(t, app, "/v1/ready")
	if resp.StatusCode != 503 {
		t.Fatalf("expected 503, got %d", resp.StatusCode)
	}
	var body struct {
		Checks map[string]string `json:"checks"`
	}
	json.NewDecoder(resp.Body).Decode(&body)
	if body.Checks["directions"] != "straight-line fallback only" {
		t.Errorf("unexpected directions check %q", body.Checks["directions"])
	}
}
