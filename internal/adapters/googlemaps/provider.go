package googlemaps

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/samirrijal/fieldroute/internal/core/domain"
	"github.com/samirrijal/fieldroute/internal/pkg/telemetry"
)

// DefaultBaseURL is the Directions API endpoint.
const DefaultBaseURL = "https://maps.googleapis.com/maps/api/directions/json"

// Provider implements ports.DirectionsProvider against the Google Directions REST API.
type Provider struct {
	apiKey  string
	baseURL string
	timeout time.Duration
	client  *fasthttp.Client
}

// Config configures a Provider.
type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// New creates a new Provider.
func New(cfg Config) *Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Provider{
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		timeout: cfg.Timeout,
		client: &fasthttp.Client{
			Name:                "fieldroute",
			ReadTimeout:         cfg.Timeout,
			WriteTimeout:        cfg.Timeout,
			MaxIdleConnDuration: time.Minute,
		},
	}
}

// Name returns the provider name.
func (p *Provider) Name() string { return "google" }

// Directions requests a route from origin to destination through the stops.
func (p *Provider) Directions(ctx context.Context, req domain.DirectionsRequest) (*domain.ProviderRoute, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "googlemaps.Directions", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		telemetry.AttrProvider.String(p.Name()),
		telemetry.AttrWaypoints.Int(len(req.Stops)+2),
		telemetry.AttrMode.String(string(req.Mode.OrDefault())),
	)

	if p.apiKey == "" {
		span.SetStatus(codes.Error, "api key not configured")
		return nil, fmt.Errorf("%w: google api key not configured", domain.ErrProviderUnavailable)
	}

	body, err := p.get(ctx, p.requestURL(req))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	var resp directionsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("%w: decode directions response: %w", domain.ErrProviderRequestFailed, err)
	}
	span.SetAttributes(telemetry.AttrStatus.String(resp.Status))

	switch resp.Status {
	case statusOK:
	case statusRequestDenied:
		span.SetStatus(codes.Error, resp.Status)
		return nil, fmt.Errorf("%w: %s: %s", domain.ErrProviderUnavailable, resp.Status, resp.ErrorMessage)
	default:
		span.SetStatus(codes.Error, resp.Status)
		return nil, fmt.Errorf("%w: %s: %s", domain.ErrProviderRequestFailed, resp.Status, resp.ErrorMessage)
	}
	if len(resp.Routes) == 0 {
		return nil, fmt.Errorf("%w: %s with no routes", domain.ErrProviderRequestFailed, resp.Status)
	}

	return convertRoute(resp.Routes[0]), nil
}

func (p *Provider) requestURL(req domain.DirectionsRequest) string {
	params := url.Values{}
	params.Set("origin", formatLatLng(req.Origin))
	params.Set("destination", formatLatLng(req.Destination))
	params.Set("mode", apiMode(req.Mode))
	params.Set("units", "metric")
	params.Set("key", p.apiKey)

	if len(req.Stops) > 0 {
		parts := make([]string, 0, len(req.Stops)+1)
		if req.Optimize {
			parts = append(parts, "optimize:true")
		}
		for _, s := range req.Stops {
			parts = append(parts, formatLatLng(s))
		}
		params.Set("waypoints", strings.Join(parts, "|"))
	}

	sep := "?"
	if strings.Contains(p.baseURL, "?") {
		sep = "&"
	}
	return p.baseURL + sep + params.Encode()
}

// get performs a GET bounded by the client timeout and ctx's deadline.
func (p *Provider) get(ctx context.Context, uri string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrProviderRequestFailed, err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(uri)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Accept", "application/json")

	deadline := time.Now().Add(p.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := p.client.DoDeadline(req, resp, deadline); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrProviderRequestFailed, err)
	}

	if code := resp.StatusCode(); code != fasthttp.StatusOK {
		return nil, fmt.Errorf("%w: directions api returned HTTP %d", domain.ErrProviderRequestFailed, code)
	}

	// The body is owned by resp and released on return.
	return append([]byte(nil), resp.Body()...), nil
}

func convertRoute(r route) *domain.ProviderRoute {
	out := &domain.ProviderRoute{
		EncodedPolyline: r.OverviewPolyline.Points,
		Legs:            make([]domain.RouteLeg, 0, len(r.Legs)),
		WaypointOrder:   r.WaypointOrder,
	}
	for _, l := range r.Legs {
		rl := domain.RouteLeg{
			DistanceMeters:  float64(l.Distance.Value),
			DurationSeconds: float64(l.Duration.Value),
			Steps:           make([]domain.RouteStep, 0, len(l.Steps)),
		}
		for _, s := range l.Steps {
			rl.Steps = append(rl.Steps, domain.RouteStep{
				Instruction:     s.HTMLInstructions,
				DistanceMeters:  float64(s.Distance.Value),
				DurationSeconds: float64(s.Duration.Value),
				EncodedPath:     s.Polyline.Points,
			})
		}
		out.Legs = append(out.Legs, rl)
	}
	return out
}

func apiMode(m domain.TravelMode) string {
	switch m.OrDefault() {
	case domain.ModeWalking:
		return "walking"
	case domain.ModeCycling:
		return "bicycling"
	default:
		return "driving"
	}
}

func formatLatLng(p domain.GeoPoint) string {
	return strconv.FormatFloat(p.Lat, 'f', 6, 64) + "," + strconv.FormatFloat(p.Lon, 'f', 6, 64)
}
