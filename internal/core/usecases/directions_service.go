package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/samirrijal/fieldroute/internal/core/domain"
	"github.com/samirrijal/fieldroute/internal/core/ports"
	"github.com/samirrijal/fieldroute/internal/pkg/geospatial"
	"github.com/samirrijal/fieldroute/internal/pkg/metrics"
	"github.com/samirrijal/fieldroute/internal/pkg/polyline"
)

// DefaultFallbackSpeedKmh is the average speed assumed by straight-line routes.
const DefaultFallbackSpeedKmh = 50.0

// DirectionsService resolves the path through ordered waypoints. It delegates to
// a DirectionsProvider and falls back to straight lines when the provider is
// missing or unavailable.
type DirectionsService struct {
	provider  ports.DirectionsProvider
	publisher ports.EventPublisher
	speedKmh  float64
}

// NewDirectionsService creates a new DirectionsService. provider may be nil, in
// which case every route uses the straight-line fallback.
func NewDirectionsService(provider ports.DirectionsProvider, fallbackSpeedKmh float64) *DirectionsService {
	if fallbackSpeedKmh <= 0 {
		fallbackSpeedKmh = DefaultFallbackSpeedKmh
	}
	return &DirectionsService{provider: provider, speedKmh: fallbackSpeedKmh}
}

// WithPublisher makes the service announce straight-line fallbacks on the broker.
func (s *DirectionsService) WithPublisher(p ports.EventPublisher) *DirectionsService {
	s.publisher = p
	return s
}

// ProviderName returns the configured provider name, or "none".
func (s *DirectionsService) ProviderName() string {
	if s.provider == nil {
		return "none"
	}
	return s.provider.Name()
}

// FallbackSpeedKmh returns the speed used for straight-line durations.
func (s *DirectionsService) FallbackSpeedKmh() float64 {
	return s.speedKmh
}

// CalculateRoute resolves the path through waypoints. The first waypoint is the
// origin, the last the destination and the rest are intermediate stops. With
// opts.Optimize the provider may reorder the stops; the order it chose is
// returned as indices into the stops.
func (s *DirectionsService) CalculateRoute(ctx context.Context, waypoints []domain.GeoPoint, opts domain.RouteOptions) (*domain.Directions, error) {
	if len(waypoints) < 2 {
		return nil, fmt.Errorf("%w: at least 2 waypoints required", domain.ErrInvalidInput)
	}
	for i, p := range waypoints {
		if !p.Valid() {
			return nil, fmt.Errorf("%w: waypoint %d has invalid coordinates (%v, %v)", domain.ErrInvalidInput, i, p.Lat, p.Lon)
		}
	}
	if !opts.Mode.Valid() {
		return nil, fmt.Errorf("%w: unknown travel mode %q", domain.ErrInvalidInput, opts.Mode)
	}

	if s.provider == nil {
		slog.WarnContext(ctx, "no directions provider configured, using straight-line route",
			"waypoints", len(waypoints))
		return s.fallback(ctx, waypoints, "not_configured"), nil
	}

	req := domain.DirectionsRequest{
		Origin:      waypoints[0],
		Destination: waypoints[len(waypoints)-1],
		Stops:       append([]domain.GeoPoint(nil), waypoints[1:len(waypoints)-1]...),
		Optimize:    opts.Optimize,
		Mode:        opts.Mode.OrDefault(),
	}

	start := time.Now()
	route, err := s.provider.Directions(ctx, req)
	outcome := "ok"
	if err != nil {
		outcome = domain.ErrorCode(err)
	}
	metrics.ProviderDuration.WithLabelValues(s.provider.Name(), outcome).Observe(time.Since(start).Seconds())

	if err != nil {
		if errors.Is(err, domain.ErrProviderUnavailable) {
			slog.WarnContext(ctx, "directions provider unavailable, using straight-line route",
				"provider", s.provider.Name(), "error", err, "waypoints", len(waypoints))
			return s.fallback(ctx, waypoints, "unavailable"), nil
		}
		if errors.Is(err, domain.ErrProviderRequestFailed) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrProviderRequestFailed, err)
	}

	return s.fromProvider(waypoints, req.Stops, route)
}

func (s *DirectionsService) fromProvider(waypoints, stops []domain.GeoPoint, route *domain.ProviderRoute) (*domain.Directions, error) {
	if route == nil {
		return nil, fmt.Errorf("%w: empty response from %s", domain.ErrProviderRequestFailed, s.provider.Name())
	}

	order := route.WaypointOrder
	if len(order) == 0 {
		order = identityOrder(len(stops))
	} else if !isPermutation(order, len(stops)) {
		return nil, fmt.Errorf("%w: waypoint order %v is not a permutation of %d stops",
			domain.ErrProviderRequestFailed, order, len(stops))
	}

	d := &domain.Directions{
		Legs:          route.Legs,
		WaypointOrder: order,
		Source:        domain.SourceProvider,
	}
	if d.Legs == nil {
		d.Legs = []domain.RouteLeg{}
	}

	switch {
	case len(route.Points) > 0:
		d.Points = route.Points
		d.EncodedPath = route.EncodedPolyline
		if d.EncodedPath == "" {
			d.EncodedPath = polyline.Encode(d.Points)
		}
	case route.EncodedPolyline != "":
		points, err := polyline.DecodeStrict(route.EncodedPolyline)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrProviderRequestFailed, err)
		}
		d.Points = points
		d.EncodedPath = route.EncodedPolyline
	default:
		// No geometry: draw through the waypoints in visiting order.
		d.Points = reorderedWaypoints(waypoints, order)
		d.EncodedPath = polyline.Encode(d.Points)
	}

	for _, leg := range d.Legs {
		d.DistanceMeters += leg.DistanceMeters
		d.DurationSeconds += leg.DurationSeconds
	}
	return d, nil
}

// fallback builds a straight-line route through waypoints in the given order.
func (s *DirectionsService) fallback(ctx context.Context, waypoints []domain.GeoPoint, reason string) *domain.Directions {
	metrics.DirectionsFallbacks.WithLabelValues(reason).Inc()

	d := &domain.Directions{
		Points:        append([]domain.GeoPoint(nil), waypoints...),
		Legs:          make([]domain.RouteLeg, 0, len(waypoints)-1),
		WaypointOrder: identityOrder(len(waypoints) - 2),
		Source:        domain.SourceStraightLine,
	}
	for i := 1; i < len(waypoints); i++ {
		dist := geospatial.Distance(waypoints[i-1], waypoints[i])
		dur := geospatial.TravelSeconds(dist, s.speedKmh)
		d.Legs = append(d.Legs, domain.RouteLeg{DistanceMeters: dist, DurationSeconds: dur})
		d.DistanceMeters += dist
		d.DurationSeconds += dur
	}
	d.EncodedPath = polyline.Encode(d.Points)

	if s.publisher != nil {
		notice := &domain.DegradedNotice{
			Provider:  s.ProviderName(),
			Reason:    reason,
			Waypoints: len(waypoints),
			Time:      time.Now(),
		}
		if err := s.publisher.PublishDegraded(ctx, notice); err != nil {
			slog.DebugContext(ctx, "publish degraded notice", "error", err)
		}
	}
	return d
}

func identityOrder(n int) []int {
	if n < 0 {
		n = 0
	}
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	return order
}

func isPermutation(order []int, n int) bool {
	if len(order) != n {
		return false
	}
	seen := make([]bool, n)
	for _, i := range order {
		if i < 0 || i >= n || seen[i] {
			return false
		}
		seen[i] = true
	}
	return true
}

// reorderedWaypoints returns origin, the stops in order, then destination.
func reorderedWaypoints(waypoints []domain.GeoPoint, order []int) []domain.GeoPoint {
	out := make([]domain.GeoPoint, 0, len(waypoints))
	out = append(out, waypoints[0])
	for _, i := range order {
		out = append(out, waypoints[i+1])
	}
	return append(out, waypoints[len(waypoints)-1])
}
