package usecases

import (
	"context"
	"fmt"
	"math"

	"github.com/samirrijal/fieldroute/internal/core/domain"
	"github.com/samirrijal/fieldroute/internal/pkg/geospatial"
	"github.com/samirrijal/fieldroute/internal/pkg/metrics"
)

// NavigationLinker builds a deep link that hands an ordered path to a navigation app.
type NavigationLinker func(points []domain.GeoPoint, mode domain.TravelMode) string

// RouteOptimizer orders client visits and resolves the path between them.
// It keeps no state between calls.
type RouteOptimizer struct {
	directions *DirectionsService
	linker     NavigationLinker
}

// NewRouteOptimizer creates a new RouteOptimizer.
func NewRouteOptimizer(directions *DirectionsService, linker NavigationLinker) *RouteOptimizer {
	return &RouteOptimizer{directions: directions, linker: linker}
}

// Optimize visits every plottable client once, choosing the order with a
// nearest-neighbour walk from start (or from the first plottable client when
// start is nil), then asks for the road path along that order.
func (o *RouteOptimizer) Optimize(ctx context.Context, clients []domain.Client, start *domain.GeoPoint, mode domain.TravelMode) (*domain.RouteResult, error) {
	route, err := o.optimize(ctx, clients, start, mode)
	record("optimize", route, err)
	return route, err
}

func (o *RouteOptimizer) optimize(ctx context.Context, clients []domain.Client, start *domain.GeoPoint, mode domain.TravelMode) (*domain.RouteResult, error) {
	if !mode.Valid() {
		return nil, fmt.Errorf("%w: unknown travel mode %q", domain.ErrInvalidInput, mode)
	}
	if start != nil && !start.Valid() {
		return nil, fmt.Errorf("%w: start location has invalid coordinates (%v, %v)", domain.ErrInvalidInput, start.Lat, start.Lon)
	}

	valid := PlottableClients(clients)
	switch len(valid) {
	case 0:
		return nil, domain.ErrNoValidLocations
	case 1:
		return singleStop(valid[0]), nil
	}

	ordered := NearestNeighborOrder(valid, start)

	d, err := o.directions.CalculateRoute(ctx, locations(ordered), domain.RouteOptions{Optimize: true, Mode: mode})
	if err != nil {
		return nil, err
	}

	return o.buildResult(applyWaypointOrder(ordered, d.WaypointOrder), d, mode), nil
}

// CalculateSimpleRoute resolves the path through the plottable clients in the
// order given.
func (o *RouteOptimizer) CalculateSimpleRoute(ctx context.Context, clients []domain.Client, mode domain.TravelMode) (*domain.RouteResult, error) {
	route, err := o.calculateSimple(ctx, clients, mode)
	record("simple", route, err)
	return route, err
}

func (o *RouteOptimizer) calculateSimple(ctx context.Context, clients []domain.Client, mode domain.TravelMode) (*domain.RouteResult, error) {
	valid := PlottableClients(clients)
	if len(valid) < 2 {
		return nil, domain.ErrInsufficientWaypoints
	}

	d, err := o.directions.CalculateRoute(ctx, locations(valid), domain.RouteOptions{Optimize: false, Mode: mode})
	if err != nil {
		return nil, err
	}

	return o.buildResult(valid, d, mode), nil
}

func (o *RouteOptimizer) buildResult(ordered []domain.Client, d *domain.Directions, mode domain.TravelMode) *domain.RouteResult {
	encoded := d.EncodedPath
	region := geospatial.BoundingRegion(d.Points, geospatial.DefaultPadding)

	r := &domain.RouteResult{
		OrderedClients:       ordered,
		PathPoints:           d.Points,
		EncodedPath:          &encoded,
		TotalDistanceMeters:  d.DistanceMeters,
		TotalDurationSeconds: d.DurationSeconds,
		Legs:                 d.Legs,
		WaypointOrder:        d.WaypointOrder,
		Source:               d.Source,
		Region:               &region,
	}
	if o.linker != nil {
		r.NavigationURL = o.linker(locations(ordered), mode.OrDefault())
	}
	return r
}

func singleStop(c domain.Client) *domain.RouteResult {
	region := geospatial.BoundingRegion([]domain.GeoPoint{*c.Location}, geospatial.DefaultPadding)
	return &domain.RouteResult{
		OrderedClients: []domain.Client{c},
		PathPoints:     []domain.GeoPoint{},
		Legs:           []domain.RouteLeg{},
		Source:         domain.SourceNone,
		Region:         &region,
	}
}

// PlottableClients returns the clients with a present, valid location, in input order.
func PlottableClients(clients []domain.Client) []domain.Client {
	out := make([]domain.Client, 0, len(clients))
	for _, c := range clients {
		if c.Plottable() {
			out = append(out, c)
		}
	}
	return out
}

// NearestNeighborOrder orders clients greedily: from the current position, go to
// the closest unvisited client. Ties go to the client seen first. A nil start
// begins at the first client, so the result depends on input order.
// Every client must be plottable.
func NearestNeighborOrder(clients []domain.Client, start *domain.GeoPoint) []domain.Client {
	if len(clients) == 0 {
		return nil
	}

	current := *clients[0].Location
	if start != nil {
		current = *start
	}

	unvisited := append([]domain.Client(nil), clients...)
	ordered := make([]domain.Client, 0, len(clients))

	for len(unvisited) > 0 {
		nearest := 0
		best := math.Inf(1)
		for i, c := range unvisited {
			if d := geospatial.Distance(current, *c.Location); d < best {
				best = d
				nearest = i
			}
		}

		next := unvisited[nearest]
		unvisited = append(unvisited[:nearest], unvisited[nearest+1:]...)
		ordered = append(ordered, next)
		current = *next.Location
	}
	return ordered
}

// applyWaypointOrder reorders the interior clients by the provider's chosen
// stop order, keeping the first and last in place.
func applyWaypointOrder(clients []domain.Client, order []int) []domain.Client {
	if len(order) != len(clients)-2 {
		return clients
	}
	out := make([]domain.Client, 0, len(clients))
	out = append(out, clients[0])
	for _, i := range order {
		out = append(out, clients[i+1])
	}
	return append(out, clients[len(clients)-1])
}

func locations(clients []domain.Client) []domain.GeoPoint {
	points := make([]domain.GeoPoint, len(clients))
	for i, c := range clients {
		points[i] = *c.Location
	}
	return points
}

func record(operation string, route *domain.RouteResult, err error) {
	if err != nil {
		metrics.RouteFailures.WithLabelValues(operation, domain.ErrorCode(err)).Inc()
		return
	}
	metrics.RoutesComputed.WithLabelValues(operation, string(route.Source)).Inc()
}
