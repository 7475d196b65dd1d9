package http

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/fieldroute/internal/core/domain"
	"github.com/samirrijal/fieldroute/internal/core/usecases"
	"github.com/samirrijal/fieldroute/internal/pkg/geospatial"
)

var validate = validator.New()

// routeRequest is the body of the optimize and simple route endpoints.
type routeRequest struct {
	Clients []domain.Client   `json:"clients" validate:"max=200"`
	Start   *domain.GeoPoint  `json:"start_location"`
	Mode    domain.TravelMode `json:"mode"`
}

type directionsRequest struct {
	Waypoints []domain.GeoPoint `json:"waypoints" validate:"required,min=2,max=25"`
	Optimize  bool              `json:"optimize"`
	Mode      domain.TravelMode `json:"mode"`
}

type repRouteRequest struct {
	ClientIDs []string          `json:"client_ids" validate:"max=100,dive,required"`
	Start     *domain.GeoPoint  `json:"start_location"`
	Mode      domain.TravelMode `json:"mode"`
}

// parseBody decodes and validates a JSON body.
func parseBody(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	if err := validate.Struct(dst); err != nil {
		return errors.New(validationMessage(err))
	}
	return nil
}

// OptimizeRouteHandler orders clients with nearest-neighbour and resolves the path.
// POST /v1/routes/optimize
func OptimizeRouteHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req routeRequest
		if err := parseBody(c, &req); err != nil {
			return errBadRequest(c, err.Error())
		}

		route, err := deps.Optimizer.Optimize(c.UserContext(), req.Clients, req.Start, req.Mode)
		return sendRoute(c, route, err)
	}
}

// SimpleRouteHandler resolves the path through clients in the given order.
// POST /v1/routes/simple
func SimpleRouteHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req routeRequest
		if err := parseBody(c, &req); err != nil {
			return errBadRequest(c, err.Error())
		}

		route, err := deps.Optimizer.CalculateSimpleRoute(c.UserContext(), req.Clients, req.Mode)
		return sendRoute(c, route, err)
	}
}

// sendRoute writes a route computation as a RouteOutcome, or as a CSV
// itinerary when the caller asked for one and the computation succeeded.
func sendRoute(c *fiber.Ctx, route *domain.RouteResult, err error) error {
	if err == nil && wantsCSV(c) {
		return sendItinerary(c, route)
	}
	return c.Status(outcomeStatus(domain.ErrorCode(err))).JSON(domain.Outcome(route, err))
}

// outcomeStatus is 200 for route outcomes, including domain failures, and
// 502 when the provider rejected the request.
func outcomeStatus(code string) int {
	switch code {
	case "provider_request_failed":
		return fiber.StatusBadGateway
	case "internal_error":
		return fiber.StatusInternalServerError
	default:
		return fiber.StatusOK
	}
}

// DirectionsHandler resolves a path between raw waypoints. Failures are
// reported in the outcome like the route endpoints.
// POST /v1/directions
func DirectionsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req directionsRequest
		if err := parseBody(c, &req); err != nil {
			return errBadRequest(c, err.Error())
		}

		d, err := deps.Directions.CalculateRoute(c.UserContext(), req.Waypoints,
			domain.RouteOptions{Optimize: req.Optimize, Mode: req.Mode})
		return c.Status(outcomeStatus(domain.ErrorCode(err))).JSON(domain.DirectionsResult(d, err))
	}
}

// RepRouteHandler plans a route through a rep's clients and publishes it.
// With ?async=true the request is queued for the background planner instead.
// POST /v1/reps/:id/route
func RepRouteHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		repID := c.Params("id")
		if repID == "" {
			return errBadRequest(c, "rep id is required")
		}

		var req repRouteRequest
		if len(c.Body()) > 0 {
			if err := parseBody(c, &req); err != nil {
				return errBadRequest(c, err.Error())
			}
		}
		plan := domain.PlanRequest{
			RequestID: RequestIDFromCtx(c.UserContext()),
			RepID:     repID,
			ClientIDs: req.ClientIDs,
			Start:     req.Start,
			Mode:      req.Mode,
		}

		if c.QueryBool("async") {
			plan.RequestID = ""
			id, err := deps.Planning.RequestPlan(c.UserContext(), plan)
			if err != nil {
				if errors.Is(err, domain.ErrInvalidInput) {
					return errBadRequest(c, err.Error())
				}
				return errUnavailable(c, err.Error())
			}
			return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
				"request_id": id,
				"rep_id":     repID,
				"status":     "queued",
			})
		}

		event, err := deps.Planning.PlanForRep(c.UserContext(), plan)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.Status(outcomeStatus(event.Outcome.Code)).JSON(event)
	}
}

// ListClientsHandler returns a rep's plottable clients plus the region that
// frames them. With lat, lon and radius it returns clients near that point.
// GET /v1/clients?rep_id=...&offset=0&limit=50
func ListClientsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		repID := strings.TrimSpace(c.Query("rep_id"))
		if repID == "" {
			return errBadRequest(c, "rep_id query parameter is required")
		}

		if c.Query("lat") != "" || c.Query("lon") != "" {
			center, err := queryPoint(c, "lat", "lon")
			if err != nil {
				return errBadRequest(c, err.Error())
			}
			radius := c.QueryFloat("radius", usecases.DefaultNearbyRadius)
			if radius <= 0 || radius > usecases.MaxNearbyRadius {
				return errBadRequest(c, fmt.Sprintf("radius must be between 1 and %d meters", usecases.MaxNearbyRadius))
			}
			clients, err := deps.Clients.Nearby(c.UserContext(), repID, center, radius, c.QueryInt("limit", 50))
			if err != nil {
				return errFromDomain(c, err)
			}
			return c.JSON(fiber.Map{
				"data":   clients,
				"region": geospatial.BoundingRegion(clientPoints(clients), geospatial.DefaultPadding),
			})
		}

		offset := c.QueryInt("offset", 0)
		limit := c.QueryInt("limit", 50)
		if offset < 0 {
			offset = 0
		}
		if limit <= 0 || limit > 100 {
			limit = 50
		}

		page, err := deps.Clients.ListByRep(c.UserContext(), repID, limit, offset)
		if err != nil {
			return errFromDomain(c, err)
		}

		pg := Pagination{Offset: offset, Limit: limit, Total: page.Total}
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{
			Data:       page.Clients,
			Pagination: pg,
			Meta: fiber.Map{
				"region": geospatial.BoundingRegion(clientPoints(page.Clients), geospatial.DefaultPadding),
			},
		})
	}
}

func clientPoints(clients []domain.Client) []domain.GeoPoint {
	points := make([]domain.GeoPoint, 0, len(clients))
	for _, cl := range clients {
		if cl.Plottable() {
			points = append(points, *cl.Location)
		}
	}
	return points
}
