package http

import (
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/fieldroute/internal/core/domain"
	"github.com/samirrijal/fieldroute/internal/core/usecases"
	"github.com/samirrijal/fieldroute/internal/pkg/geospatial"
	"github.com/samirrijal/fieldroute/internal/pkg/polyline"
)

type pointsRequest struct {
	Points  []domain.GeoPoint `json:"points" validate:"max=10000"`
	Padding float64           `json:"padding" validate:"gte=0,lte=10"`
}

type matrixRequest struct {
	Origins      []domain.GeoPoint `json:"origins" validate:"required,min=1,max=25"`
	Destinations []domain.GeoPoint `json:"destinations" validate:"required,min=1,max=25"`
}

// queryPoint reads a required coordinate pair from the query string.
func queryPoint(c *fiber.Ctx, latKey, lonKey string) (domain.GeoPoint, error) {
	lat, err := strconv.ParseFloat(c.Query(latKey), 64)
	if err != nil {
		return domain.GeoPoint{}, fmt.Errorf("%s must be a number", latKey)
	}
	lon, err := strconv.ParseFloat(c.Query(lonKey), 64)
	if err != nil {
		return domain.GeoPoint{}, fmt.Errorf("%s must be a number", lonKey)
	}
	p := domain.GeoPoint{Lat: lat, Lon: lon}
	if !p.Valid() {
		return domain.GeoPoint{}, fmt.Errorf("coordinates out of range (%v, %v)", lat, lon)
	}
	return p, nil
}

func validPoints(points []domain.GeoPoint) error {
	for i, p := range points {
		if !p.Valid() {
			return fmt.Errorf("point %d has invalid coordinates (%v, %v)", i, p.Lat, p.Lon)
		}
	}
	return nil
}

func fallbackSpeed(deps *Dependencies) float64 {
	if deps.Directions != nil {
		return deps.Directions.FallbackSpeedKmh()
	}
	return usecases.DefaultFallbackSpeedKmh
}

// DistanceHandler returns the great-circle distance between two points.
// GET /v1/geo/distance?from_lat=..&from_lon=..&to_lat=..&to_lon=..
func DistanceHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		from, err := queryPoint(c, "from_lat", "from_lon")
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		to, err := queryPoint(c, "to_lat", "to_lon")
		if err != nil {
			return errBadRequest(c, err.Error())
		}

		meters := geospatial.Distance(from, to)
		seconds := geospatial.TravelSeconds(meters, fallbackSpeed(deps))
		return c.JSON(fiber.Map{
			"distance_meters":  meters,
			"distance_text":    geospatial.FormatDistance(meters),
			"duration_seconds": seconds,
			"duration_text":    geospatial.FormatDuration(seconds),
		})
	}
}

// RegionHandler fits a map region around points.
// POST /v1/geo/region
func RegionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req pointsRequest
		if err := parseBody(c, &req); err != nil {
			return errBadRequest(c, err.Error())
		}
		if err := validPoints(req.Points); err != nil {
			return errBadRequest(c, err.Error())
		}

		return c.JSON(fiber.Map{
			"region":   geospatial.BoundingRegion(req.Points, req.Padding),
			"centroid": geospatial.Centroid(req.Points),
		})
	}
}

// MatrixHandler returns straight-line distances and fallback-speed durations
// for every origin/destination pair.
// POST /v1/geo/matrix
func MatrixHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req matrixRequest
		if err := parseBody(c, &req); err != nil {
			return errBadRequest(c, err.Error())
		}
		if err := validPoints(append(append([]domain.GeoPoint{}, req.Origins...), req.Destinations...)); err != nil {
			return errBadRequest(c, err.Error())
		}

		return c.JSON(fiber.Map{
			"rows": geospatial.DistanceMatrix(req.Origins, req.Destinations, fallbackSpeed(deps)),
		})
	}
}

// EncodePolylineHandler encodes points at 1e-5 precision.
// POST /v1/polyline/encode
func EncodePolylineHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req pointsRequest
		if err := parseBody(c, &req); err != nil {
			return errBadRequest(c, err.Error())
		}
		if err := validPoints(req.Points); err != nil {
			return errBadRequest(c, err.Error())
		}

		return c.JSON(fiber.Map{
			"encoded": polyline.Encode(req.Points),
			"count":   len(req.Points),
		})
	}
}

// DecodePolylineHandler decodes an encoded path. Malformed input is rejected.
// GET /v1/polyline/decode?path=...
func DecodePolylineHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		path := c.Query("path")
		if len(path) > 100000 {
			return errBadRequest(c, "path too long")
		}

		points, err := polyline.DecodeStrict(path)
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		return c.JSON(fiber.Map{
			"points": points,
			"count":  len(points),
		})
	}
}
