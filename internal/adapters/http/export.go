package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jszwec/csvutil"

	"github.com/samirrijal/fieldroute/internal/core/domain"
)

// itineraryRow is one stop of an exported route. Leg figures cover the
// stretch from the previous stop, zero for the first.
type itineraryRow struct {
	Stop               int     `csv:"stop"`
	ClientID           string  `csv:"client_id"`
	Name               string  `csv:"name"`
	Address            string  `csv:"address"`
	Latitude           float64 `csv:"latitude"`
	Longitude          float64 `csv:"longitude"`
	LegDistanceMeters  float64 `csv:"leg_distance_meters"`
	LegDurationSeconds float64 `csv:"leg_duration_seconds"`
}

// wantsCSV reports whether the caller asked for a CSV itinerary.
func wantsCSV(c *fiber.Ctx) bool {
	if strings.EqualFold(c.Query("format"), "csv") {
		return true
	}
	return strings.Contains(c.Get(fiber.HeaderAccept), "text/csv")
}

func itineraryRows(route *domain.RouteResult) []itineraryRow {
	rows := make([]itineraryRow, 0, len(route.OrderedClients))
	for i, cl := range route.OrderedClients {
		row := itineraryRow{
			Stop:     i + 1,
			ClientID: cl.ID,
			Name:     cl.Name,
			Address:  cl.Address,
		}
		if cl.Location != nil {
			row.Latitude = cl.Location.Lat
			row.Longitude = cl.Location.Lon
		}
		if i > 0 && i-1 < len(route.Legs) {
			row.LegDistanceMeters = route.Legs[i-1].DistanceMeters
			row.LegDurationSeconds = route.Legs[i-1].DurationSeconds
		}
		rows = append(rows, row)
	}
	return rows
}

func sendItinerary(c *fiber.Ctx, route *domain.RouteResult) error {
	data, err := csvutil.Marshal(itineraryRows(route))
	if err != nil {
		return errInternal(c, "encode itinerary: "+err.Error())
	}
	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="route.csv"`)
	c.Set("X-Route-Source", string(route.Source))
	return c.Send(data)
}
