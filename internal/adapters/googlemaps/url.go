package googlemaps

import (
	"net/url"
	"strings"

	"github.com/samirrijal/fieldroute/internal/core/domain"
)

const mapsDirURL = "https://www.google.com/maps/dir/?api=1"

// DirectionsURL returns a Google Maps link that opens turn-by-turn navigation
// through points in order. Fewer than two points yields "".
func DirectionsURL(points []domain.GeoPoint, mode domain.TravelMode) string {
	if len(points) < 2 {
		return ""
	}

	params := url.Values{}
	params.Set("origin", formatLatLng(points[0]))
	params.Set("destination", formatLatLng(points[len(points)-1]))
	params.Set("travelmode", apiMode(mode))

	if stops := points[1 : len(points)-1]; len(stops) > 0 {
		parts := make([]string, len(stops))
		for i, s := range stops {
			parts[i] = formatLatLng(s)
		}
		params.Set("waypoints", strings.Join(parts, "|"))
	}

	return mapsDirURL + "&" + params.Encode()
}
