package geospatial

import (
	"fmt"
	"math"

	"github.com/samirrijal/fieldroute/internal/core/domain"
)

// DistanceMatrix computes straight-line distance and estimated duration for every
// origin/destination pair.
func DistanceMatrix(origins, destinations []domain.GeoPoint, speedKmh float64) []domain.MatrixRow {
	rows := make([]domain.MatrixRow, 0, len(origins))
	for _, o := range origins {
		row := domain.MatrixRow{Origin: o, Elements: make([]domain.MatrixCell, 0, len(destinations))}
		for _, d := range destinations {
			dist := Distance(o, d)
			dur := TravelSeconds(dist, speedKmh)
			row.Elements = append(row.Elements, domain.MatrixCell{
				Destination:     d,
				DistanceMeters:  dist,
				DurationSeconds: dur,
				DistanceText:    FormatDistance(dist),
				DurationText:    FormatDuration(dur),
			})
		}
		rows = append(rows, row)
	}
	return rows
}

// FormatDistance renders meters as "850 m" or "12.3 km".
func FormatDistance(meters float64) string {
	if meters < 1000 {
		return fmt.Sprintf("%d m", int(math.Round(meters)))
	}
	return fmt.Sprintf("%.1f km", meters/1000)
}

// FormatDuration renders seconds as "1h 5m" or "42 min".
func FormatDuration(seconds float64) string {
	hours := int(seconds / 3600)
	minutes := int(math.Mod(seconds, 3600) / 60)
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%d min", minutes)
}
