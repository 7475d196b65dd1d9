package geospatial

import (
	"math"

	"github.com/paulmach/orb"

	"github.com/samirrijal/fieldroute/internal/core/domain"
)

const (
	// DefaultPadding widens a fitted region so edge markers are not flush with the viewport.
	DefaultPadding = 1.2

	// MinSpan is the smallest span on either axis; also the span used for a single point.
	MinSpan = 0.01
)

// DefaultRegion is returned for an empty point set so a map always has something to render.
var DefaultRegion = domain.Region{
	Center:  domain.GeoPoint{Lat: 0, Lon: 0},
	LatSpan: 0.0922,
	LonSpan: 0.0421,
}

// BoundingRegion fits a region around points. A padding <= 0 uses DefaultPadding.
func BoundingRegion(points []domain.GeoPoint, padding float64) domain.Region {
	if padding <= 0 {
		padding = DefaultPadding
	}

	switch len(points) {
	case 0:
		return DefaultRegion
	case 1:
		return domain.Region{Center: points[0], LatSpan: MinSpan, LonSpan: MinSpan}
	}

	mp := make(orb.MultiPoint, len(points))
	for i, p := range points {
		mp[i] = orb.Point{p.Lon, p.Lat}
	}
	b := mp.Bound()

	return domain.Region{
		Center: domain.GeoPoint{
			Lat: (b.Min.Lat() + b.Max.Lat()) / 2,
			Lon: (b.Min.Lon() + b.Max.Lon()) / 2,
		},
		LatSpan: math.Max((b.Max.Lat()-b.Min.Lat())*padding, MinSpan),
		LonSpan: math.Max((b.Max.Lon()-b.Min.Lon())*padding, MinSpan),
	}
}

// Centroid returns the arithmetic mean of points, (0,0) when empty.
func Centroid(points []domain.GeoPoint) domain.GeoPoint {
	switch len(points) {
	case 0:
		return domain.GeoPoint{}
	case 1:
		return points[0]
	}

	var lat, lon float64
	for _, p := range points {
		lat += p.Lat
		lon += p.Lon
	}
	n := float64(len(points))
	return domain.GeoPoint{Lat: lat / n, Lon: lon / n}
}
