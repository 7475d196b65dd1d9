package geospatial

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/samirrijal/fieldroute/internal/core/domain"
)

func TestBoundingRegion_Empty(t *testing.T) {
	assert.Equal(t, DefaultRegion, BoundingRegion(nil, 0))
	assert.Equal(t, 0.0922, DefaultRegion.LatSpan)
	assert.Equal(t, 0.0421, DefaultRegion.LonSpan)
}

func TestBoundingRegion_SinglePoint(t *testing.T) {
	r := BoundingRegion([]domain.GeoPoint{bengaluru}, DefaultPadding)
	assert.Equal(t, bengaluru, r.Center)
	assert.Equal(t, MinSpan, r.LatSpan)
	assert.Equal(t, MinSpan, r.LonSpan)
}

func TestBoundingRegion_IdenticalPointsUseFloor(t *testing.T) {
	r := BoundingRegion([]domain.GeoPoint{bengaluru, bengaluru}, DefaultPadding)
	assert.InDelta(t, bengaluru.Lat, r.Center.Lat, 1e-12)
	assert.InDelta(t, bengaluru.Lon, r.Center.Lon, 1e-12)
	assert.Equal(t, MinSpan, r.LatSpan)
	assert.Equal(t, MinSpan, r.LonSpan)
}

func TestBoundingRegion_Padded(t *testing.T) {
	points := []domain.GeoPoint{bengaluru, mysuru, chennai}
	r := BoundingRegion(points, DefaultPadding)

	assert.InDelta(t, (mysuru.Lat+chennai.Lat)/2, r.Center.Lat, 1e-9)
	assert.InDelta(t, (mysuru.Lon+chennai.Lon)/2, r.Center.Lon, 1e-9)
	assert.InDelta(t, (chennai.Lat-mysuru.Lat)*1.2, r.LatSpan, 1e-9)
	assert.InDelta(t, (chennai.Lon-mysuru.Lon)*1.2, r.LonSpan, 1e-9)
}

func TestBoundingRegion_NonPositivePaddingUsesDefault(t *testing.T) {
	points := []domain.GeoPoint{mysuru, chennai}
	assert.Equal(t, BoundingRegion(points, DefaultPadding), BoundingRegion(points, 0))
	assert.Equal(t, BoundingRegion(points, DefaultPadding), BoundingRegion(points, -1))
}

func TestBoundingRegion_FloorPerAxis(t *testing.T) {
	// Same latitude, wide longitude: only the latitude span is floored.
	points := []domain.GeoPoint{{Lat: 10, Lon: 70}, {Lat: 10, Lon: 72}}
	r := BoundingRegion(points, 1)
	assert.Equal(t, MinSpan, r.LatSpan)
	assert.InDelta(t, 2, r.LonSpan, 1e-9)
}

func TestCentroid(t *testing.T) {
	assert.Equal(t, domain.GeoPoint{}, Centroid(nil))
	assert.Equal(t, chennai, Centroid([]domain.GeoPoint{chennai}))

	c := Centroid([]domain.GeoPoint{{Lat: 10, Lon: 20}, {Lat: 20, Lon: 40}})
	assert.InDelta(t, 15, c.Lat, 1e-12)
	assert.InDelta(t, 30, c.Lon, 1e-12)
}
