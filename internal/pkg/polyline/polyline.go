// Package polyline implements the encoded polyline format used by mapping APIs:
// signed coordinate deltas at 1e-5 degree precision, packed into printable ASCII.
package polyline

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/samirrijal/fieldroute/internal/core/domain"
)

const precision = 1e5

// ErrMalformed is returned by DecodeStrict for input that is not a well-formed polyline.
var ErrMalformed = errors.New("malformed polyline")

// Encode packs points into a polyline string. Latitude is written before longitude.
func Encode(points []domain.GeoPoint) string {
	if len(points) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.Grow(len(points) * 8)

	prevLat, prevLon := 0, 0
	for _, p := range points {
		lat := int(math.Round(p.Lat * precision))
		lon := int(math.Round(p.Lon * precision))

		encodeValue(&sb, lat-prevLat)
		encodeValue(&sb, lon-prevLon)

		prevLat, prevLon = lat, lon
	}
	return sb.String()
}

func encodeValue(sb *strings.Builder, value int) {
	v := value << 1
	if value < 0 {
		v = ^v
	}
	for v >= 0x20 {
		sb.WriteByte(byte((0x20 | (v & 0x1f)) + 63))
		v >>= 5
	}
	sb.WriteByte(byte(v + 63))
}

// Decode unpacks a polyline string. Empty input yields an empty slice. Decoding
// stops at the last complete point if the input is truncated.
func Decode(encoded string) []domain.GeoPoint {
	points, _ := decode(encoded)
	return points
}

// DecodeStrict is Decode but reports malformed input instead of truncating.
func DecodeStrict(encoded string) ([]domain.GeoPoint, error) {
	return decode(encoded)
}

func decode(encoded string) ([]domain.GeoPoint, error) {
	points := make([]domain.GeoPoint, 0, len(encoded)/4)
	index, lat, lon := 0, 0, 0

	for index < len(encoded) {
		dLat, next, err := decodeValue(encoded, index)
		if err != nil {
			return points, err
		}
		if next >= len(encoded) {
			return points, fmt.Errorf("%w: missing longitude at offset %d", ErrMalformed, next)
		}
		dLon, next, err := decodeValue(encoded, next)
		if err != nil {
			return points, err
		}
		index = next

		lat += dLat
		lon += dLon
		points = append(points, domain.GeoPoint{
			Lat: float64(lat) / precision,
			Lon: float64(lon) / precision,
		})
	}
	return points, nil
}

// decodeValue reads one zigzag-folded value starting at index and returns it with
// the offset of the next unread byte.
func decodeValue(encoded string, index int) (int, int, error) {
	result, shift := 0, 0
	for {
		if index >= len(encoded) {
			return 0, index, fmt.Errorf("%w: unterminated value at offset %d", ErrMalformed, index)
		}
		c := encoded[index]
		if c < 63 || c > 126 {
			return 0, index, fmt.Errorf("%w: invalid character %q at offset %d", ErrMalformed, c, index)
		}
		b := int(c) - 63
		index++
		result |= (b & 0x1f) << shift
		shift += 5
		if b < 0x20 {
			break
		}
		if shift > 60 {
			return 0, index, fmt.Errorf("%w: value overflow at offset %d", ErrMalformed, index)
		}
	}

	if result&1 != 0 {
		return ^(result >> 1), index, nil
	}
	return result >> 1, index, nil
}
