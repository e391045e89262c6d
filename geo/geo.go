// Package geo implements the pure geospatial core of the listing discovery
// subsystem: great-circle distances, radius and bounding-box filtering,
// local-first feed blending and display-time coordinate obfuscation.
// All functions operate on plain data and perform no I/O.
package geo

import (
	"fmt"
	"strconv"
	"strings"
)

// Coordinate is a latitude/longitude pair in degrees.
// A pair with any zero component is treated as absent by the distance
// functions, never as an error.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Valid reports whether both components are within range.
func (c Coordinate) Valid() bool {
	return ValidCoordinates(c.Latitude, c.Longitude)
}

// ValidCoordinates reports whether lat and lng form a well-formed
// coordinate pair.
func ValidCoordinates(lat, lng float64) bool {
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

// Locatable is any entity that may carry a coordinate. Entities without
// one are silently excluded from distance-based filtering.
type Locatable interface {
	Coord() (Coordinate, bool)
}

// BoundingBox is an axis-aligned lat/lng rectangle, as used by map
// viewport queries.
type BoundingBox struct {
	SwLat float64
	SwLng float64
	NeLat float64
	NeLng float64
}

// Contains reports whether c lies within the box, all edges inclusive.
func (b BoundingBox) Contains(c Coordinate) bool {
	return c.Latitude >= b.SwLat && c.Latitude <= b.NeLat &&
		c.Longitude >= b.SwLng && c.Longitude <= b.NeLng
}

// ParseBoundingBox parses the "swLat,swLng,neLat,neLng" wire format.
// Malformed input is a caller error, not a crash.
func ParseBoundingBox(s string) (BoundingBox, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return BoundingBox{}, fmt.Errorf("bounds must have 4 comma-separated values, got %d", len(parts))
	}
	vals := make([]float64, 4)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return BoundingBox{}, fmt.Errorf("invalid bounds value %q: %w", p, err)
		}
		vals[i] = v
	}
	return BoundingBox{SwLat: vals[0], SwLng: vals[1], NeLat: vals[2], NeLng: vals[3]}, nil
}
