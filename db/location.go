package db

import (
	"fmt"
	"strings"

	"github.com/freshtrade/freshtrade-app-backend/geo"
)

// Location precision levels, the granularity at which a location is
// intentionally disclosed.
const (
	PrecisionCity         = "city"
	PrecisionNeighborhood = "neighborhood"
)

// DefaultSearchRadiusMiles is used when an actor has not configured a
// radius explicitly.
const DefaultSearchRadiusMiles = 25

// DBLocation represents a GeoJSON Point. Coordinates are stored in
// [longitude, latitude] order per the GeoJSON convention.
type DBLocation struct {
	Type        string    `bson:"type" json:"type"`
	Coordinates []float64 `bson:"coordinates" json:"coordinates"`
}

// NewDBLocation builds a GeoJSON Point from a coordinate pair.
func NewDBLocation(c geo.Coordinate) DBLocation {
	return DBLocation{
		Type:        "Point",
		Coordinates: []float64{c.Longitude, c.Latitude},
	}
}

// Coord returns the coordinate pair, or false when the location is
// absent or partial. There are no partial coordinates: anything short of
// two in-range scalars counts as no location at all.
func (l DBLocation) Coord() (geo.Coordinate, bool) {
	if l.Type != "Point" || len(l.Coordinates) != 2 {
		return geo.Coordinate{}, false
	}
	c := geo.Coordinate{Longitude: l.Coordinates[0], Latitude: l.Coordinates[1]}
	if c.Latitude == 0 || c.Longitude == 0 || !c.Valid() {
		return geo.Coordinate{}, false
	}
	return c, true
}

// Place is the descriptor of a resolved or user-supplied location,
// persisted verbatim on the owning entity.
type Place struct {
	Country          string `bson:"country" json:"country"`
	City             string `bson:"city" json:"city"`
	State            string `bson:"state,omitempty" json:"state,omitempty"`
	Area             string `bson:"area,omitempty" json:"area,omitempty"`
	Postcode         string `bson:"postcode,omitempty" json:"postcode,omitempty"`
	FormattedAddress string `bson:"formattedAddress,omitempty" json:"formattedAddress,omitempty"`
	Precision        string `bson:"precision,omitempty" json:"precision,omitempty"`
}

// Validate checks the mandatory descriptor fields for location-bearing
// entities.
func (p *Place) Validate() error {
	if strings.TrimSpace(p.Country) == "" || strings.TrimSpace(p.City) == "" {
		return fmt.Errorf("place requires both country and city")
	}
	if p.Precision != "" && p.Precision != PrecisionCity && p.Precision != PrecisionNeighborhood {
		return fmt.Errorf("invalid precision %q", p.Precision)
	}
	return nil
}

// DisplayName formats the place for UI display as "City, State, Country",
// omitting absent components.
func (p *Place) DisplayName() string {
	parts := make([]string, 0, 3)
	for _, s := range []string{p.City, p.State, p.Country} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 {
		return "Location not specified"
	}
	return strings.Join(parts, ", ")
}
