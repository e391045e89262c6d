// Package geocoding resolves free-text addresses into coordinates via an
// external provider. It is the only outbound I/O boundary of the
// geospatial core, so the provider sits behind the Geocoder interface and
// tests substitute a deterministic fake.
package geocoding

import (
	"context"
	"fmt"
	"strings"

	"github.com/freshtrade/freshtrade-app-backend/geo"
)

// ErrNotFound is returned by Resolve for every failure class: provider
// unreachable, timed out, non-success status or an empty result set.
// Callers decide whether it is fatal (registration fails closed) or
// ignorable (suggestions degrade to an empty list).
var ErrNotFound = fmt.Errorf("location not found")

// Place is the canonical result of resolving an address.
type Place struct {
	Coordinate       geo.Coordinate `json:"coordinate"`
	FormattedAddress string         `json:"formattedAddress"`
	City             string         `json:"city"`
	State            string         `json:"state,omitempty"`
	Country          string         `json:"country"`
	Postcode         string         `json:"postcode,omitempty"`
	Area             string         `json:"area,omitempty"`
}

// Suggestion is a lightweight autocomplete result.
type Suggestion struct {
	DisplayName string         `json:"displayName"`
	City        string         `json:"city"`
	State       string         `json:"state,omitempty"`
	Country     string         `json:"country"`
	Coordinate  geo.Coordinate `json:"coordinate"`
	Type        string         `json:"type"`
}

// Geocoder converts address text into coordinates and place descriptors.
type Geocoder interface {
	// Resolve returns the single best match for the address, or
	// ErrNotFound.
	Resolve(ctx context.Context, address string) (*Place, error)
	// Suggest returns up to limit autocomplete suggestions. Lookup
	// failures degrade to an empty list, never an error; queries
	// shorter than 2 characters short-circuit without a network call.
	Suggest(ctx context.Context, query string, limit int) ([]Suggestion, error)
}

// BuildAddressQuery concatenates the present components in area, city,
// state, country order, joined by ", ", to form the resolver input.
func BuildAddressQuery(area, city, state, country string) string {
	parts := make([]string, 0, 4)
	for _, p := range []string{area, city, state, country} {
		if strings.TrimSpace(p) != "" {
			parts = append(parts, strings.TrimSpace(p))
		}
	}
	return strings.Join(parts, ", ")
}
