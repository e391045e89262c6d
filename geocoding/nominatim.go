package geocoding

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/freshtrade/freshtrade-app-backend/geo"
)

const (
	// DefaultNominatimURL is the public OpenStreetMap Nominatim endpoint.
	DefaultNominatimURL = "https://nominatim.openstreetmap.org/search"

	// resolveTimeout bounds full-address resolution calls.
	resolveTimeout = 10 * time.Second
	// suggestTimeout is shorter: autocomplete is interactive typing
	// feedback and a slow provider must not stall the keystroke loop.
	suggestTimeout = 5 * time.Second
)

// Nominatim implements Geocoder against the OpenStreetMap Nominatim API.
type Nominatim struct {
	baseURL   string
	userAgent string
	client    *http.Client
}

// NewNominatim creates a Nominatim geocoder. The userAgent string is
// mandatory: the provider usage policy requires a distinguishing client
// identifier on every call.
func NewNominatim(baseURL, userAgent string) *Nominatim {
	if baseURL == "" {
		baseURL = DefaultNominatimURL
	}
	return &Nominatim{
		baseURL:   baseURL,
		userAgent: userAgent,
		client:    &http.Client{},
	}
}

// nominatimResult is the subset of the provider response we consume.
// Nominatim encodes lat/lon as strings.
type nominatimResult struct {
	Lat         string           `json:"lat"`
	Lon         string           `json:"lon"`
	DisplayName string           `json:"display_name"`
	Type        string           `json:"type"`
	Address     nominatimAddress `json:"address"`
}

type nominatimAddress struct {
	City          string `json:"city"`
	Town          string `json:"town"`
	Village       string `json:"village"`
	Municipality  string `json:"municipality"`
	State         string `json:"state"`
	Province      string `json:"province"`
	Region        string `json:"region"`
	Country       string `json:"country"`
	Postcode      string `json:"postcode"`
	Suburb        string `json:"suburb"`
	Neighbourhood string `json:"neighbourhood"`
}

// city applies the provider fallback chain for the city component.
func (a nominatimAddress) city() string {
	for _, v := range []string{a.City, a.Town, a.Village, a.Municipality} {
		if v != "" {
			return v
		}
	}
	return ""
}

func (a nominatimAddress) state() string {
	for _, v := range []string{a.State, a.Province, a.Region} {
		if v != "" {
			return v
		}
	}
	return ""
}

func (a nominatimAddress) area() string {
	if a.Suburb != "" {
		return a.Suburb
	}
	return a.Neighbourhood
}

// Resolve issues a single lookup limited to the best match. Any
// transport error, non-success status or empty result set resolves to
// ErrNotFound; the provider never raises a transport error to callers.
func (n *Nominatim) Resolve(ctx context.Context, address string) (*Place, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, ErrNotFound
	}

	results, err := n.lookup(ctx, address, 1, resolveTimeout)
	if err != nil || len(results) == 0 {
		log.Debug().Err(err).Str("address", address).Msg("address resolution failed")
		return nil, ErrNotFound
	}

	r := results[0]
	coord, err := r.coordinate()
	if err != nil {
		log.Debug().Err(err).Str("address", address).Msg("provider returned malformed coordinates")
		return nil, ErrNotFound
	}

	return &Place{
		Coordinate:       coord,
		FormattedAddress: r.DisplayName,
		City:             r.Address.city(),
		State:            r.Address.state(),
		Country:          r.Address.Country,
		Postcode:         r.Address.Postcode,
		Area:             r.Address.area(),
	}, nil
}

// Suggest returns up to limit autocomplete suggestions. Queries shorter
// than 2 characters short-circuit to an empty list without a network
// call, and lookup failures degrade to an empty list. Suggestions
// lacking either city or country are discarded.
func (n *Nominatim) Suggest(ctx context.Context, query string, limit int) ([]Suggestion, error) {
	if len(strings.TrimSpace(query)) < 2 {
		return []Suggestion{}, nil
	}

	results, err := n.lookup(ctx, query, limit, suggestTimeout)
	if err != nil {
		log.Debug().Err(err).Str("query", query).Msg("suggestion lookup failed")
		return []Suggestion{}, nil
	}

	suggestions := make([]Suggestion, 0, len(results))
	for _, r := range results {
		city := r.Address.city()
		if city == "" || r.Address.Country == "" {
			continue
		}
		coord, err := r.coordinate()
		if err != nil {
			continue
		}
		sType := r.Type
		if sType == "" {
			sType = "unknown"
		}
		suggestions = append(suggestions, Suggestion{
			DisplayName: r.DisplayName,
			City:        city,
			State:       r.Address.state(),
			Country:     r.Address.Country,
			Coordinate:  coord,
			Type:        sType,
		})
	}
	return suggestions, nil
}

func (r nominatimResult) coordinate() (geo.Coordinate, error) {
	lat, err := strconv.ParseFloat(r.Lat, 64)
	if err != nil {
		return geo.Coordinate{}, err
	}
	lon, err := strconv.ParseFloat(r.Lon, 64)
	if err != nil {
		return geo.Coordinate{}, err
	}
	return geo.Coordinate{Latitude: lat, Longitude: lon}, nil
}

// lookup performs the outbound provider call with the given timeout.
func (n *Nominatim) lookup(ctx context.Context, query string, limit int, timeout time.Duration) ([]nominatimResult, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("limit", strconv.Itoa(limit))
	params.Set("addressdetails", "1")
	params.Set("accept-language", "en")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", n.userAgent)

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close provider response body")
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("provider returned status %d", resp.StatusCode)
	}

	var results []nominatimResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, err
	}
	return results, nil
}
