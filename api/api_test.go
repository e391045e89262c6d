package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/go-chi/jwtauth/v5"

	"github.com/freshtrade/freshtrade-app-backend/db"
	"github.com/freshtrade/freshtrade-app-backend/geo"
	"github.com/freshtrade/freshtrade-app-backend/geocoding"
)

// fakeGeocoder is a deterministic Geocoder for handler tests.
type fakeGeocoder struct {
	places      map[string]*geocoding.Place
	suggestions []geocoding.Suggestion
}

func (f *fakeGeocoder) Resolve(_ context.Context, address string) (*geocoding.Place, error) {
	if p, ok := f.places[address]; ok {
		return p, nil
	}
	return nil, geocoding.ErrNotFound
}

func (f *fakeGeocoder) Suggest(_ context.Context, query string, limit int) ([]geocoding.Suggestion, error) {
	if len(query) < 2 {
		return nil, nil
	}
	if limit < len(f.suggestions) {
		return f.suggestions[:limit], nil
	}
	return f.suggestions, nil
}

func testAPI(geocoder geocoding.Geocoder) *API {
	return &API{
		auth:     jwtauth.New("HS256", []byte("secret"), nil),
		geocoder: geocoder,
	}
}

func testRequest(method, target string, body string) *Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	return &Request{
		Data:    []byte(body),
		Context: &HTTPContext{Request: req, Writer: httptest.NewRecorder()},
		UserID:  "5f8d0d55b54764421b7156c1",
	}
}

func TestLocationSuggestHandler(t *testing.T) {
	a := testAPI(&fakeGeocoder{
		suggestions: []geocoding.Suggestion{
			{
				DisplayName: "Barcelona, Catalonia, Spain",
				City:        "Barcelona",
				State:       "Catalonia",
				Country:     "Spain",
				Coordinate:  geo.Coordinate{Latitude: 41.3851, Longitude: 2.1734},
				Type:        "city",
			},
			{
				DisplayName: "Barceloneta, Barcelona, Spain",
				City:        "Barcelona",
				Country:     "Spain",
				Coordinate:  geo.Coordinate{Latitude: 41.3809, Longitude: 2.1896},
				Type:        "suburb",
			},
		},
	})

	resp, err := a.locationSuggestHandler(testRequest(http.MethodGet, "/location/suggest?q=barc", ""))
	qt.Assert(t, err, qt.IsNil)
	wrapper := resp.(*SuggestionsWrapper)
	qt.Assert(t, wrapper.Suggestions, qt.HasLen, 2)
	qt.Assert(t, wrapper.Suggestions[0].City, qt.Equals, "Barcelona")
	qt.Assert(t, wrapper.Suggestions[0].Latitude, qt.Equals, 41.3851)

	// Limit is honored.
	resp, err = a.locationSuggestHandler(testRequest(http.MethodGet, "/location/suggest?q=barc&limit=1", ""))
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, resp.(*SuggestionsWrapper).Suggestions, qt.HasLen, 1)

	// Short queries return an empty list without touching the resolver.
	resp, err = a.locationSuggestHandler(testRequest(http.MethodGet, "/location/suggest?q=b", ""))
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, resp.(*SuggestionsWrapper).Suggestions, qt.HasLen, 0)
}

func TestSearchListingsRejectsInvalidCoordinates(t *testing.T) {
	a := testAPI(&fakeGeocoder{})

	cases := []string{
		"/listings/search?lat=91&lng=0",
		"/listings/search?lat=40.7&lng=181",
		"/listings/search?lat=40.7",
		"/listings/search?lat=abc&lng=2.1",
		"/listings/search?sort=distance",
	}
	for _, target := range cases {
		_, err := a.searchListingsHandler(testRequest(http.MethodGet, target, ""))
		qt.Assert(t, err, qt.IsNotNil, qt.Commentf("%s", target))
		httpErr, ok := err.(*HTTPError)
		qt.Assert(t, ok, qt.IsTrue)
		qt.Assert(t, httpErr.Code, qt.Equals, http.StatusBadRequest, qt.Commentf("%s", target))
	}
}

func TestSearchListingsRejectsUnknownSortKey(t *testing.T) {
	a := testAPI(&fakeGeocoder{})

	_, err := a.searchListingsHandler(testRequest(http.MethodGet, "/listings/search?sort=rating", ""))
	qt.Assert(t, err, qt.IsNotNil)
	httpErr, ok := err.(*HTTPError)
	qt.Assert(t, ok, qt.IsTrue)
	qt.Assert(t, httpErr.Code, qt.Equals, http.StatusBadRequest)
}

func TestUpdateListingFailsClosedOnUnresolvableAddress(t *testing.T) {
	a := testAPI(&fakeGeocoder{})

	// A place edit without coordinates re-resolves the address text; when
	// resolution fails, the edit is rejected before the listing is
	// touched.
	body := `{"location": {"city": "Atlantis", "country": "Nowhere"}}`
	_, err := a.updateListingHandler(testRequest(
		http.MethodPut, "/listings/update?id=5f8d0d55b54764421b7156c2", body,
	))
	qt.Assert(t, err, qt.IsNotNil)
	httpErr, ok := err.(*HTTPError)
	qt.Assert(t, ok, qt.IsTrue)
	qt.Assert(t, httpErr.Code, qt.Equals, http.StatusNotFound)
	qt.Assert(t, httpErr.Message, qt.Equals, ErrLocationNotFound.Message)
}

func TestUpdateListingRejectsInvalidEdits(t *testing.T) {
	a := testAPI(&fakeGeocoder{})

	cases := []string{
		`{"latitude": 95.0, "longitude": 2.1}`,
		`{"listingType": "bartering"}`,
		`{"location": {"city": "", "country": "Spain"}}`,
	}
	for _, body := range cases {
		_, err := a.updateListingHandler(testRequest(
			http.MethodPut, "/listings/update?id=5f8d0d55b54764421b7156c2", body,
		))
		qt.Assert(t, err, qt.IsNotNil, qt.Commentf("%s", body))
		httpErr, ok := err.(*HTTPError)
		qt.Assert(t, ok, qt.IsTrue)
		qt.Assert(t, httpErr.Code, qt.Equals, http.StatusBadRequest, qt.Commentf("%s", body))
	}
}

func TestCoercePrice(t *testing.T) {
	price := 12.5
	qt.Assert(t, coercePrice(db.ListingGiveAway, &price), qt.IsNil)
	qt.Assert(t, coercePrice(db.ListingForSale, &price), qt.Equals, &price)
	qt.Assert(t, coercePrice(db.ListingLookingFor, nil), qt.IsNil)
}

func TestMapListingsRejectsMalformedBounds(t *testing.T) {
	a := testAPI(&fakeGeocoder{})

	for _, target := range []string{
		"/listings/map",
		"/listings/map?bounds=41.3,2.1,41.5",
		"/listings/map?bounds=a,b,c,d",
	} {
		_, err := a.mapListingsHandler(testRequest(http.MethodGet, target, ""))
		qt.Assert(t, err, qt.IsNotNil, qt.Commentf("%s", target))
		httpErr, ok := err.(*HTTPError)
		qt.Assert(t, ok, qt.IsTrue)
		qt.Assert(t, httpErr.Code, qt.Equals, http.StatusBadRequest)
	}
}

func TestRegisterFailsClosedOnUnresolvableAddress(t *testing.T) {
	a := testAPI(&fakeGeocoder{})

	body := `{
		"email": "ana@freshtrade.app",
		"password": "secret",
		"name": "ana",
		"location": {"city": "Atlantis", "country": "Nowhere"}
	}`
	_, err := a.registerHandler(testRequest(http.MethodPost, "/register", body))
	qt.Assert(t, err, qt.IsNotNil)
	httpErr, ok := err.(*HTTPError)
	qt.Assert(t, ok, qt.IsTrue)
	qt.Assert(t, httpErr.Code, qt.Equals, http.StatusNotFound)
	qt.Assert(t, httpErr.Message, qt.Equals, ErrLocationNotFound.Message)
}

func TestRegisterRejectsInvalidClientCoordinates(t *testing.T) {
	a := testAPI(&fakeGeocoder{})

	// Client-supplied coordinates bypass the resolver but not validation.
	body := `{
		"email": "ana@freshtrade.app",
		"password": "secret",
		"name": "ana",
		"latitude": 95.0,
		"longitude": 2.1,
		"location": {"city": "Barcelona", "country": "Spain"}
	}`
	_, err := a.registerHandler(testRequest(http.MethodPost, "/register", body))
	qt.Assert(t, err, qt.IsNotNil)
	httpErr, ok := err.(*HTTPError)
	qt.Assert(t, ok, qt.IsTrue)
	qt.Assert(t, httpErr.Code, qt.Equals, http.StatusBadRequest)
}

func TestRouterHandlerEnvelope(t *testing.T) {
	a := testAPI(&fakeGeocoder{})

	// Successful handlers are wrapped in the standard envelope.
	handler := a.routerHandler(func(r *Request) (interface{}, error) {
		return map[string]string{"hello": "world"}, nil
	})
	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/test", nil))
	qt.Assert(t, rec.Code, qt.Equals, http.StatusOK)

	var resp Response
	qt.Assert(t, json.Unmarshal(rec.Body.Bytes(), &resp), qt.IsNil)
	qt.Assert(t, resp.Header.Success, qt.IsTrue)

	// HTTPError codes propagate to the status line; other errors map to 500.
	handler = a.routerHandler(func(r *Request) (interface{}, error) {
		return nil, ErrInvalidBounds
	})
	rec = httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/test", nil))
	qt.Assert(t, rec.Code, qt.Equals, http.StatusBadRequest)
	qt.Assert(t, json.Unmarshal(rec.Body.Bytes(), &resp), qt.IsNil)
	qt.Assert(t, resp.Header.Success, qt.IsFalse)
	qt.Assert(t, resp.Header.Message, qt.Equals, ErrInvalidBounds.Message)

	handler = a.routerHandler(func(r *Request) (interface{}, error) {
		return nil, fmt.Errorf("plain failure")
	})
	rec = httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/test", nil))
	qt.Assert(t, rec.Code, qt.Equals, http.StatusInternalServerError)
}

func TestMakeToken(t *testing.T) {
	a := testAPI(&fakeGeocoder{})

	lr, err := a.makeToken("5f8d0d55b54764421b7156c1")
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, lr.Token, qt.Not(qt.Equals), "")

	token, err := a.auth.Decode(lr.Token)
	qt.Assert(t, err, qt.IsNil)
	claims, err := token.AsMap(context.Background())
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, claims["userId"], qt.Equals, "5f8d0d55b54764421b7156c1")
}
