package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/go-chi/chi/v5"
	"github.com/mmcloughlin/geohash"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/freshtrade/freshtrade-app-backend/contact"
	"github.com/freshtrade/freshtrade-app-backend/db"
	"github.com/freshtrade/freshtrade-app-backend/geo"
)

const (
	defaultSearchLimit = 50
	defaultFeedLimit   = 20
	defaultMapLimit    = 200

	// feedOversample widens the recency window fetched for the blended
	// feed, so local-first reordering still fills the page.
	feedOversample = 4

	// geohashClusterPrecision yields cells of roughly neighborhood size,
	// which is what map clients group pins by.
	geohashClusterPrecision = 6
)

// RegisterListingRoutes registers the authenticated listing routes.
func (a *API) RegisterListingRoutes(r chi.Router) {
	log.Info().Msg("register route POST /listings")
	r.Post("/listings", a.routerHandler(a.addListingHandler))
	log.Info().Msg("register route GET /listings")
	r.Get("/listings", a.routerHandler(a.ownListingsHandler))
	log.Info().Msg("register route GET /listings/nearby")
	r.Get("/listings/nearby", a.routerHandler(a.nearbyListingsHandler))
	log.Info().Msg("register route GET /listings/map")
	r.Get("/listings/map", a.routerHandler(a.mapListingsHandler))
	log.Info().Msg("register route GET /listings/search")
	r.Get("/listings/search", a.routerHandler(a.searchListingsHandler))
	log.Info().Msg("register route GET /listings/{id}")
	r.Get("/listings/{id}", a.routerHandler(a.listingHandler))
	log.Info().Msg("register route PUT /listings/{id}")
	r.Put("/listings/{id}", a.routerHandler(a.updateListingHandler))
	log.Info().Msg("register route DELETE /listings/{id}")
	r.Delete("/listings/{id}", a.routerHandler(a.deleteListingHandler))
	log.Info().Msg("register route GET /listings/{id}/contact")
	r.Get("/listings/{id}/contact", a.routerHandler(a.listingContactHandler))
	log.Info().Msg("register route GET /feed")
	r.Get("/feed", a.routerHandler(a.feedHandler))
}

// listing fetches a listing by its hex identifier.
func (a *API) listing(id string) (*db.Listing, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrListingNotFound.WithErr(fmt.Errorf("invalid listing id %q: %w", id, err))
	}
	listing, err := a.database.ListingService.GetListingByID(context.Background(), objID)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrListingNotFound.WithErr(fmt.Errorf("listing %s not found", id))
	}
	if err != nil {
		return nil, ErrInternalServerError.WithErr(err)
	}
	return listing, nil
}

// round1 rounds a distance annotation to a tenth of a unit, which is all
// the precision obfuscated coordinates deserve.
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// listingResult prepares a listing for display. Coordinates are passed
// through geo.Obfuscate unless the viewer owns the listing; the stored
// coordinate is never exposed to anyone else.
func listingResult(l *db.Listing, viewerID string, miles *float64) *ListingResult {
	out := &ListingResult{
		ID:          l.ID.Hex(),
		Title:       l.Title,
		Description: l.Description,
		Category:    l.Category,
		ListingType: l.ListingType,
		Price:       l.Price,
		Organic:     l.Organic,
		Place:       l.Place,
		DisplayName: l.Place.DisplayName(),
		Views:       l.Views,
		CreatedAt:   l.CreatedAt,
	}
	if coord, ok := l.Coord(); ok {
		if l.UserID.Hex() == viewerID {
			out.Coordinate = &coord
		} else {
			fuzzed := geo.Obfuscate(coord, geo.DefaultObfuscationMiles)
			out.Coordinate = &fuzzed
		}
	}
	if miles != nil {
		m := round1(*miles)
		km := round1(*miles * geo.MilesToKm)
		out.DistanceMiles = &m
		out.DistanceKm = &km
	}
	return out
}

// coercePrice drops the price on give-away listings, so they always
// display and sort as price zero.
func coercePrice(listingType string, price *float64) *float64 {
	if listingType == db.ListingGiveAway {
		return nil
	}
	return price
}

// listingFiltersFromQuery reads the shared category/type/organic query
// parameters.
func listingFiltersFromQuery(r *Request) db.ListingFilters {
	filters := db.ListingFilters{}
	if cat := r.Context.URLParam("category"); cat != nil {
		filters.Category = cat[0]
	}
	if lt := r.Context.URLParam("type"); lt != nil {
		filters.ListingType = lt[0]
	}
	if org := r.Context.URLParam("organic"); org != nil && org[0] == "true" {
		filters.OrganicOnly = true
	}
	return filters
}

// POST /listings creates a listing. The place descriptor is mandatory;
// when the client supplies no coordinates, the place text is geocoded
// synchronously and creation fails closed on resolution failure.
func (a *API) addListingHandler(r *Request) (interface{}, error) {
	if r.UserID == "" {
		return nil, ErrUnauthorized.WithErr(fmt.Errorf("user not authenticated"))
	}
	user, err := a.getUserByID(r.UserID)
	if err != nil {
		return nil, err
	}

	req := CreateListing{}
	if err := json.Unmarshal(r.Data, &req); err != nil {
		return nil, ErrInvalidRequestBodyData.WithErr(err)
	}
	if req.Location == nil {
		return nil, ErrInvalidListingData.WithErr(fmt.Errorf("location is required"))
	}
	if err := validateLocationUpdate(req.Location); err != nil {
		return nil, err
	}

	listing := db.Listing{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		ListingType: req.ListingType,
		Price:       coercePrice(req.ListingType, req.Price),
		Organic:     req.Organic,
		UserID:      user.ID,
		Active:      true,
	}

	if req.Latitude != nil && req.Longitude != nil {
		if !geo.ValidCoordinates(*req.Latitude, *req.Longitude) {
			return nil, ErrInvalidCoordinates
		}
		listing.Place = *placeFromUpdate(req.Location)
		listing.Location = db.NewDBLocation(geo.Coordinate{
			Latitude:  *req.Latitude,
			Longitude: *req.Longitude,
		})
	} else {
		place, coord, err := a.resolvePlace(r, req.Location)
		if err != nil {
			return nil, err
		}
		listing.Place = *place
		listing.Location = db.NewDBLocation(coord)
	}

	if err := listing.Validate(); err != nil {
		return nil, ErrInvalidListingData.WithErr(err)
	}
	log.Info().Str("title", listing.Title).Str("user", r.UserID).Msg("adding listing")
	res, err := a.database.ListingService.InsertListing(context.Background(), &listing)
	if err != nil {
		return nil, ErrCouldNotInsertToDatabase.WithErr(err)
	}
	id, _ := res.InsertedID.(primitive.ObjectID)
	return &ListingID{ID: id.Hex()}, nil
}

// GET /listings returns the listings owned by the user, with their
// authoritative coordinates.
func (a *API) ownListingsHandler(r *Request) (interface{}, error) {
	user, err := a.getUserByID(r.UserID)
	if err != nil {
		return nil, err
	}
	listings, err := a.database.ListingService.GetListingsByUserID(context.Background(), user.ID)
	if err != nil {
		return nil, ErrInternalServerError.WithErr(err)
	}
	out := make([]*ListingResult, len(listings))
	for i, l := range listings {
		out[i] = listingResult(l, r.UserID, nil)
	}
	return &ListingsWrapper{Listings: out}, nil
}

// GET /listings/{id} returns a listing and bumps its view counter when
// the viewer is not the owner.
func (a *API) listingHandler(r *Request) (interface{}, error) {
	idParam := r.Context.URLParam("id")
	if idParam == nil {
		return nil, ErrInvalidRequestBodyData.WithErr(fmt.Errorf("missing listing id"))
	}
	listing, err := a.listing(idParam[0])
	if err != nil {
		return nil, err
	}
	if listing.UserID.Hex() != r.UserID {
		if err := a.database.ListingService.IncrementViews(context.Background(), listing.ID); err != nil {
			log.Warn().Err(err).Str("listing", listing.ID.Hex()).Msg("failed to increment views")
		} else {
			listing.Views++
		}
	}
	return listingResult(listing, r.UserID, nil), nil
}

// DELETE /listings/{id} removes a listing owned by the user.
func (a *API) deleteListingHandler(r *Request) (interface{}, error) {
	idParam := r.Context.URLParam("id")
	if idParam == nil {
		return nil, ErrInvalidRequestBodyData.WithErr(fmt.Errorf("missing listing id"))
	}
	listing, err := a.listing(idParam[0])
	if err != nil {
		return nil, err
	}
	if listing.UserID.Hex() != r.UserID {
		return nil, ErrUnauthorized.WithErr(fmt.Errorf("listing %s is not owned by user %s", idParam[0], r.UserID))
	}
	if _, err := a.database.ListingService.DeleteListing(context.Background(), listing.ID); err != nil {
		return nil, ErrInternalServerError.WithErr(err)
	}
	return nil, nil
}

// PUT /listings/{id} edits a listing owned by the user. Editing the
// place text without coordinates re-resolves it synchronously, and the
// edit fails closed on resolution failure, like a user location edit.
func (a *API) updateListingHandler(r *Request) (interface{}, error) {
	idParam := r.Context.URLParam("id")
	if idParam == nil {
		return nil, ErrInvalidRequestBodyData.WithErr(fmt.Errorf("missing listing id"))
	}
	req := UpdateListing{}
	if err := json.Unmarshal(r.Data, &req); err != nil {
		return nil, ErrInvalidRequestBodyData.WithErr(err)
	}
	if req.ListingType != "" {
		switch req.ListingType {
		case db.ListingForSale, db.ListingGiveAway, db.ListingLookingFor:
		default:
			return nil, ErrInvalidListingData.WithErr(fmt.Errorf("invalid listing type %q", req.ListingType))
		}
	}

	// Resolve any place edit before touching the database, so a failed
	// resolution leaves the listing untouched.
	var newPlace *db.Place
	var newLocation *db.DBLocation
	if req.Latitude != nil && req.Longitude != nil {
		if !geo.ValidCoordinates(*req.Latitude, *req.Longitude) {
			return nil, ErrInvalidCoordinates
		}
		loc := db.NewDBLocation(geo.Coordinate{Latitude: *req.Latitude, Longitude: *req.Longitude})
		newLocation = &loc
		if req.Location != nil {
			if err := validateLocationUpdate(req.Location); err != nil {
				return nil, err
			}
			newPlace = placeFromUpdate(req.Location)
		}
	} else if req.Location != nil {
		if err := validateLocationUpdate(req.Location); err != nil {
			return nil, err
		}
		place, coord, err := a.resolvePlace(r, req.Location)
		if err != nil {
			return nil, err
		}
		loc := db.NewDBLocation(coord)
		newPlace = place
		newLocation = &loc
	}

	listing, err := a.listing(idParam[0])
	if err != nil {
		return nil, err
	}
	if listing.UserID.Hex() != r.UserID {
		return nil, ErrUnauthorized.WithErr(fmt.Errorf("listing %s is not owned by user %s", idParam[0], r.UserID))
	}

	update := bson.M{}
	if req.Title != "" {
		update["title"] = req.Title
	}
	if req.Description != nil {
		update["description"] = *req.Description
	}
	if req.Category != "" {
		update["category"] = req.Category
	}
	listingType := listing.ListingType
	if req.ListingType != "" {
		listingType = req.ListingType
		update["listingType"] = req.ListingType
	}
	price := listing.Price
	if req.Price != nil {
		price = req.Price
	}
	if req.Price != nil || listingType != listing.ListingType {
		update["price"] = coercePrice(listingType, price)
	}
	if req.Organic != nil {
		update["organic"] = *req.Organic
	}
	if req.Active != nil {
		update["active"] = *req.Active
	}
	if newPlace != nil {
		update["place"] = newPlace
	}
	if newLocation != nil {
		update["location"] = newLocation
	}
	if len(update) == 0 {
		return nil, ErrInvalidRequestBodyData.WithErr(fmt.Errorf("nothing to update"))
	}
	log.Info().Str("listing", listing.ID.Hex()).Str("user", r.UserID).Msg("updating listing")
	if err := a.database.ListingService.UpdateListingFields(context.Background(), listing.ID, update); err != nil {
		return nil, ErrInternalServerError.WithErr(err)
	}
	return &ListingID{ID: listing.ID.Hex()}, nil
}

// GET /listings/nearby returns active listings within the radius of the
// user's configured location, nearest first.
func (a *API) nearbyListingsHandler(r *Request) (interface{}, error) {
	user, err := a.getUserByID(r.UserID)
	if err != nil {
		return nil, err
	}
	radius, err := r.Context.IntParam("radius", user.Radius())
	if err != nil {
		return nil, ErrInvalidRequestBodyData.WithErr(err)
	}
	limit, err := r.Context.IntParam("limit", defaultSearchLimit)
	if err != nil {
		return nil, ErrInvalidRequestBodyData.WithErr(err)
	}

	origin, ok := user.Coord()
	if !ok {
		// A user without a location has no neighborhood to search.
		return &ListingsWrapper{Listings: []*ListingResult{}}, nil
	}

	listings, err := a.database.ListingService.GetActiveListings(
		context.Background(), listingFiltersFromQuery(r),
	)
	if err != nil {
		return nil, ErrInternalServerError.WithErr(err)
	}

	matches := geo.FilterByRadius(origin, radius, listings)
	geo.SortByDistance(matches)
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}

	out := make([]*ListingResult, len(matches))
	for i, m := range matches {
		out[i] = listingResult(m.Entity, r.UserID, &m.Miles)
	}
	return &ListingsWrapper{Listings: out}, nil
}

// GET /listings/map returns obfuscated pins inside a map viewport, each
// carrying a geohash cluster key. Malformed bounds are a client error.
func (a *API) mapListingsHandler(r *Request) (interface{}, error) {
	boundsParam := r.Context.URLParam("bounds")
	if boundsParam == nil {
		return nil, ErrInvalidBounds.WithErr(fmt.Errorf("missing bounds"))
	}
	box, err := geo.ParseBoundingBox(boundsParam[0])
	if err != nil {
		return nil, ErrInvalidBounds.WithErr(err)
	}
	limit, err := r.Context.IntParam("limit", defaultMapLimit)
	if err != nil {
		return nil, ErrInvalidRequestBodyData.WithErr(err)
	}

	filters := listingFiltersFromQuery(r)
	if limit > 0 {
		filters.Window = int64(limit) * 2
	}
	listings, err := a.database.ListingService.GetActiveListings(context.Background(), filters)
	if err != nil {
		return nil, ErrInternalServerError.WithErr(err)
	}

	inView := geo.FilterByBounds(box, listings, limit)
	out := make([]*MapListing, 0, len(inView))
	for _, l := range inView {
		coord, ok := l.Coord()
		if !ok {
			continue
		}
		if l.UserID.Hex() != r.UserID {
			coord = geo.Obfuscate(coord, geo.DefaultObfuscationMiles)
		}
		out = append(out, &MapListing{
			ID:          l.ID.Hex(),
			Title:       l.Title,
			ListingType: l.ListingType,
			Coordinate:  coord,
			// The cluster key follows the displayed pin, not the stored
			// coordinate.
			ClusterKey: geohash.EncodeWithPrecision(coord.Latitude, coord.Longitude, geohashClusterPrecision),
		})
	}
	return &MapListingsWrapper{Listings: out}, nil
}

// GET /listings/search is the general search over active listings, with
// optional direct-coordinate proximity filtering and attribute sorting.
func (a *API) searchListingsHandler(r *Request) (interface{}, error) {
	lat, hasLat, err := r.Context.FloatParam("lat")
	if err != nil {
		return nil, ErrInvalidCoordinates.WithErr(err)
	}
	lng, hasLng, err := r.Context.FloatParam("lng")
	if err != nil {
		return nil, ErrInvalidCoordinates.WithErr(err)
	}
	if hasLat != hasLng {
		return nil, ErrInvalidCoordinates.WithErr(fmt.Errorf("lat and lng must be provided together"))
	}
	var origin *geo.Coordinate
	if hasLat {
		// Validate before any distance math runs.
		if !geo.ValidCoordinates(lat, lng) {
			return nil, ErrInvalidCoordinates
		}
		origin = &geo.Coordinate{Latitude: lat, Longitude: lng}
	}

	radius, err := r.Context.IntParam("radius", db.DefaultSearchRadiusMiles)
	if err != nil {
		return nil, ErrInvalidRequestBodyData.WithErr(err)
	}
	limit, err := r.Context.IntParam("limit", defaultSearchLimit)
	if err != nil {
		return nil, ErrInvalidRequestBodyData.WithErr(err)
	}
	sortKey := db.SortByCreated
	if s := r.Context.URLParam("sort"); s != nil {
		sortKey = s[0]
	}
	switch sortKey {
	case "distance", db.SortByCreated, db.SortByPrice, db.SortByViews:
	default:
		return nil, ErrInvalidRequestBodyData.WithErr(fmt.Errorf("invalid sort key %q", sortKey))
	}
	order := ""
	if o := r.Context.URLParam("order"); o != nil {
		order = o[0]
	}
	if sortKey == "distance" && origin == nil {
		return nil, ErrInvalidCoordinates.WithErr(fmt.Errorf("distance sort requires lat and lng"))
	}

	listings, err := a.database.ListingService.GetActiveListings(
		context.Background(), listingFiltersFromQuery(r),
	)
	if err != nil {
		return nil, ErrInternalServerError.WithErr(err)
	}

	// Distance annotations, when a query origin is present.
	miles := map[primitive.ObjectID]float64{}
	if origin != nil {
		matches := geo.FilterByRadius(*origin, radius, listings)
		listings = listings[:0]
		for _, m := range matches {
			listings = append(listings, m.Entity)
			miles[m.Entity.ID] = m.Miles
		}
	}

	if sortKey == "distance" {
		// FilterByRadius preserved newest-first order; re-rank by the
		// annotated distance instead.
		db.SortListingsBy(listings, func(a, b *db.Listing) bool {
			return miles[a.ID] < miles[b.ID]
		}, order != "desc")
	} else {
		db.SortListings(listings, sortKey, order == "asc")
	}

	if limit > 0 && len(listings) > limit {
		listings = listings[:limit]
	}
	out := make([]*ListingResult, len(listings))
	for i, l := range listings {
		var d *float64
		if m, ok := miles[l.ID]; ok {
			d = &m
		}
		out[i] = listingResult(l, r.UserID, d)
	}
	return &ListingsWrapper{Listings: out}, nil
}

// GET /feed returns the local-first blended recency feed. The window is
// oversampled so truncation still fills the page.
func (a *API) feedHandler(r *Request) (interface{}, error) {
	user, err := a.getUserByID(r.UserID)
	if err != nil {
		return nil, err
	}
	limit, err := r.Context.IntParam("limit", defaultFeedLimit)
	if err != nil {
		return nil, ErrInvalidRequestBodyData.WithErr(err)
	}
	if limit <= 0 {
		limit = defaultFeedLimit
	}

	filters := listingFiltersFromQuery(r)
	filters.Window = int64(limit) * feedOversample
	window, err := a.database.ListingService.GetActiveListings(context.Background(), filters)
	if err != nil {
		return nil, ErrInternalServerError.WithErr(err)
	}

	var origin *geo.Coordinate
	if coord, ok := user.Coord(); ok {
		origin = &coord
	}
	blended := geo.BlendLocalFirst(origin, user.Radius(), window, limit)

	out := make([]*ListingResult, len(blended))
	for i, l := range blended {
		var d *float64
		if origin != nil {
			if coord, ok := l.Coord(); ok {
				m := geo.Distance(*origin, coord)
				d = &m
			}
		}
		out[i] = listingResult(l, r.UserID, d)
	}
	return &ListingsWrapper{Listings: out}, nil
}

// GET /listings/{id}/contact derives the owner's contact channel for a
// listing, when the owner permits it.
func (a *API) listingContactHandler(r *Request) (interface{}, error) {
	idParam := r.Context.URLParam("id")
	if idParam == nil {
		return nil, ErrInvalidRequestBodyData.WithErr(fmt.Errorf("missing listing id"))
	}
	listing, err := a.listing(idParam[0])
	if err != nil {
		return nil, err
	}
	owner, err := a.getUserByID(listing.UserID.Hex())
	if err != nil {
		return nil, err
	}
	if !owner.ShowWhatsApp || owner.WhatsAppNumber == "" {
		return nil, ErrContactNotAvailable
	}
	number := contact.NormalizePhone(owner.WhatsAppNumber)
	if !contact.ValidPhone(number) {
		return nil, ErrContactNotAvailable.WithErr(fmt.Errorf("stored number is invalid"))
	}
	return &ContactInfo{
		ListingID:   listing.ID.Hex(),
		OwnerName:   owner.Name,
		PhoneNumber: number,
		ChannelURL:  contact.ChannelURL(number, contact.DefaultMessage(listing.Title)),
	}, nil
}
