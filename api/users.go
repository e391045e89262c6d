package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/freshtrade/freshtrade-app-backend/contact"
	"github.com/freshtrade/freshtrade-app-backend/db"
	"github.com/freshtrade/freshtrade-app-backend/geo"
	"github.com/freshtrade/freshtrade-app-backend/geocoding"
)

const defaultSuggestLimit = 5

// RegisterPublicUserRoutes registers the public user routes.
func (a *API) RegisterPublicUserRoutes(r chi.Router) {
	log.Info().Msg("register route POST /register")
	r.Post("/register", a.routerHandler(a.registerHandler))
	log.Info().Msg("register route POST /login")
	r.Post("/login", a.routerHandler(a.loginHandler))
}

// RegisterUserRoutes registers the authenticated user and location routes.
func (a *API) RegisterUserRoutes(r chi.Router) {
	log.Info().Msg("register route GET /refresh")
	r.Get("/refresh", a.routerHandler(a.refreshHandler))
	log.Info().Msg("register route GET /profile")
	r.Get("/profile", a.routerHandler(a.profileHandler))
	log.Info().Msg("register route POST /profile")
	r.Post("/profile", a.routerHandler(a.profileUpdateHandler))
	log.Info().Msg("register route GET /location")
	r.Get("/location", a.routerHandler(a.locationHandler))
	log.Info().Msg("register route PUT /location")
	r.Put("/location", a.routerHandler(a.locationUpdateHandler))
	log.Info().Msg("register route GET /location/suggest")
	r.Get("/location/suggest", a.routerHandler(a.locationSuggestHandler))
	log.Info().Msg("register route GET /location/stats")
	r.Get("/location/stats", a.routerHandler(a.locationStatsHandler))
}

// getUserByID fetches a user from their hex identifier.
func (a *API) getUserByID(userID string) (*db.User, error) {
	id, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, ErrUserNotFound.WithErr(fmt.Errorf("invalid user id %q: %w", userID, err))
	}
	user, err := a.database.UserService.GetUserByID(context.Background(), id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrUserNotFound.WithErr(fmt.Errorf("user %s not found", userID))
	}
	if err != nil {
		return nil, ErrInternalServerError.WithErr(err)
	}
	return user, nil
}

// resolvePlace turns an explicit place edit into a persisted descriptor
// and an authoritative coordinate. Resolution failures surface as
// ErrLocationNotFound, never as transport errors.
func (a *API) resolvePlace(r *Request, loc *LocationUpdate) (*db.Place, geo.Coordinate, error) {
	query := geocoding.BuildAddressQuery(loc.Area, loc.City, loc.State, loc.Country)
	resolved, err := a.geocoder.Resolve(r.Context.Request.Context(), query)
	if err != nil {
		return nil, geo.Coordinate{}, ErrLocationNotFound.WithErr(fmt.Errorf("could not resolve %q: %w", query, err))
	}
	place := placeFromResolved(resolved, loc)
	return place, resolved.Coordinate, nil
}

// placeFromResolved merges the resolver output with the user-supplied
// text, preferring the resolver and falling back to what the user typed.
func placeFromResolved(resolved *geocoding.Place, loc *LocationUpdate) *db.Place {
	pick := func(a, b string) string {
		if a != "" {
			return a
		}
		return b
	}
	precision := loc.Precision
	if precision == "" {
		precision = db.PrecisionCity
	}
	return &db.Place{
		Country:          pick(resolved.Country, loc.Country),
		City:             pick(resolved.City, loc.City),
		State:            pick(resolved.State, loc.State),
		Area:             pick(resolved.Area, loc.Area),
		Postcode:         resolved.Postcode,
		FormattedAddress: resolved.FormattedAddress,
		Precision:        precision,
	}
}

// placeFromUpdate builds a descriptor from user-supplied text alone, for
// the case where the client already provides coordinates.
func placeFromUpdate(loc *LocationUpdate) *db.Place {
	precision := loc.Precision
	if precision == "" {
		precision = db.PrecisionCity
	}
	return &db.Place{
		Country:   loc.Country,
		City:      loc.City,
		State:     loc.State,
		Area:      loc.Area,
		Precision: precision,
	}
}

// POST /register creates a new user. When the profile carries a place but
// no coordinates, the place is resolved synchronously and registration
// fails closed on resolution failure.
func (a *API) registerHandler(r *Request) (interface{}, error) {
	userInfo := Register{}
	if err := json.Unmarshal(r.Data, &userInfo); err != nil {
		return nil, ErrInvalidRequestBodyData.WithErr(err)
	}
	if a.registerAuthToken != "" && userInfo.RegisterAuthToken != a.registerAuthToken {
		return nil, ErrInvalidRegisterAuthToken
	}

	user := db.User{
		Email:    userInfo.UserEmail,
		Password: hashPassword(userInfo.Password),
		Name:     userInfo.Name,
		Active:   true,
	}

	if userInfo.WhatsAppNumber != "" {
		number := contact.NormalizePhone(userInfo.WhatsAppNumber)
		if !contact.ValidPhone(number) {
			return nil, ErrInvalidRequestBodyData.WithErr(fmt.Errorf("invalid phone number"))
		}
		user.WhatsAppNumber = number
	}
	if userInfo.ShowWhatsApp != nil {
		user.ShowWhatsApp = *userInfo.ShowWhatsApp
	}

	if userInfo.Location != nil {
		if err := validateLocationUpdate(userInfo.Location); err != nil {
			return nil, err
		}
		if userInfo.Latitude != nil && userInfo.Longitude != nil {
			// The client already knows the coordinate; trust it and skip
			// the resolver entirely.
			if !geo.ValidCoordinates(*userInfo.Latitude, *userInfo.Longitude) {
				return nil, ErrInvalidCoordinates
			}
			user.Place = placeFromUpdate(userInfo.Location)
			user.Location = db.NewDBLocation(geo.Coordinate{
				Latitude:  *userInfo.Latitude,
				Longitude: *userInfo.Longitude,
			})
		} else {
			place, coord, err := a.resolvePlace(r, userInfo.Location)
			if err != nil {
				return nil, err
			}
			user.Place = place
			user.Location = db.NewDBLocation(coord)
		}
		user.SearchRadius = userInfo.Location.SearchRadius
	}

	if err := user.Validate(); err != nil {
		return nil, ErrInvalidRequestBodyData.WithErr(err)
	}
	log.Debug().Str("email", user.Email).Msg("adding user")
	if _, err := a.database.UserService.InsertUser(context.Background(), &user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrEmailAlreadyRegistered.WithErr(err)
		}
		return nil, ErrCouldNotInsertToDatabase.WithErr(err)
	}
	return nil, nil
}

// POST /login returns a JWT token if the login is successful.
func (a *API) loginHandler(r *Request) (interface{}, error) {
	loginInfo := Login{}
	if err := json.Unmarshal(r.Data, &loginInfo); err != nil {
		return nil, ErrInvalidRequestBodyData.WithErr(err)
	}
	user, err := a.database.UserService.GetUserByEmail(context.Background(), loginInfo.Email)
	if err != nil {
		return nil, ErrWrongLogin.WithErr(err)
	}
	if !bytes.Equal(user.Password, hashPassword(loginInfo.Password)) {
		return nil, ErrWrongLogin
	}
	return a.makeToken(user.ID.Hex())
}

// GET /refresh returns a fresh JWT token for the authenticated user.
func (a *API) refreshHandler(r *Request) (interface{}, error) {
	return a.makeToken(r.UserID)
}

// GET /profile returns the user's own profile, with the authoritative
// coordinate. Obfuscation never applies to the owner's own view.
func (a *API) profileHandler(r *Request) (interface{}, error) {
	user, err := a.getUserByID(r.UserID)
	if err != nil {
		return nil, err
	}
	profile := &Profile{
		ID:             user.ID.Hex(),
		Email:          user.Email,
		Name:           user.Name,
		Place:          user.Place,
		SearchRadius:   user.Radius(),
		WhatsAppNumber: user.WhatsAppNumber,
		ShowWhatsApp:   user.ShowWhatsApp,
	}
	if user.Place != nil {
		profile.DisplayName = user.Place.DisplayName()
	}
	if coord, ok := user.Coord(); ok {
		profile.Coordinate = &coord
	}
	return profile, nil
}

// POST /profile updates the editable profile fields. Place edits go
// through PUT /location; this endpoint leaves coordinates untouched.
func (a *API) profileUpdateHandler(r *Request) (interface{}, error) {
	newInfo := UserProfile{}
	if err := json.Unmarshal(r.Data, &newInfo); err != nil {
		return nil, ErrInvalidRequestBodyData.WithErr(err)
	}
	user, err := a.getUserByID(r.UserID)
	if err != nil {
		return nil, err
	}

	update := bson.M{}
	if newInfo.Name != "" {
		update["name"] = newInfo.Name
	}
	if newInfo.WhatsAppNumber != "" {
		number := contact.NormalizePhone(newInfo.WhatsAppNumber)
		if !contact.ValidPhone(number) {
			return nil, ErrInvalidRequestBodyData.WithErr(fmt.Errorf("invalid phone number"))
		}
		update["whatsappNumber"] = number
	}
	if newInfo.ShowWhatsApp != nil {
		update["showWhatsapp"] = *newInfo.ShowWhatsApp
	}
	if len(update) == 0 {
		return nil, ErrInvalidRequestBodyData.WithErr(fmt.Errorf("nothing to update"))
	}
	if _, err := a.database.UserService.UpdateUser(context.Background(), user.ID, update); err != nil {
		return nil, ErrInternalServerError.WithErr(err)
	}
	return nil, nil
}

// GET /location returns the user's own configured location.
func (a *API) locationHandler(r *Request) (interface{}, error) {
	user, err := a.getUserByID(r.UserID)
	if err != nil {
		return nil, err
	}
	resp := &LocationResponse{
		Place:        user.Place,
		SearchRadius: user.Radius(),
	}
	if user.Place != nil {
		resp.DisplayName = user.Place.DisplayName()
	} else {
		resp.DisplayName = (&db.Place{}).DisplayName()
	}
	if coord, ok := user.Coord(); ok {
		resp.Coordinate = &coord
	}
	return resp, nil
}

// PUT /location re-resolves the place text and updates the descriptor,
// the authoritative coordinate and the search radius in one edit.
func (a *API) locationUpdateHandler(r *Request) (interface{}, error) {
	loc := LocationUpdate{}
	if err := json.Unmarshal(r.Data, &loc); err != nil {
		return nil, ErrInvalidRequestBodyData.WithErr(err)
	}
	if err := validateLocationUpdate(&loc); err != nil {
		return nil, err
	}
	user, err := a.getUserByID(r.UserID)
	if err != nil {
		return nil, err
	}

	place, coord, err := a.resolvePlace(r, &loc)
	if err != nil {
		return nil, err
	}
	if err := a.database.UserService.UpdateUserLocation(
		context.Background(), user.ID, place, db.NewDBLocation(coord), loc.SearchRadius,
	); err != nil {
		return nil, ErrInternalServerError.WithErr(err)
	}

	radius := loc.SearchRadius
	if radius <= 0 {
		radius = user.Radius()
	}
	return &LocationResponse{
		Place:        place,
		DisplayName:  place.DisplayName(),
		Coordinate:   &coord,
		SearchRadius: radius,
	}, nil
}

// GET /location/suggest returns autocomplete suggestions for a partial
// address. Resolver failures degrade to an empty list.
func (a *API) locationSuggestHandler(r *Request) (interface{}, error) {
	query := ""
	if q := r.Context.URLParam("q"); q != nil {
		query = q[0]
	}
	limit, err := r.Context.IntParam("limit", defaultSuggestLimit)
	if err != nil {
		return nil, ErrInvalidRequestBodyData.WithErr(err)
	}
	if limit <= 0 {
		limit = defaultSuggestLimit
	}

	suggestions, err := a.geocoder.Suggest(r.Context.Request.Context(), query, limit)
	if err != nil {
		return nil, ErrInternalServerError.WithErr(err)
	}
	out := make([]Suggestion, len(suggestions))
	for i, s := range suggestions {
		out[i] = Suggestion{
			DisplayName: s.DisplayName,
			City:        s.City,
			State:       s.State,
			Country:     s.Country,
			Latitude:    s.Coordinate.Latitude,
			Longitude:   s.Coordinate.Longitude,
			Type:        s.Type,
		}
	}
	return &SuggestionsWrapper{Suggestions: out}, nil
}

// GET /location/stats summarizes active listings per type within the
// user's radius.
func (a *API) locationStatsHandler(r *Request) (interface{}, error) {
	user, err := a.getUserByID(r.UserID)
	if err != nil {
		return nil, err
	}
	radius, err := r.Context.IntParam("radius", user.Radius())
	if err != nil {
		return nil, ErrInvalidRequestBodyData.WithErr(err)
	}

	stats := &AreaStats{
		RadiusMiles: radius,
		ByType:      map[string]int{},
	}
	origin, ok := user.Coord()
	if !ok {
		// No configured location means no local area to summarize.
		return stats, nil
	}

	listings, err := a.database.ListingService.GetActiveListings(r.Context.Request.Context(), db.ListingFilters{})
	if err != nil {
		return nil, ErrInternalServerError.WithErr(err)
	}
	for _, m := range geo.FilterByRadius(origin, radius, listings) {
		stats.Total++
		stats.ByType[m.Entity.ListingType]++
	}
	return stats, nil
}

func validateLocationUpdate(loc *LocationUpdate) error {
	if strings.TrimSpace(loc.City) == "" || strings.TrimSpace(loc.Country) == "" {
		return ErrInvalidRequestBodyData.WithErr(fmt.Errorf("city and country are required"))
	}
	if loc.Precision != "" && loc.Precision != db.PrecisionCity && loc.Precision != db.PrecisionNeighborhood {
		return ErrInvalidRequestBodyData.WithErr(fmt.Errorf("invalid precision %q", loc.Precision))
	}
	if loc.SearchRadius < 0 {
		return ErrInvalidRequestBodyData.WithErr(fmt.Errorf("search radius cannot be negative"))
	}
	return nil
}
