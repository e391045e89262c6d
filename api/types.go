package api

import (
	"time"

	"github.com/freshtrade/freshtrade-app-backend/db"
	"github.com/freshtrade/freshtrade-app-backend/geo"
)

// Response is the default response of the API
type Response struct {
	Header ResponseHeader `json:"header"`
	Data   any            `json:"data,omitempty"`
}

// ResponseHeader is the header of the response
type ResponseHeader struct {
	Success   bool   `json:"success"`
	Message   string `json:"message,omitempty"`
	ErrorCode int    `json:"errorCode,omitempty"`
}

type Register struct {
	UserEmail         string `json:"email"`
	Password          string `json:"password"`
	RegisterAuthToken string `json:"invitationToken"`
	UserProfile
}

type Login struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token    string    `json:"token"`
	Expirity time.Time `json:"expirity"`
}

// UserProfile is the editable part of a user account. Coordinates are
// optional at registration; when absent, the address text is resolved
// synchronously.
type UserProfile struct {
	Name           string          `json:"name"`
	Latitude       *float64        `json:"latitude,omitempty"`
	Longitude      *float64        `json:"longitude,omitempty"`
	WhatsAppNumber string          `json:"whatsappNumber,omitempty"`
	ShowWhatsApp   *bool           `json:"showWhatsapp,omitempty"`
	Location       *LocationUpdate `json:"location,omitempty"`
}

// Profile is the user's own view of their account. Coordinates are the
// authoritative ones, never obfuscated for the owner.
type Profile struct {
	ID             string          `json:"id"`
	Email          string          `json:"email"`
	Name           string          `json:"name"`
	Place          *db.Place       `json:"place,omitempty"`
	DisplayName    string          `json:"displayName"`
	Coordinate     *geo.Coordinate `json:"coordinate,omitempty"`
	SearchRadius   int             `json:"searchRadius"`
	WhatsAppNumber string          `json:"whatsappNumber,omitempty"`
	ShowWhatsApp   bool            `json:"showWhatsapp"`
}

// LocationUpdate carries an explicit place edit. City and country are
// mandatory; the address text they form is re-resolved into coordinates.
type LocationUpdate struct {
	Area         string `json:"area,omitempty"`
	City         string `json:"city"`
	State        string `json:"state,omitempty"`
	Country      string `json:"country"`
	SearchRadius int    `json:"searchRadius,omitempty"`
	Precision    string `json:"precision,omitempty"`
}

// LocationResponse is the owner's view of their configured location.
type LocationResponse struct {
	Place        *db.Place       `json:"place,omitempty"`
	DisplayName  string          `json:"displayName"`
	Coordinate   *geo.Coordinate `json:"coordinate,omitempty"`
	SearchRadius int             `json:"searchRadius"`
}

type SuggestionsWrapper struct {
	Suggestions []Suggestion `json:"suggestions"`
}

// Suggestion is the API shape of an autocomplete result.
type Suggestion struct {
	DisplayName string  `json:"displayName"`
	City        string  `json:"city"`
	State       string  `json:"state,omitempty"`
	Country     string  `json:"country"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Type        string  `json:"type"`
}

// CreateListing is the request shape for a new listing. Coordinates are
// optional; when absent, the place text is geocoded synchronously.
type CreateListing struct {
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	Category    string          `json:"category"`
	ListingType string          `json:"listingType"`
	Price       *float64        `json:"price,omitempty"`
	Organic     bool            `json:"organic"`
	Latitude    *float64        `json:"latitude,omitempty"`
	Longitude   *float64        `json:"longitude,omitempty"`
	Location    *LocationUpdate `json:"location,omitempty"`
}

// UpdateListing carries a partial listing edit. Empty fields are left
// untouched. A place edit without coordinates re-resolves the address
// text, the same way user location edits do.
type UpdateListing struct {
	Title       string          `json:"title,omitempty"`
	Description *string         `json:"description,omitempty"`
	Category    string          `json:"category,omitempty"`
	ListingType string          `json:"listingType,omitempty"`
	Price       *float64        `json:"price,omitempty"`
	Organic     *bool           `json:"organic,omitempty"`
	Active      *bool           `json:"active,omitempty"`
	Latitude    *float64        `json:"latitude,omitempty"`
	Longitude   *float64        `json:"longitude,omitempty"`
	Location    *LocationUpdate `json:"location,omitempty"`
}

type ListingID struct {
	ID string `json:"id"`
}

// ListingResult is a listing prepared for display: coordinates are
// obfuscated unless the viewer owns the listing, and distance is
// annotated when the query had an origin.
type ListingResult struct {
	ID            string          `json:"id"`
	Title         string          `json:"title"`
	Description   string          `json:"description,omitempty"`
	Category      string          `json:"category"`
	ListingType   string          `json:"listingType"`
	Price         *float64        `json:"price,omitempty"`
	Organic       bool            `json:"organic"`
	Place         db.Place        `json:"place"`
	DisplayName   string          `json:"displayName"`
	Coordinate    *geo.Coordinate `json:"coordinate,omitempty"`
	Views         int64           `json:"views"`
	CreatedAt     time.Time       `json:"createdAt"`
	DistanceMiles *float64        `json:"distanceMiles,omitempty"`
	DistanceKm    *float64        `json:"distanceKm,omitempty"`
}

type ListingsWrapper struct {
	Listings []*ListingResult `json:"listings"`
}

// MapListing is a pin for the map viewport: position plus a geohash
// cluster key so clients can group nearby pins without recomputing
// proximity themselves.
type MapListing struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	ListingType string         `json:"listingType"`
	Coordinate  geo.Coordinate `json:"coordinate"`
	ClusterKey  string         `json:"clusterKey"`
}

type MapListingsWrapper struct {
	Listings []*MapListing `json:"listings"`
}

// ContactInfo is the derived contact channel for a listing.
type ContactInfo struct {
	ListingID   string `json:"listingId"`
	OwnerName   string `json:"ownerName"`
	PhoneNumber string `json:"phoneNumber"`
	ChannelURL  string `json:"channelUrl"`
}

// AreaStats summarizes listing activity within the actor's radius.
type AreaStats struct {
	RadiusMiles int            `json:"radiusMiles"`
	Total       int            `json:"total"`
	ByType      map[string]int `json:"byType"`
}

type Info struct {
	Users    int `json:"users"`
	Listings int `json:"listings"`
}
