package db

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/freshtrade/freshtrade-app-backend/geo"
)

// Listing types supported by the marketplace.
const (
	ListingForSale    = "for_sale"
	ListingGiveAway   = "give_away"
	ListingLookingFor = "looking_for"
)

// Listing represents the schema for the "listings" collection. The place
// descriptor is mandatory; the coordinate is optional, and a listing
// without one is silently excluded from every proximity query.
type Listing struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Title       string             `bson:"title" json:"title"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	Category    string             `bson:"category" json:"category"`
	ListingType string             `bson:"listingType" json:"listingType"`
	Price       *float64           `bson:"price,omitempty" json:"price,omitempty"`
	Organic     bool               `bson:"organic" json:"organic"`
	UserID      primitive.ObjectID `bson:"userId" json:"userId"`
	Place       Place              `bson:"place" json:"place"`
	Location    DBLocation         `bson:"location,omitempty" json:"location,omitempty"`
	Views       int64              `bson:"views" json:"views"`
	Active      bool               `bson:"active" json:"active"`
	CreatedAt   time.Time          `bson:"createdAt,omitempty" json:"createdAt,omitempty"`
}

// Validate checks the listing constraints.
func (l *Listing) Validate() error {
	if strings.TrimSpace(l.Title) == "" {
		return fmt.Errorf("title is required")
	}
	switch l.ListingType {
	case ListingForSale, ListingGiveAway, ListingLookingFor:
	default:
		return fmt.Errorf("invalid listing type %q", l.ListingType)
	}
	return l.Place.Validate()
}

// Coord implements geo.Locatable.
func (l *Listing) Coord() (geo.Coordinate, bool) {
	return l.Location.Coord()
}

// PriceOrZero treats give-away listings (no price) as price zero, so
// price sorting never excludes them and never fails.
func (l *Listing) PriceOrZero() float64 {
	if l.Price == nil {
		return 0
	}
	return *l.Price
}

// ListingFilters narrows the working set fetched for an in-memory scan.
type ListingFilters struct {
	Category    string
	ListingType string
	OrganicOnly bool
	// Window bounds the fetched candidate set; 0 means the default.
	Window int64
}

// defaultListingWindow bounds the in-memory working set. Candidate
// windows are small in the operating envelope; this is a known scaling
// limit, not an accident.
const defaultListingWindow = 1000

// ListingService provides methods to interact with the "listings"
// collection.
type ListingService struct {
	Collection *mongo.Collection
}

// NewListingService creates a new ListingService.
func NewListingService(db *Database) *ListingService {
	return &ListingService{
		Collection: db.Database.Collection("listings"),
	}
}

// InsertListing inserts a new Listing document.
func (s *ListingService) InsertListing(ctx context.Context, listing *Listing) (*mongo.InsertOneResult, error) {
	if listing.CreatedAt.IsZero() {
		listing.CreatedAt = time.Now()
	}
	return s.Collection.InsertOne(ctx, listing)
}

// GetListingByID retrieves a Listing by its ID.
func (s *ListingService) GetListingByID(ctx context.Context, id primitive.ObjectID) (*Listing, error) {
	var listing Listing
	err := s.Collection.FindOne(ctx, bson.M{"_id": id}).Decode(&listing)
	if err != nil {
		return nil, err
	}
	return &listing, nil
}

// GetListingsByUserID retrieves all listings owned by a user, newest
// first.
func (s *ListingService) GetListingsByUserID(ctx context.Context, userID primitive.ObjectID) ([]*Listing, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := s.Collection.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, err
	}
	var listings []*Listing
	if err := cursor.All(ctx, &listings); err != nil {
		return nil, err
	}
	return listings, nil
}

// GetActiveListings fetches the bounded, newest-first working set of
// active listings matching the filters. All distance work happens in
// memory afterwards; there is deliberately no spatial index here.
func (s *ListingService) GetActiveListings(ctx context.Context, filters ListingFilters) ([]*Listing, error) {
	query := bson.M{"active": true}
	if filters.Category != "" && filters.Category != "all" {
		query["category"] = filters.Category
	}
	if filters.ListingType != "" && filters.ListingType != "all" {
		query["listingType"] = filters.ListingType
	}
	if filters.OrganicOnly {
		query["organic"] = true
	}

	window := filters.Window
	if window <= 0 {
		window = defaultListingWindow
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(window)

	cursor, err := s.Collection.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	var listings []*Listing
	if err := cursor.All(ctx, &listings); err != nil {
		return nil, err
	}
	return listings, nil
}

// UpdateListingFields updates selected fields of a Listing document.
func (s *ListingService) UpdateListingFields(ctx context.Context, id primitive.ObjectID, update bson.M) error {
	_, err := s.Collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": update})
	return err
}

// DeleteListing deletes a Listing document by its ID.
func (s *ListingService) DeleteListing(ctx context.Context, id primitive.ObjectID) (*mongo.DeleteResult, error) {
	return s.Collection.DeleteOne(ctx, bson.M{"_id": id})
}

// IncrementViews bumps the view counter of a listing.
func (s *ListingService) IncrementViews(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.Collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$inc": bson.M{"views": 1}})
	return err
}

// CountListings returns the total number of listings.
func (s *ListingService) CountListings(ctx context.Context) (int64, error) {
	return s.Collection.CountDocuments(ctx, bson.M{})
}

// Sort keys accepted by the general listing search.
const (
	SortByCreated = "created"
	SortByPrice   = "price"
	SortByViews   = "views"
)

// SortListings orders listings in place by the given key. The sort is
// stable, so equal keys keep their input order. Unknown keys leave the
// order untouched.
func SortListings(listings []*Listing, key string, ascending bool) {
	var less func(a, b *Listing) bool
	switch key {
	case SortByCreated:
		less = func(a, b *Listing) bool { return a.CreatedAt.Before(b.CreatedAt) }
	case SortByPrice:
		less = func(a, b *Listing) bool { return a.PriceOrZero() < b.PriceOrZero() }
	case SortByViews:
		less = func(a, b *Listing) bool { return a.Views < b.Views }
	default:
		return
	}
	SortListingsBy(listings, less, ascending)
}

// SortListingsBy is the stable sort behind SortListings, exposed for
// callers that rank by a computed attribute such as query distance.
func SortListingsBy(listings []*Listing, less func(a, b *Listing) bool, ascending bool) {
	cmp := less
	if !ascending {
		cmp = func(a, b *Listing) bool { return less(b, a) }
	}
	sort.SliceStable(listings, func(i, j int) bool { return cmp(listings[i], listings[j]) })
}
