package db

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/freshtrade/freshtrade-app-backend/geo"
)

// User represents the schema for the "users" collection. Location is the
// authoritative coordinate, set once at registration by the resolver (or
// client-supplied) and recomputed only on explicit place edits; it must
// never be stored obfuscated.
type User struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Email          string             `bson:"email" json:"email"`
	Name           string             `bson:"name" json:"name"`
	Password       []byte             `bson:"password" json:"-"`
	Active         bool               `bson:"active" json:"active"`
	Place          *Place             `bson:"place,omitempty" json:"place,omitempty"`
	Location       DBLocation         `bson:"location,omitempty" json:"location,omitempty"`
	SearchRadius   int                `bson:"searchRadius" json:"searchRadius"`
	WhatsAppNumber string             `bson:"whatsappNumber,omitempty" json:"-"`
	ShowWhatsApp   bool               `bson:"showWhatsapp" json:"-"`
	CreatedAt      time.Time          `bson:"createdAt,omitempty" json:"createdAt,omitempty"`
	LastSeen       time.Time          `bson:"lastSeen,omitempty" json:"-"`
}

// Validate checks if the user data meets the required constraints.
func (u *User) Validate() error {
	if len(u.Name) < 2 || len(u.Name) > 30 {
		return fmt.Errorf("name length must be between 2 and 30 characters")
	}
	if len(u.Email) < 6 || len(u.Email) > 254 {
		return fmt.Errorf("invalid email length")
	}
	if u.Place != nil {
		if err := u.Place.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Coord implements geo.Locatable.
func (u *User) Coord() (geo.Coordinate, bool) {
	return u.Location.Coord()
}

// Radius returns the user's configured search radius, falling back to
// the default.
func (u *User) Radius() int {
	if u.SearchRadius > 0 {
		return u.SearchRadius
	}
	return DefaultSearchRadiusMiles
}

// UserService provides methods to interact with the "users" collection.
type UserService struct {
	Collection *mongo.Collection
}

// NewUserService creates a new UserService.
func NewUserService(db *Database) *UserService {
	return &UserService{
		Collection: db.Database.Collection("users"),
	}
}

// InsertUser inserts a new User document.
func (s *UserService) InsertUser(ctx context.Context, user *User) (*mongo.InsertOneResult, error) {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	if user.SearchRadius == 0 {
		user.SearchRadius = DefaultSearchRadiusMiles
	}
	return s.Collection.InsertOne(ctx, user)
}

// GetUserByEmail retrieves a User by their email address.
func (s *UserService) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	var user User
	err := s.Collection.FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserByID retrieves a User by their ID.
func (s *UserService) GetUserByID(ctx context.Context, id primitive.ObjectID) (*User, error) {
	var user User
	err := s.Collection.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateUser updates a User document by their ID.
func (s *UserService) UpdateUser(ctx context.Context, id primitive.ObjectID, update bson.M) (*mongo.UpdateResult, error) {
	return s.Collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": update})
}

// UpdateUserLocation replaces the user's place descriptor and
// authoritative coordinate in one update, as happens on an explicit
// place edit.
func (s *UserService) UpdateUserLocation(
	ctx context.Context,
	id primitive.ObjectID,
	place *Place,
	location DBLocation,
	searchRadius int,
) error {
	update := bson.M{
		"place":    place,
		"location": location,
	}
	if searchRadius > 0 {
		update["searchRadius"] = searchRadius
	}
	_, err := s.UpdateUser(ctx, id, update)
	return err
}

// CountUsers returns the total number of users.
func (s *UserService) CountUsers(ctx context.Context) (int64, error) {
	return s.Collection.CountDocuments(ctx, bson.M{})
}
