package db

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Database struct encapsulates the MongoDB client and the per-collection
// services.
type Database struct {
	Client         *mongo.Client
	Database       *mongo.Database
	UserService    *UserService
	ListingService *ListingService
}

// New initializes a new MongoDB connection. An empty name selects a
// random database, used for test isolation.
func New(uri, name string) (*Database, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}

	if name == "" {
		name = RandomDatabaseName()
	}
	database := &Database{
		Client:   client,
		Database: client.Database(name),
	}
	database.UserService = NewUserService(database)
	database.ListingService = NewListingService(database)
	return database, nil
}

// Close disconnects the MongoDB client.
func (db *Database) Close(ctx context.Context) error {
	return db.Client.Disconnect(ctx)
}

// CreateTables initializes collections and indexes.
func (db *Database) CreateTables() error {
	return InitializeDatabase(db)
}

// RandomDatabaseName returns a random database name, for test isolation.
func RandomDatabaseName() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return "freshtrade_" + hex.EncodeToString(b)
}
