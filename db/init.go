package db

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// InitializeDatabase ensures collections and indexes are ready for use.
func InitializeDatabase(db *Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return createIndexes(ctx, db)
}

// createIndexes creates all required indexes for collections.
func createIndexes(ctx context.Context, db *Database) error {
	userColl := db.Database.Collection("users")
	_, err := userColl.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	})
	if err != nil {
		return err
	}

	// Listings are scanned newest first; category and type narrow the
	// working set before the in-memory distance pass.
	listingColl := db.Database.Collection("listings")
	_, err = listingColl.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "userId", Value: 1}}},
		{Keys: bson.D{
			{Key: "active", Value: 1},
			{Key: "category", Value: 1},
			{Key: "listingType", Value: 1},
		}},
	})
	return err
}
