package db

import (
	"context"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func setupTestDatabase(t *testing.T) *Database {
	t.Helper()
	ctx := context.Background()

	container, err := StartMongoContainer(ctx)
	qt.Assert(t, err, qt.IsNil, qt.Commentf("Failed to start MongoDB container"))
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	mongoURI, err := container.Endpoint(ctx, "mongodb")
	qt.Assert(t, err, qt.IsNil, qt.Commentf("Failed to get MongoDB connection string"))

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	qt.Assert(t, err, qt.IsNil, qt.Commentf("Failed to create MongoDB client"))
	t.Cleanup(func() { _ = client.Disconnect(ctx) })

	database := &Database{
		Client:   client,
		Database: client.Database(RandomDatabaseName()),
	}
	database.UserService = NewUserService(database)
	database.ListingService = NewListingService(database)
	qt.Assert(t, database.CreateTables(), qt.IsNil)
	return database
}

func testPlace() Place {
	return Place{
		Country:          "Spain",
		City:             "Barcelona",
		State:            "Catalonia",
		FormattedAddress: "Barcelona, Catalonia, Spain",
		Precision:        PrecisionCity,
	}
}

func TestListingLifecycle(t *testing.T) {
	ctx := context.Background()
	database := setupTestDatabase(t)
	svc := database.ListingService

	price := 25.0
	listing := &Listing{
		Title:       "garden rake",
		Description: "barely used",
		Category:    "garden",
		ListingType: ListingForSale,
		Price:       &price,
		Place:       testPlace(),
		Location:    NewDBLocation(barcelonaCoord),
		Active:      true,
	}
	qt.Assert(t, listing.Validate(), qt.IsNil)

	_, err := svc.InsertListing(ctx, listing)
	qt.Assert(t, err, qt.IsNil)

	count, err := svc.CountListings(ctx)
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, count, qt.Equals, int64(1))

	fetched, err := svc.GetActiveListings(ctx, ListingFilters{})
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, fetched, qt.HasLen, 1)
	qt.Assert(t, fetched[0].Title, qt.Equals, "garden rake")
	qt.Assert(t, fetched[0].PriceOrZero(), qt.Equals, 25.0)

	coord, ok := fetched[0].Coord()
	qt.Assert(t, ok, qt.IsTrue)
	qt.Assert(t, coord.Latitude, qt.Equals, barcelonaCoord.Latitude)

	qt.Assert(t, svc.IncrementViews(ctx, fetched[0].ID), qt.IsNil)
	reread, err := svc.GetListingByID(ctx, fetched[0].ID)
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, reread.Views, qt.Equals, int64(1))
}

func TestGetActiveListingsFilters(t *testing.T) {
	ctx := context.Background()
	database := setupTestDatabase(t)
	svc := database.ListingService

	now := time.Now()
	listings := []*Listing{
		{Title: "a", Category: "garden", ListingType: ListingForSale, Place: testPlace(), Active: true, CreatedAt: now.Add(-3 * time.Hour)},
		{Title: "b", Category: "kitchen", ListingType: ListingGiveAway, Place: testPlace(), Active: true, Organic: true, CreatedAt: now.Add(-2 * time.Hour)},
		{Title: "c", Category: "garden", ListingType: ListingGiveAway, Place: testPlace(), Active: true, CreatedAt: now.Add(-1 * time.Hour)},
		{Title: "inactive", Category: "garden", ListingType: ListingForSale, Place: testPlace(), Active: false, CreatedAt: now},
	}
	for _, l := range listings {
		_, err := svc.InsertListing(ctx, l)
		qt.Assert(t, err, qt.IsNil)
	}

	// Inactive listings never enter the working set.
	all, err := svc.GetActiveListings(ctx, ListingFilters{})
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, all, qt.HasLen, 3)

	// Newest first.
	qt.Assert(t, all[0].Title, qt.Equals, "c")
	qt.Assert(t, all[2].Title, qt.Equals, "a")

	garden, err := svc.GetActiveListings(ctx, ListingFilters{Category: "garden"})
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, garden, qt.HasLen, 2)

	giveaway, err := svc.GetActiveListings(ctx, ListingFilters{ListingType: ListingGiveAway})
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, giveaway, qt.HasLen, 2)

	organic, err := svc.GetActiveListings(ctx, ListingFilters{OrganicOnly: true})
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, organic, qt.HasLen, 1)
	qt.Assert(t, organic[0].Title, qt.Equals, "b")

	// "all" is a no-op filter, and the window caps the result.
	windowed, err := svc.GetActiveListings(ctx, ListingFilters{Category: "all", Window: 2})
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, windowed, qt.HasLen, 2)
}

func TestUserLifecycle(t *testing.T) {
	ctx := context.Background()
	database := setupTestDatabase(t)
	svc := database.UserService

	place := testPlace()
	user := &User{
		Email:    "bob@freshtrade.app",
		Name:     "bob",
		Password: []byte("hashed"),
		Active:   true,
		Place:    &place,
		Location: NewDBLocation(barcelonaCoord),
	}
	qt.Assert(t, user.Validate(), qt.IsNil)

	_, err := svc.InsertUser(ctx, user)
	qt.Assert(t, err, qt.IsNil)

	fetched, err := svc.GetUserByEmail(ctx, "bob@freshtrade.app")
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, fetched.Name, qt.Equals, "bob")
	// The default radius is applied at insert time.
	qt.Assert(t, fetched.Radius(), qt.Equals, DefaultSearchRadiusMiles)

	// Duplicate email rejected by the unique index.
	_, err = svc.InsertUser(ctx, &User{Email: "bob@freshtrade.app", Name: "imposter", Password: []byte("x")})
	qt.Assert(t, mongo.IsDuplicateKeyError(err), qt.IsTrue)

	// Explicit place edit recomputes descriptor and coordinate together.
	newPlace := Place{Country: "Spain", City: "Girona", Precision: PrecisionCity}
	err = svc.UpdateUserLocation(ctx, fetched.ID, &newPlace, NewDBLocation(gironaCoord), 50)
	qt.Assert(t, err, qt.IsNil)

	updated, err := svc.GetUserByID(ctx, fetched.ID)
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, updated.Place.City, qt.Equals, "Girona")
	qt.Assert(t, updated.Radius(), qt.Equals, 50)
	coord, ok := updated.Coord()
	qt.Assert(t, ok, qt.IsTrue)
	qt.Assert(t, coord.Latitude, qt.Equals, gironaCoord.Latitude)
}
