package database

import (
	"context"
	"fmt"
	"time"

	"tourbook/database/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes creates the query indexes used by the repositories.
// Consistency does not depend on them; the services enforce it.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	plan := map[string][]mongo.IndexModel{
		repository.ToursCollection: {
			{
				Keys:    bson.D{{Key: "id", Value: 1}},
				Options: options.Index().SetUnique(true).SetName("unique_id"),
			},
			{
				Keys:    bson.D{{Key: "location", Value: 1}},
				Options: options.Index().SetName("location_idx"),
			},
		},
		repository.BookingsCollection: {
			{
				Keys:    bson.D{{Key: "id", Value: 1}},
				Options: options.Index().SetUnique(true).SetName("unique_id"),
			},
			// Primary lookup for the active-booking check.
			{
				Keys:    bson.D{{Key: "tourId", Value: 1}, {Key: "userId", Value: 1}},
				Options: options.Index().SetName("tour_user_idx"),
			},
			{
				Keys:    bson.D{{Key: "userId", Value: 1}},
				Options: options.Index().SetName("user_idx"),
			},
		},
		repository.ReviewsCollection: {
			{
				Keys:    bson.D{{Key: "id", Value: 1}},
				Options: options.Index().SetUnique(true).SetName("unique_id"),
			},
			{
				Keys:    bson.D{{Key: "tourId", Value: 1}},
				Options: options.Index().SetName("tour_idx"),
			},
		},
	}

	for coll, models := range plan {
		if _, err := db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("failed to create %s indexes: %w", coll, err)
		}
	}
	return nil
}
