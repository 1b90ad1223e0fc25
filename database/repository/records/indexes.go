package recordsRepo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// IndexPlan lists the indexes each analytics table needs.
func IndexPlan() map[string][]mongo.IndexModel {
	providerCreated := mongo.IndexModel{
		Keys:    bson.D{{Key: "providerId", Value: 1}, {Key: "createdAt", Value: 1}},
		Options: options.Index().SetName("provider_created_idx"),
	}
	created := mongo.IndexModel{
		Keys:    bson.D{{Key: "createdAt", Value: 1}},
		Options: options.Index().SetName("created_idx"),
	}
	uniqueID := mongo.IndexModel{
		Keys:    bson.D{{Key: "id", Value: 1}},
		Options: options.Index().SetUnique(true).SetSparse(true).SetName("unique_id"),
	}
	return map[string][]mongo.IndexModel{
		TableEarnings:      {providerCreated, created},
		TableBookings:      {providerCreated, created, uniqueID},
		TableReviews:       {providerCreated},
		TableSearchHistory: {created, {Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: 1}}, Options: options.Index().SetName("user_created_idx")}},
		TableServices: {uniqueID, {
			Keys:    bson.D{{Key: "providerId", Value: 1}},
			Options: options.Index().SetName("provider_idx"),
		}, {
			Keys:    bson.D{{Key: "category", Value: 1}, {Key: "price", Value: 1}},
			Options: options.Index().SetName("category_price_idx"),
		}},
		TablePreferences: {{
			Keys:    bson.D{{Key: "userId", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("unique_user"),
		}},
	}
}

// EnsureIndexes creates the indexes dashboard queries rely on.
func EnsureIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for table, models := range IndexPlan() {
		if _, err := db.Collection(table).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("failed to create %s indexes: %w", table, err)
		}
	}
	return nil
}
