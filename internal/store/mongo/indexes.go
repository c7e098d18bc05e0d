package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DriverInfoRetention is how long an untouched driver list is kept, in seconds.
const DriverInfoRetention int32 = 30 * 24 * 60 * 60

// collectionIndexes lists the indexes each collection needs.
func collectionIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		ColDriverInfo: {{
			Keys:    bson.D{{Key: "updated_at", Value: 1}},
			Options: options.Index().SetName("driver_info_updated_ttl").SetExpireAfterSeconds(DriverInfoRetention),
		}},
		ColInsuranceOptions: {{
			Keys:    bson.D{{Key: "is_fallback", Value: 1}},
			Options: options.Index().SetName("insurance_options_fallback"),
		}},
	}
}

// EnsureIndexes creates missing indexes. Existing ones with the same name are left alone.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	for coll, models := range collectionIndexes() {
		if _, err := db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("ensure %s indexes: %w", coll, err)
		}
	}
	return nil
}
