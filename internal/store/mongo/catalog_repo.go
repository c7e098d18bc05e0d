package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	mongodrv "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/manishonc/car-rental/internal/core"
)

type CatalogRepoMongo struct {
	coll      *mongodrv.Collection
	opTimeout time.Duration
}

func NewCatalogRepo(db *mongodrv.Database, opTimeout time.Duration) *CatalogRepoMongo {
	return &CatalogRepoMongo{
		coll:      db.Collection(ColInsuranceOptions),
		opTimeout: opTimeout,
	}
}

// Lists all insurance options in id order. Returns an empty slice if none found.
func (r *CatalogRepoMongo) List(ctx context.Context) ([]core.InsuranceOption, error) {
	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	cur, err := r.coll.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("insurance_options.find: %w", err)
	}
	defer cur.Close(ctx)

	var opts []core.InsuranceOption
	for cur.Next(ctx) {
		var opt core.InsuranceOption
		if err := cur.Decode(&opt); err != nil {
			return nil, fmt.Errorf("insurance_options.decode: %w", err)
		}
		opts = append(opts, opt)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("insurance_options.cursor: %w", err)
	}
	return opts, nil
}

// Upsert writes an option by id.
func (r *CatalogRepoMongo) Upsert(ctx context.Context, opt core.InsuranceOption) error {
	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	_, err := r.coll.ReplaceOne(ctx, bson.M{"_id": opt.ID}, opt, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("insurance_options.replace: %w", err)
	}
	return nil
}
