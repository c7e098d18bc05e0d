package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	mongodrv "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/manishonc/car-rental/internal/core"
)

type DriverRepoMongo struct {
	coll      *mongodrv.Collection
	opTimeout time.Duration
	clock     func() time.Time
}

func NewDriverRepo(db *mongodrv.Database, opTimeout time.Duration) *DriverRepoMongo {
	return &DriverRepoMongo{
		coll:      db.Collection(ColDriverInfo),
		opTimeout: opTimeout,
		clock:     time.Now,
	}
}

// Save replaces the stored driver list for an order.
func (r *DriverRepoMongo) Save(ctx context.Context, orderID string, drivers []core.Driver) error {
	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	doc := toDriverInfoDoc(orderID, drivers, r.clock().UTC())
	_, err := r.coll.ReplaceOne(ctx, bson.M{"_id": orderID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("driver_info.replace: %w", err)
	}
	return nil
}

// Load returns core.ErrNotFound when the order has no stored drivers.
func (r *DriverRepoMongo) Load(ctx context.Context, orderID string) ([]core.Driver, error) {
	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	var doc DriverInfoDoc
	err := r.coll.FindOne(ctx, bson.M{"_id": orderID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongodrv.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: drivers for order %s", core.ErrNotFound, orderID)
		}
		return nil, fmt.Errorf("driver_info.findOne: %w", err)
	}
	return fromDriverInfoDoc(doc), nil
}
