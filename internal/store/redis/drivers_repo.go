package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/manishonc/car-rental/internal/core"
)

const driverKeyPrefix = "driverInfo_"

// DriverStore keeps driver lists as JSON under driverInfo_{orderId}.
type DriverStore struct {
	rdb *goredis.Client
	ttl time.Duration
}

// NewDriverStore returns a store whose entries expire after ttl; zero keeps them forever.
func NewDriverStore(rdb *goredis.Client, ttl time.Duration) *DriverStore {
	return &DriverStore{rdb: rdb, ttl: ttl}
}

func driverKey(orderID string) string { return driverKeyPrefix + orderID }

func (s *DriverStore) Save(ctx context.Context, orderID string, drivers []core.Driver) error {
	data, err := json.Marshal(drivers)
	if err != nil {
		return fmt.Errorf("drivers.marshal: %w", err)
	}
	if err := s.rdb.Set(ctx, driverKey(orderID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("drivers.set: %w", err)
	}
	return nil
}

func (s *DriverStore) Load(ctx context.Context, orderID string) ([]core.Driver, error) {
	data, err := s.rdb.Get(ctx, driverKey(orderID)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, fmt.Errorf("%w: drivers for order %s", core.ErrNotFound, orderID)
	}
	if err != nil {
		return nil, fmt.Errorf("drivers.get: %w", err)
	}
	var drivers []core.Driver
	if err := json.Unmarshal(data, &drivers); err != nil {
		return nil, fmt.Errorf("drivers.unmarshal: %w", err)
	}
	return drivers, nil
}
