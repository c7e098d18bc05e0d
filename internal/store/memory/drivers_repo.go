// Package memory holds process-local stores used by default and in tests.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/manishonc/car-rental/internal/core"
)

type DriverStore struct {
	mu   sync.RWMutex
	data map[string][]core.Driver
}

func NewDriverStore() *DriverStore {
	return &DriverStore{data: make(map[string][]core.Driver)}
}

func (s *DriverStore) Save(_ context.Context, orderID string, drivers []core.Driver) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[orderID] = cloneDrivers(drivers)
	return nil
}

func (s *DriverStore) Load(_ context.Context, orderID string) ([]core.Driver, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	drivers, ok := s.data[orderID]
	if !ok {
		return nil, fmt.Errorf("%w: drivers for order %s", core.ErrNotFound, orderID)
	}
	return cloneDrivers(drivers), nil
}

func cloneDrivers(in []core.Driver) []core.Driver {
	out := make([]core.Driver, len(in))
	for i, d := range in {
		d.LicensePhoto = slices.Clone(d.LicensePhoto)
		out[i] = d
	}
	return out
}
