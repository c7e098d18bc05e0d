package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/manishonc/car-rental/internal/core"
)

// CatalogRepo keeps insurance options keyed by id, listed in id order.
type CatalogRepo struct {
	mu   sync.RWMutex
	opts map[int]core.InsuranceOption
}

func NewCatalogRepo(seed ...core.InsuranceOption) *CatalogRepo {
	r := &CatalogRepo{opts: make(map[int]core.InsuranceOption, len(seed))}
	for _, o := range seed {
		r.opts[o.ID] = o
	}
	return r
}

func (r *CatalogRepo) List(_ context.Context) ([]core.InsuranceOption, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]core.InsuranceOption, 0, len(r.opts))
	for _, o := range r.opts {
		out = append(out, o)
	}
	slices.SortFunc(out, func(a, b core.InsuranceOption) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (r *CatalogRepo) Upsert(_ context.Context, opt core.InsuranceOption) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.opts[opt.ID] = opt
	return nil
}
