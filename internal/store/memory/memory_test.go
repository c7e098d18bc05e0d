package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manishonc/car-rental/internal/core"
)

func TestDriverStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewDriverStore()

	_, err := s.Load(ctx, "O1")
	assert.ErrorIs(t, err, core.ErrNotFound)

	drivers := []core.Driver{{FirstName: "Ada", LicensePhoto: []string{"101"}}}
	require.NoError(t, s.Save(ctx, "O1", drivers))
	drivers[0].LicensePhoto[0] = "mutated"

	got, err := s.Load(ctx, "O1")
	require.NoError(t, err)
	assert.Equal(t, []string{"101"}, got[0].LicensePhoto)
}

func TestCatalogRepoListsInIDOrder(t *testing.T) {
	ctx := context.Background()
	r := NewCatalogRepo(core.InsuranceOption{ID: 1003}, core.InsuranceOption{ID: 1001})
	require.NoError(t, r.Upsert(ctx, core.InsuranceOption{ID: 1002, Title: "Mid"}))
	require.NoError(t, r.Upsert(ctx, core.InsuranceOption{ID: 1001, Title: "Basic"}))

	opts, err := r.List(ctx)
	require.NoError(t, err)
	require.Len(t, opts, 3)
	assert.Equal(t, []int{1001, 1002, 1003}, []int{opts[0].ID, opts[1].ID, opts[2].ID})
	assert.Equal(t, "Basic", opts[0].Title)
}
