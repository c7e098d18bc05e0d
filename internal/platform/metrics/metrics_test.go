package metrics

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manishonc/car-rental/internal/core"
)

type stubAPI struct {
	core.OrderAPI
	cancelErr error
}

func (s stubAPI) CreateOrder(context.Context, core.CreateOrderRequest) (string, error) {
	return "O1", nil
}

func (s stubAPI) CancelOrder(context.Context, string) error { return s.cancelErr }

func TestInstrumentOrderAPICountsOutcomes(t *testing.T) {
	api := InstrumentOrderAPI(stubAPI{cancelErr: errors.New("boom")})

	okBefore := testutil.ToFloat64(BookingAPIRequestsTotal.WithLabelValues("create_order", "ok"))
	errBefore := testutil.ToFloat64(BookingAPIRequestsTotal.WithLabelValues("cancel_order", "error"))

	id, err := api.CreateOrder(context.Background(), core.CreateOrderRequest{VehicleID: "7"})
	require.NoError(t, err)
	assert.Equal(t, "O1", id)
	assert.Error(t, api.CancelOrder(context.Background(), "O1"))

	assert.Equal(t, okBefore+1, testutil.ToFloat64(BookingAPIRequestsTotal.WithLabelValues("create_order", "ok")))
	assert.Equal(t, errBefore+1, testutil.ToFloat64(BookingAPIRequestsTotal.WithLabelValues("cancel_order", "error")))
}

func TestTrackGeoCache(t *testing.T) {
	before := testutil.ToFloat64(GeoCacheLookups.WithLabelValues("locations", "true"))
	TrackGeoCache("locations", true)
	assert.Equal(t, before+1, testutil.ToFloat64(GeoCacheLookups.WithLabelValues("locations", "true")))
}
