package metrics

import (
	"context"
	"time"

	"github.com/manishonc/car-rental/internal/core"
)

// InstrumentedOrderAPI records call counts and latency for every booking API operation.
type InstrumentedOrderAPI struct {
	next core.OrderAPI
	now  func() time.Time
}

func InstrumentOrderAPI(next core.OrderAPI) *InstrumentedOrderAPI {
	return &InstrumentedOrderAPI{next: next, now: time.Now}
}

func (a *InstrumentedOrderAPI) track(op string, start time.Time, err error) {
	TrackBookingAPI(op, err, a.now().Sub(start))
}

func (a *InstrumentedOrderAPI) SearchVehicles(ctx context.Context, q core.SearchQuery) (core.SearchResult, error) {
	start := a.now()
	res, err := a.next.SearchVehicles(ctx, q)
	a.track("search", start, err)
	return res, err
}

func (a *InstrumentedOrderAPI) GetLocations(ctx context.Context) ([]core.Location, error) {
	start := a.now()
	locs, err := a.next.GetLocations(ctx)
	a.track("locations", start, err)
	return locs, err
}

func (a *InstrumentedOrderAPI) GetCountries(ctx context.Context, lang string) ([]core.Country, error) {
	start := a.now()
	countries, err := a.next.GetCountries(ctx, lang)
	a.track("countries", start, err)
	return countries, err
}

func (a *InstrumentedOrderAPI) CreateOrder(ctx context.Context, req core.CreateOrderRequest) (string, error) {
	start := a.now()
	id, err := a.next.CreateOrder(ctx, req)
	a.track("create_order", start, err)
	return id, err
}

func (a *InstrumentedOrderAPI) UpdateOrder(ctx context.Context, orderID string, insuranceID int) error {
	start := a.now()
	err := a.next.UpdateOrder(ctx, orderID, insuranceID)
	a.track("update_order", start, err)
	return err
}

func (a *InstrumentedOrderAPI) ConfirmOrder(ctx context.Context, orderID string, drivers []core.Driver, method core.PaymentMethod) (core.ConfirmResult, error) {
	start := a.now()
	res, err := a.next.ConfirmOrder(ctx, orderID, drivers, method)
	a.track("confirm_order", start, err)
	return res, err
}

func (a *InstrumentedOrderAPI) CancelOrder(ctx context.Context, orderID string) error {
	start := a.now()
	err := a.next.CancelOrder(ctx, orderID)
	a.track("cancel_order", start, err)
	return err
}

func (a *InstrumentedOrderAPI) UploadFile(ctx context.Context, f core.FileUpload) (core.FileUploadResult, error) {
	start := a.now()
	res, err := a.next.UploadFile(ctx, f)
	a.track("upload_file", start, err)
	return res, err
}
