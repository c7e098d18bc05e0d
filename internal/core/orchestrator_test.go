package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOrderAPI struct {
	mu sync.Mutex

	calls       []string
	vehicles    []Vehicle
	locations   []Location
	searchErr   error
	createErr   error
	cancelErr   error
	updateErr   error
	confirmErrs []error
	confirmRes  ConfirmResult
	uploadErr   map[string]error
	nextOrder   int
	nextFile    int
}

func (f *fakeOrderAPI) record(c string) {
	f.mu.Lock()
	f.calls = append(f.calls, c)
	f.mu.Unlock()
}

func (f *fakeOrderAPI) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeOrderAPI) count(prefix string) int {
	n := 0
	for _, c := range f.Calls() {
		if len(c) >= len(prefix) && c[:len(prefix)] == prefix {
			n++
		}
	}
	return n
}

func (f *fakeOrderAPI) SearchVehicles(_ context.Context, q SearchQuery) (SearchResult, error) {
	f.record("search")
	if f.searchErr != nil {
		return SearchResult{}, f.searchErr
	}
	return SearchResult{Vehicles: f.vehicles}, nil
}

func (f *fakeOrderAPI) GetLocations(context.Context) ([]Location, error) {
	f.record("locations")
	return f.locations, nil
}

func (f *fakeOrderAPI) GetCountries(context.Context, string) ([]Country, error) {
	return []Country{{ID: "1", Name: "Switzerland", ISOCode: "CH"}}, nil
}

func (f *fakeOrderAPI) CreateOrder(_ context.Context, req CreateOrderRequest) (string, error) {
	f.record("create:" + req.VehicleID)
	if f.createErr != nil {
		return "", f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextOrder++
	return fmt.Sprintf("O%d", f.nextOrder), nil
}

func (f *fakeOrderAPI) UpdateOrder(_ context.Context, orderID string, insuranceID int) error {
	f.record(fmt.Sprintf("update:%s:%d", orderID, insuranceID))
	return f.updateErr
}

func (f *fakeOrderAPI) ConfirmOrder(_ context.Context, orderID string, _ []Driver, method PaymentMethod) (ConfirmResult, error) {
	f.record(fmt.Sprintf("confirm:%s:%s", orderID, method))
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.confirmErrs) > 0 {
		err := f.confirmErrs[0]
		f.confirmErrs = f.confirmErrs[1:]
		if err != nil {
			return ConfirmResult{}, err
		}
	}
	return f.confirmRes, nil
}

func (f *fakeOrderAPI) CancelOrder(_ context.Context, orderID string) error {
	f.record("cancel:" + orderID)
	return f.cancelErr
}

func (f *fakeOrderAPI) UploadFile(_ context.Context, file FileUpload) (FileUploadResult, error) {
	f.record("upload:" + file.Name)
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.uploadErr[file.Name]; err != nil {
		return FileUploadResult{}, err
	}
	f.nextFile++
	id := 100 + f.nextFile
	return FileUploadResult{ID: id, URL: fmt.Sprintf("https://files.test/%d", id), Status: "success"}, nil
}

type fakeDriverStore struct {
	mu    sync.Mutex
	data  map[string][]Driver
	saves int
}

func newFakeDriverStore() *fakeDriverStore {
	return &fakeDriverStore{data: map[string][]Driver{}}
}

func (s *fakeDriverStore) Save(_ context.Context, orderID string, drivers []Driver) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[orderID] = append([]Driver(nil), drivers...)
	s.saves++
	return nil
}

func (s *fakeDriverStore) Load(_ context.Context, orderID string) ([]Driver, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.data[orderID]
	if !ok {
		return nil, fmt.Errorf("%w: drivers for order %s", ErrNotFound, orderID)
	}
	return d, nil
}

type harness struct {
	o      *Orchestrator
	api    *fakeOrderAPI
	store  *fakeDriverStore
	sleeps []time.Duration
}

var testNow = time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		api: &fakeOrderAPI{
			vehicles:  []Vehicle{{ID: "A", TotalPrice: "240.00", Currency: "EUR"}, {ID: "B", TotalPrice: "300.00"}},
			locations: []Location{{ID: 4, Name: "Airport"}, {ID: 7, Name: "Station"}},
		},
		store: newFakeDriverStore(),
	}
	h.o = NewOrchestrator(NewBookingSession("sess-1"), OrchestratorDeps{
		API:     h.api,
		Drivers: h.store,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		Clock:   func() time.Time { return testNow },
		Sleep: func(_ context.Context, d time.Duration) error {
			h.sleeps = append(h.sleeps, d)
			return nil
		},
		Options: DefaultOrchestratorOptions(),
	})
	return h
}

var defaultSearch = SearchInput{
	DateFrom: "2025-06-01", TimeFrom: "09:00",
	DateTo: "2025-06-03", TimeTo: "09:00",
	PickupLocation: "4",
}

func (h *harness) searched(t *testing.T) BookingState {
	t.Helper()
	st := h.o.Search(context.Background(), defaultSearch)
	require.Empty(t, st.SearchError)
	return st
}

func (h *harness) selected(t *testing.T, vehicleID string) BookingState {
	t.Helper()
	st, err := h.o.SelectVehicle(context.Background(), vehicleID)
	require.NoError(t, err)
	require.Empty(t, st.OrderError)
	return st
}

// readyToConfirm drives a session to step 5 with terms accepted.
func (h *harness) readyToConfirm(t *testing.T, method PaymentMethod) BookingState {
	t.Helper()
	ctx := context.Background()
	h.searched(t)
	h.selected(t, "A")
	h.o.Session().Dispatch(SetDrivers{Drivers: []Driver{completeDriver()}})

	st, err := h.o.SubmitDrivers(ctx)
	require.NoError(t, err)
	require.Equal(t, StepExtras, st.CurrentStep)
	require.Equal(t, 1001, st.SelectedInsurance)

	_, err = h.o.CompleteExtras(ctx)
	require.NoError(t, err)
	_, err = h.o.DispatchClient(ctx, SetPaymentMethod{Method: method})
	require.NoError(t, err)
	st, err = h.o.DispatchClient(ctx, SetTermsAccepted{Accepted: true})
	require.NoError(t, err)
	require.Equal(t, StepConfirm, st.CurrentStep)
	return st
}

func TestLoadLocationsPreselectsFirst(t *testing.T) {
	h := newHarness(t)
	st := h.o.LoadLocations(context.Background())

	assert.Len(t, st.Locations, 2)
	assert.Equal(t, "4", st.SelectedLocation)
	assert.False(t, st.LoadingLocations)

	h.o.LoadLocations(context.Background())
	assert.Equal(t, 1, h.api.count("locations"))
}

func TestSearchAdvancesToVehicleSelection(t *testing.T) {
	h := newHarness(t)
	st := h.searched(t)

	assert.Equal(t, StepSelectVehicle, st.CurrentStep)
	assert.Equal(t, StepSearch, st.MaxCompletedStep)
	assert.Len(t, st.Vehicles, 2)
	assert.False(t, st.IsSearching)
	assert.Equal(t, "4", st.Search.ReturnLocation)
	assert.Equal(t, time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC), st.Search.PickupAt)
}

func TestSearchRejectsBadDates(t *testing.T) {
	h := newHarness(t)

	in := defaultSearch
	in.DateTo = "2025-06-01"
	st := h.o.Search(context.Background(), in)
	assert.Equal(t, MsgReturnBeforePickup, st.SearchError)

	in = defaultSearch
	in.DateFrom = ""
	st = h.o.Search(context.Background(), in)
	assert.Equal(t, MsgMissingDates, st.SearchError)

	assert.Empty(t, h.api.Calls())
}

func TestSearchRequiresPickupLocation(t *testing.T) {
	h := newHarness(t)

	in := defaultSearch
	in.PickupLocation = ""
	st := h.o.Search(context.Background(), in)

	assert.Equal(t, MsgMissingLocation, st.SearchError)
	assert.Equal(t, StepSearch, st.CurrentStep)
	assert.Zero(t, st.MaxCompletedStep)
	assert.Empty(t, h.api.Calls())
}

func TestSearchWithoutResults(t *testing.T) {
	h := newHarness(t)
	h.api.vehicles = nil

	st := h.o.Search(context.Background(), defaultSearch)

	assert.Equal(t, MsgNoVehicles, st.SearchError)
	assert.Equal(t, StepSearch, st.CurrentStep)
	assert.Equal(t, Step(0), st.MaxCompletedStep)
}

func TestSearchFailureIsRecorded(t *testing.T) {
	h := newHarness(t)
	h.api.searchErr = errors.New("booking api error: status 502")

	st := h.o.Search(context.Background(), defaultSearch)

	assert.Equal(t, "booking api error: status 502", st.SearchError)
	assert.False(t, st.IsSearching)
}

func TestSelectingSecondVehicleCancelsFirstOrder(t *testing.T) {
	h := newHarness(t)
	h.searched(t)

	st := h.selected(t, "A")
	require.Equal(t, "O1", st.OrderID)
	assert.Equal(t, StepDriverData, st.CurrentStep)
	assert.Equal(t, StepSelectVehicle, st.MaxCompletedStep)

	st = h.selected(t, "B")

	assert.Equal(t, []string{"search", "create:A", "cancel:O1", "create:B"}, h.api.Calls())
	assert.Equal(t, "O2", st.OrderID)
	assert.Equal(t, "B", st.SelectedVehicle.ID)
}

func TestCancelFailureDoesNotBlockNewOrder(t *testing.T) {
	h := newHarness(t)
	h.searched(t)
	h.selected(t, "A")
	h.api.cancelErr = errors.New("cancel rejected")

	st := h.selected(t, "B")

	assert.Equal(t, "O2", st.OrderID)
	assert.Equal(t, 1, h.api.count("cancel:O1"))
}

func TestCreateOrderFailure(t *testing.T) {
	h := newHarness(t)
	h.searched(t)
	h.api.createErr = errors.New("vehicle no longer available")

	st, err := h.o.SelectVehicle(context.Background(), "A")

	require.NoError(t, err)
	assert.Equal(t, "vehicle no longer available", st.OrderError)
	assert.Nil(t, st.SelectedVehicle)
	assert.Empty(t, st.OrderID)
	assert.Equal(t, StepSearch, st.MaxCompletedStep)
	assert.False(t, st.IsCreatingOrder)
}

func TestSelectUnknownVehicle(t *testing.T) {
	h := newHarness(t)
	h.searched(t)

	_, err := h.o.SelectVehicle(context.Background(), "Z")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestSelectVehicleWithoutSearch(t *testing.T) {
	h := newHarness(t)
	st, err := h.o.SelectVehicle(context.Background(), "A")

	require.NoError(t, err)
	assert.Equal(t, MsgMissingSearch, st.OrderError)
	assert.Empty(t, h.api.Calls())
}

func TestNewSearchCancelsLiveOrder(t *testing.T) {
	h := newHarness(t)
	h.searched(t)
	h.selected(t, "A")
	_, err := h.o.UpdateDriver(context.Background(), 0, "first_name", "Ana")
	require.NoError(t, err)

	st := h.o.Search(context.Background(), defaultSearch)

	assert.Equal(t, 1, h.api.count("cancel:O1"))
	assert.Empty(t, st.OrderID)
	assert.Nil(t, st.SelectedVehicle)
	assert.Equal(t, []Driver{EmptyDriver()}, st.Drivers)
	assert.Equal(t, StepSelectVehicle, st.CurrentStep)
}

func TestStoredDriversAreRestoredForOrder(t *testing.T) {
	h := newHarness(t)
	stored := []Driver{completeDriver()}
	require.NoError(t, h.store.Save(context.Background(), "O1", stored))
	h.searched(t)

	st := h.selected(t, "A")

	assert.Equal(t, stored, st.Drivers)
}

func TestDriverEditsArePersisted(t *testing.T) {
	h := newHarness(t)
	h.searched(t)
	h.selected(t, "A")

	_, err := h.o.UpdateDriver(context.Background(), 0, "city", "Basel")
	require.NoError(t, err)

	got, err := h.store.Load(context.Background(), "O1")
	require.NoError(t, err)
	assert.Equal(t, "Basel", got[0].City)

	_, err = h.o.UpdateDriver(context.Background(), 0, "shoe_size", "42")
	assert.True(t, errors.Is(err, ErrValidation))
	_, err = h.o.UpdateDriver(context.Background(), 5, "city", "Basel")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestSubmitDriversValidation(t *testing.T) {
	h := newHarness(t)
	h.searched(t)
	h.selected(t, "A")

	st, err := h.o.SubmitDrivers(context.Background())

	ve, ok := AsValidationError(err)
	require.True(t, ok)
	assert.Equal(t, MsgRequired, ve.Fields["0_first_name"])
	assert.Equal(t, StepDriverData, st.CurrentStep)
	assert.Empty(t, st.CalculatedInsurances)
}

func TestSubmitDriversRequiresOrder(t *testing.T) {
	h := newHarness(t)
	_, err := h.o.SubmitDrivers(context.Background())
	assert.True(t, errors.Is(err, ErrInvalidState))
}

func TestInsuranceSelection(t *testing.T) {
	h := newHarness(t)
	h.searched(t)
	h.selected(t, "A")
	h.o.Session().Dispatch(SetDrivers{Drivers: []Driver{completeDriver()}})
	st, err := h.o.SubmitDrivers(context.Background())
	require.NoError(t, err)

	ids := make([]int, 0, len(st.CalculatedInsurances))
	for _, c := range st.CalculatedInsurances {
		ids = append(ids, c.Option.ID)
	}
	assert.Equal(t, []int{1001, 1003, 1006}, ids)

	st, err = h.o.SelectInsurance(context.Background(), 1003)
	require.NoError(t, err)
	assert.Equal(t, 1003, st.SelectedInsurance)

	_, err = h.o.SelectInsurance(context.Background(), 1002)
	assert.True(t, errors.Is(err, ErrValidation))

	// a head driver change that drops the selected option reselects the default
	st, err = h.o.UpdateDriver(context.Background(), 0, "license_from", "2024-01-01")
	require.NoError(t, err)
	assert.Equal(t, 1001, st.SelectedInsurance)
}

func TestConfirmCashRetriesOnce(t *testing.T) {
	h := newHarness(t)
	h.readyToConfirm(t, PaymentCash)
	h.api.confirmErrs = []error{errors.New("timeout")}

	st := h.o.Confirm(context.Background())

	assert.Equal(t, 2, h.api.count("confirm:"))
	assert.Equal(t, 1, h.api.count("update:O1:1001"))
	assert.True(t, st.OrderConfirmed)
	assert.Equal(t, StepConfirm, st.MaxCompletedStep)
	assert.Empty(t, st.ConfirmationError)
	assert.False(t, st.IsConfirmingOrder)
	assert.False(t, st.IsUpdatingOrder)
	assert.Equal(t, []time.Duration{500 * time.Millisecond, time.Second}, h.sleeps)
}

func TestConfirmFailsAfterSecondAttempt(t *testing.T) {
	h := newHarness(t)
	h.readyToConfirm(t, PaymentCash)
	h.api.confirmErrs = []error{errors.New("timeout"), errors.New("still failing")}

	st := h.o.Confirm(context.Background())

	assert.Equal(t, 2, h.api.count("confirm:"))
	assert.False(t, st.OrderConfirmed)
	assert.Equal(t, "still failing", st.ConfirmationError)
	assert.False(t, st.IsConfirmingOrder)
	assert.False(t, st.IsUpdatingOrder)
}

func TestConfirmAbortsWhenInsuranceUpdateFails(t *testing.T) {
	h := newHarness(t)
	h.readyToConfirm(t, PaymentCash)
	h.api.updateErr = errors.New("insurance rejected")

	st := h.o.Confirm(context.Background())

	assert.Zero(t, h.api.count("confirm:"))
	assert.Equal(t, "insurance rejected", st.ConfirmationError)
	assert.False(t, st.IsUpdatingOrder)
}

func TestConfirmCardRedirects(t *testing.T) {
	h := newHarness(t)
	h.readyToConfirm(t, PaymentCard)
	h.api.confirmRes = ConfirmResult{PaymentID: "P9", Status: "ok"}

	st := h.o.Confirm(context.Background())

	assert.Equal(t, "https://pay.rentsyst.com/?payment_id=P9", st.PaymentRedirect)
	assert.False(t, st.OrderConfirmed)
	assert.False(t, st.HasLiveDraft())

	// the handed-off order is not cancelled by a new search
	h.o.Search(context.Background(), defaultSearch)
	assert.Zero(t, h.api.count("cancel:"))
}

func TestConfirmCardWithoutPaymentID(t *testing.T) {
	h := newHarness(t)
	h.readyToConfirm(t, PaymentCard)

	st := h.o.Confirm(context.Background())

	assert.Equal(t, MsgPaymentIDMissing, st.ConfirmationError)
	assert.Equal(t, 1, h.api.count("confirm:"))
	assert.Empty(t, st.PaymentRedirect)
}

func TestConfirmPreconditions(t *testing.T) {
	h := newHarness(t)
	st := h.o.Confirm(context.Background())
	assert.Equal(t, MsgTermsRequired, st.ConfirmationError)

	h.o.Session().Dispatch(SetTermsAccepted{Accepted: true})
	st = h.o.Confirm(context.Background())
	assert.Equal(t, MsgMissingOrder, st.ConfirmationError)
	assert.Empty(t, h.api.Calls())
}

func TestConfirmEnforcesExtrasStep(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.searched(t)
	h.selected(t, "A")

	// Licence valid today but expiring within 30 days of pickup.
	d := completeDriver()
	d.LicenseTo = "2025-06-15"
	h.o.Session().Dispatch(SetDrivers{Drivers: []Driver{d}})

	st, err := h.o.SubmitDrivers(ctx)
	require.NoError(t, err)
	sel, ok := st.SelectedCalculated()
	require.True(t, ok)
	require.False(t, sel.Factors.IsValid)

	_, err = h.o.CompleteExtras(ctx)
	require.ErrorIs(t, err, ErrValidation)

	_, err = h.o.DispatchClient(ctx, SetTermsAccepted{Accepted: true})
	require.NoError(t, err)

	st = h.o.Confirm(ctx)
	assert.Equal(t, MsgExtrasIncomplete, st.ConfirmationError)
	assert.False(t, st.OrderConfirmed)
	assert.Equal(t, StepDriverData, st.MaxCompletedStep)

	// Even with step 4 marked complete the invalid option is not sent.
	h.o.Session().Dispatch(SetMaxCompletedStep{Step: StepExtras})
	st = h.o.Confirm(ctx)
	assert.Contains(t, st.ConfirmationError, "Selected insurance requires a valid driving license")
	assert.False(t, st.OrderConfirmed)
	assert.Equal(t, StepExtras, st.MaxCompletedStep)

	assert.Zero(t, h.api.count("update:"))
	assert.Zero(t, h.api.count("confirm:"))
}

func TestUploadLicensePhotos(t *testing.T) {
	h := newHarness(t)
	h.searched(t)
	h.selected(t, "A")
	h.api.uploadErr = map[string]error{"bad.jpg": errors.New("unsupported type")}

	st, err := h.o.UploadLicensePhotos(context.Background(), 0, []FileUpload{
		{Name: "front.jpg", Data: []byte("f")},
		{Name: "back.jpg", Data: []byte("b")},
		{Name: "bad.jpg", Data: []byte("x")},
	})
	require.NoError(t, err)

	assert.Len(t, st.UploadedFiles[0], 2)
	assert.ElementsMatch(t, []string{"101", "102"}, st.Drivers[0].LicensePhoto)
	assert.Empty(t, st.UploadingFiles)
	require.Len(t, st.UploadErrors, 1)
	for k, msg := range st.UploadErrors {
		assert.Regexp(t, `^0_\d+$`, k)
		assert.Equal(t, "unsupported type", msg)
	}

	st, err = h.o.RemoveUploadedFile(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.Len(t, st.UploadedFiles[0], 1)
	assert.Len(t, st.Drivers[0].LicensePhoto, 1)

	_, err = h.o.RemoveUploadedFile(context.Background(), 0, 9)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestRemoveDriverShiftsUploads(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.o.AddDriver(ctx)
	h.o.AddDriver(ctx)
	h.o.Session().Dispatch(
		AddUploadedFile{DriverIndex: 1, File: UploadedFile{ID: 1}},
		AddUploadedFile{DriverIndex: 2, File: UploadedFile{ID: 2}},
	)

	st, err := h.o.RemoveDriver(ctx, 1)
	require.NoError(t, err)

	assert.Len(t, st.Drivers, 2)
	assert.Equal(t, map[int][]UploadedFile{1: {{ID: 2}}}, st.UploadedFiles)
}

func TestResetBookingCancelsDraft(t *testing.T) {
	h := newHarness(t)
	h.o.LoadLocations(context.Background())
	h.searched(t)
	h.selected(t, "A")

	st := h.o.ResetBooking(context.Background())

	assert.Equal(t, 1, h.api.count("cancel:O1"))
	assert.Empty(t, st.OrderID)
	assert.Len(t, st.Locations, 2)
	assert.Equal(t, StepSearch, st.CurrentStep)
}

func TestAbandonCancelsOnlyLiveDrafts(t *testing.T) {
	h := newHarness(t)
	h.o.Abandon(context.Background())
	assert.Zero(t, h.api.count("cancel:"))

	h.searched(t)
	h.selected(t, "A")
	h.o.Abandon(context.Background())
	assert.Equal(t, 1, h.api.count("cancel:O1"))
	assert.Empty(t, h.o.State().OrderID)
}

func TestDispatchClientRejectsInternalActions(t *testing.T) {
	h := newHarness(t)
	_, err := h.o.DispatchClient(context.Background(), SetOrderID{OrderID: "forged"})
	assert.True(t, errors.Is(err, ErrForbidden))

	_, err = h.o.DispatchClient(context.Background(), SetPaymentMethod{Method: "barter"})
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestSummary(t *testing.T) {
	h := newHarness(t)
	h.readyToConfirm(t, PaymentCash)

	sum := h.o.Summary()

	assert.Equal(t, "EUR", sum.Currency)
	assert.Equal(t, 2, sum.RentalDays)
	assert.InDelta(t, 240.0, sum.VehiclePrice, 1e-9)
	assert.InDelta(t, 80.0, sum.InsurancePrice, 1e-9)
	assert.InDelta(t, 320.0, sum.Total, 1e-9)
}
