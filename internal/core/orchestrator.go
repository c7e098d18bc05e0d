package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	MsgMissingDates       = "Please fill in all date and time fields"
	MsgInvalidDates       = "Please enter valid dates and times"
	MsgReturnBeforePickup = "Return date must be after pickup date"
	MsgNoVehicles         = "No vehicles found for the selected dates"
	MsgMissingSearch      = "Missing search information. Please search again."
	MsgMissingLocation    = "Please select a pickup location"
	MsgExtrasIncomplete   = "Please complete the extras step first"
	MsgOrderIDMissing     = "Order ID not found in response"
	MsgTermsRequired      = "Please accept the Terms & Conditions to continue"
	MsgMissingOrder       = "Missing order information. Please go back and try again."
	MsgPaymentIDMissing   = "Payment ID not received. Please contact support."

	defaultSearchTime    = "09:00"
	defaultCurrency      = "CHF"
	maxParallelUploads   = 4
	defaultCountriesLang = "EN"
)

type OrchestratorOptions struct {
	// ConfirmRetryDelay is the pause before the single confirm retry.
	ConfirmRetryDelay time.Duration
	// SettleDelay is the pause between attaching insurance and confirming.
	SettleDelay time.Duration
	PaymentURL  string
}

func DefaultOrchestratorOptions() OrchestratorOptions {
	return OrchestratorOptions{
		ConfirmRetryDelay: time.Second,
		SettleDelay:       500 * time.Millisecond,
		PaymentURL:        "https://pay.rentsyst.com/",
	}
}

type OrchestratorDeps struct {
	API     OrderAPI
	Drivers DriverInfoStore
	Catalog CatalogSource
	Logger  *slog.Logger
	Clock   func() time.Time
	Sleep   func(ctx context.Context, d time.Duration) error
	Options OrchestratorOptions
}

// Orchestrator sequences booking API calls around state transitions of one
// session. Network failures are recorded on the state; returned errors are
// local validation or navigation failures only.
type Orchestrator struct {
	session *BookingSession
	wizard  *Wizard
	api     OrderAPI
	drivers DriverInfoStore
	catalog CatalogSource
	log     *slog.Logger
	clock   func() time.Time
	sleep   func(ctx context.Context, d time.Duration) error
	opts    OrchestratorOptions

	// orderMu serializes operations that create, cancel or confirm orders.
	orderMu   sync.Mutex
	uploadSeq atomic.Int64
}

func NewOrchestrator(session *BookingSession, deps OrchestratorDeps) *Orchestrator {
	o := &Orchestrator{
		session: session,
		api:     deps.API,
		drivers: deps.Drivers,
		catalog: deps.Catalog,
		log:     deps.Logger,
		clock:   deps.Clock,
		sleep:   deps.Sleep,
		opts:    deps.Options,
	}
	if o.log == nil {
		o.log = slog.Default()
	}
	o.log = o.log.With("session_id", session.ID)
	if o.clock == nil {
		o.clock = time.Now
	}
	if o.sleep == nil {
		o.sleep = sleepContext
	}
	if o.catalog == nil {
		o.catalog = StaticCatalog(DefaultCatalog())
	}
	if o.opts.PaymentURL == "" {
		o.opts.PaymentURL = DefaultOrchestratorOptions().PaymentURL
	}
	o.wizard = NewWizard(session, o.clock)
	return o
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (o *Orchestrator) Session() *BookingSession { return o.session }
func (o *Orchestrator) Wizard() *Wizard          { return o.wizard }
func (o *Orchestrator) State() BookingState      { return o.session.State() }

// LoadLocations fetches pickup locations once and preselects the first one.
func (o *Orchestrator) LoadLocations(ctx context.Context) BookingState {
	if st := o.session.State(); len(st.Locations) > 0 {
		return st
	}
	o.session.Dispatch(SetLoadingLocations{Loading: true})

	locs, err := o.api.GetLocations(ctx)
	if err != nil {
		o.log.Warn("load locations failed", "err", err)
		return o.session.Dispatch(SetLoadingLocations{Loading: false})
	}
	return o.session.Apply(func(s BookingState) []Action {
		acts := []Action{SetLocations{Locations: locs}}
		if s.SelectedLocation == "" && len(locs) > 0 {
			acts = append(acts, SetSelectedLocation{LocationID: strconv.Itoa(locs[0].ID)})
		}
		return append(acts, SetLoadingLocations{Loading: false})
	})
}

func (o *Orchestrator) Countries(ctx context.Context, lang string) ([]Country, error) {
	if lang == "" {
		lang = defaultCountriesLang
	}
	return o.api.GetCountries(ctx, lang)
}

type SearchInput struct {
	DateFrom       string `json:"date_from"`
	TimeFrom       string `json:"time_from"`
	DateTo         string `json:"date_to"`
	TimeTo         string `json:"time_to"`
	PickupLocation string `json:"pickup_location"`
	ReturnLocation string `json:"return_location"`
}

func parseDateTime(date, clock string) (time.Time, bool) {
	if strings.TrimSpace(clock) == "" {
		clock = defaultSearchTime
	}
	v := strings.TrimSpace(date) + " " + strings.TrimSpace(clock)
	for _, layout := range []string{"2006-01-02 15:04", DateTimeLayout} {
		if t, err := time.Parse(layout, v); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Criteria resolves the input into search criteria or a user-facing message.
func (in SearchInput) Criteria() (SearchCriteria, string) {
	if strings.TrimSpace(in.DateFrom) == "" || strings.TrimSpace(in.DateTo) == "" {
		return SearchCriteria{}, MsgMissingDates
	}
	from, ok1 := parseDateTime(in.DateFrom, in.TimeFrom)
	to, ok2 := parseDateTime(in.DateTo, in.TimeTo)
	if !ok1 || !ok2 {
		return SearchCriteria{}, MsgInvalidDates
	}
	if !to.After(from) {
		return SearchCriteria{}, MsgReturnBeforePickup
	}
	ret := in.ReturnLocation
	if ret == "" {
		ret = in.PickupLocation
	}
	return SearchCriteria{
		PickupLocation: in.PickupLocation,
		ReturnLocation: ret,
		PickupAt:       from,
		ReturnAt:       to,
	}, ""
}

// Search runs a vehicle search. A live draft order is cancelled and every
// downstream selection cleared before the new search starts.
func (o *Orchestrator) Search(ctx context.Context, in SearchInput) BookingState {
	st := o.session.State()
	if in.PickupLocation == "" {
		in.PickupLocation = st.SelectedLocation
	}
	crit, msg := in.Criteria()
	if msg == "" && crit.PickupLocation == "" {
		msg = MsgMissingLocation
	}
	if msg != "" {
		return o.session.Dispatch(SetSearchError{Message: msg})
	}

	o.orderMu.Lock()
	defer o.orderMu.Unlock()

	st = o.session.State()
	if st.OrderID != "" {
		if st.HasLiveDraft() {
			o.cancelDraft(ctx, st.OrderID)
		}
		o.session.Dispatch(StartNewSearch{})
	}

	o.session.Dispatch(
		SetStep{Step: StepSearch},
		SetSearchDates{Criteria: crit},
		SetSelectedLocation{LocationID: crit.PickupLocation},
		SetSearchError{},
		SetIsSearching{Searching: true},
		SetVehicles{},
	)
	func() {
		defer o.session.Dispatch(SetIsSearching{Searching: false})
		o.runSearch(ctx, crit)
	}()
	return o.session.State()
}

func (o *Orchestrator) runSearch(ctx context.Context, crit SearchCriteria) {
	res, err := o.api.SearchVehicles(ctx, SearchQuery{
		DateFrom:       crit.PickupAt.Format(DateTimeLayout),
		DateTo:         crit.ReturnAt.Format(DateTimeLayout),
		PickupLocation: crit.PickupLocation,
		ReturnLocation: crit.ReturnLocation,
	})
	if err != nil {
		o.log.Warn("vehicle search failed", "err", err)
		o.session.Dispatch(SetSearchError{Message: err.Error()})
		return
	}
	if len(res.Vehicles) == 0 {
		o.session.Dispatch(
			SetVehicles{Vehicles: []Vehicle{}},
			SetSearchError{Message: MsgNoVehicles},
		)
		return
	}
	o.session.Dispatch(
		SetVehicles{Vehicles: res.Vehicles},
		SetMaxCompletedStep{Step: StepSearch},
		SetStep{Step: StepSelectVehicle},
	)
}

// SelectVehicle creates a draft order for one of the found vehicles. Any
// order already held is cancelled first and forgotten even when the cancel
// call fails.
func (o *Orchestrator) SelectVehicle(ctx context.Context, vehicleID string) (BookingState, error) {
	o.orderMu.Lock()
	defer o.orderMu.Unlock()

	st := o.session.State()
	if st.OrderConfirmed || st.PaymentRedirect != "" {
		return st, fmt.Errorf("%w: booking already confirmed, start a new search", ErrInvalidState)
	}
	if st.Search.IsZero() || st.SelectedLocation == "" {
		return o.session.Dispatch(SetOrderError{Message: MsgMissingSearch}), nil
	}
	idx := slices.IndexFunc(st.Vehicles, func(v Vehicle) bool { return v.ID == vehicleID })
	if idx < 0 {
		return st, fmt.Errorf("%w: vehicle %q", ErrNotFound, vehicleID)
	}
	vehicle := st.Vehicles[idx]

	if st.OrderID != "" {
		o.cancelDraft(ctx, st.OrderID)
		o.session.Dispatch(SetOrderID{})
	}

	o.session.Dispatch(
		SetIsCreatingOrder{Creating: true},
		SetOrderError{},
		SetSelectedVehicle{Vehicle: &vehicle},
	)
	func() {
		defer o.session.Dispatch(SetIsCreatingOrder{Creating: false})
		o.createOrder(ctx, st, vehicle)
	}()
	next := o.session.State()
	o.persistDrivers(ctx, next)
	return next, nil
}

func (o *Orchestrator) createOrder(ctx context.Context, st BookingState, vehicle Vehicle) {
	ret := st.Search.ReturnLocation
	if ret == "" {
		ret = st.SelectedLocation
	}
	orderID, err := o.api.CreateOrder(ctx, CreateOrderRequest{
		VehicleID:      vehicle.ID,
		DateFrom:       st.Search.PickupAt.Format(DateTimeLayout),
		DateTo:         st.Search.ReturnAt.Format(DateTimeLayout),
		PickupLocation: st.SelectedLocation,
		ReturnLocation: ret,
	})
	if err == nil && orderID == "" {
		err = errors.New(MsgOrderIDMissing)
	}
	if err != nil {
		o.log.Warn("create order failed", "vehicle_id", vehicle.ID, "err", err)
		o.session.Dispatch(
			SetOrderError{Message: err.Error()},
			SetSelectedVehicle{},
		)
		return
	}
	o.log.Info("draft order created", "order_id", orderID, "vehicle_id", vehicle.ID)

	acts := []Action{SetOrderID{OrderID: orderID}}
	if stored := o.loadDrivers(ctx, orderID); len(stored) > 0 {
		acts = append(acts, SetDrivers{Drivers: stored})
	}
	acts = append(acts, SetMaxCompletedStep{Step: StepSelectVehicle}, SetStep{Step: StepDriverData})
	o.session.Dispatch(acts...)
}

func (o *Orchestrator) cancelDraft(ctx context.Context, orderID string) {
	if err := o.api.CancelOrder(ctx, orderID); err != nil {
		o.log.Warn("cancel draft order failed", "order_id", orderID, "err", err)
		return
	}
	o.log.Info("draft order cancelled", "order_id", orderID)
}

func (o *Orchestrator) loadDrivers(ctx context.Context, orderID string) []Driver {
	if o.drivers == nil {
		return nil
	}
	drivers, err := o.drivers.Load(ctx, orderID)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			o.log.Warn("load stored drivers failed", "order_id", orderID, "err", err)
		}
		return nil
	}
	return drivers
}

func (o *Orchestrator) persistDrivers(ctx context.Context, s BookingState) {
	if o.drivers == nil || s.OrderID == "" || len(s.Drivers) == 0 {
		return
	}
	if err := o.drivers.Save(ctx, s.OrderID, s.Drivers); err != nil {
		o.log.Warn("persist drivers failed", "order_id", s.OrderID, "err", err)
	}
}

func (o *Orchestrator) UpdateDriver(ctx context.Context, index int, field, value string) (BookingState, error) {
	var verr error
	next := o.session.Apply(func(s BookingState) []Action {
		if index < 0 || index >= len(s.Drivers) {
			verr = fmt.Errorf("%w: driver %d does not exist", ErrNotFound, index)
			return nil
		}
		probe := s.Drivers[index]
		if !probe.SetField(field, value) {
			verr = fmt.Errorf("%w: unknown driver field %q", ErrValidation, field)
			return nil
		}
		return []Action{UpdateDriver{Index: index, Field: field, Value: value}}
	})
	if verr != nil {
		return next, verr
	}
	o.persistDrivers(ctx, next)
	if index == 0 && len(next.CalculatedInsurances) > 0 {
		next = o.RecalculateInsurance(ctx)
	}
	return next, nil
}

func (o *Orchestrator) AddDriver(ctx context.Context) BookingState {
	next := o.session.Dispatch(AddDriver{})
	o.persistDrivers(ctx, next)
	return next
}

// RemoveDriver drops a driver and shifts upload bookkeeping of the drivers
// after it. The head driver of a single-driver booking cannot be removed.
func (o *Orchestrator) RemoveDriver(ctx context.Context, index int) (BookingState, error) {
	var verr error
	next := o.session.Apply(func(s BookingState) []Action {
		if index < 0 || index >= len(s.Drivers) {
			verr = fmt.Errorf("%w: driver %d does not exist", ErrNotFound, index)
			return nil
		}
		if len(s.Drivers) <= 1 {
			return nil
		}
		files := make(map[int][]UploadedFile, len(s.UploadedFiles))
		for i, f := range s.UploadedFiles {
			switch {
			case i < index:
				files[i] = f
			case i > index:
				files[i-1] = f
			}
		}
		return []Action{RemoveDriver{Index: index}, SetUploadedFiles{Files: files}}
	})
	if verr != nil {
		return next, verr
	}
	o.persistDrivers(ctx, next)
	if index == 0 && len(next.CalculatedInsurances) > 0 {
		next = o.RecalculateInsurance(ctx)
	}
	return next, nil
}

// UploadLicensePhotos uploads files for one driver concurrently. Each file
// is tracked under its own "{driverIndex}_{sequence}" key.
func (o *Orchestrator) UploadLicensePhotos(ctx context.Context, driverIndex int, files []FileUpload) (BookingState, error) {
	st := o.session.State()
	if driverIndex < 0 || driverIndex >= len(st.Drivers) {
		return st, fmt.Errorf("%w: driver %d does not exist", ErrNotFound, driverIndex)
	}
	if len(files) == 0 {
		return st, fmt.Errorf("%w: no file provided", ErrValidation)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelUploads)
	for _, f := range files {
		f := f
		key := fmt.Sprintf("%d_%d", driverIndex, o.uploadSeq.Add(1))
		o.session.Dispatch(
			SetUploadingFile{Key: key, Uploading: true},
			SetUploadError{Key: key},
		)
		g.Go(func() error {
			o.uploadOne(gctx, driverIndex, key, f)
			return nil
		})
	}
	_ = g.Wait()

	next := o.session.State()
	o.persistDrivers(ctx, next)
	return next, nil
}

func (o *Orchestrator) uploadOne(ctx context.Context, driverIndex int, key string, f FileUpload) {
	res, err := o.api.UploadFile(ctx, f)
	if err != nil {
		o.log.Warn("license photo upload failed", "key", key, "file", f.Name, "err", err)
		o.session.Dispatch(
			SetUploadError{Key: key, Message: err.Error()},
			SetUploadingFile{Key: key, Uploading: false},
		)
		return
	}
	o.session.Apply(func(s BookingState) []Action {
		acts := []Action{}
		if driverIndex < len(s.Drivers) {
			photos := append(slices.Clone(s.Drivers[driverIndex].LicensePhoto), strconv.Itoa(res.ID))
			acts = append(acts,
				AddUploadedFile{DriverIndex: driverIndex, File: UploadedFile{ID: res.ID, URL: res.URL, Status: res.Status, Name: f.Name}},
				UpdateDriver{Index: driverIndex, Field: "license_photo", Photos: photos},
			)
		}
		return append(acts, SetUploadingFile{Key: key, Uploading: false})
	})
}

func (o *Orchestrator) RemoveUploadedFile(ctx context.Context, driverIndex, fileIndex int) (BookingState, error) {
	var verr error
	next := o.session.Apply(func(s BookingState) []Action {
		files := s.UploadedFiles[driverIndex]
		if fileIndex < 0 || fileIndex >= len(files) || driverIndex >= len(s.Drivers) {
			verr = fmt.Errorf("%w: uploaded file %d for driver %d", ErrNotFound, fileIndex, driverIndex)
			return nil
		}
		id := strconv.Itoa(files[fileIndex].ID)
		photos := slices.DeleteFunc(slices.Clone(s.Drivers[driverIndex].LicensePhoto), func(p string) bool { return p == id })
		return []Action{
			RemoveUploadedFile{DriverIndex: driverIndex, FileIndex: fileIndex},
			UpdateDriver{Index: driverIndex, Field: "license_photo", Photos: photos},
		}
	})
	if verr != nil {
		return next, verr
	}
	o.persistDrivers(ctx, next)
	return next, nil
}

// SubmitDrivers validates every driver, stores the list against the order,
// prices insurance for the head driver and advances to extras.
func (o *Orchestrator) SubmitDrivers(ctx context.Context) (BookingState, error) {
	st := o.session.State()
	if st.OrderID == "" || st.MaxCompletedStep < StepSelectVehicle {
		return st, fmt.Errorf("%w: select a vehicle first", ErrInvalidState)
	}
	if fields := ValidateDrivers(st.Drivers, o.clock()); fields != nil {
		return st, &ValidationError{Fields: fields}
	}
	o.persistDrivers(ctx, st)
	o.RecalculateInsurance(ctx)
	return o.session.Dispatch(
		SetMaxCompletedStep{Step: StepDriverData},
		SetStep{Step: StepExtras},
	), nil
}

// RecalculateInsurance prices the catalog for the head driver. A selection
// that is no longer offered is replaced by the checked option or the first one.
func (o *Orchestrator) RecalculateInsurance(ctx context.Context) BookingState {
	st := o.session.State()
	head := st.HeadDriver()
	if st.Search.IsZero() || head.Birthday == "" || head.LicenseFrom == "" {
		return st
	}

	catalog, err := o.catalog.Options(ctx)
	if err != nil || len(catalog) == 0 {
		if err != nil {
			o.log.Warn("insurance catalog unavailable, using defaults", "err", err)
		}
		catalog = DefaultCatalog()
	}
	days := RentalDays(st.Search.PickupAt, st.Search.ReturnAt)
	calculated := CalculateAllPremiums(catalog, head, st.Search.PickupAt, days)

	return o.session.Apply(func(s BookingState) []Action {
		acts := []Action{SetCalculatedInsurances{Items: calculated}}
		current := slices.IndexFunc(calculated, func(c CalculatedInsurance) bool { return c.Option.ID == s.SelectedInsurance })
		if current < 0 && len(calculated) > 0 {
			def := calculated[0]
			if i := slices.IndexFunc(calculated, func(c CalculatedInsurance) bool { return c.Option.Checked }); i >= 0 {
				def = calculated[i]
			}
			acts = append(acts, SetSelectedInsurance{ID: def.Option.ID})
		}
		return acts
	})
}

func (o *Orchestrator) SelectInsurance(ctx context.Context, id int) (BookingState, error) {
	var verr error
	next := o.session.Apply(func(s BookingState) []Action {
		i := slices.IndexFunc(s.CalculatedInsurances, func(c CalculatedInsurance) bool { return c.Option.ID == id })
		if i < 0 {
			verr = fmt.Errorf("%w: insurance option %d is not available", ErrValidation, id)
			return nil
		}
		if !s.CalculatedInsurances[i].Factors.IsValid {
			verr = fmt.Errorf("%w: insurance option %d requires a valid driving license", ErrValidation, id)
			return nil
		}
		return []Action{SetSelectedInsurance{ID: id}}
	})
	return next, verr
}

func (o *Orchestrator) CompleteExtras(ctx context.Context) (BookingState, error) {
	st := o.session.State()
	if st.MaxCompletedStep < StepDriverData {
		return st, fmt.Errorf("%w: driver data is not complete", ErrInvalidState)
	}
	if v := ValidateStep(st, StepExtras, o.clock()); !v.IsValid {
		return st, fmt.Errorf("%w: %s", ErrValidation, strings.Join(v.Errors, "; "))
	}
	return o.session.Dispatch(
		SetMaxCompletedStep{Step: StepExtras},
		SetStep{Step: StepConfirm},
	), nil
}

// Confirm attaches the selected insurance to the order and confirms it. A
// failed update aborts. The confirm call is retried once after a fixed delay.
func (o *Orchestrator) Confirm(ctx context.Context) BookingState {
	o.orderMu.Lock()
	defer o.orderMu.Unlock()

	st := o.session.State()
	if !st.TermsAccepted {
		return o.session.Dispatch(SetConfirmationError{Message: MsgTermsRequired})
	}
	if st.OrderID == "" || st.SelectedInsurance == 0 {
		return o.session.Dispatch(SetConfirmationError{Message: MsgMissingOrder})
	}
	if st.OrderConfirmed || st.PaymentRedirect != "" {
		return st
	}
	if st.MaxCompletedStep < StepExtras {
		return o.session.Dispatch(SetConfirmationError{Message: MsgExtrasIncomplete})
	}
	now := o.clock()
	for _, n := range []Step{StepExtras, StepConfirm} {
		if v := ValidateStep(st, n, now); !v.IsValid {
			return o.session.Dispatch(SetConfirmationError{Message: strings.Join(v.Errors, "; ")})
		}
	}

	o.session.Dispatch(
		SetConfirmationError{},
		SetIsUpdatingOrder{Updating: true},
	)
	func() {
		defer o.session.Dispatch(
			SetIsUpdatingOrder{Updating: false},
			SetIsConfirmingOrder{Confirming: false},
		)
		o.confirm(ctx, st)
	}()
	return o.session.State()
}

func (o *Orchestrator) confirm(ctx context.Context, st BookingState) {
	fail := func(err error) {
		o.session.Dispatch(SetConfirmationError{Message: err.Error()})
	}

	if err := o.api.UpdateOrder(ctx, st.OrderID, st.SelectedInsurance); err != nil {
		o.log.Warn("attach insurance failed", "order_id", st.OrderID, "insurance_id", st.SelectedInsurance, "err", err)
		fail(err)
		return
	}
	if err := o.sleep(ctx, o.opts.SettleDelay); err != nil {
		fail(err)
		return
	}

	o.session.Dispatch(SetIsConfirmingOrder{Confirming: true})
	res, err := o.api.ConfirmOrder(ctx, st.OrderID, st.Drivers, st.PaymentMethod)
	if err != nil {
		o.log.Warn("confirm order failed, retrying", "order_id", st.OrderID, "err", err)
		if serr := o.sleep(ctx, o.opts.ConfirmRetryDelay); serr != nil {
			fail(serr)
			return
		}
		res, err = o.api.ConfirmOrder(ctx, st.OrderID, st.Drivers, st.PaymentMethod)
	}
	if err != nil {
		o.log.Error("confirm order failed after retry", "order_id", st.OrderID, "err", err)
		fail(err)
		return
	}

	if st.PaymentMethod == PaymentCard {
		if res.PaymentID == "" {
			o.log.Error("card payment confirmed without payment id", "order_id", st.OrderID, "status", res.Status)
			o.session.Dispatch(SetConfirmationError{Message: MsgPaymentIDMissing})
			return
		}
		o.log.Info("order confirmed, redirecting to payment", "order_id", st.OrderID, "payment_id", res.PaymentID)
		o.session.Dispatch(SetPaymentRedirect{URL: o.paymentURL(res.PaymentID)})
		return
	}

	o.log.Info("order confirmed", "order_id", st.OrderID, "payment_method", st.PaymentMethod, "unique_number", res.UniqueNumber)
	o.session.Dispatch(
		SetOrderConfirmed{Confirmed: true},
		SetMaxCompletedStep{Step: StepConfirm},
	)
}

func (o *Orchestrator) paymentURL(paymentID string) string {
	u, err := url.Parse(o.opts.PaymentURL)
	if err != nil {
		return o.opts.PaymentURL + "?payment_id=" + url.QueryEscape(paymentID)
	}
	q := u.Query()
	q.Set("payment_id", paymentID)
	u.RawQuery = q.Encode()
	return u.String()
}

// StartNewSearch cancels a live draft and clears everything after search.
func (o *Orchestrator) StartNewSearch(ctx context.Context) BookingState {
	o.orderMu.Lock()
	defer o.orderMu.Unlock()
	if st := o.session.State(); st.HasLiveDraft() {
		o.cancelDraft(ctx, st.OrderID)
	}
	return o.session.Dispatch(StartNewSearch{})
}

// ResetBooking cancels a live draft and returns to the initial state,
// keeping the fetched locations.
func (o *Orchestrator) ResetBooking(ctx context.Context) BookingState {
	o.orderMu.Lock()
	defer o.orderMu.Unlock()
	if st := o.session.State(); st.HasLiveDraft() {
		o.cancelDraft(ctx, st.OrderID)
	}
	return o.session.Dispatch(ResetBooking{})
}

// Abandon releases the remote draft of a session that is being discarded.
func (o *Orchestrator) Abandon(ctx context.Context) {
	o.orderMu.Lock()
	defer o.orderMu.Unlock()
	if st := o.session.State(); st.HasLiveDraft() {
		o.cancelDraft(ctx, st.OrderID)
		o.session.Dispatch(SetOrderID{})
	}
}

// DispatchClient applies an action sent by a UI. Driver edits are routed
// through the orchestrator so they are persisted.
func (o *Orchestrator) DispatchClient(ctx context.Context, a Action) (BookingState, error) {
	if a == nil || !IsClientAction(a.Type()) {
		return o.session.State(), fmt.Errorf("%w: action cannot be dispatched directly", ErrForbidden)
	}
	switch a := a.(type) {
	case UpdateDriver:
		if a.Field == "license_photo" {
			return o.session.State(), fmt.Errorf("%w: license photos are managed by uploads", ErrForbidden)
		}
		return o.UpdateDriver(ctx, a.Index, a.Field, a.Value)
	case AddDriver:
		return o.AddDriver(ctx), nil
	case RemoveDriver:
		return o.RemoveDriver(ctx, a.Index)
	case SetPaymentMethod:
		if !a.Method.Valid() {
			return o.session.State(), fmt.Errorf("%w: unknown payment method %q", ErrValidation, a.Method)
		}
	}
	return o.session.Dispatch(a), nil
}

type BookingSummary struct {
	Vehicle        *Vehicle             `json:"vehicle,omitempty"`
	VehiclePrice   float64              `json:"vehicle_price"`
	Insurance      *CalculatedInsurance `json:"insurance,omitempty"`
	InsurancePrice float64              `json:"insurance_price"`
	Total          float64              `json:"total"`
	Currency       string               `json:"currency"`
	RentalDays     int                  `json:"rental_days"`
	Drivers        int                  `json:"drivers"`
	PaymentMethod  PaymentMethod        `json:"payment_method"`
}

// Summary totals the vehicle and insurance prices for the confirm step.
func (o *Orchestrator) Summary() BookingSummary {
	return Summarize(o.session.State())
}

func Summarize(s BookingState) BookingSummary {
	sum := BookingSummary{
		Currency:      defaultCurrency,
		Drivers:       len(s.Drivers),
		PaymentMethod: s.PaymentMethod,
	}
	if !s.Search.IsZero() {
		sum.RentalDays = RentalDays(s.Search.PickupAt, s.Search.ReturnAt)
	}
	if s.SelectedVehicle != nil {
		v := *s.SelectedVehicle
		sum.Vehicle = &v
		sum.VehiclePrice = parseAmount(v.TotalPrice)
		if v.Currency != "" {
			sum.Currency = v.Currency
		}
	}
	if c, ok := s.SelectedCalculated(); ok {
		sum.Insurance = &c
		sum.InsurancePrice = c.CalculatedPrice
	}
	sum.Total = round2(sum.VehiclePrice + sum.InsurancePrice)
	return sum
}
