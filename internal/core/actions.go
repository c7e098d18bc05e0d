package core

import (
	"encoding/json"
	"fmt"
	"slices"
)

type ActionType string

const (
	ActionSetStep                 ActionType = "SET_STEP"
	ActionSetMaxCompletedStep     ActionType = "SET_MAX_COMPLETED_STEP"
	ActionSetLocations            ActionType = "SET_LOCATIONS"
	ActionSetLoadingLocations     ActionType = "SET_LOADING_LOCATIONS"
	ActionSetSelectedLocation     ActionType = "SET_SELECTED_LOCATION"
	ActionSetSearchDates          ActionType = "SET_SEARCH_DATES"
	ActionSetSearchError          ActionType = "SET_SEARCH_ERROR"
	ActionSetIsSearching          ActionType = "SET_IS_SEARCHING"
	ActionSetVehicles             ActionType = "SET_VEHICLES"
	ActionSetSelectedVehicle      ActionType = "SET_SELECTED_VEHICLE"
	ActionSetOrderID              ActionType = "SET_ORDER_ID"
	ActionSetOrderError           ActionType = "SET_ORDER_ERROR"
	ActionSetIsCreatingOrder      ActionType = "SET_IS_CREATING_ORDER"
	ActionSetDrivers              ActionType = "SET_DRIVERS"
	ActionUpdateDriver            ActionType = "UPDATE_DRIVER"
	ActionAddDriver               ActionType = "ADD_DRIVER"
	ActionRemoveDriver            ActionType = "REMOVE_DRIVER"
	ActionSetUploadingFile        ActionType = "SET_UPLOADING_FILE"
	ActionSetUploadedFiles        ActionType = "SET_UPLOADED_FILES"
	ActionAddUploadedFile         ActionType = "ADD_UPLOADED_FILE"
	ActionRemoveUploadedFile      ActionType = "REMOVE_UPLOADED_FILE"
	ActionSetUploadError          ActionType = "SET_UPLOAD_ERROR"
	ActionSetSelectedInsurance    ActionType = "SET_SELECTED_INSURANCE"
	ActionSetCalculatedInsurances ActionType = "SET_CALCULATED_INSURANCES"
	ActionSetTermsAccepted        ActionType = "SET_TERMS_ACCEPTED"
	ActionSetIsUpdatingOrder      ActionType = "SET_IS_UPDATING_ORDER"
	ActionSetIsConfirmingOrder    ActionType = "SET_IS_CONFIRMING_ORDER"
	ActionSetConfirmationError    ActionType = "SET_CONFIRMATION_ERROR"
	ActionSetOrderConfirmed       ActionType = "SET_ORDER_CONFIRMED"
	ActionSetPaymentMethod        ActionType = "SET_PAYMENT_METHOD"
	ActionSetPaymentRedirect      ActionType = "SET_PAYMENT_REDIRECT"
	ActionResetBooking            ActionType = "RESET_BOOKING"
	ActionStartNewSearch          ActionType = "START_NEW_SEARCH"
)

// Action is a named mutation of BookingState. Reduce is the only consumer.
type Action interface {
	Type() ActionType
}

type SetStep struct {
	Step Step `json:"step"`
}
type SetMaxCompletedStep struct {
	Step Step `json:"step"`
}
type SetLocations struct {
	Locations []Location `json:"locations"`
}
type SetLoadingLocations struct {
	Loading bool `json:"loading"`
}
type SetSelectedLocation struct {
	LocationID string `json:"location_id"`
}
type SetSearchDates struct {
	Criteria SearchCriteria `json:"criteria"`
}
type SetSearchError struct {
	Message string `json:"message"`
}
type SetIsSearching struct {
	Searching bool `json:"searching"`
}
type SetVehicles struct {
	Vehicles []Vehicle `json:"vehicles"`
}
type SetSelectedVehicle struct {
	Vehicle *Vehicle `json:"vehicle"`
}
type SetOrderID struct {
	OrderID string `json:"order_id"`
}
type SetOrderError struct {
	Message string `json:"message"`
}
type SetIsCreatingOrder struct {
	Creating bool `json:"creating"`
}
type SetDrivers struct {
	Drivers []Driver `json:"drivers"`
}

// UpdateDriver replaces one field of one driver. Photos is used when Field
// is license_photo, Value otherwise.
type UpdateDriver struct {
	Index  int      `json:"index"`
	Field  string   `json:"field"`
	Value  string   `json:"value"`
	Photos []string `json:"photos,omitempty"`
}
type AddDriver struct{}
type RemoveDriver struct {
	Index int `json:"index"`
}
type SetUploadingFile struct {
	Key       string `json:"key"`
	Uploading bool   `json:"uploading"`
}
type SetUploadedFiles struct {
	Files map[int][]UploadedFile `json:"files"`
}
type AddUploadedFile struct {
	DriverIndex int          `json:"driver_index"`
	File        UploadedFile `json:"file"`
}
type RemoveUploadedFile struct {
	DriverIndex int `json:"driver_index"`
	FileIndex   int `json:"file_index"`
}

// SetUploadError records an error for an upload key; an empty message clears it.
type SetUploadError struct {
	Key     string `json:"key"`
	Message string `json:"message"`
}
type SetSelectedInsurance struct {
	ID int `json:"id"`
}
type SetCalculatedInsurances struct {
	Items []CalculatedInsurance `json:"items"`
}
type SetTermsAccepted struct {
	Accepted bool `json:"accepted"`
}
type SetIsUpdatingOrder struct {
	Updating bool `json:"updating"`
}
type SetIsConfirmingOrder struct {
	Confirming bool `json:"confirming"`
}
type SetConfirmationError struct {
	Message string `json:"message"`
}
type SetOrderConfirmed struct {
	Confirmed bool `json:"confirmed"`
}
type SetPaymentMethod struct {
	Method PaymentMethod `json:"method"`
}
type SetPaymentRedirect struct {
	URL string `json:"url"`
}
type ResetBooking struct{}
type StartNewSearch struct{}

func (SetStep) Type() ActionType                 { return ActionSetStep }
func (SetMaxCompletedStep) Type() ActionType     { return ActionSetMaxCompletedStep }
func (SetLocations) Type() ActionType            { return ActionSetLocations }
func (SetLoadingLocations) Type() ActionType     { return ActionSetLoadingLocations }
func (SetSelectedLocation) Type() ActionType     { return ActionSetSelectedLocation }
func (SetSearchDates) Type() ActionType          { return ActionSetSearchDates }
func (SetSearchError) Type() ActionType          { return ActionSetSearchError }
func (SetIsSearching) Type() ActionType          { return ActionSetIsSearching }
func (SetVehicles) Type() ActionType             { return ActionSetVehicles }
func (SetSelectedVehicle) Type() ActionType      { return ActionSetSelectedVehicle }
func (SetOrderID) Type() ActionType              { return ActionSetOrderID }
func (SetOrderError) Type() ActionType           { return ActionSetOrderError }
func (SetIsCreatingOrder) Type() ActionType      { return ActionSetIsCreatingOrder }
func (SetDrivers) Type() ActionType              { return ActionSetDrivers }
func (UpdateDriver) Type() ActionType            { return ActionUpdateDriver }
func (AddDriver) Type() ActionType               { return ActionAddDriver }
func (RemoveDriver) Type() ActionType            { return ActionRemoveDriver }
func (SetUploadingFile) Type() ActionType        { return ActionSetUploadingFile }
func (SetUploadedFiles) Type() ActionType        { return ActionSetUploadedFiles }
func (AddUploadedFile) Type() ActionType         { return ActionAddUploadedFile }
func (RemoveUploadedFile) Type() ActionType      { return ActionRemoveUploadedFile }
func (SetUploadError) Type() ActionType          { return ActionSetUploadError }
func (SetSelectedInsurance) Type() ActionType    { return ActionSetSelectedInsurance }
func (SetCalculatedInsurances) Type() ActionType { return ActionSetCalculatedInsurances }
func (SetTermsAccepted) Type() ActionType        { return ActionSetTermsAccepted }
func (SetIsUpdatingOrder) Type() ActionType      { return ActionSetIsUpdatingOrder }
func (SetIsConfirmingOrder) Type() ActionType    { return ActionSetIsConfirmingOrder }
func (SetConfirmationError) Type() ActionType    { return ActionSetConfirmationError }
func (SetOrderConfirmed) Type() ActionType       { return ActionSetOrderConfirmed }
func (SetPaymentMethod) Type() ActionType        { return ActionSetPaymentMethod }
func (SetPaymentRedirect) Type() ActionType      { return ActionSetPaymentRedirect }
func (ResetBooking) Type() ActionType            { return ActionResetBooking }
func (StartNewSearch) Type() ActionType          { return ActionStartNewSearch }

type actionDecoder func(json.RawMessage) (Action, error)

func decodeAs[T Action](raw json.RawMessage) (Action, error) {
	var a T
	if len(raw) > 0 && string(raw) != "null" {
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil, err
		}
	}
	return a, nil
}

var actionDecoders = map[ActionType]actionDecoder{
	ActionSetStep:                 decodeAs[SetStep],
	ActionSetMaxCompletedStep:     decodeAs[SetMaxCompletedStep],
	ActionSetLocations:            decodeAs[SetLocations],
	ActionSetLoadingLocations:     decodeAs[SetLoadingLocations],
	ActionSetSelectedLocation:     decodeAs[SetSelectedLocation],
	ActionSetSearchDates:          decodeAs[SetSearchDates],
	ActionSetSearchError:          decodeAs[SetSearchError],
	ActionSetIsSearching:          decodeAs[SetIsSearching],
	ActionSetVehicles:             decodeAs[SetVehicles],
	ActionSetSelectedVehicle:      decodeAs[SetSelectedVehicle],
	ActionSetOrderID:              decodeAs[SetOrderID],
	ActionSetOrderError:           decodeAs[SetOrderError],
	ActionSetIsCreatingOrder:      decodeAs[SetIsCreatingOrder],
	ActionSetDrivers:              decodeAs[SetDrivers],
	ActionUpdateDriver:            decodeAs[UpdateDriver],
	ActionAddDriver:               decodeAs[AddDriver],
	ActionRemoveDriver:            decodeAs[RemoveDriver],
	ActionSetUploadingFile:        decodeAs[SetUploadingFile],
	ActionSetUploadedFiles:        decodeAs[SetUploadedFiles],
	ActionAddUploadedFile:         decodeAs[AddUploadedFile],
	ActionRemoveUploadedFile:      decodeAs[RemoveUploadedFile],
	ActionSetUploadError:          decodeAs[SetUploadError],
	ActionSetSelectedInsurance:    decodeAs[SetSelectedInsurance],
	ActionSetCalculatedInsurances: decodeAs[SetCalculatedInsurances],
	ActionSetTermsAccepted:        decodeAs[SetTermsAccepted],
	ActionSetIsUpdatingOrder:      decodeAs[SetIsUpdatingOrder],
	ActionSetIsConfirmingOrder:    decodeAs[SetIsConfirmingOrder],
	ActionSetConfirmationError:    decodeAs[SetConfirmationError],
	ActionSetOrderConfirmed:       decodeAs[SetOrderConfirmed],
	ActionSetPaymentMethod:        decodeAs[SetPaymentMethod],
	ActionSetPaymentRedirect:      decodeAs[SetPaymentRedirect],
	ActionResetBooking:            decodeAs[ResetBooking],
	ActionStartNewSearch:          decodeAs[StartNewSearch],
}

// clientActions may be dispatched directly by a UI. The rest are driven by
// the orchestrator so order lifecycle rules cannot be bypassed.
var clientActions = map[ActionType]bool{
	ActionSetSelectedLocation: true,
	ActionSetSearchDates:      true,
	ActionSetSearchError:      true,
	ActionUpdateDriver:        true,
	ActionAddDriver:           true,
	ActionRemoveDriver:        true,
	ActionSetUploadError:      true,
	ActionSetTermsAccepted:    true,
	ActionSetPaymentMethod:    true,
}

func IsClientAction(t ActionType) bool { return clientActions[t] }

// DecodeAction builds an action from its type name and JSON payload.
func DecodeAction(t ActionType, payload json.RawMessage) (Action, error) {
	dec, ok := actionDecoders[t]
	if !ok {
		return nil, fmt.Errorf("%w: unknown action %q", ErrValidation, t)
	}
	a, err := dec(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid %s payload: %v", ErrValidation, t, err)
	}
	return a, nil
}

// Reduce applies a to s and returns the next snapshot. It never mutates s
// and unknown actions return s unchanged.
func Reduce(s BookingState, a Action) BookingState {
	if _, ok := a.(RemoveDriver); ok && len(s.Drivers) <= 1 {
		return s
	}

	next := s.Clone()
	switch a := a.(type) {
	case SetStep:
		next.CurrentStep = a.Step
	case SetMaxCompletedStep:
		next.MaxCompletedStep = max(next.MaxCompletedStep, a.Step)
	case SetLocations:
		next.Locations = slices.Clone(a.Locations)
	case SetLoadingLocations:
		next.LoadingLocations = a.Loading
	case SetSelectedLocation:
		next.SelectedLocation = a.LocationID
	case SetSearchDates:
		next.Search = a.Criteria
	case SetSearchError:
		next.SearchError = a.Message
	case SetIsSearching:
		next.IsSearching = a.Searching
	case SetVehicles:
		next.Vehicles = slices.Clone(a.Vehicles)
	case SetSelectedVehicle:
		if a.Vehicle == nil {
			next.SelectedVehicle = nil
		} else {
			v := *a.Vehicle
			next.SelectedVehicle = &v
		}
	case SetOrderID:
		next.OrderID = a.OrderID
	case SetOrderError:
		next.OrderError = a.Message
	case SetIsCreatingOrder:
		next.IsCreatingOrder = a.Creating
	case SetDrivers:
		if len(a.Drivers) == 0 {
			return s
		}
		next.Drivers = make([]Driver, len(a.Drivers))
		for i, d := range a.Drivers {
			next.Drivers[i] = d.clone()
		}
	case UpdateDriver:
		if a.Index < 0 || a.Index >= len(next.Drivers) {
			return s
		}
		d := next.Drivers[a.Index]
		if a.Field == "license_photo" {
			d.LicensePhoto = slices.Clone(a.Photos)
		} else if !d.SetField(a.Field, a.Value) {
			return s
		}
		next.Drivers[a.Index] = d
	case AddDriver:
		next.Drivers = append(next.Drivers, EmptyDriver())
	case RemoveDriver:
		if a.Index < 0 || a.Index >= len(next.Drivers) {
			return s
		}
		next.Drivers = slices.Delete(next.Drivers, a.Index, a.Index+1)
	case SetUploadingFile:
		if next.UploadingFiles == nil {
			next.UploadingFiles = map[string]bool{}
		}
		if a.Uploading {
			next.UploadingFiles[a.Key] = true
		} else {
			delete(next.UploadingFiles, a.Key)
		}
	case SetUploadedFiles:
		next.UploadedFiles = make(map[int][]UploadedFile, len(a.Files))
		for k, v := range a.Files {
			next.UploadedFiles[k] = slices.Clone(v)
		}
	case AddUploadedFile:
		if next.UploadedFiles == nil {
			next.UploadedFiles = map[int][]UploadedFile{}
		}
		next.UploadedFiles[a.DriverIndex] = append(next.UploadedFiles[a.DriverIndex], a.File)
	case RemoveUploadedFile:
		files := next.UploadedFiles[a.DriverIndex]
		if a.FileIndex < 0 || a.FileIndex >= len(files) {
			return s
		}
		files = slices.Delete(files, a.FileIndex, a.FileIndex+1)
		if len(files) == 0 {
			delete(next.UploadedFiles, a.DriverIndex)
		} else {
			next.UploadedFiles[a.DriverIndex] = files
		}
	case SetUploadError:
		if next.UploadErrors == nil {
			next.UploadErrors = map[string]string{}
		}
		if a.Message != "" {
			next.UploadErrors[a.Key] = a.Message
		} else {
			delete(next.UploadErrors, a.Key)
		}
	case SetSelectedInsurance:
		next.SelectedInsurance = a.ID
	case SetCalculatedInsurances:
		next.CalculatedInsurances = slices.Clone(a.Items)
	case SetTermsAccepted:
		next.TermsAccepted = a.Accepted
	case SetIsUpdatingOrder:
		next.IsUpdatingOrder = a.Updating
	case SetIsConfirmingOrder:
		next.IsConfirmingOrder = a.Confirming
	case SetConfirmationError:
		next.ConfirmationError = a.Message
	case SetOrderConfirmed:
		next.OrderConfirmed = a.Confirmed
	case SetPaymentMethod:
		if !a.Method.Valid() {
			return s
		}
		next.PaymentMethod = a.Method
	case SetPaymentRedirect:
		next.PaymentRedirect = a.URL
	case ResetBooking:
		fresh := NewBookingState()
		fresh.Locations = next.Locations
		fresh.LoadingLocations = false
		fresh.SelectedLocation = next.SelectedLocation
		return fresh
	case StartNewSearch:
		next.CurrentStep = StepSearch
		next.MaxCompletedStep = 0
		next.Vehicles = nil
		next.SelectedVehicle = nil
		next.OrderID = ""
		next.OrderError = ""
		next.IsCreatingOrder = false
		next.Drivers = []Driver{EmptyDriver()}
		next.UploadingFiles = map[string]bool{}
		next.UploadedFiles = map[int][]UploadedFile{}
		next.UploadErrors = map[string]string{}
		next.SelectedInsurance = 0
		next.CalculatedInsurances = nil
		next.TermsAccepted = false
		next.IsUpdatingOrder = false
		next.IsConfirmingOrder = false
		next.ConfirmationError = ""
		next.OrderConfirmed = false
		next.PaymentMethod = PaymentCard
		next.PaymentRedirect = ""
	default:
		return s
	}
	return next
}
