package core

import (
	"context"
	"maps"
	"slices"
	"time"
)

type Step int

const (
	StepSearch Step = iota + 1
	StepSelectVehicle
	StepDriverData
	StepExtras
	StepConfirm
)

const (
	FirstStep = StepSearch
	LastStep  = StepConfirm
)

// DateTimeLayout is the wire format for date-times exchanged with the booking API.
const DateTimeLayout = "2006-01-02 15:04:05"

type SearchCriteria struct {
	PickupLocation string    `json:"pickup_location"`
	ReturnLocation string    `json:"return_location"`
	PickupAt       time.Time `json:"pickup_at"`
	ReturnAt       time.Time `json:"return_at"`
}

func (c SearchCriteria) IsZero() bool {
	return c.PickupAt.IsZero() || c.ReturnAt.IsZero()
}

type Location struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Address   string `json:"address"`
	Longitude string `json:"longitude"`
	Latitude  string `json:"latitude"`
}

type Country struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	ISOCode string `json:"iso_code"`
}

type Vehicle struct {
	ID           string   `json:"id"`
	Brand        string   `json:"brand"`
	Mark         string   `json:"mark"`
	Group        string   `json:"group"`
	Year         int      `json:"year"`
	Type         string   `json:"type"`
	BodyType     string   `json:"body_type"`
	Seats        int      `json:"number_seats"`
	Doors        int      `json:"number_doors"`
	LargeBags    int      `json:"large_bags"`
	SmallBags    int      `json:"small_bags"`
	Transmission string   `json:"transmission"`
	Fuel         string   `json:"fuel"`
	PricePerDay  string   `json:"price_per_day"`
	TotalPrice   string   `json:"total_price"`
	Currency     string   `json:"currency"`
	CountDays    int      `json:"count_days"`
	Thumbnail    string   `json:"thumbnail"`
	Options      []string `json:"options,omitempty"`
}

type Pagination struct {
	TotalCount int `json:"total_count"`
	PerPage    int `json:"per_page"`
	Page       int `json:"page"`
	CountPages int `json:"count_pages"`
}

// Driver is one person on the booking. Index 0 is the head driver.
type Driver struct {
	FirstName    string   `json:"first_name" validate:"filled"`
	LastName     string   `json:"last_name" validate:"filled"`
	Email        string   `json:"email" validate:"filled,driver_email"`
	Phone        string   `json:"phone" validate:"filled"`
	Country      string   `json:"country" validate:"filled"`
	Zip          string   `json:"zip"`
	State        string   `json:"state"`
	City         string   `json:"city" validate:"filled"`
	Address      string   `json:"address" validate:"filled"`
	Building     string   `json:"building,omitempty"`
	Birthday     string   `json:"birthday" validate:"filled"`
	Notes        string   `json:"notes,omitempty"`
	LicenseNum   string   `json:"license_num" validate:"filled"`
	LicenseFrom  string   `json:"license_from" validate:"filled"`
	LicenseTo    string   `json:"license_to" validate:"filled"`
	Code         string   `json:"code,omitempty"`
	LicensePhoto []string `json:"license_photo,omitempty"`
}

func EmptyDriver() Driver { return Driver{} }

func (d Driver) clone() Driver {
	d.LicensePhoto = slices.Clone(d.LicensePhoto)
	return d
}

// SetField assigns a string field by its wire name. Unknown names report false.
func (d *Driver) SetField(field, value string) bool {
	switch field {
	case "first_name":
		d.FirstName = value
	case "last_name":
		d.LastName = value
	case "email":
		d.Email = value
	case "phone":
		d.Phone = value
	case "country":
		d.Country = value
	case "zip":
		d.Zip = value
	case "state":
		d.State = value
	case "city":
		d.City = value
	case "address":
		d.Address = value
	case "building":
		d.Building = value
	case "birthday":
		d.Birthday = value
	case "notes":
		d.Notes = value
	case "license_num":
		d.LicenseNum = value
	case "license_from":
		d.LicenseFrom = value
	case "license_to":
		d.LicenseTo = value
	case "code":
		d.Code = value
	default:
		return false
	}
	return true
}

type UploadedFile struct {
	ID     int    `json:"id"`
	URL    string `json:"url"`
	Status string `json:"status"`
	Name   string `json:"name,omitempty"`
}

type PaymentMethod string

const (
	PaymentCard PaymentMethod = "card"
	PaymentCash PaymentMethod = "cash"
)

func (m PaymentMethod) Valid() bool {
	return m == PaymentCard || m == PaymentCash
}

// BookingState is one snapshot of a booking session. Error fields hold a
// user-facing message, empty when there is none.
type BookingState struct {
	CurrentStep      Step `json:"current_step"`
	MaxCompletedStep Step `json:"max_completed_step"`

	Locations        []Location `json:"locations"`
	LoadingLocations bool       `json:"loading_locations"`
	SelectedLocation string     `json:"selected_location"`

	Search      SearchCriteria `json:"search"`
	SearchError string         `json:"search_error,omitempty"`
	IsSearching bool           `json:"is_searching"`
	Vehicles    []Vehicle      `json:"vehicles"`

	SelectedVehicle *Vehicle `json:"selected_vehicle,omitempty"`
	OrderID         string   `json:"order_id,omitempty"`
	OrderError      string   `json:"order_error,omitempty"`
	IsCreatingOrder bool     `json:"is_creating_order"`

	Drivers        []Driver               `json:"drivers"`
	UploadingFiles map[string]bool        `json:"uploading_files"`
	UploadedFiles  map[int][]UploadedFile `json:"uploaded_files"`
	UploadErrors   map[string]string      `json:"upload_errors"`

	SelectedInsurance    int                   `json:"selected_insurance,omitempty"`
	CalculatedInsurances []CalculatedInsurance `json:"calculated_insurances"`

	TermsAccepted     bool          `json:"terms_accepted"`
	IsUpdatingOrder   bool          `json:"is_updating_order"`
	IsConfirmingOrder bool          `json:"is_confirming_order"`
	ConfirmationError string        `json:"confirmation_error,omitempty"`
	OrderConfirmed    bool          `json:"order_confirmed"`
	PaymentMethod     PaymentMethod `json:"payment_method"`
	PaymentRedirect   string        `json:"payment_redirect,omitempty"`
}

func NewBookingState() BookingState {
	return BookingState{
		CurrentStep:      StepSearch,
		LoadingLocations: true,
		Drivers:          []Driver{EmptyDriver()},
		UploadingFiles:   map[string]bool{},
		UploadedFiles:    map[int][]UploadedFile{},
		UploadErrors:     map[string]string{},
		PaymentMethod:    PaymentCard,
	}
}

// HasLiveDraft reports whether the session holds a remote order that was
// neither confirmed nor handed off to payment.
func (s BookingState) HasLiveDraft() bool {
	return s.OrderID != "" && !s.OrderConfirmed && s.PaymentRedirect == ""
}

func (s BookingState) HeadDriver() Driver {
	if len(s.Drivers) == 0 {
		return EmptyDriver()
	}
	return s.Drivers[0]
}

func (s BookingState) SelectedCalculated() (CalculatedInsurance, bool) {
	for _, c := range s.CalculatedInsurances {
		if c.Option.ID == s.SelectedInsurance {
			return c, true
		}
	}
	return CalculatedInsurance{}, false
}

// Clone returns a deep copy safe to hand out of a session.
func (s BookingState) Clone() BookingState {
	out := s
	out.Locations = slices.Clone(s.Locations)
	out.Vehicles = slices.Clone(s.Vehicles)
	if s.SelectedVehicle != nil {
		v := *s.SelectedVehicle
		out.SelectedVehicle = &v
	}
	if s.Drivers != nil {
		out.Drivers = make([]Driver, len(s.Drivers))
		for i, d := range s.Drivers {
			out.Drivers[i] = d.clone()
		}
	}
	out.UploadingFiles = maps.Clone(s.UploadingFiles)
	if s.UploadedFiles != nil {
		out.UploadedFiles = make(map[int][]UploadedFile, len(s.UploadedFiles))
		for k, v := range s.UploadedFiles {
			out.UploadedFiles[k] = slices.Clone(v)
		}
	}
	out.UploadErrors = maps.Clone(s.UploadErrors)
	out.CalculatedInsurances = slices.Clone(s.CalculatedInsurances)
	return out
}

// DriverInfoStore keeps driver lists keyed by order id across reloads.
type DriverInfoStore interface {
	Save(ctx context.Context, orderID string, drivers []Driver) error
	// Load returns an error wrapping ErrNotFound when nothing is stored.
	Load(ctx context.Context, orderID string) ([]Driver, error)
}
