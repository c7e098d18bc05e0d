package core

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	MsgRequired       = "This field is required"
	MsgInvalidEmail   = "Please enter a valid email"
	MsgInvalidDate    = "Please enter a valid date"
	MsgUnderage       = "Driver must be at least 18 years old"
	MsgLicenseExpired = "License has expired"
)

const minDriverAge = 18

var validate *validator.Validate

var driverEmailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

func init() {
	validate = validator.New()
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	validate.RegisterValidation("filled", validateFilled)
	validate.RegisterValidation("driver_email", validateDriverEmail)
}

func validateFilled(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

func validateDriverEmail(fl validator.FieldLevel) bool {
	return driverEmailRegex.MatchString(fl.Field().String())
}

// ValidationError carries field-level messages keyed "{driverIndex}_{field}".
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return fmt.Sprintf("%s: %s", ErrValidation, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// AsValidationError extracts field errors from err, if any.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// ValidateDrivers checks every driver for required fields, email format,
// minimum age as of now and a license that has not expired as of now.
// The result is nil when all drivers pass.
func ValidateDrivers(drivers []Driver, now time.Time) map[string]string {
	fields := map[string]string{}
	for i, d := range drivers {
		if err := validate.Struct(d); err != nil {
			var verrs validator.ValidationErrors
			if errors.As(err, &verrs) {
				for _, fe := range verrs {
					msg := MsgRequired
					if fe.Tag() == "driver_email" {
						msg = MsgInvalidEmail
					}
					fields[fieldKey(i, fe.Field())] = msg
				}
			}
		}

		if strings.TrimSpace(d.Birthday) != "" {
			if b, ok := ParseDate(d.Birthday); !ok {
				fields[fieldKey(i, "birthday")] = MsgInvalidDate
			} else if CalculateAge(b, now) < minDriverAge {
				fields[fieldKey(i, "birthday")] = MsgUnderage
			}
		}
		if strings.TrimSpace(d.LicenseFrom) != "" {
			if _, ok := ParseDate(d.LicenseFrom); !ok {
				fields[fieldKey(i, "license_from")] = MsgInvalidDate
			}
		}
		if strings.TrimSpace(d.LicenseTo) != "" {
			if to, ok := ParseDate(d.LicenseTo); !ok {
				fields[fieldKey(i, "license_to")] = MsgInvalidDate
			} else if to.Before(dateOnly(now)) {
				fields[fieldKey(i, "license_to")] = MsgLicenseExpired
			}
		}
	}
	if len(fields) == 0 {
		return nil
	}
	return fields
}

func fieldKey(driverIndex int, field string) string {
	return fmt.Sprintf("%d_%s", driverIndex, field)
}

type StepValidation struct {
	IsValid     bool              `json:"is_valid"`
	Errors      []string          `json:"errors"`
	FieldErrors map[string]string `json:"field_errors,omitempty"`
}

var headDriverRequired = []struct {
	get func(Driver) string
	msg string
}{
	{func(d Driver) string { return d.FirstName }, "First name is required"},
	{func(d Driver) string { return d.LastName }, "Last name is required"},
	{func(d Driver) string { return d.Email }, "Email is required"},
	{func(d Driver) string { return d.Phone }, "Phone is required"},
	{func(d Driver) string { return d.Country }, "Country is required"},
	{func(d Driver) string { return d.City }, "City is required"},
	{func(d Driver) string { return d.Address }, "Address is required"},
	{func(d Driver) string { return d.Birthday }, "Birthday is required"},
	{func(d Driver) string { return d.LicenseNum }, "License number is required"},
	{func(d Driver) string { return d.LicenseFrom }, "License issue date is required"},
	{func(d Driver) string { return d.LicenseTo }, "License expiry date is required"},
}

// ValidateStep reports whether the data collected for step n is complete.
func ValidateStep(s BookingState, n Step, now time.Time) StepValidation {
	var errs []string
	var fields map[string]string

	switch n {
	case StepSearch:
		if s.Search.IsZero() {
			errs = append(errs, "Please enter search dates")
		}
		if s.SelectedLocation == "" {
			errs = append(errs, MsgMissingLocation)
		}
	case StepSelectVehicle:
		if s.SelectedVehicle == nil || s.OrderID == "" {
			errs = append(errs, "Please select a vehicle")
		}
	case StepDriverData:
		if len(s.Drivers) == 0 {
			errs = append(errs, "At least one driver is required")
			break
		}
		head := s.Drivers[0]
		for _, r := range headDriverRequired {
			if strings.TrimSpace(r.get(head)) == "" {
				errs = append(errs, r.msg)
			}
		}
		fields = ValidateDrivers(s.Drivers, now)
		if len(errs) == 0 && len(fields) > 0 {
			errs = append(errs, "Please correct the highlighted driver fields")
		}
	case StepExtras:
		if s.SelectedInsurance == 0 {
			errs = append(errs, "Please select an insurance option")
		} else if c, ok := s.SelectedCalculated(); ok && !c.Factors.IsValid {
			errs = append(errs, "Selected insurance requires a valid driving license")
		}
	case StepConfirm:
		if !s.TermsAccepted {
			errs = append(errs, "Please accept the terms and conditions")
		}
	default:
		errs = append(errs, fmt.Sprintf("Unknown step %d", n))
	}

	return StepValidation{IsValid: len(errs) == 0, Errors: errs, FieldErrors: fields}
}
