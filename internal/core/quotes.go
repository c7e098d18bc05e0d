package core

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// QuoteInput describes a head driver and a rental window to price insurance for.
type QuoteInput struct {
	Birthday    string `json:"birthday"`
	LicenseFrom string `json:"license_from"`
	LicenseTo   string `json:"license_to"`
	Country     string `json:"country"`
	PickupAt    string `json:"pickup_at"` // YYYY-MM-DD HH:mm:ss or YYYY-MM-DD
	ReturnAt    string `json:"return_at"`
}

type Quote struct {
	PickupAt        time.Time             `json:"pickup_at"`
	ReturnAt        time.Time             `json:"return_at"`
	RentalDays      int                   `json:"rental_days"`
	Options         []CalculatedInsurance `json:"options"`
	DefaultOptionID int                   `json:"default_option_id"`
	QuotedAt        time.Time             `json:"quoted_at"`
}

// QuoteService prices the insurance catalog without touching a booking session.
type QuoteService interface {
	Price(ctx context.Context, in QuoteInput) (Quote, error)
	Catalog(ctx context.Context) ([]InsuranceOption, error)
}

func parseQuoteTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{DateTimeLayout, DateLayout} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func (in QuoteInput) Validate() error {
	if strings.TrimSpace(in.Birthday) == "" {
		return fmt.Errorf("%w: birthday is required", ErrValidation)
	}
	if strings.TrimSpace(in.LicenseFrom) == "" {
		return fmt.Errorf("%w: license_from is required", ErrValidation)
	}
	if strings.TrimSpace(in.LicenseTo) == "" {
		return fmt.Errorf("%w: license_to is required", ErrValidation)
	}
	from, ok := parseQuoteTime(in.PickupAt)
	if !ok {
		return fmt.Errorf("%w: invalid pickup_at", ErrValidation)
	}
	to, ok := parseQuoteTime(in.ReturnAt)
	if !ok {
		return fmt.Errorf("%w: invalid return_at", ErrValidation)
	}
	if !to.After(from) {
		return fmt.Errorf("%w: %s", ErrValidation, MsgReturnBeforePickup)
	}
	return nil
}

func (in QuoteInput) driver() Driver {
	return Driver{
		Birthday:    in.Birthday,
		LicenseFrom: in.LicenseFrom,
		LicenseTo:   in.LicenseTo,
		Country:     in.Country,
	}
}
