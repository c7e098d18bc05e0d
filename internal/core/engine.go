package core

import (
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	DateLayout = "2006-01-02"

	// minLicenseDaysAtPickup is the remaining validity a license needs at pickup.
	minLicenseDaysAtPickup = 30
)

// ParseDate parses a YYYY-MM-DD string as a UTC calendar date.
func ParseDate(s string) (time.Time, bool) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// yearsBetween is the calendar year difference, one less when the month/day
// of at precedes that of from.
func yearsBetween(from, at time.Time) int {
	years := at.Year() - from.Year()
	if at.Month() < from.Month() || (at.Month() == from.Month() && at.Day() < from.Day()) {
		years--
	}
	return years
}

func CalculateAge(birthday, pickup time.Time) int {
	return yearsBetween(birthday, pickup)
}

func CalculateLicenseTenure(licenseFrom, pickup time.Time) int {
	return max(0, yearsBetween(licenseFrom, pickup))
}

// IsLicenseValid reports whether at least 30 whole days of validity remain
// at the pickup date.
func IsLicenseValid(licenseTo, pickup time.Time) bool {
	days := math.Floor(dateOnly(licenseTo).Sub(dateOnly(pickup)).Hours() / 24)
	return days >= minLicenseDaysAtPickup
}

func AgeAdjustment(age int) float64 {
	switch {
	case age < 25:
		return 0.20
	case age > 65:
		return 0.15
	default:
		return 0
	}
}

func TenureAdjustment(tenure int) float64 {
	switch {
	case tenure < 1:
		return 0.30
	case tenure < 3:
		return 0.15
	default:
		return 0
	}
}

func CountryMultiplier(country string) float64 {
	if IsEUCountry(country) {
		return 0.95
	}
	return 1.0
}

// driverFacts is what the engine derives from a driver at a pickup date.
// Unparseable dates leave hasAge/hasTenure false and the license invalid.
type driverFacts struct {
	age          int
	hasAge       bool
	tenure       int
	hasTenure    bool
	validLicense bool
	country      string
}

func assess(d Driver, pickup time.Time) driverFacts {
	f := driverFacts{country: normalizeCountry(d.Country)}
	pickup = dateOnly(pickup)
	if b, ok := ParseDate(d.Birthday); ok {
		f.age, f.hasAge = CalculateAge(b, pickup), true
	}
	if from, ok := ParseDate(d.LicenseFrom); ok {
		f.tenure, f.hasTenure = CalculateLicenseTenure(from, pickup), true
	}
	if to, ok := ParseDate(d.LicenseTo); ok {
		f.validLicense = IsLicenseValid(to, pickup)
	}
	return f
}

func CheckEligibility(opt InsuranceOption, d Driver, pickup time.Time) bool {
	c := opt.Eligibility
	if c == nil {
		return true
	}
	f := assess(d, pickup)

	if (c.RequiresValidLicense == nil || *c.RequiresValidLicense) && !f.validLicense {
		return false
	}
	if c.MinAge != nil && (!f.hasAge || f.age < *c.MinAge) {
		return false
	}
	if c.MaxAge != nil && (!f.hasAge || f.age > *c.MaxAge) {
		return false
	}
	if c.MinTenure != nil && (!f.hasTenure || float64(f.tenure) < *c.MinTenure) {
		return false
	}
	if c.MaxTenure != nil && (!f.hasTenure || float64(f.tenure) > *c.MaxTenure) {
		return false
	}
	if len(c.AllowedCountries) > 0 && !containsCountry(c.AllowedCountries, f.country) {
		return false
	}
	if len(c.BlockedCountries) > 0 && containsCountry(c.BlockedCountries, f.country) {
		return false
	}
	return true
}

func containsCountry(list []string, code string) bool {
	for _, c := range list {
		if normalizeCountry(c) == code {
			return true
		}
	}
	return false
}

// FilterEligible returns the options the driver qualifies for. When none
// qualify it returns a single fallback so a non-empty catalog never yields
// an empty result.
func FilterEligible(catalog []InsuranceOption, d Driver, pickup time.Time) []InsuranceOption {
	var eligible []InsuranceOption
	for _, opt := range catalog {
		if CheckEligibility(opt, d, pickup) {
			eligible = append(eligible, opt)
		}
	}
	if len(eligible) > 0 {
		return eligible
	}
	if len(catalog) == 0 {
		return nil
	}
	for _, opt := range catalog {
		if opt.IsFallback {
			return []InsuranceOption{opt}
		}
	}
	for _, opt := range catalog {
		if opt.Eligibility == nil {
			return []InsuranceOption{opt}
		}
	}
	return []InsuranceOption{catalog[0]}
}

func CalculatePremium(opt InsuranceOption, d Driver, pickup time.Time, rentalDays int) CalculatedInsurance {
	f := assess(d, pickup)
	base := parseAmount(opt.Price)

	price := base
	if opt.Type == PricingPrice {
		price = base * float64(rentalDays)
	}

	ageAdj, tenureAdj := 0.0, 0.0
	if f.hasAge {
		ageAdj = AgeAdjustment(f.age)
	}
	if f.hasTenure {
		tenureAdj = TenureAdjustment(f.tenure)
	}
	country := CountryMultiplier(f.country)

	if f.validLicense {
		price = price * (1 + ageAdj + tenureAdj) * country
	} else {
		price = base * 2
	}

	return CalculatedInsurance{
		Option:          opt,
		BasePrice:       base,
		CalculatedPrice: round2(price),
		Factors: PremiumFactors{
			AgeFactor:     1 + ageAdj,
			TenureFactor:  1 + tenureAdj,
			CountryFactor: country,
			IsValid:       f.validLicense,
		},
		DepositPrice: parseAmount(opt.DepositPrice),
		DamageAccess: parseAmount(opt.DamageAccess),
	}
}

func CalculateAllPremiums(catalog []InsuranceOption, d Driver, pickup time.Time, rentalDays int) []CalculatedInsurance {
	eligible := FilterEligible(catalog, d, pickup)
	out := make([]CalculatedInsurance, 0, len(eligible))
	for _, opt := range eligible {
		out = append(out, CalculatePremium(opt, d, pickup, rentalDays))
	}
	return out
}

// RentalDays counts started 24h periods between pickup and return, at least one.
func RentalDays(pickup, ret time.Time) int {
	days := int(math.Ceil(ret.Sub(pickup).Hours() / 24))
	return max(1, days)
}

func parseAmount(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func round2(x float64) float64 {
	return math.Floor(x*100+0.5) / 100
}
