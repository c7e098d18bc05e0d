package core

import (
	"context"
	"strings"
)

type PricingType string

const (
	PricingFix     PricingType = "Fix"
	PricingPrice   PricingType = "Price"
	PricingPercent PricingType = "Percent"
)

// EligibilityCriteria gates which drivers may be offered an option.
// Nil bounds are not checked. RequiresValidLicense defaults to true when nil.
type EligibilityCriteria struct {
	MinAge               *int     `json:"min_age,omitempty" bson:"min_age,omitempty" dynamodbav:"min_age,omitempty"`
	MaxAge               *int     `json:"max_age,omitempty" bson:"max_age,omitempty" dynamodbav:"max_age,omitempty"`
	MinTenure            *float64 `json:"min_tenure,omitempty" bson:"min_tenure,omitempty" dynamodbav:"min_tenure,omitempty"`
	MaxTenure            *float64 `json:"max_tenure,omitempty" bson:"max_tenure,omitempty" dynamodbav:"max_tenure,omitempty"`
	AllowedCountries     []string `json:"allowed_countries,omitempty" bson:"allowed_countries,omitempty" dynamodbav:"allowed_countries,omitempty"`
	BlockedCountries     []string `json:"blocked_countries,omitempty" bson:"blocked_countries,omitempty" dynamodbav:"blocked_countries,omitempty"`
	RequiresValidLicense *bool    `json:"requires_valid_license,omitempty" bson:"requires_valid_license,omitempty" dynamodbav:"requires_valid_license,omitempty"`
}

type CoverageDetail struct {
	Text     string `json:"text" bson:"text" dynamodbav:"text"`
	Included bool   `json:"included" bson:"included" dynamodbav:"included"`
}

// InsuranceOption is a catalog entry. Monetary fields are decimal strings
// as the booking API returns them.
type InsuranceOption struct {
	ID              int                  `json:"id" bson:"_id" dynamodbav:"id"`
	Title           string               `json:"title" bson:"title" dynamodbav:"title"`
	Type            PricingType          `json:"type" bson:"type" dynamodbav:"type"`
	Value           string               `json:"value" bson:"value" dynamodbav:"value"`
	Price           string               `json:"price" bson:"price" dynamodbav:"price"`
	PriceTitle      string               `json:"price_title" bson:"price_title" dynamodbav:"price_title"`
	Icon            string               `json:"icon" bson:"icon" dynamodbav:"icon"`
	Deposit         bool                 `json:"deposit" bson:"deposit" dynamodbav:"deposit"`
	DepositPrice    string               `json:"deposit_price" bson:"deposit_price" dynamodbav:"deposit_price"`
	Damage          bool                 `json:"damage" bson:"damage" dynamodbav:"damage"`
	DamageAccess    string               `json:"damage_access" bson:"damage_access" dynamodbav:"damage_access"`
	Checked         bool                 `json:"checked" bson:"checked" dynamodbav:"checked"`
	Eligibility     *EligibilityCriteria `json:"eligibility_criteria,omitempty" bson:"eligibility_criteria,omitempty" dynamodbav:"eligibility_criteria,omitempty"`
	IsFallback      bool                 `json:"is_fallback,omitempty" bson:"is_fallback,omitempty" dynamodbav:"is_fallback,omitempty"`
	Highlights      []string             `json:"highlights,omitempty" bson:"highlights,omitempty" dynamodbav:"highlights,omitempty"`
	CoverageDetails []CoverageDetail     `json:"coverage_details,omitempty" bson:"coverage_details,omitempty" dynamodbav:"coverage_details,omitempty"`
}

type PremiumFactors struct {
	AgeFactor     float64 `json:"age_factor"`
	TenureFactor  float64 `json:"tenure_factor"`
	CountryFactor float64 `json:"country_factor"`
	IsValid       bool    `json:"is_valid"`
}

// CalculatedInsurance is derived per driver and date range and never stored.
type CalculatedInsurance struct {
	Option          InsuranceOption `json:"option"`
	BasePrice       float64         `json:"base_price"`
	CalculatedPrice float64         `json:"calculated_price"`
	Factors         PremiumFactors  `json:"factors"`
	DepositPrice    float64         `json:"deposit_price"`
	DamageAccess    float64         `json:"damage_access"`
}

type CatalogRepo interface {
	List(ctx context.Context) ([]InsuranceOption, error)
	Upsert(ctx context.Context, opt InsuranceOption) error
}

// CatalogSource yields the insurance catalog used for pricing.
type CatalogSource interface {
	Options(ctx context.Context) ([]InsuranceOption, error)
}

type StaticCatalog []InsuranceOption

func (c StaticCatalog) Options(context.Context) ([]InsuranceOption, error) {
	out := make([]InsuranceOption, len(c))
	copy(out, c)
	return out, nil
}

// RepoCatalog reads options from a repository and serves the built-in
// catalog when the repository is empty or unavailable.
type RepoCatalog struct {
	Repo     CatalogRepo
	Fallback []InsuranceOption
}

func (c RepoCatalog) Options(ctx context.Context) ([]InsuranceOption, error) {
	opts, err := c.Repo.List(ctx)
	if err != nil || len(opts) == 0 {
		return StaticCatalog(c.Fallback).Options(ctx)
	}
	return opts, nil
}

var euCountries = []string{
	"AT", "BE", "BG", "HR", "CY", "CZ", "DK", "EE", "FI", "FR",
	"DE", "GR", "HU", "IE", "IT", "LV", "LT", "LU", "MT", "NL",
	"PL", "PT", "RO", "SK", "SI", "ES", "SE", "31",
}

var euSet = func() map[string]struct{} {
	m := make(map[string]struct{}, len(euCountries))
	for _, c := range euCountries {
		m[c] = struct{}{}
	}
	return m
}()

func IsEUCountry(code string) bool {
	_, ok := euSet[normalizeCountry(code)]
	return ok
}

func normalizeCountry(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }
func boolPtr(v bool) *bool        { return &v }

func euList() []string {
	out := make([]string, len(euCountries))
	copy(out, euCountries)
	return out
}

// DefaultCatalog returns a fresh copy of the built-in insurance products.
func DefaultCatalog() []InsuranceOption {
	return []InsuranceOption{
		{
			ID: 1001, Title: "Basic Coverage", Type: PricingFix,
			Value: "80.00", Price: "80.00", Icon: "insur-min",
			Deposit: true, DepositPrice: "250.00", Damage: true, DamageAccess: "250.00",
			Checked: true, IsFallback: true,
			Eligibility: &EligibilityCriteria{MinAge: intPtr(18), RequiresValidLicense: boolPtr(true)},
			Highlights:  []string{"Third party liability", "Collision damage waiver", "250 CHF excess"},
			CoverageDetails: []CoverageDetail{
				{"Third party liability up to 1M CHF", true},
				{"Collision damage waiver (CDW)", true},
				{"Fire and theft protection", true},
				{"24/7 roadside assistance", true},
				{"Windscreen & glass damage", false},
				{"Tire & rim damage", false},
				{"Personal accident insurance", false},
				{"Zero excess option", false},
			},
		},
		{
			ID: 1002, Title: "Young Driver Coverage", Type: PricingFix,
			Value: "120.00", Price: "120.00", Icon: "insur-mid",
			Deposit: true, DepositPrice: "300.00", Damage: true, DamageAccess: "300.00",
			Eligibility: &EligibilityCriteria{
				MaxAge: intPtr(24), MaxTenure: floatPtr(2.99),
				AllowedCountries: euList(), RequiresValidLicense: boolPtr(true),
			},
			Highlights: []string{"Under 25 specialist", "Enhanced protection", "300 CHF excess"},
			CoverageDetails: []CoverageDetail{
				{"Third party liability up to 1M CHF", true},
				{"Collision damage waiver (CDW)", true},
				{"Fire and theft protection", true},
				{"24/7 roadside assistance", true},
				{"Young driver surcharge included", true},
				{"Windscreen & glass damage", false},
				{"Tire & rim damage", false},
				{"Zero excess option", false},
			},
		},
		{
			ID: 1003, Title: "Premium Coverage", Type: PricingFix,
			Value: "100.00", Price: "100.00", Icon: "insur-max",
			DepositPrice: "0.00", DamageAccess: "0.00",
			Eligibility: &EligibilityCriteria{
				MinAge: intPtr(25), MaxAge: intPtr(65), MinTenure: floatPtr(3),
				RequiresValidLicense: boolPtr(true),
			},
			Highlights: []string{"Zero excess", "Full protection", "No deposit required"},
			CoverageDetails: []CoverageDetail{
				{"Third party liability up to 2M CHF", true},
				{"Collision damage waiver (CDW)", true},
				{"Fire and theft protection", true},
				{"24/7 roadside assistance", true},
				{"Windscreen & glass damage", true},
				{"Tire & rim damage", true},
				{"Personal accident insurance", true},
				{"Zero excess - no deductible", true},
			},
		},
		{
			ID: 1004, Title: "Senior Driver Coverage", Type: PricingFix,
			Value: "110.00", Price: "110.00", Icon: "insur-mid",
			Deposit: true, DepositPrice: "350.00", Damage: true, DamageAccess: "350.00",
			Eligibility: &EligibilityCriteria{
				MinAge: intPtr(66), MinTenure: floatPtr(5),
				AllowedCountries: euList(), RequiresValidLicense: boolPtr(true),
			},
			Highlights: []string{"Age 65+ specialist", "Enhanced support", "350 CHF excess"},
			CoverageDetails: []CoverageDetail{
				{"Third party liability up to 1M CHF", true},
				{"Collision damage waiver (CDW)", true},
				{"Fire and theft protection", true},
				{"24/7 roadside assistance", true},
				{"Personal accident insurance", true},
				{"Windscreen & glass damage", false},
				{"Tire & rim damage", false},
				{"Zero excess option", false},
			},
		},
		{
			ID: 1005, Title: "Comprehensive Coverage", Type: PricingFix,
			Value: "150.00", Price: "150.00", Icon: "insur-max",
			Deposit: true, DepositPrice: "500.00", Damage: true, DamageAccess: "500.00",
			Eligibility: &EligibilityCriteria{
				MaxAge: intPtr(24), MaxTenure: floatPtr(0.99), RequiresValidLicense: boolPtr(true),
			},
			Highlights: []string{"Maximum protection", "All-inclusive cover", "500 CHF excess"},
			CoverageDetails: []CoverageDetail{
				{"Third party liability up to 2M CHF", true},
				{"Collision damage waiver (CDW)", true},
				{"Fire and theft protection", true},
				{"24/7 roadside assistance", true},
				{"Windscreen & glass damage", true},
				{"Tire & rim damage", true},
				{"Personal accident insurance", true},
				{"New driver protection", true},
			},
		},
		{
			ID: 1006, Title: "Standard Coverage", Type: PricingFix,
			Value: "90.00", Price: "90.00", Icon: "insur-min",
			DepositPrice: "0.00", DamageAccess: "0.00",
			Eligibility: &EligibilityCriteria{
				MinAge: intPtr(25), MaxAge: intPtr(65), RequiresValidLicense: boolPtr(true),
			},
			Highlights: []string{"No deposit", "Essential protection", "Best value"},
			CoverageDetails: []CoverageDetail{
				{"Third party liability up to 1M CHF", true},
				{"Collision damage waiver (CDW)", true},
				{"Fire and theft protection", true},
				{"24/7 roadside assistance", true},
				{"Windscreen & glass damage", false},
				{"Tire & rim damage", false},
				{"Personal accident insurance", false},
				{"Zero excess option", false},
			},
		},
	}
}
