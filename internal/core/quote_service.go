package core

import (
	"context"
	"slices"
	"time"
)

type quoteService struct {
	catalog CatalogSource
	clock   func() time.Time
}

func NewQuoteService(catalog CatalogSource) QuoteService {
	if catalog == nil {
		catalog = StaticCatalog(DefaultCatalog())
	}
	return &quoteService{
		catalog: catalog,
		clock:   time.Now,
	}
}

func (s *quoteService) Catalog(ctx context.Context) ([]InsuranceOption, error) {
	return s.catalog.Options(ctx)
}

func (s *quoteService) Price(ctx context.Context, in QuoteInput) (Quote, error) {
	// 1) validate inputs
	if err := in.Validate(); err != nil {
		return Quote{}, err
	}
	pickup, _ := parseQuoteTime(in.PickupAt)
	ret, _ := parseQuoteTime(in.ReturnAt)

	// 2) load catalog
	catalog, err := s.catalog.Options(ctx)
	if err != nil {
		return Quote{}, err
	}

	// 3) filter and price
	days := RentalDays(pickup, ret)
	options := CalculateAllPremiums(catalog, in.driver(), pickup, days)

	q := Quote{
		PickupAt:   pickup,
		ReturnAt:   ret,
		RentalDays: days,
		Options:    options,
		QuotedAt:   s.clock(),
	}
	if len(options) > 0 {
		q.DefaultOptionID = options[0].Option.ID
		if i := slices.IndexFunc(options, func(c CalculatedInsurance) bool { return c.Option.Checked }); i >= 0 {
			q.DefaultOptionID = options[i].Option.ID
		}
	}
	return q, nil
}
