package services

import (
	"context"
	"time"

	"valora/internal/models"
	"valora/internal/money"
	"valora/internal/pagination"
	"valora/internal/store"
)

// valuationQueryService serves stored snapshots to the read API.
type valuationQueryService struct {
	holdings store.HoldingStore
	prices   store.PriceStore
	rates    store.ExchangeRateStore
}

// NewValuationQueryService creates a new ValuationQueryServicer.
func NewValuationQueryService(holdings store.HoldingStore, prices store.PriceStore, rates store.ExchangeRateStore) ValuationQueryServicer {
	return &valuationQueryService{holdings: holdings, prices: prices, rates: rates}
}

// GetHoldings returns a page of the snapshot of date. A nil date means the
// latest stored snapshot; with no snapshot at all the page is empty.
func (s *valuationQueryService) GetHoldings(ctx context.Context, date *time.Time, portfolioID string, page pagination.PageRequest) (*pagination.PageResponse[store.HoldingView], error) {
	var day time.Time
	if date != nil {
		day = models.Day(*date)
	} else {
		latest, ok, err := s.holdings.LatestDateOnOrBefore(ctx, models.Day(time.Now()))
		if err != nil {
			return nil, err
		}
		if !ok {
			page.Defaults()
			resp := pagination.NewPageResponse[store.HoldingView](nil, page.Page, page.PageSize, 0)
			return &resp, nil
		}
		day = latest
	}
	return s.holdings.ListViews(ctx, day, portfolioID, page)
}

// GetPrices returns a page of the prices stored for date.
func (s *valuationQueryService) GetPrices(ctx context.Context, date time.Time, page pagination.PageRequest) (*pagination.PageResponse[models.InstrumentPrice], error) {
	return s.prices.List(ctx, date, page)
}

// GetLatestRate returns the base->target rate in effect on date.
func (s *valuationQueryService) GetLatestRate(ctx context.Context, base, target money.Currency, date time.Time) (*models.ExchangeRate, error) {
	return s.rates.GetLatestOnOrBefore(ctx, base, target, date)
}
