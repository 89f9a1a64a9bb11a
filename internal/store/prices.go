package store

import (
	"context"
	"time"

	"gorm.io/gorm"

	apperrors "valora/internal/errors"
	"valora/internal/models"
	"valora/internal/pagination"
)

// Prices is the gorm PriceStore.
type Prices struct {
	db *gorm.DB
}

// NewPrices creates a gorm-backed PriceStore.
func NewPrices(db *gorm.DB) *Prices {
	return &Prices{db: db}
}

// ReplaceForDate swaps every price of date for prices and returns how many rows
// were removed. Each row's ValuationDate is forced to date.
func (s *Prices) ReplaceForDate(ctx context.Context, date time.Time, prices []models.InstrumentPrice) (int64, error) {
	d := models.Day(date)
	for i := range prices {
		prices[i].ValuationDate = d
	}
	return replaceForDate(ctx, s.db, &models.InstrumentPrice{}, "valuation_date", d, prices)
}

// GetByDate returns all prices recorded for date.
func (s *Prices) GetByDate(ctx context.Context, date time.Time) ([]models.InstrumentPrice, error) {
	var prices []models.InstrumentPrice
	if err := s.db.WithContext(ctx).
		Where("valuation_date = ?", models.Day(date)).
		Order("instrument_id").
		Find(&prices).Error; err != nil {
		return nil, persistErr(err)
	}
	return prices, nil
}

// GetForDate returns the price of one instrument on exactly date.
func (s *Prices) GetForDate(ctx context.Context, instrumentID string, date time.Time) (*models.InstrumentPrice, error) {
	var price models.InstrumentPrice
	if err := s.db.WithContext(ctx).
		Where("instrument_id = ? AND valuation_date = ?", instrumentID, models.Day(date)).
		Take(&price).Error; err != nil {
		return nil, notFound(err, apperrors.ErrPriceNotFound)
	}
	return &price, nil
}

// GetLatestOnOrBefore returns the most recent price of an instrument dated on or before date.
func (s *Prices) GetLatestOnOrBefore(ctx context.Context, instrumentID string, date time.Time) (*models.InstrumentPrice, error) {
	var price models.InstrumentPrice
	if err := s.db.WithContext(ctx).
		Where("instrument_id = ? AND valuation_date <= ?", instrumentID, models.Day(date)).
		Order("valuation_date DESC").
		Take(&price).Error; err != nil {
		return nil, notFound(err, apperrors.ErrPriceNotFound)
	}
	return &price, nil
}

// List returns a page of the prices recorded for date.
func (s *Prices) List(ctx context.Context, date time.Time, page pagination.PageRequest) (*pagination.PageResponse[models.InstrumentPrice], error) {
	query := s.db.WithContext(ctx).Model(&models.InstrumentPrice{}).
		Where("valuation_date = ?", models.Day(date))
	resp, err := pagination.FindPage[models.InstrumentPrice](query, page, "instrument_id")
	if err != nil {
		return nil, persistErr(err)
	}
	return resp, nil
}
