package store

import (
	"context"
	"time"

	"gorm.io/gorm"

	apperrors "valora/internal/errors"
	"valora/internal/models"
	"valora/internal/money"
)

// Rates is the gorm ExchangeRateStore.
type Rates struct {
	db *gorm.DB
}

// NewRates creates a gorm-backed ExchangeRateStore.
func NewRates(db *gorm.DB) *Rates {
	return &Rates{db: db}
}

// ReplaceForDate swaps every rate dated date for rates.
func (s *Rates) ReplaceForDate(ctx context.Context, date time.Time, rates []models.ExchangeRate) (int64, error) {
	d := models.Day(date)
	for i := range rates {
		rates[i].RateDate = d
	}
	return replaceForDate(ctx, s.db, &models.ExchangeRate{}, "rate_date", d, rates)
}

// GetByDate returns all rates dated date.
func (s *Rates) GetByDate(ctx context.Context, date time.Time) ([]models.ExchangeRate, error) {
	var rates []models.ExchangeRate
	if err := s.db.WithContext(ctx).
		Where("rate_date = ?", models.Day(date)).
		Order("base_currency, target_currency").
		Find(&rates).Error; err != nil {
		return nil, persistErr(err)
	}
	return rates, nil
}

// GetLatestOnOrBefore rolls forward: the newest base->target rate dated on or
// before date. Rates dated after date are never used.
func (s *Rates) GetLatestOnOrBefore(ctx context.Context, base, target money.Currency, date time.Time) (*models.ExchangeRate, error) {
	var rate models.ExchangeRate
	if err := s.db.WithContext(ctx).
		Where("base_currency = ? AND target_currency = ? AND rate_date <= ?", base, target, models.Day(date)).
		Order("rate_date DESC").
		Take(&rate).Error; err != nil {
		return nil, notFound(err, apperrors.ErrRateNotFound)
	}
	return &rate, nil
}
