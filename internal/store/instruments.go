package store

import (
	"context"
	"time"

	"gorm.io/gorm"

	"valora/internal/models"
)

// Instruments is the gorm InstrumentStore.
type Instruments struct {
	db *gorm.DB
}

// NewInstruments creates a gorm-backed InstrumentStore.
func NewInstruments(db *gorm.DB) *Instruments {
	return &Instruments{db: db}
}

// FindByTickers loads the instruments with the given tickers. Unknown tickers
// are simply absent from the result.
func (s *Instruments) FindByTickers(ctx context.Context, tickers []string) ([]models.Instrument, error) {
	if len(tickers) == 0 {
		return nil, nil
	}
	var instruments []models.Instrument
	if err := s.db.WithContext(ctx).
		Where("ticker IN ?", tickers).
		Order("ticker").
		Find(&instruments).Error; err != nil {
		return nil, persistErr(err)
	}
	return instruments, nil
}

// HeldTickers returns the distinct tickers in the latest holdings snapshot
// strictly before date, skipping holdings whose reference rows are
// soft-deleted. No snapshot yields an empty list.
func (s *Instruments) HeldTickers(ctx context.Context, date time.Time) ([]string, error) {
	source, ok, err := NewHoldings(s.db).LatestDateBefore(ctx, date)
	if err != nil || !ok {
		return nil, err
	}

	var tickers []string
	if err := s.db.WithContext(ctx).
		Table("holdings AS h").
		Joins("JOIN instruments i ON i.id = h.instrument_id AND i.deleted_at IS NULL").
		Joins("JOIN portfolios p ON p.id = h.portfolio_id AND p.deleted_at IS NULL").
		Joins("JOIN platforms pl ON pl.id = h.platform_id AND pl.deleted_at IS NULL").
		Where("h.valuation_date = ?", source).
		Distinct("i.ticker").
		Order("i.ticker").
		Pluck("i.ticker", &tickers).Error; err != nil {
		return nil, persistErr(err)
	}
	return tickers, nil
}
