package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"valora/internal/models"
	"valora/internal/pagination"
)

const holdingViewColumns = `h.id AS holding_id,
	h.portfolio_id, p.name AS portfolio_name, p.currency AS portfolio_currency,
	h.instrument_id, i.ticker, i.name AS instrument_name, i.currency AS instrument_currency, i.quote_unit,
	h.platform_id, pl.name AS platform_name,
	h.valuation_date, h.unit_amount, h.bought_value, h.current_value,
	h.daily_profit_loss, h.daily_profit_loss_percentage, h.currency`

// Holdings is the gorm HoldingStore.
type Holdings struct {
	db *gorm.DB
}

// NewHoldings creates a gorm-backed HoldingStore.
func NewHoldings(db *gorm.DB) *Holdings {
	return &Holdings{db: db}
}

// ReplaceForDate swaps the whole snapshot of date for holdings and returns how
// many rows the previous snapshot had.
func (s *Holdings) ReplaceForDate(ctx context.Context, date time.Time, holdings []models.Holding) (int64, error) {
	d := models.Day(date)
	for i := range holdings {
		holdings[i].ValuationDate = d
	}
	return replaceForDate(ctx, s.db, &models.Holding{}, "valuation_date", d, holdings)
}

// GetByDate returns the raw holding rows of date.
func (s *Holdings) GetByDate(ctx context.Context, date time.Time) ([]models.Holding, error) {
	var holdings []models.Holding
	if err := s.db.WithContext(ctx).
		Where("valuation_date = ?", models.Day(date)).
		Order("portfolio_id, instrument_id, platform_id").
		Find(&holdings).Error; err != nil {
		return nil, persistErr(err)
	}
	return holdings, nil
}

// GetViewsByDate returns the snapshot of date joined with portfolio, instrument
// and platform.
func (s *Holdings) GetViewsByDate(ctx context.Context, date time.Time) ([]HoldingView, error) {
	var views []HoldingView
	if err := s.views(ctx).
		Where("h.valuation_date = ?", models.Day(date)).
		Order("p.name, i.ticker, pl.name").
		Find(&views).Error; err != nil {
		return nil, persistErr(err)
	}
	return views, nil
}

// ListViews returns a page of the joined snapshot of date, optionally limited to one portfolio.
func (s *Holdings) ListViews(ctx context.Context, date time.Time, portfolioID string, page pagination.PageRequest) (*pagination.PageResponse[HoldingView], error) {
	query := s.views(ctx).Where("h.valuation_date = ?", models.Day(date))
	if portfolioID != "" {
		query = query.Where("h.portfolio_id = ?", portfolioID)
	}
	resp, err := pagination.FindPage[HoldingView](query, page, "p.name, i.ticker, pl.name")
	if err != nil {
		return nil, persistErr(err)
	}
	return resp, nil
}

// LatestDateBefore returns the latest valuation date strictly earlier than date
// that has at least one holding.
func (s *Holdings) LatestDateBefore(ctx context.Context, date time.Time) (time.Time, bool, error) {
	return s.latestDate(ctx, "valuation_date < ?", date)
}

// LatestDateOnOrBefore returns the latest valuation date at or before date.
func (s *Holdings) LatestDateOnOrBefore(ctx context.Context, date time.Time) (time.Time, bool, error) {
	return s.latestDate(ctx, "valuation_date <= ?", date)
}

func (s *Holdings) latestDate(ctx context.Context, cond string, date time.Time) (time.Time, bool, error) {
	var h models.Holding
	err := s.db.WithContext(ctx).
		Select("valuation_date").
		Where(cond, models.Day(date)).
		Order("valuation_date DESC").
		Take(&h).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, persistErr(err)
	}
	return models.Day(h.ValuationDate), true, nil
}

// views joins holdings to their reference rows. Holdings of a soft-deleted
// portfolio, instrument or platform are left out.
func (s *Holdings) views(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).
		Table("holdings AS h").
		Select(holdingViewColumns).
		Joins("JOIN portfolios p ON p.id = h.portfolio_id AND p.deleted_at IS NULL").
		Joins("JOIN instruments i ON i.id = h.instrument_id AND i.deleted_at IS NULL").
		Joins("JOIN platforms pl ON pl.id = h.platform_id AND pl.deleted_at IS NULL")
}
