// Package store persists instruments, prices, exchange rates and holdings
// snapshots. Every date-scoped write goes through ReplaceForDate, which swaps
// the complete row-set of a date inside one transaction.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "valora/internal/errors"
	"valora/internal/models"
	"valora/internal/money"
	"valora/internal/pagination"
)

// batchSize bounds the rows per INSERT statement inside a replace.
const batchSize = 200

// PriceStore persists InstrumentPrice rows per valuation date.
type PriceStore interface {
	ReplaceForDate(ctx context.Context, date time.Time, prices []models.InstrumentPrice) (int64, error)
	GetByDate(ctx context.Context, date time.Time) ([]models.InstrumentPrice, error)
	GetForDate(ctx context.Context, instrumentID string, date time.Time) (*models.InstrumentPrice, error)
	GetLatestOnOrBefore(ctx context.Context, instrumentID string, date time.Time) (*models.InstrumentPrice, error)
	List(ctx context.Context, date time.Time, page pagination.PageRequest) (*pagination.PageResponse[models.InstrumentPrice], error)
}

// ExchangeRateStore persists ExchangeRate rows per rate date.
type ExchangeRateStore interface {
	ReplaceForDate(ctx context.Context, date time.Time, rates []models.ExchangeRate) (int64, error)
	GetByDate(ctx context.Context, date time.Time) ([]models.ExchangeRate, error)
	GetLatestOnOrBefore(ctx context.Context, base, target money.Currency, date time.Time) (*models.ExchangeRate, error)
}

// HoldingStore persists holdings snapshots per valuation date.
type HoldingStore interface {
	ReplaceForDate(ctx context.Context, date time.Time, holdings []models.Holding) (int64, error)
	GetByDate(ctx context.Context, date time.Time) ([]models.Holding, error)
	GetViewsByDate(ctx context.Context, date time.Time) ([]HoldingView, error)
	LatestDateBefore(ctx context.Context, date time.Time) (time.Time, bool, error)
	LatestDateOnOrBefore(ctx context.Context, date time.Time) (time.Time, bool, error)
	ListViews(ctx context.Context, date time.Time, portfolioID string, page pagination.PageRequest) (*pagination.PageResponse[HoldingView], error)
}

// InstrumentStore reads the instrument universe.
type InstrumentStore interface {
	FindByTickers(ctx context.Context, tickers []string) ([]models.Instrument, error)
	HeldTickers(ctx context.Context, date time.Time) ([]string, error)
}

// HoldingView is a holding joined with its portfolio, instrument and platform,
// read in one query as a flat value.
type HoldingView struct {
	HoldingID                 string          `json:"holding_id"`
	PortfolioID               string          `json:"portfolio_id"`
	PortfolioName             string          `json:"portfolio_name"`
	PortfolioCurrency         money.Currency  `json:"portfolio_currency"`
	InstrumentID              string          `json:"instrument_id"`
	Ticker                    string          `json:"ticker"`
	InstrumentName            string          `json:"instrument_name"`
	InstrumentCurrency        money.Currency  `json:"instrument_currency"`
	QuoteUnit                 money.QuoteUnit `json:"quote_unit"`
	PlatformID                string          `json:"platform_id"`
	PlatformName              string          `json:"platform_name"`
	ValuationDate             time.Time       `json:"valuation_date"`
	UnitAmount                decimal.Decimal `json:"unit_amount"`
	BoughtValue               decimal.Decimal `json:"bought_value"`
	CurrentValue              decimal.Decimal `json:"current_value"`
	DailyProfitLoss           decimal.Decimal `json:"daily_profit_loss"`
	DailyProfitLossPercentage decimal.Decimal `json:"daily_profit_loss_percentage"`
	Currency                  money.Currency  `json:"currency"`
}

// persistErr maps a gorm error to PERSISTENCE_FAILURE, or CANCELLED when the
// caller's context ended.
func persistErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return apperrors.Wrap(apperrors.ErrCancelled, err)
	}
	return apperrors.Wrap(apperrors.ErrPersistenceFailure, err)
}

// notFound maps gorm.ErrRecordNotFound to the given sentinel and anything else
// to PERSISTENCE_FAILURE.
func notFound(err error, sentinel *apperrors.AppError) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sentinel
	}
	return persistErr(err)
}

// replaceForDate runs delete-then-insert for one date in a single transaction.
// model must be a pointer to the row type; column names the date column.
func replaceForDate[T any](ctx context.Context, db *gorm.DB, model *T, column string, date time.Time, rows []T) (int64, error) {
	var deleted int64
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where(column+" = ?", date).Delete(model)
		if res.Error != nil {
			return res.Error
		}
		deleted = res.RowsAffected

		if len(rows) == 0 {
			return nil
		}
		return tx.CreateInBatches(&rows, batchSize).Error
	})
	if err != nil {
		return 0, persistErr(err)
	}
	return deleted, nil
}

var (
	_ PriceStore        = (*Prices)(nil)
	_ ExchangeRateStore = (*Rates)(nil)
	_ HoldingStore      = (*Holdings)(nil)
	_ InstrumentStore   = (*Instruments)(nil)
)
