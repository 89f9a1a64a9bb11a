package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"valora/internal/money"
)

// Holding is one position (portfolio, instrument, platform) as valued on a single date.
// Each date's rows form an immutable snapshot that is only ever replaced wholesale.
type Holding struct {
	ID                        string          `gorm:"type:uuid;primaryKey" json:"id"`
	PortfolioID               string          `gorm:"type:uuid;not null;uniqueIndex:uq_holdings_position_date" json:"portfolio_id"`
	InstrumentID              string          `gorm:"type:uuid;not null;uniqueIndex:uq_holdings_position_date" json:"instrument_id"`
	PlatformID                string          `gorm:"type:uuid;not null;uniqueIndex:uq_holdings_position_date" json:"platform_id"`
	ValuationDate             time.Time       `gorm:"type:date;not null;uniqueIndex:uq_holdings_position_date;index" json:"valuation_date"`
	UnitAmount                decimal.Decimal `gorm:"type:numeric(24,8);not null" json:"unit_amount"`
	BoughtValue               decimal.Decimal `gorm:"type:numeric(20,2);not null" json:"bought_value"`
	CurrentValue              decimal.Decimal `gorm:"type:numeric(20,2);not null" json:"current_value"`
	DailyProfitLoss           decimal.Decimal `gorm:"type:numeric(20,2);not null" json:"daily_profit_loss"`
	DailyProfitLossPercentage decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"daily_profit_loss_percentage"`
	Currency                  money.Currency  `gorm:"type:varchar(3);not null" json:"currency"`
	CreatedAt                 time.Time       `json:"created_at"`
}

// BeforeCreate hook generates a UUIDv7 for new records
func (h *Holding) BeforeCreate(tx *gorm.DB) error {
	if h.ID == "" {
		h.ID = newID()
	}
	return nil
}
