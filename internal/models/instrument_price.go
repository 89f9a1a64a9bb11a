package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"valora/internal/money"
)

// InstrumentPrice is the market price of an instrument for one valuation date.
// Rows for a date are only ever replaced as a whole set.
type InstrumentPrice struct {
	ID            string          `gorm:"type:uuid;primaryKey" json:"id"`
	InstrumentID  string          `gorm:"type:uuid;not null;uniqueIndex:uq_instrument_prices_instrument_date" json:"instrument_id"`
	ValuationDate time.Time       `gorm:"type:date;not null;uniqueIndex:uq_instrument_prices_instrument_date;index" json:"valuation_date"`
	Price         decimal.Decimal `gorm:"type:numeric(24,8);not null" json:"price"`
	Currency      money.Currency  `gorm:"type:varchar(3);not null" json:"currency"`
	QuoteUnit     money.QuoteUnit `gorm:"type:varchar(8)" json:"quote_unit"`
	Source        string          `json:"source"`
	Exchange      string          `json:"exchange,omitempty"`
	MarketTime    time.Time       `json:"market_time"`
	CreatedAt     time.Time       `json:"created_at"`
}

// BeforeCreate hook generates a UUIDv7 for new records
func (p *InstrumentPrice) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = newID()
	}
	return nil
}

// ExchangeRate converts one unit of BaseCurrency into TargetCurrency as of RateDate.
type ExchangeRate struct {
	ID             string          `gorm:"type:uuid;primaryKey" json:"id"`
	BaseCurrency   money.Currency  `gorm:"type:varchar(3);not null;uniqueIndex:uq_exchange_rates_pair_date" json:"base_currency"`
	TargetCurrency money.Currency  `gorm:"type:varchar(3);not null;uniqueIndex:uq_exchange_rates_pair_date" json:"target_currency"`
	RateDate       time.Time       `gorm:"type:date;not null;uniqueIndex:uq_exchange_rates_pair_date;index" json:"rate_date"`
	Rate           decimal.Decimal `gorm:"type:numeric(24,10);not null" json:"rate"`
	Source         string          `json:"source"`
	CreatedAt      time.Time       `json:"created_at"`
}

// BeforeCreate hook generates a UUIDv7 for new records
func (r *ExchangeRate) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = newID()
	}
	return nil
}
