package models

import "valora/internal/money"

// InstrumentType classifies an instrument.
type InstrumentType string

const (
	InstrumentTypeEquity InstrumentType = "equity"
	InstrumentTypeETF    InstrumentType = "etf"
	InstrumentTypeFund   InstrumentType = "fund"
	InstrumentTypeBond   InstrumentType = "bond"
	InstrumentTypeCrypto InstrumentType = "crypto"
)

// Instrument is a priced security identified by its market ticker.
// Currency is the settlement currency; QuoteUnit is the denomination the
// market quotes it in (e.g. GBX for London listings priced in pence).
type Instrument struct {
	Base
	Ticker    string          `gorm:"not null;uniqueIndex" json:"ticker"`
	Name      string          `gorm:"not null" json:"name"`
	Type      InstrumentType  `gorm:"not null;default:'equity'" json:"type"`
	Currency  money.Currency  `gorm:"type:varchar(3)" json:"currency"`
	QuoteUnit money.QuoteUnit `gorm:"type:varchar(8)" json:"quote_unit"`
	Exchange  string          `json:"exchange,omitempty"`
}

// Portfolio groups holdings reported in a single valuation currency.
type Portfolio struct {
	Base
	Name     string         `gorm:"not null;uniqueIndex" json:"name"`
	Currency money.Currency `gorm:"type:varchar(3);not null" json:"currency"`
}

// Platform is the broker or custodian a holding is held with.
type Platform struct {
	Base
	Name string `gorm:"not null;uniqueIndex" json:"name"`
}
