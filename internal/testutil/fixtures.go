package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"valora/internal/models"
	"valora/internal/money"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// Day parses a YYYY-MM-DD date or fails the test.
func Day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := models.ParseDay(s)
	if err != nil {
		t.Fatalf("invalid date %q: %v", s, err)
	}
	return d
}

// Dec parses a decimal literal or fails the test.
func Dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("invalid decimal %q: %v", s, err)
	}
	return d
}

// CreateTestPortfolio creates a portfolio valued in the given currency.
func CreateTestPortfolio(t *testing.T, db *gorm.DB, currency string) *models.Portfolio {
	t.Helper()

	portfolio := &models.Portfolio{
		Name:     fmt.Sprintf("Portfolio %d", nextID()),
		Currency: money.MustCurrency(currency),
	}
	if err := db.Create(portfolio).Error; err != nil {
		t.Fatalf("failed to create test portfolio: %v", err)
	}
	return portfolio
}

// CreateTestPlatform creates a platform with a unique name.
func CreateTestPlatform(t *testing.T, db *gorm.DB) *models.Platform {
	t.Helper()

	platform := &models.Platform{Name: fmt.Sprintf("Platform %d", nextID())}
	if err := db.Create(platform).Error; err != nil {
		t.Fatalf("failed to create test platform: %v", err)
	}
	return platform
}

// CreateTestInstrument creates an instrument quoted in major units of currency.
func CreateTestInstrument(t *testing.T, db *gorm.DB, ticker, currency string) *models.Instrument {
	t.Helper()
	return CreateTestInstrumentWithUnit(t, db, ticker, currency, "")
}

// CreateTestInstrumentWithUnit creates an instrument with an explicit quote unit.
func CreateTestInstrumentWithUnit(t *testing.T, db *gorm.DB, ticker, currency, quoteUnit string) *models.Instrument {
	t.Helper()

	instrument := &models.Instrument{
		Ticker:    ticker,
		Name:      ticker + " plc",
		Type:      models.InstrumentTypeEquity,
		Currency:  money.MustCurrency(currency),
		QuoteUnit: money.MustQuoteUnit(quoteUnit),
	}
	if err := db.Create(instrument).Error; err != nil {
		t.Fatalf("failed to create test instrument: %v", err)
	}
	return instrument
}

// CreateTestHolding inserts one holding row for date. Values are decimal literals.
func CreateTestHolding(t *testing.T, db *gorm.DB, portfolio *models.Portfolio, instrument *models.Instrument, platform *models.Platform, date time.Time, units, bought, current string) *models.Holding {
	t.Helper()

	holding := &models.Holding{
		PortfolioID:               portfolio.ID,
		InstrumentID:              instrument.ID,
		PlatformID:                platform.ID,
		ValuationDate:             models.Day(date),
		UnitAmount:                Dec(t, units),
		BoughtValue:               Dec(t, bought),
		CurrentValue:              Dec(t, current),
		DailyProfitLoss:           decimal.Zero,
		DailyProfitLossPercentage: decimal.Zero,
		Currency:                  portfolio.Currency,
	}
	if err := db.Create(holding).Error; err != nil {
		t.Fatalf("failed to create test holding: %v", err)
	}
	return holding
}

// CreateTestPrice inserts a price for instrument on date in the given currency.
func CreateTestPrice(t *testing.T, db *gorm.DB, instrument *models.Instrument, date time.Time, price, currency string) *models.InstrumentPrice {
	t.Helper()

	row := &models.InstrumentPrice{
		InstrumentID:  instrument.ID,
		ValuationDate: models.Day(date),
		Price:         Dec(t, price),
		Currency:      money.MustCurrency(currency),
		QuoteUnit:     instrument.QuoteUnit,
		Source:        "test",
		MarketTime:    models.Day(date),
	}
	if err := db.Create(row).Error; err != nil {
		t.Fatalf("failed to create test price: %v", err)
	}
	return row
}

// CreateTestRate inserts a base->target exchange rate dated date.
func CreateTestRate(t *testing.T, db *gorm.DB, base, target string, date time.Time, rate string) *models.ExchangeRate {
	t.Helper()

	row := &models.ExchangeRate{
		BaseCurrency:   money.MustCurrency(base),
		TargetCurrency: money.MustCurrency(target),
		RateDate:       models.Day(date),
		Rate:           Dec(t, rate),
		Source:         "test",
	}
	if err := db.Create(row).Error; err != nil {
		t.Fatalf("failed to create test rate: %v", err)
	}
	return row
}
