// Package seed loads reference data and an opening holdings snapshot from a
// YAML document.
package seed

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	playvalidator "github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	apperrors "valora/internal/errors"
	"valora/internal/logger"
	"valora/internal/models"
	"valora/internal/money"
	"valora/internal/store"
	"valora/internal/validator"
)

// File is the seed document.
type File struct {
	Date        string       `yaml:"date" validate:"required,valuation_date"`
	Portfolios  []Portfolio  `yaml:"portfolios" validate:"dive"`
	Platforms   []Platform   `yaml:"platforms" validate:"dive"`
	Instruments []Instrument `yaml:"instruments" validate:"dive"`
	Holdings    []Holding    `yaml:"holdings" validate:"dive"`
	Prices      []Price      `yaml:"prices" validate:"dive"`
	Rates       []Rate       `yaml:"rates" validate:"dive"`
}

// Portfolio is keyed by name.
type Portfolio struct {
	Name     string `yaml:"name" validate:"required"`
	Currency string `yaml:"currency" validate:"required,iso4217"`
}

// Platform is keyed by name.
type Platform struct {
	Name string `yaml:"name" validate:"required"`
}

// Instrument is keyed by ticker.
type Instrument struct {
	Ticker    string `yaml:"ticker" validate:"required,ticker"`
	Name      string `yaml:"name" validate:"required"`
	Type      string `yaml:"type" validate:"omitempty,oneof=equity etf fund bond crypto"`
	Currency  string `yaml:"currency" validate:"required,iso4217"`
	QuoteUnit string `yaml:"quote_unit" validate:"omitempty,quote_unit"`
	Exchange  string `yaml:"exchange"`
}

// Holding is one position of the opening snapshot. Amounts are decimal strings.
type Holding struct {
	Portfolio    string `yaml:"portfolio" validate:"required"`
	Platform     string `yaml:"platform" validate:"required"`
	Ticker       string `yaml:"ticker" validate:"required,ticker"`
	Units        string `yaml:"units" validate:"required,numeric"`
	BoughtValue  string `yaml:"bought_value" validate:"required,numeric"`
	CurrentValue string `yaml:"current_value" validate:"required,numeric"`
}

// Price is a stored price for a date (default: the document date).
type Price struct {
	Ticker    string `yaml:"ticker" validate:"required,ticker"`
	Date      string `yaml:"date" validate:"omitempty,valuation_date"`
	Price     string `yaml:"price" validate:"required,numeric"`
	Currency  string `yaml:"currency" validate:"required,iso4217"`
	QuoteUnit string `yaml:"quote_unit" validate:"omitempty,quote_unit"`
}

// Rate is a stored base->target exchange rate for a date (default: the document date).
type Rate struct {
	Base   string `yaml:"base" validate:"required,iso4217"`
	Target string `yaml:"target" validate:"required,iso4217"`
	Date   string `yaml:"date" validate:"omitempty,valuation_date"`
	Rate   string `yaml:"rate" validate:"required,numeric"`
}

// Result counts what Apply wrote.
type Result struct {
	Portfolios  int
	Platforms   int
	Instruments int
	Holdings    int
	Prices      int
	Rates       int
}

var validate = func() *playvalidator.Validate {
	v := playvalidator.New()
	validator.RegisterOn(v)
	return v
}()

// LoadFile reads and validates a seed document from path.
func LoadFile(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening seed file: %w", err)
	}
	defer func() { _ = f.Close() }()
	return Parse(f)
}

// Parse decodes and validates a seed document. Unknown keys are rejected.
func Parse(r io.Reader) (*File, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc File
	if err := dec.Decode(&doc); err != nil {
		return nil, apperrors.Wrap(apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid seed document"), err)
	}
	if err := validate.Struct(&doc); err != nil {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error())
	}
	return &doc, nil
}

// Loader writes seed documents to the database.
type Loader struct {
	db *gorm.DB
}

// NewLoader creates a seed loader.
func NewLoader(db *gorm.DB) *Loader {
	return &Loader{db: db}
}

// Apply upserts portfolios, platforms and instruments by natural key, then
// replaces the holdings snapshot of the document date and the price and rate
// sets of every date the document mentions. Everything runs in one transaction.
func (l *Loader) Apply(ctx context.Context, doc *File) (*Result, error) {
	date, err := models.ParseDay(doc.Date)
	if err != nil {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid seed date "+doc.Date)
	}

	res := &Result{}
	err = l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		portfolios, err := upsertPortfolios(tx, doc.Portfolios)
		if err != nil {
			return err
		}
		platforms, err := upsertPlatforms(tx, doc.Platforms)
		if err != nil {
			return err
		}
		instruments, err := upsertInstruments(tx, doc.Instruments)
		if err != nil {
			return err
		}
		res.Portfolios, res.Platforms, res.Instruments = len(doc.Portfolios), len(doc.Platforms), len(doc.Instruments)

		if len(doc.Holdings) > 0 {
			holdings, err := buildHoldings(doc.Holdings, date, portfolios, platforms, instruments)
			if err != nil {
				return err
			}
			if _, err := store.NewHoldings(tx).ReplaceForDate(ctx, date, holdings); err != nil {
				return err
			}
			res.Holdings = len(holdings)
		}

		prices, err := buildPrices(doc.Prices, date, instruments)
		if err != nil {
			return err
		}
		priceStore := store.NewPrices(tx)
		for _, d := range sortedDates(prices) {
			if _, err := priceStore.ReplaceForDate(ctx, d, prices[d]); err != nil {
				return err
			}
			res.Prices += len(prices[d])
		}

		rates, err := buildRates(doc.Rates, date)
		if err != nil {
			return err
		}
		rateStore := store.NewRates(tx)
		for _, d := range sortedDates(rates) {
			if _, err := rateStore.ReplaceForDate(ctx, d, rates[d]); err != nil {
				return err
			}
			res.Rates += len(rates[d])
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Named("seed").Infow("seed applied",
		"date", doc.Date,
		"portfolios", res.Portfolios,
		"platforms", res.Platforms,
		"instruments", res.Instruments,
		"holdings", res.Holdings,
		"prices", res.Prices,
		"rates", res.Rates,
	)
	return res, nil
}

func upsertPortfolios(tx *gorm.DB, in []Portfolio) (map[string]*models.Portfolio, error) {
	out := make(map[string]*models.Portfolio, len(in))
	for _, p := range in {
		currency, err := money.ParseCurrency(p.Currency)
		if err != nil {
			return nil, err
		}
		row := &models.Portfolio{}
		if err := tx.Where("name = ?", p.Name).
			Assign(models.Portfolio{Currency: currency}).
			FirstOrCreate(row, models.Portfolio{Name: p.Name}).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrPersistenceFailure, err)
		}
		out[p.Name] = row
	}
	return out, nil
}

func upsertPlatforms(tx *gorm.DB, in []Platform) (map[string]*models.Platform, error) {
	out := make(map[string]*models.Platform, len(in))
	for _, p := range in {
		row := &models.Platform{}
		if err := tx.Where("name = ?", p.Name).FirstOrCreate(row, models.Platform{Name: p.Name}).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrPersistenceFailure, err)
		}
		out[p.Name] = row
	}
	return out, nil
}

func upsertInstruments(tx *gorm.DB, in []Instrument) (map[string]*models.Instrument, error) {
	out := make(map[string]*models.Instrument, len(in))
	for _, i := range in {
		currency, err := money.ParseCurrency(i.Currency)
		if err != nil {
			return nil, err
		}
		unit, err := money.ParseQuoteUnit(i.QuoteUnit)
		if err != nil {
			return nil, err
		}
		typ := models.InstrumentType(i.Type)
		if typ == "" {
			typ = models.InstrumentTypeEquity
		}
		row := &models.Instrument{}
		if err := tx.Where("ticker = ?", i.Ticker).
			Assign(models.Instrument{Name: i.Name, Type: typ, Currency: currency, QuoteUnit: unit, Exchange: i.Exchange}).
			FirstOrCreate(row, models.Instrument{Ticker: i.Ticker}).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrPersistenceFailure, err)
		}
		out[i.Ticker] = row
	}
	return out, nil
}

// buildHoldings resolves natural keys. The opening snapshot has no daily P&L.
func buildHoldings(in []Holding, date time.Time, portfolios map[string]*models.Portfolio, platforms map[string]*models.Platform, instruments map[string]*models.Instrument) ([]models.Holding, error) {
	out := make([]models.Holding, 0, len(in))
	for _, h := range in {
		portfolio, ok := portfolios[h.Portfolio]
		if !ok {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "holding references unknown portfolio "+h.Portfolio)
		}
		platform, ok := platforms[h.Platform]
		if !ok {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "holding references unknown platform "+h.Platform)
		}
		instrument, ok := instruments[h.Ticker]
		if !ok {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "holding references unknown instrument "+h.Ticker)
		}
		units, err := decimal.NewFromString(h.Units)
		if err != nil {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid units for "+h.Ticker)
		}
		bought, err := decimal.NewFromString(h.BoughtValue)
		if err != nil {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid bought_value for "+h.Ticker)
		}
		current, err := decimal.NewFromString(h.CurrentValue)
		if err != nil {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid current_value for "+h.Ticker)
		}
		out = append(out, models.Holding{
			PortfolioID:               portfolio.ID,
			InstrumentID:              instrument.ID,
			PlatformID:                platform.ID,
			ValuationDate:             date,
			UnitAmount:                units,
			BoughtValue:               money.RoundValue(bought),
			CurrentValue:              money.RoundValue(current),
			DailyProfitLoss:           decimal.Zero,
			DailyProfitLossPercentage: decimal.Zero,
			Currency:                  portfolio.Currency,
		})
	}
	return out, nil
}

func buildPrices(in []Price, date time.Time, instruments map[string]*models.Instrument) (map[time.Time][]models.InstrumentPrice, error) {
	out := make(map[time.Time][]models.InstrumentPrice)
	for _, p := range in {
		instrument, ok := instruments[p.Ticker]
		if !ok {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "price references unknown instrument "+p.Ticker)
		}
		d, err := dateOr(p.Date, date)
		if err != nil {
			return nil, err
		}
		price, err := decimal.NewFromString(p.Price)
		if err != nil || !price.IsPositive() {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid price for "+p.Ticker)
		}
		currency, err := money.ParseCurrency(p.Currency)
		if err != nil {
			return nil, err
		}
		unit := instrument.QuoteUnit
		if p.QuoteUnit != "" {
			if unit, err = money.ParseQuoteUnit(p.QuoteUnit); err != nil {
				return nil, err
			}
		}
		out[d] = append(out[d], models.InstrumentPrice{
			InstrumentID:  instrument.ID,
			ValuationDate: d,
			Price:         price,
			Currency:      currency,
			QuoteUnit:     unit,
			Source:        "seed",
			MarketTime:    d,
		})
	}
	return out, nil
}

func buildRates(in []Rate, date time.Time) (map[time.Time][]models.ExchangeRate, error) {
	out := make(map[time.Time][]models.ExchangeRate)
	for _, r := range in {
		d, err := dateOr(r.Date, date)
		if err != nil {
			return nil, err
		}
		base, err := money.ParseCurrency(r.Base)
		if err != nil {
			return nil, err
		}
		target, err := money.ParseCurrency(r.Target)
		if err != nil {
			return nil, err
		}
		rate, err := decimal.NewFromString(r.Rate)
		if err != nil || !rate.IsPositive() {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, fmt.Sprintf("invalid rate for %s/%s", r.Base, r.Target))
		}
		out[d] = append(out[d], models.ExchangeRate{
			BaseCurrency:   base,
			TargetCurrency: target,
			RateDate:       d,
			Rate:           rate,
			Source:         "seed",
		})
	}
	return out, nil
}

func dateOr(s string, fallback time.Time) (time.Time, error) {
	if s == "" {
		return fallback, nil
	}
	d, err := models.ParseDay(s)
	if err != nil {
		return time.Time{}, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid date "+s)
	}
	return d, nil
}

func sortedDates[T any](m map[time.Time]T) []time.Time {
	dates := make([]time.Time, 0, len(m))
	for d := range m {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}
