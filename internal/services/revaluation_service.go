package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	apperrors "valora/internal/errors"
	"valora/internal/logger"
	"valora/internal/models"
	"valora/internal/money"
	"valora/internal/pricing"
	"valora/internal/store"
)

var hundred = decimal.NewFromInt(100)

// revaluationService rolls the latest earlier holdings snapshot forward to a
// new valuation date using that date's prices.
type revaluationService struct {
	holdings store.HoldingStore
	prices   store.PriceStore
	calc     *pricing.Calculator
	runs     RunRecorder
	fallback money.Currency
	log      *zap.SugaredLogger
}

// NewRevaluationService creates a new RevaluationServicer. fallback is the
// valuation currency used when a holding's portfolio has none; runs may be nil.
func NewRevaluationService(
	holdings store.HoldingStore,
	prices store.PriceStore,
	rates pricing.RateLookup,
	runs RunRecorder,
	fallback money.Currency,
) RevaluationServicer {
	return &revaluationService{
		holdings: holdings,
		prices:   prices,
		calc:     pricing.NewCalculator(rates),
		runs:     runs,
		fallback: fallback,
		log:      logger.Named("revaluation"),
	}
}

// Revalue builds the snapshot for date from the latest snapshot strictly
// before it. Holdings without a price for date, or without a usable exchange
// rate, are reported and left out. The new snapshot replaces whatever was
// stored for date in one transaction.
func (s *revaluationService) Revalue(ctx context.Context, date time.Time) (*RevaluationResult, error) {
	start := time.Now()
	day := models.Day(date)
	result := &RevaluationResult{
		ValuationDate:     day,
		FailedInstruments: []RevaluationFailure{},
		TotalValue:        map[string]decimal.Decimal{},
	}

	err := s.revalue(ctx, day, result)
	result.Duration = since(start)

	summary := fmt.Sprintf("%d/%d holdings revalued for %s", result.SuccessfulRevaluations, result.TotalHoldings, day.Format(models.DateLayout))
	if result.SourceValuationDate != nil {
		summary += " from " + result.SourceValuationDate.Format(models.DateLayout)
	}
	record(ctx, s.runs, newRun(models.RunPhaseRevaluation, day, start,
		result.TotalHoldings, result.SuccessfulRevaluations, result.FailedRevaluations, err, summary, result.FailedInstruments))

	if err != nil {
		s.log.Errorw("revaluation failed", "date", day.Format(models.DateLayout), "code", apperrors.CodeOf(err), "error", err)
		return result, err
	}
	s.log.Infow("revaluation complete",
		"date", day.Format(models.DateLayout),
		"source_date", result.SourceValuationDate.Format(models.DateLayout),
		"total", result.TotalHoldings,
		"succeeded", result.SuccessfulRevaluations,
		"failed", result.FailedRevaluations,
		"replaced", result.ReplacedHoldings,
		"duration", time.Duration(result.Duration),
	)
	return result, nil
}

func (s *revaluationService) revalue(ctx context.Context, day time.Time, result *RevaluationResult) error {
	if err := ctx.Err(); err != nil {
		return apperrors.Wrap(apperrors.ErrCancelled, err)
	}
	source, ok, err := s.holdings.LatestDateBefore(ctx, day)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.WithMessage(apperrors.ErrNoSourceSnapshot,
			"No holdings snapshot before "+day.Format(models.DateLayout))
	}
	result.SourceValuationDate = &source

	views, err := s.holdings.GetViewsByDate(ctx, source)
	if err != nil {
		return err
	}
	result.TotalHoldings = len(views)

	prices, err := s.prices.GetByDate(ctx, day)
	if err != nil {
		return err
	}
	byInstrument := make(map[string]models.InstrumentPrice, len(prices))
	for _, p := range prices {
		byInstrument[p.InstrumentID] = p
	}

	rows := make([]models.Holding, 0, len(views))
	for _, v := range views {
		if err := ctx.Err(); err != nil {
			return apperrors.Wrap(apperrors.ErrCancelled, err)
		}

		row, err := s.revalueOne(ctx, day, v, byInstrument)
		if err != nil {
			if !isPerHoldingFailure(err) {
				return err
			}
			code, msg := failureCode(err)
			s.log.Warnw("holding not revalued", "ticker", v.Ticker, "portfolio", v.PortfolioName, "code", code, "error", msg)
			result.FailedInstruments = append(result.FailedInstruments, RevaluationFailure{
				Ticker:  v.Ticker,
				Name:    v.InstrumentName,
				Message: msg,
				Code:    code,
			})
			result.FailedRevaluations++
			continue
		}

		rows = append(rows, row)
		result.SuccessfulRevaluations++
		cur := row.Currency.Code()
		result.TotalValue[cur] = result.TotalValue[cur].Add(row.CurrentValue)
	}

	if err := ctx.Err(); err != nil {
		return apperrors.Wrap(apperrors.ErrCancelled, err)
	}

	replaced, err := s.holdings.ReplaceForDate(ctx, day, rows)
	if err != nil {
		return err
	}
	result.ReplacedHoldings = replaced
	result.Persisted = true
	return nil
}

func (s *revaluationService) revalueOne(ctx context.Context, day time.Time, v store.HoldingView, prices map[string]models.InstrumentPrice) (models.Holding, error) {
	price, ok := prices[v.InstrumentID]
	if !ok {
		return models.Holding{}, apperrors.WithMessage(apperrors.ErrPriceNotFound,
			fmt.Sprintf("No price for %s on %s", v.Ticker, day.Format(models.DateLayout)))
	}

	// The instrument's minor unit only applies to prices in its major currency.
	unit := price.QuoteUnit
	if !unit.IsMinor() && v.QuoteUnit.IsMinor() && v.QuoteUnit.Major() == price.Currency {
		unit = v.QuoteUnit
	}
	valuation := v.PortfolioCurrency
	if valuation.IsZero() {
		valuation = s.fallback
	}

	res, err := s.calc.Price(ctx, pricing.Input{
		RawPrice:          price.Price,
		PriceCurrency:     price.Currency,
		QuoteUnit:         unit,
		ValuationCurrency: valuation,
		Units:             v.UnitAmount,
		AsOf:              day,
	})
	if err != nil {
		return models.Holding{}, err
	}

	current := money.RoundValue(res.CurrentValue)
	pl := current.Sub(v.CurrentValue)

	return models.Holding{
		PortfolioID:               v.PortfolioID,
		InstrumentID:              v.InstrumentID,
		PlatformID:                v.PlatformID,
		ValuationDate:             day,
		UnitAmount:                v.UnitAmount,
		BoughtValue:               v.BoughtValue,
		CurrentValue:              current,
		DailyProfitLoss:           pl,
		DailyProfitLossPercentage: percentChange(pl, current),
		Currency:                  valuation,
	}, nil
}

// percentChange returns pl as a percentage of the previous value (current-pl),
// rounded to two places. A zero previous value yields zero.
func percentChange(pl, current decimal.Decimal) decimal.Decimal {
	previous := current.Sub(pl)
	if previous.IsZero() {
		return decimal.Zero
	}
	return pl.Div(previous).Mul(hundred).Round(money.ValueScale)
}

// isPerHoldingFailure reports errors that exclude one holding without failing the run.
func isPerHoldingFailure(err error) bool {
	return errors.Is(err, apperrors.ErrPriceNotFound) ||
		errors.Is(err, apperrors.ErrNoRateAvailable) ||
		errors.Is(err, apperrors.ErrInvalidCurrency)
}
