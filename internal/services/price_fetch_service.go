package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	apperrors "valora/internal/errors"
	"valora/internal/logger"
	"valora/internal/models"
	"valora/internal/money"
	"valora/internal/provider"
	"valora/internal/store"
)

// DefaultFetchConcurrency bounds in-flight provider calls when none is configured.
const DefaultFetchConcurrency = 4

// priceFetchService fetches one closing price per ticker and stores the
// successful ones as the price set of the valuation date.
type priceFetchService struct {
	instruments store.InstrumentStore
	prices      store.PriceStore
	client      provider.PriceProviderClient
	runs        RunRecorder
	concurrency int
	log         *zap.SugaredLogger
}

// NewPriceFetchService creates a new PriceFetchServicer. runs may be nil.
func NewPriceFetchService(
	instruments store.InstrumentStore,
	prices store.PriceStore,
	client provider.PriceProviderClient,
	runs RunRecorder,
	concurrency int,
) PriceFetchServicer {
	if concurrency < 1 {
		concurrency = DefaultFetchConcurrency
	}
	return &priceFetchService{
		instruments: instruments,
		prices:      prices,
		client:      client,
		runs:        runs,
		concurrency: concurrency,
		log:         logger.Named("price_fetch"),
	}
}

// FetchPrices fetches every ticker independently; one ticker failing never
// stops the others. The fetched prices replace the stored set for date in one
// transaction. When nothing succeeds the stored set is left untouched. On
// cancellation nothing is written and the partial result is returned with
// ErrCancelled.
func (s *priceFetchService) FetchPrices(ctx context.Context, date time.Time, tickers []string) (*PriceFetchResult, error) {
	start := time.Now()
	day := models.Day(date)
	tickers = uniqueTickers(tickers)

	result := &PriceFetchResult{
		ValuationDate: day,
		TotalTickers:  len(tickers),
		Failures:      []FetchFailure{},
	}

	rows, err := s.fetch(ctx, day, tickers, result)
	if err == nil {
		err = s.persist(ctx, day, rows, result)
	}
	result.Duration = since(start)

	summary := fmt.Sprintf("%d/%d prices fetched for %s", result.SuccessfulCount, result.TotalTickers, day.Format(models.DateLayout))
	record(ctx, s.runs, newRun(models.RunPhasePrices, day, start,
		result.TotalTickers, result.SuccessfulCount, len(result.Failures), err, summary, result.Failures))

	if err != nil {
		s.log.Errorw("price fetch failed", "date", day.Format(models.DateLayout), "code", apperrors.CodeOf(err), "error", err)
		return result, err
	}
	s.log.Infow("price fetch complete",
		"date", day.Format(models.DateLayout),
		"total", result.TotalTickers,
		"succeeded", result.SuccessfulCount,
		"failed", len(result.Failures),
		"duration", time.Duration(result.Duration),
	)
	return result, nil
}

func (s *priceFetchService) fetch(ctx context.Context, day time.Time, tickers []string, result *PriceFetchResult) ([]models.InstrumentPrice, error) {
	instruments, err := s.instruments.FindByTickers(ctx, tickers)
	if err != nil {
		return nil, err
	}
	byTicker := make(map[string]models.Instrument, len(instruments))
	for _, inst := range instruments {
		byTicker[inst.Ticker] = inst
	}

	var (
		mu   sync.Mutex
		rows = make([]models.InstrumentPrice, 0, len(tickers))
	)
	fail := func(ticker string, err error) {
		code, msg := failureCode(err)
		s.log.Warnw("price not fetched", "ticker", ticker, "code", code, "error", msg)
		mu.Lock()
		result.Failures = append(result.Failures, FetchFailure{Ticker: ticker, Message: msg, Code: code})
		mu.Unlock()
	}

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for _, ticker := range tickers {
		if ctx.Err() != nil {
			break
		}
		inst, ok := byTicker[ticker]
		if !ok {
			fail(ticker, apperrors.WithMessage(apperrors.ErrInstrumentNotFound, "No instrument with ticker "+ticker))
			continue
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			row, err := s.fetchOne(ctx, inst, day)
			if err != nil {
				if ctx.Err() == nil {
					fail(inst.Ticker, err)
				}
				return nil
			}
			mu.Lock()
			rows = append(rows, row)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(rows, func(i, j int) bool { return rows[i].InstrumentID < rows[j].InstrumentID })
	sort.Slice(result.Failures, func(i, j int) bool { return result.Failures[i].Ticker < result.Failures[j].Ticker })
	result.SuccessfulCount = len(rows)

	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCancelled, err)
	}
	return rows, nil
}

// fetchOne asks the provider for one instrument's close and normalises the
// quoted currency. A vendor minor-unit code (GBp) wins over the instrument's
// configured unit; otherwise the instrument's unit applies.
func (s *priceFetchService) fetchOne(ctx context.Context, inst models.Instrument, day time.Time) (models.InstrumentPrice, error) {
	quote, err := s.client.GetPrice(ctx, inst.Ticker, day)
	if err != nil {
		return models.InstrumentPrice{}, apperrors.Wrap(apperrors.ErrPriceFetchFailed, &provider.FetchError{Ticker: inst.Ticker, Err: err})
	}
	if !quote.Price.IsPositive() {
		return models.InstrumentPrice{}, apperrors.WithMessage(apperrors.ErrInvalidQuote,
			fmt.Sprintf("Non-positive price %s for %s", quote.Price, inst.Ticker))
	}

	currency, unit, err := money.ParseQuotedCurrency(quote.Currency)
	if err != nil {
		return models.InstrumentPrice{}, apperrors.Wrap(apperrors.ErrInvalidQuote, err)
	}
	if !unit.IsMinor() && inst.QuoteUnit.IsMinor() && inst.QuoteUnit.Major() == currency {
		unit = inst.QuoteUnit
	}

	row := models.InstrumentPrice{
		InstrumentID:  inst.ID,
		ValuationDate: day,
		Price:         quote.Price,
		Currency:      currency,
		QuoteUnit:     unit,
		Source:        s.client.Name(),
		Exchange:      quote.Exchange,
	}
	if !quote.Timestamp.IsZero() {
		row.MarketTime = quote.Timestamp.UTC()
	}
	return row, nil
}

func (s *priceFetchService) persist(ctx context.Context, day time.Time, rows []models.InstrumentPrice, result *PriceFetchResult) error {
	if len(rows) == 0 {
		s.log.Warnw("no prices fetched, keeping stored set", "date", day.Format(models.DateLayout))
		return nil
	}
	if _, err := s.prices.ReplaceForDate(ctx, day, rows); err != nil {
		return err
	}
	result.Persisted = true
	return nil
}

// uniqueTickers trims, drops blanks and de-duplicates while keeping order.
func uniqueTickers(tickers []string) []string {
	seen := make(map[string]struct{}, len(tickers))
	out := make([]string, 0, len(tickers))
	for _, t := range tickers {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
