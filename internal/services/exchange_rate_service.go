package services

import (
	"context"
	"errors"
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

// RatePair is a directed currency pair: one Base buys Rate units of Target.
type RatePair struct {
	Base   money.Currency
	Target money.Currency
}

// String returns "BASE/TARGET".
func (p RatePair) String() string { return p.Base.Code() + "/" + p.Target.Code() }

// ParseRatePair parses "GBP/USD", "GBP-USD" or "GBPUSD".
func ParseRatePair(s string) (RatePair, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	var base, target string
	switch {
	case strings.ContainsAny(s, "/-"):
		parts := strings.FieldsFunc(s, func(r rune) bool { return r == '/' || r == '-' })
		if len(parts) != 2 {
			return RatePair{}, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid currency pair "+s)
		}
		base, target = parts[0], parts[1]
	case len(s) == 6:
		base, target = s[:3], s[3:]
	default:
		return RatePair{}, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid currency pair "+s)
	}

	b, err := money.ParseCurrency(base)
	if err != nil {
		return RatePair{}, err
	}
	t, err := money.ParseCurrency(target)
	if err != nil {
		return RatePair{}, err
	}
	if b == t {
		return RatePair{}, apperrors.WithMessage(apperrors.ErrInvalidInput, "Currency pair needs two different currencies")
	}
	return RatePair{Base: b, Target: t}, nil
}

// ParseRatePairs parses a list of pairs, failing on the first invalid one.
func ParseRatePairs(values []string) ([]RatePair, error) {
	pairs := make([]RatePair, 0, len(values))
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			continue
		}
		p, err := ParseRatePair(v)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, p)
	}
	return pairs, nil
}

// exchangeRateService refreshes the stored rate set of a date from a provider.
type exchangeRateService struct {
	rates       store.ExchangeRateStore
	holdings    store.HoldingStore
	prices      store.PriceStore
	client      provider.RateProviderClient
	runs        RunRecorder
	defaults    []RatePair
	concurrency int
	log         *zap.SugaredLogger
}

// NewExchangeRateService creates a new ExchangeRateServicer. defaults are the
// pairs refreshed when a caller names none; with no defaults the pairs are
// derived from the latest holdings snapshot and the prices stored for it.
func NewExchangeRateService(
	rates store.ExchangeRateStore,
	holdings store.HoldingStore,
	prices store.PriceStore,
	client provider.RateProviderClient,
	runs RunRecorder,
	defaults []RatePair,
	concurrency int,
) ExchangeRateServicer {
	if concurrency < 1 {
		concurrency = DefaultFetchConcurrency
	}
	return &exchangeRateService{
		rates:       rates,
		holdings:    holdings,
		prices:      prices,
		client:      client,
		runs:        runs,
		defaults:    defaults,
		concurrency: concurrency,
		log:         logger.Named("exchange_rates"),
	}
}

// Refresh fetches every pair for date and replaces the whole stored rate set
// of that date. Failed pairs are reported; when every pair fails the stored
// set is kept.
func (s *exchangeRateService) Refresh(ctx context.Context, date time.Time, pairs []RatePair) (*RateRefreshResult, error) {
	start := time.Now()
	day := models.Day(date)
	result := &RateRefreshResult{RateDate: day, Failures: []FetchFailure{}}

	err := s.refresh(ctx, day, pairs, result)
	result.Duration = since(start)

	summary := fmt.Sprintf("%d/%d exchange rates fetched for %s", result.SuccessfulCount, result.TotalPairs, day.Format(models.DateLayout))
	record(ctx, s.runs, newRun(models.RunPhaseExchangeRates, day, start,
		result.TotalPairs, result.SuccessfulCount, len(result.Failures), err, summary, result.Failures))

	if err != nil {
		s.log.Errorw("exchange rate refresh failed", "date", day.Format(models.DateLayout), "code", apperrors.CodeOf(err), "error", err)
		return result, err
	}
	s.log.Infow("exchange rate refresh complete",
		"date", day.Format(models.DateLayout),
		"total", result.TotalPairs,
		"succeeded", result.SuccessfulCount,
		"failed", len(result.Failures),
	)
	return result, nil
}

func (s *exchangeRateService) refresh(ctx context.Context, day time.Time, pairs []RatePair, result *RateRefreshResult) error {
	if len(pairs) == 0 {
		pairs = s.defaults
	}
	if len(pairs) == 0 {
		derived, err := s.derivePairs(ctx, day)
		if err != nil {
			return err
		}
		pairs = derived
	}
	pairs = uniquePairs(pairs)
	result.TotalPairs = len(pairs)

	var (
		mu   sync.Mutex
		rows = make([]models.ExchangeRate, 0, len(pairs))
	)
	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for _, pair := range pairs {
		pair := pair
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			rate, err := s.client.GetRate(ctx, pair.Base, pair.Target, day)
			if err == nil && !rate.Value.IsPositive() {
				err = fmt.Errorf("non-positive rate %s", rate.Value)
			}
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				appErr := apperrors.Wrap(apperrors.ErrRateFetchFailed, err)
				s.log.Warnw("exchange rate not fetched", "pair", pair.String(), "error", err)
				result.Failures = append(result.Failures, FetchFailure{Ticker: pair.String(), Message: appErr.Error(), Code: appErr.Code})
				return nil
			}
			rows = append(rows, models.ExchangeRate{
				BaseCurrency:   pair.Base,
				TargetCurrency: pair.Target,
				RateDate:       day,
				Rate:           rate.Value,
				Source:         s.client.Name(),
			})
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(result.Failures, func(i, j int) bool { return result.Failures[i].Ticker < result.Failures[j].Ticker })
	result.SuccessfulCount = len(rows)

	if err := ctx.Err(); err != nil {
		return apperrors.Wrap(apperrors.ErrCancelled, err)
	}
	if len(rows) == 0 {
		return nil
	}
	if _, err := s.rates.ReplaceForDate(ctx, day, rows); err != nil {
		return err
	}
	result.Persisted = true
	return nil
}

// derivePairs returns the price-currency to portfolio-currency pairs needed
// by the latest holdings snapshot on or before day. The price currency is the
// one of the instrument's latest stored price, falling back to the
// instrument's own currency when it has never been priced.
func (s *exchangeRateService) derivePairs(ctx context.Context, day time.Time) ([]RatePair, error) {
	source, ok, err := s.holdings.LatestDateOnOrBefore(ctx, day)
	if err != nil || !ok {
		return nil, err
	}
	views, err := s.holdings.GetViewsByDate(ctx, source)
	if err != nil {
		return nil, err
	}
	priced := make(map[string]money.Currency, len(views))
	pairs := make([]RatePair, 0)
	for _, v := range views {
		base, seen := priced[v.InstrumentID]
		if !seen {
			base, err = s.priceCurrency(ctx, v, day)
			if err != nil {
				return nil, err
			}
			priced[v.InstrumentID] = base
		}
		if base.IsZero() || v.PortfolioCurrency.IsZero() || base == v.PortfolioCurrency {
			continue
		}
		pairs = append(pairs, RatePair{Base: base, Target: v.PortfolioCurrency})
	}
	return pairs, nil
}

func (s *exchangeRateService) priceCurrency(ctx context.Context, v store.HoldingView, day time.Time) (money.Currency, error) {
	if s.prices == nil {
		return v.InstrumentCurrency, nil
	}
	price, err := s.prices.GetLatestOnOrBefore(ctx, v.InstrumentID, day)
	switch {
	case err == nil && !price.Currency.IsZero():
		return price.Currency, nil
	case err == nil, errors.Is(err, apperrors.ErrPriceNotFound):
		return v.InstrumentCurrency, nil
	default:
		return money.Currency{}, err
	}
}

func uniquePairs(pairs []RatePair) []RatePair {
	seen := make(map[RatePair]struct{}, len(pairs))
	out := make([]RatePair, 0, len(pairs))
	for _, p := range pairs {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}
