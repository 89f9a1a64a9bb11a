package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"valora/internal/models"
	"valora/internal/money"
	"valora/internal/provider"
)

// fakePriceClient serves canned quotes. Tickers in errs fail; unknown tickers
// fail with errNoQuote.
type fakePriceClient struct {
	mu     sync.Mutex
	quotes map[string]provider.Quote
	errs   map[string]error
	calls  []string

	// onCall runs before each lookup; used to cancel mid-run.
	onCall func(n int)
	delay  time.Duration

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

var errNoQuote = errors.New("no quote")

func newFakePriceClient() *fakePriceClient {
	return &fakePriceClient{quotes: map[string]provider.Quote{}, errs: map[string]error{}}
}

func (f *fakePriceClient) set(ticker, price, currency string) {
	f.quotes[ticker] = provider.Quote{Price: decimal.RequireFromString(price), Currency: currency}
}

func (f *fakePriceClient) Name() string { return "fake" }

func (f *fakePriceClient) GetPrice(ctx context.Context, ticker string, date time.Time) (provider.Quote, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		m := f.maxInFlight.Load()
		if n <= m || f.maxInFlight.CompareAndSwap(m, n) {
			break
		}
	}

	f.mu.Lock()
	f.calls = append(f.calls, ticker)
	count := len(f.calls)
	f.mu.Unlock()

	if f.onCall != nil {
		f.onCall(count)
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return provider.Quote{}, ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return provider.Quote{}, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.errs[ticker]; ok {
		return provider.Quote{}, err
	}
	q, ok := f.quotes[ticker]
	if !ok {
		return provider.Quote{}, errNoQuote
	}
	if q.Timestamp.IsZero() {
		q.Timestamp = date
	}
	return q, nil
}

func (f *fakePriceClient) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// fakeRateClient serves canned rates keyed by "BASE/TARGET".
type fakeRateClient struct {
	rates map[string]string
	errs  map[string]error
}

func (f *fakeRateClient) Name() string { return "fake-fx" }

func (f *fakeRateClient) GetRate(ctx context.Context, base, target money.Currency, date time.Time) (provider.Rate, error) {
	key := base.Code() + "/" + target.Code()
	if err, ok := f.errs[key]; ok {
		return provider.Rate{}, err
	}
	v, ok := f.rates[key]
	if !ok {
		return provider.Rate{}, errNoQuote
	}
	return provider.Rate{Value: decimal.RequireFromString(v), Timestamp: date}, nil
}

// fakeRecorder keeps recorded runs in memory.
type fakeRecorder struct {
	mu   sync.Mutex
	runs []*models.ValuationRun
}

func (f *fakeRecorder) Record(ctx context.Context, run *models.ValuationRun) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs = append(f.runs, run)
}

// mockFetcher and mockRevaluer let pipeline tests script each phase.
type mockFetcher struct {
	fn func(ctx context.Context, date time.Time, tickers []string) (*PriceFetchResult, error)
}

func (m *mockFetcher) FetchPrices(ctx context.Context, date time.Time, tickers []string) (*PriceFetchResult, error) {
	return m.fn(ctx, date, tickers)
}

type mockRevaluer struct {
	called bool
	fn     func(ctx context.Context, date time.Time) (*RevaluationResult, error)
}

func (m *mockRevaluer) Revalue(ctx context.Context, date time.Time) (*RevaluationResult, error) {
	m.called = true
	return m.fn(ctx, date)
}
