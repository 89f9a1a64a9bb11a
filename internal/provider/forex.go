package provider

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"valora/internal/money"
)

var oneRate = decimal.NewFromInt(1)

// YahooForexClient fetches exchange rates from Yahoo Finance currency pairs
// ("GBPUSD=X"). Rates are cached per pair and day for the lifetime of the
// client, so one instance should serve one run.
type YahooForexClient struct {
	chart chartClient
	mu    sync.RWMutex
	rates map[string]Rate // "GBPUSD@2024-03-01" -> rate
}

// NewYahooForexClient creates a Yahoo Finance FX client. An empty baseURL
// selects the public endpoint.
func NewYahooForexClient(httpClient *http.Client, baseURL string) *YahooForexClient {
	if baseURL == "" {
		baseURL = yahooBaseURL
	}
	return &YahooForexClient{
		chart: chartClient{httpClient: httpClient, baseURL: baseURL},
		rates: make(map[string]Rate),
	}
}

// Name returns the provider's display name.
func (f *YahooForexClient) Name() string { return "Yahoo Finance FX" }

// GetRate returns how many units of target one unit of base buys on the last
// trading day on or before date.
func (f *YahooForexClient) GetRate(ctx context.Context, base, target money.Currency, date time.Time) (Rate, error) {
	if base.IsZero() || target.IsZero() {
		return Rate{}, fmt.Errorf("currency pair %q/%q is incomplete", base, target)
	}
	if base == target {
		return Rate{Value: oneRate, Timestamp: date}, nil
	}

	key := base.Code() + target.Code() + "@" + date.Format("2006-01-02")

	f.mu.RLock()
	rate, ok := f.rates[key]
	f.mu.RUnlock()
	if ok {
		return rate, nil
	}

	ticker := base.Code() + target.Code() + "=X"
	point, err := f.chart.closeOnOrBefore(ctx, ticker, date)
	if err != nil {
		return Rate{}, err
	}
	if !point.price.IsPositive() {
		return Rate{}, fmt.Errorf("invalid forex rate for %s: %s", ticker, point.price)
	}

	rate = Rate{Value: point.price, Timestamp: point.at}
	f.mu.Lock()
	f.rates[key] = rate
	f.mu.Unlock()

	return rate, nil
}
