package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"valora/internal/app"
	"valora/internal/config"
	"valora/internal/logger"
	"valora/internal/money"
	"valora/internal/provider"
	"valora/internal/testutil"
	"valora/internal/validator"
)

const testAPIKey = "integration-key"

// testApp holds the full application stack for integration tests.
type testApp struct {
	DB     *gorm.DB
	Router *gin.Engine
	Prices *stubPrices
	Rates  *stubRates
}

func init() {
	gin.SetMode(gin.TestMode)
	logger.Init("test")
	validator.Register()
}

// stubPrices is a price provider backed by a map; unknown tickers fail.
type stubPrices struct {
	mu     sync.Mutex
	quotes map[string]provider.Quote
}

func (s *stubPrices) Name() string { return "stub" }

func (s *stubPrices) GetPrice(_ context.Context, ticker string, date time.Time) (provider.Quote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.quotes[ticker]
	if !ok {
		return provider.Quote{}, fmt.Errorf("no quote for %s", ticker)
	}
	q.Timestamp = date.Add(16 * time.Hour)
	return q, nil
}

func (s *stubPrices) set(ticker, price, currency string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quotes[ticker] = provider.Quote{Price: decimal.RequireFromString(price), Currency: currency}
}

// stubRates is an FX provider keyed by "BASE/TARGET".
type stubRates struct {
	mu    sync.Mutex
	rates map[string]string
}

func (s *stubRates) Name() string { return "stub-fx" }

func (s *stubRates) GetRate(_ context.Context, base, target money.Currency, date time.Time) (provider.Rate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rates[base.Code()+"/"+target.Code()]
	if !ok {
		return provider.Rate{}, fmt.Errorf("no rate for %s/%s", base, target)
	}
	return provider.Rate{Value: decimal.RequireFromString(r), Timestamp: date}, nil
}

// setupApp creates the full application stack backed by an isolated in-memory
// SQLite database and stub market data.
func setupApp(t *testing.T) *testApp {
	t.Helper()
	return setupAppWithKey(t, testAPIKey)
}

func setupAppWithKey(t *testing.T, apiKey string) *testApp {
	t.Helper()

	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.TeardownTestDB(t, db) })
	return newTestApp(t, db, apiKey)
}

// newTestApp wires services and router over db with empty stub providers.
func newTestApp(t *testing.T, db *gorm.DB, apiKey string) *testApp {
	t.Helper()

	prices := &stubPrices{quotes: map[string]provider.Quote{}}
	rates := &stubRates{rates: map[string]string{}}

	cfg := &config.Config{ValuationCurrency: "GBP", FetchConcurrency: 2}
	svc, err := app.NewServices(db, cfg, &app.Clients{Prices: prices, Rates: rates})
	if err != nil {
		t.Fatalf("failed to build services: %v", err)
	}

	return &testApp{
		DB:     db,
		Router: app.NewRouter(svc, apiKey),
		Prices: prices,
		Rates:  rates,
	}
}

// request makes an HTTP request to the test router and returns the recorder.
func (a *testApp) request(method, path, body, apiKey string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}
	rec := httptest.NewRecorder()
	a.Router.ServeHTTP(rec, req)
	return rec
}

// parseJSON parses the response body into a map.
func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}
