package handlers

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "valora/internal/errors"
	"valora/internal/services"
)

// --- mock pipeline services ---

type mockPipelineService struct {
	runFn func(ctx context.Context, date time.Time, tickers []string) *services.PipelineResult
}

var _ services.PipelineServicer = (*mockPipelineService)(nil)

func (m *mockPipelineService) Run(ctx context.Context, date time.Time, tickers []string) *services.PipelineResult {
	if m.runFn != nil {
		return m.runFn(ctx, date, tickers)
	}
	return &services.PipelineResult{ValuationDate: date, OverallSuccess: true}
}

type mockPriceFetchService struct {
	fetchPricesFn func(ctx context.Context, date time.Time, tickers []string) (*services.PriceFetchResult, error)
}

func (m *mockPriceFetchService) FetchPrices(ctx context.Context, date time.Time, tickers []string) (*services.PriceFetchResult, error) {
	if m.fetchPricesFn != nil {
		return m.fetchPricesFn(ctx, date, tickers)
	}
	return &services.PriceFetchResult{ValuationDate: date, TotalTickers: len(tickers), SuccessfulCount: len(tickers)}, nil
}

type mockRevaluationService struct {
	revalueFn func(ctx context.Context, date time.Time) (*services.RevaluationResult, error)
}

func (m *mockRevaluationService) Revalue(ctx context.Context, date time.Time) (*services.RevaluationResult, error) {
	if m.revalueFn != nil {
		return m.revalueFn(ctx, date)
	}
	return &services.RevaluationResult{ValuationDate: date}, nil
}

type mockExchangeRateService struct {
	refreshFn func(ctx context.Context, date time.Time, pairs []services.RatePair) (*services.RateRefreshResult, error)
}

func (m *mockExchangeRateService) Refresh(ctx context.Context, date time.Time, pairs []services.RatePair) (*services.RateRefreshResult, error) {
	if m.refreshFn != nil {
		return m.refreshFn(ctx, date, pairs)
	}
	return &services.RateRefreshResult{RateDate: date, TotalPairs: len(pairs), SuccessfulCount: len(pairs)}, nil
}

// --- router setup ---

type pipelineMocks struct {
	pipeline *mockPipelineService
	fetcher  *mockPriceFetchService
	revaluer *mockRevaluationService
	rates    *mockExchangeRateService
}

func setupPipelineRouter(m pipelineMocks) *gin.Engine {
	if m.pipeline == nil {
		m.pipeline = &mockPipelineService{}
	}
	if m.fetcher == nil {
		m.fetcher = &mockPriceFetchService{}
	}
	if m.revaluer == nil {
		m.revaluer = &mockRevaluationService{}
	}
	if m.rates == nil {
		m.rates = &mockExchangeRateService{}
	}
	handler := NewPipelineHandler(m.pipeline, m.fetcher, m.revaluer, m.rates)

	r := gin.New()
	r.POST("/pipeline/valuations", handler.RunValuation)
	r.POST("/pipeline/prices", handler.FetchPrices)
	r.POST("/pipeline/revaluations", handler.Revalue)
	r.POST("/pipeline/exchange-rates", handler.RefreshRates)
	return r
}

// --- tests ---

func TestPipelineHandler_RunValuation(t *testing.T) {
	t.Run("defaults_to_today", func(t *testing.T) {
		var gotDate time.Time
		var gotTickers []string
		r := setupPipelineRouter(pipelineMocks{pipeline: &mockPipelineService{
			runFn: func(_ context.Context, date time.Time, tickers []string) *services.PipelineResult {
				gotDate, gotTickers = date, tickers
				return &services.PipelineResult{ValuationDate: date, OverallSuccess: true, Summary: "ok"}
			},
		}})

		rec := doRequest(r, "POST", "/pipeline/valuations", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if gotDate.Format("2006-01-02") != "2024-03-01" {
			t.Errorf("expected today's date, got %s", gotDate)
		}
		if len(gotTickers) != 0 {
			t.Errorf("expected no tickers, got %v", gotTickers)
		}
		result := parseJSON(t, rec)
		if result["overallSuccess"] != true {
			t.Errorf("expected overallSuccess=true, got %v", result["overallSuccess"])
		}
		if result["summary"] != "ok" {
			t.Errorf("expected summary in body, got %v", result["summary"])
		}
	})

	t.Run("passes_date_and_tickers", func(t *testing.T) {
		var gotDate time.Time
		var gotTickers []string
		r := setupPipelineRouter(pipelineMocks{pipeline: &mockPipelineService{
			runFn: func(_ context.Context, date time.Time, tickers []string) *services.PipelineResult {
				gotDate, gotTickers = date, tickers
				return &services.PipelineResult{ValuationDate: date, OverallSuccess: true}
			},
		}})

		rec := doRequest(r, "POST", "/pipeline/valuations", `{"date":"2024-02-29","tickers":["VOD.L","AAPL"]}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if gotDate.Format("2006-01-02") != "2024-02-29" {
			t.Errorf("expected 2024-02-29, got %s", gotDate)
		}
		if len(gotTickers) != 2 || gotTickers[0] != "VOD.L" {
			t.Errorf("unexpected tickers %v", gotTickers)
		}
	})

	t.Run("returns_400_invalid_date", func(t *testing.T) {
		r := setupPipelineRouter(pipelineMocks{})

		rec := doRequest(r, "POST", "/pipeline/valuations", `{"date":"01/03/2024"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
		}
		assertErrorCode(t, parseJSON(t, rec), "INVALID_INPUT")
	})

	statusTests := []struct {
		name   string
		result services.PipelineResult
		want   int
	}{
		{
			name:   "partial_is_207",
			result: services.PipelineResult{OverallSuccess: true, PriceFetchResult: &services.PriceFetchResult{Failures: []services.FetchFailure{{Ticker: "X"}}}},
			want:   http.StatusMultiStatus,
		},
		{
			name:   "nothing_succeeded_is_502",
			result: services.PipelineResult{OverallSuccess: false},
			want:   http.StatusBadGateway,
		},
		{
			name:   "no_source_snapshot_is_409",
			result: services.PipelineResult{Errors: []services.PhaseError{{Phase: "revaluation", Code: apperrors.ErrNoSourceSnapshot.Code}}},
			want:   http.StatusConflict,
		},
		{
			name:   "cancelled_is_503",
			result: services.PipelineResult{Errors: []services.PhaseError{{Phase: "prices", Code: apperrors.ErrCancelled.Code}, {Phase: "revaluation", Code: apperrors.ErrNoSourceSnapshot.Code}}},
			want:   http.StatusServiceUnavailable,
		},
		{
			name:   "persistence_failure_is_500",
			result: services.PipelineResult{Errors: []services.PhaseError{{Phase: "revaluation", Code: apperrors.ErrPersistenceFailure.Code}}},
			want:   http.StatusInternalServerError,
		},
	}
	for _, tt := range statusTests {
		t.Run(tt.name, func(t *testing.T) {
			r := setupPipelineRouter(pipelineMocks{pipeline: &mockPipelineService{
				runFn: func(_ context.Context, _ time.Time, _ []string) *services.PipelineResult {
					res := tt.result
					return &res
				},
			}})

			rec := doRequest(r, "POST", "/pipeline/valuations", `{}`)

			if rec.Code != tt.want {
				t.Errorf("expected %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestPipelineHandler_FetchPrices(t *testing.T) {
	t.Run("returns_207_on_partial", func(t *testing.T) {
		r := setupPipelineRouter(pipelineMocks{fetcher: &mockPriceFetchService{
			fetchPricesFn: func(_ context.Context, date time.Time, tickers []string) (*services.PriceFetchResult, error) {
				return &services.PriceFetchResult{
					ValuationDate:   date,
					TotalTickers:    2,
					SuccessfulCount: 1,
					Failures:        []services.FetchFailure{{Ticker: "BAD", Message: "Failed to fetch price", Code: "PRICE_FETCH_FAILED"}},
					Persisted:       true,
				}, nil
			},
		}})

		rec := doRequest(r, "POST", "/pipeline/prices", `{"tickers":["GOOD","BAD"]}`)

		if rec.Code != http.StatusMultiStatus {
			t.Fatalf("expected 207, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		failures, ok := result["failures"].([]interface{})
		if !ok || len(failures) != 1 {
			t.Fatalf("expected one failure, got %v", result["failures"])
		}
	})

	t.Run("returns_400_without_tickers", func(t *testing.T) {
		r := setupPipelineRouter(pipelineMocks{})

		rec := doRequest(r, "POST", "/pipeline/prices", `{"date":"2024-03-01"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
		}
		assertErrorCode(t, parseJSON(t, rec), "INVALID_INPUT")
	})

	t.Run("returns_400_invalid_ticker", func(t *testing.T) {
		r := setupPipelineRouter(pipelineMocks{})

		rec := doRequest(r, "POST", "/pipeline/prices", `{"tickers":["AAPL; DROP"]}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("returns_503_with_partial_result_on_cancel", func(t *testing.T) {
		r := setupPipelineRouter(pipelineMocks{fetcher: &mockPriceFetchService{
			fetchPricesFn: func(_ context.Context, date time.Time, _ []string) (*services.PriceFetchResult, error) {
				return &services.PriceFetchResult{ValuationDate: date, TotalTickers: 3, SuccessfulCount: 1}, apperrors.ErrCancelled
			},
		}})

		rec := doRequest(r, "POST", "/pipeline/prices", `{"tickers":["A","B","C"]}`)

		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("expected 503, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		assertErrorCode(t, result, "CANCELLED")
		if _, ok := result["result"].(map[string]interface{}); !ok {
			t.Errorf("expected partial result alongside error, got %v", result)
		}
	})
}

func TestPipelineHandler_Revalue(t *testing.T) {
	t.Run("returns_409_without_source_snapshot", func(t *testing.T) {
		r := setupPipelineRouter(pipelineMocks{revaluer: &mockRevaluationService{
			revalueFn: func(_ context.Context, date time.Time) (*services.RevaluationResult, error) {
				return &services.RevaluationResult{ValuationDate: date}, apperrors.ErrNoSourceSnapshot
			},
		}})

		rec := doRequest(r, "POST", "/pipeline/revaluations", `{"date":"2024-03-01"}`)

		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d: %s", rec.Code, rec.Body.String())
		}
		assertErrorCode(t, parseJSON(t, rec), "NO_SOURCE_SNAPSHOT")
	})

	t.Run("returns_200_on_success", func(t *testing.T) {
		r := setupPipelineRouter(pipelineMocks{revaluer: &mockRevaluationService{
			revalueFn: func(_ context.Context, date time.Time) (*services.RevaluationResult, error) {
				return &services.RevaluationResult{ValuationDate: date, TotalHoldings: 2, SuccessfulRevaluations: 2, ReplacedHoldings: 2, Persisted: true}, nil
			},
		}})

		rec := doRequest(r, "POST", "/pipeline/revaluations", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		if result["replacedHoldings"].(float64) != 2 {
			t.Errorf("expected replacedHoldings=2, got %v", result["replacedHoldings"])
		}
	})

	t.Run("returns_500_on_nil_result", func(t *testing.T) {
		r := setupPipelineRouter(pipelineMocks{revaluer: &mockRevaluationService{
			revalueFn: func(_ context.Context, _ time.Time) (*services.RevaluationResult, error) {
				return nil, apperrors.ErrPersistenceFailure
			},
		}})

		rec := doRequest(r, "POST", "/pipeline/revaluations", "")

		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d: %s", rec.Code, rec.Body.String())
		}
	})
}

func TestPipelineHandler_RefreshRates(t *testing.T) {
	t.Run("parses_pairs", func(t *testing.T) {
		var got []services.RatePair
		r := setupPipelineRouter(pipelineMocks{rates: &mockExchangeRateService{
			refreshFn: func(_ context.Context, date time.Time, pairs []services.RatePair) (*services.RateRefreshResult, error) {
				got = pairs
				return &services.RateRefreshResult{RateDate: date, TotalPairs: len(pairs), SuccessfulCount: len(pairs), Persisted: true}, nil
			},
		}})

		rec := doRequest(r, "POST", "/pipeline/exchange-rates", `{"pairs":["USD/GBP","EURGBP"]}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if len(got) != 2 || got[0].String() != "USD/GBP" || got[1].String() != "EUR/GBP" {
			t.Errorf("unexpected pairs %v", got)
		}
	})

	t.Run("returns_400_invalid_pair", func(t *testing.T) {
		r := setupPipelineRouter(pipelineMocks{})

		rec := doRequest(r, "POST", "/pipeline/exchange-rates", `{"pairs":["USD/XXQ"]}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("returns_502_when_nothing_fetched", func(t *testing.T) {
		r := setupPipelineRouter(pipelineMocks{rates: &mockExchangeRateService{
			refreshFn: func(_ context.Context, date time.Time, _ []services.RatePair) (*services.RateRefreshResult, error) {
				return &services.RateRefreshResult{RateDate: date, TotalPairs: 1}, nil
			},
		}})

		rec := doRequest(r, "POST", "/pipeline/exchange-rates", "")

		if rec.Code != http.StatusBadGateway {
			t.Fatalf("expected 502, got %d: %s", rec.Code, rec.Body.String())
		}
	})
}
