package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"valora/internal/money"
)

func TestYahooForexClient_GetRate(t *testing.T) {
	gbp := money.MustCurrency("GBP")
	usd := money.MustCurrency("USD")

	t.Run("same_currency_is_one", func(t *testing.T) {
		fc := NewYahooForexClient(http.DefaultClient, "http://unused.invalid")
		rate, err := fc.GetRate(context.Background(), gbp, gbp, mustDay("2024-03-01"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rate.Value.String() != "1" {
			t.Errorf("rate = %s, want 1", rate.Value)
		}
	})

	t.Run("fetches_pair_ticker", func(t *testing.T) {
		server := newChartServer(map[string]string{
			"GBPUSD=X": chartJSON("GBPUSD=X", "USD", []chartBar{{day: "2024-03-01", close: "1.2625"}}, "", 0),
		})
		defer server.Close()

		fc := NewYahooForexClient(server.Client(), server.URL)
		rate, err := fc.GetRate(context.Background(), gbp, usd, mustDay("2024-03-01"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rate.Value.String() != "1.2625" {
			t.Errorf("rate = %s, want 1.2625", rate.Value)
		}
	})

	t.Run("caches_per_pair_and_day", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			_, _ = w.Write([]byte(chartJSON(strings.TrimPrefix(r.URL.Path, "/"), "USD", []chartBar{{day: "2024-03-01", close: "1.26"}}, "", 0)))
		}))
		defer server.Close()

		fc := NewYahooForexClient(server.Client(), server.URL)
		for i := 0; i < 3; i++ {
			if _, err := fc.GetRate(context.Background(), gbp, usd, mustDay("2024-03-01")); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		}
		if calls.Load() != 1 {
			t.Errorf("expected 1 upstream call, got %d", calls.Load())
		}

		if _, err := fc.GetRate(context.Background(), gbp, usd, mustDay("2024-03-04")); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if calls.Load() != 2 {
			t.Errorf("expected a new call for a new day, got %d", calls.Load())
		}
	})

	t.Run("rejects_non_positive_rate", func(t *testing.T) {
		server := newChartServer(map[string]string{
			"GBPUSD=X": chartJSON("GBPUSD=X", "USD", []chartBar{{day: "2024-03-01", close: "0"}}, "", 0),
		})
		defer server.Close()

		fc := NewYahooForexClient(server.Client(), server.URL)
		if _, err := fc.GetRate(context.Background(), gbp, usd, mustDay("2024-03-01")); err == nil {
			t.Fatal("expected error for zero rate")
		}
	})

	t.Run("incomplete_pair", func(t *testing.T) {
		fc := NewYahooForexClient(http.DefaultClient, "")
		if _, err := fc.GetRate(context.Background(), money.Currency{}, usd, mustDay("2024-03-01")); err == nil {
			t.Fatal("expected error for missing base currency")
		}
	})
}
