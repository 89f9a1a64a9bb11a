package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestJSONPathClient_GetPrice(t *testing.T) {
	var gotPath, gotKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("X-Api-Key")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"meta": {"currency": "EUR"},
			"series": [
				{"date": "2024-02-29", "close": 41.5, "ts": 1709215200},
				{"date": "2024-03-01", "close": 42.25, "ts": 1709301600}
			]
		}`))
	}))
	defer server.Close()

	cfg := JSONPathConfig{
		Name:          "Vendor",
		URLTemplate:   server.URL + "/quotes/{ticker}/{date}",
		PricePath:     "$.series[-1:].close",
		CurrencyPath:  "$.meta.currency",
		TimestampPath: "$.series[-1:].ts",
		Headers:       map[string]string{"X-Api-Key": "secret"},
	}

	t.Run("extracts_fields", func(t *testing.T) {
		p := NewJSONPathClient(server.Client(), cfg)
		q, err := p.GetPrice(context.Background(), "ASML.AS", mustDay("2024-03-01"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if q.Price.String() != "42.25" {
			t.Errorf("price = %s, want 42.25", q.Price)
		}
		if q.Currency != "EUR" {
			t.Errorf("currency = %q, want EUR", q.Currency)
		}
		if q.Timestamp.Unix() != 1709301600 {
			t.Errorf("timestamp = %d", q.Timestamp.Unix())
		}
		if gotPath != "/quotes/ASML.AS/2024-03-01" {
			t.Errorf("path = %q", gotPath)
		}
		if gotKey != "secret" {
			t.Errorf("header = %q", gotKey)
		}
		if p.Name() != "Vendor" {
			t.Errorf("name = %q", p.Name())
		}
	})

	t.Run("default_currency", func(t *testing.T) {
		c := cfg
		c.CurrencyPath = ""
		c.DefaultCurrency = "USD"
		q, err := NewJSONPathClient(server.Client(), c).GetPrice(context.Background(), "X", mustDay("2024-03-01"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if q.Currency != "USD" {
			t.Errorf("currency = %q, want USD", q.Currency)
		}
	})

	t.Run("missing_path", func(t *testing.T) {
		c := cfg
		c.PricePath = "$.nothing.here"
		if _, err := NewJSONPathClient(server.Client(), c).GetPrice(context.Background(), "X", mustDay("2024-03-01")); err == nil {
			t.Fatal("expected error for missing price path")
		}
	})

	t.Run("no_currency", func(t *testing.T) {
		c := cfg
		c.CurrencyPath = ""
		if _, err := NewJSONPathClient(server.Client(), c).GetPrice(context.Background(), "X", mustDay("2024-03-01")); err == nil {
			t.Fatal("expected error when no currency is known")
		}
	})
}
