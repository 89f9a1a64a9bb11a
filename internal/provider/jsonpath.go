package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PaesslerAG/jsonpath"
	"github.com/shopspring/decimal"
)

// JSONPathConfig describes a vendor API whose quote sits somewhere inside a
// JSON document. URLTemplate may contain {ticker} and {date} (YYYY-MM-DD).
type JSONPathConfig struct {
	Name            string
	URLTemplate     string
	PricePath       string // e.g. "$.data[-1:].close"
	CurrencyPath    string // optional, e.g. "$.meta.currency"
	TimestampPath   string // optional, unix seconds or RFC 3339
	DefaultCurrency string // used when CurrencyPath is empty or yields nothing
	Headers         map[string]string
}

// JSONPathClient fetches prices from any JSON API using JSONPath expressions.
type JSONPathClient struct {
	httpClient *http.Client
	cfg        JSONPathConfig
}

// NewJSONPathClient creates a JSONPath-driven price client.
func NewJSONPathClient(httpClient *http.Client, cfg JSONPathConfig) *JSONPathClient {
	if cfg.Name == "" {
		cfg.Name = "JSONPath"
	}
	return &JSONPathClient{httpClient: httpClient, cfg: cfg}
}

// Name returns the provider's display name.
func (p *JSONPathClient) Name() string { return p.cfg.Name }

// GetPrice requests the templated URL and extracts price, currency and timestamp.
func (p *JSONPathClient) GetPrice(ctx context.Context, ticker string, date time.Time) (Quote, error) {
	u := strings.NewReplacer(
		"{ticker}", url.PathEscape(ticker),
		"{date}", date.Format("2006-01-02"),
	).Replace(p.cfg.URLTemplate)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Quote{}, fmt.Errorf("building request: %w", err)
	}
	for k, v := range p.cfg.Headers {
		req.Header.Set(k, v)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return Quote{}, fmt.Errorf("http request for %s: %w", ticker, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return Quote{}, fmt.Errorf("request for %s: unexpected status %d", ticker, resp.StatusCode)
	}

	var doc any
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return Quote{}, fmt.Errorf("decoding response for %s: %w", ticker, err)
	}

	raw, err := lookup(p.cfg.PricePath, doc)
	if err != nil {
		return Quote{}, fmt.Errorf("price path for %s: %w", ticker, err)
	}
	price, err := toDecimal(raw)
	if err != nil {
		return Quote{}, fmt.Errorf("price for %s: %w", ticker, err)
	}

	quote := Quote{Price: price, Currency: p.cfg.DefaultCurrency, Timestamp: date}

	if p.cfg.CurrencyPath != "" {
		if v, err := lookup(p.cfg.CurrencyPath, doc); err == nil {
			if s, ok := v.(string); ok && s != "" {
				quote.Currency = s
			}
		}
	}
	if p.cfg.TimestampPath != "" {
		if v, err := lookup(p.cfg.TimestampPath, doc); err == nil {
			if ts, ok := toTime(v); ok {
				quote.Timestamp = ts
			}
		}
	}
	if quote.Currency == "" {
		return Quote{}, fmt.Errorf("no currency for %s", ticker)
	}

	return quote, nil
}

// lookup evaluates path and unwraps single-element results, since filter and
// slice expressions return lists.
func lookup(path string, doc any) (any, error) {
	v, err := jsonpath.Get(path, doc)
	if err != nil {
		return nil, err
	}
	if list, ok := v.([]any); ok {
		if len(list) == 0 {
			return nil, fmt.Errorf("%s matched nothing", path)
		}
		v = list[len(list)-1]
	}
	return v, nil
}

func toDecimal(v any) (decimal.Decimal, error) {
	switch n := v.(type) {
	case float64:
		return decimal.NewFromFloat(n), nil
	case string:
		return decimal.NewFromString(n)
	case json.Number:
		return decimal.NewFromString(n.String())
	default:
		return decimal.Decimal{}, fmt.Errorf("not a number: %v", v)
	}
}

func toTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case float64:
		return time.Unix(int64(t), 0).UTC(), true
	case string:
		if ts, err := time.Parse(time.RFC3339, t); err == nil {
			return ts.UTC(), true
		}
		if secs, err := strconv.ParseInt(t, 10, 64); err == nil {
			return time.Unix(secs, 0).UTC(), true
		}
	}
	return time.Time{}, false
}
