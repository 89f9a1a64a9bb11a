package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

const (
	yahooBaseURL = "https://query1.finance.yahoo.com/v8/finance/chart"
	yahooUA      = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7)"

	// yahooLookback is how far before the valuation date the chart window
	// starts, so weekends and holidays still find the previous close.
	yahooLookback = 7 * 24 * time.Hour
)

// yahooChartResponse is the v8 chart API response. Numbers are kept as
// json.Number so prices reach decimal.Decimal without a float round trip.
type yahooChartResponse struct {
	Chart struct {
		Result []yahooChartResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type yahooChartResult struct {
	Meta struct {
		Symbol             string      `json:"symbol"`
		Currency           string      `json:"currency"`
		ExchangeName       string      `json:"exchangeName"`
		RegularMarketPrice json.Number `json:"regularMarketPrice"`
		RegularMarketTime  int64       `json:"regularMarketTime"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Close []*json.Number `json:"close"`
		} `json:"quote"`
	} `json:"indicators"`
}

// chartClient fetches daily closes from the Yahoo Finance chart API. It is
// shared by the price and FX clients.
type chartClient struct {
	httpClient *http.Client
	baseURL    string // overridable for tests
}

// chartPoint is the close selected from a chart response.
type chartPoint struct {
	price    decimal.Decimal
	at       time.Time
	currency string
	exchange string
}

// closeOnOrBefore fetches the daily chart around date and returns the last
// non-null close dated on or before it. If the window has no closes, the
// regular market price is used when its timestamp is not after date.
func (c *chartClient) closeOnOrBefore(ctx context.Context, symbol string, date time.Time) (chartPoint, error) {
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	end := day.Add(24 * time.Hour)

	q := url.Values{}
	q.Set("interval", "1d")
	q.Set("period1", strconv.FormatInt(day.Add(-yahooLookback).Unix(), 10))
	q.Set("period2", strconv.FormatInt(end.Unix(), 10))
	u := c.baseURL + "/" + url.PathEscape(symbol) + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return chartPoint{}, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("User-Agent", yahooUA)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return chartPoint{}, fmt.Errorf("http request for %s: %w", symbol, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return chartPoint{}, fmt.Errorf("request for %s: unexpected status %d", symbol, resp.StatusCode)
	}

	var chart yahooChartResponse
	if err := json.NewDecoder(resp.Body).Decode(&chart); err != nil {
		return chartPoint{}, fmt.Errorf("decoding response for %s: %w", symbol, err)
	}
	if chart.Chart.Error != nil {
		return chartPoint{}, fmt.Errorf("chart error for %s: %s: %s", symbol, chart.Chart.Error.Code, chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 {
		return chartPoint{}, fmt.Errorf("no chart results for %s", symbol)
	}

	result := chart.Chart.Result[0]
	point := chartPoint{currency: result.Meta.Currency, exchange: result.Meta.ExchangeName}

	var closes []*json.Number
	if len(result.Indicators.Quote) > 0 {
		closes = result.Indicators.Quote[0].Close
	}
	for i := len(result.Timestamp) - 1; i >= 0; i-- {
		at := time.Unix(result.Timestamp[i], 0).UTC()
		if !at.Before(end) || i >= len(closes) || closes[i] == nil {
			continue
		}
		price, err := decimal.NewFromString(closes[i].String())
		if err != nil {
			return chartPoint{}, fmt.Errorf("invalid close for %s: %w", symbol, err)
		}
		point.price, point.at = price, at
		return point, nil
	}

	if result.Meta.RegularMarketPrice != "" && result.Meta.RegularMarketTime > 0 {
		at := time.Unix(result.Meta.RegularMarketTime, 0).UTC()
		if at.Before(end) {
			price, err := decimal.NewFromString(result.Meta.RegularMarketPrice.String())
			if err != nil {
				return chartPoint{}, fmt.Errorf("invalid market price for %s: %w", symbol, err)
			}
			point.price, point.at = price, at
			return point, nil
		}
	}

	return chartPoint{}, fmt.Errorf("no close for %s on or before %s", symbol, day.Format("2006-01-02"))
}

// YahooChartClient fetches instrument prices from Yahoo Finance.
type YahooChartClient struct {
	chart chartClient
}

// NewYahooChartClient creates a Yahoo Finance price client. An empty baseURL
// selects the public endpoint.
func NewYahooChartClient(httpClient *http.Client, baseURL string) *YahooChartClient {
	if baseURL == "" {
		baseURL = yahooBaseURL
	}
	return &YahooChartClient{chart: chartClient{httpClient: httpClient, baseURL: baseURL}}
}

// Name returns the provider's display name.
func (p *YahooChartClient) Name() string { return "Yahoo Finance" }

// GetPrice returns the last daily close of ticker on or before date.
func (p *YahooChartClient) GetPrice(ctx context.Context, ticker string, date time.Time) (Quote, error) {
	point, err := p.chart.closeOnOrBefore(ctx, ticker, date)
	if err != nil {
		return Quote{}, err
	}
	return Quote{
		Price:     point.price,
		Currency:  point.currency,
		Timestamp: point.at,
		Exchange:  point.exchange,
	}, nil
}
