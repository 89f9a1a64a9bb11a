// Package pipelineclient triggers valuation runs on a remote valora API.
package pipelineclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"valora/internal/models"
	"valora/internal/services"
)

const apiKeyHeader = "X-API-Key"

// APIError is an error object returned by the API.
type APIError struct {
	StatusCode int
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d %s: %s", e.StatusCode, e.Code, e.Message)
}

// Client communicates with the pipeline routes of the valora API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New creates a new pipeline API client.
func New(baseURL, apiKey string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Minute}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: httpClient,
	}
}

// RunResponse is a combined run as reported by the API, with the HTTP status
// that classified it (200, 207, 409, 500, 502 or 503).
type RunResponse struct {
	StatusCode int
	Result     *services.PipelineResult
}

// RunValuation triggers the combined price fetch and revaluation for date.
// Empty tickers lets the server use the held tickers.
func (c *Client) RunValuation(ctx context.Context, date time.Time, tickers []string) (*RunResponse, error) {
	body := struct {
		Date    string   `json:"date"`
		Tickers []string `json:"tickers,omitempty"`
	}{Date: date.Format(models.DateLayout), Tickers: tickers}

	var result services.PipelineResult
	status, err := c.post(ctx, "/api/v1/pipeline/valuations", body, &result)
	if err != nil {
		return nil, fmt.Errorf("running valuation: %w", err)
	}
	return &RunResponse{StatusCode: status, Result: &result}, nil
}

// RefreshRates triggers an exchange-rate refresh for date. Pairs use the
// "GBP/USD" form; none lets the server choose.
func (c *Client) RefreshRates(ctx context.Context, date time.Time, pairs []string) (*services.RateRefreshResult, error) {
	body := struct {
		Date  string   `json:"date"`
		Pairs []string `json:"pairs,omitempty"`
	}{Date: date.Format(models.DateLayout), Pairs: pairs}

	var result services.RateRefreshResult
	if _, err := c.post(ctx, "/api/v1/pipeline/exchange-rates", body, &result); err != nil {
		return nil, fmt.Errorf("refreshing rates: %w", err)
	}
	return &result, nil
}

// post sends body and decodes a result into out. Responses that carry only an
// error object, or an error next to a partial result, return *APIError.
func (c *Client) post(ctx context.Context, path string, body, out any) (int, error) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return 0, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(jsonBody))
	if err != nil {
		return 0, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(apiKeyHeader, c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("reading response: %w", err)
	}

	var envelope struct {
		Error  *APIError       `json:"error"`
		Result json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return resp.StatusCode, fmt.Errorf("decoding response (status %d): %w", resp.StatusCode, err)
	}
	if envelope.Error != nil {
		envelope.Error.StatusCode = resp.StatusCode
		if len(envelope.Result) > 0 {
			_ = json.Unmarshal(envelope.Result, out)
		}
		return resp.StatusCode, envelope.Error
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return resp.StatusCode, fmt.Errorf("decoding result (status %d): %w", resp.StatusCode, err)
	}
	return resp.StatusCode, nil
}
