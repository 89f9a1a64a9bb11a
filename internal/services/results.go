package services

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Duration is a time.Duration that serialises as its String form ("1.5s").
type Duration time.Duration

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalJSON accepts either a duration string or integer nanoseconds.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		v, err := time.ParseDuration(s)
		if err != nil {
			return err
		}
		*d = Duration(v)
		return nil
	}
	var ns int64
	if err := json.Unmarshal(b, &ns); err != nil {
		return err
	}
	*d = Duration(ns)
	return nil
}

func since(start time.Time) Duration { return Duration(time.Since(start)) }

// FetchFailure describes one ticker (or currency pair) that could not be fetched.
type FetchFailure struct {
	Ticker  string `json:"ticker"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// PriceFetchResult summarises one price fetch run.
type PriceFetchResult struct {
	ValuationDate   time.Time      `json:"valuationDate"`
	TotalTickers    int            `json:"totalTickers"`
	SuccessfulCount int            `json:"successfulCount"`
	Failures        []FetchFailure `json:"failures"`
	Persisted       bool           `json:"persisted"`
	Duration        Duration       `json:"duration"`
}

// Succeeded reports whether at least one price was fetched and stored.
func (r *PriceFetchResult) Succeeded() bool {
	return r != nil && r.Persisted && r.SuccessfulCount > 0
}

// RevaluationFailure describes one holding that was left out of the new snapshot.
type RevaluationFailure struct {
	Ticker  string `json:"ticker"`
	Name    string `json:"name"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// RevaluationResult summarises one revaluation run.
type RevaluationResult struct {
	ValuationDate          time.Time                  `json:"valuationDate"`
	SourceValuationDate    *time.Time                 `json:"sourceValuationDate"`
	TotalHoldings          int                        `json:"totalHoldings"`
	SuccessfulRevaluations int                        `json:"successfulRevaluations"`
	FailedRevaluations     int                        `json:"failedRevaluations"`
	ReplacedHoldings       int64                      `json:"replacedHoldings"`
	FailedInstruments      []RevaluationFailure       `json:"failedInstruments"`
	TotalValue             map[string]decimal.Decimal `json:"totalValue"`
	Persisted              bool                       `json:"persisted"`
	Duration               Duration                   `json:"duration"`
}

// Succeeded reports whether at least one holding was revalued and stored.
func (r *RevaluationResult) Succeeded() bool {
	return r != nil && r.Persisted && r.SuccessfulRevaluations > 0
}

// PhaseError is the error a pipeline phase finished with.
type PhaseError struct {
	Phase   string `json:"phase"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// PipelineResult combines both phase results of one pipeline run.
type PipelineResult struct {
	ValuationDate            time.Time          `json:"valuationDate"`
	PriceFetchResult         *PriceFetchResult  `json:"priceFetchResult"`
	HoldingRevaluationResult *RevaluationResult `json:"holdingRevaluationResult"`
	OverallSuccess           bool               `json:"overallSuccess"`
	TotalDuration            Duration           `json:"totalDuration"`
	Summary                  string             `json:"summary"`
	Errors                   []PhaseError       `json:"errors,omitempty"`
}

// Partial reports a successful run that still had failures somewhere.
func (r *PipelineResult) Partial() bool {
	if !r.OverallSuccess {
		return false
	}
	if len(r.Errors) > 0 {
		return true
	}
	if p := r.PriceFetchResult; p != nil && len(p.Failures) > 0 {
		return true
	}
	if h := r.HoldingRevaluationResult; h != nil && h.FailedRevaluations > 0 {
		return true
	}
	return false
}

// HasErrorCode reports whether any phase finished with code.
func (r *PipelineResult) HasErrorCode(code string) bool {
	for _, e := range r.Errors {
		if e.Code == code {
			return true
		}
	}
	return false
}

// RateRefreshResult summarises one exchange-rate refresh.
type RateRefreshResult struct {
	RateDate        time.Time      `json:"rateDate"`
	TotalPairs      int            `json:"totalPairs"`
	SuccessfulCount int            `json:"successfulCount"`
	Failures        []FetchFailure `json:"failures"`
	Persisted       bool           `json:"persisted"`
	Duration        Duration       `json:"duration"`
}
