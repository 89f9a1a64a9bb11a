package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"valora/internal/logger"
	"valora/internal/models"
	"valora/internal/money"
	"valora/internal/store"
)

// valuationPipelineService runs the price fetch and the revaluation for one
// date, in that order.
type valuationPipelineService struct {
	instruments store.InstrumentStore
	fetcher     PriceFetchServicer
	revaluer    RevaluationServicer
	runs        RunRecorder
	log         *zap.SugaredLogger
}

// NewValuationPipelineService creates a new PipelineServicer. runs may be nil.
func NewValuationPipelineService(
	instruments store.InstrumentStore,
	fetcher PriceFetchServicer,
	revaluer RevaluationServicer,
	runs RunRecorder,
) PipelineServicer {
	return &valuationPipelineService{
		instruments: instruments,
		fetcher:     fetcher,
		revaluer:    revaluer,
		runs:        runs,
		log:         logger.Named("pipeline"),
	}
}

// Run fetches prices for tickers (or, when empty, for every instrument held in
// the latest earlier snapshot) and then revalues holdings. Revaluation always
// runs, even after a failed fetch, so stored prices from an earlier attempt are
// still used. The run succeeds when either phase produced something.
func (s *valuationPipelineService) Run(ctx context.Context, date time.Time, tickers []string) *PipelineResult {
	start := time.Now()
	day := models.Day(date)
	result := &PipelineResult{ValuationDate: day}

	fetch, err := s.fetchPhase(ctx, day, tickers)
	result.PriceFetchResult = fetch
	if err != nil {
		result.Errors = append(result.Errors, phaseError("prices", err))
	}

	reval, err := s.revaluer.Revalue(ctx, day)
	result.HoldingRevaluationResult = reval
	if err != nil {
		result.Errors = append(result.Errors, phaseError("revaluation", err))
	}

	result.OverallSuccess = fetch.Succeeded() || reval.Succeeded()
	result.TotalDuration = since(start)
	result.Summary = summarize(result)

	run := newRun(models.RunPhasePipeline, day, start, 2, succeededPhases(result), len(result.Errors), nil, result.Summary, result.Errors)
	run.Success = result.OverallSuccess
	if len(result.Errors) > 0 {
		run.ErrorCode = result.Errors[0].Code
	}
	record(ctx, s.runs, run)

	s.log.Infow("valuation pipeline finished",
		"date", day.Format(models.DateLayout),
		"success", result.OverallSuccess,
		"duration", time.Duration(result.TotalDuration),
		"summary", result.Summary,
	)
	return result
}

func (s *valuationPipelineService) fetchPhase(ctx context.Context, day time.Time, tickers []string) (*PriceFetchResult, error) {
	if len(tickers) == 0 {
		held, err := s.instruments.HeldTickers(ctx, day)
		if err != nil {
			return &PriceFetchResult{ValuationDate: day, Failures: []FetchFailure{}}, err
		}
		tickers = held
	}
	return s.fetcher.FetchPrices(ctx, day, tickers)
}

func phaseError(phase string, err error) PhaseError {
	code, msg := failureCode(err)
	return PhaseError{Phase: phase, Code: code, Message: msg}
}

func succeededPhases(r *PipelineResult) int {
	n := 0
	if r.PriceFetchResult.Succeeded() {
		n++
	}
	if r.HoldingRevaluationResult.Succeeded() {
		n++
	}
	return n
}

// summarize renders a one-line description of a pipeline run, e.g.
// "2024-03-01: 7/10 prices fetched; 5/6 holdings revalued from 2024-02-29, 6 replaced; total £1,050.00".
func summarize(r *PipelineResult) string {
	var b strings.Builder
	b.WriteString(r.ValuationDate.Format(models.DateLayout))
	b.WriteString(": ")

	if p := r.PriceFetchResult; p != nil {
		fmt.Fprintf(&b, "%d/%d prices fetched", p.SuccessfulCount, p.TotalTickers)
		if p.SuccessfulCount > 0 && !p.Persisted {
			b.WriteString(" (not stored)")
		}
	}

	if h := r.HoldingRevaluationResult; h != nil {
		fmt.Fprintf(&b, "; %d/%d holdings revalued", h.SuccessfulRevaluations, h.TotalHoldings)
		if h.SourceValuationDate != nil {
			b.WriteString(" from " + h.SourceValuationDate.Format(models.DateLayout))
		}
		if h.Persisted {
			fmt.Fprintf(&b, ", %d replaced", h.ReplacedHoldings)
		}
		if h.Persisted && len(h.TotalValue) > 0 {
			codes := make([]string, 0, len(h.TotalValue))
			for code := range h.TotalValue {
				codes = append(codes, code)
			}
			sort.Strings(codes)
			totals := make([]string, 0, len(codes))
			for _, code := range codes {
				cur, err := money.ParseCurrency(code)
				if err != nil {
					totals = append(totals, h.TotalValue[code].StringFixed(money.ValueScale)+" "+code)
					continue
				}
				totals = append(totals, money.Format(h.TotalValue[code], cur))
			}
			b.WriteString("; total " + strings.Join(totals, " + "))
		}
	}

	for _, e := range r.Errors {
		fmt.Fprintf(&b, "; %s failed: %s", e.Phase, e.Code)
	}
	if !r.OverallSuccess {
		b.WriteString("; nothing succeeded")
	}
	return b.String()
}
