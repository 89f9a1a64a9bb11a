package services

import (
	"context"
	"time"

	"valora/internal/models"
	"valora/internal/money"
	"valora/internal/pagination"
	"valora/internal/store"
)

// PriceFetchServicer defines the contract for the daily price fetch phase.
type PriceFetchServicer interface {
	FetchPrices(ctx context.Context, date time.Time, tickers []string) (*PriceFetchResult, error)
}

// RevaluationServicer defines the contract for the holdings revaluation phase.
type RevaluationServicer interface {
	Revalue(ctx context.Context, date time.Time) (*RevaluationResult, error)
}

// PipelineServicer runs fetch then revaluation for one date.
type PipelineServicer interface {
	Run(ctx context.Context, date time.Time, tickers []string) *PipelineResult
}

// ExchangeRateServicer defines the contract for refreshing daily exchange rates.
type ExchangeRateServicer interface {
	Refresh(ctx context.Context, date time.Time, pairs []RatePair) (*RateRefreshResult, error)
}

// RunRecorder stores a finished pipeline phase. Recording is best-effort.
type RunRecorder interface {
	Record(ctx context.Context, run *models.ValuationRun)
}

// ValuationRunServicer records and lists pipeline runs.
type ValuationRunServicer interface {
	RunRecorder
	ListRuns(ctx context.Context, phase models.RunPhase, page pagination.PageRequest) (*pagination.PageResponse[models.ValuationRun], error)
}

// ValuationQueryServicer serves read-only views of stored snapshots.
type ValuationQueryServicer interface {
	GetHoldings(ctx context.Context, date *time.Time, portfolioID string, page pagination.PageRequest) (*pagination.PageResponse[store.HoldingView], error)
	GetPrices(ctx context.Context, date time.Time, page pagination.PageRequest) (*pagination.PageResponse[models.InstrumentPrice], error)
	GetLatestRate(ctx context.Context, base, target money.Currency, date time.Time) (*models.ExchangeRate, error)
}
