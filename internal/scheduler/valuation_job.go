package scheduler

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"valora/internal/logger"
	"valora/internal/models"
	"valora/internal/services"
)

// ValuationJob refreshes exchange rates and then runs the combined pipeline
// for the current day.
type ValuationJob struct {
	pipeline services.PipelineServicer
	rates    services.ExchangeRateServicer
	clock    func() time.Time
	log      *zap.SugaredLogger
}

// NewValuationJob creates the daily valuation job. rates may be nil to skip
// the rate refresh.
func NewValuationJob(pipeline services.PipelineServicer, rates services.ExchangeRateServicer) *ValuationJob {
	return &ValuationJob{
		pipeline: pipeline,
		rates:    rates,
		clock:    func() time.Time { return time.Now().UTC() },
		log:      logger.Named("valuation_job"),
	}
}

// Name returns the job name.
func (j *ValuationJob) Name() string { return "daily_valuation" }

// Run values today's date. A failed rate refresh is logged and the pipeline
// still runs against whatever rates are stored.
func (j *ValuationJob) Run(ctx context.Context) error {
	date := models.Day(j.clock())

	if j.rates != nil {
		res, err := j.rates.Refresh(ctx, date, nil)
		switch {
		case err != nil:
			j.log.Warnw("exchange rate refresh failed", "date", date.Format(models.DateLayout), "error", err)
		case res != nil:
			j.log.Infow("exchange rates refreshed",
				"date", date.Format(models.DateLayout),
				"pairs", res.TotalPairs,
				"fetched", res.SuccessfulCount,
			)
		}
	}

	result := j.pipeline.Run(ctx, date, nil)
	j.log.Infow("valuation run completed",
		"date", date.Format(models.DateLayout),
		"success", result.OverallSuccess,
		"duration", time.Duration(result.TotalDuration).String(),
		"summary", result.Summary,
	)

	if !result.OverallSuccess {
		return fmt.Errorf("valuation for %s failed: %s", date.Format(models.DateLayout), result.Summary)
	}
	return nil
}
