package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"

	apperrors "valora/internal/errors"
	"valora/internal/logger"
	"valora/internal/models"
	"valora/internal/pagination"
)

// valuationRunService handles pipeline run history.
type valuationRunService struct {
	db *gorm.DB
}

// NewValuationRunService creates a new ValuationRunServicer.
func NewValuationRunService(db *gorm.DB) ValuationRunServicer {
	return &valuationRunService{db: db}
}

// Record stores a finished run. Errors are logged but never propagate
// to avoid failing the run being recorded.
func (s *valuationRunService) Record(ctx context.Context, run *models.ValuationRun) {
	// The run's own context may already be cancelled; history is still wanted.
	ctx = context.WithoutCancel(ctx)
	if err := s.db.WithContext(ctx).Create(run).Error; err != nil {
		logger.Get().Errorw("failed to record valuation run",
			"error", err,
			"phase", run.Phase,
			"valuation_date", run.ValuationDate.Format(models.DateLayout),
		)
	}
}

// ListRuns returns recorded runs, newest first, optionally filtered by phase.
func (s *valuationRunService) ListRuns(ctx context.Context, phase models.RunPhase, page pagination.PageRequest) (*pagination.PageResponse[models.ValuationRun], error) {
	query := s.db.WithContext(ctx).Model(&models.ValuationRun{})
	if phase != "" {
		query = query.Where("phase = ?", phase)
	}
	resp, err := pagination.FindPage[models.ValuationRun](query, page, "started_at DESC")
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrPersistenceFailure, err)
	}
	return resp, nil
}

// newRun builds the history row for a phase that started at start.
func newRun(phase models.RunPhase, date, start time.Time, total, succeeded, failed int, err error, summary string, details any) *models.ValuationRun {
	run := &models.ValuationRun{
		Phase:         phase,
		ValuationDate: models.Day(date),
		StartedAt:     start,
		DurationMs:    time.Since(start).Milliseconds(),
		Total:         total,
		Succeeded:     succeeded,
		Failed:        failed,
		Success:       err == nil && (succeeded > 0 || total == 0),
		Summary:       summary,
	}
	if err != nil {
		run.ErrorCode = apperrors.CodeOf(err)
	}
	if details != nil {
		data, mErr := json.Marshal(details)
		if mErr != nil {
			logger.Get().Errorw("failed to marshal valuation run details", "error", mErr, "phase", phase)
		} else {
			run.Details = string(data)
		}
	}
	return run
}

// record is a nil-safe Record.
func record(ctx context.Context, r RunRecorder, run *models.ValuationRun) {
	if r == nil {
		return
	}
	r.Record(ctx, run)
}

// failureCode returns err's code and a message for per-item reporting.
func failureCode(err error) (code, message string) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.Code, appErr.Error()
	}
	return apperrors.ErrInternalServer.Code, err.Error()
}
