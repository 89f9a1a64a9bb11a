package models

import (
	"time"

	"gorm.io/gorm"
)

// RunPhase names the pipeline step a ValuationRun records.
type RunPhase string

const (
	RunPhasePrices        RunPhase = "prices"
	RunPhaseRevaluation   RunPhase = "revaluation"
	RunPhasePipeline      RunPhase = "pipeline"
	RunPhaseExchangeRates RunPhase = "exchange_rates"
)

// ValuationRun is an append-only record of one pipeline phase execution.
type ValuationRun struct {
	ID            string    `gorm:"type:uuid;primaryKey" json:"id"`
	Phase         RunPhase  `gorm:"not null;index" json:"phase"`
	ValuationDate time.Time `gorm:"type:date;not null;index" json:"valuation_date"`
	StartedAt     time.Time `gorm:"not null" json:"started_at"`
	DurationMs    int64     `gorm:"not null" json:"duration_ms"`
	Total         int       `gorm:"not null" json:"total"`
	Succeeded     int       `gorm:"not null" json:"succeeded"`
	Failed        int       `gorm:"not null" json:"failed"`
	Success       bool      `gorm:"not null" json:"success"`
	ErrorCode     string    `json:"error_code,omitempty"`
	Summary       string    `json:"summary"`
	Details       string    `gorm:"type:text" json:"details,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// BeforeCreate hook generates a UUIDv7 for new records
func (r *ValuationRun) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = newID()
	}
	return nil
}
