package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DateLayout is the wire and seed-file format of calendar dates.
const DateLayout = "2006-01-02"

// Base contains common columns for mutable reference tables.
type Base struct {
	ID        string         `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

// BeforeCreate hook generates a UUIDv7 for new records
func (b *Base) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = newID()
	}
	return nil
}

// newID returns a time-ordered UUIDv7, falling back to v4 if the random
// source fails.
func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Day truncates t to its calendar day at 00:00 UTC. Every valuation, price and
// rate date is stored in this form.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDay parses a YYYY-MM-DD date.
func ParseDay(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, err
	}
	return Day(t), nil
}

// All returns every persisted model in dependency order.
func All() []interface{} {
	return []interface{}{
		&Instrument{},
		&Portfolio{},
		&Platform{},
		&InstrumentPrice{},
		&ExchangeRate{},
		&Holding{},
		&ValuationRun{},
	}
}
