package ports

import (
	"context"
	"time"

	"pairstat/domain/core"
	"pairstat/domain/study"
)

// ReportRepository defines the interface for report persistence
type ReportRepository interface {
	// Save stores a report, replacing any earlier report with the same ID
	Save(ctx context.Context, report *study.Report) error

	// Get retrieves a report by its ID
	Get(ctx context.Context, id core.ReportID) (*study.Report, error)

	// List returns report headers, newest first. A non-positive limit returns all.
	List(ctx context.Context, limit int) ([]*ReportRecord, error)
}

// ReportRecord is the header row of a stored report
type ReportRecord struct {
	ID           core.ReportID  `json:"id" db:"id"`
	Mode         study.Mode     `json:"mode" db:"mode"`
	ConditionA   string         `json:"condition_a" db:"condition_a"`
	ConditionB   string         `json:"condition_b" db:"condition_b"`
	MainTest     study.TestKind `json:"main_test" db:"main_test"`
	MainStatus   study.Status   `json:"main_status" db:"main_status"`
	PValue       *float64       `json:"p_value,omitempty" db:"p_value"`
	Participants int            `json:"participants" db:"participants"`
	CreatedAt    time.Time      `json:"created_at" db:"-"`
}
