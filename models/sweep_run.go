package models

import (
	"time"
)

// SweepRun represents one administrative batch-expiry sweep
type SweepRun struct {
	ID               int64          `db:"id"`
	RanAt            time.Time      `db:"ran_at"`
	StakesReleased   int            `db:"stakes_released"`
	TotalPrincipal   int64          `db:"total_principal"`
	TotalEarnings    int64          `db:"total_earnings"`
	ExecutionSummary map[string]any `db:"execution_summary"`
	CreatedAt        time.Time      `db:"created_at"`
}

// SweepResult represents the outcome of a sweep operation
type SweepResult struct {
	Run      *SweepRun
	Released []*UnstakeResult
}
