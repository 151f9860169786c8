package models

import (
	"time"
)

// LockOption is one row of the duration/rate table: a fixed lock duration
// and its current annual simple-interest rate in basis points. The duration
// set is seeded once by migration and never resized; only rates change.
type LockOption struct {
	DurationIndex int       `db:"duration_index"`
	DurationDays  int       `db:"duration_days"`
	RateBps       int64     `db:"rate_bps"`
	UpdatedAt     time.Time `db:"updated_at"`
}

// SystemSettings holds the runtime toggles consulted by the lifecycle engine
type SystemSettings struct {
	StakingEnabled bool      `db:"staking_enabled"`
	UpdatedAt      time.Time `db:"updated_at"`
}
