package models

import (
	"time"
)

// Stake represents one fixed-amount, fixed-duration deposit by one account.
// Stakes are append-only: a stake is never deleted, only flagged released.
type Stake struct {
	ID            int64      `db:"id"`
	AccountID     int64      `db:"account_id"`
	Position      int64      `db:"position"`
	Amount        int64      `db:"amount"`
	DurationIndex int        `db:"duration_index"`
	DurationDays  int        `db:"duration_days"`
	RateBps       int64      `db:"rate_bps"`
	StakedAt      time.Time  `db:"staked_at"`
	MaturesAt     time.Time  `db:"matures_at"`
	Released      bool       `db:"released"`
	Earnings      int64      `db:"earnings"`
	ReleasedAt    *time.Time `db:"released_at"`
	CreatedAt     time.Time  `db:"created_at"`
}

// IsMature reports whether the stake's lock has fully elapsed. A stake is
// mature at exactly its maturity instant.
func (s *Stake) IsMature(now time.Time) bool {
	return !now.Before(s.MaturesAt)
}

// CanBeReleased checks if the stake is eligible for release at the given time
func (s *Stake) CanBeReleased(now time.Time) bool {
	return !s.Released && s.IsMature(now)
}

// UnstakeResult represents the outcome of releasing a single stake
type UnstakeResult struct {
	Stake      *Stake
	Principal  int64
	Earnings   int64
	Payout     int64
	NewBalance int64
}
