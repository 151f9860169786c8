package models

import (
	"time"
)

// Account represents a depositor with a locked balance
type Account struct {
	AccountID int64     `db:"account_id"`
	Balance   int64     `db:"balance"`
	Earnings  int64     `db:"earnings"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// LedgerTotals holds the aggregate figures derived from the ledger.
// TotalLocked decreases as stakes are released; LifetimeStaked never does.
type LedgerTotals struct {
	TotalLocked    int64
	LifetimeStaked int64
	TotalEarnings  int64
}
