package models

import (
	"time"
)

// EntryType represents the type of balance change
type EntryType string

const (
	EntryTypeStakeLock       EntryType = "stake_lock"
	EntryTypePrincipalReturn EntryType = "principal_return"
	EntryTypeEarningsCredit  EntryType = "earnings_credit"
)

// RelatedType represents what type of entity the related_id refers to
type RelatedType string

const (
	RelatedTypeStake    RelatedType = "stake"
	RelatedTypeSweepRun RelatedType = "sweep_run"
)

// LedgerEntry represents a historical balance change
type LedgerEntry struct {
	ID            int64          `db:"id"`
	AccountID     int64          `db:"account_id"`
	BalanceBefore int64          `db:"balance_before"`
	BalanceAfter  int64          `db:"balance_after"`
	ChangeAmount  int64          `db:"change_amount"`
	EntryType     EntryType      `db:"entry_type"`
	Metadata      map[string]any `db:"metadata"`
	RelatedID     *int64         `db:"related_id"`
	RelatedType   *RelatedType   `db:"related_type"`
	CreatedAt     time.Time      `db:"created_at"`
}
