package testutil

import (
	"time"

	"stakeledger/models"
)

// CreateTestStake creates an unreleased stake with default values
func CreateTestStake(accountID int64, stakedAt time.Time) *models.Stake {
	return &models.Stake{
		AccountID:     accountID,
		Amount:        100,
		DurationIndex: 0,
		DurationDays:  30,
		RateBps:       2000,
		StakedAt:      stakedAt,
		MaturesAt:     stakedAt.AddDate(0, 0, 30),
	}
}

// CreateTestStakeWithAmount creates a stake with a specific principal
func CreateTestStakeWithAmount(accountID int64, stakedAt time.Time, amount int64) *models.Stake {
	stake := CreateTestStake(accountID, stakedAt)
	stake.Amount = amount
	return stake
}

// CreateTestLedgerEntry creates a stake-lock ledger entry
func CreateTestLedgerEntry(accountID int64, entryType models.EntryType) *models.LedgerEntry {
	return &models.LedgerEntry{
		AccountID:     accountID,
		BalanceBefore: 0,
		BalanceAfter:  100,
		ChangeAmount:  100,
		EntryType:     entryType,
		Metadata: map[string]any{
			"test": true,
		},
	}
}

// CreateTestSweepRun creates a sweep run record
func CreateTestSweepRun(ranAt time.Time) *models.SweepRun {
	return &models.SweepRun{
		RanAt:          ranAt,
		StakesReleased: 3,
		TotalPrincipal: 300,
		TotalEarnings:  3,
		ExecutionSummary: map[string]any{
			"accounts_affected": 2,
		},
	}
}
