package service

import (
	"context"
	"fmt"
	"time"

	"stakeledger/models"
)

// settleStake releases one stake inside an open unit of work. Both release
// surfaces (individual unstake and the batch sweep) go through here, so the
// released flag is checked and set by exactly one code path. The caller is
// responsible for maturity and ownership checks, and for committing.
func settleStake(ctx context.Context, uow UnitOfWork, transfer TransferGateway, stake *models.Stake, now time.Time) (*models.UnstakeResult, error) {
	earnings := StakeEarnings(stake)

	// The guarded update is the double-release barrier: whichever path gets
	// here second sees the flag already set and aborts.
	released, err := uow.StakeRepository().MarkReleased(ctx, stake.ID, earnings, now)
	if err != nil {
		return nil, fmt.Errorf("failed to mark stake released: %w", err)
	}
	if !released {
		return nil, fmt.Errorf("stake %d/%d: %w", stake.AccountID, stake.Position, models.ErrAlreadyReleased)
	}

	account, err := uow.AccountRepository().GetByID(ctx, stake.AccountID)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		return nil, fmt.Errorf("account %d: %w", stake.AccountID, models.ErrAccountNotFound)
	}

	if err := uow.AccountRepository().Settle(ctx, stake.AccountID, stake.Amount, earnings); err != nil {
		return nil, fmt.Errorf("failed to settle account: %w", err)
	}

	newBalance := account.Balance - stake.Amount

	principalEntry := &models.LedgerEntry{
		AccountID:     stake.AccountID,
		BalanceBefore: account.Balance,
		BalanceAfter:  newBalance,
		ChangeAmount:  -stake.Amount,
		EntryType:     models.EntryTypePrincipalReturn,
		Metadata: map[string]any{
			"position":      stake.Position,
			"amount":        stake.Amount,
			"duration_days": stake.DurationDays,
		},
		RelatedID:   &stake.ID,
		RelatedType: relatedTypePtr(models.RelatedTypeStake),
	}
	if err := RecordLedgerEntry(ctx, uow, principalEntry); err != nil {
		return nil, err
	}

	if earnings > 0 {
		earningsEntry := &models.LedgerEntry{
			AccountID:     stake.AccountID,
			BalanceBefore: newBalance,
			BalanceAfter:  newBalance,
			ChangeAmount:  earnings,
			EntryType:     models.EntryTypeEarningsCredit,
			Metadata: map[string]any{
				"position":      stake.Position,
				"rate_bps":      stake.RateBps,
				"duration_days": stake.DurationDays,
			},
			RelatedID:   &stake.ID,
			RelatedType: relatedTypePtr(models.RelatedTypeStake),
		}
		if err := RecordLedgerEntry(ctx, uow, earningsEntry); err != nil {
			return nil, err
		}
	}

	// Principal and earnings pay out together. The transfer runs inside the
	// transaction so a failure rolls back every mutation above.
	payout := stake.Amount + earnings
	if err := transfer.TransferOut(ctx, stake.AccountID, payout); err != nil {
		return nil, fmt.Errorf("failed to transfer out payout: %w", err)
	}

	stake.Released = true
	stake.Earnings = earnings
	stake.ReleasedAt = &now

	return &models.UnstakeResult{
		Stake:      stake,
		Principal:  stake.Amount,
		Earnings:   earnings,
		Payout:     payout,
		NewBalance: newBalance,
	}, nil
}
