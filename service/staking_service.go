package service

import (
	"context"
	"fmt"

	"stakeledger/events"
	"stakeledger/metrics"
	"stakeledger/models"

	log "github.com/sirupsen/logrus"
)

type stakingService struct {
	uowFactory UnitOfWorkFactory
	transfer   TransferGateway
	clock      Clock
}

// NewStakingService creates a new staking service
func NewStakingService(uowFactory UnitOfWorkFactory, transfer TransferGateway, clock Clock) StakingService {
	return &stakingService{
		uowFactory: uowFactory,
		transfer:   transfer,
		clock:      clock,
	}
}

// Stake creates a new time-locked deposit for the account
func (s *stakingService) Stake(ctx context.Context, accountID int64, durationIndex int, amount int64) (*models.Stake, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("stake amount must be positive: %w", models.ErrInvalidArgument)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	// The enable gate blocks only new stakes, never releases or reads.
	settings, err := uow.SettingsRepository().GetSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}
	if !settings.StakingEnabled {
		return nil, models.ErrStakingDisabled
	}

	option, err := uow.SettingsRepository().GetLockOption(ctx, durationIndex)
	if err != nil {
		return nil, fmt.Errorf("failed to get lock option: %w", err)
	}
	if option == nil {
		return nil, fmt.Errorf("duration index %d out of range: %w", durationIndex, models.ErrInvalidArgument)
	}

	account, err := uow.AccountRepository().GetOrCreate(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	// The rate is snapshotted here; later rate changes never touch this stake.
	now := s.clock.Now()
	stake := &models.Stake{
		AccountID:     accountID,
		Amount:        amount,
		DurationIndex: option.DurationIndex,
		DurationDays:  option.DurationDays,
		RateBps:       option.RateBps,
		StakedAt:      now,
		MaturesAt:     now.AddDate(0, 0, option.DurationDays),
	}

	if err := uow.StakeRepository().Create(ctx, stake); err != nil {
		return nil, fmt.Errorf("failed to create stake: %w", err)
	}

	if err := uow.AccountRepository().LockBalance(ctx, accountID, amount); err != nil {
		return nil, fmt.Errorf("failed to lock balance: %w", err)
	}

	entry := &models.LedgerEntry{
		AccountID:     accountID,
		BalanceBefore: account.Balance,
		BalanceAfter:  account.Balance + amount,
		ChangeAmount:  amount,
		EntryType:     models.EntryTypeStakeLock,
		Metadata: map[string]any{
			"position":      stake.Position,
			"duration_days": option.DurationDays,
			"rate_bps":      option.RateBps,
		},
		RelatedID:   &stake.ID,
		RelatedType: relatedTypePtr(models.RelatedTypeStake),
	}
	if err := RecordLedgerEntry(ctx, uow, entry); err != nil {
		return nil, err
	}

	// Pull the principal into custody inside the transaction; a transfer
	// failure rolls back the stake and the balance lock together.
	if err := s.transfer.TransferIn(ctx, accountID, amount); err != nil {
		return nil, fmt.Errorf("failed to transfer in principal: %w", err)
	}

	uow.EventBus().Publish(events.StakeCreatedEvent{
		AccountID:    accountID,
		Position:     stake.Position,
		Amount:       amount,
		DurationDays: option.DurationDays,
		RateBps:      option.RateBps,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	metrics.StakesCreated.Inc()
	metrics.AmountLocked.Add(float64(amount))

	log.WithFields(log.Fields{
		"accountID": accountID,
		"position":  stake.Position,
		"amount":    amount,
		"maturesAt": stake.MaturesAt,
	}).Info("Stake created")

	return stake, nil
}

// Unstake releases a matured stake, paying out principal plus earnings
func (s *stakingService) Unstake(ctx context.Context, accountID int64, position int64) (*models.UnstakeResult, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	stake, err := uow.StakeRepository().GetByAccountAndPosition(ctx, accountID, position)
	if err != nil {
		return nil, fmt.Errorf("failed to get stake: %w", err)
	}
	if stake == nil {
		return nil, fmt.Errorf("stake %d/%d not found: %w", accountID, position, models.ErrInvalidArgument)
	}
	if stake.Released {
		return nil, fmt.Errorf("stake %d/%d: %w", accountID, position, models.ErrAlreadyReleased)
	}

	// Release succeeds at exactly the maturity instant.
	now := s.clock.Now()
	if !stake.IsMature(now) {
		return nil, fmt.Errorf("stake %d/%d matures at %s: %w",
			accountID, position, stake.MaturesAt.Format("2006-01-02 15:04:05"), models.ErrStakeNotMature)
	}

	result, err := settleStake(ctx, uow, s.transfer, stake, now)
	if err != nil {
		return nil, err
	}

	uow.EventBus().Publish(events.StakeReleasedEvent{
		AccountID: accountID,
		Position:  position,
		Amount:    result.Principal,
		Earnings:  result.Earnings,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	metrics.StakesReleased.WithLabelValues("unstake").Inc()
	metrics.EarningsPaid.Add(float64(result.Earnings))

	log.WithFields(log.Fields{
		"accountID": accountID,
		"position":  position,
		"principal": result.Principal,
		"earnings":  result.Earnings,
	}).Info("Stake released")

	return result, nil
}

// GetStake returns one stake by its owner-scoped position
func (s *stakingService) GetStake(ctx context.Context, accountID int64, position int64) (*models.Stake, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	stake, err := uow.StakeRepository().GetByAccountAndPosition(ctx, accountID, position)
	if err != nil {
		return nil, fmt.Errorf("failed to get stake: %w", err)
	}
	if stake == nil {
		return nil, fmt.Errorf("stake %d/%d not found: %w", accountID, position, models.ErrInvalidArgument)
	}

	return stake, nil
}

// GetStakes returns all stakes for an account in position order
func (s *stakingService) GetStakes(ctx context.Context, accountID int64) ([]*models.Stake, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	stakes, err := uow.StakeRepository().GetByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to get stakes: %w", err)
	}

	return stakes, nil
}

// GetAccount returns the account's locked balance and cumulative earnings
func (s *stakingService) GetAccount(ctx context.Context, accountID int64) (*models.Account, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	account, err := uow.AccountRepository().GetByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		return nil, fmt.Errorf("account %d: %w", accountID, models.ErrAccountNotFound)
	}

	return account, nil
}

// ProjectedEarnings returns the earnings a stake has or will accrue over its
// full lock at its snapshot rate
func (s *stakingService) ProjectedEarnings(ctx context.Context, accountID int64, position int64) (int64, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	stake, err := uow.StakeRepository().GetByAccountAndPosition(ctx, accountID, position)
	if err != nil {
		return 0, fmt.Errorf("failed to get stake: %w", err)
	}
	if stake == nil {
		return 0, fmt.Errorf("stake %d/%d not found: %w", accountID, position, models.ErrInvalidArgument)
	}

	if stake.Released {
		return stake.Earnings, nil
	}
	return StakeEarnings(stake), nil
}

// GetTotals returns the aggregate ledger figures
func (s *stakingService) GetTotals(ctx context.Context) (*models.LedgerTotals, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	totals, err := uow.AccountRepository().GetTotals(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get totals: %w", err)
	}

	return totals, nil
}
