package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"stakeledger/events"
	"stakeledger/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type stakingTestMocks struct {
	factory  *MockUnitOfWorkFactory
	uow      *MockUnitOfWork
	accounts *MockAccountRepository
	stakes   *MockStakeRepository
	ledger   *MockLedgerRepository
	settings *MockSettingsRepository
	transfer *MockTransferGateway
	clock    *FakeClock
	service  StakingService
}

func newStakingTestMocks(now time.Time) *stakingTestMocks {
	m := &stakingTestMocks{
		factory:  new(MockUnitOfWorkFactory),
		uow:      new(MockUnitOfWork),
		accounts: new(MockAccountRepository),
		stakes:   new(MockStakeRepository),
		ledger:   new(MockLedgerRepository),
		settings: new(MockSettingsRepository),
		transfer: new(MockTransferGateway),
		clock:    NewFakeClock(now),
	}
	m.uow.SetRepositories(m.accounts, m.stakes, m.ledger, new(MockSweepRunRepository), m.settings)
	m.factory.On("Create").Return(m.uow)
	m.service = NewStakingService(m.factory, m.transfer, m.clock)
	return m
}

func (m *stakingTestMocks) publishedEvents() []events.Event {
	return m.uow.EventBus().(*CapturingPublisher).Events()
}

func enabledSettings() *models.SystemSettings {
	return &models.SystemSettings{StakingEnabled: true}
}

func thirtyDayOption() *models.LockOption {
	return &models.LockOption{DurationIndex: 0, DurationDays: 30, RateBps: 2000}
}

func TestStake_Success(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	m := newStakingTestMocks(now)

	m.uow.On("Begin", ctx).Return(nil)
	m.uow.On("Commit").Return(nil)
	m.uow.On("Rollback").Return(nil)

	m.settings.On("GetSettings", ctx).Return(enabledSettings(), nil)
	m.settings.On("GetLockOption", ctx, 0).Return(thirtyDayOption(), nil)
	m.accounts.On("GetOrCreate", ctx, int64(42)).Return(&models.Account{AccountID: 42, Balance: 0}, nil)
	m.stakes.On("Create", ctx, mock.MatchedBy(func(s *models.Stake) bool {
		return s.AccountID == 42 &&
			s.Amount == 100 &&
			s.RateBps == 2000 &&
			s.DurationDays == 30 &&
			s.StakedAt.Equal(now) &&
			s.MaturesAt.Equal(now.AddDate(0, 0, 30))
	})).Run(func(args mock.Arguments) {
		stake := args.Get(1).(*models.Stake)
		stake.ID = 7
		stake.Position = 0
	}).Return(nil)
	m.accounts.On("LockBalance", ctx, int64(42), int64(100)).Return(nil)
	m.ledger.On("Record", ctx, mock.MatchedBy(func(e *models.LedgerEntry) bool {
		return e.EntryType == models.EntryTypeStakeLock &&
			e.ChangeAmount == 100 &&
			e.BalanceBefore == 0 &&
			e.BalanceAfter == 100
	})).Return(nil)
	m.transfer.On("TransferIn", ctx, int64(42), int64(100)).Return(nil)

	stake, err := m.service.Stake(ctx, 42, 0, 100)

	require.NoError(t, err)
	assert.Equal(t, int64(42), stake.AccountID)
	assert.Equal(t, int64(0), stake.Position)
	assert.Equal(t, int64(2000), stake.RateBps)
	assert.Equal(t, now.AddDate(0, 0, 30), stake.MaturesAt)

	published := m.publishedEvents()
	require.Len(t, published, 1)
	created := published[0].(events.StakeCreatedEvent)
	assert.Equal(t, int64(42), created.AccountID)
	assert.Equal(t, int64(100), created.Amount)

	m.stakes.AssertExpectations(t)
	m.accounts.AssertExpectations(t)
	m.transfer.AssertExpectations(t)
	m.uow.AssertExpectations(t)
}

func TestStake_NonPositiveAmount(t *testing.T) {
	ctx := context.Background()
	m := newStakingTestMocks(time.Now().UTC())

	_, err := m.service.Stake(ctx, 42, 0, 0)
	assert.ErrorIs(t, err, models.ErrInvalidArgument)

	_, err = m.service.Stake(ctx, 42, 0, -5)
	assert.ErrorIs(t, err, models.ErrInvalidArgument)

	m.factory.AssertNotCalled(t, "Create")
}

func TestStake_StakingDisabled(t *testing.T) {
	ctx := context.Background()
	m := newStakingTestMocks(time.Now().UTC())

	m.uow.On("Begin", ctx).Return(nil)
	m.uow.On("Rollback").Return(nil)
	m.settings.On("GetSettings", ctx).Return(&models.SystemSettings{StakingEnabled: false}, nil)

	_, err := m.service.Stake(ctx, 42, 0, 100)

	assert.ErrorIs(t, err, models.ErrStakingDisabled)
	m.uow.AssertNotCalled(t, "Commit")
	m.stakes.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestStake_ReenabledAfterToggle(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	m := newStakingTestMocks(now)

	m.uow.On("Begin", ctx).Return(nil)
	m.uow.On("Commit").Return(nil)
	m.uow.On("Rollback").Return(nil)

	// First call sees the gate closed, second sees it open again.
	m.settings.On("GetSettings", ctx).Return(&models.SystemSettings{StakingEnabled: false}, nil).Once()
	m.settings.On("GetSettings", ctx).Return(enabledSettings(), nil).Once()
	m.settings.On("GetLockOption", ctx, 0).Return(thirtyDayOption(), nil)
	m.accounts.On("GetOrCreate", ctx, int64(42)).Return(&models.Account{AccountID: 42}, nil)
	m.stakes.On("Create", ctx, mock.Anything).Return(nil)
	m.accounts.On("LockBalance", ctx, int64(42), int64(100)).Return(nil)
	m.ledger.On("Record", ctx, mock.Anything).Return(nil)
	m.transfer.On("TransferIn", ctx, int64(42), int64(100)).Return(nil)

	_, err := m.service.Stake(ctx, 42, 0, 100)
	assert.ErrorIs(t, err, models.ErrStakingDisabled)

	_, err = m.service.Stake(ctx, 42, 0, 100)
	assert.NoError(t, err)

	m.settings.AssertExpectations(t)
}

func TestStake_UnknownDurationIndex(t *testing.T) {
	ctx := context.Background()
	m := newStakingTestMocks(time.Now().UTC())

	m.uow.On("Begin", ctx).Return(nil)
	m.uow.On("Rollback").Return(nil)
	m.settings.On("GetSettings", ctx).Return(enabledSettings(), nil)
	m.settings.On("GetLockOption", ctx, 9).Return(nil, nil)

	_, err := m.service.Stake(ctx, 42, 9, 100)

	assert.ErrorIs(t, err, models.ErrInvalidArgument)
	m.accounts.AssertNotCalled(t, "GetOrCreate", mock.Anything, mock.Anything)
}

func TestStake_TransferFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	m := newStakingTestMocks(now)

	m.uow.On("Begin", ctx).Return(nil)
	m.uow.On("Rollback").Return(nil)

	m.settings.On("GetSettings", ctx).Return(enabledSettings(), nil)
	m.settings.On("GetLockOption", ctx, 0).Return(thirtyDayOption(), nil)
	m.accounts.On("GetOrCreate", ctx, int64(42)).Return(&models.Account{AccountID: 42}, nil)
	m.stakes.On("Create", ctx, mock.Anything).Return(nil)
	m.accounts.On("LockBalance", ctx, int64(42), int64(100)).Return(nil)
	m.ledger.On("Record", ctx, mock.Anything).Return(nil)
	m.transfer.On("TransferIn", ctx, int64(42), int64(100)).
		Return(fmt.Errorf("transfer service returned 503: %w", models.ErrTransferFailed))

	_, err := m.service.Stake(ctx, 42, 0, 100)

	assert.ErrorIs(t, err, models.ErrTransferFailed)
	m.uow.AssertNotCalled(t, "Commit")
	m.uow.AssertCalled(t, "Rollback")
	assert.Empty(t, m.publishedEvents())
}

func maturedStake(now time.Time) *models.Stake {
	staked := now.AddDate(0, 0, -30)
	return &models.Stake{
		ID:            7,
		AccountID:     42,
		Position:      0,
		Amount:        100,
		DurationIndex: 0,
		DurationDays:  30,
		RateBps:       2000,
		StakedAt:      staked,
		MaturesAt:     now,
	}
}

func TestUnstake_AtExactMaturity(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	m := newStakingTestMocks(now)
	stake := maturedStake(now)

	m.uow.On("Begin", ctx).Return(nil)
	m.uow.On("Commit").Return(nil)
	m.uow.On("Rollback").Return(nil)

	m.stakes.On("GetByAccountAndPosition", ctx, int64(42), int64(0)).Return(stake, nil)
	// floor(100 * 2000 * 30 / 3_650_000) = 1
	m.stakes.On("MarkReleased", ctx, int64(7), int64(1), now).Return(true, nil)
	m.accounts.On("GetByID", ctx, int64(42)).Return(&models.Account{AccountID: 42, Balance: 100}, nil)
	m.accounts.On("Settle", ctx, int64(42), int64(100), int64(1)).Return(nil)
	m.ledger.On("Record", ctx, mock.MatchedBy(func(e *models.LedgerEntry) bool {
		return e.EntryType == models.EntryTypePrincipalReturn && e.ChangeAmount == -100
	})).Return(nil)
	m.ledger.On("Record", ctx, mock.MatchedBy(func(e *models.LedgerEntry) bool {
		return e.EntryType == models.EntryTypeEarningsCredit && e.ChangeAmount == 1
	})).Return(nil)
	m.transfer.On("TransferOut", ctx, int64(42), int64(101)).Return(nil)

	result, err := m.service.Unstake(ctx, 42, 0)

	require.NoError(t, err)
	assert.Equal(t, int64(100), result.Principal)
	assert.Equal(t, int64(1), result.Earnings)
	assert.Equal(t, int64(101), result.Payout)
	assert.True(t, result.Stake.Released)
	require.NotNil(t, result.Stake.ReleasedAt)
	assert.Equal(t, now, *result.Stake.ReleasedAt)

	published := m.publishedEvents()
	require.Len(t, published, 1)
	released := published[0].(events.StakeReleasedEvent)
	assert.Equal(t, int64(1), released.Earnings)

	m.stakes.AssertExpectations(t)
	m.accounts.AssertExpectations(t)
	m.ledger.AssertExpectations(t)
	m.transfer.AssertExpectations(t)
}

func TestUnstake_BeforeMaturity(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	m := newStakingTestMocks(now)

	// Matures one second from now.
	stake := maturedStake(now.Add(time.Second))

	m.uow.On("Begin", ctx).Return(nil)
	m.uow.On("Rollback").Return(nil)
	m.stakes.On("GetByAccountAndPosition", ctx, int64(42), int64(0)).Return(stake, nil)

	_, err := m.service.Unstake(ctx, 42, 0)

	assert.ErrorIs(t, err, models.ErrStakeNotMature)
	m.stakes.AssertNotCalled(t, "MarkReleased", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	m.uow.AssertNotCalled(t, "Commit")

	// One second later the same call clears the gate.
	m.clock.Advance(time.Second)
	maturity := stake.MaturesAt

	m.uow.On("Commit").Return(nil)
	m.stakes.On("MarkReleased", ctx, int64(7), int64(1), maturity).Return(true, nil)
	m.accounts.On("GetByID", ctx, int64(42)).Return(&models.Account{AccountID: 42, Balance: 100}, nil)
	m.accounts.On("Settle", ctx, int64(42), int64(100), int64(1)).Return(nil)
	m.ledger.On("Record", ctx, mock.Anything).Return(nil)
	m.transfer.On("TransferOut", ctx, int64(42), int64(101)).Return(nil)

	result, err := m.service.Unstake(ctx, 42, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(101), result.Payout)
}

func TestUnstake_AlreadyReleased(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	m := newStakingTestMocks(now)

	stake := maturedStake(now)
	stake.Released = true
	stake.Earnings = 1

	m.uow.On("Begin", ctx).Return(nil)
	m.uow.On("Rollback").Return(nil)
	m.stakes.On("GetByAccountAndPosition", ctx, int64(42), int64(0)).Return(stake, nil)

	_, err := m.service.Unstake(ctx, 42, 0)

	assert.ErrorIs(t, err, models.ErrAlreadyReleased)
	m.transfer.AssertNotCalled(t, "TransferOut", mock.Anything, mock.Anything, mock.Anything)
}

func TestUnstake_ConcurrentReleaseLosesRace(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	m := newStakingTestMocks(now)
	stake := maturedStake(now)

	m.uow.On("Begin", ctx).Return(nil)
	m.uow.On("Rollback").Return(nil)
	m.stakes.On("GetByAccountAndPosition", ctx, int64(42), int64(0)).Return(stake, nil)
	// Another path set the flag between our read and the guarded update.
	m.stakes.On("MarkReleased", ctx, int64(7), int64(1), now).Return(false, nil)

	_, err := m.service.Unstake(ctx, 42, 0)

	assert.ErrorIs(t, err, models.ErrAlreadyReleased)
	m.accounts.AssertNotCalled(t, "Settle", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	m.uow.AssertNotCalled(t, "Commit")
}

func TestUnstake_NotFound(t *testing.T) {
	ctx := context.Background()
	m := newStakingTestMocks(time.Now().UTC())

	m.uow.On("Begin", ctx).Return(nil)
	m.uow.On("Rollback").Return(nil)
	m.stakes.On("GetByAccountAndPosition", ctx, int64(42), int64(99)).Return(nil, nil)

	_, err := m.service.Unstake(ctx, 42, 99)

	assert.ErrorIs(t, err, models.ErrInvalidArgument)
}

func TestGetStake(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	m := newStakingTestMocks(now)

	m.uow.On("Begin", ctx).Return(nil)
	m.uow.On("Rollback").Return(nil)

	stake := maturedStake(now)
	m.stakes.On("GetByAccountAndPosition", ctx, int64(42), int64(0)).Return(stake, nil).Once()

	got, err := m.service.GetStake(ctx, 42, 0)
	require.NoError(t, err)
	assert.Equal(t, stake, got)

	m.stakes.On("GetByAccountAndPosition", ctx, int64(42), int64(99)).Return(nil, nil).Once()

	_, err = m.service.GetStake(ctx, 42, 99)
	assert.ErrorIs(t, err, models.ErrInvalidArgument)
}

func TestGetAccount_NotFound(t *testing.T) {
	ctx := context.Background()
	m := newStakingTestMocks(time.Now().UTC())

	m.uow.On("Begin", ctx).Return(nil)
	m.uow.On("Rollback").Return(nil)
	m.accounts.On("GetByID", ctx, int64(99)).Return(nil, nil)

	_, err := m.service.GetAccount(ctx, 99)

	assert.ErrorIs(t, err, models.ErrAccountNotFound)
}

func TestProjectedEarnings(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	m := newStakingTestMocks(now)

	live := maturedStake(now.AddDate(0, 0, 15))
	m.uow.On("Begin", ctx).Return(nil)
	m.uow.On("Rollback").Return(nil)
	m.stakes.On("GetByAccountAndPosition", ctx, int64(42), int64(0)).Return(live, nil).Once()

	earnings, err := m.service.ProjectedEarnings(ctx, 42, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), earnings)

	// A released stake reports what it actually paid, not a recomputation.
	released := maturedStake(now)
	released.Released = true
	released.Earnings = 5
	m.stakes.On("GetByAccountAndPosition", ctx, int64(42), int64(0)).Return(released, nil).Once()

	earnings, err = m.service.ProjectedEarnings(ctx, 42, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(5), earnings)
}
