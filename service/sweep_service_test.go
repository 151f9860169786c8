package service

import (
	"context"
	"testing"
	"time"

	"stakeledger/config"
	"stakeledger/events"
	"stakeledger/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type sweepTestMocks struct {
	factory  *MockUnitOfWorkFactory
	uow      *MockUnitOfWork
	accounts *MockAccountRepository
	stakes   *MockStakeRepository
	ledger   *MockLedgerRepository
	sweeps   *MockSweepRunRepository
	transfer *MockTransferGateway
	clock    *FakeClock
	service  SweepService
}

func newSweepTestMocks(now time.Time) *sweepTestMocks {
	m := &sweepTestMocks{
		factory:  new(MockUnitOfWorkFactory),
		uow:      new(MockUnitOfWork),
		accounts: new(MockAccountRepository),
		stakes:   new(MockStakeRepository),
		ledger:   new(MockLedgerRepository),
		sweeps:   new(MockSweepRunRepository),
		transfer: new(MockTransferGateway),
		clock:    NewFakeClock(now),
	}
	m.uow.SetRepositories(m.accounts, m.stakes, m.ledger, m.sweeps, new(MockSettingsRepository))
	m.factory.On("Create").Return(m.uow)
	cfg := &config.Config{AdminAccountIDs: []int64{1}}
	m.service = NewSweepService(m.factory, m.transfer, m.clock, cfg)
	return m
}

func (m *sweepTestMocks) publishedEvents() []events.Event {
	return m.uow.EventBus().(*CapturingPublisher).Events()
}

func TestSweepMatured_NonAdmin(t *testing.T) {
	ctx := context.Background()
	m := newSweepTestMocks(time.Now().UTC())

	_, err := m.service.SweepMatured(ctx, 99)

	assert.ErrorIs(t, err, models.ErrPermissionDenied)
	m.factory.AssertNotCalled(t, "Create")
}

func TestSweepMatured_SettlesAllMatured(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	m := newSweepTestMocks(now)

	stakeA := &models.Stake{
		ID: 7, AccountID: 42, Position: 0, Amount: 100,
		DurationDays: 30, RateBps: 2000,
		StakedAt: now.AddDate(0, 0, -31), MaturesAt: now.AddDate(0, 0, -1),
	}
	stakeB := &models.Stake{
		ID: 8, AccountID: 43, Position: 0, Amount: 1_000_000,
		DurationDays: 90, RateBps: 3000,
		StakedAt: now.AddDate(0, 0, -90), MaturesAt: now,
	}

	m.uow.On("Begin", ctx).Return(nil)
	m.uow.On("Commit").Return(nil)
	m.uow.On("Rollback").Return(nil)

	m.stakes.On("GetMaturedUnreleased", ctx, now).Return([]*models.Stake{stakeA, stakeB}, nil)

	m.stakes.On("MarkReleased", ctx, int64(7), int64(1), now).Return(true, nil)
	m.accounts.On("GetByID", ctx, int64(42)).Return(&models.Account{AccountID: 42, Balance: 100}, nil)
	m.accounts.On("Settle", ctx, int64(42), int64(100), int64(1)).Return(nil)
	m.transfer.On("TransferOut", ctx, int64(42), int64(101)).Return(nil)

	// floor(1_000_000 * 3000 * 90 / 3_650_000) = 73_972
	m.stakes.On("MarkReleased", ctx, int64(8), int64(73_972), now).Return(true, nil)
	m.accounts.On("GetByID", ctx, int64(43)).Return(&models.Account{AccountID: 43, Balance: 1_000_000}, nil)
	m.accounts.On("Settle", ctx, int64(43), int64(1_000_000), int64(73_972)).Return(nil)
	m.transfer.On("TransferOut", ctx, int64(43), int64(1_073_972)).Return(nil)

	m.ledger.On("Record", ctx, mock.Anything).Return(nil)

	m.sweeps.On("Create", ctx, mock.MatchedBy(func(run *models.SweepRun) bool {
		return run.StakesReleased == 2 &&
			run.TotalPrincipal == 1_000_100 &&
			run.TotalEarnings == 73_973 &&
			run.ExecutionSummary["accounts_affected"] == 2
	})).Return(nil)

	result, err := m.service.SweepMatured(ctx, 1)

	require.NoError(t, err)
	require.Len(t, result.Released, 2)
	assert.Equal(t, int64(101), result.Released[0].Payout)
	assert.Equal(t, int64(1_073_972), result.Released[1].Payout)
	assert.True(t, result.Released[0].Stake.Released)
	assert.True(t, result.Released[1].Stake.Released)

	published := m.publishedEvents()
	require.Len(t, published, 2)
	swept := published[0].(events.StakeSweptEvent)
	assert.Equal(t, int64(42), swept.AccountID)
	assert.Equal(t, int64(1), swept.Earnings)

	m.stakes.AssertExpectations(t)
	m.accounts.AssertExpectations(t)
	m.sweeps.AssertExpectations(t)
	m.transfer.AssertExpectations(t)
}

func TestSweepMatured_EmptyRunStillRecorded(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	m := newSweepTestMocks(now)

	m.uow.On("Begin", ctx).Return(nil)
	m.uow.On("Commit").Return(nil)
	m.uow.On("Rollback").Return(nil)
	m.stakes.On("GetMaturedUnreleased", ctx, now).Return([]*models.Stake{}, nil)
	m.sweeps.On("Create", ctx, mock.MatchedBy(func(run *models.SweepRun) bool {
		return run.StakesReleased == 0 && run.TotalPrincipal == 0 && run.TotalEarnings == 0
	})).Return(nil)

	result, err := m.service.SweepMatured(ctx, 1)

	require.NoError(t, err)
	assert.Empty(t, result.Released)
	m.transfer.AssertNotCalled(t, "TransferOut", mock.Anything, mock.Anything, mock.Anything)
	m.sweeps.AssertExpectations(t)
}

func TestSweepMatured_SecondSweepSeesNothing(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	m := newSweepTestMocks(now)

	stake := &models.Stake{
		ID: 7, AccountID: 42, Position: 0, Amount: 100,
		DurationDays: 30, RateBps: 2000,
		StakedAt: now.AddDate(0, 0, -30), MaturesAt: now,
	}

	m.uow.On("Begin", ctx).Return(nil)
	m.uow.On("Commit").Return(nil)
	m.uow.On("Rollback").Return(nil)

	// First sweep settles the stake; the second finds nothing because released
	// stakes never match the matured-unreleased query.
	m.stakes.On("GetMaturedUnreleased", ctx, now).Return([]*models.Stake{stake}, nil).Once()
	m.stakes.On("GetMaturedUnreleased", ctx, now).Return([]*models.Stake{}, nil).Once()
	m.stakes.On("MarkReleased", ctx, int64(7), int64(1), now).Return(true, nil).Once()
	m.accounts.On("GetByID", ctx, int64(42)).Return(&models.Account{AccountID: 42, Balance: 100}, nil)
	m.accounts.On("Settle", ctx, int64(42), int64(100), int64(1)).Return(nil).Once()
	m.transfer.On("TransferOut", ctx, int64(42), int64(101)).Return(nil).Once()
	m.ledger.On("Record", ctx, mock.Anything).Return(nil)
	m.sweeps.On("Create", ctx, mock.Anything).Return(nil)

	first, err := m.service.SweepMatured(ctx, 1)
	require.NoError(t, err)
	require.Len(t, first.Released, 1)

	second, err := m.service.SweepMatured(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, second.Released)

	// Exactly one settlement and one payout across both runs.
	m.accounts.AssertNumberOfCalls(t, "Settle", 1)
	m.transfer.AssertNumberOfCalls(t, "TransferOut", 1)
}

func TestSweepMatured_SettleFailureAbortsRun(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	m := newSweepTestMocks(now)

	stake := &models.Stake{
		ID: 7, AccountID: 42, Position: 0, Amount: 100,
		DurationDays: 30, RateBps: 2000,
		StakedAt: now.AddDate(0, 0, -30), MaturesAt: now,
	}

	m.uow.On("Begin", ctx).Return(nil)
	m.uow.On("Rollback").Return(nil)
	m.stakes.On("GetMaturedUnreleased", ctx, now).Return([]*models.Stake{stake}, nil)
	// A concurrent release beat the sweep to this stake.
	m.stakes.On("MarkReleased", ctx, int64(7), int64(1), now).Return(false, nil)

	_, err := m.service.SweepMatured(ctx, 1)

	assert.ErrorIs(t, err, models.ErrAlreadyReleased)
	m.uow.AssertNotCalled(t, "Commit")
	m.sweeps.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}
