package service

import (
	"context"
	"time"

	"stakeledger/models"

	"github.com/stretchr/testify/mock"
)

// MockAccountRepository is a mock implementation of AccountRepository
type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) GetByID(ctx context.Context, accountID int64) (*models.Account, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *MockAccountRepository) GetOrCreate(ctx context.Context, accountID int64) (*models.Account, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *MockAccountRepository) LockBalance(ctx context.Context, accountID int64, amount int64) error {
	args := m.Called(ctx, accountID, amount)
	return args.Error(0)
}

func (m *MockAccountRepository) Settle(ctx context.Context, accountID int64, principal, earnings int64) error {
	args := m.Called(ctx, accountID, principal, earnings)
	return args.Error(0)
}

func (m *MockAccountRepository) GetTotals(ctx context.Context) (*models.LedgerTotals, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.LedgerTotals), args.Error(1)
}

func (m *MockAccountRepository) GetAll(ctx context.Context) ([]*models.Account, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Account), args.Error(1)
}

// MockStakeRepository is a mock implementation of StakeRepository
type MockStakeRepository struct {
	mock.Mock
}

func (m *MockStakeRepository) Create(ctx context.Context, stake *models.Stake) error {
	args := m.Called(ctx, stake)
	return args.Error(0)
}

func (m *MockStakeRepository) GetByAccountAndPosition(ctx context.Context, accountID, position int64) (*models.Stake, error) {
	args := m.Called(ctx, accountID, position)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Stake), args.Error(1)
}

func (m *MockStakeRepository) GetByAccount(ctx context.Context, accountID int64) ([]*models.Stake, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Stake), args.Error(1)
}

func (m *MockStakeRepository) MarkReleased(ctx context.Context, stakeID int64, earnings int64, releasedAt time.Time) (bool, error) {
	args := m.Called(ctx, stakeID, earnings, releasedAt)
	return args.Bool(0), args.Error(1)
}

func (m *MockStakeRepository) GetMaturedUnreleased(ctx context.Context, asOf time.Time) ([]*models.Stake, error) {
	args := m.Called(ctx, asOf)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Stake), args.Error(1)
}

// MockLedgerRepository is a mock implementation of LedgerRepository
type MockLedgerRepository struct {
	mock.Mock
}

func (m *MockLedgerRepository) Record(ctx context.Context, entry *models.LedgerEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockLedgerRepository) GetByAccount(ctx context.Context, accountID int64, limit int) ([]*models.LedgerEntry, error) {
	args := m.Called(ctx, accountID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.LedgerEntry), args.Error(1)
}

func (m *MockLedgerRepository) GetByDateRange(ctx context.Context, accountID int64, from, to time.Time) ([]*models.LedgerEntry, error) {
	args := m.Called(ctx, accountID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.LedgerEntry), args.Error(1)
}

// MockSweepRunRepository is a mock implementation of SweepRunRepository
type MockSweepRunRepository struct {
	mock.Mock
}

func (m *MockSweepRunRepository) Create(ctx context.Context, run *models.SweepRun) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *MockSweepRunRepository) GetLatest(ctx context.Context) (*models.SweepRun, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SweepRun), args.Error(1)
}

// MockSettingsRepository is a mock implementation of SettingsRepository
type MockSettingsRepository struct {
	mock.Mock
}

func (m *MockSettingsRepository) GetSettings(ctx context.Context) (*models.SystemSettings, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SystemSettings), args.Error(1)
}

func (m *MockSettingsRepository) SetStakingEnabled(ctx context.Context, enabled bool) error {
	args := m.Called(ctx, enabled)
	return args.Error(0)
}

func (m *MockSettingsRepository) ListLockOptions(ctx context.Context) ([]*models.LockOption, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.LockOption), args.Error(1)
}

func (m *MockSettingsRepository) GetLockOption(ctx context.Context, durationIndex int) (*models.LockOption, error) {
	args := m.Called(ctx, durationIndex)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.LockOption), args.Error(1)
}

func (m *MockSettingsRepository) UpdateRate(ctx context.Context, durationIndex int, rateBps int64) error {
	args := m.Called(ctx, durationIndex, rateBps)
	return args.Error(0)
}

// MockTransferGateway is a mock implementation of TransferGateway
type MockTransferGateway struct {
	mock.Mock
}

func (m *MockTransferGateway) TransferIn(ctx context.Context, accountID int64, amount int64) error {
	args := m.Called(ctx, accountID, amount)
	return args.Error(0)
}

func (m *MockTransferGateway) TransferOut(ctx context.Context, accountID int64, amount int64) error {
	args := m.Called(ctx, accountID, amount)
	return args.Error(0)
}

// MockUnitOfWork is a mock implementation of UnitOfWork
type MockUnitOfWork struct {
	mock.Mock
	accountRepo  AccountRepository
	stakeRepo    StakeRepository
	ledgerRepo   LedgerRepository
	sweepRunRepo SweepRunRepository
	settingsRepo SettingsRepository
	eventBus     EventPublisher
}

// SetRepositories wires the repositories returned by the getters
func (m *MockUnitOfWork) SetRepositories(
	accountRepo AccountRepository,
	stakeRepo StakeRepository,
	ledgerRepo LedgerRepository,
	sweepRunRepo SweepRunRepository,
	settingsRepo SettingsRepository,
) {
	m.accountRepo = accountRepo
	m.stakeRepo = stakeRepo
	m.ledgerRepo = ledgerRepo
	m.sweepRunRepo = sweepRunRepo
	m.settingsRepo = settingsRepo
	m.eventBus = &CapturingPublisher{}
}

func (m *MockUnitOfWork) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUnitOfWork) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) AccountRepository() AccountRepository {
	return m.accountRepo
}

func (m *MockUnitOfWork) StakeRepository() StakeRepository {
	return m.stakeRepo
}

func (m *MockUnitOfWork) LedgerRepository() LedgerRepository {
	return m.ledgerRepo
}

func (m *MockUnitOfWork) SweepRunRepository() SweepRunRepository {
	return m.sweepRunRepo
}

func (m *MockUnitOfWork) SettingsRepository() SettingsRepository {
	return m.settingsRepo
}

func (m *MockUnitOfWork) EventBus() EventPublisher {
	return m.eventBus
}

// MockUnitOfWorkFactory is a mock implementation of UnitOfWorkFactory
type MockUnitOfWorkFactory struct {
	mock.Mock
}

func (m *MockUnitOfWorkFactory) Create() UnitOfWork {
	args := m.Called()
	return args.Get(0).(UnitOfWork)
}
