package service

import (
	"context"
	"time"

	"stakeledger/events"
	"stakeledger/models"
)

// AccountRepository defines the interface for account data access
type AccountRepository interface {
	// GetByID retrieves an account by its ID
	GetByID(ctx context.Context, accountID int64) (*models.Account, error)

	// GetOrCreate retrieves an account, creating it with zero balances if absent
	GetOrCreate(ctx context.Context, accountID int64) (*models.Account, error)

	// LockBalance adds staked principal to an account's locked balance
	LockBalance(ctx context.Context, accountID int64, amount int64) error

	// Settle atomically removes released principal from the locked balance and
	// credits earnings, failing if the locked balance would go negative
	Settle(ctx context.Context, accountID int64, principal, earnings int64) error

	// GetTotals returns the aggregate ledger figures
	GetTotals(ctx context.Context) (*models.LedgerTotals, error)

	// GetAll returns all accounts
	GetAll(ctx context.Context) ([]*models.Account, error)
}

// StakeRepository defines the interface for stake data access
type StakeRepository interface {
	// Create appends a stake at the owner's next position
	Create(ctx context.Context, stake *models.Stake) error

	// GetByAccountAndPosition retrieves one stake by its composite identifier
	GetByAccountAndPosition(ctx context.Context, accountID, position int64) (*models.Stake, error)

	// GetByAccount returns all stakes for an account in position order
	GetByAccount(ctx context.Context, accountID int64) ([]*models.Stake, error)

	// MarkReleased flips the released flag exactly once, recording earnings
	// and the release time. Returns false if the stake was already released.
	MarkReleased(ctx context.Context, stakeID int64, earnings int64, releasedAt time.Time) (bool, error)

	// GetMaturedUnreleased returns all unreleased stakes with maturity at or
	// before the given time, across all accounts
	GetMaturedUnreleased(ctx context.Context, asOf time.Time) ([]*models.Stake, error)
}

// LedgerRepository defines the interface for balance change auditing
type LedgerRepository interface {
	// Record creates a new ledger entry
	Record(ctx context.Context, entry *models.LedgerEntry) error

	// GetByAccount returns ledger entries for an account, newest first
	GetByAccount(ctx context.Context, accountID int64, limit int) ([]*models.LedgerEntry, error)

	// GetByDateRange returns ledger entries within a date range
	GetByDateRange(ctx context.Context, accountID int64, from, to time.Time) ([]*models.LedgerEntry, error)
}

// SweepRunRepository defines the interface for sweep run records
type SweepRunRepository interface {
	// Create creates a new sweep run record
	Create(ctx context.Context, run *models.SweepRun) error

	// GetLatest returns the most recent sweep run
	GetLatest(ctx context.Context) (*models.SweepRun, error)
}

// SettingsRepository defines the interface for the duration/rate table and
// the staking enable gate
type SettingsRepository interface {
	// GetSettings retrieves the system settings row
	GetSettings(ctx context.Context) (*models.SystemSettings, error)

	// SetStakingEnabled toggles the staking gate
	SetStakingEnabled(ctx context.Context, enabled bool) error

	// ListLockOptions returns the duration/rate table ordered by index
	ListLockOptions(ctx context.Context) ([]*models.LockOption, error)

	// GetLockOption retrieves one duration/rate row by index
	GetLockOption(ctx context.Context, durationIndex int) (*models.LockOption, error)

	// UpdateRate mutates the rate for one duration, leaving the duration
	// value and all other rates untouched
	UpdateRate(ctx context.Context, durationIndex int, rateBps int64) error
}

// TransferGateway is the external value-transfer collaborator. Both calls are
// made inside the unit of work; a failure aborts the whole operation.
type TransferGateway interface {
	// TransferIn pulls amount from the account into custody
	TransferIn(ctx context.Context, accountID int64, amount int64) error

	// TransferOut pays amount out to the account
	TransferOut(ctx context.Context, accountID int64, amount int64) error
}

// Clock supplies the current time. Production uses the system clock; tests
// substitute a fake to drive maturity.
type Clock interface {
	Now() time.Time
}

// StakingService defines the interface for the stake lifecycle engine
type StakingService interface {
	// Stake creates a new time-locked deposit for the account
	Stake(ctx context.Context, accountID int64, durationIndex int, amount int64) (*models.Stake, error)

	// Unstake releases a matured stake, paying out principal plus earnings
	Unstake(ctx context.Context, accountID int64, position int64) (*models.UnstakeResult, error)

	// GetStake returns one stake by its owner-scoped position
	GetStake(ctx context.Context, accountID int64, position int64) (*models.Stake, error)

	// GetStakes returns all stakes for an account in position order
	GetStakes(ctx context.Context, accountID int64) ([]*models.Stake, error)

	// GetAccount returns the account's locked balance and cumulative earnings
	GetAccount(ctx context.Context, accountID int64) (*models.Account, error)

	// ProjectedEarnings returns the earnings a stake has or will accrue over
	// its full lock at its snapshot rate
	ProjectedEarnings(ctx context.Context, accountID int64, position int64) (int64, error)

	// GetTotals returns the aggregate ledger figures
	GetTotals(ctx context.Context) (*models.LedgerTotals, error)
}

// SweepService defines the interface for the administrative batch expiry sweep
type SweepService interface {
	// SweepMatured releases every matured, unreleased stake exactly once
	SweepMatured(ctx context.Context, callerID int64) (*models.SweepResult, error)
}

// AdminService defines the interface for administrative configuration
type AdminService interface {
	// SetRate updates the rate for one duration index
	SetRate(ctx context.Context, callerID int64, durationIndex int, rateBps int64) error

	// SetStakingEnabled toggles the gate consulted by stake creation
	SetStakingEnabled(ctx context.Context, callerID int64, enabled bool) error

	// ListLockOptions returns the duration/rate table
	ListLockOptions(ctx context.Context) ([]*models.LockOption, error)

	// ListAccounts returns every account, admin only
	ListAccounts(ctx context.Context, callerID int64) ([]*models.Account, error)
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(event events.Event)
}

// UnitOfWork defines the interface for transactional repository operations
type UnitOfWork interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) error

	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Repository getters
	AccountRepository() AccountRepository
	StakeRepository() StakeRepository
	LedgerRepository() LedgerRepository
	SweepRunRepository() SweepRunRepository
	SettingsRepository() SettingsRepository
	EventBus() EventPublisher
}

// UnitOfWorkFactory defines the interface for creating UnitOfWork instances
type UnitOfWorkFactory interface {
	// Create creates a new UnitOfWork instance
	Create() UnitOfWork
}
