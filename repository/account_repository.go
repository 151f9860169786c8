package repository

import (
	"context"
	"fmt"

	"stakeledger/database"
	"stakeledger/models"

	"github.com/jackc/pgx/v5"
)

// AccountRepository implements the AccountRepository interface
type AccountRepository struct {
	q queryable
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *database.DB) *AccountRepository {
	return &AccountRepository{q: db.Pool}
}

// newAccountRepositoryWithTx creates a new account repository with a transaction
func newAccountRepositoryWithTx(tx queryable) *AccountRepository {
	return &AccountRepository{q: tx}
}

// GetByID retrieves an account by its ID
func (r *AccountRepository) GetByID(ctx context.Context, accountID int64) (*models.Account, error) {
	query := `
		SELECT account_id, balance, earnings, created_at, updated_at
		FROM accounts
		WHERE account_id = $1
	`

	var account models.Account
	err := r.q.QueryRow(ctx, query, accountID).Scan(
		&account.AccountID,
		&account.Balance,
		&account.Earnings,
		&account.CreatedAt,
		&account.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account %d: %w", accountID, err)
	}

	return &account, nil
}

// GetOrCreate retrieves an account, creating it with zero balances if absent
func (r *AccountRepository) GetOrCreate(ctx context.Context, accountID int64) (*models.Account, error) {
	query := `
		INSERT INTO accounts (account_id)
		VALUES ($1)
		ON CONFLICT (account_id) DO UPDATE SET updated_at = accounts.updated_at
		RETURNING account_id, balance, earnings, created_at, updated_at
	`

	var account models.Account
	err := r.q.QueryRow(ctx, query, accountID).Scan(
		&account.AccountID,
		&account.Balance,
		&account.Earnings,
		&account.CreatedAt,
		&account.UpdatedAt,
	)

	if err != nil {
		return nil, fmt.Errorf("failed to get or create account %d: %w", accountID, err)
	}

	return &account, nil
}

// LockBalance adds staked principal to an account's locked balance
func (r *AccountRepository) LockBalance(ctx context.Context, accountID int64, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("lock amount must be positive: %w", models.ErrInvalidArgument)
	}

	query := `
		UPDATE accounts
		SET balance = balance + $1, updated_at = NOW()
		WHERE account_id = $2
	`

	result, err := r.q.Exec(ctx, query, amount, accountID)
	if err != nil {
		return fmt.Errorf("failed to lock balance for account %d: %w", accountID, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("account %d: %w", accountID, models.ErrAccountNotFound)
	}

	return nil
}

// Settle atomically removes released principal from the locked balance and
// credits earnings. The guard on balance keeps the ledger from going negative
// even if a release were attempted twice.
func (r *AccountRepository) Settle(ctx context.Context, accountID int64, principal, earnings int64) error {
	if principal <= 0 || earnings < 0 {
		return fmt.Errorf("invalid settlement amounts: %w", models.ErrInvalidArgument)
	}

	query := `
		UPDATE accounts
		SET balance = balance - $1, earnings = earnings + $2, updated_at = NOW()
		WHERE account_id = $3 AND balance >= $1
	`

	result, err := r.q.Exec(ctx, query, principal, earnings, accountID)
	if err != nil {
		return fmt.Errorf("failed to settle account %d: %w", accountID, err)
	}

	if result.RowsAffected() == 0 {
		account, err := r.GetByID(ctx, accountID)
		if err != nil {
			return fmt.Errorf("failed to check account: %w", err)
		}
		if account == nil {
			return fmt.Errorf("account %d: %w", accountID, models.ErrAccountNotFound)
		}
		return fmt.Errorf("account %d has %d locked, need %d: %w",
			accountID, account.Balance, principal, models.ErrInsufficientBalance)
	}

	return nil
}

// GetTotals returns the aggregate ledger figures
func (r *AccountRepository) GetTotals(ctx context.Context) (*models.LedgerTotals, error) {
	query := `
		SELECT
			COALESCE((SELECT SUM(balance) FROM accounts), 0) AS total_locked,
			COALESCE((SELECT SUM(amount) FROM stakes), 0) AS lifetime_staked,
			COALESCE((SELECT SUM(earnings) FROM accounts), 0) AS total_earnings
	`

	var totals models.LedgerTotals
	err := r.q.QueryRow(ctx, query).Scan(
		&totals.TotalLocked,
		&totals.LifetimeStaked,
		&totals.TotalEarnings,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger totals: %w", err)
	}

	return &totals, nil
}

// GetAll returns all accounts
func (r *AccountRepository) GetAll(ctx context.Context) ([]*models.Account, error) {
	query := `
		SELECT account_id, balance, earnings, created_at, updated_at
		FROM accounts
		ORDER BY created_at DESC
	`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get all accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*models.Account
	for rows.Next() {
		var account models.Account
		err := rows.Scan(
			&account.AccountID,
			&account.Balance,
			&account.Earnings,
			&account.CreatedAt,
			&account.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, &account)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate accounts: %w", err)
	}

	return accounts, nil
}
