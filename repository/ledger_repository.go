package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"stakeledger/database"
	"stakeledger/models"
)

// LedgerRepository implements the LedgerRepository interface
type LedgerRepository struct {
	q queryable
}

// NewLedgerRepository creates a new ledger repository
func NewLedgerRepository(db *database.DB) *LedgerRepository {
	return &LedgerRepository{q: db.Pool}
}

// newLedgerRepositoryWithTx creates a new ledger repository with a transaction
func newLedgerRepositoryWithTx(tx queryable) *LedgerRepository {
	return &LedgerRepository{q: tx}
}

// Record creates a new ledger entry
func (r *LedgerRepository) Record(ctx context.Context, entry *models.LedgerEntry) error {
	metadataJSON, err := json.Marshal(entry.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	query := `
		INSERT INTO ledger_entries
			(account_id, balance_before, balance_after, change_amount,
			 entry_type, metadata, related_id, related_type)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`

	err = r.q.QueryRow(ctx, query,
		entry.AccountID,
		entry.BalanceBefore,
		entry.BalanceAfter,
		entry.ChangeAmount,
		entry.EntryType,
		metadataJSON,
		entry.RelatedID,
		entry.RelatedType,
	).Scan(&entry.ID, &entry.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to record ledger entry for account %d: %w", entry.AccountID, err)
	}

	return nil
}

// GetByAccount returns ledger entries for an account, newest first
func (r *LedgerRepository) GetByAccount(ctx context.Context, accountID int64, limit int) ([]*models.LedgerEntry, error) {
	query := `
		SELECT id, account_id, balance_before, balance_after, change_amount,
		       entry_type, metadata, related_id, related_type, created_at
		FROM ledger_entries
		WHERE account_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.q.Query(ctx, query, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger entries for account %d: %w", accountID, err)
	}
	defer rows.Close()

	return collectLedgerEntries(rows)
}

// GetByDateRange returns ledger entries within a date range
func (r *LedgerRepository) GetByDateRange(ctx context.Context, accountID int64, from, to time.Time) ([]*models.LedgerEntry, error) {
	query := `
		SELECT id, account_id, balance_before, balance_after, change_amount,
		       entry_type, metadata, related_id, related_type, created_at
		FROM ledger_entries
		WHERE account_id = $1 AND created_at >= $2 AND created_at < $3
		ORDER BY created_at
	`

	rows, err := r.q.Query(ctx, query, accountID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger entries for account %d: %w", accountID, err)
	}
	defer rows.Close()

	return collectLedgerEntries(rows)
}

func collectLedgerEntries(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]*models.LedgerEntry, error) {
	var entries []*models.LedgerEntry
	for rows.Next() {
		var entry models.LedgerEntry
		var metadataJSON []byte
		err := rows.Scan(
			&entry.ID,
			&entry.AccountID,
			&entry.BalanceBefore,
			&entry.BalanceAfter,
			&entry.ChangeAmount,
			&entry.EntryType,
			&metadataJSON,
			&entry.RelatedID,
			&entry.RelatedType,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}

		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &entry.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
			}
		}
		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ledger entries: %w", err)
	}

	return entries, nil
}
