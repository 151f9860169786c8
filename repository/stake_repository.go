package repository

import (
	"context"
	"fmt"
	"time"

	"stakeledger/database"
	"stakeledger/models"

	"github.com/jackc/pgx/v5"
)

// StakeRepository implements the StakeRepository interface
type StakeRepository struct {
	q queryable
}

// NewStakeRepository creates a new stake repository
func NewStakeRepository(db *database.DB) *StakeRepository {
	return &StakeRepository{q: db.Pool}
}

// newStakeRepositoryWithTx creates a new stake repository with a transaction
func newStakeRepositoryWithTx(tx queryable) *StakeRepository {
	return &StakeRepository{q: tx}
}

const stakeColumns = `
	id, account_id, position, amount, duration_index, duration_days,
	rate_bps, staked_at, matures_at, released, earnings, released_at, created_at
`

func scanStake(row pgx.Row) (*models.Stake, error) {
	var stake models.Stake
	err := row.Scan(
		&stake.ID,
		&stake.AccountID,
		&stake.Position,
		&stake.Amount,
		&stake.DurationIndex,
		&stake.DurationDays,
		&stake.RateBps,
		&stake.StakedAt,
		&stake.MaturesAt,
		&stake.Released,
		&stake.Earnings,
		&stake.ReleasedAt,
		&stake.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &stake, nil
}

// Create appends a stake at the owner's next position. Positions start at 0
// and are never reused; the unique constraint on (account_id, position)
// rejects concurrent appends so the caller's transaction retries or fails.
func (r *StakeRepository) Create(ctx context.Context, stake *models.Stake) error {
	query := `
		INSERT INTO stakes
			(account_id, position, amount, duration_index, duration_days,
			 rate_bps, staked_at, matures_at)
		VALUES
			($1,
			 COALESCE((SELECT MAX(position) + 1 FROM stakes WHERE account_id = $1), 0),
			 $2, $3, $4, $5, $6, $7)
		RETURNING id, position, released, earnings, created_at
	`

	err := r.q.QueryRow(ctx, query,
		stake.AccountID,
		stake.Amount,
		stake.DurationIndex,
		stake.DurationDays,
		stake.RateBps,
		stake.StakedAt,
		stake.MaturesAt,
	).Scan(&stake.ID, &stake.Position, &stake.Released, &stake.Earnings, &stake.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create stake for account %d: %w", stake.AccountID, err)
	}

	return nil
}

// GetByAccountAndPosition retrieves one stake by its composite identifier
func (r *StakeRepository) GetByAccountAndPosition(ctx context.Context, accountID, position int64) (*models.Stake, error) {
	query := `
		SELECT ` + stakeColumns + `
		FROM stakes
		WHERE account_id = $1 AND position = $2
	`

	stake, err := scanStake(r.q.QueryRow(ctx, query, accountID, position))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get stake %d/%d: %w", accountID, position, err)
	}

	return stake, nil
}

// GetByAccount returns all stakes for an account in position order
func (r *StakeRepository) GetByAccount(ctx context.Context, accountID int64) ([]*models.Stake, error) {
	query := `
		SELECT ` + stakeColumns + `
		FROM stakes
		WHERE account_id = $1
		ORDER BY position
	`

	rows, err := r.q.Query(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to get stakes for account %d: %w", accountID, err)
	}
	defer rows.Close()

	return collectStakes(rows)
}

// MarkReleased flips the released flag exactly once. The released = FALSE
// guard is what makes the dual release surfaces (unstake and sweep) safe:
// whichever path gets there second sees zero rows affected.
func (r *StakeRepository) MarkReleased(ctx context.Context, stakeID int64, earnings int64, releasedAt time.Time) (bool, error) {
	query := `
		UPDATE stakes
		SET released = TRUE, earnings = $2, released_at = $3
		WHERE id = $1 AND released = FALSE
	`

	result, err := r.q.Exec(ctx, query, stakeID, earnings, releasedAt)
	if err != nil {
		return false, fmt.Errorf("failed to mark stake %d released: %w", stakeID, err)
	}

	return result.RowsAffected() == 1, nil
}

// GetMaturedUnreleased returns all unreleased stakes with maturity at or
// before the given time, across all accounts. Stakes are addressed by their
// own row identity, never by a per-duration bucket position.
func (r *StakeRepository) GetMaturedUnreleased(ctx context.Context, asOf time.Time) ([]*models.Stake, error) {
	query := `
		SELECT ` + stakeColumns + `
		FROM stakes
		WHERE NOT released AND matures_at <= $1
		ORDER BY matures_at, id
	`

	rows, err := r.q.Query(ctx, query, asOf)
	if err != nil {
		return nil, fmt.Errorf("failed to get matured stakes: %w", err)
	}
	defer rows.Close()

	return collectStakes(rows)
}

func collectStakes(rows pgx.Rows) ([]*models.Stake, error) {
	var stakes []*models.Stake
	for rows.Next() {
		stake, err := scanStake(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan stake: %w", err)
		}
		stakes = append(stakes, stake)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate stakes: %w", err)
	}

	return stakes, nil
}
