package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"stakeledger/database"
	"stakeledger/models"

	"github.com/jackc/pgx/v5"
)

// SweepRunRepository implements the SweepRunRepository interface
type SweepRunRepository struct {
	q queryable
}

// NewSweepRunRepository creates a new sweep run repository
func NewSweepRunRepository(db *database.DB) *SweepRunRepository {
	return &SweepRunRepository{q: db.Pool}
}

// newSweepRunRepositoryWithTx creates a new sweep run repository with a transaction
func newSweepRunRepositoryWithTx(tx queryable) *SweepRunRepository {
	return &SweepRunRepository{q: tx}
}

// Create creates a new sweep run record
func (r *SweepRunRepository) Create(ctx context.Context, run *models.SweepRun) error {
	summaryJSON, err := json.Marshal(run.ExecutionSummary)
	if err != nil {
		return fmt.Errorf("failed to marshal execution summary: %w", err)
	}

	query := `
		INSERT INTO sweep_runs
			(ran_at, stakes_released, total_principal, total_earnings, execution_summary)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	err = r.q.QueryRow(ctx, query,
		run.RanAt,
		run.StakesReleased,
		run.TotalPrincipal,
		run.TotalEarnings,
		summaryJSON,
	).Scan(&run.ID, &run.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create sweep run: %w", err)
	}

	return nil
}

// GetLatest returns the most recent sweep run
func (r *SweepRunRepository) GetLatest(ctx context.Context) (*models.SweepRun, error) {
	query := `
		SELECT id, ran_at, stakes_released, total_principal, total_earnings,
		       execution_summary, created_at
		FROM sweep_runs
		ORDER BY ran_at DESC
		LIMIT 1
	`

	var run models.SweepRun
	var summaryJSON []byte

	err := r.q.QueryRow(ctx, query).Scan(
		&run.ID,
		&run.RanAt,
		&run.StakesReleased,
		&run.TotalPrincipal,
		&run.TotalEarnings,
		&summaryJSON,
		&run.CreatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest sweep run: %w", err)
	}

	if len(summaryJSON) > 0 {
		if err := json.Unmarshal(summaryJSON, &run.ExecutionSummary); err != nil {
			return nil, fmt.Errorf("failed to unmarshal execution summary: %w", err)
		}
	}

	return &run, nil
}
