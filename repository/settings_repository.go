package repository

import (
	"context"
	"fmt"

	"stakeledger/database"
	"stakeledger/models"

	"github.com/jackc/pgx/v5"
)

// SettingsRepository implements the SettingsRepository interface
type SettingsRepository struct {
	q queryable
}

// NewSettingsRepository creates a new settings repository
func NewSettingsRepository(db *database.DB) *SettingsRepository {
	return &SettingsRepository{q: db.Pool}
}

// newSettingsRepositoryWithTx creates a new settings repository with a transaction
func newSettingsRepositoryWithTx(tx queryable) *SettingsRepository {
	return &SettingsRepository{q: tx}
}

// GetSettings retrieves the system settings row
func (r *SettingsRepository) GetSettings(ctx context.Context) (*models.SystemSettings, error) {
	query := `
		SELECT staking_enabled, updated_at
		FROM system_settings
		WHERE id = 1
	`

	var settings models.SystemSettings
	err := r.q.QueryRow(ctx, query).Scan(&settings.StakingEnabled, &settings.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to get system settings: %w", err)
	}

	return &settings, nil
}

// SetStakingEnabled toggles the staking gate
func (r *SettingsRepository) SetStakingEnabled(ctx context.Context, enabled bool) error {
	query := `
		UPDATE system_settings
		SET staking_enabled = $1, updated_at = NOW()
		WHERE id = 1
	`

	if _, err := r.q.Exec(ctx, query, enabled); err != nil {
		return fmt.Errorf("failed to set staking enabled to %t: %w", enabled, err)
	}

	return nil
}

// ListLockOptions returns the duration/rate table ordered by index
func (r *SettingsRepository) ListLockOptions(ctx context.Context) ([]*models.LockOption, error) {
	query := `
		SELECT duration_index, duration_days, rate_bps, updated_at
		FROM lock_options
		ORDER BY duration_index
	`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list lock options: %w", err)
	}
	defer rows.Close()

	var options []*models.LockOption
	for rows.Next() {
		var option models.LockOption
		err := rows.Scan(
			&option.DurationIndex,
			&option.DurationDays,
			&option.RateBps,
			&option.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan lock option: %w", err)
		}
		options = append(options, &option)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate lock options: %w", err)
	}

	return options, nil
}

// GetLockOption retrieves one duration/rate row by index
func (r *SettingsRepository) GetLockOption(ctx context.Context, durationIndex int) (*models.LockOption, error) {
	query := `
		SELECT duration_index, duration_days, rate_bps, updated_at
		FROM lock_options
		WHERE duration_index = $1
	`

	var option models.LockOption
	err := r.q.QueryRow(ctx, query, durationIndex).Scan(
		&option.DurationIndex,
		&option.DurationDays,
		&option.RateBps,
		&option.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get lock option %d: %w", durationIndex, err)
	}

	return &option, nil
}

// UpdateRate mutates the rate for one duration. The duration value itself is
// fixed at initialization and is never touched.
func (r *SettingsRepository) UpdateRate(ctx context.Context, durationIndex int, rateBps int64) error {
	query := `
		UPDATE lock_options
		SET rate_bps = $1, updated_at = NOW()
		WHERE duration_index = $2
	`

	result, err := r.q.Exec(ctx, query, rateBps, durationIndex)
	if err != nil {
		return fmt.Errorf("failed to update rate for duration index %d: %w", durationIndex, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("duration index %d: %w", durationIndex, models.ErrInvalidArgument)
	}

	return nil
}
