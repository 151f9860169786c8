package service

import (
	"context"
	"fmt"

	"stakeledger/config"
	"stakeledger/events"
	"stakeledger/models"

	log "github.com/sirupsen/logrus"
)

type adminService struct {
	uowFactory UnitOfWorkFactory
	cfg        *config.Config
}

// NewAdminService creates a new admin service
func NewAdminService(uowFactory UnitOfWorkFactory, cfg *config.Config) AdminService {
	return &adminService{
		uowFactory: uowFactory,
		cfg:        cfg,
	}
}

// SetRate updates the rate for one duration index. Existing stakes keep their
// snapshot rate; only stakes created afterwards see the new rate.
func (s *adminService) SetRate(ctx context.Context, callerID int64, durationIndex int, rateBps int64) error {
	if !s.cfg.IsAdmin(callerID) {
		return fmt.Errorf("account %d: %w", callerID, models.ErrPermissionDenied)
	}
	if rateBps < 0 {
		return fmt.Errorf("rate must be non-negative: %w", models.ErrInvalidArgument)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	option, err := uow.SettingsRepository().GetLockOption(ctx, durationIndex)
	if err != nil {
		return fmt.Errorf("failed to get lock option: %w", err)
	}
	if option == nil {
		return fmt.Errorf("duration index %d out of range: %w", durationIndex, models.ErrInvalidArgument)
	}

	if err := uow.SettingsRepository().UpdateRate(ctx, durationIndex, rateBps); err != nil {
		return fmt.Errorf("failed to update rate: %w", err)
	}

	uow.EventBus().Publish(events.RateChangedEvent{
		DurationIndex: durationIndex,
		DurationDays:  option.DurationDays,
		OldRateBps:    option.RateBps,
		NewRateBps:    rateBps,
	})

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"durationIndex": durationIndex,
		"durationDays":  option.DurationDays,
		"oldRateBps":    option.RateBps,
		"newRateBps":    rateBps,
	}).Info("Interest rate updated")

	return nil
}

// SetStakingEnabled toggles the gate consulted by stake creation
func (s *adminService) SetStakingEnabled(ctx context.Context, callerID int64, enabled bool) error {
	if !s.cfg.IsAdmin(callerID) {
		return fmt.Errorf("account %d: %w", callerID, models.ErrPermissionDenied)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if err := uow.SettingsRepository().SetStakingEnabled(ctx, enabled); err != nil {
		return fmt.Errorf("failed to set staking enabled: %w", err)
	}

	uow.EventBus().Publish(events.StakingToggledEvent{Enabled: enabled})

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.Infof("Staking enabled set to %t", enabled)

	return nil
}

// ListLockOptions returns the duration/rate table
func (s *adminService) ListLockOptions(ctx context.Context) ([]*models.LockOption, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	options, err := uow.SettingsRepository().ListLockOptions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list lock options: %w", err)
	}

	return options, nil
}

// ListAccounts returns every account for administrative inspection, admin only
func (s *adminService) ListAccounts(ctx context.Context, callerID int64) ([]*models.Account, error) {
	if !s.cfg.IsAdmin(callerID) {
		return nil, fmt.Errorf("account %d: %w", callerID, models.ErrPermissionDenied)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	accounts, err := uow.AccountRepository().GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}

	return accounts, nil
}
