package service

import (
	"context"
	"fmt"

	"stakeledger/config"
	"stakeledger/events"
	"stakeledger/metrics"
	"stakeledger/models"

	log "github.com/sirupsen/logrus"
)

type sweepService struct {
	uowFactory UnitOfWorkFactory
	transfer   TransferGateway
	clock      Clock
	cfg        *config.Config
}

// NewSweepService creates a new sweep service
func NewSweepService(uowFactory UnitOfWorkFactory, transfer TransferGateway, clock Clock, cfg *config.Config) SweepService {
	return &sweepService{
		uowFactory: uowFactory,
		transfer:   transfer,
		clock:      clock,
		cfg:        cfg,
	}
}

// SweepMatured releases every matured, unreleased stake exactly once. The
// whole sweep is one transaction: either every matured stake settles and the
// run is recorded, or nothing changes.
func (s *sweepService) SweepMatured(ctx context.Context, callerID int64) (*models.SweepResult, error) {
	if !s.cfg.IsAdmin(callerID) {
		return nil, fmt.Errorf("account %d: %w", callerID, models.ErrPermissionDenied)
	}

	timer := metrics.SweepTimer()
	defer timer.ObserveDuration()

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	now := s.clock.Now()

	// Matured stakes are selected straight from the live stake records, so a
	// stake released individually between sweeps simply doesn't appear here.
	matured, err := uow.StakeRepository().GetMaturedUnreleased(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("failed to find matured stakes: %w", err)
	}

	run := &models.SweepRun{RanAt: now}
	result := &models.SweepResult{Run: run}
	accountsSeen := make(map[int64]struct{})

	for _, stake := range matured {
		settled, err := settleStake(ctx, uow, s.transfer, stake, now)
		if err != nil {
			return nil, fmt.Errorf("failed to settle stake %d/%d: %w", stake.AccountID, stake.Position, err)
		}

		run.StakesReleased++
		run.TotalPrincipal += settled.Principal
		run.TotalEarnings += settled.Earnings
		accountsSeen[stake.AccountID] = struct{}{}
		result.Released = append(result.Released, settled)

		uow.EventBus().Publish(events.StakeSweptEvent{
			AccountID: stake.AccountID,
			Position:  stake.Position,
			Amount:    settled.Principal,
			Earnings:  settled.Earnings,
		})
	}

	run.ExecutionSummary = map[string]any{
		"accounts_affected": len(accountsSeen),
		"as_of":             now.Format("2006-01-02 15:04:05"),
	}
	if err := uow.SweepRunRepository().Create(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to record sweep run: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	for range result.Released {
		metrics.StakesReleased.WithLabelValues("sweep").Inc()
	}
	metrics.EarningsPaid.Add(float64(run.TotalEarnings))

	log.WithFields(log.Fields{
		"stakesReleased": run.StakesReleased,
		"totalPrincipal": run.TotalPrincipal,
		"totalEarnings":  run.TotalEarnings,
	}).Info("Expiry sweep completed")

	return result, nil
}
