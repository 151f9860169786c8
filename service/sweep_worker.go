package service

import (
	"context"
	"errors"
	"time"

	"stakeledger/models"

	log "github.com/sirupsen/logrus"
)

// SweepWorker periodically runs the batch expiry sweep on behalf of a
// configured administrative account.
type SweepWorker struct {
	sweeper  SweepService
	callerID int64
	interval time.Duration
}

// NewSweepWorker creates a new sweep worker
func NewSweepWorker(sweeper SweepService, callerID int64, interval time.Duration) *SweepWorker {
	return &SweepWorker{
		sweeper:  sweeper,
		callerID: callerID,
		interval: interval,
	}
}

// Start begins the sweep loop and returns a stop function
func (w *SweepWorker) Start(ctx context.Context) func() {
	stopChan := make(chan struct{})

	go func() {
		log.Infof("Sweep worker started, interval %v", w.interval)

		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				log.Info("Sweep worker shutting down (context cancelled)...")
				return
			case <-stopChan:
				log.Info("Sweep worker shutting down (stop requested)...")
				return
			case <-ticker.C:
				w.runOnce(ctx)
			}
		}
	}()

	return func() {
		close(stopChan)
	}
}

func (w *SweepWorker) runOnce(ctx context.Context) {
	result, err := w.sweeper.SweepMatured(ctx, w.callerID)
	if err != nil {
		if errors.Is(err, models.ErrPermissionDenied) {
			log.Errorf("Sweep worker caller %d is not an administrator", w.callerID)
			return
		}
		log.Errorf("Error running expiry sweep: %v", err)
		return
	}

	if result.Run.StakesReleased > 0 {
		log.Infof("Sweep worker released %d matured stakes", result.Run.StakesReleased)
	}
}
