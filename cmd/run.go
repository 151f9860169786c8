package cmd

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"stakeledger/config"
	"stakeledger/database"
	"stakeledger/events"
	"stakeledger/metrics"
	"stakeledger/repository"
	"stakeledger/service"
	"stakeledger/transfer"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

// Run initializes and starts the application
func Run(ctx context.Context) error {
	log.Info("Starting staking ledger...")

	cfg := config.Get()

	log.Info("Connecting to database...")
	db, err := database.NewConnection(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	eventBus := events.NewBus()
	subscribeEventLogging(eventBus)

	uowFactory := repository.NewUnitOfWorkFactory(db, eventBus)
	transferGateway := transfer.NewHTTPGateway(cfg.TransferServiceURL)
	sweepService := service.NewSweepService(uowFactory, transferGateway, service.SystemClock(), cfg)

	metrics.Register()
	metricsServer := &http.Server{Addr: cfg.MetricsAddr, Handler: promhttp.Handler()}
	go func() {
		log.Infof("Metrics listening on %s", cfg.MetricsAddr)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorf("Metrics server error: %v", err)
		}
	}()

	// The sweep worker needs an administrative identity to run under.
	var stopWorker func()
	if len(cfg.AdminAccountIDs) > 0 {
		worker := service.NewSweepWorker(
			sweepService,
			cfg.AdminAccountIDs[0],
			time.Duration(cfg.SweepIntervalMinutes)*time.Minute,
		)
		stopWorker = worker.Start(ctx)
	} else {
		log.Warn("No admin accounts configured; expiry sweep worker disabled")
	}

	log.Infof("Staking ledger is running in %s mode...", cfg.Environment)
	<-ctx.Done()

	log.Info("Shutting down...")

	if stopWorker != nil {
		stopWorker()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		log.Errorf("Error shutting down metrics server: %v", err)
	}

	log.Info("Closing database connection...")
	db.Close()

	return nil
}

// subscribeEventLogging wires the notification sink: every ledger event is
// logged as it flushes from committed transactions.
func subscribeEventLogging(bus *events.Bus) {
	bus.Subscribe(events.EventTypeStakeCreated, func(ctx context.Context, event events.Event) {
		e := event.(events.StakeCreatedEvent)
		log.WithFields(log.Fields{
			"accountID":    e.AccountID,
			"position":     e.Position,
			"amount":       e.Amount,
			"durationDays": e.DurationDays,
			"rateBps":      e.RateBps,
		}).Info("stake created")
	})
	bus.Subscribe(events.EventTypeStakeReleased, func(ctx context.Context, event events.Event) {
		e := event.(events.StakeReleasedEvent)
		log.WithFields(log.Fields{
			"accountID": e.AccountID,
			"position":  e.Position,
			"amount":    e.Amount,
			"earnings":  e.Earnings,
		}).Info("stake released")
	})
	bus.Subscribe(events.EventTypeStakeSwept, func(ctx context.Context, event events.Event) {
		e := event.(events.StakeSweptEvent)
		log.WithFields(log.Fields{
			"accountID": e.AccountID,
			"position":  e.Position,
			"amount":    e.Amount,
			"earnings":  e.Earnings,
		}).Info("stake swept")
	})
}
