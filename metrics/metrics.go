package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	StakesCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "stakeledger_stakes_created_total",
		Help: "Number of stakes created.",
	})

	StakesReleased = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stakeledger_stakes_released_total",
		Help: "Number of stakes released, by release path.",
	}, []string{"path"})

	AmountLocked = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "stakeledger_amount_locked_total",
		Help: "Total principal locked into stakes.",
	})

	EarningsPaid = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "stakeledger_earnings_paid_total",
		Help: "Total interest paid out on release.",
	})

	SweepDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "stakeledger_sweep_duration_seconds",
		Help:    "Duration of batch expiry sweeps.",
		Buckets: prometheus.DefBuckets,
	})

	TransferFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stakeledger_transfer_failures_total",
		Help: "Failed calls to the value-transfer service, by direction.",
	}, []string{"direction"})
)

// SweepTimer returns a timer that observes into SweepDuration when stopped
func SweepTimer() *prometheus.Timer {
	return prometheus.NewTimer(SweepDuration)
}

var registerOnce sync.Once

// Register registers all instruments with the default registry
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			StakesCreated,
			StakesReleased,
			AmountLocked,
			EarningsPaid,
			SweepDuration,
			TransferFailures,
		)
	})
}
