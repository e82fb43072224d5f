package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type StakingMetrics struct {
	stakeMutations       *prometheus.CounterVec
	authorizationChanges *prometheus.CounterVec
	slashEnqueued        prometheus.Counter
	slashProcessed       prometheus.Counter
	discrepancies        *prometheus.CounterVec
	queueDepth           prometheus.Gauge
	treasuryBalance      prometheus.Gauge
}

var (
	stakingOnce     sync.Once
	stakingRegistry *StakingMetrics
)

func Staking() *StakingMetrics {
	stakingOnce.Do(func() {
		stakingRegistry = &StakingMetrics{
			stakeMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "staking_stake_mutations_total",
				Help: "Count of stake balance mutations by operation and source.",
			}, []string{"op", "source"}),
			authorizationChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "staking_authorization_changes_total",
				Help: "Count of authorization table changes by kind.",
			}, []string{"kind"}),
			slashEnqueued: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "staking_slash_enqueued_total",
				Help: "Count of slashing queue entries appended.",
			}),
			slashProcessed: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "staking_slash_processed_total",
				Help: "Count of slashing queue entries drained.",
			}),
			discrepancies: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "staking_discrepancies_total",
				Help: "Count of resolved legacy stake discrepancies by source.",
			}, []string{"source"}),
			queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "staking_slash_queue_depth",
				Help: "Number of unprocessed slashing queue entries.",
			}),
			treasuryBalance: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "staking_notifier_treasury",
				Help: "Current notifier treasury balance.",
			}),
		}
		prometheus.MustRegister(
			stakingRegistry.stakeMutations,
			stakingRegistry.authorizationChanges,
			stakingRegistry.slashEnqueued,
			stakingRegistry.slashProcessed,
			stakingRegistry.discrepancies,
			stakingRegistry.queueDepth,
			stakingRegistry.treasuryBalance,
		)
	})
	return stakingRegistry
}

func (m *StakingMetrics) IncStakeMutation(op, source string) {
	if m == nil {
		return
	}
	m.stakeMutations.WithLabelValues(op, source).Inc()
}

func (m *StakingMetrics) IncAuthorizationChange(kind string) {
	if m == nil {
		return
	}
	m.authorizationChanges.WithLabelValues(kind).Inc()
}

func (m *StakingMetrics) IncSlashEnqueued(n int) {
	if m == nil {
		return
	}
	m.slashEnqueued.Add(float64(n))
}

func (m *StakingMetrics) IncSlashProcessed(n int) {
	if m == nil {
		return
	}
	m.slashProcessed.Add(float64(n))
}

func (m *StakingMetrics) IncDiscrepancy(source string) {
	if m == nil {
		return
	}
	m.discrepancies.WithLabelValues(source).Inc()
}

func (m *StakingMetrics) SetQueueDepth(depth float64) {
	if m == nil {
		return
	}
	m.queueDepth.Set(depth)
}

func (m *StakingMetrics) SetTreasuryBalance(balance float64) {
	if m == nil {
		return
	}
	m.treasuryBalance.Set(balance)
}
