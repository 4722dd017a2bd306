package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Bridge flow metrics
	BridgeAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zaunch_bridge_attempts_total",
			Help: "Total number of bridge attempts by final state",
		},
		[]string{"dst_eid", "state"},
	)

	BridgeStageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "zaunch_bridge_stage_duration_seconds",
			Help:    "Time spent in each bridge stage",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"stage"},
	)

	TicketsLockedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "zaunch_tickets_locked_total",
			Help: "Total number of tickets locked",
		},
	)

	LockedAmount = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "zaunch_locked_amount_base_units",
			Help:    "Token amount locked per ticket, in base units",
			Buckets: prometheus.ExponentialBuckets(1e6, 10, 8),
		},
	)

	// Resolution metrics
	ResolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zaunch_resolutions_total",
			Help: "Total number of send-path account resolutions",
		},
		[]string{"status"},
	)

	ResolvedAccountCount = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "zaunch_resolved_account_count",
			Help:    "Number of accounts in a resolved send path",
			Buckets: []float64{12, 22, 26, 30, 34, 38, 42, 50},
		},
	)

	// Vault metrics
	VaultInitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zaunch_vault_inits_total",
			Help: "Total number of vault initializations",
		},
		[]string{"outcome"},
	)

	// Ledger metrics
	SubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zaunch_submissions_total",
			Help: "Total number of transaction submissions",
		},
		[]string{"operation", "status"},
	)
)
