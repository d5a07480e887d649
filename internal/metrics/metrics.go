// Package metrics provides Prometheus metrics for the chatbot wizard.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WizardTransitions counts next/back calls by step, direction and result.
	WizardTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chatforge",
			Subsystem: "wizard",
			Name:      "transitions_total",
			Help:      "Total number of wizard transitions by step, direction and result",
		},
		[]string{"step", "direction", "result"},
	)

	// ChatbotsFinalized counts finalize calls: activated, noop or error.
	ChatbotsFinalized = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chatforge",
			Subsystem: "chatbots",
			Name:      "finalized_total",
			Help:      "Total number of finalize calls by result",
		},
		[]string{"result"},
	)

	UsageCounterFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "chatforge",
			Subsystem: "usage",
			Name:      "counter_failures_total",
			Help:      "Total number of chatbots_created increments that failed after retries",
		},
	)

	UsageReconcilePending = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "chatforge",
			Subsystem: "usage",
			Name:      "reconcile_pending",
			Help:      "Number of counter increments waiting for reconciliation",
		},
	)

	// StepPersistDuration tracks how long each step's store write takes.
	StepPersistDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "chatforge",
			Subsystem: "step",
			Name:      "persist_duration_seconds",
			Help:      "Duration of wizard step persistence in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"step"},
	)
)
