// Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
// See LICENSE for license information.

// Package metrics exposes the prometheus counters and gauges shared across
// all five pipeline stages, following the same Namespace/Subsystem/Name
// convention as the jobs package's execution metrics. Because each stage
// runs as a short-lived batch invocation rather than a long-running
// server, metrics are additionally written to a node-exporter textfile
// collector directory via WriteTextfile instead of being scraped directly.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// StageExecutionTotal counts invocations of each pipeline stage.
	StageExecutionTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "exception_scheduler",
			Name:      "stage_execution_total",
			Help:      "Total number of pipeline stage executions",
		},
		[]string{"stage"},
	)

	// StageExecutionFailures counts failed invocations of each stage.
	StageExecutionFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "exception_scheduler",
			Name:      "stage_execution_failures_total",
			Help:      "Total number of failed pipeline stage executions",
		},
		[]string{"stage"},
	)

	// StageLastDurationSeconds records the wall-clock duration of the most
	// recent invocation of each stage.
	StageLastDurationSeconds = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "exception_scheduler",
			Name:      "stage_last_duration_seconds",
			Help:      "Duration in seconds of the most recent stage execution",
		},
		[]string{"stage"},
	)

	// ReconcilerActionsTotal counts scale operations issued by the
	// reconciler, by direction.
	ReconcilerActionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "exception_scheduler",
			Subsystem: "reconciler",
			Name:      "actions_total",
			Help:      "Total number of scale actions issued by the reconciler",
		},
		[]string{"direction"},
	)

	// InvalidRecordsTotal counts records rejected by the deduplicator, by
	// reason.
	InvalidRecordsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "exception_scheduler",
			Subsystem: "dedup",
			Name:      "invalid_records_total",
			Help:      "Total number of raw records rejected during deduplication",
		},
		[]string{"reason"},
	)
)

func init() {
	prometheus.MustRegister(
		StageExecutionTotal,
		StageExecutionFailures,
		StageLastDurationSeconds,
		ReconcilerActionsTotal,
		InvalidRecordsTotal,
	)
}
