// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Guardlang Contributors

// Package metrics exposes Prometheus instrumentation for parse and evaluate
// latency, mirroring the teacher's per-package metrics.go convention.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ParseDuration tracks ParseRules latency.
	ParseDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "guardlang_parse_duration_seconds",
		Help:    "Histogram of rule-file parse latency in seconds",
		Buckets: prometheus.DefBuckets,
	})

	// EvaluateDuration tracks Evaluate latency.
	EvaluateDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "guardlang_evaluate_duration_seconds",
		Help:    "Histogram of rule-file evaluation latency in seconds",
		Buckets: prometheus.DefBuckets,
	})

	// RuleEvaluations counts Evaluate calls by their aggregate status
	// (PASS/FAIL/SKIP), one increment per call rather than per rule.
	RuleEvaluations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "guardlang_rule_evaluations_total",
		Help: "Total number of rule evaluations by outcome",
	}, []string{"status"})

	// ClauseEvaluations counts clause-level evaluations by outcome, the
	// finest-grained unit of the EventRecord tree.
	ClauseEvaluations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "guardlang_clause_evaluations_total",
		Help: "Total number of clause evaluations by outcome",
	}, []string{"status"})

	// RetrievalErrors counts Evaluate calls that failed with a retrieval-class
	// error (any code eval.IsRetrievalError accepts, such as a missing variable
	// or rule reference), labelled by that code.
	RetrievalErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "guardlang_retrieval_errors_total",
		Help: "Total number of hard retrieval errors during evaluation",
	}, []string{"code"})
)

// ObserveParse records one ParseRules call's wall-clock duration.
func ObserveParse(d time.Duration) {
	ParseDuration.Observe(d.Seconds())
}

// ObserveEvaluate records one Evaluate call's wall-clock duration and
// increments RuleEvaluations once under the call's aggregate status label.
func ObserveEvaluate(d time.Duration, statusLabel string) {
	EvaluateDuration.Observe(d.Seconds())
	RuleEvaluations.WithLabelValues(statusLabel).Inc()
}
