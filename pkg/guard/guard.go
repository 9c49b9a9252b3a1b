// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Guardlang Contributors

// Package guard is the library seam a hosting process (CLI, CI plugin,
// admission webhook) links against: parse rules, build a value tree,
// evaluate, serialize the trace (spec §6 "external interfaces").
package guard

import (
	"context"
	"log/slog"
	"time"

	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/guardlang/guardlang/internal/clock"
	"github.com/guardlang/guardlang/internal/metrics"
	"github.com/guardlang/guardlang/pkg/eval"
	"github.com/guardlang/guardlang/pkg/format"
	"github.com/guardlang/guardlang/pkg/lang"
	"github.com/guardlang/guardlang/pkg/value"
)

var tracer = otel.Tracer("guardlang/guard")

// ParseRules compiles rule-language source into a RulesFile AST.
func ParseRules(source, fileLabel string) (*lang.RulesFile, error) {
	start := time.Now()
	defer func() { metrics.ObserveParse(time.Since(start)) }()
	return lang.ParseRules(source, fileLabel)
}

// ValueFrom deserializes JSON or YAML document text into a PathAwareValue
// tree, sniffing the content the same way cfn-guard's loader does: a
// leading '{' or '[' is treated as JSON, anything else as YAML.
func ValueFrom(docText []byte) (*value.Value, error) {
	if looksLikeJSON(docText) {
		return value.FromJSON(docText)
	}
	return value.FromYAML(docText)
}

func looksLikeJSON(data []byte) bool {
	for _, b := range data {
		switch b {
		case ' ', '\t', '\n', '\r':
			continue
		case '{', '[':
			return true
		default:
			return false
		}
	}
	return false
}

// Evaluate runs rules against root, validating opts, tracing the call, and
// recording latency/outcome metrics around the pure pkg/eval call.
func Evaluate(ctx context.Context, rules *lang.RulesFile, root *value.Value, opts Options) (eval.Status, *eval.EventRecord, error) {
	if err := validateOptions(opts); err != nil {
		return eval.FAIL, nil, err
	}

	runID := clock.NewRunID()
	ctx, span := tracer.Start(ctx, "guard.evaluate",
		trace.WithAttributes(
			attribute.String("guardlang.run_id", runID),
			attribute.Bool("guardlang.strict_missing", opts.StrictMissing),
		),
	)
	defer span.End()

	slog.DebugContext(ctx, "evaluating rules file", "run_id", runID)

	start := time.Now()
	status, event, err := eval.Evaluate(ctx, rules, root, eval.Options{
		StrictMissing: opts.StrictMissing,
		Verbose:       opts.Verbose,
	})
	duration := time.Since(start)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if eval.IsRetrievalError(err) {
			metrics.RetrievalErrors.WithLabelValues(oopsCode(err)).Inc()
		}
		return status, event, oops.Wrapf(err, "evaluate run_id=%s", runID)
	}

	metrics.ObserveEvaluate(duration, status.String())
	countClauseEvaluations(event)
	span.SetAttributes(attribute.String("guardlang.status", status.String()))
	return status, event, nil
}

// countClauseEvaluations increments ClauseEvaluations once per KindClause
// node in the trace, labeled by that clause's own outcome — the
// finest-grained counter, distinct from RuleEvaluations, which counts one
// aggregate outcome per Evaluate call.
func countClauseEvaluations(event *eval.EventRecord) {
	if event == nil {
		return
	}
	if event.Kind == eval.KindClause {
		metrics.ClauseEvaluations.WithLabelValues(event.Status.String()).Inc()
	}
	for _, child := range event.Children {
		countClauseEvaluations(child)
	}
}

// oopsCode extracts an oops error code for metric labeling, falling back to
// "unknown" for an error that was not built with oops.Code(...).
func oopsCode(err error) string {
	if oerr, ok := oops.AsOops(err); ok && oerr.Code() != "" {
		return oerr.Code()
	}
	return "unknown"
}

// SerializeEvent renders an EventRecord tree in the requested report format.
func SerializeEvent(event *eval.EventRecord, f format.Format) ([]byte, error) {
	return format.SerializeEvent(event, f)
}
