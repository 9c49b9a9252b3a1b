// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Guardlang Contributors

// Package clock supplies run identifiers and a retrying adapter for
// external time sources, for hosts that inject a Clock backed by something
// other than the local monotonic clock (spec §2A "IDs", "go-retry").
package clock

import (
	"context"
	"math/rand"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/sethvargo/go-retry"
)

// NewRunID mints a ULID for a single evaluate() call. guard.Evaluate puts it
// on its trace span, its debug log line and any error it returns; it is not
// stored in the EventRecord or in metric labels.
func NewRunID() string {
	entropy := ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// Source is anything capable of producing the current Unix time, possibly
// by consulting an external service (e.g. an NTP-backed appliance).
type Source interface {
	Now(ctx context.Context) (time.Time, error)
}

// RetryingSource wraps a Source that can be transiently unavailable,
// retrying with bounded exponential backoff rather than failing the whole
// evaluation on a single hiccup.
type RetryingSource struct {
	inner Source
}

// NewRetryingSource builds a RetryingSource around inner.
func NewRetryingSource(inner Source) *RetryingSource {
	return &RetryingSource{inner: inner}
}

// Now retries the wrapped Source with a fresh 50ms-base exponential backoff
// per call, capped at 5 retries (6 calls in all). The only error
// NewExponential returns is for a non-positive base duration, which the
// fixed literal below never triggers.
func (r *RetryingSource) Now(ctx context.Context) (time.Time, error) {
	b, _ := retry.NewExponential(50 * time.Millisecond)
	b = retry.WithMaxRetries(5, b)
	var t time.Time
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		var innerErr error
		t, innerErr = r.inner.Now(ctx)
		if innerErr != nil {
			return retry.RetryableError(innerErr)
		}
		return nil
	})
	return t, err
}

// FuncClock adapts any func() int64 to the eval.Clock shape (a single
// NowUnix() int64 method) by structural typing, with no import of pkg/eval
// required.
type FuncClock func() int64

// NowUnix implements eval.Clock.
func (f FuncClock) NowUnix() int64 { return f() }

// AsEvalClock adapts a RetryingSource to the eval.Clock shape by falling
// back to the local wall clock if every retry attempt against the external
// source fails. The fallback trades away the `now()` built-in's fidelity to
// the external source for the evaluator's no-mid-evaluation-failure
// guarantee (spec §5).
func (r *RetryingSource) AsEvalClock(ctx context.Context) FuncClock {
	return func() int64 {
		t, err := r.Now(ctx)
		if err != nil {
			return time.Now().UTC().Unix()
		}
		return t.UTC().Unix()
	}
}
