// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Guardlang Contributors

package eval

import "time"

// Clock supplies the current time to the `now` built-in. Injected at
// evaluator construction so tests can stub a deterministic value (spec §9:
// "introduce a clock capability").
type Clock interface {
	NowUnix() int64
}

// systemClock is the default Clock, backed by the wall clock.
type systemClock struct{}

func (systemClock) NowUnix() int64 { return time.Now().UTC().Unix() }

// FixedClock is a deterministic Clock for tests.
type FixedClock int64

func (c FixedClock) NowUnix() int64 { return int64(c) }
