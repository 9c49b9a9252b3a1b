// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Guardlang Contributors

package clock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRunID_ProducesDistinctValidULIDs(t *testing.T) {
	a := NewRunID()
	b := NewRunID()
	assert.Len(t, a, 26)
	assert.NotEqual(t, a, b)
}

type flakySource struct {
	failuresLeft int
}

func (f *flakySource) Now(ctx context.Context) (time.Time, error) {
	if f.failuresLeft > 0 {
		f.failuresLeft--
		return time.Time{}, errors.New("source unavailable")
	}
	return time.Unix(1000, 0), nil
}

func TestRetryingSource_RecoversAfterTransientFailures(t *testing.T) {
	src := NewRetryingSource(&flakySource{failuresLeft: 2})
	got, err := src.Now(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1000), got.Unix())
}

func TestFuncClock_ImplementsNowUnix(t *testing.T) {
	var c FuncClock = func() int64 { return 42 }
	assert.Equal(t, int64(42), c.NowUnix())
}
