// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Guardlang Contributors

package engineconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 32, cfg.MaxNestingDepth)
	assert.Equal(t, "system", cfg.ClockSource)
	assert.False(t, cfg.StrictMissing)
}

func TestLoad_OverlaysDefault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "engine.yaml")
	require.NoError(t, os.WriteFile(path, []byte("strict_missing_default: true\nmax_nesting_depth: 16\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.StrictMissing)
	assert.Equal(t, 16, cfg.MaxNestingDepth)
	assert.Equal(t, "system", cfg.ClockSource) // untouched default survives the overlay
}

func TestLoad_MissingFileErrors(t *testing.T) {
	_, err := Load("/nonexistent/engine.yaml")
	require.Error(t, err)
	oerr, ok := oops.AsOops(err)
	require.True(t, ok)
	assert.Equal(t, "FileNotFoundError", oerr.Code())
}
