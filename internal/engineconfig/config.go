// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Guardlang Contributors

// Package engineconfig loads the engine's own runtime tunables (recursion
// depth, clock source, default strictness) from a YAML file, independent of
// any host CLI's configuration.
package engineconfig

import (
	"errors"
	"os"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
)

// Config holds engine tunables loaded from a YAML file. No other package of
// this module reads it: pkg/lang and pkg/eval use their own constants and
// Options.
type Config struct {
	MaxNestingDepth    int    `koanf:"max_nesting_depth"`
	ClockSource        string `koanf:"clock_source"`
	StrictMissing      bool   `koanf:"strict_missing_default"`
	DefaultReportFormat string `koanf:"default_report_format"`
}

// Default returns the engine's built-in tunables, used when no config file
// is supplied.
func Default() Config {
	return Config{
		MaxNestingDepth:     32,
		ClockSource:         "system",
		StrictMissing:       false,
		DefaultReportFormat: "SingleLine",
	}
}

// Load reads path as YAML and overlays it onto Default().
func Load(path string) (Config, error) {
	cfg := Default()

	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, oops.Code("FileNotFoundError").Wrapf(err, "engine config %q not found", path)
		}
		return cfg, oops.Code("IoError").Wrapf(err, "loading engine config %q", path)
	}
	if err := k.Unmarshal("", &cfg); err != nil {
		return cfg, oops.Code("FormatError").Wrapf(err, "parsing engine config %q", path)
	}
	return cfg, nil
}
