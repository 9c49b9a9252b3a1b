// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Guardlang Contributors

package eval

import (
	"net/url"
	"regexp"
	"time"

	"github.com/samber/oops"

	"github.com/guardlang/guardlang/pkg/query"
	"github.com/guardlang/guardlang/pkg/value"
)

// builtinNames is the closed set of functions callable from the rule
// language (spec §4.6).
var builtinNames = map[string]bool{
	"count": true, "url_decode": true, "json_parse": true, "regex_replace": true,
	"substring": true, "parse_epoch": true, "now": true, "key": true,
}

// callBuiltin dispatches a FunctionCall by name against its already-resolved
// argument result sets, returning a single literal result (spec §4.6: pure
// functions over QueryResult[] producing a scalar or vector).
func (ev *evaluator) callBuiltin(name string, argSets [][]query.Result) (*value.Value, error) {
	switch name {
	case "count":
		return countBuiltin(argSets), nil

	case "url_decode":
		s, err := singleString(argSets, "url_decode")
		if err != nil {
			return nil, err
		}
		decoded, err := url.QueryUnescape(s)
		if err != nil {
			return nil, nil // invalid percent-encoding -> None (spec table)
		}
		return value.NewString(value.Path{}, decoded), nil

	case "json_parse":
		s, err := singleString(argSets, "json_parse")
		if err != nil {
			return nil, err
		}
		parsed, err := value.FromJSON([]byte(s))
		if err != nil {
			return nil, oops.Code("JsonError").Wrapf(err, "json_parse")
		}
		return parsed, nil

	case "regex_replace":
		return regexReplaceBuiltin(argSets)

	case "substring":
		return substringBuiltin(argSets)

	case "parse_epoch":
		s, err := singleString(argSets, "parse_epoch")
		if err != nil {
			return nil, err
		}
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return nil, oops.Code("FormatError").Wrapf(err, "parse_epoch")
		}
		return value.NewInt(value.Path{}, t.UTC().Unix()), nil

	case "now":
		return value.NewInt(value.Path{}, ev.ctx.clock.NowUnix()), nil

	case "key":
		if len(argSets) != 1 || len(argSets[0]) == 0 {
			return nil, newRetrievalError("key() requires a resolved argument")
		}
		vs := resolvedValues(argSets[0])
		if len(vs) > 1 {
			return nil, oops.Code(CodeMultipleValues).Errorf("key() requires a single value, query resolved %d", len(vs))
		}
		if len(vs) == 0 {
			return nil, newRetrievalError("key() argument did not resolve")
		}
		return value.NewString(value.Path{}, vs[0].LastSegment()), nil

	default:
		return nil, oops.Code(CodeMissingVariable).Errorf("unknown function %q", name)
	}
}

func firstValue(results []query.Result) *value.Value {
	for _, r := range results {
		if r.Val != nil {
			return r.Val
		}
	}
	return nil
}

// resolvedValues collects every concrete value in results, in order. A
// scalar-arg builtin whose query fans out to more than one value (e.g.
// url_decode(Resources.*)) is ambiguous rather than merely unresolved.
func resolvedValues(results []query.Result) []*value.Value {
	var vs []*value.Value
	for _, r := range results {
		if r.Val != nil {
			vs = append(vs, r.Val)
		}
	}
	return vs
}

func countBuiltin(argSets [][]query.Result) *value.Value {
	n := 0
	for _, set := range argSets {
		for _, r := range set {
			if r.Kind != query.Unresolved {
				n++
			}
		}
	}
	return value.NewInt(value.Path{}, int64(n))
}

func singleString(argSets [][]query.Result, fn string) (string, error) {
	if len(argSets) == 0 {
		return "", oops.Code(CodeMissingValue).Errorf("%s requires one argument", fn)
	}
	vs := resolvedValues(argSets[0])
	if len(vs) > 1 {
		return "", oops.Code(CodeMultipleValues).Errorf("%s requires a single value, query resolved %d", fn, len(vs))
	}
	if len(vs) == 0 || vs[0].Kind != value.KindString {
		return "", oops.Code(CodeMissingValue).Errorf("%s requires a resolved string argument", fn)
	}
	return vs[0].Str, nil
}

func regexReplaceBuiltin(argSets [][]query.Result) (*value.Value, error) {
	if len(argSets) != 3 {
		return nil, oops.Code(CodeMissingValue).Errorf("regex_replace requires (string, pattern, template)")
	}
	subject, err := singleString(argSets[:1], "regex_replace")
	if err != nil {
		return nil, err
	}
	patternVal := firstValue(argSets[1])
	templateVal := firstValue(argSets[2])
	if patternVal == nil || templateVal == nil {
		return nil, oops.Code(CodeMissingValue).Errorf("regex_replace requires resolved pattern and template")
	}
	pattern := patternVal.Str
	if patternVal.Kind == value.KindRegex {
		pattern = patternVal.RegexSrc
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, oops.Code(CodeRegexError).Wrapf(err, "regex_replace pattern %q", pattern)
	}
	return value.NewString(value.Path{}, re.ReplaceAllString(subject, templateVal.Str)), nil
}

func substringBuiltin(argSets [][]query.Result) (*value.Value, error) {
	if len(argSets) != 3 {
		return nil, oops.Code(CodeMissingValue).Errorf("substring requires (string, start, end)")
	}
	subject, err := singleString(argSets[:1], "substring")
	if err != nil {
		return nil, err
	}
	startVal := firstValue(argSets[1])
	endVal := firstValue(argSets[2])
	if startVal == nil || endVal == nil {
		return nil, oops.Code(CodeMissingValue).Errorf("substring requires resolved start/end")
	}
	runes := []rune(subject)
	start := clampIndex(int(startVal.Int), len(runes))
	end := clampIndex(int(endVal.Int), len(runes))
	if start > end {
		start = end
	}
	return value.NewString(value.Path{}, string(runes[start:end])), nil
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i > n {
		return n
	}
	return i
}
