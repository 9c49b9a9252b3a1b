// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Guardlang Contributors

// Package query implements the query resolver: given a root PathAwareValue
// and an AccessQuery AST, it returns the set of matching value references,
// each preserving provenance (spec §4.3). The resolver is pure and
// side-effect-free; it is defined only over pkg/value and pkg/lang.
package query

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/gobwas/glob"

	"github.com/guardlang/guardlang/pkg/lang"
	"github.com/guardlang/guardlang/pkg/value"
)

// Kind distinguishes the three forms a QueryResult can take (spec §4.3).
type Kind int

// Kind constants enumerate QueryResult variants.
const (
	Resolved Kind = iota
	LiteralResult
	Unresolved
)

// Result is one entry of a query resolution: a resolved document value, a
// literal (e.g. a RHS constant), or an unresolved path with the reason the
// traversal could not continue.
type Result struct {
	Kind   Kind
	Val    *value.Value
	Path   value.Path
	Reason string
}

// VarResolver looks up a bound variable's query result set. Implemented by
// the evaluator's scope stack; the resolver never constructs scopes itself
// (decouples pkg/query from pkg/eval — spec's "defined only over" chain).
type VarResolver interface {
	ResolveVariable(name string) ([]Result, bool)
}

// FilterEvaluator evaluates a Filter predicate block against a candidate
// element, returning whether the element passes. Supplied by the evaluator,
// since filter predicates are themselves clauses (spec §4.3 "Filter(block)
// ... the element is the root for inner queries").
type FilterEvaluator func(candidate *value.Value, filter *lang.ExprBlock, ctx *Context) (bool, error)

// Context carries the capabilities the resolver needs beyond the value tree
// itself: variable lookup, the current "this" binding inside a filter, and
// the filter-predicate callback.
type Context struct {
	Vars       VarResolver
	This       *value.Value
	EvalFilter FilterEvaluator
}

// WithThis returns a copy of ctx with This rebound, used when descending
// into a filter predicate.
func (c *Context) WithThis(v *value.Value) *Context {
	cp := *c
	cp.This = v
	return &cp
}

// Resolve walks an AccessQuery against base, returning every matching
// Result. It never returns a Go error for ordinary traversal misses (those
// become Unresolved entries per spec §4.3); a Go error is reserved for
// conditions the resolver cannot itself interpret as a clause outcome,
// such as an invalid regex pattern or a predicate evaluation failure.
func Resolve(base *value.Value, q *lang.AccessQuery, ctx *Context) ([]Result, error) {
	cur, err := resolveRoot(base, q, ctx)
	if err != nil {
		return nil, err
	}
	for _, part := range q.Parts {
		cur, err = applyPart(cur, part, ctx)
		if err != nil {
			return nil, err
		}
	}
	return cur, nil
}

func resolveRoot(base *value.Value, q *lang.AccessQuery, ctx *Context) ([]Result, error) {
	switch {
	case q.VarRef:
		if ctx == nil || ctx.Vars == nil {
			return []Result{{Kind: Unresolved, Reason: "missing variable: " + q.Root}}, nil
		}
		results, ok := ctx.Vars.ResolveVariable(q.Root)
		if !ok {
			return []Result{{Kind: Unresolved, Reason: "missing variable: " + q.Root}}, nil
		}
		return results, nil

	case q.Root == "this":
		if ctx == nil || ctx.This == nil {
			return []Result{{Kind: Unresolved, Reason: "no current element ('this') in scope"}}, nil
		}
		return []Result{{Kind: Resolved, Val: ctx.This, Path: ctx.This.Path}}, nil

	default:
		if base == nil {
			return []Result{{Kind: Unresolved, Reason: "missing property: " + q.Root}}, nil
		}
		if base.Kind != value.KindMap {
			return []Result{{Kind: Unresolved, Path: base.Path, Reason: "incompatible retrieval: root is not a map"}}, nil
		}
		child := base.Get(q.Root)
		if child == nil {
			return []Result{{Kind: Unresolved, Path: base.Path.Child(q.Root), Reason: "missing property: " + q.Root}}, nil
		}
		return []Result{{Kind: Resolved, Val: child, Path: child.Path}}, nil
	}
}

func applyPart(cur []Result, part *lang.QueryPart, ctx *Context) ([]Result, error) {
	// Filter is special: it consumes the whole current result set rather
	// than narrowing each entry independently (see applyFilter).
	if part.Bracket != nil && part.Bracket.Filter != nil {
		return applyFilter(cur, part.Bracket.Filter, ctx)
	}

	var next []Result
	for _, r := range cur {
		if r.Kind == Unresolved {
			next = append(next, r)
			continue
		}
		switch {
		case part.Key != "":
			next = append(next, applyKey(r.Val, part.Key)...)
		case part.WildcardDot:
			results, err := applyAll(r.Val, "wildcard")
			if err != nil {
				return nil, err
			}
			next = append(next, results...)
		case part.Bracket != nil:
			results, err := applyBracket(r.Val, part.Bracket, ctx)
			if err != nil {
				return nil, err
			}
			next = append(next, results...)
		}
	}
	return next, nil
}

func applyKey(v *value.Value, key string) []Result {
	if v.Kind != value.KindMap {
		return []Result{{Kind: Unresolved, Path: v.Path, Reason: "incompatible retrieval: key on non-map"}}
	}
	child := v.Get(key)
	if child == nil {
		return []Result{{Kind: Unresolved, Path: v.Path.Child(key), Reason: "missing property: " + key}}
	}
	return []Result{{Kind: Resolved, Val: child, Path: child.Path}}
}

// applyAll implements AllValues/AllIndices: on a map it returns all values
// in insertion order, on a list all elements in order; scalars fail.
func applyAll(v *value.Value, label string) ([]Result, error) {
	switch v.Kind {
	case value.KindMap:
		results := make([]Result, 0, len(v.MapKeys))
		for _, k := range v.MapKeys {
			child := v.MapVals[k]
			results = append(results, Result{Kind: Resolved, Val: child, Path: child.Path})
		}
		return results, nil
	case value.KindList:
		results := make([]Result, 0, len(v.List))
		for _, child := range v.List {
			results = append(results, Result{Kind: Resolved, Val: child, Path: child.Path})
		}
		return results, nil
	default:
		return []Result{{Kind: Unresolved, Path: v.Path, Reason: fmt.Sprintf("incompatible retrieval: %s on scalar", label)}}, nil
	}
}

func applyBracket(v *value.Value, b *lang.BracketSelector, ctx *Context) ([]Result, error) {
	switch {
	case b.AllIndices:
		return applyAll(v, "all-indices")

	case b.Index != nil:
		if v.Kind != value.KindList {
			return []Result{{Kind: Unresolved, Path: v.Path, Reason: "incompatible retrieval: index on non-list"}}, nil
		}
		idx := int(*b.Index)
		child := v.Index(idx)
		if child == nil {
			return []Result{{Kind: Unresolved, Path: v.Path, Reason: "index out of range"}}, nil
		}
		return []Result{{Kind: Resolved, Val: child, Path: child.Path}}, nil

	case b.Pattern != nil || b.PatternRe != nil:
		return applyMapKeyFilter(v, b)

	default:
		return nil, fmt.Errorf("malformed bracket selector")
	}
}

func applyMapKeyFilter(v *value.Value, b *lang.BracketSelector) ([]Result, error) {
	if v.Kind != value.KindMap {
		return []Result{{Kind: Unresolved, Path: v.Path, Reason: "incompatible retrieval: map-key filter on non-map"}}, nil
	}

	var re *regexp.Regexp
	var g glob.Glob
	var exact string
	switch {
	case b.PatternRe != nil:
		var err error
		re, err = regexp.Compile(b.RegexPattern())
		if err != nil {
			return nil, fmt.Errorf("compile map-key filter regex %q: %w", b.RegexPattern(), err)
		}
	case strings.ContainsAny(b.StringValue(), "*?["):
		// A quoted key pattern containing glob metacharacters is matched as
		// a glob (teacher's capability-grant convention: '.' as the segment
		// separator, '*' single-segment, '**' crosses separators) rather
		// than as a literal key, e.g. tags["aws:*"].
		var err error
		g, err = glob.Compile(b.StringValue(), '.')
		if err != nil {
			return nil, fmt.Errorf("compile map-key filter glob %q: %w", b.StringValue(), err)
		}
	default:
		exact = b.StringValue()
	}

	results := make([]Result, 0)
	for _, k := range v.MapKeys {
		match := false
		switch {
		case re != nil:
			match = re.MatchString(k)
		case g != nil:
			match = g.Match(k)
		default:
			match = k == exact
		}
		if match {
			child := v.MapVals[k]
			results = append(results, Result{Kind: Resolved, Val: child, Path: child.Path})
		}
	}
	return results, nil
}

// applyFilter retains elements of the current result set for which the
// predicate block evaluates PASS (spec §4.3). It consumes the whole
// current set rather than narrowing per-entry: following a bare list value
// (e.g. `xs[ this > 5 ]`) the candidates are that list's elements;
// following a fan-out segment like AllValues (e.g. `Resources.*[ Type ==
// ... ]`) the candidates are the already-resolved entries themselves.
func applyFilter(cur []Result, filter *lang.ExprBlock, ctx *Context) ([]Result, error) {
	if ctx == nil || ctx.EvalFilter == nil {
		return nil, fmt.Errorf("filter predicate requires an evaluation callback")
	}

	var candidates []Result
	if len(cur) == 1 && cur[0].Kind != Unresolved && cur[0].Val != nil && cur[0].Val.Kind == value.KindList {
		for _, elem := range cur[0].Val.List {
			candidates = append(candidates, Result{Kind: Resolved, Val: elem, Path: elem.Path})
		}
	} else {
		candidates = cur
	}

	results := make([]Result, 0, len(candidates))
	for _, c := range candidates {
		if c.Kind == Unresolved {
			continue
		}
		elem := c.Val
		ok, err := ctx.EvalFilter(elem, filter, ctx.WithThis(elem))
		if err != nil {
			return nil, err
		}
		if ok {
			results = append(results, Result{Kind: Resolved, Val: elem, Path: elem.Path})
		}
	}
	return results, nil
}
