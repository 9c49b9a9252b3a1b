// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Guardlang Contributors

package eval

import "github.com/guardlang/guardlang/pkg/query"

// scopeFrame is one lexical frame of the variable-scope stack: a name binds
// to either a literal value or a resolved query result set (spec §3
// "Variable scope").
type scopeFrame map[string][]query.Result

// Context is the mutable bookkeeping surface threaded through a single
// top-level Evaluate call: the scope stack, the per-rule status cache, and
// the (possibly decorated) event recorder (spec §4.5).
type Context struct {
	scopes     []scopeFrame
	ruleStatus map[string]Status
	recorder   Recorder
	clock      Clock
}

// compile-time check that Context implements the resolver's capability.
var _ query.VarResolver = (*Context)(nil)

func newContext(recorder Recorder, clock Clock) *Context {
	return &Context{
		scopes:     []scopeFrame{{}},
		ruleStatus: make(map[string]Status),
		recorder:   recorder,
		clock:      clock,
	}
}

// PushScope opens a new lexical frame on block entry.
func (c *Context) PushScope() { c.scopes = append(c.scopes, scopeFrame{}) }

// PopScope closes the innermost lexical frame on block exit.
func (c *Context) PopScope() { c.scopes = c.scopes[:len(c.scopes)-1] }

// Bind records a let-assignment's resolved value in the innermost frame.
func (c *Context) Bind(name string, results []query.Result) {
	c.scopes[len(c.scopes)-1][name] = results
}

// ResolveVariable implements query.VarResolver: lookup walks outward
// through enclosing frames, permitting shadowing (spec §3).
func (c *Context) ResolveVariable(name string) ([]query.Result, bool) {
	for i := len(c.scopes) - 1; i >= 0; i-- {
		if v, ok := c.scopes[i][name]; ok {
			return v, true
		}
	}
	return nil, false
}

// RuleStatus returns a previously memoised rule status.
func (c *Context) RuleStatus(name string) (Status, bool) {
	s, ok := c.ruleStatus[name]
	return s, ok
}

// StartEvaluating marks name as in-progress, so a re-entrant reference
// before completion is detected as a cycle (spec §4.4, testable property 5).
func (c *Context) StartEvaluating(name string) { c.ruleStatus[name] = evaluating }

// SetRuleStatus memoises a rule's final status.
func (c *Context) SetRuleStatus(name string, s Status) { c.ruleStatus[name] = s }
