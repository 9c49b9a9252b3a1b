// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Guardlang Contributors

// Package eval implements the rule-language evaluator: it walks a parsed
// RulesFile against a root PathAwareValue, resolving queries through
// pkg/query, and produces a Status plus a hierarchical EventRecord trace
// (spec §4.4). It is defined only over pkg/query, pkg/lang and pkg/value.
package eval

import (
	"context"
	"fmt"
	"strings"

	"github.com/samber/oops"

	"github.com/guardlang/guardlang/pkg/lang"
	"github.com/guardlang/guardlang/pkg/query"
	"github.com/guardlang/guardlang/pkg/value"
)

// Options tunes a single Evaluate call (spec §6: "options = {verbose,
// strict_missing, show_summary}"); StrictMissing turns a match_all=false
// clause whose query resolves empty, which would otherwise SKIP, into FAIL,
// mirroring cfn-guard's --strict flag.
type Options struct {
	StrictMissing bool
	Verbose       bool
	Clock         Clock
}

// Evaluate is the top-level entry point (spec §4.4, §6). It checks
// ctx.Err() exactly once before starting (never mid-evaluation — spec §5),
// then processes global assignments followed by every rule in declaration
// order, returning the aggregate Status and the root EventRecord. The
// aggregate is FAIL if any rule fails, else PASS if any rule passes, else
// SKIP; a file with no rules is PASS.
func Evaluate(ctx context.Context, rulesFile *lang.RulesFile, root *value.Value, opts Options) (Status, *EventRecord, error) {
	if err := ctx.Err(); err != nil {
		return FAIL, nil, oops.Wrapf(err, "context cancelled before evaluation")
	}
	if opts.Clock == nil {
		opts.Clock = systemClock{}
	}

	base := newTreeRecorder("rules_file")
	var recorder Recorder = base
	recorder = newStackTracker(recorder)
	recorder = newMetadataAppender(recorder, root)

	ec := newContext(recorder, opts.Clock)
	ev := &evaluator{ctx: ec, opts: opts, rules: map[string]*lang.Rule{}}

	var order []*lang.Rule
	var dupErrs []error
	for _, item := range rulesFile.Items {
		if item.Rule == nil {
			continue
		}
		if _, dup := ev.rules[item.Rule.Name]; dup {
			dupErrs = append(dupErrs, oops.Code(CodeIncompatibleError).Errorf("duplicate rule name %q", item.Rule.Name))
			continue
		}
		ev.rules[item.Rule.Name] = item.Rule
		order = append(order, item.Rule)
	}
	if len(dupErrs) == 1 {
		return FAIL, nil, dupErrs[0]
	}
	if len(dupErrs) > 1 {
		return FAIL, nil, newAggregateError(dupErrs)
	}

	for _, item := range rulesFile.Items {
		if item.Assignment == nil {
			continue
		}
		if err := ev.bindAssignment(item.Assignment, root); err != nil {
			return FAIL, nil, err
		}
	}

	overall := PASS
	sawPass := false
	for _, rule := range order {
		status, err := ev.evaluateRuleNamed(rule.Name, root)
		if err != nil {
			return FAIL, nil, err
		}
		switch status {
		case FAIL:
			overall = FAIL
		case PASS:
			sawPass = true
		}
	}
	if overall != FAIL && !sawPass && len(order) > 0 {
		overall = SKIP
	}
	return overall, base.root, nil
}

// evaluator is the stateless-apart-from-ctx driver; base is threaded
// explicitly through every evaluate* call rather than held as ambient
// state, since a type-block or filter rebinds it to a narrower subtree
// while variable/rule scope stays with ev.ctx.
type evaluator struct {
	ctx   *Context
	opts  Options
	rules map[string]*lang.Rule
}

func (ev *evaluator) queryContext(base *value.Value) *query.Context {
	return &query.Context{Vars: ev.ctx, This: base, EvalFilter: ev.evalFilter}
}

// bindAssignment resolves a `let` binding's RHS and stores it in the
// innermost scope frame.
func (ev *evaluator) bindAssignment(a *lang.Assignment, base *value.Value) error {
	results, err := ev.resolveAssignValue(a.Value, base)
	if err != nil {
		return err
	}
	ev.ctx.Bind(a.Name, results)
	return nil
}

func (ev *evaluator) resolveAssignValue(av *lang.AssignValue, base *value.Value) ([]query.Result, error) {
	switch {
	case av.Function != nil:
		v, err := ev.invokeFunctionCall(av.Function, base)
		if err != nil {
			return nil, err
		}
		return []query.Result{functionResult(v, av.Function.Name)}, nil
	case av.Query != nil:
		return query.Resolve(base, av.Query, ev.queryContext(base))
	case av.Literal != nil:
		v, err := literalToValue(av.Literal)
		if err != nil {
			return nil, err
		}
		return []query.Result{{Kind: query.LiteralResult, Val: v}}, nil
	default:
		return nil, oops.Code("FormatError").Errorf("empty assignment value")
	}
}

func (ev *evaluator) invokeFunctionCall(fc *lang.FunctionCall, base *value.Value) (*value.Value, error) {
	if !builtinNames[fc.Name] {
		return nil, oops.Code(CodeMissingVariable).Errorf("unknown function %q", fc.Name)
	}
	argSets := make([][]query.Result, 0, len(fc.Args))
	for _, arg := range fc.Args {
		switch {
		case arg.Query != nil:
			results, err := query.Resolve(base, arg.Query, ev.queryContext(base))
			if err != nil {
				return nil, err
			}
			argSets = append(argSets, results)
		case arg.Literal != nil:
			v, err := literalToValue(arg.Literal)
			if err != nil {
				return nil, err
			}
			argSets = append(argSets, []query.Result{{Kind: query.LiteralResult, Val: v}})
		}
	}
	return ev.callBuiltin(fc.Name, argSets)
}

// functionResult wraps a builtin's return as a query.Result, preserving the
// spec §4.6 "→ None" convention: a nil value (e.g. url_decode on invalid
// percent-encoding) becomes Unresolved rather than a LiteralResult carrying
// a nil Val, so downstream comparators and type checks see a normal
// unresolved outcome instead of dereferencing nil.
func functionResult(v *value.Value, fnName string) query.Result {
	if v == nil {
		return query.Result{Kind: query.Unresolved, Reason: fmt.Sprintf("%s() yielded no value", fnName)}
	}
	return query.Result{Kind: query.LiteralResult, Val: v}
}

// evalFilter implements query.FilterEvaluator: the filter predicate block
// is evaluated with the candidate element as the new resolution base, so
// bare identifiers inside the filter (`Type == '...'`) resolve relative to
// it, exactly as `this` does (spec §4.3 "the element is the root for inner
// queries").
func (ev *evaluator) evalFilter(candidate *value.Value, filter *lang.ExprBlock, _ *query.Context) (bool, error) {
	ev.ctx.recorder.StartEvaluation(KindFilter, candidate.Path.String())
	status, err := ev.evaluateExprBlock(filter, candidate)
	ev.ctx.recorder.EndEvaluation(KindFilter, candidate.Path.String(), "", nil, nil, status, "")
	if err != nil {
		return false, err
	}
	return status == PASS, nil
}

// --- Rule evaluation ---

func (ev *evaluator) evaluateRuleNamed(name string, base *value.Value) (Status, error) {
	if s, ok := ev.ctx.RuleStatus(name); ok {
		if s == evaluating {
			return FAIL, newCyclicRuleError(name)
		}
		return s, nil
	}
	rule, ok := ev.rules[name]
	if !ok {
		return FAIL, newMissingRuleError(name)
	}

	ev.ctx.StartEvaluating(name)
	status, err := ev.evaluateRule(rule, base)
	if err != nil {
		return FAIL, err
	}
	ev.ctx.SetRuleStatus(name, status)
	return status, nil
}

func (ev *evaluator) evaluateRule(rule *lang.Rule, base *value.Value) (Status, error) {
	ev.ctx.recorder.StartEvaluation(KindRule, rule.Name)

	if rule.When != nil {
		guardStatus, err := ev.evaluateExprBlock(rule.When, base)
		if err != nil {
			ev.ctx.recorder.EndEvaluation(KindRule, rule.Name, err.Error(), nil, nil, FAIL, "")
			return FAIL, err
		}
		if guardStatus != PASS {
			ev.ctx.recorder.EndEvaluation(KindRule, rule.Name, "when-guard not satisfied", nil, nil, SKIP, "")
			return SKIP, nil
		}
	}

	ev.ctx.PushScope()
	status, err := ev.evaluateBlock(rule.Body, base)
	ev.ctx.PopScope()
	if err != nil {
		ev.ctx.recorder.EndEvaluation(KindRule, rule.Name, err.Error(), nil, nil, FAIL, "")
		return FAIL, err
	}

	msg := ""
	if status == FAIL {
		msg = ev.interpolate(rule.CustomMessage())
	}
	ev.ctx.recorder.EndEvaluation(KindRule, rule.Name, msg, nil, nil, status, "")
	return status, nil
}

// interpolate resolves `${var}` references against the current scope at
// failure time (spec §4.4 "Custom messages").
func (ev *evaluator) interpolate(msg string) string {
	if msg == "" || !strings.Contains(msg, "${") {
		return msg
	}
	var b strings.Builder
	rest := msg
	for {
		start := strings.Index(rest, "${")
		if start < 0 {
			b.WriteString(rest)
			break
		}
		end := strings.Index(rest[start:], "}")
		if end < 0 {
			b.WriteString(rest)
			break
		}
		end += start
		b.WriteString(rest[:start])
		name := rest[start+2 : end]
		if results, ok := ev.ctx.ResolveVariable(name); ok && len(results) > 0 {
			parts := make([]string, 0, len(results))
			for _, r := range results {
				if r.Val != nil {
					parts = append(parts, r.Val.ScalarString())
				}
			}
			b.WriteString(strings.Join(parts, ","))
		} else {
			b.WriteString("${" + name + "}")
		}
		rest = rest[end+1:]
	}
	return b.String()
}

// --- Block / statement evaluation ---

func (ev *evaluator) evaluateBlock(b *lang.Block, base *value.Value) (Status, error) {
	ev.ctx.recorder.StartEvaluation(KindConditionBlock, "block")
	status, err := ev.doEvaluateBlock(b, base)
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	ev.ctx.recorder.EndEvaluation(KindConditionBlock, "block", msg, nil, nil, status, "")
	return status, err
}

// doEvaluateBlock implements AND across statements (spec §4.4): a FAIL from
// a clause/type-block/nested-block short-circuits remaining non-assignment
// statements, but `let` assignments always run so later custom messages can
// still interpolate their variables.
func (ev *evaluator) doEvaluateBlock(b *lang.Block, base *value.Value) (Status, error) {
	overall := PASS
	failed := false

	for _, stmt := range b.Statements {
		switch {
		case stmt.Assignment != nil:
			if err := ev.bindAssignment(stmt.Assignment, base); err != nil {
				return FAIL, err
			}

		case failed:
			continue

		case stmt.TypeBlock != nil:
			status, err := ev.evaluateTypeBlock(stmt.TypeBlock, base)
			if err != nil {
				return FAIL, err
			}
			overall = combineAnd(overall, status)
			if status == FAIL {
				failed = true
			}

		case stmt.Nested != nil:
			status, err := ev.evaluateBlock(stmt.Nested, base)
			if err != nil {
				return FAIL, err
			}
			overall = combineAnd(overall, status)
			if status == FAIL {
				failed = true
			}

		case stmt.Clauses != nil:
			status, err := ev.evaluateOrGroup(stmt.Clauses, base)
			if err != nil {
				return FAIL, err
			}
			overall = combineAnd(overall, status)
			if status == FAIL {
				failed = true
			}
		}
	}

	if failed {
		return FAIL, nil
	}
	return overall, nil
}

// combineAnd folds a new statement's status into the block's running
// status: any FAIL dominates, else any SKIP dominates, else PASS.
func combineAnd(acc, next Status) Status {
	if acc == FAIL || next == FAIL {
		return FAIL
	}
	if acc == SKIP || next == SKIP {
		return SKIP
	}
	return PASS
}

func (ev *evaluator) evaluateTypeBlock(tb *lang.TypeBlock, base *value.Value) (Status, error) {
	ev.ctx.recorder.StartEvaluation(KindType, tb.TypeName)
	status, err := ev.doEvaluateTypeBlock(tb, base)
	ev.ctx.recorder.EndEvaluation(KindType, tb.TypeName, "", nil, nil, status, "")
	return status, err
}

// doEvaluateTypeBlock narrows to every resource under Resources whose Type
// equals TypeName exactly, evaluating Body for each match in key order with
// the resource itself as the new resolution base (spec §4.4 "Type-block").
// It stops at the first resource whose Body fails; later matches are not
// evaluated.
func (ev *evaluator) doEvaluateTypeBlock(tb *lang.TypeBlock, base *value.Value) (Status, error) {
	resources := base.Get("Resources")
	if resources == nil || resources.Kind != value.KindMap {
		return SKIP, nil
	}

	overall := PASS
	matched := 0
	for _, name := range resources.MapKeys {
		resource := resources.MapVals[name]
		typeVal := resource.Get("Type")
		if typeVal == nil || typeVal.Kind != value.KindString || typeVal.Str != tb.TypeName {
			continue
		}
		matched++

		ev.ctx.PushScope()
		status, err := ev.evaluateBlock(tb.Body, resource)
		ev.ctx.PopScope()
		if err != nil {
			return FAIL, err
		}
		overall = combineAnd(overall, status)
		if status == FAIL {
			break
		}
	}

	if matched == 0 {
		return SKIP, nil
	}
	return overall, nil
}

func (ev *evaluator) evaluateExprBlock(eb *lang.ExprBlock, base *value.Value) (Status, error) {
	overall := PASS
	for _, g := range eb.Groups {
		status, err := ev.evaluateOrGroup(g, base)
		if err != nil {
			return FAIL, err
		}
		if status == FAIL {
			return FAIL, nil
		}
		if status == SKIP && overall == PASS {
			overall = SKIP
		}
	}
	return overall, nil
}

// evaluateOrGroup implements disjunction: PASS short-circuits (testable
// property 6); SKIP is dominated by any non-skip outcome.
func (ev *evaluator) evaluateOrGroup(og *lang.OrGroup, base *value.Value) (Status, error) {
	ev.ctx.recorder.StartEvaluation(KindCondition, "or-group")
	sawFail := false
	sawSkip := false
	result := FAIL

	for _, c := range og.Clauses {
		status, err := ev.evaluateClause(c, base)
		if err != nil {
			ev.ctx.recorder.EndEvaluation(KindCondition, "or-group", err.Error(), nil, nil, FAIL, "")
			return FAIL, err
		}
		if status == PASS {
			result = PASS
			break
		}
		if status == FAIL {
			sawFail = true
		} else {
			sawSkip = true
		}
	}

	if result != PASS {
		switch {
		case sawFail:
			result = FAIL
		case sawSkip:
			result = SKIP
		default:
			result = PASS // empty OrGroup never occurs per grammar (@@ requires >=1)
		}
	}
	ev.ctx.recorder.EndEvaluation(KindCondition, "or-group", "", nil, nil, result, "")
	return result, nil
}

func (ev *evaluator) evaluateClause(c *lang.Clause, base *value.Value) (Status, error) {
	var status Status
	var err error

	switch {
	case c.Paren != nil:
		status, err = ev.evaluateExprBlock(c.Paren, base)
	case c.Access != nil:
		status, err = ev.evaluateAccessClause(c.Access, base)
	case c.NamedRef != nil:
		status, err = ev.evaluateRuleNamed(c.NamedRef.Name, base)
	default:
		return FAIL, oops.Code("FormatError").Errorf("empty clause")
	}
	if err != nil {
		return FAIL, err
	}

	if c.Negated {
		switch status {
		case PASS:
			status = FAIL
		case FAIL:
			status = PASS
		}
	}
	return status, nil
}

// --- Access clause (comparator) evaluation ---

func (ev *evaluator) evaluateAccessClause(ac *lang.AccessClause, base *value.Value) (Status, error) {
	label := ac.LHS.String()
	ev.ctx.recorder.StartEvaluation(KindClause, label)
	status, from, to, msg, err := ev.doEvaluateAccessClause(ac, base)
	ev.ctx.recorder.EndEvaluation(KindClause, label, msg, from, to, status, ac.Cmp.Op)
	return status, err
}

func (ev *evaluator) doEvaluateAccessClause(ac *lang.AccessClause, base *value.Value) (status Status, from, to *value.Value, msg string, err error) {
	lhs, matchAll, err := ev.resolveLHS(ac.LHS, base)
	if err != nil {
		return FAIL, nil, nil, "", err
	}

	op := ac.Cmp.Op
	resolved, unresolvedReason := splitResolved(lhs)

	// match_all=false tolerates empty resolution uniformly (spec §4.3
	// "upstream clause yields SKIP"), regardless of which comparator would
	// otherwise consume the result — including exists/empty. With
	// Options.StrictMissing the same case is a FAIL instead.
	if len(resolved) == 0 && !matchAll {
		if ev.opts.StrictMissing {
			return FAIL, nil, nil, unresolvedReason, nil
		}
		return SKIP, nil, nil, "", nil
	}

	if isPresenceOp(op) {
		has := len(resolved) > 0
		if op == "exists" {
			if has {
				return PASS, nil, nil, "", nil
			}
			return FAIL, nil, nil, "missing: " + ac.LHS.String(), nil
		}
		if has {
			return FAIL, resolved[0], nil, "expected empty: " + ac.LHS.String(), nil
		}
		return PASS, nil, nil, "", nil
	}

	if len(resolved) == 0 {
		return FAIL, nil, nil, unresolvedReason, nil
	}

	if isTypeCheckOp(op) {
		for _, v := range resolved {
			if !matchesTypeCheck(v, op) {
				return FAIL, v, nil, fmt.Sprintf("%s failed for %s", op, v.Path.String()), nil
			}
		}
		return PASS, nil, nil, "", nil
	}

	rhsValues, err := ev.resolveRHS(ac.Cmp.RHS, base)
	if err != nil {
		return FAIL, nil, nil, "", err
	}

	return ev.compareAll(resolved, rhsValues, op, matchAll)
}

func isPresenceOp(op string) bool {
	return op == "exists" || op == "empty"
}

func isTypeCheckOp(op string) bool {
	switch op {
	case "is_string", "is_list", "is_map", "is_null", "is_int", "is_bool", "is_float":
		return true
	default:
		return false
	}
}

func matchesTypeCheck(v *value.Value, op string) bool {
	switch op {
	case "is_string":
		return v.Kind == value.KindString
	case "is_list":
		return v.Kind == value.KindList
	case "is_map":
		return v.Kind == value.KindMap
	case "is_null":
		return v.Kind == value.KindNull
	case "is_int":
		return v.Kind == value.KindInt
	case "is_bool":
		return v.Kind == value.KindBool
	case "is_float":
		return v.Kind == value.KindFloat
	default:
		return false
	}
}

func splitResolved(results []query.Result) (resolved []*value.Value, reason string) {
	for _, r := range results {
		if r.Kind == query.Unresolved {
			if reason == "" {
				reason = r.Reason
			}
			continue
		}
		resolved = append(resolved, r.Val)
	}
	return resolved, reason
}

// resolveLHS resolves an AccessTerm and reports the governing match_all
// flag (functions are always strict; bare queries carry their own flag).
func (ev *evaluator) resolveLHS(t *lang.AccessTerm, base *value.Value) ([]query.Result, bool, error) {
	if t.Function != nil {
		v, err := ev.invokeFunctionCall(t.Function, base)
		if err != nil {
			return nil, true, err
		}
		return []query.Result{functionResult(v, t.Function.Name)}, true, nil
	}
	results, err := query.Resolve(base, t.Query, ev.queryContext(base))
	if err != nil {
		return nil, true, err
	}
	return results, t.Query.MatchAll(), nil
}

// resolveRHS resolves a comparator's right-hand side. Unlike the LHS, any
// unresolved RHS entry is a hard evaluation error (spec §4.4 "Failure
// semantics": "on RHS they always propagate as evaluation error").
func (ev *evaluator) resolveRHS(rhs *lang.RHS, base *value.Value) ([]*value.Value, error) {
	switch {
	case rhs.Literal != nil:
		v, err := literalToValue(rhs.Literal)
		if err != nil {
			return nil, err
		}
		return []*value.Value{v}, nil

	case rhs.List != nil:
		return literalListToValues(rhs.List)

	case rhs.Query != nil:
		results, err := query.Resolve(base, rhs.Query, ev.queryContext(base))
		if err != nil {
			return nil, err
		}
		out := make([]*value.Value, 0, len(results))
		for _, r := range results {
			if r.Kind == query.Unresolved {
				return nil, newRetrievalError("rhs query did not resolve: " + r.Reason)
			}
			out = append(out, r.Val)
		}
		return out, nil

	default:
		return nil, oops.Code("FormatError").Errorf("empty rhs")
	}
}

// compareAll applies op to every lhs element against rhsValues, aggregating
// PASS iff every element passes when matchAll, or iff at least one passes
// otherwise (spec §4.4 step 4).
func (ev *evaluator) compareAll(lhs, rhsValues []*value.Value, op string, matchAll bool) (Status, *value.Value, *value.Value, string, error) {
	anyPass := false
	var failFrom, failTo *value.Value
	var failMsg string

	for _, l := range lhs {
		ok, to, err := compareOne(l, rhsValues, op)
		if err != nil {
			return FAIL, l, nil, "", err
		}
		if ok {
			anyPass = true
			if !matchAll {
				break
			}
			continue
		}
		if failFrom == nil {
			failFrom = l
			failTo = to
			failMsg = fmt.Sprintf("%s %s failed at %s", "value", op, l.Path.String())
		}
		if matchAll {
			return FAIL, failFrom, failTo, failMsg, nil
		}
	}

	if matchAll {
		return PASS, nil, nil, "", nil
	}
	if anyPass {
		return PASS, nil, nil, "", nil
	}
	return FAIL, failFrom, failTo, failMsg, nil
}

// compareOne evaluates l op rhsValues for the binary comparators.
func compareOne(l *value.Value, rhsValues []*value.Value, op string) (bool, *value.Value, error) {
	switch {
	case op == "in" || strings.HasPrefix(op, "not"):
		found := containsAny(l, rhsValues)
		if strings.HasPrefix(op, "not") {
			found = !found
		}
		var to *value.Value
		if len(rhsValues) > 0 {
			to = rhsValues[0]
		}
		return found, to, nil

	case op == "==":
		if len(rhsValues) > 1 {
			for _, r := range rhsValues {
				if !equalOrRegexMatch(l, r) {
					return false, r, nil
				}
			}
			return true, nil, nil
		}
		return equalOrRegexMatch(l, single(rhsValues)), single(rhsValues), nil

	case op == "!=":
		return !equalOrRegexMatch(l, single(rhsValues)), single(rhsValues), nil

	case op == "<" || op == "<=" || op == ">" || op == ">=":
		r := single(rhsValues)
		cmp, ok := value.Compare(l, r)
		if !ok {
			return false, r, newNotComparableError(l.Kind.String(), r.Kind.String(), op)
		}
		switch op {
		case "<":
			return cmp < 0, r, nil
		case "<=":
			return cmp <= 0, r, nil
		case ">":
			return cmp > 0, r, nil
		default:
			return cmp >= 0, r, nil
		}

	default:
		return false, nil, oops.Code("FormatError").Errorf("unsupported comparator %q", op)
	}
}

func single(values []*value.Value) *value.Value {
	if len(values) == 0 {
		return nil
	}
	return values[0]
}

// equalOrRegexMatch implements `==`/`!=` against a regex RHS as a pattern
// match rather than structural equality (spec §4.4 "regex compares by
// full-match"), falling back to ordinary value equality otherwise.
func equalOrRegexMatch(l, r *value.Value) bool {
	if r != nil && r.Kind == value.KindRegex && l != nil && l.Kind == value.KindString {
		return r.Regexp().MatchString(l.Str)
	}
	return l.Equal(r)
}

func containsAny(l *value.Value, rhsValues []*value.Value) bool {
	for _, r := range rhsValues {
		switch r.Kind {
		case value.KindRangeInt:
			if l.Kind == value.KindInt && r.RangeI.Contains(l.Int) {
				return true
			}
			if l.Kind == value.KindFloat && r.RangeI.Contains(int64(l.Float)) {
				return true
			}
		case value.KindRangeFloat:
			if l.Kind == value.KindFloat && r.RangeF.Contains(l.Float) {
				return true
			}
			if l.Kind == value.KindInt && r.RangeF.Contains(float64(l.Int)) {
				return true
			}
		default:
			if l.Equal(r) {
				return true
			}
		}
	}
	return false
}
