// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Guardlang Contributors

package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guardlang/guardlang/pkg/lang"
	"github.com/guardlang/guardlang/pkg/value"
)

func mustParseQuery(t *testing.T, src string) *lang.AccessQuery {
	t.Helper()
	rf, err := lang.ParseRules(`rule r { `+src+` exists }`, "t")
	require.NoError(t, err)
	return rf.Items[0].Rule.Body.Statements[0].Clauses.Clauses[0].Access.LHS.Query
}

func TestResolve_KeyAndPathPreservation(t *testing.T) {
	root, err := value.FromJSON([]byte(`{"Resources":{"A":{"Type":"x"}}}`))
	require.NoError(t, err)

	q := mustParseQuery(t, "Resources.A.Type")
	results, err := Resolve(root, q, &Context{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, Resolved, results[0].Kind)
	assert.Equal(t, "/Resources/A/Type", results[0].Val.Path.Pointer)
}

func TestResolve_MissingPropertyIsUnresolved(t *testing.T) {
	root, _ := value.FromJSON([]byte(`{"Resources":{}}`))
	q := mustParseQuery(t, "Resources.Missing")
	results, err := Resolve(root, q, &Context{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, Unresolved, results[0].Kind)
}

func TestResolve_EmptyMapWildcard(t *testing.T) {
	root, _ := value.FromJSON([]byte(`{"Resources":{}}`))
	q := mustParseQuery(t, "Resources.*")
	results, err := Resolve(root, q, &Context{})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestResolve_WildcardOrdersByInsertion(t *testing.T) {
	root, _ := value.FromYAML([]byte("Resources:\n  b:\n    n: 1\n  a:\n    n: 2\n"))
	q := mustParseQuery(t, "Resources.*")
	results, err := Resolve(root, q, &Context{})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "/Resources/b", results[0].Val.Path.Pointer)
	assert.Equal(t, "/Resources/a", results[1].Val.Path.Pointer)
}

func TestResolve_IndexNegative(t *testing.T) {
	root, _ := value.FromJSON([]byte(`{"xs":[1,2,3]}`))
	q := mustParseQuery(t, "xs[-1]")
	results, err := Resolve(root, q, &Context{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, int64(3), results[0].Val.Int)
}

func TestResolve_MapKeyFilterRegex(t *testing.T) {
	root, _ := value.FromJSON([]byte(`{"tags":{"aws:foo":1,"user:bar":2}}`))
	q := mustParseQuery(t, `tags[/^aws:/]`)
	results, err := Resolve(root, q, &Context{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, int64(1), results[0].Val.Int)
}

func TestResolve_MapKeyFilterGlob(t *testing.T) {
	root, _ := value.FromJSON([]byte(`{"tags":{"aws:foo":1,"aws:bar":2,"user:baz":3}}`))
	q := mustParseQuery(t, `tags["aws:*"]`)
	results, err := Resolve(root, q, &Context{})
	require.NoError(t, err)
	require.Len(t, results, 2)
}

func TestResolve_KeyOnNonMapIsIncompatible(t *testing.T) {
	root, _ := value.FromJSON([]byte(`{"x":5}`))
	q := mustParseQuery(t, "x.y")
	results, err := Resolve(root, q, &Context{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, Unresolved, results[0].Kind)
	assert.Contains(t, results[0].Reason, "incompatible")
}

func TestResolve_VariableRef(t *testing.T) {
	root, _ := value.FromJSON([]byte(`{"a":1}`))
	bound := []Result{{Kind: Resolved, Val: value.NewInt(value.Path{Pointer: "/a"}, 1)}}
	ctx := &Context{Vars: staticVars{"v": bound}}
	q := mustParseQuery(t, "%v")
	results, err := Resolve(root, q, ctx)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, int64(1), results[0].Val.Int)
}

type staticVars map[string][]Result

func (s staticVars) ResolveVariable(name string) ([]Result, bool) {
	v, ok := s[name]
	return v, ok
}

// simpleFilterEval evaluates a single-clause `<query> <op> <literal>`
// predicate by resolving the LHS through this same package's Resolve and
// comparing scalars directly; it exists only to exercise applyFilter's
// dual-mode candidate selection in these tests, not to reimplement the
// evaluator.
func simpleFilterEval(candidate *value.Value, filter *lang.ExprBlock, ctx *Context) (bool, error) {
	ac := filter.Groups[0].Clauses[0].Access
	results, err := Resolve(candidate, ac.LHS.Query, ctx)
	if err != nil {
		return false, err
	}
	if len(results) == 0 || results[0].Kind == Unresolved {
		return false, nil
	}
	lhs := results[0].Val
	rhs := ac.Cmp.RHS.Literal

	switch ac.Cmp.Op {
	case "==":
		if rhs.Str != nil {
			return lhs.Str == rhs.StringValue(), nil
		}
		return int64(*rhs.Number) == lhs.Int, nil
	case ">":
		return lhs.Int > int64(*rhs.Number), nil
	default:
		return false, nil
	}
}

func TestResolve_FilterOnRealList(t *testing.T) {
	root, _ := value.FromJSON([]byte(`{"xs":[1,6,3,9]}`))
	q := mustParseQuery(t, "xs[ this > 5 ]")
	ctx := &Context{EvalFilter: simpleFilterEval}
	results, err := Resolve(root, q, ctx)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, int64(6), results[0].Val.Int)
	assert.Equal(t, int64(9), results[1].Val.Int)
}

func TestResolve_FilterAfterWildcardFanOut(t *testing.T) {
	root, _ := value.FromJSON([]byte(`{
		"Resources": {
			"VolA": {"Type": "AWS::EC2::Volume"},
			"VolB": {"Type": "AWS::S3::Bucket"}
		}
	}`))
	q := mustParseQuery(t, `Resources.*[ Type == 'AWS::EC2::Volume' ]`)
	ctx := &Context{EvalFilter: simpleFilterEval}
	results, err := Resolve(root, q, ctx)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "/Resources/VolA", results[0].Val.Path.Pointer)
}
