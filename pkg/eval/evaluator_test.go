// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Guardlang Contributors

package eval

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guardlang/guardlang/pkg/lang"
	"github.com/guardlang/guardlang/pkg/value"
)

func mustEval(t *testing.T, rulesSrc string, doc []byte) (Status, *EventRecord) {
	t.Helper()
	rf, err := lang.ParseRules(rulesSrc, "t.guard")
	require.NoError(t, err)
	root, err := value.FromJSON(doc)
	require.NoError(t, err)
	status, event, err := Evaluate(context.Background(), rf, root, Options{})
	require.NoError(t, err)
	return status, event
}

// S1 Empty resources.
func TestEvaluate_S1_EmptyResources(t *testing.T) {
	status, event := mustEval(t,
		`rule R { Resources.* exists }`,
		[]byte(`{"Resources":{}}`))
	assert.Equal(t, FAIL, status)
	require.NotEmpty(t, event.Children)
}

// S2 Encryption.
func TestEvaluate_S2_Encryption(t *testing.T) {
	doc := []byte(`{
		"Resources": {
			"VolA": {"Type": "AWS::EC2::Volume", "Properties": {"Encrypted": true}},
			"VolB": {"Type": "AWS::EC2::Volume", "Properties": {"Encrypted": false}}
		}
	}`)
	status, _ := mustEval(t, `
		let v = Resources.*[ Type == 'AWS::EC2::Volume' ]
		rule enc { %v.Properties.Encrypted == true }
	`, doc)
	assert.Equal(t, FAIL, status)
}

// S3 Named-rule guard.
func TestEvaluate_S3_NamedRuleGuard(t *testing.T) {
	doc := []byte(`{"Resources":{"Fn":{"Type":"AWS::Lambda::Function"}}}`)
	status, event := mustEval(t, `
		rule has_role { Resources.*[ Type == 'AWS::IAM::Role' ] exists }
		rule lambda_only when has_role { Resources.* exists }
	`, doc)
	assert.Equal(t, FAIL, status)

	var names []string
	var statuses []Status
	for _, c := range event.Children {
		names = append(names, c.ContextLabel)
		statuses = append(statuses, c.Status)
	}
	require.Len(t, names, 2)
	assert.Equal(t, "has_role", names[0])
	assert.Equal(t, FAIL, statuses[0])
	assert.Equal(t, "lambda_only", names[1])
	assert.Equal(t, SKIP, statuses[1])
}

// S4 count built-in.
func TestEvaluate_S4_Count(t *testing.T) {
	doc := []byte(`{
		"Resources": {
			"A": {"Type": "AWS::S3::Bucket"},
			"B": {"Type": "AWS::S3::Bucket"},
			"C": {"Type": "AWS::S3::Bucket"}
		}
	}`)
	status, _ := mustEval(t, `rule c { count(Resources.*[ Type == 'AWS::S3::Bucket' ]) >= 2 }`, doc)
	assert.Equal(t, PASS, status)
}

// S5 Regex equality.
func TestEvaluate_S5_RegexEquality(t *testing.T) {
	doc := []byte(`{
		"Resources": {
			"A": {"Type": "AWS::EC2::Instance"},
			"B": {"Type": "AWS::S3::Bucket"}
		}
	}`)
	status, _ := mustEval(t, `rule re { Resources.*.Type == /^AWS::EC2::/ }`, doc)
	assert.Equal(t, FAIL, status)
}

// S6 Range.
func TestEvaluate_S6_Range(t *testing.T) {
	doc := []byte(`{"Properties":{"Size":50}}`)
	status, event := mustEval(t, `rule vol { Properties.Size in r[100,1000] }`, doc)
	assert.Equal(t, FAIL, status)

	var found bool
	var walk func(*EventRecord)
	walk = func(e *EventRecord) {
		if e.Kind == KindClause {
			found = true
			assert.Equal(t, int64(50), e.From.Int)
		}
		for _, c := range e.Children {
			walk(c)
		}
	}
	walk(event)
	assert.True(t, found)
}

// Property 5: named-rule cycles.
func TestEvaluate_CyclicRuleReference(t *testing.T) {
	_, _, err := Evaluate(context.Background(), parseOrFail(t, `
		rule a { b }
		rule b { a }
	`), emptyRoot(t), Options{})
	require.Error(t, err)
	assert.True(t, IsComparisonError(err) || codeOf(err) == CodeIncompatibleError)
}

func TestEvaluate_DuplicateRuleName(t *testing.T) {
	_, _, err := Evaluate(context.Background(), parseOrFail(t, `
		rule a { Resources exists }
		rule a { Resources exists }
	`), emptyRoot(t), Options{})
	require.Error(t, err)
	assert.Equal(t, CodeIncompatibleError, codeOf(err))
}

// Two or more independent duplicate names are reported together rather
// than surfacing only the first and hiding the rest.
func TestEvaluate_MultipleDuplicateRuleNamesAggregate(t *testing.T) {
	_, _, err := Evaluate(context.Background(), parseOrFail(t, `
		rule a { Resources exists }
		rule a { Resources exists }
		rule b { Resources exists }
		rule b { Resources exists }
	`), emptyRoot(t), Options{})
	require.Error(t, err)
	assert.Equal(t, CodeAggregate, codeOf(err))
	assert.Contains(t, err.Error(), "2 errors")
}

// Disjunction: a failing first clause is rescued by a passing later one.
func TestEvaluate_OrPassesWhenLaterClausePasses(t *testing.T) {
	status, _ := mustEval(t, `rule r { Missing.Thing exists or Resources exists }`,
		[]byte(`{"Resources":{}}`))
	assert.Equal(t, PASS, status)
}

// Property 7: match_all semantics (some-qualified query tolerates empty).
func TestEvaluate_MatchAllRelaxedBySomeIsSkip(t *testing.T) {
	status, _ := mustEval(t, `rule r { some Missing.* exists }`, []byte(`{}`))
	assert.Equal(t, SKIP, status)
}

// Property 8: negation preserves SKIP, swaps PASS/FAIL.
func TestEvaluate_Negation(t *testing.T) {
	status, _ := mustEval(t, `rule r { not Resources.* exists }`, []byte(`{"Resources":{}}`))
	assert.Equal(t, PASS, status)

	status2, _ := mustEval(t, `rule r { not Resources.* exists }`,
		[]byte(`{"Resources":{"A":{"Type":"x"}}}`))
	assert.Equal(t, FAIL, status2)
}

func TestEvaluate_WhenGuardPassesRunsBody(t *testing.T) {
	status, _ := mustEval(t, `
		rule guard { Resources.* exists }
		rule body when guard { Resources.*.Type exists }
	`, []byte(`{"Resources":{"A":{"Type":"x"}}}`))
	assert.Equal(t, PASS, status)
}

func TestEvaluate_CustomMessageInterpolation(t *testing.T) {
	_, event := mustEval(t, `
		let name = Resources.A.Name
		rule r { Resources.A.Missing exists } <<no name found: ${name}>>
	`, []byte(`{"Resources":{"A":{"Name":"bucket-1"}}}`))
	var msg string
	for _, c := range event.Children {
		if c.ContextLabel == "r" {
			msg = c.Message
		}
	}
	assert.Contains(t, msg, "bucket-1")
}

func parseOrFail(t *testing.T, src string) *lang.RulesFile {
	t.Helper()
	rf, err := lang.ParseRules(src, "t.guard")
	require.NoError(t, err)
	return rf
}

func emptyRoot(t *testing.T) *value.Value {
	t.Helper()
	v, err := value.FromJSON([]byte(`{}`))
	require.NoError(t, err)
	return v
}
