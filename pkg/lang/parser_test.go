// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Guardlang Contributors

package lang

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRules_SimpleRule(t *testing.T) {
	src := `rule r1 { Resources.* exists }`
	rf, err := ParseRules(src, "test.guard")
	require.NoError(t, err)
	require.Len(t, rf.Items, 1)
	assert.Equal(t, "r1", rf.Items[0].Rule.Name)
}

func TestParseRules_LetAndFilteredQuery(t *testing.T) {
	src := `let v = Resources.*[ Type == "AWS::EC2::Volume" ]
rule enc { %v.Properties.Encrypted == true }`
	rf, err := ParseRules(src, "test.guard")
	require.NoError(t, err)
	require.Len(t, rf.Items, 2)
	assert.Equal(t, "v", rf.Items[0].Assignment.Name)
	assert.Equal(t, "enc", rf.Items[1].Rule.Name)
}

func TestParseRules_WhenGuard(t *testing.T) {
	src := `rule exists1 { Resources.*[ Type == "AWS::IAM::Role" ] exists }
rule lambda_only when exists1 { Resources.* exists }`
	rf, err := ParseRules(src, "test.guard")
	require.NoError(t, err)
	require.NotNil(t, rf.Items[1].Rule.When)
}

func TestParseRules_CountBuiltin(t *testing.T) {
	src := `rule c { count(Resources.*[ Type == "AWS::S3::Bucket" ]) >= 2 }`
	rf, err := ParseRules(src, "test.guard")
	require.NoError(t, err)
	lhs := rf.Items[0].Rule.Body.Statements[0].Clauses.Clauses[0].Access.LHS
	require.NotNil(t, lhs.Function)
	assert.Equal(t, "count", lhs.Function.Name)
}

func TestParseRules_RegexEquality(t *testing.T) {
	src := `rule re { Resources.*.Type == /^AWS::EC2::/ }`
	rf, err := ParseRules(src, "test.guard")
	require.NoError(t, err)
	rhs := rf.Items[0].Rule.Body.Statements[0].Clauses.Clauses[0].Access.Cmp.RHS
	require.NotNil(t, rhs.Literal)
	require.NotNil(t, rhs.Literal.Regex)
	assert.Equal(t, "^AWS::EC2::", rhs.Literal.RegexPattern())
}

func TestParseRules_Range(t *testing.T) {
	src := `rule vol { Properties.Size in r[100,1000] }`
	rf, err := ParseRules(src, "test.guard")
	require.NoError(t, err)
	rhs := rf.Items[0].Rule.Body.Statements[0].Clauses.Clauses[0].Access.Cmp.RHS
	require.NotNil(t, rhs.Literal)
	require.NotNil(t, rhs.Literal.Range)
	assert.Equal(t, "r[100,1000]", *rhs.Literal.Range)
}

func TestParseRules_TypeBlock(t *testing.T) {
	src := `rule r { AWS::EC2::Volume { Properties.Encrypted == true } }`
	rf, err := ParseRules(src, "test.guard")
	require.NoError(t, err)
	stmt := rf.Items[0].Rule.Body.Statements[0]
	require.NotNil(t, stmt.TypeBlock)
	assert.Equal(t, "AWS::EC2::Volume", stmt.TypeBlock.TypeName)
}

func TestParseRules_OrAndNot(t *testing.T) {
	src := `rule r { not Resources.*.Encrypted == false or Resources.*.Public == false }`
	rf, err := ParseRules(src, "test.guard")
	require.NoError(t, err)
	og := rf.Items[0].Rule.Body.Statements[0].Clauses
	require.Len(t, og.Clauses, 2)
	assert.True(t, og.Clauses[0].Negated)
}

func TestParseRules_NamedRuleClauseAndCustomMessage(t *testing.T) {
	src := `rule base { Resources.* exists }
rule composed { base } <<composed must hold>>`
	rf, err := ParseRules(src, "test.guard")
	require.NoError(t, err)
	composed := rf.Items[1].Rule
	clause := composed.Body.Statements[0].Clauses.Clauses[0]
	require.NotNil(t, clause.NamedRef)
	assert.Equal(t, "base", clause.NamedRef.Name)
	assert.Equal(t, "composed must hold", composed.CustomMessage())
}

func TestParseRules_ReservedWordRejected(t *testing.T) {
	_, err := ParseRules(`rule rule { Resources.* exists }`, "test.guard")
	require.Error(t, err)
}

func TestParseRules_RoundTripJSON(t *testing.T) {
	src := `rule r1 { Resources.* exists }`
	rf, err := ParseRules(src, "test.guard")
	require.NoError(t, err)

	data, err := CompileRulesFile(rf)
	require.NoError(t, err)

	var ast map[string]any
	require.NoError(t, json.Unmarshal(data, &ast))
	assert.Equal(t, float64(GrammarVersion), ast["grammar_version"])
	assert.NotNil(t, ast["items"])
}

func TestParseRules_IncompleteInputIsError(t *testing.T) {
	_, err := ParseRules(`rule r1 { Resources.* `, "test.guard")
	require.Error(t, err)
}
