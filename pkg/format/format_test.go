// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Guardlang Contributors

package format

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guardlang/guardlang/pkg/eval"
	"github.com/guardlang/guardlang/pkg/lang"
	"github.com/guardlang/guardlang/pkg/value"
)

func evaluateFixture(t *testing.T) *eval.EventRecord {
	t.Helper()
	rf, err := lang.ParseRules(`
		rule encrypted { Resources.*.Properties.Encrypted == true }
	`, "t.guard")
	require.NoError(t, err)
	root, err := value.FromJSON([]byte(`{
		"Resources": {"A": {"Properties": {"Encrypted": false}}}
	}`))
	require.NoError(t, err)
	_, event, err := eval.Evaluate(context.Background(), rf, root, eval.Options{})
	require.NoError(t, err)
	return event
}

func TestSerializeEvent_JSON(t *testing.T) {
	event := evaluateFixture(t)
	out, err := SerializeEvent(event, JSON)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"kind"`)
}

func TestSerializeEvent_JUnitHasFailure(t *testing.T) {
	event := evaluateFixture(t)
	out, err := SerializeEvent(event, JUnit)
	require.NoError(t, err)
	assert.Contains(t, string(out), "<failure")
}

func TestSerializeEvent_SARIFHasResult(t *testing.T) {
	event := evaluateFixture(t)
	out, err := SerializeEvent(event, SARIF)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"ruleId"`)
}

func TestSerializeEvent_Summary(t *testing.T) {
	event := evaluateFixture(t)
	out, err := SerializeEvent(event, Summary)
	require.NoError(t, err)
	assert.Contains(t, string(out), "FAIL=1")
}

func TestSerializeEvent_SingleLine(t *testing.T) {
	event := evaluateFixture(t)
	out, err := SerializeEvent(event, SingleLine)
	require.NoError(t, err)
	assert.Contains(t, string(out), "rule=encrypted")
}
