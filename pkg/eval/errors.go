// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Guardlang Contributors

package eval

import (
	"strings"

	"github.com/samber/oops"
)

// Error codes of the closed taxonomy (spec §7). Parser/value-construction
// errors use their own codes (see pkg/lang, pkg/value); these are the codes
// the evaluator itself raises.
const (
	CodeMissingProperty             = "MissingProperty"
	CodeMissingVariable             = "MissingVariable"
	CodeMissingValue                = "MissingValue"
	CodeMultipleValues              = "MultipleValues"
	CodeIncompatibleError           = "IncompatibleError"
	CodeIncompatibleRetrievalError  = "IncompatibleRetrievalError"
	CodeNotComparable               = "NotComparable"
	CodeRetrievalError              = "RetrievalError"
	CodeRegexError                  = "RegexError"
	CodeConversionError             = "ConversionError"
	CodeAggregate                   = "Aggregate"
)

// codeOf returns the oops code attached to err, or "" if err was not built
// with oops.Code(...) (mirrors the teacher's oops.AsOops(err).Code() dispatch
// in Engine.Evaluate's session-resolution branch).
func codeOf(err error) string {
	if err == nil {
		return ""
	}
	if oerr, ok := oops.AsOops(err); ok {
		return oerr.Code()
	}
	return ""
}

// IsRetrievalError reports whether err is a retrieval-class failure (spec
// §7: becomes clause-level SKIP/FAIL rather than aborting evaluation).
func IsRetrievalError(err error) bool {
	switch codeOf(err) {
	case CodeMissingProperty, CodeMissingVariable, CodeMissingValue,
		CodeMultipleValues, CodeIncompatibleRetrievalError, CodeRetrievalError:
		return true
	default:
		return false
	}
}

// IsComparisonError reports whether err is a comparison-class failure (spec
// §7: becomes clause-level FAIL with from/to attached, never an abort).
func IsComparisonError(err error) bool {
	switch codeOf(err) {
	case CodeNotComparable, CodeIncompatibleError:
		return true
	default:
		return false
	}
}

func newCyclicRuleError(name string) error {
	return oops.Code(CodeIncompatibleError).With("rule", name).Errorf("cyclic rule reference: %s", name)
}

func newMissingRuleError(name string) error {
	return oops.Code(CodeMissingVariable).With("rule", name).Errorf("reference to unknown rule %q", name)
}

func newNotComparableError(lhsKind, rhsKind, op string) error {
	return oops.Code(CodeNotComparable).With("op", op).Errorf("cannot compare %s %s %s", lhsKind, op, rhsKind)
}

func newRetrievalError(reason string) error {
	return oops.Code(CodeRetrievalError).Errorf("%s", reason)
}

// newAggregateError combines independent failures discovered in a single
// pass (e.g. several duplicate rule names found while indexing a rules
// file) into one reported error, rather than surfacing only the first and
// hiding the rest until the next run.
func newAggregateError(errs []error) error {
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return oops.Code(CodeAggregate).With("count", len(errs)).Errorf("%d errors: %s", len(errs), strings.Join(msgs, "; "))
}
