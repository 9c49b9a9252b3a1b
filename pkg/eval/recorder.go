// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Guardlang Contributors

package eval

import (
	"fmt"
	"strings"

	"github.com/guardlang/guardlang/pkg/value"
)

// EventKind identifies what an EventRecord node represents (spec §3).
type EventKind int

const (
	KindFile EventKind = iota
	KindRule
	KindType
	KindCondition
	KindConditionBlock
	KindFilter
	KindClause
)

func (k EventKind) String() string {
	switch k {
	case KindFile:
		return "File"
	case KindRule:
		return "Rule"
	case KindType:
		return "Type"
	case KindCondition:
		return "Condition"
	case KindConditionBlock:
		return "ConditionBlock"
	case KindFilter:
		return "Filter"
	case KindClause:
		return "Clause"
	default:
		return "Unknown"
	}
}

// EventRecord is one node of the evaluation trace tree. Built during
// evaluation, read-only once Evaluate returns (spec §3).
type EventRecord struct {
	Kind         EventKind
	ContextLabel string
	Status       Status
	Message      string
	From         *value.Value
	To           *value.Value
	Comparator   string
	Children     []*EventRecord
}

// Recorder is the tree-building capability an evaluation context exposes.
// Decorators wrap a Recorder transparently, so a call-stack tracker and a
// metadata appender can layer without the evaluator knowing (spec §4.5
// "Recorder chaining").
type Recorder interface {
	StartEvaluation(kind EventKind, label string)
	EndEvaluation(kind EventKind, label, message string, from, to *value.Value, status Status, comparator string) *EventRecord
}

// treeRecorder is the base Recorder: a stack of in-progress nodes, each
// EndEvaluation call closing the top of the stack into its parent's
// Children (spec §3 EventRecord; §4.4 "Recording").
type treeRecorder struct {
	stack []*EventRecord
	root  *EventRecord
}

func newTreeRecorder(label string) *treeRecorder {
	root := &EventRecord{Kind: KindFile, ContextLabel: label}
	return &treeRecorder{stack: []*EventRecord{root}, root: root}
}

func (r *treeRecorder) StartEvaluation(kind EventKind, label string) {
	node := &EventRecord{Kind: kind, ContextLabel: label}
	parent := r.stack[len(r.stack)-1]
	parent.Children = append(parent.Children, node)
	r.stack = append(r.stack, node)
}

func (r *treeRecorder) EndEvaluation(kind EventKind, label, message string, from, to *value.Value, status Status, comparator string) *EventRecord {
	node := r.stack[len(r.stack)-1]
	r.stack = r.stack[:len(r.stack)-1]
	node.Status = status
	node.Message = message
	node.From = from
	node.To = to
	node.Comparator = comparator
	return node
}

// stackTracker decorates a Recorder, appending the active call-stack trail
// to the message of any FAIL event that carries a non-empty message (FAIL
// events without a message are passed through unchanged), for easier
// diagnosis of failures buried
// under several levels of nested/type blocks.
type stackTracker struct {
	inner Recorder
	trail []string
}

func newStackTracker(inner Recorder) *stackTracker {
	return &stackTracker{inner: inner}
}

func (s *stackTracker) StartEvaluation(kind EventKind, label string) {
	s.trail = append(s.trail, label)
	s.inner.StartEvaluation(kind, label)
}

func (s *stackTracker) EndEvaluation(kind EventKind, label, message string, from, to *value.Value, status Status, comparator string) *EventRecord {
	if status == FAIL && len(s.trail) > 0 && message != "" {
		message = fmt.Sprintf("%s (at %s)", message, strings.Join(s.trail, " > "))
	}
	s.trail = s.trail[:len(s.trail)-1]
	return s.inner.EndEvaluation(kind, label, message, from, to, status, comparator)
}

// metadataAppender decorates a Recorder, appending sibling Metadata.*
// entries whose key starts with "aws" to FAIL events rooted under
// /Resources/<name>/... — the AWS-template convention for resource
// annotations (spec §4.5 "AWS-metadata appender").
type metadataAppender struct {
	inner Recorder
	root  *value.Value
}

func newMetadataAppender(inner Recorder, root *value.Value) *metadataAppender {
	return &metadataAppender{inner: inner, root: root}
}

func (m *metadataAppender) StartEvaluation(kind EventKind, label string) {
	m.inner.StartEvaluation(kind, label)
}

func (m *metadataAppender) EndEvaluation(kind EventKind, label, message string, from, to *value.Value, status Status, comparator string) *EventRecord {
	if status == FAIL {
		if meta := m.lookupMetadata(from, to); meta != "" {
			if message != "" {
				message = message + " " + meta
			} else {
				message = meta
			}
		}
	}
	return m.inner.EndEvaluation(kind, label, message, from, to, status, comparator)
}

func (m *metadataAppender) lookupMetadata(from, to *value.Value) string {
	v := from
	if v == nil {
		v = to
	}
	if v == nil || m.root == nil {
		return ""
	}
	path := v.Path.Pointer
	if !strings.HasPrefix(path, "/Resources/") {
		return ""
	}
	rest := strings.TrimPrefix(path, "/Resources/")
	name := rest
	if idx := strings.Index(rest, "/"); idx >= 0 {
		name = rest[:idx]
	}

	resources := m.root.Get("Resources")
	if resources == nil {
		return ""
	}
	resource := resources.Get(name)
	if resource == nil {
		return ""
	}
	metadata := resource.Get("Metadata")
	if metadata == nil || metadata.Kind != value.KindMap {
		return ""
	}

	var tags []string
	for _, k := range metadata.MapKeys {
		if strings.HasPrefix(k, "aws") {
			tags = append(tags, fmt.Sprintf("%s=%s", k, metadata.MapVals[k].ScalarString()))
		}
	}
	if len(tags) == 0 {
		return ""
	}
	return "[metadata: " + strings.Join(tags, ", ") + "]"
}
