// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Guardlang Contributors

// Package format serializes an evaluation EventRecord tree into one of the
// external report formats a hosting CLI would present to a user (spec §6).
package format

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/guardlang/guardlang/pkg/eval"
)

// Format enumerates the wire shapes SerializeEvent can produce.
type Format int

const (
	JSON Format = iota
	YAML
	JUnit
	SARIF
	SingleLine
	Summary
)

func (f Format) String() string {
	switch f {
	case JSON:
		return "JSON"
	case YAML:
		return "YAML"
	case JUnit:
		return "JUnit"
	case SARIF:
		return "SARIF"
	case SingleLine:
		return "SingleLine"
	case Summary:
		return "Summary"
	default:
		return "Unknown"
	}
}

// SerializeEvent renders an EventRecord tree in the requested format.
func SerializeEvent(event *eval.EventRecord, f Format) ([]byte, error) {
	switch f {
	case JSON:
		return serializeJSON(event)
	case YAML:
		return serializeYAML(event)
	case JUnit:
		return serializeJUnit(event)
	case SARIF:
		return serializeSARIF(event)
	case SingleLine:
		return []byte(serializeSingleLine(event)), nil
	case Summary:
		return []byte(serializeSummary(event)), nil
	default:
		return nil, fmt.Errorf("unknown format %v", f)
	}
}

// wireEvent is the JSON/YAML projection of an EventRecord: value nodes
// collapse to their scalar string form since report consumers only need the
// rendered value, not the full path-aware tree (spec §6 report surface).
type wireEvent struct {
	Kind       string       `json:"kind" yaml:"kind"`
	Label      string       `json:"label,omitempty" yaml:"label,omitempty"`
	Status     string       `json:"status" yaml:"status"`
	Message    string       `json:"message,omitempty" yaml:"message,omitempty"`
	From       string       `json:"from,omitempty" yaml:"from,omitempty"`
	To         string       `json:"to,omitempty" yaml:"to,omitempty"`
	Comparator string       `json:"comparator,omitempty" yaml:"comparator,omitempty"`
	Children   []*wireEvent `json:"children,omitempty" yaml:"children,omitempty"`
}

func toWire(e *eval.EventRecord) *wireEvent {
	if e == nil {
		return nil
	}
	w := &wireEvent{
		Kind:       e.Kind.String(),
		Label:      e.ContextLabel,
		Status:     e.Status.String(),
		Message:    e.Message,
		Comparator: e.Comparator,
	}
	if e.From != nil {
		w.From = e.From.ScalarString()
	}
	if e.To != nil {
		w.To = e.To.ScalarString()
	}
	for _, c := range e.Children {
		w.Children = append(w.Children, toWire(c))
	}
	return w
}

func serializeJSON(event *eval.EventRecord) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(toWire(event)); err != nil {
		return nil, fmt.Errorf("serialize JSON report: %w", err)
	}
	return buf.Bytes(), nil
}

func serializeYAML(event *eval.EventRecord) ([]byte, error) {
	out, err := yaml.Marshal(toWire(event))
	if err != nil {
		return nil, fmt.Errorf("serialize YAML report: %w", err)
	}
	return out, nil
}

// junitTestSuite/junitTestCase follow the de-facto JUnit XML schema most CI
// systems consume; each rule, whatever its status, becomes one <testcase>
// (clauses do not get testcases of their own).
type junitTestSuites struct {
	XMLName xml.Name `xml:"testsuites"`
	Suites  []junitTestSuite
}

type junitTestSuite struct {
	XMLName  xml.Name `xml:"testsuite"`
	Name     string   `xml:"name,attr"`
	Tests    int      `xml:"tests,attr"`
	Failures int      `xml:"failures,attr"`
	Skipped  int      `xml:"skipped,attr"`
	Cases    []junitTestCase
}

type junitTestCase struct {
	XMLName xml.Name      `xml:"testcase"`
	Name    string        `xml:"name,attr"`
	Failure *junitFailure `xml:"failure,omitempty"`
	Skip    *junitSkip    `xml:"skipped,omitempty"`
}

type junitFailure struct {
	Message string `xml:"message,attr"`
}

type junitSkip struct {
	Message string `xml:"message,attr"`
}

func serializeJUnit(event *eval.EventRecord) ([]byte, error) {
	suite := junitTestSuite{Name: event.ContextLabel}
	for _, rule := range event.Children {
		if rule.Kind != eval.KindRule {
			continue
		}
		tc := junitTestCase{Name: rule.ContextLabel}
		suite.Tests++
		switch rule.Status {
		case eval.FAIL:
			suite.Failures++
			tc.Failure = &junitFailure{Message: firstNonEmpty(rule.Message, "rule failed")}
		case eval.SKIP:
			suite.Skipped++
			tc.Skip = &junitSkip{Message: "rule skipped"}
		}
		suite.Cases = append(suite.Cases, tc)
	}

	doc := junitTestSuites{Suites: []junitTestSuite{suite}}
	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("serialize JUnit report: %w", err)
	}
	return append([]byte(xml.Header), out...), nil
}

// sarifLog is a minimal SARIF 2.1.0 document: one run, one rule-check tool,
// one result per failing clause (spec's report-format table).
type sarifLog struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool    sarifTool     `json:"tool"`
	Results []sarifResult `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type sarifResult struct {
	RuleID  string          `json:"ruleId"`
	Level   string          `json:"level"`
	Message sarifMessage    `json:"message"`
	Locations []sarifLocation `json:"locations,omitempty"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysicalLocation `json:"physicalLocation"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
}

type sarifArtifactLocation struct {
	URI string `json:"uri"`
}

func serializeSARIF(event *eval.EventRecord) ([]byte, error) {
	run := sarifRun{Tool: sarifTool{Driver: sarifDriver{Name: "guardlang", Version: "1"}}}

	var walk func(e *eval.EventRecord, ruleName string)
	walk = func(e *eval.EventRecord, ruleName string) {
		name := ruleName
		if e.Kind == eval.KindRule {
			name = e.ContextLabel
		}
		if e.Kind == eval.KindClause && e.Status == eval.FAIL {
			res := sarifResult{
				RuleID:  name,
				Level:   "error",
				Message: sarifMessage{Text: firstNonEmpty(e.Message, "clause failed")},
			}
			if e.From != nil && e.From.Path.Pointer != "" {
				res.Locations = []sarifLocation{{
					PhysicalLocation: sarifPhysicalLocation{
						ArtifactLocation: sarifArtifactLocation{URI: e.From.Path.Pointer},
					},
				}}
			}
			run.Results = append(run.Results, res)
		}
		for _, c := range e.Children {
			walk(c, name)
		}
	}
	walk(event, "")

	doc := sarifLog{
		Schema:  "https://raw.githubusercontent.com/oasis-tcs/sarif-spec/master/Schemata/sarif-schema-2.1.0.json",
		Version: "2.1.0",
		Runs:    []sarifRun{run},
	}
	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("serialize SARIF report: %w", err)
	}
	return out, nil
}

func serializeSingleLine(event *eval.EventRecord) string {
	var lines []string
	var walk func(e *eval.EventRecord)
	walk = func(e *eval.EventRecord) {
		if e.Kind == eval.KindRule {
			lines = append(lines, fmt.Sprintf("[%s] rule=%s %s", e.Status, e.ContextLabel, e.Message))
		}
		for _, c := range e.Children {
			walk(c)
		}
	}
	walk(event)
	return strings.Join(lines, "\n")
}

func serializeSummary(event *eval.EventRecord) string {
	var pass, fail, skip int
	var walk func(e *eval.EventRecord)
	walk = func(e *eval.EventRecord) {
		if e.Kind == eval.KindRule {
			switch e.Status {
			case eval.PASS:
				pass++
			case eval.FAIL:
				fail++
			case eval.SKIP:
				skip++
			}
		}
		for _, c := range e.Children {
			walk(c)
		}
	}
	walk(event)
	return fmt.Sprintf("PASS=%d FAIL=%d SKIP=%d", pass, fail, skip)
}

func firstNonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}
