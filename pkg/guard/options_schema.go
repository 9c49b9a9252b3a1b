// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Guardlang Contributors

package guard

import (
	"encoding/json"
	"sync"

	"github.com/invopop/jsonschema"
	"github.com/samber/oops"
	jschema "github.com/santhosh-tekuri/jsonschema/v6"
)

// Options mirrors the evaluate() host-facing options of spec §6
// (verbose/strict_missing/show_summary), validated against a generated JSON
// Schema before an evaluation begins so malformed host configuration is
// caught early rather than surfacing as a confusing mid-evaluation error.
type Options struct {
	Verbose       bool   `json:"verbose"`
	StrictMissing bool   `json:"strict_missing"`
	ShowSummary   bool   `json:"show_summary"`
	ReportFormat  string `json:"report_format" jsonschema:"enum=JSON,enum=YAML,enum=JUnit,enum=SARIF,enum=SingleLine,enum=Summary"`
}

var optionsSchemaState struct {
	once   sync.Once
	schema *jschema.Schema
	err    error
}

// GenerateOptionsSchema reflects the Options struct into a JSON Schema
// document.
func GenerateOptionsSchema() ([]byte, error) {
	r := jsonschema.Reflector{DoNotReference: true}
	schema := r.Reflect(&Options{})
	schema.ID = jsonschema.ID("https://guardlang.dev/schemas/options.schema.json")
	schema.Title = "guardlang evaluate() options"

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, oops.Code("FormatError").Wrapf(err, "marshal options schema")
	}
	return append(data, '\n'), nil
}

func compiledOptionsSchema() (*jschema.Schema, error) {
	optionsSchemaState.once.Do(func() {
		schemaBytes, err := GenerateOptionsSchema()
		if err != nil {
			optionsSchemaState.err = err
			return
		}
		var schemaData any
		if err := json.Unmarshal(schemaBytes, &schemaData); err != nil {
			optionsSchemaState.err = oops.Code("FormatError").Wrapf(err, "parse options schema")
			return
		}
		c := jschema.NewCompiler()
		if err := c.AddResource("options.json", schemaData); err != nil {
			optionsSchemaState.err = oops.Code("FormatError").Wrapf(err, "add options schema resource")
			return
		}
		sch, err := c.Compile("options.json")
		if err != nil {
			optionsSchemaState.err = oops.Code("FormatError").Wrapf(err, "compile options schema")
			return
		}
		optionsSchemaState.schema = sch
	})
	return optionsSchemaState.schema, optionsSchemaState.err
}

// validateOptions checks opts against the generated schema, catching a
// malformed ReportFormat value before Evaluate runs.
func validateOptions(opts Options) error {
	sch, err := compiledOptionsSchema()
	if err != nil {
		return err
	}

	raw, err := json.Marshal(opts)
	if err != nil {
		return oops.Code("FormatError").Wrapf(err, "marshal options for validation")
	}
	var data any
	if err := json.Unmarshal(raw, &data); err != nil {
		return oops.Code("FormatError").Wrapf(err, "unmarshal options for validation")
	}

	if opts.ReportFormat == "" {
		// Unset is valid: the host simply didn't request a report,
		// schema enum validation would otherwise reject the zero value.
		return nil
	}
	if err := sch.Validate(data); err != nil {
		return oops.Code("FormatError").Wrapf(err, "validate evaluate() options")
	}
	return nil
}
