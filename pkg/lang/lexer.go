// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Guardlang Contributors

// Package lang defines the rule-language AST and the participle-based
// parser that produces it. The AST nodes are designed to survive JSON/YAML
// serialization round-trips for the parse-tree client surface (spec §6).
package lang

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// dslLexer defines the token types for the rule language.
// Order matters: longer/more-specific patterns must come before shorter
// ones that share a prefix (">=" before ">", "not in" before bare "not",
// type-qualified identifiers like "AWS::EC2::Volume" before plain Ident).
var dslLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `#[^\n]*`},
	{Name: "Message", Pattern: `<<(?:[^>]|>[^>])*>>`},
	{Name: "RangeLit", Pattern: `r[\(\[]\s*-?[0-9]+(?:\.[0-9]+)?\s*,\s*-?[0-9]+(?:\.[0-9]+)?\s*[\)\]]`},
	{Name: "Regex", Pattern: `/(?:\\/|[^/\n])*/`},
	{Name: "String", Pattern: `"(?:[^"\\]|\\.)*"|'(?:[^'\\]|\\.)*'`},
	{Name: "Number", Pattern: `-?[0-9]+(?:\.[0-9]+)?`},
	{Name: "OpGe", Pattern: `>=`},
	{Name: "OpLe", Pattern: `<=`},
	{Name: "OpEq", Pattern: `==`},
	{Name: "OpNe", Pattern: `!=`},
	{Name: "MsgOpen", Pattern: `<<`},
	{Name: "OpGt", Pattern: `>`},
	{Name: "OpLt", Pattern: `<`},
	{Name: "NotIn", Pattern: `not\s+in\b`},
	{Name: "TypeIdent", Pattern: `[A-Za-z_][A-Za-z0-9_]*(?:::[A-Za-z_][A-Za-z0-9_]*)+`},
	{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_]*`},
	{Name: "Percent", Pattern: `%`},
	{Name: "Dot", Pattern: `\.`},
	{Name: "Star", Pattern: `\*`},
	{Name: "Punct", Pattern: `[(){}\[\],;]`},
	{Name: "whitespace", Pattern: `\s+`},
})

// reservedWords MUST NOT appear as a bare attribute/rule identifier.
var reservedWords = map[string]bool{
	"rule": true, "when": true, "let": true, "or": true, "not": true,
	"this": true, "in": true, "exists": true, "empty": true,
	"is_string": true, "is_list": true, "is_map": true, "is_null": true,
	"is_int": true, "is_bool": true, "is_float": true,
	"true": true, "false": true, "some": true,
}

// IsReservedWord returns true if word is a rule-language keyword.
func IsReservedWord(word string) bool {
	return reservedWords[word]
}
