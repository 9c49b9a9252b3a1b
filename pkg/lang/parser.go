// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Guardlang Contributors

package lang

import (
	"encoding/json"
	"fmt"

	"github.com/alecthomas/participle/v2"
	"github.com/samber/oops"
)

// MaxNestingDepth bounds recursion through parenthesized/nested expressions.
// It is checked once, on the parsed AST; the evaluator has no depth guard of
// its own.
const MaxNestingDepth = 32

// NewParser constructs a participle parser for the rule-language grammar.
// MaxLookahead enables full backtracking: many alternatives (AccessTerm vs.
// NamedRuleClause, FunctionCall vs. AccessQuery) share an Ident prefix and
// can only be disambiguated by speculatively trying each.
func NewParser() (*participle.Parser[RulesFile], error) {
	return participle.Build[RulesFile](
		participle.Lexer(dslLexer),
		participle.Elide("Comment", "whitespace"),
		participle.UseLookahead(participle.MaxLookahead),
	)
}

var parser *participle.Parser[RulesFile]

func init() {
	var err error
	parser, err = NewParser()
	if err != nil {
		panic(fmt.Sprintf("failed to build rule-language parser: %v", err))
	}
}

// ParseError wraps a parse failure with position info and the surrounding
// source for human-readable diagnostics (spec §4.1).
type ParseError struct {
	Line      int
	Column    int
	FileLabel string
	Message   string
	Remaining string
}

func (e *ParseError) Error() string {
	if e.FileLabel != "" {
		return fmt.Sprintf("%s:%d:%d: %s", e.FileLabel, e.Line, e.Column, e.Message)
	}
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Column, e.Message)
}

// ParseRules parses rule-file text into a typed AST. fileLabel is the file
// label used in error messages (spec §6: parse_rules(source, file_label)).
func ParseRules(text string, fileLabel string) (*RulesFile, error) {
	rf, err := parser.ParseString(fileLabel, text)
	if err != nil {
		if uerr, ok := err.(participle.UnexpectedTokenError); ok {
			return nil, &ParseError{
				Line:      uerr.Pos.Line,
				Column:    uerr.Pos.Column,
				FileLabel: fileLabel,
				Message:   uerr.Error(),
				Remaining: uerr.Unexpected.Value,
			}
		}
		return nil, oops.Code("ParseError").With("file", fileLabel).Wrapf(err, "parsing rules file")
	}

	if err := validateRulesFile(rf); err != nil {
		return nil, err
	}
	return rf, nil
}

// validateRulesFile rejects reserved-word attribute names and excessive
// nesting depth across every rule in the file.
func validateRulesFile(rf *RulesFile) error {
	for _, item := range rf.Items {
		if item.Rule == nil {
			continue
		}
		if IsReservedWord(item.Rule.Name) {
			return oops.Code("ParseError").Errorf("reserved word %q cannot be used as a rule name", item.Rule.Name)
		}
		if item.Rule.When != nil {
			if err := validateExprBlock(item.Rule.When, 0); err != nil {
				return err
			}
		}
		if err := validateBlock(item.Rule.Body, 0); err != nil {
			return err
		}
	}
	return nil
}

func validateBlock(b *Block, depth int) error {
	if depth > MaxNestingDepth {
		return oops.Code("ParseError").Errorf("nesting depth exceeds maximum of %d", MaxNestingDepth)
	}
	for _, s := range b.Statements {
		switch {
		case s.TypeBlock != nil:
			if err := validateBlock(s.TypeBlock.Body, depth+1); err != nil {
				return err
			}
		case s.Nested != nil:
			if err := validateBlock(s.Nested, depth+1); err != nil {
				return err
			}
		case s.Clauses != nil:
			for _, c := range s.Clauses.Clauses {
				if err := validateClause(c, depth); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func validateExprBlock(eb *ExprBlock, depth int) error {
	if depth > MaxNestingDepth {
		return oops.Code("ParseError").Errorf("nesting depth exceeds maximum of %d", MaxNestingDepth)
	}
	for _, g := range eb.Groups {
		for _, c := range g.Clauses {
			if err := validateClause(c, depth); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateClause(c *Clause, depth int) error {
	if c.Paren != nil {
		return validateExprBlock(c.Paren, depth+1)
	}
	if c.Access != nil {
		return validateAccessTerm(c.Access.LHS)
	}
	return nil
}

func validateAccessTerm(t *AccessTerm) error {
	if t.Query != nil {
		return validateQueryPath(t.Query)
	}
	if t.Function != nil {
		for _, a := range t.Function.Args {
			if a.Query != nil {
				if err := validateQueryPath(a.Query); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func validateQueryPath(q *AccessQuery) error {
	for _, p := range q.Parts {
		if p.Key != "" && IsReservedWord(p.Key) {
			return oops.Code("ParseError").Errorf("reserved word %q cannot be used as an attribute name", p.Key)
		}
	}
	return nil
}

// WrapAST wraps a marshaled AST with grammar_version for storage/tooling.
func WrapAST(ast map[string]any) map[string]any {
	if ast == nil {
		return map[string]any{"grammar_version": GrammarVersion}
	}
	result := make(map[string]any, len(ast)+1)
	for k, v := range ast {
		result[k] = v
	}
	result["grammar_version"] = GrammarVersion
	return result
}

// CompileRulesFile serializes a parsed RulesFile to JSON with grammar_version,
// for the `parse-tree` client surface (spec §6).
func CompileRulesFile(rf *RulesFile) (json.RawMessage, error) {
	data, err := json.Marshal(rf)
	if err != nil {
		return nil, oops.Code("FormatError").Wrapf(err, "marshal rules file")
	}

	var ast map[string]any
	if err := json.Unmarshal(data, &ast); err != nil {
		return nil, oops.Code("FormatError").Wrapf(err, "unmarshal rules file")
	}

	result, err := json.Marshal(WrapAST(ast))
	if err != nil {
		return nil, oops.Code("FormatError").Wrapf(err, "marshal wrapped AST")
	}
	return json.RawMessage(result), nil
}
