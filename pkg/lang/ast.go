// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Guardlang Contributors

package lang

import (
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
)

// GrammarVersion is the current rule-language grammar version, included in
// serialized parse trees for forward-compatible evolution (spec §6).
const GrammarVersion = 1

// --- Top level ---

// RulesFile is an ordered sequence of global assignments and named rules.
//
// Grammar: rules_file := (global_assignment | rule)*
type RulesFile struct {
	Pos   lexer.Position  `parser:"" json:"-"`
	Items []*TopLevelItem `parser:"@@*" json:"items"`
}

// TopLevelItem is one element of a RulesFile.
type TopLevelItem struct {
	Pos        lexer.Position `parser:"" json:"-"`
	Assignment *Assignment    `parser:"(  @@" json:"assignment,omitempty"`
	Rule       *Rule          `parser:" | @@ )" json:"rule,omitempty"`
}

// Assignment is a `let` binding: a literal, an access query, or a function
// call. Used both at the top level (global) and inside a Block (local).
//
// Grammar: assignment := "let" IDENT "=" (literal | access_query | function_call)
type Assignment struct {
	Pos   lexer.Position `parser:"" json:"-"`
	Name  string         `parser:"'let' @Ident '='" json:"name"`
	Value *AssignValue   `parser:"@@" json:"value"`
}

// AssignValue is the right-hand side of a `let` assignment.
type AssignValue struct {
	Pos      lexer.Position `parser:"" json:"-"`
	Function *FunctionCall  `parser:"(  @@" json:"function,omitempty"`
	Query    *AccessQuery   `parser:" | @@" json:"query,omitempty"`
	Literal  *Literal       `parser:" | @@ )" json:"literal,omitempty"`
}

// FunctionCall invokes one of the built-in functions (spec §4.6).
type FunctionCall struct {
	Pos  lexer.Position `parser:"" json:"-"`
	Name string         `parser:"@Ident"  json:"name"`
	Args []*FuncArg      `parser:"'(' (@@ (',' @@)*)? ')'" json:"args,omitempty"`
}

// FuncArg is a single built-in function argument.
type FuncArg struct {
	Pos     lexer.Position `parser:"" json:"-"`
	Query   *AccessQuery   `parser:"(  @@" json:"query,omitempty"`
	Literal *Literal       `parser:" | @@ )" json:"literal,omitempty"`
}

// Rule is a named top-level rule.
//
// Grammar: rule := "rule" IDENT ("when" expression)? block custom_message?
type Rule struct {
	Pos     lexer.Position `parser:"" json:"-"`
	Name    string         `parser:"'rule' @Ident" json:"name"`
	When    *ExprBlock     `parser:"('when' @@)?" json:"when,omitempty"`
	Body    *Block         `parser:"@@" json:"body"`
	Message *string        `parser:"@Message?" json:"message,omitempty"`
}

// CustomMessage strips the << >> delimiters from the raw message token.
func (r *Rule) CustomMessage() string {
	if r.Message == nil {
		return ""
	}
	s := *r.Message
	s = strings.TrimPrefix(s, "<<")
	s = strings.TrimSuffix(s, ">>")
	return s
}

// --- Blocks and statements ---

// Block is an ordered sequence of statements enclosed in braces.
//
// Grammar: block := "{" body "}"; body := (assignment | clause | nested_block)*
type Block struct {
	Pos        lexer.Position `parser:"" json:"-"`
	Statements []*Statement   `parser:"'{' @@* '}'" json:"statements"`
}

// Statement is one element of a Block body: an assignment, a type-narrowing
// block, a nested block, or an OR-joined group of clauses (conjunction with
// adjacent statements is implicit — spec §3 Block invariant).
type Statement struct {
	Pos        lexer.Position `parser:"" json:"-"`
	Assignment *Assignment    `parser:"(  @@" json:"assignment,omitempty"`
	TypeBlock  *TypeBlock     `parser:" | @@" json:"type_block,omitempty"`
	Nested     *Block         `parser:" | @@" json:"nested,omitempty"`
	Clauses    *OrGroup       `parser:" | @@ )" json:"clauses,omitempty"`
}

// TypeBlock narrows evaluation to the subtree of resources whose Type
// equals TypeName, evaluating Body once per matching resource.
type TypeBlock struct {
	Pos      lexer.Position `parser:"" json:"-"`
	TypeName string         `parser:"@TypeIdent" json:"type_name"`
	Body     *Block         `parser:"@@" json:"body"`
}

// --- Boolean expression grammar (shared by when-guards, parens, filters) ---

// ExprBlock is an AND-of-OR-groups: the same disjunction/conjunction nesting
// used by a Block's clause statements, but usable wherever a stand-alone
// boolean expression is needed (when-guards, filter predicates).
type ExprBlock struct {
	Pos    lexer.Position `parser:"" json:"-"`
	Groups []*OrGroup     `parser:"@@+" json:"groups"`
}

// OrGroup is a chain of clauses joined by "or" (default adjacency is AND
// at the enclosing ExprBlock/Block level; "or" binds tighter — spec §4.1).
type OrGroup struct {
	Pos     lexer.Position `parser:"" json:"-"`
	Clauses []*Clause      `parser:"@@ ('or' @@)*" json:"clauses"`
}

// Clause is a single guard clause: optionally negated, and either a
// parenthesized sub-expression, an access clause, or a named-rule reference.
type Clause struct {
	Pos      lexer.Position   `parser:"" json:"-"`
	Negated  bool             `parser:"@'not'?" json:"negated,omitempty"`
	Paren    *ExprBlock       `parser:"(  '(' @@ ')'" json:"paren,omitempty"`
	Access   *AccessClause    `parser:" | @@" json:"access,omitempty"`
	NamedRef *NamedRuleClause `parser:" | @@ )" json:"named_ref,omitempty"`
}

// NamedRuleClause references another named rule by name.
type NamedRuleClause struct {
	Pos  lexer.Position `parser:"" json:"-"`
	Name string         `parser:"@Ident" json:"name"`
}

// AccessClause compares a query (or a function-call over a query) against
// a comparator and optional right-hand side.
//
// Grammar: access_clause := access_query comparator rhs
type AccessClause struct {
	Pos  lexer.Position `parser:"" json:"-"`
	LHS  *AccessTerm    `parser:"@@" json:"lhs"`
	Cmp  *Comparator    `parser:"@@" json:"comparator"`
}

// AccessTerm is the left-hand side of an AccessClause: a bare query, or a
// built-in function applied to a query (e.g. count(...)).
type AccessTerm struct {
	Pos      lexer.Position `parser:"" json:"-"`
	Function *FunctionCall  `parser:"(  @@" json:"function,omitempty"`
	Query    *AccessQuery   `parser:" | @@ )" json:"query,omitempty"`
}

// Comparator is the operator plus optional right-hand side of an
// access_clause. exists/empty/is_* are unary (RHS is nil).
//
// Grammar: rhs := literal | access_query | "[" literal_list "]"
type Comparator struct {
	Pos lexer.Position `parser:"" json:"-"`
	Op  string         `parser:"@(OpEq|OpNe|OpGe|OpLe|OpGt|OpLt|NotIn|'in'|'exists'|'empty'|'is_string'|'is_list'|'is_map'|'is_null'|'is_int'|'is_bool'|'is_float')" json:"op"`
	RHS *RHS           `parser:"@@?" json:"rhs,omitempty"`
}

// IsUnary reports whether the comparator never takes a right-hand side.
func (c *Comparator) IsUnary() bool {
	switch c.Op {
	case "exists", "empty", "is_string", "is_list", "is_map", "is_null", "is_int", "is_bool", "is_float":
		return true
	default:
		return false
	}
}

// RHS is the right-hand side of a comparator. Literal is tried before Query
// so that `true`/`false` parse as booleans, and a query never starts with
// the `or` keyword, so `A exists or B exists` stays a disjunction.
type RHS struct {
	Pos     lexer.Position `parser:"" json:"-"`
	List    *LiteralList   `parser:"(  '[' @@ ']'" json:"list,omitempty"`
	Literal *Literal       `parser:" | @@" json:"literal,omitempty"`
	Query   *AccessQuery   `parser:" | (?! 'or') @@ )" json:"query,omitempty"`
}

// --- Access queries ---

// AccessQuery is an ordered list of QueryPart segments rooted at an
// identifier, a "%"-prefixed variable reference, or the "this" keyword.
//
// Grammar: access_query := (IDENT | "%" IDENT | "this") ( "." (IDENT | "*") | "[" index_or_filter "]" )*
type AccessQuery struct {
	Pos      lexer.Position `parser:"" json:"-"`
	Some     bool           `parser:"@'some'?" json:"some,omitempty"`
	VarRef   bool           `parser:"@Percent?" json:"var_ref,omitempty"`
	Root     string         `parser:"@(Ident|'this')" json:"root"`
	Parts    []*QueryPart   `parser:"@@*" json:"parts,omitempty"`
}

// MatchAll reports the query's empty-result strictness (spec §4.3): the
// "some" qualifier relaxes an otherwise-strict query to tolerate empty
// resolution (SKIP instead of FAIL).
func (q *AccessQuery) MatchAll() bool {
	return !q.Some
}

// QueryPart is one path segment of an AccessQuery.
type QueryPart struct {
	Pos         lexer.Position   `parser:"" json:"-"`
	Key         string           `parser:"(  Dot @Ident" json:"key,omitempty"`
	WildcardDot bool             `parser:" | Dot @Star" json:"wildcard_dot,omitempty"`
	Bracket     *BracketSelector `parser:" | '[' @@ ']' )" json:"bracket,omitempty"`
}

// BracketSelector is the content of a "[ ... ]" query segment: an index, a
// "*" (all indices), a map-key filter pattern, or a filter predicate block.
type BracketSelector struct {
	Pos         lexer.Position `parser:"" json:"-"`
	AllIndices  bool           `parser:"(  @Star" json:"all_indices,omitempty"`
	Index       *float64       `parser:" | @Number" json:"index,omitempty"`
	Pattern     *string        `parser:" | @String" json:"pattern,omitempty"`
	PatternRe   *string        `parser:" | @Regex" json:"pattern_re,omitempty"`
	Filter      *ExprBlock     `parser:" | @@ )" json:"filter,omitempty"`
}

// --- Literals ---

// Literal is a scalar value: string, number, boolean, regex, or range.
type Literal struct {
	Pos    lexer.Position `parser:"" json:"-"`
	Str    *string        `parser:"(  @String" json:"str,omitempty"`
	Number *float64       `parser:" | @Number" json:"number,omitempty"`
	Bool   *string        `parser:" | @('true'|'false')" json:"bool,omitempty"`
	Regex  *string        `parser:" | @Regex" json:"regex,omitempty"`
	Range  *string        `parser:" | @RangeLit )" json:"range,omitempty"`
}

// IsBoolTrue reports whether a parsed bool literal is "true".
func (l *Literal) IsBoolTrue() bool {
	return l.Bool != nil && *l.Bool == "true"
}

// LiteralList is a bracketed, comma-separated list of literals.
//
// Grammar: literal_list := literal ("," literal)*
type LiteralList struct {
	Pos    lexer.Position `parser:"" json:"-"`
	Values []*Literal     `parser:"@@ (',' @@)*" json:"values"`
}
