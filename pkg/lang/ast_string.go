// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Guardlang Contributors

package lang

import (
	"fmt"
	"strconv"
	"strings"
)

func (rf *RulesFile) String() string {
	parts := make([]string, len(rf.Items))
	for i, it := range rf.Items {
		parts[i] = it.String()
	}
	return strings.Join(parts, "\n")
}

func (ti *TopLevelItem) String() string {
	if ti.Assignment != nil {
		return ti.Assignment.String()
	}
	if ti.Rule != nil {
		return ti.Rule.String()
	}
	return "<empty>"
}

func (a *Assignment) String() string {
	return "let " + a.Name + " = " + a.Value.String()
}

func (av *AssignValue) String() string {
	switch {
	case av.Function != nil:
		return av.Function.String()
	case av.Query != nil:
		return av.Query.String()
	case av.Literal != nil:
		return av.Literal.String()
	default:
		return "<empty>"
	}
}

func (fc *FunctionCall) String() string {
	parts := make([]string, len(fc.Args))
	for i, a := range fc.Args {
		parts[i] = a.String()
	}
	return fc.Name + "(" + strings.Join(parts, ", ") + ")"
}

func (fa *FuncArg) String() string {
	if fa.Query != nil {
		return fa.Query.String()
	}
	if fa.Literal != nil {
		return fa.Literal.String()
	}
	return "<empty>"
}

func (r *Rule) String() string {
	var b strings.Builder
	b.WriteString("rule ")
	b.WriteString(r.Name)
	if r.When != nil {
		b.WriteString(" when ")
		b.WriteString(r.When.String())
	}
	b.WriteByte(' ')
	b.WriteString(r.Body.String())
	if r.Message != nil {
		b.WriteString(" ")
		b.WriteString(*r.Message)
	}
	return b.String()
}

func (b *Block) String() string {
	parts := make([]string, len(b.Statements))
	for i, s := range b.Statements {
		parts[i] = s.String()
	}
	return "{ " + strings.Join(parts, " ") + " }"
}

func (s *Statement) String() string {
	switch {
	case s.Assignment != nil:
		return s.Assignment.String()
	case s.TypeBlock != nil:
		return s.TypeBlock.String()
	case s.Nested != nil:
		return s.Nested.String()
	case s.Clauses != nil:
		return s.Clauses.String()
	default:
		return "<empty>"
	}
}

func (tb *TypeBlock) String() string {
	return tb.TypeName + " " + tb.Body.String()
}

func (eb *ExprBlock) String() string {
	parts := make([]string, len(eb.Groups))
	for i, g := range eb.Groups {
		parts[i] = g.String()
	}
	return strings.Join(parts, " ")
}

func (og *OrGroup) String() string {
	parts := make([]string, len(og.Clauses))
	for i, c := range og.Clauses {
		parts[i] = c.String()
	}
	return strings.Join(parts, " or ")
}

func (c *Clause) String() string {
	var body string
	switch {
	case c.Paren != nil:
		body = "(" + c.Paren.String() + ")"
	case c.Access != nil:
		body = c.Access.String()
	case c.NamedRef != nil:
		body = c.NamedRef.String()
	default:
		body = "<empty>"
	}
	if c.Negated {
		return "not " + body
	}
	return body
}

func (nr *NamedRuleClause) String() string {
	return nr.Name
}

func (ac *AccessClause) String() string {
	return ac.LHS.String() + " " + ac.Cmp.String()
}

func (at *AccessTerm) String() string {
	if at.Function != nil {
		return at.Function.String()
	}
	if at.Query != nil {
		return at.Query.String()
	}
	return "<empty>"
}

func (cmp *Comparator) String() string {
	if cmp.RHS != nil {
		return cmp.Op + " " + cmp.RHS.String()
	}
	return cmp.Op
}

func (r *RHS) String() string {
	switch {
	case r.List != nil:
		return r.List.String()
	case r.Query != nil:
		return r.Query.String()
	case r.Literal != nil:
		return r.Literal.String()
	default:
		return "<empty>"
	}
}

func (q *AccessQuery) String() string {
	var b strings.Builder
	if q.Some {
		b.WriteString("some ")
	}
	if q.VarRef {
		b.WriteByte('%')
	}
	b.WriteString(q.Root)
	for _, p := range q.Parts {
		b.WriteString(p.String())
	}
	return b.String()
}

func (p *QueryPart) String() string {
	switch {
	case p.Key != "":
		return "." + p.Key
	case p.WildcardDot:
		return ".*"
	case p.Bracket != nil:
		return "[" + p.Bracket.String() + "]"
	default:
		return ""
	}
}

func (b *BracketSelector) String() string {
	switch {
	case b.AllIndices:
		return "*"
	case b.Index != nil:
		return strconv.FormatFloat(*b.Index, 'g', -1, 64)
	case b.Pattern != nil:
		return *b.Pattern
	case b.PatternRe != nil:
		return *b.PatternRe
	case b.Filter != nil:
		return b.Filter.String()
	default:
		return "<empty>"
	}
}

func (l *Literal) String() string {
	switch {
	case l.Str != nil:
		return *l.Str
	case l.Number != nil:
		v := *l.Number
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%g", v)
	case l.Bool != nil:
		return *l.Bool
	case l.Regex != nil:
		return *l.Regex
	case l.Range != nil:
		return *l.Range
	default:
		return "<empty>"
	}
}

func (ll *LiteralList) String() string {
	parts := make([]string, len(ll.Values))
	for i, v := range ll.Values {
		parts[i] = v.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
