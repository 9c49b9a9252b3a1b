// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Guardlang Contributors

package lang

import "strings"

// unquoteString strips the surrounding quote character (single or double,
// per spec §4.1 "single- or double-quoted with standard escapes") and
// resolves backslash escapes. Raw is kept quoted in the AST itself (for a
// lossless parse-tree/String() round trip); callers needing the resolved
// value call this helper.
func unquoteString(raw string) string {
	if len(raw) < 2 {
		return raw
	}
	inner := raw[1 : len(raw)-1]
	var b strings.Builder
	b.Grow(len(inner))
	for i := 0; i < len(inner); i++ {
		c := inner[i]
		if c != '\\' || i+1 >= len(inner) {
			b.WriteByte(c)
			continue
		}
		i++
		switch inner[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case '\\', '"', '\'':
			b.WriteByte(inner[i])
		default:
			b.WriteByte('\\')
			b.WriteByte(inner[i])
		}
	}
	return b.String()
}

// StringValue returns the unquoted, unescaped content of a string literal.
// It panics if l.Str is nil; callers must first check l.Str != nil.
func (l *Literal) StringValue() string {
	return unquoteString(*l.Str)
}

// RegexPattern strips the "/ /" delimiters from a regex literal.
func (l *Literal) RegexPattern() string {
	s := *l.Regex
	return strings.TrimSuffix(strings.TrimPrefix(s, "/"), "/")
}

// StringValue returns the unquoted map-key filter pattern.
func (b *BracketSelector) StringValue() string {
	return unquoteString(*b.Pattern)
}

// RegexPattern strips the "/ /" delimiters from a map-key filter regex.
func (b *BracketSelector) RegexPattern() string {
	s := *b.PatternRe
	return strings.TrimSuffix(strings.TrimPrefix(s, "/"), "/")
}
