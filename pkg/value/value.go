// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Guardlang Contributors

// Package value implements the path-aware value model: a tagged tree of
// scalars, lists, and maps, where every node carries the JSON-pointer path
// it was constructed at plus an optional source line/column. Rule files are
// evaluated over this model, never over the raw JSON/YAML document.
package value

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Kind identifies which variant of the PathAwareValue tagged union a node is.
type Kind int

// Kind constants enumerate the PathAwareValue variants.
const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindChar
	KindRegex
	KindRangeInt
	KindRangeFloat
	KindList
	KindMap
)

var kindStrings = [...]string{
	"Null", "Bool", "Int", "Float", "String", "Char", "Regex",
	"RangeInt", "RangeFloat", "List", "Map",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindStrings) {
		return kindStrings[k]
	}
	return fmt.Sprintf("unknown(%d)", int(k))
}

// Source records the originating line/column of a value when the backing
// document format supplies one (YAML always does; JSON parsed via the
// token-based decoder does not attach columns and leaves HasSource false).
type Source struct {
	Line      int
	Column    int
	HasSource bool
}

// Path is a JSON-pointer-like path string plus its optional source location.
type Path struct {
	Pointer string
	Source  Source
}

// Child returns the path for a map-key or list-index descendant of p.
func (p Path) Child(segment string) Path {
	return Path{Pointer: p.Pointer + "/" + segment}
}

func (p Path) String() string {
	return p.Pointer
}

// RangeBound describes one side of an int/float range literal, e.g. r[a,b).
type RangeBound struct {
	Inclusive bool
}

// RangeInt is the payload of a KindRangeInt value.
type RangeInt struct {
	Lower, Upper             int64
	LowerIncl, UpperIncl bool
}

// Contains reports whether n falls within the range.
func (r RangeInt) Contains(n int64) bool {
	lowOK := n > r.Lower || (r.LowerIncl && n == r.Lower)
	highOK := n < r.Upper || (r.UpperIncl && n == r.Upper)
	return lowOK && highOK
}

func (r RangeInt) String() string {
	lb, ub := "(", ")"
	if r.LowerIncl {
		lb = "["
	}
	if r.UpperIncl {
		ub = "]"
	}
	return fmt.Sprintf("r%s%d,%d%s", lb, r.Lower, r.Upper, ub)
}

// RangeFloat is the payload of a KindRangeFloat value.
type RangeFloat struct {
	Lower, Upper             float64
	LowerIncl, UpperIncl bool
}

// Contains reports whether n falls within the range.
func (r RangeFloat) Contains(n float64) bool {
	lowOK := n > r.Lower || (r.LowerIncl && n == r.Lower)
	highOK := n < r.Upper || (r.UpperIncl && n == r.Upper)
	return lowOK && highOK
}

func (r RangeFloat) String() string {
	lb, ub := "(", ")"
	if r.LowerIncl {
		lb = "["
	}
	if r.UpperIncl {
		ub = "]"
	}
	return fmt.Sprintf("r%s%g,%g%s", lb, r.Lower, r.Upper, ub)
}

// Value is a single node of the path-aware value tree. Exactly the fields
// relevant to Kind are meaningful; the rest are zero.
type Value struct {
	Kind Kind
	Path Path

	Bool  bool
	Int   int64
	Float float64
	Str   string
	Char  rune

	RegexSrc     string
	regexCompiled *regexp.Regexp

	RangeI RangeInt
	RangeF RangeFloat

	List []*Value

	// Maps preserve both an ordered key list and a key->value lookup so
	// callers can choose iteration order or direct access (spec §3).
	MapKeys []string
	MapVals map[string]*Value
}

// Null constructs a KindNull value at the given path.
func Null(path Path) *Value { return &Value{Kind: KindNull, Path: path} }

// NewBool constructs a KindBool value.
func NewBool(path Path, b bool) *Value { return &Value{Kind: KindBool, Path: path, Bool: b} }

// NewInt constructs a KindInt value.
func NewInt(path Path, n int64) *Value { return &Value{Kind: KindInt, Path: path, Int: n} }

// NewFloat constructs a KindFloat value.
func NewFloat(path Path, f float64) *Value { return &Value{Kind: KindFloat, Path: path, Float: f} }

// NewString constructs a KindString value.
func NewString(path Path, s string) *Value { return &Value{Kind: KindString, Path: path, Str: s} }

// NewChar constructs a KindChar value.
func NewChar(path Path, c rune) *Value { return &Value{Kind: KindChar, Path: path, Char: c} }

// NewRegex constructs a KindRegex value, compiling src. Returns an error if
// src is not a valid RE2 pattern.
func NewRegex(path Path, src string) (*Value, error) {
	re, err := regexp.Compile(src)
	if err != nil {
		return nil, fmt.Errorf("compile regex literal %q: %w", src, err)
	}
	return &Value{Kind: KindRegex, Path: path, RegexSrc: src, regexCompiled: re}, nil
}

// Regexp returns the compiled pattern backing a KindRegex value.
func (v *Value) Regexp() *regexp.Regexp { return v.regexCompiled }

// NewRangeInt constructs a KindRangeInt value.
func NewRangeInt(path Path, r RangeInt) *Value {
	return &Value{Kind: KindRangeInt, Path: path, RangeI: r}
}

// NewRangeFloat constructs a KindRangeFloat value.
func NewRangeFloat(path Path, r RangeFloat) *Value {
	return &Value{Kind: KindRangeFloat, Path: path, RangeF: r}
}

// NewList constructs a KindList value from already-constructed children.
// Each child's path must already begin with path's pointer (invariant 3a).
func NewList(path Path, items []*Value) *Value {
	return &Value{Kind: KindList, Path: path, List: items}
}

// NewMap constructs a KindMap value. keys defines iteration order; vals must
// contain exactly the entries named in keys.
func NewMap(path Path, keys []string, vals map[string]*Value) *Value {
	return &Value{Kind: KindMap, Path: path, MapKeys: keys, MapVals: vals}
}

// IsScalar reports whether the value is a leaf (non-List, non-Map) kind.
func (v *Value) IsScalar() bool {
	return v.Kind != KindList && v.Kind != KindMap
}

// Get returns the map entry for key, or nil if v is not a map or the key is
// absent.
func (v *Value) Get(key string) *Value {
	if v == nil || v.Kind != KindMap {
		return nil
	}
	return v.MapVals[key]
}

// Index returns the list entry at i (negative counts from the end), or nil
// if v is not a list or the index is out of range.
func (v *Value) Index(i int) *Value {
	if v == nil || v.Kind != KindList {
		return nil
	}
	n := len(v.List)
	if i < 0 {
		i += n
	}
	if i < 0 || i >= n {
		return nil
	}
	return v.List[i]
}

// Equal compares value content, ignoring paths (invariant 3b).
func (v *Value) Equal(other *Value) bool {
	if v == nil || other == nil {
		return v == other
	}
	if v.Kind != other.Kind {
		return numericEqual(v, other)
	}
	switch v.Kind {
	case KindNull:
		return true
	case KindBool:
		return v.Bool == other.Bool
	case KindInt:
		return v.Int == other.Int
	case KindFloat:
		return v.Float == other.Float
	case KindString:
		return v.Str == other.Str
	case KindChar:
		return v.Char == other.Char
	case KindRegex:
		return v.RegexSrc == other.RegexSrc
	case KindRangeInt:
		return v.RangeI == other.RangeI
	case KindRangeFloat:
		return v.RangeF == other.RangeF
	case KindList:
		if len(v.List) != len(other.List) {
			return false
		}
		for i := range v.List {
			if !v.List[i].Equal(other.List[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if len(v.MapKeys) != len(other.MapKeys) {
			return false
		}
		for _, k := range v.MapKeys {
			ov, ok := other.MapVals[k]
			if !ok || !v.MapVals[k].Equal(ov) {
				return false
			}
		}
		return true
	}
	return false
}

// numericEqual allows int/float cross-kind equality by widening to float64.
func numericEqual(a, b *Value) bool {
	af, aok := asFloat(a)
	bf, bok := asFloat(b)
	return aok && bok && af == bf
}

func asFloat(v *Value) (float64, bool) {
	switch v.Kind {
	case KindInt:
		return float64(v.Int), true
	case KindFloat:
		return v.Float, true
	default:
		return 0, false
	}
}

// Compare orders two scalar values for <, <=, >, >=. ok is false if the
// values are not comparable (spec §4.4: comparators require same semantic
// type; int/float cross-compare by widening; strings lexicographic; regex
// only supports ==/!=  full-match; range only supports containment via in).
func Compare(a, b *Value) (cmp int, ok bool) {
	if af, aok := asFloat(a); aok {
		if bf, bok := asFloat(b); bok {
			switch {
			case af < bf:
				return -1, true
			case af > bf:
				return 1, true
			default:
				return 0, true
			}
		}
		return 0, false
	}
	if a.Kind == KindString && b.Kind == KindString {
		return strings.Compare(a.Str, b.Str), true
	}
	return 0, false
}

// LastSegment returns the final JSON-pointer segment of v's path, used by
// the key() builtin.
func (v *Value) LastSegment() string {
	p := v.Path.Pointer
	idx := strings.LastIndex(p, "/")
	if idx < 0 {
		return p
	}
	return p[idx+1:]
}

// ScalarString renders a scalar value as a display string for error/event
// messages. Non-scalars render their kind name.
func (v *Value) ScalarString() string {
	switch v.Kind {
	case KindNull:
		return "null"
	case KindBool:
		return strconv.FormatBool(v.Bool)
	case KindInt:
		return strconv.FormatInt(v.Int, 10)
	case KindFloat:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	case KindString:
		return v.Str
	case KindChar:
		return string(v.Char)
	case KindRegex:
		return "/" + v.RegexSrc + "/"
	case KindRangeInt:
		return v.RangeI.String()
	case KindRangeFloat:
		return v.RangeF.String()
	default:
		return v.Kind.String()
	}
}
