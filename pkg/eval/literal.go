// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Guardlang Contributors

package eval

import (
	"strconv"
	"strings"

	"github.com/samber/oops"

	"github.com/guardlang/guardlang/pkg/lang"
	"github.com/guardlang/guardlang/pkg/value"
)

// literalToValue converts a parsed Literal into a path-less scalar value
// (literals carry no document provenance — spec §3 "Literal(&value)").
func literalToValue(lit *lang.Literal) (*value.Value, error) {
	switch {
	case lit.Str != nil:
		return value.NewString(value.Path{}, lit.StringValue()), nil
	case lit.Number != nil:
		n := *lit.Number
		if n == float64(int64(n)) {
			return value.NewInt(value.Path{}, int64(n)), nil
		}
		return value.NewFloat(value.Path{}, n), nil
	case lit.Bool != nil:
		return value.NewBool(value.Path{}, lit.IsBoolTrue()), nil
	case lit.Regex != nil:
		return value.NewRegex(value.Path{}, lit.RegexPattern())
	case lit.Range != nil:
		return parseRangeLiteral(*lit.Range)
	default:
		return nil, oops.Code("FormatError").Errorf("empty literal node")
	}
}

// parseRangeLiteral parses the `r[a,b)`-family of range literals (spec
// §4.1), pinning inclusivity per bracket/paren glyph on each side.
func parseRangeLiteral(s string) (*value.Value, error) {
	if len(s) < 4 || s[0] != 'r' {
		return nil, oops.Code("FormatError").Errorf("malformed range literal %q", s)
	}
	lowerIncl := s[1] == '['
	upperIncl := s[len(s)-1] == ']'
	body := s[2 : len(s)-1]

	parts := strings.SplitN(body, ",", 2)
	if len(parts) != 2 {
		return nil, oops.Code("FormatError").Errorf("malformed range literal %q", s)
	}
	lo := strings.TrimSpace(parts[0])
	hi := strings.TrimSpace(parts[1])

	if li, errLo := strconv.ParseInt(lo, 10, 64); errLo == nil {
		if hiI, errHi := strconv.ParseInt(hi, 10, 64); errHi == nil {
			return value.NewRangeInt(value.Path{}, value.RangeInt{
				Lower: li, Upper: hiI, LowerIncl: lowerIncl, UpperIncl: upperIncl,
			}), nil
		}
	}

	lf, err := strconv.ParseFloat(lo, 64)
	if err != nil {
		return nil, oops.Code("FormatError").Errorf("malformed range bound %q", lo)
	}
	hf, err := strconv.ParseFloat(hi, 64)
	if err != nil {
		return nil, oops.Code("FormatError").Errorf("malformed range bound %q", hi)
	}
	return value.NewRangeFloat(value.Path{}, value.RangeFloat{
		Lower: lf, Upper: hf, LowerIncl: lowerIncl, UpperIncl: upperIncl,
	}), nil
}

// literalListToValues converts a LiteralList to a slice of scalar values.
func literalListToValues(ll *lang.LiteralList) ([]*value.Value, error) {
	out := make([]*value.Value, 0, len(ll.Values))
	for _, lit := range ll.Values {
		v, err := literalToValue(lit)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
