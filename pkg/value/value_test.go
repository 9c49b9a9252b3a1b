// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Guardlang Contributors

package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromJSON_PreservesKeyOrderAndPaths(t *testing.T) {
	doc := `{"Resources":{"b":1,"a":2},"Type":"root"}`
	v, err := FromJSON([]byte(doc))
	require.NoError(t, err)
	require.Equal(t, KindMap, v.Kind)
	assert.Equal(t, []string{"Resources", "Type"}, v.MapKeys)

	res := v.Get("Resources")
	require.NotNil(t, res)
	assert.Equal(t, []string{"b", "a"}, res.MapKeys)
	assert.Equal(t, "/Resources", res.Path.Pointer)
	assert.Equal(t, "/Resources/b", res.Get("b").Path.Pointer)
}

func TestFromJSON_List(t *testing.T) {
	v, err := FromJSON([]byte(`{"xs":[10,20,30]}`))
	require.NoError(t, err)
	xs := v.Get("xs")
	require.Equal(t, KindList, xs.Kind)
	require.Len(t, xs.List, 3)
	assert.Equal(t, "/xs/1", xs.List[1].Path.Pointer)
	assert.Equal(t, int64(20), xs.Index(1).Int)
	assert.Equal(t, int64(30), xs.Index(-1).Int)
}

func TestFromJSON_NonIntegerNumberIsFloat(t *testing.T) {
	// A JSON number with a fractional part decodes as a Float, not an Int.
	v, err := FromJSON([]byte(`3.5`))
	require.NoError(t, err)
	assert.Equal(t, KindFloat, v.Kind)
	assert.Equal(t, 3.5, v.Float)
}

func TestFromYAML_OrderAndSource(t *testing.T) {
	doc := "Resources:\n  b: 1\n  a: 2\n"
	v, err := FromYAML([]byte(doc))
	require.NoError(t, err)
	res := v.Get("Resources")
	require.NotNil(t, res)
	assert.Equal(t, []string{"b", "a"}, res.MapKeys)
	assert.True(t, res.Path.Source.HasSource)
	assert.Equal(t, 2, res.Path.Source.Line)
}

func TestFromYAML_NumericLosslessInt(t *testing.T) {
	v, err := FromYAML([]byte("n: 42\nf: 1.5\n"))
	require.NoError(t, err)
	assert.Equal(t, KindInt, v.Get("n").Kind)
	assert.Equal(t, KindFloat, v.Get("f").Kind)
}

func TestFromYAML_StringsNotAutoPromoted(t *testing.T) {
	v, err := FromYAML([]byte(`d: "2024-01-01T00:00:00Z"`))
	require.NoError(t, err)
	assert.Equal(t, KindString, v.Get("d").Kind)
	assert.Equal(t, "2024-01-01T00:00:00Z", v.Get("d").Str)
}

func TestFromYAML_AliasCycleFails(t *testing.T) {
	doc := "a: &anchor\n  b: *anchor\n"
	_, err := FromYAML([]byte(doc))
	require.Error(t, err)
}

func TestMerge_CommutativeOnDisjointKeys(t *testing.T) {
	a, _ := FromJSON([]byte(`{"a":1}`))
	b, _ := FromJSON([]byte(`{"b":2}`))

	ab := Merge(a, b)
	ba := Merge(b, a)

	assert.True(t, sameKeysAndValues(ab, ba))
}

func sameKeysAndValues(a, b *Value) bool {
	if len(a.MapKeys) != len(b.MapKeys) {
		return false
	}
	for _, k := range a.MapKeys {
		bv, ok := b.MapVals[k]
		if !ok || !a.MapVals[k].Equal(bv) {
			return false
		}
	}
	return true
}

func TestMerge_LastWriterWinsOnScalarCollision(t *testing.T) {
	a, _ := FromJSON([]byte(`{"x":1}`))
	b, _ := FromJSON([]byte(`{"x":2}`))
	m := Merge(a, b)
	assert.Equal(t, int64(2), m.Get("x").Int)
}

func TestMerge_ListReplacementNotConcat(t *testing.T) {
	a, _ := FromJSON([]byte(`{"xs":[1,2,3]}`))
	b, _ := FromJSON([]byte(`{"xs":[9]}`))
	m := Merge(a, b)
	require.Len(t, m.Get("xs").List, 1)
	assert.Equal(t, int64(9), m.Get("xs").Index(0).Int)
}

func TestEqual_IgnoresPath(t *testing.T) {
	a := NewInt(Path{Pointer: "/a"}, 5)
	b := NewInt(Path{Pointer: "/somewhere/else"}, 5)
	assert.True(t, a.Equal(b))
}

func TestEqual_IntFloatWidening(t *testing.T) {
	a := NewInt(Path{}, 5)
	b := NewFloat(Path{}, 5.0)
	assert.True(t, a.Equal(b))
}

func TestRangeIntContains(t *testing.T) {
	r := RangeInt{Lower: 100, Upper: 1000, LowerIncl: true, UpperIncl: true}
	assert.True(t, r.Contains(100))
	assert.True(t, r.Contains(1000))
	assert.False(t, r.Contains(50))
	assert.False(t, r.Contains(1001))
}

func TestLastSegment(t *testing.T) {
	v := NewString(Path{Pointer: "/Resources/MyBucket/Type"}, "AWS::S3::Bucket")
	assert.Equal(t, "Type", v.LastSegment())
}
