// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Guardlang Contributors

package value

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/samber/oops"
	"gopkg.in/yaml.v3"
)

// FromJSON deserializes JSON text into a PathAwareValue tree rooted at "".
// Object key order is preserved by decoding with a streaming token reader
// rather than into a map[string]any (which the stdlib does not order).
func FromJSON(data []byte) (*Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	v, err := decodeJSONValue(dec, Path{Pointer: ""})
	if err != nil {
		return nil, oops.Code("JsonError").Wrapf(err, "parsing JSON document")
	}
	return v, nil
}

func decodeJSONValue(dec *json.Decoder, path Path) (*Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	return decodeJSONToken(dec, tok, path)
}

func decodeJSONToken(dec *json.Decoder, tok json.Token, path Path) (*Value, error) {
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			return decodeJSONObject(dec, path)
		case '[':
			return decodeJSONArray(dec, path)
		default:
			return nil, fmt.Errorf("unexpected delimiter %q at %s", t, path.Pointer)
		}
	case nil:
		return Null(path), nil
	case bool:
		return NewBool(path, t), nil
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return NewInt(path, i), nil
		}
		f, err := t.Float64()
		if err != nil {
			return nil, fmt.Errorf("invalid number %q at %s: %w", t.String(), path.Pointer, err)
		}
		if math.IsNaN(f) {
			return Null(path), nil
		}
		return NewFloat(path, f), nil
	case string:
		return NewString(path, t), nil
	default:
		return nil, fmt.Errorf("unsupported JSON token %T at %s", tok, path.Pointer)
	}
}

func decodeJSONObject(dec *json.Decoder, path Path) (*Value, error) {
	keys := make([]string, 0)
	vals := make(map[string]*Value)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("expected string object key at %s", path.Pointer)
		}
		child, err := decodeJSONValue(dec, path.Child(key))
		if err != nil {
			return nil, err
		}
		if _, dup := vals[key]; !dup {
			keys = append(keys, key)
		}
		vals[key] = child
	}
	// consume closing '}'
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return NewMap(path, keys, vals), nil
}

func decodeJSONArray(dec *json.Decoder, path Path) (*Value, error) {
	items := make([]*Value, 0)
	idx := 0
	for dec.More() {
		child, err := decodeJSONValue(dec, path.Child(strconv.Itoa(idx)))
		if err != nil {
			return nil, err
		}
		items = append(items, child)
		idx++
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return NewList(path, items), nil
}

// FromYAML deserializes YAML text into a PathAwareValue tree, expanding
// anchors/aliases and attaching line/column source info from yaml.Node.
// A document containing an alias cycle fails with a ConversionError.
func FromYAML(data []byte) (*Value, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, oops.Code("YamlError").Wrapf(err, "parsing YAML document")
	}
	if len(doc.Content) == 0 {
		return Null(Path{Pointer: ""}), nil
	}
	seen := make(map[*yaml.Node]bool)
	return convertYAMLNode(doc.Content[0], Path{Pointer: ""}, seen)
}

func convertYAMLNode(n *yaml.Node, path Path, seen map[*yaml.Node]bool) (*Value, error) {
	if n.Kind == yaml.AliasNode {
		target := n.Alias
		if seen[target] {
			return nil, oops.Code("ConversionError").Errorf("cycle detected resolving YAML alias at %s", path.Pointer)
		}
		seen[target] = true
		v, err := convertYAMLNode(target, path, seen)
		delete(seen, target)
		return v, err
	}

	src := Source{Line: n.Line, Column: n.Column, HasSource: true}
	p := Path{Pointer: path.Pointer, Source: src}

	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return Null(p), nil
		}
		return convertYAMLNode(n.Content[0], path, seen)

	case yaml.ScalarNode:
		return convertYAMLScalar(n, p)

	case yaml.SequenceNode:
		items := make([]*Value, 0, len(n.Content))
		for i, child := range n.Content {
			cv, err := convertYAMLNode(child, path.Child(strconv.Itoa(i)), seen)
			if err != nil {
				return nil, err
			}
			items = append(items, cv)
		}
		return NewList(p, items), nil

	case yaml.MappingNode:
		keys := make([]string, 0, len(n.Content)/2)
		vals := make(map[string]*Value, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			keyNode := n.Content[i]
			valNode := n.Content[i+1]
			key := keyNode.Value
			cv, err := convertYAMLNode(valNode, path.Child(key), seen)
			if err != nil {
				return nil, err
			}
			if _, dup := vals[key]; !dup {
				keys = append(keys, key)
			}
			vals[key] = cv
		}
		return NewMap(p, keys, vals), nil

	default:
		return nil, oops.Code("ConversionError").Errorf("unsupported YAML node kind %v at %s", n.Kind, path.Pointer)
	}
}

func convertYAMLScalar(n *yaml.Node, p Path) (*Value, error) {
	switch n.Tag {
	case "!!null":
		return Null(p), nil
	case "!!bool":
		b, err := strconv.ParseBool(n.Value)
		if err != nil {
			return nil, fmt.Errorf("invalid bool %q at %s: %w", n.Value, p.Pointer, err)
		}
		return NewBool(p, b), nil
	case "!!int":
		i, err := strconv.ParseInt(n.Value, 0, 64)
		if err != nil {
			// Lossless-as-int failed (e.g. overflow); fall back to float.
			f, ferr := strconv.ParseFloat(n.Value, 64)
			if ferr != nil {
				return nil, fmt.Errorf("invalid int %q at %s: %w", n.Value, p.Pointer, err)
			}
			return NewFloat(p, f), nil
		}
		return NewInt(p, i), nil
	case "!!float":
		f, err := strconv.ParseFloat(n.Value, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid float %q at %s: %w", n.Value, p.Pointer, err)
		}
		if math.IsNaN(f) {
			return Null(p), nil
		}
		return NewFloat(p, f), nil
	default:
		// Strings (and any other scalar tag) are kept as strings. Per spec
		// §4.2, ISO-8601/regex-looking strings are never auto-promoted here;
		// promotion only happens where the rule language syntactically
		// demands it (parse_epoch, regex literals in rule text).
		return NewString(p, n.Value), nil
	}
}

// Merge combines two root values: recursive map union, last-writer-wins on
// scalar collision, list replacement (never concatenation). left's paths are
// preserved for keys absent on right (spec §4.2).
func Merge(left, right *Value) *Value {
	if left == nil {
		return right
	}
	if right == nil {
		return left
	}
	if left.Kind != KindMap || right.Kind != KindMap {
		return right
	}

	keys := make([]string, 0, len(left.MapKeys)+len(right.MapKeys))
	vals := make(map[string]*Value, len(left.MapKeys)+len(right.MapKeys))

	for _, k := range left.MapKeys {
		keys = append(keys, k)
		vals[k] = left.MapVals[k]
	}
	for _, k := range right.MapKeys {
		lv, existed := vals[k]
		rv := right.MapVals[k]
		if !existed {
			keys = append(keys, k)
			vals[k] = rv
			continue
		}
		vals[k] = Merge(lv, rv)
	}

	return NewMap(left.Path, keys, vals)
}
