// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import (
	"encoding/json"
	"fmt"
	"sort"
)

// ValueKind discriminates the variants of [Value].
type ValueKind int

const (
	KindNull ValueKind = iota
	KindBool
	KindNumber
	KindString
	KindList
	KindMap
)

// Value is a dynamically shaped record payload: a field value of a domain
// record as it travels between the local queue and the remote store. It is a
// tagged union over JSON-compatible shapes (null, bool, number, string, list,
// map). Numbers are always carried as float64, matching JSON decoding.
//
// Value is immutable from the caller's point of view: all traversal helpers in
// the engine operate on copies obtained via [Value.Clone].
type Value struct {
	kind ValueKind
	b    bool
	n    float64
	s    string
	list []Value
	m    map[string]Value
}

// Null returns the null Value. The zero Value is also null.
func Null() Value { return Value{kind: KindNull} }

// Bool returns a boolean Value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Number returns a numeric Value.
func Number(n float64) Value { return Value{kind: KindNumber, n: n} }

// String returns a string Value.
func String(s string) Value { return Value{kind: KindString, s: s} }

// List returns a list Value holding the given elements.
func List(elems ...Value) Value {
	return Value{kind: KindList, list: elems}
}

// Map returns a map Value holding the given fields.
func Map(fields map[string]Value) Value {
	if fields == nil {
		fields = make(map[string]Value)
	}
	return Value{kind: KindMap, m: fields}
}

// Kind reports which variant v holds.
func (v Value) Kind() ValueKind { return v.kind }

// IsNull reports whether v is the null variant.
func (v Value) IsNull() bool { return v.kind == KindNull }

// BoolVal returns the boolean payload; false for other variants.
func (v Value) BoolVal() bool { return v.b }

// NumberVal returns the numeric payload; 0 for other variants.
func (v Value) NumberVal() float64 { return v.n }

// StringVal returns the string payload; empty for other variants.
func (v Value) StringVal() string { return v.s }

// ListVal returns the underlying element slice; nil for other variants.
// Callers must not mutate the returned slice.
func (v Value) ListVal() []Value { return v.list }

// MapVal returns the underlying field map; nil for other variants.
// Callers must not mutate the returned map.
func (v Value) MapVal() map[string]Value { return v.m }

// Field returns the named field of a map Value and whether it exists.
func (v Value) Field(name string) (Value, bool) {
	if v.kind != KindMap {
		return Null(), false
	}
	f, ok := v.m[name]
	return f, ok
}

// WithField returns a copy of a map Value with the named field set. Calling it
// on a non-map Value returns a fresh single-field map.
func (v Value) WithField(name string, field Value) Value {
	out := make(map[string]Value, len(v.m)+1)
	for k, f := range v.m {
		out[k] = f
	}
	out[name] = field
	return Value{kind: KindMap, m: out}
}

// WithoutField returns a copy of a map Value with the named field removed.
func (v Value) WithoutField(name string) Value {
	if v.kind != KindMap {
		return v
	}
	out := make(map[string]Value, len(v.m))
	for k, f := range v.m {
		if k != name {
			out[k] = f
		}
	}
	return Value{kind: KindMap, m: out}
}

// Clone returns a deep copy of v.
func (v Value) Clone() Value {
	switch v.kind {
	case KindList:
		elems := make([]Value, len(v.list))
		for i, e := range v.list {
			elems[i] = e.Clone()
		}
		return Value{kind: KindList, list: elems}
	case KindMap:
		fields := make(map[string]Value, len(v.m))
		for k, f := range v.m {
			fields[k] = f.Clone()
		}
		return Value{kind: KindMap, m: fields}
	default:
		return v
	}
}

// Equal reports deep structural equality of two Values.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == other.b
	case KindNumber:
		return v.n == other.n
	case KindString:
		return v.s == other.s
	case KindList:
		if len(v.list) != len(other.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(other.list[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if len(v.m) != len(other.m) {
			return false
		}
		for k, f := range v.m {
			of, ok := other.m[k]
			if !ok || !f.Equal(of) {
				return false
			}
		}
		return true
	}
	return false
}

// Interface converts v into plain Go values (nil, bool, float64, string,
// []any, map[string]any), suitable for JSON encoding or mergo merging.
func (v Value) Interface() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindNumber:
		return v.n
	case KindString:
		return v.s
	case KindList:
		out := make([]any, len(v.list))
		for i, e := range v.list {
			out[i] = e.Interface()
		}
		return out
	case KindMap:
		out := make(map[string]any, len(v.m))
		for k, f := range v.m {
			out[k] = f.Interface()
		}
		return out
	default:
		return nil
	}
}

// FromAny converts plain Go data (typically the result of decoding JSON into
// any) into a Value. Integer and float types are normalised to float64.
func FromAny(raw any) (Value, error) {
	switch t := raw.(type) {
	case nil:
		return Null(), nil
	case Value:
		return t, nil
	case bool:
		return Bool(t), nil
	case float64:
		return Number(t), nil
	case float32:
		return Number(float64(t)), nil
	case int:
		return Number(float64(t)), nil
	case int32:
		return Number(float64(t)), nil
	case int64:
		return Number(float64(t)), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return Null(), fmt.Errorf("convert json number %q: %w", t.String(), err)
		}
		return Number(f), nil
	case string:
		return String(t), nil
	case []any:
		elems := make([]Value, len(t))
		for i, e := range t {
			v, err := FromAny(e)
			if err != nil {
				return Null(), err
			}
			elems[i] = v
		}
		return List(elems...), nil
	case map[string]any:
		fields := make(map[string]Value, len(t))
		for k, e := range t {
			v, err := FromAny(e)
			if err != nil {
				return Null(), err
			}
			fields[k] = v
		}
		return Map(fields), nil
	default:
		return Null(), fmt.Errorf("unsupported payload type %T", raw)
	}
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := FromAny(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// String renders v for logs and test failure messages.
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindBool:
		return fmt.Sprintf("%t", v.b)
	case KindNumber:
		return fmt.Sprintf("%g", v.n)
	case KindString:
		return fmt.Sprintf("%q", v.s)
	case KindList:
		return fmt.Sprintf("list(%d)", len(v.list))
	case KindMap:
		keys := make([]string, 0, len(v.m))
		for k := range v.m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return fmt.Sprintf("map%v", keys)
	}
	return "invalid"
}
