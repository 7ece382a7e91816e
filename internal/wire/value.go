// Package wire provides a closed tagged-union representation of the
// dynamically-typed values returned by D-Bus and varlink queries.
//
// Every accessor is total: asking a Value for a shape it does not have
// returns the zero value and false, never an error or a panic. Decoders
// built on top of this package check the shape first and degrade to
// "absent" on any mismatch.
package wire

import (
	"fmt"
	"math"
	"strings"
)

// Kind identifies which variant a Value holds.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindUint
	KindString
	KindArray
	KindDict
	KindStruct
)

// String returns the name of the kind.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindUint:
		return "uint"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindDict:
		return "dict"
	case KindStruct:
		return "struct"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Entry is one key/value pair of a dictionary. Keys are Values because
// D-Bus dictionaries may be keyed by any basic type.
type Entry struct {
	Key   Value
	Value Value
}

// Value is an immutable tagged union. The zero Value is null.
type Value struct {
	kind    Kind
	b       bool
	i       int64
	u       uint64
	s       string
	items   []Value // array elements or struct fields
	entries []Entry
}

// Null returns the null value.
func Null() Value { return Value{} }

// Bool wraps a boolean.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Int wraps a signed integer.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Uint wraps an unsigned integer.
func Uint(u uint64) Value { return Value{kind: KindUint, u: u} }

// String wraps a string.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Array wraps a homogeneous sequence.
func Array(items ...Value) Value { return Value{kind: KindArray, items: items} }

// Struct wraps a fixed-arity tuple.
func Struct(fields ...Value) Value { return Value{kind: KindStruct, items: fields} }

// Dict wraps a dictionary. Entry order is preserved.
func Dict(entries ...Entry) Value { return Value{kind: KindDict, entries: entries} }

// StringDict is a convenience for the common string-keyed dictionary.
func StringDict(m map[string]Value) Value {
	entries := make([]Entry, 0, len(m))
	for k, v := range m {
		entries = append(entries, Entry{Key: String(k), Value: v})
	}
	return Dict(entries...)
}

// Kind returns the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// Str returns the string held by v.
func (v Value) Str() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.s, true
}

// Uint64 returns v as an unsigned integer. Non-negative signed values are
// accepted, since JSON carries no signedness.
func (v Value) Uint64() (uint64, bool) {
	switch v.kind {
	case KindUint:
		return v.u, true
	case KindInt:
		if v.i < 0 {
			return 0, false
		}
		return uint64(v.i), true
	default:
		return 0, false
	}
}

// Uint32 returns v as a uint32 when it is an integer in range.
func (v Value) Uint32() (uint32, bool) {
	u, ok := v.Uint64()
	if !ok || u > math.MaxUint32 {
		return 0, false
	}
	return uint32(u), true
}

// StrictUint32 is Uint32 restricted to KindUint. D-Bus replies type every
// integer, so a signed value where an unsigned one is declared is a
// mismatch.
func (v Value) StrictUint32() (uint32, bool) {
	if v.kind != KindUint || v.u > math.MaxUint32 {
		return 0, false
	}
	return uint32(v.u), true
}

// Items returns the elements of an array.
func (v Value) Items() ([]Value, bool) {
	if v.kind != KindArray {
		return nil, false
	}
	return v.items, true
}

// Fields returns the fields of a struct.
func (v Value) Fields() ([]Value, bool) {
	if v.kind != KindStruct {
		return nil, false
	}
	return v.items, true
}

// Entries returns the entries of a dictionary.
func (v Value) Entries() ([]Entry, bool) {
	if v.kind != KindDict {
		return nil, false
	}
	return v.entries, true
}

// Lookup finds the value stored under a string key of a dictionary.
// When the key appears more than once the last entry wins.
func (v Value) Lookup(key string) (Value, bool) {
	if v.kind != KindDict {
		return Value{}, false
	}
	var (
		found Value
		ok    bool
	)
	for _, e := range v.entries {
		if k, isStr := e.Key.Str(); isStr && k == key {
			found, ok = e.Value, true
		}
	}
	return found, ok
}

// LookupUint32 is Lookup followed by StrictUint32. A missing key and a
// wrong-typed value both yield nil.
func (v Value) LookupUint32(key string) *uint32 {
	field, ok := v.Lookup(key)
	if !ok {
		return nil
	}
	u, ok := field.StrictUint32()
	if !ok {
		return nil
	}
	return &u
}

// LookupUint32s returns the uint32 elements of an array stored under key.
// Elements that are not unsigned 32-bit are dropped; a non-array value
// yields nil.
func (v Value) LookupUint32s(key string) []uint32 {
	field, ok := v.Lookup(key)
	if !ok {
		return nil
	}
	items, ok := field.Items()
	if !ok {
		return nil
	}
	out := make([]uint32, 0, len(items))
	for _, item := range items {
		if u, ok := item.StrictUint32(); ok {
			out = append(out, u)
		}
	}
	return out
}

// String renders v for log messages.
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindBool:
		return fmt.Sprintf("%t", v.b)
	case KindInt:
		return fmt.Sprintf("%d", v.i)
	case KindUint:
		return fmt.Sprintf("%d", v.u)
	case KindString:
		return fmt.Sprintf("%q", v.s)
	case KindArray, KindStruct:
		open, closing := "[", "]"
		if v.kind == KindStruct {
			open, closing = "(", ")"
		}
		parts := make([]string, len(v.items))
		for i, item := range v.items {
			parts[i] = item.String()
		}
		return open + strings.Join(parts, ", ") + closing
	case KindDict:
		parts := make([]string, len(v.entries))
		for i, e := range v.entries {
			parts[i] = e.Key.String() + ": " + e.Value.String()
		}
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		return v.kind.String()
	}
}
