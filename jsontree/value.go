// Package jsontree implements an order-preserving JSON value model for
// locale files, together with the walk/rebuild pair used to translate
// every string leaf while keeping the rest of the document intact.
//
// Object keys keep their file order and numbers keep their source
// literal, so a document that goes through Parse and Marshal without
// substitutions comes out with the same keys, the same order and the
// same numbers.
package jsontree

import "encoding/json"

// Kind identifies the type of a Value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// Member is one key/value pair of an object.
type Member struct {
	Key   string
	Value Value
}

// Value is an immutable JSON value. The zero Value is null.
type Value struct {
	kind    Kind
	boolean bool
	text    string // string contents or number literal
	items   []Value
	members []Member
}

// Null returns the JSON null value.
func Null() Value { return Value{} }

// Bool returns a JSON boolean.
func Bool(b bool) Value { return Value{kind: KindBool, boolean: b} }

// Number returns a JSON number holding the literal n.
func Number(n json.Number) Value { return Value{kind: KindNumber, text: string(n)} }

// String returns a JSON string.
func String(s string) Value { return Value{kind: KindString, text: s} }

// Array returns a JSON array of the given items.
func Array(items ...Value) Value {
	return Value{kind: KindArray, items: append([]Value{}, items...)}
}

// Object returns a JSON object with members in the given order.
// Later members with a key already present replace the earlier value
// in place, the same way Parse treats duplicate keys.
func Object(members ...Member) Value {
	out := make([]Member, 0, len(members))
	seen := make(map[string]int, len(members))
	for _, m := range members {
		if i, ok := seen[m.Key]; ok {
			out[i].Value = m.Value
			continue
		}
		seen[m.Key] = len(out)
		out = append(out, m)
	}
	return Value{kind: KindObject, members: out}
}

// Kind returns the type of v.
func (v Value) Kind() Kind { return v.kind }

// Bool returns the boolean held by v (false for other kinds).
func (v Value) Bool() bool { return v.boolean }

// Number returns the number literal held by v ("" for other kinds).
func (v Value) Number() json.Number {
	if v.kind != KindNumber {
		return ""
	}
	return json.Number(v.text)
}

// Text returns the string held by v ("" for other kinds).
func (v Value) Text() string {
	if v.kind != KindString {
		return ""
	}
	return v.text
}

// Len returns the number of array items or object members.
func (v Value) Len() int {
	switch v.kind {
	case KindArray:
		return len(v.items)
	case KindObject:
		return len(v.members)
	}
	return 0
}

// Index returns the i-th array item. It panics if v is not an array or
// i is out of range.
func (v Value) Index(i int) Value {
	if v.kind != KindArray {
		panic("jsontree: Index on " + v.kind.String())
	}
	return v.items[i]
}

// Member returns the i-th object member. It panics if v is not an
// object or i is out of range.
func (v Value) Member(i int) Member {
	if v.kind != KindObject {
		panic("jsontree: Member on " + v.kind.String())
	}
	return v.members[i]
}

// Get returns the value stored under key in an object.
func (v Value) Get(key string) (Value, bool) {
	for _, m := range v.members {
		if m.Key == key {
			return m.Value, true
		}
	}
	return Value{}, false
}

// Equal reports whether v and o are the same JSON value, including
// object key order and number literals.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.boolean == o.boolean
	case KindNumber, KindString:
		return v.text == o.text
	case KindArray:
		if len(v.items) != len(o.items) {
			return false
		}
		for i := range v.items {
			if !v.items[i].Equal(o.items[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if len(v.members) != len(o.members) {
			return false
		}
		for i := range v.members {
			if v.members[i].Key != o.members[i].Key || !v.members[i].Value.Equal(o.members[i].Value) {
				return false
			}
		}
		return true
	}
	return false
}
