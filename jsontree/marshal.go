package jsontree

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Marshal encodes v as JSON. With a non-empty indent every array item
// and object member goes on its own line, prefixed by one indent per
// nesting level; with an empty indent the output is compact. Empty
// arrays and objects are written as [] and {}. HTML characters are not
// escaped. No trailing newline is added.
func Marshal(v Value, indent string) []byte {
	e := newEncoder(indent)
	e.value(v, 0)
	return e.buf.Bytes()
}

type encoder struct {
	buf     bytes.Buffer
	indent  string
	scratch bytes.Buffer
	str     *json.Encoder
}

func newEncoder(indent string) *encoder {
	e := &encoder{indent: indent}
	e.str = json.NewEncoder(&e.scratch)
	e.str.SetEscapeHTML(false)
	return e
}

func (e *encoder) newline(depth int) {
	if e.indent == "" {
		return
	}
	e.buf.WriteByte('\n')
	e.buf.WriteString(strings.Repeat(e.indent, depth))
}

func (e *encoder) value(v Value, depth int) {
	switch v.kind {
	case KindNull:
		e.buf.WriteString("null")
	case KindBool:
		if v.boolean {
			e.buf.WriteString("true")
		} else {
			e.buf.WriteString("false")
		}
	case KindNumber:
		e.buf.WriteString(v.text)
	case KindString:
		e.string(v.text)
	case KindArray:
		if len(v.items) == 0 {
			e.buf.WriteString("[]")
			return
		}
		e.buf.WriteByte('[')
		for i, item := range v.items {
			if i > 0 {
				e.buf.WriteByte(',')
			}
			e.newline(depth + 1)
			e.value(item, depth+1)
		}
		e.newline(depth)
		e.buf.WriteByte(']')
	case KindObject:
		if len(v.members) == 0 {
			e.buf.WriteString("{}")
			return
		}
		e.buf.WriteByte('{')
		for i, m := range v.members {
			if i > 0 {
				e.buf.WriteByte(',')
			}
			e.newline(depth + 1)
			e.string(m.Key)
			e.buf.WriteByte(':')
			if e.indent != "" {
				e.buf.WriteByte(' ')
			}
			e.value(m.Value, depth+1)
		}
		e.newline(depth)
		e.buf.WriteByte('}')
	}
}

// string writes s as a quoted JSON string. Encoding a Go string cannot fail.
func (e *encoder) string(s string) {
	e.scratch.Reset()
	_ = e.str.Encode(s)
	b := e.scratch.Bytes()
	e.buf.Write(b[:len(b)-1]) // drop the encoder's newline
}
