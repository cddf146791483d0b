package jsontree

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/minios-linux/awslate/apperr"
)

// frame is an open array or object while parsing.
type frame struct {
	kind    Kind
	items   []Value
	members []Member
	seen    map[string]int
	key     string
	hasKey  bool
}

func (f *frame) value() Value {
	if f.kind == KindArray {
		if f.items == nil {
			f.items = []Value{}
		}
		return Value{kind: KindArray, items: f.items}
	}
	if f.members == nil {
		f.members = []Member{}
	}
	return Value{kind: KindObject, members: f.members}
}

func (f *frame) add(v Value) {
	if f.kind == KindArray {
		f.items = append(f.items, v)
		return
	}
	// Duplicate keys: last value wins, first position is kept.
	if i, ok := f.seen[f.key]; ok {
		f.members[i].Value = v
	} else {
		f.seen[f.key] = len(f.members)
		f.members = append(f.members, Member{Key: f.key, Value: v})
	}
	f.key, f.hasKey = "", false
}

// Parse decodes a single JSON document, preserving object key order and
// number literals. Nesting is tracked on an explicit stack.
//
// All failures are apperr.KindStructural errors.
func Parse(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var stack []*frame
	for {
		tok, err := dec.Token()
		if err != nil {
			return Value{}, parseError(err, len(stack) == 0)
		}

		var v Value
		switch t := tok.(type) {
		case json.Delim:
			switch t {
			case '{':
				stack = append(stack, &frame{kind: KindObject, seen: make(map[string]int)})
				continue
			case '[':
				stack = append(stack, &frame{kind: KindArray})
				continue
			default: // '}' or ']'; the decoder has already matched them.
				top := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				v = top.value()
			}
		case string:
			if n := len(stack); n > 0 && stack[n-1].kind == KindObject && !stack[n-1].hasKey {
				stack[n-1].key, stack[n-1].hasKey = t, true
				continue
			}
			v = String(t)
		case json.Number:
			v = Number(t)
		case bool:
			v = Bool(t)
		case nil:
			v = Null()
		default:
			return Value{}, apperr.Structural(fmt.Sprintf("unexpected token %T", tok), apperr.ErrInvalidJSON)
		}

		if len(stack) == 0 {
			if _, err := dec.Token(); err != io.EOF {
				return Value{}, apperr.Structural("parsing JSON", apperr.ErrTrailingData)
			}
			return v, nil
		}
		stack[len(stack)-1].add(v)
	}
}

func parseError(err error, atStart bool) error {
	if errors.Is(err, io.EOF) {
		if atStart {
			return apperr.Structural("parsing JSON", apperr.ErrEmptyInput)
		}
		return apperr.Structural("unexpected end of JSON input", apperr.ErrInvalidJSON)
	}
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return apperr.Structural(fmt.Sprintf("JSON syntax error at offset %d: %v", syntaxErr.Offset, err), apperr.ErrInvalidJSON)
	}
	return apperr.Structural("parsing JSON", err)
}
