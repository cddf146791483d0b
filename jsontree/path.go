package jsontree

import (
	"strconv"
	"strings"
)

// Step is one descent into an object (by key) or an array (by index).
type Step struct {
	key     string
	index   int
	isIndex bool
}

// Key returns a step into the object member named k.
func Key(k string) Step { return Step{key: k} }

// Index returns a step into the array item at i.
func Index(i int) Step { return Step{index: i, isIndex: true} }

// IsIndex reports whether s descends into an array.
func (s Step) IsIndex() bool { return s.isIndex }

// Key returns the object key of s ("" for index steps).
func (s Step) Key() string { return s.key }

// Index returns the array index of s (0 for key steps).
func (s Step) Index() int { return s.index }

// Path locates one value inside a tree. The empty path is the root.
type Path []Step

// Append returns a new path with s added. p itself is never modified,
// so sibling paths built from the same parent never share storage.
func (p Path) Append(s Step) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, s)
}

// trail is a path stored as a chain of parent links. Children share
// their parent's prefix, so descending one level costs one allocation
// however deep the tree is; the Path is only built where it is needed.
type trail struct {
	parent *trail
	step   Step
	depth  int
}

func (t *trail) push(s Step) *trail {
	n := &trail{parent: t, step: s, depth: 1}
	if t != nil {
		n.depth = t.depth + 1
	}
	return n
}

// path materializes t. The root (nil) trail yields the nil Path.
func (t *trail) path() Path {
	if t == nil {
		return nil
	}
	p := make(Path, t.depth)
	for n := t; n != nil; n = n.parent {
		p[n.depth-1] = n.step
	}
	return p
}

// Equal reports whether p and o contain the same steps.
func (p Path) Equal(o Path) bool {
	if len(p) != len(o) {
		return false
	}
	for i := range p {
		if p[i] != o[i] {
			return false
		}
	}
	return true
}

// String renders p as $, $.a.b, $.items[0] or $["key with spaces"].
// Distinct paths always render differently, so the rendering doubles as
// a lookup key.
func (p Path) String() string {
	var b strings.Builder
	b.WriteByte('$')
	for _, s := range p {
		switch {
		case s.isIndex:
			b.WriteByte('[')
			b.WriteString(strconv.Itoa(s.index))
			b.WriteByte(']')
		case isPlainKey(s.key):
			b.WriteByte('.')
			b.WriteString(s.key)
		default:
			b.WriteByte('[')
			b.WriteString(strconv.Quote(s.key))
			b.WriteByte(']')
		}
	}
	return b.String()
}

func isPlainKey(k string) bool {
	if k == "" {
		return false
	}
	for i := 0; i < len(k); i++ {
		c := k[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_', c == '-':
		default:
			return false
		}
	}
	return true
}
