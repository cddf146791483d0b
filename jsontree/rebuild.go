package jsontree

import (
	"fmt"

	"github.com/minios-linux/awslate/apperr"
)

// Replacement is the outcome for one leaf returned by Walk.
type Replacement interface {
	// LeafPath returns the path of the leaf this outcome belongs to.
	LeafPath() Path
	// Translated returns the new text, or ok=false if the leaf was not
	// translated and must keep its original text.
	Translated() (text string, ok bool)
}

// Rebuild returns a copy of root in which every string leaf is replaced
// by the text of the result with the same path. Results that report no
// translation keep the original string. Everything else (key order,
// array lengths, null, booleans, numbers) is copied from root.
//
// Every string leaf of root must have exactly one result and every
// result must belong to a string leaf; anything else is an
// apperr.KindStructural error and no tree is returned.
func Rebuild[R Replacement](root Value, results []R) (Value, error) {
	byPath := make(map[string]int, len(results))
	for i, r := range results {
		key := r.LeafPath().String()
		if _, dup := byPath[key]; dup {
			return Value{}, apperr.Structural("duplicate result", nil).WithPath(key)
		}
		byPath[key] = i
	}

	type pending struct {
		src   Value
		dst   *Value
		trail *trail
	}

	var out Value
	used := make([]bool, len(results))
	stack := []pending{{src: root, dst: &out}}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		switch cur.src.kind {
		case KindString:
			key := cur.trail.path().String()
			i, ok := byPath[key]
			if !ok {
				return Value{}, apperr.Structural("rebuilding tree", apperr.ErrMissingResult).WithPath(key)
			}
			used[i] = true
			text, ok := results[i].Translated()
			if !ok {
				text = cur.src.text
			}
			*cur.dst = String(text)
		case KindArray:
			items := make([]Value, len(cur.src.items))
			*cur.dst = Value{kind: KindArray, items: items}
			for i := range items {
				stack = append(stack, pending{src: cur.src.items[i], dst: &items[i], trail: cur.trail.push(Index(i))})
			}
		case KindObject:
			members := make([]Member, len(cur.src.members))
			*cur.dst = Value{kind: KindObject, members: members}
			for i, m := range cur.src.members {
				members[i].Key = m.Key
				stack = append(stack, pending{src: m.Value, dst: &members[i].Value, trail: cur.trail.push(Key(m.Key))})
			}
		default:
			*cur.dst = cur.src
		}
	}

	for i, ok := range used {
		if !ok {
			key := results[i].LeafPath().String()
			return Value{}, apperr.Structural(fmt.Sprintf("rebuilding tree (%d results, %d leaves)", len(results), countTrue(used)), apperr.ErrExtraResult).WithPath(key)
		}
	}
	return out, nil
}

func countTrue(bs []bool) int {
	n := 0
	for _, b := range bs {
		if b {
			n++
		}
	}
	return n
}
