package jsontree

// Leaf is one translatable string and where it lives.
type Leaf struct {
	Path Path
	Text string
}

// Walk returns every string value in root, depth-first, with object
// members in file order and array items in index order. Null, boolean
// and number values are not leaves; Rebuild copies them from root.
//
// The traversal uses an explicit stack and shares path prefixes between
// siblings, so arbitrarily deep trees are safe and cheap to walk.
func Walk(root Value) []Leaf {
	type pending struct {
		v     Value
		trail *trail
	}

	var leaves []Leaf
	stack := []pending{{v: root}}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		switch cur.v.kind {
		case KindString:
			leaves = append(leaves, Leaf{Path: cur.trail.path(), Text: cur.v.text})
		case KindArray:
			// Push in reverse so the first item is visited first.
			for i := len(cur.v.items) - 1; i >= 0; i-- {
				stack = append(stack, pending{v: cur.v.items[i], trail: cur.trail.push(Index(i))})
			}
		case KindObject:
			for i := len(cur.v.members) - 1; i >= 0; i-- {
				m := cur.v.members[i]
				stack = append(stack, pending{v: m.Value, trail: cur.trail.push(Key(m.Key))})
			}
		}
	}
	return leaves
}
