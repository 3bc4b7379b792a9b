package types

// NormalizeUnion flattens nested unions and removes duplicate members,
// collapsing to the single member type if only one remains. This keeps
// Union's invariant (>=2 distinct non-union members, unordered) intact no
// matter how the type checker assembled the member list (e.g. via '?'
// propagation chains or repeated 'if' branch joins).
func NormalizeUnion(in *Interner, members []TypeID) TypeID {
	seen := make(map[TypeID]bool)
	var flat []TypeID
	var walk func(id TypeID)
	walk = func(id TypeID) {
		t := in.Get(id)
		if t.Kind == KindUnion {
			for _, m := range t.Elems {
				walk(m)
			}
			return
		}
		if !seen[id] {
			seen[id] = true
			flat = append(flat, id)
		}
	}
	for _, m := range members {
		walk(m)
	}
	if len(flat) == 1 {
		return flat[0]
	}
	return in.Union(flat...)
}

// UnionMembers returns the flattened member set of id, or a one-element
// slice {id} if id is not itself a union.
func UnionMembers(in *Interner, id TypeID) []TypeID {
	t := in.Get(id)
	if t.Kind != KindUnion {
		return []TypeID{id}
	}
	return t.Elems
}

// UnionContains reports whether candidate appears (after flattening) among
// id's members — used by the '?' operator's "E compatible with enclosing
// return union" check (spec.md §4.4.3).
func UnionContains(in *Interner, id, candidate TypeID) bool {
	for _, m := range UnionMembers(in, id) {
		if m == candidate {
			return true
		}
	}
	return false
}
