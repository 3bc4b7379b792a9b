package source

// StrID is an interned string handle.
type StrID uint32

// Interner deduplicates identifier and literal text across a compilation.
// Shared read-only after P1 by every later phase.
type Interner struct {
	strs []string
	ids  map[string]StrID
}

// NewInterner creates an empty Interner with the empty string pre-interned
// at StrID 0, so a zero StrID never needs special-casing at call sites.
func NewInterner() *Interner {
	in := &Interner{ids: make(map[string]StrID)}
	in.Intern("")
	return in
}

// Intern returns the StrID for s, allocating a new one if s is unseen.
func (in *Interner) Intern(s string) StrID {
	if id, ok := in.ids[s]; ok {
		return id
	}
	id := StrID(len(in.strs))
	in.strs = append(in.strs, s)
	in.ids[s] = id
	return id
}

// Lookup returns the text for an interned id.
func (in *Interner) Lookup(id StrID) string {
	return in.strs[id]
}
