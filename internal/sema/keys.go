package sema

import (
	"fmt"
	"strings"
)

// KeyMode is the access mode of a held key.
type KeyMode uint8

const (
	KeyRead KeyMode = iota
	KeyWrite
)

func (m KeyMode) String() string {
	if m == KeyWrite {
		return "write"
	}
	return "read"
}

// KeySegKind discriminates path segments.
type KeySegKind uint8

const (
	SegField KeySegKind = iota
	SegIndex
)

// KeySeg is one segment of a key path: a field (possibly
// boundary-marked), or an index (constant if provably so).
type KeySeg struct {
	Kind     KeySegKind
	Field    string
	Boundary bool
	// Const is set when an index segment is an integer literal; two
	// distinct constants are provably disjoint. Anything else is
	// conservatively overlapping.
	Const    bool
	ConstVal int64
}

// KeyPath is (root binding, segment sequence).
type KeyPath struct {
	Root string
	Segs []KeySeg
}

func (p KeyPath) String() string {
	var b strings.Builder
	b.WriteString(p.Root)
	for _, s := range p.Segs {
		switch s.Kind {
		case SegField:
			b.WriteByte('.')
			if s.Boundary {
				b.WriteByte('#')
			}
			b.WriteString(s.Field)
		case SegIndex:
			if s.Const {
				fmt.Fprintf(&b, "[%d]", s.ConstVal)
			} else {
				b.WriteString("[*]")
			}
		}
	}
	return b.String()
}

// overlapResult carries the three-way answer Overlap can give.
type overlapResult uint8

const (
	disjoint overlapResult = iota
	overlapping
	// conservativeOverlap marks a dynamic-index comparison the checker
	// could not prove disjoint; reported as an informational note.
	conservativeOverlap
)

// Overlap compares two key paths: they overlap iff they share a root and
// one is a prefix of the other up to the first boundary marker on either.
func Overlap(a, b KeyPath) overlapResult {
	if a.Root != b.Root {
		return disjoint
	}
	conservative := false
	n := len(a.Segs)
	if len(b.Segs) < n {
		n = len(b.Segs)
	}
	for i := 0; i < n; i++ {
		sa, sb := a.Segs[i], b.Segs[i]
		if sa.Kind != sb.Kind {
			return disjoint
		}
		switch sa.Kind {
		case SegField:
			if sa.Field != sb.Field {
				return disjoint
			}
			// The first boundary on either side truncates traversal:
			// everything below is treated as one key.
			if sa.Boundary || sb.Boundary {
				return overlapping
			}
		case SegIndex:
			if sa.Const && sb.Const {
				if sa.ConstVal != sb.ConstVal {
					return disjoint
				}
			} else {
				conservative = true
			}
		}
	}
	if conservative {
		return conservativeOverlap
	}
	return overlapping
}

// HeldKey is one acquisition in a key context scope.
type HeldKey struct {
	Path  KeyPath
	Mode  KeyMode
	Scope int
}

// KeyContext is the static model of the held-key set: a stack of scopes,
// each holding the keys acquired by one block.
type KeyContext struct {
	held  []HeldKey
	scope int
}

// NewKeyContext returns an empty context with one open scope.
func NewKeyContext() *KeyContext {
	return &KeyContext{scope: 0}
}

// PushScope opens a nested acquisition scope.
func (k *KeyContext) PushScope() { k.scope++ }

// PopScope releases every key acquired in the innermost scope.
func (k *KeyContext) PopScope() {
	kept := k.held[:0]
	for _, h := range k.held {
		if h.Scope < k.scope {
			kept = append(kept, h)
		}
	}
	k.held = kept
	k.scope--
}

// Covers reports whether some held key has a path-prefix of p with a mode
// >= m (Write >= Read). Acquire is idempotent under Covers.
func (k *KeyContext) Covers(p KeyPath, m KeyMode) bool {
	for _, h := range k.held {
		if isPrefix(h.Path, p) && h.Mode >= m {
			return true
		}
	}
	return false
}

// Acquire attempts to add (p, m) to the held set. It returns the held key
// it conflicts with, or nil. Idempotent when already covered.
func (k *KeyContext) Acquire(p KeyPath, m KeyMode) (*HeldKey, overlapResult) {
	if k.Covers(p, m) {
		return nil, disjoint
	}
	for i := range k.held {
		h := &k.held[i]
		r := Overlap(h.Path, p)
		if r == disjoint {
			continue
		}
		if h.Mode == KeyWrite || m == KeyWrite {
			return h, r
		}
	}
	k.held = append(k.held, HeldKey{Path: p, Mode: m, Scope: k.scope})
	return nil, disjoint
}

// Release drops a specific path from the held set (the yield-release
// escape hatch).
func (k *KeyContext) Release(p KeyPath) {
	kept := k.held[:0]
	for _, h := range k.held {
		if h.Path.String() != p.String() {
			kept = append(kept, h)
		}
	}
	k.held = kept
}

// Held returns a copy of the current held set.
func (k *KeyContext) Held() []HeldKey {
	return append([]HeldKey(nil), k.held...)
}

// HeldAny reports whether any key is held.
func (k *KeyContext) HeldAny() bool { return len(k.held) > 0 }

// isPrefix reports whether a is a segment-wise prefix of b (same root,
// a's segments all match b's leading segments exactly).
func isPrefix(a, b KeyPath) bool {
	if a.Root != b.Root || len(a.Segs) > len(b.Segs) {
		return false
	}
	for i, s := range a.Segs {
		o := b.Segs[i]
		if s.Kind != o.Kind {
			return false
		}
		if s.Kind == SegField && s.Field != o.Field {
			return false
		}
		if s.Kind == SegIndex {
			if !s.Const || !o.Const || s.ConstVal != o.ConstVal {
				return false
			}
		}
	}
	return true
}
