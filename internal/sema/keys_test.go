package sema

import "testing"

func fieldSeg(name string, boundary bool) KeySeg {
	return KeySeg{Kind: SegField, Field: name, Boundary: boundary}
}

func idxSeg(v int64) KeySeg {
	return KeySeg{Kind: SegIndex, Const: true, ConstVal: v}
}

func TestOverlapPrefix(t *testing.T) {
	a := KeyPath{Root: "data", Segs: []KeySeg{fieldSeg("x", false)}}
	b := KeyPath{Root: "data", Segs: []KeySeg{fieldSeg("x", false), fieldSeg("y", false)}}
	if Overlap(a, b) != overlapping {
		t.Fatalf("prefix paths must overlap")
	}
}

func TestOverlapDistinctFields(t *testing.T) {
	a := KeyPath{Root: "data", Segs: []KeySeg{fieldSeg("x", false)}}
	b := KeyPath{Root: "data", Segs: []KeySeg{fieldSeg("y", false)}}
	if Overlap(a, b) != disjoint {
		t.Fatalf("sibling fields must be disjoint")
	}
}

func TestOverlapDistinctRoots(t *testing.T) {
	a := KeyPath{Root: "a"}
	b := KeyPath{Root: "b"}
	if Overlap(a, b) != disjoint {
		t.Fatalf("different roots must be disjoint")
	}
}

func TestOverlapConstIndexDisjoint(t *testing.T) {
	a := KeyPath{Root: "v", Segs: []KeySeg{idxSeg(0)}}
	b := KeyPath{Root: "v", Segs: []KeySeg{idxSeg(1)}}
	if Overlap(a, b) != disjoint {
		t.Fatalf("distinct literal indices are provably disjoint")
	}
}

func TestOverlapDynamicIndexConservative(t *testing.T) {
	a := KeyPath{Root: "v", Segs: []KeySeg{{Kind: SegIndex}}}
	b := KeyPath{Root: "v", Segs: []KeySeg{idxSeg(1)}}
	if Overlap(a, b) != conservativeOverlap {
		t.Fatalf("dynamic index comparison must be conservatively overlapping")
	}
}

func TestBoundaryTruncates(t *testing.T) {
	// Boundary on a shared segment truncates: everything below the
	// boundary is one key, so the deeper distinct fields still conflict.
	a := KeyPath{Root: "d", Segs: []KeySeg{fieldSeg("m", true), fieldSeg("x", false)}}
	b := KeyPath{Root: "d", Segs: []KeySeg{fieldSeg("m", true), fieldSeg("y", false)}}
	if Overlap(a, b) != overlapping {
		t.Fatalf("boundary-marked segment must truncate traversal")
	}
}

func TestAcquireConflictAndCovers(t *testing.T) {
	kc := NewKeyContext()
	p := KeyPath{Root: "data", Segs: []KeySeg{fieldSeg("f", false)}}
	if conflict, _ := kc.Acquire(p, KeyWrite); conflict != nil {
		t.Fatalf("first acquire must succeed")
	}
	// Idempotent under Covers: re-acquiring a covered path is a no-op.
	if conflict, _ := kc.Acquire(p, KeyRead); conflict != nil {
		t.Fatalf("covered re-acquire must be idempotent")
	}
	// An overlapping write from elsewhere conflicts.
	q := KeyPath{Root: "data"}
	if conflict, _ := kc.Acquire(q, KeyWrite); conflict == nil {
		t.Fatalf("overlapping write acquisition must conflict")
	}
	// Two reads do not conflict.
	kc2 := NewKeyContext()
	kc2.Acquire(p, KeyRead)
	if conflict, _ := kc2.Acquire(q, KeyRead); conflict != nil {
		t.Fatalf("read/read must not conflict")
	}
}

func TestScopeRelease(t *testing.T) {
	kc := NewKeyContext()
	p := KeyPath{Root: "a"}
	kc.PushScope()
	kc.Acquire(p, KeyWrite)
	kc.PopScope()
	if kc.HeldAny() {
		t.Fatalf("popping the scope must release its keys")
	}
	if conflict, _ := kc.Acquire(p, KeyWrite); conflict != nil {
		t.Fatalf("released key must be reacquirable")
	}
}

func TestKeyPathString(t *testing.T) {
	p := KeyPath{Root: "d", Segs: []KeySeg{fieldSeg("m", true), idxSeg(3), {Kind: SegIndex}}}
	if got := p.String(); got != "d.#m[3][*]" {
		t.Fatalf("unexpected path rendering: %q", got)
	}
}
