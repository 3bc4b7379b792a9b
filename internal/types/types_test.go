package types

import "testing"

func TestInternerDedupes(t *testing.T) {
	in := NewInterner()
	a := in.PrimT(PrimI32)
	b := in.PrimT(PrimI32)
	if a != b {
		t.Fatalf("expected same TypeID for repeated PrimT, got %d vs %d", a, b)
	}
}

func TestPermissionLattice(t *testing.T) {
	if !PermUnique.Satisfies(PermConst) {
		t.Fatalf("Unique should satisfy a Const requirement")
	}
	if !PermShared.Satisfies(PermShared) {
		t.Fatalf("Shared should satisfy a Shared requirement")
	}
	if PermShared.Satisfies(PermUnique) {
		t.Fatalf("Shared should not satisfy a Unique requirement")
	}
	if !PermConst.Satisfies(PermConst) {
		t.Fatalf("Const should satisfy Const")
	}
	if PermConst.Satisfies(PermShared) {
		t.Fatalf("Const should not satisfy Shared")
	}
}

func TestUnionNormalizeFlattensAndDedupes(t *testing.T) {
	in := NewInterner()
	i32 := in.PrimT(PrimI32)
	boolT := in.PrimT(PrimBool)
	u1 := NormalizeUnion(in, []TypeID{i32, boolT})
	u2 := NormalizeUnion(in, []TypeID{u1, i32, boolT})
	if u1 != u2 {
		t.Fatalf("expected flattened union to dedupe to same id, got %d vs %d", u1, u2)
	}
}

func TestUnionSingleMemberCollapses(t *testing.T) {
	in := NewInterner()
	i32 := in.PrimT(PrimI32)
	u := NormalizeUnion(in, []TypeID{i32, i32})
	if u != i32 {
		t.Fatalf("single-member union should collapse to the member itself")
	}
}

func TestIsBitcopyPrimitivesAndPointers(t *testing.T) {
	in := NewInterner()
	i32 := in.PrimT(PrimI32)
	if !IsBitcopy(in, i32, nil) {
		t.Fatalf("primitives should be Bitcopy")
	}
	ptr := in.Ptr(i32, PtrValid)
	if !IsBitcopy(in, ptr, nil) {
		t.Fatalf("pointers should be Bitcopy")
	}
}

func TestSubstituteGenericArg(t *testing.T) {
	in := NewInterner()
	i32 := in.PrimT(PrimI32)
	formalT := in.PathType("T")
	boxOfT := in.PathType("Box", formalT)
	got := Substitute(in, boxOfT, map[string]TypeID{"T": i32})
	want := in.PathType("Box", i32)
	if got != want {
		t.Fatalf("substitute mismatch: got %s want %s", Format(in, got), Format(in, want))
	}
}
