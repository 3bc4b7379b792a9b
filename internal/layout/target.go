// Package layout computes sizes, alignments, field offsets, enum and
// union shapes, v-table layouts, and the Win64 parameter-passing
// decisions for every τ the compiler can place in memory.
package layout

import "cursive0/internal/types"

// Win64 target constants. Pointer size/align are target-fixed; ByValMax
// and ByValAlign bound what may travel in a register.
const (
	PtrSize  uint64 = 8
	PtrAlign uint64 = 8

	ByValMax   uint64 = 8
	ByValAlign uint64 = 8

	// WordSize is the register slot the ByVal classification rounds
	// aggregate sizes up to before comparing against ByValMax.
	WordSize uint64 = 8
)

// primLayout is the fixed primitive size/align table.
func primLayout(p types.Prim) (size, align uint64, ok bool) {
	switch p {
	case types.PrimBool, types.PrimI8, types.PrimU8:
		return 1, 1, true
	case types.PrimI16, types.PrimU16:
		return 2, 2, true
	case types.PrimChar, types.PrimI32, types.PrimU32, types.PrimF32:
		return 4, 4, true
	case types.PrimI64, types.PrimU64, types.PrimUsize, types.PrimF64:
		return 8, 8, true
	case types.PrimUnit, types.PrimNever:
		return 0, 1, true
	default:
		return 0, 0, false
	}
}

// roundUp rounds n up to the next multiple of align (align is a power of
// two for every type this compiler lays out).
func roundUp(n, align uint64) uint64 {
	if align == 0 {
		return n
	}
	return (n + align - 1) &^ (align - 1)
}
