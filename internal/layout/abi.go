package layout

import "cursive0/internal/types"

// PassKind is one of the three parameter/return passing modes.
type PassKind uint8

const (
	ByValue PassKind = iota
	ByRef
	SRet
)

func (k PassKind) String() string {
	switch k {
	case ByValue:
		return "byvalue"
	case ByRef:
		return "byref"
	default:
		return "sret"
	}
}

// ParamPassMode mirrors the checker's borrow/move distinction without
// importing it.
type ParamPassMode uint8

const (
	PassBorrow ParamPassMode = iota
	PassMove
)

// CallABI is a call's full ABI: per-parameter kinds, the return kind, and
// whether argument index 0 is consumed by the sret pointer.
type CallABI struct {
	Params       []PassKind
	Ret          PassKind
	SRetConsumes bool
	// StructRetIndex is the argument index carrying the StructRet
	// attribute when SRetConsumes is set (always 0 on Win64).
	StructRetIndex int
	// PtrValidIndices lists argument indices that carry the pointer
	// validity attribute set (every ByRef parameter).
	PtrValidIndices []int
}

// ByValOk reports whether a type fits a Win64 register slot: the size
// rounded up to a word must not exceed ByValMax and the alignment must
// not exceed ByValAlign.
func (e *Engine) ByValOk(id types.TypeID) bool {
	l, err := e.Of(id)
	if err != nil {
		return false
	}
	return roundUp(l.Size, WordSize) <= ByValMax && l.Align <= ByValAlign
}

// ABIParam decides one parameter: borrowed parameters always pass by
// reference; moved parameters pass by value when empty or register-sized,
// otherwise by reference to a stack copy.
func (e *Engine) ABIParam(mode ParamPassMode, id types.TypeID) PassKind {
	if mode == PassBorrow {
		return ByRef
	}
	l, err := e.Of(id)
	if err != nil {
		return ByRef
	}
	if l.Size == 0 || e.ByValOk(id) {
		return ByValue
	}
	return ByRef
}

// ABIRet decides the return slot: empty or register-sized returns travel
// by value, anything larger through a caller-allocated sret pointer.
func (e *Engine) ABIRet(id types.TypeID) PassKind {
	l, err := e.Of(id)
	if err != nil {
		return SRet
	}
	if l.Size == 0 || e.ByValOk(id) {
		return ByValue
	}
	return SRet
}

// ABIOf computes a procedure's complete call ABI.
func (e *Engine) ABIOf(params []types.TypeID, modes []ParamPassMode, ret types.TypeID) CallABI {
	abi := CallABI{Ret: e.ABIRet(ret)}
	if abi.Ret == SRet {
		abi.SRetConsumes = true
		abi.StructRetIndex = 0
	}
	offset := 0
	if abi.SRetConsumes {
		offset = 1
	}
	for i, p := range params {
		mode := PassBorrow
		if modes != nil && i < len(modes) {
			mode = modes[i]
		}
		kind := e.ABIParam(mode, p)
		abi.Params = append(abi.Params, kind)
		if kind == ByRef {
			abi.PtrValidIndices = append(abi.PtrValidIndices, offset+i)
		}
	}
	return abi
}
