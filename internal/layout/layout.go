package layout

import (
	"fmt"

	"cursive0/internal/types"
)

// Layout is the computed shape of one type.
type Layout struct {
	Size  uint64
	Align uint64
	// FieldOffsets is populated for records and tuples, in declaration
	// order.
	FieldOffsets []uint64
	// DiscSize is the discriminant size for enums, unions, and modal
	// selectors; zero elsewhere.
	DiscSize uint64
}

// RecordInfo is the layout-facing view of a record declaration, produced
// by the type checker: field types are resolved in terms of the formal
// generic names, substituted per instantiation.
type RecordInfo struct {
	Generics   []string
	FieldNames []string
	Fields     []types.TypeID
	Bitcopy    bool
}

// EnumInfo is the layout-facing view of an enum.
type EnumInfo struct {
	Generics []string
	Variants []VariantInfo
}

// VariantInfo is one enum variant's payload.
type VariantInfo struct {
	Name  string
	Elems []types.TypeID
}

// ModalInfo is the layout-facing view of a modal declaration: common
// prefix plus per-state records.
type ModalInfo struct {
	Common     []types.TypeID
	CommonName []string
	States     []StateInfo
}

// StateInfo is one modal state's name, field types and field names.
type StateInfo struct {
	Name       string
	Fields     []types.TypeID
	FieldNames []string
}

// Engine computes and caches layouts. The nominal-type tables are
// populated by the type checker before lowering begins; the engine is
// read-only thereafter.
type Engine struct {
	types *types.Interner

	Records map[string]*RecordInfo
	Enums   map[string]*EnumInfo
	Modals  map[string]*ModalInfo

	cache map[types.TypeID]Layout
	// inProgress guards against infinitely recursive value types; a
	// recursive record must indirect through a pointer.
	inProgress map[types.TypeID]bool
}

// NewEngine creates an empty engine over an interner.
func NewEngine(in *types.Interner) *Engine {
	return &Engine{
		types:      in,
		Records:    make(map[string]*RecordInfo),
		Enums:      make(map[string]*EnumInfo),
		Modals:     make(map[string]*ModalInfo),
		cache:      make(map[types.TypeID]Layout),
		inProgress: make(map[types.TypeID]bool),
	}
}

// Of computes (caching) the layout of a type. Errors surface for
// unsizable types: unresolved names and infinitely recursive values.
// Every string/bytes representation, the polymorphic one included, gets
// the two-word layout.
func (e *Engine) Of(id types.TypeID) (Layout, error) {
	if l, ok := e.cache[id]; ok {
		return l, nil
	}
	if e.inProgress[id] {
		return Layout{}, fmt.Errorf("layout: infinitely recursive type %s", types.Format(e.types, id))
	}
	e.inProgress[id] = true
	l, err := e.compute(id)
	delete(e.inProgress, id)
	if err != nil {
		return Layout{}, err
	}
	e.cache[id] = l
	return l, nil
}

// SizeAlign is the convenience used by transmute checking.
func (e *Engine) SizeAlign(id types.TypeID) (size, align uint64, ok bool) {
	l, err := e.Of(id)
	if err != nil {
		return 0, 0, false
	}
	return l.Size, l.Align, true
}
