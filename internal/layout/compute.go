package layout

import (
	"fmt"

	"cursive0/internal/types"
)

func (e *Engine) compute(id types.TypeID) (Layout, error) {
	t := e.types.Get(id)
	switch t.Kind {
	case types.KindPrim:
		size, align, ok := primLayout(t.Prim)
		if !ok {
			return Layout{}, fmt.Errorf("layout: invalid primitive")
		}
		return Layout{Size: size, Align: align}, nil
	case types.KindPtr, types.KindRawPtr, types.KindFunc:
		return Layout{Size: PtrSize, Align: PtrAlign}, nil
	case types.KindSlice, types.KindDynamic:
		// Fat pointers: (data, len) and (data, vtable).
		return Layout{Size: 2 * PtrSize, Align: PtrAlign}, nil
	case types.KindString, types.KindBytes:
		// View and managed forms share the two-word shape; the managed
		// form's capacity word lives behind the data pointer.
		return Layout{Size: 2 * PtrSize, Align: PtrAlign}, nil
	case types.KindRange:
		// (start, end, flags) packed as three words.
		return Layout{Size: 3 * 8, Align: 8}, nil
	case types.KindArray:
		elem, err := e.Of(t.Elem)
		if err != nil {
			return Layout{}, err
		}
		return Layout{Size: roundUp(elem.Size, elem.Align) * t.ArrayLen, Align: elem.Align}, nil
	case types.KindTuple:
		return e.recordShape(t.Elems)
	case types.KindUnion:
		return e.unionShape(t.Elems)
	case types.KindPerm:
		return e.Of(t.Elem)
	case types.KindPathType:
		return e.nominalShape(t)
	case types.KindModalState:
		return e.modalStateShape(t.Path, t.State)
	default:
		return Layout{}, fmt.Errorf("layout: unsizable type %s", types.Format(e.types, id))
	}
}

// recordShape lays fields in declaration order: each offset is the
// previous end rounded up to the field's alignment; struct align is the
// max of field aligns; size rounds up to align.
func (e *Engine) recordShape(fields []types.TypeID) (Layout, error) {
	var offset, align uint64
	align = 1
	offsets := make([]uint64, len(fields))
	for i, f := range fields {
		fl, err := e.Of(f)
		if err != nil {
			return Layout{}, err
		}
		if fl.Align > align {
			align = fl.Align
		}
		offset = roundUp(offset, fl.Align)
		offsets[i] = offset
		offset += fl.Size
	}
	return Layout{Size: roundUp(offset, align), Align: align, FieldOffsets: offsets}, nil
}

// nominalShape handles records (plain structs), enums (discriminant +
// max variant payload), and widened modals (selector + max state).
func (e *Engine) nominalShape(t types.Type) (Layout, error) {
	if rec, ok := e.Records[t.Path]; ok {
		fields := rec.Fields
		if len(rec.Generics) > 0 {
			if len(t.Args) != len(rec.Generics) {
				return Layout{}, fmt.Errorf("layout: %s used without full instantiation", t.Path)
			}
			bind := make(map[string]types.TypeID, len(rec.Generics))
			for i, g := range rec.Generics {
				bind[g] = t.Args[i]
			}
			fields = make([]types.TypeID, len(rec.Fields))
			for i, f := range rec.Fields {
				fields[i] = types.Substitute(e.types, f, bind)
			}
		}
		return e.recordShape(fields)
	}
	if en, ok := e.Enums[t.Path]; ok {
		return e.enumShape(en, t.Args)
	}
	if mo, ok := e.Modals[t.Path]; ok {
		return e.modalShape(mo)
	}
	return Layout{}, fmt.Errorf("layout: unknown nominal type %s", t.Path)
}

// enumShape picks the smallest discriminant that distinguishes the
// variants, then lays each variant's payload after it with record rules;
// size/align are the max across variants.
func (e *Engine) enumShape(en *EnumInfo, args []types.TypeID) (Layout, error) {
	disc := discSize(len(en.Variants))
	var size, align uint64
	align = maxU64(1, disc)
	var bind map[string]types.TypeID
	if len(en.Generics) > 0 {
		if len(args) != len(en.Generics) {
			return Layout{}, fmt.Errorf("layout: enum used without full instantiation")
		}
		bind = make(map[string]types.TypeID, len(en.Generics))
		for i, g := range en.Generics {
			bind[g] = args[i]
		}
	}
	for _, v := range en.Variants {
		elems := v.Elems
		if bind != nil {
			elems = make([]types.TypeID, len(v.Elems))
			for i, el := range v.Elems {
				elems[i] = types.Substitute(e.types, el, bind)
			}
		}
		payload, err := e.recordShape(elems)
		if err != nil {
			return Layout{}, err
		}
		if payload.Align > align {
			align = payload.Align
		}
		vsize := roundUp(disc, payload.Align) + payload.Size
		if vsize > size {
			size = vsize
		}
	}
	if size == 0 {
		size = disc
	}
	return Layout{Size: roundUp(size, align), Align: align, DiscSize: disc}, nil
}

// unionShape is the max-sized member plus a tag selected per variant.
func (e *Engine) unionShape(members []types.TypeID) (Layout, error) {
	disc := discSize(len(members))
	var size, align uint64
	align = maxU64(1, disc)
	for _, m := range members {
		ml, err := e.Of(m)
		if err != nil {
			return Layout{}, err
		}
		if ml.Align > align {
			align = ml.Align
		}
		msize := roundUp(disc, ml.Align) + ml.Size
		if msize > size {
			size = msize
		}
	}
	return Layout{Size: roundUp(size, align), Align: align, DiscSize: disc}, nil
}

// modalShape lays a widened modal value: a state selector, the common
// field prefix, then the max across per-state records.
func (e *Engine) modalShape(mo *ModalInfo) (Layout, error) {
	disc := discSize(len(mo.States))
	common, err := e.recordShape(mo.Common)
	if err != nil {
		return Layout{}, err
	}
	size := roundUp(disc, common.Align) + common.Size
	align := maxU64(maxU64(1, disc), common.Align)
	var maxState uint64
	for _, st := range mo.States {
		sl, err := e.recordShape(st.Fields)
		if err != nil {
			return Layout{}, err
		}
		if sl.Align > align {
			align = sl.Align
		}
		ssize := roundUp(size, sl.Align) + sl.Size
		if ssize > maxState {
			maxState = ssize
		}
	}
	if maxState < size {
		maxState = size
	}
	return Layout{Size: roundUp(maxState, align), Align: align, DiscSize: disc}, nil
}

// modalStateShape lays one concrete state: common prefix then the state's
// own fields, no selector (the state is statically known).
func (e *Engine) modalStateShape(path, state string) (Layout, error) {
	mo, ok := e.Modals[path]
	if !ok {
		return Layout{}, fmt.Errorf("layout: unknown modal %s", path)
	}
	for _, st := range mo.States {
		if st.Name != state {
			continue
		}
		all := append(append([]types.TypeID(nil), mo.Common...), st.Fields...)
		return e.recordShape(all)
	}
	return Layout{}, fmt.Errorf("layout: modal %s has no state %s", path, state)
}

// discSize picks the smallest discriminant distinguishing n variants.
func discSize(n int) uint64 {
	switch {
	case n <= 1<<8:
		return 1
	case n <= 1<<16:
		return 2
	default:
		return 4
	}
}

func maxU64(a, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}
