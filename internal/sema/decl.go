package sema

import (
	"cursive0/internal/ast"
	"cursive0/internal/diag"
	"cursive0/internal/layout"
	"cursive0/internal/types"
)

// collectSignatures is pass 1: every procedure's signature, every static's
// type, and every class's v-table slot order, before any body is checked.
func (c *checker) collectSignatures(item ast.Item) {
	switch it := item.(type) {
	case *ast.ProcedureDecl:
		c.typed.Sigs[it] = c.signatureOf(it, types.NoType, false)
	case *ast.RecordDecl:
		key := c.module + "::" + it.Name.Name
		recvType := c.types.PathType(key)
		for _, m := range it.Methods {
			c.typed.Sigs[m] = c.signatureOf(m, recvType, false)
		}
		info := &layout.RecordInfo{}
		for _, g := range it.Generics {
			info.Generics = append(info.Generics, g.Name)
		}
		for _, f := range it.Fields {
			info.FieldNames = append(info.FieldNames, f.Name.Name)
			info.Fields = append(info.Fields, c.resolveType(f.Type))
		}
		for _, cls := range it.Classes {
			if cls.Last().Name == "Bitcopy" {
				info.Bitcopy = true
			}
		}
		c.typed.Layout.Records[key] = info
	case *ast.EnumDecl:
		key := c.module + "::" + it.Name.Name
		info := &layout.EnumInfo{}
		for _, g := range it.Generics {
			info.Generics = append(info.Generics, g.Name)
		}
		for _, v := range it.Variants {
			vi := layout.VariantInfo{Name: v.Name.Name}
			for _, el := range v.Elems {
				vi.Elems = append(vi.Elems, c.resolveType(el))
			}
			info.Variants = append(info.Variants, vi)
		}
		c.typed.Layout.Enums[key] = info
	case *ast.ModalDecl:
		key := c.module + "::" + it.Name.Name
		info := &layout.ModalInfo{}
		for _, f := range it.Common {
			info.CommonName = append(info.CommonName, f.Name.Name)
			info.Common = append(info.Common, c.resolveType(f.Type))
		}
		for si := range it.States {
			st := &it.States[si]
			recvType := c.types.ModalState(key, st.Name.Name)
			for _, m := range st.Methods {
				c.typed.Sigs[m] = c.signatureOf(m, recvType, false)
			}
			sti := layout.StateInfo{Name: st.Name.Name}
			for _, f := range st.Fields {
				sti.FieldNames = append(sti.FieldNames, f.Name.Name)
				sti.Fields = append(sti.Fields, c.resolveType(f.Type))
			}
			info.States = append(info.States, sti)
		}
		c.typed.Layout.Modals[key] = info
	case *ast.ClassDecl:
		classKey := c.module + "::" + it.Name.Name
		slots := make([]string, 0, len(it.Methods))
		recvType := c.types.Dynamic(classKey)
		for _, m := range it.Methods {
			slots = append(slots, m.Name.Name)
			c.typed.Sigs[m] = c.signatureOf(m, recvType, false)
		}
		c.typed.VTableSlots[classKey] = slots
	case *ast.ExternBlock:
		for _, p := range it.Procs {
			sig := c.signatureOf(p, types.NoType, true)
			c.typed.Sigs[p] = sig
			// Extern procedures are capability sinks: they may not accept
			// capability parameters.
			for _, param := range sig.Params {
				if param.Capability != "" {
					c.errorf(diag.ErrExternCapability, p.Span, "%q", param.Capability)
				}
			}
			if p.Body != nil {
				c.errorf(diag.ErrUnsupportedForm, p.Span, "extern procedure with a body")
			}
		}
	case *ast.StaticDecl:
		c.typed.Statics[it] = c.resolveType(it.Type)
	}
}

func (c *checker) signatureOf(p *ast.ProcedureDecl, recvType types.TypeID, isExtern bool) *ProcSig {
	sig := &ProcSig{
		PathKey:  c.module + "::" + p.Name.Name,
		Receiver: recvType,
		IsExtern: isExtern,
		Caps:     make(map[string]bool),
	}
	if p.Receiver != nil {
		switch p.Receiver.Perm {
		case ast.RecvConst:
			sig.RecvPerm = types.PermConst
		case ast.RecvUnique:
			sig.RecvPerm = types.PermUnique
		default:
			sig.RecvPerm = types.PermShared
		}
	}
	for _, param := range p.Params {
		ps := ParamSig{Name: param.Name.Name, Type: c.resolveType(param.Type)}
		if param.Move {
			ps.Mode = ModeMove
		}
		if capT, ok := param.Type.(*ast.CapabilityTypeExpr); ok {
			if d := c.lookupType(capT); d != nil {
				ps.Capability = d.PathKey
				sig.Caps[d.PathKey] = true
			}
		}
		sig.Params = append(sig.Params, ps)
	}
	sig.Ret = c.types.PrimT(types.PrimUnit)
	if p.Ret != nil {
		sig.Ret = c.resolveType(p.Ret)
	}
	if _, _, _, _, ok := c.asyncParams(sig.Ret); ok {
		sig.IsAsync = true
	}
	return sig
}

// checkItem is pass 2: bodies and item-level well-formedness.
func (c *checker) checkItem(item ast.Item) {
	switch it := item.(type) {
	case *ast.ProcedureDecl:
		c.checkProcedure(it)
	case *ast.RecordDecl:
		c.checkRecordDecl(it)
	case *ast.ModalDecl:
		c.checkModalDecl(it)
	case *ast.ClassDecl:
		for _, m := range it.Methods {
			if m.Body != nil {
				c.errorf(diag.ErrUnsupportedForm, m.Span, "class methods carry signatures only")
			}
		}
	case *ast.StaticDecl:
		declared := c.typed.Statics[it]
		if it.Value != nil {
			got := c.inferExpr(it.Value, declared)
			c.requireAssignable(got, declared, it.Value.ExprSpan())
		}
	}
}

func (c *checker) checkRecordDecl(d *ast.RecordDecl) {
	seen := make(map[string]bool)
	for _, f := range d.Fields {
		if seen[f.Name.Name] {
			c.errorf(diag.ErrDuplicateTopLevel, f.Span, "field %q", f.Name.Name)
		}
		seen[f.Name.Name] = true
	}
	for _, m := range d.Methods {
		c.checkProcedure(m)
	}
	// Class conformance: every implemented class's methods must appear as
	// direct methods with matching arity.
	for _, classPath := range d.Classes {
		c.checkClassConformance(d, classPath)
	}
}

func (c *checker) checkModalDecl(d *ast.ModalDecl) {
	modalKey := c.module + "::" + d.Name.Name
	stateNames := make(map[string]bool)
	for si := range d.States {
		st := &d.States[si]
		if stateNames[st.Name.Name] {
			c.errorf(diag.ErrDuplicateTopLevel, st.Span, "state %q", st.Name.Name)
		}
		stateNames[st.Name.Name] = true
		for _, m := range st.Methods {
			c.checkProcedure(m)
			// Transition methods consume the receiver and must return a
			// different state of the same modal.
			if m.Receiver != nil && m.Receiver.Transition {
				sig := c.typed.Sigs[m]
				ret := c.types.Get(sig.Ret)
				if ret.Kind != types.KindModalState || ret.Path != modalKey {
					c.errorf(diag.ErrModalWrongState, m.Span,
						"transition method %q must return a state of %s", m.Name.Name, d.Name.Name)
				} else if ret.State == st.Name.Name {
					c.errorf(diag.ErrModalWrongState, m.Span,
						"transition method %q must leave state %s", m.Name.Name, st.Name.Name)
				}
			}
		}
	}
}

func (c *checker) checkClassConformance(d *ast.RecordDecl, classPath ast.Path) {
	name := classPath.Last().Name
	if name == "Bitcopy" {
		// Marker class: no methods to check; the implementing record must
		// itself be byte-copyable, verified against field types.
		for _, f := range d.Fields {
			ft := c.resolveType(f.Type)
			if !types.IsBitcopy(c.types, ft, c.bitcopyQuery()) {
				c.errorf(diag.ErrUnsupportedForm, f.Span,
					"field %q of non-Bitcopy type in a Bitcopy record", f.Name.Name)
			}
		}
		return
	}
	classDecl := c.findClassDecl(name)
	if classDecl == nil {
		return // unresolved; already diagnosed in P2
	}
	direct := make(map[string]*ast.ProcedureDecl)
	for _, m := range d.Methods {
		direct[m.Name.Name] = m
	}
	for _, want := range classDecl.Methods {
		got, ok := direct[want.Name.Name]
		if !ok {
			c.errorf(diag.ErrUnresolvedName, d.Span,
				"record %s does not implement %s::%s", d.Name.Name, name, want.Name.Name)
			continue
		}
		if len(got.Params) != len(want.Params) {
			c.errorf(diag.ErrUnresolvedName, got.Span,
				"method %s has %d parameters; class %s declares %d",
				got.Name.Name, len(got.Params), name, len(want.Params))
		}
	}
}

func (c *checker) findClassDecl(name string) *ast.ClassDecl {
	scope := c.table.Scope(c.module)
	if d, ok := scope.Classes[name]; ok && d.Class != nil {
		return d.Class
	}
	if d, ok := scope.Imported[name]; ok && d.Class != nil {
		return d.Class
	}
	return nil
}

// bitcopyQuery answers "does this nominal type implement Bitcopy" from Σ.
func (c *checker) bitcopyQuery() types.BitcopyQuery {
	return func(path string) bool {
		d, ok := c.table.Lookup(path)
		if !ok || d.Record == nil {
			return false
		}
		for _, cls := range d.Record.Classes {
			if cls.Last().Name == "Bitcopy" {
				return true
			}
		}
		return false
	}
}

func (c *checker) isBitcopy(id types.TypeID) bool {
	base, _ := c.types.Unwrap(id)
	return types.IsBitcopy(c.types, base, c.bitcopyQuery())
}
