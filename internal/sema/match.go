package sema

import (
	"cursive0/internal/ast"
	"cursive0/internal/diag"
	"cursive0/internal/types"
)

// inferMatch types a match expression: each arm's pattern is checked
// against the scrutinee type (binding names flow into the arm's scope),
// arm bodies must share a common type, and the arm set must be exhaustive
// with no unreachable member.
func (c *checker) inferMatch(x *ast.MatchExpr, e ast.Expr, expected types.TypeID) types.TypeID {
	scrutT, _, _ := c.inferPlace(x.Scrutinee)
	c.keyAccess(x.Scrutinee, false)
	scrutBase, _ := c.types.Unwrap(scrutT)

	result := types.NoType
	cov := newCoverage(c, scrutBase)
	for _, arm := range x.Arms {
		c.env.Push()
		c.checkPattern(arm.Pat, scrutBase)
		if cov.covered() {
			c.errorf(diag.ErrMatchUnreachable, arm.Span, "match arm is unreachable")
		}
		cov.add(arm.Pat)
		armT := c.inferExpr(arm.Body, expected)
		result = c.join(result, armT)
		c.env.Pop()
	}
	if !cov.covered() {
		c.errorf(diag.ErrMatchNonExhaustive, x.Span, "%s", types.Format(c.types, scrutBase))
	}
	return c.setTau(e, result)
}

// checkPattern verifies a pattern against the scrutinee type and binds
// its names in the current scope.
func (c *checker) checkPattern(p ast.Pattern, scrut types.TypeID) {
	st := c.types.Get(scrut)
	switch pt := p.(type) {
	case *ast.WildcardPattern:
	case *ast.BindingPattern:
		c.env.Bind(pt.Name.Name, &TypeBinding{Mutable: false, Type: scrut, Perm: types.PermConst})
	case *ast.LiteralPattern:
		litT := c.inferExpr(pt.Value, scrut)
		c.requireAssignable(litT, scrut, pt.Span)
	case *ast.RangePattern:
		if st.Kind != types.KindPrim || !st.Prim.IsInteger() {
			c.errorf(diag.ErrTypeMismatch, pt.Span, "range patterns require an integer scrutinee, found %s",
				types.Format(c.types, scrut))
		}
		if pt.Lo != nil {
			c.inferExpr(pt.Lo, scrut)
		}
		if pt.Hi != nil {
			c.inferExpr(pt.Hi, scrut)
		}
	case *ast.TuplePattern:
		if st.Kind != types.KindTuple || len(st.Elems) != len(pt.Elems) {
			c.errorf(diag.ErrTypeMismatch, pt.Span, "expected %s, found a %d-tuple pattern",
				types.Format(c.types, scrut), len(pt.Elems))
			return
		}
		for i, el := range pt.Elems {
			c.checkPattern(el, st.Elems[i])
		}
	case *ast.VariantPattern:
		c.checkVariantPattern(pt, scrut)
	}
}

func (c *checker) checkVariantPattern(pt *ast.VariantPattern, scrut types.TypeID) {
	st := c.types.Get(scrut)
	switch st.Kind {
	case types.KindPathType:
		d, ok := c.table.Lookup(st.Path)
		if ok && d.Enum != nil {
			name := pt.Path.Last().Name
			for _, v := range d.Enum.Variants {
				if v.Name.Name != name {
					continue
				}
				if len(pt.Elems) != len(v.Elems) {
					c.errorf(diag.ErrArityMismatch, pt.Span, "variant %s has %d values, pattern binds %d",
						name, len(v.Elems), len(pt.Elems))
				}
				for i, el := range pt.Elems {
					elT := types.NoType
					if i < len(v.Elems) {
						elT = c.resolveType(v.Elems[i])
					}
					c.checkPattern(el, elT)
				}
				return
			}
			c.errorf(diag.ErrUnresolvedName, pt.Span, "enum %s has no variant %q", d.Name, name)
			return
		}
		if ok && d.Modal != nil {
			// Widened modal scrutinee narrowing to a state pattern
			// (pattern-match introduction is the only widening point).
			state := pt.Path.Last().Name
			for _, stBlock := range d.Modal.States {
				if stBlock.Name.Name != state {
					continue
				}
				stateT := c.types.ModalState(st.Path, state)
				for i, el := range pt.Elems {
					elT := types.NoType
					if i < len(stBlock.Fields) {
						elT = c.resolveType(stBlock.Fields[i].Type)
					}
					c.checkPattern(el, elT)
				}
				// A single binding element binds the whole narrowed value.
				if len(pt.Elems) == 1 {
					if b, ok := pt.Elems[0].(*ast.BindingPattern); ok {
						c.env.Bind(b.Name.Name, &TypeBinding{Type: stateT, Perm: types.PermConst})
					}
				}
				return
			}
			c.errorf(diag.ErrUnresolvedName, pt.Span, "modal %s has no state %q", d.Name, state)
			return
		}
	case types.KindUnion:
		// Variant-shaped patterns against a union scrutinee are accepted
		// as written: the named member type is not checked, and element
		// patterns are neither typed nor bound.
		return
	}
	c.errorf(diag.ErrTypeMismatch, pt.Span, "pattern does not fit scrutinee type %s",
		types.Format(c.types, scrut))
}

// coverage tracks exhaustiveness per scrutinee shape: bool literal pairs,
// enum variant sets, modal state sets, and integer interval unions; a
// wildcard or bare binding covers everything.
type coverage struct {
	c     *checker
	scrut types.TypeID

	full      bool
	boolSeen  [2]bool
	names     map[string]bool // variant or state names seen
	nameCount int
	intervals []interval
}

type interval struct{ lo, hi int64 } // inclusive

func newCoverage(c *checker, scrut types.TypeID) *coverage {
	cov := &coverage{c: c, scrut: scrut, names: make(map[string]bool)}
	st := c.types.Get(scrut)
	switch st.Kind {
	case types.KindPathType:
		if d, ok := c.table.Lookup(st.Path); ok {
			switch {
			case d.Enum != nil:
				cov.nameCount = len(d.Enum.Variants)
			case d.Modal != nil:
				cov.nameCount = len(d.Modal.States)
			}
		}
	}
	return cov
}

func (cov *coverage) add(p ast.Pattern) {
	switch pt := p.(type) {
	case *ast.WildcardPattern, *ast.BindingPattern:
		cov.full = true
	case *ast.LiteralPattern:
		switch lit := pt.Value.(type) {
		case *ast.BoolLitExpr:
			if lit.Value {
				cov.boolSeen[1] = true
			} else {
				cov.boolSeen[0] = true
			}
		case *ast.IntLitExpr:
			if v, ok := parseIntText(lit.Text); ok {
				cov.intervals = append(cov.intervals, interval{v, v})
			}
		}
	case *ast.RangePattern:
		lo, hi, ok := cov.rangeBounds(pt)
		if ok {
			cov.intervals = append(cov.intervals, interval{lo, hi})
		}
	case *ast.VariantPattern:
		cov.names[pt.Path.Last().Name] = true
	}
}

func (cov *coverage) rangeBounds(pt *ast.RangePattern) (int64, int64, bool) {
	lo, hi, ok := int64(0), int64(0), true
	loSet, hiSet := false, false
	if pt.Lo != nil {
		if l, o := cov.c.constEvalInt(pt.Lo); o {
			lo, loSet = l, true
		}
	}
	if pt.Hi != nil {
		if h, o := cov.c.constEvalInt(pt.Hi); o {
			hi, hiSet = h, true
			if !pt.Inclusive {
				hi--
			}
		}
	}
	dlo, dhi := cov.intDomain()
	if !loSet {
		lo = dlo
	}
	if !hiSet {
		hi = dhi
	}
	return lo, hi, ok
}

func (cov *coverage) intDomain() (int64, int64) {
	st := cov.c.types.Get(cov.scrut)
	if st.Kind != types.KindPrim || !st.Prim.IsInteger() {
		return 0, -1
	}
	bits := primBits(st.Prim)
	if st.Prim.IsSigned() {
		if bits == 64 {
			return -1 << 62, 1<<62 - 1 // wide sentinel; full i64 coverage needs a wildcard
		}
		return -(int64(1) << (bits - 1)), int64(1)<<(bits-1) - 1
	}
	if bits >= 63 {
		return 0, 1<<62 - 1
	}
	return 0, int64(1)<<bits - 1
}

func (cov *coverage) covered() bool {
	if cov.full {
		return true
	}
	st := cov.c.types.Get(cov.scrut)
	switch st.Kind {
	case types.KindPrim:
		switch {
		case st.Prim == types.PrimBool:
			return cov.boolSeen[0] && cov.boolSeen[1]
		case st.Prim.IsInteger():
			lo, hi := cov.intDomain()
			return intervalsCover(cov.intervals, lo, hi)
		}
	case types.KindPathType:
		if cov.nameCount > 0 {
			return len(cov.names) >= cov.nameCount
		}
	}
	return false
}

// intervalsCover merges sorted intervals and checks [lo, hi] is covered.
func intervalsCover(ivs []interval, lo, hi int64) bool {
	if lo > hi || len(ivs) == 0 {
		return false
	}
	sorted := append([]interval(nil), ivs...)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j-1].lo > sorted[j].lo; j-- {
			sorted[j-1], sorted[j] = sorted[j], sorted[j-1]
		}
	}
	next := lo
	for _, iv := range sorted {
		if iv.lo > next {
			return false
		}
		if iv.hi >= next {
			if iv.hi >= hi {
				return true
			}
			next = iv.hi + 1
		}
	}
	return false
}
