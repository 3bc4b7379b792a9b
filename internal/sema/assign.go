package sema

import (
	"cursive0/internal/ast"
	"cursive0/internal/diag"
	"cursive0/internal/source"
	"cursive0/internal/types"
)

// assignable implements value-position compatibility. Permission wrappers
// are transparent for value assignment; they constrain places, not
// values.
func (c *checker) assignable(got, want types.TypeID) bool {
	if got == types.NoType || want == types.NoType {
		return true // already diagnosed upstream; avoid cascades
	}
	gotBase, _ := c.types.Unwrap(got)
	wantBase, _ := c.types.Unwrap(want)
	if gotBase == wantBase {
		return true
	}
	g, w := c.types.Get(gotBase), c.types.Get(wantBase)
	if g.Kind == types.KindPrim && g.Prim == types.PrimNever {
		return true
	}
	// A union accepts any of its members.
	if w.Kind == types.KindUnion {
		for _, m := range w.Elems {
			if c.assignable(gotBase, m) {
				return true
			}
		}
		// A union value is assignable when every member fits.
		if g.Kind == types.KindUnion {
			for _, m := range g.Elems {
				if !c.assignable(m, wantBase) {
					return false
				}
			}
			return true
		}
		return false
	}
	// String/Bytes representation polymorphism: the polymorphic form
	// unifies with either pinned representation.
	if g.Kind == w.Kind && (g.Kind == types.KindString || g.Kind == types.KindBytes) {
		return g.Repr == types.StringPolymorphic || w.Repr == types.StringPolymorphic || g.Repr == w.Repr
	}
	// dyn Class accepts any nominal type implementing the class.
	if w.Kind == types.KindDynamic && g.Kind == types.KindPathType {
		return c.implementsClass(g.Path, w.Path)
	}
	return false
}

func (c *checker) requireAssignable(got, want types.TypeID, span source.Span) {
	if !c.assignable(got, want) {
		c.errorf(diag.ErrTypeMismatch, span, "expected %s, found %s",
			types.Format(c.types, want), types.Format(c.types, got))
	}
}

// implementsClass consults Σ for "record implements class".
func (c *checker) implementsClass(recordPath, classPath string) bool {
	d, ok := c.table.Lookup(recordPath)
	if !ok || d.Record == nil {
		return false
	}
	clsName := lastKeySegment(classPath)
	for _, cls := range d.Record.Classes {
		if cls.Last().Name == clsName || cls.Key() == classPath {
			return true
		}
	}
	return false
}

func lastKeySegment(key string) string {
	for i := len(key) - 2; i >= 0; i-- {
		if key[i] == ':' && key[i+1] == ':' {
			return key[i+2:]
		}
	}
	return key
}

// join computes the nearest common supertype of two branch types, falling
// back to a normalized union.
func (c *checker) join(a, b types.TypeID) types.TypeID {
	if a == types.NoType {
		return b
	}
	if b == types.NoType {
		return a
	}
	if a == b {
		return a
	}
	if c.isNever(a) {
		return b
	}
	if c.isNever(b) {
		return a
	}
	ta, tb := c.types.Get(a), c.types.Get(b)
	// Two states of the same modal widen to the modal itself.
	if ta.Kind == types.KindModalState && tb.Kind == types.KindModalState && ta.Path == tb.Path {
		return c.types.PathType(ta.Path)
	}
	if c.assignable(a, b) {
		return b
	}
	if c.assignable(b, a) {
		return a
	}
	return types.NormalizeUnion(c.types, []types.TypeID{a, b})
}

// requireMoveDiscipline rejects using a non-Bitcopy place as a value
// without an explicit move.
func (c *checker) requireMoveDiscipline(e ast.Expr, t types.TypeID) {
	if c.isBitcopy(t) {
		return
	}
	switch x := e.(type) {
	case *ast.MoveExpr:
		return
	case *ast.IdentExpr, *ast.FieldExpr, *ast.IndexExpr:
		c.errorf(diag.ErrValueUseNonBitcopy, e.ExprSpan(), "%q", placeString(e))
	case *ast.DerefExpr:
		c.errorf(diag.ErrValueUseNonBitcopy, e.ExprSpan(), "%q", placeString(x.X))
	}
}

// placeString renders a place expression for diagnostics.
func placeString(e ast.Expr) string {
	switch x := e.(type) {
	case *ast.IdentExpr:
		return x.Name
	case *ast.PathExpr:
		return x.Path.Key()
	case *ast.FieldExpr:
		return placeString(x.X) + "." + x.Name.Name
	case *ast.IndexExpr:
		return placeString(x.X) + "[...]"
	case *ast.DerefExpr:
		return "*" + placeString(x.X)
	default:
		return "<expr>"
	}
}
