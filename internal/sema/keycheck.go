package sema

import (
	"sort"

	"cursive0/internal/ast"
	"cursive0/internal/diag"
	"cursive0/internal/source"
)

// exprToKeyPath lowers a place expression to a key path. ok is false for
// expressions that are not key-addressable (calls, temporaries).
func (c *checker) exprToKeyPath(e ast.Expr) (KeyPath, bool) {
	switch x := e.(type) {
	case *ast.IdentExpr:
		return KeyPath{Root: x.Name}, true
	case *ast.FieldExpr:
		p, ok := c.exprToKeyPath(x.X)
		if !ok {
			return KeyPath{}, false
		}
		p.Segs = append(p.Segs, KeySeg{Kind: SegField, Field: x.Name.Name, Boundary: x.Boundary})
		return p, true
	case *ast.IndexExpr:
		p, ok := c.exprToKeyPath(x.X)
		if !ok {
			return KeyPath{}, false
		}
		seg := KeySeg{Kind: SegIndex}
		if lit, isLit := x.Index.(*ast.IntLitExpr); isLit {
			if v, ok := parseIntText(lit.Text); ok {
				seg.Const = true
				seg.ConstVal = v
			}
		}
		p.Segs = append(p.Segs, seg)
		return p, true
	case *ast.DerefExpr:
		return c.exprToKeyPath(x.X)
	}
	return KeyPath{}, false
}

// checkKeyBlock types key (read p, write q) { body }: acquisitions are
// checked against the held set, held for the block scope, and released at
// its close. Non-canonical acquisition order is a warning only.
func (c *checker) checkKeyBlock(st *ast.KeyBlockStmt) {
	var acquired []KeyPath
	c.keys.PushScope()
	for _, acq := range st.Keys {
		c.inferPlace(acq.Path)
		p, ok := c.exprToKeyPath(acq.Path)
		if !ok {
			c.errorf(diag.ErrKeyConflict, acq.Span, "key expression is not a place path")
			continue
		}
		mode := KeyRead
		if acq.Write {
			mode = KeyWrite
		}
		conflict, r := c.keys.Acquire(p, mode)
		if conflict != nil {
			c.errorf(diag.ErrKeyConflict, acq.Span, "%s (already held as %s %s)",
				p, conflict.Mode, conflict.Path)
		}
		if r == conservativeOverlap || hasDynamicIndex(p) {
			c.diags = append(c.diags, diag.New(diag.WarnConservativeOverlap, acq.Span,
				"index segments are conservatively treated as overlapping"))
		}
		acquired = append(acquired, p)
	}
	c.warnNonCanonicalOrder(acquired, st.Span)
	c.checkBlock(st.Body, c.unit())
	c.keys.PopScope()
}

func hasDynamicIndex(p KeyPath) bool {
	for _, s := range p.Segs {
		if s.Kind == SegIndex && !s.Const {
			return true
		}
	}
	return false
}

// warnNonCanonicalOrder flags multi-key acquisition lists that are not in
// lexicographic path order; conflict detection does not rely on it.
func (c *checker) warnNonCanonicalOrder(paths []KeyPath, span source.Span) {
	if len(paths) < 2 {
		return
	}
	strs := make([]string, len(paths))
	for i, p := range paths {
		strs[i] = p.String()
	}
	if !sort.StringsAreSorted(strs) {
		c.diags = append(c.diags, diag.New(diag.WarnNonCanonicalOrder, span,
			"key acquisitions are not in canonical lexicographic order"))
	}
}

// captureSet accumulates one parallel arm's key captures.
type captureSet struct {
	// outerDepth is the env depth at arm entry; roots bound at or beyond
	// it are arm-local and not captured.
	outerDepth int
	entries    []capturedKey
}

type capturedKey struct {
	path KeyPath
	mode KeyMode
	span source.Span
}

// keyAccess records a place access into the active capture set, if any.
// Outside parallel-arm analysis this is a no-op: plain sequential code
// conflicts only through explicit key blocks.
func (c *checker) keyAccess(e ast.Expr, write bool) {
	if c.capture == nil {
		return
	}
	p, ok := c.exprToKeyPath(e)
	if !ok {
		return
	}
	if !c.rootIsOuter(p.Root) {
		return
	}
	mode := KeyRead
	if write {
		mode = KeyWrite
	}
	c.capture.entries = append(c.capture.entries, capturedKey{path: p, mode: mode, span: e.ExprSpan()})
}

// rootIsOuter reports whether a root binding was declared outside the
// current capture region.
func (c *checker) rootIsOuter(root string) bool {
	if c.capture == nil {
		return false
	}
	return c.env.boundBelow(root, c.capture.outerDepth)
}

// checkArmCaptures runs fn with a fresh capture set and returns the arm's
// captured keys.
func (c *checker) checkArmCaptures(fn func()) []capturedKey {
	prev := c.capture
	c.capture = &captureSet{outerDepth: c.env.Depth()}
	fn()
	got := c.capture.entries
	c.capture = prev
	return got
}

// checkPairwiseConflicts verifies the capture sets of sibling parallel
// arms are pairwise conflict-free. A conflict is E-KEY-0001, anchored at
// the later arm's access.
func (c *checker) checkPairwiseConflicts(arms [][]capturedKey) {
	for i := 0; i < len(arms); i++ {
		for j := i + 1; j < len(arms); j++ {
			for _, a := range arms[i] {
				for _, b := range arms[j] {
					if a.mode != KeyWrite && b.mode != KeyWrite {
						continue
					}
					switch Overlap(a.path, b.path) {
					case overlapping:
						c.errorf(diag.ErrKeyConflict, b.span, "%s", b.path)
					case conservativeOverlap:
						c.errorf(diag.ErrKeyConflict, b.span, "%s", b.path)
						c.diags = append(c.diags, diag.New(diag.WarnConservativeOverlap, b.span,
							"index segments are conservatively treated as overlapping"))
					}
				}
			}
		}
	}
}

// checkSuspension enforces "no key held across a suspension point".
// release marks yield release, the escape hatch that drops held keys
// before suspending.
func (c *checker) checkSuspension(span source.Span, release bool) {
	if release || !c.keys.HeldAny() {
		return
	}
	held := c.keys.Held()
	c.errorf(diag.ErrKeyHeldAcrossWait, span, "%s", held[0].Path)
}
