package sema

import (
	"cursive0/internal/ast"
	"cursive0/internal/diag"
	"cursive0/internal/symbols"
	"cursive0/internal/types"
)

// builtinMethod types methods on the built-in nominal wrappers (Spawned,
// CancelToken). Returns NoType when the receiver is not a builtin, so the
// caller can fall through to user records.
func (c *checker) builtinMethod(t types.Type, x *ast.MethodCallExpr, e ast.Expr, recvPerm types.Permission) types.TypeID {
	switch t.Path {
	case symbols.BuiltinModule + "::Spawned":
		switch x.Name.Name {
		case "cancel":
			c.expectNoArgs(x)
			return c.unit()
		case "is_ready":
			c.expectNoArgs(x)
			return c.boolT()
		}
	case symbols.BuiltinModule + "::CancelToken":
		switch x.Name.Name {
		case "cancel":
			c.expectNoArgs(x)
			return c.unit()
		case "is_cancelled":
			c.expectNoArgs(x)
			return c.boolT()
		}
	}
	return types.NoType
}

// builtinModalMethod handles Region@State transitions: alloc/freeze/thaw
// are the permitted safe transitions; free_unchecked and reset_unchecked
// are unsafe-only.
func (c *checker) builtinModalMethod(t types.Type, x *ast.MethodCallExpr, recvPerm types.Permission) types.TypeID {
	if t.Path != symbols.BuiltinModule+"::Region" && t.Path != "cursive::Region" {
		return types.NoType
	}
	regionState := func(state string) types.TypeID {
		return c.types.ModalState(t.Path, state)
	}
	switch x.Name.Name {
	case "freeze":
		if t.State != "Active" {
			c.errorf(diag.ErrRegionNotActive, x.Name.Span, "freeze requires the Active state, receiver is %s", t.State)
		}
		c.expectNoArgs(x)
		c.transitionReceiver(x.Recv, regionState("Frozen"))
		return regionState("Frozen")
	case "thaw":
		if t.State != "Frozen" {
			c.errorf(diag.ErrRegionNotActive, x.Name.Span, "thaw requires the Frozen state, receiver is %s", t.State)
		}
		c.expectNoArgs(x)
		c.transitionReceiver(x.Recv, regionState("Active"))
		return regionState("Active")
	case "free_unchecked", "reset_unchecked":
		if !c.inUnsafe() {
			c.errorf(diag.ErrUnsafeRequired, x.Name.Span, "%s", x.Name.Name)
		}
		c.expectNoArgs(x)
		if x.Name.Name == "free_unchecked" {
			c.transitionReceiver(x.Recv, regionState("Freed"))
			return regionState("Freed")
		}
		c.transitionReceiver(x.Recv, regionState("Active"))
		return regionState("Active")
	}
	return types.NoType
}

func (c *checker) expectNoArgs(x *ast.MethodCallExpr) {
	if len(x.Args) != 0 {
		c.errorf(diag.ErrArityMismatch, x.Span, "%s takes no arguments", x.Name.Name)
	}
	for _, a := range x.Args {
		c.inferExpr(a, types.NoType)
	}
}

// transitionReceiver flow-updates the receiver binding's state after a
// built-in modal transition, and keeps the region stack in sync.
func (c *checker) transitionReceiver(recv ast.Expr, newType types.TypeID) {
	id, ok := recv.(*ast.IdentExpr)
	if !ok {
		return
	}
	b, ok := c.env.Lookup(id.Name)
	if !ok {
		return
	}
	b.Type = newType
	nt := c.types.Get(newType)
	if b.Region && nt.Kind == types.KindModalState {
		for i := range c.regions {
			if c.regions[i].name == id.Name {
				c.regions[i].state = nt.State
			}
		}
	}
}
