package sema

import (
	"strconv"

	"cursive0/internal/ast"
)

// constEvalUint evaluates the small constant-expression subset used by
// array lengths and range-pattern bounds: integer literals, unary
// negation, and +,-,*,/ over constants. A negative result is rejected.
func (c *checker) constEvalUint(e ast.Expr) (uint64, bool) {
	v, ok := c.constEvalInt(e)
	if !ok || v < 0 {
		return 0, false
	}
	return uint64(v), true
}

func (c *checker) constEvalInt(e ast.Expr) (int64, bool) {
	switch x := e.(type) {
	case *ast.IntLitExpr:
		v, err := strconv.ParseInt(x.Text, 0, 64)
		if err != nil {
			return 0, false
		}
		return v, true
	case *ast.UnaryExpr:
		if x.Op == ast.UnaryNeg {
			v, ok := c.constEvalInt(x.X)
			return -v, ok
		}
	case *ast.BinaryExpr:
		a, okA := c.constEvalInt(x.X)
		b, okB := c.constEvalInt(x.Y)
		if !okA || !okB {
			return 0, false
		}
		switch x.Op {
		case ast.BinAdd:
			return a + b, true
		case ast.BinSub:
			return a - b, true
		case ast.BinMul:
			return a * b, true
		case ast.BinDiv:
			if b == 0 {
				return 0, false
			}
			return a / b, true
		}
	}
	return 0, false
}

// intLitInRange checks a literal against a primitive integer's domain.
func intLitInRange(text string, signed bool, bits uint) bool {
	if signed {
		v, err := strconv.ParseInt(text, 0, 64)
		if err != nil {
			return false
		}
		if bits == 64 {
			return true
		}
		limit := int64(1) << (bits - 1)
		return v >= -limit && v < limit
	}
	v, err := strconv.ParseUint(text, 0, 64)
	if err != nil {
		return false
	}
	if bits == 64 {
		return true
	}
	return v < (uint64(1) << bits)
}
