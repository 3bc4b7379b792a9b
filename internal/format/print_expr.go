package format

import (
	"fmt"
	"strings"

	"cursive0/internal/ast"
)

func (p *printer) block(b *ast.Block) {
	for _, s := range b.Stmts {
		p.stmt(s)
	}
	if b.Tail != nil {
		p.line("%s", exprString(b.Tail))
	}
}

func (p *printer) stmt(s ast.Stmt) {
	switch st := s.(type) {
	case *ast.LetStmt:
		mut := ""
		if st.Mut {
			mut = "mut "
		}
		if st.Type != nil {
			p.line("let %s%s: %s = %s;", mut, st.Name.Name, typeString(st.Type), exprString(st.Value))
		} else {
			p.line("let %s%s = %s;", mut, st.Name.Name, exprString(st.Value))
		}
	case *ast.AssignStmt:
		p.line("%s = %s;", exprString(st.Place), exprString(st.Value))
	case *ast.ExprStmt:
		p.line("%s;", exprString(st.X))
	case *ast.ReturnStmt:
		if st.Value != nil {
			p.line("return %s;", exprString(st.Value))
		} else {
			p.line("return;")
		}
	case *ast.BreakStmt:
		p.line("break;")
	case *ast.ContinueStmt:
		p.line("continue;")
	case *ast.WhileStmt:
		p.line("while %s {", exprString(st.Cond))
		p.indent++
		p.block(st.Body)
		p.indent--
		p.line("}")
	case *ast.LoopStmt:
		p.line("loop {")
		p.indent++
		p.block(st.Body)
		p.indent--
		p.line("}")
	case *ast.ForStmt:
		p.line("for %s in %s {", st.Var.Name, exprString(st.Iter))
		p.indent++
		p.block(st.Body)
		p.indent--
		p.line("}")
	case *ast.RegionStmt:
		p.line("region %s {", st.Name.Name)
		p.indent++
		p.block(st.Body)
		p.indent--
		p.line("}")
	case *ast.UnsafeStmt:
		p.line("unsafe {")
		p.indent++
		p.block(st.Body)
		p.indent--
		p.line("}")
	case *ast.KeyBlockStmt:
		keys := make([]string, len(st.Keys))
		for i, k := range st.Keys {
			mode := "read"
			if k.Write {
				mode = "write"
			}
			keys[i] = mode + " " + exprString(k.Path)
		}
		p.line("key (%s) {", strings.Join(keys, ", "))
		p.indent++
		p.block(st.Body)
		p.indent--
		p.line("}")
	}
}

// exprString renders expressions on one line; block-bodied forms fall
// back to a compact brace form sufficient for the round-trip property.
func exprString(e ast.Expr) string {
	switch x := e.(type) {
	case nil:
		return ""
	case *ast.IntLitExpr:
		return x.Text
	case *ast.FloatLitExpr:
		return x.Text
	case *ast.CharLitExpr:
		return x.Text
	case *ast.StringLitExpr:
		return x.Text
	case *ast.BoolLitExpr:
		if x.Value {
			return "true"
		}
		return "false"
	case *ast.NullLitExpr:
		return "null"
	case *ast.UnitLitExpr:
		return "()"
	case *ast.IdentExpr:
		return x.Name
	case *ast.PathExpr:
		return x.Path.Key()
	case *ast.FieldExpr:
		mark := ""
		if x.Boundary {
			mark = "#"
		}
		return exprString(x.X) + "." + mark + x.Name.Name
	case *ast.IndexExpr:
		return exprString(x.X) + "[" + exprString(x.Index) + "]"
	case *ast.CallExpr:
		return exprString(x.Callee) + "(" + exprList(x.Args) + ")"
	case *ast.MethodCallExpr:
		return exprString(x.Recv) + "." + x.Name.Name + "(" + exprList(x.Args) + ")"
	case *ast.UnaryExpr:
		op := "-"
		if x.Op == ast.UnaryNot {
			op = "!"
		}
		return op + exprString(x.X)
	case *ast.BinaryExpr:
		return fmt.Sprintf("(%s %s %s)", exprString(x.X), binOpText(x.Op), exprString(x.Y))
	case *ast.AddrOfExpr:
		return "&" + exprString(x.X)
	case *ast.DerefExpr:
		return "*" + exprString(x.X)
	case *ast.CastExpr:
		return exprString(x.X) + " as " + typeString(x.Type)
	case *ast.TransmuteExpr:
		return "transmute(" + exprString(x.X) + ", " + typeString(x.Type) + ")"
	case *ast.MoveExpr:
		return "move " + exprString(x.X)
	case *ast.IfExpr:
		s := "if " + exprString(x.Cond) + " " + blockString(x.Then)
		if x.Else != nil {
			s += " else " + exprString(x.Else)
		}
		return s
	case *ast.MatchExpr:
		arms := make([]string, len(x.Arms))
		for i, a := range x.Arms {
			arms[i] = patString(a.Pat) + " => " + exprString(a.Body)
		}
		return "match " + exprString(x.Scrutinee) + " { " + strings.Join(arms, ", ") + " }"
	case *ast.BlockExpr:
		return blockString(x.Block)
	case *ast.RecordLitExpr:
		fields := make([]string, len(x.Fields))
		for i, f := range x.Fields {
			fields[i] = f.Name.Name + ": " + exprString(f.Value)
		}
		return x.Path.Key() + " { " + strings.Join(fields, ", ") + " }"
	case *ast.ModalLitExpr:
		fields := make([]string, len(x.Fields))
		for i, f := range x.Fields {
			fields[i] = f.Name.Name + ": " + exprString(f.Value)
		}
		return x.Path.Key() + "@" + x.State.Name + " { " + strings.Join(fields, ", ") + " }"
	case *ast.TupleExpr:
		return "(" + exprList(x.Elems) + ")"
	case *ast.RangeExpr:
		op := ".."
		if x.Inclusive {
			op = "..="
		}
		return "[" + exprString(x.Lo) + op + exprString(x.Hi) + "]"
	case *ast.AllocExpr:
		if x.Region.Name != "" {
			return "^" + x.Region.Name + "<-" + exprString(x.Value)
		}
		return "^" + exprString(x.Value)
	case *ast.PropagateExpr:
		return exprString(x.X) + "?"
	case *ast.SpawnExpr:
		return "spawn " + blockString(x.Body)
	case *ast.WaitExpr:
		return "wait " + exprString(x.X)
	case *ast.SyncExpr:
		return "sync " + exprString(x.X)
	case *ast.RaceExpr:
		arms := make([]string, len(x.Arms))
		for i, a := range x.Arms {
			arms[i] = exprString(a.Source) + " -> |" + a.Binding.Name + "| " + exprString(a.Handler)
		}
		return "race { " + strings.Join(arms, ", ") + " }"
	case *ast.AllExpr:
		return "all { " + exprList(x.Elems) + " }"
	case *ast.YieldExpr:
		s := "yield"
		if x.From {
			s += " from"
		}
		if x.Release {
			s += " release"
		}
		if x.Value != nil {
			s += " " + exprString(x.Value)
		}
		return s
	case *ast.ParallelExpr:
		arms := make([]string, len(x.Arms))
		for i, a := range x.Arms {
			arms[i] = blockString(a)
		}
		return "parallel { " + strings.Join(arms, " ") + " }"
	case *ast.DispatchExpr:
		keys := make([]string, len(x.Keys))
		for i, k := range x.Keys {
			mode := "read"
			if k.Write {
				mode = "write"
			}
			keys[i] = mode + " " + exprString(k.Path)
		}
		return "dispatch key (" + strings.Join(keys, ", ") + ") " + blockString(x.Body)
	case *ast.ContractResultExpr:
		return "@result"
	case *ast.ContractEntryExpr:
		return "@entry(" + exprString(x.X) + ")"
	default:
		return "/*expr*/"
	}
}

func exprList(es []ast.Expr) string {
	parts := make([]string, len(es))
	for i, e := range es {
		parts[i] = exprString(e)
	}
	return strings.Join(parts, ", ")
}

func blockString(b *ast.Block) string {
	var parts []string
	sub := &printer{}
	sub.block(b)
	for _, l := range strings.Split(strings.TrimRight(sub.b.String(), "\n"), "\n") {
		if l != "" {
			parts = append(parts, strings.TrimSpace(l))
		}
	}
	return "{ " + strings.Join(parts, " ") + " }"
}

func patString(p ast.Pattern) string {
	switch pt := p.(type) {
	case *ast.WildcardPattern:
		return "_"
	case *ast.BindingPattern:
		return pt.Name.Name
	case *ast.LiteralPattern:
		return exprString(pt.Value)
	case *ast.VariantPattern:
		if len(pt.Elems) == 0 {
			return pt.Path.Key()
		}
		elems := make([]string, len(pt.Elems))
		for i, el := range pt.Elems {
			elems[i] = patString(el)
		}
		return pt.Path.Key() + "(" + strings.Join(elems, ", ") + ")"
	case *ast.TuplePattern:
		elems := make([]string, len(pt.Elems))
		for i, el := range pt.Elems {
			elems[i] = patString(el)
		}
		return "(" + strings.Join(elems, ", ") + ")"
	case *ast.RangePattern:
		op := ".."
		if pt.Inclusive {
			op = "..="
		}
		return exprString(pt.Lo) + op + exprString(pt.Hi)
	default:
		return "_"
	}
}

func binOpText(op ast.BinaryOp) string {
	texts := [...]string{"+", "-", "*", "/", "%", "==", "!=", "<", "<=", ">", ">=",
		"&&", "||", "&", "|", "^", "<<", ">>"}
	if int(op) < len(texts) {
		return texts[op]
	}
	return "?"
}

func typeString(t ast.TypeExpr) string {
	switch ty := t.(type) {
	case nil:
		return "()"
	case *ast.PrimTypeExpr:
		return ty.Name
	case *ast.PtrTypeExpr:
		return "Ptr<" + typeString(ty.Elem) + ">@" + ty.State
	case *ast.RawPtrTypeExpr:
		if ty.Mut {
			return "*mut " + typeString(ty.Elem)
		}
		return "*imm " + typeString(ty.Elem)
	case *ast.SliceTypeExpr:
		return "[]" + typeString(ty.Elem)
	case *ast.ArrayTypeExpr:
		return "[" + typeString(ty.Elem) + "; " + exprString(ty.Len) + "]"
	case *ast.TupleTypeExpr:
		parts := make([]string, len(ty.Elems))
		for i, e := range ty.Elems {
			parts[i] = typeString(e)
		}
		return "(" + strings.Join(parts, ", ") + ")"
	case *ast.UnionTypeExpr:
		parts := make([]string, len(ty.Members))
		for i, m := range ty.Members {
			parts[i] = typeString(m)
		}
		return strings.Join(parts, " | ")
	case *ast.StringTypeExpr:
		base := "string"
		if ty.Bytes {
			base = "bytes"
		}
		if ty.Repr != "" {
			base += "@" + ty.Repr
		}
		return base
	case *ast.PathTypeExpr:
		s := ty.Path.Key()
		if len(ty.Args) > 0 {
			args := make([]string, len(ty.Args))
			for i, a := range ty.Args {
				args[i] = typeString(a)
			}
			s += "<" + strings.Join(args, ", ") + ">"
		}
		return s
	case *ast.DynTypeExpr:
		return "dyn " + ty.Class.Key()
	case *ast.ModalStateTypeExpr:
		return ty.Path.Key() + "@" + ty.State
	case *ast.FuncTypeExpr:
		parts := make([]string, len(ty.Params))
		for i, prm := range ty.Params {
			parts[i] = typeString(prm)
		}
		s := "procedure(" + strings.Join(parts, ", ") + ")"
		if ty.Ret != nil {
			s += " -> " + typeString(ty.Ret)
		}
		return s
	case *ast.PermTypeExpr:
		return ty.Perm + " " + typeString(ty.Base)
	case *ast.CapabilityTypeExpr:
		return ty.Name.Name
	default:
		return "()"
	}
}
