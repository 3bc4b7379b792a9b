package format

import (
	"strings"

	"cursive0/internal/ast"
)

func (p *printer) item(item ast.Item) {
	switch it := item.(type) {
	case *ast.ProcedureDecl:
		p.procedure(it)
	case *ast.RecordDecl:
		head := p.vis(it.Vis) + "record " + it.Name.Name
		if len(it.Generics) > 0 {
			names := make([]string, len(it.Generics))
			for i, g := range it.Generics {
				names[i] = g.Name
			}
			head += "<" + strings.Join(names, ", ") + ">"
		}
		if len(it.Classes) > 0 {
			refs := make([]string, len(it.Classes))
			for i, c := range it.Classes {
				refs[i] = c.Key()
			}
			head += ": " + strings.Join(refs, ", ")
		}
		p.line("%s {", head)
		p.indent++
		for _, f := range it.Fields {
			p.line("%s%s: %s,", p.vis(f.Vis), f.Name.Name, typeString(f.Type))
		}
		for _, m := range it.Methods {
			p.procedure(m)
		}
		p.indent--
		p.line("}")
	case *ast.EnumDecl:
		p.line("%senum %s {", p.vis(it.Vis), it.Name.Name)
		p.indent++
		for _, v := range it.Variants {
			if len(v.Elems) == 0 {
				p.line("%s,", v.Name.Name)
				continue
			}
			elems := make([]string, len(v.Elems))
			for i, el := range v.Elems {
				elems[i] = typeString(el)
			}
			p.line("%s(%s),", v.Name.Name, strings.Join(elems, ", "))
		}
		p.indent--
		p.line("}")
	case *ast.ModalDecl:
		p.line("%smodal %s {", p.vis(it.Vis), it.Name.Name)
		p.indent++
		for _, f := range it.Common {
			p.line("%s: %s,", f.Name.Name, typeString(f.Type))
		}
		for _, st := range it.States {
			p.line("state %s {", st.Name.Name)
			p.indent++
			for _, f := range st.Fields {
				p.line("%s: %s,", f.Name.Name, typeString(f.Type))
			}
			for _, m := range st.Methods {
				p.procedure(m)
			}
			p.indent--
			p.line("}")
		}
		p.indent--
		p.line("}")
	case *ast.ClassDecl:
		p.line("%sclass %s {", p.vis(it.Vis), it.Name.Name)
		p.indent++
		for _, m := range it.Methods {
			p.procedure(m)
		}
		p.indent--
		p.line("}")
	case *ast.TypeAliasDecl:
		p.line("%stype %s = %s;", p.vis(it.Vis), it.Name.Name, typeString(it.Target))
	case *ast.StaticDecl:
		mut := ""
		if it.Mutable {
			mut = "mut "
		}
		if it.Value != nil {
			p.line("%sstatic %s%s: %s = %s;", p.vis(it.Vis), mut, it.Name.Name, typeString(it.Type), exprString(it.Value))
		} else {
			p.line("%sstatic %s%s: %s;", p.vis(it.Vis), mut, it.Name.Name, typeString(it.Type))
		}
	case *ast.ImportDecl:
		path := it.Assembly.Name
		for _, seg := range it.Path {
			path += "::" + seg.Name
		}
		if len(it.Items) > 0 {
			names := make([]string, len(it.Items))
			for i, n := range it.Items {
				names[i] = n.Name
			}
			p.line("import %s::{%s};", path, strings.Join(names, ", "))
		} else if it.Alias.Name != "" {
			p.line("import %s as %s;", path, it.Alias.Name)
		} else {
			p.line("import %s;", path)
		}
	case *ast.UsingDecl:
		if it.Alias.Name != "" {
			p.line("using %s as %s;", it.Path.Key(), it.Alias.Name)
		} else {
			p.line("using %s;", it.Path.Key())
		}
	case *ast.ExternBlock:
		p.line("extern %q {", it.ABI)
		p.indent++
		for _, proc := range it.Procs {
			p.procedure(proc)
		}
		p.indent--
		p.line("}")
	case *ast.ErrorItem:
		p.line("// unparsed: %s", it.Msg)
	}
}

func (p *printer) procedure(d *ast.ProcedureDecl) {
	var params []string
	if d.Receiver != nil {
		switch {
		case d.Receiver.Transition:
			params = append(params, "move self")
		case d.Receiver.Perm == ast.RecvConst:
			params = append(params, "const self")
		case d.Receiver.Perm == ast.RecvUnique:
			params = append(params, "unique self")
		default:
			params = append(params, "self")
		}
	}
	for _, prm := range d.Params {
		s := ""
		if prm.Move {
			s = "move "
		}
		params = append(params, s+prm.Name.Name+": "+typeString(prm.Type))
	}
	head := p.vis(d.Vis) + "procedure " + d.Name.Name + "(" + strings.Join(params, ", ") + ")"
	if d.Ret != nil {
		head += " -> " + typeString(d.Ret)
	}
	if d.Contract != nil {
		head += " |= "
		if d.Contract.Pre != nil {
			head += exprString(d.Contract.Pre)
		}
		if d.Contract.Post != nil {
			head += " => " + exprString(d.Contract.Post)
		}
	}
	if d.Body == nil {
		p.line("%s;", head)
		return
	}
	p.line("%s {", head)
	p.indent++
	p.block(d.Body)
	p.indent--
	p.line("}")
}
