package symbols

import "cursive0/internal/ast"

// Builtin nominal types known to the core without declaration: the
// built-in modals and the async wrappers. Registered under the reserved
// "cursive" assembly so path references like cursive::Spawned resolve,
// and mirrored into every module's type namespace by bare name.
var builtinTypeNames = []string{
	"Region",
	"Spawned",
	"CancelToken",
	"Async",
	"Future",
	"Stream",
	"Sequence",
	"Range",
	"PanicRecord",
}

// BuiltinModule is the reserved module key builtins live under.
const BuiltinModule = "cursive"

func registerPrelude(t *Table) {
	for _, name := range builtinTypeNames {
		d := &Decl{
			Kind:    DeclBuiltin,
			PathKey: BuiltinModule + "::" + name,
			Module:  BuiltinModule,
			Name:    name,
			Vis:     ast.VisPublic,
		}
		t.Insert(d)
		for _, scope := range t.scopes {
			if _, taken := scope.Types[name]; !taken {
				scope.Types[name] = d
			}
		}
	}
}

// IsBuiltinType reports whether a bare name refers to a prelude type.
func IsBuiltinType(name string) bool {
	for _, n := range builtinTypeNames {
		if n == name {
			return true
		}
	}
	return false
}
