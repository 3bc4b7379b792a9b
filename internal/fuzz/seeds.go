package fuzztests

// seeds covers each syntactic family once, so coverage-guided mutation
// starts from every grammar corner instead of rediscovering them.
var seeds = []string{
	"procedure main() -> i32 { 0 }",
	"record Point: Bitcopy { x: i32, y: i32, }",
	"enum Shape { Dot, Line(i32, i32), }",
	"modal File {\n    path: string,\n    state Open { handle: i64, }\n    state Closed { }\n}",
	"class Drawable { procedure draw(const self); }",
	"class $FileSystem { procedure open(const self, path: string) -> i64; }",
	"type Meters = i64;",
	"static LIMIT: i32 = 1024;",
	"import core::mem::{copy, fill};",
	"using core::mem as m;",
	"extern \"C\" { procedure puts(s: *imm u8) -> i32; }",
	"procedure f(p: Ptr<i32>@Null) -> i32 { *p }",
	"procedure g() { region r { let p = ^42; } }",
	"procedure h() { key (read a.b, write c) { } }",
	"procedure k() -> i32 { match 1 { 0 => 1, _ => 2 } }",
	"procedure a() { parallel { { } { } } }",
	"procedure w(s: Spawned<i32>) -> i32 { wait s }",
	"procedure c() |= true => @result == 0 { 0 }",
	"procedure u() { unsafe { transmute(0, f32); } }",
	"\"unterminated\n",
	"/* unterminated",
	"0123",
	"let x = [0..10];",
}
