package dag

import "testing"

func TestFindCyclesDetectsBackEdge(t *testing.T) {
	g := New()
	g.AddEdge("a", "b")
	g.AddEdge("b", "c")
	g.AddEdge("c", "a")
	cycles := g.FindCycles()
	if len(cycles) != 1 {
		t.Fatalf("expected one cycle, got %v", cycles)
	}
	cyc := cycles[0]
	if cyc[0] != cyc[len(cyc)-1] {
		t.Fatalf("cycle must start and end at the same node: %v", cyc)
	}
}

func TestAcyclicGraphHasNoCycles(t *testing.T) {
	g := New()
	g.AddEdge("a", "b")
	g.AddEdge("a", "c")
	g.AddEdge("b", "c")
	if cycles := g.FindCycles(); len(cycles) != 0 {
		t.Fatalf("unexpected cycles: %v", cycles)
	}
}

func TestTopoOrder(t *testing.T) {
	g := New()
	g.AddEdge("app", "lib")
	g.AddEdge("lib", "core")
	order := g.Topo()
	pos := make(map[string]int)
	for i, n := range order {
		pos[n] = i
	}
	if !(pos["core"] < pos["lib"] && pos["lib"] < pos["app"]) {
		t.Fatalf("dependencies must come first: %v", order)
	}
}

func TestDuplicateEdgeIgnored(t *testing.T) {
	g := New()
	g.AddEdge("a", "b")
	g.AddEdge("a", "b")
	if n := len(g.Edges("a")); n != 1 {
		t.Fatalf("duplicate edge recorded: %d", n)
	}
}
