package dag

// Cycle is one detected import cycle, listed in traversal order starting
// and ending at the same node.
type Cycle []string

// FindCycles runs a DFS over the graph and returns every back-edge as a
// cycle. Traversal order is deterministic (sorted node and edge order), so
// diagnostics are stable across runs.
func (g *Graph) FindCycles() []Cycle {
	const (
		white = 0
		grey  = 1
		black = 2
	)
	color := make(map[string]int)
	var stack []string
	var cycles []Cycle

	var visit func(n string)
	visit = func(n string) {
		color[n] = grey
		stack = append(stack, n)
		for _, m := range g.Edges(n) {
			switch color[m] {
			case white:
				visit(m)
			case grey:
				// Back edge: slice out the cycle from the stack.
				start := 0
				for i, s := range stack {
					if s == m {
						start = i
						break
					}
				}
				cyc := append(Cycle(nil), stack[start:]...)
				cyc = append(cyc, m)
				cycles = append(cycles, cyc)
			}
		}
		stack = stack[:len(stack)-1]
		color[n] = black
	}
	for _, n := range g.Nodes() {
		if color[n] == white {
			visit(n)
		}
	}
	return cycles
}

// Topo returns a topological order (dependencies first). On cyclic input
// an edge back into a node still being visited is skipped, so the result
// still lists every node exactly once; cycle members keep their DFS
// position and are not grouped or moved to the end.
func (g *Graph) Topo() []string {
	perm := make(map[string]bool)
	temp := make(map[string]bool)
	var out []string

	var visit func(n string)
	visit = func(n string) {
		if perm[n] || temp[n] {
			return
		}
		temp[n] = true
		for _, m := range g.Edges(n) {
			visit(m)
		}
		temp[n] = false
		perm[n] = true
		out = append(out, n)
	}
	for _, n := range g.Nodes() {
		visit(n)
	}
	return out
}
