package dag

// visitState tracks the three-colour depth-first search.
type visitState int

const (
	unvisited visitState = iota
	visiting
	done
)

// DetectCycles checks the whole graph for cycles. The returned error is a
// *GraphError wrapping ErrCycleFound whose Cycle field holds the witness
// path, starting and ending on the same node.
func (g *Graph) DetectCycles() error {
	_, err := g.Order(nil)
	return err
}

// Order returns a post-order depth-first traversal of the graph. Roots are
// visited first, in the given order; nodes unreachable from them follow, in
// rank order. Every node appears after all of its dependencies. On a cycle
// no order is returned.
func (g *Graph) Order(roots []string) ([]string, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	for _, id := range roots {
		if _, ok := g.nodes[id]; !ok {
			return nil, invalidf("root node not found: %s", id)
		}
	}

	state := make(map[string]visitState, len(g.nodes))
	order := make([]string, 0, len(g.nodes))
	var stack []string

	var visit func(id string) error
	visit = func(id string) error {
		switch state[id] {
		case done:
			return nil
		case visiting:
			return cycleError(witness(stack, id))
		}

		state[id] = visiting
		stack = append(stack, id)

		for _, dep := range g.orderedDeps(g.nodes[id]) {
			if err := visit(dep); err != nil {
				return err
			}
		}

		stack = stack[:len(stack)-1]
		state[id] = done
		order = append(order, id)
		return nil
	}

	for _, id := range roots {
		if err := visit(id); err != nil {
			return nil, err
		}
	}
	for _, id := range g.sortedIDs() {
		if err := visit(id); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// witness extracts the cycle closing on id from the DFS stack. The stack
// follows dependency edges, so it is reversed to read in data-flow order.
func witness(stack []string, id string) []string {
	start := 0
	for i, s := range stack {
		if s == id {
			start = i
			break
		}
	}
	path := make([]string, 0, len(stack)-start+1)
	for i := len(stack) - 1; i >= start; i-- {
		path = append(path, stack[i])
	}
	return append(path, stack[len(stack)-1])
}
