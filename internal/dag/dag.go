package dag

import (
	"cmp"
	"slices"
)

// New creates and returns an initialized, empty Graph.
func New() *Graph {
	return &Graph{
		nodes: make(map[string]*node),
	}
}

// AddNode adds a node with the given ID and rank. If a node with the same
// ID already exists, the function does nothing.
func (g *Graph) AddNode(id string, rank int) {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if _, ok := g.nodes[id]; ok {
		return
	}

	g.nodes[id] = &node{
		id:         id,
		rank:       rank,
		deps:       make(map[string]EdgeKind),
		dependents: make(map[string]struct{}),
	}
}

// Has reports whether the graph contains a node.
func (g *Graph) Has(id string) bool {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	_, ok := g.nodes[id]
	return ok
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	return len(g.nodes)
}

// AddEdge creates a directed edge from the `fromID` node to the `toID` node,
// meaning `toID` depends on `fromID`. Adding an existing edge again keeps the
// lower kind.
func (g *Graph) AddEdge(fromID, toID string, kind EdgeKind) error {
	if fromID == toID {
		return invalidf("self-referential edge not allowed: %s -> %s", fromID, fromID)
	}

	g.mutex.Lock()
	defer g.mutex.Unlock()

	fromNode, ok := g.nodes[fromID]
	if !ok {
		return invalidf("source node not found: %s", fromID)
	}

	toNode, ok := g.nodes[toID]
	if !ok {
		return invalidf("destination node not found: %s", toID)
	}

	if existing, ok := toNode.deps[fromID]; !ok || kind < existing {
		toNode.deps[fromID] = kind
	}
	fromNode.dependents[toID] = struct{}{}
	return nil
}

// Dependencies returns the IDs the given node depends on, in visiting order.
func (g *Graph) Dependencies(id string) ([]string, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	n, ok := g.nodes[id]
	if !ok {
		return nil, invalidf("node not found: %s", id)
	}
	return g.orderedDeps(n), nil
}

// Dependents returns the IDs of nodes depending on the given node, by rank.
func (g *Graph) Dependents(id string) ([]string, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	n, ok := g.nodes[id]
	if !ok {
		return nil, invalidf("node not found: %s", id)
	}
	out := make([]string, 0, len(n.dependents))
	for depID := range n.dependents {
		out = append(out, depID)
	}
	slices.SortFunc(out, func(a, b string) int { return g.compare(a, b) })
	return out, nil
}

// orderedDeps sorts upstream nodes by edge kind, then rank, then ID.
func (g *Graph) orderedDeps(n *node) []string {
	out := make([]string, 0, len(n.deps))
	for id := range n.deps {
		out = append(out, id)
	}
	slices.SortFunc(out, func(a, b string) int {
		if c := cmp.Compare(n.deps[a], n.deps[b]); c != 0 {
			return c
		}
		return g.compare(a, b)
	})
	return out
}

func (g *Graph) compare(a, b string) int {
	if c := cmp.Compare(g.nodes[a].rank, g.nodes[b].rank); c != 0 {
		return c
	}
	return cmp.Compare(a, b)
}

// sortedIDs returns every node ID in rank order.
func (g *Graph) sortedIDs() []string {
	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, g.compare)
	return ids
}
