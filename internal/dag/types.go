package dag

import "sync"

// EdgeKind classifies an edge. Lower kinds are visited first.
type EdgeKind int

const (
	EdgeDependency EdgeKind = iota
	EdgeBackend
)

// Graph is a collection of nodes and their dependencies.
// All operations on the graph are concurrency-safe.
type Graph struct {
	mutex sync.RWMutex
	nodes map[string]*node
}

// node is a single vertex. deps maps an upstream node ID to the kind of the
// edge linking them.
type node struct {
	id         string
	rank       int
	deps       map[string]EdgeKind
	dependents map[string]struct{}
}
