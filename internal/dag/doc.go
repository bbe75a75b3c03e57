// Package dag stores the dependency graph between resolved functors and
// derives a deterministic evaluation order from it.
//
// Nodes carry a rank (their registration index). The evaluation order is a
// post-order depth-first traversal starting from the requested roots; the
// upstream nodes of each node are visited dependency edges first, then
// backend edges, each group in rank order. Cycles are reported as a
// *GraphError and no partial order is returned.
package dag
