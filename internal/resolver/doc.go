// Package resolver turns a set of requested capabilities into a resolved,
// deterministically ordered graph of functors.
//
// Resolution selects exactly one active provider per requirement, honouring
// configured pins, binds backend requirements to a single backend version,
// adds conditional dependencies, and orders the result. Functors driven by
// a loop manager are ordered inside the manager's own nested graph; edges
// that cross the loop boundary are projected onto the manager.
//
// Resolutions are memoised per active-model set, so switching models back
// and forth replays earlier bindings instead of resolving again.
package resolver
