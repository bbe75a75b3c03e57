// Package functor defines the unit of computation managed by the engine.
//
// A Functor wraps a module function or a backend function. It advertises
// one Capability, declares the capabilities it needs from other functors and
// from backends, and owns the cached result of its last computation. The
// resolver binds edges between functors; the point controller and loop
// managers drive Calculate and Reset.
//
// Loop-nested functors keep one value slot per worker so that iterations can
// run concurrently. Slot 0 belongs to the coordinator and is the slot that
// functors outside the loop read.
package functor
