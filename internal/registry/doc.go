// Package registry holds every functor and backend function known to the
// process.
//
// Modules populate the registry once at startup through an explicit
// registration pass (Module.Register). Registration order is recorded and
// used to break ties when ordering the dependency graph. Models are
// registered here too, together with the functors that expose their
// parameters. Validate checks the registry for wiring mistakes before any
// resolution happens.
package registry
