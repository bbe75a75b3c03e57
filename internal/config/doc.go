// Package config defines the format-agnostic configuration model of a scan
// and the Loader interface implemented by the HCL and YAML loaders.
//
// The Model is the single source of truth for the resolver rules, the
// requested results, the point source and the result sinks. Functor
// options are carried as cty values so every loader can feed them without
// loss.
package config
