// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package functor

import (
	"context"

	"github.com/zclconf/go-cty/cty"
)

// Body is the computation of a module function. The returned value becomes
// the functor's cached result for the current point (or loop phase).
type Body func(p *Pipe) (any, error)

// Callable is an opaque backend entry point.
type Callable func(ctx context.Context, args ...any) (any, error)

// Spec describes a module function at registration time.
type Spec struct {
	Origin     string
	Function   string
	Capability Capability
	Body       Body

	Dependencies        []Capability
	ModelDependencies   []ModelDependency
	BackendRequirements []BackendRequirement
	BackendDependencies []BackendDependency

	// AllowedModels restricts activation to these models and their
	// descendants. Empty means the functor is always active. ExactModels
	// disables the descendant rule.
	AllowedModels []string
	ExactModels   bool

	// NestedIn names the capability of the loop manager that drives this
	// functor. Manager marks the functor as able to drive loops.
	NestedIn string
	Manager  bool

	Options map[string]cty.Value
}

// BackendSpec describes a backend function at registration time.
type BackendSpec struct {
	Library    string
	Version    string
	Function   string
	Capability Capability
	Fn         Callable

	AllowedModels []string

	// Missing marks a backend whose library could not be loaded. It is kept
	// in the registry for diagnostics but never selected.
	Missing bool
}
