// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package functor

import (
	"fmt"
	"slices"
)

// Capability is the (name, type) pair a functor provides or requires.
type Capability struct {
	Name string
	Type string
}

func (c Capability) String() string {
	if c.Type == "" {
		return c.Name
	}
	return fmt.Sprintf("%s [%s]", c.Name, c.Type)
}

// Accepts reports whether a provider of p satisfies requirement c. An empty
// required type accepts any provided type.
func (c Capability) Accepts(p Capability) bool {
	return c.Name == p.Name && (c.Type == "" || c.Type == p.Type)
}

// LibraryPin restricts a backend requirement to a library and, optionally,
// to a set of its versions.
type LibraryPin struct {
	Library  string
	Versions []string
}

// Allows reports whether the given library version satisfies the pin.
func (p LibraryPin) Allows(library, version string) bool {
	if p.Library != "" && p.Library != library {
		return false
	}
	return len(p.Versions) == 0 || slices.Contains(p.Versions, version) || slices.Contains(p.Versions, "any")
}

func (p LibraryPin) String() string {
	if len(p.Versions) == 0 {
		return p.Library
	}
	return fmt.Sprintf("%s%v", p.Library, p.Versions)
}

// BackendRequirement is a need for a backend capability. Pins, when set,
// list the library versions the functor is known to work with.
type BackendRequirement struct {
	Capability
	Pins []LibraryPin
}

// Permits reports whether the backend version satisfies the declared pins.
func (r BackendRequirement) Permits(library, version string) bool {
	if len(r.Pins) == 0 {
		return true
	}
	for _, pin := range r.Pins {
		if pin.Allows(library, version) {
			return true
		}
	}
	return false
}

// ModelDependency is a dependency that only exists when one of Models, or
// a descendant of one, is active.
type ModelDependency struct {
	Capability
	Models []string
}

// BackendDependency is a dependency that only exists once the backend
// requirement named Requirement is bound to a backend matching Pin.
type BackendDependency struct {
	Capability
	Requirement string
	Pin         LibraryPin
}
