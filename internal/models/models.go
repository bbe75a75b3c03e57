// Package models keeps the hierarchy of physics models a scan can be
// performed in. A model may name a parent; a point in the child model can be
// reinterpreted as a point of the parent through a translation function.
package models

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
)

// Parameters is the set of named parameter values of a model at one point.
type Parameters map[string]float64

// Translation maps child-model parameters onto the parent model.
type Translation func(child Parameters) (Parameters, error)

// Model describes one model of the hierarchy.
type Model struct {
	Name       string
	Parent     string
	Parameters []string
	ToParent   Translation
}

// Registry stores models by name.
type Registry struct {
	models map[string]*Model
	order  []string
}

// New creates an empty model registry.
func New() *Registry {
	return &Registry{models: make(map[string]*Model)}
}

// Add registers a model. Registering the same name twice is an error.
func (r *Registry) Add(m Model) error {
	if m.Name == "" {
		return errors.New("model name cannot be empty")
	}
	if _, exists := r.models[m.Name]; exists {
		return fmt.Errorf("model %q is already registered", m.Name)
	}
	slog.Debug("Registering model.", "name", m.Name, "parent", m.Parent)
	r.models[m.Name] = &m
	r.order = append(r.order, m.Name)
	return nil
}

// Get returns a registered model.
func (r *Registry) Get(name string) (*Model, bool) {
	m, ok := r.models[name]
	return m, ok
}

// Names returns model names in registration order.
func (r *Registry) Names() []string {
	return slices.Clone(r.order)
}

// Lineage returns name followed by its ancestors, nearest first. Unknown
// names yield a lineage of just themselves.
func (r *Registry) Lineage(name string) []string {
	lineage := []string{name}
	seen := map[string]struct{}{name: {}}
	for {
		m, ok := r.models[name]
		if !ok || m.Parent == "" {
			return lineage
		}
		if _, loop := seen[m.Parent]; loop {
			return lineage
		}
		name = m.Parent
		seen[name] = struct{}{}
		lineage = append(lineage, name)
	}
}

// DescendsFrom reports whether name equals or descends from any of ancestors.
func (r *Registry) DescendsFrom(name string, ancestors ...string) bool {
	for _, a := range r.Lineage(name) {
		if slices.Contains(ancestors, a) {
			return true
		}
	}
	return false
}

// Validate checks that every parent exists and that the hierarchy has no
// loops.
func (r *Registry) Validate() error {
	var errs []error
	for _, name := range slices.Sorted(maps.Keys(r.models)) {
		m := r.models[name]
		if m.Parent == "" {
			continue
		}
		if _, ok := r.models[m.Parent]; !ok {
			errs = append(errs, fmt.Errorf("model %q names unknown parent %q", name, m.Parent))
			continue
		}
		if m.ToParent == nil {
			errs = append(errs, fmt.Errorf("model %q has parent %q but no translation function", name, m.Parent))
		}
		lineage := r.Lineage(name)
		last := r.models[lineage[len(lineage)-1]]
		if last != nil && last.Parent != "" {
			errs = append(errs, fmt.Errorf("model %q has a cyclic ancestry", name))
		}
	}
	return errors.Join(errs...)
}
