// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package functor

import (
	"fmt"
	"slices"

	"github.com/specialistvlad/capscan/internal/models"
	"github.com/specialistvlad/capscan/internal/unitid"
)

// slot is one worker's view of the functor's output.
type slot struct {
	status  Status
	value   any
	scratch map[string]any
}

// Functor is a registered unit of computation.
type Functor struct {
	id   unitid.ID
	kind Kind
	cap  Capability
	rank int

	body Body
	fn   Callable

	deps        []Capability
	modelDeps   []ModelDependency
	backendReqs []BackendRequirement
	backendDeps []BackendDependency

	allowed []string
	exact   bool

	nestedIn string
	manager  bool
	missing  bool

	defaults *Options
	options  *Options

	// Resolution state, written only while resolving.
	active   bool
	resolved bool
	edges    map[string]*Functor
	backends map[string]*Functor
	nested   []*Functor

	slots []slot
}

// NewFunctor builds a module functor from its spec. rank is the global
// registration index and breaks ordering ties.
func NewFunctor(spec Spec, rank int) *Functor {
	return &Functor{
		id:          unitid.New(spec.Origin, spec.Function),
		kind:        KindModule,
		cap:         spec.Capability,
		rank:        rank,
		body:        spec.Body,
		deps:        slices.Clone(spec.Dependencies),
		modelDeps:   slices.Clone(spec.ModelDependencies),
		backendReqs: slices.Clone(spec.BackendRequirements),
		backendDeps: slices.Clone(spec.BackendDependencies),
		allowed:     slices.Clone(spec.AllowedModels),
		exact:       spec.ExactModels,
		nestedIn:    spec.NestedIn,
		manager:     spec.Manager,
		defaults:    NewOptions(spec.Options),
		options:     NewOptions(spec.Options),
		active:      len(spec.AllowedModels) == 0,
		slots:       make([]slot, 1),
	}
}

// NewBackend builds a backend functor from its spec.
func NewBackend(spec BackendSpec, rank int) *Functor {
	return &Functor{
		id:       unitid.NewVersioned(spec.Library, spec.Version, spec.Function),
		kind:     KindBackend,
		cap:      spec.Capability,
		rank:     rank,
		fn:       spec.Fn,
		allowed:  slices.Clone(spec.AllowedModels),
		missing:  spec.Missing,
		defaults: NewOptions(nil),
		options:  NewOptions(nil),
		active:   len(spec.AllowedModels) == 0,
		slots:    make([]slot, 1),
	}
}

func (f *Functor) ID() unitid.ID                             { return f.id }
func (f *Functor) Kind() Kind                                { return f.kind }
func (f *Functor) Capability() Capability                    { return f.cap }
func (f *Functor) Rank() int                                 { return f.rank }
func (f *Functor) NestedIn() string                          { return f.nestedIn }
func (f *Functor) IsManager() bool                           { return f.manager }
func (f *Functor) IsMissing() bool                           { return f.missing }
func (f *Functor) IsActive() bool                            { return f.active }
func (f *Functor) IsResolved() bool                          { return f.resolved }
func (f *Functor) Library() string                           { return f.id.Origin }
func (f *Functor) Version() string                           { return f.id.Version }
func (f *Functor) Dependencies() []Capability                { return f.deps }
func (f *Functor) ModelDependencies() []ModelDependency      { return f.modelDeps }
func (f *Functor) BackendRequirements() []BackendRequirement { return f.backendReqs }
func (f *Functor) BackendDependencies() []BackendDependency  { return f.backendDeps }
func (f *Functor) AllowedModels() []string                   { return f.allowed }
func (f *Functor) Options() *Options                         { return f.options }
func (f *Functor) Nested() []*Functor                        { return f.nested }

// HasImplementation reports whether a body or backend callable is attached.
func (f *Functor) HasImplementation() bool {
	return f.body != nil || f.fn != nil
}

func (f *Functor) String() string {
	return fmt.Sprintf("%s (%s)", f.id, f.cap)
}

// Status returns the status of the coordinator slot.
func (f *Functor) Status() Status {
	return f.slots[0].status
}

// SlotStatus returns the status of a worker slot.
func (f *Functor) SlotStatus(worker int) Status {
	if worker >= len(f.slots) {
		return StatusUnresolved
	}
	return f.slots[worker].status
}

// Value returns the cached result of the coordinator slot. The value is
// borrowed: callers must not mutate it and must not hold it past the next
// reset.
func (f *Functor) Value() (any, bool) {
	s := f.slots[0]
	return s.value, s.status == StatusComputed
}

// Dependency returns the functor bound to a dependency edge.
func (f *Functor) Dependency(capability string) (*Functor, bool) {
	up, ok := f.edges[capability]
	return up, ok
}

// Backend returns the backend functor bound to a backend requirement.
func (f *Functor) Backend(capability string) (*Functor, bool) {
	b, ok := f.backends[capability]
	return b, ok
}

// Edges returns the bound dependency functors ordered by rank.
func (f *Functor) Edges() []*Functor {
	return sortedByRank(f.edges)
}

// BackendEdges returns the bound backend functors ordered by rank.
func (f *Functor) BackendEdges() []*Functor {
	return sortedByRank(f.backends)
}

func sortedByRank(m map[string]*Functor) []*Functor {
	out := make([]*Functor, 0, len(m))
	for _, fn := range m {
		if !slices.Contains(out, fn) {
			out = append(out, fn)
		}
	}
	slices.SortFunc(out, func(a, b *Functor) int { return a.rank - b.rank })
	return out
}

// NotifyOfModel activates the functor if model is in, or descends from, its
// allowed models. Exact functors ignore ancestry.
func (f *Functor) NotifyOfModel(reg *models.Registry, model string) {
	if len(f.allowed) == 0 {
		f.active = true
		return
	}
	if f.exact {
		if slices.Contains(f.allowed, model) {
			f.active = true
		}
		return
	}
	if reg.DescendsFrom(model, f.allowed...) {
		f.active = true
	}
}

// ClearResolution drops all bindings and model activation ahead of a new
// resolution pass.
func (f *Functor) ClearResolution() {
	f.active = len(f.allowed) == 0
	f.resolved = false
	f.edges = nil
	f.backends = nil
	f.nested = nil
	f.options = f.defaults
	f.slots = make([]slot, 1)
}

// ResolveDependency binds requirement req to upstream.
func (f *Functor) ResolveDependency(req Capability, upstream *Functor) error {
	if upstream.kind != KindModule {
		return &ResolutionError{Capability: req, Dependent: f.id.String(), Reason: fmt.Sprintf("%s is a backend function", upstream.id)}
	}
	if !req.Accepts(upstream.cap) {
		return &ResolutionError{
			Capability: req,
			Dependent:  f.id.String(),
			Reason:     fmt.Sprintf("type mismatch: %s provides %s", upstream.id, upstream.cap),
		}
	}
	if f.edges == nil {
		f.edges = make(map[string]*Functor)
	}
	f.edges[req.Name] = upstream
	return nil
}

// ResolveBackendRequirement binds backend requirement req to backend.
func (f *Functor) ResolveBackendRequirement(req BackendRequirement, backend *Functor) error {
	if backend.kind != KindBackend {
		return &ResolutionError{Capability: req.Capability, Dependent: f.id.String(), Backend: true, Reason: fmt.Sprintf("%s is not a backend function", backend.id)}
	}
	if !req.Accepts(backend.cap) {
		return &ResolutionError{
			Capability: req.Capability,
			Dependent:  f.id.String(),
			Backend:    true,
			Reason:     fmt.Sprintf("type mismatch: %s provides %s", backend.id, backend.cap),
		}
	}
	if f.backends == nil {
		f.backends = make(map[string]*Functor)
	}
	f.backends[req.Name] = backend
	return nil
}

// SetOptions layers configured overrides over the registered defaults.
func (f *Functor) SetOptions(o *Options) {
	if o == nil {
		f.options = f.defaults
		return
	}
	f.options = o
}

// SetNested records the ordered functors this manager drives.
func (f *Functor) SetNested(nested []*Functor) {
	f.nested = nested
}

// MarkResolved checks that every unconditional requirement is bound and
// moves the functor to the resolved state.
func (f *Functor) MarkResolved() error {
	if missing := f.unboundRequirement(); missing != "" {
		return &ResolutionError{Capability: Capability{Name: missing}, Dependent: f.id.String(), Reason: "requirement is not bound"}
	}
	f.resolved = true
	for i := range f.slots {
		f.slots[i] = slot{status: StatusResolved}
	}
	return nil
}

func (f *Functor) unboundRequirement() string {
	for _, d := range f.deps {
		if _, ok := f.edges[d.Name]; !ok {
			return d.Name
		}
	}
	for _, r := range f.backendReqs {
		if _, ok := f.backends[r.Name]; !ok {
			return r.Name
		}
	}
	return ""
}

// EnsureSlots grows the slot table to n slots. It must not be called while
// workers are running.
func (f *Functor) EnsureSlots(n int) {
	for len(f.slots) < n {
		status := StatusUnresolved
		if f.resolved {
			status = StatusResolved
		}
		f.slots = append(f.slots, slot{status: status})
	}
}

// Reset clears every slot, including worker scratch state, ready for the
// next point.
func (f *Functor) Reset() {
	for i := range f.slots {
		f.slots[i] = slot{status: f.baseStatus()}
	}
}

// ResetSlot clears a single slot's value between loop phases. Scratch
// state survives until the next Reset.
func (f *Functor) ResetSlot(worker int) {
	if worker >= len(f.slots) {
		return
	}
	s := &f.slots[worker]
	s.status = f.baseStatus()
	s.value = nil
}

// MarkInvalidated flags every slot as invalidated and drops the cached
// values. Scratch state survives until the next Reset.
func (f *Functor) MarkInvalidated() {
	for i := range f.slots {
		f.slots[i].status = StatusInvalidated
		f.slots[i].value = nil
	}
}

func (f *Functor) baseStatus() Status {
	if f.resolved {
		return StatusResolved
	}
	return StatusUnresolved
}
