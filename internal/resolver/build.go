package resolver

import (
	"context"
	"slices"

	"github.com/specialistvlad/capscan/internal/ctxlog"
	"github.com/specialistvlad/capscan/internal/dag"
	"github.com/specialistvlad/capscan/internal/functor"
	"github.com/specialistvlad/capscan/internal/registry"
)

type depBinding struct {
	req functor.Capability
	up  *functor.Functor
}

type backendBinding struct {
	req     functor.BackendRequirement
	backend *functor.Functor
}

// binding records everything resolution decided for one functor so that the
// decision can be replayed when the same model set becomes active again.
type binding struct {
	deps     []depBinding
	backends []backendBinding
	options  *functor.Options
	nested   []*functor.Functor
}

// resolution is the outcome of resolving the requests for one model set.
type resolution struct {
	models   []string
	selected []*functor.Functor
	bindings map[*functor.Functor]*binding
	order    []*functor.Functor
	outputs  []Output
}

type edge struct {
	from, to *functor.Functor
	kind     dag.EdgeKind
}

// builder carries the state of a single resolution pass.
type builder struct {
	reg    *registry.Registry
	rules  Rules
	models []string
	res    *resolution
	scope  map[*functor.Functor]*functor.Functor
	edges  []edge
}

func newBuilder(reg *registry.Registry, rules Rules, models []string) *builder {
	return &builder{
		reg:    reg,
		rules:  rules,
		models: models,
		res: &resolution{
			models:   models,
			bindings: make(map[*functor.Functor]*binding),
		},
		scope: make(map[*functor.Functor]*functor.Functor),
	}
}

func (b *builder) build(ctx context.Context, requests []Request) (*resolution, error) {
	logger := ctxlog.FromContext(ctx)

	for i := range requests {
		req := requests[i]
		want := functor.Capability{Name: req.Capability, Type: req.Type}
		f, err := b.selectProvider(want, nil, &req)
		if err != nil {
			return nil, err
		}
		logger.Debug("Resolved request.", "capability", want.String(), "functor", f.ID().String())
		b.res.outputs = append(b.res.outputs, Output{Label: req.DisplayLabel(), Purpose: req.Purpose, Functor: f})
		if err := b.resolveFunctor(f); err != nil {
			return nil, err
		}
	}

	if err := b.order(); err != nil {
		return nil, err
	}

	for _, f := range b.res.selected {
		if err := f.MarkResolved(); err != nil {
			return nil, err
		}
	}
	logger.Debug("Resolution complete.", "selected", len(b.res.selected), "top_level", len(b.res.order))
	return b.res, nil
}

func (b *builder) resolveFunctor(f *functor.Functor) error {
	if _, done := b.res.bindings[f]; done {
		return nil
	}
	bind := &binding{}
	b.res.bindings[f] = bind
	b.res.selected = append(b.res.selected, f)

	if f.Kind() == functor.KindBackend {
		bind.options = f.Options()
		return nil
	}

	if f.NestedIn() != "" {
		manager, err := b.selectManager(f)
		if err != nil {
			return err
		}
		b.scope[f] = manager
		if err := b.resolveFunctor(manager); err != nil {
			return err
		}
	}

	reqs := slices.Clone(f.Dependencies())
	for _, md := range f.ModelDependencies() {
		if b.activeModelDependency(md) {
			reqs = append(reqs, md.Capability)
		}
	}
	for _, req := range reqs {
		if err := b.bindDependency(f, bind, req); err != nil {
			return err
		}
	}

	for _, breq := range f.BackendRequirements() {
		backend, err := b.selectBackend(breq, f)
		if err != nil {
			return err
		}
		if err := f.ResolveBackendRequirement(breq, backend); err != nil {
			return err
		}
		bind.backends = append(bind.backends, backendBinding{req: breq, backend: backend})
		b.edges = append(b.edges, edge{from: backend, to: f, kind: dag.EdgeBackend})
		if err := b.resolveFunctor(backend); err != nil {
			return err
		}
	}

	for _, bd := range f.BackendDependencies() {
		backend, ok := f.Backend(bd.Requirement)
		if !ok || !bd.Pin.Allows(backend.Library(), backend.Version()) {
			continue
		}
		if err := b.bindDependency(f, bind, bd.Capability); err != nil {
			return err
		}
	}

	bind.options = b.optionsFor(f)
	f.SetOptions(bind.options)
	return nil
}

func (b *builder) bindDependency(f *functor.Functor, bind *binding, req functor.Capability) error {
	up, err := b.selectProvider(req, f, nil)
	if err != nil {
		return err
	}
	if err := f.ResolveDependency(req, up); err != nil {
		return err
	}
	bind.deps = append(bind.deps, depBinding{req: req, up: up})
	b.edges = append(b.edges, edge{from: up, to: f, kind: dag.EdgeDependency})
	return b.resolveFunctor(up)
}

// optionsFor layers the options of every matching rule, in rule order,
// over the functor's registered defaults.
func (b *builder) optionsFor(f *functor.Functor) *functor.Options {
	opts := f.Options()
	for _, rule := range b.rules.Rules {
		if len(rule.Options) > 0 && rule.selects(f) {
			opts = opts.Merge(rule.Options)
		}
	}
	return opts
}

// order builds the top-level graph and one nested graph per loop manager,
// then derives their evaluation orders.
func (b *builder) order() error {
	top := dag.New()
	nested := make(map[*functor.Functor]*dag.Graph)
	byKey := make(map[string]*functor.Functor, len(b.res.selected))

	graphFor := func(scope *functor.Functor) *dag.Graph {
		if scope == nil {
			return top
		}
		g, ok := nested[scope]
		if !ok {
			g = dag.New()
			nested[scope] = g
		}
		return g
	}

	for _, f := range b.res.selected {
		byKey[f.ID().String()] = f
		graphFor(b.scope[f]).AddNode(f.ID().String(), f.Rank())
	}

	for _, e := range b.edges {
		from, to := e.from, e.to
		fromScope, toScope := b.scope[from], b.scope[to]
		if from == toScope {
			return &functor.ResolutionError{Capability: from.Capability(), Dependent: to.ID().String(), Reason: "functor depends on its own loop manager"}
		}
		if to == fromScope {
			continue
		}
		if fromScope == toScope {
			if err := graphFor(fromScope).AddEdge(from.ID().String(), to.ID().String(), e.kind); err != nil {
				return err
			}
			continue
		}
		if fromScope != nil {
			from = fromScope
		}
		if toScope != nil {
			to = toScope
		}
		if from == to {
			continue
		}
		if err := top.AddEdge(from.ID().String(), to.ID().String(), e.kind); err != nil {
			return err
		}
	}

	var roots []string
	for _, out := range b.res.outputs {
		f := out.Functor
		if s := b.scope[f]; s != nil {
			f = s
		}
		roots = append(roots, f.ID().String())
	}

	keys, err := top.Order(roots)
	if err != nil {
		return err
	}
	b.res.order = make([]*functor.Functor, len(keys))
	for i, k := range keys {
		b.res.order[i] = byKey[k]
	}

	managers := make([]*functor.Functor, 0, len(nested))
	for m := range nested {
		managers = append(managers, m)
	}
	slices.SortFunc(managers, func(a, c *functor.Functor) int { return a.Rank() - c.Rank() })
	for _, m := range managers {
		keys, err := nested[m].Order(nil)
		if err != nil {
			return err
		}
		list := make([]*functor.Functor, len(keys))
		for i, k := range keys {
			list[i] = byKey[k]
		}
		b.res.bindings[m].nested = list
		m.SetNested(list)
	}
	return nil
}
