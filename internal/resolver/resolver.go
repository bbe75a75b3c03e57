package resolver

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/specialistvlad/capscan/internal/ctxlog"
	"github.com/specialistvlad/capscan/internal/functor"
	"github.com/specialistvlad/capscan/internal/registry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Resolver owns the resolution of a fixed set of requests against a
// registry. It is not safe for concurrent use; resolution happens between
// points, on the controller goroutine.
type Resolver struct {
	reg      *registry.Registry
	requests []Request
	rules    Rules
	cache    map[string]*resolution
	current  *resolution
}

// New creates a resolver. Nothing is resolved until ResolveNow is called.
func New(reg *registry.Registry, requests []Request, rules Rules) *Resolver {
	return &Resolver{
		reg:      reg,
		requests: slices.Clone(requests),
		rules:    rules,
		cache:    make(map[string]*resolution),
	}
}

// ResolveNow resolves the requests for the configured models.
func (r *Resolver) ResolveNow(ctx context.Context) error {
	return r.SetModels(ctx, r.rules.Models...)
}

// SetModels makes the given model set active and re-derives the graph.
// Resolutions are memoised per model set.
func (r *Resolver) SetModels(ctx context.Context, models ...string) error {
	logger := ctxlog.FromContext(ctx)
	key := modelKey(models)

	ctx, span := tracer.Start(ctx, "resolver.Resolve", trace.WithAttributes(
		attribute.String("models", key),
		attribute.Int("requests", len(r.requests)),
	))
	defer span.End()

	for _, m := range models {
		if _, ok := r.reg.Models().Get(m); !ok {
			err := fmt.Errorf("unknown model %q", m)
			r.fail(span, err)
			return err
		}
	}

	if res, ok := r.cache[key]; ok {
		logger.Debug("Reusing cached resolution.", "models", key)
		r.activate(res)
		resolutionsTotal.WithLabelValues("cached").Inc()
		span.SetAttributes(attribute.Bool("cached", true))
		return nil
	}

	logger.Debug("Resolving dependencies.", "models", key, "requests", len(r.requests))
	start := time.Now()
	r.prepare(models)
	res, err := newBuilder(r.reg, r.rules, slices.Clone(models)).build(ctx, r.requests)
	resolutionSeconds.Observe(time.Since(start).Seconds())
	if err != nil {
		r.fail(span, err)
		return err
	}

	r.cache[key] = res
	r.current = res
	resolutionsTotal.WithLabelValues("built").Inc()
	resolvedFunctors.Set(float64(len(res.selected)))
	span.SetAttributes(attribute.Int("selected", len(res.selected)))
	logger.Info("Dependency resolution finished.", "models", key, "functors", len(res.selected), "order", len(res.order))
	return nil
}

func (r *Resolver) fail(span trace.Span, err error) {
	r.current = nil
	r.prepare(nil)
	resolutionsTotal.WithLabelValues("failed").Inc()
	span.RecordError(err)
	span.SetStatus(codes.Error, "resolution failed")
}

// prepare clears every functor and notifies it of the active models.
func (r *Resolver) prepare(models []string) {
	clearAndNotify := func(fs []*functor.Functor) {
		for _, f := range fs {
			f.ClearResolution()
			for _, m := range models {
				f.NotifyOfModel(r.reg.Models(), m)
			}
		}
	}
	clearAndNotify(r.reg.Functors())
	clearAndNotify(r.reg.Backends())
}

// activate replays a memoised resolution onto the registry's functors.
func (r *Resolver) activate(res *resolution) {
	r.prepare(res.models)
	for _, f := range res.selected {
		bind := res.bindings[f]
		for _, d := range bind.deps {
			// Replayed bindings were accepted when the resolution was built.
			_ = f.ResolveDependency(d.req, d.up)
		}
		for _, bb := range bind.backends {
			_ = f.ResolveBackendRequirement(bb.req, bb.backend)
		}
		f.SetOptions(bind.options)
		f.SetNested(bind.nested)
	}
	for _, f := range res.selected {
		_ = f.MarkResolved()
	}
	r.current = res
	resolvedFunctors.Set(float64(len(res.selected)))
}

// EvaluationOrder returns the top-level functors in evaluation order, or
// nil when nothing is resolved.
func (r *Resolver) EvaluationOrder() []*functor.Functor {
	if r.current == nil {
		return nil
	}
	return r.current.order
}

// Selected returns every functor taking part in the active resolution,
// including loop-nested ones.
func (r *Resolver) Selected() []*functor.Functor {
	if r.current == nil {
		return nil
	}
	return r.current.selected
}

// Outputs returns the functors answering each request, in request order.
func (r *Resolver) Outputs() []Output {
	if r.current == nil {
		return nil
	}
	return r.current.outputs
}

// Models returns the active model set.
func (r *Resolver) Models() []string {
	if r.current == nil {
		return nil
	}
	return slices.Clone(r.current.models)
}

// Calculate computes a single functor of the active resolution.
func (r *Resolver) Calculate(ctx context.Context, f *functor.Functor, frame functor.Frame) error {
	if r.current == nil {
		return fmt.Errorf("no active resolution")
	}
	if _, ok := r.current.bindings[f]; !ok {
		return fmt.Errorf("functor %s is not part of the active resolution", f.ID())
	}
	return f.Calculate(ctx, frame)
}

// ResetAll clears the cached results of every selected functor.
func (r *Resolver) ResetAll() {
	if r.current == nil {
		return
	}
	for _, f := range r.current.selected {
		f.Reset()
	}
}

func modelKey(models []string) string {
	sorted := slices.Clone(models)
	slices.Sort(sorted)
	return strings.Join(slices.Compact(sorted), ",")
}
