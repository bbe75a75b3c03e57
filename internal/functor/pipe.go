package functor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/specialistvlad/capscan/internal/aggregate"
	"github.com/specialistvlad/capscan/internal/ctxlog"
	"github.com/specialistvlad/capscan/internal/invalidation"
	"github.com/specialistvlad/capscan/internal/phase"
	"github.com/specialistvlad/capscan/internal/scanpoint"
)

// ErrNotInLoop is returned by loop helpers called outside a loop manager.
var ErrNotInLoop = errors.New("functor is not running inside a loop")

// Pipe is what a functor body sees: its dependencies, backends, options and
// the signals it may raise.
type Pipe struct {
	ctx   context.Context
	f     *Functor
	frame Frame
}

func (p *Pipe) Context() context.Context { return p.ctx }
func (p *Pipe) Functor() *Functor        { return p.f }
func (p *Pipe) Frame() Frame             { return p.frame }
func (p *Pipe) Point() scanpoint.Point   { return p.frame.Point }
func (p *Pipe) Phase() phase.Phase       { return p.frame.Phase }
func (p *Pipe) Worker() int              { return p.frame.Worker }
func (p *Pipe) Options() *Options        { return p.f.options }
func (p *Pipe) Loop() LoopControl        { return p.frame.Loop }

// Logger returns the context logger annotated with the functor ID.
func (p *Pipe) Logger() *slog.Logger {
	return ctxlog.FromContext(p.ctx).With("functor", p.f.id.String())
}

// Dep returns the value of the dependency bound to capability. Within a
// loop, functors nested in the same manager read the current worker's slot.
func (p *Pipe) Dep(capability string) (any, error) {
	up, ok := p.f.edges[capability]
	if !ok {
		return nil, fmt.Errorf("%s has no active dependency on %q", p.f.id, capability)
	}
	w := 0
	if p.frame.Loop != nil && up.nestedIn != "" && up.nestedIn == p.f.nestedIn {
		w = p.frame.Worker
	}
	if w >= len(up.slots) || up.slots[w].status != StatusComputed {
		return nil, fmt.Errorf("dependency %q of %s is not computed (%s)", capability, p.f.id, up.id)
	}
	return up.slots[w].value, nil
}

// HasDep reports whether a conditional dependency is active.
func (p *Pipe) HasDep(capability string) bool {
	_, ok := p.f.edges[capability]
	return ok
}

// DepAs returns a dependency value asserted to type T.
func DepAs[T any](p *Pipe, capability string) (T, error) {
	var zero T
	raw, err := p.Dep(capability)
	if err != nil {
		return zero, err
	}
	v, ok := raw.(T)
	if !ok {
		return zero, fmt.Errorf("dependency %q of %s has type %T, expected %T", capability, p.f.id, raw, zero)
	}
	return v, nil
}

// BackendOrigin returns the library@version bound to a backend requirement.
func (p *Pipe) BackendOrigin(capability string) (string, bool) {
	b, ok := p.f.backends[capability]
	if !ok {
		return "", false
	}
	return b.id.OriginString(), true
}

// Call invokes the backend bound to capability. Backend failures other than
// point invalidations are fatal and carry the backend origin.
func (p *Pipe) Call(capability string, args ...any) (any, error) {
	b, ok := p.f.backends[capability]
	if !ok {
		return nil, fmt.Errorf("%s has no backend requirement %q", p.f.id, capability)
	}
	if b.fn == nil {
		return nil, &invalidation.FatalError{Functor: p.f.id.String(), Backend: b.id.OriginString(), Err: errors.New("backend function is not loaded")}
	}
	out, err := b.fn(p.ctx, args...)
	if err != nil {
		if invalidation.IsInvalid(err) {
			return nil, err
		}
		return nil, &invalidation.FatalError{Functor: p.f.id.String(), Backend: b.id.OriginString(), Err: err}
	}
	return out, nil
}

// CallAs invokes a backend and asserts its result to type T.
func CallAs[T any](p *Pipe, capability string, args ...any) (T, error) {
	var zero T
	raw, err := p.Call(capability, args...)
	if err != nil {
		return zero, err
	}
	v, ok := raw.(T)
	if !ok {
		return zero, fmt.Errorf("backend %q of %s returned %T, expected %T", capability, p.f.id, raw, zero)
	}
	return v, nil
}

// Invalidate raises invalid_point for the current point and returns the
// matching error so bodies can `return nil, p.Invalidate(...)`.
func (p *Pipe) Invalidate(reason string) error {
	if p.frame.Signals != nil {
		p.frame.Signals.InvalidPoint(p.f.id.String(), reason)
	}
	return &invalidation.InvalidPointError{Origin: p.f.id.String(), Reason: reason}
}

// Warn records a non-fatal warning against the current point.
func (p *Pipe) Warn(reason string) {
	p.Logger().Warn("Functor raised a warning.", "reason", reason, "point", p.frame.Point.ID)
	if p.frame.Signals != nil {
		p.frame.Signals.Warning(p.f.id.String(), reason)
	}
}

// Scratch returns worker-local state that persists across loop phases and
// iterations until the functor is reset for the next point.
func (p *Pipe) Scratch() map[string]any {
	s := &p.f.slots[p.frame.Worker]
	if s.scratch == nil {
		s.scratch = make(map[string]any)
	}
	return s.scratch
}

// Wrapup asks the driving loop manager to finish the current subsystem.
func (p *Pipe) Wrapup() error {
	if p.frame.Loop == nil {
		return ErrNotInLoop
	}
	p.frame.Loop.Wrapup()
	return nil
}

// Partial returns this worker's partial of the named accumulator.
func (p *Pipe) Partial(name string) (*aggregate.Partial, error) {
	if p.frame.Loop == nil {
		return nil, ErrNotInLoop
	}
	return p.frame.Loop.Accumulator(name).Slot(p.frame.Worker), nil
}

// Combined returns the fold of every worker's partial of the named
// accumulator. Only meaningful on the coordinator, between batches.
func (p *Pipe) Combined(name string) (aggregate.Partial, error) {
	if p.frame.Loop == nil {
		return aggregate.Partial{}, ErrNotInLoop
	}
	return p.frame.Loop.Accumulator(name).Reduce(), nil
}

// Gather returns this worker's partial of the named accumulator with every
// other worker's partial folded in. The slots are left untouched.
func (p *Pipe) Gather(name string) (aggregate.Partial, error) {
	if p.frame.Loop == nil {
		return aggregate.Partial{}, ErrNotInLoop
	}
	return p.frame.Loop.Accumulator(name).Gather(p.frame.Worker), nil
}

// Counts returns the number of samples every worker recorded in the named
// accumulator, whether or not the partials carry an estimate.
func (p *Pipe) Counts(name string) (int64, error) {
	if p.frame.Loop == nil {
		return 0, ErrNotInLoop
	}
	return p.frame.Loop.Accumulator(name).GatherCounts(), nil
}
