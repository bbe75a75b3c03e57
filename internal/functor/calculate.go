package functor

import (
	"context"
	"errors"
	"fmt"

	"github.com/specialistvlad/capscan/internal/aggregate"
	"github.com/specialistvlad/capscan/internal/invalidation"
	"github.com/specialistvlad/capscan/internal/phase"
	"github.com/specialistvlad/capscan/internal/scanpoint"
)

// LoopControl is the view of a running loop manager offered to the
// functors it drives.
type LoopControl interface {
	// Wrapup asks the manager to stop iterating the current subsystem.
	Wrapup()
	// Accumulator returns the named per-worker statistics accumulator.
	Accumulator(name string) *aggregate.Accumulator
	// Workers returns the size of the worker pool.
	Workers() int
}

// Frame carries the per-invocation context of a calculation.
type Frame struct {
	Worker  int
	Phase   phase.Phase
	Point   scanpoint.Point
	Signals *invalidation.Channel
	Loop    LoopControl
}

// Calculate computes the functor for the frame's slot unless it is already
// computed. A pending invalid-point signal short-circuits the computation,
// except during loop cleanup phases.
func (f *Functor) Calculate(ctx context.Context, frame Frame) error {
	if frame.Worker < 0 || frame.Worker >= len(f.slots) {
		return fmt.Errorf("functor %s has no slot for worker %d", f.id, frame.Worker)
	}
	s := &f.slots[frame.Worker]
	if s.status == StatusComputed {
		return nil
	}
	if !f.resolved {
		return &ResolutionError{Capability: f.cap, Dependent: f.id.String(), Reason: "functor is not resolved"}
	}

	cleanup := frame.Loop != nil && frame.Phase.IsCleanup()
	if sig, pending := pendingSignal(frame); pending && !cleanup {
		s.status = StatusInvalidated
		return sig.Err()
	}

	if f.kind == KindBackend {
		s.value = f.fn
		s.status = StatusComputed
		return nil
	}
	if f.body == nil {
		return &ComputationError{Functor: f.id.String(), Err: errors.New("no body registered")}
	}

	val, err := f.body(&Pipe{ctx: ctx, f: f, frame: frame})
	if err != nil {
		if invalidation.IsInvalid(err) {
			if frame.Signals != nil {
				frame.Signals.Raise(f.id.String(), err)
			}
			s.status = StatusInvalidated
			s.value = nil
			return err
		}
		var fatal *invalidation.FatalError
		if errors.As(err, &fatal) {
			return err
		}
		return &ComputationError{Functor: f.id.String(), Err: err}
	}

	if sig, pending := pendingSignal(frame); pending && !cleanup {
		s.status = StatusInvalidated
		s.value = nil
		return sig.Err()
	}

	s.value = val
	s.status = StatusComputed
	return nil
}

func pendingSignal(frame Frame) (invalidation.Signal, bool) {
	if frame.Signals == nil {
		return invalidation.Signal{}, false
	}
	return frame.Signals.Pending()
}
