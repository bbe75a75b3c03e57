package loop

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/specialistvlad/capscan/internal/aggregate"
	"github.com/specialistvlad/capscan/internal/ctxlog"
	"github.com/specialistvlad/capscan/internal/functor"
	"github.com/specialistvlad/capscan/internal/invalidation"
	"github.com/specialistvlad/capscan/internal/phase"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// FailureReason is the invalidation reason raised when a subsystem exceeds
// its failed-iteration cap.
const FailureReason = "exceeded maxFailedEvents"

// Summary is the value a manager functor produces for a point. Failed
// counts failed iterations over every subsystem that ran.
type Summary struct {
	Subsystems int
	Iterations int64
	Failed     int64
	WrappedUp  bool
}

// Manager runs the nested functors of one loop manager for one point. It
// implements functor.LoopControl for the functors it drives.
type Manager struct {
	owner  *functor.Functor
	cfg    Config
	frame  functor.Frame
	nested []*functor.Functor

	base sync.Mutex

	accMu        sync.Mutex
	accumulators map[string]*aggregate.Accumulator

	wrapup     atomic.Bool
	failed     atomic.Int64
	exceeded   atomic.Bool
	iterations atomic.Int64

	// Coordinator only.
	failedTotal int64
	wrapped     bool
}

// New creates a manager driving owner's nested functors for the point in
// frame.
func New(owner *functor.Functor, cfg Config, frame functor.Frame) *Manager {
	if frame.Signals == nil {
		frame.Signals = invalidation.NewChannel()
	}
	return &Manager{
		owner:        owner,
		cfg:          cfg,
		frame:        frame,
		nested:       owner.Nested(),
		accumulators: make(map[string]*aggregate.Accumulator),
	}
}

// Body returns the functor body of a loop manager. The manager settings are
// read from the functor's options.
func Body() functor.Body {
	return func(p *functor.Pipe) (any, error) {
		cfg, err := ConfigFromOptions(p.Options())
		if err != nil {
			return nil, err
		}
		return New(p.Functor(), cfg, p.Frame()).Run(p.Context())
	}
}

// Wrapup asks the manager to stop iterating the current subsystem.
func (m *Manager) Wrapup() {
	m.wrapup.Store(true)
}

// Accumulator returns the named accumulator, creating it on first use.
func (m *Manager) Accumulator(name string) *aggregate.Accumulator {
	m.accMu.Lock()
	defer m.accMu.Unlock()
	acc, ok := m.accumulators[name]
	if !ok {
		acc = aggregate.NewAccumulator()
		m.accumulators[name] = acc
	}
	return acc
}

// Workers returns the size of the worker pool.
func (m *Manager) Workers() int {
	return m.cfg.Workers
}

// Run executes the full phase protocol. A point invalidated during the run
// is reported as an invalid-point error once the cleanup phases are done.
func (m *Manager) Run(ctx context.Context) (Summary, error) {
	ctx, logger := ctxlog.With(ctx, "manager", m.owner.ID().String(), "point", m.frame.Point.ID)
	ctx, span := tracer.Start(ctx, "loop.Run", trace.WithAttributes(
		attribute.String("manager", m.owner.ID().String()),
		attribute.Int("workers", m.cfg.Workers),
		attribute.Int("nested", len(m.nested)),
	))
	defer span.End()
	start := time.Now()
	defer func() { runSeconds.Observe(time.Since(start).Seconds()) }()

	for _, f := range m.nested {
		f.EnsureSlots(m.cfg.Workers + 1)
	}
	m.failedTotal, m.wrapped = 0, false

	logger.Debug("Loop started.", "subsystems", m.cfg.Subsystems, "workers", m.cfg.Workers)
	var summary Summary

	if err := m.runBase(ctx, phase.BaseInit); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "base init failed")
		return summary, err
	}

	for _, sub := range m.cfg.Subsystems {
		if m.frame.Signals.IsPending() {
			logger.Debug("Skipping remaining subsystems of an invalid point.", "subsystem", sub)
			break
		}
		if err := m.runSubsystem(ctx, sub); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "subsystem failed")
			return summary, err
		}
		summary.Subsystems++
	}

	if err := m.runBase(ctx, phase.BaseFinalize); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "base finalize failed")
		return summary, err
	}

	summary.Iterations = m.iterations.Load()
	summary.Failed = m.failedTotal
	summary.WrappedUp = m.wrapped
	span.SetAttributes(attribute.Int64("iterations", summary.Iterations), attribute.Int64("failed", summary.Failed))

	if sig, pending := m.frame.Signals.Pending(); pending {
		for _, f := range m.nested {
			f.MarkInvalidated()
		}
		logger.Debug("Loop finished on an invalid point.", "reason", sig.Reason)
		return summary, sig.Err()
	}
	logger.Debug("Loop finished.", "iterations", summary.Iterations, "failed", summary.Failed)
	return summary, nil
}

// runBase executes BaseInit or BaseFinalize. They run on the coordinator
// only, and never concurrently with each other.
func (m *Manager) runBase(ctx context.Context, kind phase.Kind) error {
	m.base.Lock()
	defer m.base.Unlock()
	return m.runPhase(ctx, phase.Of(kind, ""))
}

func (m *Manager) runSubsystem(ctx context.Context, sub string) error {
	ctx, span := tracer.Start(ctx, "loop.Subsystem", trace.WithAttributes(attribute.String("subsystem", sub)))
	defer span.End()
	logger := ctxlog.FromContext(ctx)

	m.wrapup.Store(false)
	m.failed.Store(0)
	m.exceeded.Store(false)

	for _, kind := range []phase.Kind{phase.SubsystemInit, phase.StartSubprocess} {
		if err := m.runPhase(ctx, phase.Of(kind, sub)); err != nil {
			return err
		}
	}

	var next int64
	limit := int64(m.cfg.MaxIterations)
	for next < limit && !m.wrapup.Load() && !m.frame.Signals.IsPending() {
		if err := ctx.Err(); err != nil {
			return err
		}
		n := min(int64(m.cfg.BatchSize), limit-next)
		if err := m.runBatch(ctx, sub, next, next+n); err != nil {
			return err
		}
		next += n
		if m.frame.Signals.IsPending() {
			break
		}
		for _, kind := range []phase.Kind{phase.StatisticCollection, phase.ConvergenceCheck} {
			if err := m.runPhase(ctx, phase.Of(kind, sub)); err != nil {
				return err
			}
		}
	}

	switch {
	case m.frame.Signals.IsPending():
		wrapupsTotal.WithLabelValues("invalid_point").Inc()
	case m.exceeded.Load():
		wrapupsTotal.WithLabelValues("failure_cap").Inc()
	case m.wrapup.Load():
		wrapupsTotal.WithLabelValues("requested").Inc()
	}
	if m.wrapup.Load() {
		m.wrapped = true
	}
	m.failedTotal += m.failed.Load()
	logger.Debug("Subsystem iterations finished.", "subsystem", sub, "scheduled", next, "failed", m.failed.Load(), "wrapup", m.wrapup.Load())

	for _, kind := range []phase.Kind{phase.EndSubprocess, phase.SubsystemFinalize} {
		if err := m.runPhase(ctx, phase.Of(kind, sub)); err != nil {
			return err
		}
	}
	return nil
}

// runBatch runs iterations [from, to) on the worker pool. Workers pull
// indices from a shared counter, so iteration order across workers is not
// defined.
func (m *Manager) runBatch(ctx context.Context, sub string, from, to int64) error {
	var cursor atomic.Int64
	cursor.Store(from)

	g, gctx := errgroup.WithContext(ctx)
	for w := 1; w <= m.cfg.Workers; w++ {
		g.Go(func() error {
			logger := ctxlog.FromContext(gctx).With("worker", w)
			for {
				if err := gctx.Err(); err != nil {
					return err
				}
				if m.wrapup.Load() || m.frame.Signals.IsPending() {
					return nil
				}
				i := cursor.Add(1) - 1
				if i >= to {
					return nil
				}
				if err := m.iterate(gctx, logger, w, phase.Iteration(i, sub)); err != nil {
					return err
				}
			}
		})
	}
	return g.Wait()
}

// iterate runs one ordinary iteration on worker slot w.
func (m *Manager) iterate(ctx context.Context, logger *slog.Logger, w int, ph phase.Phase) error {
	frame := m.frame
	frame.Worker = w
	frame.Phase = ph
	frame.Loop = m

	for _, f := range m.nested {
		f.ResetSlot(w)
	}
	for _, f := range m.nested {
		err := f.Calculate(ctx, frame)
		if err == nil {
			continue
		}
		if invalidation.IsInvalid(err) {
			iterationsTotal.WithLabelValues("invalid").Inc()
			return nil
		}
		var fatal *invalidation.FatalError
		if errors.As(err, &fatal) {
			return err
		}
		m.recordFailure(logger, f, ph, err)
		return nil
	}
	m.iterations.Add(1)
	iterationsTotal.WithLabelValues("ok").Inc()
	return nil
}

// recordFailure counts a failed iteration and enforces the failure cap.
func (m *Manager) recordFailure(logger *slog.Logger, f *functor.Functor, ph phase.Phase, err error) {
	iterationsTotal.WithLabelValues("failed").Inc()
	n := m.failed.Add(1)
	logger.Debug("Iteration failed.", "functor", f.ID().String(), "iteration", ph.Sentinel(), "subsystem", ph.Subsystem, "failed", n, "error", err)
	if n <= int64(m.cfg.MaxFailedEvents) || !m.exceeded.CompareAndSwap(false, true) {
		return
	}

	origin := m.owner.ID().String()
	if m.cfg.InvalidateFailedPoints {
		m.frame.Signals.InvalidPoint(origin, FailureReason)
	} else {
		logger.Warn("Too many failed iterations, wrapping up.", "failed", n, "subsystem", ph.Subsystem)
		m.frame.Signals.Warning(origin, FailureReason)
	}
	m.Wrapup()
}

// runPhase evaluates every nested functor on the coordinator slot. Outside
// the cleanup phases an invalidated point stops the phase; cleanup phases
// always visit every functor.
func (m *Manager) runPhase(ctx context.Context, ph phase.Phase) error {
	frame := m.frame
	frame.Worker = 0
	frame.Phase = ph
	frame.Loop = m

	for _, f := range m.nested {
		f.ResetSlot(0)
	}
	for _, f := range m.nested {
		err := f.Calculate(ctx, frame)
		switch {
		case err == nil:
		case invalidation.IsInvalid(err):
			if !ph.IsCleanup() {
				return nil
			}
		default:
			return fmt.Errorf("%s phase (iteration %d): %w", ph, ph.Sentinel(), err)
		}
	}
	return nil
}
