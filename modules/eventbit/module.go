// Package eventbit registers a Monte Carlo likelihood driven by a loop
// manager. Each iteration generates one weighted event for the current Toy
// point; events pass the signal selection with probability exp(-x^2/2).
// Workers count events and selected events; the counts are summed at the
// end of the loop into a selection efficiency, which is compared to an
// observed count with a Poisson likelihood. The mean event weight is
// estimated alongside as a cross-section.
package eventbit

import (
	"errors"
	"math"
	"math/rand/v2"

	"github.com/specialistvlad/capscan/internal/aggregate"
	"github.com/specialistvlad/capscan/internal/functor"
	"github.com/specialistvlad/capscan/internal/loop"
	"github.com/specialistvlad/capscan/internal/models"
	"github.com/specialistvlad/capscan/internal/phase"
	"github.com/specialistvlad/capscan/internal/registry"
	"github.com/specialistvlad/capscan/modules/toymodels"
	"github.com/zclconf/go-cty/cty"
)

// Origin is the module name functions are registered under.
const Origin = "eventbit"

// Option keys.
const (
	OptionFailureRate         = "failure_rate"
	OptionTargetRelativeError = "target_relative_error"
	OptionMinEvents           = "min_events"
	OptionObserved            = "observed"
	OptionBackground          = "background"
	OptionLuminosity          = "luminosity"
	OptionCrossSection        = "cross_section"
)

// Capabilities published by the module.
var (
	LoopCapability       = functor.Capability{Name: "EventLoop", Type: "loop.Summary"}
	EventCapability      = functor.Capability{Name: "Event", Type: "eventbit.Event"}
	EfficiencyCapability = functor.Capability{Name: "SignalEfficiency", Type: "aggregate.Partial"}
	LikelihoodCapability = functor.Capability{Name: "lnL_signal", Type: "double"}
	ObservableCapability = functor.Capability{Name: "signal_efficiency", Type: "double"}
	XsecCapability       = functor.Capability{Name: "CrossSection", Type: "aggregate.Partial"}
	XsecObservable       = functor.Capability{Name: "cross_section", Type: "double"}
)

// Accumulator names.
const (
	eventsAccumulator = "events"
	signalAccumulator = "signal"
	xsecAccumulator   = "xsec"
)

// ErrEventGeneration is returned for events that fail to generate.
var ErrEventGeneration = errors.New("event generation failed")

// Event is one generated collision event.
type Event struct {
	Index  int64
	Signal bool
	Weight float64
}

// Module implements the registry.Module interface for this package.
type Module struct{}

// GenerateEvent produces the event of the current iteration. Outside
// iterations it yields the zero event.
func GenerateEvent(p *functor.Pipe) (any, error) {
	ph := p.Phase()
	if !ph.IsIteration() {
		return Event{}, nil
	}
	ps, err := functor.DepAs[models.Parameters](p, registry.ParametersCapability(toymodels.Toy).Name)
	if err != nil {
		return nil, err
	}
	failureRate, err := p.Options().Float(OptionFailureRate, 0)
	if err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewPCG(uint64(p.Point().ID), uint64(ph.Index)))
	if rng.Float64() < failureRate {
		return nil, ErrEventGeneration
	}
	xsec, err := p.Options().Float(OptionCrossSection, 1)
	if err != nil {
		return nil, err
	}
	x := ps["x"]
	signal := rng.Float64() < math.Exp(-x*x/2)
	return Event{Index: ph.Index, Signal: signal, Weight: xsec * (0.5 + rng.Float64())}, nil
}

// CountSignal counts events and selected events per worker and publishes
// the combined efficiency once the loop finishes. With a positive
// target_relative_error it ends the subsystem early once the estimate is
// precise enough.
func CountSignal(p *functor.Pipe) (any, error) {
	switch p.Phase().Kind {
	case phase.Iterate:
		ev, err := functor.DepAs[Event](p, EventCapability.Name)
		if err != nil {
			return nil, err
		}
		events, err := p.Partial(eventsAccumulator)
		if err != nil {
			return nil, err
		}
		// Counts only: the partials never carry an estimate.
		events.N++
		if ev.Signal {
			hits, err := p.Partial(signalAccumulator)
			if err != nil {
				return nil, err
			}
			hits.N++
		}
	case phase.ConvergenceCheck:
		target, err := p.Options().Float(OptionTargetRelativeError, 0)
		if err != nil || target <= 0 {
			return aggregate.Partial{}, err
		}
		minEvents, err := p.Options().Int(OptionMinEvents, 100)
		if err != nil {
			return nil, err
		}
		eff, err := efficiency(p)
		if err != nil {
			return nil, err
		}
		if eff.N >= int64(minEvents) && eff.HasData() && eff.RelativeError() < target {
			p.Logger().Debug("Signal efficiency converged.", "n", eff.N, "relerr", eff.RelativeError())
			return aggregate.Partial{}, p.Wrapup()
		}
	case phase.BaseFinalize:
		eff, err := efficiency(p)
		if err != nil {
			return nil, err
		}
		p.Logger().Debug("Signal efficiency combined.", "content", eff.Content(ObservableCapability.Name))
		return eff, nil
	}
	return aggregate.Partial{}, nil
}

// efficiency is the fraction of selected events over all workers, with a
// binomial uncertainty. Without events it is the empty partial.
func efficiency(p *functor.Pipe) (aggregate.Partial, error) {
	n, err := p.Counts(eventsAccumulator)
	if err != nil || n == 0 {
		return aggregate.Partial{}, err
	}
	k, err := p.Counts(signalAccumulator)
	if err != nil {
		return aggregate.Partial{}, err
	}
	eff := float64(k) / float64(n)
	return aggregate.Partial{N: n, V: eff, E: math.Sqrt(eff * (1 - eff) / float64(n))}, nil
}

// EstimateCrossSection averages the event weights per worker. At the end
// of the loop the coordinator gathers the worker estimates.
func EstimateCrossSection(p *functor.Pipe) (any, error) {
	switch p.Phase().Kind {
	case phase.Iterate:
		ev, err := functor.DepAs[Event](p, EventCapability.Name)
		if err != nil {
			return nil, err
		}
		part, err := p.Partial(xsecAccumulator)
		if err != nil {
			return nil, err
		}
		part.Observe(ev.Weight)
	case phase.BaseFinalize:
		xsec, err := p.Gather(xsecAccumulator)
		if err != nil {
			return nil, err
		}
		p.Logger().Debug("Cross-section gathered.", "content", xsec.Content(XsecObservable.Name))
		return xsec, nil
	}
	return aggregate.Partial{}, nil
}

// Likelihood is the Poisson log-likelihood of the observed count given the
// expected signal plus background.
func Likelihood(p *functor.Pipe) (any, error) {
	eff, err := functor.DepAs[aggregate.Partial](p, EfficiencyCapability.Name)
	if err != nil {
		return nil, err
	}
	opts := p.Options()
	observed, err := opts.Float(OptionObserved, 3)
	if err != nil {
		return nil, err
	}
	background, err := opts.Float(OptionBackground, 2)
	if err != nil {
		return nil, err
	}
	lumi, err := opts.Float(OptionLuminosity, 10)
	if err != nil {
		return nil, err
	}
	return PoissonLogLike(observed, lumi*eff.V+background), nil
}

// PoissonLogLike returns ln P(n | mu).
func PoissonLogLike(n, mu float64) float64 {
	lgamma, _ := math.Lgamma(n + 1)
	return n*math.Log(mu) - mu - lgamma
}

// Register registers the loop manager and its nested functions.
func (m *Module) Register(r *registry.Registry) {
	params := registry.ParametersCapability(toymodels.Toy)

	r.RegisterFunction(functor.Spec{
		Origin: Origin, Function: "operate_loop", Capability: LoopCapability,
		Manager: true,
		Options: map[string]cty.Value{
			loop.OptionWorkers:       cty.NumberIntVal(2),
			loop.OptionBatchSize:     cty.NumberIntVal(100),
			loop.OptionMaxIterations: cty.NumberIntVal(1000),
		},
		Body: loop.Body(),
	})
	r.RegisterFunction(functor.Spec{
		Origin: Origin, Function: "generate_event", Capability: EventCapability,
		NestedIn:      LoopCapability.Name,
		Dependencies:  []functor.Capability{params},
		AllowedModels: []string{toymodels.Toy},
		Options: map[string]cty.Value{
			OptionFailureRate:  cty.NumberIntVal(0),
			OptionCrossSection: cty.NumberIntVal(1),
		},
		Body: GenerateEvent,
	})
	r.RegisterFunction(functor.Spec{
		Origin: Origin, Function: "count_signal", Capability: EfficiencyCapability,
		NestedIn:     LoopCapability.Name,
		Dependencies: []functor.Capability{EventCapability},
		Body:         CountSignal,
	})
	r.RegisterFunction(functor.Spec{
		Origin: Origin, Function: "estimate_cross_section", Capability: XsecCapability,
		NestedIn:     LoopCapability.Name,
		Dependencies: []functor.Capability{EventCapability},
		Body:         EstimateCrossSection,
	})
	r.RegisterFunction(functor.Spec{
		Origin: Origin, Function: "lnL_signal", Capability: LikelihoodCapability,
		Dependencies: []functor.Capability{EfficiencyCapability},
		Body:         Likelihood,
	})
	r.RegisterFunction(functor.Spec{
		Origin: Origin, Function: "signal_efficiency", Capability: ObservableCapability,
		Dependencies: []functor.Capability{EfficiencyCapability},
		Body: func(p *functor.Pipe) (any, error) {
			eff, err := functor.DepAs[aggregate.Partial](p, EfficiencyCapability.Name)
			return eff.V, err
		},
	})
	r.RegisterFunction(functor.Spec{
		Origin: Origin, Function: "cross_section", Capability: XsecObservable,
		Dependencies: []functor.Capability{XsecCapability},
		Body: func(p *functor.Pipe) (any, error) {
			xsec, err := functor.DepAs[aggregate.Partial](p, XsecCapability.Name)
			return xsec.V, err
		},
	})
}
