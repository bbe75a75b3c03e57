// Package toybit registers the demo physics functions of the Toy model: a
// veto of unphysical points, a Gaussian likelihood, a squared observable and
// the chain A -> B -> C, where C calls the ToyLib scale backend.
package toybit

import (
	"math"

	"github.com/specialistvlad/capscan/internal/functor"
	"github.com/specialistvlad/capscan/internal/models"
	"github.com/specialistvlad/capscan/internal/registry"
	"github.com/specialistvlad/capscan/modules/toylib"
	"github.com/specialistvlad/capscan/modules/toymodels"
	"github.com/zclconf/go-cty/cty"
)

// Origin is the module name functions are registered under.
const Origin = "toybit"

// Option keys read by the veto.
const (
	OptionLimit     = "limit"
	OptionWarnAbove = "warn_above"
)

var (
	vetoCap = functor.Capability{Name: "Veto", Type: "bool"}
	params  = registry.ParametersCapability(toymodels.Toy)
)

func double(name string) functor.Capability {
	return functor.Capability{Name: name, Type: "double"}
}

// Module implements the registry.Module interface for this package.
type Module struct{}

func x(p *functor.Pipe) (float64, error) {
	ps, err := functor.DepAs[models.Parameters](p, params.Name)
	if err != nil {
		return 0, err
	}
	return ps["x"], nil
}

// Veto invalidates points with |x| above the limit option and warns when
// |x| exceeds warn_above.
func Veto(p *functor.Pipe) (any, error) {
	v, err := x(p)
	if err != nil {
		return nil, err
	}
	limit, err := p.Options().Float(OptionLimit, 5)
	if err != nil {
		return nil, err
	}
	warnAbove, err := p.Options().Float(OptionWarnAbove, 4)
	if err != nil {
		return nil, err
	}
	if math.Abs(v) > limit {
		return nil, p.Invalidate("x outside physical region")
	}
	if math.Abs(v) > warnAbove {
		p.Warn("x close to the physical limit")
	}
	return true, nil
}

// Register registers the module's functions.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterFunction(functor.Spec{
		Origin: Origin, Function: "veto", Capability: vetoCap,
		Dependencies:  []functor.Capability{params},
		AllowedModels: []string{toymodels.Toy},
		Options: map[string]cty.Value{
			OptionLimit:     cty.NumberFloatVal(5),
			OptionWarnAbove: cty.NumberFloatVal(4),
		},
		Body: Veto,
	})
	r.RegisterFunction(functor.Spec{
		Origin: Origin, Function: "lnL_gauss", Capability: double("lnL_gauss"),
		Dependencies:  []functor.Capability{vetoCap, params},
		AllowedModels: []string{toymodels.Toy},
		Body: func(p *functor.Pipe) (any, error) {
			v, err := x(p)
			return -v * v / 2, err
		},
	})
	r.RegisterFunction(functor.Spec{
		Origin: Origin, Function: "x_squared", Capability: double("x_squared"),
		Dependencies:  []functor.Capability{params},
		AllowedModels: []string{toymodels.Toy},
		Body: func(p *functor.Pipe) (any, error) {
			v, err := x(p)
			return v * v, err
		},
	})

	r.RegisterFunction(functor.Spec{
		Origin: Origin, Function: "A", Capability: double("A"),
		Dependencies:  []functor.Capability{params},
		AllowedModels: []string{toymodels.Toy},
		Body: func(p *functor.Pipe) (any, error) {
			return x(p)
		},
	})
	r.RegisterFunction(functor.Spec{
		Origin: Origin, Function: "B", Capability: double("B"),
		Dependencies: []functor.Capability{double("A")},
		Body: func(p *functor.Pipe) (any, error) {
			a, err := functor.DepAs[float64](p, "A")
			return a + 1, err
		},
	})
	r.RegisterFunction(functor.Spec{
		Origin: Origin, Function: "C", Capability: double("C"),
		Dependencies:        []functor.Capability{double("B")},
		BackendRequirements: []functor.BackendRequirement{{Capability: toylib.ScaleCapability}},
		Body: func(p *functor.Pipe) (any, error) {
			b, err := functor.DepAs[float64](p, "B")
			if err != nil {
				return nil, err
			}
			return functor.CallAs[float64](p, toylib.ScaleCapability.Name, b)
		},
	})
}
