package registry

import (
	"fmt"
	"log/slog"

	"github.com/specialistvlad/capscan/internal/functor"
	"github.com/specialistvlad/capscan/internal/models"
	"github.com/specialistvlad/capscan/internal/unitid"
)

// ParametersType is the capability type of model parameter functors.
const ParametersType = "ModelParameters"

// ModelsOrigin is the origin of functors generated for registered models.
const ModelsOrigin = "models"

// ParametersCapability returns the capability under which the parameters
// of model are published.
func ParametersCapability(model string) functor.Capability {
	return functor.Capability{Name: model + "_parameters", Type: ParametersType}
}

// RegisterFunction registers a module function and returns its functor.
func (r *Registry) RegisterFunction(spec functor.Spec) *functor.Functor {
	if !unitid.ValidName(spec.Origin) || !unitid.ValidName(spec.Function) {
		panic(fmt.Sprintf("invalid functor name '%s.%s'", spec.Origin, spec.Function))
	}
	if spec.Capability.Name == "" {
		panic(fmt.Sprintf("functor '%s.%s' must declare a capability", spec.Origin, spec.Function))
	}
	f := functor.NewFunctor(spec, r.rank)
	r.add(f)
	r.functors = append(r.functors, f)
	slog.Debug("Registering functor.", "id", f.ID().String(), "capability", f.Capability().String())
	return f
}

// RegisterBackend registers a backend function and returns its functor.
func (r *Registry) RegisterBackend(spec functor.BackendSpec) *functor.Functor {
	if !unitid.ValidName(spec.Library) || !unitid.ValidName(spec.Function) || spec.Version == "" {
		panic(fmt.Sprintf("invalid backend function name '%s@%s.%s'", spec.Library, spec.Version, spec.Function))
	}
	b := functor.NewBackend(spec, r.rank)
	r.add(b)
	r.backends = append(r.backends, b)
	slog.Debug("Registering backend function.", "id", b.ID().String(), "capability", b.Capability().String(), "missing", spec.Missing)
	return b
}

func (r *Registry) add(f *functor.Functor) {
	key := f.ID().String()
	if _, exists := r.byID[key]; exists {
		panic(fmt.Sprintf("functor with id '%s' already registered", key))
	}
	r.byID[key] = f
	r.rank++
}

// RegisterModel adds a model to the hierarchy together with the functor
// publishing its parameters and, for child models, the functor that
// reinterprets them as parameters of the parent.
func (r *Registry) RegisterModel(m models.Model) {
	if err := r.models.Add(m); err != nil {
		panic(err)
	}

	names := append([]string(nil), m.Parameters...)
	r.RegisterFunction(functor.Spec{
		Origin:        ModelsOrigin,
		Function:      m.Name + "_primary_parameters",
		Capability:    ParametersCapability(m.Name),
		AllowedModels: []string{m.Name},
		ExactModels:   true,
		Body: func(p *functor.Pipe) (any, error) {
			params := make(models.Parameters, len(names))
			for _, name := range names {
				v, err := p.Point().MustParam(name)
				if err != nil {
					return nil, err
				}
				params[name] = v
			}
			return params, nil
		},
	})

	if m.Parent == "" {
		return
	}
	translate := m.ToParent
	r.RegisterFunction(functor.Spec{
		Origin:        ModelsOrigin,
		Function:      m.Name + "_to_" + m.Parent,
		Capability:    ParametersCapability(m.Parent),
		Dependencies:  []functor.Capability{ParametersCapability(m.Name)},
		AllowedModels: []string{m.Name},
		Body: func(p *functor.Pipe) (any, error) {
			child, err := functor.DepAs[models.Parameters](p, ParametersCapability(m.Name).Name)
			if err != nil {
				return nil, err
			}
			if translate == nil {
				return nil, fmt.Errorf("model %q has no translation to %q", m.Name, m.Parent)
			}
			return translate(child)
		},
	})
}
