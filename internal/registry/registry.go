package registry

import (
	"github.com/specialistvlad/capscan/internal/functor"
	"github.com/specialistvlad/capscan/internal/models"
)

// Module is the interface that all modules must implement to be registered.
type Module interface {
	Register(r *Registry)
}

// Registry holds all registered functors, backends and models for a single
// application instance.
type Registry struct {
	functors []*functor.Functor
	backends []*functor.Functor
	byID     map[string]*functor.Functor
	models   *models.Registry
	rank     int
}

// New creates and initializes a new Registry instance.
func New() *Registry {
	return &Registry{
		byID:   make(map[string]*functor.Functor),
		models: models.New(),
	}
}

// Models returns the model hierarchy.
func (r *Registry) Models() *models.Registry {
	return r.models
}

// Functors returns module functors in registration order.
func (r *Registry) Functors() []*functor.Functor {
	return r.functors
}

// Backends returns backend functors in registration order.
func (r *Registry) Backends() []*functor.Functor {
	return r.backends
}

// Lookup returns the functor with the given canonical ID.
func (r *Registry) Lookup(id string) (*functor.Functor, bool) {
	f, ok := r.byID[id]
	return f, ok
}

// Provides reports whether any module functor provides capability.
func (r *Registry) Provides(capability string) bool {
	for _, f := range r.functors {
		if f.Capability().Name == capability {
			return true
		}
	}
	return false
}

// ProvidersOf returns the module functors advertising capability, in
// registration order.
func (r *Registry) ProvidersOf(capability string) []*functor.Functor {
	var out []*functor.Functor
	for _, f := range r.functors {
		if f.Capability().Name == capability {
			out = append(out, f)
		}
	}
	return out
}

// BackendsFor returns the backend functors advertising capability, in
// registration order.
func (r *Registry) BackendsFor(capability string) []*functor.Functor {
	var out []*functor.Functor
	for _, b := range r.backends {
		if b.Capability().Name == capability {
			out = append(out, b)
		}
	}
	return out
}
