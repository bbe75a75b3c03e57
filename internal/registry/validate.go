package registry

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/specialistvlad/capscan/internal/ctxlog"
	"github.com/specialistvlad/capscan/internal/functor"
)

// Validate checks the registry for wiring mistakes: unknown models, loop
// bindings without a manager, conditional dependencies on undeclared backend
// requirements and functors without an implementation.
func (r *Registry) Validate(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	var errs []string

	if err := r.models.Validate(); err != nil {
		errs = append(errs, strings.Split(err.Error(), "\n")...)
	}

	for _, f := range r.functors {
		id := f.ID().String()
		errs = append(errs, r.checkModels(id, f.AllowedModels())...)
		for _, md := range f.ModelDependencies() {
			errs = append(errs, r.checkModels(id, md.Models)...)
		}

		if f.NestedIn() != "" {
			if f.IsManager() {
				errs = append(errs, fmt.Sprintf("functor '%s': loop managers cannot themselves be nested", id))
			}
			if !slices.ContainsFunc(r.ProvidersOf(f.NestedIn()), (*functor.Functor).IsManager) {
				errs = append(errs, fmt.Sprintf("functor '%s': no loop manager provides capability '%s'", id, f.NestedIn()))
			}
		}

		for _, bd := range f.BackendDependencies() {
			declared := slices.ContainsFunc(f.BackendRequirements(), func(req functor.BackendRequirement) bool {
				return req.Name == bd.Requirement
			})
			if !declared {
				errs = append(errs, fmt.Sprintf("functor '%s': conditional dependency '%s' refers to undeclared backend requirement '%s'", id, bd.Name, bd.Requirement))
			}
		}
	}

	for _, b := range r.backends {
		errs = append(errs, r.checkModels(b.ID().String(), b.AllowedModels())...)
	}

	errs = append(errs, r.checkImplementations()...)

	if len(errs) > 0 {
		return fmt.Errorf("registry validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	logger.Debug("Registry validation passed.", "functors", len(r.functors), "backends", len(r.backends), "models", len(r.models.Names()))
	return nil
}

func (r *Registry) checkModels(id string, names []string) []string {
	var errs []string
	for _, name := range names {
		if _, ok := r.models.Get(name); !ok {
			errs = append(errs, fmt.Sprintf("functor '%s': unknown model '%s'", id, name))
		}
	}
	return errs
}

func (r *Registry) checkImplementations() []string {
	var errs []string
	for _, f := range r.functors {
		if !f.HasImplementation() {
			errs = append(errs, fmt.Sprintf("functor '%s': no body registered", f.ID()))
		}
	}
	for _, b := range r.backends {
		if !b.IsMissing() && !b.HasImplementation() {
			errs = append(errs, fmt.Sprintf("backend function '%s': no callable registered and not marked missing", b.ID()))
		}
	}
	return errs
}
