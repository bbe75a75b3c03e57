package resolver

import (
	"fmt"
	"slices"
	"strings"

	"github.com/specialistvlad/capscan/internal/dag"
	"github.com/specialistvlad/capscan/internal/functor"
)

func ids(fs []*functor.Functor) []string {
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = f.ID().String()
	}
	return out
}

func filter(fs []*functor.Functor, keep func(*functor.Functor) bool) []*functor.Functor {
	var out []*functor.Functor
	for _, f := range fs {
		if keep(f) {
			out = append(out, f)
		}
	}
	return out
}

func dependentID(f *functor.Functor) string {
	if f == nil {
		return ""
	}
	return f.ID().String()
}

// selectProvider picks the single module functor that satisfies req for
// dependent (nil for top-level requests). pin carries request-level
// Function and Module restrictions.
func (b *builder) selectProvider(req functor.Capability, dependent *functor.Functor, pin *Request) (*functor.Functor, error) {
	fail := func(reason string, cands []*functor.Functor) error {
		return &functor.ResolutionError{Capability: req, Dependent: dependentID(dependent), Reason: reason, Candidates: ids(cands)}
	}

	all := b.reg.ProvidersOf(req.Name)
	if len(all) == 0 {
		return nil, fail("no functor provides this capability", nil)
	}

	typed := filter(all, func(f *functor.Functor) bool { return req.Accepts(f.Capability()) })
	if len(typed) == 0 {
		types := make([]string, 0, len(all))
		for _, f := range all {
			types = append(types, f.Capability().Type)
		}
		return nil, fail(fmt.Sprintf("type mismatch: available types are %s", strings.Join(types, ", ")), all)
	}

	candidates := filter(typed, func(f *functor.Functor) bool { return f.IsActive() && f != dependent })
	if len(candidates) == 0 && dependent != nil && dependent.IsActive() && slices.Contains(typed, dependent) {
		id := dependent.ID().String()
		return nil, &dag.GraphError{
			Kind:  dag.ErrCycleFound,
			Msg:   fmt.Sprintf("%s depends on its own capability %s", id, req.Name),
			Cycle: []string{id, id},
		}
	}
	if len(candidates) == 0 {
		return nil, fail(fmt.Sprintf("no provider is active for models %v", b.models), typed)
	}

	if pin != nil {
		candidates = filter(candidates, func(f *functor.Functor) bool {
			return (pin.Module == "" || f.ID().Origin == pin.Module) && (pin.Function == "" || matchesFunction(f, pin.Function))
		})
		if len(candidates) == 0 {
			return nil, fail(fmt.Sprintf("no active provider matches function %q module %q", pin.Function, pin.Module), typed)
		}
	}

	for _, rule := range b.rules.Rules {
		if !rule.pins() {
			continue
		}
		if rule.Dependent != "" && (dependent == nil || !matchesFunction(dependent, rule.Dependent)) {
			continue
		}
		if rule.Capability != "" && rule.Capability != req.Name {
			continue
		}
		matched := filter(candidates, rule.selects)
		switch {
		case len(matched) > 0:
			candidates = matched
		case rule.Capability != "":
			return nil, fail("no active provider satisfies the configured rules", candidates)
		}
	}

	if len(candidates) > 1 {
		return nil, fail("ambiguous: more than one active provider", candidates)
	}
	return candidates[0], nil
}

// selectManager resolves the loop manager a nested functor runs inside.
func (b *builder) selectManager(f *functor.Functor) (*functor.Functor, error) {
	req := functor.Capability{Name: f.NestedIn()}
	all := filter(b.reg.ProvidersOf(req.Name), (*functor.Functor).IsManager)
	candidates := filter(all, (*functor.Functor).IsActive)
	switch len(candidates) {
	case 0:
		return nil, &functor.ResolutionError{Capability: req, Dependent: f.ID().String(), Reason: "no active loop manager", Candidates: ids(all)}
	case 1:
		return candidates[0], nil
	}
	for _, rule := range b.rules.Rules {
		if rule.Capability == req.Name && rule.pins() {
			if matched := filter(candidates, rule.selects); len(matched) > 0 {
				candidates = matched
			}
		}
	}
	if len(candidates) > 1 {
		return nil, &functor.ResolutionError{Capability: req, Dependent: f.ID().String(), Reason: "ambiguous: more than one active loop manager", Candidates: ids(candidates)}
	}
	return candidates[0], nil
}

// selectBackend picks the single backend functor satisfying req for f.
func (b *builder) selectBackend(req functor.BackendRequirement, f *functor.Functor) (*functor.Functor, error) {
	fail := func(reason string, cands []*functor.Functor) error {
		return &functor.ResolutionError{Capability: req.Capability, Dependent: f.ID().String(), Backend: true, Reason: reason, Candidates: ids(cands)}
	}

	all := b.reg.BackendsFor(req.Name)
	if len(all) == 0 {
		return nil, fail("no backend function provides this capability", nil)
	}
	typed := filter(all, func(c *functor.Functor) bool { return req.Accepts(c.Capability()) })
	if len(typed) == 0 {
		return nil, fail("type mismatch", all)
	}

	candidates := filter(typed, func(c *functor.Functor) bool {
		return !c.IsMissing() && c.IsActive()
	})
	if len(candidates) == 0 {
		return nil, fail("no backend function is available", typed)
	}

	candidates = filter(candidates, func(c *functor.Functor) bool { return req.Permits(c.Library(), c.Version()) })
	if len(candidates) == 0 {
		return nil, fail("no available version is permitted by the functor", typed)
	}

	for _, rule := range b.rules.Backends {
		pin := functor.LibraryPin{Library: rule.Library, Versions: rule.Versions}
		if rule.Capability != "" {
			if rule.Capability != req.Name {
				continue
			}
			candidates = filter(candidates, func(c *functor.Functor) bool { return pin.Allows(c.Library(), c.Version()) })
			continue
		}
		candidates = filter(candidates, func(c *functor.Functor) bool {
			return c.Library() != rule.Library || pin.Allows(c.Library(), c.Version())
		})
	}

	switch len(candidates) {
	case 0:
		return nil, fail("no backend function satisfies the configured backend rules", typed)
	case 1:
		return candidates[0], nil
	}
	return nil, fail("ambiguous: more than one backend function", candidates)
}

// activeModelDependency reports whether md applies under the active models.
func (b *builder) activeModelDependency(md functor.ModelDependency) bool {
	return slices.ContainsFunc(b.models, func(m string) bool {
		return b.reg.Models().DescendsFrom(m, md.Models...)
	})
}
