package resolver

import (
	"context"
	"errors"
	"testing"

	"github.com/specialistvlad/capscan/internal/dag"
	"github.com/specialistvlad/capscan/internal/functor"
	"github.com/specialistvlad/capscan/internal/invalidation"
	"github.com/specialistvlad/capscan/internal/models"
	"github.com/specialistvlad/capscan/internal/registry"
	"github.com/specialistvlad/capscan/internal/scanpoint"
	"github.com/specialistvlad/capscan/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

var double = testutil.Double

func constant(v any) functor.Body {
	return func(p *functor.Pipe) (any, error) { return v, nil }
}

func chainRegistry() *registry.Registry {
	reg := registry.New()
	(&testutil.ChainModule{}).Register(reg)
	return reg
}

// evaluate computes the evaluation order for one point and returns the
// values of the requested outputs.
func evaluate(ctx context.Context, t *testing.T, r *Resolver, params map[string]float64) map[string]any {
	t.Helper()
	r.ResetAll()
	frame := functor.Frame{Point: scanpoint.Point{ID: 1, Params: params}, Signals: invalidation.NewChannel()}
	for _, f := range r.EvaluationOrder() {
		require.NoError(t, r.Calculate(ctx, f, frame), "calculating %s", f.ID())
	}
	out := make(map[string]any)
	for _, o := range r.Outputs() {
		v, ok := o.Functor.Value()
		require.True(t, ok, "output %s was not computed", o.Label)
		out[o.Label] = v
	}
	return out
}

func orderIDs(fs []*functor.Functor) []string {
	return ids(fs)
}

func TestResolveChainWithBackendPin(t *testing.T) {
	ctx, _ := testutil.Context(t)
	requests := []Request{{Capability: "C", Type: "double", Purpose: PurposeObservable}}

	t.Run("version 1.0", func(t *testing.T) {
		r := New(chainRegistry(), requests, Rules{Backends: []BackendRule{{Library: "L", Versions: []string{"1.0"}}}})
		require.NoError(t, r.ResolveNow(ctx))

		assert.Equal(t, []string{"chain.a", "chain.b", "L@1.0.r", "chain.c"}, orderIDs(r.EvaluationOrder()))
		assert.Equal(t, map[string]any{"C": 2.0}, evaluate(ctx, t, r, nil))
	})

	t.Run("re-pinning changes only the backend", func(t *testing.T) {
		r := New(chainRegistry(), requests, Rules{Backends: []BackendRule{{Capability: "R", Library: "L", Versions: []string{"2.0"}}}})
		require.NoError(t, r.ResolveNow(ctx))

		assert.Equal(t, []string{"chain.a", "chain.b", "L@2.0.r", "chain.c"}, orderIDs(r.EvaluationOrder()))
		assert.Equal(t, map[string]any{"C": 4.0}, evaluate(ctx, t, r, nil))
	})

	t.Run("unpinned versions are ambiguous", func(t *testing.T) {
		r := New(chainRegistry(), requests, Rules{})
		err := r.ResolveNow(ctx)

		var re *functor.ResolutionError
		require.ErrorAs(t, err, &re)
		assert.True(t, re.Backend)
		assert.Equal(t, "chain.c", re.Dependent)
		assert.ElementsMatch(t, []string{"L@1.0.r", "L@2.0.r"}, re.Candidates)
		assert.Nil(t, r.EvaluationOrder())
	})

	t.Run("pin outside the available versions", func(t *testing.T) {
		r := New(chainRegistry(), requests, Rules{Backends: []BackendRule{{Library: "L", Versions: []string{"3.0"}}}})
		var re *functor.ResolutionError
		require.ErrorAs(t, r.ResolveNow(ctx), &re)
		assert.Contains(t, re.Reason, "backend rules")
	})
}

func TestResolveErrors(t *testing.T) {
	ctx, _ := testutil.Context(t)

	testCases := []struct {
		name     string
		setup    func(reg *registry.Registry)
		request  Request
		rules    Rules
		contains string
	}{
		{
			name:     "no provider",
			setup:    func(reg *registry.Registry) {},
			request:  Request{Capability: "missing"},
			contains: "no functor provides this capability",
		},
		{
			name: "type mismatch",
			setup: func(reg *registry.Registry) {
				reg.RegisterFunction(functor.Spec{Origin: "m", Function: "a", Capability: double("A"), Body: constant(1.0)})
			},
			request:  Request{Capability: "A", Type: "int"},
			contains: "type mismatch",
		},
		{
			name: "ambiguous providers",
			setup: func(reg *registry.Registry) {
				reg.RegisterFunction(functor.Spec{Origin: "m", Function: "a", Capability: double("A"), Body: constant(1.0)})
				reg.RegisterFunction(functor.Spec{Origin: "n", Function: "a", Capability: double("A"), Body: constant(2.0)})
			},
			request:  Request{Capability: "A"},
			contains: "ambiguous",
		},
		{
			name: "rule without a matching provider",
			setup: func(reg *registry.Registry) {
				reg.RegisterFunction(functor.Spec{Origin: "m", Function: "a", Capability: double("A"), Body: constant(1.0)})
			},
			request:  Request{Capability: "A"},
			rules:    Rules{Rules: []Rule{{Capability: "A", Module: "other"}}},
			contains: "configured rules",
		},
		{
			name: "missing dependency",
			setup: func(reg *registry.Registry) {
				reg.RegisterFunction(functor.Spec{Origin: "m", Function: "b", Capability: double("B"), Dependencies: []functor.Capability{double("A")}, Body: constant(1.0)})
			},
			request:  Request{Capability: "B"},
			contains: "needed by m.b",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			reg := registry.New()
			tc.setup(reg)
			r := New(reg, []Request{tc.request}, tc.rules)

			err := r.ResolveNow(ctx)
			var re *functor.ResolutionError
			require.ErrorAs(t, err, &re)
			assert.Contains(t, err.Error(), tc.contains)
		})
	}
}

func TestResolveCycle(t *testing.T) {
	ctx, _ := testutil.Context(t)
	reg := registry.New()
	reg.RegisterFunction(functor.Spec{Origin: "m", Function: "x", Capability: double("X"), Dependencies: []functor.Capability{double("Y")}, Body: constant(1.0)})
	reg.RegisterFunction(functor.Spec{Origin: "m", Function: "y", Capability: double("Y"), Dependencies: []functor.Capability{double("X")}, Body: constant(1.0)})

	r := New(reg, []Request{{Capability: "X"}}, Rules{})
	err := r.ResolveNow(ctx)

	require.ErrorIs(t, err, dag.ErrCycleFound)
	var ge *dag.GraphError
	require.ErrorAs(t, err, &ge)
	assert.Len(t, ge.Cycle, 3)
	assert.Nil(t, r.EvaluationOrder())
}

func TestResolveSelfDependency(t *testing.T) {
	ctx, _ := testutil.Context(t)
	reg := registry.New()
	reg.RegisterFunction(functor.Spec{Origin: "m", Function: "x", Capability: double("X"), Dependencies: []functor.Capability{double("X")}, Body: constant(1.0)})

	t.Run("sole provider is a cycle", func(t *testing.T) {
		r := New(reg, []Request{{Capability: "X"}}, Rules{})
		err := r.ResolveNow(ctx)

		require.ErrorIs(t, err, dag.ErrCycleFound)
		var ge *dag.GraphError
		require.ErrorAs(t, err, &ge)
		assert.Equal(t, []string{"m.x", "m.x"}, ge.Cycle)
		assert.Contains(t, err.Error(), "m.x depends on its own capability X")
		assert.Nil(t, r.EvaluationOrder())
	})

	t.Run("another provider is used instead", func(t *testing.T) {
		reg.RegisterFunction(functor.Spec{Origin: "n", Function: "x", Capability: double("X"), Body: constant(2.0)})
		r := New(reg, []Request{{Capability: "X", Module: "m"}}, Rules{})
		require.NoError(t, r.ResolveNow(ctx))

		up, ok := r.Outputs()[0].Functor.Dependency("X")
		require.True(t, ok)
		assert.Equal(t, "n.x", up.ID().String())
	})
}

func TestRequestPins(t *testing.T) {
	ctx, _ := testutil.Context(t)
	reg := registry.New()
	reg.RegisterFunction(functor.Spec{Origin: "m", Function: "a", Capability: double("A"), Body: constant(1.0)})
	reg.RegisterFunction(functor.Spec{Origin: "n", Function: "a", Capability: double("A"), Body: constant(2.0)})
	reg.RegisterFunction(functor.Spec{Origin: "m", Function: "b", Capability: double("B"), Dependencies: []functor.Capability{double("A")}, Body: func(p *functor.Pipe) (any, error) {
		return functor.DepAs[float64](p, "A")
	}})

	t.Run("request module", func(t *testing.T) {
		r := New(reg, []Request{{Capability: "A", Module: "n", Label: "a_from_n"}}, Rules{})
		require.NoError(t, r.ResolveNow(ctx))
		assert.Equal(t, map[string]any{"a_from_n": 2.0}, evaluate(ctx, t, r, nil))
	})

	t.Run("rule scoped to a dependent", func(t *testing.T) {
		r := New(reg, []Request{{Capability: "B"}}, Rules{Rules: []Rule{{Capability: "A", Dependent: "m.b", Function: "n.a"}}})
		require.NoError(t, r.ResolveNow(ctx))
		assert.Equal(t, []string{"n.a", "m.b"}, orderIDs(r.EvaluationOrder()))
		assert.Equal(t, map[string]any{"B": 2.0}, evaluate(ctx, t, r, nil))
	})

	t.Run("rule scoped to another dependent does not apply", func(t *testing.T) {
		r := New(reg, []Request{{Capability: "B"}}, Rules{Rules: []Rule{{Capability: "A", Dependent: "m.other", Function: "n.a"}}})
		var re *functor.ResolutionError
		require.ErrorAs(t, r.ResolveNow(ctx), &re)
		assert.Contains(t, re.Reason, "ambiguous")
	})
}

func TestRuleOptions(t *testing.T) {
	ctx, _ := testutil.Context(t)
	reg := registry.New()
	reg.RegisterFunction(functor.Spec{
		Origin: "m", Function: "scaled", Capability: double("S"),
		Options: map[string]cty.Value{"scale": cty.NumberFloatVal(1)},
		Body: func(p *functor.Pipe) (any, error) {
			return p.Options().Float("scale", 0)
		},
	})

	r := New(reg, []Request{{Capability: "S"}}, Rules{Rules: []Rule{
		{Capability: "S", Options: map[string]cty.Value{"scale": cty.NumberFloatVal(3)}},
		{Function: "m.scaled", Options: map[string]cty.Value{"scale": cty.NumberFloatVal(5)}},
	}})
	require.NoError(t, r.ResolveNow(ctx))
	assert.Equal(t, map[string]any{"S": 5.0}, evaluate(ctx, t, r, nil))
}

func modelRegistry() *registry.Registry {
	reg := registry.New()
	reg.RegisterModel(models.Model{Name: "Base", Parameters: []string{"p"}})
	reg.RegisterModel(models.Model{
		Name: "Scaled", Parent: "Base", Parameters: []string{"q"},
		ToParent: func(child models.Parameters) (models.Parameters, error) {
			return models.Parameters{"p": child["q"] * 10}, nil
		},
	})
	reg.RegisterFunction(functor.Spec{
		Origin: "lik", Function: "base", Capability: double("Lik"),
		Dependencies:      []functor.Capability{registry.ParametersCapability("Base")},
		ModelDependencies: []functor.ModelDependency{{Capability: double("Penalty"), Models: []string{"Scaled"}}},
		AllowedModels:     []string{"Base"},
		Body: func(p *functor.Pipe) (any, error) {
			params, err := functor.DepAs[models.Parameters](p, "Base_parameters")
			if err != nil {
				return nil, err
			}
			v := params["p"]
			if p.HasDep("Penalty") {
				penalty, err := functor.DepAs[float64](p, "Penalty")
				if err != nil {
					return nil, err
				}
				v -= penalty
			}
			return v, nil
		},
	})
	reg.RegisterFunction(functor.Spec{Origin: "lik", Function: "penalty", Capability: double("Penalty"), Body: constant(0.5)})
	return reg
}

func TestSetModels(t *testing.T) {
	ctx, _ := testutil.Context(t)
	r := New(modelRegistry(), []Request{{Capability: "Lik", Purpose: PurposeLikelihood}}, Rules{Models: []string{"Base"}})

	require.NoError(t, r.ResolveNow(ctx))
	assert.Equal(t, []string{"models.Base_primary_parameters", "lik.base"}, orderIDs(r.EvaluationOrder()))
	assert.Equal(t, map[string]any{"Lik": 2.0}, evaluate(ctx, t, r, map[string]float64{"p": 2}))

	require.NoError(t, r.SetModels(ctx, "Scaled"))
	assert.Equal(t, []string{"Scaled"}, r.Models())
	assert.Equal(t,
		[]string{"models.Scaled_primary_parameters", "models.Scaled_to_Base", "lik.penalty", "lik.base"},
		orderIDs(r.EvaluationOrder()))
	assert.Equal(t, map[string]any{"Lik": 29.5}, evaluate(ctx, t, r, map[string]float64{"q": 3}))

	t.Run("cached resolution is replayed", func(t *testing.T) {
		require.NoError(t, r.SetModels(ctx, "Base"))
		assert.Equal(t, map[string]any{"Lik": 4.0}, evaluate(ctx, t, r, map[string]float64{"p": 4}))
		base, ok := r.reg.Lookup("lik.base")
		require.True(t, ok)
		_, hasPenalty := base.Dependency("Penalty")
		assert.False(t, hasPenalty)

		require.NoError(t, r.SetModels(ctx, "Scaled"))
		assert.Equal(t, map[string]any{"Lik": 9.5}, evaluate(ctx, t, r, map[string]float64{"q": 1}))
	})

	t.Run("unknown model", func(t *testing.T) {
		err := r.SetModels(ctx, "Nope")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown model")
		assert.Nil(t, r.EvaluationOrder())
	})
}

func TestBackendConditionalDependency(t *testing.T) {
	ctx, _ := testutil.Context(t)

	build := func() *registry.Registry {
		reg := chainRegistry()
		reg.RegisterFunction(functor.Spec{Origin: "fix", Function: "offset", Capability: double("Offset"), Body: constant(100.0)})
		reg.RegisterFunction(functor.Spec{
			Origin: "user", Function: "d", Capability: double("D"),
			BackendRequirements: []functor.BackendRequirement{{Capability: testutil.LookupCapability}},
			BackendDependencies: []functor.BackendDependency{{
				Capability:  double("Offset"),
				Requirement: "R",
				Pin:         functor.LibraryPin{Library: "L", Versions: []string{"2.0"}},
			}},
			Body: func(p *functor.Pipe) (any, error) {
				v, err := functor.CallAs[float64](p, "R", 1.0)
				if err != nil || !p.HasDep("Offset") {
					return v, err
				}
				off, err := functor.DepAs[float64](p, "Offset")
				return v + off, err
			},
		})
		return reg
	}

	testCases := []struct {
		version string
		want    float64
		order   []string
	}{
		{version: "1.0", want: 1, order: []string{"L@1.0.r", "user.d"}},
		{version: "2.0", want: 102, order: []string{"fix.offset", "L@2.0.r", "user.d"}},
	}
	for _, tc := range testCases {
		t.Run("L@"+tc.version, func(t *testing.T) {
			r := New(build(), []Request{{Capability: "D"}}, Rules{Backends: []BackendRule{{Library: "L", Versions: []string{tc.version}}}})
			require.NoError(t, r.ResolveNow(ctx))
			assert.Equal(t, tc.order, orderIDs(r.EvaluationOrder()))
			assert.Equal(t, map[string]any{"D": tc.want}, evaluate(ctx, t, r, nil))
		})
	}
}

func loopRegistry(selfDependent bool) *registry.Registry {
	reg := registry.New()
	reg.RegisterFunction(functor.Spec{Origin: "top", Function: "seed", Capability: double("Seed"), Body: constant(1.0)})
	reg.RegisterFunction(functor.Spec{Origin: "loop", Function: "manager", Capability: functor.Capability{Name: "Loop", Type: "void"}, Manager: true, Body: constant(nil)})
	first := functor.Spec{Origin: "loop", Function: "first", Capability: double("First"), NestedIn: "Loop", Dependencies: []functor.Capability{double("Seed")}, Body: constant(2.0)}
	if selfDependent {
		first.Dependencies = append(first.Dependencies, functor.Capability{Name: "Loop"})
	}
	reg.RegisterFunction(first)
	reg.RegisterFunction(functor.Spec{Origin: "loop", Function: "second", Capability: double("Second"), NestedIn: "Loop", Dependencies: []functor.Capability{double("First")}, Body: constant(3.0)})
	reg.RegisterFunction(functor.Spec{Origin: "top", Function: "result", Capability: double("Result"), Dependencies: []functor.Capability{double("Second")}, Body: constant(4.0)})
	return reg
}

func TestLoopScopes(t *testing.T) {
	ctx, _ := testutil.Context(t)

	t.Run("nested functors are ordered inside their manager", func(t *testing.T) {
		r := New(loopRegistry(false), []Request{{Capability: "Result"}}, Rules{})
		require.NoError(t, r.ResolveNow(ctx))

		assert.Equal(t, []string{"top.seed", "loop.manager", "top.result"}, orderIDs(r.EvaluationOrder()))
		manager, ok := r.reg.Lookup("loop.manager")
		require.True(t, ok)
		assert.Equal(t, []string{"loop.first", "loop.second"}, orderIDs(manager.Nested()))
		assert.Len(t, r.Selected(), 5)
	})

	t.Run("functor depending on its own manager", func(t *testing.T) {
		r := New(loopRegistry(true), []Request{{Capability: "Result"}}, Rules{})
		err := r.ResolveNow(ctx)

		var re *functor.ResolutionError
		require.ErrorAs(t, err, &re)
		assert.Equal(t, "loop.first", re.Dependent)
		assert.Contains(t, re.Reason, "own loop manager")
	})

	t.Run("no manager", func(t *testing.T) {
		reg := registry.New()
		reg.RegisterFunction(functor.Spec{Origin: "loop", Function: "orphan", Capability: double("Orphan"), NestedIn: "Loop", Body: constant(1.0)})
		err := New(reg, []Request{{Capability: "Orphan"}}, Rules{}).ResolveNow(ctx)
		require.True(t, errors.As(err, new(*functor.ResolutionError)))
		assert.Contains(t, err.Error(), "no active loop manager")
	})
}

func TestCalculateOutsideResolution(t *testing.T) {
	ctx, _ := testutil.Context(t)
	reg := chainRegistry()
	r := New(reg, []Request{{Capability: "A"}}, Rules{})
	require.NoError(t, r.ResolveNow(ctx))

	c, ok := reg.Lookup("chain.c")
	require.True(t, ok)
	err := r.Calculate(ctx, c, functor.Frame{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not part of the active resolution")
}
