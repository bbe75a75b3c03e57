package functor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/specialistvlad/capscan/internal/ctxlog"
	"github.com/specialistvlad/capscan/internal/invalidation"
	"github.com/specialistvlad/capscan/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testContext() context.Context {
	return ctxlog.WithLogger(context.Background(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func constant(v any) Body {
	return func(p *Pipe) (any, error) { return v, nil }
}

func double(c string) Capability { return Capability{Name: c, Type: "double"} }

func TestCalculate(t *testing.T) {
	ctx := testContext()

	t.Run("computes at most once until reset", func(t *testing.T) {
		calls := 0
		f := NewFunctor(Spec{Origin: "m", Function: "a", Capability: double("A"), Body: func(p *Pipe) (any, error) {
			calls++
			return 1.5, nil
		}}, 0)
		require.NoError(t, f.MarkResolved())

		require.NoError(t, f.Calculate(ctx, Frame{}))
		require.NoError(t, f.Calculate(ctx, Frame{}))
		assert.Equal(t, 1, calls)
		assert.Equal(t, StatusComputed, f.Status())

		v, ok := f.Value()
		assert.True(t, ok)
		assert.Equal(t, 1.5, v)

		f.Reset()
		assert.Equal(t, StatusResolved, f.Status())
		require.NoError(t, f.Calculate(ctx, Frame{}))
		assert.Equal(t, 2, calls)
	})

	t.Run("unresolved functor cannot compute", func(t *testing.T) {
		f := NewFunctor(Spec{Origin: "m", Function: "b", Capability: double("B"), Dependencies: []Capability{double("A")}, Body: constant(1.0)}, 0)
		err := f.MarkResolved()
		var re *ResolutionError
		require.ErrorAs(t, err, &re)
		assert.Equal(t, "A", re.Capability.Name)

		err = f.Calculate(ctx, Frame{})
		assert.ErrorAs(t, err, &re)
		assert.Equal(t, StatusUnresolved, f.Status())
	})

	t.Run("reads dependencies through the pipe", func(t *testing.T) {
		a := NewFunctor(Spec{Origin: "m", Function: "a", Capability: double("A"), Body: constant(2.0)}, 0)
		b := NewFunctor(Spec{Origin: "m", Function: "b", Capability: double("B"), Dependencies: []Capability{double("A")}, Body: func(p *Pipe) (any, error) {
			v, err := DepAs[float64](p, "A")
			return v * 10, err
		}}, 1)
		require.NoError(t, a.MarkResolved())
		require.NoError(t, b.ResolveDependency(double("A"), a))
		require.NoError(t, b.MarkResolved())

		require.NoError(t, a.Calculate(ctx, Frame{}))
		require.NoError(t, b.Calculate(ctx, Frame{}))
		v, _ := b.Value()
		assert.Equal(t, 20.0, v)
	})

	t.Run("dependency type assertion failure is a computation error", func(t *testing.T) {
		a := NewFunctor(Spec{Origin: "m", Function: "a", Capability: double("A"), Body: constant("not a number")}, 0)
		b := NewFunctor(Spec{Origin: "m", Function: "b", Capability: double("B"), Dependencies: []Capability{double("A")}, Body: func(p *Pipe) (any, error) {
			return DepAs[float64](p, "A")
		}}, 1)
		require.NoError(t, a.MarkResolved())
		require.NoError(t, b.ResolveDependency(double("A"), a))
		require.NoError(t, b.MarkResolved())
		require.NoError(t, a.Calculate(ctx, Frame{}))

		err := b.Calculate(ctx, Frame{})
		var ce *ComputationError
		require.ErrorAs(t, err, &ce)
		assert.Equal(t, "m.b", ce.Functor)
		assert.ErrorContains(t, err, "has type string")
	})

	t.Run("pending invalidation short-circuits", func(t *testing.T) {
		calls := 0
		f := NewFunctor(Spec{Origin: "m", Function: "a", Capability: double("A"), Body: func(p *Pipe) (any, error) {
			calls++
			return 1.0, nil
		}}, 0)
		require.NoError(t, f.MarkResolved())

		signals := invalidation.NewChannel()
		signals.InvalidPoint("m.other", "unphysical")

		err := f.Calculate(ctx, Frame{Signals: signals})
		assert.True(t, invalidation.IsInvalid(err))
		assert.Zero(t, calls)
		assert.Equal(t, StatusInvalidated, f.Status())
	})

	t.Run("invalid point returned by body is raised on the channel", func(t *testing.T) {
		f := NewFunctor(Spec{Origin: "m", Function: "a", Capability: double("A"), Body: func(p *Pipe) (any, error) {
			return nil, p.Invalidate("tachyonic state")
		}}, 0)
		require.NoError(t, f.MarkResolved())

		signals := invalidation.NewChannel()
		err := f.Calculate(ctx, Frame{Signals: signals})
		assert.True(t, invalidation.IsInvalid(err))

		sig, ok := signals.Pending()
		require.True(t, ok)
		assert.Equal(t, "m.a", sig.Origin)
		assert.Equal(t, "tachyonic state", sig.Reason)
		assert.Equal(t, StatusInvalidated, f.Status())
	})

	t.Run("plain errors become computation errors", func(t *testing.T) {
		cause := errors.New("division by zero")
		f := NewFunctor(Spec{Origin: "m", Function: "a", Capability: double("A"), Body: func(p *Pipe) (any, error) {
			return nil, cause
		}}, 0)
		require.NoError(t, f.MarkResolved())

		err := f.Calculate(ctx, Frame{Signals: invalidation.NewChannel()})
		assert.ErrorIs(t, err, cause)
		assert.False(t, invalidation.IsInvalid(err))
	})
}

func TestBackendCalls(t *testing.T) {
	ctx := testContext()
	lookup := Capability{Name: "lookup", Type: "double(double)"}

	newPair := func(fn Callable) (*Functor, *Functor) {
		b := NewBackend(BackendSpec{Library: "ToyLib", Version: "1.0", Function: "lookup", Capability: lookup, Fn: fn}, 0)
		user := NewFunctor(Spec{
			Origin: "m", Function: "c", Capability: double("C"),
			BackendRequirements: []BackendRequirement{{Capability: lookup}},
			Body: func(p *Pipe) (any, error) {
				return CallAs[float64](p, "lookup", 2.0)
			},
		}, 1)
		require.NoError(t, b.MarkResolved())
		require.NoError(t, user.ResolveBackendRequirement(BackendRequirement{Capability: lookup}, b))
		require.NoError(t, user.MarkResolved())
		require.NoError(t, b.Calculate(ctx, Frame{}))
		return b, user
	}

	t.Run("successful call", func(t *testing.T) {
		_, user := newPair(func(ctx context.Context, args ...any) (any, error) {
			return args[0].(float64) * 3, nil
		})
		require.NoError(t, user.Calculate(ctx, Frame{}))
		v, _ := user.Value()
		assert.Equal(t, 6.0, v)
	})

	t.Run("backend failure is fatal and names the backend", func(t *testing.T) {
		_, user := newPair(func(ctx context.Context, args ...any) (any, error) {
			return nil, errors.New("segfault in library")
		})
		err := user.Calculate(ctx, Frame{})
		var fatal *invalidation.FatalError
		require.ErrorAs(t, err, &fatal)
		assert.Equal(t, "ToyLib@1.0", fatal.Backend)
		assert.Equal(t, "m.c", fatal.Functor)
	})

	t.Run("backend invalidation stays recoverable", func(t *testing.T) {
		_, user := newPair(func(ctx context.Context, args ...any) (any, error) {
			return nil, invalidation.Invalid("outside tabulated range")
		})
		signals := invalidation.NewChannel()
		err := user.Calculate(ctx, Frame{Signals: signals})
		assert.True(t, invalidation.IsInvalid(err))
		assert.True(t, signals.IsPending())
	})
}

func TestResolveDependencyTypeMismatch(t *testing.T) {
	a := NewFunctor(Spec{Origin: "m", Function: "a", Capability: Capability{Name: "A", Type: "int"}}, 0)
	b := NewFunctor(Spec{Origin: "m", Function: "b", Capability: double("B")}, 1)

	err := b.ResolveDependency(double("A"), a)
	var re *ResolutionError
	require.ErrorAs(t, err, &re)
	assert.Contains(t, re.Reason, "type mismatch")
	assert.Equal(t, "m.b", re.Dependent)

	backend := NewBackend(BackendSpec{Library: "L", Version: "1", Function: "f", Capability: Capability{Name: "R", Type: "int"}}, 2)
	err = b.ResolveBackendRequirement(BackendRequirement{Capability: double("R")}, backend)
	require.ErrorAs(t, err, &re)
	assert.True(t, re.Backend)

	err = b.ResolveDependency(Capability{Name: "R"}, backend)
	assert.ErrorContains(t, err, "is a backend function")
}

func TestNotifyOfModel(t *testing.T) {
	reg := models.New()
	require.NoError(t, reg.Add(models.Model{Name: "Base"}))
	require.NoError(t, reg.Add(models.Model{Name: "Child", Parent: "Base", ToParent: func(p models.Parameters) (models.Parameters, error) { return p, nil }}))

	always := NewFunctor(Spec{Origin: "m", Function: "any", Capability: double("X")}, 0)
	forBase := NewFunctor(Spec{Origin: "m", Function: "base", Capability: double("X"), AllowedModels: []string{"Base"}}, 1)
	exact := NewFunctor(Spec{Origin: "m", Function: "exact", Capability: double("X"), AllowedModels: []string{"Base"}, ExactModels: true}, 2)

	for _, f := range []*Functor{always, forBase, exact} {
		f.ClearResolution()
		f.NotifyOfModel(reg, "Child")
	}
	assert.True(t, always.IsActive())
	assert.True(t, forBase.IsActive(), "ancestry activates functors allowed for a parent model")
	assert.False(t, exact.IsActive())

	exact.NotifyOfModel(reg, "Base")
	assert.True(t, exact.IsActive())

	forBase.ClearResolution()
	assert.False(t, forBase.IsActive())
}

func TestSlots(t *testing.T) {
	ctx := testContext()
	f := NewFunctor(Spec{Origin: "m", Function: "n", Capability: double("N"), NestedIn: "loop", Body: func(p *Pipe) (any, error) {
		s := p.Scratch()
		count, _ := s["count"].(int)
		s["count"] = count + 1
		return float64(p.Worker()), nil
	}}, 0)
	require.NoError(t, f.MarkResolved())
	f.EnsureSlots(3)

	for round := 0; round < 2; round++ {
		for w := 0; w < 3; w++ {
			f.ResetSlot(w)
			require.NoError(t, f.Calculate(ctx, Frame{Worker: w}))
		}
	}
	assert.Equal(t, StatusComputed, f.SlotStatus(2))
	assert.Equal(t, 2, f.slots[1].scratch["count"], "scratch survives slot resets")

	f.Reset()
	assert.Nil(t, f.slots[1].scratch)
	assert.Error(t, f.Calculate(ctx, Frame{Worker: 5}))
}
