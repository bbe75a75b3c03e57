package registry

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/specialistvlad/capscan/internal/ctxlog"
	"github.com/specialistvlad/capscan/internal/functor"
	"github.com/specialistvlad/capscan/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testContext() context.Context {
	return ctxlog.WithLogger(context.Background(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func noop(p *functor.Pipe) (any, error) { return nil, nil }

func double(name string) functor.Capability { return functor.Capability{Name: name, Type: "double"} }

func TestRegisterFunction(t *testing.T) {
	r := New()
	a := r.RegisterFunction(functor.Spec{Origin: "toy", Function: "a", Capability: double("A"), Body: noop})
	b := r.RegisterFunction(functor.Spec{Origin: "toy", Function: "b", Capability: double("B"), Body: noop})
	lib := r.RegisterBackend(functor.BackendSpec{Library: "Lib", Version: "1.0", Function: "f", Capability: double("R"), Fn: func(ctx context.Context, args ...any) (any, error) { return nil, nil }})

	assert.Equal(t, 0, a.Rank())
	assert.Equal(t, 1, b.Rank())
	assert.Equal(t, 2, lib.Rank())

	assert.True(t, r.Provides("A"))
	assert.False(t, r.Provides("R"), "backend capabilities are not module capabilities")
	assert.Equal(t, []*functor.Functor{lib}, r.BackendsFor("R"))

	found, ok := r.Lookup("Lib@1.0.f")
	require.True(t, ok)
	assert.Same(t, lib, found)

	t.Run("duplicate registration panics", func(t *testing.T) {
		assert.PanicsWithValue(t, "functor with id 'toy.a' already registered", func() {
			r.RegisterFunction(functor.Spec{Origin: "toy", Function: "a", Capability: double("A2"), Body: noop})
		})
	})

	t.Run("invalid names panic", func(t *testing.T) {
		assert.Panics(t, func() {
			r.RegisterFunction(functor.Spec{Origin: "toy", Function: "bad-name", Capability: double("X"), Body: noop})
		})
		assert.Panics(t, func() {
			r.RegisterBackend(functor.BackendSpec{Library: "Lib", Function: "g", Capability: double("R")})
		})
	})
}

func TestRegisterModel(t *testing.T) {
	r := New()
	r.RegisterModel(models.Model{Name: "Base", Parameters: []string{"x"}})
	r.RegisterModel(models.Model{
		Name:       "Child",
		Parent:     "Base",
		Parameters: []string{"y"},
		ToParent: func(c models.Parameters) (models.Parameters, error) {
			return models.Parameters{"x": 2 * c["y"]}, nil
		},
	})

	providers := r.ProvidersOf("Base_parameters")
	require.Len(t, providers, 2)
	assert.Equal(t, "models.Base_primary_parameters", providers[0].ID().String())
	assert.Equal(t, "models.Child_to_Base", providers[1].ID().String())
	assert.Equal(t, []functor.Capability{ParametersCapability("Child")}, providers[1].Dependencies())

	for _, f := range r.Functors() {
		f.ClearResolution()
		f.NotifyOfModel(r.Models(), "Child")
	}
	assert.False(t, providers[0].IsActive(), "parent primary parameters are exact-model only")
	assert.True(t, providers[1].IsActive())

	require.NoError(t, r.Validate(testContext()))
}

func TestValidate(t *testing.T) {
	r := New()
	r.RegisterFunction(functor.Spec{Origin: "toy", Function: "nobody", Capability: double("A")})
	r.RegisterFunction(functor.Spec{Origin: "toy", Function: "orphan", Capability: double("N"), NestedIn: "Loop", Body: noop})
	r.RegisterFunction(functor.Spec{Origin: "toy", Function: "ghost", Capability: double("G"), AllowedModels: []string{"Ghost"}, Body: noop})
	r.RegisterFunction(functor.Spec{
		Origin: "toy", Function: "cond", Capability: double("C"), Body: noop,
		BackendDependencies: []functor.BackendDependency{{Capability: double("D"), Requirement: "R"}},
	})
	r.RegisterBackend(functor.BackendSpec{Library: "Lib", Version: "1", Function: "f", Capability: double("R")})
	r.RegisterBackend(functor.BackendSpec{Library: "Lib", Version: "2", Function: "f", Capability: double("R"), Missing: true})

	err := r.Validate(testContext())
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "registry validation failed")
	assert.Contains(t, msg, "functor 'toy.nobody': no body registered")
	assert.Contains(t, msg, "no loop manager provides capability 'Loop'")
	assert.Contains(t, msg, "unknown model 'Ghost'")
	assert.Contains(t, msg, "undeclared backend requirement 'R'")
	assert.Contains(t, msg, "backend function 'Lib@1.f'")
	assert.NotContains(t, msg, "Lib@2.f")
}

func TestWriteTable(t *testing.T) {
	r := New()
	r.RegisterFunction(functor.Spec{Origin: "toy", Function: "loop", Capability: double("Loop"), Manager: true, Body: noop})
	r.RegisterFunction(functor.Spec{Origin: "toy", Function: "inner", Capability: double("Inner"), NestedIn: "Loop", Body: noop})
	r.RegisterBackend(functor.BackendSpec{Library: "Lib", Version: "1.0", Function: "f", Capability: double("R"), Missing: true})

	var buf bytes.Buffer
	require.NoError(t, r.WriteTable(&buf))
	out := buf.String()
	assert.Contains(t, out, "FUNCTION")
	assert.Contains(t, out, "toy.loop")
	assert.Contains(t, out, "manager")
	assert.Contains(t, out, "in Loop")
	assert.Contains(t, out, "missing")

	rows := r.Table()
	require.Len(t, rows, 3)
	assert.Equal(t, "backend", rows[2].Kind)
}
