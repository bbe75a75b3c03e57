package testutil

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/specialistvlad/capscan/internal/functor"
	"github.com/specialistvlad/capscan/internal/registry"
)

// Double is a capability of type "double".
func Double(name string) functor.Capability {
	return functor.Capability{Name: name, Type: "double"}
}

// LookupCapability is the backend capability used by ChainModule.
var LookupCapability = functor.Capability{Name: "R", Type: "double(double)"}

// ChainModule registers the three-step chain A -> B -> C where C also needs
// backend R, offered by library L in versions 1.0 and 2.0.
type ChainModule struct {
	Calls atomic.Int64
}

// Register implements registry.Module.
func (m *ChainModule) Register(r *registry.Registry) {
	r.RegisterFunction(functor.Spec{
		Origin: "chain", Function: "a", Capability: Double("A"),
		Body: func(p *functor.Pipe) (any, error) {
			m.Calls.Add(1)
			return 1.0, nil
		},
	})
	r.RegisterFunction(functor.Spec{
		Origin: "chain", Function: "b", Capability: Double("B"),
		Dependencies: []functor.Capability{Double("A")},
		Body: func(p *functor.Pipe) (any, error) {
			m.Calls.Add(1)
			a, err := functor.DepAs[float64](p, "A")
			return a + 1, err
		},
	})
	r.RegisterFunction(functor.Spec{
		Origin: "chain", Function: "c", Capability: Double("C"),
		Dependencies:        []functor.Capability{Double("B")},
		BackendRequirements: []functor.BackendRequirement{{Capability: LookupCapability}},
		Body: func(p *functor.Pipe) (any, error) {
			m.Calls.Add(1)
			b, err := functor.DepAs[float64](p, "B")
			if err != nil {
				return nil, err
			}
			return functor.CallAs[float64](p, "R", b)
		},
	})
	for i, version := range []string{"1.0", "2.0"} {
		scale := float64(i + 1)
		r.RegisterBackend(functor.BackendSpec{
			Library: "L", Version: version, Function: "r", Capability: LookupCapability,
			Fn: func(ctx context.Context, args ...any) (any, error) {
				x, ok := args[0].(float64)
				if !ok {
					return nil, fmt.Errorf("expected float64 argument, got %T", args[0])
				}
				return x * scale, nil
			},
		})
	}
}
