// Package toylib registers the ToyLib backend library. Version 1.0 returns
// its argument unchanged, version 2.0 doubles it. Version 3.0 is registered
// as missing so that it shows up in diagnostics but can never be selected.
package toylib

import (
	"context"
	"fmt"

	"github.com/specialistvlad/capscan/internal/functor"
	"github.com/specialistvlad/capscan/internal/registry"
)

// Library is the backend library name.
const Library = "ToyLib"

// ScaleCapability is the capability of the scale function.
var ScaleCapability = functor.Capability{Name: "scale", Type: "double(double)"}

// Module implements the registry.Module interface for this package.
type Module struct{}

func scaler(factor float64) functor.Callable {
	return func(ctx context.Context, args ...any) (any, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("scale takes one argument, got %d", len(args))
		}
		x, ok := args[0].(float64)
		if !ok {
			return nil, fmt.Errorf("scale expects a float64, got %T", args[0])
		}
		return x * factor, nil
	}
}

// Register registers every version of the library.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterBackend(functor.BackendSpec{Library: Library, Version: "1.0", Function: "scale", Capability: ScaleCapability, Fn: scaler(1)})
	r.RegisterBackend(functor.BackendSpec{Library: Library, Version: "2.0", Function: "scale", Capability: ScaleCapability, Fn: scaler(2)})
	r.RegisterBackend(functor.BackendSpec{Library: Library, Version: "3.0", Function: "scale", Capability: ScaleCapability, Missing: true})
}
