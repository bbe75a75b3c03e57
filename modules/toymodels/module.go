// Package toymodels registers the demo model hierarchy: a one-parameter
// model Toy and its child ToyScaled, whose parameter q maps onto Toy's x.
package toymodels

import (
	"github.com/specialistvlad/capscan/internal/models"
	"github.com/specialistvlad/capscan/internal/registry"
)

// Model names.
const (
	Toy       = "Toy"
	ToyScaled = "ToyScaled"
)

// Scale converts ToyScaled's q into Toy's x.
const Scale = 2.0

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers both models with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterModel(models.Model{Name: Toy, Parameters: []string{"x"}})
	r.RegisterModel(models.Model{
		Name:       ToyScaled,
		Parent:     Toy,
		Parameters: []string{"q"},
		ToParent: func(child models.Parameters) (models.Parameters, error) {
			return models.Parameters{"x": child["q"] * Scale}, nil
		},
	})
}
