package scanpoint

import (
	"context"
	"fmt"
	"maps"
	"slices"
)

// Point is one parameter point of a scan.
type Point struct {
	ID     int64
	RunID  string
	Params map[string]float64
}

// Param returns the value of a named parameter.
func (p Point) Param(name string) (float64, bool) {
	v, ok := p.Params[name]
	return v, ok
}

// MustParam returns the value of a named parameter or an error naming it.
func (p Point) MustParam(name string) (float64, error) {
	v, ok := p.Params[name]
	if !ok {
		return 0, fmt.Errorf("point %d has no parameter %q", p.ID, name)
	}
	return v, nil
}

// Names returns the sorted parameter names.
func (p Point) Names() []string {
	return slices.Sorted(maps.Keys(p.Params))
}

// Source yields points in order. ok is false once the source is exhausted.
type Source interface {
	Next(ctx context.Context) (pt Point, ok bool, err error)
}

// Parameter describes the range of a scanned parameter.
type Parameter struct {
	Name  string
	Min   float64
	Max   float64
	Steps int
}
