package scanpoint

import (
	"context"
	"math/rand/v2"
)

// Random draws n points uniformly inside the parameter box.
type Random struct {
	runID  string
	params []Parameter
	n      int64
	next   int64
	rng    *rand.Rand
}

// NewRandom creates a seeded uniform sampler.
func NewRandom(runID string, params []Parameter, n int, seed uint64) *Random {
	return &Random{
		runID:  runID,
		params: params,
		n:      int64(n),
		rng:    rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

func (r *Random) Next(ctx context.Context) (Point, bool, error) {
	if err := ctx.Err(); err != nil {
		return Point{}, false, err
	}
	if r.next >= r.n {
		return Point{}, false, nil
	}
	values := make(map[string]float64, len(r.params))
	for _, p := range r.params {
		values[p.Name] = p.Min + r.rng.Float64()*(p.Max-p.Min)
	}
	pt := Point{ID: r.next, RunID: r.runID, Params: values}
	r.next++
	return pt, true, nil
}

// Grid walks the cartesian product of evenly spaced parameter values, with
// the last parameter varying fastest.
type Grid struct {
	runID  string
	params []Parameter
	idx    []int
	next   int64
	done   bool
}

// NewGrid creates a grid source. A parameter with Steps <= 1 is held at Min.
func NewGrid(runID string, params []Parameter) *Grid {
	return &Grid{runID: runID, params: params, idx: make([]int, len(params))}
}

func (g *Grid) Next(ctx context.Context) (Point, bool, error) {
	if err := ctx.Err(); err != nil {
		return Point{}, false, err
	}
	if g.done {
		return Point{}, false, nil
	}

	values := make(map[string]float64, len(g.params))
	for i, p := range g.params {
		values[p.Name] = gridValue(p, g.idx[i])
	}
	pt := Point{ID: g.next, RunID: g.runID, Params: values}
	g.next++

	g.done = true
	for i := len(g.params) - 1; i >= 0; i-- {
		if g.idx[i]+1 < max(g.params[i].Steps, 1) {
			g.idx[i]++
			g.done = false
			break
		}
		g.idx[i] = 0
	}
	return pt, true, nil
}

func gridValue(p Parameter, i int) float64 {
	if p.Steps <= 1 {
		return p.Min
	}
	return p.Min + float64(i)*(p.Max-p.Min)/float64(p.Steps-1)
}

// List replays a fixed set of parameter maps.
type List struct {
	runID string
	items []map[string]float64
	next  int64
}

// NewList creates a source over explicit parameter maps.
func NewList(runID string, items ...map[string]float64) *List {
	return &List{runID: runID, items: items}
}

func (l *List) Next(ctx context.Context) (Point, bool, error) {
	if err := ctx.Err(); err != nil {
		return Point{}, false, err
	}
	if l.next >= int64(len(l.items)) {
		return Point{}, false, nil
	}
	pt := Point{ID: l.next, RunID: l.runID, Params: l.items[l.next]}
	l.next++
	return pt, true, nil
}
