package aggregate

import (
	"maps"
	"slices"
	"sync"
)

// Accumulator holds one Partial per worker. The lock guards only slot
// creation and folding; a worker mutates its own partial directly. Gather
// and Reduce must only be called once the workers writing the other slots
// have been joined.
type Accumulator struct {
	mu    sync.Mutex
	parts map[int]*Partial
}

// NewAccumulator creates an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{parts: make(map[int]*Partial)}
}

// Slot returns the partial owned by worker, registering it on first use.
func (a *Accumulator) Slot(worker int) *Partial {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.slot(worker)
}

func (a *Accumulator) slot(worker int) *Partial {
	p, ok := a.parts[worker]
	if !ok {
		p = &Partial{}
		a.parts[worker] = p
	}
	return p
}

// Workers returns the registered worker IDs in ascending order.
func (a *Accumulator) Workers() []int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.Sorted(maps.Keys(a.parts))
}

// Gather returns self's partial with every other worker's partial folded
// in. The slots themselves are never written, so any number of workers may
// gather any number of times without a sample being counted twice.
func (a *Accumulator) Gather(self int) Partial {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := *a.slot(self)
	for _, id := range slices.Sorted(maps.Keys(a.parts)) {
		if id == self {
			continue
		}
		out.Combine(*a.parts[id])
	}
	return out
}

// Reduce folds all worker partials, in worker order, without modifying them.
func (a *Accumulator) Reduce() Partial {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out Partial
	for _, id := range slices.Sorted(maps.Keys(a.parts)) {
		out.Combine(*a.parts[id])
	}
	return out
}

// GatherCounts returns the total number of samples across all workers,
// including partials that carry no estimate.
func (a *Accumulator) GatherCounts() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	var n int64
	for _, p := range a.parts {
		n += p.N
	}
	return n
}

// Reset drops every slot.
func (a *Accumulator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	clear(a.parts)
}
