package invalidation

import (
	"sync"
	"sync/atomic"
)

// Kind distinguishes the two signal kinds.
type Kind int

const (
	KindInvalidPoint Kind = iota
	KindWarning
)

func (k Kind) String() string {
	if k == KindWarning {
		return "warning"
	}
	return "invalid_point"
}

// Signal is a raised invalidation or warning.
type Signal struct {
	Kind   Kind
	Origin string
	Reason string
}

// Err converts an invalid-point signal into its error form.
func (s Signal) Err() error {
	return &InvalidPointError{Origin: s.Origin, Reason: s.Reason}
}

// Channel is the per-run signal slot. It is safe for use by concurrent
// loop workers: the first invalid-point signal raised for a point wins.
type Channel struct {
	pending atomic.Pointer[Signal]

	mu         sync.Mutex
	warnings   []Signal
	lastReason string
}

// NewChannel creates an empty channel.
func NewChannel() *Channel {
	return &Channel{}
}

// InvalidPoint raises invalid_point for the current point. It returns false
// if another signal was already pending.
func (c *Channel) InvalidPoint(origin, reason string) bool {
	s := &Signal{Kind: KindInvalidPoint, Origin: origin, Reason: reason}
	if !c.pending.CompareAndSwap(nil, s) {
		return false
	}
	c.mu.Lock()
	c.lastReason = reason
	c.mu.Unlock()
	return true
}

// Raise records err on the channel if it is an InvalidPointError, filling
// in origin when the error did not name one. It reports whether err was
// recognised as an invalidation.
func (c *Channel) Raise(origin string, err error) bool {
	ipe, ok := AsInvalid(err)
	if !ok {
		return false
	}
	if ipe.Origin != "" {
		origin = ipe.Origin
	}
	c.InvalidPoint(origin, ipe.Reason)
	return true
}

// Warning records a non-fatal warning. It never changes control flow.
func (c *Channel) Warning(origin, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.warnings = append(c.warnings, Signal{Kind: KindWarning, Origin: origin, Reason: reason})
}

// Pending returns the pending invalid-point signal, if any.
func (c *Channel) Pending() (Signal, bool) {
	s := c.pending.Load()
	if s == nil {
		return Signal{}, false
	}
	return *s, true
}

// IsPending reports whether the current point has been invalidated.
func (c *Channel) IsPending() bool {
	return c.pending.Load() != nil
}

// Clear resets the pending slot and returns the warnings recorded since the
// last call. The last invalidation reason survives for diagnostics.
func (c *Channel) Clear() []Signal {
	c.pending.Store(nil)
	c.mu.Lock()
	defer c.mu.Unlock()
	w := c.warnings
	c.warnings = nil
	return w
}

// LastReason returns the reason of the most recent invalid-point signal.
func (c *Channel) LastReason() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastReason
}
