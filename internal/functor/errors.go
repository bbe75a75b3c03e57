package functor

import (
	"fmt"
	"strings"
)

// ResolutionError reports a requirement that could not be bound to exactly
// one provider.
type ResolutionError struct {
	Capability Capability
	Dependent  string // empty for top-level requests
	Backend    bool
	Reason     string
	Candidates []string
}

func (e *ResolutionError) Error() string {
	var sb strings.Builder
	if e.Backend {
		sb.WriteString("cannot resolve backend requirement ")
	} else {
		sb.WriteString("cannot resolve capability ")
	}
	sb.WriteString(e.Capability.String())
	if e.Dependent != "" {
		sb.WriteString(" needed by ")
		sb.WriteString(e.Dependent)
	}
	sb.WriteString(": ")
	sb.WriteString(e.Reason)
	if len(e.Candidates) > 0 {
		sb.WriteString(" (candidates: ")
		sb.WriteString(strings.Join(e.Candidates, ", "))
		sb.WriteString(")")
	}
	return sb.String()
}

// ComputationError wraps an unexpected error returned by a functor body.
type ComputationError struct {
	Functor string
	Err     error
}

func (e *ComputationError) Error() string {
	return fmt.Sprintf("functor %s failed: %v", e.Functor, e.Err)
}

func (e *ComputationError) Unwrap() error {
	return e.Err
}
