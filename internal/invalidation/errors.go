package invalidation

import (
	"errors"
	"fmt"
)

// ErrPointInvalid is matched by every InvalidPointError and returned by
// units that short-circuit because the point was already invalidated.
var ErrPointInvalid = errors.New("point invalidated")

// ErrInvalidStreak is returned when too many consecutive points were
// invalidated for the run to be meaningful.
var ErrInvalidStreak = errors.New("too many consecutive invalid points")

// InvalidPointError is the recoverable failure of a single parameter point.
type InvalidPointError struct {
	Origin string
	Reason string
}

func (e *InvalidPointError) Error() string {
	if e.Origin == "" {
		return fmt.Sprintf("invalid point: %s", e.Reason)
	}
	return fmt.Sprintf("invalid point raised by %s: %s", e.Origin, e.Reason)
}

func (e *InvalidPointError) Is(target error) bool {
	return target == ErrPointInvalid
}

// Invalid builds an InvalidPointError. Units return it to raise invalid_point.
func Invalid(reason string) error {
	return &InvalidPointError{Reason: reason}
}

// Invalidf is Invalid with formatting.
func Invalidf(format string, args ...any) error {
	return &InvalidPointError{Reason: fmt.Sprintf(format, args...)}
}

// FatalError is a systemic failure that aborts the whole run, such as a
// backend call that failed for reasons unrelated to the point.
type FatalError struct {
	Functor string
	Backend string
	Err     error
}

func (e *FatalError) Error() string {
	if e.Backend != "" {
		return fmt.Sprintf("fatal error in %s (backend %s): %v", e.Functor, e.Backend, e.Err)
	}
	return fmt.Sprintf("fatal error in %s: %v", e.Functor, e.Err)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// IsInvalid reports whether err is a recoverable point invalidation.
func IsInvalid(err error) bool {
	return errors.Is(err, ErrPointInvalid)
}

// AsInvalid extracts the InvalidPointError from err, if any.
func AsInvalid(err error) (*InvalidPointError, bool) {
	var ipe *InvalidPointError
	if errors.As(err, &ipe) {
		return ipe, true
	}
	return nil, false
}
