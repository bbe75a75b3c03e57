// internal/unitid/parser.go
package unitid

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	// nameRegex validates origin and function names.
	nameRegex = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)
	// versionRegex validates library versions such as `1.0` or `2.1.3-beta`.
	versionRegex = regexp.MustCompile(`^[a-zA-Z0-9_.+-]+$`)
)

// Parse creates an ID by parsing its canonical string representation.
func Parse(raw string) (ID, error) {
	if raw == "" {
		return ID{}, fmt.Errorf("identifier cannot be empty")
	}

	dot := strings.LastIndex(raw, ".")
	if dot <= 0 || dot == len(raw)-1 {
		return ID{}, fmt.Errorf("identifier %q must have the form origin.function", raw)
	}

	origin, function := raw[:dot], raw[dot+1:]
	version := ""
	if at := strings.Index(origin, "@"); at >= 0 {
		origin, version = origin[:at], origin[at+1:]
		if !versionRegex.MatchString(version) {
			return ID{}, fmt.Errorf("invalid version %q in identifier %q", version, raw)
		}
	}

	if !nameRegex.MatchString(origin) {
		return ID{}, fmt.Errorf("invalid origin name %q in identifier %q", origin, raw)
	}
	if !nameRegex.MatchString(function) {
		return ID{}, fmt.Errorf("invalid function name %q in identifier %q", function, raw)
	}

	return ID{Origin: origin, Version: version, Function: function}, nil
}

// MustParse is like Parse but panics on error. Intended for static identifiers.
func MustParse(raw string) ID {
	id, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return id
}

// ValidName reports whether s is usable as an origin or function name.
func ValidName(s string) bool {
	return nameRegex.MatchString(s)
}
