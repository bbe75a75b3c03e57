// internal/unitid/id.go
package unitid

import "strings"

// String serializes the ID into its canonical string representation.
func (id ID) String() string {
	var sb strings.Builder
	sb.WriteString(id.Origin)
	if id.Version != "" {
		sb.WriteRune('@')
		sb.WriteString(id.Version)
	}
	sb.WriteRune('.')
	sb.WriteString(id.Function)
	return sb.String()
}

// OriginString returns the origin including its version, e.g. `ToyLib@1.0`.
func (id ID) OriginString() string {
	if id.Version == "" {
		return id.Origin
	}
	return id.Origin + "@" + id.Version
}

// Matches reports whether the identifier satisfies a partial pin. Empty
// fields of the pin act as wildcards.
func (id ID) Matches(pin ID) bool {
	if pin.Origin != "" && pin.Origin != id.Origin {
		return false
	}
	if pin.Version != "" && pin.Version != id.Version {
		return false
	}
	if pin.Function != "" && pin.Function != id.Function {
		return false
	}
	return true
}
