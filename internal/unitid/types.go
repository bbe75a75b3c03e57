// internal/unitid/types.go
package unitid

// ID is the structured representation of a unit identifier.
type ID struct {
	Origin   string // module or backend library name
	Version  string // empty for module functions
	Function string
}

// New creates an ID for a module function.
func New(origin, function string) ID {
	return ID{Origin: origin, Function: function}
}

// NewVersioned creates an ID for a backend function of a given library version.
func NewVersioned(library, version, function string) ID {
	return ID{Origin: library, Version: version, Function: function}
}

// IsVersioned returns true if the identifier names a backend library version.
func (id ID) IsVersioned() bool {
	return id.Version != ""
}

// IsZero reports whether the identifier is unset.
func (id ID) IsZero() bool {
	return id == ID{}
}
