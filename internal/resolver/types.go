package resolver

import (
	"strings"

	"github.com/specialistvlad/capscan/internal/functor"
	"github.com/zclconf/go-cty/cty"
)

// Purposes of requested results.
const (
	PurposeLikelihood = "likelihood"
	PurposeObservable = "observable"
)

// Request is a capability whose value the scan must produce at every point.
type Request struct {
	Capability string
	Type       string
	Function   string
	Module     string
	Purpose    string
	Label      string
}

// DisplayLabel returns the label used for the request's output records.
func (r Request) DisplayLabel() string {
	if r.Label != "" {
		return r.Label
	}
	return r.Capability
}

// Rule pins providers and sets functor options. A rule applies to a
// requirement when its Capability matches (or is empty) and, if Dependent
// is set, when the requiring functor matches Dependent. Function and Module
// then restrict the candidates. Options are applied to every functor
// matching Capability, Type, Function and Module.
type Rule struct {
	Capability string
	Type       string
	Function   string
	Module     string
	Dependent  string
	Options    map[string]cty.Value
}

func (r Rule) pins() bool {
	return r.Function != "" || r.Module != "" || r.Type != ""
}

// selects reports whether f satisfies the rule's pin fields.
func (r Rule) selects(f *functor.Functor) bool {
	if r.Capability != "" && r.Capability != f.Capability().Name {
		return false
	}
	if r.Type != "" && r.Type != f.Capability().Type {
		return false
	}
	if r.Module != "" && r.Module != f.ID().Origin {
		return false
	}
	return r.Function == "" || matchesFunction(f, r.Function)
}

// matchesFunction compares a pattern against a functor: patterns with a dot
// are full IDs, others are bare function names.
func matchesFunction(f *functor.Functor, pattern string) bool {
	if strings.Contains(pattern, ".") {
		return f.ID().String() == pattern
	}
	return f.ID().Function == pattern
}

// BackendRule restricts which library versions may satisfy backend
// requirements. Without a Capability it applies to every requirement that
// has a candidate from Library.
type BackendRule struct {
	Capability string
	Library    string
	Versions   []string
}

// Rules is the configured input to resolution.
type Rules struct {
	Models   []string
	Rules    []Rule
	Backends []BackendRule
}

// Output links a request to the functor that answers it.
type Output struct {
	Label   string
	Purpose string
	Functor *functor.Functor
}
