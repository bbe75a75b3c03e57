// Package phase enumerates the points of the loop protocol at which a
// loop manager invokes its nested units.
package phase

import "fmt"

// Kind identifies a protocol phase.
type Kind int

const (
	Iterate Kind = iota
	BaseInit
	SubsystemInit
	StartSubprocess
	StatisticCollection
	ConvergenceCheck
	EndSubprocess
	SubsystemFinalize
	BaseFinalize
)

var kindNames = map[Kind]string{
	Iterate:             "Iterate",
	BaseInit:            "BaseInit",
	SubsystemInit:       "SubsystemInit",
	StartSubprocess:     "StartSubprocess",
	StatisticCollection: "StatisticCollection",
	ConvergenceCheck:    "ConvergenceCheck",
	EndSubprocess:       "EndSubprocess",
	SubsystemFinalize:   "SubsystemFinalize",
	BaseFinalize:        "BaseFinalize",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Phase is a single protocol step. Index is only meaningful for Iterate.
type Phase struct {
	Kind      Kind
	Index     int64
	Subsystem string
}

// Iteration returns the ordinary iteration phase with the given index.
func Iteration(index int64, subsystem string) Phase {
	return Phase{Kind: Iterate, Index: index, Subsystem: subsystem}
}

// Of returns a non-iteration phase for the given subsystem.
func Of(kind Kind, subsystem string) Phase {
	return Phase{Kind: kind, Subsystem: subsystem}
}

// IsIteration reports whether p is an ordinary iteration.
func (p Phase) IsIteration() bool {
	return p.Kind == Iterate
}

// IsCleanup reports whether p is a wrap-up phase. Cleanup phases run even
// after the point has been invalidated.
func (p Phase) IsCleanup() bool {
	switch p.Kind {
	case EndSubprocess, SubsystemFinalize, BaseFinalize:
		return true
	}
	return false
}

// Sentinel maps the phase onto the integer convention used in diagnostics:
// iterations are their non-negative index, special phases are -1 to -8.
func (p Phase) Sentinel() int64 {
	if p.Kind == Iterate {
		return p.Index
	}
	return -int64(p.Kind)
}

func (p Phase) String() string {
	if p.Kind == Iterate {
		return fmt.Sprintf("Iterate(%d)", p.Index)
	}
	return p.Kind.String()
}
