// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package functor

// Status is the lifecycle state of a functor value slot.
type Status int32

const (
	StatusUnresolved Status = iota
	StatusResolved
	StatusComputed
	StatusInvalidated
)

func (s Status) String() string {
	switch s {
	case StatusUnresolved:
		return "unresolved"
	case StatusResolved:
		return "resolved"
	case StatusComputed:
		return "computed"
	case StatusInvalidated:
		return "invalidated"
	default:
		return "unknown"
	}
}

// Kind tells module functions and backend functions apart.
type Kind int

const (
	KindModule Kind = iota
	KindBackend
)

func (k Kind) String() string {
	if k == KindBackend {
		return "backend"
	}
	return "module"
}
