// Package aggregate combines statistical partial results produced by
// concurrent loop workers.
//
// A Partial is a (count, value, error) triple. Partials are combined with
// inverse-variance weighting, which makes the fold commutative and
// associative, so the coordinator may reduce worker partials in any order at
// the join point of a batch. Accumulator keeps one partial per worker; a
// worker writes its own slot without locking once the slot exists.
package aggregate
