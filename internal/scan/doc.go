// Package scan evaluates the resolved functor graph point by point.
//
// For every point the Controller clears the invalidation channel, resets
// the cached results of the previous point, calculates the evaluation order
// and hands one record per requested result to the sink. A point
// invalidated by any functor stops the remaining calculations; its
// likelihood results take the configured floor value and the scan moves on.
// Fatal errors abort the scan, as does a streak of consecutive invalid
// points longer than the configured limit.
package scan
