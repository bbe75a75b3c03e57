// Package loop drives the functors nested in a loop manager through the
// per-point phase protocol.
//
// For every point a Manager runs BaseInit once, then for each configured
// subsystem SubsystemInit and StartSubprocess, batches of ordinary
// iterations on a fixed worker pool (each batch followed by
// StatisticCollection and ConvergenceCheck on the coordinator),
// EndSubprocess and SubsystemFinalize, and finally BaseFinalize.
//
// Worker i uses value slot i+1 of every nested functor; slot 0 belongs to
// the coordinator phases. Iterations stop early when a nested functor asks
// for a wrap-up, when the point is invalidated, or when the number of
// failed iterations exceeds the configured cap.
package loop
