// Package scanpoint defines the parameter point a scan evaluates and the
// sources that produce a sequence of them.
//
// Sampling strategies proper live outside this repository; the sources here
// (random, grid and fixed list) exist so that the engine can be driven from
// the command line and from tests.
package scanpoint
