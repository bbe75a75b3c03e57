// Package unitid defines the canonical identifier of a registered unit.
//
// Module functions are addressed as `origin.function` (e.g. `toybit.scaled_rate`).
// Backend functions carry the library version in the origin segment:
// `library@version.function` (e.g. `ToyLib@1.0.lookup`). Because versions
// may contain dots, the function name is always the last dot-separated
// segment.
package unitid
