// Package invalidation carries the signals a unit can raise against the
// parameter point being evaluated, along with the runtime error taxonomy.
//
// An invalid-point signal abandons the rest of the point; a warning is only
// recorded. The Channel holds at most one pending invalid-point signal and is
// cleared by the point controller before every point.
package invalidation
