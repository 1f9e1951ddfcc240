// Package conv provides checked integer conversion and arithmetic helpers.
//
// Every helper reports overflow explicitly instead of wrapping. The arena uses
// them on all size, offset and alignment computations so that a request near
// the top of the integer range fails cleanly rather than producing a small
// wrapped value.
//
// For conversions that are provably safe by domain constraints (e.g., loop
// indices, bounded counters), use direct type casts instead to avoid overhead.
package conv
