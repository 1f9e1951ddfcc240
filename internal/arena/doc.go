// Package arena implements a lock-free bump allocator over one large,
// pre-faulted memory region.
//
// # Lifecycle
//
// An Arena is constructed empty and becomes usable exactly once, either by
// Create (map a fresh anonymous or named shared region) or by Attach (map a
// shared region created by another process). Close releases the mapping and,
// for the creator of a shared region, removes its name.
//
// # Concurrency Model
//
// Allocate never takes a lock. The allocation cursor is advanced with a
// compare-and-swap loop that first rounds the current cursor up to the
// requested alignment; a request that does not fit leaves the cursor
// untouched. The peak statistic is maintained by a second, independent CAS
// loop and may briefly lag the cursor.
//
// Create and Attach are serialized by a mutex. The region state (base,
// capacity, alignment) is published through a single atomic pointer after it
// is complete, so a goroutine that observes an initialized arena always sees
// final capacity and alignment values.
//
// # Cross-Process Layout
//
// The mapping holds the data region [0, capacity) followed by a HeaderSize
// header carrying the cursor, peak and counters. Every process attached to a
// shared region allocates through the same atomic words.
//
// # Memory Reclamation
//
// There is none. Deallocate is a no-op and space is never reused for the
// lifetime of the arena. Reset rewinds the cursor but is only safe when every
// outstanding allocation is known to be dead.
package arena
