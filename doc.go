// Package shmarena provides a concurrent arena allocator over one large,
// pre-faulted memory region that can be shared between processes.
//
// An arena reserves its whole pool up front (anonymous memory, or a named
// POSIX shared memory object) and hands out aligned blocks with a lock-free
// bump cursor. Blocks are identified by their offset from the region base,
// which is valid in every process that maps the region, so a peer can
// translate an advertised offset to a local address in O(1).
//
// # Quick Start
//
// Process-local arena:
//
//	a, _ := shmarena.Create(shmarena.Config{PoolSize: 256 << 20})
//	defer a.Close()
//	alloc, _ := a.Allocate(4096, 0) // 64-byte aligned by default
//	copy(alloc.Bytes(), payload)
//
// Shared between processes:
//
//	// creator
//	a, _ := shmarena.Create(shmarena.Config{PoolSize: 1 << 30, Backing: shmarena.BackingShared, Name: "/jobs"})
//	alloc, _ := a.Allocate(uint64(len(msg)), 0)
//	publish(a.Name(), a.Capacity(), alloc.Offset)
//
//	// peer
//	b, _ := shmarena.Attach("/jobs", capacity)
//	buf, _ := b.View(offset, size)
//
// # Alignment
//
// Pool sizes are rounded up to 2 MiB and region bases are 2 MiB aligned.
// Every allocation is aligned to at least 64 bytes; per-call overrides up to
// 2 MiB yield addresses that are absolutely aligned in every process.
//
// # Memory Reclamation
//
// Arenas never reuse space. Deallocate is a no-op and memory returns to the
// OS only when the arena is closed. Reset rewinds the cursor for callers that
// can prove every outstanding block is dead.
//
// # Configuration
//
// ConfigFromEnv applies SHMARENA_* environment overrides to a Config.
// BufferAllocator additionally honors SHMARENA_DISABLE, read once at first
// use, to route every buffer through its own mapping instead of the arena.
package shmarena
