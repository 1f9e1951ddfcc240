// Package resource implements the Controller for process-wide limits.
//
// The Controller governs three resources shared by every arena and transport
// in a process:
//
//   - Memory: total bytes of mapped arena regions (non-blocking, fail-fast)
//   - Workers: concurrent transfer batches
//   - IO: bytes per second copied by transfers (token bucket)
//
// # Memory Management
//
// Region provisioning acquires the full mapping length before any syscall is
// made and releases it on teardown:
//
//	rc := resource.NewController(resource.Config{
//	    MemoryLimitBytes: 64 << 30,
//	})
//
//	if err := rc.AcquireMemory(size); err != nil {
//	    // ErrMemoryLimitExceeded - the region is not mapped
//	}
//	defer rc.ReleaseMemory(size)
//
// # Nil Safety
//
// All methods handle nil Controller gracefully - they become no-ops.
// This allows optional resource limiting without nil checks everywhere.
package resource
