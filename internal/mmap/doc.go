// Package mmap provides aligned, pre-faulted memory mappings for arena regions.
//
// # Overview
//
// A Mapping is a single contiguous read/write region obtained from the OS,
// either anonymous (private to the process) or backed by a file descriptor
// (shared between every process that maps the same object). The base address
// is aligned to Options.Align so that offsets inside the region keep their
// alignment as absolute addresses.
//
// # Usage
//
//	m, err := mmap.MapAnon(64<<20, mmap.Options{
//	    Align:     mmap.HugePageSize,
//	    HugePages: true,
//	    Populate:  true,
//	})
//	if err != nil { ... }
//	defer m.Close()
//
//	data := m.Bytes()
//	_ = m.Advise(mmap.AccessDontFork)
//
// # Huge Pages
//
// When Options.HugePages is set the mapping is first attempted with
// MAP_HUGETLB. Hosts without a huge page pool reject that request; the
// mapping is then retried once with standard pages. HugePages() reports which
// variant was obtained.
//
// # Platform Support
//
//   - Linux: mmap(2) with MAP_POPULATE, MAP_HUGETLB, madvise(2) and mincore(2)
//   - Other Unix: mmap(2) without populate, huge page or residency support
//   - Windows: VirtualAlloc for anonymous mappings; file-backed mappings are not supported
//
// # Thread Safety
//
// Mapping and Region are safe for concurrent read access. The Close() method
// is idempotent and protected by atomic operations. However, callers must
// ensure no goroutines access Bytes() after Close() returns.
package mmap
