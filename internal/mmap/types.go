package mmap

import "errors"

// HugePageSize is the huge page granularity used for region sizing (2 MiB).
const HugePageSize = 2 << 20

// AccessPattern provides hints to the kernel about how the data will be accessed.
type AccessPattern int

const (
	// AccessDefault is the default access pattern (no specific advice).
	AccessDefault AccessPattern = iota
	// AccessSequential expects data to be accessed sequentially.
	AccessSequential
	// AccessRandom expects data to be accessed randomly.
	AccessRandom
	// AccessWillNeed expects data to be accessed in the near future.
	AccessWillNeed
	// AccessDontFork excludes the mapping from child processes created by fork(2).
	AccessDontFork
)

// Options controls how a region is mapped.
type Options struct {
	// Align is the required alignment of the base address. It must be a power
	// of two. Values below the OS page size are raised to the page size.
	Align int

	// HugePages requests MAP_HUGETLB, falling back to standard pages.
	HugePages bool

	// Populate asks the kernel to pre-fault every page during the map call.
	Populate bool
}

var (
	// ErrClosed is returned when attempting to access a closed mapping.
	ErrClosed = errors.New("mmap: mapping is closed")
	// ErrInvalidSize is returned when the requested size is not positive.
	ErrInvalidSize = errors.New("mmap: invalid size")
	// ErrInvalidAlignment is returned when Options.Align is not a power of two.
	ErrInvalidAlignment = errors.New("mmap: alignment must be a power of two")
	// ErrOutOfBounds is returned when attempting to access a region outside the mapping.
	ErrOutOfBounds = errors.New("mmap: out of bounds")
	// ErrNotSupported is returned for operations the platform cannot perform.
	ErrNotSupported = errors.New("mmap: not supported on this platform")
)
