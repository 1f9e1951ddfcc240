package arena

import (
	"fmt"
	"math"
	"os"

	"github.com/hupe1980/shmarena/internal/mmap"
)

const (
	// Granularity is the unit pool sizes are rounded up to (one 2 MiB huge page).
	// Region base addresses are aligned to it as well.
	Granularity = mmap.HugePageSize

	// DefaultAlignment is the minimum allocation alignment (one cache line).
	DefaultAlignment = 64

	// HeaderSize is the size of the allocator header that follows the data region.
	HeaderSize = 4096

	// DefaultPoolSize is the pool size used by DefaultConfig (1 GiB).
	DefaultPoolSize = 1 << 30

	// DefaultNamePrefix prefixes generated shared memory names.
	DefaultNamePrefix = "/shmarena_"

	// InvalidOffset is returned by OffsetOf for addresses outside the pool.
	InvalidOffset = math.MaxUint64
)

// Backing selects the kind of memory behind an arena.
type Backing int

const (
	// BackingAnonymous is private anonymous memory, visible to this process only.
	BackingAnonymous Backing = iota
	// BackingShared is a named shared memory object that other processes can attach to.
	BackingShared
)

func (b Backing) String() string {
	switch b {
	case BackingAnonymous:
		return "anonymous"
	case BackingShared:
		return "shared"
	default:
		return fmt.Sprintf("Backing(%d)", int(b))
	}
}

// Config configures Create.
type Config struct {
	// PoolSize is the region size before rounding up to Granularity. Must be non-zero.
	PoolSize uint64

	// Name is the shared memory name. If empty, a name is generated from
	// NamePrefix, the process id and the arena id. Ignored for anonymous arenas.
	Name string

	// NamePrefix prefixes generated shared memory names. Defaults to DefaultNamePrefix.
	NamePrefix string

	// Backing selects anonymous or shared memory.
	Backing Backing

	// UseHugePages attempts a huge page mapping first and falls back to
	// standard pages when the host has none.
	UseHugePages bool

	// Alignment is the default allocation alignment. 0 selects DefaultAlignment;
	// other values must be powers of two and are raised to at least DefaultAlignment.
	Alignment uint64

	// Prefault runs an additional pass touching every page after mapping.
	Prefault bool

	// DisableArena forces callers of the buffer entry point onto the
	// per-allocation mapping path. Create ignores it.
	DisableArena bool
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		PoolSize:     DefaultPoolSize,
		NamePrefix:   DefaultNamePrefix,
		Backing:      BackingAnonymous,
		UseHugePages: true,
		Alignment:    DefaultAlignment,
	}
}

func (c Config) sharedName(id uint32) string {
	if c.Name != "" {
		return c.Name
	}
	prefix := c.NamePrefix
	if prefix == "" {
		prefix = DefaultNamePrefix
	}
	return fmt.Sprintf("%s%d_%d", prefix, os.Getpid(), id)
}
