package shmarena

import (
	"github.com/hupe1980/shmarena/internal/arena"
)

type (
	// Arena is a concurrent bump allocator over one mapped region.
	Arena = arena.Arena
	// Allocation is a block handed out by Arena.Allocate.
	Allocation = arena.Allocation
	// Stats is a snapshot of an arena's allocator counters.
	Stats = arena.Stats
	// Config configures Arena.Create.
	Config = arena.Config
	// Backing selects anonymous or shared memory.
	Backing = arena.Backing
	// Registry maps names to shared arenas.
	Registry = arena.Registry
)

const (
	BackingAnonymous = arena.BackingAnonymous
	BackingShared    = arena.BackingShared
)

const (
	// Granularity is the unit pool sizes are rounded up to (2 MiB).
	Granularity = arena.Granularity
	// DefaultAlignment is the minimum allocation alignment (64 bytes).
	DefaultAlignment = arena.DefaultAlignment
	// DefaultPoolSize is the pool size of DefaultConfig.
	DefaultPoolSize = arena.DefaultPoolSize
	// DefaultNamePrefix prefixes generated shared memory names.
	DefaultNamePrefix = arena.DefaultNamePrefix
	// InvalidOffset is returned by Arena.OffsetOf for foreign addresses.
	InvalidOffset = arena.InvalidOffset
)

// DefaultConfig returns the default configuration.
func DefaultConfig() Config { return arena.DefaultConfig() }

// New returns an uninitialized arena. Call Create or Attach before use.
func New(optFns ...Option) *Arena {
	return arena.New(applyOptions(optFns).arenaOptions()...)
}

// Create returns a new arena with a freshly mapped region.
func Create(cfg Config, optFns ...Option) (*Arena, error) {
	a := New(optFns...)
	if err := a.Create(cfg); err != nil {
		return nil, err
	}
	return a, nil
}

// Attach returns a new arena mapped onto the shared region name created by
// another process. size is the creator's Capacity.
func Attach(name string, size uint64, optFns ...Option) (*Arena, error) {
	a := New(optFns...)
	if err := a.Attach(name, size); err != nil {
		return nil, err
	}
	return a, nil
}

// NewRegistry returns an empty registry whose arenas are configured by optFns.
func NewRegistry(optFns ...Option) *Registry {
	return arena.NewRegistry(applyOptions(optFns).arenaOptions()...)
}
