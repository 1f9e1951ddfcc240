package shmarena

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/hupe1980/shmarena/internal/arena"
	"github.com/hupe1980/shmarena/internal/conv"
	"github.com/hupe1980/shmarena/internal/mmap"
)

// BufferAllocator hands out aligned byte buffers from an anonymous arena,
// falling back to one mapping per buffer when the arena is disabled or full.
//
// The arena is created on the first Allocate. At that point SHMARENA_DISABLE
// is read once; when it is true, or Config.DisableArena is set, every buffer
// takes the per-buffer mapping path.
type BufferAllocator struct {
	cfg  Config
	opts options

	once  sync.Once
	arena *Arena // nil on the per-buffer path

	mu     sync.Mutex
	legacy map[uintptr]*mmap.Mapping
	closed atomic.Bool
}

// NewBufferAllocator returns an allocator for cfg. A zero PoolSize selects
// DefaultPoolSize. The backing is always anonymous.
func NewBufferAllocator(cfg Config, optFns ...Option) *BufferAllocator {
	if cfg.PoolSize == 0 {
		cfg.PoolSize = DefaultPoolSize
	}
	cfg.Backing = BackingAnonymous

	return &BufferAllocator{
		cfg:    cfg,
		opts:   applyOptions(optFns),
		legacy: make(map[uintptr]*mmap.Mapping),
	}
}

func (b *BufferAllocator) init() {
	disabled, err := envBool(EnvDisable, b.cfg.DisableArena)
	if err != nil {
		b.opts.logger.Warn("ignoring environment override", "error", err)
		disabled = b.cfg.DisableArena
	}
	if disabled {
		b.opts.logger.Info("arena disabled, using per-buffer mappings")
		return
	}

	a := arena.New(b.opts.arenaOptions()...)
	err = a.Create(b.cfg)
	b.opts.logger.LogCreate(context.Background(), a.Name(), BackingAnonymous, b.cfg.PoolSize, err)
	if err != nil {
		return
	}
	b.arena = a
}

// Allocate returns a buffer of size bytes whose address is a multiple of
// alignment. An alignment of 0 selects DefaultAlignment. A size of 0
// returns nil.
func (b *BufferAllocator) Allocate(size, alignment uint64) ([]byte, error) {
	if b.closed.Load() {
		return nil, ErrClosed
	}
	b.once.Do(b.init)

	if alignment == 0 {
		alignment = DefaultAlignment
	}
	if !conv.IsPowerOfTwo(alignment) {
		return nil, fmt.Errorf("%w: alignment %d is not a power of two", ErrInvalidConfig, alignment)
	}
	if size == 0 {
		return nil, nil
	}

	if b.arena != nil && alignment <= Granularity {
		alloc, err := b.arena.Allocate(size, alignment)
		if err == nil {
			return alloc.Bytes()[:size], nil
		}
		if !errors.Is(err, ErrOutOfMemory) {
			return nil, err
		}
		b.opts.logger.LogAllocFailure(context.Background(), size, alignment, err)
	}

	return b.allocateMapping(size, alignment)
}

func (b *BufferAllocator) allocateMapping(size, alignment uint64) ([]byte, error) {
	n, err := conv.Uint64ToInt(size)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSizeOverflow, err)
	}
	align, err := conv.Uint64ToInt(alignment)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	m, err := mmap.MapAnon(n, mmap.Options{Align: align})
	if err != nil {
		return nil, &MappingError{Op: "mmap", Err: err}
	}

	buf := m.Bytes()

	b.mu.Lock()
	defer b.mu.Unlock()
	// Close swaps the mapping table under mu after setting closed.
	if b.closed.Load() {
		_ = m.Close()
		return nil, ErrClosed
	}
	b.legacy[m.Addr()] = m

	return buf, nil
}

// Free releases buf. Arena buffers are not reclaimed; per-buffer mappings
// are unmapped. Freeing an empty buffer is a no-op.
func (b *BufferAllocator) Free(buf []byte) error {
	if cap(buf) == 0 {
		return nil
	}
	addr := uintptr(unsafe.Pointer(unsafe.SliceData(buf)))

	if b.arena != nil {
		if off, ok := b.arena.OffsetOf(addr); ok {
			return b.arena.Deallocate(Allocation{Offset: off, Size: uint64(cap(buf))})
		}
	}

	b.mu.Lock()
	m, ok := b.legacy[addr]
	delete(b.legacy, addr)
	b.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: buffer %#x was not allocated here", ErrNotFound, addr)
	}
	return m.Close()
}

// Arena returns the backing arena, or nil on the per-buffer path.
func (b *BufferAllocator) Arena() *Arena {
	b.once.Do(b.init)
	return b.arena
}

// Mappings returns the number of live per-buffer mappings.
func (b *BufferAllocator) Mappings() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.legacy)
}

// Close releases the arena and every outstanding per-buffer mapping.
func (b *BufferAllocator) Close() error {
	if b.closed.Swap(true) {
		return nil
	}

	var errs []error

	// Prevent a later init from creating an arena.
	b.once.Do(func() {})
	if b.arena != nil {
		name := b.arena.Name()
		err := b.arena.Close()
		b.opts.logger.LogTeardown(context.Background(), name, err)
		errs = append(errs, err)
	}

	b.mu.Lock()
	legacy := b.legacy
	b.legacy = make(map[uintptr]*mmap.Mapping)
	b.mu.Unlock()

	for _, m := range legacy {
		errs = append(errs, m.Close())
	}

	return errors.Join(errs...)
}
