package arena

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/hupe1980/shmarena/internal/conv"
	"github.com/hupe1980/shmarena/internal/mmap"
	"github.com/hupe1980/shmarena/internal/shm"
)

// Create maps a fresh region described by cfg and makes the arena usable.
//
// The pool size is rounded up to Granularity. Concurrent calls are
// serialized; exactly one succeeds and the others return
// ErrAlreadyInitialized without mapping anything.
func (a *Arena) Create(cfg Config) error {
	if cfg.PoolSize == 0 {
		return fmt.Errorf("%w: pool size must be positive", ErrInvalidConfig)
	}
	if cfg.Alignment != 0 && !conv.IsPowerOfTwo(cfg.Alignment) {
		return fmt.Errorf("%w: alignment %d is not a power of two", ErrInvalidConfig, cfg.Alignment)
	}
	if cfg.Backing != BackingAnonymous && cfg.Backing != BackingShared {
		return fmt.Errorf("%w: unknown backing %v", ErrInvalidConfig, cfg.Backing)
	}
	if cfg.Alignment > Granularity {
		return fmt.Errorf("%w: alignment %d exceeds %d", ErrInvalidConfig, cfg.Alignment, Granularity)
	}
	align := max(cfg.Alignment, DefaultAlignment)

	capacity, ok := conv.AlignUp(cfg.PoolSize, Granularity)
	if !ok {
		return fmt.Errorf("%w: pool size %d", ErrCapacityOverflow, cfg.PoolSize)
	}
	total, ok := conv.Add(capacity, HeaderSize)
	if !ok {
		return fmt.Errorf("%w: pool size %d", ErrCapacityOverflow, cfg.PoolSize)
	}
	length, err := conv.Uint64ToInt(total)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCapacityOverflow, err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed.Load() {
		return ErrClosed
	}
	if a.state.Load() != nil {
		return ErrAlreadyInitialized
	}

	if err := a.rc.AcquireMemory(int64(length)); err != nil {
		return err
	}

	start := time.Now()
	r, err := a.provision(cfg, capacity, align, length)
	a.metrics.RecordProvision(cfg.Backing, capacity, r != nil && r.mapping.HugePages(), time.Since(start), err)
	if err != nil {
		a.rc.ReleaseMemory(int64(length))
		a.logger.Error("arena provisioning failed",
			slog.String("backing", cfg.Backing.String()),
			slog.String("size", humanize.IBytes(capacity)),
			slog.Any("error", err))
		return err
	}
	r.charged = int64(length)

	if cfg.UseHugePages && !r.mapping.HugePages() {
		a.logger.Info("huge pages unavailable, using standard pages",
			slog.String("name", r.name),
			slog.String("backing", r.backing.String()))
	}

	a.state.Store(r)

	a.logger.Info("arena created",
		slog.String("name", r.name),
		slog.String("backing", r.backing.String()),
		slog.String("size", humanize.IBytes(r.capacity)),
		slog.Uint64("alignment", r.align),
		slog.Bool("huge_pages", r.mapping.HugePages()),
		slog.Duration("elapsed", time.Since(start)))

	return nil
}

func (a *Arena) provision(cfg Config, capacity, align uint64, length int) (*region, error) {
	opts := mmap.Options{
		Align:     Granularity,
		HugePages: cfg.UseHugePages,
		Populate:  true,
	}

	var (
		m    *mmap.Mapping
		name string
	)

	switch cfg.Backing {
	case BackingShared:
		name = cfg.sharedName(a.id)

		f, err := shm.Create(name, int64(length))
		if err != nil {
			return nil, &MappingError{Op: "create", Name: name, Err: err}
		}

		m, err = mmap.MapFile(f, length, opts)
		_ = f.Close() // the mapping keeps the object alive
		if err != nil {
			_ = shm.Unlink(name)
			return nil, &MappingError{Op: "mmap", Name: name, Err: err}
		}
	default:
		name = "anon:" + uuid.NewString()

		var err error
		m, err = mmap.MapAnon(length, opts)
		if err != nil {
			return nil, &MappingError{Op: "mmap", Err: err}
		}

		if err := m.Advise(mmap.AccessDontFork); err != nil {
			a.logger.Warn("madvise dontfork failed", slog.Any("error", err))
		}
	}

	r, err := newRegion(m, name, cfg.Backing, capacity)
	if err != nil {
		_ = m.Close()
		if cfg.Backing == BackingShared {
			_ = shm.Unlink(name)
		}
		return nil, err
	}
	r.owner = true
	r.align = align

	if cfg.Prefault {
		if err := m.Prefault(context.Background()); err != nil {
			a.logger.Warn("prefault failed", slog.Any("error", err))
		}
	}

	r.hdr.init(capacity, align)

	return r, nil
}

func newRegion(m *mmap.Mapping, name string, backing Backing, capacity uint64) (*region, error) {
	n, err := conv.Uint64ToInt(capacity)
	if err != nil {
		return nil, err
	}

	data, err := m.Region(0, n)
	if err != nil {
		return nil, err
	}
	hdr, err := m.Region(n, HeaderSize)
	if err != nil {
		return nil, err
	}

	return &region{
		name:     name,
		backing:  backing,
		mapping:  m,
		data:     data.Bytes(),
		base:     m.Addr(),
		capacity: capacity,
		hdr:      headerAt(hdr.Bytes()),
	}, nil
}

// Attach maps an existing shared region created by another arena.
//
// expectedSize is the creator's Capacity. The allocation cursor and
// statistics are shared with every other arena attached to the region.
func (a *Arena) Attach(name string, expectedSize uint64) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidConfig)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed.Load() {
		return ErrClosed
	}
	if a.state.Load() != nil {
		return ErrAlreadyInitialized
	}

	start := time.Now()
	r, err := a.attach(name, expectedSize)
	a.metrics.RecordProvision(BackingShared, expectedSize, r != nil && r.mapping.HugePages(), time.Since(start), err)
	if err != nil {
		return err
	}

	a.state.Store(r)

	a.logger.Info("arena attached",
		slog.String("name", r.name),
		slog.String("size", humanize.IBytes(r.capacity)),
		slog.Uint64("alignment", r.align))

	return nil
}

func (a *Arena) attach(name string, expectedSize uint64) (*region, error) {
	f, size, err := shm.Open(name)
	if err != nil {
		switch {
		case errors.Is(err, shm.ErrNotFound):
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		case errors.Is(err, shm.ErrInvalidName):
			return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		default:
			return nil, &MappingError{Op: "open", Name: name, Err: err}
		}
	}
	defer func() { _ = f.Close() }()

	total, ok := conv.Add(expectedSize, HeaderSize)
	if !ok || size < 0 || uint64(size) != total {
		return nil, fmt.Errorf("%w: %s has %d bytes, want %d", ErrSizeMismatch, name, max(size-HeaderSize, 0), expectedSize)
	}
	length, err := conv.Uint64ToInt(total)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSizeMismatch, err)
	}

	m, err := mmap.MapFile(f, length, mmap.Options{Align: Granularity, Populate: true})
	if err != nil {
		return nil, &MappingError{Op: "mmap", Name: name, Err: err}
	}

	r, err := newRegion(m, name, BackingShared, expectedSize)
	if err != nil {
		_ = m.Close()
		return nil, fmt.Errorf("%w: %w", ErrSizeMismatch, err)
	}

	if !r.hdr.valid() || r.hdr.capacity != expectedSize || !conv.IsPowerOfTwo(r.hdr.alignment) {
		_ = m.Close()
		return nil, fmt.Errorf("%w: %s has no valid arena header", ErrSizeMismatch, name)
	}
	r.align = r.hdr.alignment

	return r, nil
}

// Close unmaps the region. The creator of a shared region also removes its
// name; attached arenas elsewhere keep their mappings. Close is idempotent.
//
// Close must not race with allocations or accesses to arena memory.
func (a *Arena) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed.Swap(true) {
		return nil
	}

	r := a.state.Swap(nil)
	if r == nil {
		return nil
	}

	err := r.mapping.Close()
	if r.owner && r.backing == BackingShared {
		if uerr := shm.Unlink(r.name); uerr != nil && !errors.Is(uerr, shm.ErrNotFound) {
			err = errors.Join(err, uerr)
		}
	}
	a.rc.ReleaseMemory(r.charged)

	a.logger.Info("arena closed",
		slog.String("name", r.name),
		slog.Bool("owner", r.owner),
		slog.Int("pid", os.Getpid()))

	return err
}
