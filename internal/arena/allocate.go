package arena

import (
	"fmt"
	"log/slog"
	"unsafe"

	"github.com/dustin/go-humanize"

	"github.com/hupe1980/shmarena/internal/conv"
)

// Allocation is a block handed out by Allocate.
type Allocation struct {
	// Offset is the block's distance from the region base. It is valid in
	// every process mapping the region.
	Offset uint64
	// Size is the requested size rounded up to the effective alignment.
	Size uint64
	// ArenaID identifies the arena that produced the block.
	ArenaID uint32

	data []byte
}

// IsZero reports whether a is the empty allocation returned for size 0.
func (a Allocation) IsZero() bool { return a.data == nil }

// Bytes returns the block's memory. It is valid until the arena is closed.
func (a Allocation) Bytes() []byte { return a.data }

// Pointer returns the block's address, or nil for the empty allocation.
func (a Allocation) Pointer() unsafe.Pointer {
	if a.data == nil {
		return nil
	}
	return unsafe.Pointer(unsafe.SliceData(a.data))
}

// Addr returns the block's address, or 0 for the empty allocation.
func (a Allocation) Addr() uintptr { return uintptr(a.Pointer()) }

// Stats is a snapshot of allocator counters.
type Stats struct {
	Capacity    uint64
	Allocated   uint64 // current cursor
	Peak        uint64
	Allocations uint64
	Failures    uint64
}

// Utilization returns Allocated as a fraction of Capacity.
func (s Stats) Utilization() float64 {
	if s.Capacity == 0 {
		return 0
	}
	return float64(s.Allocated) / float64(s.Capacity)
}

func (s Stats) String() string {
	return fmt.Sprintf("Stats{Allocated: %s/%s (%.1f%%), Peak: %s, Allocations: %d, Failures: %d}",
		humanize.IBytes(s.Allocated), humanize.IBytes(s.Capacity), s.Utilization()*100,
		humanize.IBytes(s.Peak), s.Allocations, s.Failures)
}

// Allocate reserves size bytes aligned to max(alignment, the arena's default
// alignment). An alignment of 0 selects the default. A size of 0 returns the
// empty allocation without touching the cursor.
//
// Allocate is lock-free and safe for concurrent use, including from several
// processes attached to the same shared region.
func (a *Arena) Allocate(size, alignment uint64) (Allocation, error) {
	r, err := a.load()
	if err != nil {
		return Allocation{}, err
	}
	if size == 0 {
		return Allocation{}, nil
	}

	align := r.align
	if alignment != 0 {
		if !conv.IsPowerOfTwo(alignment) || alignment > Granularity {
			return Allocation{}, fmt.Errorf("%w: alignment %d", ErrInvalidConfig, alignment)
		}
		align = max(align, alignment)
	}

	need, ok := conv.AlignUp(size, align)
	if !ok {
		a.metrics.RecordAllocate(size, ErrSizeOverflow)
		return Allocation{}, fmt.Errorf("%w: size %d align %d", ErrSizeOverflow, size, align)
	}

	h := r.hdr

	var off, end uint64
	for {
		cur := h.cursor.Load()

		off, ok = conv.AlignUp(cur, align)
		if !ok {
			h.failures.Add(1)
			a.metrics.RecordAllocate(need, ErrOffsetOverflow)
			return Allocation{}, ErrOffsetOverflow
		}
		end, ok = conv.Add(off, need)
		if !ok {
			h.failures.Add(1)
			a.metrics.RecordAllocate(need, ErrOffsetOverflow)
			return Allocation{}, ErrOffsetOverflow
		}

		if end > r.capacity {
			n := h.failures.Add(1)
			a.metrics.RecordAllocate(need, ErrOutOfMemory)
			if n%oomLogEvery != 1 {
				return Allocation{}, ErrOutOfMemory
			}
			a.oomLog.Do(func() {
				a.logger.Warn("arena exhausted",
					slog.String("name", r.name),
					slog.Uint64("requested", need),
					slog.Uint64("cursor", cur),
					slog.String("capacity", humanize.IBytes(r.capacity)),
					slog.Uint64("failures", n))
			})
			return Allocation{}, ErrOutOfMemory
		}

		if h.cursor.CompareAndSwap(cur, end) {
			break
		}
	}

	h.allocs.Add(1)

	for {
		peak := h.peak.Load()
		if end <= peak || h.peak.CompareAndSwap(peak, end) {
			break
		}
	}

	a.metrics.RecordAllocate(need, nil)

	return Allocation{
		Offset:  off,
		Size:    need,
		ArenaID: a.id,
		data:    r.data[off:end:end],
	}, nil
}

// Deallocate is a no-op: a bump arena never reuses space. It exists so
// callers can pair every Allocate with a release.
// It succeeds in every state, including before Create and after Close.
func (a *Arena) Deallocate(Allocation) error {
	return nil
}

// OwnsAddress reports whether addr lies within the data region.
func (a *Arena) OwnsAddress(addr uintptr) bool {
	_, ok := a.OffsetOf(addr)
	return ok
}

// Stats returns a snapshot of the allocator counters. The fields are read
// independently and may be mutually inconsistent under concurrent allocation.
func (a *Arena) Stats() Stats {
	r := a.state.Load()
	if r == nil {
		return Stats{}
	}

	return Stats{
		Capacity:    r.capacity,
		Allocated:   r.hdr.cursor.Load(),
		Peak:        r.hdr.peak.Load(),
		Allocations: r.hdr.allocs.Load(),
		Failures:    r.hdr.failures.Load(),
	}
}

// Reset rewinds the cursor to zero. Peak and counters are kept.
//
// Every allocation handed out before Reset becomes invalid. The caller must
// guarantee none are still in use, in this or any attached process.
func (a *Arena) Reset() error {
	r, err := a.load()
	if err != nil {
		return err
	}

	prev := r.hdr.cursor.Swap(0)

	a.logger.Warn("arena reset, outstanding allocations invalidated",
		slog.String("name", r.name),
		slog.String("released", humanize.IBytes(prev)))

	return nil
}
