package arena

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"golang.org/x/time/rate"

	"github.com/hupe1980/shmarena/internal/mmap"
	"github.com/hupe1980/shmarena/resource"
)

// nextID hands out process-unique arena ids.
var nextID atomic.Uint32

// oomLogEvery is the out-of-memory failure count between log attempts.
const oomLogEvery = 100

// Metrics receives arena events. Implementations must be safe for concurrent use.
type Metrics interface {
	RecordProvision(backing Backing, bytes uint64, hugePages bool, d time.Duration, err error)
	RecordAllocate(bytes uint64, err error)
	RecordTranslate(err error)
}

type noopMetrics struct{}

func (noopMetrics) RecordProvision(Backing, uint64, bool, time.Duration, error) {}
func (noopMetrics) RecordAllocate(uint64, error)                               {}
func (noopMetrics) RecordTranslate(error)                                      {}

// Option configures an Arena.
type Option func(*Arena)

// WithLogger sets the logger used for lifecycle and failure events.
func WithLogger(l *slog.Logger) Option {
	return func(a *Arena) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) Option {
	return func(a *Arena) {
		if m != nil {
			a.metrics = m
		}
	}
}

// WithResourceController charges created regions against rc's memory budget.
func WithResourceController(rc *resource.Controller) Option {
	return func(a *Arena) {
		a.rc = rc
	}
}

// region is the immutable state of an initialized arena.
type region struct {
	name     string
	backing  Backing
	owner    bool
	mapping  *mmap.Mapping
	data     []byte // [0, capacity)
	base     uintptr
	capacity uint64
	align    uint64
	hdr      *header
	charged  int64
}

// Arena is a concurrent bump allocator over a single mapped region.
type Arena struct {
	id      uint32
	logger  *slog.Logger
	metrics Metrics
	rc      *resource.Controller

	mu     sync.Mutex // serializes Create, Attach and Close
	state  atomic.Pointer[region]
	closed atomic.Bool
	refs   atomic.Int64

	oomLog rate.Sometimes
}

// New returns an uninitialized arena holding one reference.
func New(opts ...Option) *Arena {
	a := &Arena{
		id:      nextID.Add(1),
		logger:  slog.New(slog.DiscardHandler),
		metrics: noopMetrics{},
		oomLog:  rate.Sometimes{Interval: time.Second},
	}
	a.refs.Store(1)

	for _, opt := range opts {
		opt(a)
	}

	a.logger = a.logger.With(slog.Uint64("arena_id", uint64(a.id)))

	return a
}

// ID returns the process-unique arena id.
func (a *Arena) ID() uint32 { return a.id }

// IsInitialized reports whether Create or Attach has succeeded and Close has not been called.
func (a *Arena) IsInitialized() bool { return a.state.Load() != nil }

// Name returns the region name: the shared memory name, or "anon:<uuid>" for anonymous arenas.
func (a *Arena) Name() string {
	if r := a.state.Load(); r != nil {
		return r.name
	}
	return ""
}

// Backing returns the kind of memory behind the arena.
func (a *Arena) Backing() Backing {
	if r := a.state.Load(); r != nil {
		return r.backing
	}
	return BackingAnonymous
}

// IsOwner reports whether this arena created its region.
func (a *Arena) IsOwner() bool {
	r := a.state.Load()
	return r != nil && r.owner
}

// Base returns the address of offset 0, or 0 when uninitialized.
func (a *Arena) Base() uintptr {
	if r := a.state.Load(); r != nil {
		return r.base
	}
	return 0
}

// Capacity returns the usable pool size in bytes.
func (a *Arena) Capacity() uint64 {
	if r := a.state.Load(); r != nil {
		return r.capacity
	}
	return 0
}

// Alignment returns the default allocation alignment.
func (a *Arena) Alignment() uint64 {
	if r := a.state.Load(); r != nil {
		return r.align
	}
	return 0
}

// HugePages reports whether the region is backed by huge pages.
func (a *Arena) HugePages() bool {
	r := a.state.Load()
	return r != nil && r.mapping.HugePages()
}

// Residency returns the set of resident pages of the region.
func (a *Arena) Residency() (*roaring.Bitmap, error) {
	r, err := a.load()
	if err != nil {
		return nil, err
	}
	return r.mapping.Resident()
}

// Retain adds a reference.
func (a *Arena) Retain() { a.refs.Add(1) }

// Release drops a reference and closes the arena when the last one is gone.
func (a *Arena) Release() error {
	if a.refs.Add(-1) == 0 {
		return a.Close()
	}
	return nil
}

// Refs returns the current reference count.
func (a *Arena) Refs() int64 { return a.refs.Load() }

func (a *Arena) load() (*region, error) {
	if r := a.state.Load(); r != nil {
		return r, nil
	}
	if a.closed.Load() {
		return nil, ErrClosed
	}
	return nil, ErrNotInitialized
}
