package transport

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/hupe1980/shmarena"
	"github.com/hupe1980/shmarena/resource"
)

// LocalSegmentID addresses the transport's own arena.
const LocalSegmentID uint64 = 0

var (
	// ErrNotInstalled is returned before Install or after Uninstall.
	ErrNotInstalled = errors.New("transport: not installed")
	// ErrAlreadyInstalled is returned by a second Install.
	ErrAlreadyInstalled = errors.New("transport: already installed")
	// ErrUnknownBuffer is returned when freeing a buffer this transport did not hand out.
	ErrUnknownBuffer = errors.New("transport: unknown buffer")
	// ErrUnknownSegment is returned when a segment id cannot be resolved.
	ErrUnknownSegment = errors.New("transport: unknown segment")
)

// Buffer is a block of the local arena as advertised to peers.
type Buffer struct {
	Data      []byte
	ArenaName string
	Offset    uint64
	Size      uint64
}

// Segment describes a peer's arena.
type Segment struct {
	ArenaName string
	Size      uint64
}

// SegmentResolver maps segment ids to arenas. It is typically backed by the
// metadata service peers publish their segments to.
type SegmentResolver interface {
	ResolveSegment(ctx context.Context, segmentID uint64) (Segment, error)
}

// StaticResolver resolves segments from a fixed table.
type StaticResolver map[uint64]Segment

// ResolveSegment implements SegmentResolver.
func (r StaticResolver) ResolveSegment(_ context.Context, segmentID uint64) (Segment, error) {
	seg, ok := r[segmentID]
	if !ok {
		return Segment{}, fmt.Errorf("%w: %d", ErrUnknownSegment, segmentID)
	}
	return seg, nil
}

// Transport is the capability set a transfer engine needs from a memory transport.
type Transport interface {
	Name() string
	Install(ctx context.Context) error
	Uninstall() error
	AllocateLocalMemory(size uint64) (Buffer, error)
	FreeLocalMemory(buf Buffer) error
	NewWorker() *Worker
}

var _ Transport = (*ArenaTransport)(nil)

type options struct {
	name       string
	cfg        shmarena.Config
	controller *resource.Controller
	logger     *shmarena.Logger
}

// Option configures an ArenaTransport.
type Option func(*options)

// WithLocalName sets the shared memory name of the local arena.
func WithLocalName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithLocalConfig sets the configuration of the local arena. The backing is
// always shared.
func WithLocalConfig(cfg shmarena.Config) Option {
	return func(o *options) {
		o.cfg = cfg
	}
}

// WithResourceController throttles transfer copies with rc's IO limiter.
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) {
		o.controller = rc
	}
}

// WithLogger sets the logger.
func WithLogger(l *shmarena.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// ArenaTransport moves data between processes through shared arenas.
type ArenaTransport struct {
	opts     options
	registry *shmarena.Registry
	resolver SegmentResolver

	mu      sync.Mutex
	local   *shmarena.Arena
	buffers map[uint64]uint64 // offset -> size
	remotes map[string]struct{}
}

// NewArenaTransport returns a transport that registers its arenas in registry
// and resolves peers through resolver.
func NewArenaTransport(registry *shmarena.Registry, resolver SegmentResolver, optFns ...Option) *ArenaTransport {
	o := options{
		name:   fmt.Sprintf("%stransport_%d", shmarena.DefaultNamePrefix, os.Getpid()),
		cfg:    shmarena.DefaultConfig(),
		logger: shmarena.NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	o.cfg.Backing = shmarena.BackingShared
	o.cfg.Name = o.name

	return &ArenaTransport{
		opts:     o,
		registry: registry,
		resolver: resolver,
		buffers:  make(map[uint64]uint64),
		remotes:  make(map[string]struct{}),
	}
}

// Name returns the transport name.
func (t *ArenaTransport) Name() string { return "shm" }

// LocalArena returns the local arena, or nil when not installed.
func (t *ArenaTransport) LocalArena() *shmarena.Arena {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.local
}

// Install creates the local shared arena.
func (t *ArenaTransport) Install(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.local != nil {
		return ErrAlreadyInstalled
	}

	a, err := t.registry.GetOrCreate(t.opts.name, t.opts.cfg)
	t.opts.logger.LogCreate(ctx, t.opts.name, shmarena.BackingShared, t.opts.cfg.PoolSize, err)
	if err != nil {
		return err
	}
	t.local = a

	return nil
}

// Uninstall releases the local arena and every remote arena attached through
// this transport. Workers keep their cached arenas until closed.
func (t *ArenaTransport) Uninstall() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.local == nil {
		return ErrNotInstalled
	}

	errs := []error{t.local.Release(), t.registry.Remove(t.opts.name)}
	for name := range t.remotes {
		if err := t.registry.Remove(name); err != nil && !errors.Is(err, shmarena.ErrNotFound) {
			errs = append(errs, err)
		}
	}

	t.opts.logger.LogTeardown(context.Background(), t.opts.name, errors.Join(errs...))

	t.local = nil
	clear(t.buffers)
	clear(t.remotes)

	return errors.Join(errs...)
}

// AllocateLocalMemory allocates size bytes from the local arena.
func (t *ArenaTransport) AllocateLocalMemory(size uint64) (Buffer, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.local == nil {
		return Buffer{}, ErrNotInstalled
	}
	if size == 0 {
		return Buffer{}, fmt.Errorf("%w: zero size buffer", shmarena.ErrInvalidConfig)
	}

	alloc, err := t.local.Allocate(size, 0)
	if err != nil {
		return Buffer{}, err
	}
	t.buffers[alloc.Offset] = alloc.Size

	return Buffer{
		Data:      alloc.Bytes()[:size],
		ArenaName: t.local.Name(),
		Offset:    alloc.Offset,
		Size:      alloc.Size,
	}, nil
}

// FreeLocalMemory releases a buffer returned by AllocateLocalMemory.
func (t *ArenaTransport) FreeLocalMemory(buf Buffer) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.local == nil {
		return ErrNotInstalled
	}

	size, ok := t.buffers[buf.Offset]
	if !ok || size != buf.Size || buf.ArenaName != t.local.Name() {
		return fmt.Errorf("%w: offset %d", ErrUnknownBuffer, buf.Offset)
	}
	delete(t.buffers, buf.Offset)

	return t.local.Deallocate(shmarena.Allocation{Offset: buf.Offset, Size: size})
}

// NewWorker returns a worker with an empty segment cache.
func (t *ArenaTransport) NewWorker() *Worker {
	return &Worker{
		t:     t,
		cache: make(map[uint64]*shmarena.Arena),
	}
}

func (t *ArenaTransport) attach(ctx context.Context, segmentID uint64) (*shmarena.Arena, error) {
	if segmentID == LocalSegmentID {
		t.mu.Lock()
		defer t.mu.Unlock()
		if t.local == nil {
			return nil, ErrNotInstalled
		}
		t.local.Retain()
		return t.local, nil
	}

	seg, err := t.resolver.ResolveSegment(ctx, segmentID)
	if err != nil {
		return nil, err
	}

	a, err := t.registry.Attach(seg.ArenaName, seg.Size)
	t.opts.logger.LogAttach(ctx, seg.ArenaName, seg.Size, err)
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	t.remotes[seg.ArenaName] = struct{}{}
	t.mu.Unlock()

	return a, nil
}
