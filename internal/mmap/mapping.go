package mmap

import (
	"os"
	"sync/atomic"
	"unsafe"

	"github.com/RoaringBitmap/roaring/v2"
)

// Mapping represents a mapped memory region.
// It owns the underlying memory and is responsible for unmapping it.
type Mapping struct {
	data   []byte
	size   int
	huge   bool
	closed atomic.Bool
	// unmap is the platform-specific function to unmap the memory.
	unmap func() error
}

// MapAnon creates a private anonymous read/write mapping of size bytes.
func MapAnon(size int, opts Options) (*Mapping, error) {
	return mapRegion(-1, size, opts)
}

// File is an open file backed by a descriptor.
type File interface {
	Fd() uintptr
}

// MapFile maps the first size bytes of f as a shared read/write region.
// The file must already be at least size bytes long.
func MapFile(f File, size int, opts Options) (*Mapping, error) {
	return mapRegion(int(f.Fd()), size, opts)
}

func mapRegion(fd int, size int, opts Options) (*Mapping, error) {
	if size <= 0 {
		return nil, ErrInvalidSize
	}
	if opts.Align < 0 || opts.Align&(opts.Align-1) != 0 {
		return nil, ErrInvalidAlignment
	}
	if page := os.Getpagesize(); opts.Align < page {
		opts.Align = page
	}

	r, err := osMap(fd, size, opts)
	if err != nil {
		return nil, err
	}

	return &Mapping{
		data:  r.data[:size:size],
		size:  size,
		huge:  r.huge,
		unmap: r.unmap,
	}, nil
}

// Close unmaps the memory. It is idempotent.
func (m *Mapping) Close() error {
	if m.closed.Swap(true) {
		return nil // Already closed
	}
	if m.unmap != nil {
		return m.unmap()
	}
	return nil
}

// Bytes returns the underlying byte slice.
// Warning: The slice is valid only until Close() is called.
// Accessing the slice after Close() results in undefined behavior (likely a crash).
func (m *Mapping) Bytes() []byte {
	if m.closed.Load() {
		return nil
	}
	return m.data
}

// Addr returns the base address of the mapping.
func (m *Mapping) Addr() uintptr {
	if len(m.data) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&m.data[0])) //nolint:gosec // address arithmetic only
}

// Size returns the size of the mapping in bytes.
func (m *Mapping) Size() int {
	return m.size
}

// HugePages reports whether the mapping is backed by huge pages.
func (m *Mapping) HugePages() bool {
	return m.huge
}

// Advise provides hints to the kernel about how the memory will be accessed.
func (m *Mapping) Advise(pattern AccessPattern) error {
	if m.closed.Load() {
		return ErrClosed
	}
	return osAdvise(m.data, pattern)
}

// Resident reports which pages (in OS page size units) of the mapping are
// currently backed by physical memory.
func (m *Mapping) Resident() (*roaring.Bitmap, error) {
	if m.closed.Load() {
		return nil, ErrClosed
	}
	return osResident(m.data)
}
