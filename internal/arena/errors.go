package arena

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig is returned for a zero pool size or an alignment that is not a power of two.
	ErrInvalidConfig = errors.New("arena: invalid config")
	// ErrAlreadyInitialized is returned by Create or Attach on an initialized arena.
	ErrAlreadyInitialized = errors.New("arena: already initialized")
	// ErrNotInitialized is returned by operations on an arena before Create or Attach.
	ErrNotInitialized = errors.New("arena: not initialized")
	// ErrClosed is returned by operations on an arena after Close.
	ErrClosed = errors.New("arena: closed")
	// ErrMappingFailed is returned when the OS refuses to map the region.
	ErrMappingFailed = errors.New("arena: mapping failed")
	// ErrCapacityOverflow is returned when rounding the pool size would wrap.
	ErrCapacityOverflow = errors.New("arena: capacity overflow")
	// ErrSizeOverflow is returned when rounding an allocation size would wrap.
	ErrSizeOverflow = errors.New("arena: size overflow")
	// ErrOffsetOverflow is returned when an aligned offset computation would wrap.
	ErrOffsetOverflow = errors.New("arena: offset overflow")
	// ErrOutOfMemory is returned when the pool cannot satisfy a request.
	ErrOutOfMemory = errors.New("arena: out of memory")
	// ErrNotFound is returned when a named region or registry entry does not exist.
	ErrNotFound = errors.New("arena: not found")
	// ErrSizeMismatch is returned when an attached region does not have the expected size.
	ErrSizeMismatch = errors.New("arena: size mismatch")
	// ErrOutOfBounds is returned when a translation request falls outside the pool.
	ErrOutOfBounds = errors.New("arena: out of bounds")
)

// MappingError describes an OS-level failure while provisioning a region.
//
// It matches ErrMappingFailed with errors.Is and unwraps to the OS error.
type MappingError struct {
	Op   string
	Name string
	Err  error
}

func (e *MappingError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("arena: mapping failed: %s %s: %v", e.Op, e.Name, e.Err)
	}
	return fmt.Sprintf("arena: mapping failed: %s: %v", e.Op, e.Err)
}

func (e *MappingError) Unwrap() []error { return []error{ErrMappingFailed, e.Err} }
