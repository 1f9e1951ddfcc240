package shmarena

import "github.com/hupe1980/shmarena/internal/arena"

// Sentinel errors. Match them with errors.Is; most are returned wrapped with detail.
var (
	ErrInvalidConfig      = arena.ErrInvalidConfig
	ErrAlreadyInitialized = arena.ErrAlreadyInitialized
	ErrNotInitialized     = arena.ErrNotInitialized
	ErrClosed             = arena.ErrClosed
	ErrMappingFailed      = arena.ErrMappingFailed
	ErrCapacityOverflow   = arena.ErrCapacityOverflow
	ErrSizeOverflow       = arena.ErrSizeOverflow
	ErrOffsetOverflow     = arena.ErrOffsetOverflow
	ErrOutOfMemory        = arena.ErrOutOfMemory
	ErrNotFound           = arena.ErrNotFound
	ErrSizeMismatch       = arena.ErrSizeMismatch
	ErrOutOfBounds        = arena.ErrOutOfBounds
)

// MappingError describes an OS-level failure while provisioning a region.
//
// It matches ErrMappingFailed and unwraps to the OS error.
type MappingError = arena.MappingError
