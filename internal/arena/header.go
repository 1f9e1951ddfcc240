package arena

import (
	"sync/atomic"
	"unsafe"
)

const (
	headerMagic   = 0x53484d4152454e41 // "SHMARENA"
	headerVersion = 1
)

// header lives in the mapping right after the data region. In a shared
// region it is the only allocator state; all processes operate on it.
type header struct {
	magic     atomic.Uint64 // stored last by the creator
	version   uint32
	_         uint32
	capacity  uint64
	alignment uint64

	cursor   atomic.Uint64
	peak     atomic.Uint64
	allocs   atomic.Uint64
	failures atomic.Uint64
}

var _ [HeaderSize - unsafe.Sizeof(header{})]byte // header must fit in HeaderSize

func headerAt(b []byte) *header {
	return (*header)(unsafe.Pointer(&b[0])) //nolint:gosec // b is a page-aligned slice of the mapping
}

func (h *header) init(capacity, alignment uint64) {
	h.version = headerVersion
	h.capacity = capacity
	h.alignment = alignment
	h.cursor.Store(0)
	h.peak.Store(0)
	h.allocs.Store(0)
	h.failures.Store(0)
	h.magic.Store(headerMagic)
}

func (h *header) valid() bool {
	return h.magic.Load() == headerMagic && h.version == headerVersion
}
