//go:build windows

package mmap

import (
	"unsafe"

	"github.com/RoaringBitmap/roaring/v2"
	"golang.org/x/sys/windows"

	"github.com/hupe1980/shmarena/internal/conv"
)

type osRegion struct {
	data  []byte
	huge  bool
	unmap func() error
}

func osMap(fd int, size int, opts Options) (osRegion, error) {
	if fd >= 0 {
		return osRegion{}, ErrNotSupported
	}

	// VirtualAlloc with MEM_COMMIT backs pages on first touch, so Populate
	// has no equivalent here. Over-allocate to honor the base alignment; the
	// whole block is released by its original address.
	reserve := uintptr(size) + uintptr(opts.Align)
	addr, err := windows.VirtualAlloc(0, reserve,
		windows.MEM_RESERVE|windows.MEM_COMMIT, windows.PAGE_READWRITE)
	if err != nil {
		return osRegion{}, err
	}

	aligned := conv.AlignUpPtr(addr, uintptr(opts.Align))
	data := unsafe.Slice((*byte)(unsafe.Pointer(addr)), reserve)[aligned-addr:][:size:size]

	return osRegion{
		data: data,
		unmap: func() error {
			// VirtualFree with MEM_RELEASE frees the entire region
			return windows.VirtualFree(addr, 0, windows.MEM_RELEASE)
		},
	}, nil
}

func osAdvise(data []byte, pattern AccessPattern) error {
	// Windows does not have a direct equivalent to madvise.
	_ = data
	_ = pattern
	return nil
}

func osResident([]byte) (*roaring.Bitmap, error) {
	return nil, ErrNotSupported
}
