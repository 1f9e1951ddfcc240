//go:build unix && !linux

package mmap

import (
	"unsafe"

	"github.com/RoaringBitmap/roaring/v2"
	"golang.org/x/sys/unix"

	"github.com/hupe1980/shmarena/internal/conv"
)

type osRegion struct {
	data  []byte
	huge  bool
	unmap func() error
}

// osMap ignores HugePages and Populate: neither MAP_HUGETLB nor MAP_POPULATE
// exist outside Linux. Callers wanting resident pages use Prefault.
func osMap(fd int, size int, opts Options) (osRegion, error) {
	reserve := uintptr(size) + uintptr(opts.Align)
	base, err := unix.MmapPtr(-1, 0, nil, reserve, unix.PROT_NONE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return osRegion{}, err
	}

	start := uintptr(base)
	head := conv.AlignUpPtr(start, uintptr(opts.Align)) - start
	addr := unsafe.Add(base, head)

	flags := unix.MAP_FIXED
	if fd < 0 {
		flags |= unix.MAP_PRIVATE | unix.MAP_ANON
	} else {
		flags |= unix.MAP_SHARED
	}

	p, err := unix.MmapPtr(fd, 0, addr, uintptr(size), unix.PROT_READ|unix.PROT_WRITE, flags)
	if err != nil {
		_ = unix.MunmapPtr(base, reserve)
		return osRegion{}, err
	}
	if head > 0 {
		_ = unix.MunmapPtr(base, head)
	}
	if tail := reserve - head - uintptr(size); tail > 0 {
		_ = unix.MunmapPtr(unsafe.Add(p, size), tail)
	}

	return osRegion{
		data: unsafe.Slice((*byte)(p), size),
		unmap: func() error {
			return unix.MunmapPtr(p, uintptr(size))
		},
	}, nil
}

func osAdvise(data []byte, pattern AccessPattern) error {
	if len(data) == 0 {
		return nil
	}

	var advice int
	switch pattern {
	case AccessSequential:
		advice = unix.MADV_SEQUENTIAL
	case AccessRandom:
		advice = unix.MADV_RANDOM
	case AccessWillNeed:
		advice = unix.MADV_WILLNEED
	case AccessDontFork:
		return nil
	default:
		advice = unix.MADV_NORMAL
	}

	err := unix.Madvise(data, advice)
	if err == unix.EINVAL {
		return nil
	}
	return err
}

func osResident([]byte) (*roaring.Bitmap, error) {
	return nil, ErrNotSupported
}
