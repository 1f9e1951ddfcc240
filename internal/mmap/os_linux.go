//go:build linux

package mmap

import (
	"os"
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

func osMap(fd int, size int, opts Options) (osRegion, error) {
	if opts.HugePages {
		length := int(conv.AlignUpPtr(uintptr(size), HugePageSize))
		r, err := mapAligned(fd, length, max(opts.Align, HugePageSize), opts.Populate, unix.MAP_HUGETLB)
		if err == nil {
			r.huge = true
			return r, nil
		}
		// No huge page pool (or not supported for this backing): retry once with standard pages.
	}
	return mapAligned(fd, size, opts.Align, opts.Populate, 0)
}

// mapAligned reserves length+align bytes of address space, maps the region at
// the first aligned address inside the reservation and releases the unused
// head and tail.
func mapAligned(fd int, length int, align int, populate bool, extra int) (osRegion, error) {
	reserve := uintptr(length) + uintptr(align)
	base, err := unix.MmapPtr(-1, 0, nil, reserve, unix.PROT_NONE,
		unix.MAP_PRIVATE|unix.MAP_ANONYMOUS|unix.MAP_NORESERVE)
	if err != nil {
		return osRegion{}, err
	}

	start := uintptr(base)
	head := conv.AlignUpPtr(start, uintptr(align)) - start
	addr := unsafe.Add(base, head)

	flags := unix.MAP_FIXED | extra
	if fd < 0 {
		flags |= unix.MAP_PRIVATE | unix.MAP_ANONYMOUS
	} else {
		flags |= unix.MAP_SHARED
	}
	if populate {
		flags |= unix.MAP_POPULATE
	}

	p, err := unix.MmapPtr(fd, 0, addr, uintptr(length), unix.PROT_READ|unix.PROT_WRITE, flags)
	if err != nil {
		_ = unix.MunmapPtr(base, reserve)
		return osRegion{}, err
	}

	if head > 0 {
		_ = unix.MunmapPtr(base, head)
	}
	if tail := reserve - head - uintptr(length); tail > 0 {
		_ = unix.MunmapPtr(unsafe.Add(p, length), tail)
	}

	return osRegion{
		data: unsafe.Slice((*byte)(p), length),
		unmap: func() error {
			return unix.MunmapPtr(p, uintptr(length))
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
		advice = unix.MADV_DONTFORK
	default:
		advice = unix.MADV_NORMAL
	}

	// madvise requires page-aligned addresses. If the slice isn't
	// page-aligned, we silently succeed since the hint is advisory.
	err := unix.Madvise(data, advice)
	if err == unix.EINVAL && pattern != AccessDontFork {
		return nil
	}
	return err
}

func osResident(data []byte) (*roaring.Bitmap, error) {
	pageSize := os.Getpagesize()
	vec := make([]byte, (len(data)+pageSize-1)/pageSize)
	if len(vec) == 0 {
		return roaring.New(), nil
	}
	_, _, errno := unix.Syscall(unix.SYS_MINCORE,
		uintptr(unsafe.Pointer(&data[0])),
		uintptr(len(data)),
		uintptr(unsafe.Pointer(&vec[0])))
	if errno != 0 {
		return nil, errno
	}

	bm := roaring.New()
	for i, v := range vec {
		if v&1 != 0 {
			bm.Add(uint32(i)) //nolint:gosec // page index of a mapping below 16 TiB
		}
	}
	return bm, nil
}
