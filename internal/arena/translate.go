package arena

import (
	"fmt"

	"github.com/hupe1980/shmarena/internal/conv"
)

// Translate returns the address of [offset, offset+size) within this
// process's mapping of the region.
func (a *Arena) Translate(offset, size uint64) (uintptr, error) {
	r, err := a.checkRange(offset, size)
	a.metrics.RecordTranslate(err)
	if err != nil {
		return 0, err
	}
	return r.base + uintptr(offset), nil
}

// View returns the bytes of [offset, offset+size) within this process's
// mapping of the region.
func (a *Arena) View(offset, size uint64) ([]byte, error) {
	r, err := a.checkRange(offset, size)
	a.metrics.RecordTranslate(err)
	if err != nil {
		return nil, err
	}
	end := offset + size
	return r.data[offset:end:end], nil
}

// OffsetOf returns addr's offset from the region base. It returns
// InvalidOffset and false for addresses outside [base, base+capacity).
func (a *Arena) OffsetOf(addr uintptr) (uint64, bool) {
	r := a.state.Load()
	if r == nil || addr < r.base {
		return InvalidOffset, false
	}
	off := uint64(addr - r.base)
	if off >= r.capacity {
		return InvalidOffset, false
	}
	return off, true
}

func (a *Arena) checkRange(offset, size uint64) (*region, error) {
	r, err := a.load()
	if err != nil {
		return nil, err
	}
	end, ok := conv.Add(offset, size)
	if !ok || end > r.capacity {
		return nil, fmt.Errorf("%w: [%d, +%d) capacity %d", ErrOutOfBounds, offset, size, r.capacity)
	}
	return r, nil
}
