package conv

import "math/bits"

// IsPowerOfTwo reports whether v is a non-zero power of two.
func IsPowerOfTwo(v uint64) bool {
	return v != 0 && v&(v-1) == 0
}

// Add returns a+b and false if the sum wraps.
func Add(a, b uint64) (uint64, bool) {
	sum, carry := bits.Add64(a, b, 0)
	return sum, carry == 0
}

// AlignUp rounds v up to the next multiple of align, which must be a power of two.
// It returns false if the result is not representable.
func AlignUp(v, align uint64) (uint64, bool) {
	mask := align - 1
	sum, ok := Add(v, mask)
	if !ok {
		return 0, false
	}
	return sum &^ mask, true
}

// AlignUpPtr is AlignUp for addresses.
func AlignUpPtr(p, align uintptr) uintptr {
	return (p + align - 1) &^ (align - 1)
}
