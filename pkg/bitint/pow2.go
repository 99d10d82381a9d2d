// SPDX-License-Identifier: MIT
/*
Package bitint provides power-of-2 helpers for FFT window sizing.

The spectral analyzer only accepts power-of-2 window sizes, and callers
that pick a window from a duration need the next valid size up. Both
operations are branch-light, allocation-free bit manipulation.
*/
package bitint

import "math/bits"

// NextPowerOfTwo returns the smallest power of 2 >= size.
// Exact powers of 2 are returned unchanged; zero and negative
// inputs map to 1.
//
// The size-1 before bits.Len is what keeps exact powers of 2 from
// being doubled: Len(8-1)=3 so 1<<3=8, while Len(8)=4 would give 16.
func NextPowerOfTwo(size int) int {
	if size <= 0 {
		return 1
	}
	return 1 << bits.Len64(uint64(size-1))
}

// IsPowerOfTwo reports whether n is a positive power of 2.
// A power of 2 has exactly one bit set, so n&(n-1) clears it to zero.
func IsPowerOfTwo(n int) bool {
	return n > 0 && (n&(n-1)) == 0
}
