package wirecmd

import "fmt"

// ErrSizeOverflow is returned by the checked arithmetic helpers below when a
// size computation would overflow. Unchecked multiply-by-element-size
// arithmetic on user-supplied lengths is how a malicious peer turns a
// length field into a short read; every variable-length-argument size
// computation in
// this package goes through these helpers instead of raw arithmetic.
var ErrSizeOverflow = fmt.Errorf("wirecmd: size computation overflowed")

const maxReasonableSize = 1 << 32 // one command will never legitimately need more than 4GiB

// checkedMul multiplies count by elemSize, returning ErrSizeOverflow if the
// result would overflow a 64-bit size_t-equivalent or exceed a sane ceiling.
func checkedMul(count, elemSize uint64) (uint64, error) {
	if count == 0 || elemSize == 0 {
		return 0, nil
	}
	result := count * elemSize
	if result/elemSize != count {
		return 0, ErrSizeOverflow
	}
	if result > maxReasonableSize {
		return 0, ErrSizeOverflow
	}
	return result, nil
}

// checkedAdd adds a and b, returning ErrSizeOverflow on wraparound or when
// the sum exceeds the sane ceiling.
func checkedAdd(a, b uint64) (uint64, error) {
	sum := a + b
	if sum < a {
		return 0, ErrSizeOverflow
	}
	if sum > maxReasonableSize {
		return 0, ErrSizeOverflow
	}
	return sum, nil
}

// stringSize returns the wire size of a NUL-terminated string argument.
func stringSize(s string) (uint64, error) {
	return checkedAdd(uint64(len(s)), 1)
}

// objectArraySize returns the wire size of an array of n object IDs (one
// u32 per element).
func objectArraySize(n int) (uint64, error) {
	return checkedMul(uint64(n), 4)
}
