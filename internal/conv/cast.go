package conv

import (
	"errors"
	"fmt"
	"math"
)

// ErrOverflow is returned when a value does not fit the target type.
var ErrOverflow = errors.New("integer overflow")

// IntToUint32 converts int to uint32 safely.
func IntToUint32(v int) (uint32, error) {
	if v < 0 || uint64(v) > math.MaxUint32 {
		return 0, fmt.Errorf("%w: %d does not fit uint32", ErrOverflow, v)
	}
	return uint32(v), nil
}

// Uint64ToInt converts uint64 to int safely.
func Uint64ToInt(v uint64) (int, error) {
	if v > uint64(math.MaxInt) {
		return 0, fmt.Errorf("%w: %d does not fit int", ErrOverflow, v)
	}
	return int(v), nil
}

// Uint32ToInt converts uint32 to int safely.
func Uint32ToInt(v uint32) (int, error) {
	if uint64(v) > uint64(math.MaxInt) {
		return 0, fmt.Errorf("%w: %d does not fit int", ErrOverflow, v)
	}
	return int(v), nil
}

// MulAdd returns a*b + c for non-negative operands, failing on overflow.
func MulAdd(a, b, c int) (int, error) {
	if a < 0 || b < 0 || c < 0 {
		return 0, fmt.Errorf("%w: negative operand", ErrOverflow)
	}
	if b != 0 && a > (math.MaxInt-c)/b {
		return 0, fmt.Errorf("%w: %d*%d+%d", ErrOverflow, a, b, c)
	}
	return a*b + c, nil
}
