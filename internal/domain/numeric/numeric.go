// Package numeric implements the ledger's fixed-width arithmetic policy.
// Monetary sums and counters use checked operations that fail with
// ledgererr.ErrMathOverflow. Bounded scores use saturating operations.
package numeric

import (
	"math/bits"

	"github.com/bibbank/microloan/internal/domain/ledgererr"
)

// Unsigned is the set of fixed-width unsigned integer types stored in records.
type Unsigned interface {
	~uint8 | ~uint16 | ~uint32 | ~uint64
}

// CheckedAdd returns a+b or ErrMathOverflow if the result does not fit in T.
func CheckedAdd[T Unsigned](a, b T) (T, error) {
	s := a + b
	if s < a {
		return 0, ledgererr.ErrMathOverflow
	}
	return s, nil
}

// CheckedSub returns a-b or ErrMathOverflow if b > a.
func CheckedSub[T Unsigned](a, b T) (T, error) {
	if b > a {
		return 0, ledgererr.ErrMathOverflow
	}
	return a - b, nil
}

// CheckedMul returns a*b or ErrMathOverflow if the product does not fit in T.
func CheckedMul[T Unsigned](a, b T) (T, error) {
	if a == 0 || b == 0 {
		return 0, nil
	}
	p := a * b
	if p/a != b {
		return 0, ledgererr.ErrMathOverflow
	}
	return p, nil
}

// SaturatingAdd returns a+b, or the maximum value of T on overflow.
func SaturatingAdd[T Unsigned](a, b T) T {
	s := a + b
	if s < a {
		return ^T(0)
	}
	return s
}

// SaturatingSub returns a-b, or zero if b > a.
func SaturatingSub[T Unsigned](a, b T) T {
	if b > a {
		return 0
	}
	return a - b
}

// SaturatingMul returns a*b, or the maximum value of T on overflow.
func SaturatingMul[T Unsigned](a, b T) T {
	p, err := CheckedMul(a, b)
	if err != nil {
		return ^T(0)
	}
	return p
}

// Clamp bounds v to [lo, hi].
func Clamp[T Unsigned](v, lo, hi T) T {
	switch {
	case v < lo:
		return lo
	case v > hi:
		return hi
	default:
		return v
	}
}

// MulDiv computes floor(a*b/d) using a 128-bit intermediate product, failing
// only when the final quotient does not fit in 64 bits.
func MulDiv(a, b, d uint64) (uint64, error) {
	if d == 0 {
		return 0, ledgererr.Newf(ledgererr.KindMathOverflow, "division by zero")
	}
	hi, lo := bits.Mul64(a, b)
	if hi >= d {
		return 0, ledgererr.ErrMathOverflow
	}
	q, _ := bits.Div64(hi, lo, d)
	return q, nil
}
