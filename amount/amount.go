// Package amount implements the checked value arithmetic used for fees,
// revenue accumulators and counters. Every function either returns an exact
// result or an arithmetic error; nothing wraps around.
package amount

import (
	"math/bits"

	"github.com/teranos/exchainge/errors"
)

// BPSDenominator is the number of basis points in the whole.
const BPSDenominator uint64 = 10_000

var (
	// ErrOverflow is returned when a result does not fit in 64 bits.
	ErrOverflow = errors.Reason("arithmetic_overflow", errors.ErrArithmetic, "arithmetic overflow")

	// ErrDivisionByZero is returned for a zero denominator.
	ErrDivisionByZero = errors.Reason("division_by_zero", errors.ErrArithmetic, "division by zero")
)

// SplitFee divides total into a fee of floor(total*feeBps/denom) and the
// remainder. fee+remainder == total always holds; truncation favours the
// remainder holder. It fails when total*feeBps exceeds 64 bits, when
// denom is zero, or when feeBps > denom (the fee would exceed the total).
func SplitFee(total, feeBps, denom uint64) (fee, remainder uint64, err error) {
	if denom == 0 {
		return 0, 0, errors.WithStack(ErrDivisionByZero)
	}
	hi, lo := bits.Mul64(total, feeBps)
	if hi != 0 {
		return 0, 0, errors.Wrapf(ErrOverflow, "%d * %d bps", total, feeBps)
	}
	fee = lo / denom
	if fee > total {
		return 0, 0, errors.Wrapf(ErrOverflow, "fee %d exceeds total %d", fee, total)
	}
	return fee, total - fee, nil
}

// Add returns a+b or ErrOverflow.
func Add(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, errors.Wrapf(ErrOverflow, "%d + %d", a, b)
	}
	return sum, nil
}

// Mul returns a*b or ErrOverflow.
func Mul(a, b uint64) (uint64, error) {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 {
		return 0, errors.Wrapf(ErrOverflow, "%d * %d", a, b)
	}
	return lo, nil
}

// Inc returns n+1 or ErrOverflow.
func Inc(n uint64) (uint64, error) {
	return Add(n, 1)
}
