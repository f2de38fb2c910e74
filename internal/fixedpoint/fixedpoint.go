// Package fixedpoint implements deterministic fixed-point arithmetic with
// 9 decimal places (scale 1e9), including the exp/ln approximations the
// pricing model is built on.
//
// Every value is an integer scaled by Scale. All intermediate products go
// through 128-bit arithmetic with explicit overflow checks: outputs gate
// fund transfers, so results must be identical on every platform and an
// overflow must surface as an error, never wrap.
package fixedpoint

import (
	"errors"
	"math"
	"math/bits"
)

// Scale is the fixed-point scale factor (9 decimal places).
const Scale uint64 = 1_000_000_000

// Scale2 is Scale squared; fits in a uint64.
const Scale2 uint64 = Scale * Scale

// Ln2 is ln(2) scaled by Scale.
const Ln2 uint64 = 693_147_181

// MaxExpInput bounds |x| for Exp. Beyond this the scaled result cannot fit
// in a uint64 (exp(22) * 1e9 ≈ 3.6e18).
const MaxExpInput uint64 = 22 * Scale

const (
	// maxIterations caps every series so termination never depends on
	// convergence alone.
	maxIterations = 20

	// epsConverge stops a series once the next term is below 1e-6 in real
	// terms (1000 scaled units).
	epsConverge = 1000
)

var (
	// ErrOverflow is returned when a checked operation would overflow or an
	// input is outside the representable range.
	ErrOverflow = errors.New("fixedpoint: overflow")

	// ErrLnDomain is returned when Ln is called with x < 1.0 (scaled).
	ErrLnDomain = errors.New("fixedpoint: ln domain: x must be >= 1.0")
)

// MulDiv returns a*b/den computed with a 128-bit intermediate product and
// floor rounding. Fails with ErrOverflow when den is zero or the quotient
// does not fit in a uint64.
func MulDiv(a, b, den uint64) (uint64, error) {
	hi, lo := bits.Mul64(a, b)
	if den == 0 || hi >= den {
		return 0, ErrOverflow
	}
	quo, _ := bits.Div64(hi, lo, den)
	return quo, nil
}

// MulDivCeil is MulDiv with ceiling rounding.
func MulDivCeil(a, b, den uint64) (uint64, error) {
	hi, lo := bits.Mul64(a, b)
	if den == 0 || hi >= den {
		return 0, ErrOverflow
	}
	quo, rem := bits.Div64(hi, lo, den)
	if rem > 0 {
		if quo == math.MaxUint64 {
			return 0, ErrOverflow
		}
		quo++
	}
	return quo, nil
}

// Add returns a+b or ErrOverflow.
func Add(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, ErrOverflow
	}
	return sum, nil
}

// Mul returns a*b or ErrOverflow.
func Mul(a, b uint64) (uint64, error) {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 {
		return 0, ErrOverflow
	}
	return lo, nil
}

// Exp computes e^x for a scaled signed input.
//
// For x >= 0 the input is range-reduced to x = k*ln2 + r with r in [0, ln2);
// e^r comes from the Taylor series and the final result is e^r shifted left
// by k bits. For x < 0 it returns Scale²/e^|x|, which underflows to zero for
// large magnitudes.
func Exp(x int64) (uint64, error) {
	if x >= 0 {
		return expPos(uint64(x))
	}
	y := uint64(-x)
	if y > MaxExpInput {
		// e^-y is below one scaled unit long before the input bound.
		return 0, nil
	}
	ey, err := expPos(y)
	if err != nil {
		return 0, err
	}
	return MulDiv(Scale, Scale, ey)
}

func expPos(x uint64) (uint64, error) {
	if x > MaxExpInput {
		return 0, ErrOverflow
	}
	if x == 0 {
		return Scale, nil
	}

	k := x / Ln2
	r := x - k*Ln2

	er, err := expTaylor(r)
	if err != nil {
		return 0, err
	}

	if k >= 64 || er > math.MaxUint64>>k {
		return 0, ErrOverflow
	}
	return er << k, nil
}

// expTaylor evaluates e^r for r in [0, ln2) via 1 + r + r²/2! + r³/3! + ...
func expTaylor(r uint64) (uint64, error) {
	sum := Scale
	term := Scale
	for n := uint64(1); n <= maxIterations; n++ {
		t, err := MulDiv(term, r, Scale)
		if err != nil {
			return 0, err
		}
		term = t / n
		sum, err = Add(sum, term)
		if err != nil {
			return 0, err
		}
		if term < epsConverge {
			break
		}
	}
	return sum, nil
}

// Ln computes the natural logarithm of a scaled input x >= Scale.
//
// x is normalised to v*2^k with v in [1, 2); ln(v) is evaluated through the
// atanh series ln(v) = 2*(z + z³/3 + z⁵/5 + ...) with z = (v-1)/(v+1), then
// k*ln2 is added back.
func Ln(x uint64) (uint64, error) {
	if x < Scale {
		return 0, ErrLnDomain
	}
	if x == Scale {
		return 0, nil
	}

	k := uint64(0)
	v := x
	for v >= 2*Scale {
		v /= 2
		k++
	}

	// z = (v - 1) / (v + 1), scaled; z < 1/3 for v in [1, 2).
	z, err := MulDiv(v-Scale, Scale, v+Scale)
	if err != nil {
		return 0, err
	}

	zsq, err := MulDiv(z, z, Scale)
	if err != nil {
		return 0, err
	}

	sum := z
	term := z
	for n := uint64(3); n <= 2*maxIterations+1; n += 2 {
		term, err = MulDiv(term, zsq, Scale)
		if err != nil {
			return 0, err
		}
		add := term / n
		sum, err = Add(sum, add)
		if err != nil {
			return 0, err
		}
		if add < epsConverge {
			break
		}
	}

	lnV, err := Mul(sum, 2)
	if err != nil {
		return 0, err
	}
	return Add(lnV, k*Ln2)
}
