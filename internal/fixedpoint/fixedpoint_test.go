package fixedpoint_test

import (
	"errors"
	"testing"

	"github.com/evetabi/settlement/internal/fixedpoint"
)

// absDiff returns |a-b| for uint64 inputs.
func absDiff(a, b uint64) uint64 {
	if a > b {
		return a - b
	}
	return b - a
}

// ── Exp ───────────────────────────────────────────────────────────────────────

func TestExp_KnownValues(t *testing.T) {
	tests := []struct {
		name string
		x    int64
		want uint64 // scaled
		tol  uint64
	}{
		{"e^0 = 1", 0, fixedpoint.Scale, 0},
		{"e^1", int64(fixedpoint.Scale), 2_718_281_828, 500_000},
		{"e^2", 2 * int64(fixedpoint.Scale), 7_389_056_099, 2_000_000},
		{"e^0.5", int64(fixedpoint.Scale) / 2, 1_648_721_271, 500_000},
		{"e^-1", -int64(fixedpoint.Scale), 367_879_441, 500_000},
		{"e^-2", -2 * int64(fixedpoint.Scale), 135_335_283, 500_000},
		{"e^10", 10 * int64(fixedpoint.Scale), 22_026_465_794_806, 50_000_000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := fixedpoint.Exp(tt.x)
			if err != nil {
				t.Fatalf("Exp(%d) error: %v", tt.x, err)
			}
			if absDiff(got, tt.want) > tt.tol {
				t.Errorf("Exp(%d) = %d, want %d ± %d", tt.x, got, tt.want, tt.tol)
			}
		})
	}
}

func TestExp_InputBound(t *testing.T) {
	if _, err := fixedpoint.Exp(int64(fixedpoint.MaxExpInput) + 1); !errors.Is(err, fixedpoint.ErrOverflow) {
		t.Errorf("Exp above MaxExpInput should fail with ErrOverflow, got %v", err)
	}
	// Large negative inputs underflow to zero rather than failing.
	got, err := fixedpoint.Exp(-int64(fixedpoint.MaxExpInput) - 1)
	if err != nil || got != 0 {
		t.Errorf("Exp(very negative) = (%d, %v), want (0, nil)", got, err)
	}
}

func TestExp_Deterministic(t *testing.T) {
	first, err := fixedpoint.Exp(1_234_567_890)
	if err != nil {
		t.Fatalf("Exp: %v", err)
	}
	for i := 0; i < 100; i++ {
		got, err := fixedpoint.Exp(1_234_567_890)
		if err != nil || got != first {
			t.Fatalf("Exp not deterministic: run %d got (%d, %v), want %d", i, got, err, first)
		}
	}
}

// ── Ln ────────────────────────────────────────────────────────────────────────

func TestLn_KnownValues(t *testing.T) {
	tests := []struct {
		name string
		x    uint64
		want uint64
		tol  uint64
	}{
		{"ln(1) = 0", fixedpoint.Scale, 0, 0},
		{"ln(2)", 2 * fixedpoint.Scale, 693_147_181, 100_000},
		{"ln(e)", 2_718_281_828, fixedpoint.Scale, 100_000},
		{"ln(10)", 10 * fixedpoint.Scale, 2_302_585_093, 200_000},
		{"ln(100)", 100 * fixedpoint.Scale, 4_605_170_186, 200_000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := fixedpoint.Ln(tt.x)
			if err != nil {
				t.Fatalf("Ln(%d) error: %v", tt.x, err)
			}
			if absDiff(got, tt.want) > tt.tol {
				t.Errorf("Ln(%d) = %d, want %d ± %d", tt.x, got, tt.want, tt.tol)
			}
		})
	}
}

func TestLn_Domain(t *testing.T) {
	for _, x := range []uint64{0, 1, fixedpoint.Scale - 1} {
		if _, err := fixedpoint.Ln(x); !errors.Is(err, fixedpoint.ErrLnDomain) {
			t.Errorf("Ln(%d) should fail with ErrLnDomain, got %v", x, err)
		}
	}
}

func TestLnExp_RoundTrip(t *testing.T) {
	// ln(exp(x)) should recover x within series truncation error.
	for _, x := range []int64{100_000_000, 500_000_000, 1_000_000_000, 3_000_000_000, 7_500_000_000} {
		e, err := fixedpoint.Exp(x)
		if err != nil {
			t.Fatalf("Exp(%d): %v", x, err)
		}
		back, err := fixedpoint.Ln(e)
		if err != nil {
			t.Fatalf("Ln(Exp(%d)): %v", x, err)
		}
		if absDiff(back, uint64(x)) > 500_000 {
			t.Errorf("Ln(Exp(%d)) = %d, drift too large", x, back)
		}
	}
}

// ── Checked arithmetic ────────────────────────────────────────────────────────

func TestMulDiv(t *testing.T) {
	// Exact 128-bit intermediate: (1e18 * 7) / 1e9 = 7e9 without overflow.
	got, err := fixedpoint.MulDiv(1_000_000_000_000_000_000, 7, fixedpoint.Scale)
	if err != nil {
		t.Fatalf("MulDiv: %v", err)
	}
	if got != 7_000_000_000 {
		t.Errorf("MulDiv = %d, want 7000000000", got)
	}

	if _, err := fixedpoint.MulDiv(1, 1, 0); !errors.Is(err, fixedpoint.ErrOverflow) {
		t.Error("MulDiv by zero should fail with ErrOverflow")
	}
	// Quotient exceeding 64 bits must fail, not truncate.
	if _, err := fixedpoint.MulDiv(^uint64(0), ^uint64(0), 2); !errors.Is(err, fixedpoint.ErrOverflow) {
		t.Error("overflowing MulDiv should fail with ErrOverflow")
	}
}

func TestMulDivCeil(t *testing.T) {
	// 10/3 floors to 3, ceils to 4.
	floor, err := fixedpoint.MulDiv(10, 1, 3)
	if err != nil || floor != 3 {
		t.Fatalf("MulDiv(10,1,3) = (%d, %v), want 3", floor, err)
	}
	ceil, err := fixedpoint.MulDivCeil(10, 1, 3)
	if err != nil || ceil != 4 {
		t.Fatalf("MulDivCeil(10,1,3) = (%d, %v), want 4", ceil, err)
	}
	// Exact division must not round up.
	exact, err := fixedpoint.MulDivCeil(9, 1, 3)
	if err != nil || exact != 3 {
		t.Fatalf("MulDivCeil(9,1,3) = (%d, %v), want 3", exact, err)
	}
}

func TestAddMul_Overflow(t *testing.T) {
	if _, err := fixedpoint.Add(^uint64(0), 1); !errors.Is(err, fixedpoint.ErrOverflow) {
		t.Error("Add overflow should fail")
	}
	if _, err := fixedpoint.Mul(^uint64(0), 2); !errors.Is(err, fixedpoint.ErrOverflow) {
		t.Error("Mul overflow should fail")
	}
	if got, err := fixedpoint.Mul(3, 4); err != nil || got != 12 {
		t.Errorf("Mul(3,4) = (%d, %v), want 12", got, err)
	}
}
