package core

import (
	"math"
	"testing"
)

func TestSaturatingArithmetic(t *testing.T) {
	const max = math.MaxUint64

	tests := []struct {
		name     string
		got      uint64
		expected uint64
	}{
		{"add", SatAdd(2, 3), 5},
		{"add clamps", SatAdd(max, 1), max},
		{"add clamps large", SatAdd(max-1, max-1), max},
		{"sub", SatSub(5, 3), 2},
		{"sub clamps at zero", SatSub(3, 5), 0},
		{"mul", SatMul(6, 7), 42},
		{"mul by zero", SatMul(max, 0), 0},
		{"mul clamps", SatMul(max, 2), max},
		{"mul clamps at boundary", SatMul(1<<32, 1<<32), max},
		{"mul just fits", SatMul(1<<32, (1<<32)-1), (1 << 64) - (1 << 32)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.got != tc.expected {
				t.Errorf("got %d, expected %d", tc.got, tc.expected)
			}
		})
	}
}

func TestCheckedAdd(t *testing.T) {
	if sum, ok := CheckedAdd(40, 2); !ok || sum != 42 {
		t.Errorf("CheckedAdd(40, 2) = (%d, %v), expected (42, true)", sum, ok)
	}
	if sum, ok := CheckedAdd(math.MaxUint64, 0); !ok || sum != math.MaxUint64 {
		t.Errorf("CheckedAdd(max, 0) = (%d, %v), expected (max, true)", sum, ok)
	}
	if _, ok := CheckedAdd(math.MaxUint64, 1); ok {
		t.Error("CheckedAdd(max, 1) should report overflow")
	}
}

func TestClampU64(t *testing.T) {
	tests := []struct {
		val, min, max, expected uint64
	}{
		{0, 1, 20, 1},
		{1, 1, 20, 1},
		{7, 1, 20, 7},
		{20, 1, 20, 20},
		{1000, 1, 20, 20},
	}

	for _, tc := range tests {
		if got := ClampU64(tc.val, tc.min, tc.max); got != tc.expected {
			t.Errorf("ClampU64(%d, %d, %d) = %d, expected %d", tc.val, tc.min, tc.max, got, tc.expected)
		}
	}
}
