package models

import "testing"

// TestMicrodegreesToDegrees tests whole-degree truncation
func TestMicrodegreesToDegrees(t *testing.T) {
	tests := []struct {
		name string
		in   uint64
		want uint64
	}{
		{name: "exact degrees", in: 102000000, want: 102},
		{name: "fraction truncated", in: 102971600, want: 102},
		{name: "below one degree", in: 999999, want: 0},
		{name: "zero", in: 0, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MicrodegreesToDegrees(tt.in); got != tt.want {
				t.Errorf("MicrodegreesToDegrees(%d) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

// TestHundredthsToDecimal tests whole-unit truncation of x100 quantities
func TestHundredthsToDecimal(t *testing.T) {
	tests := []struct {
		name string
		in   uint64
		want uint64
	}{
		{name: "exact units", in: 58000, want: 580},
		{name: "fraction truncated", in: 58099, want: 580},
		{name: "below one unit", in: 99, want: 0},
		{name: "zero", in: 0, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HundredthsToDecimal(tt.in); got != tt.want {
				t.Errorf("HundredthsToDecimal(%d) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}
