package core

import (
	"math"
	"testing"
)

func TestParseDecimal(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		missing bool
	}{
		{in: "1,25", want: 1.25},
		{in: " 7,5 ", want: 7.5},
		{in: "12", want: 12},
		{in: "-0,5", want: -0.5},
		{in: "0.9", want: 0.9},
		{in: "", missing: true},
		{in: "   ", missing: true},
		{in: "n.b.", missing: true},
		{in: "<0,1", missing: true},
		{in: "NaN", missing: true},
		{in: "Inf", missing: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := ParseDecimal(tt.in)
			if tt.missing {
				if !IsMissing(got) {
					t.Errorf("ParseDecimal(%q) = %v, want missing", tt.in, got)
				}
				return
			}
			if got != tt.want {
				t.Errorf("ParseDecimal(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestFormatDecimal(t *testing.T) {
	tests := []struct {
		v      float64
		places int
		want   string
	}{
		{1.004, 2, "1,00"},
		{1.005, 2, "1,01"},
		{1.114, 2, "1,11"},
		{0.9, 2, "0,90"},
		{25.25, 1, "25,3"},
		{12, 1, "12,0"},
		{math.NaN(), 2, ""},
	}

	for _, tt := range tests {
		if got := FormatDecimal(tt.v, tt.places); got != tt.want {
			t.Errorf("FormatDecimal(%v, %d) = %q, want %q", tt.v, tt.places, got, tt.want)
		}
	}
}

func TestRoundHalfUp(t *testing.T) {
	tests := []struct {
		v    float64
		want float64
	}{
		{1.004, 1.00},
		{1.005, 1.01},
		{1.114, 1.11},
		{1.095, 1.10},
		{0.895, 0.90},
		{1.10499999999, 1.10},
		{1.105, 1.11},
		{0.8949999999, 0.89},
		{2.5, 2.5},
		{-1.005, -1.01},
		{99.999, 100.00},
	}

	for _, tt := range tests {
		if got := roundHalfUp(tt.v, 2); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("roundHalfUp(%v) = %v, want %v", tt.v, got, tt.want)
		}
	}
}
