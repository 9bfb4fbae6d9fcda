package fitscore

import "testing"

func TestScore(t *testing.T) {
	tests := []struct {
		name string
		in   Inputs
		want float64
	}{
		{"perfect fit scores 100", Inputs{1, 1, 1, 1, 1}, 100},
		{"zero fit scores 0", Inputs{0, 0, 0, 0, 0}, 0},
		{"service match alone contributes 40", Inputs{ServiceMatch: 1}, 40},
		{"out-of-range inputs are clamped before weighting", Inputs{ServiceMatch: 2, BudgetFit: -1}, 40},
		{"tier boundary: 90 exactly is TIER_1", Inputs{ServiceMatch: 1, BudgetFit: 1, TimelineFit: 1, EntitySizeFit: 1, GeographyFit: 0}, 90},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Score(tt.in); got != tt.want {
				t.Errorf("Score(%+v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
