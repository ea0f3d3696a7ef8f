package analysis

import (
	"math"
	"strings"
	"testing"
)

func TestDescribe(t *testing.T) {
	stats := Describe([]float64{5, 1, 4, 2, 3})

	if stats.N != 5 {
		t.Errorf("N = %d, want 5", stats.N)
	}
	if stats.Mean != 3 {
		t.Errorf("Mean = %f, want 3", stats.Mean)
	}
	if stats.Min != 1 || stats.Max != 5 {
		t.Errorf("Min, Max = %f, %f, want 1, 5", stats.Min, stats.Max)
	}
	if stats.Median != 3 {
		t.Errorf("Median = %f, want 3", stats.Median)
	}
	if want := math.Sqrt(2.5); math.Abs(stats.StdDev-want) > 1e-9 {
		t.Errorf("StdDev = %f, want %f", stats.StdDev, want)
	}
}

func TestDescribe_Small(t *testing.T) {
	if got := Describe(nil); got.N != 0 || got.Mean != 0 {
		t.Errorf("Describe(nil) = %+v, want zero", got)
	}
	one := Describe([]float64{7})
	if one.StdDev != 0 || one.Median != 7 {
		t.Errorf("Describe([7]) = %+v", one)
	}
}

func TestComputeEffectSize(t *testing.T) {
	tests := []struct {
		name    string
		sample1 []float64
		sample2 []float64
		want    string
	}{
		{
			name:    "identical samples",
			sample1: []float64{1, 2, 3, 4, 5},
			sample2: []float64{1, 2, 3, 4, 5},
			want:    "negligible",
		},
		{
			name:    "clearly different samples",
			sample1: []float64{1, 2, 3, 4, 5},
			sample2: []float64{10, 11, 12, 13, 14},
			want:    "large",
		},
		{
			name:    "too few samples",
			sample1: []float64{1},
			sample2: []float64{2},
			want:    "insufficient data",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeEffectSize(tt.sample1, tt.sample2)
			if got.Interpretation != tt.want {
				t.Errorf("Interpretation = %q, want %q (d=%f)", got.Interpretation, tt.want, got.CohensD)
			}
		})
	}
}

func TestCompare(t *testing.T) {
	c := Compare("1KiB", []float64{10, 11, 9}, "128KiB", []float64{20, 22, 18})

	if math.Abs(c.Speedup-2) > 1e-9 {
		t.Errorf("Speedup = %f, want 2", c.Speedup)
	}
	if c.EffectSize.CohensD <= 0 {
		t.Errorf("CohensD = %f, want positive", c.EffectSize.CohensD)
	}
	if s := c.Summary(); !strings.Contains(s, "128KiB is 2.00x 1KiB") {
		t.Errorf("Summary() = %q", s)
	}
}
