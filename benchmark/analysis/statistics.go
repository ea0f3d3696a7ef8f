// Package analysis summarizes repeated benchmark measurements.
package analysis

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/stat"
)

// DescriptiveStats summarizes a sample.
type DescriptiveStats struct {
	N      int
	Mean   float64
	StdDev float64
	Min    float64
	Max    float64
	Median float64
	P90    float64
}

// Describe computes descriptive statistics for samples. An empty sample
// yields the zero value.
func Describe(samples []float64) *DescriptiveStats {
	if len(samples) == 0 {
		return &DescriptiveStats{}
	}

	sorted := slices.Clone(samples)
	slices.Sort(sorted)

	mean := stat.Mean(sorted, nil)
	var stdDev float64
	if len(sorted) > 1 {
		stdDev = stat.StdDev(sorted, nil)
	}

	return &DescriptiveStats{
		N:      len(sorted),
		Mean:   mean,
		StdDev: stdDev,
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		Median: stat.Quantile(0.5, stat.Empirical, sorted, nil),
		P90:    stat.Quantile(0.9, stat.Empirical, sorted, nil),
	}
}

// EffectSize is Cohen's d between two samples.
type EffectSize struct {
	CohensD        float64
	Interpretation string
}

// ComputeEffectSize returns Cohen's d of sample2 relative to sample1 using
// the pooled standard deviation.
func ComputeEffectSize(sample1, sample2 []float64) *EffectSize {
	n1, n2 := float64(len(sample1)), float64(len(sample2))
	if n1 < 2 || n2 < 2 {
		return &EffectSize{Interpretation: "insufficient data"}
	}

	mean1, var1 := stat.MeanVariance(sample1, nil)
	mean2, var2 := stat.MeanVariance(sample2, nil)
	pooled := math.Sqrt(((n1-1)*var1 + (n2-1)*var2) / (n1 + n2 - 2))

	var d float64
	if pooled > 0 {
		d = (mean2 - mean1) / pooled
	}
	return &EffectSize{CohensD: d, Interpretation: interpretCohensD(d)}
}

func interpretCohensD(d float64) string {
	switch d = math.Abs(d); {
	case d < 0.2:
		return "negligible"
	case d < 0.5:
		return "small"
	case d < 0.8:
		return "medium"
	default:
		return "large"
	}
}
