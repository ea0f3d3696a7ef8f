package analysis

import "fmt"

// Comparison contrasts the throughput samples of two configurations.
type Comparison struct {
	Baseline   string
	Candidate  string
	Stats1     *DescriptiveStats
	Stats2     *DescriptiveStats
	EffectSize *EffectSize
	// Speedup is the candidate's mean throughput over the baseline's.
	Speedup float64
}

// Compare compares throughput samples; higher is better.
func Compare(baseline string, sample1 []float64, candidate string, sample2 []float64) *Comparison {
	s1, s2 := Describe(sample1), Describe(sample2)
	c := &Comparison{
		Baseline:   baseline,
		Candidate:  candidate,
		Stats1:     s1,
		Stats2:     s2,
		EffectSize: ComputeEffectSize(sample1, sample2),
	}
	if s1.Mean > 0 {
		c.Speedup = s2.Mean / s1.Mean
	}
	return c
}

// Summary returns a one-line description of the comparison.
func (c *Comparison) Summary() string {
	return fmt.Sprintf("%s is %.2fx %s (Cohen's d = %.2f, %s)",
		c.Candidate, c.Speedup, c.Baseline, c.EffectSize.CohensD, c.EffectSize.Interpretation)
}
