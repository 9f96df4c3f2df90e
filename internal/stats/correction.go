package stats

import (
	"math"

	"pairstat/domain/study"
)

// Bonferroni multiplies p by the number of comparisons, capped at 1
func Bonferroni(p float64, comparisons int) float64 {
	if comparisons < 1 {
		comparisons = 1
	}
	return math.Min(p*float64(comparisons), 1)
}

// Classify tags a p-value against the 0.01 and 0.05 thresholds
func Classify(p float64) study.Significance {
	switch {
	case p < 0.01:
		return study.SigStrong
	case p < 0.05:
		return study.SigWeak
	default:
		return study.SigNone
	}
}
