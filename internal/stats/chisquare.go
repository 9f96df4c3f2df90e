package stats

import (
	"math"

	"pairstat/domain/study"
	"pairstat/internal/errors"
)

// ChiSquareGOF compares observed against expected frequencies. Cells with a
// non-positive expectation are skipped rather than counted as infinite.
func ChiSquareGOF(labels []string, observed, expected []float64, dist Distributions) (study.GoodnessOfFit, error) {
	res := study.GoodnessOfFit{
		Labels:   labels,
		Observed: observed,
		Expected: expected,
	}
	if len(observed) != len(expected) {
		return res, errors.InvalidInput("observed and expected must have equal length")
	}
	k := len(observed)
	if k < 2 {
		return res, errors.Insufficient(2, k, "chi-square goodness-of-fit categories")
	}

	chiSq := 0.0
	for i := range observed {
		if expected[i] <= 0 {
			continue
		}
		diff := observed[i] - expected[i]
		chiSq += diff * diff / expected[i]
	}
	if math.IsInf(chiSq, 0) || math.IsNaN(chiSq) {
		return res, errors.Degenerate("chi-square statistic is not finite")
	}
	res.ChiSq = chiSq
	res.DF = k - 1
	res.P = dist.ChiSquarePValue(res.ChiSq, res.DF)
	res.Outcome = study.OK()
	return res, nil
}
