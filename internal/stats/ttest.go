package stats

import (
	"math"

	"pairstat/domain/study"
	"pairstat/internal/errors"
)

// differences returns a[i]-b[i]
func differences(a, b []float64) ([]float64, error) {
	if len(a) != len(b) {
		return nil, errors.InvalidInput("paired series must have equal length")
	}
	d := make([]float64, len(a))
	for i := range a {
		d[i] = a[i] - b[i]
	}
	return d, nil
}

// PairedT runs a paired t-test on a and b
func PairedT(a, b []float64, dist Distributions) (study.PairedTTest, error) {
	res := study.PairedTTest{N: len(a)}
	d, err := differences(a, b)
	if err != nil {
		return res, err
	}
	if len(d) < 2 {
		return res, errors.Insufficient(2, len(d), "paired t-test")
	}

	res.MeanDiff, _ = Mean(d)
	res.SDDiff, _ = SampleStd(d)
	res.DF = len(d) - 1
	if res.SDDiff == 0 {
		return res, errors.Degenerate("paired t-test: differences have zero variance")
	}

	res.T = res.MeanDiff / (res.SDDiff / math.Sqrt(float64(len(d))))
	if !finite(res.T) || !finite(res.SDDiff) {
		return study.PairedTTest{N: len(a), DF: len(d) - 1}, errors.Degenerate("paired t-test: statistic is not finite")
	}
	res.P = dist.PairedTPValue(res.T, len(d))
	return res, nil
}

// CohensDPaired is mean(d) over the population (divide-by-n) SD of d
func CohensDPaired(a, b []float64) (float64, error) {
	d, err := differences(a, b)
	if err != nil {
		return 0, err
	}
	if len(d) < 2 {
		return 0, errors.Insufficient(2, len(d), "Cohen's d")
	}
	mean, _ := Mean(d)
	sd, _ := PopulationStd(d)
	if sd == 0 {
		return 0, errors.Degenerate("Cohen's d: differences have zero variance")
	}
	if d := mean / sd; finite(d) {
		return d, nil
	}
	return 0, errors.Degenerate("Cohen's d is not finite")
}
