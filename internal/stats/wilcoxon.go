package stats

import (
	"math"
	"sort"

	"pairstat/domain/study"
	"pairstat/internal/errors"
)

// zeroTolerance separates a zero difference and a tie from a real gap
const zeroTolerance = 1e-10

// WilcoxonSignedRank tests paired samples without a normality assumption.
// Zero differences are dropped, tied magnitudes share their midrank and z gets a
// 0.5 continuity correction toward the mean.
func WilcoxonSignedRank(a, b []float64, dist Distributions) (study.WilcoxonTest, error) {
	d, err := differences(a, b)
	if err != nil {
		return study.WilcoxonTest{}, err
	}

	nonZero := make([]float64, 0, len(d))
	for _, v := range d {
		if math.Abs(v) >= zeroTolerance {
			nonZero = append(nonZero, v)
		}
	}
	n := len(nonZero)
	if n == 0 {
		return study.WilcoxonTest{W: 0, Z: 0, P: 1, N: 0}, nil
	}

	ranks := absMidranks(nonZero)
	wPlus := 0.0
	for i, v := range nonZero {
		if v > 0 {
			wPlus += ranks[i]
		}
	}

	nf := float64(n)
	expected := nf * (nf + 1) / 4
	variance := nf * (nf + 1) * (2*nf + 1) / 24

	diff := wPlus - expected
	z := (diff - sign(diff)*0.5) / math.Sqrt(variance)

	return study.WilcoxonTest{
		W: wPlus,
		Z: z,
		P: dist.NormalTwoTailed(z),
		N: n,
	}, nil
}

// EffectSizeR is z/sqrt(N) where N is the full paired length, zeros included
func EffectSizeR(z float64, pairs int) (float64, error) {
	if pairs < 1 {
		return 0, errors.Insufficient(1, pairs, "rank effect size")
	}
	return z / math.Sqrt(float64(pairs)), nil
}

// absMidranks ranks |values| ascending, averaging ranks across tied magnitudes
func absMidranks(values []float64) []float64 {
	idx := make([]int, len(values))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool {
		return math.Abs(values[idx[i]]) < math.Abs(values[idx[j]])
	})

	ranks := make([]float64, len(values))
	for i := 0; i < len(idx); {
		j := i + 1
		for j < len(idx) && math.Abs(values[idx[j]])-math.Abs(values[idx[j-1]]) < zeroTolerance {
			j++
		}
		// positions i..j-1 hold ranks i+1..j
		mid := float64(i+1+j) / 2
		for k := i; k < j; k++ {
			ranks[idx[k]] = mid
		}
		i = j
	}
	return ranks
}

func sign(x float64) float64 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return 0
	}
}
