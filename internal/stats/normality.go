package stats

import (
	"math"
	"sort"

	"pairstat/domain/study"
	"pairstat/internal/errors"
)

// shapiroCoefficients are the Shapiro-Wilk weights for n=10, reused for every n
var shapiroCoefficients = [...]float64{0.5739, 0.3291, 0.2141, 0.1224, 0.0399}

// ShapiroWilk computes an abbreviated W from at most five symmetric order-statistic
// pairs. It is a screening heuristic, not the exact test.
func ShapiroWilk(xs []float64, dist Distributions) (study.Normality, error) {
	res := study.Normality{N: len(xs), Method: "shapiro_wilk_" + dist.Name()}
	n := len(xs)
	if n < 2 {
		return res, errors.Insufficient(2, n, "normality check")
	}

	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)

	mean, _ := Mean(sorted)
	ss := 0.0
	for _, x := range sorted {
		ss += (x - mean) * (x - mean)
	}
	if ss == 0 {
		return res, errors.Degenerate("normality check on a constant series")
	}

	pairs := n / 2
	if pairs > len(shapiroCoefficients) {
		pairs = len(shapiroCoefficients)
	}
	b := 0.0
	for i := 0; i < pairs; i++ {
		b += shapiroCoefficients[i] * (sorted[n-1-i] - sorted[i])
	}

	res.W = math.Max(0, math.Min(1, b*b/ss))
	res.P = dist.ShapiroWilkPValue(res.W, n)
	res.Outcome = study.OK()
	return res, nil
}
