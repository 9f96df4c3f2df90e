package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"pairstat/internal/errors"
)

// Spearman correlates the rank series of x and y. Ties are not averaged: every
// member of a tie group takes the lowest rank of the group. Wilcoxon does
// average ties, and the two are kept apart on purpose.
func Spearman(x, y []float64) (float64, error) {
	if len(x) != len(y) {
		return 0, errors.InvalidInput("correlation series must have equal length")
	}
	if len(x) < 2 {
		return 0, errors.Insufficient(2, len(x), "Spearman correlation")
	}
	if constant(x) || constant(y) {
		return 0, errors.Degenerate("Spearman correlation: constant series")
	}

	rho := stat.Correlation(lowRanks(x), lowRanks(y), nil)
	if math.IsNaN(rho) {
		return 0, errors.Degenerate("Spearman correlation: undefined")
	}
	return math.Max(-1, math.Min(1, rho)), nil
}

// lowRanks assigns 1 to the smallest value; equal values share the first
// position at which their value appears in sorted order.
func lowRanks(xs []float64) []float64 {
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)

	ranks := make([]float64, len(xs))
	for i, v := range xs {
		ranks[i] = float64(sort.SearchFloat64s(sorted, v) + 1)
	}
	return ranks
}

func constant(xs []float64) bool {
	for _, v := range xs[1:] {
		if v != xs[0] {
			return false
		}
	}
	return true
}
