package stats

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/stat/distuv"
)

// Distributions turns test statistics into p-values. The analysis pipeline only
// talks to this interface so the coarse approximations can be replaced by exact
// distributions without touching the orchestrator.
type Distributions interface {
	Name() string
	// NormalTwoTailed returns the two-tailed p for a standard normal score
	NormalTwoTailed(z float64) float64
	// PairedTPValue returns the two-tailed p for a paired t statistic over n pairs
	PairedTPValue(t float64, n int) float64
	// ShapiroWilkPValue maps a W statistic over n observations to a p-value
	ShapiroWilkPValue(w float64, n int) float64
	// ChiSquarePValue returns the upper-tail p for a chi-square statistic
	ChiSquarePValue(chiSq float64, df int) float64
}

const (
	ApproximateName = "approximate"
	ExactName       = "exact"
)

// ForName resolves a distributions implementation from configuration
func ForName(name string) (Distributions, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", ApproximateName:
		return Approximate{}, nil
	case ExactName:
		return Exact{}, nil
	default:
		return nil, fmt.Errorf("unknown distributions %q (want %s or %s)", name, ApproximateName, ExactName)
	}
}

// Approximate reproduces the reference report's numbers: a polynomial normal
// CDF, a normal stand-in for Student's t, and step ladders for Shapiro-Wilk and
// chi-square. Its p-values are coarse and must not be presented as exact.
type Approximate struct{}

func (Approximate) Name() string { return ApproximateName }

func (Approximate) NormalTwoTailed(z float64) float64 {
	return clampProbability(2 * (1 - approxNormalCDF(math.Abs(z))))
}

func (a Approximate) PairedTPValue(t float64, n int) float64 {
	if n < 2 {
		return 1
	}
	nf := float64(n)
	return a.NormalTwoTailed(math.Abs(t) * math.Sqrt(nf/(nf-1)))
}

func (Approximate) ShapiroWilkPValue(w float64, _ int) float64 {
	switch {
	case w > 0.95:
		return 0.7
	case w > 0.90:
		return 0.2
	case w > 0.85:
		return 0.05
	default:
		return 0.01
	}
}

func (Approximate) ChiSquarePValue(chiSq float64, _ int) float64 {
	switch {
	case chiSq > 9.21:
		return 0.01
	case chiSq > 5.99:
		return 0.05
	case chiSq > 4.61:
		return 0.1
	default:
		return 0.2
	}
}

// approxNormalCDF is Abramowitz & Stegun 26.2.17 (|error| < 7.5e-8)
func approxNormalCDF(x float64) float64 {
	t := 1 / (1 + 0.2316419*math.Abs(x))
	d := 0.3989423 * math.Exp(-x*x/2)
	p := d * t * (0.3193815 + t*(-0.3565638+t*(1.781478+t*(-1.821256+t*1.330274))))
	if x > 0 {
		return 1 - p
	}
	return p
}

// Exact uses gonum distributions. The Shapiro-Wilk W fed to it still comes from
// the abbreviated coefficient table, so its p is only as good as that W.
type Exact struct{}

func (Exact) Name() string { return ExactName }

func (Exact) NormalTwoTailed(z float64) float64 {
	return clampProbability(2 * distuv.UnitNormal.Survival(math.Abs(z)))
}

func (Exact) PairedTPValue(t float64, n int) float64 {
	if n < 2 {
		return 1
	}
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(n - 1)}
	return clampProbability(2 * dist.Survival(math.Abs(t)))
}

// ShapiroWilkPValue applies Royston's (1992) normalising transformation
func (Exact) ShapiroWilkPValue(w float64, n int) float64 {
	if n < 3 || w >= 1 {
		return 1
	}
	if w <= 0 {
		return 0
	}
	nf := float64(n)
	if n == 3 {
		p := 6 / math.Pi * (math.Asin(math.Sqrt(w)) - math.Asin(math.Sqrt(0.75)))
		return clampProbability(p)
	}

	var z float64
	if n <= 11 {
		gamma := 0.459*nf - 2.273
		inner := gamma - math.Log(1-w)
		if inner <= 0 {
			return 0
		}
		m := 0.5440 - 0.39978*nf + 0.025054*nf*nf - 0.0006714*nf*nf*nf
		s := math.Exp(1.3822 - 0.77857*nf + 0.062767*nf*nf - 0.0020322*nf*nf*nf)
		z = (-math.Log(inner) - m) / s
	} else {
		u := math.Log(nf)
		m := -1.5861 - 0.31082*u - 0.083751*u*u + 0.0038915*u*u*u
		s := math.Exp(-0.4803 - 0.082676*u + 0.0030302*u*u)
		z = (math.Log(1-w) - m) / s
	}
	return clampProbability(distuv.UnitNormal.Survival(z))
}

func (Exact) ChiSquarePValue(chiSq float64, df int) float64 {
	if df <= 0 {
		return 1
	}
	return clampProbability(distuv.ChiSquared{K: float64(df)}.Survival(chiSq))
}

func clampProbability(p float64) float64 {
	if math.IsNaN(p) {
		return 1
	}
	return math.Max(0, math.Min(1, p))
}
