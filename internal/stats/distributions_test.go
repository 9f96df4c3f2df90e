package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForName(t *testing.T) {
	d, err := ForName("")
	require.NoError(t, err)
	assert.Equal(t, ApproximateName, d.Name())

	d, err = ForName(" EXACT ")
	require.NoError(t, err)
	assert.Equal(t, ExactName, d.Name())

	_, err = ForName("bayesian")
	assert.Error(t, err)
}

func TestApproxNormalCDF(t *testing.T) {
	assert.InDelta(t, 0.5, approxNormalCDF(0), 1e-6)
	assert.InDelta(t, 0.975, approxNormalCDF(1.959964), 1e-6)
	assert.InDelta(t, 0.025, approxNormalCDF(-1.959964), 1e-6)
}

func TestApproximateAndExactNormalAgree(t *testing.T) {
	for _, z := range []float64{0, 0.5, 1.2, 1.96, 2.5, -3} {
		assert.InDelta(t, Exact{}.NormalTwoTailed(z), Approximate{}.NormalTwoTailed(z), 1e-6, "z=%v", z)
	}
}

func TestShapiroLadder(t *testing.T) {
	a := Approximate{}
	assert.Equal(t, 0.7, a.ShapiroWilkPValue(0.96, 10))
	assert.Equal(t, 0.2, a.ShapiroWilkPValue(0.95, 10))
	assert.Equal(t, 0.05, a.ShapiroWilkPValue(0.9, 10))
	assert.Equal(t, 0.01, a.ShapiroWilkPValue(0.85, 10))
}

func TestExactChiSquareTwoDF(t *testing.T) {
	// with two degrees of freedom the survival function is exp(-x/2)
	assert.InDelta(t, math.Exp(-3.2/2), Exact{}.ChiSquarePValue(3.2, 2), 1e-9)
	assert.Equal(t, 1.0, Exact{}.ChiSquarePValue(3.2, 0))
}

func TestExactStudentsTIsWiderThanNormal(t *testing.T) {
	exact := Exact{}.PairedTPValue(2.5, 5)
	normal := Exact{}.NormalTwoTailed(2.5)
	assert.Greater(t, exact, normal)
	assert.Equal(t, 1.0, Exact{}.PairedTPValue(2.5, 1))
}

func TestExactShapiroMonotone(t *testing.T) {
	e := Exact{}
	for _, n := range []int{3, 8, 20} {
		low := e.ShapiroWilkPValue(0.80, n)
		high := e.ShapiroWilkPValue(0.97, n)
		assert.Less(t, low, high, "n=%d", n)
		assert.GreaterOrEqual(t, low, 0.0)
		assert.LessOrEqual(t, high, 1.0)
	}
	assert.Equal(t, 1.0, e.ShapiroWilkPValue(1, 10))
}
