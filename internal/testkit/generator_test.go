package testkit

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerator_Shape(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Participants = 5
	set := NewGenerator(cfg).Set()

	trials := set["trials"]
	require.NotNil(t, trials)
	assert.Len(t, trials.Rows, 5*2*cfg.TrialsPerCondition)
	assert.Len(t, set["covariates"].Rows, 5)

	for _, row := range trials.Rows {
		total := 0.0
		for _, c := range cfg.Categories {
			v, err := strconv.ParseFloat(row[c], 64)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, v, 0.0)
			total += v
		}
		assert.InDelta(t, cfg.TimeBudgetSeconds, total, 1e-9)
	}
}

func TestGenerator_Deterministic(t *testing.T) {
	cfg := DefaultConfig()
	a := NewGenerator(cfg).Set()
	b := NewGenerator(cfg).Set()
	assert.Equal(t, a["trials"].Fingerprint(), b["trials"].Fingerprint())
	assert.Equal(t, a["covariates"].Fingerprint(), b["covariates"].Fingerprint())

	cfg.Seed++
	c := NewGenerator(cfg).Set()
	assert.NotEqual(t, a["trials"].Fingerprint(), c["trials"].Fingerprint())
}

func TestGenerator_CovariateScale(t *testing.T) {
	for _, row := range NewGenerator(DefaultConfig()).Covariates().Rows {
		for _, col := range []string{"liking", "arousal"} {
			v, err := strconv.ParseFloat(row[col], 64)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, v, 1.0)
			assert.LessOrEqual(t, v, 7.0)
		}
	}
}
