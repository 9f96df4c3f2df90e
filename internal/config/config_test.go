package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pairstat/internal/errors"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"DATABASE_URL", "PORT", "TIME_BUDGET_SECONDS", "CONDITION_A", "CONDITION_B",
		"STATS_DISTRIBUTIONS", "NORMALITY_ALPHA", "CATEGORIES"} {
		t.Setenv(k, "")
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.Database.Enabled())
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 120.0, cfg.Analysis.TimeBudgetSeconds)
	assert.Equal(t, "C1", cfg.Analysis.ConditionA)
	assert.Equal(t, "C2", cfg.Analysis.ConditionB)
	assert.Equal(t, "approximate", cfg.Analysis.Distributions)
	assert.Equal(t, 0.05, cfg.Analysis.NormalityAlpha)
	assert.Nil(t, cfg.Analysis.Categories)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/pairstat")
	t.Setenv("TIME_BUDGET_SECONDS", "90")
	t.Setenv("STATS_DISTRIBUTIONS", "exact")
	t.Setenv("CATEGORIES", "joy, calm ,,neutral")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.Database.Enabled())
	assert.Equal(t, 90.0, cfg.Analysis.TimeBudgetSeconds)
	assert.Equal(t, "exact", cfg.Analysis.Distributions)
	assert.Equal(t, []string{"joy", "calm", "neutral"}, cfg.Analysis.Categories)
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Setenv("CONDITION_A", "same")
	t.Setenv("CONDITION_B", "same")
	_, err := Load()
	require.Error(t, err)
	assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
}

func TestLoadRejectsUnknownDistributions(t *testing.T) {
	t.Setenv("STATS_DISTRIBUTIONS", "bootstrap")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsBadPortAndAlpha(t *testing.T) {
	t.Setenv("PORT", "http")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Port")

	t.Setenv("PORT", "9000")
	t.Setenv("NORMALITY_ALPHA", "1.5")
	_, err = Load()
	require.Error(t, err)
	assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
}
