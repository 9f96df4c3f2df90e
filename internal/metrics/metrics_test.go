package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"pairstat/domain/study"
)

func TestObserveReport(t *testing.T) {
	r := &study.Report{
		Mode:     study.ModeFull,
		MainTest: study.TestResult{Outcome: study.OK(), Kind: study.TestWilcoxon},
		Categories: []study.CategoryTestRow{
			{Outcome: study.OK(), Category: "happy"},
			{Outcome: study.Outcome{Status: study.StatusUndefined}, Category: "sad"},
		},
	}

	runs := analysisRuns.WithLabelValues("full", string(study.TestWilcoxon))
	category := subResultStatus.WithLabelValues("category", "undefined")
	unset := subResultStatus.WithLabelValues("normality", "unset")
	before := testutil.ToFloat64(runs)
	beforeCategory := testutil.ToFloat64(category)
	beforeUnset := testutil.ToFloat64(unset)

	ObserveReport(r, 0.01)

	assert.Equal(t, before+1, testutil.ToFloat64(runs))
	assert.Equal(t, beforeCategory+1, testutil.ToFloat64(category))
	assert.Equal(t, beforeUnset+1, testutil.ToFloat64(unset))
}

func TestObserveError(t *testing.T) {
	c := analysisErrors.WithLabelValues("MISSING_DATA")
	before := testutil.ToFloat64(c)
	ObserveError("MISSING_DATA")
	assert.Equal(t, before+1, testutil.ToFloat64(c))
}
