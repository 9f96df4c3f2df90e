package analysis

import (
	"encoding/json"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"pairstat/domain/core"
	"pairstat/domain/study"
	"pairstat/internal/stats"
)

var measured = []string{"happy", "sad", "angry", "surprised", "fearful", "disgusted"}

// records builds participants whose aggregates are a[i] and b[i]; the happy
// category carries the same values so category tests have data.
func records(a, b []float64) []study.ParticipantRecord {
	out := make([]study.ParticipantRecord, len(a))
	for i := range a {
		out[i] = study.ParticipantRecord{
			ParticipantID: fmt.Sprintf("P%d", i+1),
			Conditions: map[string]study.ConditionAggregate{
				"C1": {Aggregate: a[i], Categories: map[string]float64{"happy": a[i]}, Trials: 1},
				"C2": {Aggregate: b[i], Categories: map[string]float64{"happy": b[i]}, Trials: 1},
			},
			Delta: a[i] - b[i],
		}
	}
	return out
}

func newAnalyzer(t *testing.T) *Analyzer {
	return New(Options{Categories: measured}, zaptest.NewLogger(t))
}

func TestNonNormalDeltasTakeWilcoxonBranch(t *testing.T) {
	in := Input{
		Records:     records([]float64{10, 12, 14, 9, 11}, []float64{9, 11, 10, 8, 9}),
		Fingerprint: core.NewFingerprint([]byte("wilcoxon")),
	}
	report := newAnalyzer(t).Analyze(in)

	assert.Equal(t, study.ModeFull, report.Mode)
	require.True(t, report.Normality.Available())
	assert.LessOrEqual(t, report.Normality.P, 0.05)

	main := report.MainTest
	require.True(t, main.Available())
	assert.Equal(t, study.TestWilcoxon, main.Kind)
	assert.Nil(t, main.Parametric)
	require.NotNil(t, main.NonParametric)
	assert.Equal(t, 15.0, main.NonParametric.W)
	assert.Equal(t, 7/math.Sqrt(13.75), main.NonParametric.Z)
	require.NotNil(t, main.Effect)
	assert.Equal(t, "r", main.Effect.Name)
	assert.InDelta(t, 0.8442317648, main.Effect.Value, 1e-9)
	assert.Contains(t, main.Rationale, "Wilcoxon")
}

func TestNormalDeltasTakePairedTBranch(t *testing.T) {
	in := Input{Records: records(
		[]float64{11, 12, 13, 14, 15, 16},
		[]float64{10, 10, 10, 10, 10, 10},
	)}
	report := newAnalyzer(t).Analyze(in)

	assert.Greater(t, report.Normality.P, 0.05)
	main := report.MainTest
	require.True(t, main.Available())
	assert.Equal(t, study.TestPairedT, main.Kind)
	require.NotNil(t, main.Parametric)
	assert.Nil(t, main.NonParametric)
	assert.Equal(t, 5, main.Parametric.DF)
	assert.InDelta(t, 4.582575695, main.Parametric.T, 1e-9)
	assert.Equal(t, main.Parametric.P, main.PValue)
	require.NotNil(t, main.Effect)
	assert.Equal(t, "cohens_d", main.Effect.Name)
	assert.InDelta(t, 2.049390153, main.Effect.Value, 1e-9)

	// every delta favours C1, so the default goodness-of-fit is lopsided
	gof := report.GoodnessOfFit
	require.True(t, gof.Available())
	assert.Equal(t, []float64{6, 0, 0}, gof.Observed)
	assert.Equal(t, 12.0, gof.ChiSq)
	assert.Equal(t, 0.01, gof.P)
}

func TestCategoryRowsUseBonferroni(t *testing.T) {
	in := Input{Records: records(
		[]float64{11, 12, 13, 14, 15, 16},
		[]float64{10, 10, 10, 10, 10, 10},
	)}
	report := newAnalyzer(t).Analyze(in)

	require.Len(t, report.Categories, len(measured))
	happy := report.Categories[0]
	assert.Equal(t, "happy", happy.Category)
	require.True(t, happy.Available())
	assert.Equal(t, 3.5, happy.MeanDiff)
	assert.Equal(t, stats.Bonferroni(happy.PRaw, len(measured)), happy.PAdjusted)
	assert.Equal(t, stats.Classify(happy.PAdjusted), happy.Significance)

	// no movement in the other categories: no non-zero pairs, p = 1
	sad := report.Categories[1]
	assert.Equal(t, 1.0, sad.PRaw)
	assert.Equal(t, 1.0, sad.PAdjusted)
	assert.Equal(t, study.SigNone, sad.Significance)
}

func TestCorrelationsAgainstDeltas(t *testing.T) {
	in := Input{
		Records: records(
			[]float64{11, 12, 13, 14, 15, 16},
			[]float64{10, 10, 10, 10, 10, 10},
		),
		Covariates: []study.Covariate{
			{Name: "liking", Values: map[string]float64{"P1": 6, "P2": 5, "P3": 4, "P4": 3, "P5": 2, "P6": 1}},
			{Name: "sparse", Values: map[string]float64{"P1": 1}},
			{Name: "flat", Values: map[string]float64{"P1": 3, "P2": 3, "P3": 3, "P4": 3}},
		},
		PrecomputedCorrelations: []study.CorrelationEntry{{Covariate: "ignored", Rho: 0.3}},
	}
	report := newAnalyzer(t).Analyze(in)

	table := report.Correlations
	require.True(t, table.Available())
	require.Len(t, table.Entries, 3)

	liking, ok := table.Lookup("liking")
	require.True(t, ok)
	assert.Equal(t, -1.0, liking.Rho)
	assert.Equal(t, 6, liking.N)

	sparse, _ := table.Lookup("sparse")
	assert.Equal(t, study.StatusInsufficient, sparse.Status)
	flat, _ := table.Lookup("flat")
	assert.Equal(t, study.StatusUndefined, flat.Status)

	_, found := table.Lookup("ignored")
	assert.False(t, found)
}

func TestSummaryOnlyMode(t *testing.T) {
	in := Input{
		Summary: []study.ConditionSummary{
			{Condition: "C1", Mean: 30, SD: 5, N: 12},
			{Condition: "C2", Mean: 22.5, SD: 4, N: 12},
		},
		PrecomputedCategories: []study.CategoryTestRow{
			{Category: "happy", MeanA: 10, MeanB: 7, MeanDiff: 3, PRaw: 0.004},
			{Category: "sad", MeanA: 2, MeanB: 2.5, MeanDiff: -0.5, PRaw: 0.3},
		},
		PrecomputedCorrelations: []study.CorrelationEntry{{Covariate: "liking", Rho: -0.4}},
	}
	report := newAnalyzer(t).Analyze(in)

	assert.Equal(t, study.ModeSummaryOnly, report.Mode)
	assert.Equal(t, 30.0, report.Descriptives.A.Mean)
	require.NotNil(t, report.Descriptives.B.SD)
	assert.Equal(t, 4.0, *report.Descriptives.B.SD)
	assert.Equal(t, 7.5, report.Descriptives.Delta.Mean)

	assert.Equal(t, study.StatusSkipped, report.Normality.Status)
	assert.Equal(t, study.StatusSkipped, report.MainTest.Status)
	assert.Equal(t, study.StatusSkipped, report.GoodnessOfFit.Status)

	require.Len(t, report.Categories, 2)
	assert.Equal(t, 0.008, report.Categories[0].PAdjusted)
	assert.Equal(t, study.SigStrong, report.Categories[0].Significance)
	assert.Equal(t, 0.6, report.Categories[1].PAdjusted)
	assert.True(t, report.Categories[0].Precomputed)

	entry, ok := report.Correlations.Lookup("liking")
	require.True(t, ok)
	assert.Equal(t, -0.4, entry.Rho)
	assert.True(t, entry.Precomputed)
}

func TestSingleParticipantYieldsInsufficientStates(t *testing.T) {
	report := newAnalyzer(t).Analyze(Input{Records: records([]float64{20}, []float64{10})})

	assert.Equal(t, study.StatusInsufficient, report.Descriptives.Delta.Status)
	assert.Nil(t, report.Descriptives.Delta.SD)
	assert.Equal(t, 10.0, report.Descriptives.Delta.Mean)
	assert.Equal(t, study.StatusInsufficient, report.Normality.Status)
	assert.Equal(t, study.StatusInsufficient, report.MainTest.Status)
	for _, row := range report.Categories {
		assert.Equal(t, study.StatusInsufficient, row.Status)
	}
	assert.Equal(t, study.StatusMissing, report.Correlations.Status)

	// the report must serialize: no NaN or Inf anywhere
	_, err := json.Marshal(report)
	require.NoError(t, err)
}

func TestAnalyzeIsIdempotent(t *testing.T) {
	in := Input{
		Records: records([]float64{10, 12, 14, 9, 11}, []float64{9, 11, 10, 8, 9}),
		Covariates: []study.Covariate{
			{Name: "liking", Values: map[string]float64{"P1": 1, "P2": 4, "P3": 2, "P4": 5, "P5": 3}},
		},
		Fingerprint: core.NewFingerprint([]byte("same input")),
	}
	a := newAnalyzer(t)

	first, err := json.Marshal(a.Analyze(in))
	require.NoError(t, err)
	second, err := json.Marshal(a.Analyze(in))
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))
}

func TestReportIDDependsOnSettings(t *testing.T) {
	in := Input{
		Records:     records([]float64{10, 12}, []float64{9, 11}),
		Fingerprint: core.NewFingerprint([]byte("input")),
	}
	approx := New(Options{Categories: measured}, nil).Analyze(in)
	exact := New(Options{Categories: measured, Distributions: stats.Exact{}}, nil).Analyze(in)

	assert.NotEqual(t, approx.ID, exact.ID)
	assert.Equal(t, stats.ExactName, exact.Distributions)
	_, err := core.ParseReportID(approx.ID.String())
	assert.NoError(t, err)
}

func TestNotesDocumentApproximations(t *testing.T) {
	report := newAnalyzer(t).Analyze(Input{
		Records: records([]float64{10, 12}, []float64{9, 11}),
		Notes:   []string{"table covariates skipped"},
	})
	assert.Contains(t, report.Notes, "table covariates skipped")
	assert.Contains(t, report.Notes, "Spearman ranks ties by first position without averaging; Wilcoxon averages tied ranks")
	assert.Len(t, report.Notes, 5)
}

func TestNonFiniteResultsBecomeUndefined(t *testing.T) {
	a := newAnalyzer(t)

	full := a.Analyze(Input{
		Records: records([]float64{11, 12, 13}, []float64{10, 10, 10}),
		Frequencies: &study.FrequencyTable{
			Labels:   []string{"rare", "common"},
			Observed: []float64{3, 5},
			Expected: []float64{1e-320, 5},
		},
	})
	assert.Equal(t, study.StatusUndefined, full.GoodnessOfFit.Status)
	assert.Zero(t, full.GoodnessOfFit.ChiSq)
	_, err := json.Marshal(full)
	require.NoError(t, err)

	summary := a.Analyze(Input{Summary: []study.ConditionSummary{
		{Condition: "C1", Mean: math.MaxFloat64},
		{Condition: "C2", Mean: -math.MaxFloat64},
	}})
	assert.Equal(t, study.StatusUndefined, summary.Descriptives.Delta.Status)
	assert.Zero(t, summary.Descriptives.Delta.Mean)
	_, err = json.Marshal(summary)
	require.NoError(t, err)
}
