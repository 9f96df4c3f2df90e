package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"pairstat/domain/study"
)

func sampleReport() *study.Report {
	sd := 2.5
	return &study.Report{
		ID:            "6f1c1a0e-5f64-5a55-9c1e-0a1b2c3d4e5f",
		Mode:          study.ModeFull,
		ConditionA:    "C1",
		ConditionB:    "C2",
		Distributions: "approximate",
		Participants: []study.ParticipantRecord{
			{
				ParticipantID: "P1",
				Conditions: map[string]study.ConditionAggregate{
					"C1": {Aggregate: 40}, "C2": {Aggregate: 25.5},
				},
				Delta: 14.5,
			},
			{
				ParticipantID: "P2",
				Conditions:    map[string]study.ConditionAggregate{"C1": {Aggregate: 30}},
				Delta:         30,
			},
		},
		Descriptives: study.Descriptives{
			A:     study.Descriptive{Outcome: study.OK(), N: 2, Mean: 35, SD: &sd},
			B:     study.Descriptive{Outcome: study.OK(), N: 2, Mean: 12.75, SD: &sd},
			Delta: study.Descriptive{Outcome: study.OK(), N: 2, Mean: 22.25, SD: &sd},
		},
		MainTest: study.TestResult{
			Outcome:       study.OK(),
			Kind:          study.TestWilcoxon,
			Rationale:     "normality not assessable",
			NonParametric: &study.WilcoxonTest{W: 3, Z: 0.9, P: 0.37, N: 2},
			PValue:        0.37,
			Effect:        &study.EffectSize{Name: "r", Value: 0.64},
		},
		Categories: []study.CategoryTestRow{
			{Outcome: study.OK(), Category: "happy", PRaw: 0.001, PAdjusted: 0.006, Significance: study.SigStrong},
		},
		Correlations: study.CorrelationTable{Outcome: study.Outcome{Status: study.StatusMissing, Reason: "no covariates"}},
		Notes:        []string{"approximate p-values"},
	}
}

func TestParticipantRows(t *testing.T) {
	rows := ParticipantRows(sampleReport())
	assert.Equal(t, [][]string{
		{"participant", "C1", "C2", "delta"},
		{"P1", "40", "25.5", "14.5"},
		{"P2", "30", "0", "30"},
	}, rows)
}

func TestSummaryRows(t *testing.T) {
	rows := SummaryRows(sampleReport())
	values := map[string]string{}
	for _, r := range rows[1:] {
		values[r[0]] = r[1]
	}
	assert.Equal(t, "35", values["mean_C1"])
	assert.Equal(t, "2.5", values["sd_delta"])
	assert.Equal(t, "wilcoxon_signed_rank", values["test"])
	assert.Equal(t, "0.37", values["p_value"])
	assert.Equal(t, "0.64", values["effect_size_r"])
	_, hasNormality := values["normality_w"]
	assert.False(t, hasNormality)
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteParticipantsCSV(&buf, sampleReport()))
	assert.Equal(t, "participant,C1,C2,delta\nP1,40,25.5,14.5\nP2,30,0,30\n", buf.String())

	buf.Reset()
	require.NoError(t, WriteSummaryCSV(&buf, sampleReport()))
	assert.True(t, strings.HasPrefix(buf.String(), "statistic,value\nmean_C1,35\n"))
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, sampleReport()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetParticipants, SheetSummary}, f.GetSheetList())
	rows, err := f.GetRows(SheetParticipants)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"P1", "40", "25.5", "14.5"}, rows[1])
}

func TestMarkdownAndHTML(t *testing.T) {
	md := string(Markdown(sampleReport()))
	assert.Contains(t, md, "# Paired comparison: C1 vs C2")
	assert.Contains(t, md, "Wilcoxon signed-rank: W = 3")
	assert.Contains(t, md, `\*\*`)
	assert.Contains(t, md, "Not computed: missing_data (no covariates)")
	assert.Contains(t, md, "- approximate p-values")

	page := string(HTML(sampleReport()))
	assert.Contains(t, page, "<table>")
	assert.Contains(t, page, "<title>pairstat report</title>")
}
