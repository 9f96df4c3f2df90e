package study

import "pairstat/domain/core"

// Status tags every sub-result of a report so that consumers can tell a
// computed value from one that could not be produced.
type Status string

const (
	StatusOK           Status = "ok"
	StatusInsufficient Status = "insufficient_sample"
	StatusUndefined    Status = "undefined"
	StatusMissing      Status = "missing_data"
	StatusSkipped      Status = "skipped"
)

// Outcome is embedded in every sub-result
type Outcome struct {
	Status Status `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// OK returns a successful outcome
func OK() Outcome {
	return Outcome{Status: StatusOK}
}

// Available reports whether the numeric fields of the sub-result are meaningful
func (o Outcome) Available() bool {
	return o.Status == StatusOK
}

// TrialRow is one raw observation
type TrialRow struct {
	ParticipantID string             `json:"participant_id"`
	Condition     string             `json:"condition"`
	Measures      map[string]float64 `json:"measures"`
}

// ConditionAggregate is the normalized view of one participant under one condition.
// Categories holds per-category mean seconds; the non-reference ones sum to
// Aggregate/100 times the time budget.
type ConditionAggregate struct {
	Aggregate  float64            `json:"aggregate"`
	Categories map[string]float64 `json:"categories"`
	Trials     int                `json:"trials"`
}

// ParticipantRecord is the per-participant summary derived from trial rows
type ParticipantRecord struct {
	ParticipantID string                        `json:"participant_id"`
	Conditions    map[string]ConditionAggregate `json:"conditions"`
	Delta         float64                       `json:"delta"`
}

// Aggregate returns the aggregate for a condition, 0 when the condition is absent
func (p ParticipantRecord) Aggregate(condition string) float64 {
	return p.Conditions[condition].Aggregate
}

// Category returns one category value for a condition, 0 when absent
func (p ParticipantRecord) Category(condition, category string) float64 {
	return p.Conditions[condition].Categories[category]
}

// ConditionSummary is a pre-aggregated per-condition mean/SD pair (degraded input)
type ConditionSummary struct {
	Condition string  `json:"condition"`
	Mean      float64 `json:"mean"`
	SD        float64 `json:"sd"`
	N         int     `json:"n,omitempty"`
}

// Covariate is one subjective series keyed by participant
type Covariate struct {
	Name   string             `json:"name"`
	Values map[string]float64 `json:"values"`
}

// Descriptive summarizes one series. SD is nil when fewer than two observations exist.
type Descriptive struct {
	Outcome
	N    int      `json:"n"`
	Mean float64  `json:"mean"`
	SD   *float64 `json:"sd"`
	Min  float64  `json:"min"`
	Max  float64  `json:"max"`
}

// Normality is the approximate Shapiro-Wilk result. P is categorical under the
// approximate distributions and must not be read as an exact probability.
type Normality struct {
	Outcome
	W      float64 `json:"w"`
	P      float64 `json:"p"`
	N      int     `json:"n"`
	Method string  `json:"method"`
}

// TestKind names the branch the main comparison took
type TestKind string

const (
	TestPairedT  TestKind = "paired_t"
	TestWilcoxon TestKind = "wilcoxon_signed_rank"
)

// PairedTTest is the parametric arm of TestResult
type PairedTTest struct {
	T        float64 `json:"t"`
	DF       int     `json:"df"`
	P        float64 `json:"p"`
	MeanDiff float64 `json:"mean_diff"`
	SDDiff   float64 `json:"sd_diff"`
	N        int     `json:"n"`
}

// WilcoxonTest is the non-parametric arm of TestResult. N counts non-zero differences.
type WilcoxonTest struct {
	W float64 `json:"w"`
	Z float64 `json:"z"`
	P float64 `json:"p"`
	N int     `json:"n"`
}

// EffectSize names its measure: "cohens_d" or "r"
type EffectSize struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// TestResult is a tagged union: exactly one of Parametric or NonParametric is set
// when Status is ok. Rationale states why Kind was chosen.
type TestResult struct {
	Outcome
	Kind          TestKind      `json:"kind"`
	Rationale     string        `json:"rationale"`
	Parametric    *PairedTTest  `json:"parametric,omitempty"`
	NonParametric *WilcoxonTest `json:"non_parametric,omitempty"`
	PValue        float64       `json:"p_value"`
	Effect        *EffectSize   `json:"effect,omitempty"`
}

// Significance tag derived from a p-value
type Significance string

const (
	SigStrong Significance = "**"
	SigWeak   Significance = "*"
	SigNone   Significance = "ns"
)

// CategoryTestRow is the per-category paired comparison
type CategoryTestRow struct {
	Outcome
	Category     string       `json:"category"`
	MeanA        float64      `json:"mean_a"`
	MeanB        float64      `json:"mean_b"`
	MeanDiff     float64      `json:"mean_diff"`
	W            float64      `json:"w"`
	Z            float64      `json:"z"`
	PRaw         float64      `json:"p_raw"`
	PAdjusted    float64      `json:"p_adjusted"`
	Significance Significance `json:"significance"`
	Precomputed  bool         `json:"precomputed,omitempty"`
}

// CorrelationEntry is one covariate's Spearman coefficient against the delta series
type CorrelationEntry struct {
	Outcome
	Covariate   string  `json:"covariate"`
	Rho         float64 `json:"rho"`
	N           int     `json:"n"`
	Precomputed bool    `json:"precomputed,omitempty"`
}

// CorrelationTable keeps entries in covariate order
type CorrelationTable struct {
	Outcome
	Entries []CorrelationEntry `json:"entries"`
}

// Lookup returns the entry for a covariate
func (c CorrelationTable) Lookup(name string) (CorrelationEntry, bool) {
	for _, e := range c.Entries {
		if e.Covariate == name {
			return e, true
		}
	}
	return CorrelationEntry{}, false
}

// GoodnessOfFit is the chi-square result. P comes from a four-step ladder.
type GoodnessOfFit struct {
	Outcome
	Labels   []string  `json:"labels"`
	Observed []float64 `json:"observed"`
	Expected []float64 `json:"expected"`
	ChiSq    float64   `json:"chi_sq"`
	DF       int       `json:"df"`
	P        float64   `json:"p"`
}

// FieldResolution records which column, if any, served a semantic field
type FieldResolution struct {
	Field   string `json:"field"`
	Column  string `json:"column,omitempty"`
	Matched bool   `json:"matched"`
}

// Mode tells whether per-participant data was available
type Mode string

const (
	ModeFull        Mode = "full"
	ModeSummaryOnly Mode = "summary_only"
)

// Descriptives groups the three headline series
type Descriptives struct {
	A     Descriptive `json:"a"`
	B     Descriptive `json:"b"`
	Delta Descriptive `json:"delta"`
}

// Report is the single output object of one analysis run
type Report struct {
	ID            core.ReportID       `json:"id"`
	Mode          Mode                `json:"mode"`
	ConditionA    string              `json:"condition_a"`
	ConditionB    string              `json:"condition_b"`
	Distributions string              `json:"distributions"`
	Participants  []ParticipantRecord `json:"participants"`
	Descriptives  Descriptives        `json:"descriptives"`
	Normality     Normality           `json:"normality"`
	MainTest      TestResult          `json:"main_test"`
	Categories    []CategoryTestRow   `json:"categories"`
	Correlations  CorrelationTable    `json:"correlations"`
	GoodnessOfFit GoodnessOfFit       `json:"goodness_of_fit"`
	Resolution    []FieldResolution   `json:"resolution,omitempty"`
	Notes         []string            `json:"notes,omitempty"`
}

// FrequencyTable is an observed/expected pair for the goodness-of-fit test
type FrequencyTable struct {
	Labels   []string  `json:"labels"`
	Observed []float64 `json:"observed"`
	Expected []float64 `json:"expected"`
}
