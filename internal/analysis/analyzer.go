// Package analysis runs the paired two-condition comparison over one input
// snapshot and assembles the report. Analyze is a pure function of its input:
// no clock, randomness or shared state is consulted.
package analysis

import (
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"pairstat/domain/core"
	"pairstat/domain/study"
	"pairstat/internal/errors"
	"pairstat/internal/logging"
	"pairstat/internal/stats"
)

// Options configures the analyzer
type Options struct {
	ConditionA string
	ConditionB string
	// Categories are the measured (non-reference) categories tested one by one
	Categories     []string
	NormalityAlpha float64
	Distributions  stats.Distributions
}

// Input is one immutable analysis snapshot
type Input struct {
	Records                 []study.ParticipantRecord
	Summary                 []study.ConditionSummary
	Covariates              []study.Covariate
	PrecomputedCategories   []study.CategoryTestRow
	PrecomputedCorrelations []study.CorrelationEntry
	Frequencies             *study.FrequencyTable
	Resolution              []study.FieldResolution
	Fingerprint             core.Fingerprint
	Notes                   []string
}

// Analyzer produces reports
type Analyzer struct {
	opts   Options
	logger *zap.Logger
}

// New creates an analyzer. Missing options fall back to C1/C2, alpha 0.05 and
// the approximate distributions.
func New(opts Options, logger *zap.Logger) *Analyzer {
	if opts.ConditionA == "" {
		opts.ConditionA = "C1"
	}
	if opts.ConditionB == "" {
		opts.ConditionB = "C2"
	}
	if opts.NormalityAlpha <= 0 || opts.NormalityAlpha >= 1 {
		opts.NormalityAlpha = 0.05
	}
	if opts.Distributions == nil {
		opts.Distributions = stats.Approximate{}
	}
	return &Analyzer{opts: opts, logger: logging.OrNop(logger)}
}

// Analyze runs every step that the input supports. Sub-results that cannot be
// computed carry a non-ok status; Analyze never fails as a whole.
func (a *Analyzer) Analyze(in Input) study.Report {
	report := study.Report{
		ID:            core.NewReportID(a.fingerprint(in)),
		ConditionA:    a.opts.ConditionA,
		ConditionB:    a.opts.ConditionB,
		Distributions: a.opts.Distributions.Name(),
		Participants:  in.Records,
		Resolution:    in.Resolution,
	}

	if len(in.Records) > 0 {
		report.Mode = study.ModeFull
		a.analyzeRecords(&report, in)
	} else {
		report.Mode = study.ModeSummaryOnly
		a.analyzeSummary(&report, in)
	}

	report.GoodnessOfFit = a.goodnessOfFit(in)
	report.Notes = append(report.Notes, in.Notes...)
	report.Notes = append(report.Notes, a.methodNotes()...)

	a.logger.Info("analysis complete",
		zap.String("report_id", report.ID.String()),
		zap.String("mode", string(report.Mode)),
		zap.Int("participants", len(in.Records)),
		zap.String("main_test", string(report.MainTest.Kind)),
		zap.String("main_status", string(report.MainTest.Status)))
	return report
}

func (a *Analyzer) analyzeRecords(report *study.Report, in Input) {
	condA, condB, delta := a.series(in.Records)

	report.Descriptives = study.Descriptives{
		A:     stats.Describe(condA),
		B:     stats.Describe(condB),
		Delta: stats.Describe(delta),
	}

	normality, err := stats.ShapiroWilk(delta, a.opts.Distributions)
	if err != nil {
		normality.Outcome = stats.OutcomeFromError(err)
	} else {
		normality.Outcome = study.OK()
	}
	report.Normality = normality

	report.MainTest = a.mainTest(condA, condB, normality)

	if len(in.PrecomputedCategories) > 0 {
		report.Notes = append(report.Notes, "precomputed category tests ignored: recomputed from trial data")
	}
	report.Categories = a.categoryTests(in.Records)

	if len(in.Covariates) > 0 {
		if len(in.PrecomputedCorrelations) > 0 {
			report.Notes = append(report.Notes, "precomputed correlations ignored: recomputed from covariate data")
		}
		report.Correlations = a.correlations(in.Records, in.Covariates)
	} else {
		report.Correlations = precomputedCorrelations(in.PrecomputedCorrelations)
	}
}

// analyzeSummary is the degraded path: only condition means and SDs are known
func (a *Analyzer) analyzeSummary(report *study.Report, in Input) {
	const why = "no per-participant data: summary-only input"
	skipped := study.Outcome{Status: study.StatusSkipped, Reason: why}

	var sumA, sumB *study.ConditionSummary
	for k := range in.Summary {
		switch in.Summary[k].Condition {
		case a.opts.ConditionA:
			sumA = &in.Summary[k]
		case a.opts.ConditionB:
			sumB = &in.Summary[k]
		}
	}
	report.Descriptives.A = fromSummary(sumA, a.opts.ConditionA)
	report.Descriptives.B = fromSummary(sumB, a.opts.ConditionB)

	if sumA != nil && sumB != nil {
		diff := sumA.Mean - sumB.Mean
		if math.IsInf(diff, 0) || math.IsNaN(diff) {
			report.Descriptives.Delta = study.Descriptive{
				Outcome: stats.OutcomeFromError(errors.Degenerate("difference of condition means is not finite")),
			}
		} else {
			report.Descriptives.Delta = study.Descriptive{
				Outcome: study.Outcome{Status: study.StatusOK, Reason: "difference of condition means"},
				Mean:    diff,
			}
		}
	} else {
		report.Descriptives.Delta = study.Descriptive{
			Outcome: study.Outcome{Status: study.StatusMissing, Reason: "summary lacks one of the two conditions"},
		}
	}

	report.Normality = study.Normality{Outcome: skipped}
	report.MainTest = study.TestResult{Outcome: skipped, Rationale: why}
	report.Categories = a.precomputedCategories(in.PrecomputedCategories)
	report.Correlations = precomputedCorrelations(in.PrecomputedCorrelations)
	report.Notes = append(report.Notes, "summary-only mode: per-participant tests were skipped")
}

func fromSummary(s *study.ConditionSummary, condition string) study.Descriptive {
	if s == nil {
		return study.Descriptive{Outcome: study.Outcome{
			Status: study.StatusMissing,
			Reason: fmt.Sprintf("summary has no row for %s", condition),
		}}
	}
	sd := s.SD
	return study.Descriptive{
		Outcome: study.Outcome{Status: study.StatusOK, Reason: "from summary input; min and max unavailable"},
		N:       s.N,
		Mean:    s.Mean,
		SD:      &sd,
	}
}

// series extracts the A, B and delta columns in participant order
func (a *Analyzer) series(records []study.ParticipantRecord) (condA, condB, delta []float64) {
	condA = make([]float64, len(records))
	condB = make([]float64, len(records))
	delta = make([]float64, len(records))
	for i, r := range records {
		condA[i] = r.Aggregate(a.opts.ConditionA)
		condB[i] = r.Aggregate(a.opts.ConditionB)
		delta[i] = r.Delta
	}
	return condA, condB, delta
}

// mainTest picks the paired t-test when the deltas look normal and the
// Wilcoxon signed-rank test otherwise, including when normality is unknown.
func (a *Analyzer) mainTest(condA, condB []float64, normality study.Normality) study.TestResult {
	alpha := a.opts.NormalityAlpha
	if len(condA) < 2 {
		return study.TestResult{
			Outcome:   stats.OutcomeFromError(insufficientPairs(len(condA))),
			Rationale: "fewer than two participants",
		}
	}

	if normality.Available() && normality.P > alpha {
		res := study.TestResult{
			Kind:      study.TestPairedT,
			Rationale: fmt.Sprintf("normality p=%.3f > %.2f: differences treated as normal, paired t-test", normality.P, alpha),
		}
		t, err := stats.PairedT(condA, condB, a.opts.Distributions)
		if err != nil {
			res.Outcome = stats.OutcomeFromError(err)
			return res
		}
		res.Outcome = study.OK()
		res.Parametric = &t
		res.PValue = t.P
		if d, err := stats.CohensDPaired(condA, condB); err == nil {
			res.Effect = &study.EffectSize{Name: "cohens_d", Value: d}
		}
		return res
	}

	var rationale string
	if normality.Available() {
		rationale = fmt.Sprintf("normality p=%.3f <= %.2f: differences not normal, Wilcoxon signed-rank", normality.P, alpha)
	} else {
		rationale = fmt.Sprintf("normality not assessable (%s): Wilcoxon signed-rank", normality.Status)
	}
	res := study.TestResult{Kind: study.TestWilcoxon, Rationale: rationale}
	w, err := stats.WilcoxonSignedRank(condA, condB, a.opts.Distributions)
	if err != nil {
		res.Outcome = stats.OutcomeFromError(err)
		return res
	}
	res.Outcome = study.OK()
	res.NonParametric = &w
	res.PValue = w.P
	if r, err := stats.EffectSizeR(w.Z, len(condA)); err == nil {
		res.Effect = &study.EffectSize{Name: "r", Value: r}
	}
	return res
}

// categoryTests runs one Wilcoxon test per measured category with a
// Bonferroni correction over the category count.
func (a *Analyzer) categoryTests(records []study.ParticipantRecord) []study.CategoryTestRow {
	k := len(a.opts.Categories)
	rows := make([]study.CategoryTestRow, 0, k)
	for _, cat := range a.opts.Categories {
		row := study.CategoryTestRow{Category: cat}
		catA := make([]float64, len(records))
		catB := make([]float64, len(records))
		for i, r := range records {
			catA[i] = r.Category(a.opts.ConditionA, cat)
			catB[i] = r.Category(a.opts.ConditionB, cat)
		}
		row.MeanA, _ = stats.Mean(catA)
		row.MeanB, _ = stats.Mean(catB)
		row.MeanDiff = row.MeanA - row.MeanB

		if len(records) < 2 {
			row.Outcome = stats.OutcomeFromError(insufficientPairs(len(records)))
			rows = append(rows, row)
			continue
		}
		w, err := stats.WilcoxonSignedRank(catA, catB, a.opts.Distributions)
		if err != nil {
			row.Outcome = stats.OutcomeFromError(err)
			rows = append(rows, row)
			continue
		}
		row.Outcome = study.OK()
		row.W, row.Z, row.PRaw = w.W, w.Z, w.P
		row.PAdjusted = stats.Bonferroni(w.P, k)
		row.Significance = stats.Classify(row.PAdjusted)
		rows = append(rows, row)
	}
	return rows
}

// precomputedCategories adjusts externally computed rows over their own count
func (a *Analyzer) precomputedCategories(in []study.CategoryTestRow) []study.CategoryTestRow {
	rows := make([]study.CategoryTestRow, len(in))
	for i, r := range in {
		r.PAdjusted = stats.Bonferroni(r.PRaw, len(in))
		r.Significance = stats.Classify(r.PAdjusted)
		r.Precomputed = true
		if r.Status == "" {
			r.Outcome = study.OK()
		}
		rows[i] = r
	}
	return rows
}

// correlations computes Spearman's rho between each covariate and the deltas,
// over the participants present in both.
func (a *Analyzer) correlations(records []study.ParticipantRecord, covariates []study.Covariate) study.CorrelationTable {
	table := study.CorrelationTable{Outcome: study.OK()}
	for _, cov := range covariates {
		var x, y []float64
		for _, r := range records {
			if v, ok := cov.Values[r.ParticipantID]; ok {
				x = append(x, v)
				y = append(y, r.Delta)
			}
		}
		entry := study.CorrelationEntry{Covariate: cov.Name, N: len(x)}
		rho, err := stats.Spearman(x, y)
		if err != nil {
			entry.Outcome = stats.OutcomeFromError(err)
			a.logger.Debug("correlation not computed",
				zap.String("covariate", cov.Name), zap.Error(err))
		} else {
			entry.Outcome = study.OK()
			entry.Rho = rho
		}
		table.Entries = append(table.Entries, entry)
	}
	return table
}

func precomputedCorrelations(in []study.CorrelationEntry) study.CorrelationTable {
	if len(in) == 0 {
		return study.CorrelationTable{Outcome: study.Outcome{
			Status: study.StatusMissing,
			Reason: "no covariate or correlation table supplied",
		}}
	}
	table := study.CorrelationTable{Outcome: study.OK()}
	for _, e := range in {
		e.Precomputed = true
		if e.Status == "" {
			e.Outcome = study.OK()
		}
		e.Rho = math.Max(-1, math.Min(1, e.Rho))
		table.Entries = append(table.Entries, e)
	}
	return table
}

// goodnessOfFit tests the supplied frequency table or, failing that, the
// direction of the per-participant deltas against an even split.
func (a *Analyzer) goodnessOfFit(in Input) study.GoodnessOfFit {
	freq := in.Frequencies
	if freq == nil {
		if len(in.Records) == 0 {
			return study.GoodnessOfFit{Outcome: study.Outcome{
				Status: study.StatusSkipped,
				Reason: "no frequency table and no per-participant deltas",
			}}
		}
		freq = a.directionCounts(in.Records)
	}

	gof, err := stats.ChiSquareGOF(freq.Labels, freq.Observed, freq.Expected, a.opts.Distributions)
	if err != nil {
		gof.Outcome = stats.OutcomeFromError(err)
	}
	return gof
}

// directionCounts tallies which condition scored higher per participant
func (a *Analyzer) directionCounts(records []study.ParticipantRecord) *study.FrequencyTable {
	observed := make([]float64, 3)
	for _, r := range records {
		switch {
		case r.Delta > directionTolerance:
			observed[0]++
		case r.Delta < -directionTolerance:
			observed[1]++
		default:
			observed[2]++
		}
	}
	expected := float64(len(records)) / 3
	return &study.FrequencyTable{
		Labels:   []string{a.opts.ConditionA + " higher", a.opts.ConditionB + " higher", "no difference"},
		Observed: observed,
		Expected: []float64{expected, expected, expected},
	}
}

const directionTolerance = 1e-10

func (a *Analyzer) methodNotes() []string {
	notes := []string{
		"Spearman ranks ties by first position without averaging; Wilcoxon averages tied ranks",
	}
	if a.opts.Distributions.Name() == stats.ApproximateName {
		notes = append(notes,
			"Shapiro-Wilk W uses five fixed coefficients and a categorical p-value ladder",
			"t-test p-values use a normal approximation, not the Student t distribution",
			"chi-square p-values come from a threshold ladder (0.01, 0.05, 0.1, otherwise 0.2)",
		)
	}
	return notes
}

// fingerprint binds the report id to the input and to every setting that
// changes the output.
func (a *Analyzer) fingerprint(in Input) core.Fingerprint {
	settings := strings.Join([]string{
		a.opts.ConditionA,
		a.opts.ConditionB,
		strings.Join(a.opts.Categories, ","),
		fmt.Sprintf("%g", a.opts.NormalityAlpha),
		a.opts.Distributions.Name(),
	}, "|")
	return core.Combine(in.Fingerprint, core.NewFingerprint([]byte(settings)))
}

func insufficientPairs(n int) error {
	return errors.Insufficient(2, n, "paired comparison")
}
