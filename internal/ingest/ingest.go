// Package ingest converts loosely typed tables into the typed inputs of the
// analysis pipeline. Every column is located through the schema resolver, and
// every cell goes through ParseNumber.
package ingest

import (
	"strconv"
	"strings"

	"go.uber.org/zap"

	"pairstat/domain/core"
	"pairstat/domain/study"
	"pairstat/domain/table"
	"pairstat/internal/errors"
	"pairstat/internal/logging"
	"pairstat/internal/schema"
)

// Input is everything the analyzer consumes from one table set. A nil or empty
// field means the corresponding table was absent.
type Input struct {
	Trials                  []study.TrialRow
	Summary                 []study.ConditionSummary
	Covariates              []study.Covariate
	PrecomputedCategories   []study.CategoryTestRow
	PrecomputedCorrelations []study.CorrelationEntry
	Frequencies             *study.FrequencyTable
	Resolution              []study.FieldResolution
	Fingerprint             core.Fingerprint
	// Skipped lists tables that were present but unusable, with the reason
	Skipped map[string]string
}

// Ingestor reads table sets
type Ingestor struct {
	resolver   *schema.Resolver
	conditions []string
	logger     *zap.Logger
}

// New creates an ingestor. Condition labels found in the data are matched
// case-insensitively against conditions and rewritten to the configured
// spelling.
func New(resolver *schema.Resolver, conditions []string, logger *zap.Logger) *Ingestor {
	logger = logging.OrNop(logger)
	if resolver == nil {
		resolver = schema.NewResolver(nil, logger)
	}
	return &Ingestor{resolver: resolver, conditions: conditions, logger: logger}
}

// Read converts every recognised table of the set. A table that cannot be
// interpreted is recorded in Skipped and treated as absent; Read itself fails
// only when neither trials nor summary data is usable.
func (i *Ingestor) Read(set table.Set) (*Input, error) {
	in := &Input{Skipped: map[string]string{}}

	var prints []core.Fingerprint
	for _, name := range table.Names() {
		if t := set.Get(name); t != nil {
			prints = append(prints, t.Fingerprint())
		}
	}
	in.Fingerprint = core.Combine(prints...)

	if t := set.Get(table.Trials); t != nil {
		rows, res, err := i.Trials(t)
		in.Resolution = append(in.Resolution, res...)
		if err != nil {
			i.skip(in, table.Trials, err)
		} else {
			in.Trials = rows
		}
	}
	if t := set.Get(table.Summary); t != nil {
		rows, err := i.Summary(t)
		if err != nil {
			i.skip(in, table.Summary, err)
		} else {
			in.Summary = rows
		}
	}
	if len(in.Trials) == 0 && len(in.Summary) == 0 {
		return in, errors.MissingData("neither trials nor summary data is available")
	}

	if t := set.Get(table.Covariates); t != nil {
		covs, err := i.Covariates(t)
		if err != nil {
			i.skip(in, table.Covariates, err)
		} else {
			in.Covariates = covs
		}
	}
	if t := set.Get(table.CategoryTests); t != nil {
		rows, err := i.CategoryTests(t)
		if err != nil {
			i.skip(in, table.CategoryTests, err)
		} else {
			in.PrecomputedCategories = rows
		}
	}
	if t := set.Get(table.Correlations); t != nil {
		rows, err := i.Correlations(t)
		if err != nil {
			i.skip(in, table.Correlations, err)
		} else {
			in.PrecomputedCorrelations = rows
		}
	}
	if t := set.Get(table.GoodnessOfFit); t != nil {
		freq, err := i.Frequencies(t)
		if err != nil {
			i.skip(in, table.GoodnessOfFit, err)
		} else {
			in.Frequencies = freq
		}
	}
	return in, nil
}

func (i *Ingestor) skip(in *Input, name string, err error) {
	in.Skipped[name] = err.Error()
	i.logger.Warn("table skipped", zap.String("table", name), zap.Error(err))
}

// Trials reads raw observations. Participant and condition columns are
// required; every other column becomes a measure when its cell parses as a
// number. Rows without a participant or condition are dropped.
func (i *Ingestor) Trials(t *table.Table) ([]study.TrialRow, []study.FieldResolution, error) {
	ids := i.resolver.ResolveAll(t.Name, []string{schema.FieldParticipant, schema.FieldCondition}, t.Columns)
	pid, cond := ids[schema.FieldParticipant], ids[schema.FieldCondition]
	res := []study.FieldResolution{pid, cond}
	if !pid.Matched {
		return nil, res, errors.SchemaMismatch(schema.FieldParticipant)
	}
	if !cond.Matched {
		return nil, res, errors.SchemaMismatch(schema.FieldCondition)
	}

	rows := make([]study.TrialRow, 0, len(t.Rows))
	dropped := 0
	for _, rec := range t.Rows {
		p := strings.TrimSpace(rec[pid.Column])
		c := i.canonicalCondition(rec[cond.Column])
		if p == "" || c == "" {
			dropped++
			continue
		}
		row := study.TrialRow{ParticipantID: p, Condition: c, Measures: map[string]float64{}}
		for _, col := range t.Columns {
			if col == pid.Column || col == cond.Column {
				continue
			}
			if v, ok := ParseNumber(rec[col]); ok {
				row.Measures[col] = v
			}
		}
		rows = append(rows, row)
	}
	if dropped > 0 {
		i.logger.Warn("trial rows without participant or condition dropped", zap.Int("rows", dropped))
	}
	if len(rows) == 0 {
		return nil, res, errors.MissingData("trials table has no usable rows")
	}
	return rows, res, nil
}

// Summary reads per-condition mean and SD rows
func (i *Ingestor) Summary(t *table.Table) ([]study.ConditionSummary, error) {
	cols := i.resolver.ResolveAll(t.Name,
		[]string{schema.FieldCondition, schema.FieldMean, schema.FieldSD, schema.FieldN}, t.Columns)
	for _, f := range []string{schema.FieldCondition, schema.FieldMean} {
		if !cols[f].Matched {
			return nil, errors.SchemaMismatch(f)
		}
	}

	var out []study.ConditionSummary
	for _, rec := range t.Rows {
		c := i.canonicalCondition(rec[cols[schema.FieldCondition].Column])
		mean, ok := ParseNumber(rec[cols[schema.FieldMean].Column])
		if c == "" || !ok {
			continue
		}
		s := study.ConditionSummary{Condition: c, Mean: mean}
		if sd := cols[schema.FieldSD]; sd.Matched {
			s.SD, _ = ParseNumber(rec[sd.Column])
		}
		if n := cols[schema.FieldN]; n.Matched {
			if v, ok := ParseNumber(rec[n.Column]); ok {
				s.N = int(v)
			}
		}
		out = append(out, s)
	}
	if len(out) == 0 {
		return nil, errors.MissingData("summary table has no usable rows")
	}
	return out, nil
}

// Covariates reads one numeric series per non-identifier column. Several rows
// for one participant are averaged.
func (i *Ingestor) Covariates(t *table.Table) ([]study.Covariate, error) {
	ids := i.resolver.ResolveAll(t.Name, []string{schema.FieldParticipant, schema.FieldCondition}, t.Columns)
	pid := ids[schema.FieldParticipant]
	if !pid.Matched {
		return nil, errors.SchemaMismatch(schema.FieldParticipant)
	}

	var out []study.Covariate
	for _, col := range t.Columns {
		if col == pid.Column || (ids[schema.FieldCondition].Matched && col == ids[schema.FieldCondition].Column) {
			continue
		}
		sums := map[string]float64{}
		counts := map[string]int{}
		for _, rec := range t.Rows {
			p := strings.TrimSpace(rec[pid.Column])
			v, ok := ParseNumber(rec[col])
			if p == "" || !ok {
				continue
			}
			sums[p] += v
			counts[p]++
		}
		if len(sums) == 0 {
			i.logger.Debug("covariate column has no numeric values", zap.String("column", col))
			continue
		}
		cov := study.Covariate{Name: col, Values: make(map[string]float64, len(sums))}
		for p, s := range sums {
			cov.Values[p] = s / float64(counts[p])
		}
		out = append(out, cov)
	}
	if len(out) == 0 {
		return nil, errors.MissingData("covariates table has no numeric columns")
	}
	return out, nil
}

// CategoryTests reads externally computed per-category Wilcoxon rows. The
// adjusted p-value and significance tag are left for the analyzer.
func (i *Ingestor) CategoryTests(t *table.Table) ([]study.CategoryTestRow, error) {
	fields := []string{schema.FieldCategory, schema.FieldMeanA, schema.FieldMeanB,
		schema.FieldStatistic, schema.FieldZ, schema.FieldP}
	cols := i.resolver.ResolveAll(t.Name, fields, t.Columns)
	for _, f := range []string{schema.FieldCategory, schema.FieldP} {
		if !cols[f].Matched {
			return nil, errors.SchemaMismatch(f)
		}
	}

	num := func(rec table.Record, field string) float64 {
		if c := cols[field]; c.Matched {
			v, _ := ParseNumber(rec[c.Column])
			return v
		}
		return 0
	}

	var out []study.CategoryTestRow
	for _, rec := range t.Rows {
		cat := schema.Normalize(rec[cols[schema.FieldCategory].Column])
		p, ok := ParseNumber(rec[cols[schema.FieldP].Column])
		if cat == "" || !ok {
			continue
		}
		row := study.CategoryTestRow{
			Outcome:     study.OK(),
			Category:    cat,
			MeanA:       num(rec, schema.FieldMeanA),
			MeanB:       num(rec, schema.FieldMeanB),
			W:           num(rec, schema.FieldStatistic),
			Z:           num(rec, schema.FieldZ),
			PRaw:        p,
			Precomputed: true,
		}
		row.MeanDiff = row.MeanA - row.MeanB
		out = append(out, row)
	}
	if len(out) == 0 {
		return nil, errors.MissingData("category test table has no usable rows")
	}
	return out, nil
}

// Correlations reads externally computed Spearman coefficients
func (i *Ingestor) Correlations(t *table.Table) ([]study.CorrelationEntry, error) {
	cols := i.resolver.ResolveAll(t.Name,
		[]string{schema.FieldCovariate, schema.FieldRho, schema.FieldN}, t.Columns)
	for _, f := range []string{schema.FieldCovariate, schema.FieldRho} {
		if !cols[f].Matched {
			return nil, errors.SchemaMismatch(f)
		}
	}

	var out []study.CorrelationEntry
	for _, rec := range t.Rows {
		name := strings.TrimSpace(rec[cols[schema.FieldCovariate].Column])
		rho, ok := ParseNumber(rec[cols[schema.FieldRho].Column])
		if name == "" || !ok {
			continue
		}
		e := study.CorrelationEntry{Outcome: study.OK(), Covariate: name, Rho: rho, Precomputed: true}
		if n := cols[schema.FieldN]; n.Matched {
			if v, ok := ParseNumber(rec[n.Column]); ok {
				e.N = int(v)
			}
		}
		out = append(out, e)
	}
	if len(out) == 0 {
		return nil, errors.MissingData("correlation table has no usable rows")
	}
	return out, nil
}

// Frequencies reads an observed/expected table. Without an expected column the
// observed total is spread uniformly across the labels.
func (i *Ingestor) Frequencies(t *table.Table) (*study.FrequencyTable, error) {
	cols := i.resolver.ResolveAll(t.Name,
		[]string{schema.FieldLabel, schema.FieldObserved, schema.FieldExpected}, t.Columns)
	if !cols[schema.FieldObserved].Matched {
		return nil, errors.SchemaMismatch(schema.FieldObserved)
	}

	freq := &study.FrequencyTable{}
	for n, rec := range t.Rows {
		obs, ok := ParseNumber(rec[cols[schema.FieldObserved].Column])
		if !ok {
			continue
		}
		label := ""
		if l := cols[schema.FieldLabel]; l.Matched {
			label = strings.TrimSpace(rec[l.Column])
		}
		if label == "" {
			label = "row_" + strconv.Itoa(n+1)
		}
		freq.Labels = append(freq.Labels, label)
		freq.Observed = append(freq.Observed, obs)
		if e := cols[schema.FieldExpected]; e.Matched {
			v, _ := ParseNumber(rec[e.Column])
			freq.Expected = append(freq.Expected, v)
		}
	}
	if len(freq.Observed) == 0 {
		return nil, errors.MissingData("goodness-of-fit table has no usable rows")
	}
	if len(freq.Expected) == 0 {
		freq.Expected = Uniform(freq.Observed)
	}
	return freq, nil
}

// Uniform spreads the observed total evenly over the cells
func Uniform(observed []float64) []float64 {
	total := 0.0
	for _, o := range observed {
		total += o
	}
	out := make([]float64, len(observed))
	for k := range out {
		out[k] = total / float64(len(observed))
	}
	return out
}

func (i *Ingestor) canonicalCondition(raw string) string {
	v := strings.TrimSpace(raw)
	for _, c := range i.conditions {
		if strings.EqualFold(v, c) {
			return c
		}
	}
	return v
}
