// Package aggregate turns raw trial rows into one normalized record per participant.
package aggregate

import (
	"sort"

	"go.uber.org/zap"

	"pairstat/domain/study"
	"pairstat/internal/logging"
	"pairstat/internal/schema"
)

// Options controls normalization
type Options struct {
	// TimeBudgetSeconds is the length of one trial window
	TimeBudgetSeconds float64
	ConditionA        string
	ConditionB        string
	// ReferenceCategory is excluded from the aggregate percentage
	ReferenceCategory string
	Categories        []string
}

// DefaultOptions returns the 120 s, C1/C2, seven-emotion setup
func DefaultOptions() Options {
	return Options{
		TimeBudgetSeconds: 120,
		ConditionA:        "C1",
		ConditionB:        "C2",
		ReferenceCategory: schema.ReferenceCategory,
		Categories:        append([]string(nil), schema.DefaultCategories...),
	}
}

// MeasuredCategories returns the categories that count toward the aggregate
func (o Options) MeasuredCategories() []string {
	out := make([]string, 0, len(o.Categories))
	for _, c := range o.Categories {
		if c != o.ReferenceCategory {
			out = append(out, c)
		}
	}
	return out
}

// Aggregator derives participant records
type Aggregator struct {
	opts     Options
	resolver *schema.Resolver
	logger   *zap.Logger
}

// New creates an aggregator. Zero-valued options fall back to DefaultOptions.
func New(opts Options, resolver *schema.Resolver, logger *zap.Logger) *Aggregator {
	def := DefaultOptions()
	if opts.TimeBudgetSeconds <= 0 {
		opts.TimeBudgetSeconds = def.TimeBudgetSeconds
	}
	if opts.ConditionA == "" {
		opts.ConditionA = def.ConditionA
	}
	if opts.ConditionB == "" {
		opts.ConditionB = def.ConditionB
	}
	if opts.ReferenceCategory == "" {
		opts.ReferenceCategory = def.ReferenceCategory
	}
	if len(opts.Categories) == 0 {
		opts.Categories = def.Categories
	}
	logger = logging.OrNop(logger)
	if resolver == nil {
		resolver = schema.NewResolver(nil, logger)
	}
	return &Aggregator{opts: opts, resolver: resolver, logger: logger}
}

// Options returns the effective options
func (a *Aggregator) Options() Options {
	return a.opts
}

type group struct {
	rows []study.TrialRow
}

// Aggregate builds one record per distinct participant, in encounter order.
// Category columns are resolved once against the union of measure names; an
// unresolved category reads as zero and is reported in the returned resolution.
func (a *Aggregator) Aggregate(trials []study.TrialRow) ([]study.ParticipantRecord, []study.FieldResolution) {
	var participants, conditions, headers []string
	seenP := map[string]bool{}
	seenC := map[string]bool{}
	seenH := map[string]bool{}
	groups := map[string]map[string]*group{}

	for _, row := range trials {
		if !seenP[row.ParticipantID] {
			seenP[row.ParticipantID] = true
			participants = append(participants, row.ParticipantID)
			groups[row.ParticipantID] = map[string]*group{}
		}
		if !seenC[row.Condition] {
			seenC[row.Condition] = true
			conditions = append(conditions, row.Condition)
		}
		for _, h := range sortedKeys(row.Measures) {
			if !seenH[h] {
				seenH[h] = true
				headers = append(headers, h)
			}
		}
		g := groups[row.ParticipantID][row.Condition]
		if g == nil {
			g = &group{}
			groups[row.ParticipantID][row.Condition] = g
		}
		g.rows = append(g.rows, row)
	}

	resolved := a.resolver.ResolveAll("trials", a.opts.Categories, headers)
	resolution := make([]study.FieldResolution, 0, len(a.opts.Categories))
	for _, c := range a.opts.Categories {
		resolution = append(resolution, resolved[c])
	}

	records := make([]study.ParticipantRecord, 0, len(participants))
	for _, pid := range participants {
		rec := study.ParticipantRecord{
			ParticipantID: pid,
			Conditions:    make(map[string]study.ConditionAggregate, len(conditions)),
		}
		for _, cond := range conditions {
			var rows []study.TrialRow
			if g := groups[pid][cond]; g != nil {
				rows = g.rows
			}
			rec.Conditions[cond] = a.normalize(rows, resolved)
		}
		rec.Delta = rec.Aggregate(a.opts.ConditionA) - rec.Aggregate(a.opts.ConditionB)
		if len(groups[pid]) < 2 {
			a.logger.Info("participant observed under one condition only",
				zap.String("participant", pid),
				zap.Float64("delta", rec.Delta))
		}
		records = append(records, rec)
	}

	a.logger.Debug("trials aggregated",
		zap.Int("trials", len(trials)),
		zap.Int("participants", len(records)),
		zap.Strings("conditions", conditions))

	return records, resolution
}

// normalize averages each category over rows and converts the non-reference
// total into a percentage of the time budget.
func (a *Aggregator) normalize(rows []study.TrialRow, resolved map[string]study.FieldResolution) study.ConditionAggregate {
	agg := study.ConditionAggregate{
		Categories: make(map[string]float64, len(a.opts.Categories)),
		Trials:     len(rows),
	}
	for _, c := range a.opts.Categories {
		agg.Categories[c] = 0
	}
	if len(rows) == 0 {
		return agg
	}

	total := 0.0
	for _, c := range a.opts.Categories {
		res := resolved[c]
		if !res.Matched {
			continue
		}
		sum := 0.0
		for _, r := range rows {
			sum += r.Measures[res.Column]
		}
		mean := sum / float64(len(rows))
		agg.Categories[c] = mean
		if c != a.opts.ReferenceCategory {
			total += mean
		}
	}
	agg.Aggregate = total / a.opts.TimeBudgetSeconds * 100
	return agg
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
