package app

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"pairstat/domain/core"
	"pairstat/domain/study"
	"pairstat/domain/table"
	"pairstat/internal/aggregate"
	"pairstat/internal/analysis"
	"pairstat/internal/config"
	"pairstat/internal/errors"
	"pairstat/internal/ingest"
	"pairstat/internal/logging"
	"pairstat/internal/metrics"
	"pairstat/internal/schema"
	"pairstat/internal/stats"
	"pairstat/ports"
)

// AnalysisService runs load, ingest, aggregate, analyze and save for one
// table set
type AnalysisService struct {
	registry   *schema.Registry
	ingestor   *ingest.Ingestor
	aggregator *aggregate.Aggregator
	analyzer   *analysis.Analyzer
	reports    ports.ReportRepository
	logger     *zap.Logger
}

// NewAnalysisService wires the pipeline from configuration. reports may be nil,
// in which case reports are returned but not stored.
func NewAnalysisService(cfg config.AnalysisConfig, reports ports.ReportRepository, logger *zap.Logger) (*AnalysisService, error) {
	logger = logging.OrNop(logger)

	registry := schema.DefaultRegistry()
	if cfg.AliasFile != "" {
		if err := registry.LoadFile(cfg.AliasFile); err != nil {
			return nil, errors.Wrap(errors.ConfigInvalid(err.Error()), "failed to load alias file")
		}
	}
	resolver := schema.NewResolver(registry, logger.Named("schema"))

	dist, err := stats.ForName(cfg.Distributions)
	if err != nil {
		return nil, errors.Wrap(errors.ConfigInvalid(err.Error()), "invalid distributions")
	}

	aggregator := aggregate.New(aggregate.Options{
		TimeBudgetSeconds: cfg.TimeBudgetSeconds,
		ConditionA:        cfg.ConditionA,
		ConditionB:        cfg.ConditionB,
		ReferenceCategory: cfg.ReferenceCategory,
		Categories:        cfg.Categories,
	}, resolver, logger.Named("aggregate"))
	opts := aggregator.Options()

	analyzer := analysis.New(analysis.Options{
		ConditionA:     opts.ConditionA,
		ConditionB:     opts.ConditionB,
		Categories:     opts.MeasuredCategories(),
		NormalityAlpha: cfg.NormalityAlpha,
		Distributions:  dist,
	}, logger.Named("analysis"))

	return &AnalysisService{
		registry:   registry,
		ingestor:   ingest.New(resolver, []string{opts.ConditionA, opts.ConditionB}, logger.Named("ingest")),
		aggregator: aggregator,
		analyzer:   analyzer,
		reports:    reports,
		logger:     logger,
	}, nil
}

// Analyze produces and stores a report for one table set. It fails only when
// neither trials nor summary data is usable, or when storing fails.
func (s *AnalysisService) Analyze(ctx context.Context, set table.Set) (*study.Report, error) {
	return s.AnalyzeWithSkipped(ctx, set, nil)
}

// AnalyzeWithSkipped is Analyze for a set whose loader already dropped some
// tables. Each entry of skipped maps a table name to the reason and ends up
// as a report note next to the tables ingestion skips itself.
func (s *AnalysisService) AnalyzeWithSkipped(ctx context.Context, set table.Set, skipped map[string]string) (*study.Report, error) {
	start := time.Now()

	in, err := s.ingestor.Read(set)
	if err != nil {
		metrics.ObserveError(errors.GetCode(err))
		return nil, errors.Wrap(err, "failed to read input tables")
	}
	for name, reason := range skipped {
		if _, ok := in.Skipped[name]; !ok {
			in.Skipped[name] = reason
		}
	}

	input := analysis.Input{
		Summary:                 in.Summary,
		Covariates:              in.Covariates,
		PrecomputedCategories:   in.PrecomputedCategories,
		PrecomputedCorrelations: in.PrecomputedCorrelations,
		Frequencies:             in.Frequencies,
		Resolution:              in.Resolution,
		Fingerprint:             in.Fingerprint,
		Notes:                   skippedNotes(in.Skipped),
	}
	if len(in.Trials) > 0 {
		records, resolution := s.aggregator.Aggregate(in.Trials)
		input.Records = records
		input.Resolution = append(input.Resolution, resolution...)
	}

	report := s.analyzer.Analyze(input)
	metrics.ObserveReport(&report, time.Since(start).Seconds())

	if s.reports != nil {
		if err := s.reports.Save(ctx, &report); err != nil {
			metrics.ObserveError(errors.GetCode(err))
			return &report, errors.Wrap(err, "analysis succeeded but the report was not stored")
		}
	}

	s.logger.Info("report produced",
		zap.String("report_id", report.ID.String()),
		zap.Duration("elapsed", time.Since(start)))
	return &report, nil
}

// AnalyzeSource loads tables from src and analyzes them
func (s *AnalysisService) AnalyzeSource(ctx context.Context, src ports.TableSource) (*study.Report, error) {
	set, err := src.Tables(ctx)
	if err != nil {
		metrics.ObserveError(errors.GetCode(err))
		return nil, errors.Wrap(err, "failed to load input tables")
	}
	return s.Analyze(ctx, set)
}

// Report fetches a stored report
func (s *AnalysisService) Report(ctx context.Context, id core.ReportID) (*study.Report, error) {
	if s.reports == nil {
		return nil, errors.NotFound("report " + id.String())
	}
	return s.reports.Get(ctx, id)
}

// Reports lists stored report headers, newest first
func (s *AnalysisService) Reports(ctx context.Context, limit int) ([]*ports.ReportRecord, error) {
	if s.reports == nil {
		return []*ports.ReportRecord{}, nil
	}
	return s.reports.List(ctx, limit)
}

// Aliases returns the effective alias table, fields sorted
func (s *AnalysisService) Aliases() []FieldAliases {
	fields := s.registry.Fields()
	sort.Strings(fields)
	out := make([]FieldAliases, len(fields))
	for i, f := range fields {
		out[i] = FieldAliases{Field: f, Aliases: s.registry.Aliases(f)}
	}
	return out
}

// FieldAliases is one row of the alias table
type FieldAliases struct {
	Field   string   `json:"field"`
	Aliases []string `json:"aliases"`
}

func skippedNotes(skipped map[string]string) []string {
	names := make([]string, 0, len(skipped))
	for name := range skipped {
		names = append(names, name)
	}
	sort.Strings(names)

	notes := make([]string, 0, len(names))
	for _, name := range names {
		notes = append(notes, fmt.Sprintf("table %s skipped: %s", name, skipped[name]))
	}
	return notes
}
