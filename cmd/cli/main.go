package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pairstat/adapters/export"
	"pairstat/adapters/postgres"
	"pairstat/adapters/tables"
	"pairstat/app"
	"pairstat/domain/core"
	"pairstat/domain/study"
	"pairstat/domain/table"
	"pairstat/internal/config"
	"pairstat/internal/logging"
	"pairstat/internal/testkit"
	"pairstat/ports"
)

func main() {
	godotenv.Load()

	rootCmd := &cobra.Command{
		Use:          "pairstat-cli",
		Short:        "Paired two-condition analysis of per-trial emotion data",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		newAnalyzeCmd(),
		newExportCmd(),
		newReportCmd(),
		newAliasesCmd(),
		newSampleCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// inputFlags are the table files shared by analyze and export
type inputFlags struct {
	trials        string
	summary       string
	covariates    string
	categoryTests string
	correlations  string
	goodnessOfFit string
	workbook      string
	distributions string
	store         bool
}

func (f *inputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.trials, "trials", "", "Per-trial table (csv, xlsx or json)")
	cmd.Flags().StringVar(&f.summary, "summary", "", "Per-condition summary table")
	cmd.Flags().StringVar(&f.covariates, "covariates", "", "Per-participant covariate table")
	cmd.Flags().StringVar(&f.categoryTests, "category-tests", "", "Precomputed per-category test table")
	cmd.Flags().StringVar(&f.correlations, "correlations", "", "Precomputed correlation table")
	cmd.Flags().StringVar(&f.goodnessOfFit, "goodness-of-fit", "", "Observed/expected frequency table")
	cmd.Flags().StringVar(&f.workbook, "workbook", "", "Workbook whose sheets are named after the tables")
	cmd.Flags().StringVar(&f.distributions, "distributions", "", "Override STATS_DISTRIBUTIONS (approximate|exact)")
	cmd.Flags().BoolVar(&f.store, "store", false, "Save the report to DATABASE_URL")
}

func (f *inputFlags) sources() []tables.Source {
	return []tables.Source{
		{Name: table.Trials, Path: f.trials},
		{Name: table.Summary, Path: f.summary},
		{Name: table.Covariates, Path: f.covariates},
		{Name: table.CategoryTests, Path: f.categoryTests},
		{Name: table.Correlations, Path: f.correlations},
		{Name: table.GoodnessOfFit, Path: f.goodnessOfFit},
	}
}

// Tables reads the workbook, then the individual files. Files win over sheets.
func (f *inputFlags) Tables(ctx context.Context, logger *zap.Logger) (table.Set, error) {
	set := table.Set{}
	if f.workbook != "" {
		wb, err := tables.ReadWorkbook(f.workbook)
		if err != nil {
			return nil, err
		}
		for name, t := range wb {
			set[name] = t
		}
	}

	loaded, err := tables.NewLoader(logger.Named("loader")).LoadAll(ctx, f.sources())
	if err != nil {
		return nil, err
	}
	for name, t := range loaded {
		set[name] = t
	}
	return set, nil
}

// env bundles what every command needs
type env struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *sqlx.DB
}

func (e *env) Close() {
	if e.db != nil {
		e.db.Close()
	}
	e.logger.Sync()
}

func setup(ctx context.Context, withDB bool, distributions string) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if distributions != "" {
		cfg.Analysis.Distributions = distributions
	}

	logger, err := logging.New(cfg.Log.Level, "console")
	if err != nil {
		return nil, err
	}

	e := &env{cfg: cfg, logger: logger}
	if withDB {
		if !cfg.Database.Enabled() {
			return nil, fmt.Errorf("DATABASE_URL is required for stored reports")
		}
		e.db, err = postgres.Open(ctx, cfg.Database.Driver, cfg.Database.URL)
		if err != nil {
			return nil, err
		}
	}
	return e, nil
}

func (e *env) service() (*app.AnalysisService, error) {
	var repo ports.ReportRepository
	if e.db != nil {
		repo = postgres.NewReportRepository(e.db)
	}
	return app.NewAnalysisService(e.cfg.Analysis, repo, e.logger)
}

func runAnalysis(ctx context.Context, flags *inputFlags) (*study.Report, func(), error) {
	e, err := setup(ctx, flags.store, flags.distributions)
	if err != nil {
		return nil, nil, err
	}
	svc, err := e.service()
	if err != nil {
		e.Close()
		return nil, nil, err
	}

	src := ports.TableSourceFunc(func(ctx context.Context) (table.Set, error) {
		return flags.Tables(ctx, e.logger)
	})
	report, err := svc.AnalyzeSource(ctx, src)
	if err != nil {
		e.Close()
		return nil, nil, err
	}
	return report, e.Close, nil
}

func newAnalyzeCmd() *cobra.Command {
	var flags inputFlags
	var format string
	var out string

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze input tables and print the report",
		Long: `Analyze per-trial (or summary) tables and print the report.

Example: pairstat-cli analyze --trials trials.csv --covariates covariates.csv --format markdown`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			report, done, err := runAnalysis(cmd.Context(), &flags)
			if err != nil {
				return err
			}
			defer done()
			return writeReport(cmd.OutOrStdout(), out, format, report)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&format, "format", "json", "Output format: json, markdown or html")
	cmd.Flags().StringVar(&out, "out", "", "Write to this file instead of stdout")

	return cmd
}

func newExportCmd() *cobra.Command {
	var flags inputFlags
	var dir string
	var xlsx bool

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Analyze input tables and write report files to a directory",
		Long: `Write participants.csv, summary.csv, report.json and report.md (plus report.xlsx with --xlsx).

Example: pairstat-cli export --trials trials.csv --out results --xlsx`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			report, done, err := runAnalysis(cmd.Context(), &flags)
			if err != nil {
				return err
			}
			defer done()
			return exportDir(dir, report, xlsx)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&dir, "out", "results", "Output directory")
	cmd.Flags().BoolVar(&xlsx, "xlsx", false, "Also write an Excel workbook")

	return cmd
}

func newReportCmd() *cobra.Command {
	var format string
	var limit int

	cmd := &cobra.Command{
		Use:   "report [report-id]",
		Short: "Show a stored report, or list stored reports when no id is given",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := setup(ctx, true, "")
			if err != nil {
				return err
			}
			defer e.Close()
			svc, err := e.service()
			if err != nil {
				return err
			}

			if len(args) == 0 {
				list, err := svc.Reports(ctx, limit)
				if err != nil {
					return err
				}
				for _, r := range list {
					fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %-13s %-9s %s\n",
						r.CreatedAt.Format("2006-01-02 15:04:05"), r.ID, r.Mode, r.MainTest, r.MainStatus)
				}
				return nil
			}

			id, err := core.ParseReportID(args[0])
			if err != nil {
				return err
			}
			report, err := svc.Report(ctx, id)
			if err != nil {
				return err
			}
			return writeReport(cmd.OutOrStdout(), "", format, report)
		},
	}

	cmd.Flags().StringVar(&format, "format", "json", "Output format: json, markdown or html")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum reports to list")

	return cmd
}

func newAliasesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "aliases",
		Short: "Print the effective column alias table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd.Context(), false, "")
			if err != nil {
				return err
			}
			defer e.Close()
			svc, err := e.service()
			if err != nil {
				return err
			}
			for _, fa := range svc.Aliases() {
				fmt.Fprintf(cmd.OutOrStdout(), "%-12s %s\n", fa.Field, strings.Join(fa.Aliases, ", "))
			}
			return nil
		},
	}
}

func newSampleCmd() *cobra.Command {
	cfg := testkit.DefaultConfig()
	var dir string

	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Write a seeded synthetic study (trials.csv, covariates.csv)",
		Long: `Write a synthetic two-condition study for trying out the pipeline.

Example: pairstat-cli sample --out demo --participants 30 --effect 10 --seed 7`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.Participants < 1 || cfg.TrialsPerCondition < 1 {
				return fmt.Errorf("participants and trials must be positive")
			}
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
			for name, t := range testkit.NewGenerator(cfg).Set() {
				path := filepath.Join(dir, name+".csv")
				f, err := os.Create(path)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", path, err)
				}
				if err := tables.WriteCSV(f, t); err != nil {
					f.Close()
					return fmt.Errorf("failed to write %s: %w", path, err)
				}
				if err := f.Close(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "out", "sample", "Output directory")
	cmd.Flags().IntVar(&cfg.Participants, "participants", cfg.Participants, "Number of participants")
	cmd.Flags().IntVar(&cfg.TrialsPerCondition, "trials", cfg.TrialsPerCondition, "Trials per participant and condition")
	cmd.Flags().Float64Var(&cfg.Effect, "effect", cfg.Effect, "Extra seconds of happy under the first condition")
	cmd.Flags().Float64Var(&cfg.Noise, "noise", cfg.Noise, "Per-trial noise in seconds")
	cmd.Flags().Int64Var(&cfg.Seed, "seed", cfg.Seed, "Random seed")

	return cmd
}

func render(format string, report *study.Report) ([]byte, error) {
	switch strings.ToLower(format) {
	case "json":
		return json.MarshalIndent(report, "", "  ")
	case "markdown", "md":
		return export.Markdown(report), nil
	case "html":
		return export.HTML(report), nil
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
}

func writeReport(stdout io.Writer, path, format string, report *study.Report) error {
	body, err := render(format, report)
	if err != nil {
		return err
	}
	if path == "" {
		_, err = stdout.Write(body)
		return err
	}
	return os.WriteFile(path, body, 0o644)
}

func exportDir(dir string, report *study.Report, xlsx bool) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	writers := map[string]func(io.Writer, *study.Report) error{
		"participants.csv": export.WriteParticipantsCSV,
		"summary.csv":      export.WriteSummaryCSV,
		"report.json": func(w io.Writer, r *study.Report) error {
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(r)
		},
		"report.md": func(w io.Writer, r *study.Report) error {
			_, err := w.Write(export.Markdown(r))
			return err
		},
	}
	if xlsx {
		writers["report.xlsx"] = export.WriteXLSX
	}

	for name, write := range writers {
		if err := writeFile(filepath.Join(dir, name), report, write); err != nil {
			return err
		}
	}
	return nil
}

func writeFile(path string, report *study.Report, write func(io.Writer, *study.Report) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := write(f, report); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}
