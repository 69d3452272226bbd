package main

import (
	"fmt"
	"os"
	"sort"
	"strconv"

	"enemtri/adapters/excel"
	"enemtri/adapters/jsoncache"
	"enemtri/adapters/postgres"
	"enemtri/app"
	"enemtri/domain/exam"
	"enemtri/internal"
	"enemtri/internal/config"
	"enemtri/internal/i18n"
	"enemtri/internal/microdata"
	"enemtri/internal/migration"
	"enemtri/internal/report"
	"enemtri/internal/userdata"
	"enemtri/ports"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
)

func main() {
	godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "enemtri",
		Short: "ENEM score estimation from correct-answer counts",
	}

	rootCmd.AddCommand(
		newSimulateCmd(),
		newAreaCmd(),
		newReportCmd(),
		newImportCmd(),
		newRegenerateCmd(),
		newPruneCmd(),
		newMigrateCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// env assembles the shared dependencies from the environment.
type env struct {
	cfg     *config.Config
	store   ports.StatisticsStore
	service *app.SimulationService
	tr      *i18n.Translator
	cleanup func()
}

func buildEnv() (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	var store ports.StatisticsStore
	cleanup := func() {}
	if cfg.Database.Enabled() {
		db, err := sqlx.Connect("postgres", cfg.Database.URL)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		store = postgres.NewStatisticsRepository(db)
		cleanup = func() { db.Close() }
	} else {
		store, err = jsoncache.NewStore(cfg.Paths.DataDir)
		if err != nil {
			return nil, err
		}
	}

	locale := cfg.Estimation.Locale
	if locale == "" {
		locale = i18n.DefaultLocale
	}
	tr, err := i18n.New(locale)
	if err != nil {
		cleanup()
		return nil, err
	}

	service := app.NewSimulationService(
		store,
		userdata.NewLoader(cfg.Paths.UserDataFile),
		cfg.Estimation.ReferenceYear,
		cfg.Estimation.ConfidenceLevel,
		internal.DefaultLogger,
	)
	return &env{cfg: cfg, store: store, service: service, tr: tr, cleanup: cleanup}, nil
}

func newSimulateCmd() *cobra.Command {
	var essay float64

	cmd := &cobra.Command{
		Use:   "simulate [math] [lang] [nat] [hum]",
		Short: "Run a simulation from arguments or the user data file",
		Args:  cobra.RangeArgs(0, 4),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := buildEnv()
			if err != nil {
				return err
			}
			defer e.cleanup()

			if len(args) != 0 && len(args) != 4 {
				return fmt.Errorf("pass all four correct-answer counts or none")
			}

			var outcome *app.SimulationOutcome
			if len(args) == 4 {
				counts := make([]int, 4)
				for i, arg := range args {
					counts[i], err = strconv.Atoi(arg)
					if err != nil {
						return fmt.Errorf("invalid correct-answer count %q", arg)
					}
				}
				outcome, err = e.service.Run(cmd.Context(), app.SimulationRequest{
					Mathematics:     counts[0],
					Languages:       counts[1],
					NaturalSciences: counts[2],
					HumanSciences:   counts[3],
					EssayScore:      essay,
				})
			} else {
				outcome, err = e.service.RunFromHistory(cmd.Context())
			}
			if err != nil {
				return err
			}

			printOutcome(e.tr, outcome)
			return nil
		},
	}

	cmd.Flags().Float64Var(&essay, "essay", 0, "Self-scored essay (0-1000), used with explicit counts")
	return cmd
}

func newAreaCmd() *cobra.Command {
	var confidence float64

	cmd := &cobra.Command{
		Use:   "area [area] [correct]",
		Short: "Estimate a single area score",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			area, err := exam.ParseArea(args[0])
			if err != nil {
				return err
			}
			correct, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid correct-answer count %q", args[1])
			}

			e, err := buildEnv()
			if err != nil {
				return err
			}
			defer e.cleanup()

			estimate, err := e.service.EstimateArea(cmd.Context(), area, correct, confidence)
			if err != nil {
				return err
			}

			fmt.Printf("%s: %.1f\n", area.Label(), estimate.Score)
			if estimate.Range != nil {
				fmt.Printf("  %s %.1f | %s %.1f | %s %.1f\n",
					e.tr.T("cli", "labels.pessimistic"), estimate.Range.Pessimistic,
					e.tr.T("cli", "labels.calculated"), estimate.Range.Calculated,
					e.tr.T("cli", "labels.optimistic"), estimate.Range.Optimistic)
			}
			if estimate.Interval != nil {
				fmt.Printf("  %s: [%.1f, %.1f]\n",
					e.tr.Tf("cli", "labels.confidence_interval", map[string]string{
						"level": fmt.Sprintf("%.0f", estimate.Interval.Level*100),
					}),
					estimate.Interval.Lower, estimate.Interval.Upper)
			}
			return nil
		},
	}

	cmd.Flags().Float64Var(&confidence, "confidence", 0, "Confidence level for the interval (0-1)")
	return cmd
}

func newReportCmd() *cobra.Command {
	var asHTML bool

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Render the simulation report for the current attempt",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := buildEnv()
			if err != nil {
				return err
			}
			defer e.cleanup()

			outcome, err := e.service.RunFromHistory(cmd.Context())
			if err != nil {
				return err
			}

			builder := report.NewBuilder(e.tr)
			data := report.Data{
				Year:           outcome.ReferenceYear,
				Result:         outcome.Result,
				Factors:        outcome.Factors,
				PreviousScores: outcome.Comparison,
			}
			if asHTML {
				os.Stdout.Write(builder.HTML(data))
			} else {
				fmt.Print(builder.Markdown(data))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asHTML, "html", false, "Emit HTML instead of markdown")
	return cmd
}

func newImportCmd() *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Import statistics from an .xlsx or .csv file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := buildEnv()
			if err != nil {
				return err
			}
			defer e.cleanup()

			path := e.cfg.Paths.SpreadsheetFile
			if len(args) == 1 {
				path = args[0]
			}
			if path == "" {
				return fmt.Errorf("no statistics file: pass a path or set STATS_SPREADSHEET")
			}

			importer := excel.NewImporter(e.store, internal.DefaultLogger)
			var summary excel.ImportSummary
			if raw {
				summary, err = importer.ImportRaw(cmd.Context(), path)
			} else {
				summary, err = importer.Import(cmd.Context(), path)
			}
			if err != nil {
				return err
			}
			fmt.Printf("imported %d year(s): %v (%d score rows, %d answer rows)\n",
				len(summary.Years), summary.Years, summary.ScoreRows, summary.AnswerRows)
			return nil
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "Treat the file as raw per-participant microdata")
	return cmd
}

func newRegenerateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "regenerate [years...]",
		Short: "Rebuild correct-answer estimates from cached score statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := buildEnv()
			if err != nil {
				return err
			}
			defer e.cleanup()

			years := make([]int, 0, len(args))
			for _, arg := range args {
				year, err := strconv.Atoi(arg)
				if err != nil {
					return fmt.Errorf("invalid year %q", arg)
				}
				years = append(years, year)
			}
			if len(years) == 0 {
				if years, err = e.store.ScoreYears(cmd.Context()); err != nil {
					return err
				}
			}

			processor := microdata.NewProcessor(e.store, userdata.NewLoader(e.cfg.Paths.UserDataFile))
			if err := processor.Regenerate(cmd.Context(), years); err != nil {
				return err
			}
			fmt.Printf("regenerated correct-answer statistics for %v\n", years)
			return nil
		},
	}
}

func newPruneCmd() *cobra.Command {
	var keep []int

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Remove cached statistics for years outside the keep list",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.Database.Enabled() {
				return fmt.Errorf("prune only applies to the JSON cache backend")
			}

			store, err := jsoncache.NewStore(cfg.Paths.DataDir)
			if err != nil {
				return err
			}
			removed, err := store.Prune(cmd.Context(), keep)
			if err != nil {
				return err
			}
			fmt.Printf("removed %d cache file(s)\n", removed)
			return nil
		},
	}

	cmd.Flags().IntSliceVar(&keep, "keep", nil, "Years to keep (everything else is removed)")
	return cmd
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the Postgres statistics schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if !cfg.Database.Enabled() {
				return fmt.Errorf("DATABASE_URL is not set")
			}

			db, err := sqlx.Connect("postgres", cfg.Database.URL)
			if err != nil {
				return fmt.Errorf("connect to database: %w", err)
			}
			defer db.Close()

			runner := migration.NewRunner()
			if err := runner.Run(cmd.Context(), db); err != nil {
				return err
			}
			fmt.Printf("migrations applied (schema version %s)\n", runner.Version())
			return nil
		},
	}
}

func printOutcome(tr *i18n.Translator, outcome *app.SimulationOutcome) {
	fmt.Println(tr.T("cli", "title"))
	fmt.Println()
	fmt.Println(tr.T("cli", "results.header"))

	for _, area := range exam.ObjectiveAreas() {
		as := outcome.Result.Areas[area]
		note := tr.T("cli", "results.population_only")
		if outcome.Calibrated[area] {
			note = tr.T("cli", "results.calibrated")
		}
		fmt.Printf("  %-42s %3d/%d  %6.1f  (%s)\n",
			area.Label(), as.CorrectAnswers, as.TotalQuestions, as.Score, note)

		if as.Range != nil {
			fmt.Printf("    %s %.1f | %s %.1f | %s %.1f\n",
				tr.T("cli", "labels.pessimistic"), as.Range.Pessimistic,
				tr.T("cli", "labels.calculated"), as.Range.Calculated,
				tr.T("cli", "labels.optimistic"), as.Range.Optimistic)
		}
		if interval, ok := outcome.Intervals[area]; ok {
			fmt.Printf("    %s: [%.1f, %.1f]\n",
				tr.Tf("cli", "labels.confidence_interval", map[string]string{
					"level": fmt.Sprintf("%.0f", interval.Level*100),
				}),
				interval.Lower, interval.Upper)
		}
	}

	fmt.Printf("  %-42s        %6.1f\n", tr.T("cli", "results.essay"), outcome.Result.EssayScore)
	fmt.Println()
	fmt.Printf("%s: %.1f\n", tr.T("cli", "results.objective_average"), outcome.Result.ObjectiveAverage())
	fmt.Printf("%s: %.1f\n", tr.T("cli", "results.average"), outcome.Result.AverageScore())

	if len(outcome.Comparison) > 0 {
		fmt.Println()
		for _, area := range exam.ObjectiveAreas() {
			byYear, ok := outcome.Comparison[area]
			if !ok {
				continue
			}
			fmt.Printf("%s:", area.Label())
			for _, year := range sortedYears(byYear) {
				fmt.Printf("  %d: %.1f", year, byYear[year])
			}
			fmt.Println()
		}
	}
}

func sortedYears(byYear map[int]float64) []int {
	years := make([]int, 0, len(byYear))
	for year := range byYear {
		years = append(years, year)
	}
	sort.Ints(years)
	return years
}
