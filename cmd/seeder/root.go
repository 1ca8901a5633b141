package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/utafrali/catalogseed/internal/app"
	"github.com/utafrali/catalogseed/internal/config"
	"github.com/utafrali/catalogseed/internal/seeder"
	pkgconfig "github.com/utafrali/catalogseed/pkg/config"
	"github.com/utafrali/catalogseed/pkg/logger"
)

// flags holds the command-line overrides shared by every phase command.
type flags struct {
	envFile           string
	dryRun            bool
	pruneTranslations bool
	cleanup           bool
	seed              uint64
	chunkSize         int
	workers           int
	noColor           bool
}

func (f *flags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.envFile, "env-file", ".env", "dotenv file loaded before the environment is read")
	fs.BoolVar(&f.dryRun, "dry-run", false, "write to an in-memory store instead of PostgreSQL")
	fs.BoolVar(&f.pruneTranslations, "prune-translations", false, "delete translations for locales that are not configured")
	fs.BoolVar(&f.cleanup, "cleanup", false, "remove the image pool after the run")
	fs.Uint64Var(&f.seed, "seed", 0, "random seed, 0 derives one from the clock")
	fs.IntVar(&f.chunkSize, "chunk-size", 0, "entities per transaction")
	fs.IntVar(&f.workers, "workers", 0, "partitions generated concurrently")
	fs.BoolVar(&f.noColor, "no-color", false, "disable coloured summary output")
}

// apply copies the flags the user set onto cfg and revalidates it.
func (f *flags) apply(cmd *cobra.Command, cfg *config.Config) error {
	fs := cmd.Flags()
	if fs.Changed("seed") {
		cfg.RandomSeed = f.seed
	}
	if fs.Changed("chunk-size") {
		cfg.ChunkSize = f.chunkSize
	}
	if fs.Changed("workers") {
		cfg.Workers = f.workers
	}
	if fs.Changed("cleanup") {
		cfg.PoolCleanup = f.cleanup
	}
	return cfg.Validate()
}

var phaseDescriptions = []struct {
	name  string
	short string
}{
	{seeder.PhaseCountries, "Load currencies, countries with regions, and zones"},
	{seeder.PhaseCities, "Load cities under existing countries and regions"},
	{seeder.PhaseCatalog, "Fill the image pool and load attributes, categories and brands"},
	{seeder.PhaseProducts, "Generate products with translations, relations and variants"},
	{seeder.PhasePool, "Ensure the image pool, or remove it with --cleanup"},
	{"all", "Run every data phase in dependency order"},
}

func newRootCmd() *cobra.Command {
	f := &flags{}
	root := &cobra.Command{
		Use:           "seeder",
		Short:         "Seed the catalog database with reference and generated data",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	f.register(root.PersistentFlags())
	for _, p := range phaseDescriptions {
		root.AddCommand(newPhaseCmd(p.name, p.short, f))
	}
	root.AddCommand(newCheckCmd(f))
	return root
}

func newPhaseCmd(phase, short string, f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   phase,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, phase, f)
		},
	}
}

func newCheckCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Ping PostgreSQL, Redis and Kafka without seeding",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			application, log, err := setup(cmd, "check", f)
			if err != nil {
				return err
			}
			defer application.Close()

			report := application.Check(cmd.Context())
			newSummary(os.Stdout, f.noColor).PrintHealth(report)
			if err := report.Err(); err != nil {
				log.Error("dependency check failed", slog.String("error", err.Error()))
				return err
			}
			return nil
		},
	}
}

// setup loads configuration, applies flag overrides and wires the app.
func setup(cmd *cobra.Command, phase string, f *flags) (*app.App, *slog.Logger, error) {
	if err := pkgconfig.LoadDotEnv(f.envFile); err != nil {
		slog.Error("failed to load env file", slog.String("error", err.Error()))
		return nil, nil, err
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		return nil, nil, err
	}
	if err := f.apply(cmd, cfg); err != nil {
		slog.Error("invalid flags", slog.String("error", err.Error()))
		return nil, nil, err
	}

	log := logger.New(app.ServiceName, cfg.LogLevel)
	log.Info("starting catalog seeder",
		slog.String("phase", phase),
		slog.String("environment", cfg.Environment),
		slog.Bool("dry_run", f.dryRun),
		slog.String("locales", cfg.LocaleSet().String()),
	)

	application, err := app.NewApp(cmd.Context(), cfg, app.Options{
		DryRun:            f.dryRun,
		PruneTranslations: f.pruneTranslations,
	}, log)
	if err != nil {
		log.Error("failed to initialize application", slog.String("error", err.Error()))
		return nil, nil, err
	}
	return application, log, nil
}

func run(cmd *cobra.Command, phase string, f *flags) error {
	application, log, err := setup(cmd, phase, f)
	if err != nil {
		return err
	}
	defer application.Close()

	reports, err := application.Run(cmd.Context(), phase)

	out := newSummary(os.Stdout, f.noColor)
	out.Print(application.RunID(), application.Seed(), reports)
	if stats := application.DryRunStats(); stats != nil {
		out.PrintStats(stats)
	}

	if err != nil {
		log.Error("seeding failed", slog.String("error", err.Error()))
		return fmt.Errorf("seed %s: %w", phase, err)
	}
	log.Info("catalog seeder finished", slog.String("phase", phase))
	return nil
}
