// Package app wires the seeder's dependencies from configuration.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	"github.com/redis/go-redis/v9"

	"github.com/utafrali/catalogseed/internal/assetpool"
	"github.com/utafrali/catalogseed/internal/assetpool/remote"
	"github.com/utafrali/catalogseed/internal/assetpool/render"
	"github.com/utafrali/catalogseed/internal/config"
	"github.com/utafrali/catalogseed/internal/domain"
	"github.com/utafrali/catalogseed/internal/event"
	"github.com/utafrali/catalogseed/internal/geodata"
	"github.com/utafrali/catalogseed/internal/lock"
	"github.com/utafrali/catalogseed/internal/repository"
	"github.com/utafrali/catalogseed/internal/repository/memory"
	"github.com/utafrali/catalogseed/internal/repository/postgres"
	"github.com/utafrali/catalogseed/internal/search"
	"github.com/utafrali/catalogseed/internal/search/elasticsearch"
	searchmem "github.com/utafrali/catalogseed/internal/search/memory"
	"github.com/utafrali/catalogseed/internal/seeder"
	"github.com/utafrali/catalogseed/migrations"
	"github.com/utafrali/catalogseed/pkg/database"
	apperrors "github.com/utafrali/catalogseed/pkg/errors"
	"github.com/utafrali/catalogseed/pkg/health"
	"github.com/utafrali/catalogseed/pkg/httpclient"
	pkgkafka "github.com/utafrali/catalogseed/pkg/kafka"
	"github.com/utafrali/catalogseed/pkg/logger"
	"github.com/utafrali/catalogseed/pkg/tracing"
)

// ServiceName identifies the seeder in logs, traces and metrics.
const ServiceName = "catalog-seeder"

const pushJob = "catalog_seeder"

// Options are the command-line switches that are not part of Config.
type Options struct {
	// DryRun seeds an in-memory store instead of PostgreSQL.
	DryRun bool
	// PruneTranslations deletes translations outside the configured locales.
	PruneTranslations bool
}

// App holds the wired seeder and the resources it must release.
type App struct {
	cfg      *config.Config
	logger   *slog.Logger
	runID    string
	seed     uint64
	registry *prometheus.Registry

	pool   *pgxpool.Pool
	redis  *redis.Client
	events *event.Producer
	seeder *seeder.Seeder
	memory *memory.Store
	index  *searchmem.Indexer
	health *health.Registry

	shutdownTracer func(context.Context) error
}

// NewApp creates an application instance, initializing all dependencies.
func NewApp(ctx context.Context, cfg *config.Config, opts Options, log *slog.Logger) (_ *App, err error) {
	a := &App{
		cfg:      cfg,
		runID:    uuid.NewString(),
		seed:     seeder.ResolveSeed(cfg.RandomSeed),
		registry: prometheus.NewRegistry(),
		logger:   log,
		health:   health.NewRegistry(),
	}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	a.logger.Info("seed resolved",
		slog.String("run_id", a.runID),
		slog.Uint64("seed", a.seed),
		slog.Bool("from_config", cfg.RandomSeed != 0),
	)
	if len(cfg.LocaleSet()) == 0 {
		a.logger.Warn("SEED_LOCALES resolves to no locales, no translations will be written",
			slog.String("fallback_locale", cfg.FallbackLocale),
		)
	}

	a.shutdownTracer, err = tracing.InitTracer(ctx, cfg.TracingConfig(ServiceName))
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	metrics, err := seeder.NewMetrics(a.registry)
	if err != nil {
		return nil, err
	}
	breakerMetrics, err := httpclient.NewBreakerMetrics(a.registry)
	if err != nil {
		return nil, err
	}

	store, err := a.initStore(ctx, opts.DryRun)
	if err != nil {
		return nil, err
	}

	locker, err := a.initLocker(ctx)
	if err != nil {
		return nil, err
	}

	pool := assetpool.New(assetpool.Config{
		Dir:     cfg.PoolDir,
		Target:  cfg.PoolSize,
		Ext:     cfg.PoolExt,
		Width:   cfg.PoolWidth,
		Height:  cfg.PoolHeight,
		LockTTL: cfg.LockTTL,
	}, a.newGenerator(breakerMetrics), locker, a.logger)

	var producer *pkgkafka.Producer
	if len(cfg.KafkaBrokers) > 0 {
		producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), a.logger)
		a.logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
		a.health.Register("kafka", func(ctx context.Context) error {
			return pkgkafka.PingBrokers(ctx, cfg.KafkaBrokers)
		})
	}
	a.events = event.NewProducer(producer, cfg.EventsTopic, a.logger)

	data, err := geodata.Load()
	if err != nil {
		return nil, fmt.Errorf("load datasets: %w", err)
	}

	indexer, err := a.initIndexer(ctx, opts.DryRun)
	if err != nil {
		return nil, err
	}

	seedOpts := seeder.OptionsFromConfig(cfg)
	seedOpts.Seed = a.seed
	seedOpts.PruneTranslations = opts.PruneTranslations
	seedOpts.Indexer = indexer
	a.seeder = seeder.New(store, pool, data, seedOpts, metrics, a.logger)
	return a, nil
}

func (a *App) initStore(ctx context.Context, dryRun bool) (repository.Store, error) {
	if dryRun {
		a.memory = memory.New()
		a.logger.Warn("dry run, writing to an in-memory store")
		return a.memory, nil
	}

	pgCfg := a.cfg.PostgresConfig()
	pool, err := database.NewPostgresPool(ctx, &pgCfg, a.logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	a.pool = pool
	a.health.Register("postgres", pool.Ping)
	a.logger.Info("connected to PostgreSQL",
		slog.String("host", a.cfg.PostgresHost),
		slog.Int("port", a.cfg.PostgresPort),
		slog.String("database", a.cfg.PostgresDB),
	)

	if err := database.RunMigrations(ctx, pool, migrations.FS, a.logger); err != nil {
		return nil, err
	}
	a.logger.Info("database migrations completed")

	database.SetSlowQueryLogging(time.Duration(a.cfg.SlowQueryMS)*time.Millisecond, a.logger)
	if err := database.RegisterPoolMetrics(a.registry, pool, pushJob); err != nil {
		return nil, err
	}
	return postgres.NewStore(pool), nil
}

// initIndexer returns the search index products are synced to, or nil when
// search sync is off. A dry run indexes in memory.
func (a *App) initIndexer(ctx context.Context, dryRun bool) (search.Indexer, error) {
	if dryRun {
		a.index = searchmem.New()
		return a.index, nil
	}
	if a.cfg.ElasticsearchURL == "" {
		a.logger.Debug("search sync disabled, ELASTICSEARCH_URL is empty")
		return nil, nil
	}
	engine, err := elasticsearch.New(ctx, elasticsearch.Config{
		URL:   a.cfg.ElasticsearchURL,
		Index: a.cfg.ElasticsearchIndex,
	}, a.logger)
	if err != nil {
		return nil, fmt.Errorf("connect to elasticsearch: %w", err)
	}
	a.health.Register("elasticsearch", engine.Ping)
	a.logger.Info("connected to Elasticsearch",
		slog.String("url", a.cfg.ElasticsearchURL),
		slog.String("index", engine.IndexName()),
	)
	return engine, nil
}

func (a *App) initLocker(ctx context.Context) (lock.Locker, error) {
	if !a.cfg.RedisEnabled {
		return lock.NewLocal(), nil
	}
	client, err := database.NewRedisClient(ctx, a.cfg.RedisConfig())
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	a.redis = client
	a.health.Register("redis", func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	})
	a.logger.Info("connected to Redis", slog.String("addr", a.cfg.RedisConfig().Addr()))
	return lock.NewRedis(client, a.logger), nil
}

func (a *App) newGenerator(metrics *httpclient.BreakerMetrics) assetpool.Generator {
	local := render.New()
	if a.cfg.ImageGenerator != "remote" {
		return local
	}
	client := httpclient.NewCircuitBreakerClient(
		httpclient.New(httpclient.DefaultConfig()),
		httpclient.DefaultCircuitBreakerConfig("image-service"),
		metrics,
		a.logger,
	)
	return remote.New(client, a.cfg.ImageRemoteURL, local, a.cfg.ImageRemoteRPS, a.logger)
}

// RunID returns the identifier shared by this run's logs and events.
func (a *App) RunID() string {
	return a.runID
}

// Seed returns the resolved random seed.
func (a *App) Seed() uint64 {
	return a.seed
}

// DryRunStats returns the in-memory row counts after a dry run, or nil.
// Indexed search documents are listed as search_documents.
func (a *App) DryRunStats() memory.Stats {
	if a.memory == nil {
		return nil
	}
	stats := a.memory.Stats()
	if a.index != nil && a.index.Len() > 0 {
		stats["search_documents"] = a.index.Len()
	}
	return stats
}

// Check pings every external dependency the run will use. A dry run without
// Redis or Kafka has nothing to check and reports up.
func (a *App) Check(ctx context.Context) health.Report {
	report := a.health.Check(ctx, 5*time.Second)
	for _, name := range report.Names() {
		c := report.Checks[name]
		if c.Status == health.StatusDown {
			a.logger.ErrorContext(ctx, "dependency check failed",
				slog.String("dependency", name),
				slog.String("error", c.Error),
			)
			continue
		}
		a.logger.DebugContext(ctx, "dependency check passed",
			slog.String("dependency", name),
			slog.Duration("duration", c.Duration),
		)
	}
	return report
}

// Run executes phase, or every data phase when phase is "all", under the
// configured timeout. Each finished phase is published as an event and the
// metrics are pushed when a Pushgateway is configured.
func (a *App) Run(ctx context.Context, phase string) ([]*domain.PhaseReport, error) {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()
	ctx = logger.WithRunID(ctx, a.runID)

	if err := a.Check(ctx).Err(); err != nil {
		return nil, apperrors.Wrap(err, "dependency check")
	}

	var (
		reports []*domain.PhaseReport
		err     error
	)
	if phase == "all" {
		reports, err = a.seeder.All(ctx)
	} else {
		var report *domain.PhaseReport
		report, err = a.seeder.Run(ctx, phase)
		if report != nil {
			reports = append(reports, report)
		}
	}

	// The run deadline may have passed; reporting still goes out.
	reportCtx, reportCancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer reportCancel()
	for _, r := range reports {
		if pubErr := a.events.PublishPhaseCompleted(reportCtx, a.runID, r); pubErr != nil {
			a.logger.Error("failed to publish phase event",
				slog.String("phase", r.Phase),
				slog.String("error", pubErr.Error()),
			)
		}
	}
	a.pushMetrics(reportCtx)

	return reports, err
}

func (a *App) pushMetrics(ctx context.Context) {
	if a.cfg.PushgatewayURL == "" {
		return
	}
	err := push.New(a.cfg.PushgatewayURL, pushJob).
		Gatherer(a.registry).
		Grouping("run_id", a.runID).
		PushContext(ctx)
	if err != nil {
		a.logger.Error("failed to push metrics", slog.String("error", err.Error()))
		return
	}
	a.logger.Info("metrics pushed", slog.String("url", a.cfg.PushgatewayURL))
}

// Close releases every resource NewApp acquired.
func (a *App) Close() {
	if a.events != nil {
		if err := a.events.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
	if a.shutdownTracer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.shutdownTracer(ctx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
		}
	}
}
