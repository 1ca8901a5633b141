// Package seeder populates the catalog store: reference hierarchies,
// brands, products with their translations and relations, and the shared
// image pool they reference.
package seeder

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	"github.com/utafrali/catalogseed/internal/assetpool"
	"github.com/utafrali/catalogseed/internal/config"
	"github.com/utafrali/catalogseed/internal/domain"
	"github.com/utafrali/catalogseed/internal/geodata"
	"github.com/utafrali/catalogseed/internal/locale"
	"github.com/utafrali/catalogseed/internal/repository"
	"github.com/utafrali/catalogseed/internal/search"
	apperrors "github.com/utafrali/catalogseed/pkg/errors"
	"github.com/utafrali/catalogseed/pkg/logger"
	"github.com/utafrali/catalogseed/pkg/tracing"
)

const tracerName = "github.com/utafrali/catalogseed/internal/seeder"

// Phase names.
const (
	PhaseCountries = "countries"
	PhaseCities    = "cities"
	PhaseCatalog   = "catalog"
	PhaseProducts  = "products"
	PhasePool      = "pool"
)

// DataPhases lists the data phases in dependency order.
var DataPhases = []string{PhaseCountries, PhaseCities, PhaseCatalog, PhaseProducts}

// ErrUnknownPhase is returned by Run for an unrecognised phase name.
var ErrUnknownPhase = errors.New("unknown phase")

// Options configures a Seeder.
type Options struct {
	Locales        locale.Set
	FallbackLocale string
	// Seed must be non-zero; see ResolveSeed.
	Seed      uint64
	ChunkSize int
	Workers   int

	BrandCount       int
	ProductsPerBrand int
	Categories       config.Bounds
	Attributes       config.Bounds
	Images           config.Bounds
	Variants         config.Bounds

	PriceMin      float64
	PriceMax      float64
	FeaturedRatio float64
	SaleRatio     float64
	SaleDiscount  float64

	ImageWidth  int
	ImageHeight int

	PoolCleanup       bool
	PruneTranslations bool

	// Indexer receives a document for every committed product. Nil
	// disables search sync.
	Indexer search.Indexer
}

// OptionsFromConfig maps the seeder configuration onto Options. The seed is
// taken as is.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Locales:          cfg.LocaleSet(),
		FallbackLocale:   cfg.FallbackLocale,
		Seed:             cfg.RandomSeed,
		ChunkSize:        cfg.ChunkSize,
		Workers:          cfg.Workers,
		BrandCount:       cfg.BrandCount,
		ProductsPerBrand: cfg.ProductsPerBrand,
		Categories:       cfg.CategoryBounds(),
		Attributes:       cfg.AttributeBounds(),
		Images:           cfg.ImageBounds(),
		Variants:         cfg.VariantBounds(),
		PriceMin:         cfg.PriceMin,
		PriceMax:         cfg.PriceMax,
		FeaturedRatio:    cfg.FeaturedRatio,
		SaleRatio:        cfg.SaleRatio,
		SaleDiscount:     cfg.SaleDiscount,
		ImageWidth:       cfg.PoolWidth,
		ImageHeight:      cfg.PoolHeight,
		PoolCleanup:      cfg.PoolCleanup,
	}
}

// Seeder runs the seeding phases against a store.
type Seeder struct {
	store   repository.Store
	pool    *assetpool.Pool
	data    *geodata.Dataset
	opts    Options
	metrics *Metrics
	logger  *slog.Logger

	mu       sync.RWMutex
	imageIDs map[string]string
}

// New creates a seeder. metrics may be nil.
func New(store repository.Store, pool *assetpool.Pool, data *geodata.Dataset, opts Options, metrics *Metrics, logger *slog.Logger) *Seeder {
	if opts.FallbackLocale == "" {
		opts.FallbackLocale = "en"
	}
	return &Seeder{
		store:    store,
		pool:     pool,
		data:     data,
		opts:     opts,
		metrics:  metrics,
		logger:   logger,
		imageIDs: make(map[string]string),
	}
}

// writers bundles the write components bound to one store or transaction.
type writers struct {
	store        repository.Store
	upserter     *Upserter
	translations *TranslationSynchronizer
	attacher     *Attacher
	loader       *Loader
}

func (s *Seeder) writers(store repository.Store, rec *Recorder) *writers {
	u := NewUpserter(store, rec)
	t := NewTranslationSynchronizer(store, rec, s.logger)
	l := NewLoader(u, t, s.opts.Locales, s.opts.FallbackLocale, s.opts.PruneTranslations, s.logger)
	l.Enrich = s.enrich
	return &writers{
		store:        store,
		upserter:     u,
		translations: t,
		attacher:     NewAttacher(store, rec, s.logger),
		loader:       l,
	}
}

// Run executes one phase by name.
func (s *Seeder) Run(ctx context.Context, phase string) (*domain.PhaseReport, error) {
	switch phase {
	case PhaseCountries:
		return s.Countries(ctx)
	case PhaseCities:
		return s.Cities(ctx)
	case PhaseCatalog:
		return s.Catalog(ctx)
	case PhaseProducts:
		return s.Products(ctx)
	case PhasePool:
		return s.Pool(ctx)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownPhase, phase)
	}
}

// All runs the data phases in dependency order, then removes the pool when
// cleanup is enabled. It stops after the first interrupted phase.
func (s *Seeder) All(ctx context.Context) ([]*domain.PhaseReport, error) {
	var reports []*domain.PhaseReport
	for _, phase := range DataPhases {
		report, err := s.Run(ctx, phase)
		if report != nil {
			reports = append(reports, report)
		}
		if err != nil {
			return reports, err
		}
		if report.Interrupted {
			return reports, nil
		}
	}

	if s.opts.PoolCleanup {
		report, err := s.Pool(ctx)
		if report != nil {
			reports = append(reports, report)
		}
		if err != nil {
			return reports, err
		}
	}
	return reports, nil
}

// phase wraps fn with a report, a span and the phase log fields.
func (s *Seeder) phase(ctx context.Context, name string, fn func(ctx context.Context, rec *Recorder) error) (report *domain.PhaseReport, err error) {
	report = domain.NewPhaseReport(name)
	rec := NewRecorder(report, s.metrics)

	ctx = logger.WithPhase(ctx, name)
	ctx, end := tracing.StartSpan(ctx, tracerName, "seeder."+name)
	defer func() { end(err) }()

	log := logger.WithContext(ctx, s.logger)
	log.InfoContext(ctx, "phase started")

	start := time.Now()
	err = fn(ctx, rec)
	report.Duration = time.Since(start)

	totals := report.Totals()
	attrs := []any{
		slog.Int("created", totals.Created),
		slog.Int("updated", totals.Updated),
		slog.Int("skipped", totals.Skipped),
		slog.Duration("duration", report.Duration),
		slog.Bool("interrupted", report.Interrupted),
	}
	if err != nil {
		log.ErrorContext(ctx, "phase failed", append(attrs, slog.String("error", err.Error()))...)
		return report, fmt.Errorf("phase %s: %w", name, err)
	}
	log.InfoContext(ctx, "phase completed", attrs...)
	return report, nil
}

// step runs fn in one transaction that ctx cannot interrupt. When ctx has
// already ended the step is skipped and the phase marked interrupted.
func (s *Seeder) step(ctx context.Context, rec *Recorder, name string, fn func(ctx context.Context, w *writers) error) error {
	if ctx.Err() != nil {
		rec.Report().MarkInterrupted()
		logger.WithContext(ctx, s.logger).WarnContext(ctx, "step skipped, run deadline reached", slog.String("step", name))
		return nil
	}
	stepCtx := context.WithoutCancel(ctx)
	buf := rec.Buffer()
	err := s.store.WithinTx(stepCtx, func(tx repository.Store) error {
		if err := fn(stepCtx, s.writers(tx, buf)); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		return nil
	})
	if err != nil {
		buf.Discard()
		return err
	}
	buf.Commit()
	return nil
}

// index pushes committed product documents to the search index. An index
// failure is logged and counted; the rows are already in the store.
func (s *Seeder) index(ctx context.Context, rec *Recorder, docs []search.Document) {
	if s.opts.Indexer == nil || len(docs) == 0 {
		return
	}
	err := s.opts.Indexer.Index(ctx, docs)
	rec.Documents(len(docs), err != nil)
	if err != nil {
		logger.WithContext(ctx, s.logger).WarnContext(ctx, "search index sync failed",
			slog.Int("documents", len(docs)),
			slog.String("error", err.Error()),
		)
	}
}

// seedFor derives the seed of one phase's random streams.
func (s *Seeder) seedFor(phase string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(phase))
	return s.opts.Seed ^ h.Sum64()
}

// Countries loads currencies, countries with their regions, and zones.
func (s *Seeder) Countries(ctx context.Context) (*domain.PhaseReport, error) {
	return s.phase(ctx, PhaseCountries, func(ctx context.Context, rec *Recorder) error {
		if err := s.step(ctx, rec, "currencies", func(ctx context.Context, w *writers) error {
			_, _, err := w.loader.Load(ctx, s.data.Currencies, []*domain.Schema{domain.Currency}, 0)
			return err
		}); err != nil {
			return err
		}

		if err := s.step(ctx, rec, "geography", func(ctx context.Context, w *writers) error {
			_, _, err := w.loader.Load(ctx, s.data.Countries, []*domain.Schema{domain.Country, domain.Region}, 0)
			return err
		}); err != nil {
			return err
		}

		return s.step(ctx, rec, "zones", func(ctx context.Context, w *writers) error {
			return s.loadZones(ctx, w)
		})
	})
}

func (s *Seeder) loadZones(ctx context.Context, w *writers) error {
	nodes := make([]geodata.Node, len(s.data.Zones))
	for i, z := range s.data.Zones {
		nodes[i] = z.Node
	}
	ids, _, err := w.loader.Load(ctx, nodes, []*domain.Schema{domain.Zone}, 0)
	if err != nil {
		return err
	}

	for _, z := range s.data.Zones {
		members := make([]string, 0, len(z.Members))
		for _, code := range z.Members {
			id, err := w.upserter.FindID(ctx, domain.Country, domain.Key{"code": code})
			if err != nil {
				if apperrors.IsNotFound(err) {
					logger.WithContext(ctx, s.logger).WarnContext(ctx, "zone member not loaded",
						slog.String("zone", z.Code), slog.String("country", code))
					continue
				}
				return err
			}
			members = append(members, id)
		}
		if _, err := w.attacher.Link(ctx, domain.ZoneCountries, ids[z.Code], members); err != nil {
			return err
		}
	}
	return nil
}

// Cities loads cities under countries and regions that already exist.
func (s *Seeder) Cities(ctx context.Context) (*domain.PhaseReport, error) {
	return s.phase(ctx, PhaseCities, func(ctx context.Context, rec *Recorder) error {
		logger.WithContext(ctx, s.logger).InfoContext(ctx, "loading cities",
			slog.Int("regions", geodata.CountAt(s.data.Countries, 1)),
			slog.Int("cities", geodata.CountAt(s.data.Countries, 2)),
		)
		return s.step(ctx, rec, "cities", func(ctx context.Context, w *writers) error {
			_, _, err := w.loader.Load(ctx, s.data.Countries,
				[]*domain.Schema{domain.Country, domain.Region, domain.City}, 2)
			return err
		})
	})
}

// Catalog fills the image pool, registers its files, and loads attributes,
// the category tree and brands.
func (s *Seeder) Catalog(ctx context.Context) (*domain.PhaseReport, error) {
	return s.phase(ctx, PhaseCatalog, func(ctx context.Context, rec *Recorder) error {
		if err := s.ensurePool(ctx, rec); err != nil {
			return err
		}

		if err := s.step(ctx, rec, "images", func(ctx context.Context, w *writers) error {
			return s.registerImages(ctx, w, true)
		}); err != nil {
			return err
		}

		if err := s.step(ctx, rec, "attributes", func(ctx context.Context, w *writers) error {
			_, _, err := w.loader.Load(ctx, s.data.Attributes, []*domain.Schema{domain.Attribute, domain.AttributeValue}, 0)
			return err
		}); err != nil {
			return err
		}

		if err := s.step(ctx, rec, "categories", func(ctx context.Context, w *writers) error {
			_, _, err := w.loader.Load(ctx, s.data.Categories,
				[]*domain.Schema{domain.Category, domain.Category, domain.Category}, 0)
			return err
		}); err != nil {
			return err
		}

		return s.generateBrands(ctx, rec)
	})
}

// Products generates products for every brand, one partition per brand.
func (s *Seeder) Products(ctx context.Context) (*domain.PhaseReport, error) {
	return s.phase(ctx, PhaseProducts, func(ctx context.Context, rec *Recorder) error {
		if err := s.pool.Scan(); err != nil {
			return err
		}
		if err := s.step(ctx, rec, "images", func(ctx context.Context, w *writers) error {
			return s.registerImages(ctx, w, false)
		}); err != nil {
			return err
		}
		return s.generateProducts(ctx, rec)
	})
}

// Pool ensures the image pool, or removes it when cleanup is enabled.
func (s *Seeder) Pool(ctx context.Context) (*domain.PhaseReport, error) {
	return s.phase(ctx, PhasePool, func(ctx context.Context, rec *Recorder) error {
		if s.opts.PoolCleanup {
			n, err := s.pool.Cleanup(ctx)
			rec.Assets("removed", n)
			return err
		}
		return s.ensurePool(ctx, rec)
	})
}

func (s *Seeder) ensurePool(ctx context.Context, rec *Recorder) error {
	res, err := s.pool.Ensure(ctx)
	rec.Assets("reused", res.Existing)
	rec.Assets("generated", res.Generated)
	rec.Assets("failed", res.Failed)
	if err != nil {
		if ctx.Err() != nil {
			rec.Report().MarkInterrupted()
			return nil
		}
		return fmt.Errorf("ensure pool: %w", err)
	}
	return nil
}

// registerImages makes every pool file an image entity. Without refresh,
// files already registered are only resolved.
func (s *Seeder) registerImages(ctx context.Context, w *writers, refresh bool) error {
	ids := make(map[string]string, s.pool.Size())
	for _, a := range s.pool.Assets() {
		key := domain.Key{"path": a.Name}
		if !refresh {
			id, err := w.upserter.FindID(ctx, domain.Image, key)
			if err == nil {
				ids[a.Name] = id
				continue
			}
			if !apperrors.IsNotFound(err) {
				return err
			}
		}
		e, err := w.upserter.Upsert(ctx, domain.Image, key, domain.Attributes{
			"width":  s.opts.ImageWidth,
			"height": s.opts.ImageHeight,
		})
		if err != nil {
			return err
		}
		ids[a.Name] = e.ID
	}

	s.mu.Lock()
	s.imageIDs = ids
	s.mu.Unlock()
	return nil
}

func (s *Seeder) imageID(name string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.imageIDs[name]
	return id, ok
}

func (s *Seeder) allImageIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.imageIDs))
	for _, a := range s.pool.Assets() {
		if id, ok := s.imageIDs[a.Name]; ok {
			out = append(out, id)
		}
	}
	return out
}

// enrich gives every category a pool image chosen by its code, so reruns
// keep the same image.
func (s *Seeder) enrich(schema *domain.Schema, n *geodata.Node, attrs domain.Attributes) {
	if schema.Kind != domain.KindCategory {
		return
	}
	assets := s.pool.Assets()
	if len(assets) == 0 {
		return
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(n.Code))
	if id, ok := s.imageID(assets[int(h.Sum32()%uint32(len(assets)))].Name); ok {
		attrs["image_id"] = id
	}
}
