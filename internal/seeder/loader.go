package seeder

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/utafrali/catalogseed/internal/domain"
	"github.com/utafrali/catalogseed/internal/geodata"
	"github.com/utafrali/catalogseed/internal/locale"
	"github.com/utafrali/catalogseed/pkg/logger"
	"github.com/utafrali/catalogseed/pkg/slug"
)

// LoadResult counts the nodes a Load call touched.
type LoadResult struct {
	Resolved int
	Upserted int
	Ignored  int
}

// Loader writes nested reference datasets parent-first.
type Loader struct {
	upserter     *Upserter
	translations *TranslationSynchronizer
	locales      locale.Set
	fallback     string
	prune        bool
	logger       *slog.Logger

	// Enrich, when set, may add attributes to a node before it is upserted.
	Enrich func(schema *domain.Schema, n *geodata.Node, attrs domain.Attributes)
}

// NewLoader creates a loader that translates every node into locales,
// using the fallback locale's text where a node has none for a locale.
// With prune set, translations outside locales are deleted.
func NewLoader(upserter *Upserter, translations *TranslationSynchronizer, locales locale.Set, fallback string, prune bool, logger *slog.Logger) *Loader {
	return &Loader{
		upserter:     upserter,
		translations: translations,
		locales:      locales,
		fallback:     fallback,
		prune:        prune,
		logger:       logger,
	}
}

// Load walks nodes breadth-first. levels[d] is the schema of nodes at depth
// d; deeper nodes are ignored. Nodes above depth from must already exist and
// are only resolved to their ids; the rest are upserted with their parent id
// and translated. It returns the id of every node it resolved or upserted,
// keyed by code.
func (l *Loader) Load(ctx context.Context, nodes []geodata.Node, levels []*domain.Schema, from int) (map[string]string, LoadResult, error) {
	ids := make(map[*geodata.Node]string)
	byCode := make(map[string]string)
	var res LoadResult

	err := geodata.Walk(nodes, func(depth int, parent, n *geodata.Node) error {
		if depth >= len(levels) {
			res.Ignored++
			return nil
		}
		schema := levels[depth]
		key := domain.Key{schema.Key[0]: n.Code}

		if depth < from {
			id, err := l.upserter.FindID(ctx, schema, key)
			if err != nil {
				return fmt.Errorf("resolve %s %s: %w", schema.Kind, n.Code, err)
			}
			ids[n] = id
			byCode[n.Code] = id
			res.Resolved++
			return nil
		}

		attrs := make(domain.Attributes, len(n.Attributes)+1)
		maps.Copy(attrs, n.Attributes)
		if parent != nil && schema.Parent != "" {
			attrs[schema.Parent] = ids[parent]
		}
		if l.Enrich != nil {
			l.Enrich(schema, n, attrs)
		}

		entity, err := l.upserter.Upsert(ctx, schema, key, attrs)
		if err != nil {
			return err
		}
		ids[n] = entity.ID
		byCode[n.Code] = entity.ID
		res.Upserted++

		return l.Translate(ctx, schema, entity.ID, l.fields(ctx, schema, n))
	})
	if err != nil {
		return byCode, res, err
	}

	logger.WithContext(ctx, l.logger).InfoContext(ctx, "hierarchy loaded",
		slog.String("root_kind", string(levels[0].Kind)),
		slog.Int("resolved", res.Resolved),
		slog.Int("upserted", res.Upserted),
		slog.Int("ignored", res.Ignored),
	)
	return byCode, res, nil
}

// Translate syncs fields and, when pruning is enabled, removes locales
// outside the configured set.
func (l *Loader) Translate(ctx context.Context, schema *domain.Schema, entityID string, fields domain.LocaleFields) error {
	if !schema.Translatable() {
		return nil
	}
	if err := l.translations.Sync(ctx, schema, entityID, fields); err != nil {
		return err
	}
	if l.prune {
		if _, err := l.translations.Prune(ctx, schema, entityID, l.locales); err != nil {
			return err
		}
	}
	return nil
}

// fields builds the per-locale translation of n, restricted to the fields
// schema carries. A missing slug is derived from the name.
func (l *Loader) fields(ctx context.Context, schema *domain.Schema, n *geodata.Node) domain.LocaleFields {
	out := make(domain.LocaleFields, len(l.locales))
	for _, loc := range l.locales {
		src, ok := n.Translation(loc, l.fallback)
		if !ok {
			logger.WithContext(ctx, l.logger).WarnContext(ctx, "node has no translation",
				slog.String("code", n.Code),
				slog.String("locale", loc),
			)
			continue
		}
		f := make(map[string]string, len(schema.TranslationFields))
		for _, name := range schema.TranslationFields {
			if v, ok := src[name]; ok {
				f[name] = v
			}
		}
		if slices.Contains(schema.TranslationFields, "slug") && f["slug"] == "" && f["name"] != "" {
			f["slug"] = slug.Generate(f["name"])
		}
		out[loc] = f
	}
	return out
}
