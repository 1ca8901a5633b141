package seeder

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/utafrali/catalogseed/internal/domain"
	"github.com/utafrali/catalogseed/internal/repository"
	"github.com/utafrali/catalogseed/internal/search"
	"github.com/utafrali/catalogseed/pkg/logger"
	"github.com/utafrali/catalogseed/pkg/slug"
)

const (
	brandPartition = "brands"
	brandSuffixLen = 4
	skuSuffixLen   = 6
)

var brandDescriptions = map[string]string{
	"en": "%s designs everyday goods built to last.",
	"lt": "%s kuria ilgaamžius kasdienius gaminius.",
}

var productDescriptions = map[string]string{
	"en": "%s. Product code %s.",
	"lt": "%s. Prekės kodas %s.",
}

// template returns the text for loc, falling back to the fallback locale
// and then to English.
func (s *Seeder) template(m map[string]string, loc string) string {
	if t, ok := m[loc]; ok {
		return t
	}
	if t, ok := m[s.opts.FallbackLocale]; ok {
		return t
	}
	return m["en"]
}

// words returns the adjective and noun lists for loc with the same
// fallback as template.
func (s *Seeder) words(loc string) ([]string, []string) {
	v := s.data.Vocabulary
	for _, l := range []string{loc, s.opts.FallbackLocale, "en"} {
		if len(v.Adjectives[l]) > 0 && len(v.Nouns[l]) > 0 {
			return v.Adjectives[l], v.Nouns[l]
		}
	}
	return nil, nil
}

// names builds one product name per locale from a single draw, so every
// locale names the same thing.
func (s *Seeder) names(rng *rand.Rand) map[string]string {
	adjs, nouns := s.words(s.opts.FallbackLocale)
	if len(adjs) == 0 {
		return nil
	}
	ai, ni := rng.IntN(len(adjs)), rng.IntN(len(nouns))

	out := make(map[string]string, len(s.opts.Locales)+1)
	for _, loc := range append([]string{s.opts.FallbackLocale}, s.opts.Locales...) {
		a, n := s.words(loc)
		out[loc] = a[ai%len(a)] + " " + n[ni%len(n)]
	}
	return out
}

func (s *Seeder) generateBrands(ctx context.Context, rec *Recorder) error {
	gen := NewBatchGenerator(s.store, domain.KindBrand, s.opts.ChunkSize, rec, s.logger)
	job := Job{
		Partition: brandPartition,
		Target:    s.opts.BrandCount,
		Count: func(ctx context.Context, store repository.Store) (int, error) {
			return store.Count(ctx, domain.Brand, nil)
		},
		Generate: func(ctx context.Context, store repository.Store, rec *Recorder, rng *rand.Rand, _ int) (bool, error) {
			return s.generateBrand(ctx, s.writers(store, rec), rng)
		},
	}

	res, err := gen.RunAll(ctx, []Job{job}, 1, s.seedFor(PhaseCatalog))
	if err != nil {
		return err
	}
	if res[0].Interrupted {
		rec.Report().MarkInterrupted()
	}
	return nil
}

// generateBrand creates one brand and reports whether it is new.
func (s *Seeder) generateBrand(ctx context.Context, w *writers, rng *rand.Rand) (bool, error) {
	brands := s.data.Vocabulary.Brands
	if len(brands) == 0 {
		return false, fmt.Errorf("vocabulary has no brand names")
	}
	name := brands[rng.IntN(len(brands))]
	key := domain.Key{"slug": slug.WithSuffix(name, Suffix(rng, brandSuffixLen))}

	attrs := domain.Attributes{"is_active": true}
	if logo := s.pool.Draw(rng, 1); len(logo) == 1 {
		if id, ok := s.imageID(logo[0].Name); ok {
			attrs["logo_image_id"] = id
		}
	}

	brand, err := w.upserter.Upsert(ctx, domain.Brand, key, attrs)
	if err != nil {
		return false, err
	}

	fields := make(domain.LocaleFields, len(s.opts.Locales))
	for _, loc := range s.opts.Locales {
		fields[loc] = map[string]string{
			"name":        name,
			"description": fmt.Sprintf(s.template(brandDescriptions, loc), name),
			"meta_title":  name,
		}
	}
	return brand.Created, w.loader.Translate(ctx, domain.Brand, brand.ID, fields)
}

// candidates are the relation targets shared by every product partition.
type candidates struct {
	categories []string
	values     []string
	images     []string
}

func (s *Seeder) generateProducts(ctx context.Context, rec *Recorder) error {
	log := logger.WithContext(ctx, s.logger)

	brandIDs, err := s.store.ListIDs(ctx, domain.Brand, nil)
	if err != nil {
		return fmt.Errorf("list brands: %w", err)
	}
	if len(brandIDs) == 0 {
		log.WarnContext(ctx, "no brands to generate products for, run the catalog phase first")
		return nil
	}

	var cands candidates
	if cands.categories, err = s.store.ListIDs(ctx, domain.Category, nil); err != nil {
		return fmt.Errorf("list categories: %w", err)
	}
	if cands.values, err = s.store.ListIDs(ctx, domain.AttributeValue, nil); err != nil {
		return fmt.Errorf("list attribute values: %w", err)
	}
	cands.images = s.allImageIDs()

	log.InfoContext(ctx, "generating products",
		slog.Int("brands", len(brandIDs)),
		slog.Int("per_brand", s.opts.ProductsPerBrand),
		slog.Int("categories", len(cands.categories)),
		slog.Int("attribute_values", len(cands.values)),
		slog.Int("images", len(cands.images)),
	)

	jobs := make([]Job, len(brandIDs))
	for i, brandID := range brandIDs {
		var pending []search.Document
		jobs[i] = Job{
			Partition: "brand:" + brandID,
			Target:    s.opts.ProductsPerBrand,
			Count: func(ctx context.Context, store repository.Store) (int, error) {
				return store.Count(ctx, domain.Product, domain.Filter{"brand_id": brandID})
			},
			Generate: func(ctx context.Context, store repository.Store, rec *Recorder, rng *rand.Rand, _ int) (bool, error) {
				doc, created, err := s.generateProduct(ctx, s.writers(store, rec), rng, brandID, cands)
				if err != nil {
					return false, err
				}
				if s.opts.Indexer != nil {
					pending = append(pending, doc)
				}
				return created, nil
			},
			Committed: func(ctx context.Context) {
				s.index(ctx, rec, pending)
				pending = nil
			},
		}
	}

	gen := NewBatchGenerator(s.store, domain.KindProduct, s.opts.ChunkSize, rec, s.logger)
	results, err := gen.RunAll(ctx, jobs, s.opts.Workers, s.seedFor(PhaseProducts))
	for _, r := range results {
		if r.Interrupted {
			rec.Report().MarkInterrupted()
		}
	}
	return err
}

// generateProduct creates one product with translations, relations and
// variants, and returns its search document and whether it is new. A
// product failure aborts the partition; relation and translation failures
// are skipped by their writers.
func (s *Seeder) generateProduct(ctx context.Context, w *writers, rng *rand.Rand, brandID string, cands candidates) (search.Document, bool, error) {
	var doc search.Document
	names := s.names(rng)
	if names == nil {
		return doc, false, fmt.Errorf("vocabulary has no product words")
	}
	sfx := Suffix(rng, skuSuffixLen)
	sku := "SKU-" + strings.ToUpper(sfx)

	price := PriceBetween(rng, s.opts.PriceMin, s.opts.PriceMax)
	attrs := domain.Attributes{
		"brand_id":     brandID,
		"sku":          sku,
		"price":        price,
		"weight_grams": IntBetween(rng, 100, 5000),
		"width_mm":     IntBetween(rng, 50, 1000),
		"height_mm":    IntBetween(rng, 50, 1000),
		"length_mm":    IntBetween(rng, 50, 1000),
		"stock":        IntBetween(rng, 0, 500),
		"is_featured":  Chance(rng, s.opts.FeaturedRatio),
		"on_sale":      false,
	}
	if Chance(rng, s.opts.SaleRatio) {
		attrs["on_sale"] = true
		attrs["sale_price"] = price.Mul(decimal.NewFromFloat(1 - s.opts.SaleDiscount)).Round(2)
	}

	key := domain.Key{"slug": slug.WithSuffix(names[s.opts.FallbackLocale], sfx)}
	product, err := w.upserter.Upsert(ctx, domain.Product, key, attrs)
	if err != nil {
		return doc, false, err
	}

	fields := make(domain.LocaleFields, len(s.opts.Locales))
	for _, loc := range s.opts.Locales {
		name := names[loc]
		desc := fmt.Sprintf(s.template(productDescriptions, loc), name, sku)
		fields[loc] = map[string]string{
			"name":             name,
			"slug":             slug.WithSuffix(name, sfx),
			"description":      desc,
			"meta_title":       name,
			"meta_description": desc,
		}
	}
	if err := w.loader.Translate(ctx, domain.Product, product.ID, fields); err != nil {
		return doc, false, err
	}

	if _, err := w.attacher.Attach(ctx, domain.ProductCategories, product.ID, cands.categories, s.opts.Categories, rng); err != nil {
		return doc, false, err
	}
	if _, err := w.attacher.Attach(ctx, domain.ProductAttributeValues, product.ID, cands.values, s.opts.Attributes, rng); err != nil {
		return doc, false, err
	}
	if _, err := w.attacher.Attach(ctx, domain.ProductImages, product.ID, cands.images, s.opts.Images, rng); err != nil {
		return doc, false, err
	}

	variants, err := s.generateVariants(ctx, w, rng, product.ID, sku, price, names)
	if err != nil {
		return doc, false, err
	}

	categoryIDs, err := w.store.ListPivotTargets(ctx, domain.ProductCategories, product.ID)
	if err != nil {
		return doc, false, fmt.Errorf("list product categories: %w", err)
	}
	doc = search.Document{
		ID:          product.ID,
		SKU:         sku,
		Slug:        key["slug"],
		BrandID:     brandID,
		Names:       names,
		Price:       price,
		OnSale:      attrs["on_sale"] == true,
		Featured:    attrs["is_featured"] == true,
		CategoryIDs: categoryIDs,
		Variants:    variants,
	}
	if sp, ok := attrs["sale_price"].(decimal.Decimal); ok {
		doc.SalePrice = &sp
	}
	return doc, product.Created, nil
}

// generateVariants writes the variants of one product and returns how many
// it has.
func (s *Seeder) generateVariants(ctx context.Context, w *writers, rng *rand.Rand, productID, sku string, price decimal.Decimal, names map[string]string) (int, error) {
	n := IntBetween(rng, s.opts.Variants.Min, s.opts.Variants.Max)
	for i := 1; i <= n; i++ {
		variant, err := w.upserter.Upsert(ctx, domain.ProductVariant,
			domain.Key{"sku": fmt.Sprintf("%s-%d", sku, i)},
			domain.Attributes{
				"product_id": productID,
				"price":      price.Add(decimal.NewFromInt(int64(rng.IntN(20)))),
				"stock":      IntBetween(rng, 0, 100),
			})
		if err != nil {
			return 0, err
		}

		fields := make(domain.LocaleFields, len(s.opts.Locales))
		for _, loc := range s.opts.Locales {
			fields[loc] = map[string]string{"name": fmt.Sprintf("%s #%d", names[loc], i)}
		}
		if err := w.loader.Translate(ctx, domain.ProductVariant, variant.ID, fields); err != nil {
			return 0, err
		}
	}
	return n, nil
}
