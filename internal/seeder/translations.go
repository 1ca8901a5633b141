package seeder

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/utafrali/catalogseed/internal/domain"
	"github.com/utafrali/catalogseed/internal/locale"
	"github.com/utafrali/catalogseed/internal/repository"
	apperrors "github.com/utafrali/catalogseed/pkg/errors"
	"github.com/utafrali/catalogseed/pkg/logger"
)

// TranslationSynchronizer keeps exactly one translation row per
// (entity, locale).
type TranslationSynchronizer struct {
	store  repository.TranslationStore
	rec    *Recorder
	logger *slog.Logger
}

// NewTranslationSynchronizer creates a synchronizer writing to store.
func NewTranslationSynchronizer(store repository.TranslationStore, rec *Recorder, logger *slog.Logger) *TranslationSynchronizer {
	return &TranslationSynchronizer{store: store, rec: rec, logger: logger}
}

// Sync upserts one row per locale in fields. Locales absent from fields are
// left untouched. Unknown fields fail the whole call before anything is
// written; a constraint violation on one locale is logged and skipped.
func (t *TranslationSynchronizer) Sync(ctx context.Context, schema *domain.Schema, entityID string, fields domain.LocaleFields) error {
	locales := fields.Locales()
	for _, loc := range locales {
		if err := schema.ValidateTranslation(fields[loc]); err != nil {
			return err
		}
	}

	for _, loc := range locales {
		created, err := t.store.UpsertTranslation(ctx, schema, entityID, loc, fields[loc])
		if err != nil {
			if apperrors.IsConstraintViolation(err) {
				t.rec.Translation(schema, domain.OutcomeSkipped)
				logger.WithContext(ctx, t.logger).WarnContext(ctx, "translation skipped",
					slog.String("kind", string(schema.Kind)),
					slog.String("entity_id", entityID),
					slog.String("locale", loc),
					slog.String("error", err.Error()),
				)
				continue
			}
			return fmt.Errorf("sync %s translation %s: %w", schema.Kind, loc, err)
		}

		if created {
			t.rec.Translation(schema, domain.OutcomeCreated)
		} else {
			t.rec.Translation(schema, domain.OutcomeUpdated)
		}
	}
	return nil
}

// Prune deletes translations of entityID for locales outside keep.
func (t *TranslationSynchronizer) Prune(ctx context.Context, schema *domain.Schema, entityID string, keep locale.Set) (int, error) {
	if !schema.Translatable() {
		return 0, nil
	}
	n, err := t.store.DeleteTranslations(ctx, schema, entityID, keep)
	if err != nil {
		return 0, fmt.Errorf("prune %s translations: %w", schema.Kind, err)
	}
	if n > 0 {
		logger.WithContext(ctx, t.logger).DebugContext(ctx, "stale translations pruned",
			slog.String("kind", string(schema.Kind)),
			slog.String("entity_id", entityID),
			slog.Int("deleted", n),
		)
	}
	return n, nil
}
