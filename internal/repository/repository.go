package repository

import (
	"context"

	"github.com/utafrali/catalogseed/internal/domain"
)

// EntityStore persists entities by natural key.
type EntityStore interface {
	// Upsert inserts values under key, or overwrites the columns listed in
	// update when a row with key already exists. Constraint failures other
	// than the natural key are reported as ConstraintViolation.
	Upsert(ctx context.Context, schema *domain.Schema, key domain.Key, values domain.Attributes, update []string) (*domain.Entity, error)

	// FindID returns the id of the row with key, or NotFound.
	FindID(ctx context.Context, schema *domain.Schema, key domain.Key) (string, error)

	// Count returns the number of rows matching filter. A nil filter counts all rows.
	Count(ctx context.Context, schema *domain.Schema, filter domain.Filter) (int, error)

	// ListIDs returns the ids of rows matching filter, ordered by natural key.
	ListIDs(ctx context.Context, schema *domain.Schema, filter domain.Filter) ([]string, error)
}

// TranslationStore persists per-locale translation rows.
type TranslationStore interface {
	// UpsertTranslation writes the (entityID, locale) row and reports
	// whether it was inserted.
	UpsertTranslation(ctx context.Context, schema *domain.Schema, entityID, locale string, fields map[string]string) (bool, error)

	// DeleteTranslations removes rows of entityID whose locale is not in
	// keep and returns how many were deleted.
	DeleteTranslations(ctx context.Context, schema *domain.Schema, entityID string, keep []string) (int, error)
}

// PivotStore persists relation rows.
type PivotStore interface {
	// AttachPivot inserts p unless the pair already exists and reports
	// whether a row was written.
	AttachPivot(ctx context.Context, rel *domain.Relation, p domain.Pivot) (bool, error)

	// ListPivotTargets returns the right-hand ids linked to leftID, sorted.
	ListPivotTargets(ctx context.Context, rel *domain.Relation, leftID string) ([]string, error)
}

// Store combines every persistence operation the seeder needs.
type Store interface {
	EntityStore
	TranslationStore
	PivotStore

	// WithinTx runs fn with a Store bound to a single transaction. The
	// transaction commits when fn returns nil and rolls back otherwise.
	WithinTx(ctx context.Context, fn func(Store) error) error
}
