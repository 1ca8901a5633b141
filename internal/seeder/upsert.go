package seeder

import (
	"context"
	"fmt"

	"github.com/utafrali/catalogseed/internal/domain"
	"github.com/utafrali/catalogseed/internal/repository"
)

// Upserter creates or updates single entities by natural key.
type Upserter struct {
	store repository.EntityStore
	rec   *Recorder
}

// NewUpserter creates an upserter writing to store.
func NewUpserter(store repository.EntityStore, rec *Recorder) *Upserter {
	return &Upserter{store: store, rec: rec}
}

// Upsert validates key and attrs against schema and writes the row. On an
// existing row only the attributes present in attrs are overwritten.
// Constraint failures are returned as ConstraintViolation for the caller to
// skip or propagate.
func (u *Upserter) Upsert(ctx context.Context, schema *domain.Schema, key domain.Key, attrs domain.Attributes) (*domain.Entity, error) {
	if err := schema.ValidateKey(key); err != nil {
		return nil, err
	}
	values, provided, err := schema.Normalize(attrs)
	if err != nil {
		return nil, err
	}

	entity, err := u.store.Upsert(ctx, schema, key, values, provided)
	if err != nil {
		return nil, fmt.Errorf("upsert %s %s: %w", schema.Kind, key, err)
	}

	if entity.Created {
		u.rec.Entity(schema.Kind, domain.OutcomeCreated)
	} else {
		u.rec.Entity(schema.Kind, domain.OutcomeUpdated)
	}
	return entity, nil
}

// FindID resolves the id of an existing entity.
func (u *Upserter) FindID(ctx context.Context, schema *domain.Schema, key domain.Key) (string, error) {
	if err := schema.ValidateKey(key); err != nil {
		return "", err
	}
	return u.store.FindID(ctx, schema, key)
}
