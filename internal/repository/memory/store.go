package memory

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/utafrali/catalogseed/internal/domain"
	"github.com/utafrali/catalogseed/internal/repository"
	apperrors "github.com/utafrali/catalogseed/pkg/errors"
)

type row struct {
	id     string
	key    domain.Key
	values domain.Attributes
}

type table struct {
	rows  map[string]*row
	byKey map[string]string
}

// Store implements repository.Store in memory. It enforces natural-key,
// translation and pivot uniqueness plus reference existence, reporting
// violations the way the PostgreSQL store does. Transactions are not
// isolated and never roll back.
type Store struct {
	mu           sync.RWMutex
	tables       map[string]*table
	translations map[string]map[string]map[string]map[string]string
	pivots       map[string]map[string]map[string]int
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		tables:       make(map[string]*table),
		translations: make(map[string]map[string]map[string]map[string]string),
		pivots:       make(map[string]map[string]map[string]int),
	}
}

var _ repository.Store = (*Store)(nil)

// WithinTx calls fn with the store itself.
func (s *Store) WithinTx(_ context.Context, fn func(repository.Store) error) error {
	return fn(s)
}

func (s *Store) table(name string) *table {
	t, ok := s.tables[name]
	if !ok {
		t = &table{rows: make(map[string]*row), byKey: make(map[string]string)}
		s.tables[name] = t
	}
	return t
}

// exists reports whether id is a row of kind. Callers hold s.mu.
func (s *Store) exists(kind domain.Kind, id string) bool {
	schema, err := domain.SchemaFor(kind)
	if err != nil {
		return false
	}
	t, ok := s.tables[schema.Table]
	if !ok {
		return false
	}
	_, ok = t.rows[id]
	return ok
}

func (s *Store) checkRefs(schema *domain.Schema, values domain.Attributes, cols []string) error {
	for _, col := range cols {
		f, ok := schema.Field(col)
		if !ok || f.Type != domain.FieldRef {
			continue
		}
		id, _ := values[col].(string)
		if id == "" {
			continue
		}
		if !s.exists(f.Ref, id) {
			return apperrors.ConstraintViolation(string(schema.Kind),
				fmt.Sprintf("%s_%s_fkey", schema.Table, col), fmt.Errorf("%s %s does not exist", f.Ref, id))
		}
	}
	return nil
}

// Upsert inserts or updates a row by natural key.
func (s *Store) Upsert(_ context.Context, schema *domain.Schema, key domain.Key, values domain.Attributes, update []string) (*domain.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.table(schema.Table)
	k := key.String()

	if id, ok := t.byKey[k]; ok {
		if err := s.checkRefs(schema, values, update); err != nil {
			return nil, err
		}
		r := t.rows[id]
		for _, col := range update {
			r.values[col] = values[col]
		}
		return &domain.Entity{ID: id, Kind: schema.Kind, Key: key, Attributes: maps.Clone(r.values)}, nil
	}

	if err := s.checkRefs(schema, values, slices.Collect(maps.Keys(values))); err != nil {
		return nil, err
	}
	r := &row{id: uuid.NewString(), key: maps.Clone(key), values: maps.Clone(values)}
	if r.values == nil {
		r.values = domain.Attributes{}
	}
	t.rows[r.id] = r
	t.byKey[k] = r.id
	return &domain.Entity{ID: r.id, Kind: schema.Kind, Key: key, Attributes: maps.Clone(r.values), Created: true}, nil
}

// FindID returns the id of the row with key.
func (s *Store) FindID(_ context.Context, schema *domain.Schema, key domain.Key) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if t, ok := s.tables[schema.Table]; ok {
		if id, ok := t.byKey[key.String()]; ok {
			return id, nil
		}
	}
	return "", apperrors.NotFound(string(schema.Kind), key.String())
}

func matches(r *row, filter domain.Filter) bool {
	for col, want := range filter {
		if r.values[col] != want {
			return false
		}
	}
	return true
}

func (s *Store) matching(schema *domain.Schema, filter domain.Filter) []*row {
	t, ok := s.tables[schema.Table]
	if !ok {
		return nil
	}
	var out []*row
	for _, r := range t.rows {
		if matches(r, filter) {
			out = append(out, r)
		}
	}
	return out
}

// Count returns the number of rows matching filter.
func (s *Store) Count(_ context.Context, schema *domain.Schema, filter domain.Filter) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.matching(schema, filter)), nil
}

// ListIDs returns ids of rows matching filter ordered by natural key.
func (s *Store) ListIDs(_ context.Context, schema *domain.Schema, filter domain.Filter) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := s.matching(schema, filter)
	sort.Slice(rows, func(i, j int) bool { return rows[i].key.String() < rows[j].key.String() })
	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.id
	}
	return ids, nil
}

// UpsertTranslation writes one (entity, locale) translation row.
func (s *Store) UpsertTranslation(_ context.Context, schema *domain.Schema, entityID, locale string, fields map[string]string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.exists(schema.Kind, entityID) {
		return false, apperrors.ConstraintViolation(schema.TranslationTable,
			schema.TranslationTable+"_"+schema.TranslationFK+"_fkey", fmt.Errorf("%s %s does not exist", schema.Kind, entityID))
	}

	byEntity, ok := s.translations[schema.TranslationTable]
	if !ok {
		byEntity = make(map[string]map[string]map[string]string)
		s.translations[schema.TranslationTable] = byEntity
	}
	byLocale, ok := byEntity[entityID]
	if !ok {
		byLocale = make(map[string]map[string]string)
		byEntity[entityID] = byLocale
	}

	existing, found := byLocale[locale]
	if !found {
		existing = make(map[string]string, len(fields))
		byLocale[locale] = existing
	}
	for k, v := range fields {
		existing[k] = v
	}
	return !found, nil
}

// DeleteTranslations removes translations of entityID outside keep.
func (s *Store) DeleteTranslations(_ context.Context, schema *domain.Schema, entityID string, keep []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	byLocale := s.translations[schema.TranslationTable][entityID]
	deleted := 0
	for locale := range byLocale {
		if !slices.Contains(keep, locale) {
			delete(byLocale, locale)
			deleted++
		}
	}
	return deleted, nil
}

// AttachPivot inserts a relation row, ignoring duplicates.
func (s *Store) AttachPivot(_ context.Context, rel *domain.Relation, p domain.Pivot) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.exists(rel.Left, p.LeftID) {
		return false, apperrors.ConstraintViolation(rel.Table, rel.Table+"_"+rel.LeftColumn+"_fkey",
			fmt.Errorf("%s %s does not exist", rel.Left, p.LeftID))
	}
	if !s.exists(rel.Right, p.RightID) {
		return false, apperrors.ConstraintViolation(rel.Table, rel.Table+"_"+rel.RightColumn+"_fkey",
			fmt.Errorf("%s %s does not exist", rel.Right, p.RightID))
	}

	byLeft, ok := s.pivots[rel.Table]
	if !ok {
		byLeft = make(map[string]map[string]int)
		s.pivots[rel.Table] = byLeft
	}
	targets, ok := byLeft[p.LeftID]
	if !ok {
		targets = make(map[string]int)
		byLeft[p.LeftID] = targets
	}
	if _, dup := targets[p.RightID]; dup {
		return false, nil
	}
	targets[p.RightID] = p.Position
	return true, nil
}

// ListPivotTargets returns the right-hand ids linked to leftID, sorted.
func (s *Store) ListPivotTargets(_ context.Context, rel *domain.Relation, leftID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := slices.Collect(maps.Keys(s.pivots[rel.Table][leftID]))
	sort.Strings(ids)
	return ids, nil
}
