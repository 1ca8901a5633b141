package memory

import (
	"maps"

	"github.com/utafrali/catalogseed/internal/domain"
)

// Stats maps a table name to its row count, covering entity, translation
// and pivot tables.
type Stats map[string]int

// Stats returns the row counts of every non-empty table.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(Stats)
	for name, t := range s.tables {
		if len(t.rows) > 0 {
			out[name] = len(t.rows)
		}
	}
	for name, byEntity := range s.translations {
		n := 0
		for _, byLocale := range byEntity {
			n += len(byLocale)
		}
		if n > 0 {
			out[name] = n
		}
	}
	for name, byLeft := range s.pivots {
		n := 0
		for _, targets := range byLeft {
			n += len(targets)
		}
		if n > 0 {
			out[name] = n
		}
	}
	return out
}

// Entity returns the stored row with key.
func (s *Store) Entity(schema *domain.Schema, key domain.Key) (*domain.Entity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tables[schema.Table]
	if !ok {
		return nil, false
	}
	id, ok := t.byKey[key.String()]
	if !ok {
		return nil, false
	}
	r := t.rows[id]
	return &domain.Entity{ID: r.id, Kind: schema.Kind, Key: maps.Clone(r.key), Attributes: maps.Clone(r.values)}, true
}

// Entities returns every row of schema's table.
func (s *Store) Entities(schema *domain.Schema) []*domain.Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tables[schema.Table]
	if !ok {
		return nil
	}
	out := make([]*domain.Entity, 0, len(t.rows))
	for _, r := range t.rows {
		out = append(out, &domain.Entity{ID: r.id, Kind: schema.Kind, Key: maps.Clone(r.key), Attributes: maps.Clone(r.values)})
	}
	return out
}

// Translations returns a copy of the translations of entityID by locale.
func (s *Store) Translations(schema *domain.Schema, entityID string) domain.LocaleFields {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(domain.LocaleFields)
	for locale, fields := range s.translations[schema.TranslationTable][entityID] {
		out[locale] = maps.Clone(fields)
	}
	return out
}

// Pivots returns the targets of leftID in rel with their positions.
func (s *Store) Pivots(rel *domain.Relation, leftID string) map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.pivots[rel.Table][leftID])
}
