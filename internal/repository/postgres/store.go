package postgres

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/utafrali/catalogseed/internal/domain"
	"github.com/utafrali/catalogseed/internal/repository"
	"github.com/utafrali/catalogseed/pkg/database"
	apperrors "github.com/utafrali/catalogseed/pkg/errors"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Store implements repository.Store using PostgreSQL.
type Store struct {
	db   database.DBTX
	inTx bool
}

// NewStore creates a PostgreSQL-backed store on db, usually a *pgxpool.Pool.
func NewStore(db database.DBTX) *Store {
	return &Store{db: db}
}

var _ repository.Store = (*Store)(nil)

// WithinTx runs fn inside a transaction. Called on a transaction-bound
// store it opens a savepoint.
func (s *Store) WithinTx(ctx context.Context, fn func(repository.Store) error) error {
	return database.InTx(ctx, s.db, func(tx pgx.Tx) error {
		return fn(&Store{db: tx, inTx: true})
	})
}

// write runs a statement that may fail with a constraint violation. Inside a
// transaction it is isolated in a savepoint so the failure does not abort
// the surrounding chunk.
func (s *Store) write(ctx context.Context, fn func(db database.DBTX) error) error {
	if !s.inTx {
		return fn(s.db)
	}
	return database.InTx(ctx, s.db, func(tx pgx.Tx) error {
		return fn(tx)
	})
}

// Upsert inserts or updates a row by natural key.
func (s *Store) Upsert(ctx context.Context, schema *domain.Schema, key domain.Key, values domain.Attributes, update []string) (_ *domain.Entity, err error) {
	cols := make([]string, 0, len(schema.Key)+len(values))
	args := make([]any, 0, cap(cols))
	for _, col := range schema.Key {
		cols = append(cols, col)
		args = append(args, key[col])
	}
	for _, f := range schema.Fields {
		if v, ok := values[f.Name]; ok {
			cols = append(cols, f.Name)
			args = append(args, v)
		}
	}

	set := make([]string, 0, len(update)+1)
	for _, col := range update {
		set = append(set, fmt.Sprintf("%s = EXCLUDED.%s", col, col))
	}
	set = append(set, "updated_at = NOW()")

	query, args, err := psql.Insert(schema.Table).
		Columns(cols...).
		Values(args...).
		Suffix(fmt.Sprintf("ON CONFLICT (%s) DO UPDATE SET %s RETURNING id, (xmax = 0) AS inserted",
			strings.Join(schema.Key, ", "), strings.Join(set, ", "))).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build %s upsert: %w", schema.Kind, err)
	}

	ctx, end := database.TraceQuery(ctx, "Upsert", schema.Table, query)
	defer func() { end(err) }()

	e := &domain.Entity{Kind: schema.Kind, Key: key, Attributes: values}
	err = s.write(ctx, func(db database.DBTX) error {
		return db.QueryRow(ctx, query, args...).Scan(&e.ID, &e.Created)
	})
	if err != nil {
		return nil, mapError(string(schema.Kind), fmt.Errorf("upsert %s %s: %w", schema.Kind, key, err))
	}
	return e, nil
}

// FindID returns the id of the row with the given natural key.
func (s *Store) FindID(ctx context.Context, schema *domain.Schema, key domain.Key) (_ string, err error) {
	where := sq.Eq{}
	for _, col := range schema.Key {
		where[col] = key[col]
	}
	query, args, err := psql.Select("id").From(schema.Table).Where(where).ToSql()
	if err != nil {
		return "", fmt.Errorf("build %s lookup: %w", schema.Kind, err)
	}

	ctx, end := database.TraceQuery(ctx, "FindID", schema.Table, query)
	defer func() { end(err) }()

	var id string
	if err = s.db.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", apperrors.NotFound(string(schema.Kind), key.String())
		}
		return "", fmt.Errorf("find %s %s: %w", schema.Kind, key, err)
	}
	return id, nil
}

// Count returns the number of rows matching filter.
func (s *Store) Count(ctx context.Context, schema *domain.Schema, filter domain.Filter) (_ int, err error) {
	b := psql.Select("COUNT(*)").From(schema.Table)
	if len(filter) > 0 {
		b = b.Where(sq.Eq(filter))
	}
	query, args, err := b.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build %s count: %w", schema.Kind, err)
	}

	ctx, end := database.TraceQuery(ctx, "Count", schema.Table, query)
	defer func() { end(err) }()

	var n int
	if err = s.db.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", schema.Kind, err)
	}
	return n, nil
}

// ListIDs returns ids of rows matching filter ordered by natural key.
func (s *Store) ListIDs(ctx context.Context, schema *domain.Schema, filter domain.Filter) (_ []string, err error) {
	b := psql.Select("id").From(schema.Table).OrderBy(schema.Key...)
	if len(filter) > 0 {
		b = b.Where(sq.Eq(filter))
	}
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build %s list: %w", schema.Kind, err)
	}

	ctx, end := database.TraceQuery(ctx, "ListIDs", schema.Table, query)
	defer func() { end(err) }()

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", schema.Kind, err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan %s ids: %w", schema.Kind, err)
	}
	return ids, nil
}

// UpsertTranslation writes one (entity, locale) translation row.
func (s *Store) UpsertTranslation(ctx context.Context, schema *domain.Schema, entityID, locale string, fields map[string]string) (_ bool, err error) {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	cols := append([]string{schema.TranslationFK, "locale"}, names...)
	args := []any{entityID, locale}
	set := make([]string, 0, len(names)+1)
	for _, name := range names {
		args = append(args, fields[name])
		set = append(set, fmt.Sprintf("%s = EXCLUDED.%s", name, name))
	}
	set = append(set, "updated_at = NOW()")

	query, args, err := psql.Insert(schema.TranslationTable).
		Columns(cols...).
		Values(args...).
		Suffix(fmt.Sprintf("ON CONFLICT (%s, locale) DO UPDATE SET %s RETURNING (xmax = 0) AS inserted",
			schema.TranslationFK, strings.Join(set, ", "))).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build %s upsert: %w", schema.TranslationTable, err)
	}

	ctx, end := database.TraceQuery(ctx, "UpsertTranslation", schema.TranslationTable, query)
	defer func() { end(err) }()

	var inserted bool
	err = s.write(ctx, func(db database.DBTX) error {
		return db.QueryRow(ctx, query, args...).Scan(&inserted)
	})
	if err != nil {
		return false, mapError(schema.TranslationTable, fmt.Errorf("upsert %s %s/%s: %w", schema.TranslationTable, entityID, locale, err))
	}
	return inserted, nil
}

// DeleteTranslations removes translations of entityID outside keep.
func (s *Store) DeleteTranslations(ctx context.Context, schema *domain.Schema, entityID string, keep []string) (_ int, err error) {
	b := psql.Delete(schema.TranslationTable).Where(sq.Eq{schema.TranslationFK: entityID})
	if len(keep) > 0 {
		b = b.Where(sq.NotEq{"locale": keep})
	}
	query, args, err := b.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build %s delete: %w", schema.TranslationTable, err)
	}

	ctx, end := database.TraceQuery(ctx, "DeleteTranslations", schema.TranslationTable, query)
	defer func() { end(err) }()

	tag, err := s.db.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("delete %s for %s: %w", schema.TranslationTable, entityID, err)
	}
	return int(tag.RowsAffected()), nil
}

// AttachPivot inserts a relation row, ignoring duplicates.
func (s *Store) AttachPivot(ctx context.Context, rel *domain.Relation, p domain.Pivot) (_ bool, err error) {
	cols := []string{rel.LeftColumn, rel.RightColumn}
	args := []any{p.LeftID, p.RightID}
	if rel.Ordered {
		cols = append(cols, "position")
		args = append(args, p.Position)
	}

	query, args, err := psql.Insert(rel.Table).
		Columns(cols...).
		Values(args...).
		Suffix("ON CONFLICT DO NOTHING").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build %s insert: %w", rel.Table, err)
	}

	ctx, end := database.TraceQuery(ctx, "AttachPivot", rel.Table, query)
	defer func() { end(err) }()

	var tag pgconn.CommandTag
	err = s.write(ctx, func(db database.DBTX) error {
		var execErr error
		tag, execErr = db.Exec(ctx, query, args...)
		return execErr
	})
	if err != nil {
		return false, mapError(rel.Table, fmt.Errorf("attach %s %s->%s: %w", rel.Table, p.LeftID, p.RightID, err))
	}
	return tag.RowsAffected() == 1, nil
}

// ListPivotTargets returns the right-hand ids linked to leftID.
func (s *Store) ListPivotTargets(ctx context.Context, rel *domain.Relation, leftID string) (_ []string, err error) {
	query, args, err := psql.Select(rel.RightColumn).
		From(rel.Table).
		Where(sq.Eq{rel.LeftColumn: leftID}).
		OrderBy(rel.RightColumn).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build %s list: %w", rel.Table, err)
	}

	ctx, end := database.TraceQuery(ctx, "ListPivotTargets", rel.Table, query)
	defer func() { end(err) }()

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list %s for %s: %w", rel.Table, leftID, err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan %s targets: %w", rel.Table, err)
	}
	return ids, nil
}
