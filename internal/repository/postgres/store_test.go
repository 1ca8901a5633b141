package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/catalogseed/internal/domain"
	"github.com/utafrali/catalogseed/internal/repository"
	"github.com/utafrali/catalogseed/pkg/database"
	apperrors "github.com/utafrali/catalogseed/pkg/errors"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })
	return mock
}

func TestUpsert_InsertsNewRow(t *testing.T) {
	mock := newMock(t)
	store := NewStore(mock)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO countries (code,iso3,currency_code) VALUES ($1,$2,$3) ON CONFLICT (code) DO UPDATE SET iso3 = EXCLUDED.iso3, currency_code = EXCLUDED.currency_code, updated_at = NOW() RETURNING id, (xmax = 0) AS inserted")).
		WithArgs("LT", "LTU", "EUR").
		WillReturnRows(pgxmock.NewRows([]string{"id", "inserted"}).AddRow("c-1", true))

	values := domain.Attributes{"iso3": "LTU", "currency_code": "EUR"}
	e, err := store.Upsert(context.Background(), domain.Country, domain.Key{"code": "LT"}, values, []string{"iso3", "currency_code"})
	require.NoError(t, err)

	assert.Equal(t, "c-1", e.ID)
	assert.True(t, e.Created)
	assert.Equal(t, domain.KindCountry, e.Kind)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsert_OnlyProvidedColumnsAreUpdated(t *testing.T) {
	mock := newMock(t)
	store := NewStore(mock)

	// is_active comes from a default and must not be overwritten on conflict.
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO brands (slug,logo_image_id,is_active) VALUES ($1,$2,$3) ON CONFLICT (slug) DO UPDATE SET logo_image_id = EXCLUDED.logo_image_id, updated_at = NOW()")).
		WithArgs("acme", "img-1", true).
		WillReturnRows(pgxmock.NewRows([]string{"id", "inserted"}).AddRow("b-1", false))

	values := domain.Attributes{"logo_image_id": "img-1", "is_active": true}
	e, err := store.Upsert(context.Background(), domain.Brand, domain.Key{"slug": "acme"}, values, []string{"logo_image_id"})
	require.NoError(t, err)

	assert.False(t, e.Created)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsert_NoProvidedColumnsStillReturnsID(t *testing.T) {
	mock := newMock(t)
	store := NewStore(mock)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO zones (code) VALUES ($1) ON CONFLICT (code) DO UPDATE SET updated_at = NOW()")).
		WithArgs("baltics").
		WillReturnRows(pgxmock.NewRows([]string{"id", "inserted"}).AddRow("z-1", false))

	e, err := store.Upsert(context.Background(), domain.Zone, domain.Key{"code": "baltics"}, domain.Attributes{}, nil)
	require.NoError(t, err)
	assert.Equal(t, "z-1", e.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsert_ForeignKeyViolation(t *testing.T) {
	mock := newMock(t)
	store := NewStore(mock)

	mock.ExpectQuery("INSERT INTO regions").
		WithArgs("LT-VL", "missing").
		WillReturnError(errors.New(`ERROR: insert or update on table "regions" violates foreign key constraint "regions_country_id_fkey" (SQLSTATE 23503)`))

	_, err := store.Upsert(context.Background(), domain.Region, domain.Key{"code": "LT-VL"},
		domain.Attributes{"country_id": "missing"}, []string{"country_id"})
	require.Error(t, err)
	assert.True(t, apperrors.IsConstraintViolation(err))
	assert.Contains(t, err.Error(), "SQLSTATE 23503")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsert_PgErrorConstraintName(t *testing.T) {
	mock := newMock(t)
	store := NewStore(mock)

	mock.ExpectQuery("INSERT INTO products").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "products_sku_key", Message: "duplicate key"})

	_, err := store.Upsert(context.Background(), domain.Product, domain.Key{"slug": "p"},
		domain.Attributes{"brand_id": "b", "sku": "S", "price": "1"}, nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsConstraintViolation(err))
	assert.Contains(t, err.Error(), "products_sku_key")
}

func TestUpsert_OtherErrorsPassThrough(t *testing.T) {
	mock := newMock(t)
	store := NewStore(mock)

	mock.ExpectQuery("INSERT INTO currencies").
		WillReturnError(errors.New("connection reset by peer"))

	_, err := store.Upsert(context.Background(), domain.Currency, domain.Key{"code": "EUR"},
		domain.Attributes{"symbol": "€"}, []string{"symbol"})
	require.Error(t, err)
	assert.False(t, apperrors.IsConstraintViolation(err))
	assert.Contains(t, err.Error(), "upsert currency code=EUR")
}

func TestFindID(t *testing.T) {
	mock := newMock(t)
	store := NewStore(mock)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM countries WHERE code = $1")).
		WithArgs("LV").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("c-2"))

	id, err := store.FindID(context.Background(), domain.Country, domain.Key{"code": "LV"})
	require.NoError(t, err)
	assert.Equal(t, "c-2", id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindID_NotFound(t *testing.T) {
	mock := newMock(t)
	store := NewStore(mock)

	mock.ExpectQuery("SELECT id FROM regions").
		WithArgs("XX").
		WillReturnError(pgx.ErrNoRows)

	_, err := store.FindID(context.Background(), domain.Region, domain.Key{"code": "XX"})
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestCount_WithFilter(t *testing.T) {
	mock := newMock(t)
	store := NewStore(mock)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM products WHERE brand_id = $1")).
		WithArgs("b-1").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(42))

	n, err := store.Count(context.Background(), domain.Product, domain.Filter{"brand_id": "b-1"})
	require.NoError(t, err)
	assert.Equal(t, 42, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCount_NoFilter(t *testing.T) {
	mock := newMock(t)
	store := NewStore(mock)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM brands")).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(10))

	n, err := store.Count(context.Background(), domain.Brand, nil)
	require.NoError(t, err)
	assert.Equal(t, 10, n)
}

func TestListIDs_OrderedByKey(t *testing.T) {
	mock := newMock(t)
	store := NewStore(mock)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM attribute_values ORDER BY code")).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("v-1").AddRow("v-2"))

	ids, err := store.ListIDs(context.Background(), domain.AttributeValue, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"v-1", "v-2"}, ids)
}

func TestUpsertTranslation(t *testing.T) {
	mock := newMock(t)
	store := NewStore(mock)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO country_translations (country_id,locale,description,name) VALUES ($1,$2,$3,$4) ON CONFLICT (country_id, locale) DO UPDATE SET description = EXCLUDED.description, name = EXCLUDED.name, updated_at = NOW() RETURNING (xmax = 0) AS inserted")).
		WithArgs("c-1", "lt", "Baltijos šalis", "Lietuva").
		WillReturnRows(pgxmock.NewRows([]string{"inserted"}).AddRow(true))

	inserted, err := store.UpsertTranslation(context.Background(), domain.Country, "c-1", "lt",
		map[string]string{"name": "Lietuva", "description": "Baltijos šalis"})
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertTranslation_ConstraintViolation(t *testing.T) {
	mock := newMock(t)
	store := NewStore(mock)

	mock.ExpectQuery("INSERT INTO product_translations").
		WillReturnError(errors.New(`ERROR: duplicate key value violates unique constraint "product_translations_locale_slug_key" (SQLSTATE 23505)`))

	_, err := store.UpsertTranslation(context.Background(), domain.Product, "p-1", "en",
		map[string]string{"slug": "taken"})
	require.Error(t, err)
	assert.True(t, apperrors.IsConstraintViolation(err))
}

func TestDeleteTranslations_KeepsListedLocales(t *testing.T) {
	mock := newMock(t)
	store := NewStore(mock)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM brand_translations WHERE brand_id = $1 AND locale NOT IN ($2,$3)")).
		WithArgs("b-1", "lt", "en").
		WillReturnResult(pgxmock.NewResult("DELETE", 2))

	n, err := store.DeleteTranslations(context.Background(), domain.Brand, "b-1", []string{"lt", "en"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttachPivot(t *testing.T) {
	mock := newMock(t)
	store := NewStore(mock)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO product_images (product_id,image_id,position) VALUES ($1,$2,$3) ON CONFLICT DO NOTHING")).
		WithArgs("p-1", "img-1", 1).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO product_images").
		WithArgs("p-1", "img-1", 1).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	pivot := domain.Pivot{LeftID: "p-1", RightID: "img-1", Position: 1}

	inserted, err := store.AttachPivot(context.Background(), domain.ProductImages, pivot)
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = store.AttachPivot(context.Background(), domain.ProductImages, pivot)
	require.NoError(t, err)
	assert.False(t, inserted, "duplicate pair is ignored")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttachPivot_UnorderedHasNoPosition(t *testing.T) {
	mock := newMock(t)
	store := NewStore(mock)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO product_categories (product_id,category_id) VALUES ($1,$2) ON CONFLICT DO NOTHING")).
		WithArgs("p-1", "cat-1").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	_, err := store.AttachPivot(context.Background(), domain.ProductCategories, domain.Pivot{LeftID: "p-1", RightID: "cat-1"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListPivotTargets(t *testing.T) {
	mock := newMock(t)
	store := NewStore(mock)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT category_id FROM product_categories WHERE product_id = $1 ORDER BY category_id")).
		WithArgs("p-1").
		WillReturnRows(pgxmock.NewRows([]string{"category_id"}).AddRow("cat-1").AddRow("cat-3"))

	ids, err := store.ListPivotTargets(context.Background(), domain.ProductCategories, "p-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"cat-1", "cat-3"}, ids)
}

func TestWithinTx_CommitsOnSuccess(t *testing.T) {
	mock := newMock(t)
	store := NewStore(mock)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT COUNT").WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectCommit()

	err := store.WithinTx(context.Background(), func(tx repository.Store) error {
		n, err := tx.Count(context.Background(), domain.Brand, nil)
		assert.Equal(t, 3, n)
		return err
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinTx_RollsBackOnError(t *testing.T) {
	mock := newMock(t)
	store := NewStore(mock)

	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("generator failed")
	err := store.WithinTx(context.Background(), func(repository.Store) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinTx_PivotViolationIsolatedInSavepoint(t *testing.T) {
	mock := newMock(t)
	store := NewStore(mock)

	mock.ExpectBegin()
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO product_categories").
		WillReturnError(errors.New("ERROR: violates foreign key constraint (SQLSTATE 23503)"))
	mock.ExpectRollback()
	mock.ExpectCommit()

	err := store.WithinTx(context.Background(), func(tx repository.Store) error {
		_, err := tx.AttachPivot(context.Background(), domain.ProductCategories, domain.Pivot{LeftID: "p", RightID: "gone"})
		assert.True(t, apperrors.IsConstraintViolation(err))
		return nil
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLState(t *testing.T) {
	code, ok := sqlState("ERROR: boom (SQLSTATE 23514)")
	assert.True(t, ok)
	assert.Equal(t, "23514", code)

	_, ok = sqlState("no state here")
	assert.False(t, ok)
}
