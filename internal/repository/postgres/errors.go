package postgres

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	apperrors "github.com/utafrali/catalogseed/pkg/errors"
)

// integrityClass is the SQLSTATE class of integrity constraint violations
// (23505 unique, 23503 foreign key, 23502 not null, 23514 check).
const integrityClass = "23"

// mapError turns integrity constraint failures into ConstraintViolation and
// returns other errors unchanged.
func mapError(entity string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if !strings.HasPrefix(pgErr.Code, integrityClass) {
			return err
		}
		constraint := pgErr.ConstraintName
		if constraint == "" {
			constraint = "SQLSTATE " + pgErr.Code
		}
		return apperrors.ConstraintViolation(entity, constraint, err)
	}

	// Drivers and mocks that only surface the message.
	if code, ok := sqlState(err.Error()); ok && strings.HasPrefix(code, integrityClass) {
		return apperrors.ConstraintViolation(entity, "SQLSTATE "+code, err)
	}
	return err
}

func sqlState(msg string) (string, bool) {
	i := strings.LastIndex(msg, "SQLSTATE ")
	if i < 0 || len(msg) < i+14 {
		return "", false
	}
	return msg[i+9 : i+14], true
}
