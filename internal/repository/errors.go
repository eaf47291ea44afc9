package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNotFound is returned by single-row lookups when the row does not
// exist; command handlers translate it to the spec's *_NOT_FOUND domain
// errors.
var ErrNotFound = errors.New("repository: row not found")

// IsUniqueViolationError reports whether err is a PostgreSQL unique
// constraint violation (SQLSTATE 23505) — used to translate a racing
// INSERT into a domain conflict error instead of a generic 500.
func IsUniqueViolationError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.SQLState() == "23505"
	}
	return false
}

// IsExclusionViolationError reports whether err is a PostgreSQL EXCLUDE
// constraint violation (SQLSTATE 23P01) — the second line of defense
// behind I2 described in SPEC_FULL.md §5.
func IsExclusionViolationError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.SQLState() == "23P01"
	}
	return false
}
