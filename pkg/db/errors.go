package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// IsUniqueViolation reports whether err is a Postgres unique violation.
// When constraintName is provided, the violation must reference it.
func IsUniqueViolation(err error, constraintName string) bool {
	code, constraint, ok := pgErrorDetails(err)
	if ok {
		if code != pgUniqueViolation {
			return false
		}
		if constraintName != "" {
			return constraint == constraintName
		}
		return true
	}
	// sqlite in tests surfaces plain-text constraint errors without the
	// constraint name, so any unique failure matches there.
	if err == nil {
		return false
	}
	msg := err.Error()
	if constraintName != "" && strings.Contains(msg, constraintName) {
		return true
	}
	return strings.Contains(msg, "duplicate key value") || strings.Contains(msg, "UNIQUE constraint failed")
}

// IsForeignKeyViolation reports whether err is a Postgres FK violation.
func IsForeignKeyViolation(err error) bool {
	code, _, ok := pgErrorDetails(err)
	return ok && code == pgForeignKeyViolation
}

func pgErrorDetails(err error) (code, constraint string, ok bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code, pgErr.ConstraintName, true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code), pqErr.Constraint, true
	}
	return "", "", false
}
