package persistence

import (
	"errors"
	"fmt"
	"strings"

	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// uniqueViolationCode is the PostgreSQL SQLSTATE for unique_violation.
const uniqueViolationCode = "23505"

// translateError maps driver errors onto the domain sentinels repositories
// promise: missing rows become shared.ErrNotFound and unique index
// collisions become shared.ErrAlreadyExists. Anything else passes through.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return shared.ErrNotFound
	}
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %v", shared.ErrAlreadyExists, err)
	}
	return err
}

// isUniqueViolation recognizes unique index collisions from PostgreSQL and
// SQLite.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolationCode
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// escapeLike escapes LIKE wildcards in a user-supplied prefix.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
