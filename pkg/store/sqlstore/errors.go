package sqlstore

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

var (
	// ErrNotFound is returned when no snapshot or specification matches a lookup
	ErrNotFound = errors.New("snapshot not found")

	// ErrDuplicate is returned when a snapshot with the same id was already saved
	ErrDuplicate = errors.New("snapshot already saved")
)

// uniqueViolation is the SQLSTATE of a unique or primary key violation
const uniqueViolation = "23505"

// convertDBError maps driver-specific errors to the store's errors. Both
// PostgreSQL drivers are recognized since either may be configured.
func convertDBError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", ErrDuplicate, pgErr.Detail)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
		return fmt.Errorf("%w: %s", ErrDuplicate, pqErr.Detail)
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		switch liteErr.ExtendedCode {
		case sqlite3.ErrConstraintPrimaryKey, sqlite3.ErrConstraintUnique:
			return fmt.Errorf("%w: %s", ErrDuplicate, liteErr.Error())
		}
	}

	return err
}
