package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertDBError(t *testing.T) {
	other := errors.New("connection reset")

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"nil", nil, nil},
		{"no rows", sql.ErrNoRows, ErrNotFound},
		{"pgx unique violation", &pgconn.PgError{Code: "23505", Detail: "Key (id) already exists"}, ErrDuplicate},
		{"pq unique violation", &pq.Error{Code: "23505"}, ErrDuplicate},
		{"sqlite primary key", sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintPrimaryKey}, ErrDuplicate},
		{"pgx other violation", &pgconn.PgError{Code: "23503"}, nil},
		{"unrelated", other, other},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := convertDBError(tt.err)
			switch {
			case tt.err == nil:
				assert.NoError(t, got)
			case tt.want == nil:
				assert.Same(t, tt.err, got, "unknown errors pass through")
			default:
				assert.ErrorIs(t, got, tt.want)
			}
		})
	}
}

func TestStore_SaveDuplicate(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "metamodel_snapshots"`).
		WillReturnError(&pgconn.PgError{Code: "23505"})
	mock.ExpectRollback()

	assert.ErrorIs(t, s.Save(context.Background(), fixture()), ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_SQLiteDuplicate(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, "sqlite3", filepath.Join(t.TempDir(), "metamodel.db"))
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Save(ctx, fixture()))
	assert.ErrorIs(t, s.Save(ctx, fixture()), ErrDuplicate)
}

func TestDriverName(t *testing.T) {
	for kind, want := range map[string]string{
		"sqlite":     "sqlite3",
		"SQLite3":    "sqlite3",
		"postgresql": "pgx",
		"pq":         "postgres",
	} {
		got, err := driverName(kind)
		require.NoError(t, err)
		assert.Equal(t, want, got, kind)
	}

	dialect, err := goquDialect("pq")
	require.NoError(t, err)
	assert.Equal(t, "postgres", dialect)
}
