package sqlstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/metamodel/runtime/metadata"
)

const snapshotID = "0f8fad5b-d9cb-469f-a165-70867728950e"

var generated = time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)

func fixture() *metadata.Metadata {
	return &metadata.Metadata{
		Version:    metadata.SchemaVersion,
		ID:         snapshotID,
		Generated:  generated,
		SourceHash: "c0ffee",
		Specs: []metadata.SpecMetadata{
			{Name: "petclinic.Owner", Type: "example.com/petclinic.Owner", Nature: "entity", Registered: true},
			{Name: "petclinic.Pet", Type: "example.com/petclinic.Pet", Nature: "entity", Registered: true},
		},
	}
}

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	s, err := New(sqlx.NewDb(db, "sqlmock"), "postgres")
	require.NoError(t, err)
	return s, mock
}

func TestNew_UnsupportedDialect(t *testing.T) {
	_, err := New(nil, "oracle")
	assert.EqualError(t, err, `unsupported database "oracle" (want sqlite3 or postgres)`)
}

func TestStore_Save(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "metamodel_snapshots"`).
		WithArgs(sqlmock.AnyArg(), 0, generated, snapshotID, "c0ffee", 2, metadata.SchemaVersion).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO "metamodel_specs"`).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	require.NoError(t, s.Save(context.Background(), fixture()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_SaveRollsBack(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "metamodel_snapshots"`).
		WillReturnError(errors.New("duplicate key"))
	mock.ExpectRollback()

	err := s.Save(context.Background(), fixture())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to insert snapshot")
	assert.NoError(t, mock.ExpectationsWereMet())

	assert.Error(t, s.Save(context.Background(), &metadata.Metadata{}))
}

func TestStore_Latest(t *testing.T) {
	s, mock := newMockStore(t)
	document, err := metadata.Encode(fixture())
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT "document" FROM "metamodel_snapshots" ORDER BY "generated_at" DESC LIMIT \$1`).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"document"}).AddRow(string(document)))

	meta, err := s.Latest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, snapshotID, meta.ID)
	assert.Len(t, meta.Specs, 2)

	mock.ExpectQuery(`SELECT "document" FROM "metamodel_snapshots"`).
		WillReturnRows(sqlmock.NewRows([]string{"document"}))
	_, err = s.Latest(context.Background())
	assert.ErrorIs(t, err, ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Load(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT "document" FROM "metamodel_snapshots" WHERE \("id" = \$1\)`).
		WithArgs(snapshotID).
		WillReturnRows(sqlmock.NewRows([]string{"document"}).AddRow(`{"invalid": json}`))

	_, err := s.Load(context.Background(), snapshotID)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_List(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT "id", "version", "source_hash", "generated_at", "spec_count", "failure_count" FROM "metamodel_snapshots"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "version", "source_hash", "generated_at", "spec_count", "failure_count"}).
			AddRow(snapshotID, "1.0", "c0ffee", generated, 2, 0))

	infos, err := s.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []SnapshotInfo{{
		ID:          snapshotID,
		Version:     "1.0",
		SourceHash:  "c0ffee",
		GeneratedAt: generated,
		SpecCount:   2,
	}}, infos)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_FindSpec(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT "document" FROM "metamodel_specs" WHERE`).
		WithArgs(snapshotID, "petclinic.Pet", "petclinic.Pet", 1).
		WillReturnRows(sqlmock.NewRows([]string{"document"}).
			AddRow(`{"name":"petclinic.Pet","type":"example.com/petclinic.Pet","nature":"entity"}`))

	spec, err := s.FindSpec(context.Background(), snapshotID, "petclinic.Pet")
	require.NoError(t, err)
	assert.Equal(t, "example.com/petclinic.Pet", spec.Type)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Delete(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "metamodel_specs"`).WithArgs(snapshotID).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`DELETE FROM "metamodel_snapshots"`).WithArgs(snapshotID).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	require.NoError(t, s.Delete(context.Background(), snapshotID))

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "metamodel_specs"`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`DELETE FROM "metamodel_snapshots"`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()
	assert.ErrorIs(t, s.Delete(context.Background(), "missing"), ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_SQLite(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, "sqlite", filepath.Join(t.TempDir(), "metamodel.db"), WithTablePrefix("mm_"))
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Migrate(ctx), "migrations are idempotent")

	_, err = s.Latest(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Save(ctx, fixture()))

	latest, err := s.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, snapshotID, latest.ID)
	assert.Equal(t, fixture().Specs, latest.Specs)

	infos, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.True(t, infos[0].GeneratedAt.Equal(generated))
	assert.Equal(t, 2, infos[0].SpecCount)

	pet, err := s.FindSpec(ctx, snapshotID, "example.com/petclinic.Pet")
	require.NoError(t, err)
	assert.Equal(t, "petclinic.Pet", pet.Name)
	_, err = s.FindSpec(ctx, snapshotID, "petclinic.Vet")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Delete(ctx, snapshotID))
	_, err = s.Load(ctx, snapshotID)
	assert.ErrorIs(t, err, ErrNotFound)
}
