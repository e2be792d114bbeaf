// Package sqlstore persists metamodel snapshots in a relational database so that
// tools outside the process can read the metamodel of a deployed application.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"  // dialect registration
	"github.com/jmoiron/sqlx"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/conduit-lang/metamodel/runtime/metadata"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	colID           = "id"
	colVersion      = "version"
	colSourceHash   = "source_hash"
	colGeneratedAt  = "generated_at"
	colSpecCount    = "spec_count"
	colFailureCount = "failure_count"
	colDocument     = "document"
	colSnapshotID   = "snapshot_id"
	colName         = "name"
	colType         = "type"
	colNature       = "nature"
)

// SnapshotInfo summarizes a stored snapshot without its document
type SnapshotInfo struct {
	ID           string    `db:"id"`
	Version      string    `db:"version"`
	SourceHash   string    `db:"source_hash"`
	GeneratedAt  time.Time `db:"generated_at"`
	SpecCount    int       `db:"spec_count"`
	FailureCount int       `db:"failure_count"`
}

// Store reads and writes snapshots through goqu-built statements
type Store struct {
	db        *sqlx.DB
	dialect   goqu.DialectWrapper
	snapshots string
	specs     string
	logger    *zap.Logger
}

// Option configures a Store
type Option func(*Store)

// WithTablePrefix changes the prefix of the snapshot tables (default "metamodel_")
func WithTablePrefix(prefix string) Option {
	return func(s *Store) {
		s.snapshots = prefix + "snapshots"
		s.specs = prefix + "specs"
	}
}

// WithLogger sets the logger used to report writes
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// New creates a store on an open connection. dialect is one of the names
// accepted by Open ("sqlite3", "postgres" or "pgx").
func New(db *sqlx.DB, dialect string, opts ...Option) (*Store, error) {
	d, err := goquDialect(dialect)
	if err != nil {
		return nil, err
	}
	s := &Store{
		db:      db,
		dialect: goqu.Dialect(d),
		logger:  zap.NewNop(),
	}
	WithTablePrefix("metamodel_")(s)
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// DB returns the underlying connection
func (s *Store) DB() *sqlx.DB { return s.db }

// Save writes a snapshot and one row per specification in a single transaction
func (s *Store) Save(ctx context.Context, meta *metadata.Metadata) error {
	if meta == nil || meta.ID == "" {
		return fmt.Errorf("cannot save a snapshot without an id")
	}

	document, err := metadata.Encode(meta)
	if err != nil {
		return err
	}

	insertSnapshot, args, err := s.dialect.Insert(s.snapshots).Prepared(true).Rows(goqu.Record{
		colID:           meta.ID,
		colVersion:      meta.Version,
		colSourceHash:   meta.SourceHash,
		colGeneratedAt:  meta.Generated,
		colSpecCount:    len(meta.Specs),
		colFailureCount: len(meta.Failures),
		colDocument:     string(document),
	}).ToSQL()
	if err != nil {
		return fmt.Errorf("failed to build snapshot insert: %w", err)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, insertSnapshot, args...); err != nil {
		return fmt.Errorf("failed to insert snapshot %s: %w", meta.ID, convertDBError(err))
	}

	if len(meta.Specs) > 0 {
		rows := make([]any, 0, len(meta.Specs))
		for _, spec := range meta.Specs {
			doc, err := json.Marshal(spec)
			if err != nil {
				return fmt.Errorf("failed to marshal specification %s: %w", spec.Type, err)
			}
			rows = append(rows, goqu.Record{
				colSnapshotID: meta.ID,
				colName:       spec.Name,
				colType:       spec.Type,
				colNature:     spec.Nature,
				colDocument:   string(doc),
			})
		}
		insertSpecs, args, err := s.dialect.Insert(s.specs).Prepared(true).Rows(rows...).ToSQL()
		if err != nil {
			return fmt.Errorf("failed to build specification insert: %w", err)
		}
		if _, err := tx.ExecContext(ctx, insertSpecs, args...); err != nil {
			return fmt.Errorf("failed to insert specifications: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit snapshot %s: %w", meta.ID, err)
	}

	s.logger.Info("snapshot saved",
		zap.String("id", meta.ID),
		zap.String("source_hash", meta.SourceHash),
		zap.Int("specifications", len(meta.Specs)),
	)
	return nil
}

// Load reads the snapshot with the given id
func (s *Store) Load(ctx context.Context, id string) (*metadata.Metadata, error) {
	query, args, err := s.dialect.From(s.snapshots).Prepared(true).
		Select(colDocument).
		Where(goqu.C(colID).Eq(id)).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("failed to build snapshot query: %w", err)
	}
	return s.document(ctx, query, args)
}

// Latest reads the most recently generated snapshot
func (s *Store) Latest(ctx context.Context) (*metadata.Metadata, error) {
	query, args, err := s.dialect.From(s.snapshots).Prepared(true).
		Select(colDocument).
		Order(goqu.C(colGeneratedAt).Desc()).
		Limit(1).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("failed to build snapshot query: %w", err)
	}
	return s.document(ctx, query, args)
}

func (s *Store) document(ctx context.Context, query string, args []any) (*metadata.Metadata, error) {
	var document string
	if err := s.db.GetContext(ctx, &document, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	return metadata.Decode([]byte(document))
}

// List summarizes stored snapshots, newest first
func (s *Store) List(ctx context.Context) ([]SnapshotInfo, error) {
	query, args, err := s.dialect.From(s.snapshots).Prepared(true).
		Select(colID, colVersion, colSourceHash, colGeneratedAt, colSpecCount, colFailureCount).
		Order(goqu.C(colGeneratedAt).Desc()).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("failed to build snapshot query: %w", err)
	}

	var infos []SnapshotInfo
	if err := s.db.SelectContext(ctx, &infos, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	return infos, nil
}

// FindSpec reads one specification of a snapshot by logical or full type name
func (s *Store) FindSpec(ctx context.Context, snapshotID, name string) (*metadata.SpecMetadata, error) {
	query, args, err := s.dialect.From(s.specs).Prepared(true).
		Select(colDocument).
		Where(
			goqu.C(colSnapshotID).Eq(snapshotID),
			goqu.Or(goqu.C(colName).Eq(name), goqu.C(colType).Eq(name)),
		).
		Limit(1).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("failed to build specification query: %w", err)
	}

	var document string
	if err := s.db.GetContext(ctx, &document, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read specification %s: %w", name, err)
	}

	var spec metadata.SpecMetadata
	if err := json.Unmarshal([]byte(document), &spec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal specification %s: %w", name, err)
	}
	return &spec, nil
}

// Delete removes a snapshot and its specifications
func (s *Store) Delete(ctx context.Context, id string) error {
	deleteSpecs, specArgs, err := s.dialect.Delete(s.specs).Prepared(true).
		Where(goqu.C(colSnapshotID).Eq(id)).ToSQL()
	if err != nil {
		return fmt.Errorf("failed to build specification delete: %w", err)
	}
	deleteSnapshot, snapshotArgs, err := s.dialect.Delete(s.snapshots).Prepared(true).
		Where(goqu.C(colID).Eq(id)).ToSQL()
	if err != nil {
		return fmt.Errorf("failed to build snapshot delete: %w", err)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, deleteSpecs, specArgs...); err != nil {
		return fmt.Errorf("failed to delete specifications of %s: %w", id, err)
	}
	result, err := tx.ExecContext(ctx, deleteSnapshot, snapshotArgs...)
	if err != nil {
		return fmt.Errorf("failed to delete snapshot %s: %w", id, err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}
