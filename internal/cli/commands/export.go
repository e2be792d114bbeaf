package commands

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/conduit-lang/metamodel/internal/cli/ui"
	"github.com/conduit-lang/metamodel/pkg/store/redisstore"
	"github.com/conduit-lang/metamodel/pkg/store/sqlstore"
	"github.com/conduit-lang/metamodel/runtime/metadata"
)

const (
	targetFile     = "file"
	targetDatabase = "database"
	targetRedis    = "redis"
)

func newExportCommand(opts *rootOptions) *cobra.Command {
	var target, output, dsn, kind, redisAddr string
	var strict bool

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a snapshot of the metamodel",
		Long: `Build the metamodel and export it as a versioned JSON snapshot.

Targets:
  file      write the snapshot to --output, or stdout when no output is given
  database  save it to SQLite or PostgreSQL (export.database in the config)
  redis     publish it to Redis and notify subscribers (export.redis in the config)

Snapshots of an invalid metamodel carry their failures; use --strict to refuse them.`,
		Example: `  metamodel export -o metamodel.json
  metamodel export --to database --kind postgres --dsn postgres://localhost/app
  metamodel export --to redis --redis-addr localhost:6379`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			if s.invalid != nil {
				if strict {
					return fmt.Errorf("refusing to export an invalid metamodel: %d failure(s)", len(s.invalid.Failures))
				}
				fmt.Fprint(cmd.ErrOrStderr(), ui.Warning(
					fmt.Sprintf("Exporting a metamodel with %d validation failure(s).", len(s.invalid.Failures)), nil, opts.noColor))
			}

			db := s.config.Export.Database
			if kind != "" {
				db.Kind = kind
			}
			if dsn != "" {
				db.DSN = dsn
			}
			rc := s.config.Export.Redis
			if redisAddr != "" {
				rc.Addr = redisAddr
			}

			var where string
			switch target {
			case targetFile:
				where, err = exportFile(cmd, s.snapshot, output)
			case targetDatabase:
				where = db.Kind
				err = exportDatabase(cmd, s.logger, s.snapshot, db.Kind, db.DSN, db.TablePrefix)
			case targetRedis:
				where = "redis at " + rc.Addr
				err = exportRedis(cmd, s.logger, s.snapshot, redisstore.Config{
					Addr:     rc.Addr,
					Password: rc.Password,
					DB:       rc.DB,
					Prefix:   rc.Prefix,
					TTL:      rc.TTL,
				})
			default:
				return fmt.Errorf("unknown export target %q (want file, database or redis)", target)
			}
			if err != nil {
				fmt.Fprint(cmd.ErrOrStderr(), ui.ExportError(target, err, opts.noColor))
				return err
			}

			if where != "" {
				ui.WriteSuccess(cmd.ErrOrStderr(),
					fmt.Sprintf("Exported snapshot %s (%d specifications) to %s", s.snapshot.ID, len(s.snapshot.Specs), where), opts.noColor)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&target, "to", targetFile, "Export target: file, database or redis")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file for the file target (default stdout)")
	cmd.Flags().StringVar(&kind, "kind", "", "Database kind: sqlite3 or postgres (overrides export.database.kind)")
	cmd.Flags().StringVar(&dsn, "dsn", "", "Database DSN (overrides export.database.dsn)")
	cmd.Flags().StringVar(&redisAddr, "redis-addr", "", "Redis address (overrides export.redis.addr)")
	cmd.Flags().BoolVar(&strict, "strict", false, "Fail instead of exporting an invalid metamodel")
	return cmd
}

// exportFile writes the snapshot and returns where it went; empty for stdout
func exportFile(cmd *cobra.Command, meta *metadata.Metadata, output string) (string, error) {
	data, err := metadata.Encode(meta)
	if err != nil {
		return "", err
	}
	if output == "" {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return "", err
	}
	if err := os.WriteFile(output, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", output, err)
	}
	return output, nil
}

func exportDatabase(cmd *cobra.Command, logger *zap.Logger, meta *metadata.Metadata, kind, dsn, prefix string) error {
	store, err := sqlstore.Open(cmd.Context(), kind, dsn,
		sqlstore.WithTablePrefix(prefix),
		sqlstore.WithLogger(logger.Named("sqlstore")),
	)
	if err != nil {
		return err
	}
	defer store.Close()
	return store.Save(cmd.Context(), meta)
}

func exportRedis(cmd *cobra.Command, logger *zap.Logger, meta *metadata.Metadata, config redisstore.Config) error {
	store, err := redisstore.Connect(cmd.Context(), config, logger.Named("redisstore"))
	if err != nil {
		return err
	}
	defer store.Close()
	return store.Publish(cmd.Context(), meta)
}

func newSnapshotsCommand(opts *rootOptions) *cobra.Command {
	var dsn, kind string

	cmd := &cobra.Command{
		Use:   "snapshots",
		Short: "List snapshots saved to the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			db := s.config.Export.Database
			if kind != "" {
				db.Kind = kind
			}
			if dsn != "" {
				db.DSN = dsn
			}
			store, err := sqlstore.Open(cmd.Context(), db.Kind, db.DSN,
				sqlstore.WithTablePrefix(db.TablePrefix),
				sqlstore.WithLogger(s.logger.Named("sqlstore")),
			)
			if err != nil {
				return err
			}
			defer store.Close()

			infos, err := store.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(infos) == 0 {
				fmt.Fprint(cmd.ErrOrStderr(), ui.Warning("No snapshots saved yet.", []string{"metamodel export --to database"}, opts.noColor))
				return nil
			}

			table := ui.NewTable(cmd.OutOrStdout(),
				[]string{"ID", "GENERATED", "SPECS", "FAILURES", "CURRENT"},
				&ui.TableOptions{NoColor: opts.noColor})
			for _, info := range infos {
				current := ""
				if info.SourceHash == s.snapshot.SourceHash {
					current = "yes"
				}
				table.AddRow(info.ID,
					info.GeneratedAt.UTC().Format(time.RFC3339),
					strconv.Itoa(info.SpecCount),
					strconv.Itoa(info.FailureCount),
					current)
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "", "Database kind: sqlite3 or postgres (overrides export.database.kind)")
	cmd.Flags().StringVar(&dsn, "dsn", "", "Database DSN (overrides export.database.dsn)")
	return cmd
}
