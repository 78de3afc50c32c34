package snapshot

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"

	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite" // sqlite driver
)

// BackendSQLite is the default snapshot backend.
const BackendSQLite = "sqlite"

//go:embed migrations/*.sql
var migrations embed.FS

func init() {
	Register(BackendSQLite, func(l *slog.Logger) Backend { return &SQLiteBackend{logger: l} }, ".db", ".sqlite", ".sqlite3")
}

// SQLiteBackend stores snapshots in SQLite files, versioned with goose.
type SQLiteBackend struct {
	logger *slog.Logger
}

// Name returns the registry name.
func (b *SQLiteBackend) Name() string { return BackendSQLite }

// Open opens the SQLite file at path.
func (b *SQLiteBackend) Open(ctx context.Context, path string, readOnly bool) (*sql.DB, error) {
	dsn := "file:" + path + "?_pragma=foreign_keys(1)"
	if readOnly {
		dsn += "&mode=ro"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite snapshot: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping sqlite snapshot: %w", err)
	}

	b.logger.Debug("opened sqlite snapshot", "path", path, "read_only", readOnly)
	return db, nil
}

// InitSchema runs the embedded migrations.
func (b *SQLiteBackend) InitSchema(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}
