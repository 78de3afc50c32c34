package snapshot

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"strings"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver
)

// BackendDuckDB stores snapshots in DuckDB database files.
const BackendDuckDB = "duckdb"

//go:embed schema_duckdb.sql
var duckdbSchema string

func init() {
	Register(BackendDuckDB, func(l *slog.Logger) Backend { return &DuckDBBackend{logger: l} }, ".duckdb", ".ddb")
}

// DuckDBBackend stores snapshots in DuckDB files.
type DuckDBBackend struct {
	logger *slog.Logger
}

// Name returns the registry name.
func (b *DuckDBBackend) Name() string { return BackendDuckDB }

// Open opens the DuckDB file at path.
func (b *DuckDBBackend) Open(ctx context.Context, path string, readOnly bool) (*sql.DB, error) {
	dsn := path
	if readOnly {
		dsn += "?access_mode=read_only"
	}

	db, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb snapshot: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping duckdb snapshot: %w", err)
	}

	b.logger.Debug("opened duckdb snapshot", "path", path, "read_only", readOnly)
	return db, nil
}

// InitSchema creates the snapshot tables.
func (b *DuckDBBackend) InitSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range strings.Split(duckdbSchema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
	}
	return nil
}
