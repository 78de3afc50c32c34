// Package snapshot saves and loads pollutant datasets as binary table files.
//
// A snapshot is a small database (SQLite by default, DuckDB optionally)
// holding exactly one dataset plus its metadata.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/leapstack-labs/airprep/pkg/core"
)

// Store saves datasets to and loads datasets from snapshot files.
type Store struct {
	backend string
	logger  *slog.Logger
}

// NewStore creates a Store. backend is a registered name or BackendAuto.
func NewStore(backend string, logger *slog.Logger) *Store {
	if backend == "" {
		backend = BackendAuto
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{backend: backend, logger: logger}
}

// Save writes ds to path, replacing any existing file. The snapshot is built
// in a temporary file beside path and renamed into place on success.
// A missing ID or CreatedAt is filled in on ds.
func (s *Store) Save(ctx context.Context, path string, ds *core.Dataset) error {
	backend, err := NewBackend(s.backend, path, s.logger)
	if err != nil {
		return err
	}

	if ds.ID == "" {
		ds.ID = uuid.New().String()
	}
	if ds.CreatedAt.IsZero() {
		ds.CreatedAt = time.Now().UTC()
	}

	tmpPath, err := reserveTempPath(path)
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmpPath) }()

	if err := s.writeTo(ctx, backend, tmpPath, ds); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to move snapshot into place: %w", err)
	}

	s.logger.Debug("saved snapshot",
		"path", path,
		"backend", backend.Name(),
		"id", ds.ID,
		"rows", len(ds.Records))
	return nil
}

func (s *Store) writeTo(ctx context.Context, backend Backend, path string, ds *core.Dataset) error {
	db, err := backend.Open(ctx, path, false)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	if err := backend.InitSchema(ctx, db); err != nil {
		return err
	}
	if err := writeDataset(ctx, db, ds); err != nil {
		return err
	}
	return db.Close()
}

// Load reads the dataset stored at path.
func (s *Store) Load(ctx context.Context, path string) (*core.Dataset, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory, not a snapshot", path)
	}

	backend, err := NewBackend(s.backend, path, s.logger)
	if err != nil {
		return nil, err
	}
	db, err := backend.Open(ctx, path, true)
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()

	ds, err := readDataset(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	s.logger.Debug("loaded snapshot",
		"path", path,
		"backend", backend.Name(),
		"id", ds.ID,
		"pollutant", ds.Pollutant.String(),
		"stage", string(ds.Stage),
		"rows", len(ds.Records))
	return ds, nil
}

// reserveTempPath returns an unused file name in the directory of path.
// The file itself is not left behind: database engines create it on open.
func reserveTempPath(path string) (string, error) {
	dir := filepath.Dir(path)
	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("output directory does not exist: %s", dir)
	}
	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create temp snapshot: %w", err)
	}
	name := f.Name()
	_ = f.Close()
	if err := os.Remove(name); err != nil {
		return "", err
	}
	return name, nil
}
