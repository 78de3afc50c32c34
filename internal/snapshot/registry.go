package snapshot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// BackendAuto selects a backend from the snapshot file extension.
const BackendAuto = "auto"

// ErrUnknownBackend is matched by errors.Is for an unregistered backend name.
var ErrUnknownBackend = errors.New("unknown snapshot backend")

// Backend opens snapshot databases of one engine.
type Backend interface {
	// Name returns the registry name of the backend.
	Name() string
	// Open connects to the snapshot at path.
	Open(ctx context.Context, path string, readOnly bool) (*sql.DB, error)
	// InitSchema creates the snapshot tables in a fresh database.
	InitSchema(ctx context.Context, db *sql.DB) error
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]func(*slog.Logger) Backend)
	extensions = make(map[string]string)
)

// Register adds a backend factory to the registry. Files with any of the
// given extensions resolve to it in auto mode.
// Called by backend implementations in their init() functions.
func Register(name string, factory func(*slog.Logger) Backend, exts ...string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = factory
	for _, ext := range exts {
		extensions[strings.ToLower(ext)] = name
	}
}

// ListBackends returns all registered backend names (sorted).
func ListBackends() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ResolveName returns the backend name used for path.
// Auto mode picks by extension and defaults to sqlite.
func ResolveName(name, path string) string {
	if name != "" && name != BackendAuto {
		return name
	}
	registryMu.RLock()
	defer registryMu.RUnlock()
	if byExt, ok := extensions[strings.ToLower(filepath.Ext(path))]; ok {
		return byExt
	}
	return BackendSQLite
}

// NewBackend creates the backend registered under name (after auto resolution).
func NewBackend(name, path string, logger *slog.Logger) (Backend, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	resolved := ResolveName(name, path)

	registryMu.RLock()
	factory, ok := registry[resolved]
	registryMu.RUnlock()
	if !ok {
		return nil, &UnknownBackendError{Name: resolved, Available: ListBackends()}
	}
	return factory(logger), nil
}

// UnknownBackendError is returned when an unknown backend is requested.
type UnknownBackendError struct {
	Name      string
	Available []string
}

func (e *UnknownBackendError) Error() string {
	return fmt.Sprintf("unknown snapshot backend %q\nAvailable backends: %v\nHint: Check snapshot.backend in airprep.yaml", e.Name, e.Available)
}

// Is makes errors.Is(err, ErrUnknownBackend) match.
func (e *UnknownBackendError) Is(target error) bool {
	return target == ErrUnknownBackend
}
