// Package pipeline runs the clean, create-table and normalize-table stages.
// Each stage loads its inputs fully, transforms them in memory and writes
// its output once, after the transformation has succeeded.
package pipeline

import (
	"errors"
	"log/slog"

	"github.com/leapstack-labs/airprep/internal/join"
	"github.com/leapstack-labs/airprep/internal/snapshot"
	"github.com/leapstack-labs/airprep/internal/standardize"
	"github.com/leapstack-labs/airprep/pkg/core"
)

// Errors returned for missing or mismatched inputs.
var (
	ErrNotDirectory      = errors.New("not a directory")
	ErrMissingInput      = errors.New("missing input file")
	ErrNotCSV            = errors.New("input is not a folder or a csv file")
	ErrPollutantMismatch = errors.New("snapshot pollutant does not match requested type")
)

// Default file names and suffixes.
const (
	DefaultEnvFile           = "Env_QH.csv"
	DefaultSnapshotExtension = ".db"
	DefaultNormalizedSuffix  = "_normalized"
)

// FileNames are the inputs looked up by exact name in a create-table folder.
type FileNames struct {
	NO2 string
	PM  string
	Env string
}

// Readings returns the readings file name for p.
func (f FileNames) Readings(p core.Pollutant) string {
	switch {
	case p == core.PollutantNO2 && f.NO2 != "":
		return f.NO2
	case p == core.PollutantPM && f.PM != "":
		return f.PM
	default:
		return p.DefaultFilename()
	}
}

// Environment returns the environment file name.
func (f FileNames) Environment() string {
	if f.Env == "" {
		return DefaultEnvFile
	}
	return f.Env
}

// Config holds pipeline configuration.
type Config struct {
	Files FileNames
	// MissingTokens are cell values read as missing (join.DefaultMissingTokens if empty).
	MissingTokens []string
	// SnapshotBackend is a snapshot backend name or "auto".
	SnapshotBackend string
	// SnapshotExtension names default create-table outputs.
	SnapshotExtension string
	// NormalizedSuffix is appended to the input stem for default normalize outputs.
	NormalizedSuffix string
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// Pipeline wires the table stages to the snapshot store.
type Pipeline struct {
	cfg          Config
	logger       *slog.Logger
	store        *snapshot.Store
	builder      *join.Builder
	standardizer *standardize.Standardizer
}

// New creates a pipeline.
func New(cfg Config) *Pipeline {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.SnapshotExtension == "" {
		cfg.SnapshotExtension = DefaultSnapshotExtension
	}
	if cfg.NormalizedSuffix == "" {
		cfg.NormalizedSuffix = DefaultNormalizedSuffix
	}

	return &Pipeline{
		cfg:          cfg,
		logger:       logger,
		store:        snapshot.NewStore(cfg.SnapshotBackend, logger),
		builder:      join.NewBuilder(join.Options{MissingTokens: cfg.MissingTokens, Logger: logger}),
		standardizer: standardize.New(logger),
	}
}

// Store returns the snapshot store used by the pipeline.
func (p *Pipeline) Store() *snapshot.Store {
	return p.store
}
