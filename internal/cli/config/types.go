// Package config provides configuration management for the airprep CLI.
package config

import (
	"github.com/leapstack-labs/airprep/internal/join"
	"github.com/leapstack-labs/airprep/internal/pipeline"
	"github.com/leapstack-labs/airprep/internal/snapshot"
	"github.com/leapstack-labs/airprep/pkg/core"
)

// Config holds all CLI configuration options.
type Config struct {
	LogLevel         string         `koanf:"log_level" validate:"oneof=debug info warn error"`
	LogFormat        string         `koanf:"log_format" validate:"oneof=text json"`
	Verbose          bool           `koanf:"verbose"`
	OutputFormat     string         `koanf:"format" validate:"oneof=auto text markdown json"`
	Files            FilesConfig    `koanf:"files"`
	Snapshot         SnapshotConfig `koanf:"snapshot"`
	NormalizedSuffix string         `koanf:"normalized_suffix" validate:"required"`
	MissingTokens    []string       `koanf:"missing_tokens"`
	PreviewRows      int            `koanf:"preview_rows" validate:"gte=0"`
}

// FilesConfig names the inputs looked up inside a create-table folder.
type FilesConfig struct {
	NO2 string `koanf:"no2" validate:"required,excludesall=/\\"`
	PM  string `koanf:"pm" validate:"required,excludesall=/\\"`
	Env string `koanf:"env" validate:"required,excludesall=/\\"`
}

// SnapshotConfig selects how joined tables are persisted.
type SnapshotConfig struct {
	Backend   string `koanf:"backend" validate:"required"`
	Extension string `koanf:"extension" validate:"required,startswith=."`
}

// Default configuration values.
const (
	DefaultLogLevel    = "info"
	DefaultLogFormat   = "text"
	DefaultOutput      = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	DefaultPreviewRows = 20
)

// defaults returns the lowest-priority configuration layer.
func defaults() map[string]interface{} {
	return map[string]interface{}{
		"log_level":          DefaultLogLevel,
		"log_format":         DefaultLogFormat,
		"verbose":            false,
		"format":             DefaultOutput,
		"files.no2":          core.PollutantNO2.DefaultFilename(),
		"files.pm":           core.PollutantPM.DefaultFilename(),
		"files.env":          pipeline.DefaultEnvFile,
		"snapshot.backend":   snapshot.BackendAuto,
		"snapshot.extension": pipeline.DefaultSnapshotExtension,
		"normalized_suffix":  pipeline.DefaultNormalizedSuffix,
		"missing_tokens":     join.DefaultMissingTokens,
		"preview_rows":       DefaultPreviewRows,
	}
}

// EffectiveLogLevel returns the log level after applying --verbose.
func (c *Config) EffectiveLogLevel() string {
	if c.Verbose {
		return "debug"
	}
	return c.LogLevel
}

// PipelineConfig converts the CLI configuration into pipeline settings.
func (c *Config) PipelineConfig() pipeline.Config {
	return pipeline.Config{
		Files: pipeline.FileNames{
			NO2: c.Files.NO2,
			PM:  c.Files.PM,
			Env: c.Files.Env,
		},
		MissingTokens:     c.MissingTokens,
		SnapshotBackend:   c.Snapshot.Backend,
		SnapshotExtension: c.Snapshot.Extension,
		NormalizedSuffix:  c.NormalizedSuffix,
	}
}

// Default returns the configuration used when nothing is loaded.
func Default() *Config {
	return &Config{
		LogLevel:     DefaultLogLevel,
		LogFormat:    DefaultLogFormat,
		OutputFormat: DefaultOutput,
		Files: FilesConfig{
			NO2: core.PollutantNO2.DefaultFilename(),
			PM:  core.PollutantPM.DefaultFilename(),
			Env: pipeline.DefaultEnvFile,
		},
		Snapshot: SnapshotConfig{
			Backend:   snapshot.BackendAuto,
			Extension: pipeline.DefaultSnapshotExtension,
		},
		NormalizedSuffix: pipeline.DefaultNormalizedSuffix,
		MissingTokens:    append([]string(nil), join.DefaultMissingTokens...),
		PreviewRows:      DefaultPreviewRows,
	}
}
