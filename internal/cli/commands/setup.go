package commands

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/airprep/internal/cli/config"
	"github.com/leapstack-labs/airprep/internal/cli/output"
	"github.com/leapstack-labs/airprep/internal/pipeline"
	"github.com/leapstack-labs/airprep/pkg/core"
	"github.com/spf13/cobra"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Pipeline *pipeline.Pipeline
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext with pipeline and renderer.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())

	pcfg := cfg.PipelineConfig()
	pcfg.Logger = logger

	mode := output.Mode(cfg.OutputFormat)
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Pipeline: pipeline.New(pcfg),
		Renderer: r,
	}
}

// getConfig returns the current configuration, or defaults when no
// configuration was loaded (commands invoked outside the root command).
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}
	return config.Default()
}

// UsageError reports an invocation problem detected before any data is read.
type UsageError struct {
	Msg string
	Err error
}

func (e *UsageError) Error() string {
	if e.Err != nil && e.Msg == "" {
		return e.Err.Error()
	}
	return e.Msg
}

func (e *UsageError) Unwrap() error {
	return e.Err
}

// IsUsageError reports whether err stems from a bad invocation.
func IsUsageError(err error) bool {
	var ue *UsageError
	return errors.As(err, &ue)
}

func usageErrorf(format string, args ...any) error {
	return &UsageError{Msg: fmt.Sprintf(format, args...)}
}

// UsageArgs wraps a positional argument validator so its errors are usage errors.
func UsageArgs(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := validate(cmd, args); err != nil {
			return &UsageError{Err: err}
		}
		return nil
	}
}

// FlagUsageError marks flag parsing failures as usage errors.
func FlagUsageError(_ *cobra.Command, err error) error {
	return &UsageError{Err: err}
}

// parseType validates the --type selector.
func parseType(s string) (core.Pollutant, error) {
	if s == "" {
		return 0, usageErrorf(`required flag "type" not set (NO2 or PM)`)
	}
	p, err := core.ParsePollutant(s)
	if err != nil {
		return 0, &UsageError{Err: err}
	}
	return p, nil
}

// addTypeFlag registers the --type flag. parseType rejects an empty value.
func addTypeFlag(cmd *cobra.Command, target *string) {
	cmd.Flags().StringVar(target, "type", "", "Pollutant type: NO2 or PM (required)")
	_ = cmd.RegisterFlagCompletionFunc("type", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		names := make([]string, 0, 2)
		for _, p := range core.Pollutants() {
			names = append(names, p.String())
		}
		return names, cobra.ShellCompDirectiveNoFileComp
	})
}
