// Package join attaches same-date environment readings to pollutant readings.
package join

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/leapstack-labs/airprep/internal/table"
	"github.com/leapstack-labs/airprep/pkg/core"
)

// Errors returned for malformed source tables.
var (
	ErrMissingColumn = errors.New("missing required column")
	ErrInfinite      = errors.New("infinite value")
)

// Summary counts what a Build call matched.
type Summary struct {
	Rows int
	// Unmatched counts readings whose date has no environment row.
	Unmatched int
}

// DefaultMissingTokens are cell values read as "no value".
var DefaultMissingTokens = []string{"", "NA", "NaN", "nan", "N/A", "null"}

// Options configures a Builder.
type Options struct {
	// MissingTokens overrides DefaultMissingTokens when non-empty.
	MissingTokens []string
	Logger        *slog.Logger
}

// Builder joins readings tables to environment tables.
type Builder struct {
	missing map[string]struct{}
	logger  *slog.Logger
}

// NewBuilder creates a Builder.
func NewBuilder(opts Options) *Builder {
	tokens := opts.MissingTokens
	if len(tokens) == 0 {
		tokens = DefaultMissingTokens
	}
	missing := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		missing[strings.TrimSpace(tok)] = struct{}{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Builder{missing: missing, logger: logger}
}

// Build emits one record per readings row, in readings order. Both tables
// must already carry canonical headers.
//
// Environment fields come from the single environment row sharing the
// reading's date. Dates without an environment row keep the record with
// every environment field missing.
func (b *Builder) Build(p core.Pollutant, readings, env *table.Table) (*core.Dataset, Summary, error) {
	if !p.Valid() {
		return nil, Summary{}, &core.InvalidPollutantError{Value: p.String()}
	}

	index, err := b.indexEnvironment(env)
	if err != nil {
		return nil, Summary{}, err
	}

	dateCol, err := requireColumn(readings, "readings", core.ColDate)
	if err != nil {
		return nil, Summary{}, err
	}
	refCol, err := requireColumn(readings, "readings", core.ColRef)
	if err != nil {
		return nil, Summary{}, err
	}
	measureCols := p.MeasurementColumns()
	measureIdx := make([]int, len(measureCols))
	for i, col := range measureCols {
		if measureIdx[i], err = requireColumn(readings, "readings", col); err != nil {
			return nil, Summary{}, err
		}
	}

	ds := core.NewDataset(p, core.StageJoined)
	ds.Records = make([]core.Record, 0, len(readings.Rows))

	unmatched := 0
	for i, row := range readings.Rows {
		rec := core.Record{
			Date:         strings.TrimSpace(row[dateCol]),
			Ref:          b.text(row[refCol]),
			Measurements: make([]sql.NullFloat64, len(measureIdx)),
		}
		for j, idx := range measureIdx {
			v, err := b.number(row[idx])
			if err != nil {
				return nil, Summary{}, cellError("readings", i, measureCols[j], err)
			}
			rec.Measurements[j] = v
		}

		if envRec, ok := index[rec.Date]; ok {
			rec.Env = envRec
		} else {
			unmatched++
		}
		ds.Records = append(ds.Records, rec)
	}

	b.logger.Debug("joined readings to environment",
		"pollutant", p.String(),
		"rows", len(ds.Records),
		"environment_dates", len(index),
		"unmatched", unmatched)

	return ds, Summary{Rows: len(ds.Records), Unmatched: unmatched}, nil
}

// indexEnvironment builds the date → environment index. Duplicate dates keep
// the first row.
func (b *Builder) indexEnvironment(env *table.Table) (map[string]core.Environment, error) {
	dateCol, err := requireColumn(env, "environment", core.ColDate)
	if err != nil {
		return nil, err
	}

	fieldIdx := make(map[string]int)
	for _, col := range core.EnvironmentColumns() {
		if idx := env.Index(col); idx >= 0 {
			fieldIdx[col] = idx
		} else {
			b.logger.Warn("environment table has no column, values will be missing", "column", col)
		}
	}

	index := make(map[string]core.Environment, len(env.Rows))
	duplicates := 0
	for i, row := range env.Rows {
		date := strings.TrimSpace(row[dateCol])
		if _, seen := index[date]; seen {
			duplicates++
			continue
		}

		var e core.Environment
		for col, idx := range fieldIdx {
			v, err := b.number(row[idx])
			if err != nil {
				return nil, cellError("environment", i, col, err)
			}
			*e.Field(col) = v
		}
		index[date] = e
	}

	if duplicates > 0 {
		b.logger.Warn("environment table has duplicate dates, keeping first occurrence",
			"duplicates", duplicates)
	}
	return index, nil
}

func (b *Builder) isMissing(cell string) bool {
	_, ok := b.missing[strings.TrimSpace(cell)]
	return ok
}

func (b *Builder) text(cell string) sql.NullString {
	if b.isMissing(cell) {
		return sql.NullString{}
	}
	return sql.NullString{String: strings.TrimSpace(cell), Valid: true}
}

// number parses a numeric cell. NaN in any spelling is missing; infinities
// are rejected.
func (b *Builder) number(cell string) (sql.NullFloat64, error) {
	if b.isMissing(cell) {
		return sql.NullFloat64{}, nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
	if err != nil {
		return sql.NullFloat64{}, err
	}
	switch {
	case math.IsNaN(f):
		return sql.NullFloat64{}, nil
	case math.IsInf(f, 0):
		return sql.NullFloat64{}, fmt.Errorf("%w %q", ErrInfinite, strings.TrimSpace(cell))
	}
	return sql.NullFloat64{Float64: f, Valid: true}, nil
}

func requireColumn(t *table.Table, name, column string) (int, error) {
	idx := t.Index(column)
	if idx < 0 {
		return -1, fmt.Errorf("%s table: %w %q", name, ErrMissingColumn, column)
	}
	return idx, nil
}

// cellError reports a bad cell with its 1-based file line (header is line 1).
func cellError(name string, row int, column string, err error) error {
	return fmt.Errorf("%s table line %d column %q: %w", name, row+2, column, err)
}
