// Package standardize rescales joined pollutant tables to z-scores.
package standardize

import (
	"database/sql"
	"log/slog"
	"math"
	"slices"

	"github.com/go-gota/gota/series"
	"github.com/leapstack-labs/airprep/pkg/core"
)

// ColumnStats describes one numeric column over the rows it was computed on.
type ColumnStats struct {
	Column string  `json:"column"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	// Degenerate is set when the sample standard deviation is zero or
	// undefined (fewer than two rows).
	Degenerate bool `json:"degenerate,omitempty"`
}

// Report summarizes a standardization run.
type Report struct {
	RowsIn   int           `json:"rows_in"`
	RowsKept int           `json:"rows_kept"`
	Columns  []ColumnStats `json:"columns"`
}

// Standardizer drops incomplete rows and rescales numeric columns.
type Standardizer struct {
	logger *slog.Logger
}

// New creates a Standardizer. A nil logger discards output.
func New(logger *slog.Logger) *Standardizer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Standardizer{logger: logger}
}

// Standardize returns a new dataset holding only the complete records of ds,
// with every column of Pollutant.StandardizedColumns replaced by
// (value - mean) / std computed over those records. Date, ref and pluvio are
// copied unchanged.
//
// A column whose sample std is zero or undefined is set to 0.
func (s *Standardizer) Standardize(ds *core.Dataset) (*core.Dataset, *Report, error) {
	if !ds.Pollutant.Valid() {
		return nil, nil, &core.InvalidPollutantError{Value: ds.Pollutant.String()}
	}

	out := core.NewDataset(ds.Pollutant, core.StageNormalized)
	out.Source = ds.Source
	for _, rec := range ds.Records {
		if !rec.Complete() {
			continue
		}
		rec.Measurements = slices.Clone(rec.Measurements)
		out.Records = append(out.Records, rec)
	}

	report := &Report{RowsIn: len(ds.Records), RowsKept: len(out.Records)}
	for _, col := range ds.Pollutant.StandardizedColumns() {
		cells := column(out, col)
		stats := summarize(col, cells)
		report.Columns = append(report.Columns, stats)

		if stats.Degenerate && len(cells) > 0 {
			s.logger.Warn("column has no spread, standardized values set to 0",
				"column", col, "rows", len(cells), "std_dev", stats.StdDev)
		}
		for _, c := range cells {
			if stats.Degenerate {
				c.Float64 = 0
				continue
			}
			c.Float64 = (c.Float64 - stats.Mean) / stats.StdDev
		}
	}

	s.logger.Debug("standardized dataset",
		"pollutant", ds.Pollutant.String(),
		"rows_in", report.RowsIn,
		"rows_kept", report.RowsKept)

	return out, report, nil
}

// Describe computes mean and sample std for every numeric column over the
// complete records of ds. The input is not modified.
func Describe(ds *core.Dataset) []ColumnStats {
	complete := core.NewDataset(ds.Pollutant, ds.Stage)
	for _, rec := range ds.Records {
		if rec.Complete() {
			complete.Records = append(complete.Records, rec)
		}
	}

	numeric := append(ds.Pollutant.MeasurementColumns(), core.EnvironmentColumns()...)
	stats := make([]ColumnStats, 0, len(numeric))
	for _, col := range numeric {
		stats = append(stats, summarize(col, column(complete, col)))
	}
	return stats
}

// column collects live pointers to the finite values of col.
func column(ds *core.Dataset, col string) []*sql.NullFloat64 {
	cells := make([]*sql.NullFloat64, 0, len(ds.Records))
	for i := range ds.Records {
		if c := ds.Numeric(i, col); c != nil && core.Present(*c) {
			cells = append(cells, c)
		}
	}
	return cells
}

func summarize(col string, cells []*sql.NullFloat64) ColumnStats {
	values := make([]float64, len(cells))
	for i, c := range cells {
		values[i] = c.Float64
	}

	stats := ColumnStats{Column: col}
	if len(values) > 0 {
		s := series.Floats(values)
		stats.Mean = s.Mean()
		if len(values) > 1 {
			stats.StdDev = s.StdDev()
		}
	}
	if math.IsNaN(stats.StdDev) {
		stats.StdDev = 0
	}
	stats.Degenerate = len(values) < 2 || stats.StdDev == 0
	return stats
}
