package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/airprep/internal/standardize"
	"github.com/leapstack-labs/airprep/internal/table"
	"github.com/leapstack-labs/airprep/pkg/core"
)

// TableResult describes a create-table run.
type TableResult struct {
	Output     string `json:"output"`
	SnapshotID string `json:"snapshot_id"`
	Pollutant  string `json:"pollutant"`
	Rows       int    `json:"rows"`
	// Unmatched counts records whose date has no environment row.
	Unmatched int `json:"unmatched"`
	Complete  int `json:"complete"`
}

// NormalizeResult describes a normalize-table run.
type NormalizeResult struct {
	Output     string              `json:"output"`
	SnapshotID string              `json:"snapshot_id"`
	Pollutant  string              `json:"pollutant"`
	Report     *standardize.Report `json:"report"`
}

// CreateTable joins the readings file for pol with the environment file,
// both found by exact name inside folder, and saves the joined snapshot.
// An empty output defaults to <folder>/<POL>_table<ext>.
func (p *Pipeline) CreateTable(ctx context.Context, folder string, pol core.Pollutant, output string) (*TableResult, error) {
	if !pol.Valid() {
		return nil, &core.InvalidPollutantError{Value: pol.String()}
	}
	info, err := os.Stat(folder)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s does not exist", ErrNotDirectory, folder)
		}
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotDirectory, folder)
	}

	readingsPath := filepath.Join(folder, p.cfg.Files.Readings(pol))
	envPath := filepath.Join(folder, p.cfg.Files.Environment())
	for _, path := range []string{readingsPath, envPath} {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrMissingInput, path)
		}
	}

	readings, err := p.loadCanonical(readingsPath)
	if err != nil {
		return nil, err
	}
	env, err := p.loadCanonical(envPath)
	if err != nil {
		return nil, err
	}

	ds, sum, err := p.builder.Build(pol, readings, env)
	if err != nil {
		return nil, err
	}
	if abs, err := filepath.Abs(folder); err == nil {
		ds.Source = abs
	} else {
		ds.Source = folder
	}

	if output == "" {
		output = filepath.Join(folder, pol.String()+"_table"+p.cfg.SnapshotExtension)
	}
	if err := p.store.Save(ctx, output, ds); err != nil {
		return nil, err
	}

	res := &TableResult{
		Output:     output,
		SnapshotID: ds.ID,
		Pollutant:  pol.String(),
		Rows:       sum.Rows,
		Unmatched:  sum.Unmatched,
	}
	for i := range ds.Records {
		if ds.Records[i].Complete() {
			res.Complete++
		}
	}

	p.logger.Info("created table",
		"pollutant", res.Pollutant,
		"output", output,
		"rows", res.Rows,
		"unmatched", res.Unmatched)
	return res, nil
}

// NormalizeTable standardizes a joined snapshot and saves the result.
// An empty output defaults to <dir>/<stem><suffix><ext> of input.
func (p *Pipeline) NormalizeTable(ctx context.Context, input string, pol core.Pollutant, output string) (*NormalizeResult, error) {
	if !pol.Valid() {
		return nil, &core.InvalidPollutantError{Value: pol.String()}
	}

	ds, err := p.store.Load(ctx, input)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrMissingInput, input)
		}
		return nil, err
	}
	if ds.Pollutant != pol {
		return nil, fmt.Errorf("%w: %s holds %s, requested %s", ErrPollutantMismatch, input, ds.Pollutant, pol)
	}
	if ds.Stage == core.StageNormalized {
		p.logger.Warn("snapshot is already normalized, standardizing again", "input", input)
	}

	out, report, err := p.standardizer.Standardize(ds)
	if err != nil {
		return nil, err
	}
	out.Source = input

	if output == "" {
		output = p.NormalizedPath(input)
	}
	if err := p.store.Save(ctx, output, out); err != nil {
		return nil, err
	}

	p.logger.Info("normalized table",
		"pollutant", pol.String(),
		"output", output,
		"rows_in", report.RowsIn,
		"rows_kept", report.RowsKept)
	return &NormalizeResult{
		Output:     output,
		SnapshotID: out.ID,
		Pollutant:  pol.String(),
		Report:     report,
	}, nil
}

// NormalizedPath derives the default normalize-table output for input.
func (p *Pipeline) NormalizedPath(input string) string {
	ext := filepath.Ext(input)
	stem := strings.TrimSuffix(input, ext)
	return stem + p.cfg.NormalizedSuffix + ext
}

// loadCanonical reads a CSV table and renames its headers to canonical names.
func (p *Pipeline) loadCanonical(path string) (*table.Table, error) {
	t, err := table.ReadFile(path)
	if err != nil {
		return nil, err
	}
	t.Header = core.NormalizeHeaders(t.Header)
	p.logger.Debug("loaded table", "path", path, "encoding", t.Encoding, "rows", len(t.Rows))
	return t, nil
}
