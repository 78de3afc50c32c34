package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/airprep/internal/table"
	"github.com/leapstack-labs/airprep/pkg/core"
)

// CleanResult describes one cleaned file.
type CleanResult struct {
	Source      string            `json:"source"`
	Destination string            `json:"destination"`
	Encoding    string            `json:"encoding"`
	Rows        int               `json:"rows"`
	Renamed     map[string]string `json:"renamed"`
}

type cleanJob struct {
	source, destination string
}

// Clean renames the headers of a CSV file, or of every CSV file directly
// inside a directory, to their canonical names.
//
// With no output each file is rewritten in place. An existing directory
// output receives files under their source names. A directory input treats
// output as a directory and creates it if needed.
func (p *Pipeline) Clean(ctx context.Context, input, output string) ([]CleanResult, error) {
	jobs, err := planClean(input, output)
	if err != nil {
		return nil, err
	}

	results := make([]CleanResult, 0, len(jobs))
	for _, job := range jobs {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res, err := p.cleanFile(job)
		if err != nil {
			return results, err
		}
		p.logger.Info("cleaned file",
			"source", res.Source,
			"destination", res.Destination,
			"encoding", res.Encoding,
			"renamed", len(res.Renamed))
		results = append(results, *res)
	}
	return results, nil
}

func (p *Pipeline) cleanFile(job cleanJob) (*CleanResult, error) {
	t, err := table.ReadFile(job.source)
	if err != nil {
		return nil, err
	}

	renamed := make(map[string]string)
	t.RenameHeaders(func(h string) string {
		name, ok := core.CanonicalName(h)
		if ok && name != h {
			renamed[h] = name
		}
		return name
	})

	if err := table.WriteFile(job.destination, t); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", job.destination, err)
	}
	return &CleanResult{
		Source:      job.source,
		Destination: job.destination,
		Encoding:    t.Encoding,
		Rows:        len(t.Rows),
		Renamed:     renamed,
	}, nil
}

func planClean(input, output string) ([]cleanJob, error) {
	info, err := os.Stat(input)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrMissingInput, input)
		}
		return nil, err
	}

	if !info.IsDir() {
		if !IsCSV(input) {
			return nil, fmt.Errorf("%w: %s", ErrNotCSV, input)
		}
		dest := input
		if output != "" {
			dest = output
			if isDir(output) {
				dest = filepath.Join(output, filepath.Base(input))
			}
		}
		return []cleanJob{{source: input, destination: dest}}, nil
	}

	entries, err := os.ReadDir(input)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}
	if output != "" {
		if info, err := os.Stat(output); err == nil && !info.IsDir() {
			return nil, fmt.Errorf("output %s must be a directory when input is a directory: %w", output, ErrNotDirectory)
		}
		if err := os.MkdirAll(output, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	var jobs []cleanJob
	for _, entry := range entries {
		if entry.IsDir() || !IsCSV(entry.Name()) {
			continue
		}
		src := filepath.Join(input, entry.Name())
		dest := src
		if output != "" {
			dest = filepath.Join(output, entry.Name())
		}
		jobs = append(jobs, cleanJob{source: src, destination: dest})
	}
	return jobs, nil
}

// IsCSV reports whether path has a .csv extension.
func IsCSV(path string) bool {
	return filepath.Ext(path) == ".csv"
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
