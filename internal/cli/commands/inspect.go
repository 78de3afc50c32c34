package commands

import (
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/leapstack-labs/airprep/internal/cli/output"
	"github.com/leapstack-labs/airprep/internal/export"
	"github.com/leapstack-labs/airprep/internal/standardize"
	"github.com/leapstack-labs/airprep/pkg/core"
	"github.com/spf13/cobra"
)

// NewInspectCommand creates the inspect command.
func NewInspectCommand() *cobra.Command {
	var rows int

	cmd := &cobra.Command{
		Use:   "inspect <snapshot>",
		Short: "Show metadata, column statistics and a preview of a table snapshot",
		Long: `Print what a table snapshot holds: its pollutant type and stage, where it was
built from, per column mean and standard deviation over complete rows, and
the first rows of the table.`,
		Example: `  airprep inspect data/NO2_table.db
  airprep inspect data/NO2_table.db --rows 20 --format json`,
		Args: UsageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cmd, args[0], rows)
		},
	}

	cmd.Flags().IntVarP(&rows, "rows", "n", -1, "Number of rows to preview (default: preview_rows setting)")
	return cmd
}

type inspectResult struct {
	ID        string                    `json:"id"`
	Pollutant string                    `json:"pollutant"`
	Stage     core.Stage                `json:"stage"`
	Source    string                    `json:"source"`
	CreatedAt time.Time                 `json:"created_at"`
	Rows      int                       `json:"rows"`
	Complete  int                       `json:"complete_rows"`
	Columns   []string                  `json:"columns"`
	Stats     []standardize.ColumnStats `json:"stats"`
	Preview   []map[string]any          `json:"preview"`
}

func runInspect(cmd *cobra.Command, input string, rows int) error {
	cc := NewCommandContext(cmd)
	if rows < 0 {
		rows = cc.Cfg.PreviewRows
	}

	ds, err := cc.Pipeline.Store().Load(cmd.Context(), input)
	if err != nil {
		return err
	}

	res := buildInspectResult(ds, rows)
	r := cc.Renderer
	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(res)
	case output.ModeMarkdown:
		renderInspectText(r, res)
		renderPreview(r.Out(), ds, rows, true)
	default:
		renderInspectText(r, res)
		renderPreview(r.Out(), ds, rows, false)
	}
	return nil
}

func buildInspectResult(ds *core.Dataset, rows int) *inspectResult {
	res := &inspectResult{
		ID:        ds.ID,
		Pollutant: ds.Pollutant.String(),
		Stage:     ds.Stage,
		Source:    ds.Source,
		CreatedAt: ds.CreatedAt,
		Rows:      len(ds.Records),
		Columns:   ds.Columns(),
		Stats:     standardize.Describe(ds),
		Preview:   []map[string]any{},
	}
	for i := range ds.Records {
		if ds.Records[i].Complete() {
			res.Complete++
		}
	}
	for i := 0; i < min(rows, len(ds.Records)); i++ {
		row := make(map[string]any, len(res.Columns))
		for j, v := range ds.Row(i) {
			row[res.Columns[j]] = v
		}
		res.Preview = append(res.Preview, row)
	}
	return res
}

func renderInspectText(r *output.Renderer, res *inspectResult) {
	r.Header(1, "snapshot")
	r.KeyValue("ID", res.ID)
	r.KeyValue("Type", res.Pollutant)
	r.KeyValue("Stage", string(res.Stage))
	r.KeyValue("Source", res.Source)
	r.KeyValue("Created", res.CreatedAt.Format(time.RFC3339))
	r.KeyValue("Rows", res.Rows)
	r.KeyValue("Complete rows", res.Complete)
	r.Println("")

	r.Header(2, "columns")
	for _, s := range res.Stats {
		line := fmt.Sprintf("%-12s mean=%.4g std=%.4g", s.Column, s.Mean, s.StdDev)
		if s.Degenerate {
			r.Warning(line + " (no spread)")
			continue
		}
		r.Println(line)
	}
	r.Println("")
}

// renderPreview writes the first rows of ds as a table.
func renderPreview(w io.Writer, ds *core.Dataset, rows int, markdown bool) {
	n := min(rows, len(ds.Records))
	if n <= 0 {
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	header := table.Row{}
	for _, col := range ds.Columns() {
		header = append(header, col)
	}
	t.AppendHeader(header)

	for i := 0; i < n; i++ {
		row := table.Row{}
		for _, v := range ds.Row(i) {
			row = append(row, export.FormatCell(v))
		}
		t.AppendRow(row)
	}

	if markdown {
		t.RenderMarkdown()
	} else {
		t.Render()
	}
	if n < len(ds.Records) {
		_, _ = fmt.Fprintf(w, "(%d of %d rows)\n", n, len(ds.Records))
	}
}
