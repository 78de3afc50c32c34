package commands

import (
	"github.com/leapstack-labs/airprep/internal/cli/output"
	"github.com/leapstack-labs/airprep/internal/export"
	"github.com/spf13/cobra"
)

// NewExportCommand creates the export command.
func NewExportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <snapshot> <output>",
		Short: "Export a table snapshot to CSV or Excel",
		Long: `Write the rows of a table snapshot to a file. The format follows the output
extension: .xlsx writes an Excel workbook, anything else writes ';' delimited
UTF-8 CSV. Missing values are written as empty cells.`,
		Example: `  airprep export data/NO2_table.db no2.csv
  airprep export data/PM_table_normalized.db pm.xlsx`,
		Args: UsageArgs(cobra.ExactArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, args[0], args[1])
		},
	}
	return cmd
}

type exportResult struct {
	Snapshot string `json:"snapshot"`
	Output   string `json:"output"`
	Format   string `json:"format"`
	Rows     int    `json:"rows"`
}

func runExport(cmd *cobra.Command, input, out string) error {
	cc := NewCommandContext(cmd)

	ds, err := cc.Pipeline.Store().Load(cmd.Context(), input)
	if err != nil {
		return err
	}
	if err := export.File(out, ds); err != nil {
		return err
	}
	cc.Logger.Info("snapshot exported", "snapshot", input, "output", out, "rows", len(ds.Records))

	res := exportResult{Snapshot: input, Output: out, Format: export.FormatFor(out), Rows: len(ds.Records)}
	r := cc.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(res)
	}
	r.Success("exported " + res.Snapshot + " to " + res.Output)
	r.KeyValue("Format", res.Format)
	r.KeyValue("Rows", res.Rows)
	return nil
}
