package commands

import (
	"fmt"
	"os"

	"github.com/leapstack-labs/airprep/internal/cli/output"
	"github.com/spf13/cobra"
)

// NewNormalizeTableCommand creates the normalize-table command.
func NewNormalizeTableCommand() *cobra.Command {
	var (
		outputPath string
		typeName   string
	)

	cmd := &cobra.Command{
		Use:   "normalize-table <snapshot>",
		Short: "Standardize a joined table to zero mean and unit variance",
		Long: `Drop every row of a joined table that has a missing value, then rescale the
pollutant measurements and rh, t_grad, pressure and temp to z-scores
((value - mean) / sample standard deviation) over the remaining rows.

date, ref and pluvio are kept unchanged. A column without spread is set to 0.`,
		Example: `  # Writes data/NO2_table_normalized.db
  airprep normalize-table data/NO2_table.db --type NO2`,
		Aliases: []string{"normalize_pickle"},
		Args:    UsageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNormalizeTable(cmd, args[0], typeName, outputPath)
		},
	}

	addTypeFlag(cmd, &typeName)
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Snapshot file to write (default: <input>_normalized.<ext>)")
	return cmd
}

func runNormalizeTable(cmd *cobra.Command, input, typeName, outputPath string) error {
	pol, err := parseType(typeName)
	if err != nil {
		return err
	}
	if info, err := os.Stat(input); err == nil && info.IsDir() {
		return usageErrorf("input is not a snapshot file: %s", input)
	}

	cc := NewCommandContext(cmd)
	res, err := cc.Pipeline.NormalizeTable(cmd.Context(), input, pol, outputPath)
	if err != nil {
		return err
	}

	r := cc.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(res)
	}
	r.Header(1, "normalize table")
	r.Success(fmt.Sprintf("%s table written to %s", res.Pollutant, res.Output))
	r.KeyValue("Rows in", res.Report.RowsIn)
	r.KeyValue("Rows kept", res.Report.RowsKept)
	for _, c := range res.Report.Columns {
		if c.Degenerate {
			r.Warning(fmt.Sprintf("column %s has no spread, values set to 0", c.Column))
		}
	}
	return nil
}
