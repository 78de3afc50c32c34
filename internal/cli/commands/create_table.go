package commands

import (
	"fmt"
	"os"

	"github.com/leapstack-labs/airprep/internal/cli/output"
	"github.com/spf13/cobra"
)

// NewCreateTableCommand creates the create-table command.
func NewCreateTableCommand() *cobra.Command {
	var (
		outputPath string
		typeName   string
	)

	cmd := &cobra.Command{
		Use:   "create-table <folder>",
		Short: "Join pollutant readings to environment readings by date",
		Long: `Join the pollutant readings file of a folder (AllNO2_QH.csv or AllPM_QH.csv)
with its environment file (Env_QH.csv) on the date column and save the result
as a table snapshot.

Every reading row is kept. Readings whose date has no environment row get
missing values for rh, t_grad, pressure, temp and pluvio.`,
		Example: `  # Build the NO2 table
  airprep create-table data/ --type NO2

  # Build the PM table into a DuckDB snapshot
  airprep create-table data/ --type PM --output pm.duckdb`,
		Aliases: []string{"create_pickle"},
		Args:    UsageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCreateTable(cmd, args[0], typeName, outputPath)
		},
	}

	addTypeFlag(cmd, &typeName)
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Snapshot file to write (default: <folder>/<TYPE>_table.db)")
	return cmd
}

func runCreateTable(cmd *cobra.Command, folder, typeName, outputPath string) error {
	pol, err := parseType(typeName)
	if err != nil {
		return err
	}
	if info, err := os.Stat(folder); err != nil || !info.IsDir() {
		return usageErrorf("input is not a folder: %s", folder)
	}

	cc := NewCommandContext(cmd)
	res, err := cc.Pipeline.CreateTable(cmd.Context(), folder, pol, outputPath)
	if err != nil {
		return err
	}

	r := cc.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(res)
	}
	r.Header(1, "create table")
	r.Success(fmt.Sprintf("%s table written to %s", res.Pollutant, res.Output))
	r.KeyValue("Rows", res.Rows)
	r.KeyValue("Complete rows", res.Complete)
	r.KeyValue("Snapshot", res.SnapshotID)
	if res.Unmatched > 0 {
		r.Warning(fmt.Sprintf("%d readings have no environment data for their date", res.Unmatched))
	}
	return nil
}
