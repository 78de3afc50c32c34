package commands

import (
	"os"

	"github.com/leapstack-labs/airprep/internal/cli/output"
	"github.com/leapstack-labs/airprep/internal/pipeline"
	"github.com/spf13/cobra"
)

// NewCleanCommand creates the clean command.
func NewCleanCommand() *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "clean <input>",
		Short: "Rename raw sensor CSV headers to canonical names",
		Long: `Rename the vendor-specific headers of a sensor export to canonical column
names (date, temp, rh, t_grad, pressure, pluvio, ref and the sensor ids).

The input is a .csv file or a directory; every .csv file directly inside a
directory is cleaned. Files are read as UTF-8, falling back to ISO-8859-1,
and always written as UTF-8 with ';' as delimiter.

Without --output files are rewritten in place.`,
		Example: `  # Clean one export in place
  airprep clean data/AllNO2_QH.csv

  # Clean a whole folder into another folder
  airprep clean raw/ --output cleaned/`,
		Args: UsageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClean(cmd, args[0], outputPath)
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file or directory (default: overwrite input)")
	return cmd
}

func runClean(cmd *cobra.Command, input, outputPath string) error {
	info, err := os.Stat(input)
	if err == nil && !info.IsDir() && !pipeline.IsCSV(input) {
		return usageErrorf("input is not a folder or a csv file: %s", input)
	}

	cc := NewCommandContext(cmd)
	results, err := cc.Pipeline.Clean(cmd.Context(), input, outputPath)
	if err != nil {
		return err
	}

	r := cc.Renderer
	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(results)
	default:
		r.Header(1, "clean")
		for _, res := range results {
			r.Success(res.Source + " cleaned with success")
			if res.Destination != res.Source {
				r.Muted("  -> " + res.Destination)
			}
		}
		if len(results) == 0 {
			r.Muted("No csv files found in " + input)
		}
	}
	return nil
}
