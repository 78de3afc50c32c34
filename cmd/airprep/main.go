// Package main provides the airprep command-line tool.
package main

import (
	"os"

	"github.com/leapstack-labs/airprep/internal/cli"
	"github.com/leapstack-labs/airprep/internal/cli/commands"
)

func main() {
	if err := cli.Execute(); err != nil {
		if commands.IsUsageError(err) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
