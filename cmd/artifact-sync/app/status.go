package app

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/stacklok/artifact-sync/internal/status"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <status-file>",
		Short: "Show the report of the last run written with --status-file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return showStatus(cmd.OutOrStdout(), args[0])
		},
	}
}

func showStatus(out io.Writer, path string) error {
	report, err := status.LoadReport(path)
	if err != nil {
		return err
	}
	if report == nil {
		return fmt.Errorf("no run report at %s", path)
	}
	return report.WriteTable(out)
}
