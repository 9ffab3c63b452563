// Package app provides the cobra commands of artifact-sync.
package app

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"

	"github.com/stacklok/artifact-sync/internal/logging"
	"github.com/stacklok/artifact-sync/internal/versions"
)

// NewRootCmd creates the root command with all subcommands attached
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:               "artifact-sync",
		DisableAutoGenTag: true,
		SilenceUsage:      true,
		Short:             "Keep plugin jars and config repositories up to date",
		Long: `artifact-sync brings a set of local files in line with their upstream sources:
Maven snapshot repositories, git branches, GitHub releases, Jenkins builds,
the PaperMC builds API and dev.bukkit.org. Files are only downloaded when the
remote digest differs from the local one and are always replaced atomically.`,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			debug, err := cmd.Flags().GetBool("debug")
			if err != nil || !debug {
				return err
			}
			// logging.Flush in main syncs this logger on exit.
			if _, err := logging.SetupWithLevel(zapcore.DebugLevel); err != nil {
				return fmt.Errorf("failed to create debug logger: %w", err)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")

	rootCmd.AddCommand(newSyncCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newValidateCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := versions.GetVersionInfo()
			format, err := cmd.Flags().GetString("format")
			if err != nil {
				return err
			}

			if format == "json" {
				output, err := json.MarshalIndent(info, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to format version info as JSON: %w", err)
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), string(output))
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "artifact-sync %s (commit %s, built %s, %s, %s)\n",
				info.Version, info.Commit, info.BuildDate, info.GoVersion, info.Platform)
			return err
		},
	}
	cmd.Flags().String("format", "", "Output format (json)")
	return cmd
}
