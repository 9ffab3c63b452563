package app

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/stacklok/artifact-sync/internal/config"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <config-file>",
		Short: "Validate a configuration file without touching the network",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return validateConfig(cmd.OutOrStdout(), args[0])
		},
	}
}

func validateConfig(out io.Writer, path string) error {
	cfg, err := config.LoadConfig(config.WithConfigPath(path))
	if err != nil {
		return err
	}

	counts := make(map[string]int)
	for i := range cfg.Items {
		if repo, ok := cfg.Repository(cfg.Items[i].Repository); ok {
			counts[repo.Type]++
		}
	}
	types := make([]string, 0, len(counts))
	for t := range counts {
		types = append(types, t)
	}
	sort.Strings(types)

	if _, err := fmt.Fprintf(out, "✓ Valid configuration\n  Repositories: %d\n  Items: %d\n",
		len(cfg.Repositories), len(cfg.Items)); err != nil {
		return err
	}
	for _, t := range types {
		if _, err := fmt.Fprintf(out, "    %s: %d\n", t, counts[t]); err != nil {
			return err
		}
	}
	if cfg.Sync.ContinueOnError {
		_, err = fmt.Fprintln(out, "  Continue on error: enabled")
	}
	return err
}
