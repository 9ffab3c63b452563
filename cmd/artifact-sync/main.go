// Package main is the entry point for artifact-sync.
package main

import (
	"fmt"
	"os"

	"github.com/stacklok/artifact-sync/cmd/artifact-sync/app"
	"github.com/stacklok/artifact-sync/internal/logging"
)

func main() {
	// Logs go to stderr so the run summary on stdout stays clean.
	if _, err := logging.Setup(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to set up logging: %v\n", err)
		os.Exit(1)
	}

	err := app.NewRootCmd().Execute()
	// Also covers the logger installed by --debug.
	logging.Flush()
	if err != nil {
		os.Exit(1)
	}
}
