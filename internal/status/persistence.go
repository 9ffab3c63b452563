package status

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/stacklok/artifact-sync/internal/download"
)

// SaveReport writes the report as YAML. The file is replaced atomically so a
// reader never sees a half-written report.
func SaveReport(path string, report *Report) error {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("failed to create status directory: %w", err)
	}

	data, err := yaml.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal run report: %w", err)
	}

	if _, err := download.Materialize(bytes.NewReader(data), path); err != nil {
		return fmt.Errorf("failed to write run report: %w", err)
	}
	return nil
}

// LoadReport reads a report written by SaveReport. A missing file yields
// nil and no error.
func LoadReport(path string) (*Report, error) {
	// #nosec G304 -- the path comes from the --status-file flag
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read run report: %w", err)
	}

	var report Report
	if err := yaml.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run report: %w", err)
	}
	return &report, nil
}
