// Package status records what a sync run did to each item and persists the
// run report.
package status

import (
	"time"

	"github.com/google/uuid"
)

// Outcome is the final state of one item in a run
type Outcome string

const (
	// OutcomeDownloaded means a new file was written
	OutcomeDownloaded Outcome = "downloaded"

	// OutcomeUpToDate means the destination already matched the remote
	OutcomeUpToDate Outcome = "up-to-date"

	// OutcomeSynced means a git working tree moved to a new commit
	OutcomeSynced Outcome = "synced"

	// OutcomeFailed means the item returned an error
	OutcomeFailed Outcome = "failed"

	// OutcomeSkipped means the run aborted before reaching the item
	OutcomeSkipped Outcome = "skipped"
)

// ItemStatus is the result of one item
type ItemStatus struct {
	// Index is the item's position in the configuration
	Index int `yaml:"index"`

	// Repository is the repository key the item references
	Repository string `yaml:"repository"`

	// Type is the repository type that served the item
	Type string `yaml:"type,omitempty"`

	// Source is the item's locator
	Source string `yaml:"source"`

	// Destination is the resolved destination path
	Destination string `yaml:"destination"`

	// Outcome is what happened
	Outcome Outcome `yaml:"outcome"`

	// URL is the artifact URL or git remote that was resolved
	URL string `yaml:"url,omitempty"`

	// Version is the snapshot value, tag, build number or commit resolved
	Version string `yaml:"version,omitempty"`

	// Bytes is the number of bytes written
	Bytes int64 `yaml:"bytes,omitempty"`

	// Duration is how long the item took
	Duration time.Duration `yaml:"duration"`

	// Error is the failure message for OutcomeFailed
	Error string `yaml:"error,omitempty"`
}

// Report summarizes one run
type Report struct {
	// RunID uniquely identifies the run in logs and saved reports
	RunID string `yaml:"runId"`

	// Root is the directory destinations were resolved against
	Root string `yaml:"root"`

	// StartedAt is when the run began
	StartedAt time.Time `yaml:"startedAt"`

	// FinishedAt is when the run ended
	FinishedAt time.Time `yaml:"finishedAt"`

	// Items holds one entry per configured item, in configuration order
	Items []ItemStatus `yaml:"items"`
}

// NewReport creates a report for a run starting now
func NewReport(root string) *Report {
	return &Report{
		RunID:     uuid.NewString(),
		Root:      root,
		StartedAt: time.Now(),
	}
}

// Add appends an item status
func (r *Report) Add(item ItemStatus) {
	r.Items = append(r.Items, item)
}

// Finish stamps the end time
func (r *Report) Finish() {
	r.FinishedAt = time.Now()
}

// Duration returns the wall time of the run
func (r *Report) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Count returns how many items ended with the outcome
func (r *Report) Count(outcome Outcome) int {
	n := 0
	for _, item := range r.Items {
		if item.Outcome == outcome {
			n++
		}
	}
	return n
}

// Failed returns how many items failed
func (r *Report) Failed() int {
	return r.Count(OutcomeFailed)
}

// Succeeded reports whether no item failed or was skipped
func (r *Report) Succeeded() bool {
	return r.Failed() == 0 && r.Count(OutcomeSkipped) == 0
}
