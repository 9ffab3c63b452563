package status

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
)

// WriteTable renders the per-item outcomes followed by a one-line summary
func (r *Report) WriteTable(w io.Writer) error {
	rows := make([][]string, 0, len(r.Items))
	for _, item := range r.Items {
		detail := item.Version
		if item.Outcome == OutcomeFailed {
			detail = item.Error
		}
		rows = append(rows, []string{
			strconv.Itoa(item.Index),
			item.Type,
			item.Source,
			item.Destination,
			string(item.Outcome),
			detail,
			item.Duration.Round(time.Millisecond).String(),
		})
	}

	table := tablewriter.NewWriter(w)
	table.Header("#", "Type", "Source", "Destination", "Outcome", "Version / Error", "Took")
	if err := table.Bulk(rows); err != nil {
		return fmt.Errorf("failed to build status table: %w", err)
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("failed to render status table: %w", err)
	}

	_, err := fmt.Fprintf(w, "run %s: %d items, %d downloaded, %d synced, %d up to date, %d failed, %d skipped in %s\n",
		r.RunID, len(r.Items),
		r.Count(OutcomeDownloaded), r.Count(OutcomeSynced), r.Count(OutcomeUpToDate),
		r.Failed(), r.Count(OutcomeSkipped),
		r.Duration().Round(time.Millisecond))
	return err
}
