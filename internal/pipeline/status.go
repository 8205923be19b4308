package pipeline

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/welda-labs/compintel/internal/model"
	"github.com/welda-labs/compintel/internal/store"
)

// Status is a snapshot of the store plus the most recent run.
type Status struct {
	Articles       int               `json:"articles"`
	Collaborations int               `json:"collaborations"`
	Mappings       int               `json:"mappings"`
	Unmatched      int               `json:"unmatched"`
	LastRun        *model.RunSummary `json:"last_run,omitempty"`
}

// ReadStatus counts each sheet and reassembles the newest run from the
// run log.
func ReadStatus(ctx context.Context, st store.RecordStore) (*Status, error) {
	status := &Status{}

	counts := []struct {
		sheet string
		dst   *int
	}{
		{model.SheetArticles, &status.Articles},
		{model.SheetCollaborations, &status.Collaborations},
		{model.SheetMappings, &status.Mappings},
		{model.SheetUnmatched, &status.Unmatched},
	}
	for _, c := range counts {
		rows, err := st.ReadAll(ctx, c.sheet)
		if err != nil {
			return nil, eris.Wrapf(err, "pipeline: read %s sheet", c.sheet)
		}
		*c.dst = len(rows)
	}

	runs, err := st.ReadAll(ctx, model.SheetRuns)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: read runs sheet")
	}
	status.LastRun = latestRun(runs)
	return status, nil
}

// latestRun folds the stage rows of the last run_id in the log into a
// RunSummary. Rows are stored in append order, so the last row belongs
// to the newest run.
func latestRun(rows []store.Row) *model.RunSummary {
	if len(rows) == 0 {
		return nil
	}
	lastID := rows[len(rows)-1]["run_id"]

	summary := &model.RunSummary{RunID: lastID}
	for _, row := range rows {
		sr := model.StageRunFromRow(row)
		if sr.RunID != lastID {
			continue
		}
		if summary.StartedAt.IsZero() || sr.StartedAt.Before(summary.StartedAt) {
			summary.StartedAt = sr.StartedAt
		}
		if sr.FinishedAt.After(summary.FinishedAt) {
			summary.FinishedAt = sr.FinishedAt
		}
		switch sr.Stage {
		case model.StageCrawl:
			summary.Crawl = sr.Counts
		case model.StageExtract:
			summary.Extract = sr.Counts
		case model.StageResolve:
			summary.Resolve = sr.Counts
		}
	}
	return summary
}
