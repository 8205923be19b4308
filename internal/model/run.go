package model

import (
	"strconv"
	"time"
)

// Stage identifies one pipeline stage.
type Stage string

const (
	StageCrawl   Stage = "crawl"
	StageExtract Stage = "extract"
	StageResolve Stage = "resolve"
)

// RunColumns is the column order of the runs sheet (the append-only run log;
// one row per stage per run).
var RunColumns = []string{
	"run_id", "stage", "started_at", "finished_at",
	"processed", "skipped", "appended", "matched", "unmatched", "failed",
	"error",
}

// StageCounts tallies a single stage invocation. Skipped counts items
// filtered out before processing (dedup hits, malformed names); Failed
// counts items abandoned after the retry budget. Matched/Unmatched are
// populated by the resolve stage only.
type StageCounts struct {
	Processed int    `json:"processed"`
	Skipped   int    `json:"skipped"`
	Appended  int    `json:"appended"`
	Matched   int    `json:"matched,omitempty"`
	Unmatched int    `json:"unmatched,omitempty"`
	Failed    int    `json:"failed"`
	Error     string `json:"error,omitempty"`
}

// RunSummary is the structured outcome of one orchestrator run.
type RunSummary struct {
	RunID      string      `json:"run_id"`
	StartedAt  time.Time   `json:"started_at"`
	FinishedAt time.Time   `json:"finished_at"`
	Crawl      StageCounts `json:"crawl"`
	Extract    StageCounts `json:"extract"`
	Resolve    StageCounts `json:"resolve"`
}

// StageRun is one runs-sheet row.
type StageRun struct {
	RunID      string
	Stage      Stage
	StartedAt  time.Time
	FinishedAt time.Time
	Counts     StageCounts
}

// StageRunFromRow decodes a runs-sheet row. Unparseable timestamps
// come back zero; unparseable counts come back zero.
func StageRunFromRow(row map[string]string) StageRun {
	atoi := func(key string) int {
		n, _ := strconv.Atoi(row[key])
		return n
	}
	started, _ := time.Parse(time.RFC3339, row["started_at"])
	finished, _ := time.Parse(time.RFC3339, row["finished_at"])
	return StageRun{
		RunID:      row["run_id"],
		Stage:      Stage(row["stage"]),
		StartedAt:  started,
		FinishedAt: finished,
		Counts: StageCounts{
			Processed: atoi("processed"),
			Skipped:   atoi("skipped"),
			Appended:  atoi("appended"),
			Matched:   atoi("matched"),
			Unmatched: atoi("unmatched"),
			Failed:    atoi("failed"),
			Error:     row["error"],
		},
	}
}

// Row encodes the stage run for the record store.
func (r StageRun) Row() map[string]string {
	return map[string]string{
		"run_id":      r.RunID,
		"stage":       string(r.Stage),
		"started_at":  r.StartedAt.UTC().Format(time.RFC3339),
		"finished_at": r.FinishedAt.UTC().Format(time.RFC3339),
		"processed":   strconv.Itoa(r.Counts.Processed),
		"skipped":     strconv.Itoa(r.Counts.Skipped),
		"appended":    strconv.Itoa(r.Counts.Appended),
		"matched":     strconv.Itoa(r.Counts.Matched),
		"unmatched":   strconv.Itoa(r.Counts.Unmatched),
		"failed":      strconv.Itoa(r.Counts.Failed),
		"error":       r.Counts.Error,
	}
}
