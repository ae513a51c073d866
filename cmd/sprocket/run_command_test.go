package main

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"sprocket/internal/queue"
	"sprocket/internal/report"
	"sprocket/internal/testsupport"
)

// The stubbed yt-dlp exits zero without emitting metadata or files, so every
// job fails permanently at the fetch stage. That exercises the whole command
// path end to end without real network or media tools.
func TestRunReportsFetchFailure(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.WriteLines(t, env.cfg.Inputs.URLFile, "https://www.youtube.com/watch?v=dQw4w9WgXcQ")

	out, _, err := runCLI(t, []string{"run"}, env.configPath)
	if !errors.Is(err, errFailedJobs) {
		t.Fatalf("expected errFailedJobs, got %v", err)
	}
	requireContains(t, out, "after 1 attempt(s)")
	requireContains(t, out, "0 completed, 0 partial, 1 failed")

	store := testsupport.MustOpenJournal(t, env.cfg)
	run, err := store.LatestRun(context.Background())
	if err != nil {
		t.Fatalf("latest run: %v", err)
	}
	if run == nil {
		t.Fatal("expected a journaled run")
	}
	if run.Failed != 1 || run.Completed != 0 {
		t.Fatalf("unexpected run counts: %+v", run)
	}
	if run.FinishedAt == nil {
		t.Fatal("expected run to be finished")
	}

	records, err := store.JobsForRun(context.Background(), run.ID)
	if err != nil {
		t.Fatalf("jobs for run: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 job row, got %d", len(records))
	}
	if records[0].Status != queue.StatusFailed {
		t.Fatalf("expected failed job, got %s", records[0].Status)
	}
}

func TestRunJSONSummary(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.WriteLines(t, env.cfg.Inputs.URLFile, "https://www.youtube.com/watch?v=dQw4w9WgXcQ")

	out, _, err := runCLI(t, []string{"run", "--json"}, env.configPath)
	if !errors.Is(err, errFailedJobs) {
		t.Fatalf("expected errFailedJobs, got %v", err)
	}

	var summary report.Summary
	if err := json.Unmarshal([]byte(out), &summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if summary.Failed != 1 || len(summary.Jobs) != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if summary.Jobs[0].Disposition != report.DispositionFailed {
		t.Fatalf("expected failed disposition, got %s", summary.Jobs[0].Disposition)
	}
	if summary.RunID == "" {
		t.Fatal("expected run id in summary")
	}
}

func TestRunWithNoURLs(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"run"}, env.configPath)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	requireContains(t, out, "No URLs to process")
}

func TestRunRejectsMissingTools(t *testing.T) {
	env := setupCLITestEnv(t)
	env.cfg.Fetch.Binary = "sprocket-missing-fetcher"
	writeTestConfig(t, env.configPath, env.cfg)
	testsupport.WriteLines(t, env.cfg.Inputs.URLFile, "https://www.youtube.com/watch?v=dQw4w9WgXcQ")

	_, _, err := runCLI(t, []string{"run"}, env.configPath)
	if err == nil {
		t.Fatal("expected preflight failure")
	}
	requireContains(t, err.Error(), "missing required tools")
}
