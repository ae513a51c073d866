package main

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"sprocket/internal/queue"
	"sprocket/internal/testsupport"
)

func TestJobsCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"jobs"}, env.configPath)
	if err != nil {
		t.Fatalf("jobs on empty journal: %v", err)
	}
	requireContains(t, out, "No runs recorded")

	store := testsupport.MustOpenJournal(t, env.cfg)
	jobs := []*queue.Job{
		{Index: 0, SourceURL: "https://videos.example/watch?v=aaa", SourceID: "aaa", Status: queue.StatusPending},
		{Index: 1, SourceURL: "https://videos.example/watch?v=bbb", SourceID: "bbb", Status: queue.StatusPending},
	}
	testsupport.SeedRun(t, store, "run-jobs", jobs)

	ctx := context.Background()
	jobs[0].Status = queue.StatusCompleted
	jobs[0].Title = "Morning Lecture"
	jobs[0].AssetDuration = 95
	if err := store.UpdateJob(ctx, "run-jobs", jobs[0]); err != nil {
		t.Fatalf("update job 0: %v", err)
	}
	jobs[1].SetFailed("fetch failure: fetch: job: after 1 attempt(s)")
	if err := store.UpdateJob(ctx, "run-jobs", jobs[1]); err != nil {
		t.Fatalf("update job 1: %v", err)
	}
	if err := store.AppendResult(ctx, "run-jobs", queue.ExecutionResult{
		JobIndex: 0,
		Segment:  1,
		Stage:    "clip",
		Outcome:  queue.OutcomeSuccess,
		Detail:   "segment-01.mp4",
	}); err != nil {
		t.Fatalf("append result: %v", err)
	}
	if err := store.FinishRun(ctx, "run-jobs", 1, 0, 1); err != nil {
		t.Fatalf("finish run: %v", err)
	}

	out, _, err = runCLI(t, []string{"jobs"}, env.configPath)
	if err != nil {
		t.Fatalf("jobs: %v", err)
	}
	requireContains(t, out, "Run run-jobs")
	requireContains(t, out, "1 completed, 0 partial, 1 failed")
	requireContains(t, out, "Morning Lecture")
	requireContains(t, out, "00:01:35.000")
	requireContains(t, out, "after 1 attempt(s)")

	out, _, err = runCLI(t, []string{"jobs", "--results"}, env.configPath)
	if err != nil {
		t.Fatalf("jobs --results: %v", err)
	}
	requireContains(t, out, "segment-01.mp4")
	requireContains(t, out, "success")
}

func TestJobsCommandJSON(t *testing.T) {
	env := setupCLITestEnv(t)

	store := testsupport.MustOpenJournal(t, env.cfg)
	jobs := []*queue.Job{
		{Index: 0, SourceURL: "https://videos.example/watch?v=ccc", SourceID: "ccc", Status: queue.StatusPending},
	}
	testsupport.SeedRun(t, store, "run-json", jobs)
	jobs[0].SetFailed("plan failure: plan: segments: no valid segments")
	if err := store.UpdateJob(context.Background(), "run-json", jobs[0]); err != nil {
		t.Fatalf("update job: %v", err)
	}

	out, _, err := runCLI(t, []string{"jobs", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("jobs --json: %v", err)
	}

	var rows []jobRow
	if err := json.Unmarshal([]byte(out), &rows); err != nil {
		t.Fatalf("decode rows: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if rows[0].Status != string(queue.StatusFailed) {
		t.Fatalf("expected failed status, got %q", rows[0].Status)
	}
	if !strings.Contains(rows[0].FailureReason, "no valid segments") {
		t.Fatalf("unexpected failure reason %q", rows[0].FailureReason)
	}
}
