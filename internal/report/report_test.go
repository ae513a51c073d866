package report_test

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"sprocket/internal/pipeline"
	"sprocket/internal/queue"
	"sprocket/internal/report"
)

func sampleOutcome() *pipeline.Outcome {
	return &pipeline.Outcome{
		RunID:     "run-1",
		StartedAt: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
		Duration:  90 * time.Second,
		Completed: 1,
		Partial:   1,
		Failed:    1,
		Jobs: []*queue.Job{
			{
				Index:     2,
				SourceURL: "https://videos.example/watch?v=gamma",
				Status:    queue.StatusFailed,
				// Job-level failure after every segment failed.
				FailureReason: "all segments failed",
				Segments:      []queue.Segment{{JobIndex: 2, Sequence: 1}},
			},
			{
				Index:     0,
				SourceURL: "https://videos.example/watch?v=alpha",
				Title:     "Alpha",
				Status:    queue.StatusCompleted,
				Segments:  []queue.Segment{{JobIndex: 0, Sequence: 1}},
			},
			{
				Index:     1,
				SourceURL: "https://videos.example/watch?v=beta",
				Title:     "Beta",
				Status:    queue.StatusCompleted,
				Segments: []queue.Segment{
					{JobIndex: 1, Sequence: 1},
					{JobIndex: 1, Sequence: 2},
				},
			},
		},
		Results: []queue.ExecutionResult{
			{JobIndex: 0, Segment: 1, Stage: "clip", Outcome: queue.OutcomeSuccess},
			{JobIndex: 1, Segment: 1, Stage: "clip", Outcome: queue.OutcomeSuccess},
			{JobIndex: 1, Segment: 2, Stage: "clip", Outcome: queue.OutcomeFailure, Detail: "cut failed"},
			{JobIndex: 2, Segment: 1, Stage: "clip", Outcome: queue.OutcomeFailure, Detail: "cut failed"},
			{JobIndex: 2, Stage: "clip", Outcome: queue.OutcomeFailure, Detail: "all segments failed"},
		},
	}
}

func TestBuildSortsAndClassifies(t *testing.T) {
	summary := report.Build(sampleOutcome())

	if summary.Completed != 1 || summary.Partial != 1 || summary.Failed != 1 {
		t.Fatalf("unexpected counts: %+v", summary)
	}
	if len(summary.Jobs) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(summary.Jobs))
	}
	for i, row := range summary.Jobs {
		if row.JobIndex != i {
			t.Fatalf("rows not sorted by job index: %+v", summary.Jobs)
		}
	}

	if summary.Jobs[0].Disposition != report.DispositionCompleted {
		t.Fatalf("job 0 disposition = %s", summary.Jobs[0].Disposition)
	}
	if summary.Jobs[1].Disposition != report.DispositionPartial {
		t.Fatalf("job 1 disposition = %s", summary.Jobs[1].Disposition)
	}
	if summary.Jobs[2].Disposition != report.DispositionFailed {
		t.Fatalf("job 2 disposition = %s", summary.Jobs[2].Disposition)
	}

	if summary.Jobs[1].SegmentsWritten != 1 || summary.Jobs[1].SegmentsPlanned != 2 {
		t.Fatalf("job 1 segments = %d/%d", summary.Jobs[1].SegmentsWritten, summary.Jobs[1].SegmentsPlanned)
	}
	if summary.Jobs[2].SegmentsWritten != 0 {
		t.Fatalf("failed job should report no written segments, got %d", summary.Jobs[2].SegmentsWritten)
	}
	if summary.Jobs[2].FailureReason != "all segments failed" {
		t.Fatalf("job 2 reason = %q", summary.Jobs[2].FailureReason)
	}
	if summary.DurationSeconds != 90 {
		t.Fatalf("duration seconds = %f", summary.DurationSeconds)
	}
}

func TestBuildCollectsPlanWarnings(t *testing.T) {
	outcome := sampleOutcome()
	outcome.Results = append(outcome.Results, queue.ExecutionResult{
		JobIndex: 0,
		Stage:    "plan",
		Outcome:  queue.OutcomeSkipped,
		Detail:   "range 00:01:30.000-00:02:30.000 end clamped to asset duration 00:01:40.000",
	})

	summary := report.Build(outcome)
	if len(summary.Jobs[0].Warnings) != 1 {
		t.Fatalf("expected one warning, got %v", summary.Jobs[0].Warnings)
	}
	if !strings.Contains(summary.Jobs[0].Warnings[0], "clamped") {
		t.Fatalf("warning text = %q", summary.Jobs[0].Warnings[0])
	}
}

func TestExitCode(t *testing.T) {
	if code := (report.Summary{Failed: 1}).ExitCode(); code != 1 {
		t.Fatalf("failed run exit = %d, want 1", code)
	}
	if code := (report.Summary{Partial: 2}).ExitCode(); code != 0 {
		t.Fatalf("partial run exit = %d, want 0", code)
	}
	if code := (report.Summary{Completed: 3}).ExitCode(); code != 0 {
		t.Fatalf("clean run exit = %d, want 0", code)
	}
}

func TestTableRendersRows(t *testing.T) {
	summary := report.Build(sampleOutcome())
	rendered := report.Table(summary)

	for _, want := range []string{"Source", "Alpha", "partial", "1/2", "all segments failed"} {
		if !strings.Contains(rendered, want) {
			t.Fatalf("table missing %q:\n%s", want, rendered)
		}
	}
}

func TestTableTruncatesLongTitles(t *testing.T) {
	outcome := sampleOutcome()
	outcome.Jobs[1].Title = strings.Repeat("very long title ", 10)

	rendered := report.Table(report.Build(outcome))
	if !strings.Contains(rendered, "...") {
		t.Fatalf("expected truncated title in table:\n%s", rendered)
	}
	if strings.Contains(rendered, outcome.Jobs[1].Title) {
		t.Fatal("full title should not appear in the table")
	}
}

func TestJSONShapesSummary(t *testing.T) {
	data, err := report.JSON(report.Build(sampleOutcome()))
	if err != nil {
		t.Fatalf("JSON: %v", err)
	}

	var decoded struct {
		RunID string `json:"run_id"`
		Jobs  []struct {
			Disposition   string `json:"disposition"`
			FailureReason string `json:"failure_reason,omitempty"`
		} `json:"jobs"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("decode rendered JSON: %v", err)
	}
	if decoded.RunID != "run-1" {
		t.Fatalf("run_id = %q", decoded.RunID)
	}
	if len(decoded.Jobs) != 3 {
		t.Fatalf("expected 3 jobs, got %d", len(decoded.Jobs))
	}
	if decoded.Jobs[0].FailureReason != "" {
		t.Fatalf("clean job should omit failure_reason, got %q", decoded.Jobs[0].FailureReason)
	}
}
