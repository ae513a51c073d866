package planner_test

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"sprocket/internal/planner"
	"sprocket/internal/queue"
	"sprocket/internal/services"
	"sprocket/internal/timecode"
)

func job(ranges ...timecode.Range) *queue.Job {
	return &queue.Job{Index: 3, SourceURL: "https://example.com/v", SourceID: "v", Ranges: ranges}
}

func TestBuildWholeVideo(t *testing.T) {
	plan, err := planner.Build(job(), planner.Options{Duration: 120, JobDir: "/out/job-003-v"})
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if len(plan.Segments) != 1 {
		t.Fatalf("expected one whole segment, got %d", len(plan.Segments))
	}
	seg := plan.Segments[0]
	if !seg.Whole || seg.Start != 0 || seg.End != 120 {
		t.Fatalf("unexpected whole segment: %+v", seg)
	}
	if seg.OutputPath != filepath.Join("/out/job-003-v", "segment-01.mp4") {
		t.Fatalf("unexpected output path: %q", seg.OutputPath)
	}
}

func TestBuildAudioOnlyUsesAudioExtension(t *testing.T) {
	plan, err := planner.Build(job(timecode.Range{Start: 5, End: 10}), planner.Options{Duration: 60, JobDir: "/out/j", AudioOnly: true})
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if !strings.HasSuffix(plan.Segments[0].OutputPath, "segment-01.m4a") {
		t.Fatalf("unexpected output path: %q", plan.Segments[0].OutputPath)
	}
}

func TestBuildSortsRangesAndAssignsSequences(t *testing.T) {
	plan, err := planner.Build(
		job(timecode.Range{Start: 50, End: 60}, timecode.Range{Start: 10, End: 20}),
		planner.Options{Duration: 100, JobDir: "/out/j"},
	)
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if len(plan.Segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(plan.Segments))
	}
	if plan.Segments[0].Start != 10 || plan.Segments[0].Sequence != 1 {
		t.Fatalf("expected earliest range first, got %+v", plan.Segments[0])
	}
	if plan.Segments[1].Start != 50 || plan.Segments[1].Sequence != 2 {
		t.Fatalf("unexpected second segment: %+v", plan.Segments[1])
	}
	if !strings.HasSuffix(plan.Segments[1].OutputPath, "segment-02.mp4") {
		t.Fatalf("sequence should drive the filename: %q", plan.Segments[1].OutputPath)
	}
}

func TestBuildClampsEndToDuration(t *testing.T) {
	plan, err := planner.Build(job(timecode.Range{Start: 10, End: 150}), planner.Options{Duration: 100, JobDir: "/out/j"})
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if plan.Segments[0].End != 100 {
		t.Fatalf("expected clamped end 100, got %v", plan.Segments[0].End)
	}
	if len(plan.Warnings) != 1 || !strings.Contains(plan.Warnings[0], "clamped") {
		t.Fatalf("expected clamp warning, got %v", plan.Warnings)
	}
}

func TestBuildDropsRangeBeyondDuration(t *testing.T) {
	plan, err := planner.Build(
		job(timecode.Range{Start: 10, End: 20}, timecode.Range{Start: 120, End: 130}),
		planner.Options{Duration: 100, JobDir: "/out/j"},
	)
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if len(plan.Segments) != 1 || plan.Segments[0].Start != 10 {
		t.Fatalf("expected only the in-bounds segment, got %+v", plan.Segments)
	}
	if len(plan.Warnings) != 1 || !strings.Contains(plan.Warnings[0], "dropped") {
		t.Fatalf("expected drop warning, got %v", plan.Warnings)
	}
}

func TestBuildFailsWhenNothingSurvives(t *testing.T) {
	_, err := planner.Build(job(timecode.Range{Start: 120, End: 130}), planner.Options{Duration: 100, JobDir: "/out/j"})
	if err == nil {
		t.Fatal("expected failure when every range is dropped")
	}
	if !errors.Is(err, services.ErrPlan) {
		t.Fatalf("expected plan marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "no valid segments") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestBuildRejectsOverlap(t *testing.T) {
	_, err := planner.Build(
		job(timecode.Range{Start: 10, End: 30}, timecode.Range{Start: 20, End: 40}),
		planner.Options{Duration: 100, JobDir: "/out/j"},
	)
	if err == nil || !errors.Is(err, services.ErrPlan) {
		t.Fatalf("expected overlap rejection, got %v", err)
	}
}

func TestBuildAllowsTouchingBoundaries(t *testing.T) {
	plan, err := planner.Build(
		job(timecode.Range{Start: 10, End: 20}, timecode.Range{Start: 20, End: 30}),
		planner.Options{Duration: 100, JobDir: "/out/j"},
	)
	if err != nil {
		t.Fatalf("touching ranges should be fine: %v", err)
	}
	if len(plan.Segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(plan.Segments))
	}
}

func TestBuildRejectsInvertedRange(t *testing.T) {
	_, err := planner.Build(job(timecode.Range{Start: 50, End: 40}), planner.Options{Duration: 100, JobDir: "/out/j"})
	if err == nil || !errors.Is(err, services.ErrPlan) {
		t.Fatalf("expected inverted range rejection, got %v", err)
	}
}

func TestBuildDropRemovesOverlapWithDroppedRange(t *testing.T) {
	plan, err := planner.Build(
		job(timecode.Range{Start: 50, End: 150}, timecode.Range{Start: 120, End: 180}),
		planner.Options{Duration: 100, JobDir: "/out/j"},
	)
	if err != nil {
		t.Fatalf("dropped ranges cannot overlap survivors: %v", err)
	}
	if len(plan.Segments) != 1 || plan.Segments[0].End != 100 {
		t.Fatalf("expected single clamped segment, got %+v", plan.Segments)
	}
	if len(plan.Warnings) != 2 {
		t.Fatalf("expected clamp and drop warnings, got %v", plan.Warnings)
	}
}

func TestBuildRequiresKnownDuration(t *testing.T) {
	_, err := planner.Build(job(timecode.Range{Start: 1, End: 2}), planner.Options{Duration: 0, JobDir: "/out/j"})
	if err == nil || !errors.Is(err, services.ErrPlan) {
		t.Fatalf("expected duration error, got %v", err)
	}
}
