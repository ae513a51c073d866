package services_test

import (
	"context"
	"testing"

	"sprocket/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithJobIndex(ctx, 3)
	ctx = services.WithStage(ctx, "fetch")
	ctx = services.WithRunID(ctx, "run-123")
	ctx = services.WithSegment(ctx, 2)

	if idx, ok := services.JobIndexFromContext(ctx); !ok || idx != 3 {
		t.Fatalf("unexpected job index: %v %v", idx, ok)
	}
	if stage, ok := services.StageFromContext(ctx); !ok || stage != "fetch" {
		t.Fatalf("unexpected stage: %v %v", stage, ok)
	}
	if rid, ok := services.RunIDFromContext(ctx); !ok || rid != "run-123" {
		t.Fatalf("unexpected run id: %v %v", rid, ok)
	}
	if seq, ok := services.SegmentFromContext(ctx); !ok || seq != 2 {
		t.Fatalf("unexpected segment: %v %v", seq, ok)
	}
}

func TestStageBlankPreservesContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithStage(ctx, "")
	if _, ok := services.StageFromContext(ctx); ok {
		t.Fatal("expected no stage value")
	}
}
