package services

import "context"

type contextKey string

const (
	jobIndexKey contextKey = "job_index"
	stageKey    contextKey = "stage"
	runIDKey    contextKey = "run_id"
	segmentKey  contextKey = "segment"
)

// WithJobIndex annotates context with the job's input-order index.
func WithJobIndex(ctx context.Context, index int) context.Context {
	return context.WithValue(ctx, jobIndexKey, index)
}

// JobIndexFromContext extracts the job index if present.
func JobIndexFromContext(ctx context.Context) (int, bool) {
	switch val := ctx.Value(jobIndexKey).(type) {
	case int:
		return val, true
	case int64:
		return int(val), true
	default:
		return 0, false
	}
}

// WithStage annotates context with the pipeline stage name.
func WithStage(ctx context.Context, stage string) context.Context {
	if stage == "" {
		return ctx
	}
	return context.WithValue(ctx, stageKey, stage)
}

// StageFromContext returns the stage name if present.
func StageFromContext(ctx context.Context) (string, bool) {
	if str, ok := ctx.Value(stageKey).(string); ok && str != "" {
		return str, true
	}
	return "", false
}

// WithRunID annotates context with the run correlation identifier.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext extracts the run identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(runIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithSegment annotates context with a 1-based segment sequence number.
func WithSegment(ctx context.Context, sequence int) context.Context {
	if sequence <= 0 {
		return ctx
	}
	return context.WithValue(ctx, segmentKey, sequence)
}

// SegmentFromContext extracts the segment sequence number if present.
func SegmentFromContext(ctx context.Context) (int, bool) {
	if v, ok := ctx.Value(segmentKey).(int); ok && v > 0 {
		return v, true
	}
	return 0, false
}
