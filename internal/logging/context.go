package logging

import (
	"context"
	"log/slog"

	"sprocket/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldRunID is the standardized structured logging key for run correlation identifiers.
	FieldRunID = "run_id"
	// FieldJobIndex is the standardized structured logging key for a job's input-order index.
	FieldJobIndex = "job_index"
	// FieldStage is the standardized structured logging key for pipeline stage names.
	FieldStage = "stage"
	// FieldSegment is the standardized structured logging key for 1-based segment numbers.
	FieldSegment = "segment"
	// FieldURL is the standardized structured logging key for source URLs.
	FieldURL = "url"
	// FieldAttempt is the standardized structured logging key for retry attempt counters.
	FieldAttempt = "attempt"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 4)
	if rid, ok := services.RunIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRunID, rid))
	}
	if idx, ok := services.JobIndexFromContext(ctx); ok {
		fields = append(fields, slog.Int(FieldJobIndex, idx))
	}
	if stage, ok := services.StageFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldStage, stage))
	}
	if seq, ok := services.SegmentFromContext(ctx); ok {
		fields = append(fields, slog.Int(FieldSegment, seq))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from
// the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(attrsToArgs(fields)...)
}
