// Package clip cuts planned segments from a fetched asset. Segments run
// sequentially within a job and fail independently, so one bad cut never
// aborts its siblings.
package clip

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"sprocket/internal/logging"
	"sprocket/internal/queue"
	"sprocket/internal/services"
	"sprocket/internal/services/ffmpeg"
)

// SegmentResult records one segment's outcome. Err is nil on success.
type SegmentResult struct {
	Segment queue.Segment
	Err     error
}

// Executor drives the clip stage for a single job.
type Executor struct {
	transcoder ffmpeg.Transcoder
	audioOnly  bool
	logger     *slog.Logger
}

// New constructs an executor. audioOnly must match the planner's setting so
// cut modes agree with the planned output extensions.
func New(transcoder ffmpeg.Transcoder, audioOnly bool, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Executor{transcoder: transcoder, audioOnly: audioOnly, logger: logger}
}

// Run cuts every planned segment in order. Re-running over the same inputs
// overwrites previous outputs instead of duplicating them. A cancelled
// context marks the remaining segments as failed and discards any partial
// output of the in-flight cut.
func (e *Executor) Run(ctx context.Context, job *queue.Job, assetPath string, segments []queue.Segment) []SegmentResult {
	ctx = services.WithJobIndex(ctx, job.Index)
	results := make([]SegmentResult, 0, len(segments))
	for _, seg := range segments {
		if err := ctx.Err(); err != nil {
			results = append(results, SegmentResult{
				Segment: seg,
				Err:     services.Wrap(services.ErrClip, "clip", "segment", "cancelled", err),
			})
			continue
		}
		cutCtx := services.WithSegment(ctx, seg.Sequence)
		results = append(results, SegmentResult{Segment: seg, Err: e.cut(cutCtx, assetPath, seg)})
	}
	return results
}

func (e *Executor) cut(ctx context.Context, assetPath string, seg queue.Segment) error {
	logger := logging.WithContext(ctx, e.logger)
	err := e.transcoder.Clip(ctx, ffmpeg.ClipRequest{
		InputPath:  assetPath,
		OutputPath: seg.OutputPath,
		Start:      seg.Start,
		End:        seg.End,
		Whole:      seg.Whole,
		AudioOnly:  e.audioOnly,
	})
	if err != nil {
		if removeErr := os.Remove(seg.OutputPath); removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) {
			logger.Warn("discarding partial segment output failed", logging.Error(removeErr))
		}
		return services.Wrap(services.ErrClip, "clip", fmt.Sprintf("segment %d", seg.Sequence), "", err)
	}

	if _, statErr := os.Stat(seg.OutputPath); statErr != nil {
		return services.Wrap(services.ErrClip, "clip", fmt.Sprintf("segment %d", seg.Sequence), "transcoder produced no output file", statErr)
	}

	logger.Info("segment written", logging.String("output", seg.OutputPath))
	return nil
}

// Successes counts the segments that produced output.
func Successes(results []SegmentResult) int {
	count := 0
	for _, r := range results {
		if r.Err == nil {
			count++
		}
	}
	return count
}
