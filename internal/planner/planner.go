// Package planner derives the ordered, non-overlapping segment list for one
// job from its parsed ranges and the probed asset duration.
package planner

import (
	"fmt"
	"path/filepath"
	"sort"

	"sprocket/internal/queue"
	"sprocket/internal/services"
	"sprocket/internal/timecode"
)

// Plan is the outcome of planning a single job.
type Plan struct {
	Segments []queue.Segment
	// Warnings record tolerated oddities, such as ranges dropped for
	// starting beyond the asset duration.
	Warnings []string
}

// Options carry the planning inputs that do not live on the job itself.
type Options struct {
	// Duration is the probed asset duration in seconds.
	Duration float64
	// JobDir is the directory owned by the job; segment output paths are
	// placed inside it.
	JobDir string
	// AudioOnly switches segment outputs to audio containers.
	AudioOnly bool
}

// VideoExt and AudioExt are the fixed output containers. Video cuts are
// stream copies into mp4; audio cuts re-encode into m4a.
const (
	VideoExt = ".mp4"
	AudioExt = ".m4a"
)

// Build validates and orders the job's ranges into segments.
//
// Ranges are checked for the start < end invariant, ranges starting at or
// beyond the asset duration are dropped with a warning, ends beyond the
// duration are clamped, and the survivors are sorted by start and rejected
// if any two overlap. A job with no ranges yields a single whole-asset
// segment. An empty result after dropping fails the job.
func Build(job *queue.Job, opts Options) (Plan, error) {
	if opts.Duration <= 0 {
		return Plan{}, services.Wrap(services.ErrPlan, "plan", "duration", "asset duration unknown", nil)
	}

	ext := VideoExt
	if opts.AudioOnly {
		ext = AudioExt
	}

	if job.WholeVideo() {
		return Plan{Segments: []queue.Segment{{
			JobIndex:   job.Index,
			Sequence:   1,
			Start:      0,
			End:        opts.Duration,
			Whole:      true,
			OutputPath: filepath.Join(opts.JobDir, queue.SegmentFileName(1, ext)),
		}}}, nil
	}

	for _, r := range job.Ranges {
		if r.Start >= r.End {
			return Plan{}, services.Wrap(services.ErrPlan, "plan", "ranges", fmt.Sprintf("range %s: start must precede end", r), nil)
		}
	}

	var warnings []string
	kept := make([]timecode.Range, 0, len(job.Ranges))
	for _, r := range job.Ranges {
		if r.Start >= opts.Duration {
			warnings = append(warnings, fmt.Sprintf("range %s starts at or beyond asset duration %s; dropped", r, timecode.Format(opts.Duration)))
			continue
		}
		if r.End > opts.Duration {
			warnings = append(warnings, fmt.Sprintf("range %s end clamped to asset duration %s", r, timecode.Format(opts.Duration)))
			r.End = opts.Duration
		}
		kept = append(kept, r)
	}

	sort.Slice(kept, func(i, j int) bool { return kept[i].Start < kept[j].Start })

	for i := 1; i < len(kept); i++ {
		if kept[i-1].End > kept[i].Start {
			return Plan{Warnings: warnings}, services.Wrap(services.ErrPlan, "plan", "ranges", fmt.Sprintf("ranges %s and %s overlap", kept[i-1], kept[i]), nil)
		}
	}

	if len(kept) == 0 {
		return Plan{Warnings: warnings}, services.Wrap(services.ErrPlan, "plan", "segments", "no valid segments", nil)
	}

	segments := make([]queue.Segment, 0, len(kept))
	for i, r := range kept {
		sequence := i + 1
		segments = append(segments, queue.Segment{
			JobIndex:   job.Index,
			Sequence:   sequence,
			Start:      r.Start,
			End:        r.End,
			OutputPath: filepath.Join(opts.JobDir, queue.SegmentFileName(sequence, ext)),
		})
	}
	return Plan{Segments: segments, Warnings: warnings}, nil
}
