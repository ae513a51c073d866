package queue

import (
	"fmt"
	"strings"

	"sprocket/internal/timecode"
)

// Status is the lifecycle state of a job.
type Status string

const (
	StatusPending   Status = "pending"
	StatusFetching  Status = "fetching"
	StatusFetched   Status = "fetched"
	StatusPlanning  Status = "planning"
	StatusClipping  Status = "clipping"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

var statusSet = map[Status]struct{}{
	StatusPending:   {},
	StatusFetching:  {},
	StatusFetched:   {},
	StatusPlanning:  {},
	StatusClipping:  {},
	StatusCompleted: {},
	StatusFailed:    {},
}

// allowedTransitions encodes the monotonic state machine. Failed is terminal
// and reachable from every non-terminal state.
var allowedTransitions = map[Status][]Status{
	StatusPending:  {StatusFetching, StatusFailed},
	StatusFetching: {StatusFetched, StatusFailed},
	StatusFetched:  {StatusPlanning, StatusFailed},
	StatusPlanning: {StatusClipping, StatusFailed},
	StatusClipping: {StatusCompleted, StatusFailed},
}

// ParseStatus validates a raw status string.
func ParseStatus(raw string) (Status, error) {
	status := Status(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := statusSet[status]; !ok {
		return "", fmt.Errorf("unknown status %q", raw)
	}
	return status, nil
}

// IsTerminal reports whether no further transitions are allowed.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransition reports whether moving from s to next respects the state
// machine.
func (s Status) CanTransition(next Status) bool {
	for _, candidate := range allowedTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// Job tracks one source URL end to end through the pipeline. Only the
// orchestrator mutates a Job after parse time.
type Job struct {
	// Index is the 0-based position of the URL in the input list.
	Index     int
	SourceURL string
	// SourceID is the sanitized identifier used in the job directory name.
	SourceID string
	// RawRanges holds the timestamp lines exactly as read, for reporting.
	RawRanges []string
	// Ranges are the parsed cut ranges. Empty means whole video.
	Ranges        []timecode.Range
	Status        Status
	FailureReason string

	// Populated by the fetch stage.
	Title         string
	AssetPath     string
	AssetDuration float64

	// Populated by the plan stage.
	Segments []Segment
}

// DirName returns the deterministic per-job directory name under the output
// root.
func (j *Job) DirName() string {
	return fmt.Sprintf("job-%03d-%s", j.Index, j.SourceID)
}

// WholeVideo reports whether the job has no cut ranges.
func (j *Job) WholeVideo() bool {
	return len(j.Ranges) == 0
}

// SetFailed marks the job failed with a single-line reason.
func (j *Job) SetFailed(reason string) {
	j.Status = StatusFailed
	j.FailureReason = strings.TrimSpace(reason)
}

// Segment is one planned output cut within a job.
type Segment struct {
	JobIndex int
	// Sequence is 1-based and assigned in ascending start order.
	Sequence   int
	Start      float64
	End        float64
	OutputPath string
	// Whole marks the implicit full-asset segment of an uncut job.
	Whole bool
}

// SegmentFileName returns the deterministic segment file name for the given
// container extension (".mp4" or ".m4a").
func SegmentFileName(sequence int, ext string) string {
	return fmt.Sprintf("segment-%02d%s", sequence, ext)
}

// Outcome is the recorded result of one execution step.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
	OutcomeSkipped Outcome = "skipped"
)

// ExecutionResult is one immutable entry in the per-run result log. Segment
// is 0 for job-level entries.
type ExecutionResult struct {
	JobIndex int
	Segment  int
	Stage    string
	Outcome  Outcome
	Detail   string
}
