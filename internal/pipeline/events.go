package pipeline

import (
	"context"

	"sprocket/internal/logging"
	"sprocket/internal/queue"
)

type eventKind int

const (
	eventStatus eventKind = iota
	eventMetadata
	eventSegments
	eventSegmentOutcome
	eventWarning
)

// event is the unit of communication from job workers to the single writer.
// Workers never mutate shared job state directly; every observation flows
// through the event channel so one goroutine serializes all table and
// journal writes.
type event struct {
	jobIndex int
	kind     eventKind

	// eventStatus
	status queue.Status
	reason string
	stage  string

	// eventMetadata
	title    string
	asset    string
	duration float64

	// eventSegments
	segments []queue.Segment

	// eventSegmentOutcome
	sequence int
	outcome  queue.Outcome
	detail   string

	// eventWarning
	warning string
}

// runState is owned exclusively by the writer loop.
type runState struct {
	runID            string
	table            map[int]*queue.Job
	results          []queue.ExecutionResult
	segmentFailures  map[int]int
	segmentSuccesses map[int]int
}

func newRunState(runID string, jobs []*queue.Job) *runState {
	table := make(map[int]*queue.Job, len(jobs))
	for _, job := range jobs {
		table[job.Index] = job
	}
	return &runState{
		runID:            runID,
		table:            table,
		segmentFailures:  make(map[int]int),
		segmentSuccesses: make(map[int]int),
	}
}

func (o *Orchestrator) apply(ctx context.Context, st *runState, ev event) {
	job, ok := st.table[ev.jobIndex]
	if !ok {
		o.logger.Warn("event for unknown job", logging.Int(logging.FieldJobIndex, ev.jobIndex))
		return
	}

	switch ev.kind {
	case eventStatus:
		o.applyStatus(ctx, st, job, ev)
	case eventMetadata:
		job.Title = ev.title
		job.AssetPath = ev.asset
		job.AssetDuration = ev.duration
		o.persistJob(ctx, st, job)
	case eventSegments:
		job.Segments = ev.segments
		if err := o.store.InsertSegments(ctx, st.runID, ev.segments); err != nil {
			o.logger.Warn("journal segment insert failed",
				logging.Int(logging.FieldJobIndex, job.Index),
				logging.Error(err),
			)
		}
	case eventSegmentOutcome:
		o.applySegmentOutcome(ctx, st, job, ev)
	case eventWarning:
		o.logger.Warn("plan warning",
			logging.Int(logging.FieldJobIndex, job.Index),
			logging.String("detail", ev.warning),
		)
		o.appendResult(ctx, st, queue.ExecutionResult{
			JobIndex: job.Index,
			Stage:    "plan",
			Outcome:  queue.OutcomeSkipped,
			Detail:   ev.warning,
		})
	}
}

func (o *Orchestrator) applyStatus(ctx context.Context, st *runState, job *queue.Job, ev event) {
	switch {
	case ev.status == queue.StatusFailed:
		if job.Status.IsTerminal() {
			o.logger.Warn("failure event for terminal job",
				logging.Int(logging.FieldJobIndex, job.Index),
				logging.String("status", string(job.Status)),
			)
			return
		}
		job.SetFailed(ev.reason)
	case job.Status.CanTransition(ev.status):
		job.Status = ev.status
	default:
		o.logger.Warn("invalid status transition",
			logging.Int(logging.FieldJobIndex, job.Index),
			logging.String("from", string(job.Status)),
			logging.String("to", string(ev.status)),
		)
		return
	}
	o.persistJob(ctx, st, job)

	if job.Status == queue.StatusFailed {
		o.appendResult(ctx, st, queue.ExecutionResult{
			JobIndex: job.Index,
			Stage:    ev.stage,
			Outcome:  queue.OutcomeFailure,
			Detail:   job.FailureReason,
		})
		if err := o.notifier.NotifyJobFailed(ctx, job.Index, job.SourceURL, job.FailureReason); err != nil {
			o.logger.Debug("job failure notification failed", logging.Error(err))
		}
	}
}

func (o *Orchestrator) applySegmentOutcome(ctx context.Context, st *runState, job *queue.Job, ev event) {
	if ev.outcome == queue.OutcomeSuccess {
		st.segmentSuccesses[job.Index]++
	} else {
		st.segmentFailures[job.Index]++
	}
	if err := o.store.UpdateSegmentOutcome(ctx, st.runID, job.Index, ev.sequence, ev.outcome, ev.detail); err != nil {
		o.logger.Warn("journal segment outcome failed",
			logging.Int(logging.FieldJobIndex, job.Index),
			logging.Int(logging.FieldSegment, ev.sequence),
			logging.Error(err),
		)
	}
	o.appendResult(ctx, st, queue.ExecutionResult{
		JobIndex: job.Index,
		Segment:  ev.sequence,
		Stage:    "clip",
		Outcome:  ev.outcome,
		Detail:   ev.detail,
	})
}

func (o *Orchestrator) persistJob(ctx context.Context, st *runState, job *queue.Job) {
	if err := o.store.UpdateJob(ctx, st.runID, job); err != nil {
		o.logger.Warn("journal job update failed",
			logging.Int(logging.FieldJobIndex, job.Index),
			logging.Error(err),
		)
	}
}

func (o *Orchestrator) appendResult(ctx context.Context, st *runState, result queue.ExecutionResult) {
	st.results = append(st.results, result)
	if err := o.store.AppendResult(ctx, st.runID, result); err != nil {
		o.logger.Warn("journal result append failed",
			logging.Int(logging.FieldJobIndex, result.JobIndex),
			logging.Error(err),
		)
	}
}
