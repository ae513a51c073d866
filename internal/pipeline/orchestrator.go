package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"sprocket/internal/clip"
	"sprocket/internal/fetch"
	"sprocket/internal/logging"
	"sprocket/internal/notifications"
	"sprocket/internal/planner"
	"sprocket/internal/queue"
	"sprocket/internal/services"
)

// Options configure a run.
type Options struct {
	OutputDir     string
	URLFile       string
	TimestampFile string
	AudioOnly     bool
	// Concurrency bounds the number of jobs in flight at once.
	Concurrency int
}

// Outcome is the final state of one run.
type Outcome struct {
	RunID     string
	StartedAt time.Time
	Duration  time.Duration
	// Jobs hold the terminal job states, ordered by job index.
	Jobs []*queue.Job
	// Results is the run's event log in arrival order.
	Results []queue.ExecutionResult
	// Completed counts jobs whose every segment succeeded, Partial those
	// that completed with at least one failed segment, Failed those that
	// produced nothing.
	Completed int
	Partial   int
	Failed    int
}

// Orchestrator drives a batch of jobs to terminal status. Job workers run
// concurrently, but all job table mutations and journal writes happen on the
// orchestrator's own goroutine.
type Orchestrator struct {
	store    *queue.Store
	fetcher  *fetch.Coordinator
	clipper  *clip.Executor
	notifier notifications.Service
	opts     Options
	logger   *slog.Logger
}

// New constructs an orchestrator.
func New(store *queue.Store, fetcher *fetch.Coordinator, clipper *clip.Executor, notifier notifications.Service, opts Options, logger *slog.Logger) (*Orchestrator, error) {
	if store == nil {
		return nil, errors.New("journal store required")
	}
	if fetcher == nil {
		return nil, errors.New("fetch coordinator required")
	}
	if clipper == nil {
		return nil, errors.New("clip executor required")
	}
	if notifier == nil {
		notifier = notifications.Noop()
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	return &Orchestrator{
		store:    store,
		fetcher:  fetcher,
		clipper:  clipper,
		notifier: notifier,
		opts:     opts,
		logger:   logger,
	}, nil
}

// Run processes the batch until every job reaches a terminal status. One
// job's failure never aborts the others; cancellation fails jobs that have
// not started and interrupts the ones in flight.
func (o *Orchestrator) Run(ctx context.Context, jobs []*queue.Job) (*Outcome, error) {
	runID := uuid.NewString()
	started := time.Now()
	ctx = services.WithRunID(ctx, runID)
	logger := o.logger.With(logging.String(logging.FieldRunID, runID))

	// Journal writes and notifications outlive cancellation so a cancelled
	// run still records terminal states and its summary.
	persistCtx := context.WithoutCancel(ctx)

	if err := o.store.BeginRun(persistCtx, queue.RunRecord{
		ID:            runID,
		StartedAt:     started.UTC(),
		URLFile:       o.opts.URLFile,
		TimestampFile: o.opts.TimestampFile,
		OutputDir:     o.opts.OutputDir,
	}); err != nil {
		return nil, err
	}
	if err := o.store.InsertJobs(persistCtx, runID, jobs); err != nil {
		return nil, err
	}

	st := newRunState(runID, jobs)
	for _, job := range jobs {
		if job.Status == queue.StatusFailed {
			o.appendResult(persistCtx, st, queue.ExecutionResult{
				JobIndex: job.Index,
				Stage:    "parse",
				Outcome:  queue.OutcomeFailure,
				Detail:   job.FailureReason,
			})
		}
	}

	pending := 0
	for _, job := range jobs {
		if !job.Status.IsTerminal() {
			pending++
		}
	}
	logger.Info("run started",
		logging.Int("jobs", len(jobs)),
		logging.Int("pending", pending),
		logging.Int("concurrency", o.opts.Concurrency),
	)
	if err := o.notifier.NotifyRunStarted(persistCtx, pending); err != nil {
		logger.Debug("run start notification failed", logging.Error(err))
	}

	events := make(chan event, 64)
	go o.dispatch(ctx, jobs, events)
	for ev := range events {
		o.apply(persistCtx, st, ev)
	}

	outcome := o.finalize(persistCtx, st, jobs, started, logger)
	return outcome, nil
}

// dispatch hands each non-terminal job to a worker, bounded by the
// concurrency limit, and closes the event channel when the last worker
// finishes. Jobs that never start after cancellation are failed as
// cancelled.
func (o *Orchestrator) dispatch(ctx context.Context, jobs []*queue.Job, events chan<- event) {
	sem := make(chan struct{}, o.opts.Concurrency)
	var wg sync.WaitGroup
	for _, job := range jobs {
		if job.Status.IsTerminal() {
			continue
		}
		// Check cancellation before competing for a worker slot so jobs
		// that have not started are failed rather than dispatched.
		select {
		case <-ctx.Done():
			events <- event{jobIndex: job.Index, kind: eventStatus, status: queue.StatusFailed, reason: "cancelled", stage: "orchestrate"}
			continue
		default:
		}
		select {
		case <-ctx.Done():
			events <- event{jobIndex: job.Index, kind: eventStatus, status: queue.StatusFailed, reason: "cancelled", stage: "orchestrate"}
			continue
		case sem <- struct{}{}:
		}
		wg.Add(1)
		go func(snapshot queue.Job) {
			defer wg.Done()
			defer func() { <-sem }()
			o.processJob(ctx, snapshot, events)
		}(*job)
	}
	wg.Wait()
	close(events)
}

// processJob walks one job through fetch, plan, and clip, reporting every
// observation as an event. The snapshot keeps workers from touching the
// writer-owned job table.
func (o *Orchestrator) processJob(ctx context.Context, job queue.Job, events chan<- event) {
	ctx = services.WithJobIndex(ctx, job.Index)
	logger := logging.WithContext(ctx, o.logger).With(logging.String(logging.FieldURL, job.SourceURL))
	jobDir := filepath.Join(o.opts.OutputDir, job.DirName())

	events <- event{jobIndex: job.Index, kind: eventStatus, status: queue.StatusFetching}
	fetchStart := time.Now()
	res, err := o.fetcher.Fetch(services.WithStage(ctx, "fetch"), &job, jobDir)
	if err != nil {
		logger.Error("fetch failed", logging.Error(err))
		events <- event{jobIndex: job.Index, kind: eventStatus, status: queue.StatusFailed, reason: err.Error(), stage: "fetch"}
		return
	}
	logger.Info("fetch completed",
		logging.Duration("stage_duration", time.Since(fetchStart)),
		logging.Int(logging.FieldAttempt, res.Attempts),
		logging.Bool("reused", res.Reused),
		logging.Float64("duration_seconds", res.Duration),
	)
	job.Title = res.Title
	job.AssetPath = res.AssetPath
	job.AssetDuration = res.Duration
	events <- event{jobIndex: job.Index, kind: eventMetadata, title: res.Title, asset: res.AssetPath, duration: res.Duration}
	events <- event{jobIndex: job.Index, kind: eventStatus, status: queue.StatusFetched}

	events <- event{jobIndex: job.Index, kind: eventStatus, status: queue.StatusPlanning}
	plan, err := planner.Build(&job, planner.Options{
		Duration:  res.Duration,
		JobDir:    jobDir,
		AudioOnly: o.opts.AudioOnly,
	})
	for _, warning := range plan.Warnings {
		events <- event{jobIndex: job.Index, kind: eventWarning, warning: warning}
	}
	if err != nil {
		logger.Error("planning failed", logging.Error(err))
		events <- event{jobIndex: job.Index, kind: eventStatus, status: queue.StatusFailed, reason: err.Error(), stage: "plan"}
		return
	}
	events <- event{jobIndex: job.Index, kind: eventSegments, segments: plan.Segments}

	events <- event{jobIndex: job.Index, kind: eventStatus, status: queue.StatusClipping}
	clipStart := time.Now()
	results := o.clipper.Run(services.WithStage(ctx, "clip"), &job, res.AssetPath, plan.Segments)
	for _, r := range results {
		outcome := queue.OutcomeSuccess
		detail := ""
		if r.Err != nil {
			outcome = queue.OutcomeFailure
			detail = r.Err.Error()
		}
		events <- event{jobIndex: job.Index, kind: eventSegmentOutcome, sequence: r.Segment.Sequence, outcome: outcome, detail: detail}
	}
	successes := clip.Successes(results)
	logger.Info("clipping completed",
		logging.Duration("stage_duration", time.Since(clipStart)),
		logging.Int("segments", len(results)),
		logging.Int("successes", successes),
	)
	if successes == 0 {
		events <- event{jobIndex: job.Index, kind: eventStatus, status: queue.StatusFailed, reason: "all segments failed", stage: "clip"}
		return
	}
	events <- event{jobIndex: job.Index, kind: eventStatus, status: queue.StatusCompleted}
}

// finalize guarantees terminal statuses, persists counts, and emits the run
// completion notification.
func (o *Orchestrator) finalize(ctx context.Context, st *runState, jobs []*queue.Job, started time.Time, logger *slog.Logger) *Outcome {
	outcome := &Outcome{
		RunID:     st.runID,
		StartedAt: started,
		Duration:  time.Since(started),
		Jobs:      jobs,
		Results:   st.results,
	}
	for _, job := range jobs {
		if !job.Status.IsTerminal() {
			job.SetFailed("did not reach a terminal status")
			o.persistJob(ctx, st, job)
		}
		switch job.Status {
		case queue.StatusCompleted:
			if st.segmentFailures[job.Index] > 0 {
				outcome.Partial++
			} else {
				outcome.Completed++
			}
		case queue.StatusFailed:
			outcome.Failed++
		}
	}

	if err := o.store.FinishRun(ctx, st.runID, outcome.Completed, outcome.Partial, outcome.Failed); err != nil {
		logger.Warn("journal run finish failed", logging.Error(err))
	}
	logger.Info("run completed",
		logging.Int("completed", outcome.Completed),
		logging.Int("partial", outcome.Partial),
		logging.Int("failed", outcome.Failed),
		logging.Duration("run_duration", outcome.Duration),
	)
	if err := o.notifier.NotifyRunCompleted(ctx, outcome.Completed, outcome.Partial, outcome.Failed, outcome.Duration); err != nil {
		logger.Debug("run completion notification failed", logging.Error(err))
	}
	return outcome
}
