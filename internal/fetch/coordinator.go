// Package fetch acquires source assets for jobs, retrying transient failures
// with exponential backoff and reusing assets left by earlier runs when their
// duration still matches the remote.
package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"time"

	"sprocket/internal/fileutil"
	"sprocket/internal/logging"
	"sprocket/internal/queue"
	"sprocket/internal/services"
	"sprocket/internal/services/ytdlp"
)

// reuseTolerance is the allowed drift between a local asset's duration and
// the remote metadata before the local copy is considered stale.
const reuseTolerance = 1.0

// maxBackoff caps the delay between retry attempts.
const maxBackoff = 5 * time.Minute

// ProbeFunc reports the duration in seconds of a local media file.
type ProbeFunc func(ctx context.Context, path string) (float64, error)

// Options tune retry and reuse behaviour.
type Options struct {
	// RetryAttempts is the number of additional tries after the first
	// failed attempt.
	RetryAttempts int
	// RetryDelay is the delay before the first retry; it doubles per
	// attempt.
	RetryDelay time.Duration
	// ReuseExisting skips the download when a previously fetched asset
	// still matches the remote duration.
	ReuseExisting bool
}

// Result describes a successfully acquired asset.
type Result struct {
	AssetPath string
	// Duration is the probed duration of the local asset in seconds.
	Duration float64
	Title    string
	Reused   bool
	Attempts int
}

// Coordinator drives the fetch stage for a single job.
type Coordinator struct {
	fetcher ytdlp.Fetcher
	probe   ProbeFunc
	opts    Options
	logger  *slog.Logger
}

// New constructs a coordinator. The probe is required because the planner
// cannot run without the asset duration.
func New(fetcher ytdlp.Fetcher, probe ProbeFunc, opts Options, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Coordinator{fetcher: fetcher, probe: probe, opts: opts, logger: logger}
}

// fetchState carries per-job data across retry attempts so metadata is only
// requested once.
type fetchState struct {
	title          string
	remoteDuration float64
	inspected      bool
}

// Fetch acquires the job's asset into jobDir. Transient failures are retried
// with doubling backoff; permanent failures and exhausted retries fail the
// job. The returned error always carries the fetch marker.
func (c *Coordinator) Fetch(ctx context.Context, job *queue.Job, jobDir string) (Result, error) {
	attempts := c.opts.RetryAttempts + 1
	if attempts < 1 {
		attempts = 1
	}

	logger := logging.WithContext(ctx, c.logger)
	state := &fetchState{}
	var lastErr error
	attemptsMade := 0
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return Result{}, services.Wrap(services.ErrFetch, "fetch", "job", "cancelled", err)
		}
		attemptsMade = attempt

		result, err := c.attempt(ctx, logger, job, jobDir, state)
		if err == nil {
			result.Attempts = attempt
			if cleanErr := fileutil.RemoveScratch(jobDir); cleanErr != nil {
				logger.Warn("scratch cleanup failed", logging.Error(cleanErr))
			}
			return result, nil
		}
		lastErr = err

		if cleanErr := fileutil.RemoveScratch(jobDir); cleanErr != nil {
			logger.Warn("scratch cleanup failed", logging.Error(cleanErr))
		}
		if ctx.Err() != nil {
			_ = fileutil.RemoveMatching(jobDir, ytdlp.AssetPrefix)
			return Result{}, services.Wrap(services.ErrFetch, "fetch", "job", "cancelled", lastErr)
		}
		if !services.IsTransient(err) || attempt == attempts {
			break
		}

		backoff := c.opts.RetryDelay * time.Duration(1<<uint(attempt-1))
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
		logger.Warn("fetch attempt failed, retrying",
			logging.String(logging.FieldURL, job.SourceURL),
			logging.Int(logging.FieldAttempt, attempt),
			logging.Duration("backoff", backoff),
			logging.Error(err),
		)
		if err := sleepWithContext(ctx, backoff); err != nil {
			_ = fileutil.RemoveMatching(jobDir, ytdlp.AssetPrefix)
			return Result{}, services.Wrap(services.ErrFetch, "fetch", "job", "cancelled", err)
		}
	}
	return Result{}, services.Wrap(services.ErrFetch, "fetch", "job", fmt.Sprintf("after %d attempt(s)", attemptsMade), lastErr)
}

func (c *Coordinator) attempt(ctx context.Context, logger *slog.Logger, job *queue.Job, jobDir string, state *fetchState) (Result, error) {
	if !state.inspected {
		meta, err := c.fetcher.Inspect(ctx, job.SourceURL)
		if err != nil {
			return Result{}, err
		}
		state.title = meta.Title
		state.remoteDuration = meta.Duration
		state.inspected = true
	}

	if existing := fileutil.FindByPrefix(jobDir, ytdlp.AssetPrefix); existing != "" {
		if c.opts.ReuseExisting && state.remoteDuration > 0 {
			local, err := c.probe(ctx, existing)
			if err == nil && math.Abs(local-state.remoteDuration) <= reuseTolerance {
				logger.Info("reusing existing asset",
					logging.String("asset", existing),
					logging.Float64("duration", local),
				)
				return Result{AssetPath: existing, Duration: local, Title: state.title, Reused: true}, nil
			}
			logger.Info("existing asset is stale, refetching", logging.String("asset", existing))
		}
		if err := os.Remove(existing); err != nil {
			return Result{}, fmt.Errorf("remove stale asset: %w", err)
		}
	}

	path, err := c.fetcher.Download(ctx, job.SourceURL, jobDir)
	if err != nil {
		return Result{}, err
	}

	duration, err := c.probe(ctx, path)
	if err != nil {
		// A bad probe usually means a truncated download, so discard the
		// asset and classify as retryable.
		_ = os.Remove(path)
		return Result{}, services.Wrap(services.ErrTransient, "fetch", "probe", "", err)
	}
	return Result{AssetPath: path, Duration: duration, Title: state.title}, nil
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
