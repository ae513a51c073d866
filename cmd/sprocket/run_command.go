package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"sprocket/internal/clip"
	"sprocket/internal/config"
	"sprocket/internal/deps"
	"sprocket/internal/fetch"
	"sprocket/internal/inputs"
	"sprocket/internal/logging"
	"sprocket/internal/media/ffprobe"
	"sprocket/internal/notifications"
	"sprocket/internal/pipeline"
	"sprocket/internal/queue"
	"sprocket/internal/report"
	"sprocket/internal/services/ffmpeg"
	"sprocket/internal/services/ytdlp"
)

// errFailedJobs signals a run whose report already went to stdout; main
// exits non-zero without repeating it.
var errFailedJobs = errors.New("one or more jobs failed")

func newRunCommand(ctx *commandContext) *cobra.Command {
	var urlFile string
	var timestampFile string
	var outputDir string
	var concurrency int
	var audioOnly bool
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Fetch every listed URL and cut the requested segments",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			overlay := runOverlay{
				urlFile:       urlFile,
				timestampFile: timestampFile,
				outputDir:     outputDir,
				concurrency:   concurrency,
				audioOnly:     audioOnly,
				audioSet:      cmd.Flags().Changed("audio"),
			}
			if err := overlay.apply(cfg); err != nil {
				return err
			}
			return runPipeline(cmd, cfg, jsonOutput)
		},
	}

	cmd.Flags().StringVar(&urlFile, "url-file", "", "Path to the URL list")
	cmd.Flags().StringVar(&timestampFile, "timestamp-file", "", "Path to the timestamp list")
	cmd.Flags().StringVar(&outputDir, "output-dir", "", "Root directory for job outputs")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "Maximum jobs in flight at once")
	cmd.Flags().BoolVar(&audioOnly, "audio", false, "Extract audio-only segments")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the run summary as JSON")

	return cmd
}

// runOverlay carries the run flags that override file configuration.
type runOverlay struct {
	urlFile       string
	timestampFile string
	outputDir     string
	concurrency   int
	audioOnly     bool
	audioSet      bool
}

func (o runOverlay) apply(cfg *config.Config) error {
	if v := strings.TrimSpace(o.urlFile); v != "" {
		expanded, err := config.ExpandPath(v)
		if err != nil {
			return fmt.Errorf("resolve url file: %w", err)
		}
		cfg.Inputs.URLFile = expanded
	}
	if v := strings.TrimSpace(o.timestampFile); v != "" {
		expanded, err := config.ExpandPath(v)
		if err != nil {
			return fmt.Errorf("resolve timestamp file: %w", err)
		}
		cfg.Inputs.TimestampFile = expanded
	}
	if v := strings.TrimSpace(o.outputDir); v != "" {
		expanded, err := config.ExpandPath(v)
		if err != nil {
			return fmt.Errorf("resolve output directory: %w", err)
		}
		cfg.Paths.OutputDir = expanded
	}
	if o.concurrency > 0 {
		cfg.Fetch.Concurrency = o.concurrency
	}
	if o.audioSet {
		cfg.Clip.AudioOnly = o.audioOnly
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	return cfg.EnsureDirectories()
}

func runPipeline(cmd *cobra.Command, cfg *config.Config, jsonOutput bool) error {
	runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if missing := deps.MissingRequired(deps.CheckSystemDeps(cfg)); len(missing) > 0 {
		return fmt.Errorf("missing required tools: %s (see `sprocket deps`)", strings.Join(missing, ", "))
	}
	if failed := deps.FailedChecks(deps.RunEnvironmentChecks(cfg)); len(failed) > 0 {
		return fmt.Errorf("environment checks failed: %s (see `sprocket deps`)", strings.Join(failed, ", "))
	}

	lock := flock.New(filepath.Join(cfg.Paths.OutputDir, "sprocket.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire run lock: %w", err)
	}
	if !locked {
		return errors.New("another sprocket run is already using this output directory")
	}
	defer func() { _ = lock.Unlock() }()

	var logPath string
	if strings.TrimSpace(cfg.Paths.LogDir) != "" {
		stamp := time.Now().UTC().Format("20060102T150405Z")
		logPath = filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("sprocket-%s.log", stamp))
	}
	logger, err := logging.New(logging.Options{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		OutputPath: logPath,
		Console:    cmd.ErrOrStderr(),
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	jobs, warnings, err := inputs.LoadJobs(cfg.Inputs.URLFile, cfg.Inputs.TimestampFile)
	if err != nil {
		return err
	}
	for _, warning := range warnings {
		logger.Warn(warning)
	}
	if len(jobs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No URLs to process")
		return nil
	}

	store, err := queue.Open(cfg.JournalPath())
	if err != nil {
		return fmt.Errorf("open run journal: %w", err)
	}
	defer store.Close()

	fetcher, err := ytdlp.New(cfg.FetcherBinary(), cfg.Fetch.TimeoutSeconds)
	if err != nil {
		return err
	}
	transcoder, err := ffmpeg.New(cfg.TranscoderBinary(), cfg.Clip.AudioBitrate)
	if err != nil {
		return err
	}
	probe := func(ctx context.Context, path string) (float64, error) {
		return ffprobe.Duration(ctx, cfg.ProbeBinary(), path)
	}

	coordinator := fetch.New(fetcher, probe, fetch.Options{
		RetryAttempts: cfg.Fetch.RetryAttempts,
		RetryDelay:    time.Duration(cfg.Fetch.RetryDelaySeconds) * time.Second,
		ReuseExisting: cfg.Fetch.ReuseExisting,
	}, logging.NewComponentLogger(logger, "fetch"))
	executor := clip.New(transcoder, cfg.Clip.AudioOnly, logging.NewComponentLogger(logger, "clip"))

	orch, err := pipeline.New(store, coordinator, executor, notifications.NewService(cfg), pipeline.Options{
		OutputDir:     cfg.Paths.OutputDir,
		URLFile:       cfg.Inputs.URLFile,
		TimestampFile: cfg.Inputs.TimestampFile,
		AudioOnly:     cfg.Clip.AudioOnly,
		Concurrency:   cfg.Fetch.Concurrency,
	}, logging.NewComponentLogger(logger, "pipeline"))
	if err != nil {
		return err
	}

	outcome, err := orch.Run(runCtx, jobs)
	if err != nil {
		return err
	}

	summary := report.Build(outcome)
	if jsonOutput {
		data, err := report.JSON(summary)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
	} else {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, report.Table(summary))
		fmt.Fprintf(out, "%d completed, %d partial, %d failed in %s\n",
			summary.Completed, summary.Partial, summary.Failed, outcome.Duration.Round(time.Second))
	}
	if summary.ExitCode() != 0 {
		return errFailedJobs
	}
	return nil
}
