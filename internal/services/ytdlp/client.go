package ytdlp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"sprocket/internal/fileutil"
	"sprocket/internal/services"
)

// AssetPrefix is the fixed stem for downloaded assets inside a job directory.
// yt-dlp decides the container extension, so later stages locate the asset by
// prefix instead of full name.
const AssetPrefix = "source"

// Metadata is the subset of yt-dlp's JSON payload the pipeline consumes.
type Metadata struct {
	Title    string  `json:"title"`
	Duration float64 `json:"duration"`
}

// Fetcher defines the behaviour required by the fetch coordinator.
type Fetcher interface {
	Download(ctx context.Context, url, destDir string) (string, error)
	Inspect(ctx context.Context, url string) (Metadata, error)
}

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, onLine func(string)) error
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// WithOutputHandler tees every tool output line to the handler, typically a
// debug logger.
func WithOutputHandler(handler func(string)) Option {
	return func(c *Client) {
		c.onOutput = handler
	}
}

// Client wraps yt-dlp CLI interactions.
type Client struct {
	binary   string
	timeout  time.Duration
	exec     Executor
	onOutput func(string)
}

// New constructs a yt-dlp client. timeoutSeconds bounds a single download
// attempt; zero disables the bound.
func New(binary string, timeoutSeconds int, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("yt-dlp binary required")
	}
	client := &Client{
		binary:  binary,
		timeout: time.Duration(timeoutSeconds) * time.Second,
		exec:    commandExecutor{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Download fetches the source media into destDir and returns the produced
// file path. Failures are tagged transient when the output matches a known
// retry-worthy condition; everything else is permanent.
func (c *Client) Download(ctx context.Context, url, destDir string) (string, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return "", errors.New("source URL required")
	}
	if strings.TrimSpace(destDir) == "" {
		return "", errors.New("destination directory required")
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("create destination: %w", err)
	}

	runCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	args := []string{
		"--no-playlist",
		"--newline",
		"-P", destDir,
		"-o", AssetPrefix + ".%(ext)s",
		url,
	}
	tail := &outputTail{}
	if err := c.exec.Run(runCtx, c.binary, args, c.forward(tail, nil)); err != nil {
		return "", c.commandError("download", err, tail)
	}

	path := fileutil.FindByPrefix(destDir, AssetPrefix)
	if path == "" {
		return "", services.Wrap(nil, "fetch", "download", "yt-dlp produced no output file", nil)
	}
	return path, nil
}

// Inspect fetches title and duration for the URL without downloading.
func (c *Client) Inspect(ctx context.Context, url string) (Metadata, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return Metadata{}, errors.New("source URL required")
	}

	runCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	args := []string{"--no-playlist", "--skip-download", "--print-json", url}
	tail := &outputTail{}
	var (
		mu      sync.Mutex
		payload string
	)
	capture := func(line string) {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "{") {
			mu.Lock()
			payload = trimmed
			mu.Unlock()
		}
	}
	if err := c.exec.Run(runCtx, c.binary, args, c.forward(tail, capture)); err != nil {
		return Metadata{}, c.commandError("inspect", err, tail)
	}
	if payload == "" {
		return Metadata{}, services.Wrap(nil, "fetch", "inspect", "yt-dlp returned no metadata", nil)
	}

	var meta Metadata
	if err := json.Unmarshal([]byte(payload), &meta); err != nil {
		return Metadata{}, services.Wrap(nil, "fetch", "inspect", "decode metadata", err)
	}
	return meta, nil
}

func (c *Client) forward(tail *outputTail, extra func(string)) func(string) {
	return func(line string) {
		tail.Add(line)
		if extra != nil {
			extra(line)
		}
		if c.onOutput != nil {
			c.onOutput(line)
		}
	}
}

// commandError classifies a failed invocation. Cancellation propagates
// untagged, deadline expiry and known retry hints become transient, and any
// other shape stays permanent so callers fail fast instead of retrying
// blindly.
func (c *Client) commandError(operation string, err error, tail *outputTail) error {
	cause := err
	if snippet := tail.String(); snippet != "" {
		cause = fmt.Errorf("%w: %s", err, snippet)
	}
	if errors.Is(err, context.Canceled) {
		return services.Wrap(nil, "fetch", operation, "", cause)
	}
	if errors.Is(err, context.DeadlineExceeded) || retryable(err.Error()+" "+tail.String()) {
		return services.Wrap(services.ErrTransient, "fetch", operation, "", cause)
	}
	return services.Wrap(nil, "fetch", operation, "", cause)
}

// retryHints mirror the messages yt-dlp and common CDNs emit for conditions
// worth retrying.
var retryHints = []string{
	"429",
	"too many requests",
	"rate limit",
	"timed out",
	"timeout",
	"temporarily unavailable",
	"connection reset",
	"service unavailable",
	"network is unreachable",
	"http error 5",
}

func retryable(text string) bool {
	text = strings.ToLower(text)
	for _, hint := range retryHints {
		if strings.Contains(text, hint) {
			return true
		}
	}
	return false
}

const tailKeep = 8

// outputTail keeps the last few non-blank output lines for error reporting
// and retry classification. Add is safe for concurrent use because the
// executor scans stdout and stderr from separate goroutines.
type outputTail struct {
	mu    sync.Mutex
	lines []string
}

func (t *outputTail) Add(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lines = append(t.lines, line)
	if len(t.lines) > tailKeep {
		t.lines = t.lines[len(t.lines)-tailKeep:]
	}
}

func (t *outputTail) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return strings.Join(t.lines, " | ")
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string, onLine func(string)) error {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start command: %w", err)
	}

	var wg sync.WaitGroup
	var scanErr error
	var once sync.Once

	scan := func(r io.Reader) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			if onLine != nil {
				onLine(scanner.Text())
			}
		}
		if err := scanner.Err(); err != nil {
			once.Do(func() {
				scanErr = err
			})
		}
	}

	wg.Add(2)
	go scan(stdout)
	go scan(stderr)

	wg.Wait()
	if scanErr != nil {
		_ = cmd.Process.Kill()
		return fmt.Errorf("scan output: %w", scanErr)
	}

	if err := cmd.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("wait command: %w", err)
	}
	return nil
}
