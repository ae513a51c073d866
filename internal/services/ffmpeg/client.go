package ffmpeg

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"sprocket/internal/services"
	"sprocket/internal/timecode"
)

// ClipRequest describes a single cut of the source asset.
type ClipRequest struct {
	InputPath  string
	OutputPath string
	Start      float64
	End        float64
	// Whole keeps the full duration instead of seeking to Start/End.
	Whole bool
	// AudioOnly drops the video stream and re-encodes audio to AAC.
	AudioOnly bool
}

// Transcoder defines the behaviour required by the clip executor.
type Transcoder interface {
	Clip(ctx context.Context, req ClipRequest) error
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

// WithOutputHandler tees every tool output line to the handler.
func WithOutputHandler(handler func(string)) Option {
	return func(c *Client) {
		c.onOutput = handler
	}
}

// Client wraps ffmpeg CLI interactions.
type Client struct {
	binary       string
	audioBitrate string
	exec         Executor
	onOutput     func(string)
}

// New constructs an ffmpeg client.
func New(binary, audioBitrate string, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("ffmpeg binary required")
	}
	audioBitrate = strings.TrimSpace(audioBitrate)
	if audioBitrate == "" {
		audioBitrate = "256k"
	}
	client := &Client{
		binary:       binary,
		audioBitrate: audioBitrate,
		exec:         commandExecutor{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Clip executes one cut. Video cuts are stream copies, so they stay cheap;
// audio-only cuts re-encode to AAC because most source containers cannot be
// copied into .m4a. Existing outputs are overwritten.
func (c *Client) Clip(ctx context.Context, req ClipRequest) error {
	if strings.TrimSpace(req.InputPath) == "" {
		return errors.New("input path required")
	}
	if strings.TrimSpace(req.OutputPath) == "" {
		return errors.New("output path required")
	}
	if dir := filepath.Dir(req.OutputPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}

	args := []string{"-y", "-nostdin", "-i", req.InputPath}
	if !req.Whole {
		args = append(args, "-ss", timecode.Format(req.Start), "-to", timecode.Format(req.End))
	}
	if req.AudioOnly {
		args = append(args, "-vn", "-c:a", "aac", "-b:a", c.audioBitrate)
	} else {
		args = append(args, "-c", "copy")
	}
	args = append(args, req.OutputPath)

	tail := &outputTail{}
	if err := c.exec.Run(ctx, c.binary, args, c.forward(tail)); err != nil {
		cause := err
		if snippet := tail.String(); snippet != "" {
			cause = fmt.Errorf("%w: %s", err, snippet)
		}
		return services.Wrap(nil, "clip", "cut", "", cause)
	}
	return nil
}

func (c *Client) forward(tail *outputTail) func(string) {
	return func(line string) {
		tail.Add(line)
		if c.onOutput != nil {
			c.onOutput(line)
		}
	}
}

const tailKeep = 8

// outputTail keeps the last few non-blank output lines for error reporting.
// Add is safe for concurrent use because the executor scans stdout and stderr
// from separate goroutines.
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

var _ Transcoder = (*Client)(nil)
