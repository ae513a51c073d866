package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-isatty"
)

// Options describes logger construction parameters.
type Options struct {
	// Level is one of debug, info, warn, error. Empty means info.
	Level string
	// Format is one of auto, console, json. Auto picks console on a
	// terminal and json otherwise.
	Format string
	// OutputPath optionally appends records to a log file in addition to
	// the console writer.
	OutputPath string
	// Console overrides the console writer. Defaults to stderr so the
	// report on stdout stays machine-readable.
	Console io.Writer
}

// New constructs a slog logger using the provided options.
func New(opts Options) (*slog.Logger, error) {
	level := parseLevel(opts.Level)
	levelVar := new(slog.LevelVar)
	levelVar.Set(level)

	console := opts.Console
	if console == nil {
		console = os.Stderr
	}

	writer := console
	if path := strings.TrimSpace(opts.OutputPath); path != "" {
		file, err := openLogFile(path)
		if err != nil {
			return nil, err
		}
		writer = io.MultiWriter(console, file)
	}

	addSource := level <= slog.LevelDebug

	var handler slog.Handler
	switch resolveFormat(opts.Format, console) {
	case "json":
		handler = newJSONHandler(writer, levelVar, addSource)
	case "console":
		handler = newConsoleHandler(writer, levelVar, addSource)
	default:
		return nil, fmt.Errorf("log format: unsupported value %q", opts.Format)
	}

	return slog.New(handler), nil
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "info", "":
		return slog.LevelInfo
	default:
		return slog.LevelInfo
	}
}

func resolveFormat(format string, console io.Writer) string {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "console":
		return "console"
	case "json":
		return "json"
	case "auto", "":
		if file, ok := console.(*os.File); ok {
			if isatty.IsTerminal(file.Fd()) || isatty.IsCygwinTerminal(file.Fd()) {
				return "console"
			}
			return "json"
		}
		return "console"
	default:
		return format
	}
}

func openLogFile(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure log directory: %w", err)
		}
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o664)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", path, err)
	}
	return file, nil
}
