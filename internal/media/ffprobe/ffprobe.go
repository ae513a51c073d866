package ffprobe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
)

type payload struct {
	Format format `json:"format"`
}

type format struct {
	Duration string `json:"duration"`
}

// Duration executes ffprobe against the provided path and returns the
// container duration in seconds. Only the format duration is requested, so
// the probe stays cheap even for large assets.
func Duration(ctx context.Context, binary string, path string) (float64, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffprobe"
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return 0, errors.New("ffprobe duration: empty path")
	}

	cmd := exec.CommandContext(ctx, binary, "-v", "error", "-show_entries", "format=duration", "-of", "json", "--", path)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return 0, fmt.Errorf("ffprobe duration: %w: %s", err, strings.TrimSpace(string(output)))
	}
	return decodeDuration(output)
}

func decodeDuration(output []byte) (float64, error) {
	var result payload
	if err := json.Unmarshal(output, &result); err != nil {
		return 0, fmt.Errorf("ffprobe parse: %w", err)
	}
	cleaned := strings.TrimSpace(result.Format.Duration)
	if cleaned == "" {
		return 0, errors.New("ffprobe parse: no duration in output")
	}
	seconds, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("ffprobe parse: duration %q: %w", cleaned, err)
	}
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
		return 0, fmt.Errorf("ffprobe parse: duration %q out of range", cleaned)
	}
	return seconds, nil
}
