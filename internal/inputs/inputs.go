// Package inputs turns the two flat input files into typed job descriptors.
// Every retained URL line becomes exactly one job; malformed timestamp
// blocks fail their own job and never stop the rest of the batch.
package inputs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"sprocket/internal/fileutil"
	"sprocket/internal/queue"
	"sprocket/internal/services"
	"sprocket/internal/timecode"
)

// WholeVideoMarker is the timestamp block sentinel for "no cut".
const WholeVideoMarker = "*"

// ReadLines loads a UTF-8 text file as raw lines. A missing file is created
// empty, matching the behavior of the input files being optional on first
// run.
func ReadLines(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		if dir := filepath.Dir(path); dir != "." && dir != "" {
			if mkErr := os.MkdirAll(dir, 0o755); mkErr != nil {
				return nil, fmt.Errorf("create input directory: %w", mkErr)
			}
		}
		if writeErr := os.WriteFile(path, nil, 0o644); writeErr != nil {
			return nil, fmt.Errorf("create %s: %w", path, writeErr)
		}
		return nil, nil
	}
	lines := strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")
	return lines, nil
}

// LoadJobs reads both input files and parses them into jobs.
func LoadJobs(urlFile, timestampFile string) ([]*queue.Job, []string, error) {
	urlLines, err := ReadLines(urlFile)
	if err != nil {
		return nil, nil, err
	}
	timestampLines, err := ReadLines(timestampFile)
	if err != nil {
		return nil, nil, err
	}
	jobs, warnings := Parse(urlLines, timestampLines)
	return jobs, warnings, nil
}

// Parse pairs URL lines with timestamp blocks by position. URL lines are
// trimmed; blank lines and '#' comments are dropped. Timestamp blocks are
// groups of consecutive non-blank lines; block N belongs to URL N. A missing
// block or the lone WholeVideoMarker means "whole video, no cut".
//
// A malformed timestamp line fails its job at parse time (the job is created
// with status Failed) while parsing continues for the remaining jobs.
// Returned warnings describe ignored surplus, such as extra timestamp blocks
// beyond the URL count.
func Parse(urlLines, timestampLines []string) ([]*queue.Job, []string) {
	urls := retainedLines(urlLines)
	blocks := splitBlocks(timestampLines)

	jobs := make([]*queue.Job, 0, len(urls))
	for index, url := range urls {
		job := &queue.Job{
			Index:     index,
			SourceURL: url,
			SourceID:  fileutil.SourceID(url),
			Status:    queue.StatusPending,
		}
		if index < len(blocks) {
			applyBlock(job, blocks[index])
		}
		jobs = append(jobs, job)
	}

	var warnings []string
	if len(blocks) > len(urls) {
		warnings = append(warnings, fmt.Sprintf("timestamp file has %d extra block(s) beyond the %d URL(s); ignored", len(blocks)-len(urls), len(urls)))
	}
	return jobs, warnings
}

// applyBlock parses one timestamp block onto the job, failing the job on the
// first malformed line.
func applyBlock(job *queue.Job, block []string) {
	if len(block) == 0 {
		return
	}
	if len(block) == 1 && block[0] == WholeVideoMarker {
		job.RawRanges = append(job.RawRanges, WholeVideoMarker)
		return
	}

	for _, line := range block {
		job.RawRanges = append(job.RawRanges, line)
		if line == WholeVideoMarker {
			err := services.Wrap(services.ErrParse, "parse", "timestamps", fmt.Sprintf("%q must be the only line in its block", WholeVideoMarker), nil)
			job.SetFailed(err.Error())
			job.Ranges = nil
			return
		}
		parsed, err := timecode.ParseRange(line)
		if err != nil {
			wrapped := services.Wrap(services.ErrParse, "parse", "timestamps", "", err)
			job.SetFailed(wrapped.Error())
			job.Ranges = nil
			return
		}
		job.Ranges = append(job.Ranges, parsed)
	}
}

// retainedLines trims, and drops blanks and comments.
func retainedLines(lines []string) []string {
	retained := make([]string, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		retained = append(retained, trimmed)
	}
	return retained
}

// splitBlocks groups consecutive non-blank, non-comment lines.
func splitBlocks(lines []string) [][]string {
	var (
		blocks  [][]string
		current []string
	)
	flush := func() {
		if len(current) > 0 {
			blocks = append(blocks, current)
			current = nil
		}
	}
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			flush()
			continue
		}
		if strings.HasPrefix(trimmed, "#") {
			continue
		}
		current = append(current, trimmed)
	}
	flush()
	return blocks
}
