// Package fileutil provides filename sanitization, source identifier
// extraction, and scratch-file cleanup shared by the pipeline stages.
package fileutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// fileNameReplacer replaces filesystem-unsafe characters with safe alternatives.
var fileNameReplacer = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", "-",
	"*", "-",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
	"\n", " ",
	"\r", " ",
	"\t", " ",
)

// SanitizeFileName normalizes a string into a safe filename component:
// NFC-normalized, unsafe characters replaced, whitespace collapsed, leading
// and trailing dots and spaces trimmed. Returns fallback when nothing
// survives.
func SanitizeFileName(name, fallback string) string {
	name = norm.NFC.String(strings.TrimSpace(name))
	name = fileNameReplacer.Replace(name)
	name = strings.Join(strings.Fields(name), " ")
	name = strings.Trim(name, ". ")
	if name == "" {
		return fallback
	}
	return name
}

// watchPatterns match the common short and long video URL forms whose path
// or query carries an 11-character video identifier.
var watchPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:youtube\.com/watch\?(?:.*&)?v=|youtu\.be/|youtube\.com/shorts/)([a-zA-Z0-9_-]{11})`),
}

// SourceID derives a stable identifier for a source URL: the platform video
// id when the URL matches a known pattern, otherwise a sanitized tail of the
// URL itself.
func SourceID(url string) string {
	trimmed := strings.TrimSpace(url)
	for _, pattern := range watchPatterns {
		if m := pattern.FindStringSubmatch(trimmed); len(m) == 2 {
			return m[1]
		}
	}
	tail := trimmed
	if idx := strings.LastIndexAny(tail, "/="); idx >= 0 && idx < len(tail)-1 {
		tail = tail[idx+1:]
	}
	tail = strings.TrimRight(tail, "/")
	sanitized := SanitizeFileName(tail, "source")
	sanitized = strings.ReplaceAll(sanitized, " ", "-")
	if len(sanitized) > 40 {
		sanitized = sanitized[:40]
	}
	return sanitized
}

// scratchSuffixes are the partial-output suffixes the fetcher leaves behind
// when interrupted.
var scratchSuffixes = []string{".part", ".ytdl", ".tmp", ".part-Frag"}

// RemoveScratch deletes leftover partial download files under dir. Missing
// directories are not an error.
func RemoveScratch(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("scan %s: %w", dir, err)
	}
	var firstErr error
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		for _, suffix := range scratchSuffixes {
			if strings.HasSuffix(name, suffix) || strings.Contains(name, suffix+"-") {
				if err := os.Remove(filepath.Join(dir, name)); err != nil && firstErr == nil {
					firstErr = err
				}
				break
			}
		}
	}
	return firstErr
}

// RemoveMatching deletes regular files under dir whose name starts with
// prefix. Used to discard a prior attempt's outputs before retrying.
func RemoveMatching(dir, prefix string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("scan %s: %w", dir, err)
	}
	var firstErr error
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, entry.Name())); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// FindByPrefix returns the first regular file under dir whose name starts
// with prefix and does not carry a scratch suffix, or "" when none exists.
func FindByPrefix(dir, prefix string) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}
		name := entry.Name()
		scratch := false
		for _, suffix := range scratchSuffixes {
			if strings.HasSuffix(name, suffix) || strings.Contains(name, suffix+"-") {
				scratch = true
				break
			}
		}
		if !scratch {
			return filepath.Join(dir, name)
		}
	}
	return ""
}
