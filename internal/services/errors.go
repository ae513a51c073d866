package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrParse marks malformed input lines. Parse failures are job scoped
	// and never stop the rest of the batch.
	ErrParse = errors.New("parse failure")
	// ErrFetch marks failures while acquiring a source asset.
	ErrFetch = errors.New("fetch failure")
	// ErrPlan marks invalid or overlapping timestamp ranges.
	ErrPlan = errors.New("plan failure")
	// ErrClip marks transcoder failures. Clip failures are segment scoped.
	ErrClip = errors.New("clip failure")
	// ErrTransient tags an error as retry-worthy. Errors without this
	// marker are treated as permanent.
	ErrTransient = errors.New("transient failure")
	// ErrExternalTool marks a non-zero exit or spawn failure of one of the
	// wrapped binaries.
	ErrExternalTool = errors.New("external tool error")
	// ErrConfiguration marks invalid or incomplete configuration.
	ErrConfiguration = errors.New("configuration error")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrExternalTool
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsTransient reports whether the error carries the transient marker. Unknown
// error shapes report false so callers fail fast instead of retrying blindly.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
