package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"sprocket/internal/config"
)

// Requirement defines an external dependency sprocket relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Available = false
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if _, err := exec.LookPath(cmd); err != nil {
			status.Available = false
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}

// CheckSystemDeps evaluates the external binaries the pipeline invokes.
// Both the run preflight and the deps command use this to avoid duplicating
// the requirements list.
func CheckSystemDeps(cfg *config.Config) []Status {
	requirements := []Requirement{
		{
			Name:        "yt-dlp",
			Command:     cfg.FetcherBinary(),
			Description: "Required for video acquisition",
		},
		{
			Name:        "FFmpeg",
			Command:     cfg.TranscoderBinary(),
			Description: "Required for segment cutting",
		},
		{
			Name:        "FFprobe",
			Command:     cfg.ProbeBinary(),
			Description: "Required for duration inspection",
		},
	}
	return CheckBinaries(requirements)
}

// MissingRequired returns the names of required dependencies that are not
// available.
func MissingRequired(statuses []Status) []string {
	var missing []string
	for _, status := range statuses {
		if !status.Optional && !status.Available {
			missing = append(missing, status.Name)
		}
	}
	return missing
}
