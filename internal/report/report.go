package report

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"sprocket/internal/pipeline"
	"sprocket/internal/queue"
)

// Disposition is the report's terminal classification of one job.
type Disposition string

const (
	DispositionCompleted Disposition = "completed"
	DispositionPartial   Disposition = "partial"
	DispositionFailed    Disposition = "failed"
)

// Row is one job's line in the summary.
type Row struct {
	JobIndex        int         `json:"index"`
	SourceURL       string      `json:"url"`
	Title           string      `json:"title,omitempty"`
	Disposition     Disposition `json:"disposition"`
	SegmentsPlanned int         `json:"segments_planned"`
	SegmentsWritten int         `json:"segments_written"`
	FailureReason   string      `json:"failure_reason,omitempty"`
	Warnings        []string    `json:"warnings,omitempty"`
}

// Summary is the immutable fold of one finished run.
type Summary struct {
	RunID           string    `json:"run_id"`
	StartedAt       time.Time `json:"started_at"`
	DurationSeconds float64   `json:"duration_seconds"`
	Completed       int       `json:"completed"`
	Partial         int       `json:"partial"`
	Failed          int       `json:"failed"`
	Jobs            []Row     `json:"jobs"`
}

// Build folds a finished run into a summary with rows sorted by job index.
// It never mutates the outcome.
func Build(outcome *pipeline.Outcome) Summary {
	summary := Summary{
		RunID:           outcome.RunID,
		StartedAt:       outcome.StartedAt,
		DurationSeconds: outcome.Duration.Seconds(),
		Completed:       outcome.Completed,
		Partial:         outcome.Partial,
		Failed:          outcome.Failed,
		Jobs:            make([]Row, 0, len(outcome.Jobs)),
	}

	written := make(map[int]int)
	clipFailures := make(map[int]int)
	warnings := make(map[int][]string)
	for _, res := range outcome.Results {
		switch {
		case res.Stage == "clip" && res.Segment > 0 && res.Outcome == queue.OutcomeSuccess:
			written[res.JobIndex]++
		case res.Stage == "clip" && res.Segment > 0 && res.Outcome == queue.OutcomeFailure:
			clipFailures[res.JobIndex]++
		case res.Stage == "plan" && res.Outcome == queue.OutcomeSkipped:
			warnings[res.JobIndex] = append(warnings[res.JobIndex], res.Detail)
		}
	}

	for _, job := range outcome.Jobs {
		disposition := DispositionFailed
		if job.Status == queue.StatusCompleted {
			disposition = DispositionCompleted
			if clipFailures[job.Index] > 0 {
				disposition = DispositionPartial
			}
		}
		summary.Jobs = append(summary.Jobs, Row{
			JobIndex:        job.Index,
			SourceURL:       job.SourceURL,
			Title:           job.Title,
			Disposition:     disposition,
			SegmentsPlanned: len(job.Segments),
			SegmentsWritten: written[job.Index],
			FailureReason:   job.FailureReason,
			Warnings:        warnings[job.Index],
		})
	}
	sort.Slice(summary.Jobs, func(i, j int) bool {
		return summary.Jobs[i].JobIndex < summary.Jobs[j].JobIndex
	})
	return summary
}

// ExitCode maps the summary onto the process exit status. Partial
// completions exit zero; only wholly failed jobs make the run fail.
func (s Summary) ExitCode() int {
	if s.Failed > 0 {
		return 1
	}
	return 0
}

// Table renders the per-job summary as a rounded terminal table.
func Table(s Summary) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Job", "Source", "Result", "Segments", "Detail"})

	for _, row := range s.Jobs {
		source := row.Title
		if source == "" {
			source = row.SourceURL
		}
		detail := row.FailureReason
		if detail == "" && len(row.Warnings) > 0 {
			detail = fmt.Sprintf("%d warning(s)", len(row.Warnings))
		}
		tw.AppendRow(table.Row{
			row.JobIndex,
			truncate(source, 48),
			string(row.Disposition),
			fmt.Sprintf("%d/%d", row.SegmentsWritten, row.SegmentsPlanned),
			truncate(detail, 64),
		})
	}

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Number: 2, Align: text.AlignLeft, AlignHeader: text.AlignLeft},
		{Number: 3, Align: text.AlignLeft, AlignHeader: text.AlignLeft},
		{Number: 4, Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Number: 5, Align: text.AlignLeft, AlignHeader: text.AlignLeft},
	})
	return tw.Render()
}

// JSON renders the summary as indented JSON for machine consumption.
func JSON(s Summary) ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode summary: %w", err)
	}
	return data, nil
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if limit <= 3 || len(runes) <= limit {
		return s
	}
	return string(runes[:limit-3]) + "..."
}
