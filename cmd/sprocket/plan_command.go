package main

import (
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"sprocket/internal/inputs"
	"sprocket/internal/planner"
	"sprocket/internal/queue"
	"sprocket/internal/timecode"
)

type planRow struct {
	Index    int      `json:"index"`
	URL      string   `json:"url"`
	Segments int      `json:"segments"`
	Ranges   []string `json:"ranges,omitempty"`
	Error    string   `json:"error,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

type planReport struct {
	Jobs     []planRow `json:"jobs"`
	Warnings []string  `json:"warnings,omitempty"`
}

func newPlanCommand(ctx *commandContext) *cobra.Command {
	var durationFlag string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Parse the input files and show the segments each job would cut",
		Long: `Plan runs the parser and the segment planner without touching the network
or any external tool. Pass --duration to also apply the checks that need the
real asset length (dropping ranges past the end, clamping overlong ends).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			// Without a declared duration the asset length is treated as
			// unbounded so only duration-independent rules apply.
			duration := math.MaxFloat64
			if v := strings.TrimSpace(durationFlag); v != "" {
				duration, err = timecode.ParseBound(v)
				if err != nil {
					return fmt.Errorf("parse --duration: %w", err)
				}
				if duration <= 0 {
					return fmt.Errorf("--duration must be positive")
				}
			}

			jobs, warnings, err := inputs.LoadJobs(cfg.Inputs.URLFile, cfg.Inputs.TimestampFile)
			if err != nil {
				return err
			}

			rows := make([]planRow, 0, len(jobs))
			for _, job := range jobs {
				row := planRow{Index: job.Index, URL: job.SourceURL}
				if job.Status == queue.StatusFailed {
					row.Error = job.FailureReason
					rows = append(rows, row)
					continue
				}
				plan, err := planner.Build(job, planner.Options{
					Duration:  duration,
					JobDir:    filepath.Join(cfg.Paths.OutputDir, job.DirName()),
					AudioOnly: cfg.Clip.AudioOnly,
				})
				row.Warnings = plan.Warnings
				if err != nil {
					row.Error = err.Error()
					rows = append(rows, row)
					continue
				}
				row.Segments = len(plan.Segments)
				for _, seg := range plan.Segments {
					row.Ranges = append(row.Ranges, segmentLabel(seg))
				}
				rows = append(rows, row)
			}

			if jsonOutput {
				return writeJSON(cmd, planReport{Jobs: rows, Warnings: warnings})
			}

			out := cmd.OutOrStdout()
			if len(rows) == 0 {
				fmt.Fprintln(out, "No URLs to process")
				return nil
			}
			for _, warning := range warnings {
				fmt.Fprintf(out, "Warning: %s\n", warning)
			}
			tableRows := make([][]string, 0, len(rows))
			for _, row := range rows {
				segments := strconv.Itoa(row.Segments)
				detail := strings.Join(row.Ranges, ", ")
				if row.Error != "" {
					segments = "-"
					detail = row.Error
				}
				tableRows = append(tableRows, []string{
					strconv.Itoa(row.Index),
					truncate(row.URL, 48),
					segments,
					truncate(detail, 64),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Job", "Source", "Segments", "Detail"},
				tableRows,
				[]columnAlignment{alignRight, alignLeft, alignRight, alignLeft},
			))
			for _, row := range rows {
				for _, warning := range row.Warnings {
					fmt.Fprintf(out, "Warning: job %d: %s\n", row.Index, warning)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&durationFlag, "duration", "d", "", "Assumed asset duration (timecode or seconds)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the plan as JSON")

	return cmd
}

func segmentLabel(seg queue.Segment) string {
	if seg.Whole {
		return "whole video"
	}
	return timecode.Format(seg.Start) + "-" + timecode.Format(seg.End)
}
