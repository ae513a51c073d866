package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"sprocket/internal/queue"
	"sprocket/internal/timecode"
)

type jobRow struct {
	Index         int     `json:"index"`
	URL           string  `json:"url"`
	Title         string  `json:"title,omitempty"`
	Status        string  `json:"status"`
	FailureReason string  `json:"failure_reason,omitempty"`
	AssetDuration float64 `json:"asset_duration,omitempty"`
	UpdatedAt     string  `json:"updated_at"`
}

func newJobsCommand(ctx *commandContext) *cobra.Command {
	var runID string
	var showResults bool
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Show the jobs a previous run recorded in the journal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := queue.Open(cfg.JournalPath())
			if err != nil {
				return fmt.Errorf("open run journal: %w", err)
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			id := strings.TrimSpace(runID)
			var run *queue.RunRecord
			if id == "" {
				run, err = store.LatestRun(cmd.Context())
				if err != nil {
					return err
				}
				if run == nil {
					fmt.Fprintln(out, "No runs recorded")
					return nil
				}
				id = run.ID
			}

			records, err := store.JobsForRun(cmd.Context(), id)
			if err != nil {
				return err
			}

			rows := make([]jobRow, 0, len(records))
			for _, rec := range records {
				rows = append(rows, jobRow{
					Index:         rec.Index,
					URL:           rec.SourceURL,
					Title:         rec.Title,
					Status:        string(rec.Status),
					FailureReason: rec.FailureReason,
					AssetDuration: rec.AssetDuration,
					UpdatedAt:     rec.UpdatedAt.UTC().Format(time.RFC3339),
				})
			}

			if jsonOutput {
				return writeJSON(cmd, rows)
			}

			if run != nil {
				fmt.Fprintf(out, "Run %s started %s: %d completed, %d partial, %d failed\n",
					run.ID, run.StartedAt.UTC().Format(time.RFC3339), run.Completed, run.Partial, run.Failed)
			} else {
				fmt.Fprintf(out, "Run %s\n", id)
			}
			if len(rows) == 0 {
				fmt.Fprintln(out, "No jobs recorded for this run")
				return nil
			}

			tableRows := make([][]string, 0, len(rows))
			for _, row := range rows {
				source := row.Title
				if source == "" {
					source = row.URL
				}
				length := "-"
				if row.AssetDuration > 0 {
					length = timecode.Format(row.AssetDuration)
				}
				tableRows = append(tableRows, []string{
					strconv.Itoa(row.Index),
					row.Status,
					truncate(source, 48),
					length,
					truncate(row.FailureReason, 64),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Job", "Status", "Source", "Length", "Detail"},
				tableRows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft},
			))

			if showResults {
				results, err := store.ResultsForRun(cmd.Context(), id)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Job", "Segment", "Stage", "Outcome", "Detail"},
					buildResultRows(results),
					[]columnAlignment{alignRight, alignRight, alignLeft, alignLeft, alignLeft},
				))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&runID, "run", "", "Run id to inspect (defaults to the most recent run)")
	cmd.Flags().BoolVar(&showResults, "results", false, "Also show the per-segment execution log")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit journal rows as JSON")

	return cmd
}

func buildResultRows(results []queue.ExecutionResult) [][]string {
	rows := make([][]string, 0, len(results))
	for _, res := range results {
		segment := "-"
		if res.Segment > 0 {
			segment = strconv.Itoa(res.Segment)
		}
		rows = append(rows, []string{
			strconv.Itoa(res.JobIndex),
			segment,
			res.Stage,
			string(res.Outcome),
			truncate(res.Detail, 64),
		})
	}
	return rows
}
