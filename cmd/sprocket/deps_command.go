package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"sprocket/internal/deps"
)

func newDepsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "deps",
		Short: "Check required external tools and the output environment",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			statuses := deps.CheckSystemDeps(cfg)
			toolRows := make([][]string, 0, len(statuses))
			for _, status := range statuses {
				state := "ok"
				detail := status.Description
				if !status.Available {
					state = "missing"
					detail = status.Detail
				}
				toolRows = append(toolRows, []string{status.Name, status.Command, state, detail})
			}

			checks := deps.RunEnvironmentChecks(cfg)
			checkRows := make([][]string, 0, len(checks))
			for _, check := range checks {
				state := "ok"
				if !check.Passed {
					state = "failed"
				}
				checkRows = append(checkRows, []string{check.Name, state, check.Detail})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(
				[]string{"Tool", "Command", "Status", "Detail"},
				toolRows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft},
			))
			fmt.Fprintln(out, renderTable(
				[]string{"Check", "Status", "Detail"},
				checkRows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft},
			))

			if len(deps.MissingRequired(statuses)) > 0 || len(deps.FailedChecks(checks)) > 0 {
				return errors.New("dependency checks failed")
			}
			fmt.Fprintln(out, "All dependency checks passed")
			return nil
		},
	}
}
