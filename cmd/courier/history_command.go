package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"courier/internal/control"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent pipeline runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *control.Client) error {
				resp, err := client.History(limit)
				if err != nil {
					return err
				}
				if resp == nil {
					return errors.New("missing history response")
				}
				if asJSON {
					return writeJSON(cmd, resp)
				}

				stdout := cmd.OutOrStdout()
				if len(resp.Runs) == 0 {
					fmt.Fprintln(stdout, "No runs recorded")
					return nil
				}

				rows := make([][]string, 0, len(resp.Runs))
				for _, run := range resp.Runs {
					rows = append(rows, []string{
						shortRunID(run.RunID),
						run.Kind,
						run.Trigger,
						run.Status,
						run.StartedAt.Local().Format(statusTimeLayout),
						runDuration(run),
						fmt.Sprintf("%d/%d", run.Succeeded, run.Attempted),
						strconv.Itoa(run.Failed),
					})
				}
				table := renderTable(
					[]string{"Run", "Kind", "Trigger", "Status", "Started", "Duration", "Files", "Failed"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight},
				)
				fmt.Fprintln(stdout, table)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of runs to list")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit history as JSON")
	return cmd
}

func runDuration(run control.RunSummary) string {
	if run.FinishedAt == nil {
		return "-"
	}
	d := run.FinishedAt.Sub(run.StartedAt)
	if d < 0 {
		return "-"
	}
	return d.Round(time.Millisecond).String()
}
