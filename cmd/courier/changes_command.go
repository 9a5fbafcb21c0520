package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"courier/internal/control"
)

func newChangesCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "changes",
		Short: "List recent intake change events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *control.Client) error {
				resp, err := client.Changes(limit)
				if err != nil {
					return err
				}
				if resp == nil {
					return errors.New("missing changes response")
				}
				if asJSON {
					return writeJSON(cmd, resp)
				}

				stdout := cmd.OutOrStdout()
				if len(resp.Events) == 0 {
					fmt.Fprintln(stdout, "No change events recorded")
					return nil
				}

				rows := make([][]string, 0, len(resp.Events))
				for _, event := range resp.Events {
					rows = append(rows, []string{
						event.Time.Local().Format(statusTimeLayout),
						event.User,
						event.File,
						event.Action,
						event.Directory,
					})
				}
				table := renderTable(
					[]string{"Time", "User", "File", "Action", "Directory"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
				)
				fmt.Fprintln(stdout, table)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of events to list")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit change events as JSON")
	return cmd
}
