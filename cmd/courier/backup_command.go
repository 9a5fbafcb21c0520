package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"courier/internal/control"
	"courier/internal/history"
)

func newBackupCommand(ctx *commandContext) *cobra.Command {
	var local bool
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Run an intake backup now",
		RunE: func(cmd *cobra.Command, args []string) error {
			if local {
				return runLocalPipeline(cmd, ctx, history.RunBackup)
			}
			return ctx.withClient(func(client *control.Client) error {
				resp, err := client.ForceBackup()
				if err != nil {
					return err
				}
				if resp == nil {
					return errors.New("missing backup response")
				}
				switch {
				case resp.Message != "":
					fmt.Fprintln(cmd.OutOrStdout(), resp.Message)
				case resp.Requested:
					fmt.Fprintln(cmd.OutOrStdout(), "Backup requested")
				default:
					fmt.Fprintln(cmd.OutOrStdout(), "Backup not requested")
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&local, "local", false, "Run the backup in this process instead of the daemon")
	return cmd
}
