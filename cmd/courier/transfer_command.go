package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"courier/internal/control"
	"courier/internal/history"
)

func newTransferCommand(ctx *commandContext) *cobra.Command {
	var local bool
	cmd := &cobra.Command{
		Use:   "transfer",
		Short: "Run the locked transfer sequence now",
		RunE: func(cmd *cobra.Command, args []string) error {
			if local {
				return runLocalPipeline(cmd, ctx, history.RunTransfer)
			}
			return ctx.withClient(func(client *control.Client) error {
				resp, err := client.ForceTransfer()
				if err != nil {
					return err
				}
				if resp == nil {
					return errors.New("missing transfer response")
				}
				switch {
				case resp.Message != "":
					fmt.Fprintln(cmd.OutOrStdout(), resp.Message)
				case resp.Requested:
					fmt.Fprintln(cmd.OutOrStdout(), "Transfer requested")
				default:
					fmt.Fprintln(cmd.OutOrStdout(), "Transfer not requested")
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&local, "local", false, "Run the transfer in this process instead of the daemon")
	return cmd
}
