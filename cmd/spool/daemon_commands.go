package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"spool/internal/ipc"
)

func newPingCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check whether the spool daemon is answering",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Ping()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Daemon answering (pid %d)\n", resp.PID)
				return nil
			})
		},
	}
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon and pipeline status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				status, err := client.Status()
				if err != nil {
					return err
				}
				stdout := cmd.OutOrStdout()

				fmt.Fprintf(stdout, "Running:            %s\n", yesNo(status.Running))
				fmt.Fprintf(stdout, "PID:                %d\n", status.PID)
				fmt.Fprintf(stdout, "Event channel:      %s\n", status.ListenAddr)
				fmt.Fprintf(stdout, "Active connections: %d\n", status.ActiveConnections)
				fmt.Fprintf(stdout, "Dispatched runs:    %d\n", status.DispatchedRuns)
				fmt.Fprintf(stdout, "Upload dir:         %s\n", status.UploadDir)
				fmt.Fprintf(stdout, "Journal:            %s\n", status.JournalDBPath)
				fmt.Fprintln(stdout)

				rows := [][]string{
					{"running", strconv.Itoa(status.RunsRunning)},
					{"ok", strconv.Itoa(status.RunsOK)},
					{"failed", strconv.Itoa(status.RunsFailed)},
					{"total", strconv.Itoa(status.RunsTotal)},
				}
				fmt.Fprintln(stdout, renderTable([]string{"Runs", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
				return nil
			})
		},
	}
}
