package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"spool/internal/ipc"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent pipeline runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.History(limit)
				if err != nil {
					return err
				}
				stdout := cmd.OutOrStdout()
				if len(resp.Runs) == 0 {
					fmt.Fprintln(stdout, "No pipeline runs recorded")
					return nil
				}

				printer := message.NewPrinter(language.English)
				rows := make([][]string, 0, len(resp.Runs))
				for _, run := range resp.Runs {
					size := ""
					if run.SizeBytes > 0 {
						size = printer.Sprintf("%d", run.SizeBytes)
					}
					rows = append(rows, []string{
						strconv.FormatInt(run.ID, 10),
						run.Kind,
						run.Filename,
						run.Plan,
						size,
						run.Stage,
						run.Outcome,
						yesNo(run.Transcribed),
						run.UpdatedAt.Local().Format("2006-01-02 15:04:05"),
					})
				}
				table := renderTable(
					[]string{"ID", "Kind", "Filename", "Plan", "Bytes", "Stage", "Outcome", "Transcribed", "Updated"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft, alignLeft, alignLeft},
				)
				fmt.Fprintln(stdout, table)
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to show")
	return cmd
}
