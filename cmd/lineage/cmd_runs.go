package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/persistorai/lineage/client"
)

func newRunsCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "runs [id]",
		Short: "List recent runs, or show one run",
		Args:  cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()
			if len(args) == 1 {
				run, err := apiClient.Runs.Get(ctx, args[0])
				if err != nil {
					fatal("get run", err)
				}
				printRuns([]client.Run{*run})
				return
			}
			runs, err := apiClient.Runs.List(ctx, limit)
			if err != nil {
				fatal("list runs", err)
			}
			printRuns(runs)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Max runs to list")
	return cmd
}
