package main

import (
	"fmt"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"phonehunt/internal/history"
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent runs from the local ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			limit, _ := cmd.Flags().GetInt("limit")

			store, err := history.Open(filepath.Join(cfg.HistoryDir, "runs.db"))
			if err != nil {
				return fmt.Errorf("open runs ledger: %w", err)
			}
			defer store.Close()

			runs, err := store.RecentRuns(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("read runs ledger: %w", err)
			}
			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded yet.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "STARTED\tINPUT\tRANGE\tRESOLVED\tSKIPPED\tUNRESOLVED\tSTATUS")
			for _, run := range runs {
				status := "complete"
				if run.Aborted {
					status = "aborted: " + run.AbortReason
				}
				fmt.Fprintf(w, "%s\t%s\t%d-%d\t%d\t%d\t%d\t%s\n",
					run.StartedAt.Local().Format(time.DateTime),
					filepath.Base(run.Input),
					run.Start, run.End,
					run.Resolved, run.Skipped, run.Unresolved,
					status)
			}
			return w.Flush()
		},
	}

	cmd.Flags().Int("limit", 20, "Maximum number of runs to show")
	return cmd
}
