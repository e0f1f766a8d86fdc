package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lexcodex/scriptforge/persistence"
)

func newHistoryCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if !cfg.History.Enabled {
				fmt.Fprintln(cmd.OutOrStdout(), "history is disabled in the configuration")
				return nil
			}
			store, err := persistence.NewHistoryStore(cfg.History.Path)
			if err != nil {
				return fmt.Errorf("open history store: %w", err)
			}
			defer store.Close()

			records, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("read history: %w", err)
			}
			if len(records) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no runs recorded yet")
				return nil
			}
			for _, rec := range records {
				exit := "-"
				if rec.ExitCode.Valid {
					exit = fmt.Sprintf("%d", rec.ExitCode.Int64)
				}
				if rec.TimedOut {
					exit = "timeout"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "#%d  %s  %-16s exit=%-7s %s\n",
					rec.ID,
					rec.CreatedAt.Local().Format("2006-01-02 15:04:05"),
					rec.Status,
					exit,
					rec.Request,
				)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Maximum number of runs to list")
	return cmd
}
