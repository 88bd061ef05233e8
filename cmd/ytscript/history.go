package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"ytscript/internal/history"
)

func newHistoryCmd(verbose *bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect and manage past runs",
	}
	cmd.AddCommand(
		newHistoryListCmd(verbose),
		newHistoryRemoveCmd(verbose),
		newHistoryClearCmd(verbose),
	)
	return cmd
}

func openHistoryStore(verbose bool) (*history.SQLiteStore, error) {
	cfg, err := loadConfig(verbose)
	if err != nil {
		return nil, err
	}
	return history.NewSQLiteStore(cfg.History.DBPath)
}

func newHistoryListCmd(verbose *bool) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List past runs, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openHistoryStore(*verbose)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			entries, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Println("No history entries.")
				return nil
			}
			for _, entry := range entries {
				fmt.Printf("%s  %s  %-15s  %s\n",
					entry.ID,
					entry.CreatedAt.Local().Format(time.DateTime),
					entry.Status,
					entry.URL,
				)
				if entry.TranscriptPath != "" {
					fmt.Printf("    transcript: %s\n", entry.TranscriptPath)
				}
				if entry.SummaryPath != "" {
					fmt.Printf("    summary:    %s\n", entry.SummaryPath)
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "show at most N entries (0 shows all)")
	return cmd
}

func newHistoryRemoveCmd(verbose *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "rm ID",
		Short: "Remove one history entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openHistoryStore(*verbose)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Printf("Removed %s\n", args[0])
			return nil
		},
	}
}

func newHistoryClearCmd(verbose *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove all history entries",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openHistoryStore(*verbose)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Println("History cleared.")
			return nil
		},
	}
}
