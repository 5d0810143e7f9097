package commands

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/apocalipssi/docanalyzer/internal/config"
	"github.com/apocalipssi/docanalyzer/internal/database"
	"github.com/spf13/cobra"
)

// NewLogsCmd creates the activity log command with list and prune subcommands.
func NewLogsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Inspect and prune the activity log",
	}
	cmd.AddCommand(newLogsListCmd())
	cmd.AddCommand(newLogsPruneCmd())
	return cmd
}

func newLogsListCmd() *cobra.Command {
	var limit int
	var userID string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent activity entries, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			db, err := database.New(cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("connect to database: %w", err)
			}
			defer func() { _ = db.Close() }()

			repo := database.NewActivityLogRepository(db)
			entries, err := repo.Recent(context.Background(), limit, userID)
			if err != nil {
				return fmt.Errorf("list activity entries: %w", err)
			}

			if len(entries) == 0 {
				fmt.Println("No activity entries")
				return nil
			}

			for _, entry := range entries {
				details, _ := json.Marshal(entry.Details)
				fmt.Printf("%s  %-20s  %-36s  %s\n",
					entry.Timestamp.Format("2006-01-02 15:04:05"),
					entry.ActivityType,
					entry.UserID,
					details,
				)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of entries")
	cmd.Flags().StringVar(&userID, "user", "", "Filter by user id")

	return cmd
}

func newLogsPruneCmd() *cobra.Command {
	var keep int

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete all but the newest entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			db, err := database.New(cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("connect to database: %w", err)
			}
			defer func() { _ = db.Close() }()

			if keep <= 0 {
				keep = cfg.MaxLogEntries
			}

			repo := database.NewActivityLogRepository(db)
			deleted, err := repo.Prune(context.Background(), keep)
			if err != nil {
				return fmt.Errorf("prune activity log: %w", err)
			}

			fmt.Printf("Deleted %d entries, kept the newest %d\n", deleted, keep)
			return nil
		},
	}

	cmd.Flags().IntVar(&keep, "keep", 0, "Entries to keep (defaults to MAX_LOG_ENTRIES)")

	return cmd
}
