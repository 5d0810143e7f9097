package commands

import (
	"context"
	"fmt"

	"github.com/apocalipssi/docanalyzer/internal/config"
	"github.com/apocalipssi/docanalyzer/internal/database"
	"github.com/spf13/cobra"
)

// NewSessionsCmd creates the session store command with list and delete
// subcommands.
func NewSessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Inspect and delete stored sessions",
	}
	cmd.AddCommand(newSessionsListCmd())
	cmd.AddCommand(newSessionsDeleteCmd())
	return cmd
}

func newSessionsListCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored sessions, most recently updated first",
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

			repo := database.NewSessionRepository(db)
			records, err := repo.List(context.Background(), limit)
			if err != nil {
				return fmt.Errorf("list sessions: %w", err)
			}

			if len(records) == 0 {
				fmt.Println("No stored sessions")
				return nil
			}

			for _, rec := range records {
				fmt.Printf("%s  %-36s  files=%d  messages=%d\n",
					rec.LastUpdated.Format("2006-01-02 15:04:05"),
					rec.SessionID,
					len(rec.Data.FileTexts),
					len(rec.Data.Messages),
				)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of sessions")

	return cmd
}

func newSessionsDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <session-id>",
		Short: "Delete a stored session record",
		Args:  cobra.ExactArgs(1),
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

			repo := database.NewSessionRepository(db)
			if err := repo.Delete(context.Background(), args[0]); err != nil {
				return fmt.Errorf("delete session: %w", err)
			}

			fmt.Printf("Deleted session %s\n", args[0])
			return nil
		},
	}

	return cmd
}
