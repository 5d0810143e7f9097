package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/apocalipssi/docanalyzer/internal/auth"
	"github.com/apocalipssi/docanalyzer/internal/config"
	"github.com/apocalipssi/docanalyzer/internal/database"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewUserCmd creates the user management command with add and show subcommands.
func NewUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage user accounts",
		Long:  "Create user accounts or inspect an existing one",
	}
	cmd.AddCommand(newUserAddCmd())
	cmd.AddCommand(newUserShowCmd())
	return cmd
}

func newUserAddCmd() *cobra.Command {
	var email, password, displayName string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a user account",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			db, err := database.New(cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("connect to database: %w", err)
			}
			defer func() {
				if err := db.Close(); err != nil {
					fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
				}
			}()

			if err := db.EnsureSchema(context.Background()); err != nil {
				return fmt.Errorf("ensure schema: %w", err)
			}

			credentials := auth.NewCredentialService(database.NewUserRepository(db), cfg.MinPasswordLength, zap.NewNop())

			userID, err := credentials.Register(context.Background(), email, password, displayName)
			if err != nil {
				return fmt.Errorf("register user: %w", err)
			}

			fmt.Printf("Created user %s (%s)\n", email, userID)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address (required)")
	cmd.Flags().StringVar(&password, "password", "", "Password (required)")
	cmd.Flags().StringVar(&displayName, "name", "", "Display name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}

func newUserShowCmd() *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show a user account",
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

			repo := database.NewUserRepository(db)
			user, err := repo.GetByEmail(context.Background(), email)
			if err != nil {
				return fmt.Errorf("get user: %w", err)
			}
			if user == nil {
				fmt.Println("No such user")
				return nil
			}

			fmt.Printf("User %s:\n", user.Email)
			fmt.Printf("  ID: %s\n", user.ID)
			fmt.Printf("  Display name: %s\n", user.DisplayName)
			fmt.Printf("  Disabled: %v\n", user.Disabled)
			fmt.Printf("  Created: %s\n", user.CreatedAt.Format("2006-01-02 15:04:05"))
			if user.LastLogin != nil {
				fmt.Printf("  Last login: %s\n", user.LastLogin.Format("2006-01-02 15:04:05"))
			} else {
				fmt.Printf("  Last login: never\n")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address (required)")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}
