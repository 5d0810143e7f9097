package main

import (
	"fmt"
	"os"

	"github.com/apocalipssi/docanalyzer/cmd/configure/commands"
	"github.com/spf13/cobra"
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "docanalyzer-configure",
		Short: "Administration tool for the document analyzer API",
		Long:  "CLI tool for managing user accounts, stored sessions and the activity log",
	}

	rootCmd.AddCommand(commands.NewUserCmd())
	rootCmd.AddCommand(commands.NewLogsCmd())
	rootCmd.AddCommand(commands.NewSessionsCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
