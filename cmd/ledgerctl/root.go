package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/yukikurage/synergy-api/internal/config"
)

var rootCmd = &cobra.Command{
	Use:           "ledgerctl",
	Short:         "Administrative tools for the synergy API",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute(version string) error {
	rootCmd.AddCommand(reconcileCmd)
	rootCmd.AddCommand(tokenCmd)

	rootCmd.Version = version
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

// loadConfig reads .env when present and then the usual configuration sources.
func loadConfig() (*config.Config, error) {
	_ = godotenv.Load()
	return config.Load()
}
