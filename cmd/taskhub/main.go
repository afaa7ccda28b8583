// Package main provides the taskhub CLI: model catalog, cost estimates, model
// preferences, result rendering, task submission and the local HTTP API.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	configPath string
	noColor    bool
)

var rootCmd = &cobra.Command{
	Use:           "taskhub",
	Short:         "Multi-task AI hub client",
	Long:          "taskhub selects models per task, estimates credit costs, submits tasks to the hub backend and renders their results.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to JSON config file (optional)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
