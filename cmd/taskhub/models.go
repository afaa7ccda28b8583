package main

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

var modelsJSON bool

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List available models and their credit rates",
	Long:  "Lists the model catalog grouped by provider. Models selected for at least one task are marked with *.",
	Args:  cobra.NoArgs,
	RunE:  runModels,
}

func init() {
	modelsCmd.Flags().BoolVar(&modelsJSON, "json", false, "Print the catalog as JSON")
	rootCmd.AddCommand(modelsCmd)
}

func runModels(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	if modelsJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(a.catalog.ListAll())
	}

	selected := make(map[string]bool)
	for _, id := range a.store.Snapshot() {
		selected[id] = true
	}
	newPrinter(cmd).PrintModels(a.catalog, selected)
	return nil
}
