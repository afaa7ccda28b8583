package main

import (
	"encoding/json"
	"fmt"

	"github.com/jonathan/taskhub/internal/catalog"
	"github.com/jonathan/taskhub/internal/schemas"
	"github.com/spf13/cobra"
)

var (
	renderStrict bool
	renderJSON   bool
)

var renderCmd = &cobra.Command{
	Use:   "render <result.json>",
	Short: "Render a saved task result",
	Long: `Normalizes a result payload returned by the backend and prints it as a formatted
view. With --strict the payload must match the analysis result schema first.`,
	Args: cobra.ExactArgs(1),
	RunE: runRender,
}

func init() {
	renderCmd.Flags().BoolVar(&renderStrict, "strict", false, "Validate the payload against the result schema before rendering")
	renderCmd.Flags().BoolVar(&renderJSON, "json", false, "Print the normalized view as JSON")
	rootCmd.AddCommand(renderCmd)
}

func runRender(cmd *cobra.Command, args []string) error {
	data, err := readInputFile(args[0])
	if err != nil {
		return err
	}

	if renderStrict {
		if err := schemas.ValidateAnalysisResult(data); err != nil {
			return fmt.Errorf("result failed validation: %w", err)
		}
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	view, err := newNormalizer(cfg, catalog.Default()).RenderJSON(data)
	if err != nil {
		return err
	}

	if renderJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{"kind": view.Kind(), "view": view})
	}
	newPrinter(cmd).PrintView(view)
	return nil
}
