package main

import (
	"fmt"
	"os"

	"github.com/jonathan/taskhub/internal/estimate"
	"github.com/spf13/cobra"
)

var (
	estimateTask    string
	estimateFile    string
	estimateText    string
	estimateChars   int64
	estimateModel   string
	estimateBalance int
)

var estimateCmd = &cobra.Command{
	Use:   "estimate",
	Short: "Estimate the credit cost of a task",
	Long: `Estimates the credits a task will consume for the given input. The size comes from
--file (bytes), --text (characters) or --chars. The model defaults to the task's
current preference. With --balance the command fails when the balance does not cover the cost.`,
	Args: cobra.NoArgs,
	RunE: runEstimate,
}

func init() {
	estimateCmd.Flags().StringVarP(&estimateTask, "task", "t", "", "Task type, e.g. resume_analysis (required)")
	estimateCmd.Flags().StringVarP(&estimateFile, "file", "f", "", "Input file to size")
	estimateCmd.Flags().StringVar(&estimateText, "text", "", "Input text to size")
	estimateCmd.Flags().Int64Var(&estimateChars, "chars", 0, "Input size in characters")
	estimateCmd.Flags().StringVarP(&estimateModel, "model", "m", "", "Model ID (defaults to the task preference)")
	estimateCmd.Flags().IntVar(&estimateBalance, "balance", 0, "Current credit balance to check against")

	if err := estimateCmd.MarkFlagRequired("task"); err != nil {
		panic(fmt.Sprintf("failed to mark task flag as required: %v", err))
	}
	estimateCmd.MarkFlagsMutuallyExclusive("file", "text", "chars")
	estimateCmd.MarkFlagsOneRequired("file", "text", "chars")

	rootCmd.AddCommand(estimateCmd)
}

func runEstimate(cmd *cobra.Command, _ []string) error {
	task, err := parseTask(estimateTask)
	if err != nil {
		return err
	}

	var size int64
	switch {
	case estimateFile != "":
		info, err := os.Stat(estimateFile)
		if err != nil {
			return fmt.Errorf("failed to stat input file: %w", err)
		}
		size = info.Size()
	case estimateText != "":
		size = int64(len([]rune(estimateText)))
	default:
		if estimateChars < 0 {
			return fmt.Errorf("--chars must not be negative")
		}
		size = estimateChars
	}

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	model := estimateModel
	if model == "" {
		model = a.store.Get(task)
	}

	quote := a.estimator.Quote(task, size, model)

	var balance *int
	if cmd.Flags().Changed("balance") {
		balance = &estimateBalance
	}
	newPrinter(cmd).PrintQuote(quote, a.catalog.DisplayName(model), balance)

	if balance != nil {
		return estimate.CheckBalance(quote.Credits, *balance)
	}
	return nil
}
