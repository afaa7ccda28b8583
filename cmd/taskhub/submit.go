package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jonathan/taskhub/internal/client"
	"github.com/jonathan/taskhub/internal/estimate"
	"github.com/jonathan/taskhub/internal/types"
	"github.com/spf13/cobra"
)

var (
	submitTask   string
	submitFile   string
	submitText   string
	submitModel  string
	submitFlags  []string
	submitAPIURL string
	submitToken  string
	submitSave   string
)

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Run a task on the hub backend and render the result",
	Long: `Submits a file or text to the backend for the given task. The cost is estimated
and checked against the current credit balance first; nothing is sent when the
balance does not cover it. Task options are passed as --flag name=true|false.`,
	Args: cobra.NoArgs,
	RunE: runSubmit,
}

func init() {
	submitCmd.Flags().StringVarP(&submitTask, "task", "t", "", "Task type, e.g. resume_analysis (required)")
	submitCmd.Flags().StringVarP(&submitFile, "file", "f", "", "Input file for file tasks")
	submitCmd.Flags().StringVar(&submitText, "text", "", "Input text for text tasks")
	submitCmd.Flags().StringVarP(&submitModel, "model", "m", "", "Model ID (defaults to the task preference)")
	submitCmd.Flags().StringArrayVar(&submitFlags, "flag", nil, "Task option as name=true|false (repeatable)")
	submitCmd.Flags().StringVar(&submitAPIURL, "api-url", "", "Backend base URL (overrides config)")
	submitCmd.Flags().StringVar(&submitToken, "token", "", "Backend bearer token (overrides config)")
	submitCmd.Flags().StringVarP(&submitSave, "save", "o", "", "Also write the raw result JSON to this path")

	if err := submitCmd.MarkFlagRequired("task"); err != nil {
		panic(fmt.Sprintf("failed to mark task flag as required: %v", err))
	}
	submitCmd.MarkFlagsMutuallyExclusive("file", "text")
	submitCmd.MarkFlagsOneRequired("file", "text")

	rootCmd.AddCommand(submitCmd)
}

func runSubmit(cmd *cobra.Command, _ []string) error {
	task, err := parseTask(submitTask)
	if err != nil {
		return err
	}
	flags, err := parseTaskFlags(submitFlags)
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	req := &types.SubmitRequest{Task: task, Model: submitModel, Text: submitText, Flags: flags}
	if req.Model == "" {
		req.Model = a.store.Get(task)
	}
	if submitFile != "" {
		data, err := readInputFile(submitFile)
		if err != nil {
			return err
		}
		req.File = data
		req.FileName = filepath.Base(submitFile)
	}
	if err := req.Validate(); err != nil {
		return fmt.Errorf("invalid submission: %w", err)
	}

	baseURL := firstNonEmpty(submitAPIURL, a.cfg.APIBaseURL)
	if baseURL == "" {
		return fmt.Errorf("backend URL is required (set --api-url, api_base_url or TASKHUB_API_URL)")
	}
	c, err := client.New(baseURL, firstNonEmpty(submitToken, a.cfg.APIToken))
	if err != nil {
		return err
	}

	p := newPrinter(cmd)
	run, err := c.SubmitChecked(cmd.Context(), a.estimator, req)
	if err != nil {
		var short *estimate.InsufficientCreditsError
		if errors.As(err, &short) {
			balance := short.Available
			p.PrintQuote(run.Quote, a.catalog.DisplayName(req.Model), &balance)
			return fmt.Errorf("not sent: %w", err)
		}
		if client.IsInsufficientCredits(err) {
			return fmt.Errorf("insufficient credits: %s", client.UserMessage(err))
		}
		var apiErr *client.APIError
		if errors.As(err, &apiErr) {
			return errors.New(client.UserMessage(err))
		}
		return fmt.Errorf("submit failed: %w", err)
	}

	if submitSave != "" {
		data, err := json.MarshalIndent(run.Result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal result: %w", err)
		}
		if err := os.WriteFile(submitSave, data, 0o644); err != nil {
			return fmt.Errorf("failed to write result file: %w", err)
		}
	}

	p.PrintView(newNormalizer(a.cfg, a.catalog).Render(run.Result))
	return nil
}

// parseTaskFlags turns name=value pairs into task options. A bare name means true.
func parseTaskFlags(pairs []string) (map[string]bool, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]bool, len(pairs))
	for _, pair := range pairs {
		name, value, found := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("invalid --flag %q: missing name", pair)
		}
		if !found {
			out[name] = true
			continue
		}
		b, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return nil, fmt.Errorf("invalid --flag %q: value must be true or false", pair)
		}
		out[name] = b
	}
	return out, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
