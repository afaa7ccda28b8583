package main

import (
	"encoding/json"
	"fmt"

	"github.com/jonathan/taskhub/internal/schemas"
	"github.com/jonathan/taskhub/internal/types"
	"github.com/spf13/cobra"
)

var prefsCmd = &cobra.Command{
	Use:   "prefs",
	Short: "Show and change the model selected for each task",
}

var prefsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the selected model for every task",
	Args:  cobra.NoArgs,
	RunE:  runPrefsList,
}

var prefsGetCmd = &cobra.Command{
	Use:   "get <task>",
	Short: "Print the model ID selected for a task",
	Args:  cobra.ExactArgs(1),
	RunE:  runPrefsGet,
}

var prefsSetCmd = &cobra.Command{
	Use:   "set <task> <model>",
	Short: "Select a model for a task",
	Args:  cobra.ExactArgs(2),
	RunE:  runPrefsSet,
}

var prefsResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Restore the default model for every task",
	Args:  cobra.NoArgs,
	RunE:  runPrefsReset,
}

var prefsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Print the preferences as JSON",
	Args:  cobra.NoArgs,
	RunE:  runPrefsExport,
}

var prefsImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Load preferences from a JSON file written by export",
	Long:  "Validates the file against the preferences schema, then applies each entry. Entries naming unknown models are rejected.",
	Args:  cobra.ExactArgs(1),
	RunE:  runPrefsImport,
}

func init() {
	prefsCmd.AddCommand(prefsListCmd, prefsGetCmd, prefsSetCmd, prefsResetCmd, prefsExportCmd, prefsImportCmd)
	rootCmd.AddCommand(prefsCmd)
}

func runPrefsList(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	newPrinter(cmd).PrintPreferences(a.store.Snapshot(), a.catalog)
	return nil
}

func runPrefsGet(cmd *cobra.Command, args []string) error {
	task, err := parseTask(args[0])
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	fmt.Fprintln(cmd.OutOrStdout(), a.store.Get(task))
	return nil
}

func runPrefsSet(cmd *cobra.Command, args []string) error {
	task, err := parseTask(args[0])
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.store.Set(cmd.Context(), task, args[1]); err != nil {
		return fmt.Errorf("failed to set preference: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", task.DisplayName(), a.catalog.DisplayName(args[1]))
	return nil
}

func runPrefsReset(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.store.Reset(cmd.Context()); err != nil {
		return fmt.Errorf("failed to reset preferences: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Preferences reset to defaults")
	return nil
}

func runPrefsExport(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(a.store.Snapshot())
}

func runPrefsImport(cmd *cobra.Command, args []string) error {
	data, err := readInputFile(args[0])
	if err != nil {
		return err
	}
	if err := schemas.ValidatePreferences(data); err != nil {
		return fmt.Errorf("invalid preferences file: %w", err)
	}

	var prefs types.PreferenceMap
	if err := json.Unmarshal(data, &prefs); err != nil {
		return fmt.Errorf("failed to unmarshal preferences JSON: %w", err)
	}

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	applied := 0
	for _, task := range types.AllTasks {
		model, ok := prefs[task]
		if !ok {
			continue
		}
		if err := a.store.Set(cmd.Context(), task, model); err != nil {
			return fmt.Errorf("failed to import %s: %w", task, err)
		}
		applied++
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d preference(s)\n", applied)
	return nil
}
