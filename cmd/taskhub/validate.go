package main

import (
	"errors"
	"fmt"

	"github.com/jonathan/taskhub/internal/schemas"
	embedded "github.com/jonathan/taskhub/schemas"
	"github.com/spf13/cobra"
)

var (
	validateKind       string
	validateSchemaPath string
)

var validateCmd = &cobra.Command{
	Use:   "validate <file.json>",
	Short: "Validate a JSON file against a schema",
	Long: `Validates a result payload or preferences file against its embedded JSON schema.
--schema-file validates against an arbitrary schema on disk instead.`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().StringVar(&validateKind, "kind", "result", "Embedded schema to use: result or preferences")
	validateCmd.Flags().StringVar(&validateSchemaPath, "schema-file", "", "Path to a JSON schema file")
	validateCmd.MarkFlagsMutuallyExclusive("kind", "schema-file")
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	var err error
	if validateSchemaPath != "" {
		err = schemas.ValidateJSON(validateSchemaPath, args[0])
	} else {
		var name string
		switch validateKind {
		case "result":
			name = embedded.AnalysisResult
		case "preferences":
			name = embedded.Preferences
		default:
			return fmt.Errorf("unknown schema kind %q (want result or preferences)", validateKind)
		}

		data, readErr := readInputFile(args[0])
		if readErr != nil {
			return readErr
		}
		err = schemas.Validate(name, data)
	}

	if err != nil {
		var ve *schemas.ValidationError
		if errors.As(err, &ve) {
			fmt.Fprint(cmd.OutOrStdout(), "Validation failed:\n")
			for _, fe := range ve.Errors {
				fmt.Fprintf(cmd.OutOrStdout(), "  - %s: %s\n", fe.Field, fe.Message)
			}
			return fmt.Errorf("%s does not match the schema", args[0])
		}
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Validation passed")
	return nil
}
