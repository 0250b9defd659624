package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/interview-topics/internal/logging"
	"github.com/jonathan/interview-topics/internal/observability"
	"github.com/jonathan/interview-topics/internal/schemas"
	"github.com/jonathan/interview-topics/internal/topics"
	"github.com/jonathan/interview-topics/internal/types"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Run the topic validator over a JSON array of candidate topics",
	Long: `Reads a JSON array of candidate topic records, applies the same rejection and
correction rules as generation and prints the surviving topics. Fails if fewer than the
minimum yield for --count survive.`,
	RunE: runValidate,
}

var validateRunCmd = &cobra.Command{
	Use:   "validate-run",
	Short: "Validate a run document JSON file against its schema",
	RunE:  runValidateRun,
}

var (
	validateInput     string
	validateCount     int
	validateOutput    string
	validateRunInput  string
	validateRunSchema string
)

func init() {
	validateCmd.Flags().StringVarP(&validateInput, "in", "i", "", "Path to candidates JSON file (required)")
	validateCmd.Flags().IntVarP(&validateCount, "count", "n", 0, "Requested count for the yield check (default: number of candidates)")
	validateCmd.Flags().StringVarP(&validateOutput, "out", "o", "", "Path to write the validated topics JSON (optional)")
	if err := validateCmd.MarkFlagRequired("in"); err != nil {
		panic(fmt.Sprintf("failed to mark in flag as required: %v", err))
	}

	validateRunCmd.Flags().StringVarP(&validateRunInput, "in", "i", "", "Path to run document JSON file (required)")
	validateRunCmd.Flags().StringVar(&validateRunSchema, "schema", "", "Path to a schema file (default: built-in run document schema)")
	if err := validateRunCmd.MarkFlagRequired("in"); err != nil {
		panic(fmt.Sprintf("failed to mark in flag as required: %v", err))
	}

	rootCmd.AddCommand(validateCmd, validateRunCmd)
}

func runValidate(cmd *cobra.Command, _ []string) error {
	candidates, err := loadCandidates(validateInput)
	if err != nil {
		return err
	}

	count := validateCount
	if count <= 0 {
		count = len(candidates)
	}

	logger, err := logging.NewLogger("warn", "text")
	if err != nil {
		return err
	}
	logger.SetOutput(cmd.ErrOrStderr())

	valid, err := topics.NewValidator(logger).Validate(candidates, count)
	if err != nil {
		var yieldErr *topics.InsufficientYieldError
		if errors.As(err, &yieldErr) {
			return fmt.Errorf("validation failed: %w", err)
		}
		return err
	}

	out := cmd.OutOrStdout()
	observability.NewPrinter(out).PrintTopics(valid)
	_, _ = fmt.Fprintf(out, "Validation passed: %d of %d candidates kept\n", len(valid), len(candidates))

	if validateOutput != "" {
		jsonBytes, err := json.MarshalIndent(valid, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal topics to JSON: %w", err)
		}
		if err := os.WriteFile(validateOutput, jsonBytes, 0644); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
	}
	return nil
}

// loadCandidates reads a JSON array of candidate records from path.
func loadCandidates(path string) ([]types.Candidate, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read candidates file: %w", err)
	}

	var candidates []types.Candidate
	if err := json.Unmarshal(content, &candidates); err != nil {
		return nil, fmt.Errorf("failed to unmarshal candidates JSON: %w", err)
	}
	return candidates, nil
}

func runValidateRun(cmd *cobra.Command, _ []string) error {
	if validateRunSchema != "" {
		err := schemas.ValidateJSON(validateRunSchema, validateRunInput)
		return reportSchemaResult(cmd, err)
	}

	content, err := os.ReadFile(validateRunInput)
	if err != nil {
		return fmt.Errorf("failed to read run document: %w", err)
	}
	return reportSchemaResult(cmd, schemas.ValidateRunDocument(content))
}

func reportSchemaResult(cmd *cobra.Command, err error) error {
	if err == nil {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Validation passed")
		return nil
	}

	var validationErr *schemas.ValidationError
	if errors.As(err, &validationErr) {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Validation failed:")
		for _, fieldErr := range validationErr.Errors {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "  - %s: %s\n", fieldErr.Field, fieldErr.Message)
		}
	}
	return err
}
