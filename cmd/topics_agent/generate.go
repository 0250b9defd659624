package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jonathan/interview-topics/internal/config"
	"github.com/jonathan/interview-topics/internal/llm"
	"github.com/jonathan/interview-topics/internal/observability"
	"github.com/jonathan/interview-topics/internal/pipeline"
	"github.com/jonathan/interview-topics/internal/schemas"
	"github.com/jonathan/interview-topics/internal/source"
	"github.com/jonathan/interview-topics/internal/types"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate, validate and store a batch of interview topics",
	Long: `Generates interview topics with Gemini (or the built-in sample pool with --sample),
runs them through the topic validator and stores the batch as one run document.

Use --dry-run to skip storage and --out to also write the run document as JSON.`,
	RunE: runGenerate,
}

var (
	generateCount      int
	generateDifficulty string
	generateSample     bool
	generateRunID      string
	generateModel      string
	generateTier       string
	generateAPIKey     string
	generateOutput     string
	generateDryRun     bool
	generateVerbose    bool
)

func init() {
	generateCmd.Flags().IntVarP(&generateCount, "count", "n", 0, "Number of topics to request (default from config, 15)")
	generateCmd.Flags().StringVarP(&generateDifficulty, "difficulty", "d", "", "Difficulty focus: junior, mid-level, senior, staff or mixed")
	generateCmd.Flags().BoolVar(&generateSample, "sample", false, "Use the built-in sample pool instead of Gemini")
	generateCmd.Flags().StringVar(&generateRunID, "run-id", "", "Run ID (default: new UUID)")
	generateCmd.Flags().StringVar(&generateModel, "model", "", "Gemini model override for the selected tier (defaults to GEMINI_MODEL)")
	generateCmd.Flags().StringVar(&generateTier, "tier", string(llm.TierStandard), "Gemini model tier: lite, standard or advanced (--model overrides its model)")
	generateCmd.Flags().StringVar(&generateAPIKey, "api-key", "", "Gemini API Key (optional, defaults to GEMINI_API_KEY env var)")
	generateCmd.Flags().StringVarP(&generateOutput, "out", "o", "", "Path to write the run document JSON (optional)")
	generateCmd.Flags().BoolVar(&generateDryRun, "dry-run", false, "Generate and validate without storing")
	generateCmd.Flags().BoolVarP(&generateVerbose, "verbose", "v", false, "Print progress and debug logging")

	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	a, err := loadApp(generateVerbose)
	if err != nil {
		return err
	}
	defer a.close()

	// CLI overrides (command-line args take priority)
	cfg := a.cfg
	if cmd.Flags().Changed("count") {
		cfg.Count = generateCount
	}
	if cmd.Flags().Changed("difficulty") {
		cfg.DifficultyFocus = generateDifficulty
	}
	if cmd.Flags().Changed("model") {
		cfg.Model = generateModel
	}
	if cmd.Flags().Changed("api-key") {
		cfg.APIKey = generateAPIKey
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	tier, err := llm.ParseTier(generateTier)
	if err != nil {
		return err
	}

	src, closeSource, err := buildSource(ctx, cfg, generateSample, tier, a.logger)
	if err != nil {
		return err
	}
	defer closeSource()

	out := cmd.OutOrStdout()
	opts := []pipeline.Option{}
	if generateVerbose {
		opts = append(opts, pipeline.WithProgress(progressPrinter(out)))
	}
	p := pipeline.New(src, a.logger, opts...)

	runOpts := pipeline.RunOptions{
		Count:           cfg.Count,
		DifficultyFocus: cfg.DifficultyFocus,
		RunID:           generateRunID,
	}

	var doc *types.RunDocument
	if generateDryRun {
		doc, err = p.Run(ctx, nil, runOpts)
	} else {
		store, openErr := a.openStore(ctx)
		if openErr != nil {
			return openErr
		}
		defer store.Close(ctx)
		doc, err = p.Run(ctx, store, runOpts)
	}
	if err != nil {
		return generationFailure(err)
	}

	printer := observability.NewPrinter(out)
	printer.PrintRunSummary(doc)
	printer.PrintTopics(doc.Topics)

	if generateOutput != "" {
		if err := writeRunDocument(generateOutput, doc); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(out, "Run document written to %s\n", generateOutput)
	}
	if generateDryRun {
		_, _ = fmt.Fprintln(out, "Dry run: nothing stored")
	}

	return nil
}

// buildSource returns the sample pool or a Gemini-backed source for tier, and a func
// releasing it.
func buildSource(ctx context.Context, cfg *config.Config, sample bool, tier llm.ModelTier, logger *logrus.Logger) (source.Source, func(), error) {
	if sample {
		src, err := source.NewSampleSource()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load sample topics: %w", err)
		}
		return src, func() {}, nil
	}

	if cfg.APIKey == "" {
		return nil, nil, fmt.Errorf("GEMINI_API_KEY environment variable or --api-key flag is required (or use --sample)")
	}

	llmCfg := llm.DefaultConfig()
	if cfg.Model != "" {
		llmCfg = llmCfg.WithModel(tier, cfg.Model)
	}
	client, err := llm.NewClient(ctx, llmCfg, cfg.APIKey)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	src := source.NewLLMSource(client, client.GetModel(tier), logger, source.WithTier(tier))
	return src, func() { _ = client.Close() }, nil
}

// generationFailure adds a hint when the model answered without a usable topic list.
func generationFailure(err error) error {
	if source.IsMalformedOutput(err) {
		return fmt.Errorf("generation failed: %w (the model returned no topic list; retry, try another --tier or use --sample)", err)
	}
	return fmt.Errorf("generation failed: %w", err)
}

func progressPrinter(out io.Writer) pipeline.ProgressCallback {
	return func(event pipeline.ProgressEvent) {
		_, _ = fmt.Fprintf(out, "[%s] %s\n", event.Step, event.Message)
	}
}

// writeRunDocument writes doc as indented JSON and checks it against the run document schema.
func writeRunDocument(path string, doc *types.RunDocument) error {
	jsonBytes, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal run document to JSON: %w", err)
	}

	if err := schemas.ValidateRunDocument(jsonBytes); err != nil {
		return fmt.Errorf("run document does not match schema: %w", err)
	}

	outputDir := filepath.Dir(path)
	if outputDir != "" && outputDir != "." {
		if err := os.MkdirAll(outputDir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	if err := os.WriteFile(path, jsonBytes, 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}
