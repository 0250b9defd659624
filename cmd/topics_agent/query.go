package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jonathan/interview-topics/internal/observability"
	"github.com/jonathan/interview-topics/internal/storage"
)

var getCmd = &cobra.Command{
	Use:   "get",
	Short: "Show a stored run by run ID",
	RunE:  runGet,
}

var recentCmd = &cobra.Command{
	Use:   "recent",
	Short: "List the most recently generated runs",
	RunE:  runRecent,
}

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Find runs containing a topic that matches the filters",
	Long: `Finds runs with at least one topic matching every given filter. --query uses the
backend's text index where available and is ignored otherwise.`,
	RunE: runSearch,
}

var (
	getRunID         string
	getJSON          bool
	recentLimit      int
	searchCategory   string
	searchDifficulty string
	searchQuery      string
	searchLimit      int
)

func init() {
	getCmd.Flags().StringVar(&getRunID, "run-id", "", "Run ID to fetch (required)")
	getCmd.Flags().BoolVar(&getJSON, "json", false, "Print the raw run document as JSON")
	if err := getCmd.MarkFlagRequired("run-id"); err != nil {
		panic(fmt.Sprintf("failed to mark run-id flag as required: %v", err))
	}

	recentCmd.Flags().IntVarP(&recentLimit, "limit", "l", storage.DefaultRecentLimit, "Maximum number of runs")

	searchCmd.Flags().StringVarP(&searchCategory, "category", "c", "", "Topic category tag")
	searchCmd.Flags().StringVarP(&searchDifficulty, "difficulty", "d", "", "Topic difficulty tag")
	searchCmd.Flags().StringVarP(&searchQuery, "query", "q", "", "Free-text query over title and description")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "l", storage.DefaultSearchLimit, "Maximum number of runs")

	rootCmd.AddCommand(getCmd, recentCmd, searchCmd)
}

func runGet(cmd *cobra.Command, _ []string) error {
	return withStoreCommand(func(ctx context.Context, store storage.Store) error {
		doc, err := store.GetByRunID(ctx, getRunID)
		if err != nil {
			return fmt.Errorf("failed to fetch run: %w", err)
		}
		if doc == nil {
			return fmt.Errorf("run %q not found", getRunID)
		}

		out := cmd.OutOrStdout()
		if getJSON {
			return printJSON(out, doc)
		}
		printer := observability.NewPrinter(out)
		printer.PrintRunSummary(doc)
		printer.PrintTopics(doc.Topics)
		return nil
	})
}

func runRecent(cmd *cobra.Command, _ []string) error {
	return withStoreCommand(func(ctx context.Context, store storage.Store) error {
		docs, err := store.GetRecent(ctx, recentLimit)
		if err != nil {
			return fmt.Errorf("failed to list recent runs: %w", err)
		}
		observability.NewPrinter(cmd.OutOrStdout()).PrintRunList("RECENT RUNS", docs)
		return nil
	})
}

func runSearch(cmd *cobra.Command, _ []string) error {
	return withStoreCommand(func(ctx context.Context, store storage.Store) error {
		if searchQuery != "" && !store.Capabilities().FullTextSearch {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %s does not support text search; --query is ignored\n", store.Provider())
		}

		docs, err := store.Search(ctx, storage.SearchQuery{
			Category:   searchCategory,
			Difficulty: searchDifficulty,
			Text:       searchQuery,
			Limit:      searchLimit,
		})
		if err != nil {
			return fmt.Errorf("search failed: %w", err)
		}
		observability.NewPrinter(cmd.OutOrStdout()).PrintRunList("SEARCH RESULTS", docs)
		return nil
	})
}

// withStoreCommand runs fn against a connected store built from the resolved config.
func withStoreCommand(fn func(context.Context, storage.Store) error) error {
	ctx := context.Background()

	a, err := loadApp(false)
	if err != nil {
		return err
	}
	defer a.close()

	return a.withStore(ctx, func(store storage.Store) error {
		return fn(ctx, store)
	})
}

func printJSON(out io.Writer, v any) error {
	jsonBytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	_, err = fmt.Fprintln(out, string(jsonBytes))
	return err
}
