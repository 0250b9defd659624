package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/jonathan/interview-topics/internal/observability"
	"github.com/jonathan/interview-topics/internal/storage"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregate statistics over all stored runs",
	RunE:  runStats,
}

var checkDBCmd = &cobra.Command{
	Use:   "check-db",
	Short: "Check the storage configuration and connection",
	Long: `Reports which provider is configured, verifies its required settings, connects and
reads the collection statistics. Exits non-zero if any step fails.`,
	RunE: runCheckDB,
}

var statsJSON bool

func init() {
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "Print statistics as JSON")
	rootCmd.AddCommand(statsCmd, checkDBCmd)
}

func runStats(cmd *cobra.Command, _ []string) error {
	return withStoreCommand(func(ctx context.Context, store storage.Store) error {
		stats, err := store.Stats(ctx)
		if err != nil {
			return fmt.Errorf("failed to read stats: %w", err)
		}
		if statsJSON {
			return printJSON(cmd.OutOrStdout(), stats)
		}
		observability.NewPrinter(cmd.OutOrStdout()).PrintStats(stats)
		return nil
	})
}

func runCheckDB(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	ctx := context.Background()

	a, err := loadApp(false)
	if err != nil {
		return err
	}
	defer a.close()

	storeCfg := a.cfg.StoreConfig()
	_, _ = fmt.Fprintf(out, "Provider: %s\n", storage.ProviderName(storeCfg))

	values, err := storage.ValidateProviderConfig(storeCfg)
	if err != nil {
		return err
	}
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		_, _ = fmt.Fprintf(out, "  %s: %s\n", key, redact(values[key]))
	}

	return a.withStore(ctx, func(store storage.Store) error {
		_, _ = fmt.Fprintf(out, "Connected (full-text search: %t)\n", store.Capabilities().FullTextSearch)

		stats, err := store.Stats(ctx)
		if err != nil {
			return fmt.Errorf("failed to read stats: %w", err)
		}
		observability.NewPrinter(out).PrintStats(stats)
		return nil
	})
}

// redact keeps the first few characters of a setting, enough to recognize it.
func redact(value string) string {
	const visible = 12
	runes := []rune(value)
	if len(runes) <= visible {
		return value
	}
	return string(runes[:visible]) + "..."
}
