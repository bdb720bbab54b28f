package cli

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/docent/internal/logger"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the embedding cache",
	Long: `Embeddings are cached by model and chunk text, so reopening a document
does not pay for them twice. Generated quizzes share the same store.`,
	RunE: runCacheStats,
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache size",
	Args:  cobra.NoArgs,
	RunE:  runCacheStats,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every cached entry",
	Args:  cobra.NoArgs,
	RunE:  runCacheClear,
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}

func runCacheStats(cmd *cobra.Command, _ []string) error {
	svc, err := loadServices(cmd.Context())
	if err != nil {
		return err
	}
	stats, err := svc.Cache.Stats(cmd.Context())
	if err != nil {
		return err
	}

	t := newTable(cmd.OutOrStdout())
	t.AppendHeader(table.Row{"Backend", "Entries", "Size", "Location"})
	location := stats.Path
	if location == "" {
		location = "-"
	}
	t.AppendRow(table.Row{stats.Backend, stats.Entries, formatBytes(stats.Bytes), location})
	t.Render()
	return nil
}

func runCacheClear(cmd *cobra.Command, _ []string) error {
	svc, err := loadServices(cmd.Context())
	if err != nil {
		return err
	}
	defer logger.Timed("cache clear")()
	if err := svc.Cache.Clear(cmd.Context()); err != nil {
		return err
	}
	cmd.Println("Cache cleared.")
	return nil
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
