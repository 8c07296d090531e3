package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newCrawlCmd() *cobra.Command {
	var (
		useMock bool
		maxNews int
	)

	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Run one ingestion pass over the configured sources",
		Long: `Fetches headline items from every configured source, deduplicates them
against the stored articles, and persists the new ones. With --mock the live
fetch adapters are replaced by deterministic synthetic ones; everything after
the fetch behaves identically.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}

			summary, err := a.StartCrawl(cmd.Context(), useMock, maxNews)
			if err != nil {
				return fmt.Errorf("run crawl: %w", err)
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(summary)
		},
	}

	cmd.Flags().BoolVar(&useMock, "mock", false, "use synthetic fetchers instead of live sources")
	cmd.Flags().IntVar(&maxNews, "max-news", 0, "cap items per source (0 uses crawler.max_items)")
	return cmd
}
