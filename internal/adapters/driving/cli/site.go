package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/docent/internal/core/domain"
	"github.com/custodia-labs/docent/internal/logger"
)

var (
	siteInclude    []string
	siteExclude    []string
	siteMaxPages   int
	siteCandidates bool
)

var siteCmd = &cobra.Command{
	Use:   "site SITEMAP_URL",
	Short: "Ask questions about a website",
	Long: `Crawl the pages listed in a sitemap and answer questions about them.

Each retrieved page proposes an answer with a score; the best-scored answers
are combined into one, preferring the most recently updated pages. Repeated
questions are answered from the conversation without another crawl.`,
	Args: cobra.ExactArgs(1),
	RunE: runSite,
}

func init() {
	siteCmd.Flags().StringArrayVar(&siteInclude, "include", nil, "only crawl URLs matching this regex (repeatable)")
	siteCmd.Flags().StringArrayVar(&siteExclude, "exclude", nil, "skip URLs matching this regex (repeatable)")
	siteCmd.Flags().IntVar(&siteMaxPages, "max-pages", 0, "maximum pages to crawl (default from settings)")
	siteCmd.Flags().BoolVar(&siteCandidates, "candidates", false, "show every page's candidate answer")
	rootCmd.AddCommand(siteCmd)
}

func runSite(cmd *cobra.Command, args []string) error {
	svc, err := loadServices(cmd.Context())
	if err != nil {
		return err
	}

	opts := domain.CrawlOptions{Include: siteInclude, Exclude: siteExclude, MaxPages: siteMaxPages}
	if !cmd.Flags().Changed("max-pages") && settingsService != nil {
		if s, err := settingsService.Get(); err == nil {
			opts.MaxPages = s.Site.MaxPages
		}
	}

	cmd.Printf("Crawling %s...\n", args[0])
	done := logger.Timed("crawl")
	sess, err := svc.Site.Crawl(cmd.Context(), args[0], opts)
	done()
	if err != nil {
		return err
	}
	cmd.Printf("Indexed %d pages (%d chunks).\n\n", len(sess.Documents), len(sess.Chunks))

	return repl(cmd, "> ", func(ctx context.Context, q string) error {
		ans, err := svc.Site.Ask(ctx, sess, q)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, ans.Answer)
		if ans.Cached {
			fmt.Fprintln(out, "(from an earlier answer)")
		}
		if siteCandidates {
			printCandidates(out, ans.Candidates)
		}
		return nil
	})
}

func printCandidates(w io.Writer, cands []domain.AnswerCandidate) {
	if len(cands) == 0 {
		return
	}
	t := newTable(w)
	t.AppendHeader(table.Row{"Score", "Updated", "Page", "Answer"})
	for _, c := range cands {
		updated := "-"
		if !c.Date.IsZero() {
			updated = c.Date.Format("2006-01-02")
		}
		t.AppendRow(table.Row{c.Score, updated, c.Source, excerpt(c.Answer, 60)})
	}
	t.Render()
}
