package driven

import (
	"context"

	"github.com/custodia-labs/docent/internal/core/domain"
)

// SiteFetcher crawls the pages listed in a sitemap.
type SiteFetcher interface {
	// FetchSite returns one raw HTML document per page, with "lastmod" metadata
	// where the sitemap provides it. Pages that fail are skipped.
	FetchSite(ctx context.Context, sitemapURL string, opts domain.CrawlOptions) ([]domain.RawDocument, error)
}

// Encyclopedia looks up reference articles.
type Encyclopedia interface {
	// Search returns up to limit articles about topic as documents.
	Search(ctx context.Context, topic string, limit int) ([]domain.Document, error)
}

// WebSearch runs a general web query and returns a text digest.
type WebSearch interface {
	Search(ctx context.Context, query string) (string, error)
}

// MarketData provides company financials. Results are raw JSON text
// handed to the model.
type MarketData interface {
	CompanyOverview(ctx context.Context, symbol string) (string, error)
	IncomeStatement(ctx context.Context, symbol string) (string, error)
	BalanceSheet(ctx context.Context, symbol string) (string, error)
	WeeklyPerformance(ctx context.Context, symbol string) (string, error)
}
