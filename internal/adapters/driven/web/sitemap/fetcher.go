// Package sitemap crawls the pages listed in an XML sitemap.
package sitemap

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/docent/internal/core/domain"
	"github.com/custodia-labs/docent/internal/core/ports/driven"
	"github.com/custodia-labs/docent/internal/logger"
)

var _ driven.SiteFetcher = (*Fetcher)(nil)

// Default configuration values.
const (
	DefaultRequestsPerSecond = 2.0
	DefaultTimeout           = 30 * time.Second
	DefaultUserAgent         = "docent/1.0 (+https://github.com/custodia-labs/docent)"

	// maxBody caps any single download.
	maxBody = 10 << 20
)

// Metadata keys set on fetched pages.
const (
	MetaLastMod = domain.MetaLastMod
	MetaSitemap = "sitemap"
)

// Config holds crawler configuration.
type Config struct {
	RequestsPerSecond float64
	Timeout           time.Duration
	UserAgent         string

	// Client overrides the HTTP client (tests).
	Client *http.Client
}

// Fetcher downloads sitemap pages at a bounded rate.
type Fetcher struct {
	client    *http.Client
	limiter   *rate.Limiter
	userAgent string
}

type urlSet struct {
	URLs []entry `xml:"url"`
}

type sitemapIndex struct {
	Sitemaps []entry `xml:"sitemap"`
}

type entry struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod"`
}

// New creates a Fetcher.
func New(cfg Config) *Fetcher {
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = DefaultRequestsPerSecond
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &Fetcher{
		client:    client,
		limiter:   rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		userAgent: cfg.UserAgent,
	}
}

// FetchSite reads the sitemap (following a sitemap index one level), filters
// the page URLs and downloads each page. Failed pages are skipped with a warning.
func (f *Fetcher) FetchSite(ctx context.Context, sitemapURL string, opts domain.CrawlOptions) ([]domain.RawDocument, error) {
	include, err := compileAll(opts.Include)
	if err != nil {
		return nil, err
	}
	exclude, err := compileAll(opts.Exclude)
	if err != nil {
		return nil, err
	}

	entries, err := f.readSitemap(ctx, sitemapURL, true)
	if err != nil {
		return nil, err
	}

	var pages []entry
	seen := make(map[string]bool)
	for _, e := range entries {
		if seen[e.Loc] || !keep(e.Loc, include, exclude) {
			continue
		}
		seen[e.Loc] = true
		pages = append(pages, e)
		if opts.MaxPages > 0 && len(pages) == opts.MaxPages {
			break
		}
	}
	logger.Info("sitemap %s: %d of %d pages selected", sitemapURL, len(pages), len(entries))

	docs := make([]domain.RawDocument, 0, len(pages))
	for _, page := range pages {
		body, mime, err := f.get(ctx, page.Loc)
		if err != nil {
			if ctx.Err() != nil {
				return docs, ctx.Err()
			}
			logger.Warn("skipping %s: %v", page.Loc, err)
			continue
		}
		meta := map[string]any{MetaSitemap: sitemapURL}
		if page.LastMod != "" {
			meta[MetaLastMod] = page.LastMod
		}
		docs = append(docs, domain.RawDocument{URI: page.Loc, MIMEType: mime, Content: body, Metadata: meta})
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: no pages could be fetched from %s", domain.ErrSourceUnreadable, sitemapURL)
	}
	return docs, nil
}

func (f *Fetcher) readSitemap(ctx context.Context, sitemapURL string, followIndex bool) ([]entry, error) {
	body, _, err := f.get(ctx, sitemapURL)
	if err != nil {
		return nil, fmt.Errorf("%w: sitemap %s: %w", domain.ErrSourceUnreadable, sitemapURL, err)
	}

	var set urlSet
	if err := xml.Unmarshal(body, &set); err == nil && len(set.URLs) > 0 {
		return trimEntries(set.URLs), nil
	}

	var index sitemapIndex
	if err := xml.Unmarshal(body, &index); err != nil || len(index.Sitemaps) == 0 {
		return nil, fmt.Errorf("%w: %s is not a sitemap", domain.ErrSourceUnreadable, sitemapURL)
	}
	if !followIndex {
		logger.Warn("ignoring nested sitemap index %s", sitemapURL)
		return nil, nil
	}

	var all []entry
	for _, child := range trimEntries(index.Sitemaps) {
		entries, err := f.readSitemap(ctx, child.Loc, false)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logger.Warn("skipping sitemap %s: %v", child.Loc, err)
			continue
		}
		all = append(all, entries...)
	}
	return all, nil
}

// get downloads url after waiting for the limiter.
func (f *Fetcher) get(ctx context.Context, url string) ([]byte, string, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, "", err
	}

	mime := resp.Header.Get("Content-Type")
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = mime[:i]
	}
	mime = strings.TrimSpace(mime)
	if mime == "" {
		mime = http.DetectContentType(body)
		if i := strings.IndexByte(mime, ';'); i >= 0 {
			mime = mime[:i]
		}
	}
	return body, mime, nil
}

func trimEntries(entries []entry) []entry {
	out := entries[:0]
	for _, e := range entries {
		e.Loc = strings.TrimSpace(e.Loc)
		e.LastMod = strings.TrimSpace(e.LastMod)
		if e.Loc != "" {
			out = append(out, e)
		}
	}
	return out
}

func compileAll(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("%w: pattern %q: %w", domain.ErrInvalidInput, p, err)
		}
		out = append(out, re)
	}
	return out, nil
}

// keep applies include (any must match, when given) then exclude (none may match).
func keep(url string, include, exclude []*regexp.Regexp) bool {
	if len(include) > 0 {
		matched := false
		for _, re := range include {
			if re.MatchString(url) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	for _, re := range exclude {
		if re.MatchString(url) {
			return false
		}
	}
	return true
}
