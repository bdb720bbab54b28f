// Package wikipedia fetches article text from the MediaWiki API.
package wikipedia

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/docent/internal/core/domain"
	"github.com/custodia-labs/docent/internal/core/ports/driven"
	"github.com/custodia-labs/docent/internal/logger"
	"github.com/custodia-labs/docent/internal/retry"
)

var _ driven.Encyclopedia = (*Client)(nil)

// Default configuration values.
const (
	DefaultLanguage = "en"
	DefaultMaxChars = 4000
	DefaultTimeout  = 20 * time.Second

	// endpointPattern takes the language edition.
	endpointPattern = "https://%s.wikipedia.org/w/api.php"
)

const op = "wikipedia"

// Config holds client configuration.
type Config struct {
	// Language is the Wikipedia edition, e.g. "en" or "ko".
	Language string

	// Endpoint overrides the api.php URL (tests).
	Endpoint string

	// MaxChars truncates each article.
	MaxChars int

	Timeout time.Duration
}

// Client searches Wikipedia and returns plain-text articles.
type Client struct {
	http     *http.Client
	endpoint string
	language string
	maxChars int
}

type searchResponse struct {
	Query struct {
		Search []struct {
			Title  string `json:"title"`
			PageID int    `json:"pageid"`
		} `json:"search"`
	} `json:"query"`
}

type extractResponse struct {
	Query struct {
		Pages []struct {
			PageID  int    `json:"pageid"`
			Title   string `json:"title"`
			Extract string `json:"extract"`
			Missing bool   `json:"missing"`
		} `json:"pages"`
	} `json:"query"`
}

// New creates a Wikipedia client.
func New(cfg Config) *Client {
	if cfg.Language == "" {
		cfg.Language = DefaultLanguage
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = fmt.Sprintf(endpointPattern, cfg.Language)
	}
	if cfg.MaxChars <= 0 {
		cfg.MaxChars = DefaultMaxChars
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Client{
		http:     &http.Client{Timeout: cfg.Timeout},
		endpoint: cfg.Endpoint,
		language: cfg.Language,
		maxChars: cfg.MaxChars,
	}
}

// Search returns up to limit articles matching topic, best match first.
// Articles that fail to load are skipped.
func (c *Client) Search(ctx context.Context, topic string, limit int) ([]domain.Document, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, fmt.Errorf("%w: empty topic", domain.ErrInvalidInput)
	}
	if limit <= 0 {
		limit = 1
	}

	var search searchResponse
	err := c.get(ctx, url.Values{
		"action":   {"query"},
		"list":     {"search"},
		"srsearch": {topic},
		"srlimit":  {strconv.Itoa(limit)},
	}, &search)
	if err != nil {
		return nil, err
	}
	if len(search.Query.Search) == 0 {
		return nil, fmt.Errorf("%w: no Wikipedia article for %q", domain.ErrNotFound, topic)
	}

	docs := make([]domain.Document, 0, len(search.Query.Search))
	for _, hit := range search.Query.Search {
		doc, err := c.article(ctx, hit.Title)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logger.Warn("skipping Wikipedia article %q: %v", hit.Title, err)
			continue
		}
		docs = append(docs, doc)
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: no Wikipedia article for %q could be loaded", domain.ErrSourceUnreadable, topic)
	}
	return docs, nil
}

func (c *Client) article(ctx context.Context, title string) (domain.Document, error) {
	var resp extractResponse
	err := c.get(ctx, url.Values{
		"action":      {"query"},
		"prop":        {"extracts"},
		"explaintext": {"1"},
		"redirects":   {"1"},
		"titles":      {title},
	}, &resp)
	if err != nil {
		return domain.Document{}, err
	}
	if len(resp.Query.Pages) == 0 || resp.Query.Pages[0].Missing || resp.Query.Pages[0].Extract == "" {
		return domain.Document{}, fmt.Errorf("%w: %s", domain.ErrNotFound, title)
	}

	page := resp.Query.Pages[0]
	content := page.Extract
	if r := []rune(content); len(r) > c.maxChars {
		content = string(r[:c.maxChars])
	}
	return domain.Document{
		ID:       uuid.New().String(),
		URI:      fmt.Sprintf("https://%s.wikipedia.org/?curid=%d", c.language, page.PageID),
		Title:    page.Title,
		Content:  content,
		Metadata: map[string]any{"source": "wikipedia", "pageid": page.PageID},
		LoadedAt: time.Now(),
	}, nil
}

func (c *Client) get(ctx context.Context, params url.Values, out any) error {
	params.Set("format", "json")
	params.Set("formatversion", "2")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+params.Encode(), http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "docent/1.0")

	resp, err := c.http.Do(req)
	if err != nil {
		return retry.TransportError(op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return retry.TransportError(op, err)
	}
	if resp.StatusCode != http.StatusOK {
		return retry.StatusError(op, resp, body)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &domain.ServiceError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
