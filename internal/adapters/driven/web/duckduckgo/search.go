// Package duckduckgo queries the DuckDuckGo Instant Answer API.
package duckduckgo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/custodia-labs/docent/internal/core/domain"
	"github.com/custodia-labs/docent/internal/core/ports/driven"
	"github.com/custodia-labs/docent/internal/retry"
)

var _ driven.WebSearch = (*Search)(nil)

// Default configuration values.
const (
	DefaultEndpoint   = "https://api.duckduckgo.com/"
	DefaultTimeout    = 15 * time.Second
	DefaultMaxRelated = 5
)

const op = "duckduckgo"

// Config holds search configuration.
type Config struct {
	Endpoint   string
	Timeout    time.Duration
	MaxRelated int
}

// Search returns instant answers as a short text digest.
type Search struct {
	client     *http.Client
	endpoint   string
	maxRelated int
}

type instantAnswer struct {
	Heading       string  `json:"Heading"`
	AbstractText  string  `json:"AbstractText"`
	AbstractURL   string  `json:"AbstractURL"`
	Answer        string  `json:"Answer"`
	RelatedTopics []topic `json:"RelatedTopics"`
}

// topic is either a result or a named group of results.
type topic struct {
	Text     string  `json:"Text"`
	FirstURL string  `json:"FirstURL"`
	Name     string  `json:"Name"`
	Topics   []topic `json:"Topics"`
}

// New creates a DuckDuckGo client.
func New(cfg Config) *Search {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxRelated <= 0 {
		cfg.MaxRelated = DefaultMaxRelated
	}
	return &Search{
		client:     &http.Client{Timeout: cfg.Timeout},
		endpoint:   cfg.Endpoint,
		maxRelated: cfg.MaxRelated,
	}
}

// Search runs query. An empty result is reported in the digest, not as an error.
func (s *Search) Search(ctx context.Context, query string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", fmt.Errorf("%w: empty search query", domain.ErrInvalidInput)
	}

	params := url.Values{
		"q":             {query},
		"format":        {"json"},
		"no_html":       {"1"},
		"skip_disambig": {"1"},
		"no_redirect":   {"1"},
		"t":             {"docent"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint+"?"+params.Encode(), http.NoBody)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", retry.TransportError(op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", retry.TransportError(op, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", retry.StatusError(op, resp, body)
	}

	var ia instantAnswer
	if err := json.Unmarshal(body, &ia); err != nil {
		return "", &domain.ServiceError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return s.digest(query, ia), nil
}

func (s *Search) digest(query string, ia instantAnswer) string {
	var b strings.Builder
	if ia.Heading != "" {
		b.WriteString(ia.Heading + "\n")
	}
	if ia.Answer != "" {
		b.WriteString(ia.Answer + "\n")
	}
	if ia.AbstractText != "" {
		b.WriteString(ia.AbstractText)
		if ia.AbstractURL != "" {
			b.WriteString(" (" + ia.AbstractURL + ")")
		}
		b.WriteString("\n")
	}

	related := flatten(ia.RelatedTopics)
	if len(related) > s.maxRelated {
		related = related[:s.maxRelated]
	}
	for _, t := range related {
		fmt.Fprintf(&b, "- %s (%s)\n", t.Text, t.FirstURL)
	}

	if b.Len() == 0 {
		return fmt.Sprintf("No results found for %q.", query)
	}
	return strings.TrimSpace(b.String())
}

func flatten(topics []topic) []topic {
	var out []topic
	for _, t := range topics {
		if t.Text != "" {
			out = append(out, t)
		}
		out = append(out, flatten(t.Topics)...)
	}
	return out
}
