// Package html converts web pages to readable text.
//
// Page chrome (head, header, footer, nav) is dropped before tags are
// stripped, so crawled pages keep their body copy and lose the menus that
// repeat on every page of a site.
package html

import (
	"context"
	"html"
	"regexp"
	"strings"

	"github.com/custodia-labs/docent/internal/core/domain"
	"github.com/custodia-labs/docent/internal/core/ports/driven"
	"github.com/custodia-labs/docent/internal/normalisers"
)

var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles HTML documents.
type Normaliser struct{}

// New creates an HTML normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"text/html", "application/xhtml+xml"}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50
}

// Normalise strips markup and returns the page text.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}
	page := string(raw.Content)

	title := pageTitle(page)
	if title == "" {
		title = normalisers.Title(raw)
	}
	return normalisers.NewResult(raw, title, Text(page), "html"), nil
}

var (
	titleTag = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)

	// Elements removed together with their content.
	dropped = []*regexp.Regexp{
		regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`),
		regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`),
		regexp.MustCompile(`(?is)<noscript[^>]*>.*?</noscript>`),
		regexp.MustCompile(`(?is)<head[^>]*>.*?</head>`),
		regexp.MustCompile(`(?is)<svg[^>]*>.*?</svg>`),
		regexp.MustCompile(`(?is)<header[^>]*>.*?</header>`),
		regexp.MustCompile(`(?is)<footer[^>]*>.*?</footer>`),
		regexp.MustCompile(`(?is)<nav[^>]*>.*?</nav>`),
		regexp.MustCompile(`(?s)<!--.*?-->`),
	}

	listItem   = regexp.MustCompile(`(?i)<li[^>]*>`)
	blockOpen  = regexp.MustCompile(`(?i)<(p|div|h[1-6]|tr|blockquote|pre|table|section|article|ul|ol)[^>]*>`)
	blockClose = regexp.MustCompile(`(?i)</(p|div|h[1-6]|li|tr|blockquote|pre|table|section|article|ul|ol)>`)
	lineBreak  = regexp.MustCompile(`(?i)<(br|hr)\s*/?>`)
	anyTag     = regexp.MustCompile(`<[^>]+>`)
	spaces     = regexp.MustCompile(`[ \t\x{00a0}]+`)
)

func pageTitle(page string) string {
	m := titleTag.FindStringSubmatch(page)
	if len(m) < 2 {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(m[1]))
}

// Text converts an HTML page to plain text, one block per line.
func Text(page string) string {
	for _, re := range dropped {
		page = re.ReplaceAllString(page, "")
	}
	page = listItem.ReplaceAllString(page, "\n- ")
	page = blockOpen.ReplaceAllString(page, "\n")
	page = blockClose.ReplaceAllString(page, "\n")
	page = lineBreak.ReplaceAllString(page, "\n")
	page = anyTag.ReplaceAllString(page, "")
	page = html.UnescapeString(page)
	page = spaces.ReplaceAllString(page, " ")

	lines := strings.Split(page, "\n")
	kept := lines[:0]
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" && line != "-" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}
