// Package markdown converts Markdown files to plain text.
package markdown

import (
	"context"
	"regexp"
	"strings"

	"github.com/custodia-labs/docent/internal/core/domain"
	"github.com/custodia-labs/docent/internal/core/ports/driven"
	"github.com/custodia-labs/docent/internal/normalisers"
)

var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles Markdown documents.
type Normaliser struct{}

// New creates a Markdown normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"text/markdown", "text/x-markdown"}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50
}

// Normalise removes Markdown syntax but keeps code block bodies.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}
	src := strings.ReplaceAll(string(raw.Content), "\r\n", "\n")
	src = frontMatter.ReplaceAllString(src, "")

	title := heading(src)
	if title == "" {
		title = normalisers.Title(raw)
	}
	return normalisers.NewResult(raw, title, Strip(src), "markdown"), nil
}

var (
	frontMatter = regexp.MustCompile(`(?s)\A---\n.*?\n---\n`)
	h1          = regexp.MustCompile(`(?m)^#\s+(.+?)\s*#*\s*$`)
	fence       = regexp.MustCompile("(?m)^\\s*(```|~~~).*$\n?")
	image       = regexp.MustCompile(`!\[[^\]]*\]\([^)]*\)`)
	link        = regexp.MustCompile(`\[([^\]]+)\]\([^)]*\)`)
	headingMark = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	strong      = regexp.MustCompile(`(\*\*|__)(\S(?:.*?\S)?)(\*\*|__)`)
	emphasis    = regexp.MustCompile(`(^|[\s(])[*_](\S(?:[^*_]*?\S)?)[*_]`)
	inlineCode  = regexp.MustCompile("`([^`]+)`")
	quote       = regexp.MustCompile(`(?m)^>\s?`)
	rule        = regexp.MustCompile(`(?m)^\s*([-*_]\s*){3,}$`)
	bullet      = regexp.MustCompile(`(?m)^(\s*)[*+]\s+`)
	blankRun    = regexp.MustCompile(`\n{3,}`)
)

func heading(src string) string {
	if m := h1.FindStringSubmatch(src); len(m) > 1 {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// Strip removes Markdown formatting. List items are normalised to "- ".
func Strip(src string) string {
	src = fence.ReplaceAllString(src, "")
	src = image.ReplaceAllString(src, "")
	src = link.ReplaceAllString(src, "$1")
	src = headingMark.ReplaceAllString(src, "")
	src = rule.ReplaceAllString(src, "")
	src = strong.ReplaceAllString(src, "$2")
	src = emphasis.ReplaceAllString(src, "$1$2")
	src = inlineCode.ReplaceAllString(src, "$1")
	src = quote.ReplaceAllString(src, "")
	src = bullet.ReplaceAllString(src, "$1- ")
	src = blankRun.ReplaceAllString(src, "\n\n")
	return strings.TrimSpace(src)
}
