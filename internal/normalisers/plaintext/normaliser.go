// Package plaintext is the fallback normaliser for text-like files.
package plaintext

import (
	"context"
	"strings"

	"github.com/custodia-labs/docent/internal/core/domain"
	"github.com/custodia-labs/docent/internal/core/ports/driven"
	"github.com/custodia-labs/docent/internal/normalisers"
)

var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser passes text through with line endings unified.
type Normaliser struct{}

// New creates a plain text normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{
		"text/plain",
		"text/csv",
		"text/markdown",
		"text/html",
		"application/json",
		"application/xml",
		"text/xml",
	}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 5
}

// Normalise converts raw bytes to a document. Invalid UTF-8 is replaced.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}
	content := strings.ToValidUTF8(string(raw.Content), "�")
	content = strings.ReplaceAll(content, "\r\n", "\n")
	return normalisers.NewResult(raw, normalisers.Title(raw), content, "text"), nil
}
