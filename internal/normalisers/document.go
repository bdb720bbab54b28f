package normalisers

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/docent/internal/core/domain"
	"github.com/custodia-labs/docent/internal/core/ports/driven"
)

// Metadata keys set on every normalised document.
const (
	MetaMIMEType = "mime_type"
	MetaFormat   = "format"
	MetaTitle    = "title"
)

// NewResult builds the normalised document for raw.
// Loader metadata is copied; the MIME type and format are added.
func NewResult(raw *domain.RawDocument, title, content, format string) *driven.NormaliseResult {
	meta := make(map[string]any, len(raw.Metadata)+2)
	for k, v := range raw.Metadata {
		meta[k] = v
	}
	meta[MetaMIMEType] = raw.MIMEType
	meta[MetaFormat] = format

	return &driven.NormaliseResult{Document: domain.Document{
		ID:       uuid.New().String(),
		URI:      raw.URI,
		Title:    title,
		Content:  content,
		Metadata: meta,
		LoadedAt: time.Now(),
	}}
}

// Title prefers a loader-supplied title and falls back to the URI.
func Title(raw *domain.RawDocument) string {
	if t, ok := raw.Metadata[MetaTitle].(string); ok && t != "" {
		return t
	}
	return TitleFromURI(raw.URI)
}

// TitleFromURI turns "/notes/q3_board-meeting.md" into "q3 board meeting".
func TitleFromURI(uri string) string {
	name := filepath.Base(uri)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	return strings.NewReplacer("_", " ", "-", " ").Replace(name)
}
