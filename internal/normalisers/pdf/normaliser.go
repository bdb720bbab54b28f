// Package pdf extracts text from PDF files with github.com/ledongthuc/pdf.
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/custodia-labs/docent/internal/core/domain"
	"github.com/custodia-labs/docent/internal/core/ports/driven"
	"github.com/custodia-labs/docent/internal/normalisers"
)

var _ driven.Normaliser = (*Normaliser)(nil)

// maxTitleLen bounds how long a first line may be and still count as a title.
const maxTitleLen = 200

// Extractor returns the plain text of a PDF.
type Extractor func(content []byte) (string, error)

// Normaliser handles PDF documents.
type Normaliser struct {
	extract Extractor
}

// New creates a PDF normaliser backed by the pure-Go reader.
func New() *Normaliser {
	return &Normaliser{extract: PlainText}
}

// NewWithExtractor replaces the text extractor (tests).
func NewWithExtractor(e Extractor) *Normaliser {
	return &Normaliser{extract: e}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"application/pdf"}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50
}

// Normalise extracts the text. A PDF with no text layer is unreadable.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	text, err := n.extract(raw.Content)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrSourceUnreadable, raw.URI, err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: %s: no text layer", domain.ErrSourceUnreadable, raw.URI)
	}

	title := firstLine(text)
	if title == "" {
		title = normalisers.Title(raw)
	}
	return normalisers.NewResult(raw, title, text, "pdf"), nil
}

// PlainText reads every page with the pure-Go PDF reader. The reader panics
// on some malformed files; that is reported as an error.
func PlainText(content []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	rdr, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", err
	}
	r, err := rdr.GetPlainText()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func firstLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" && len(line) <= maxTitleLen {
			return line
		}
	}
	return ""
}
