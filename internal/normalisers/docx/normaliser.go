// Package docx extracts text from Word documents.
package docx

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/custodia-labs/docent/internal/core/domain"
	"github.com/custodia-labs/docent/internal/core/ports/driven"
	"github.com/custodia-labs/docent/internal/normalisers"
)

var _ driven.Normaliser = (*Normaliser)(nil)

// MIMEType is the Office Open XML word-processing type.
const MIMEType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

const (
	bodyPart = "word/document.xml"
	corePart = "docProps/core.xml"
)

// Normaliser handles DOCX documents.
type Normaliser struct{}

// New creates a DOCX normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{MIMEType}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50
}

// Normalise reads the document body, one paragraph per line. Paragraphs
// inside tables are included.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	zr, err := zip.NewReader(bytes.NewReader(raw.Content), int64(len(raw.Content)))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: not a docx archive: %v", domain.ErrSourceUnreadable, raw.URI, err)
	}

	body, err := readPart(zr, bodyPart)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrSourceUnreadable, raw.URI, err)
	}
	content, err := paragraphs(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrSourceUnreadable, raw.URI, err)
	}

	title := coreTitle(zr)
	if title == "" {
		title = normalisers.Title(raw)
	}
	return normalisers.NewResult(raw, title, content, "docx"), nil
}

func readPart(zr *zip.Reader, name string) ([]byte, error) {
	f, err := zr.Open(name)
	if err != nil {
		return nil, fmt.Errorf("missing %s", name)
	}
	defer f.Close()
	return io.ReadAll(f)
}

// paragraphs walks the body XML: <w:t> is text, <w:tab> and <w:br> are
// whitespace, and the end of <w:p> ends a line.
func paragraphs(body []byte) (string, error) {
	dec := xml.NewDecoder(bytes.NewReader(body))

	var out, para strings.Builder
	inText := false
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse %s: %w", bodyPart, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				para.WriteByte('\t')
			case "br", "cr":
				para.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if line := strings.TrimSpace(para.String()); line != "" {
					out.WriteString(line)
					out.WriteByte('\n')
				}
				para.Reset()
			}
		case xml.CharData:
			if inText {
				para.Write(t)
			}
		}
	}
	return strings.TrimSpace(out.String()), nil
}

func coreTitle(zr *zip.Reader) string {
	data, err := readPart(zr, corePart)
	if err != nil {
		return ""
	}
	var core struct {
		Title string `xml:"title"`
	}
	if xml.Unmarshal(data, &core) != nil {
		return ""
	}
	return strings.TrimSpace(core.Title)
}
