// Package eml reads saved email messages as documents. The headers that
// matter to a reader are kept above the body so questions like "who sent
// this" can be answered.
package eml

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"strings"

	"github.com/custodia-labs/docent/internal/core/domain"
	"github.com/custodia-labs/docent/internal/core/ports/driven"
	"github.com/custodia-labs/docent/internal/normalisers"
	"github.com/custodia-labs/docent/internal/normalisers/html"
)

var _ driven.Normaliser = (*Normaliser)(nil)

// Metadata keys copied from the message headers.
const (
	MetaFrom = "from"
	MetaTo   = "to"
	MetaDate = "date"
)

// Normaliser handles RFC 822 messages.
type Normaliser struct{}

// New creates an email normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"message/rfc822"}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50
}

// Normalise converts a message to a document titled by its subject.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}
	msg, err := mail.ReadMessage(bytes.NewReader(raw.Content))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSourceUnreadable, err)
	}

	headers := []struct{ name, meta string }{
		{"From", MetaFrom},
		{"To", MetaTo},
		{"Date", MetaDate},
		{"Subject", ""},
	}
	var b strings.Builder
	values := make(map[string]string, len(headers))
	for _, h := range headers {
		v := decodeHeader(msg.Header.Get(h.name))
		if v == "" {
			continue
		}
		values[h.name] = v
		fmt.Fprintf(&b, "%s: %s\n", h.name, v)
	}

	body, err := readPart(msg.Header.Get("Content-Type"), msg.Header.Get("Content-Transfer-Encoding"), msg.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSourceUnreadable, err)
	}
	b.WriteString("\n")
	b.WriteString(body)

	title := values["Subject"]
	if title == "" {
		title = normalisers.Title(raw)
	}
	content := strings.ReplaceAll(strings.TrimSpace(b.String()), "\r\n", "\n")

	res := normalisers.NewResult(raw, title, content, "eml")
	for _, h := range headers {
		if h.meta != "" && values[h.name] != "" {
			res.Document.Metadata[h.meta] = values[h.name]
		}
	}
	return res, nil
}

func decodeHeader(v string) string {
	if v == "" {
		return ""
	}
	decoded, err := new(mime.WordDecoder).DecodeHeader(v)
	if err != nil {
		return v
	}
	return decoded
}

// readPart returns the readable text of one entity. Plain text wins over
// HTML in multipart/alternative; attachments are skipped.
func readPart(contentType, encoding string, r io.Reader) (string, error) {
	if contentType == "" {
		contentType = "text/plain"
	}
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = "text/plain"
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		return readMultipart(r, params["boundary"])
	}

	data, err := io.ReadAll(decodeTransfer(encoding, r))
	if err != nil {
		return "", err
	}
	switch mediaType {
	case "text/html":
		return html.Text(string(data)), nil
	case "text/plain":
		return strings.ToValidUTF8(string(data), "�"), nil
	default:
		return "", nil
	}
}

func readMultipart(r io.Reader, boundary string) (string, error) {
	if boundary == "" {
		return "", nil
	}
	mr := multipart.NewReader(r, boundary)
	var plain, rich []string
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		if part.FileName() != "" {
			continue
		}
		ct := part.Header.Get("Content-Type")
		text, err := readPart(ct, part.Header.Get("Content-Transfer-Encoding"), part)
		if err != nil {
			return "", err
		}
		if text == "" {
			continue
		}
		if strings.HasPrefix(ct, "text/html") {
			rich = append(rich, text)
		} else {
			plain = append(plain, text)
		}
	}
	if len(plain) > 0 {
		return strings.Join(plain, "\n\n"), nil
	}
	return strings.Join(rich, "\n\n"), nil
}

// decodeTransfer undoes the transfer encoding. multipart.Reader already
// decodes quoted-printable parts and drops the header.
func decodeTransfer(encoding string, r io.Reader) io.Reader {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "quoted-printable":
		return quotedprintable.NewReader(r)
	case "base64":
		return base64.NewDecoder(base64.StdEncoding, newlineStripper{r})
	default:
		return r
	}
}

// newlineStripper drops CR and LF so wrapped base64 decodes.
type newlineStripper struct{ r io.Reader }

func (s newlineStripper) Read(p []byte) (int, error) {
	n, err := s.r.Read(p)
	out := p[:0]
	for _, c := range p[:n] {
		if c != '\r' && c != '\n' {
			out = append(out, c)
		}
	}
	return len(out), err
}
