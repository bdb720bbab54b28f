package normalisers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docent/internal/core/domain"
	"github.com/custodia-labs/docent/internal/core/ports/driven"
)

type stubNormaliser struct {
	name     string
	mimes    []string
	priority int
}

func (s *stubNormaliser) SupportedMIMETypes() []string { return s.mimes }
func (s *stubNormaliser) Priority() int                { return s.priority }
func (s *stubNormaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	return NewResult(raw, s.name, string(raw.Content), s.name), nil
}

func TestRegistry_HighestPriorityWins(t *testing.T) {
	r := NewRegistry(
		&stubNormaliser{name: "fallback", mimes: []string{"text/html", "text/plain"}, priority: 5},
		&stubNormaliser{name: "html", mimes: []string{"text/html"}, priority: 50},
	)

	result, err := r.Normalise(context.Background(), &domain.RawDocument{MIMEType: "text/html; charset=utf-8"})
	require.NoError(t, err)
	assert.Equal(t, "html", result.Document.Title)

	result, err = r.Normalise(context.Background(), &domain.RawDocument{MIMEType: "text/plain"})
	require.NoError(t, err)
	assert.Equal(t, "fallback", result.Document.Title)

	assert.Equal(t, []string{"text/html", "text/plain"}, r.SupportedMIMETypes())
}

func TestRegistry_Unsupported(t *testing.T) {
	r := NewRegistry()

	_, err := r.Normalise(context.Background(), &domain.RawDocument{URI: "x.bin", MIMEType: "application/octet-stream"})
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)

	_, err = r.Normalise(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestDetectMIME(t *testing.T) {
	tests := []struct {
		path    string
		content string
		want    string
	}{
		{"notes.TXT", "", "text/plain"},
		{"guide.md", "", "text/markdown"},
		{"index.htm", "", "text/html"},
		{"report.pdf", "", "application/pdf"},
		{"memo.docx", "", "application/vnd.openxmlformats-officedocument.wordprocessingml.document"},
		{"noext", "%PDF-1.7\n", "application/pdf"},
		{"noext", "hello there", "text/plain"},
	}
	for _, tt := range tests {
		t.Run(tt.path+"/"+tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectMIME(tt.path, []byte(tt.content)))
		})
	}
}

func TestTitleFromURI(t *testing.T) {
	assert.Equal(t, "q3 board meeting", TitleFromURI("/notes/q3_board-meeting.md"))
	assert.Equal(t, "page", TitleFromURI("https://example.com/docs/page.html"))
}
