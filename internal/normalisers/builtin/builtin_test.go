package builtin

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docent/internal/core/domain"
	"github.com/custodia-labs/docent/internal/normalisers"
)

func TestRegistry_PicksFormatNormaliser(t *testing.T) {
	r := Registry()

	tests := []struct {
		path   string
		body   string
		format string
	}{
		{"notes.txt", "plain", "text"},
		{"README.md", "# Title", "markdown"},
		{"page.html", "<p>hi</p>", "html"},
		{"data.csv", "a,b", "text"},
		{"mail.eml", "Subject: Hi\r\n\r\nbody", "eml"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			raw := &domain.RawDocument{
				URI:      tt.path,
				MIMEType: normalisers.DetectMIME(tt.path, []byte(tt.body)),
				Content:  []byte(tt.body),
			}
			result, err := r.Normalise(context.Background(), raw)
			require.NoError(t, err)
			assert.Equal(t, tt.format, result.Document.Metadata[normalisers.MetaFormat])
		})
	}
}

func TestRegistry_SupportsBundledTypes(t *testing.T) {
	mimeTypes := Registry().SupportedMIMETypes()
	for _, m := range []string{"text/plain", "text/markdown", "text/html", "application/pdf", "message/rfc822"} {
		assert.Contains(t, mimeTypes, m)
	}
}
