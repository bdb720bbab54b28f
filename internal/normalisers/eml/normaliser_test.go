package eml

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docent/internal/core/domain"
	"github.com/custodia-labs/docent/internal/normalisers"
)

func normalise(t *testing.T, uri, message string) domain.Document {
	t.Helper()
	raw := &domain.RawDocument{
		URI:      uri,
		MIMEType: "message/rfc822",
		Content:  []byte(strings.ReplaceAll(message, "\n", "\r\n")),
	}
	res, err := New().Normalise(context.Background(), raw)
	require.NoError(t, err)
	return res.Document
}

func TestNormaliser_Describe(t *testing.T) {
	n := New()
	assert.Equal(t, []string{"message/rfc822"}, n.SupportedMIMETypes())
	assert.Equal(t, 50, n.Priority())
}

func TestNormalise_PlainMessage(t *testing.T) {
	doc := normalise(t, "/mail/budget.eml", `From: Ana <ana@example.com>
To: team@example.com
Date: Mon, 2 Jun 2025 09:00:00 +0000
Subject: Q3 budget

The budget was approved.
`)

	assert.Equal(t, "Q3 budget", doc.Title)
	assert.Contains(t, doc.Content, "From: Ana <ana@example.com>\n")
	assert.Contains(t, doc.Content, "Subject: Q3 budget\n\nThe budget was approved.")
	assert.Equal(t, "Ana <ana@example.com>", doc.Metadata[MetaFrom])
	assert.Equal(t, "team@example.com", doc.Metadata[MetaTo])
	assert.Equal(t, "eml", doc.Metadata[normalisers.MetaFormat])
}

func TestNormalise_EncodedSubject(t *testing.T) {
	doc := normalise(t, "x.eml", "Subject: =?UTF-8?Q?R=C3=A9sum=C3=A9?=\n\nbody\n")
	assert.Equal(t, "Résumé", doc.Title)
}

func TestNormalise_NoSubjectUsesFileName(t *testing.T) {
	doc := normalise(t, "/mail/weekly_update.eml", "From: a@example.com\n\nhello\n")
	assert.Equal(t, "weekly update", doc.Title)
}

func TestNormalise_MultipartPrefersPlainText(t *testing.T) {
	doc := normalise(t, "x.eml", `Subject: Launch
MIME-Version: 1.0
Content-Type: multipart/alternative; boundary="b1"

--b1
Content-Type: text/plain; charset=utf-8
Content-Transfer-Encoding: quoted-printable

Launch is on Fri=
day.
--b1
Content-Type: text/html

<p>Launch is <b>on Friday</b>.</p>
--b1--
`)

	assert.Contains(t, doc.Content, "Launch is on Friday.")
	assert.NotContains(t, doc.Content, "<p>")
}

func TestNormalise_HTMLOnlyAndAttachments(t *testing.T) {
	doc := normalise(t, "x.eml", `Subject: Report
Content-Type: multipart/mixed; boundary="m"

--m
Content-Type: text/html

<h1>Summary</h1><p>Sales grew.</p>
--m
Content-Type: text/plain
Content-Disposition: attachment; filename="notes.txt"

secret attachment
--m--
`)

	assert.Contains(t, doc.Content, "Summary\nSales grew.")
	assert.NotContains(t, doc.Content, "secret attachment")
}

func TestNormalise_Base64Body(t *testing.T) {
	// "Meet at noon." split over two lines.
	doc := normalise(t, "x.eml", "Subject: s\nContent-Transfer-Encoding: base64\n\nTWVldCBh\ndCBub29uLg==\n")
	assert.Contains(t, doc.Content, "Meet at noon.")
}

func TestNormalise_Errors(t *testing.T) {
	_, err := New().Normalise(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = New().Normalise(context.Background(), &domain.RawDocument{Content: []byte("not a message")})
	assert.ErrorIs(t, err, domain.ErrSourceUnreadable)
}
