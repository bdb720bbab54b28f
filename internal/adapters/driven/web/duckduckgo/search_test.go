package duckduckgo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docent/internal/core/domain"
)

func TestSearch_Digest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Cloudflare stock symbol", r.URL.Query().Get("q"))
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		_, _ = w.Write([]byte(`{
			"Heading": "Cloudflare",
			"AbstractText": "Cloudflare, Inc. is listed on the NYSE as NET.",
			"AbstractURL": "https://en.wikipedia.org/wiki/Cloudflare",
			"RelatedTopics": [
				{"Text": "NET - ticker", "FirstURL": "https://duckduckgo.com/NET"},
				{"Name": "Group", "Topics": [{"Text": "CDN", "FirstURL": "https://duckduckgo.com/CDN"}]},
				{"Text": "Third", "FirstURL": "https://duckduckgo.com/3"}
			]
		}`))
	}))
	defer srv.Close()

	s := New(Config{Endpoint: srv.URL, MaxRelated: 2})
	out, err := s.Search(context.Background(), " Cloudflare stock symbol ")
	require.NoError(t, err)

	assert.Contains(t, out, "Cloudflare\n")
	assert.Contains(t, out, "listed on the NYSE as NET. (https://en.wikipedia.org/wiki/Cloudflare)")
	assert.Contains(t, out, "- NET - ticker")
	assert.Contains(t, out, "- CDN")
	assert.NotContains(t, out, "Third")
}

func TestSearch_Empty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"Heading":"","RelatedTopics":[]}`))
	}))
	defer srv.Close()

	out, err := New(Config{Endpoint: srv.URL}).Search(context.Background(), "zzzz")
	require.NoError(t, err)
	assert.Equal(t, `No results found for "zzzz".`, out)
}

func TestSearch_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	s := New(Config{Endpoint: srv.URL})

	_, err := s.Search(context.Background(), "x")
	assert.ErrorIs(t, err, domain.ErrServiceFailure)

	_, err = s.Search(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
