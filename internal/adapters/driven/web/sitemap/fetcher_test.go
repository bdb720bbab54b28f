package sitemap

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docent/internal/core/domain"
)

func newSite(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	var srv *httptest.Server

	mux.HandleFunc("/sitemap.xml", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?>
<sitemapindex xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <sitemap><loc>%[1]s/blog.xml</loc></sitemap>
  <sitemap><loc>%[1]s/docs.xml</loc></sitemap>
  <sitemap><loc>%[1]s/broken.xml</loc></sitemap>
</sitemapindex>`, srv.URL)
	})
	mux.HandleFunc("/blog.xml", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, `<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>%[1]s/blog/one</loc><lastmod>2024-03-01</lastmod></url>
  <url><loc> %[1]s/blog/missing </loc></url>
  <url><loc>%[1]s/blog/one</loc></url>
</urlset>`, srv.URL)
	})
	mux.HandleFunc("/docs.xml", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, `<urlset><url><loc>%[1]s/docs/start</loc></url><url><loc>%[1]s/docs/private</loc></url></urlset>`, srv.URL)
	})
	mux.HandleFunc("/broken.xml", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	})
	mux.HandleFunc("/blog/one", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<html><body><p>Post one</p></body></html>"))
	})
	mux.HandleFunc("/docs/start", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html><body>Start here</body></html>"))
	})
	mux.HandleFunc("/docs/private", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("secret"))
	})
	mux.HandleFunc("/blog/missing", http.NotFound)

	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchSite_FollowsIndexAndFilters(t *testing.T) {
	srv := newSite(t)
	f := New(Config{RequestsPerSecond: 1000})

	docs, err := f.FetchSite(context.Background(), srv.URL+"/sitemap.xml", domain.CrawlOptions{
		Exclude: []string{"/private$"},
	})
	require.NoError(t, err)

	require.Len(t, docs, 2)
	assert.Equal(t, srv.URL+"/blog/one", docs[0].URI)
	assert.Equal(t, "text/html", docs[0].MIMEType)
	assert.Equal(t, "2024-03-01", docs[0].Metadata[MetaLastMod])
	assert.Contains(t, string(docs[0].Content), "Post one")
	assert.Equal(t, srv.URL+"/docs/start", docs[1].URI)
	_, hasLastMod := docs[1].Metadata[MetaLastMod]
	assert.False(t, hasLastMod)
}

func TestFetchSite_IncludeAndMaxPages(t *testing.T) {
	srv := newSite(t)
	f := New(Config{RequestsPerSecond: 1000})

	docs, err := f.FetchSite(context.Background(), srv.URL+"/docs.xml", domain.CrawlOptions{
		Include:  []string{"/docs/"},
		MaxPages: 1,
	})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, srv.URL+"/docs/start", docs[0].URI)
}

func TestFetchSite_BadPattern(t *testing.T) {
	f := New(Config{})
	_, err := f.FetchSite(context.Background(), "http://unused", domain.CrawlOptions{Include: []string{"("}})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestFetchSite_NotASitemap(t *testing.T) {
	srv := newSite(t)
	f := New(Config{RequestsPerSecond: 1000})

	_, err := f.FetchSite(context.Background(), srv.URL+"/blog/one", domain.CrawlOptions{})
	assert.ErrorIs(t, err, domain.ErrSourceUnreadable)
}

func TestFetchSite_NoPagesFetched(t *testing.T) {
	srv := newSite(t)
	f := New(Config{RequestsPerSecond: 1000})

	_, err := f.FetchSite(context.Background(), srv.URL+"/blog.xml", domain.CrawlOptions{Include: []string{"missing"}})
	assert.ErrorIs(t, err, domain.ErrSourceUnreadable)
}

func TestKeep(t *testing.T) {
	inc, err := compileAll([]string{"/a/", "/b/"})
	require.NoError(t, err)
	exc, err := compileAll([]string{"draft"})
	require.NoError(t, err)

	assert.True(t, keep("https://x/a/1", inc, exc))
	assert.True(t, keep("https://x/b/2", inc, nil))
	assert.False(t, keep("https://x/c/3", inc, exc))
	assert.False(t, keep("https://x/a/draft", inc, exc))
	assert.True(t, keep("https://x/anything", nil, nil))
}
