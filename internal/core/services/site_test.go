package services

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docent/internal/core/domain"
)

type fakeFetcher struct {
	pages []domain.RawDocument
}

func (f fakeFetcher) FetchSite(context.Context, string, domain.CrawlOptions) ([]domain.RawDocument, error) {
	return f.pages, nil
}

func page(url, body, lastmod string) domain.RawDocument {
	return domain.RawDocument{
		URI:      url,
		MIMEType: "text/html",
		Content:  []byte("<html><head><title>Hours</title></head><body><p>" + body + "</p></body></html>"),
		Metadata: map[string]any{domain.MetaLastMod: lastmod},
	}
}

var hoursSite = fakeFetcher{pages: []domain.RawDocument{
	page("https://example.com/old", "Opening hours are 9 to 5.", "2023-01-01"),
	page("https://example.com/new", "Opening hours are 8 to 6.", "2024-06-01"),
}}

func hoursLLM() *fakeLLM {
	return newFakeLLM().
		on("candidate", func(prompt string) (string, error) {
			if strings.Contains(prompt, "9 to 5") {
				return `{"answer": "9 to 5", "score": 3}`, nil
			}
			return "```json\n{\"answer\": \"8 to 6\", \"score\": \"4\"}\n```", nil
		}).
		reply("choose", "We are open 8 to 6.\nDate: 2024-06-01")
}

func newTestSite(t *testing.T, llm *fakeLLM, fetcher fakeFetcher) *SiteService {
	t.Helper()
	ingest := newTestIngestor(t, &letterEmbedder{})
	synth := NewSynthesizer(llm, stubPrompts{}, SynthesizerConfig{})
	return NewSiteService(fetcher, ingest, synth, llm, stubPrompts{}, SiteConfig{
		Concurrency:       2,
		MinCandidateScore: 1,
		Retry:             testRetry(),
	})
}

func TestSiteService_Ask_MapThenChoose(t *testing.T) {
	llm := hoursLLM()
	site := newTestSite(t, llm, hoursSite)
	sess, err := site.Crawl(context.Background(), "https://example.com/sitemap.xml", domain.CrawlOptions{})
	require.NoError(t, err)
	require.Len(t, sess.Documents, 2)

	ans, err := site.Ask(context.Background(), sess, "What are the opening hours?")

	require.NoError(t, err)
	assert.False(t, ans.Cached)
	assert.Equal(t, "We are open 8 to 6.", ans.Answer)
	require.Len(t, ans.Candidates, 2)
	assert.Equal(t, 2, llm.count("candidate"))
	assert.Equal(t, 1, llm.count("choose"))
	assert.Zero(t, llm.count("cache_lookup"), "nothing answered yet")

	choosePrompt := llm.last()
	newer := strings.Index(choosePrompt, "Answer: 8 to 6")
	older := strings.Index(choosePrompt, "Answer: 9 to 5")
	require.NotEqual(t, -1, newer)
	require.NotEqual(t, -1, older)
	assert.Less(t, newer, older, "higher score first")
	assert.Contains(t, choosePrompt, "Date: 2024-06-01")

	require.Len(t, sess.History, 1)
	assert.Len(t, sess.History[0].Citations, 2)
}

func TestSiteService_Ask_CandidatesKeepRetrievalOrder(t *testing.T) {
	llm := hoursLLM()
	site := newTestSite(t, llm, hoursSite)
	sess, err := site.Crawl(context.Background(), "https://example.com/sitemap.xml", domain.CrawlOptions{})
	require.NoError(t, err)
	question := "What are the opening hours?"
	hits, err := site.ingest.Retrieve(context.Background(), sess, question, site.cfg.TopK)
	require.NoError(t, err)
	require.Len(t, hits, 2)

	ans, err := site.Ask(context.Background(), sess, question)

	require.NoError(t, err)
	require.Len(t, ans.Candidates, len(hits))
	for i, h := range hits {
		assert.Equal(t, h.Chunk.Source(), ans.Candidates[i].Source, "candidate %d", i)
	}
}

func TestSiteService_Ask_RetriesFailedScoring(t *testing.T) {
	var failures atomic.Int32
	llm := hoursLLM()
	base := llm.replies["candidate"]
	llm.on("candidate", func(prompt string) (string, error) {
		if strings.Contains(prompt, "9 to 5") && failures.Add(1) == 1 {
			return "", &domain.ServiceError{Op: "chat", StatusCode: 503, Err: domain.ErrServiceFailure}
		}
		return base(prompt)
	})
	site := newTestSite(t, llm, hoursSite)
	sess, err := site.Crawl(context.Background(), "https://example.com/sitemap.xml", domain.CrawlOptions{})
	require.NoError(t, err)

	ans, err := site.Ask(context.Background(), sess, "What are the opening hours?")

	require.NoError(t, err)
	assert.Equal(t, 3, llm.count("candidate"), "one retry for the failed page")
	require.Len(t, ans.Candidates, 2)
	for _, c := range ans.Candidates {
		assert.NotEmpty(t, c.Answer)
	}
	assert.Equal(t, "We are open 8 to 6.", ans.Answer)
}

func TestSiteService_Ask_ReusesCachedAnswer(t *testing.T) {
	llm := hoursLLM().reply("cache_lookup", `{"is_new": false, "match": 1}`)
	site := newTestSite(t, llm, hoursSite)
	sess, err := site.Crawl(context.Background(), "https://example.com/sitemap.xml", domain.CrawlOptions{})
	require.NoError(t, err)

	first, err := site.Ask(context.Background(), sess, "What are the opening hours?")
	require.NoError(t, err)

	second, err := site.Ask(context.Background(), sess, "When are you open?")

	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Answer, second.Answer)
	assert.Equal(t, 1, llm.count("choose"), "no second choose call")
	assert.Equal(t, 2, llm.count("candidate"), "no second map step")
	assert.Contains(t, llm.last(), "1. What are the opening hours?")
	require.Len(t, sess.History, 2)
	assert.True(t, sess.History[1].Cached)
}

func TestSiteService_Ask_MalformedLookupIsNewQuestion(t *testing.T) {
	llm := hoursLLM().reply("cache_lookup", "sure, that was asked before")
	site := newTestSite(t, llm, hoursSite)
	sess, err := site.Crawl(context.Background(), "https://example.com/sitemap.xml", domain.CrawlOptions{})
	require.NoError(t, err)

	_, err = site.Ask(context.Background(), sess, "What are the opening hours?")
	require.NoError(t, err)
	ans, err := site.Ask(context.Background(), sess, "When are you open?")

	require.NoError(t, err)
	assert.False(t, ans.Cached)
	assert.Equal(t, 2, llm.count("choose"))
}

func TestSiteService_Ask_OutOfRangeMatchIsNewQuestion(t *testing.T) {
	llm := hoursLLM().reply("cache_lookup", `{"is_new": false, "match": 7}`)
	site := newTestSite(t, llm, hoursSite)
	sess, err := site.Crawl(context.Background(), "https://example.com/sitemap.xml", domain.CrawlOptions{})
	require.NoError(t, err)

	_, err = site.Ask(context.Background(), sess, "What are the opening hours?")
	require.NoError(t, err)
	ans, err := site.Ask(context.Background(), sess, "When are you open?")

	require.NoError(t, err)
	assert.False(t, ans.Cached)
}

func TestSiteService_Ask_NoSurvivorsFallsBack(t *testing.T) {
	llm := newFakeLLM().
		reply("candidate", `{"answer": "", "score": 0}`).
		reply("choose", "should not be used")
	site := newTestSite(t, llm, hoursSite)
	sess, err := site.Crawl(context.Background(), "https://example.com/sitemap.xml", domain.CrawlOptions{})
	require.NoError(t, err)

	ans, err := site.Ask(context.Background(), sess, "Who is the CEO?")

	require.NoError(t, err)
	assert.Equal(t, domain.FallbackAnswer, ans.Answer)
	assert.Zero(t, llm.count("choose"))
}

func TestSiteService_Ask_MalformedCandidateScoresZero(t *testing.T) {
	llm := newFakeLLM().
		reply("candidate", "not json at all").
		reply("choose", "unused")
	site := newTestSite(t, llm, hoursSite)
	sess, err := site.Crawl(context.Background(), "https://example.com/sitemap.xml", domain.CrawlOptions{})
	require.NoError(t, err)

	ans, err := site.Ask(context.Background(), sess, "What are the opening hours?")

	require.NoError(t, err)
	for _, c := range ans.Candidates {
		assert.Zero(t, c.Score)
		assert.Equal(t, "not json at all", c.Answer)
	}
	assert.Equal(t, domain.FallbackAnswer, ans.Answer)
}

func TestSiteService_Crawl_NoReadablePages(t *testing.T) {
	site := newTestSite(t, newFakeLLM(), fakeFetcher{pages: []domain.RawDocument{
		{URI: "https://example.com/x", MIMEType: "application/x-unknown", Content: []byte{0x1}},
	}})

	_, err := site.Crawl(context.Background(), "https://example.com/sitemap.xml", domain.CrawlOptions{})

	assert.ErrorIs(t, err, domain.ErrSourceUnreadable)
}

func TestRankCandidates(t *testing.T) {
	day := func(s string) time.Time {
		d, _ := time.Parse("2006-01-02", s)
		return d
	}
	cands := []domain.AnswerCandidate{
		{Answer: "low", Score: 0},
		{Answer: "old", Score: 4, Date: day("2020-01-01")},
		{Answer: "new", Score: 4, Date: day("2024-01-01")},
		{Answer: "best", Score: 5},
		{Answer: "", Score: 5},
	}

	got := rankCandidates(cands, 1)

	answers := make([]string, len(got))
	for i, c := range got {
		answers[i] = c.Answer
	}
	assert.Equal(t, []string{"best", "new", "old"}, answers)
}

func TestStripDates(t *testing.T) {
	d, _ := time.Parse("2006-01-02", "2024-06-01")
	cands := []domain.AnswerCandidate{{Date: d}}

	got := stripDates("Open 8 to 6 (2024-06-01).\nDate: 2024-06-01\n  date: whenever", cands)

	assert.Equal(t, "Open 8 to 6 ().", got)
}

func TestFlexScore(t *testing.T) {
	var r candidateReply
	require.NoError(t, decodeJSON(`{"answer":"a","score":"3.6"}`, &r))
	assert.Equal(t, flexScore(4), r.Score)

	require.NoError(t, decodeJSON(`{"answer":"a","score":2}`, &r))
	assert.Equal(t, flexScore(2), r.Score)

	assert.Error(t, decodeJSON(`{"answer":"a","score":"high"}`, &r))
}
