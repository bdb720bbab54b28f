package domain

import "time"

// AnswerCandidate is one chunk's attempt at answering a site question.
type AnswerCandidate struct {
	Answer string

	// Score is the model's helpfulness rating in [0,5].
	Score int

	// Source is the page URL.
	Source string

	// Date is the page's last modification time; zero when unknown.
	Date time.Time
}

// MaxCandidateScore is the top of the candidate rating scale.
const MaxCandidateScore = 5

// SiteAnswer is the outcome of a site question.
type SiteAnswer struct {
	Answer string

	// Candidates are the map-step results in retrieval order.
	Candidates []AnswerCandidate

	// Cached is true when the answer came from the conversation history.
	Cached bool
}

// MetaLastMod is the document metadata key holding a page's sitemap lastmod.
const MetaLastMod = "lastmod"

// ParseLastMod reads the W3C datetime forms sitemaps use.
func ParseLastMod(v string) (time.Time, bool) {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04Z07:00", "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// CrawlOptions limits a sitemap crawl.
type CrawlOptions struct {
	// Include keeps only URLs matching one of these regular expressions.
	Include []string

	// Exclude drops URLs matching any of these regular expressions.
	Exclude []string

	// MaxPages caps the number of pages fetched; 0 means no cap.
	MaxPages int
}
