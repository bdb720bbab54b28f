package driving

import (
	"context"
	"iter"

	"github.com/custodia-labs/docent/internal/core/domain"
)

// ChatService answers questions about ingested documents.
type ChatService interface {
	// Open loads, chunks, embeds, and indexes a file.
	Open(ctx context.Context, path string) (*Session, error)

	// OpenDocuments builds a session from already-loaded documents.
	OpenDocuments(ctx context.Context, label string, docs []domain.Document) (*Session, error)

	// Reload rebuilds the session index from path, keeping the conversation.
	Reload(ctx context.Context, sess *Session, path string) error

	// Retrieve returns the top-k chunks for a question without generating an answer.
	Retrieve(ctx context.Context, sess *Session, question string, k int) ([]domain.ScoredChunk, error)

	// Ask answers a question and records the turn.
	Ask(ctx context.Context, sess *Session, question string) (domain.Turn, error)

	// AskStream answers a question incrementally. The turn is recorded only
	// when the stream completes.
	AskStream(ctx context.Context, sess *Session, question string) iter.Seq2[string, error]
}

// SiteService answers questions about a crawled website.
type SiteService interface {
	// Crawl fetches the sitemap's pages and builds a session from them.
	Crawl(ctx context.Context, sitemapURL string, opts domain.CrawlOptions) (*Session, error)

	// Ask reuses an earlier answer when the question repeats, otherwise
	// scores each retrieved page and combines the best candidates.
	Ask(ctx context.Context, sess *Session, question string) (*domain.SiteAnswer, error)
}

// MeetingService transcribes and summarises recordings.
type MeetingService interface {
	// Prepare extracts, splits, and transcribes a recording. Completed stages
	// are skipped. On error the returned meeting holds the finished stages.
	Prepare(ctx context.Context, videoPath string) (*domain.Meeting, error)

	// Summarise refines a summary across the transcript's chunks.
	// onStep, if set, is called after each step with (done, total).
	Summarise(ctx context.Context, m *domain.Meeting, onStep func(done, total int)) (string, error)

	// Open builds a chat session over the transcript.
	Open(ctx context.Context, m *domain.Meeting) (*Session, error)
}

// QuizService generates multiple-choice quizzes.
type QuizService interface {
	FromFile(ctx context.Context, path string, difficulty domain.Difficulty) (*domain.Quiz, error)
	FromTopic(ctx context.Context, topic string, difficulty domain.Difficulty) (*domain.Quiz, error)
}

// ResearchService runs the tool-using investment agent.
type ResearchService interface {
	// NewThread starts an empty conversation.
	NewThread() *ResearchThread

	// Research answers question within thread, calling onTool before each
	// tool invocation. Earlier questions and tool results in the thread stay
	// visible to the model, so follow-ups can refer to them. A nil thread
	// runs the question on its own.
	Research(ctx context.Context, thread *ResearchThread, question string, onTool func(domain.ToolCall)) (string, error)
}

// CacheService inspects the embedding cache.
type CacheService interface {
	Stats(ctx context.Context) (CacheStats, error)
	Clear(ctx context.Context) error
}

// CacheStats mirrors the store's statistics for display.
type CacheStats struct {
	Backend string
	Entries int
	Bytes   int64
	Path    string
}
