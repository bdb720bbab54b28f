package driving

import (
	"sync"
	"time"

	"github.com/custodia-labs/docent/internal/core/domain"
	"github.com/custodia-labs/docent/internal/core/ports/driven"
)

// Session is one ingested source: its documents, chunks, index, and conversation.
// A session is discarded or rebuilt when the source changes and nothing in it
// is persisted. Questions against one session are serialised.
type Session struct {
	sync.Mutex

	ID        string
	Label     string
	Documents []domain.Document
	Chunks    []domain.Chunk
	Index     driven.VectorIndex

	// Memory is the bounded conversation folded into prompts.
	Memory domain.Memory

	// History is every turn in order, uncompacted, for display and answer reuse.
	History []domain.Turn

	CreatedAt time.Time
}

// AnsweredHistory returns the completed turns, leaving out an unanswered trailing entry.
func (s *Session) AnsweredHistory() []domain.Turn {
	out := make([]domain.Turn, 0, len(s.History))
	for _, t := range s.History {
		if t.Answered() {
			out = append(out, t)
		}
	}
	return out
}

// DocumentByID finds a session document.
func (s *Session) DocumentByID(id string) (*domain.Document, bool) {
	for i := range s.Documents {
		if s.Documents[i].ID == id {
			return &s.Documents[i], true
		}
	}
	return nil, false
}

// ResearchThread is one investment-agent conversation. It owns the messages
// exchanged so far, tool results included, and grows with each question.
type ResearchThread struct {
	ID        string
	Messages  []driven.ChatMessage
	Questions int
	CreatedAt time.Time
}
