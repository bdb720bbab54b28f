package services

import (
	"context"
	"iter"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/docent/internal/core/domain"
	"github.com/custodia-labs/docent/internal/core/ports/driving"
	"github.com/custodia-labs/docent/internal/logger"
)

var _ driving.ChatService = (*ChatService)(nil)

// DefaultTopK is the number of chunks retrieved when none is configured.
const DefaultTopK = 4

// ChatService answers questions about ingested documents.
type ChatService struct {
	ingest *Ingestor
	synth  *Synthesizer
	memory *MemoryCompactor
	topK   int
}

// NewChatService creates a chat service. topK <= 0 uses DefaultTopK.
func NewChatService(ingest *Ingestor, synth *Synthesizer, memory *MemoryCompactor, topK int) *ChatService {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &ChatService{ingest: ingest, synth: synth, memory: memory, topK: topK}
}

// Open loads path and builds a session over it.
func (s *ChatService) Open(ctx context.Context, path string) (*driving.Session, error) {
	doc, err := s.ingest.LoadFile(ctx, path)
	if err != nil {
		return nil, err
	}
	return s.ingest.NewSession(ctx, filepath.Base(path), []domain.Document{doc})
}

// OpenDocuments builds a session from loaded documents.
func (s *ChatService) OpenDocuments(ctx context.Context, label string, docs []domain.Document) (*driving.Session, error) {
	return s.ingest.NewSession(ctx, label, docs)
}

// Reload re-reads path and rebuilds the index in place.
func (s *ChatService) Reload(ctx context.Context, sess *driving.Session, path string) error {
	doc, err := s.ingest.LoadFile(ctx, path)
	if err != nil {
		return err
	}
	sess.Lock()
	defer sess.Unlock()
	return s.ingest.Index(ctx, sess, []domain.Document{doc})
}

// Retrieve returns the top-k chunks for question. k <= 0 uses the configured default.
func (s *ChatService) Retrieve(ctx context.Context, sess *driving.Session, question string, k int) ([]domain.ScoredChunk, error) {
	if k <= 0 {
		k = s.topK
	}
	return s.ingest.Retrieve(ctx, sess, question, k)
}

// Ask answers question from the session and records the turn.
func (s *ChatService) Ask(ctx context.Context, sess *driving.Session, question string) (domain.Turn, error) {
	if sess == nil {
		return domain.Turn{}, domain.ErrNoSession
	}
	sess.Lock()
	defer sess.Unlock()

	hits, err := s.usableHits(ctx, sess, question)
	if err != nil {
		return domain.Turn{}, err
	}
	answer, err := s.synth.Answer(ctx, question, sess.Memory.Render(), hits)
	if err != nil {
		return domain.Turn{}, err
	}
	turn := newTurn(question, answer, hits)
	s.record(ctx, sess, turn)
	return turn, nil
}

// AskStream streams the answer. The turn is recorded only when the stream
// ends without error and the consumer read it to the end.
func (s *ChatService) AskStream(ctx context.Context, sess *driving.Session, question string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		if sess == nil {
			yield("", domain.ErrNoSession)
			return
		}
		sess.Lock()
		defer sess.Unlock()

		hits, err := s.usableHits(ctx, sess, question)
		if err != nil {
			yield("", err)
			return
		}

		var answer strings.Builder
		for frag, err := range s.synth.AnswerStream(ctx, question, sess.Memory.Render(), hits) {
			if err != nil {
				yield("", err)
				return
			}
			answer.WriteString(frag)
			if !yield(frag, nil) {
				logger.Debug("chat: stream abandoned, turn not recorded")
				return
			}
		}
		s.record(ctx, sess, newTurn(question, NormaliseAnswer(answer.String()), hits))
	}
}

func (s *ChatService) usableHits(ctx context.Context, sess *driving.Session, question string) ([]domain.ScoredChunk, error) {
	hits, err := s.ingest.Retrieve(ctx, sess, question, s.topK)
	if err != nil {
		return nil, err
	}
	return s.synth.Usable(hits), nil
}

// record appends the turn to history and memory. A compaction failure is
// logged; the turns are kept.
func (s *ChatService) record(ctx context.Context, sess *driving.Session, turn domain.Turn) {
	sess.History = append(sess.History, turn)
	if err := s.memory.Append(ctx, &sess.Memory, turn); err != nil {
		logger.Warn("conversation memory not compacted: %v", err)
	}
}

func newTurn(question, answer string, hits []domain.ScoredChunk) domain.Turn {
	turn := domain.Turn{Question: question, Answer: answer}
	if answer != domain.FallbackAnswer {
		turn.Citations = citations(hits)
	}
	return turn
}
