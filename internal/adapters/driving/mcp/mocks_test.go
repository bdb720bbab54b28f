package mcp

import (
	"context"
	"iter"
	"testing"

	"github.com/custodia-labs/docent/internal/core/domain"
	"github.com/custodia-labs/docent/internal/core/ports/driving"
)

// mockChatService is a mock implementation of driving.ChatService.
type mockChatService struct {
	turn domain.Turn
	hits []domain.ScoredChunk
	err  error

	gotQuestion string
	gotK        int
}

func (m *mockChatService) Open(_ context.Context, _ string) (*driving.Session, error) {
	return &driving.Session{}, m.err
}

func (m *mockChatService) OpenDocuments(_ context.Context, _ string, _ []domain.Document) (*driving.Session, error) {
	return &driving.Session{}, m.err
}

func (m *mockChatService) Reload(_ context.Context, _ *driving.Session, _ string) error {
	return m.err
}

func (m *mockChatService) Retrieve(_ context.Context, _ *driving.Session, q string, k int) ([]domain.ScoredChunk, error) {
	m.gotQuestion, m.gotK = q, k
	return m.hits, m.err
}

func (m *mockChatService) Ask(_ context.Context, _ *driving.Session, q string) (domain.Turn, error) {
	m.gotQuestion = q
	if m.err != nil {
		return domain.Turn{}, m.err
	}
	t := m.turn
	t.Question = q
	return t, nil
}

func (m *mockChatService) AskStream(_ context.Context, _ *driving.Session, _ string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		if m.err != nil {
			yield("", m.err)
			return
		}
		yield(m.turn.Answer, nil)
	}
}

func newTestServer(t *testing.T, chat *mockChatService, sess *driving.Session) *Server {
	t.Helper()
	if sess == nil {
		sess = &driving.Session{}
	}
	s, err := NewServer(&Ports{Chat: chat, Session: sess})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	return s
}
