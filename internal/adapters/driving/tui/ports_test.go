package tui

import (
	"context"
	"iter"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/docent/internal/core/domain"
	"github.com/custodia-labs/docent/internal/core/ports/driving"
)

// stubChat implements driving.ChatService with a fixed answer.
type stubChat struct {
	answer string
}

func (s *stubChat) Open(context.Context, string) (*driving.Session, error) { return nil, nil }
func (s *stubChat) OpenDocuments(context.Context, string, []domain.Document) (*driving.Session, error) {
	return nil, nil
}
func (s *stubChat) Reload(context.Context, *driving.Session, string) error { return nil }
func (s *stubChat) Retrieve(context.Context, *driving.Session, string, int) ([]domain.ScoredChunk, error) {
	return nil, nil
}
func (s *stubChat) Ask(context.Context, *driving.Session, string) (domain.Turn, error) {
	return domain.Turn{Answer: s.answer}, nil
}

func (s *stubChat) AskStream(_ context.Context, sess *driving.Session, q string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		if !yield(s.answer, nil) {
			return
		}
		sess.Lock()
		sess.History = append(sess.History, domain.Turn{Question: q, Answer: s.answer})
		sess.Unlock()
	}
}

func validPorts() *Ports {
	return &Ports{
		Chat:    &stubChat{answer: "From the notes."},
		Session: &driving.Session{Label: "/tmp/notes.md"},
	}
}

func TestPorts_Validate(t *testing.T) {
	tests := []struct {
		name  string
		ports *Ports
		want  error
	}{
		{"complete", validPorts(), nil},
		{"missing chat", &Ports{Session: &driving.Session{}}, ErrMissingChatService},
		{"missing session", &Ports{Chat: &stubChat{}}, ErrMissingSession},
		{"empty", &Ports{}, ErrMissingChatService},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.ports.Validate(), tt.want)
		})
	}
}
