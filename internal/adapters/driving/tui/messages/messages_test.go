package messages

import (
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/docent/internal/core/domain"
)

func TestMessages_AreDistinguishable(t *testing.T) {
	msgs := []tea.Msg{
		QuestionSubmitted{Question: "q"},
		AnswerFragment{Text: "a"},
		AnswerCompleted{Turn: domain.Turn{Answer: "a"}},
		SessionReloaded{Path: "notes.md"},
		ErrorOccurred{Err: errors.New("boom")},
		Quit{},
	}

	seen := map[string]bool{}
	for _, m := range msgs {
		var kind string
		switch m.(type) {
		case QuestionSubmitted:
			kind = "question"
		case AnswerFragment:
			kind = "fragment"
		case AnswerCompleted:
			kind = "completed"
		case SessionReloaded:
			kind = "reloaded"
		case ErrorOccurred:
			kind = "error"
		case Quit:
			kind = "quit"
		}
		assert.NotEmpty(t, kind)
		assert.False(t, seen[kind])
		seen[kind] = true
	}
}

func TestAnswerCompleted_Error(t *testing.T) {
	msg := AnswerCompleted{Err: domain.ErrSourceUnreadable}
	assert.ErrorIs(t, msg.Err, domain.ErrSourceUnreadable)
	assert.Empty(t, msg.Turn.Answer)
}
