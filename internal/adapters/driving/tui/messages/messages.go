// Package messages defines Bubbletea message types for the TUI.
package messages

import (
	"github.com/custodia-labs/docent/internal/core/domain"
)

// QuestionSubmitted is sent when the user asks something.
type QuestionSubmitted struct {
	Question string
}

// AnswerFragment carries the next piece of a streamed answer.
type AnswerFragment struct {
	Text string
}

// AnswerCompleted ends a streamed answer. Turn is the recorded turn
// when Err is nil.
type AnswerCompleted struct {
	Turn domain.Turn
	Err  error
}

// SessionReloaded is sent from the file watcher after the document changed.
type SessionReloaded struct {
	Path string
	Err  error
}

// ErrorOccurred signals that an error happened.
type ErrorOccurred struct {
	Err error
}

// Quit signals the application should exit.
type Quit struct{}
