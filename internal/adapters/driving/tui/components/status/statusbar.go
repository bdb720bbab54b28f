// Package status provides the chat status bar.
package status

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/docent/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/docent/internal/adapters/driving/tui/styles"
)

// State is what the chat is doing.
type State string

const (
	StateReady     State = "ready"
	StateThinking  State = "thinking"
	StateAnswering State = "answering"
	StateError     State = "error"
)

// Bar shows the session, the chat state, and key hints.
type Bar struct {
	styles  *styles.Styles
	keymap  *keymap.KeyMap
	state   State
	label   string
	message string
	turns   int
	width   int
}

// NewBar creates a new status bar component.
func NewBar(s *styles.Styles, km *keymap.KeyMap) *Bar {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}
	return &Bar{
		styles: s,
		keymap: km,
		state:  StateReady,
		width:  80,
	}
}

// View renders the status bar.
func (s *Bar) View() string {
	left := s.renderLeft()
	right := s.renderRight()

	padding := s.width - lipgloss.Width(left) - lipgloss.Width(right)
	if padding < 1 {
		padding = 1
	}
	return s.styles.StatusBar.Width(s.width).Render(left + strings.Repeat(" ", padding) + right)
}

func (s *Bar) renderLeft() string {
	var parts []string
	if s.label != "" {
		parts = append(parts, s.styles.Subtitle.Render(s.label))
	}

	switch s.state {
	case StateThinking:
		parts = append(parts, s.styles.Muted.Render("Searching the document..."))
	case StateAnswering:
		parts = append(parts, s.styles.Muted.Render("Answering..."))
	case StateError:
		msg := "Error"
		if s.message != "" {
			msg = fmt.Sprintf("Error: %s", s.message)
		}
		parts = append(parts, s.styles.Error.Render(msg))
	case StateReady:
		switch {
		case s.message != "":
			parts = append(parts, s.styles.Success.Render(s.message))
		case s.turns == 1:
			parts = append(parts, s.styles.Normal.Render("1 question"))
		case s.turns > 1:
			parts = append(parts, s.styles.Normal.Render(fmt.Sprintf("%d questions", s.turns)))
		default:
			parts = append(parts, s.styles.Muted.Render("Ready"))
		}
	}
	return strings.Join(parts, "  ")
}

func (s *Bar) renderRight() string {
	var bindings []key.Binding
	if s.state == StateThinking || s.state == StateAnswering {
		bindings = s.keymap.StreamingHelp()
	} else {
		bindings = s.keymap.ShortHelp()
	}

	hints := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		hints = append(hints, fmt.Sprintf("%s: %s", h.Key, h.Desc))
	}
	return s.styles.Muted.Render(strings.Join(hints, " | "))
}

// SetState sets the current state and clears any message.
func (s *Bar) SetState(state State) {
	s.state = state
	s.message = ""
}

// State returns the current state.
func (s *Bar) State() State {
	return s.state
}

// SetMessage sets a message shown with the current state.
func (s *Bar) SetMessage(message string) {
	s.message = message
}

// Message returns the current message.
func (s *Bar) Message() string {
	return s.message
}

// SetLabel names the session.
func (s *Bar) SetLabel(label string) {
	s.label = label
}

// SetTurns sets the number of answered questions.
func (s *Bar) SetTurns(n int) {
	s.turns = n
}

// SetWidth sets the status bar width.
func (s *Bar) SetWidth(width int) {
	s.width = width
}

// Width returns the current width.
func (s *Bar) Width() int {
	return s.width
}
