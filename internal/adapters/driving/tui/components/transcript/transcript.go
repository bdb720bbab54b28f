// Package transcript renders the scrolling conversation.
package transcript

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/docent/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/docent/internal/core/domain"
)

// entry is one question and its (possibly partial) answer.
type entry struct {
	question  string
	answer    strings.Builder
	citations []domain.Citation
	cached    bool
	done      bool
	note      string
}

// Transcript is the conversation shown above the input.
type Transcript struct {
	styles      *styles.Styles
	viewport    viewport.Model
	entries     []*entry
	showSources bool
}

// New creates an empty transcript.
func New(s *styles.Styles) *Transcript {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &Transcript{
		styles:      s,
		viewport:    viewport.New(80, 20),
		showSources: true,
	}
}

// SetSize resizes the visible area.
func (t *Transcript) SetSize(width, height int) {
	if height < 1 {
		height = 1
	}
	t.viewport.Width = width
	t.viewport.Height = height
	t.refresh()
}

// Ask starts a new entry for question.
func (t *Transcript) Ask(question string) {
	t.entries = append(t.entries, &entry{question: question})
	t.refresh()
}

// Append adds a streamed fragment to the open entry.
func (t *Transcript) Append(fragment string) {
	e := t.open()
	if e == nil {
		return
	}
	e.answer.WriteString(fragment)
	t.refresh()
}

// Complete closes the open entry with the recorded turn.
func (t *Transcript) Complete(turn domain.Turn) {
	e := t.open()
	if e == nil {
		return
	}
	if turn.Answer != "" {
		e.answer.Reset()
		e.answer.WriteString(turn.Answer)
	}
	e.citations = turn.Citations
	e.cached = turn.Cached
	e.done = true
	t.refresh()
}

// Fail closes the open entry with a note instead of citations.
func (t *Transcript) Fail(note string) {
	e := t.open()
	if e == nil {
		return
	}
	e.note = note
	e.done = true
	t.refresh()
}

// Notice adds a line that is not part of any answer.
func (t *Transcript) Notice(text string) {
	t.entries = append(t.entries, &entry{note: text, done: true})
	t.refresh()
}

// ToggleSources shows or hides citations.
func (t *Transcript) ToggleSources() {
	t.showSources = !t.showSources
	t.refresh()
}

// ShowingSources reports whether citations are shown.
func (t *Transcript) ShowingSources() bool {
	return t.showSources
}

// ScrollUp moves half a page towards the start.
func (t *Transcript) ScrollUp() {
	t.viewport.ScrollUp(max(1, t.viewport.Height/2))
}

// ScrollDown moves half a page towards the end.
func (t *Transcript) ScrollDown() {
	t.viewport.ScrollDown(max(1, t.viewport.Height/2))
}

// Len returns the number of entries.
func (t *Transcript) Len() int {
	return len(t.entries)
}

// View renders the visible part of the conversation.
func (t *Transcript) View() string {
	return t.viewport.View()
}

// Render returns the whole conversation.
func (t *Transcript) Render() string {
	width := t.viewport.Width
	if width <= 0 {
		width = 80
	}
	blocks := make([]string, 0, len(t.entries))
	for _, e := range t.entries {
		blocks = append(blocks, t.renderEntry(e, width))
	}
	return strings.Join(blocks, "\n\n")
}

func (t *Transcript) renderEntry(e *entry, width int) string {
	if e.question == "" {
		return t.styles.Muted.Render(e.note)
	}

	lines := []string{t.styles.Question.Render("> " + e.question)}

	answer := e.answer.String()
	switch {
	case answer == "" && !e.done:
		lines = append(lines, t.styles.Muted.PaddingLeft(2).Render("..."))
	case domain.IsFallback(answer):
		lines = append(lines, t.styles.Fallback.Width(width).Render(answer))
	case answer != "":
		lines = append(lines, t.styles.Answer.Width(width).Render(answer))
	}

	if e.cached {
		lines = append(lines, t.styles.Citation.Render("(from an earlier answer)"))
	}
	if e.note != "" {
		lines = append(lines, t.styles.Error.PaddingLeft(2).Render(e.note))
	}
	if t.showSources {
		for _, c := range e.citations {
			ref := fmt.Sprintf("[%s #%d] %s", c.Source, c.Position, oneLine(c.Excerpt, width-12))
			lines = append(lines, t.styles.Citation.Render(ref))
		}
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (t *Transcript) open() *entry {
	if len(t.entries) == 0 {
		return nil
	}
	e := t.entries[len(t.entries)-1]
	if e.done || e.question == "" {
		return nil
	}
	return e
}

// refresh re-renders and follows the conversation if the view was at the end.
func (t *Transcript) refresh() {
	follow := t.viewport.AtBottom()
	t.viewport.SetContent(t.Render())
	if follow {
		t.viewport.GotoBottom()
	}
}

func oneLine(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if n < 10 {
		n = 10
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
