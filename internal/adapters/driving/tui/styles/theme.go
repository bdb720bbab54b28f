// Package styles holds the chat colour theme and lipgloss styles.
package styles

import (
	"github.com/charmbracelet/lipgloss"
)

// Theme is the chat palette.
type Theme struct {
	Accent     lipgloss.Color // titles, focused input
	Speaker    lipgloss.Color // the user's questions
	Background lipgloss.Color
	Text       lipgloss.Color
	Dim        lipgloss.Color // sources, hints, status text
	Good       lipgloss.Color
	Unsure     lipgloss.Color // fallback answers
	Bad        lipgloss.Color
	Frame      lipgloss.Color
}

// DefaultTheme returns the teal-on-slate palette.
func DefaultTheme() *Theme {
	return &Theme{
		Accent:     lipgloss.Color("#14B8A6"),
		Speaker:    lipgloss.Color("#60A5FA"),
		Background: lipgloss.Color("#111827"),
		Text:       lipgloss.Color("#E5E7EB"),
		Dim:        lipgloss.Color("#6B7280"),
		Good:       lipgloss.Color("#86EFAC"),
		Unsure:     lipgloss.Color("#FCD34D"),
		Bad:        lipgloss.Color("#FCA5A5"),
		Frame:      lipgloss.Color("#374151"),
	}
}

// Styles are the rendered roles of the chat screen.
type Styles struct {
	theme *Theme

	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Normal   lipgloss.Style
	Muted    lipgloss.Style
	Error    lipgloss.Style
	Success  lipgloss.Style
	Help     lipgloss.Style

	InputField lipgloss.Style
	StatusBar  lipgloss.Style

	// Transcript roles. Answers sit two columns in, their sources four.
	Question lipgloss.Style
	Answer   lipgloss.Style
	Fallback lipgloss.Style
	Citation lipgloss.Style
}

// NewStyles derives the styles from theme; nil uses DefaultTheme.
func NewStyles(theme *Theme) *Styles {
	if theme == nil {
		theme = DefaultTheme()
	}
	fg := func(c lipgloss.Color) lipgloss.Style {
		return lipgloss.NewStyle().Foreground(c)
	}

	return &Styles{
		theme: theme,

		Title:    fg(theme.Accent).Bold(true),
		Subtitle: fg(theme.Speaker).Bold(true),
		Normal:   fg(theme.Text),
		Muted:    fg(theme.Dim),
		Error:    fg(theme.Bad),
		Success:  fg(theme.Good),
		Help:     fg(theme.Dim).Italic(true),

		InputField: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(theme.Frame).
			Padding(0, 1),
		StatusBar: fg(theme.Dim).
			Background(theme.Background).
			Padding(0, 1),

		Question: fg(theme.Speaker).Bold(true),
		Answer:   fg(theme.Text).PaddingLeft(2),
		Fallback: fg(theme.Unsure).Italic(true).PaddingLeft(2),
		Citation: fg(theme.Dim).PaddingLeft(4),
	}
}

// DefaultStyles returns styles with the default theme.
func DefaultStyles() *Styles {
	return NewStyles(DefaultTheme())
}

// Theme returns the theme used by these styles.
func (s *Styles) Theme() *Theme {
	return s.theme
}
