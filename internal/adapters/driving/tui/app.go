package tui

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/charmbracelet/bubbles/help"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/docent/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/docent/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/docent/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/docent/internal/adapters/driving/tui/views/chat"
)

// App is the document chat following the Elm architecture.
type App struct {
	ports  *Ports
	ctx    context.Context
	styles *styles.Styles
	keymap *keymap.KeyMap

	chatView *chat.View
	help     help.Model
	showHelp bool

	width  int
	height int
	ready  bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates the chat application over the given ports.
func NewApp(ports *Ports) (*App, error) {
	if ports == nil {
		return nil, fmt.Errorf("creating app: %w", ErrNilPorts)
	}
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()

	h := help.New()
	h.ShowAll = true
	h.Styles.FullKey = s.Subtitle
	h.Styles.FullDesc = s.Muted

	return &App{
		ports:    ports,
		ctx:      context.Background(),
		styles:   s,
		keymap:   km,
		chatView: chat.NewView(s, km, ports.Chat, ports.Session),
		help:     h,
	}, nil
}

// WithContext sets the context questions run under.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	a.chatView.WithContext(ctx)
	return a
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		tea.SetWindowTitle("docent - "+filepath.Base(a.ports.Session.Label)),
		a.chatView.Init(),
	)
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetDimensions(msg.Width, msg.Height)
		a.chatView, cmd = a.chatView.Update(msg)
		return a, cmd

	case tea.KeyMsg:
		keyStr := msg.String()
		if keymap.Matches(keyStr, a.keymap.Quit) {
			return a, tea.Quit
		}
		if keymap.Matches(keyStr, a.keymap.Help) {
			a.showHelp = !a.showHelp
			return a, nil
		}
		if a.showHelp {
			// Any other key closes help.
			a.showHelp = false
			return a, nil
		}

	case messages.Quit:
		return a, tea.Quit
	}

	a.chatView, cmd = a.chatView.Update(msg)
	return a, cmd
}

// View implements tea.Model.
func (a *App) View() string {
	if !a.ready {
		return "Loading..."
	}
	if a.showHelp {
		return a.viewHelp()
	}
	return a.chatView.View()
}

func (a *App) viewHelp() string {
	return lipgloss.JoinVertical(lipgloss.Left,
		a.styles.Title.Render("docent"),
		a.styles.Muted.Render("Answers come only from "+filepath.Base(a.ports.Session.Label)+"."),
		"",
		a.help.View(a.keymap),
		"",
		a.styles.Help.Render("press any key to return"),
	)
}

// SetDimensions records the terminal size.
func (a *App) SetDimensions(width, height int) {
	a.width = width
	a.height = height
	a.help.Width = width
	a.ready = true
}

// Ready reports whether the app has received its size.
func (a *App) Ready() bool {
	return a.ready
}

// ShowingHelp reports whether the help screen is open.
func (a *App) ShowingHelp() bool {
	return a.showHelp
}

// Chat returns the chat view.
func (a *App) Chat() *chat.View {
	return a.chatView
}
