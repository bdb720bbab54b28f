// Package chat provides the conversation view: transcript, input, and status bar.
package chat

import (
	"context"
	"errors"
	"iter"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/docent/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/docent/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/docent/internal/adapters/driving/tui/components/transcript"
	"github.com/custodia-labs/docent/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/docent/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/docent/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/docent/internal/core/domain"
	"github.com/custodia-labs/docent/internal/core/ports/driving"
)

// ErrNoChatService indicates that no chat service was provided.
var ErrNoChatService = errors.New("chat service is required")

// stream is an answer being pulled fragment by fragment.
type stream struct {
	next   func() (string, error, bool)
	stop   func()
	cancel context.CancelFunc
}

// View is the chat screen.
type View struct {
	styles     *styles.Styles
	keymap     *keymap.KeyMap
	input      *input.QuestionInput
	transcript *transcript.Transcript
	statusbar  *status.Bar

	chat    driving.ChatService
	session *driving.Session
	ctx     context.Context

	stream *stream
	turns  int

	width  int
	height int
	ready  bool
}

// NewView creates a chat view over sess.
func NewView(s *styles.Styles, km *keymap.KeyMap, chat driving.ChatService, sess *driving.Session) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	bar := status.NewBar(s, km)
	if sess != nil {
		bar.SetLabel(filepath.Base(sess.Label))
	}

	return &View{
		styles:     s,
		keymap:     km,
		input:      input.NewQuestionInput(s),
		transcript: transcript.New(s),
		statusbar:  bar,
		chat:       chat,
		session:    sess,
		ctx:        context.Background(),
		width:      80,
		height:     24,
	}
}

// WithContext sets the context questions run under.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return v.input.Init()
}

// Update handles messages for the chat view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		v.ready = true
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.QuestionSubmitted:
		return v, v.ask(msg.Question)

	case messages.AnswerFragment:
		v.statusbar.SetState(status.StateAnswering)
		v.transcript.Append(msg.Text)
		return v, v.pull()

	case messages.AnswerCompleted:
		v.finish(msg)
		return v, v.input.Focus()

	case messages.SessionReloaded:
		v.handleReloaded(msg)
		return v, nil

	case messages.ErrorOccurred:
		v.statusbar.SetState(status.StateError)
		v.statusbar.SetMessage(msg.Err.Error())
		return v, nil
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	keyStr := msg.String()

	switch {
	case keymap.Matches(keyStr, v.keymap.ScrollUp):
		v.transcript.ScrollUp()
		return v, nil
	case keymap.Matches(keyStr, v.keymap.ScrollDown):
		v.transcript.ScrollDown()
		return v, nil
	case keymap.Matches(keyStr, v.keymap.Sources):
		v.transcript.ToggleSources()
		return v, nil
	case keymap.Matches(keyStr, v.keymap.Cancel):
		if v.stream != nil {
			v.stream.cancel()
		}
		return v, nil
	}

	if v.Streaming() {
		return v, nil
	}

	if keymap.Matches(keyStr, v.keymap.Send) {
		question := strings.TrimSpace(v.input.Value())
		if question == "" {
			return v, nil
		}
		v.input.Reset()
		return v, v.ask(question)
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

// ask starts streaming an answer to question.
func (v *View) ask(question string) tea.Cmd {
	if v.Streaming() || v.chat == nil {
		return nil
	}

	ctx, cancel := context.WithCancel(v.ctx)
	next, stop := iter.Pull2(v.chat.AskStream(ctx, v.session, question))
	v.stream = &stream{next: next, stop: stop, cancel: cancel}

	v.input.Blur()
	v.transcript.Ask(question)
	v.statusbar.SetState(status.StateThinking)
	return v.pull()
}

// pull reads the next fragment off the stream in a command. Only one pull
// is outstanding at a time, so next is never called concurrently.
func (v *View) pull() tea.Cmd {
	if v.stream == nil {
		return nil
	}
	next := v.stream.next
	return func() tea.Msg {
		frag, err, ok := next()
		switch {
		case !ok:
			return messages.AnswerCompleted{}
		case err != nil:
			return messages.AnswerCompleted{Err: err}
		default:
			return messages.AnswerFragment{Text: frag}
		}
	}
}

func (v *View) finish(msg messages.AnswerCompleted) {
	if v.stream != nil {
		v.stream.stop()
		v.stream.cancel()
		v.stream = nil
	}

	switch {
	case errors.Is(msg.Err, context.Canceled):
		v.transcript.Fail("(stopped)")
		v.statusbar.SetState(status.StateReady)
	case msg.Err != nil:
		v.transcript.Fail(msg.Err.Error())
		v.statusbar.SetState(status.StateError)
		v.statusbar.SetMessage(msg.Err.Error())
	default:
		turn := msg.Turn
		if t, ok := v.lastTurn(); ok {
			turn = t
		}
		v.transcript.Complete(turn)
		v.turns++
		v.statusbar.SetState(status.StateReady)
		v.statusbar.SetTurns(v.turns)
	}
}

func (v *View) lastTurn() (domain.Turn, bool) {
	if v.session == nil {
		return domain.Turn{}, false
	}
	v.session.Lock()
	defer v.session.Unlock()
	if len(v.session.History) == 0 {
		return domain.Turn{}, false
	}
	return v.session.History[len(v.session.History)-1], true
}

func (v *View) handleReloaded(msg messages.SessionReloaded) {
	name := filepath.Base(msg.Path)
	if msg.Err != nil {
		v.statusbar.SetState(status.StateError)
		v.statusbar.SetMessage("reload failed: " + msg.Err.Error())
		return
	}
	v.transcript.Notice(name + " changed and was reloaded.")
	if !v.Streaming() {
		v.statusbar.SetState(status.StateReady)
		v.statusbar.SetMessage(name + " reloaded")
	}
}

// View renders the chat.
func (v *View) View() string {
	return lipgloss.JoinVertical(lipgloss.Left,
		v.transcript.View(),
		v.input.View(),
		v.statusbar.View(),
	)
}

// SetDimensions lays out the transcript above the input and status bar.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.input.SetWidth(width)
	v.statusbar.SetWidth(width)
	// input box is three rows, status bar one
	v.transcript.SetSize(width, height-4)
}

// Streaming reports whether an answer is in progress.
func (v *View) Streaming() bool {
	return v.stream != nil
}

// Ready reports whether the view has received its size.
func (v *View) Ready() bool {
	return v.ready
}

// Transcript exposes the conversation for rendering checks.
func (v *View) Transcript() *transcript.Transcript {
	return v.transcript
}

// Status exposes the status bar.
func (v *View) Status() *status.Bar {
	return v.statusbar
}
