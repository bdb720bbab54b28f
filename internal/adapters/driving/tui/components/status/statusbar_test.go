package status

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBar_Defaults(t *testing.T) {
	bar := NewBar(nil, nil)

	require.NotNil(t, bar)
	assert.Equal(t, StateReady, bar.State())
	assert.Equal(t, 80, bar.Width())
	assert.Contains(t, bar.View(), "Ready")
}

func TestBar_States(t *testing.T) {
	tests := []struct {
		name  string
		setup func(b *Bar)
		want  []string
	}{
		{"thinking", func(b *Bar) { b.SetState(StateThinking) }, []string{"Searching the document", "esc: stop answer"}},
		{"answering", func(b *Bar) { b.SetState(StateAnswering) }, []string{"Answering", "esc: stop answer"}},
		{"error with message", func(b *Bar) {
			b.SetState(StateError)
			b.SetMessage(errors.New("model down").Error())
		}, []string{"Error: model down", "enter: ask"}},
		{"one question", func(b *Bar) { b.SetTurns(1) }, []string{"1 question"}},
		{"several questions", func(b *Bar) { b.SetTurns(3) }, []string{"3 questions"}},
		{"ready message", func(b *Bar) { b.SetMessage("notes.md reloaded") }, []string{"notes.md reloaded"}},
		{"label", func(b *Bar) { b.SetLabel("notes.md") }, []string{"notes.md", "Ready"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bar := NewBar(nil, nil)
			bar.SetWidth(120)
			tt.setup(bar)
			view := bar.View()
			for _, w := range tt.want {
				assert.Contains(t, view, w)
			}
		})
	}
}

func TestBar_SetStateClearsMessage(t *testing.T) {
	bar := NewBar(nil, nil)
	bar.SetMessage("reloaded")
	bar.SetState(StateThinking)
	assert.Equal(t, "", bar.Message())
}
