package transcript

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/docent/internal/core/domain"
)

func TestTranscript_StreamThenComplete(t *testing.T) {
	tr := New(nil)
	tr.SetSize(80, 20)

	tr.Ask("Capital?")
	assert.Contains(t, tr.Render(), "...")

	tr.Append("Par")
	tr.Append("is.")
	assert.Contains(t, tr.Render(), "Paris.")

	tr.Complete(domain.Turn{
		Answer:    "Paris.",
		Citations: []domain.Citation{{Source: "notes.md", Position: 1, Excerpt: "The capital\nis Paris"}},
	})

	out := tr.Render()
	assert.Contains(t, out, "> Capital?")
	assert.Contains(t, out, "[notes.md #1] The capital is Paris")
	assert.Equal(t, 1, tr.Len())
}

func TestTranscript_ToggleSources(t *testing.T) {
	tr := New(nil)
	tr.Ask("q")
	tr.Complete(domain.Turn{Answer: "a", Citations: []domain.Citation{{Source: "s.md"}}})

	assert.True(t, tr.ShowingSources())
	tr.ToggleSources()
	assert.False(t, tr.ShowingSources())
	assert.NotContains(t, tr.Render(), "s.md")
}

func TestTranscript_FailAndNotice(t *testing.T) {
	tr := New(nil)
	tr.Ask("q")
	tr.Append("partial")
	tr.Fail("stopped")
	tr.Notice("notes.md reloaded")

	out := tr.Render()
	assert.Contains(t, out, "partial")
	assert.Contains(t, out, "stopped")
	assert.Contains(t, out, "notes.md reloaded")

	// Closed entries ignore further fragments.
	tr.Append("late")
	assert.NotContains(t, tr.Render(), "late")
}

func TestTranscript_CachedMarker(t *testing.T) {
	tr := New(nil)
	tr.Ask("q")
	tr.Complete(domain.Turn{Answer: "a", Cached: true})
	assert.Contains(t, tr.Render(), "earlier answer")
}

func TestTranscript_FollowsNewContent(t *testing.T) {
	tr := New(nil)
	tr.SetSize(40, 3)
	for i := 0; i < 10; i++ {
		tr.Ask("question")
		tr.Complete(domain.Turn{Answer: "answer"})
	}
	tr.Ask("last one")

	assert.Contains(t, tr.View(), "last one")

	for i := 0; i < 3; i++ {
		tr.ScrollUp()
	}
	assert.NotContains(t, tr.View(), "last one")
	for i := 0; i < 3; i++ {
		tr.ScrollDown()
	}
	assert.Contains(t, tr.View(), "last one")
}

func TestOneLine(t *testing.T) {
	assert.Equal(t, "a b", oneLine("a\n\tb", 20))
	assert.Equal(t, strings.Repeat("x", 9)+"…", oneLine(strings.Repeat("x", 30), 10))
}
