package llmjson

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docent/internal/core/domain"
)

type scored struct {
	Answer string `json:"answer"`
	Score  int    `json:"score"`
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"plain", `{"answer":"yes","score":4}`},
		{"fenced", "```json\n{\"answer\":\"yes\",\"score\":4}\n```"},
		{"fence without tag", "```\n{\"answer\":\"yes\",\"score\":4}\n```"},
		{"prose around", `Sure! Here it is: {"answer":"yes","score":4} Hope that helps.`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got scored
			require.NoError(t, Decode(tt.content, &got))
			assert.Equal(t, scored{Answer: "yes", Score: 4}, got)
		})
	}
}

func TestDecode_Array(t *testing.T) {
	var got []int
	require.NoError(t, Decode("numbers: [1, 2, 3]", &got))
	assert.Equal(t, []int{1, 2, 3}, got)
}

func TestDecode_Malformed(t *testing.T) {
	var got scored
	assert.ErrorIs(t, Decode("", &got), domain.ErrMalformedResponse)
	assert.ErrorIs(t, Decode("no json here", &got), domain.ErrMalformedResponse)
	assert.ErrorIs(t, Decode(`{"answer": }`, &got), domain.ErrMalformedResponse)
}

func TestSnippet(t *testing.T) {
	assert.Equal(t, "<empty>", Snippet("  "))
	assert.Equal(t, "a b", Snippet("a\n\tb"))
	assert.True(t, strings.HasSuffix(Snippet(strings.Repeat("x", 500)), "..."))
}
