package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docent/internal/core/domain"
)

func chunks(texts ...string) []domain.Chunk {
	out := make([]domain.Chunk, len(texts))
	for i, t := range texts {
		out[i] = domain.Chunk{Content: t, Position: i}
	}
	return out
}

func TestSummariser_RefinesEachChunk(t *testing.T) {
	refines := []string{"NO_CHANGE", "Owls hunt at night and sleep by day."}
	llm := newFakeLLM().
		reply("summarise", "Owls hunt at night.").
		on("refine", func(string) (string, error) {
			r := refines[0]
			refines = refines[1:]
			return r, nil
		})
	s := NewSummariser(llm, stubPrompts{}, testRetry())

	var done []int
	summary, err := s.Summarise(context.Background(), chunks("a", "b", "c"), func(d, total int) {
		assert.Equal(t, 3, total)
		done = append(done, d)
	})

	require.NoError(t, err)
	assert.Equal(t, "Owls hunt at night and sleep by day.", summary)
	assert.Equal(t, []int{1, 2, 3}, done)
	assert.Equal(t, 1, llm.count("summarise"))
	assert.Equal(t, 2, llm.count("refine"), "a skipped refine still calls the model")
	assert.Contains(t, llm.last(), "SUMMARY: Owls hunt at night.\n")
}

func TestSummariser_Empty(t *testing.T) {
	s := NewSummariser(newFakeLLM(), stubPrompts{}, testRetry())

	_, err := s.Summarise(context.Background(), nil, nil)

	assert.ErrorIs(t, err, domain.ErrEmptyContext)
}

func TestRefined(t *testing.T) {
	assert.Equal(t, "old", refined("old", "NO_CHANGE"))
	assert.Equal(t, "old", refined("old", " NO_CHANGE. "))
	assert.Equal(t, "old", refined("old", ""))
	assert.Equal(t, "old", refined("old", "old"))
	assert.Equal(t, "new", refined("old", " new "))
}
