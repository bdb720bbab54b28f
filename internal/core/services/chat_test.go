package services

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docent/internal/core/domain"
	"github.com/custodia-labs/docent/internal/core/ports/driving"
)

func newTestChat(t *testing.T, llm *fakeLLM, minScore float64) (*ChatService, *letterEmbedder) {
	t.Helper()
	emb := &letterEmbedder{}
	ingest := newTestIngestor(t, emb)
	synth := NewSynthesizer(llm, stubPrompts{}, SynthesizerConfig{MinScore: minScore})
	memory := NewMemoryCompactor(llm, stubPrompts{}, 0, testRetry())
	return NewChatService(ingest, synth, memory, 0), emb
}

func TestChatService_Ask_GroundedAnswer(t *testing.T) {
	llm := newFakeLLM().reply("answer", "Falcon launches on March 3.")
	chat, emb := newTestChat(t, llm, 0)
	path := writeFile(t, "notes.txt", "The launch date of project Falcon is March 3.")

	sess, err := chat.Open(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, sess.Chunks, 1)
	assert.Equal(t, "notes.txt", sess.Label)

	turn, err := chat.Ask(context.Background(), sess, "When does Falcon launch?")

	require.NoError(t, err)
	assert.Equal(t, "Falcon launches on March 3.", turn.Answer)
	require.Len(t, turn.Citations, 1)
	assert.True(t, strings.HasSuffix(turn.Citations[0].Source, "notes.txt"))
	assert.Contains(t, llm.last(), "The launch date of project Falcon is March 3.")
	assert.Contains(t, llm.last(), "QUESTION: When does Falcon launch?")
	assert.Len(t, sess.History, 1)
	assert.Len(t, sess.Memory.Turns, 1)
	assert.Equal(t, 2, emb.calls, "one batch for the chunks, one for the question")
}

func TestChatService_Ask_FallbackWithoutModelCall(t *testing.T) {
	llm := newFakeLLM().reply("answer", "should not be used")
	chat, _ := newTestChat(t, llm, 0.5)
	path := writeFile(t, "letters.txt", "abc abc abc")

	sess, err := chat.Open(context.Background(), path)
	require.NoError(t, err)

	turn, err := chat.Ask(context.Background(), sess, "zzz?")

	require.NoError(t, err)
	assert.Equal(t, domain.FallbackAnswer, turn.Answer)
	assert.Empty(t, turn.Citations)
	assert.Zero(t, llm.count("answer"))
	assert.Len(t, sess.History, 1)
}

func TestChatService_Ask_EmptyDocument(t *testing.T) {
	llm := newFakeLLM()
	chat, _ := newTestChat(t, llm, 0)
	path := writeFile(t, "blank.txt", "   \n\t  ")

	sess, err := chat.Open(context.Background(), path)
	require.NoError(t, err)
	assert.Empty(t, sess.Chunks)

	turn, err := chat.Ask(context.Background(), sess, "anything?")

	require.NoError(t, err)
	assert.Equal(t, domain.FallbackAnswer, turn.Answer)
	assert.Zero(t, llm.count("answer"))
}

func TestChatService_Ask_NormalisesDontKnow(t *testing.T) {
	llm := newFakeLLM().reply("answer", "  I do not know  ")
	chat, _ := newTestChat(t, llm, 0)
	sess, err := chat.Open(context.Background(), writeFile(t, "a.txt", "Some text about owls."))
	require.NoError(t, err)

	turn, err := chat.Ask(context.Background(), sess, "What about owls?")

	require.NoError(t, err)
	assert.Equal(t, domain.FallbackAnswer, turn.Answer)
	assert.Empty(t, turn.Citations)
}

func TestChatService_Ask_NoSession(t *testing.T) {
	chat, _ := newTestChat(t, newFakeLLM(), 0)

	_, err := chat.Ask(context.Background(), nil, "hello?")
	assert.ErrorIs(t, err, domain.ErrNoSession)

	_, err = chat.Ask(context.Background(), &driving.Session{}, "hello?")
	assert.ErrorIs(t, err, domain.ErrNoSession)
}

func TestChatService_Ask_ModelFailure(t *testing.T) {
	llm := newFakeLLM().on("answer", func(string) (string, error) {
		return "", errors.New("boom")
	})
	chat, _ := newTestChat(t, llm, 0)
	sess, err := chat.Open(context.Background(), writeFile(t, "a.txt", "Owls hunt at night."))
	require.NoError(t, err)

	_, err = chat.Ask(context.Background(), sess, "When do owls hunt?")

	require.Error(t, err)
	assert.Empty(t, sess.History)
}

func TestChatService_Open_Missing(t *testing.T) {
	chat, _ := newTestChat(t, newFakeLLM(), 0)

	_, err := chat.Open(context.Background(), "/does/not/exist.txt")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestChatService_AskStream(t *testing.T) {
	llm := newFakeLLM().reply("answer", "Owls hunt at night.")
	chat, _ := newTestChat(t, llm, 0)
	sess, err := chat.Open(context.Background(), writeFile(t, "owls.txt", "Owls hunt at night."))
	require.NoError(t, err)

	var got strings.Builder
	for frag, err := range chat.AskStream(context.Background(), sess, "When do owls hunt?") {
		require.NoError(t, err)
		got.WriteString(frag)
	}

	assert.Equal(t, "Owls hunt at night.", got.String())
	require.Len(t, sess.History, 1)
	assert.Equal(t, "Owls hunt at night.", sess.History[0].Answer)
	assert.NotEmpty(t, sess.History[0].Citations)
}

func TestChatService_AskStream_AbandonedNotRecorded(t *testing.T) {
	llm := newFakeLLM().reply("answer", "Owls hunt at night.")
	chat, _ := newTestChat(t, llm, 0)
	sess, err := chat.Open(context.Background(), writeFile(t, "owls.txt", "Owls hunt at night."))
	require.NoError(t, err)

	for range chat.AskStream(context.Background(), sess, "When do owls hunt?") {
		break
	}

	assert.Empty(t, sess.History)
	assert.Empty(t, sess.Memory.Turns)
}

func TestChatService_Reload_KeepsConversation(t *testing.T) {
	llm := newFakeLLM().reply("answer", "Blue.")
	chat, _ := newTestChat(t, llm, 0)
	path := writeFile(t, "colour.txt", "The door is red.")
	sess, err := chat.Open(context.Background(), path)
	require.NoError(t, err)
	_, err = chat.Ask(context.Background(), sess, "What colour is the door?")
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("The door is blue."), 0o600))
	require.NoError(t, chat.Reload(context.Background(), sess, path))

	assert.Len(t, sess.History, 1)
	require.Len(t, sess.Chunks, 1)
	assert.Equal(t, "The door is blue.", sess.Chunks[0].Content)
}

func TestChatService_Retrieve(t *testing.T) {
	chat, _ := newTestChat(t, newFakeLLM(), 0)
	sess, err := chat.Open(context.Background(), writeFile(t, "a.txt", "Owls hunt at night."))
	require.NoError(t, err)

	hits, err := chat.Retrieve(context.Background(), sess, "owls", 3)

	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Greater(t, hits[0].Score, 0.0)
}
