package file

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docent/internal/core/ports/driven"
)

func TestNewPromptStore_WithCustomDir(t *testing.T) {
	dir := t.TempDir()

	store, err := NewPromptStore(dir)

	require.NoError(t, err)
	assert.Equal(t, dir, store.Dir())
}

func TestNewPromptStore_NoIOUntilLoad(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "prompts")

	_, err := NewPromptStore(dir)
	require.NoError(t, err)

	_, err = os.Stat(dir)
	assert.True(t, os.IsNotExist(err))
}

func TestPromptStore_Load_CreatesDefaultFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	_, err = store.Load(driven.PromptAnswer)
	require.NoError(t, err)

	for _, name := range PromptNames() {
		assert.FileExists(t, filepath.Join(dir, name+".txt"))
	}
	readme, err := os.ReadFile(filepath.Join(dir, "README.md"))
	require.NoError(t, err)
	assert.Contains(t, string(readme), "`answer.txt` (3 placeholder(s))")
}

func TestPromptStore_DefaultPlaceholderCounts(t *testing.T) {
	want := map[string]int{
		driven.PromptAnswer:        3,
		driven.PromptMemorySummary: 2,
		driven.PromptCandidate:     2,
		driven.PromptChoose:        2,
		driven.PromptCacheLookup:   2,
		driven.PromptSummarise:     1,
		driven.PromptRefine:        2,
		driven.PromptQuiz:          2,
		driven.PromptAgentSystem:   1,
	}
	store, err := NewPromptStore(t.TempDir())
	require.NoError(t, err)

	for name, n := range want {
		tmpl, err := store.Load(name)
		require.NoError(t, err, name)
		assert.Equal(t, n, strings.Count(tmpl, "%s"), name)

		args := make([]any, n)
		for i := range args {
			args[i] = "x"
		}
		assert.NotContains(t, fmt.Sprintf(tmpl, args...), "%!", name)
	}
}

func TestPromptStore_AnswerMentionsFallback(t *testing.T) {
	store, err := NewPromptStore(t.TempDir())
	require.NoError(t, err)

	tmpl, err := store.Load(driven.PromptAnswer)
	require.NoError(t, err)
	assert.Contains(t, tmpl, "I don't know.")
}

func TestPromptStore_Load_ReturnsCustomContent(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "refine.txt"), []byte("  custom %s %s\n\n"), 0600))

	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	got, err := store.Load(driven.PromptRefine)
	require.NoError(t, err)
	assert.Equal(t, "custom %s %s", got)
}

func TestPromptStore_Load_FallsBackToDefault(t *testing.T) {
	dir := t.TempDir()
	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	_, err = store.Load(driven.PromptQuiz)
	require.NoError(t, err)
	require.NoError(t, os.Remove(filepath.Join(dir, "quiz.txt")))
	store.Reload()

	got, err := store.Load(driven.PromptQuiz)
	require.NoError(t, err)
	assert.Equal(t, defaultPrompts[driven.PromptQuiz], got)
}

func TestPromptStore_Load_UnknownPrompt(t *testing.T) {
	store, err := NewPromptStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Load("no_such_prompt")
	assert.Error(t, err)
}

func TestPromptStore_Reload_ClearsCache(t *testing.T) {
	dir := t.TempDir()
	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	first, err := store.Load(driven.PromptSummarise)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "summarise.txt"), []byte("short: %s"), 0600))

	cached, err := store.Load(driven.PromptSummarise)
	require.NoError(t, err)
	assert.Equal(t, first, cached)

	store.Reload()
	fresh, err := store.Load(driven.PromptSummarise)
	require.NoError(t, err)
	assert.Equal(t, "short: %s", fresh)
}

func TestPromptStore_DoesNotOverwriteExistingFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "choose.txt")
	require.NoError(t, os.WriteFile(path, []byte("mine %s %s"), 0600))

	store, err := NewPromptStore(dir)
	require.NoError(t, err)
	_, err = store.Load(driven.PromptAnswer)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "mine %s %s", string(data))
}

func TestPromptStore_Load_ConcurrentAccess(t *testing.T) {
	store, err := NewPromptStore(t.TempDir())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, name := range PromptNames() {
				_, err := store.Load(name)
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()
}
