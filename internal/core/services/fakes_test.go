package services

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"unicode"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docent/internal/adapters/driven/loader/file"
	vectormem "github.com/custodia-labs/docent/internal/adapters/driven/vector/memory"
	"github.com/custodia-labs/docent/internal/core/domain"
	"github.com/custodia-labs/docent/internal/core/ports/driven"
	"github.com/custodia-labs/docent/internal/normalisers/builtin"
	"github.com/custodia-labs/docent/internal/postprocessors"
	"github.com/custodia-labs/docent/internal/retry"
)

// stubPrompts names each template in its first line so fakeLLM can route on it.
type stubPrompts struct{}

var stubTemplates = map[string]string{
	driven.PromptAnswer:        "answer\nHISTORY:\n%s\nCONTEXT:\n%s\nQUESTION: %s",
	driven.PromptMemorySummary: "memory_summary\nSUMMARY: %s\nLINES:\n%s",
	driven.PromptCandidate:     "candidate\nCONTEXT:\n%s\nQUESTION: %s",
	driven.PromptChoose:        "choose\nCANDIDATES:\n%s\nQUESTION: %s",
	driven.PromptCacheLookup:   "cache_lookup\nHISTORY:\n%s\nQUESTION: %s",
	driven.PromptSummarise:     "summarise\n%s",
	driven.PromptRefine:        "refine\nSUMMARY: %s\nTEXT: %s",
	driven.PromptQuiz:          "quiz\nDIFFICULTY: %s\nCONTEXT:\n%s",
	driven.PromptAgentSystem:   "agent_system\nTOOLS:\n%s",
}

func (stubPrompts) Load(name string) (string, error) {
	if t, ok := stubTemplates[name]; ok {
		return t, nil
	}
	return "", fmt.Errorf("%w: prompt %s", domain.ErrNotFound, name)
}

func (stubPrompts) Reload() {}

// fakeLLM answers by prompt kind and records every call.
type fakeLLM struct {
	mu      sync.Mutex
	replies map[string]func(prompt string) (string, error)
	calls   map[string]int
	prompts []string
}

func newFakeLLM() *fakeLLM {
	return &fakeLLM{replies: map[string]func(string) (string, error){}, calls: map[string]int{}}
}

// on sets the reply for prompts of kind.
func (f *fakeLLM) on(kind string, fn func(prompt string) (string, error)) *fakeLLM {
	f.replies[kind] = fn
	return f
}

func (f *fakeLLM) reply(kind, text string) *fakeLLM {
	return f.on(kind, func(string) (string, error) { return text, nil })
}

func (f *fakeLLM) count(kind string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[kind]
}

func (f *fakeLLM) last() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.prompts) == 0 {
		return ""
	}
	return f.prompts[len(f.prompts)-1]
}

func (f *fakeLLM) Generate(ctx context.Context, prompt string, _ driven.GenerateOptions) (string, error) {
	return f.Chat(ctx, []driven.ChatMessage{{Role: driven.RoleUser, Content: prompt}}, driven.ChatOptions{})
}

func (f *fakeLLM) Chat(_ context.Context, msgs []driven.ChatMessage, _ driven.ChatOptions) (string, error) {
	first := msgs[0].Content
	kind, _, _ := strings.Cut(first, "\n")
	prompt := msgs[len(msgs)-1].Content

	f.mu.Lock()
	f.calls[kind]++
	f.prompts = append(f.prompts, prompt)
	fn := f.replies[kind]
	f.mu.Unlock()

	if fn == nil {
		return "", fmt.Errorf("%w: unexpected %s prompt", domain.ErrServiceFailure, kind)
	}
	return fn(prompt)
}

func (f *fakeLLM) ChatStream(ctx context.Context, msgs []driven.ChatMessage, opts driven.ChatOptions) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		text, err := f.Chat(ctx, msgs, opts)
		if err != nil {
			yield("", err)
			return
		}
		for _, word := range strings.SplitAfter(text, " ") {
			if !yield(word, nil) {
				return
			}
		}
	}
}

func (f *fakeLLM) ModelName() string          { return "fake-llm" }
func (f *fakeLLM) Ping(context.Context) error { return nil }
func (f *fakeLLM) Close() error               { return nil }

// letterEmbedder embeds text as letter frequencies, so texts sharing words land close.
type letterEmbedder struct {
	mu    sync.Mutex
	calls int
	texts int
}

func (e *letterEmbedder) vector(text string) []float32 {
	v := make([]float32, 27)
	v[26] = 0.01
	for _, r := range strings.ToLower(text) {
		if r >= 'a' && r <= 'z' {
			v[r-'a']++
		} else if unicode.IsLetter(r) {
			v[26]++
		}
	}
	return v
}

func (e *letterEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	e.calls++
	e.texts++
	e.mu.Unlock()
	return e.vector(text), nil
}

func (e *letterEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.calls++
	e.texts += len(texts)
	e.mu.Unlock()
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.vector(t)
	}
	return out, nil
}

func (e *letterEmbedder) Dimensions() int            { return 27 }
func (e *letterEmbedder) ModelName() string          { return "letters" }
func (e *letterEmbedder) Ping(context.Context) error { return nil }
func (e *letterEmbedder) Close() error               { return nil }

func newTestIngestor(t *testing.T, embedder driven.EmbeddingService) *Ingestor {
	t.Helper()
	pipeline, err := postprocessors.DefaultPipeline(domain.RetrievalSettings{ChunkSize: 200, ChunkOverlap: 20})
	require.NoError(t, err)
	return NewIngestor(file.New(0), builtin.Registry(), pipeline, embedder, vectormem.Factory(domain.MetricCosine))
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func testRetry() retry.Policy { return retry.NoWait(2) }

func decodeJSON(s string, v any) error {
	return json.Unmarshal([]byte(s), v)
}
