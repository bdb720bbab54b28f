package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/docent/internal/core/domain"
	"github.com/custodia-labs/docent/internal/core/ports/driven"
	"github.com/custodia-labs/docent/internal/retry"
)

// DefaultMemoryTokens is the memory budget when none is configured.
const DefaultMemoryTokens = 3000

// MemoryCompactor keeps conversation memory within a token budget by
// folding the oldest turns into a running summary.
type MemoryCompactor struct {
	llm       driven.LLMService
	prompts   driven.PromptStore
	maxTokens int
	policy    retry.Policy
}

// NewMemoryCompactor creates a compactor. maxTokens <= 0 uses DefaultMemoryTokens.
func NewMemoryCompactor(llm driven.LLMService, prompts driven.PromptStore, maxTokens int, policy retry.Policy) *MemoryCompactor {
	if maxTokens <= 0 {
		maxTokens = DefaultMemoryTokens
	}
	if policy.Attempts == 0 {
		policy = retry.Default()
	}
	return &MemoryCompactor{llm: llm, prompts: prompts, maxTokens: maxTokens, policy: policy}
}

// Append adds turn and compacts if the memory is over budget. The newest
// turn is never summarised. On error the memory keeps every turn.
func (c *MemoryCompactor) Append(ctx context.Context, mem *domain.Memory, turn domain.Turn) error {
	mem.Turns = append(mem.Turns, turn)
	if mem.Tokens() <= c.maxTokens || len(mem.Turns) < 2 {
		return nil
	}

	// Drop oldest turns until the rest fits, keeping at least the newest.
	cut := 0
	rest := *mem
	for cut < len(mem.Turns)-1 && rest.Tokens() > c.maxTokens {
		cut++
		rest.Turns = mem.Turns[cut:]
	}

	var lines strings.Builder
	for _, t := range mem.Turns[:cut] {
		lines.WriteString(domain.RenderTurn(t))
	}

	prompt, err := renderPrompt(c.prompts, driven.PromptMemorySummary, mem.Summary, lines.String())
	if err != nil {
		return err
	}
	msgs := []driven.ChatMessage{{Role: driven.RoleUser, Content: prompt}}
	summary, err := retry.Do(ctx, c.policy, "memory summary", func(ctx context.Context) (string, error) {
		return c.llm.Chat(ctx, msgs, driven.ChatOptions{})
	})
	if err != nil {
		return fmt.Errorf("compact memory: %w", err)
	}

	mem.Summary = strings.TrimSpace(summary)
	mem.Turns = append([]domain.Turn(nil), mem.Turns[cut:]...)
	return nil
}
