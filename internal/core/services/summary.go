package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/docent/internal/core/domain"
	"github.com/custodia-labs/docent/internal/core/ports/driven"
	"github.com/custodia-labs/docent/internal/logger"
	"github.com/custodia-labs/docent/internal/retry"
)

// NoChange is the reply a refine step gives when the summary needs no edit.
const NoChange = "NO_CHANGE"

// Summariser builds a summary by refining it chunk by chunk.
type Summariser struct {
	llm     driven.LLMService
	prompts driven.PromptStore
	policy  retry.Policy
}

// NewSummariser creates a summariser.
func NewSummariser(llm driven.LLMService, prompts driven.PromptStore, policy retry.Policy) *Summariser {
	if policy.Attempts == 0 {
		policy = retry.Default()
	}
	return &Summariser{llm: llm, prompts: prompts, policy: policy}
}

// Summarise summarises the first chunk, then refines with each later one.
// onStep, if set, is called after each step with (done, total).
func (s *Summariser) Summarise(ctx context.Context, chunks []domain.Chunk, onStep func(done, total int)) (string, error) {
	if len(chunks) == 0 {
		return "", fmt.Errorf("%w: nothing to summarise", domain.ErrEmptyContext)
	}
	total := len(chunks)

	first, err := renderPrompt(s.prompts, driven.PromptSummarise, chunks[0].Content)
	if err != nil {
		return "", err
	}
	summary, err := s.call(ctx, first)
	if err != nil {
		return "", fmt.Errorf("summarise chunk 1 of %d: %w", total, err)
	}
	summary = strings.TrimSpace(summary)
	if onStep != nil {
		onStep(1, total)
	}

	for i, c := range chunks[1:] {
		prompt, err := renderPrompt(s.prompts, driven.PromptRefine, summary, c.Content)
		if err != nil {
			return "", err
		}
		reply, err := s.call(ctx, prompt)
		if err != nil {
			return summary, fmt.Errorf("refine chunk %d of %d: %w", i+2, total, err)
		}
		summary = refined(summary, reply)
		if onStep != nil {
			onStep(i+2, total)
		}
	}
	return summary, nil
}

func (s *Summariser) call(ctx context.Context, prompt string) (string, error) {
	msgs := []driven.ChatMessage{{Role: driven.RoleUser, Content: prompt}}
	return retry.Do(ctx, s.policy, "summarise", func(ctx context.Context) (string, error) {
		return s.llm.Chat(ctx, msgs, driven.ChatOptions{})
	})
}

// refined keeps prior when the reply is NO_CHANGE, empty, or the same text.
func refined(prior, reply string) string {
	reply = strings.TrimSpace(reply)
	if reply == "" || reply == prior || strings.Trim(reply, " .\"'`") == NoChange {
		logger.Debug("refine: summary unchanged")
		return prior
	}
	return reply
}
