package services

import (
	"context"
	"iter"
	"strings"

	"github.com/custodia-labs/docent/internal/core/domain"
	"github.com/custodia-labs/docent/internal/core/ports/driven"
	"github.com/custodia-labs/docent/internal/logger"
)

// SynthesizerConfig configures answer generation.
type SynthesizerConfig struct {
	Temperature float64

	// Language is a BCP-47 tag; the answer prompt asks for that language.
	Language string

	// MinScore drops retrieval hits below it before prompting.
	MinScore float64
}

// Synthesizer turns retrieved chunks and a question into an answer.
type Synthesizer struct {
	llm     driven.LLMService
	prompts driven.PromptStore
	cfg     SynthesizerConfig
}

// NewSynthesizer creates a synthesizer.
func NewSynthesizer(llm driven.LLMService, prompts driven.PromptStore, cfg SynthesizerConfig) *Synthesizer {
	return &Synthesizer{llm: llm, prompts: prompts, cfg: cfg}
}

// Usable keeps hits at or above the minimum score.
func (s *Synthesizer) Usable(hits []domain.ScoredChunk) []domain.ScoredChunk {
	out := make([]domain.ScoredChunk, 0, len(hits))
	for _, h := range hits {
		if h.Score >= s.cfg.MinScore {
			out = append(out, h)
		}
	}
	return out
}

func (s *Synthesizer) options() driven.ChatOptions {
	return driven.ChatOptions{Temperature: driven.Temperature(s.cfg.Temperature)}
}

func (s *Synthesizer) answerPrompt(question, history string, hits []domain.ScoredChunk) (string, error) {
	prompt, err := renderPrompt(s.prompts, driven.PromptAnswer, history, renderContext(hits), question)
	if err != nil {
		return "", err
	}
	return prompt + languageInstruction(s.cfg.Language), nil
}

// Answer generates a complete answer from hits. With no usable hits the
// fallback is returned without calling the model.
func (s *Synthesizer) Answer(ctx context.Context, question, history string, hits []domain.ScoredChunk) (string, error) {
	hits = s.Usable(hits)
	if len(hits) == 0 {
		logger.Debug("synthesizer: %v, answering with fallback", domain.ErrEmptyContext)
		return domain.FallbackAnswer, nil
	}

	prompt, err := s.answerPrompt(question, history, hits)
	if err != nil {
		return "", err
	}
	msgs := []driven.ChatMessage{{Role: driven.RoleUser, Content: prompt}}

	// Final synthesis is not retried; a failure reaches the caller as is.
	answer, err := s.llm.Chat(ctx, msgs, s.options())
	if err != nil {
		return "", err
	}
	return NormaliseAnswer(answer), nil
}

// AnswerStream streams the answer. With no usable hits it yields the
// fallback once. Fragments are passed through as the model sends them;
// callers normalise the joined text with NormaliseAnswer.
func (s *Synthesizer) AnswerStream(ctx context.Context, question, history string, hits []domain.ScoredChunk) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		hits := s.Usable(hits)
		if len(hits) == 0 {
			yield(domain.FallbackAnswer, nil)
			return
		}
		prompt, err := s.answerPrompt(question, history, hits)
		if err != nil {
			yield("", err)
			return
		}
		msgs := []driven.ChatMessage{{Role: driven.RoleUser, Content: prompt}}
		for frag, err := range s.llm.ChatStream(ctx, msgs, s.options()) {
			if !yield(frag, err) || err != nil {
				return
			}
		}
	}
}

// NormaliseAnswer trims the reply and maps "I don't know" variants to the fallback.
func NormaliseAnswer(answer string) string {
	answer = strings.TrimSpace(answer)
	if answer == "" || domain.IsFallback(answer) {
		return domain.FallbackAnswer
	}
	return answer
}
