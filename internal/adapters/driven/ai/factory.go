// Package ai provides factory functions for creating AI service adapters.
package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/docent/internal/adapters/driven/embedding/cached"
	ollamaembed "github.com/custodia-labs/docent/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/docent/internal/adapters/driven/embedding/openai"
	anthropicllm "github.com/custodia-labs/docent/internal/adapters/driven/llm/anthropic"
	ollamallm "github.com/custodia-labs/docent/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/docent/internal/adapters/driven/llm/openai"
	openaitranscribe "github.com/custodia-labs/docent/internal/adapters/driven/transcription/openai"
	"github.com/custodia-labs/docent/internal/adapters/driven/vector/memory"
	"github.com/custodia-labs/docent/internal/core/domain"
	"github.com/custodia-labs/docent/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// InitResult holds the AI services one command needs.
type InitResult struct {
	// Embedding is the cache-backed embedder.
	Embedding   *cached.EmbeddingService
	LLM         driven.LLMService
	NewIndex    driven.VectorIndexFactory
	PromptStore driven.PromptStore
}

// Close releases all resources held by InitResult. The cache store is owned by the caller.
func (r *InitResult) Close() {
	if r.Embedding != nil {
		r.Embedding.Close()
	}
	if r.LLM != nil {
		r.LLM.Close()
	}
}

// Init builds the embedder (wrapped by cache), the LLM and the index factory from settings.
// No network calls are made; use ValidateEmbeddingConfig/ValidateLLMConfig for that.
func Init(settings domain.AppSettings, cache driven.KeyValueStore, prompts driven.PromptStore) (*InitResult, error) {
	embedder, err := CreateEmbeddingService(&settings.Embedding)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. Run 'docent settings' to fix", domain.ErrEmbeddingUnavailable, err)
	}
	if embedder == nil {
		return nil, fmt.Errorf("%w: %s is not configured. Run 'docent settings' to fix",
			domain.ErrEmbeddingUnavailable, settings.Embedding.Provider)
	}

	llm, err := CreateLLMService(&settings.LLM)
	if err != nil {
		embedder.Close()
		return nil, fmt.Errorf("%w: %w. Run 'docent settings' to fix", domain.ErrLLMUnavailable, err)
	}
	if llm == nil {
		embedder.Close()
		return nil, fmt.Errorf("%w: %s is not configured. Run 'docent settings' to fix",
			domain.ErrLLMUnavailable, settings.LLM.Provider)
	}

	return &InitResult{
		Embedding:   cached.New(embedder, cache),
		LLM:         llm,
		NewIndex:    memory.Factory(settings.Retrieval.Metric),
		PromptStore: prompts,
	}, nil
}

// ValidateEmbeddingConfig validates an embedding configuration by creating a service and pinging it.
func ValidateEmbeddingConfig(ctx context.Context, settings *domain.EmbeddingSettings) error {
	svc, err := CreateEmbeddingService(settings)
	if err != nil || svc == nil {
		return err
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return svc.Ping(ctx)
}

// ValidateLLMConfig validates an LLM configuration by creating a service and pinging it.
func ValidateLLMConfig(ctx context.Context, settings *domain.LLMSettings) error {
	svc, err := CreateLLMService(settings)
	if err != nil || svc == nil {
		return err
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return svc.Ping(ctx)
}

// CreateEmbeddingService creates the appropriate embedding service based on settings.
// Returns nil if the provider is not configured.
func CreateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return createOllamaEmbedding(settings), nil

	case domain.AIProviderOpenAI:
		return createOpenAIEmbedding(settings)

	case domain.AIProviderAnthropic:
		return nil, fmt.Errorf("anthropic does not support embeddings, use ollama or openai")

	default:
		return nil, fmt.Errorf("%w: embedding provider %s", domain.ErrUnsupportedType, settings.Provider)
	}
}

// CreateLLMService creates the appropriate LLM service based on settings.
// Returns nil if the provider is not configured.
func CreateLLMService(settings *domain.LLMSettings) (driven.LLMService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return ollamallm.NewLLMService(ollamallm.LLMConfig{
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		}), nil

	case domain.AIProviderOpenAI:
		return openaillm.NewLLMService(openaillm.LLMConfig{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})

	case domain.AIProviderAnthropic:
		return anthropicllm.NewLLMService(anthropicllm.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})

	default:
		return nil, fmt.Errorf("%w: LLM provider %s", domain.ErrUnsupportedType, settings.Provider)
	}
}

// CreateTranscriber creates the meeting transcriber. Only OpenAI offers one.
func CreateTranscriber(settings domain.TranscriptionSettings) (driven.Transcriber, error) {
	tr, err := openaitranscribe.New(openaitranscribe.Config{
		APIKey:  settings.APIKey,
		BaseURL: settings.BaseURL,
		Model:   settings.Model,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrTranscriberUnavailable, err)
	}
	return tr, nil
}

func createOllamaEmbedding(settings *domain.EmbeddingSettings) driven.EmbeddingService {
	dimensions := domain.EmbeddingDimensions()[settings.Model]
	if dimensions == 0 {
		dimensions = ollamaembed.DefaultDimensions
	}

	return ollamaembed.NewEmbeddingService(ollamaembed.Config{
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Dimensions: dimensions,
	})
}

// createOpenAIEmbedding leaves Dimensions unset so the model's native size is used.
func createOpenAIEmbedding(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	return openaiembed.NewEmbeddingService(openaiembed.Config{
		APIKey:  settings.APIKey,
		BaseURL: settings.BaseURL,
		Model:   settings.Model,
	})
}
