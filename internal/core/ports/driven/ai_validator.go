package driven

import (
	"context"

	"github.com/custodia-labs/docent/internal/core/domain"
)

// AIConfigValidator validates AI provider configurations by testing
// connectivity to the underlying services.
type AIConfigValidator interface {
	// ValidateEmbedding returns nil if the configuration works or is not configured.
	ValidateEmbedding(ctx context.Context, config *domain.EmbeddingSettings) error

	// ValidateLLM returns nil if the configuration works or is not configured.
	ValidateLLM(ctx context.Context, config *domain.LLMSettings) error
}
