package domain

import "time"

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or generation.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is a local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is the OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is the Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local, private)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	default:
		return unknownDescription
	}
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	Provider AIProvider
	Model    string

	// BaseURL overrides the API endpoint.
	BaseURL string

	// APIKey is required for cloud providers.
	APIKey string
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	return providerConfigured(e.Provider, e.APIKey)
}

// LLMSettings holds generation provider configuration.
type LLMSettings struct {
	Provider AIProvider
	Model    string
	BaseURL  string
	APIKey   string

	// Temperature is passed on every generation call.
	Temperature float64
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	return providerConfigured(l.Provider, l.APIKey)
}

func providerConfigured(p AIProvider, apiKey string) bool {
	if !p.IsValid() {
		return false
	}
	return !p.RequiresAPIKey() || apiKey != ""
}

// RetrievalSettings controls chunking and nearest-neighbour lookup.
type RetrievalSettings struct {
	// ChunkSize is the target chunk length in runes.
	ChunkSize int

	// ChunkOverlap is the number of runes consecutive chunks share.
	ChunkOverlap int

	// TopK is the number of chunks retrieved per question.
	TopK int

	// Metric is the vector comparison.
	Metric DistanceMetric

	// MinScore drops hits below this similarity; 0 keeps everything.
	MinScore float64
}

// MemorySettings bounds conversation memory.
type MemorySettings struct {
	// MaxTokens is the estimated token budget before older turns are summarised.
	MaxTokens int
}

// CacheBackend selects the embedding cache store.
type CacheBackend string

// Available cache backends.
const (
	CacheBackendSQLite CacheBackend = "sqlite"
	CacheBackendBolt   CacheBackend = "bolt"
	CacheBackendFile   CacheBackend = "file"
	CacheBackendMemory CacheBackend = "memory"
)

// IsValid returns true if the backend is recognised.
func (b CacheBackend) IsValid() bool {
	switch b {
	case CacheBackendSQLite, CacheBackendBolt, CacheBackendFile, CacheBackendMemory:
		return true
	default:
		return false
	}
}

// Description returns a human-readable description of the backend.
func (b CacheBackend) Description() string {
	switch b {
	case CacheBackendSQLite:
		return "SQLite database"
	case CacheBackendBolt:
		return "Bolt key-value file"
	case CacheBackendFile:
		return "One file per entry"
	case CacheBackendMemory:
		return "In-memory (not persisted)"
	default:
		return unknownDescription
	}
}

// CacheSettings configures the embedding cache.
type CacheSettings struct {
	Backend CacheBackend
}

// AnswerSettings controls answer presentation.
type AnswerSettings struct {
	// Language is a BCP-47 tag; empty means the question's language.
	Language string
}

// TranscriptionSettings configures the meeting transcriber.
type TranscriptionSettings struct {
	Model   string
	BaseURL string
	APIKey  string

	// SegmentMinutes is the length of each audio segment sent for transcription.
	SegmentMinutes int
}

// SegmentLength returns the segment duration.
func (t TranscriptionSettings) SegmentLength() time.Duration {
	return time.Duration(t.SegmentMinutes) * time.Minute
}

// SiteSettings configures sitemap crawling and map-then-choose answering.
type SiteSettings struct {
	RequestsPerSecond float64
	MaxPages          int

	// Concurrency bounds parallel candidate scoring.
	Concurrency int

	// MinCandidateScore drops candidates rated below it.
	MinCandidateScore int

	// Language is the Wikipedia edition used by quizzes.
	Language string
}

// FinanceSettings configures market data tools.
type FinanceSettings struct {
	AlphaVantageKey string
}

// AppSettings holds all application settings.
type AppSettings struct {
	Embedding     EmbeddingSettings
	LLM           LLMSettings
	Retrieval     RetrievalSettings
	Memory        MemorySettings
	Cache         CacheSettings
	Answer        AnswerSettings
	Transcription TranscriptionSettings
	Site          SiteSettings
	Finance       FinanceSettings
}

// DefaultAppSettings returns settings with sensible defaults.
// API keys are left empty.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Embedding: EmbeddingSettings{
			Provider: AIProviderOpenAI,
			Model:    DefaultEmbeddingModels()[AIProviderOpenAI],
		},
		LLM: LLMSettings{
			Provider:    AIProviderOpenAI,
			Model:       DefaultLLMModels()[AIProviderOpenAI],
			Temperature: 0.1,
		},
		Retrieval: RetrievalSettings{
			ChunkSize:    600,
			ChunkOverlap: 100,
			TopK:         4,
			Metric:       MetricCosine,
		},
		Memory: MemorySettings{MaxTokens: 3000},
		Cache:  CacheSettings{Backend: CacheBackendSQLite},
		Transcription: TranscriptionSettings{
			Model:          "whisper-1",
			SegmentMinutes: 10,
		},
		Site: SiteSettings{
			RequestsPerSecond: 2,
			MaxPages:          50,
			Concurrency:       4,
			MinCandidateScore: 1,
			Language:          "en",
		},
	}
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{AIProviderOllama, AIProviderOpenAI}
}

// AllLLMProviders returns providers that support generation.
func AllLLMProviders() []AIProvider {
	return []AIProvider{AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic}
}

// AllCacheBackends returns every cache backend.
func AllCacheBackends() []CacheBackend {
	return []CacheBackend{CacheBackendSQLite, CacheBackendBolt, CacheBackendFile, CacheBackendMemory}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-3-small",
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:    "mistral",
		AIProviderOpenAI:    "gpt-4o-mini",
		AIProviderAnthropic: "claude-3-5-sonnet-latest",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		"nomic-embed-text":       768,
		"mxbai-embed-large":      1024,
		"all-minilm":             384,
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}

// PipelineConfig holds post-processor pipeline configuration.
// Processors are looked up by name; configs are generic maps so new
// processors need no changes here.
type PipelineConfig struct {
	// Processors is the ordered list of processor names to run.
	Processors []string

	// ProcessorConfigs holds per-processor configuration keyed by processor name.
	ProcessorConfigs map[string]map[string]any
}

// GetProcessorConfig returns config for a specific processor, or nil if not set.
func (c *PipelineConfig) GetProcessorConfig(name string) map[string]any {
	if c.ProcessorConfigs == nil {
		return nil
	}
	return c.ProcessorConfigs[name]
}

// PipelineConfigFor builds the chunking pipeline from retrieval settings.
func PipelineConfigFor(r RetrievalSettings) PipelineConfig {
	return PipelineConfig{
		Processors: []string{"chunker"},
		ProcessorConfigs: map[string]map[string]any{
			"chunker": {
				"chunk_size": r.ChunkSize,
				"overlap":    r.ChunkOverlap,
			},
		},
	}
}
