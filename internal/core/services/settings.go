package services

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/custodia-labs/docent/internal/core/domain"
	"github.com/custodia-labs/docent/internal/core/ports/driven"
	"github.com/custodia-labs/docent/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyEmbedProvider     = "embedding.provider"
	keyEmbedModel        = "embedding.model"
	keyEmbedBaseURL      = "embedding.base_url"
	keyEmbedAPIKey       = "embedding.api_key"
	keyLLMProvider       = "llm.provider"
	keyLLMModel          = "llm.model"
	keyLLMBaseURL        = "llm.base_url"
	keyLLMAPIKey         = "llm.api_key"
	keyLLMTemperature    = "llm.temperature"
	keyChunkSize         = "retrieval.chunk_size"
	keyChunkOverlap      = "retrieval.chunk_overlap"
	keyTopK              = "retrieval.top_k"
	keyMetric            = "retrieval.metric"
	keyMinScore          = "retrieval.min_score"
	keyMemoryTokens      = "memory.max_tokens"
	keyCacheBackend      = "cache.backend"
	keyAnswerLanguage    = "answer.language"
	keyTranscribeModel   = "transcription.model"
	keyTranscribeBaseURL = "transcription.base_url"
	keyTranscribeAPIKey  = "transcription.api_key"
	keySegmentMinutes    = "transcription.segment_minutes"
	keySiteRPS           = "site.requests_per_second"
	keySiteMaxPages      = "site.max_pages"
	keySiteConcurrency   = "site.concurrency"
	keySiteMinScore      = "site.min_candidate_score"
	keySiteLanguage      = "site.language"
	keyAlphaVantageKey   = "finance.alphavantage_key"
)

// Environment variables consulted when a key is not configured.
//
//nolint:gosec // G101: variable names, not credentials.
const (
	EnvOpenAIKey       = "OPENAI_API_KEY"
	EnvAnthropicKey    = "ANTHROPIC_API_KEY"
	EnvAlphaVantageKey = "ALPHAVANTAGE_API_KEY"
)

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
	getenv      func(string) string
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
		getenv:      os.Getenv,
	}
}

// Get retrieves current application settings. Missing API keys fall back
// to the provider's environment variable.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	d := domain.DefaultAppSettings()

	embedProvider := s.getProvider(keyEmbedProvider, d.Embedding.Provider)
	llmProvider := s.getProvider(keyLLMProvider, d.LLM.Provider)

	settings := &domain.AppSettings{
		Embedding: domain.EmbeddingSettings{
			Provider: embedProvider,
			Model:    s.getString(keyEmbedModel, defaultModel(domain.DefaultEmbeddingModels(), embedProvider, d.Embedding.Model)),
			BaseURL:  s.configStore.GetString(keyEmbedBaseURL), // empty is valid for cloud providers
			APIKey:   s.getString(keyEmbedAPIKey, s.envKey(embedProvider)),
		},
		LLM: domain.LLMSettings{
			Provider:    llmProvider,
			Model:       s.getString(keyLLMModel, defaultModel(domain.DefaultLLMModels(), llmProvider, d.LLM.Model)),
			BaseURL:     s.configStore.GetString(keyLLMBaseURL),
			APIKey:      s.getString(keyLLMAPIKey, s.envKey(llmProvider)),
			Temperature: s.getFloat(keyLLMTemperature, d.LLM.Temperature),
		},
		Retrieval: domain.RetrievalSettings{
			ChunkSize:    s.getInt(keyChunkSize, d.Retrieval.ChunkSize),
			ChunkOverlap: s.getInt(keyChunkOverlap, d.Retrieval.ChunkOverlap),
			TopK:         s.getInt(keyTopK, d.Retrieval.TopK),
			Metric:       s.getMetric(d.Retrieval.Metric),
			MinScore:     s.getFloat(keyMinScore, d.Retrieval.MinScore),
		},
		Memory: domain.MemorySettings{
			MaxTokens: s.getInt(keyMemoryTokens, d.Memory.MaxTokens),
		},
		Cache: domain.CacheSettings{
			Backend: s.getCacheBackend(d.Cache.Backend),
		},
		Answer: domain.AnswerSettings{
			Language: s.configStore.GetString(keyAnswerLanguage),
		},
		Transcription: domain.TranscriptionSettings{
			Model:          s.getString(keyTranscribeModel, d.Transcription.Model),
			BaseURL:        s.configStore.GetString(keyTranscribeBaseURL),
			APIKey:         s.getString(keyTranscribeAPIKey, s.getenv(EnvOpenAIKey)),
			SegmentMinutes: s.getInt(keySegmentMinutes, d.Transcription.SegmentMinutes),
		},
		Site: domain.SiteSettings{
			RequestsPerSecond: s.getFloat(keySiteRPS, d.Site.RequestsPerSecond),
			MaxPages:          s.getInt(keySiteMaxPages, d.Site.MaxPages),
			Concurrency:       s.getInt(keySiteConcurrency, d.Site.Concurrency),
			MinCandidateScore: s.getInt(keySiteMinScore, d.Site.MinCandidateScore),
			Language:          s.getString(keySiteLanguage, d.Site.Language),
		},
		Finance: domain.FinanceSettings{
			AlphaVantageKey: s.getString(keyAlphaVantageKey, s.getenv(EnvAlphaVantageKey)),
		},
	}

	return settings, nil
}

// Save persists application settings. Empty API keys are not written, so
// keys supplied through the environment never land in the config file.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	values := []struct {
		key string
		val any
	}{
		{keyEmbedProvider, settings.Embedding.Provider.String()},
		{keyEmbedModel, settings.Embedding.Model},
		{keyEmbedBaseURL, settings.Embedding.BaseURL},
		{keyLLMProvider, settings.LLM.Provider.String()},
		{keyLLMModel, settings.LLM.Model},
		{keyLLMBaseURL, settings.LLM.BaseURL},
		{keyLLMTemperature, settings.LLM.Temperature},
		{keyChunkSize, settings.Retrieval.ChunkSize},
		{keyChunkOverlap, settings.Retrieval.ChunkOverlap},
		{keyTopK, settings.Retrieval.TopK},
		{keyMetric, string(settings.Retrieval.Metric)},
		{keyMinScore, settings.Retrieval.MinScore},
		{keyMemoryTokens, settings.Memory.MaxTokens},
		{keyCacheBackend, string(settings.Cache.Backend)},
		{keyAnswerLanguage, settings.Answer.Language},
		{keyTranscribeModel, settings.Transcription.Model},
		{keyTranscribeBaseURL, settings.Transcription.BaseURL},
		{keySegmentMinutes, settings.Transcription.SegmentMinutes},
		{keySiteRPS, settings.Site.RequestsPerSecond},
		{keySiteMaxPages, settings.Site.MaxPages},
		{keySiteConcurrency, settings.Site.Concurrency},
		{keySiteMinScore, settings.Site.MinCandidateScore},
		{keySiteLanguage, settings.Site.Language},
	}
	for _, v := range values {
		if err := s.configStore.Set(v.key, v.val); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}

	secrets := map[string]string{
		keyEmbedAPIKey:      settings.Embedding.APIKey,
		keyLLMAPIKey:        settings.LLM.APIKey,
		keyTranscribeAPIKey: settings.Transcription.APIKey,
		keyAlphaVantageKey:  settings.Finance.AlphaVantageKey,
	}
	for key, val := range secrets {
		if val == "" || s.fromEnv(key, val) {
			continue
		}
		if err := s.configStore.Set(key, val); err != nil {
			return fmt.Errorf("save %s: %w", key, err)
		}
	}

	return nil
}

// setter parses and validates the string form of one key.
type setter func(value string) (any, error)

func (s *SettingsService) setters() map[string]setter {
	str := func(v string) (any, error) { return strings.TrimSpace(v), nil }
	return map[string]setter{
		keyEmbedProvider:     providerSetter(domain.AllEmbeddingProviders()),
		keyEmbedModel:        str,
		keyEmbedBaseURL:      str,
		keyEmbedAPIKey:       str,
		keyLLMProvider:       providerSetter(domain.AllLLMProviders()),
		keyLLMModel:          str,
		keyLLMBaseURL:        str,
		keyLLMAPIKey:         str,
		keyLLMTemperature:    floatSetter(0, 2),
		keyChunkSize:         intSetter(1),
		keyChunkOverlap:      intSetter(0),
		keyTopK:              intSetter(1),
		keyMetric:            metricSetter,
		keyMinScore:          floatSetter(-1, 1),
		keyMemoryTokens:      intSetter(1),
		keyCacheBackend:      cacheBackendSetter,
		keyAnswerLanguage:    languageSetter,
		keyTranscribeModel:   str,
		keyTranscribeBaseURL: str,
		keyTranscribeAPIKey:  str,
		keySegmentMinutes:    intSetter(1),
		keySiteRPS:           floatSetter(0.01, 1000),
		keySiteMaxPages:      intSetter(1),
		keySiteConcurrency:   intSetter(1),
		keySiteMinScore:      intSetter(0),
		keySiteLanguage:      languageSetter,
		keyAlphaVantageKey:   str,
	}
}

// Set validates and writes one key.
func (s *SettingsService) Set(key, value string) error {
	key = strings.ToLower(strings.TrimSpace(key))
	set, ok := s.setters()[key]
	if !ok {
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}
	v, err := set(value)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrInvalidInput, key, err)
	}
	if key == keyChunkOverlap || key == keyChunkSize {
		if err := s.checkChunking(key, v.(int)); err != nil {
			return err
		}
	}
	return s.configStore.Set(key, v)
}

// Keys lists every key Set accepts, sorted.
func (s *SettingsService) Keys() []string {
	m := s.setters()
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (s *SettingsService) checkChunking(key string, v int) error {
	cur, err := s.Get()
	if err != nil {
		return err
	}
	size, overlap := cur.Retrieval.ChunkSize, cur.Retrieval.ChunkOverlap
	if key == keyChunkSize {
		size = v
	} else {
		overlap = v
	}
	if overlap >= size {
		return fmt.Errorf("%w: chunk overlap %d must be below chunk size %d", domain.ErrInvalidInput, overlap, size)
	}
	return nil
}

// SetEmbeddingProvider configures the embedding provider.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("%w: embedding provider %q", domain.ErrInvalidInput, provider)
	}
	if !contains(domain.AllEmbeddingProviders(), provider) {
		return fmt.Errorf("%w: provider %s does not support embeddings", domain.ErrInvalidInput, provider)
	}
	if apiKey == "" {
		apiKey = s.envKey(provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("%w: API key required for %s", domain.ErrInvalidInput, provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.Embedding.Provider = provider
	settings.Embedding.Model = defaultModel(domain.DefaultEmbeddingModels(), provider, model)
	if model != "" {
		settings.Embedding.Model = model
	}
	settings.Embedding.BaseURL = localBaseURL(provider, settings.Embedding.BaseURL)
	settings.Embedding.APIKey = apiKey

	return s.Save(settings)
}

// SetLLMProvider configures the LLM provider.
func (s *SettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("%w: LLM provider %q", domain.ErrInvalidInput, provider)
	}
	if apiKey == "" {
		apiKey = s.envKey(provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("%w: API key required for %s", domain.ErrInvalidInput, provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.LLM.Provider = provider
	settings.LLM.Model = defaultModel(domain.DefaultLLMModels(), provider, model)
	if model != "" {
		settings.LLM.Model = model
	}
	settings.LLM.BaseURL = localBaseURL(provider, settings.LLM.BaseURL)
	settings.LLM.APIKey = apiKey

	return s.Save(settings)
}

// Validate checks that the settings are usable.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}
	if !settings.Embedding.IsConfigured() {
		return fmt.Errorf("%w: embedding provider %s needs an API key (set %s or %s)",
			domain.ErrEmbeddingUnavailable, settings.Embedding.Provider, keyEmbedAPIKey, EnvOpenAIKey)
	}
	if !settings.LLM.IsConfigured() {
		return fmt.Errorf("%w: LLM provider %s needs an API key (set %s)",
			domain.ErrLLMUnavailable, settings.LLM.Provider, keyLLMAPIKey)
	}
	if settings.Retrieval.ChunkOverlap >= settings.Retrieval.ChunkSize {
		return fmt.Errorf("%w: chunk overlap must be below chunk size", domain.ErrInvalidInput)
	}
	if _, err := LanguageName(settings.Answer.Language); err != nil {
		return err
	}
	return nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// ValidateEmbeddingConfig validates the current embedding configuration by pinging the provider.
func (s *SettingsService) ValidateEmbeddingConfig(ctx context.Context) error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateEmbedding(ctx, &settings.Embedding)
}

// ValidateLLMConfig validates the current LLM configuration by pinging the provider.
func (s *SettingsService) ValidateLLMConfig(ctx context.Context) error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateLLM(ctx, &settings.LLM)
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val == 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetFloat(key)
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	provider := domain.AIProvider(s.configStore.GetString(key))
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}

func (s *SettingsService) getMetric(defaultVal domain.DistanceMetric) domain.DistanceMetric {
	m := domain.DistanceMetric(s.configStore.GetString(keyMetric))
	if !m.IsValid() {
		return defaultVal
	}
	return m
}

func (s *SettingsService) getCacheBackend(defaultVal domain.CacheBackend) domain.CacheBackend {
	b := domain.CacheBackend(s.configStore.GetString(keyCacheBackend))
	if !b.IsValid() {
		return defaultVal
	}
	return b
}

func (s *SettingsService) envKey(p domain.AIProvider) string {
	switch p {
	case domain.AIProviderOpenAI:
		return s.getenv(EnvOpenAIKey)
	case domain.AIProviderAnthropic:
		return s.getenv(EnvAnthropicKey)
	default:
		return ""
	}
}

// fromEnv reports whether val for key came from the environment rather than the store.
func (s *SettingsService) fromEnv(key, val string) bool {
	return s.configStore.GetString(key) == "" &&
		(val == s.getenv(EnvOpenAIKey) || val == s.getenv(EnvAnthropicKey) || val == s.getenv(EnvAlphaVantageKey))
}

func defaultModel(models map[domain.AIProvider]string, p domain.AIProvider, fallback string) string {
	if m, ok := models[p]; ok {
		return m
	}
	return fallback
}

func localBaseURL(p domain.AIProvider, current string) string {
	if !p.IsLocal() {
		return ""
	}
	if current == "" {
		return "http://localhost:11434"
	}
	return current
}

func contains(list []domain.AIProvider, p domain.AIProvider) bool {
	for _, q := range list {
		if q == p {
			return true
		}
	}
	return false
}

func providerSetter(allowed []domain.AIProvider) setter {
	return func(v string) (any, error) {
		p := domain.AIProvider(strings.ToLower(strings.TrimSpace(v)))
		if !contains(allowed, p) {
			return nil, fmt.Errorf("provider %q not one of %v", v, allowed)
		}
		return p.String(), nil
	}
}

func intSetter(minVal int) setter {
	return func(v string) (any, error) {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return nil, fmt.Errorf("not an integer: %q", v)
		}
		if n < minVal {
			return nil, fmt.Errorf("must be at least %d", minVal)
		}
		return n, nil
	}
}

func floatSetter(minVal, maxVal float64) setter {
	return func(v string) (any, error) {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, fmt.Errorf("not a number: %q", v)
		}
		if f < minVal || f > maxVal {
			return nil, fmt.Errorf("must be between %g and %g", minVal, maxVal)
		}
		return f, nil
	}
}

func metricSetter(v string) (any, error) {
	m := domain.DistanceMetric(strings.ToLower(strings.TrimSpace(v)))
	if !m.IsValid() {
		return nil, fmt.Errorf("metric %q not one of cosine, euclidean", v)
	}
	return string(m), nil
}

func cacheBackendSetter(v string) (any, error) {
	b := domain.CacheBackend(strings.ToLower(strings.TrimSpace(v)))
	if !b.IsValid() {
		return nil, fmt.Errorf("backend %q not one of %v", v, domain.AllCacheBackends())
	}
	return string(b), nil
}

func languageSetter(v string) (any, error) {
	v = strings.TrimSpace(v)
	if _, err := LanguageName(v); err != nil {
		return nil, err
	}
	return v, nil
}
