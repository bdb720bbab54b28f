// Command docent answers questions about documents, websites, meetings and
// markets using retrieval-augmented generation.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/custodia-labs/docent/internal/adapters/driven/ai"
	"github.com/custodia-labs/docent/internal/adapters/driven/config/file"
	"github.com/custodia-labs/docent/internal/adapters/driven/finance/alphavantage"
	loaderfile "github.com/custodia-labs/docent/internal/adapters/driven/loader/file"
	"github.com/custodia-labs/docent/internal/adapters/driven/media/ffmpeg"
	"github.com/custodia-labs/docent/internal/adapters/driven/storage"
	"github.com/custodia-labs/docent/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/docent/internal/adapters/driven/web/duckduckgo"
	"github.com/custodia-labs/docent/internal/adapters/driven/web/sitemap"
	"github.com/custodia-labs/docent/internal/adapters/driven/web/wikipedia"
	"github.com/custodia-labs/docent/internal/adapters/driving/cli"
	"github.com/custodia-labs/docent/internal/core/ports/driven"
	"github.com/custodia-labs/docent/internal/core/services"
	"github.com/custodia-labs/docent/internal/logger"
	"github.com/custodia-labs/docent/internal/normalisers/builtin"
	"github.com/custodia-labs/docent/internal/postprocessors"
	"github.com/custodia-labs/docent/internal/retry"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx)
	stop()
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	home, err := homeDir()
	if err != nil {
		return err
	}

	configStore, err := openConfig(home)
	if err != nil {
		return err
	}
	prompts, err := file.NewPromptStore(filepath.Join(home, "prompts"))
	if err != nil {
		return fmt.Errorf("opening prompts: %w", err)
	}
	settings := services.NewSettingsService(configStore, ai.NewConfigValidator())

	cli.SetVersion(version)
	cli.SetSettingsService(settings)
	cli.SetBuilder(func(_ context.Context) (*cli.Services, error) {
		return build(home, settings, prompts)
	})
	return cli.Execute(ctx)
}

// openConfig reads config.toml under home unless DOCENT_NO_CONFIG is set.
func openConfig(home string) (driven.ConfigStore, error) {
	if os.Getenv("DOCENT_NO_CONFIG") != "" {
		return memory.NewConfigStore(), nil
	}
	store, err := file.NewConfigStore(home)
	if err != nil {
		return nil, fmt.Errorf("opening config: %w", err)
	}
	return store, nil
}

// homeDir is $DOCENT_HOME or ~/.docent.
func homeDir() (string, error) {
	if dir := os.Getenv("DOCENT_HOME"); dir != "" {
		return dir, nil
	}
	userHome, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("finding home directory: %w", err)
	}
	return filepath.Join(userHome, ".docent"), nil
}

func build(home string, settingsService *services.SettingsService, prompts driven.PromptStore) (*cli.Services, error) {
	settings, err := settingsService.Get()
	if err != nil {
		return nil, err
	}

	cache, err := storage.OpenCache(settings.Cache.Backend, filepath.Join(home, "cache"))
	if err != nil {
		return nil, fmt.Errorf("opening cache: %w", err)
	}
	aiServices, err := ai.Init(*settings, cache, prompts)
	if err != nil {
		_ = cache.Close()
		return nil, err
	}
	closeAll := func() error {
		aiServices.Close()
		return cache.Close()
	}

	pipeline, err := postprocessors.DefaultPipeline(settings.Retrieval)
	if err != nil {
		_ = closeAll()
		return nil, err
	}
	policy := retry.Default()
	llm := aiServices.LLM

	ingest := services.NewIngestor(
		loaderfile.New(0),
		builtin.Registry(),
		pipeline,
		aiServices.Embedding,
		aiServices.NewIndex,
	)
	synth := services.NewSynthesizer(llm, prompts, services.SynthesizerConfig{
		Temperature: settings.LLM.Temperature,
		Language:    settings.Answer.Language,
		MinScore:    settings.Retrieval.MinScore,
	})
	memory := services.NewMemoryCompactor(llm, prompts, settings.Memory.MaxTokens, policy)
	chat := services.NewChatService(ingest, synth, memory, settings.Retrieval.TopK)

	site := services.NewSiteService(
		sitemap.New(sitemap.Config{RequestsPerSecond: settings.Site.RequestsPerSecond}),
		ingest, synth, llm, prompts,
		services.SiteConfig{
			TopK:              settings.Retrieval.TopK,
			Concurrency:       settings.Site.Concurrency,
			MinCandidateScore: settings.Site.MinCandidateScore,
			Temperature:       settings.LLM.Temperature,
			Language:          settings.Answer.Language,
			Retry:             policy,
		},
	)

	// Meetings report the missing transcriber when they reach that stage.
	transcriber, err := ai.CreateTranscriber(settings.Transcription)
	if err != nil {
		logger.Debug("transcriber: %v", err)
	}
	meeting := services.NewMeetingService(
		ffmpeg.New("ffmpeg"),
		transcriber,
		services.NewSummariser(llm, prompts, policy),
		ingest,
		services.MeetingConfig{
			WorkRoot:      filepath.Join(home, "meetings"),
			SegmentLength: settings.Transcription.SegmentLength(),
			Retry:         policy,
		},
	)

	quiz := services.NewQuizService(
		ingest,
		wikipedia.New(wikipedia.Config{Language: settings.Site.Language}),
		llm, prompts, cache,
		services.QuizConfig{Temperature: settings.LLM.Temperature, Retry: policy},
	)

	// Market tools report themselves unconfigured without a key.
	var market driven.MarketData
	if settings.Finance.AlphaVantageKey != "" {
		client, err := alphavantage.New(alphavantage.Config{APIKey: settings.Finance.AlphaVantageKey})
		if err != nil {
			_ = closeAll()
			return nil, err
		}
		market = client
	}
	research := services.NewResearchService(
		llm, prompts, duckduckgo.New(duckduckgo.Config{}), market,
		services.AgentConfig{Temperature: settings.LLM.Temperature, Retry: policy},
	)

	return &cli.Services{
		Chat:     chat,
		Site:     site,
		Meeting:  meeting,
		Quiz:     quiz,
		Research: research,
		Cache:    services.NewCacheService(cache),
		Close:    closeAll,
	}, nil
}
