package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/custodia-labs/docent/internal/core/domain"
	"github.com/custodia-labs/docent/internal/core/ports/driven"
	"github.com/custodia-labs/docent/internal/core/ports/driving"
	"github.com/custodia-labs/docent/internal/llmjson"
	"github.com/custodia-labs/docent/internal/logger"
	"github.com/custodia-labs/docent/internal/retry"
)

var _ driving.QuizService = (*QuizService)(nil)

// Defaults for QuizConfig fields left zero.
const (
	DefaultQuizArticles    = 3
	DefaultQuizContextRune = 12000
)

// QuizKeyPrefix namespaces quizzes in the shared key-value store.
const QuizKeyPrefix = "quiz:"

// QuizConfig configures quiz generation.
type QuizConfig struct {
	Temperature float64

	// Articles is how many encyclopedia articles a topic quiz reads.
	Articles int

	// MaxContextRunes truncates long sources before prompting.
	MaxContextRunes int

	Retry retry.Policy
}

// QuizService writes multiple-choice quizzes from files or encyclopedia topics.
// Generated quizzes are cached by content and difficulty.
type QuizService struct {
	ingest  *Ingestor
	wiki    driven.Encyclopedia
	llm     driven.LLMService
	prompts driven.PromptStore
	store   driven.KeyValueStore
	cfg     QuizConfig
}

// NewQuizService creates a quiz service. wiki and store may be nil.
func NewQuizService(
	ingest *Ingestor,
	wiki driven.Encyclopedia,
	llm driven.LLMService,
	prompts driven.PromptStore,
	store driven.KeyValueStore,
	cfg QuizConfig,
) *QuizService {
	if cfg.Articles <= 0 {
		cfg.Articles = DefaultQuizArticles
	}
	if cfg.MaxContextRunes <= 0 {
		cfg.MaxContextRunes = DefaultQuizContextRune
	}
	if cfg.Retry.Attempts == 0 {
		cfg.Retry = retry.Default()
	}
	return &QuizService{ingest: ingest, wiki: wiki, llm: llm, prompts: prompts, store: store, cfg: cfg}
}

// FromFile writes a quiz about a local file.
func (s *QuizService) FromFile(ctx context.Context, path string, difficulty domain.Difficulty) (*domain.Quiz, error) {
	if !difficulty.IsValid() {
		return nil, fmt.Errorf("%w: difficulty %q", domain.ErrInvalidInput, difficulty)
	}
	doc, err := s.ingest.LoadFile(ctx, path)
	if err != nil {
		return nil, err
	}
	return s.generate(ctx, doc.Content, doc.Source(), difficulty)
}

// FromTopic writes a quiz from encyclopedia articles about topic.
func (s *QuizService) FromTopic(ctx context.Context, topic string, difficulty domain.Difficulty) (*domain.Quiz, error) {
	if !difficulty.IsValid() {
		return nil, fmt.Errorf("%w: difficulty %q", domain.ErrInvalidInput, difficulty)
	}
	if s.wiki == nil {
		return nil, fmt.Errorf("%w: no encyclopedia configured", domain.ErrInvalidInput)
	}
	docs, err := s.wiki.Search(ctx, topic, s.cfg.Articles)
	if err != nil {
		return nil, err
	}
	parts := make([]string, len(docs))
	for i, d := range docs {
		parts[i] = d.Title + "\n" + d.Content
	}
	return s.generate(ctx, strings.Join(parts, "\n\n"), topic, difficulty)
}

// QuizKey is the cache key for a quiz over content at difficulty.
func QuizKey(content string, difficulty domain.Difficulty) string {
	sum := sha256.Sum256([]byte(content + string(difficulty)))
	return QuizKeyPrefix + hex.EncodeToString(sum[:])
}

func (s *QuizService) generate(ctx context.Context, content, source string, difficulty domain.Difficulty) (*domain.Quiz, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: %s has no text", domain.ErrEmptyContext, source)
	}
	key := QuizKey(content, difficulty)
	if q, ok := s.cached(ctx, key); ok {
		logger.Info("quiz served from cache")
		q.Source = source
		return q, nil
	}

	if r := []rune(content); len(r) > s.cfg.MaxContextRunes {
		content = string(r[:s.cfg.MaxContextRunes])
	}
	prompt, err := renderPrompt(s.prompts, driven.PromptQuiz, string(difficulty), content)
	if err != nil {
		return nil, err
	}
	msgs := []driven.ChatMessage{{Role: driven.RoleUser, Content: prompt}}
	opts := driven.ChatOptions{Temperature: driven.Temperature(s.cfg.Temperature), JSON: true}

	reply, err := retry.Do(ctx, s.cfg.Retry, "quiz", func(ctx context.Context) (string, error) {
		return s.llm.Chat(ctx, msgs, opts)
	})
	if err != nil {
		return nil, err
	}

	quiz, err := parseQuiz(reply)
	if err != nil {
		return nil, err
	}
	quiz.Difficulty = difficulty
	quiz.Source = source

	if s.store != nil {
		if data, err := json.Marshal(quiz); err == nil {
			if err := s.store.Put(ctx, key, data); err != nil {
				logger.Warn("quiz cache write failed: %v", err)
			}
		}
	}
	return quiz, nil
}

func (s *QuizService) cached(ctx context.Context, key string) (*domain.Quiz, bool) {
	if s.store == nil {
		return nil, false
	}
	data, ok, err := s.store.Get(ctx, key)
	if err != nil {
		logger.Warn("quiz cache read failed: %v", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var q domain.Quiz
	if err := json.Unmarshal(data, &q); err != nil || len(q.Questions) == 0 {
		return nil, false
	}
	return &q, true
}

// parseQuiz decodes the model reply and drops invalid questions.
func parseQuiz(reply string) (*domain.Quiz, error) {
	var raw domain.Quiz
	if err := llmjson.Decode(reply, &raw); err != nil {
		return nil, err
	}
	quiz := &domain.Quiz{}
	for _, q := range raw.Questions {
		q.Question = strings.TrimSpace(q.Question)
		if err := q.Validate(); err != nil {
			logger.Warn("dropping quiz question: %v", err)
			continue
		}
		quiz.Questions = append(quiz.Questions, q)
	}
	if len(quiz.Questions) == 0 {
		return nil, fmt.Errorf("%w: no valid questions", domain.ErrMalformedResponse)
	}
	return quiz, nil
}
