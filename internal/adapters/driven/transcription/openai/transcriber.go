// Package openai transcribes audio files with the OpenAI audio API.
package openai

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/custodia-labs/docent/internal/core/domain"
	"github.com/custodia-labs/docent/internal/core/ports/driven"
	"github.com/custodia-labs/docent/internal/retry"
)

var _ driven.Transcriber = (*Transcriber)(nil)

// Default configuration values.
const (
	DefaultModel   = "whisper-1"
	DefaultTimeout = 10 * time.Minute
)

const op = "openai transcription"

// Config holds configuration for the transcriber.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Transcriber sends one audio file per request.
type Transcriber struct {
	client openai.Client
	model  string
}

// New creates a transcriber. The SDK's own retries are disabled; callers
// retry through the retry package so every provider backs off the same way.
func New(cfg Config) (*Transcriber, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: API key is required for transcription: %w", domain.ErrInvalidInput)
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
		option.WithRequestTimeout(cfg.Timeout),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimRight(cfg.BaseURL, "/")+"/"))
	}

	return &Transcriber{client: openai.NewClient(opts...), model: cfg.Model}, nil
}

// Transcribe uploads audioPath and returns the recognised text.
func (t *Transcriber) Transcribe(ctx context.Context, audioPath string) (string, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return "", fmt.Errorf("opening audio %s: %w", audioPath, err)
	}
	defer f.Close()

	resp, err := t.client.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		File:  openai.File(f, filepath.Base(audioPath), "audio/mpeg"),
		Model: openai.AudioModel(t.model),
	})
	if err != nil {
		return "", serviceError(err)
	}
	return resp.Text, nil
}

// Model returns the transcription model name.
func (t *Transcriber) Model() string { return t.model }

func serviceError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		se := &domain.ServiceError{Op: op, StatusCode: apiErr.StatusCode, Err: err}
		if apiErr.Response != nil {
			se.RetryAfter = retry.ParseRetryAfter(apiErr.Response.Header.Get("Retry-After"))
		}
		return se
	}
	return retry.TransportError(op, err)
}
