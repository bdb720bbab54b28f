// Package cached memoises embeddings in a key-value store.
//
// Keys are content addressed: the SHA-256 of the model name and the text.
// Identical text under the same model is embedded once and every later
// request returns the stored vector.
package cached

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"sync/atomic"

	"github.com/custodia-labs/docent/internal/core/domain"
	"github.com/custodia-labs/docent/internal/core/ports/driven"
	"github.com/custodia-labs/docent/internal/logger"
	"github.com/custodia-labs/docent/internal/retry"
)

var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// KeyPrefix namespaces embedding entries in a shared store.
const KeyPrefix = "emb:"

// EmbeddingService wraps another EmbeddingService with a read-through cache.
type EmbeddingService struct {
	inner  driven.EmbeddingService
	store  driven.KeyValueStore
	policy retry.Policy

	hits   atomic.Int64
	misses atomic.Int64
}

// Option configures the cache.
type Option func(*EmbeddingService)

// WithRetryPolicy replaces the default retry policy for model calls.
func WithRetryPolicy(p retry.Policy) Option {
	return func(s *EmbeddingService) { s.policy = p }
}

// New wraps inner with a cache over store.
func New(inner driven.EmbeddingService, store driven.KeyValueStore, opts ...Option) *EmbeddingService {
	s := &EmbeddingService{inner: inner, store: store, policy: retry.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Key returns the cache key for text under model.
func Key(model, text string) string {
	sum := sha256.Sum256([]byte(model + "\x00" + text))
	return KeyPrefix + hex.EncodeToString(sum[:])
}

// Embed returns the cached vector for text, computing it on a miss.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// EmbedBatch serves hits from the store and embeds all misses in one call.
// Nothing is written unless every miss received a vector.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	model := s.inner.ModelName()
	out := make([][]float32, len(texts))

	// Repeated texts within one batch share a single model input.
	pending := make(map[string][]int)
	var missTexts []string

	for i, text := range texts {
		if vec, ok := s.lookup(ctx, Key(model, text)); ok {
			out[i] = vec
			s.hits.Add(1)
			continue
		}
		if _, seen := pending[text]; !seen {
			missTexts = append(missTexts, text)
		}
		pending[text] = append(pending[text], i)
	}

	if len(missTexts) == 0 {
		logger.Debug("embedding cache: %d hits", len(texts))
		return out, nil
	}
	s.misses.Add(int64(len(missTexts)))
	logger.Debug("embedding cache: %d hits, %d misses", len(texts)-len(missTexts), len(missTexts))

	vecs, err := retry.Do(ctx, s.policy, "embed", func(ctx context.Context) ([][]float32, error) {
		return s.inner.EmbedBatch(ctx, missTexts)
	})
	if err != nil {
		return nil, fmt.Errorf("embed %d texts: %w", len(missTexts), err)
	}
	if err := validate(vecs, len(missTexts)); err != nil {
		return nil, &domain.ServiceError{Op: "embed " + model, Err: err}
	}

	for j, text := range missTexts {
		if err := s.store.Put(ctx, Key(model, text), encode(vecs[j])); err != nil {
			logger.Warn("embedding cache write failed: %v", err)
		}
		for _, i := range pending[text] {
			out[i] = vecs[j]
		}
	}
	return out, nil
}

func (s *EmbeddingService) lookup(ctx context.Context, key string) ([]float32, bool) {
	raw, ok, err := s.store.Get(ctx, key)
	if err != nil {
		logger.Warn("embedding cache read failed: %v", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	vec, err := decode(raw)
	if err != nil {
		logger.Warn("embedding cache entry %s unreadable: %v", key, err)
		return nil, false
	}
	return vec, true
}

func validate(vecs [][]float32, want int) error {
	if len(vecs) != want {
		return fmt.Errorf("got %d vectors for %d inputs", len(vecs), want)
	}
	for i, v := range vecs {
		if len(v) == 0 {
			return fmt.Errorf("empty vector for input %d", i)
		}
		if len(v) != len(vecs[0]) {
			return fmt.Errorf("vector %d has dimension %d, want %d", i, len(v), len(vecs[0]))
		}
	}
	return nil
}

// encode stores a vector as little-endian float32s.
func encode(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	return buf
}

func decode(buf []byte) ([]float32, error) {
	if len(buf) == 0 || len(buf)%4 != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not a vector", domain.ErrInvalidInput, len(buf))
	}
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:]))
	}
	return vec, nil
}

// Hits returns the number of texts served from the cache.
func (s *EmbeddingService) Hits() int64 { return s.hits.Load() }

// Misses returns the number of texts sent to the model.
func (s *EmbeddingService) Misses() int64 { return s.misses.Load() }

// Dimensions returns the wrapped model's vector size.
func (s *EmbeddingService) Dimensions() int { return s.inner.Dimensions() }

// ModelName returns the wrapped model's name.
func (s *EmbeddingService) ModelName() string { return s.inner.ModelName() }

// Ping checks the wrapped model.
func (s *EmbeddingService) Ping(ctx context.Context) error { return s.inner.Ping(ctx) }

// Close closes the wrapped model. The store is owned by the caller.
func (s *EmbeddingService) Close() error { return s.inner.Close() }
