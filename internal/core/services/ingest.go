package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/docent/internal/core/domain"
	"github.com/custodia-labs/docent/internal/core/ports/driven"
	"github.com/custodia-labs/docent/internal/core/ports/driving"
	"github.com/custodia-labs/docent/internal/logger"
)

// Ingestor turns documents into an indexed session: chunk, embed, index.
type Ingestor struct {
	loader      driven.DocumentLoader
	normalisers driven.NormaliserRegistry
	pipeline    driven.PostProcessorPipeline
	embedder    driven.EmbeddingService
	newIndex    driven.VectorIndexFactory
}

// NewIngestor creates an ingestor.
func NewIngestor(
	loader driven.DocumentLoader,
	normalisers driven.NormaliserRegistry,
	pipeline driven.PostProcessorPipeline,
	embedder driven.EmbeddingService,
	newIndex driven.VectorIndexFactory,
) *Ingestor {
	return &Ingestor{
		loader:      loader,
		normalisers: normalisers,
		pipeline:    pipeline,
		embedder:    embedder,
		newIndex:    newIndex,
	}
}

// LoadFile reads and normalises one file.
func (in *Ingestor) LoadFile(ctx context.Context, path string) (domain.Document, error) {
	raw, err := in.loader.Load(ctx, path)
	if err != nil {
		return domain.Document{}, err
	}
	return in.Normalise(ctx, raw)
}

// Normalise converts raw bytes into a document.
func (in *Ingestor) Normalise(ctx context.Context, raw *domain.RawDocument) (domain.Document, error) {
	res, err := in.normalisers.Normalise(ctx, raw)
	if err != nil {
		return domain.Document{}, fmt.Errorf("normalise %s: %w", raw.URI, err)
	}
	return res.Document, nil
}

// Chunk splits one document with the configured pipeline.
func (in *Ingestor) Chunk(ctx context.Context, doc *domain.Document) ([]domain.Chunk, error) {
	return in.pipeline.Process(ctx, doc)
}

// NewSession chunks, embeds, and indexes docs.
func (in *Ingestor) NewSession(ctx context.Context, label string, docs []domain.Document) (*driving.Session, error) {
	sess := &driving.Session{
		ID:        uuid.New().String(),
		Label:     label,
		CreatedAt: time.Now(),
	}
	if err := in.Index(ctx, sess, docs); err != nil {
		return nil, err
	}
	return sess, nil
}

// Index replaces the session's documents, chunks, and index. The
// conversation is untouched. On error the session is left as it was.
func (in *Ingestor) Index(ctx context.Context, sess *driving.Session, docs []domain.Document) error {
	logger.Section("Ingest")

	var chunks []domain.Chunk
	for i := range docs {
		dc, err := in.pipeline.Process(ctx, &docs[i])
		if err != nil {
			return fmt.Errorf("chunk %s: %w", docs[i].Source(), err)
		}
		logger.Debug("%s: %d chunks", docs[i].Source(), len(dc))
		chunks = append(chunks, dc...)
	}
	if len(chunks) == 0 {
		logger.Warn("%s: no text to index", sess.Label)
	}

	if len(chunks) > 0 {
		texts := make([]string, len(chunks))
		for i := range chunks {
			texts[i] = chunks[i].Content
		}
		vectors, err := in.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("embed chunks: %w", err)
		}
		if len(vectors) != len(chunks) {
			return fmt.Errorf("%w: embedded %d of %d chunks", domain.ErrServiceFailure, len(vectors), len(chunks))
		}
		for i := range chunks {
			chunks[i].Embedding = vectors[i]
		}
	}

	index := in.newIndex()
	if err := index.Build(ctx, chunks); err != nil {
		return fmt.Errorf("build index: %w", err)
	}
	logger.Info("indexed %d chunks from %d document(s)", len(chunks), len(docs))

	sess.Documents = docs
	sess.Chunks = chunks
	sess.Index = index
	return nil
}

// Retrieve embeds the question and returns the k nearest chunks.
func (in *Ingestor) Retrieve(ctx context.Context, sess *driving.Session, question string, k int) ([]domain.ScoredChunk, error) {
	if sess == nil || sess.Index == nil {
		return nil, domain.ErrNoSession
	}
	if sess.Index.Len() == 0 || k <= 0 {
		return nil, nil
	}
	vec, err := in.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}
	return sess.Index.Query(ctx, vec, k)
}
