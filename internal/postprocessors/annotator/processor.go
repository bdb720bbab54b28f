// Package annotator stamps provenance onto chunks so answers can cite them.
package annotator

import (
	"context"

	"github.com/custodia-labs/docent/internal/core/domain"
)

// Metadata keys written on every chunk.
const (
	KeySource = domain.ChunkMetaSource
	KeyTitle  = domain.ChunkMetaTitle
)

// Processor copies document provenance into chunk metadata.
type Processor struct{}

// New creates an annotator.
func New() *Processor { return &Processor{} }

// Name returns the processor name.
func (p *Processor) Name() string { return "annotator" }

// Process annotates chunks in place and returns them.
func (p *Processor) Process(_ context.Context, doc *domain.Document, chunks []domain.Chunk) ([]domain.Chunk, error) {
	for i := range chunks {
		if chunks[i].Metadata == nil {
			chunks[i].Metadata = make(map[string]any, 2)
		}
		chunks[i].Metadata[KeySource] = doc.Source()
		if doc.Title != "" {
			chunks[i].Metadata[KeyTitle] = doc.Title
		}
	}
	return chunks, nil
}
