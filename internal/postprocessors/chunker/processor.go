// Package chunker provides a boundary-aware text chunking processor.
package chunker

import (
	"context"
	"strings"
	"unicode"

	"github.com/google/uuid"

	"github.com/custodia-labs/docent/internal/core/domain"
)

// DefaultChunkSize is the default number of runes per chunk.
const DefaultChunkSize = 600

// DefaultChunkOverlap is the default number of runes shared by consecutive chunks.
const DefaultChunkOverlap = 100

// boundaries lists tiers of cut points from most to least preferred.
// Within a tier the cut nearest the window end wins. A chunk ends just
// after the separator.
var boundaries = [][][]rune{
	{[]rune("\n\n")},
	{[]rune("\n")},
	{[]rune(". "), []rune("! "), []rune("? "), []rune("。")},
}

// Processor splits document content into overlapping chunks, preferring
// paragraph and sentence breaks over hard cuts.
// It implements the PostProcessor interface.
type Processor struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in runes.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in runes.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(p)
	}

	// A chunk is never shorter than half the size, so the overlap must stay
	// below that for the window to advance.
	if 2*p.overlap >= p.chunkSize {
		p.overlap = p.chunkSize / 4
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// Size returns the effective chunk size.
func (p *Processor) Size() int { return p.chunkSize }

// Overlap returns the effective overlap.
func (p *Processor) Overlap() int { return p.overlap }

// Process splits the document content into chunks.
// Input chunks are ignored; this processor creates new chunks from document content.
// Blank content produces no chunks.
func (p *Processor) Process(_ context.Context, doc *domain.Document, _ []domain.Chunk) ([]domain.Chunk, error) {
	if strings.TrimSpace(doc.Content) == "" {
		return nil, nil
	}
	return p.Split(doc.ID, doc.Content), nil
}

// Split chunks text directly. Joining the first chunk with Fresh() of the
// rest reproduces text exactly.
func (p *Processor) Split(documentID, text string) []domain.Chunk {
	r := []rune(text)
	n := len(r)

	chunks := make([]domain.Chunk, 0, n/(p.chunkSize-p.overlap)+1)
	start, shared := 0, 0

	for {
		end := n
		if n-start > p.chunkSize {
			end = p.cut(r, start)
		}

		chunks = append(chunks, domain.Chunk{
			ID:         uuid.New().String(),
			DocumentID: documentID,
			Content:    string(r[start:end]),
			Position:   len(chunks),
			Start:      start,
			End:        end,
			Overlap:    shared,
			Metadata:   make(map[string]any),
		})

		if end == n {
			return chunks
		}

		shared = p.overlap
		start = end - shared
	}
}

// cut picks the end of a chunk starting at start. The text beyond
// start+chunkSize is known to exist.
func (p *Processor) cut(r []rune, start int) int {
	limit := start + p.chunkSize
	floor := start + max(p.overlap+1, p.chunkSize/2)

	for _, tier := range boundaries {
		for i := limit; i >= floor; i-- {
			for _, sep := range tier {
				if endsWith(r[:i], sep) {
					return i
				}
			}
		}
	}
	for i := limit; i >= floor; i-- {
		if unicode.IsSpace(r[i-1]) {
			return i
		}
	}
	return limit
}

func endsWith(r, suffix []rune) bool {
	if len(r) < len(suffix) {
		return false
	}
	tail := r[len(r)-len(suffix):]
	for i := range suffix {
		if tail[i] != suffix[i] {
			return false
		}
	}
	return true
}
