package domain

import "time"

// Document is source text plus provenance.
// It is the canonical representation after normalisation and is not
// modified once loaded.
type Document struct {
	// ID is the unique identifier for the document.
	ID string

	// URI is the provenance: file path, URL, or a timestamped label.
	URI string

	// Title is the human-readable title.
	Title string

	// Content is the full text content after normalisation.
	Content string

	// Metadata contains arbitrary key-value pairs (e.g. "lastmod" for crawled pages).
	Metadata map[string]any

	// LoadedAt is when the document was read.
	LoadedAt time.Time
}

// Source returns the best provenance string for citations.
func (d *Document) Source() string {
	if d.URI != "" {
		return d.URI
	}
	return d.Title
}

// Chunk is a contiguous substring of a Document.
// Offsets are rune offsets into Document.Content.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string

	// DocumentID links to the parent Document.
	DocumentID string

	// Content is the text content of this chunk.
	Content string

	// Position is the ordinal position within the document.
	Position int

	// Start is the rune offset where the chunk begins.
	Start int

	// End is the rune offset one past the last rune of the chunk.
	End int

	// Overlap is the number of leading runes shared with the previous chunk.
	Overlap int

	// Embedding is the vector representation, set during ingest.
	Embedding []float32

	// Metadata contains chunk-specific key-value pairs.
	Metadata map[string]any
}

// Chunk metadata keys used for citations.
const (
	ChunkMetaSource = "source"
	ChunkMetaTitle  = "title"
)

// Source returns the provenance stamped on the chunk, if any.
func (c *Chunk) Source() string {
	s, _ := c.Metadata[ChunkMetaSource].(string)
	return s
}

// Fresh returns the part of the chunk not shared with its predecessor.
func (c *Chunk) Fresh() string {
	r := []rune(c.Content)
	if c.Overlap <= 0 || c.Overlap > len(r) {
		return c.Content
	}
	return string(r[c.Overlap:])
}

// ScoredChunk is a retrieval hit.
type ScoredChunk struct {
	Chunk Chunk

	// Score is the similarity to the query; higher is closer.
	Score float64
}

// DistanceMetric selects how the vector index compares embeddings.
type DistanceMetric string

// Supported metrics.
const (
	MetricCosine    DistanceMetric = "cosine"
	MetricEuclidean DistanceMetric = "euclidean"
)

// IsValid returns true if the metric is recognised.
func (m DistanceMetric) IsValid() bool {
	return m == MetricCosine || m == MetricEuclidean
}
