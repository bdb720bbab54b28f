// Package domain defines the core entities for docent.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: Source text with provenance
//   - Chunk: A contiguous slice of a document used for embedding and retrieval
//   - Turn: One answered question in a conversation
//   - AnswerCandidate: A scored per-chunk answer in the site Q&A flow
//   - RawDocument: Opaque bytes before normalisation
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
