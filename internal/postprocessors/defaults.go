package postprocessors

import (
	"github.com/custodia-labs/docent/internal/core/domain"
	"github.com/custodia-labs/docent/internal/core/ports/driven"
	"github.com/custodia-labs/docent/internal/postprocessors/annotator"
	"github.com/custodia-labs/docent/internal/postprocessors/chunker"
)

// RegisterDefaults registers all built-in processors with the registry.
func RegisterDefaults(r *Registry) {
	r.Register("chunker", buildChunker)
	r.Register("annotator", func(map[string]any) (driven.PostProcessor, error) {
		return annotator.New(), nil
	})
}

// DefaultPipeline builds chunker then annotator from retrieval settings.
func DefaultPipeline(settings domain.RetrievalSettings) (*Pipeline, error) {
	r := NewRegistry()
	RegisterDefaults(r)
	cfg := domain.PipelineConfigFor(settings)
	cfg.Processors = append(cfg.Processors, "annotator")
	return r.BuildPipeline(cfg)
}

// buildChunker creates a chunker processor from generic config.
// Supported config keys:
//   - chunk_size (int): Runes per chunk (default: 600)
//   - overlap (int): Runes shared between consecutive chunks (default: 100)
func buildChunker(cfg map[string]any) (driven.PostProcessor, error) {
	var opts []chunker.Option

	if size, ok := getIntFromConfig(cfg, "chunk_size"); ok {
		opts = append(opts, chunker.WithChunkSize(size))
	}
	if overlap, ok := getIntFromConfig(cfg, "overlap"); ok {
		opts = append(opts, chunker.WithOverlap(overlap))
	}

	return chunker.New(opts...), nil
}

// getIntFromConfig extracts an int that may arrive as int, int64, or float64
// from TOML/JSON parsing.
func getIntFromConfig(cfg map[string]any, key string) (int, bool) {
	switch v := cfg[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}
