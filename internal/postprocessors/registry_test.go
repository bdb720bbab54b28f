package postprocessors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docent/internal/core/domain"
	"github.com/custodia-labs/docent/internal/core/ports/driven"
	"github.com/custodia-labs/docent/internal/postprocessors/chunker"
)

func TestRegistry_RegisterAndBuild(t *testing.T) {
	r := NewRegistry()
	r.Register("test", func(cfg map[string]any) (driven.PostProcessor, error) {
		name, _ := cfg["name"].(string)
		return &mockProcessor{name: name}, nil
	})

	assert.True(t, r.Has("test"))
	proc, err := r.Build("test", map[string]any{"name": "custom"})
	require.NoError(t, err)
	assert.Equal(t, "custom", proc.Name())
}

func TestRegistry_Build_Unknown(t *testing.T) {
	_, err := NewRegistry().Build("unknown", nil)
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
}

func TestRegistry_Names_Sorted(t *testing.T) {
	r := NewRegistry()
	RegisterDefaults(r)
	assert.Equal(t, []string{"annotator", "chunker"}, r.Names())
}

func TestBuildChunker_ReadsConfig(t *testing.T) {
	tests := []struct {
		name        string
		cfg         map[string]any
		wantSize    int
		wantOverlap int
	}{
		{"nil config", nil, chunker.DefaultChunkSize, chunker.DefaultChunkOverlap},
		{"int values", map[string]any{"chunk_size": 300, "overlap": 30}, 300, 30},
		{"toml int64", map[string]any{"chunk_size": int64(400), "overlap": int64(0)}, 400, 0},
		{"json float", map[string]any{"chunk_size": float64(300)}, 300, chunker.DefaultChunkOverlap},
		{"wrong type", map[string]any{"chunk_size": "big"}, chunker.DefaultChunkSize, chunker.DefaultChunkOverlap},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			proc, err := buildChunker(tt.cfg)
			require.NoError(t, err)
			c := proc.(*chunker.Processor)
			assert.Equal(t, tt.wantSize, c.Size())
			assert.Equal(t, tt.wantOverlap, c.Overlap())
		})
	}
}

func TestBuildPipeline_UnknownProcessor(t *testing.T) {
	r := NewRegistry()
	_, err := r.BuildPipeline(domain.PipelineConfig{Processors: []string{"stemmer"}})
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
}
