package mcp

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/docent/internal/core/domain"
)

// defaultRetrieveLimit applies when the client leaves limit unset.
const defaultRetrieveLimit = 4

// AskInput is the input schema for the ask tool.
type AskInput struct {
	Question string `json:"question" jsonschema:"the question to answer from the loaded document"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	Answer    string            `json:"answer"`
	Citations []domain.Citation `json:"citations"`

	// Grounded is false when the document did not contain the answer.
	Grounded bool `json:"grounded"`
}

// RetrieveInput is the input schema for the retrieve tool.
type RetrieveInput struct {
	Question string `json:"question" jsonschema:"the question to find passages for"`
	Limit    int    `json:"limit,omitempty" jsonschema:"maximum number of passages to return (default 4)"`
}

// RetrieveOutput is the output schema for the retrieve tool.
type RetrieveOutput struct {
	Passages []PassageOutput `json:"passages"`
	Count    int             `json:"count"`
}

// PassageOutput is one retrieved chunk.
type PassageOutput struct {
	Source   string  `json:"source"`
	Position int     `json:"position"`
	Score    float64 `json:"score"`
	Content  string  `json:"content"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask",
		Description: "Answer a question using only the loaded document. Replies \"I don't know.\" when the document does not say.",
	}, s.handleAsk)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "retrieve",
		Description: "Return the document passages most relevant to a question, without generating an answer",
	}, s.handleRetrieve)
}

func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	if input.Question == "" {
		return nil, AskOutput{}, errors.New("question is required")
	}

	turn, err := s.ports.Chat.Ask(ctx, s.ports.Session, input.Question)
	if err != nil {
		return nil, AskOutput{}, err
	}

	citations := turn.Citations
	if citations == nil {
		citations = []domain.Citation{}
	}
	return nil, AskOutput{
		Answer:    turn.Answer,
		Citations: citations,
		Grounded:  !domain.IsFallback(turn.Answer),
	}, nil
}

func (s *Server) handleRetrieve(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RetrieveInput,
) (*mcp.CallToolResult, RetrieveOutput, error) {
	if input.Question == "" {
		return nil, RetrieveOutput{}, errors.New("question is required")
	}
	limit := input.Limit
	if limit <= 0 {
		limit = defaultRetrieveLimit
	}

	hits, err := s.ports.Chat.Retrieve(ctx, s.ports.Session, input.Question, limit)
	if err != nil {
		return nil, RetrieveOutput{}, err
	}

	out := RetrieveOutput{
		Passages: make([]PassageOutput, len(hits)),
		Count:    len(hits),
	}
	for i, h := range hits {
		source, _ := h.Chunk.Metadata[domain.ChunkMetaSource].(string)
		out.Passages[i] = PassageOutput{
			Source:   source,
			Position: h.Chunk.Position,
			Score:    h.Score,
			Content:  h.Chunk.Content,
		}
	}
	return nil, out, nil
}
