package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const uriScheme = "docent://"

func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "document",
		Name:        "document",
		Description: "Full text of the loaded document",
		MIMEType:    "text/plain",
	}, s.handleDocumentResource)

	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "history",
		Name:        "history",
		Description: "Questions answered so far in this session",
		MIMEType:    "application/json",
	}, s.handleHistoryResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "documents/{documentId}",
		Name:        "document-content",
		Description: "Text of one document when the session holds several",
		MIMEType:    "text/plain",
	}, s.handleDocumentContentResource)
}

// handleDocumentResource returns every session document, each under its title.
func (s *Server) handleDocumentResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	sess := s.ports.Session
	sess.Lock()
	defer sess.Unlock()

	var b strings.Builder
	for i, doc := range sess.Documents {
		if len(sess.Documents) > 1 {
			if i > 0 {
				b.WriteString("\n\n")
			}
			fmt.Fprintf(&b, "# %s\n\n", doc.Title)
		}
		b.WriteString(doc.Content)
	}

	return textResult(req.Params.URI, "text/plain", b.String()), nil
}

func (s *Server) handleHistoryResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	type turnInfo struct {
		Question string `json:"question"`
		Answer   string `json:"answer"`
		Cached   bool   `json:"cached,omitempty"`
	}

	sess := s.ports.Session
	sess.Lock()
	history := sess.AnsweredHistory()
	sess.Unlock()

	infos := make([]turnInfo, len(history))
	for i, t := range history {
		infos[i] = turnInfo{Question: t.Question, Answer: t.Answer, Cached: t.Cached}
	}

	data, err := json.MarshalIndent(infos, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling history: %w", err)
	}
	return textResult(req.Params.URI, "application/json", string(data)), nil
}

func (s *Server) handleDocumentContentResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	docID := extractDocumentID(req.Params.URI)
	if docID == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	sess := s.ports.Session
	sess.Lock()
	doc, ok := sess.DocumentByID(docID)
	var content string
	if ok {
		content = doc.Content
	}
	sess.Unlock()

	if !ok {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	return textResult(req.Params.URI, "text/plain", content), nil
}

func textResult(uri, mime, text string) *mcp.ReadResourceResult {
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: mime,
			Text:     text,
		}},
	}
}

// extractDocumentID extracts the document ID from a URI like docent://documents/{documentId}.
func extractDocumentID(uri string) string {
	const prefix = uriScheme + "documents/"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}

	return strings.TrimPrefix(uri, prefix)
}
