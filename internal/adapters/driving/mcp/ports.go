package mcp

import (
	"github.com/custodia-labs/docent/internal/core/ports/driving"
)

// Ports aggregates what the MCP server needs: the chat service and the
// session it answers from.
type Ports struct {
	Chat driving.ChatService

	// Session is loaded before the server starts and shared by every client.
	Session *driving.Session
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Chat == nil {
		return ErrMissingChatService
	}
	if p.Session == nil {
		return ErrMissingSession
	}
	return nil
}
