// Package tui provides the full-screen document chat.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"github.com/custodia-labs/docent/internal/core/ports/driving"
)

// Ports aggregates the driving ports the TUI needs.
type Ports struct {
	// Chat answers questions.
	Chat driving.ChatService

	// Session is the opened document the chat is about.
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
