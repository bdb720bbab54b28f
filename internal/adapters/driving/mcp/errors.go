// Package mcp serves a loaded document session over the Model Context Protocol,
// so assistants can ask questions about it or pull raw passages.
package mcp

import "errors"

var (
	// ErrMissingChatService is returned when the chat service is not provided.
	ErrMissingChatService = errors.New("mcp: chat service is required")

	// ErrMissingSession is returned when no document session has been loaded.
	ErrMissingSession = errors.New("mcp: document session is required")
)
