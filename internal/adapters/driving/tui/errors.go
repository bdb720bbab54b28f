package tui

import "errors"

// ErrMissingChatService is returned when the chat service is not provided.
var ErrMissingChatService = errors.New("tui: chat service is required")

// ErrMissingSession is returned when no document session has been opened.
var ErrMissingSession = errors.New("tui: session is required")

// ErrNilPorts is returned when NewApp is given no ports at all.
var ErrNilPorts = errors.New("tui: ports are required")
