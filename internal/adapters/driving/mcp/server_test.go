package mcp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docent/internal/core/ports/driving"
)

func TestNewServer(t *testing.T) {
	t.Run("nil chat service returns error", func(t *testing.T) {
		server, err := NewServer(&Ports{Session: &driving.Session{}})
		require.Error(t, err)
		assert.Nil(t, server)
		assert.ErrorIs(t, err, ErrMissingChatService)
	})

	t.Run("nil session returns error", func(t *testing.T) {
		server, err := NewServer(&Ports{Chat: &mockChatService{}})
		require.Error(t, err)
		assert.Nil(t, server)
		assert.ErrorIs(t, err, ErrMissingSession)
	})

	t.Run("valid ports creates server", func(t *testing.T) {
		server, err := NewServer(&Ports{Chat: &mockChatService{}, Session: &driving.Session{}})
		require.NoError(t, err)
		assert.NotNil(t, server)
	})
}

func TestPorts_Validate(t *testing.T) {
	assert.ErrorIs(t, (&Ports{}).Validate(), ErrMissingChatService)
	assert.ErrorIs(t, (&Ports{Chat: &mockChatService{}}).Validate(), ErrMissingSession)
	assert.NoError(t, (&Ports{Chat: &mockChatService{}, Session: &driving.Session{}}).Validate())
}
