package sse

import (
	"errors"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, input string) []Event {
	t.Helper()
	var out []Event
	for ev, err := range Events(strings.NewReader(input)) {
		require.NoError(t, err)
		out = append(out, ev)
	}
	return out
}

func TestEvents_DataOnly(t *testing.T) {
	events := collect(t, "data: {\"a\":1}\n\ndata: [DONE]\n\n")

	require.Len(t, events, 2)
	assert.Equal(t, `{"a":1}`, events[0].Data)
	assert.Equal(t, "[DONE]", events[1].Data)
}

func TestEvents_NamedAndMultiline(t *testing.T) {
	input := ": keep-alive\n" +
		"event: content_block_delta\n" +
		"data: line one\n" +
		"data: line two\n" +
		"\n" +
		"event: message_stop\n" +
		"data: {}\n"

	events := collect(t, input)

	require.Len(t, events, 2)
	assert.Equal(t, "content_block_delta", events[0].Name)
	assert.Equal(t, "line one\nline two", events[0].Data)
	assert.Equal(t, "message_stop", events[1].Name)
}

func TestEvents_StopEarly(t *testing.T) {
	n := 0
	for range Events(strings.NewReader("data: 1\n\ndata: 2\n\ndata: 3\n\n")) {
		n++
		if n == 2 {
			break
		}
	}
	assert.Equal(t, 2, n)
}

func TestEvents_ReadError(t *testing.T) {
	boom := errors.New("boom")
	var got error
	for _, err := range Events(iotest.ErrReader(boom)) {
		got = err
	}
	assert.ErrorIs(t, got, boom)
}
