package ffmpeg

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docent/internal/core/domain"
)

type call struct {
	name string
	args []string
}

func TestExtractAudio_BuildsCommand(t *testing.T) {
	dir := t.TempDir()
	video := filepath.Join(dir, "meeting.mp4")
	require.NoError(t, os.WriteFile(video, []byte("video"), 0600))

	var calls []call
	p := New("").WithRunner(func(_ context.Context, name string, args ...string) error {
		calls = append(calls, call{name, args})
		return nil
	})

	audio := filepath.Join(dir, "work", "audio.mp3")
	require.NoError(t, p.ExtractAudio(context.Background(), video, audio))

	require.Len(t, calls, 1)
	assert.Equal(t, DefaultBinary, calls[0].name)
	assert.Contains(t, calls[0].args, "-vn")
	assert.Equal(t, audio, calls[0].args[len(calls[0].args)-1])
	assert.DirExists(t, filepath.Join(dir, "work"))
}

func TestExtractAudio_MissingVideo(t *testing.T) {
	p := New("").WithRunner(func(context.Context, string, ...string) error {
		t.Fatal("runner must not be called")
		return nil
	})

	err := p.ExtractAudio(context.Background(), filepath.Join(t.TempDir(), "nope.mp4"), "out.mp3")
	assert.ErrorIs(t, err, domain.ErrSourceUnreadable)
}

func TestSplitAudio_ReturnsSegmentsInOrder(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "segments")

	p := New("/usr/bin/ffmpeg").WithRunner(func(_ context.Context, name string, args ...string) error {
		assert.Equal(t, "/usr/bin/ffmpeg", name)
		assert.Contains(t, args, "600")
		for _, n := range []string{"00", "01", "02", "10", "100"} {
			require.NoError(t, os.WriteFile(filepath.Join(dir, n+SegmentSuffix), []byte("x"), 0600))
		}
		require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0600))
		return nil
	})

	segs, err := p.SplitAudio(context.Background(), "audio.mp3", dir, 10*time.Minute)
	require.NoError(t, err)

	var names []string
	for _, s := range segs {
		names = append(names, filepath.Base(s))
	}
	assert.Equal(t, []string{"00_chunk.mp3", "01_chunk.mp3", "02_chunk.mp3", "10_chunk.mp3", "100_chunk.mp3"}, names)
}

func TestSplitAudio_Errors(t *testing.T) {
	boom := errors.New("boom")
	p := New("").WithRunner(func(context.Context, string, ...string) error { return boom })

	_, err := p.SplitAudio(context.Background(), "a.mp3", t.TempDir(), 0)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = p.SplitAudio(context.Background(), "a.mp3", t.TempDir(), time.Minute)
	assert.ErrorIs(t, err, boom)

	p = New("").WithRunner(func(context.Context, string, ...string) error { return nil })
	_, err = p.SplitAudio(context.Background(), "a.mp3", t.TempDir(), time.Minute)
	assert.ErrorContains(t, err, "no segments")
}

func TestListSegments_MissingDir(t *testing.T) {
	segs, err := ListSegments(filepath.Join(t.TempDir(), "absent"))
	require.NoError(t, err)
	assert.Empty(t, segs)
}
