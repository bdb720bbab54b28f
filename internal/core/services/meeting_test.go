package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docent/internal/core/domain"
)

// fakeAudio writes placeholder files in place of ffmpeg output.
type fakeAudio struct {
	segments int
	extracts int
	splits   int
}

func (a *fakeAudio) ExtractAudio(_ context.Context, _, audioPath string) error {
	a.extracts++
	return os.WriteFile(audioPath, []byte("audio"), 0o600)
}

func (a *fakeAudio) SplitAudio(_ context.Context, _, dir string, _ time.Duration) ([]string, error) {
	a.splits++
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	var out []string
	for i := range a.segments {
		p := filepath.Join(dir, fmt.Sprintf("%02d_chunk.mp3", i))
		if err := os.WriteFile(p, []byte("seg"), 0o600); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (a *fakeAudio) Segments(dir string) ([]string, error) {
	out, err := filepath.Glob(filepath.Join(dir, "*_chunk.mp3"))
	sort.Strings(out)
	return out, err
}

type fakeTranscriber struct {
	mu     sync.Mutex
	calls  []string
	failOn string
}

func (f *fakeTranscriber) Transcribe(_ context.Context, audioPath string) (string, error) {
	name := strings.TrimSuffix(filepath.Base(audioPath), ".mp3")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
	if name == f.failOn {
		return "", errors.New("transcription rejected")
	}
	return "  words from " + name + "  ", nil
}

func newTestMeeting(t *testing.T, audio *fakeAudio, tr *fakeTranscriber, llm *fakeLLM) (*MeetingService, string) {
	t.Helper()
	video := writeFile(t, "standup.mp4", "video bytes")
	svc := NewMeetingService(audio, tr, NewSummariser(llm, stubPrompts{}, testRetry()), newTestIngestor(t, &letterEmbedder{}), MeetingConfig{
		WorkRoot: t.TempDir(),
		Retry:    testRetry(),
	})
	return svc, video
}

func TestMeetingService_Prepare(t *testing.T) {
	audio := &fakeAudio{segments: 2}
	tr := &fakeTranscriber{}
	svc, video := newTestMeeting(t, audio, tr, newFakeLLM())

	m, err := svc.Prepare(context.Background(), video)

	require.NoError(t, err)
	assert.Equal(t, "words from 00_chunk\nwords from 01_chunk", m.Transcript)
	assert.Len(t, m.Segments, 2)
	assert.FileExists(t, m.AudioPath())
	assert.FileExists(t, m.TranscriptPath())
	assert.NoFileExists(t, m.SegmentDir()+".part")
	assert.Equal(t, filepath.Join(svc.cfg.WorkRoot, "standup"), m.WorkDir)
}

func TestMeetingService_Prepare_Idempotent(t *testing.T) {
	audio := &fakeAudio{segments: 2}
	tr := &fakeTranscriber{}
	svc, video := newTestMeeting(t, audio, tr, newFakeLLM())

	first, err := svc.Prepare(context.Background(), video)
	require.NoError(t, err)
	second, err := svc.Prepare(context.Background(), video)
	require.NoError(t, err)

	assert.Equal(t, first.Transcript, second.Transcript)
	assert.Equal(t, 1, audio.extracts)
	assert.Equal(t, 1, audio.splits)
	assert.Len(t, tr.calls, 2)
	assert.Len(t, second.Segments, 2)
}

func TestMeetingService_Prepare_ResumesAfterFailure(t *testing.T) {
	audio := &fakeAudio{segments: 3}
	tr := &fakeTranscriber{failOn: "01_chunk"}
	svc, video := newTestMeeting(t, audio, tr, newFakeLLM())

	m, err := svc.Prepare(context.Background(), video)
	require.Error(t, err)
	assert.FileExists(t, transcriptPath(m.Segments[0]))
	assert.NoFileExists(t, m.TranscriptPath())

	tr.failOn = ""
	m, err = svc.Prepare(context.Background(), video)

	require.NoError(t, err)
	assert.Equal(t, []string{"00_chunk", "01_chunk", "01_chunk", "02_chunk"}, tr.calls)
	assert.Equal(t, 1, audio.extracts)
	assert.Equal(t, 1, audio.splits)
	assert.Equal(t, "words from 00_chunk\nwords from 01_chunk\nwords from 02_chunk", m.Transcript)
}

func TestMeetingService_Prepare_MissingVideo(t *testing.T) {
	svc, _ := newTestMeeting(t, &fakeAudio{}, &fakeTranscriber{}, newFakeLLM())

	_, err := svc.Prepare(context.Background(), filepath.Join(t.TempDir(), "nope.mp4"))

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMeetingService_Prepare_NoSegments(t *testing.T) {
	svc, video := newTestMeeting(t, &fakeAudio{segments: 0}, &fakeTranscriber{}, newFakeLLM())

	_, err := svc.Prepare(context.Background(), video)

	assert.ErrorIs(t, err, domain.ErrSourceUnreadable)
}

func TestMeetingService_Summarise_Cached(t *testing.T) {
	llm := newFakeLLM().reply("summarise", "A short standup.")
	svc, video := newTestMeeting(t, &fakeAudio{segments: 1}, &fakeTranscriber{}, llm)
	m, err := svc.Prepare(context.Background(), video)
	require.NoError(t, err)

	var steps [][2]int
	summary, err := svc.Summarise(context.Background(), m, func(done, total int) {
		steps = append(steps, [2]int{done, total})
	})
	require.NoError(t, err)
	assert.Equal(t, "A short standup.", summary)
	assert.Equal(t, [][2]int{{1, 1}}, steps)
	assert.FileExists(t, m.SummaryPath())

	again, err := svc.Prepare(context.Background(), video)
	require.NoError(t, err)
	assert.Equal(t, "A short standup.", again.Summary)

	summary, err = svc.Summarise(context.Background(), again, nil)
	require.NoError(t, err)
	assert.Equal(t, "A short standup.", summary)
	assert.Equal(t, 1, llm.count("summarise"))
}

func TestMeetingService_Summarise_ConcurrentRunsComputeOnce(t *testing.T) {
	llm := newFakeLLM().reply("summarise", "A short standup.")
	svc, video := newTestMeeting(t, &fakeAudio{segments: 1}, &fakeTranscriber{}, llm)
	m, err := svc.Prepare(context.Background(), video)
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]string, 2)
	errs := make([]error, 2)
	for i := range results {
		run := *m
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = svc.Summarise(context.Background(), &run, nil)
		}()
	}
	wg.Wait()

	for i := range results {
		require.NoError(t, errs[i])
		assert.Equal(t, "A short standup.", results[i])
	}
	assert.Equal(t, 1, llm.count("summarise"))
}

func TestMeetingService_Summarise_WaitsForLock(t *testing.T) {
	llm := newFakeLLM().reply("summarise", "A short standup.")
	svc, video := newTestMeeting(t, &fakeAudio{segments: 1}, &fakeTranscriber{}, llm)
	m, err := svc.Prepare(context.Background(), video)
	require.NoError(t, err)

	held := flock.New(filepath.Join(m.WorkDir, ".lock"))
	require.NoError(t, held.Lock())
	t.Cleanup(func() { _ = held.Unlock() })

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err = svc.Summarise(ctx, m, nil)

	require.Error(t, err)
	assert.Zero(t, llm.count("summarise"))
	assert.NoFileExists(t, m.SummaryPath())
}

func TestMeetingService_Open(t *testing.T) {
	svc, video := newTestMeeting(t, &fakeAudio{segments: 1}, &fakeTranscriber{}, newFakeLLM())
	m, err := svc.Prepare(context.Background(), video)
	require.NoError(t, err)

	sess, err := svc.Open(context.Background(), m)

	require.NoError(t, err)
	assert.Equal(t, "standup.mp4", sess.Label)
	require.Len(t, sess.Chunks, 1)
	assert.Equal(t, "words from 00_chunk", sess.Chunks[0].Content)
}

func TestMeetingService_Open_NoTranscript(t *testing.T) {
	svc, _ := newTestMeeting(t, &fakeAudio{}, &fakeTranscriber{}, newFakeLLM())

	_, err := svc.Open(context.Background(), &domain.Meeting{})

	assert.ErrorIs(t, err, domain.ErrEmptyContext)
}

func TestMeetingService_Prepare_NoTranscriber(t *testing.T) {
	video := writeFile(t, "standup.mp4", "video bytes")
	svc := NewMeetingService(&fakeAudio{segments: 1}, nil, NewSummariser(newFakeLLM(), stubPrompts{}, testRetry()),
		newTestIngestor(t, &letterEmbedder{}), MeetingConfig{WorkRoot: t.TempDir(), Retry: testRetry()})

	m, err := svc.Prepare(context.Background(), video)

	require.ErrorIs(t, err, domain.ErrTranscriberUnavailable)
	assert.Len(t, m.Segments, 1)
}
