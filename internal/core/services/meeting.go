package services

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/custodia-labs/docent/internal/core/domain"
	"github.com/custodia-labs/docent/internal/core/ports/driven"
	"github.com/custodia-labs/docent/internal/core/ports/driving"
	"github.com/custodia-labs/docent/internal/logger"
	"github.com/custodia-labs/docent/internal/retry"
)

var _ driving.MeetingService = (*MeetingService)(nil)

// Defaults for MeetingConfig fields left zero.
const (
	DefaultSegmentLength = 10 * time.Minute
	lockRetryDelay       = 250 * time.Millisecond
)

// MeetingConfig configures meeting processing.
type MeetingConfig struct {
	// WorkRoot holds one work directory per recording.
	WorkRoot      string
	SegmentLength time.Duration
	Retry         retry.Policy
}

// MeetingService turns recordings into transcripts, summaries, and chat sessions.
// Every stage writes a file and is skipped when that file exists.
type MeetingService struct {
	audio       driven.AudioProcessor
	transcriber driven.Transcriber
	summariser  *Summariser
	ingest      *Ingestor
	cfg         MeetingConfig
}

// NewMeetingService creates a meeting service.
func NewMeetingService(
	audio driven.AudioProcessor,
	transcriber driven.Transcriber,
	summariser *Summariser,
	ingest *Ingestor,
	cfg MeetingConfig,
) *MeetingService {
	if cfg.SegmentLength <= 0 {
		cfg.SegmentLength = DefaultSegmentLength
	}
	if cfg.Retry.Attempts == 0 {
		cfg.Retry = retry.Default()
	}
	return &MeetingService{audio: audio, transcriber: transcriber, summariser: summariser, ingest: ingest, cfg: cfg}
}

// WorkDir returns the work directory used for videoPath.
func (s *MeetingService) WorkDir(videoPath string) string {
	stem := strings.TrimSuffix(filepath.Base(videoPath), filepath.Ext(videoPath))
	return filepath.Join(s.cfg.WorkRoot, stem)
}

// Prepare extracts, splits, and transcribes the recording.
func (s *MeetingService) Prepare(ctx context.Context, videoPath string) (*domain.Meeting, error) {
	if _, err := os.Stat(videoPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, videoPath)
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrSourceUnreadable, err)
	}

	m := &domain.Meeting{VideoPath: videoPath, WorkDir: s.WorkDir(videoPath)}
	unlock, err := s.lock(ctx, m.WorkDir)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if summary, ok, err := readIfExists(m.SummaryPath()); err != nil {
		return m, err
	} else if ok {
		m.Summary = summary
	}
	if transcript, ok, err := readIfExists(m.TranscriptPath()); err != nil {
		return m, err
	} else if ok {
		logger.Info("transcript present: %s", m.TranscriptPath())
		m.Transcript = transcript
		m.Segments, _ = s.audio.Segments(m.SegmentDir())
		return m, nil
	}

	if err := s.extract(ctx, m); err != nil {
		return m, err
	}
	if err := s.split(ctx, m); err != nil {
		return m, err
	}
	if err := s.transcribe(ctx, m); err != nil {
		return m, err
	}
	return m, nil
}

func (s *MeetingService) lock(ctx context.Context, dir string) (func(), error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create work directory: %w", err)
	}
	fl := flock.New(filepath.Join(dir, ".lock"))
	ok, err := fl.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", dir, err)
	}
	if !ok {
		return nil, fmt.Errorf("lock %s: not acquired", dir)
	}
	return func() {
		if err := fl.Unlock(); err != nil {
			logger.Warn("unlock %s: %v", dir, err)
		}
	}, nil
}

func (s *MeetingService) extract(ctx context.Context, m *domain.Meeting) error {
	if exists(m.AudioPath()) {
		logger.Debug("audio present: %s", m.AudioPath())
		return nil
	}
	logger.Info("extracting audio from %s", m.VideoPath)

	part := strings.TrimSuffix(m.AudioPath(), ".mp3") + ".part.mp3"
	if err := s.audio.ExtractAudio(ctx, m.VideoPath, part); err != nil {
		_ = os.Remove(part)
		return err
	}
	return os.Rename(part, m.AudioPath())
}

func (s *MeetingService) split(ctx context.Context, m *domain.Meeting) error {
	segs, err := s.audio.Segments(m.SegmentDir())
	if err != nil {
		return err
	}
	if len(segs) > 0 {
		logger.Debug("%d segments present", len(segs))
		m.Segments = segs
		return nil
	}
	logger.Info("splitting audio into %s segments", s.cfg.SegmentLength)

	part := m.SegmentDir() + ".part"
	if err := os.RemoveAll(part); err != nil {
		return fmt.Errorf("clear partial segments: %w", err)
	}
	if _, err := s.audio.SplitAudio(ctx, m.AudioPath(), part, s.cfg.SegmentLength); err != nil {
		return err
	}
	if err := os.RemoveAll(m.SegmentDir()); err != nil {
		return fmt.Errorf("replace segments: %w", err)
	}
	if err := os.Rename(part, m.SegmentDir()); err != nil {
		return fmt.Errorf("publish segments: %w", err)
	}
	m.Segments, err = s.audio.Segments(m.SegmentDir())
	return err
}

// transcriptPath is the per-segment transcript: 03_chunk.mp3 -> 03_chunk.txt.
func transcriptPath(segment string) string {
	return strings.TrimSuffix(segment, filepath.Ext(segment)) + ".txt"
}

func (s *MeetingService) transcribe(ctx context.Context, m *domain.Meeting) error {
	if len(m.Segments) == 0 {
		return fmt.Errorf("%w: no audio segments for %s", domain.ErrSourceUnreadable, m.VideoPath)
	}

	if s.transcriber == nil {
		return fmt.Errorf("%w: set transcription.api_key or OPENAI_API_KEY", domain.ErrTranscriberUnavailable)
	}

	parts := make([]string, 0, len(m.Segments))
	for i, seg := range m.Segments {
		out := transcriptPath(seg)
		if text, ok, err := readIfExists(out); err != nil {
			return err
		} else if ok {
			parts = append(parts, text)
			continue
		}

		logger.Info("transcribing segment %d of %d", i+1, len(m.Segments))
		text, err := retry.Do(ctx, s.cfg.Retry, "transcribe", func(ctx context.Context) (string, error) {
			return s.transcriber.Transcribe(ctx, seg)
		})
		if err != nil {
			return fmt.Errorf("transcribe %s: %w", filepath.Base(seg), err)
		}
		text = strings.TrimSpace(text)
		if err := writeAtomic(out, text); err != nil {
			return err
		}
		parts = append(parts, text)
	}

	m.Transcript = strings.Join(parts, "\n")
	return writeAtomic(m.TranscriptPath(), m.Transcript)
}

// Summarise refines a summary over the transcript and caches it. It holds
// the work directory lock, so concurrent runs compute the summary once.
func (s *MeetingService) Summarise(ctx context.Context, m *domain.Meeting, onStep func(done, total int)) (string, error) {
	if m == nil || strings.TrimSpace(m.Transcript) == "" {
		return "", fmt.Errorf("%w: no transcript", domain.ErrEmptyContext)
	}
	if m.WorkDir == "" {
		m.WorkDir = s.WorkDir(m.VideoPath)
	}
	unlock, err := s.lock(ctx, m.WorkDir)
	if err != nil {
		return "", err
	}
	defer unlock()

	if cached, ok, err := readIfExists(m.SummaryPath()); err != nil {
		return "", err
	} else if ok {
		m.Summary = cached
		return cached, nil
	}

	doc := s.transcriptDocument(m)
	chunks, err := s.ingest.Chunk(ctx, &doc)
	if err != nil {
		return "", err
	}
	summary, err := s.summariser.Summarise(ctx, chunks, onStep)
	if err != nil {
		return "", err
	}
	if err := writeAtomic(m.SummaryPath(), summary); err != nil {
		return "", err
	}
	m.Summary = summary
	return summary, nil
}

// Open builds a chat session over the transcript.
func (s *MeetingService) Open(ctx context.Context, m *domain.Meeting) (*driving.Session, error) {
	if m == nil || strings.TrimSpace(m.Transcript) == "" {
		return nil, fmt.Errorf("%w: no transcript", domain.ErrEmptyContext)
	}
	return s.ingest.NewSession(ctx, filepath.Base(m.VideoPath), []domain.Document{s.transcriptDocument(m)})
}

func (s *MeetingService) transcriptDocument(m *domain.Meeting) domain.Document {
	return domain.Document{
		ID:       uuid.New().String(),
		URI:      m.VideoPath,
		Title:    strings.TrimSuffix(filepath.Base(m.VideoPath), filepath.Ext(m.VideoPath)),
		Content:  m.Transcript,
		LoadedAt: time.Now(),
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func readIfExists(path string) (string, bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), true, nil
}

// writeAtomic writes via a temporary file so a present file is always complete.
func writeAtomic(path, content string) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
