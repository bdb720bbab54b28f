// Package ffmpeg prepares meeting recordings for transcription with the ffmpeg binary.
package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/docent/internal/core/domain"
	"github.com/custodia-labs/docent/internal/core/ports/driven"
)

// DefaultBinary is looked up on PATH.
const DefaultBinary = "ffmpeg"

// SegmentSuffix names split files: 00_chunk.mp3, 01_chunk.mp3, ...
const SegmentSuffix = "_chunk.mp3"

var _ driven.AudioProcessor = (*Processor)(nil)

// Runner executes a command and returns its error.
type Runner func(ctx context.Context, name string, args ...string) error

// Processor shells out to ffmpeg.
type Processor struct {
	binary string
	run    Runner
}

// New creates a Processor. An empty binary uses ffmpeg from PATH.
func New(binary string) *Processor {
	if binary == "" {
		binary = DefaultBinary
	}
	return &Processor{binary: binary, run: execRunner}
}

// WithRunner sets a custom command runner (for testing).
func (p *Processor) WithRunner(run Runner) *Processor {
	p.run = run
	return p
}

// ExtractAudio writes a mono 16 kHz mp3 of the video's audio track.
func (p *Processor) ExtractAudio(ctx context.Context, videoPath, audioPath string) error {
	if _, err := os.Stat(videoPath); err != nil {
		return fmt.Errorf("%w: %s: %w", domain.ErrSourceUnreadable, videoPath, err)
	}
	if err := os.MkdirAll(filepath.Dir(audioPath), 0o755); err != nil {
		return fmt.Errorf("creating audio directory: %w", err)
	}
	if err := p.run(ctx, p.binary, extractArgs(videoPath, audioPath)...); err != nil {
		return fmt.Errorf("ffmpeg extract: %w", err)
	}
	return nil
}

// SplitAudio cuts the audio into fixed-length segments without re-encoding.
func (p *Processor) SplitAudio(ctx context.Context, audioPath, dir string, segment time.Duration) ([]string, error) {
	if segment < time.Second {
		return nil, fmt.Errorf("%w: segment length %s", domain.ErrInvalidInput, segment)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating segment directory: %w", err)
	}
	if err := p.run(ctx, p.binary, splitArgs(audioPath, dir, segment)...); err != nil {
		return nil, fmt.Errorf("ffmpeg split: %w", err)
	}
	segments, err := ListSegments(dir)
	if err != nil {
		return nil, err
	}
	if len(segments) == 0 {
		return nil, fmt.Errorf("ffmpeg split: no segments written to %s", dir)
	}
	return segments, nil
}

// Segments lists the segments already written to dir.
func (p *Processor) Segments(dir string) ([]string, error) {
	return ListSegments(dir)
}

// ListSegments returns the segment files in dir in playback order.
// A missing directory has no segments.
func ListSegments(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing segments: %w", err)
	}

	type numbered struct {
		n    int
		path string
	}
	var found []numbered
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, SegmentSuffix) {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSuffix(name, SegmentSuffix))
		if err != nil {
			continue
		}
		found = append(found, numbered{n: n, path: filepath.Join(dir, name)})
	}
	slices.SortFunc(found, func(a, b numbered) int { return a.n - b.n })

	paths := make([]string, len(found))
	for i, f := range found {
		paths[i] = f.path
	}
	return paths, nil
}

func extractArgs(videoPath, audioPath string) []string {
	return []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", videoPath,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "libmp3lame",
		audioPath,
	}
}

func splitArgs(audioPath, dir string, segment time.Duration) []string {
	return []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", audioPath,
		"-f", "segment",
		"-segment_time", strconv.Itoa(int(segment / time.Second)),
		"-c", "copy",
		filepath.Join(dir, "%02d"+SegmentSuffix),
	}
}

func execRunner(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}
