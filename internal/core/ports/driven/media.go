package driven

import (
	"context"
	"time"
)

// AudioProcessor prepares recordings for transcription.
type AudioProcessor interface {
	// ExtractAudio writes the audio track of videoPath to audioPath.
	ExtractAudio(ctx context.Context, videoPath, audioPath string) error

	// SplitAudio cuts audioPath into segments of the given length inside dir
	// and returns the segment paths in playback order.
	SplitAudio(ctx context.Context, audioPath, dir string, segment time.Duration) ([]string, error)

	// Segments lists the segments already in dir, in playback order.
	// A missing directory yields none.
	Segments(dir string) ([]string, error)
}

// Transcriber turns speech into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}
