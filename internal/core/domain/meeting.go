package domain

import "path/filepath"

// Meeting tracks the artifacts derived from one recording.
// Each stage writes a file; a present file means the stage is done.
type Meeting struct {
	// VideoPath is the source recording.
	VideoPath string

	// WorkDir holds every derived artifact.
	WorkDir string

	// Segments are the audio segment files in order.
	Segments []string

	// Transcript is the joined transcript text, once available.
	Transcript string

	// Summary is the refined summary, once requested.
	Summary string
}

// AudioPath is the extracted audio track.
func (m *Meeting) AudioPath() string { return filepath.Join(m.WorkDir, "audio.mp3") }

// SegmentDir holds the fixed-length audio segments.
func (m *Meeting) SegmentDir() string { return filepath.Join(m.WorkDir, "segments") }

// TranscriptPath is the joined transcript.
func (m *Meeting) TranscriptPath() string { return filepath.Join(m.WorkDir, "transcript.txt") }

// SummaryPath is the cached summary.
func (m *Meeting) SummaryPath() string { return filepath.Join(m.WorkDir, "summary.txt") }
