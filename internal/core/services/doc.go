// Package services implements the driving port interfaces: document chat,
// site answering, meeting transcription, quizzes, and the research agent.
//
// Services orchestrate driven ports and hold no I/O of their own beyond the
// meeting work directory.
package services
