// Package services holds the shared plumbing for collaborator integrations:
// sentinel error markers, error wrapping with stage context, and context
// annotations used to correlate logs across pipeline stages.
//
// Concrete collaborator clients live in subpackages (ffmpeg, stt, translate,
// tts, ytdlp). Each wraps a single external tool or API behind a narrow
// interface; nothing outside these subpackages shells out or parses tool
// output.
package services
