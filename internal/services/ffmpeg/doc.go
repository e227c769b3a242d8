// Package ffmpeg wraps the ffmpeg binary behind typed operations: audio
// extraction, silence detection, tempo transforms, silence generation,
// concatenation, and muxing. All invocation and output parsing happens
// here; callers only see structured data and file paths.
package ffmpeg
