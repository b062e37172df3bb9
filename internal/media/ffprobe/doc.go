// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Key types:
//   - Result: parsed ffprobe output containing streams and format metadata
//   - Stream: individual audio/video stream properties
//   - Format: container-level metadata (duration, size, bitrate)
//
// Primary entry points:
//   - Inspect: executes ffprobe and returns a parsed Result
//   - AudioDuration: duration with a file-size fallback for headerless audio
//
// Helper methods on Result provide convenient access to stream lookup,
// duration parsing, and bitrate extraction.
package ffprobe
