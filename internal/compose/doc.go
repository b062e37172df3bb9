// Package compose assembles per-dialogue clips and concatenates them into the
// final video. Concatenation prefers lossless stream copy when the clips are
// codec-compatible and falls back to a re-encode, picking a hardware encoder
// when one is available.
package compose
