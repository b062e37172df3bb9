// Package tools abstracts external process execution so that components which
// shell out to ffmpeg, ffprobe, or the mermaid CLI stay testable.
package tools
