package browser

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"vibecast/internal/testsupport"
)

func TestDataURLEncodesHTML(t *testing.T) {
	url := dataURL("<html><body>hi</body></html>")
	if !strings.HasPrefix(url, "data:text/html;base64,") {
		t.Fatalf("unexpected prefix: %q", url)
	}
}

func TestMuxFramesWritesConcatListAndInvokesFFmpeg(t *testing.T) {
	frameDir := t.TempDir()
	base := time.Now()
	var frames []capturedFrame
	for i := 0; i < 3; i++ {
		path := filepath.Join(frameDir, "frame.png")
		frames = append(frames, capturedFrame{path: path, at: base.Add(time.Duration(i) * 100 * time.Millisecond)})
	}

	runner := &testsupport.FakeRunner{}
	req := RecordRequest{
		Duration:   time.Second,
		OutputPath: filepath.Join(frameDir, "out.mp4"),
		FFmpeg:     "ffmpeg",
		Runner:     runner,
	}
	if err := muxFrames(context.Background(), req, frames, frameDir); err != nil {
		t.Fatalf("muxFrames returned error: %v", err)
	}

	list, err := os.ReadFile(filepath.Join(frameDir, "frames.ffconcat"))
	if err != nil {
		t.Fatalf("read concat list: %v", err)
	}
	text := string(list)
	if !strings.HasPrefix(text, "ffconcat version 1.0") {
		t.Fatalf("missing ffconcat header: %q", text)
	}
	if strings.Count(text, "file '") != 3 {
		t.Fatalf("expected 3 file entries, got %q", text)
	}
	// 0.1s between frames, last frame holds the remainder of the 1s total.
	if !strings.Contains(text, "duration 0.1000") || !strings.Contains(text, "duration 0.8000") {
		t.Fatalf("unexpected durations: %q", text)
	}

	calls := runner.CallsFor("ffmpeg")
	if len(calls) != 1 {
		t.Fatalf("expected one ffmpeg call, got %d", len(calls))
	}
	if !calls[0].HasArg("-f") || !calls[0].HasArg("concat") || !calls[0].HasArg("yuv420p") {
		t.Fatalf("unexpected ffmpeg args: %v", calls[0].Args)
	}
}
