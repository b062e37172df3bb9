package browser

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"vibecast/internal/services"
	"vibecast/internal/tools"
)

// RecordRequest describes one screencast capture.
type RecordRequest struct {
	HTML     string
	Width    int
	Height   int
	Duration time.Duration
	// Script is JavaScript evaluated once the page has loaded, typically to
	// start an in-page animation.
	Script string
	// OutputPath receives the muxed recording. The container is an
	// intermediate high-quality mp4; callers transcode to delivery settings.
	OutputPath string
	FFmpeg     string
	Runner     tools.Runner
}

type capturedFrame struct {
	path string
	at   time.Time
}

// Record captures screencast frames while the request's script animates the
// page, then muxes the frames into a video with ffmpeg.
func (c *Chrome) Record(ctx context.Context, req RecordRequest) error {
	if req.Duration <= 0 {
		return services.Wrap(services.ErrValidation, "browser", "record", "non-positive duration", nil)
	}

	frameDir, err := os.MkdirTemp("", "vibecast-frames-")
	if err != nil {
		return services.Wrap(services.ErrTransient, "browser", "record", "create frame dir", err)
	}
	defer os.RemoveAll(frameDir)

	frames, err := c.captureFrames(ctx, req, frameDir)
	if err != nil {
		return err
	}
	if len(frames) == 0 {
		return services.Wrap(services.ErrExternalTool, "browser", "record", "screencast produced no frames", nil)
	}
	return muxFrames(ctx, req, frames, frameDir)
}

func (c *Chrome) captureFrames(ctx context.Context, req RecordRequest, frameDir string) ([]capturedFrame, error) {
	allocCtx, cancelAlloc := c.allocator(ctx)
	defer cancelAlloc()
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	var (
		mu     sync.Mutex
		frames []capturedFrame
		seq    int
	)

	chromedp.ListenTarget(browserCtx, func(ev interface{}) {
		frame, ok := ev.(*page.EventScreencastFrame)
		if !ok {
			return
		}
		data, err := base64.StdEncoding.DecodeString(frame.Data)
		if err != nil {
			return
		}
		mu.Lock()
		seq++
		path := filepath.Join(frameDir, fmt.Sprintf("frame-%06d.png", seq))
		at := time.Now()
		if frame.Metadata != nil && frame.Metadata.Timestamp != nil {
			at = frame.Metadata.Timestamp.Time()
		}
		if err := os.WriteFile(path, data, 0o644); err == nil {
			frames = append(frames, capturedFrame{path: path, at: at})
		}
		mu.Unlock()

		go func() {
			target := chromedp.FromContext(browserCtx)
			_ = page.ScreencastFrameAck(frame.SessionID).Do(cdp.WithExecutor(browserCtx, target.Target))
		}()
	})

	actions := []chromedp.Action{
		chromedp.EmulateViewport(int64(req.Width), int64(req.Height)),
		chromedp.Navigate(dataURL(req.HTML)),
		page.StartScreencast().
			WithFormat(page.ScreencastFormatPng).
			WithEveryNthFrame(1),
	}
	if strings.TrimSpace(req.Script) != "" {
		actions = append(actions, chromedp.Evaluate(req.Script, nil))
	}
	actions = append(actions,
		chromedp.Sleep(req.Duration),
		page.StopScreencast(),
	)
	if err := chromedp.Run(browserCtx, actions...); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "browser", "record", "drive screencast", err)
	}

	mu.Lock()
	defer mu.Unlock()
	return append([]capturedFrame(nil), frames...), nil
}

func muxFrames(ctx context.Context, req RecordRequest, frames []capturedFrame, frameDir string) error {
	listPath := filepath.Join(frameDir, "frames.ffconcat")
	var b strings.Builder
	b.WriteString("ffconcat version 1.0\n")
	total := req.Duration.Seconds()
	elapsed := 0.0
	for i, frame := range frames {
		fmt.Fprintf(&b, "file '%s'\n", filepath.Base(frame.path))
		var hold float64
		if i+1 < len(frames) {
			hold = frames[i+1].at.Sub(frame.at).Seconds()
			if hold <= 0 {
				hold = 1.0 / 30
			}
		} else {
			hold = total - elapsed
			if hold <= 0 {
				hold = 1.0 / 30
			}
		}
		elapsed += hold
		fmt.Fprintf(&b, "duration %.4f\n", hold)
	}
	if err := os.WriteFile(listPath, []byte(b.String()), 0o644); err != nil {
		return services.Wrap(services.ErrTransient, "browser", "record", "write concat list", err)
	}

	ffmpeg := req.FFmpeg
	if ffmpeg == "" {
		ffmpeg = "ffmpeg"
	}
	args := []string{
		"-y", "-f", "concat", "-safe", "0", "-i", listPath,
		"-fps_mode", "vfr",
		"-c:v", "libx264", "-preset", "ultrafast", "-crf", "12",
		"-pix_fmt", "yuv420p",
		req.OutputPath,
	}
	if _, err := req.Runner.Run(ctx, ffmpeg, args...); err != nil {
		return services.Wrap(services.ErrExternalTool, "browser", "record", "mux frames", err)
	}
	return nil
}
