package browser

import (
	"context"
	"encoding/base64"
	"time"

	"github.com/chromedp/chromedp"

	"vibecast/internal/services"
)

// Screenshotter captures a static image of rendered HTML.
type Screenshotter interface {
	Screenshot(ctx context.Context, html string, width, height int, settle time.Duration) ([]byte, error)
}

// Recorder captures a timed screencast of rendered HTML while an in-page
// animation plays.
type Recorder interface {
	Record(ctx context.Context, req RecordRequest) error
}

// Chrome implements Screenshotter and Recorder against a local Chromium.
type Chrome struct {
	execPath string
}

// New returns a Chrome capture client. execPath may be empty to let chromedp
// locate a browser on PATH.
func New(execPath string) *Chrome {
	return &Chrome{execPath: execPath}
}

func (c *Chrome) allocator(ctx context.Context) (context.Context, context.CancelFunc) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("force-device-scale-factor", "1"),
	)
	if c.execPath != "" {
		opts = append(opts, chromedp.ExecPath(c.execPath))
	}
	return chromedp.NewExecAllocator(ctx, opts...)
}

// Screenshot renders the HTML at the given viewport and returns a PNG.
func (c *Chrome) Screenshot(ctx context.Context, html string, width, height int, settle time.Duration) ([]byte, error) {
	allocCtx, cancelAlloc := c.allocator(ctx)
	defer cancelAlloc()
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	var buf []byte
	err := chromedp.Run(browserCtx,
		chromedp.EmulateViewport(int64(width), int64(height)),
		chromedp.Navigate(dataURL(html)),
		chromedp.Sleep(settle),
		chromedp.CaptureScreenshot(&buf),
	)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "browser", "screenshot", "capture page", err)
	}
	return buf, nil
}

func dataURL(html string) string {
	return "data:text/html;base64," + base64.StdEncoding.EncodeToString([]byte(html))
}
