package render

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"vibecast/internal/assetcache"
	"vibecast/internal/browser"
	"vibecast/internal/logging"
	"vibecast/internal/podcast"
	"vibecast/internal/services"
	"vibecast/internal/tools"
)

// Options configures a Renderer.
type Options struct {
	Cache    *assetcache.Cache
	Runner   tools.Runner
	Shot     browser.Screenshotter
	Recorder browser.Recorder
	Logger   *slog.Logger
	FFmpeg   string
	Mermaid  string
	MarginPx int
	Settle   time.Duration
	Buffer   time.Duration
}

// Renderer produces cached raster assets from visual descriptions.
type Renderer struct {
	cache    *assetcache.Cache
	runner   tools.Runner
	shot     browser.Screenshotter
	recorder browser.Recorder
	logger   *slog.Logger
	ffmpeg   string
	mermaid  string
	marginPx int
	settle   time.Duration
	buffer   time.Duration
}

// New builds a Renderer from options, applying defaults for zero values.
func New(opts Options) *Renderer {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	ffmpeg := opts.FFmpeg
	if ffmpeg == "" {
		ffmpeg = "ffmpeg"
	}
	mermaid := opts.Mermaid
	if mermaid == "" {
		mermaid = "mmdc"
	}
	margin := opts.MarginPx
	if margin < 0 {
		margin = 0
	}
	settle := opts.Settle
	if settle <= 0 {
		settle = 400 * time.Millisecond
	}
	buffer := opts.Buffer
	if buffer <= 0 {
		buffer = 600 * time.Millisecond
	}
	return &Renderer{
		cache:    opts.Cache,
		runner:   opts.Runner,
		shot:     opts.Shot,
		recorder: opts.Recorder,
		logger:   logging.NewComponentLogger(logger, "render"),
		ffmpeg:   ffmpeg,
		mermaid:  mermaid,
		marginPx: margin,
		settle:   settle,
		buffer:   buffer,
	}
}

// RenderVisual produces a static image for the visual at the target
// resolution, using the cache. The bool reports a cache hit.
func (r *Renderer) RenderVisual(ctx context.Context, visual podcast.Visual, width, height int) (Asset, bool, error) {
	version := slideVersion
	if visual.Kind == podcast.KindDiagram {
		version = diagramVersion
	}
	key := assetcache.Key(string(visual.Kind), visual.Content, fmt.Sprintf("%dx%d", width, height), version)

	path, cached, err := r.cache.GetOrCreate(ctx, assetcache.KindImage, "", key, "png",
		func(ctx context.Context, dst string) error {
			raw, err := r.rawImage(ctx, visual, width, height)
			if err != nil {
				return err
			}
			return r.normalize(ctx, raw, dst, width, height)
		})
	if err != nil {
		return Asset{}, false, err
	}
	return Asset{Path: path, Kind: AssetImage}, cached, nil
}

// rawImage produces the un-normalized content image for a visual and returns
// the path of a temp file the caller owns.
func (r *Renderer) rawImage(ctx context.Context, visual podcast.Visual, width, height int) (string, error) {
	var png []byte
	var err error
	switch visual.Kind {
	case podcast.KindDiagram:
		png, err = r.renderDiagramPNG(ctx, visual.Content)
	case podcast.KindSlide:
		var html string
		html, err = r.slideHTML(ctx, visual.Content)
		if err == nil {
			png, err = r.shot.Screenshot(ctx, html, width, height, r.settle)
		}
	default:
		err = services.Wrap(services.ErrValidation, "render", "visual",
			fmt.Sprintf("unknown visual kind %q", visual.Kind), nil)
	}
	if err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp("", "vibecast-raw-*.png")
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "render", "visual", "create temp image", err)
	}
	defer tmp.Close()
	if _, err := tmp.Write(png); err != nil {
		os.Remove(tmp.Name())
		return "", services.Wrap(services.ErrTransient, "render", "visual", "write temp image", err)
	}
	return tmp.Name(), nil
}

// normalize fits an image onto a white canvas at the target resolution with
// the configured margin on every side.
func (r *Renderer) normalize(ctx context.Context, src, dst string, width, height int) error {
	defer os.Remove(src)

	innerW := width - 2*r.marginPx
	innerH := height - 2*r.marginPx
	if innerW <= 0 || innerH <= 0 {
		innerW, innerH = width, height
	}
	filter := fmt.Sprintf(
		"scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2:color=white",
		innerW, innerH, width, height)

	args := []string{
		"-y", "-i", src,
		"-vf", filter,
		"-frames:v", "1",
		dst,
	}
	if _, err := r.runner.Run(ctx, r.ffmpeg, args...); err != nil {
		return services.Wrap(services.ErrExternalTool, "render", "normalize", "fit image to canvas", err)
	}
	return nil
}

// ErrorSlide produces a fallback image naming the failure, so one broken
// visual degrades to a readable placeholder instead of sinking the run.
func (r *Renderer) ErrorSlide(ctx context.Context, message string, width, height int) (Asset, error) {
	content := fmt.Sprintf("# Visual unavailable\n\n%s", message)
	asset, _, err := r.RenderVisual(ctx, podcast.Visual{Kind: podcast.KindSlide, Content: content}, width, height)
	if err != nil {
		return Asset{}, err
	}
	r.logger.Warn("substituted error slide", logging.String("reason", message))
	return asset, nil
}
