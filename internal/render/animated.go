package render

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"vibecast/internal/assetcache"
	"vibecast/internal/browser"
	"vibecast/internal/logging"
	"vibecast/internal/podcast"
	"vibecast/internal/services"
)

// Fraction of the clip spent animating. The rest of the time the finished
// frame holds so the viewer can read it.
const animationFraction = 0.3

const scrollScript = `(function() {
  var delay = %d;
  var animMs = %d;
  window.scrollTo(0, 0);
  setTimeout(function() {
    var distance = Math.max(document.body.scrollHeight - window.innerHeight, 0);
    if (distance === 0) { return; }
    var start = performance.now();
    function step(now) {
      var t = Math.min((now - start) / animMs, 1);
      window.scrollTo(0, distance * t);
      if (t < 1) { requestAnimationFrame(step); }
    }
    requestAnimationFrame(step);
  }, delay);
})();`

// RenderAnimated produces a sub-video clip for the visual, animating the
// content over the first portion of the audio duration. The speaker badge is
// baked into the recorded page, so assembled clips need no overlay pass. The
// bool reports a cache hit.
func (r *Renderer) RenderAnimated(ctx context.Context, visual podcast.Visual, width, height int, audioDuration float64, speaker string) (Asset, bool, error) {
	if audioDuration <= 0 {
		return Asset{}, false, services.Wrap(services.ErrValidation, "render", "animated", "non-positive audio duration", nil)
	}
	if r.recorder == nil {
		return Asset{}, false, services.Wrap(services.ErrConfiguration, "render", "animated", "no recorder configured", nil)
	}

	key := assetcache.Key(string(visual.Kind), visual.Content,
		fmt.Sprintf("%dx%d", width, height), animatedVersion, fmt.Sprintf("%.3f", audioDuration), speaker)

	path, cached, err := r.cache.GetOrCreate(ctx, assetcache.KindClip, "", key, "mp4",
		func(ctx context.Context, dst string) error {
			return r.recordAndTranscode(ctx, visual, width, height, audioDuration, speaker, dst)
		})
	if err != nil {
		return Asset{}, false, err
	}
	return Asset{Path: path, Kind: AssetClip, Duration: audioDuration}, cached, nil
}

func (r *Renderer) recordAndTranscode(ctx context.Context, visual podcast.Visual, width, height int, audioDuration float64, speaker, dst string) error {
	html, err := r.animatedHTML(ctx, visual, width, height)
	if err != nil {
		return err
	}
	if badge := speakerBadge(speaker); badge != "" {
		html = strings.Replace(html, "</body>", badge+"\n</body>", 1)
	}

	total := time.Duration(audioDuration * float64(time.Second))
	animate := time.Duration(float64(total) * animationFraction)
	if animate < r.buffer {
		animate = r.buffer
	}

	rawPath := filepath.Join(filepath.Dir(dst), filepath.Base(dst)+".raw.mp4")
	defer os.Remove(rawPath)

	start := time.Now()
	// Record past the clip end so the capture never runs short; the transcode
	// trims back to the audio duration.
	err = r.recorder.Record(ctx, browser.RecordRequest{
		HTML:       html,
		Width:      width,
		Height:     height,
		Duration:   total + r.buffer,
		Script:     fmt.Sprintf(scrollScript, r.buffer.Milliseconds(), animate.Milliseconds()),
		OutputPath: rawPath,
		FFmpeg:     r.ffmpeg,
		Runner:     r.runner,
	})
	if err != nil {
		return err
	}
	r.logger.Debug("recorded animated visual",
		logging.String("kind", string(visual.Kind)),
		logging.Duration("elapsed", time.Since(start)))

	// Final transcode pins the delivery settings regardless of how the
	// recording was muxed.
	args := []string{
		"-y", "-i", rawPath,
		"-t", fmt.Sprintf("%.3f", audioDuration),
		"-c:v", "libx264", "-crf", "18", "-preset", "medium",
		"-pix_fmt", "yuv420p",
		"-movflags", "+faststart",
		dst,
	}
	if _, err := r.runner.Run(ctx, r.ffmpeg, args...); err != nil {
		return services.Wrap(services.ErrExternalTool, "render", "animated", "transcode recording", err)
	}
	return nil
}

// speakerBadge returns a fixed-position label div, bottom-left for speaker_1
// and bottom-right for speaker_2.
func speakerBadge(speaker string) string {
	if speaker == "" {
		return ""
	}
	label, side := "Speaker 1", "left"
	if speaker == podcast.Speaker2 {
		label, side = "Speaker 2", "right"
	}
	return fmt.Sprintf(
		`<div style="position:fixed;bottom:48px;%s:48px;background:rgba(255,255,255,0.85);color:#1a1a2e;font-size:28px;padding:10px 22px;border-radius:8px;">%s</div>`,
		side, label)
}

// animatedHTML builds the page plus the scroll script timings.
func (r *Renderer) animatedHTML(ctx context.Context, visual podcast.Visual, width, height int) (string, error) {
	switch visual.Kind {
	case podcast.KindSlide:
		return r.slideHTML(ctx, visual.Content)
	case podcast.KindDiagram:
		// Diagrams animate as a slide containing only the diagram.
		return r.slideHTML(ctx, "```mermaid\n"+visual.Content+"\n```")
	default:
		return "", services.Wrap(services.ErrValidation, "render", "animated",
			fmt.Sprintf("unknown visual kind %q", visual.Kind), nil)
	}
}
