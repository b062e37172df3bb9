package render

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"vibecast/internal/assetcache"
	"vibecast/internal/podcast"
	"vibecast/internal/testsupport"
)

type fakeShot struct {
	calls int
	png   []byte
	err   error
}

func (f *fakeShot) Screenshot(_ context.Context, html string, width, height int, _ time.Duration) ([]byte, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.png != nil {
		return f.png, nil
	}
	return []byte("png:" + html), nil
}

// writeOutputRunner pretends to be ffmpeg and mmdc by writing a marker file
// to whatever output path the command names.
func writeOutputRunner(t *testing.T) *testsupport.FakeRunner {
	t.Helper()
	runner := &testsupport.FakeRunner{}
	runner.RunFunc = func(_ context.Context, name string, args ...string) ([]byte, error) {
		var out string
		switch name {
		case "mmdc":
			for i, a := range args {
				if a == "-o" && i+1 < len(args) {
					out = args[i+1]
				}
			}
		default:
			out = args[len(args)-1]
		}
		if out != "" {
			if err := os.WriteFile(out, []byte("media output"), 0o644); err != nil {
				t.Fatalf("fake runner write: %v", err)
			}
		}
		return nil, nil
	}
	return runner
}

func newTestRenderer(t *testing.T, shot *fakeShot) (*Renderer, *testsupport.FakeRunner) {
	t.Helper()
	runner := writeOutputRunner(t)
	renderer := New(Options{
		Cache:    assetcache.New(t.TempDir(), false),
		Runner:   runner,
		Shot:     shot,
		FFmpeg:   "ffmpeg",
		Mermaid:  "mmdc",
		MarginPx: 100,
	})
	return renderer, runner
}

func TestRenderVisualSlideGoesThroughBrowserAndCanvas(t *testing.T) {
	shot := &fakeShot{}
	renderer, runner := newTestRenderer(t, shot)

	visual := podcast.Visual{Kind: podcast.KindSlide, Content: "# Hello"}
	asset, cached, err := renderer.RenderVisual(context.Background(), visual, 1920, 1080)
	if err != nil {
		t.Fatalf("RenderVisual returned error: %v", err)
	}
	if cached {
		t.Fatal("first render must be a miss")
	}
	if asset.Kind != AssetImage {
		t.Fatalf("expected image asset, got %q", asset.Kind)
	}
	if shot.calls != 1 {
		t.Fatalf("expected one screenshot, got %d", shot.calls)
	}

	ffmpegCalls := runner.CallsFor("ffmpeg")
	if len(ffmpegCalls) != 1 {
		t.Fatalf("expected one ffmpeg normalize call, got %d", len(ffmpegCalls))
	}
	filter, err := ffmpegCalls[0].ArgAfter("-vf")
	if err != nil {
		t.Fatalf("normalize call has no -vf: %v", err)
	}
	// 100px margin on a 1920x1080 canvas leaves a 1720x880 content box.
	if !strings.Contains(filter, "scale=1720:880") || !strings.Contains(filter, "pad=1920:1080") {
		t.Fatalf("unexpected canvas filter %q", filter)
	}
	if !strings.Contains(filter, "color=white") {
		t.Fatalf("canvas must be white, got %q", filter)
	}
}

func TestRenderVisualCachesByContentAndResolution(t *testing.T) {
	shot := &fakeShot{}
	renderer, _ := newTestRenderer(t, shot)
	visual := podcast.Visual{Kind: podcast.KindSlide, Content: "# Same"}

	if _, cached, err := renderer.RenderVisual(context.Background(), visual, 1920, 1080); err != nil || cached {
		t.Fatalf("first render: cached=%v err=%v", cached, err)
	}
	if _, cached, err := renderer.RenderVisual(context.Background(), visual, 1920, 1080); err != nil || !cached {
		t.Fatalf("repeat render: cached=%v err=%v", cached, err)
	}
	if shot.calls != 1 {
		t.Fatalf("cache hit must not re-screenshot, got %d calls", shot.calls)
	}

	// A different resolution is a different cache entry.
	if _, cached, err := renderer.RenderVisual(context.Background(), visual, 1280, 720); err != nil || cached {
		t.Fatalf("resolution change: cached=%v err=%v", cached, err)
	}
}

func TestRenderVisualDiagramUsesMermaidCLI(t *testing.T) {
	renderer, runner := newTestRenderer(t, &fakeShot{})
	visual := podcast.Visual{Kind: podcast.KindDiagram, Content: "graph TD; A-->B"}

	if _, _, err := renderer.RenderVisual(context.Background(), visual, 1920, 1080); err != nil {
		t.Fatalf("RenderVisual returned error: %v", err)
	}
	if len(runner.CallsFor("mmdc")) != 1 {
		t.Fatal("expected one mermaid cli invocation")
	}
}

func TestSlideHTMLSplicesMermaidBlocks(t *testing.T) {
	renderer, runner := newTestRenderer(t, &fakeShot{})
	content := "# Title\n\n```mermaid\ngraph TD; A-->B\n```\n\ntext"

	html, err := renderer.slideHTML(context.Background(), content)
	if err != nil {
		t.Fatalf("slideHTML returned error: %v", err)
	}
	if strings.Contains(html, "language-mermaid") {
		t.Fatal("mermaid block must be replaced")
	}
	if !strings.Contains(html, "data:image/png;base64,") {
		t.Fatal("expected inline diagram image")
	}
	if len(runner.CallsFor("mmdc")) != 1 {
		t.Fatal("expected the embedded diagram to go through the mermaid cli")
	}
}

func TestErrorSlideProducesAsset(t *testing.T) {
	renderer, _ := newTestRenderer(t, &fakeShot{})
	asset, err := renderer.ErrorSlide(context.Background(), "diagram failed to render", 1920, 1080)
	if err != nil {
		t.Fatalf("ErrorSlide returned error: %v", err)
	}
	if asset.Kind != AssetImage {
		t.Fatalf("expected image asset, got %q", asset.Kind)
	}
}
