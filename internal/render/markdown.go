package render

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"vibecast/internal/services"
)

var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(html.WithUnsafe()),
)

const slideTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<style>
  html, body { margin: 0; padding: 0; background: #ffffff; }
  body {
    font-family: "Helvetica Neue", Arial, sans-serif;
    color: #1a1a2e;
    padding: 48px 64px;
    box-sizing: border-box;
  }
  h1 { font-size: 56px; margin: 0 0 32px; }
  h2 { font-size: 44px; margin: 0 0 24px; }
  h3 { font-size: 36px; margin: 0 0 20px; }
  p, li { font-size: 30px; line-height: 1.5; }
  code { font-family: "SF Mono", Menlo, monospace; background: #f4f4f8; padding: 2px 8px; border-radius: 4px; }
  pre { background: #f4f4f8; padding: 24px; border-radius: 8px; overflow: hidden; }
  pre code { background: none; padding: 0; font-size: 24px; }
  table { border-collapse: collapse; font-size: 28px; }
  th, td { border: 1px solid #d0d0da; padding: 10px 18px; }
  img { max-width: 100%%; }
</style>
</head>
<body>
%s
</body>
</html>`

// slideHTML renders markdown into a standalone HTML page, replacing any
// fenced mermaid blocks with inline diagram images.
func (r *Renderer) slideHTML(ctx context.Context, content string) (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(content), &buf); err != nil {
		return "", services.Wrap(services.ErrValidation, "render", "slide", "convert markdown", err)
	}

	body := buf.String()
	if strings.Contains(body, "language-mermaid") {
		spliced, err := r.spliceDiagrams(ctx, body)
		if err != nil {
			return "", err
		}
		body = spliced
	}
	return fmt.Sprintf(slideTemplate, body), nil
}

func (r *Renderer) spliceDiagrams(ctx context.Context, body string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "render", "slide", "parse rendered html", err)
	}

	var spliceErr error
	doc.Find("pre > code.language-mermaid").Each(func(_ int, sel *goquery.Selection) {
		if spliceErr != nil {
			return
		}
		png, err := r.renderDiagramPNG(ctx, sel.Text())
		if err != nil {
			spliceErr = err
			return
		}
		img := fmt.Sprintf(`<img src="data:image/png;base64,%s" alt="diagram">`,
			base64.StdEncoding.EncodeToString(png))
		sel.Closest("pre").ReplaceWithHtml(img)
	})
	if spliceErr != nil {
		return "", spliceErr
	}

	out, err := doc.Find("body").Html()
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "render", "slide", "serialize spliced html", err)
	}
	return out, nil
}
