package render

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"vibecast/internal/services"
)

// renderDiagramPNG runs the mermaid CLI on diagram source and returns the
// resulting PNG bytes.
func (r *Renderer) renderDiagramPNG(ctx context.Context, source string) ([]byte, error) {
	workDir, err := os.MkdirTemp("", "vibecast-mermaid-")
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "render", "diagram", "create work dir", err)
	}
	defer os.RemoveAll(workDir)

	inPath := filepath.Join(workDir, "diagram.mmd")
	outPath := filepath.Join(workDir, "diagram.png")
	if err := os.WriteFile(inPath, []byte(source), 0o644); err != nil {
		return nil, services.Wrap(services.ErrTransient, "render", "diagram", "write diagram source", err)
	}

	args := []string{
		"-i", inPath,
		"-o", outPath,
		"-b", "white",
		"-s", "2",
	}
	if _, err := r.runner.Run(ctx, r.mermaid, args...); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "render", "diagram", "run mermaid cli", err)
	}

	png, err := os.ReadFile(outPath)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "render", "diagram",
			fmt.Sprintf("mermaid cli produced no output for %d-byte source", len(source)), err)
	}
	return png, nil
}
