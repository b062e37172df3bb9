package testsupport

import (
	"fmt"

	"vibecast/internal/podcast"
)

// Line describes one dialogue for NewDocument.
type Line struct {
	Speaker string
	Text    string
	Visual  *podcast.Visual
}

// Slide returns a markdown slide visual.
func Slide(content string) *podcast.Visual {
	return &podcast.Visual{Kind: podcast.KindSlide, Content: content}
}

// Diagram returns a mermaid diagram visual.
func Diagram(content string) *podcast.Visual {
	return &podcast.Visual{Kind: podcast.KindDiagram, Content: content}
}

// NewDocument builds a single-cluster document with sequential dialogue IDs.
func NewDocument(lines ...Line) *podcast.Document {
	return NewDocumentClusters([][]Line{lines})
}

// NewDocumentClusters builds a multi-cluster document with sequential
// dialogue IDs across clusters.
func NewDocumentClusters(clusters [][]Line) *podcast.Document {
	doc := &podcast.Document{}
	next := 1
	for ci, lines := range clusters {
		cluster := podcast.Cluster{
			ID:    fmt.Sprintf("c%d", ci+1),
			Title: fmt.Sprintf("Cluster %d", ci+1),
		}
		for _, line := range lines {
			speaker := line.Speaker
			if speaker == "" {
				speaker = podcast.Speaker1
			}
			cluster.Dialogues = append(cluster.Dialogues, podcast.Dialogue{
				ID:      fmt.Sprintf("d%d", next),
				Speaker: speaker,
				Text:    line.Text,
				Visual:  line.Visual,
			})
			next++
		}
		doc.Clusters = append(doc.Clusters, cluster)
	}
	return doc
}
