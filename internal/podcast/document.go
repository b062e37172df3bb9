package podcast

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"vibecast/internal/services"
)

// VisualKind classifies a visual description.
type VisualKind string

const (
	// KindDiagram is mermaid diagram source.
	KindDiagram VisualKind = "diagram"
	// KindSlide is markdown slide content, possibly with embedded diagrams.
	KindSlide VisualKind = "slide"
)

// Visual is the semantic description of what appears on screen during a
// dialogue line. It is comparable so it can serve as a deduplication key.
type Visual struct {
	Kind    VisualKind `json:"type"`
	Content string     `json:"content"`
}

// Dialogue is one spoken line with an optional visual.
type Dialogue struct {
	ID      string  `json:"dialogue_id"`
	Speaker string  `json:"speaker"`
	Text    string  `json:"text"`
	Visual  *Visual `json:"visualization,omitempty"`
}

// Cluster is one script segment containing an ordered run of dialogue lines.
type Cluster struct {
	ID        string     `json:"cluster_id"`
	Title     string     `json:"title"`
	Dialogues []Dialogue `json:"dialogues"`
}

// Metadata carries optional document-level hints.
type Metadata struct {
	Title    string `json:"title,omitempty"`
	Language string `json:"language,omitempty"`
}

// Document is a full podcast script. Read-only once handed to the pipeline.
type Document struct {
	Metadata Metadata  `json:"metadata,omitempty"`
	Clusters []Cluster `json:"clusters"`
}

// Parse decodes and validates a document from JSON.
func Parse(r io.Reader) (*Document, error) {
	decoder := json.NewDecoder(r)
	var doc Document
	if err := decoder.Decode(&doc); err != nil {
		return nil, services.Wrap(services.ErrValidation, "podcast", "parse", "decode document", err)
	}
	if err := doc.validate(); err != nil {
		return nil, err
	}
	doc.normalize()
	return &doc, nil
}

// Read loads a document from a file on disk.
func Read(path string) (*Document, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "podcast", "read", fmt.Sprintf("open %s", path), err)
	}
	defer file.Close()
	return Parse(file)
}

func (d *Document) validate() error {
	if len(d.Clusters) == 0 {
		return services.Wrap(services.ErrValidation, "podcast", "validate", "document has no clusters", nil)
	}
	seen := make(map[string]struct{})
	for ci, cluster := range d.Clusters {
		if len(cluster.Dialogues) == 0 {
			return services.Wrap(services.ErrValidation, "podcast", "validate",
				fmt.Sprintf("cluster %d (%s) has no dialogues", ci, cluster.ID), nil)
		}
		for di, dialogue := range cluster.Dialogues {
			if strings.TrimSpace(dialogue.ID) == "" {
				return services.Wrap(services.ErrValidation, "podcast", "validate",
					fmt.Sprintf("cluster %d dialogue %d has no dialogue_id", ci, di), nil)
			}
			if _, dup := seen[dialogue.ID]; dup {
				return services.Wrap(services.ErrValidation, "podcast", "validate",
					fmt.Sprintf("duplicate dialogue_id %q", dialogue.ID), nil)
			}
			seen[dialogue.ID] = struct{}{}
			if strings.TrimSpace(dialogue.Text) == "" {
				return services.Wrap(services.ErrValidation, "podcast", "validate",
					fmt.Sprintf("dialogue %q has no text", dialogue.ID), nil)
			}
			if dialogue.Visual != nil {
				switch normalizeKind(dialogue.Visual.Kind) {
				case KindDiagram, KindSlide:
				default:
					return services.Wrap(services.ErrValidation, "podcast", "validate",
						fmt.Sprintf("dialogue %q has unknown visualization type %q", dialogue.ID, dialogue.Visual.Kind), nil)
				}
			}
		}
	}
	return nil
}

func (d *Document) normalize() {
	for ci := range d.Clusters {
		for di := range d.Clusters[ci].Dialogues {
			dialogue := &d.Clusters[ci].Dialogues[di]
			if dialogue.Visual != nil {
				dialogue.Visual.Kind = normalizeKind(dialogue.Visual.Kind)
			}
		}
	}
}

func normalizeKind(kind VisualKind) VisualKind {
	switch strings.ToLower(strings.TrimSpace(string(kind))) {
	case "mermaid", "diagram":
		return KindDiagram
	case "markdown", "slide":
		return KindSlide
	default:
		return kind
	}
}

// Dialogues returns every dialogue in script order.
func (d *Document) Dialogues() []Dialogue {
	var all []Dialogue
	for _, cluster := range d.Clusters {
		all = append(all, cluster.Dialogues...)
	}
	return all
}

// UniqueVisuals returns the deduplicated set of visual descriptions in
// first-appearance order. Two dialogues sharing an identical description
// share one rendered asset.
func (d *Document) UniqueVisuals() []Visual {
	seen := make(map[Visual]struct{})
	var unique []Visual
	for _, dialogue := range d.Dialogues() {
		if dialogue.Visual == nil {
			continue
		}
		visual := *dialogue.Visual
		if _, ok := seen[visual]; ok {
			continue
		}
		seen[visual] = struct{}{}
		unique = append(unique, visual)
	}
	return unique
}

// FirstDialogueText returns the text of the first dialogue line, used for
// language detection.
func (d *Document) FirstDialogueText() string {
	for _, cluster := range d.Clusters {
		for _, dialogue := range cluster.Dialogues {
			if strings.TrimSpace(dialogue.Text) != "" {
				return dialogue.Text
			}
		}
	}
	return ""
}
