package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"vibecast/internal/compose"
	"vibecast/internal/config"
	"vibecast/internal/logging"
	"vibecast/internal/podcast"
	"vibecast/internal/progress"
	"vibecast/internal/render"
	"vibecast/internal/services"
	"vibecast/internal/speech"
	"vibecast/internal/tasks"
)

// VisualRenderer is the rendering surface the pipeline depends on.
type VisualRenderer interface {
	RenderVisual(ctx context.Context, visual podcast.Visual, width, height int) (render.Asset, bool, error)
	RenderAnimated(ctx context.Context, visual podcast.Visual, width, height int, audioDuration float64, speaker string) (render.Asset, bool, error)
	ErrorSlide(ctx context.Context, message string, width, height int) (render.Asset, error)
}

// Synthesizer is the speech surface the pipeline depends on.
type Synthesizer interface {
	SynthesizeAll(ctx context.Context, dialogues []podcast.Dialogue, voices speech.VoiceMap, onProgress speech.Progress) ([]speech.LineResult, error)
}

// Assembler builds per-dialogue clips.
type Assembler interface {
	Assemble(ctx context.Context, req compose.AssembleRequest) (compose.Clip, error)
}

// Composer concatenates clips.
type Composer interface {
	Compose(ctx context.Context, req compose.ComposeRequest) (compose.Result, error)
}

// Journal persists task lifecycle transitions. May be nil.
type Journal interface {
	Upsert(ctx context.Context, record tasks.Record) error
}

// Options wires a Generator.
type Options struct {
	Config    *config.Config
	Logger    *slog.Logger
	Observer  *progress.Observer
	Journal   Journal
	Renderer  VisualRenderer
	Synth     Synthesizer
	Assembler Assembler
	Composer  Composer
}

// Request describes one generation task. Voice and audio fields override the
// configured defaults when set.
type Request struct {
	Document      *podcast.Document
	TaskID        string
	Quality       string
	OutputName    string
	Speaker1Voice string
	Speaker2Voice string
	AudioPodcast  *bool
}

// Result is the finished deliverable.
type Result struct {
	VideoPath string
	AudioPath string
	Duration  float64
	Clips     int
}

// Generator runs generation tasks.
type Generator struct {
	cfg       *config.Config
	logger    *slog.Logger
	observer  *progress.Observer
	journal   Journal
	renderer  VisualRenderer
	synth     Synthesizer
	assembler Assembler
	composer  Composer
}

// New builds a Generator.
func New(opts Options) *Generator {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Generator{
		cfg:       opts.Config,
		logger:    logging.NewComponentLogger(logger, "pipeline"),
		observer:  opts.Observer,
		journal:   opts.Journal,
		renderer:  opts.Renderer,
		synth:     opts.Synth,
		assembler: opts.Assembler,
		composer:  opts.Composer,
	}
}

// Run executes one task end to end.
func (g *Generator) Run(ctx context.Context, req Request) (Result, error) {
	if req.Document == nil || len(req.Document.Clusters) == 0 {
		return Result{}, services.Wrap(services.ErrValidation, "pipeline", "run", "empty document", nil)
	}

	quality := req.Quality
	if strings.TrimSpace(quality) == "" {
		quality = g.cfg.Video.Quality
	}
	preset, ok := compose.PresetByName(quality)
	if !ok {
		return Result{}, services.Wrap(services.ErrValidation, "pipeline", "run",
			fmt.Sprintf("unknown quality preset %q", quality), nil)
	}

	ctx = services.WithTaskID(ctx, req.TaskID)
	g.publish(req.TaskID, progress.EventTaskStarted, map[string]any{
		"quality":   preset.Name,
		"dialogues": len(req.Document.Dialogues()),
	})
	g.journalUpsert(ctx, tasks.Record{ID: req.TaskID, Status: string(progress.StatusRunning)})

	result, failedPhase, err := g.run(ctx, req, preset)
	if err != nil {
		g.publish(req.TaskID, progress.EventTaskFailed, map[string]any{
			"error":       err.Error(),
			"error_phase": failedPhase,
		})
		g.journalUpsert(ctx, tasks.Record{ID: req.TaskID, Status: string(progress.StatusFailed), Error: err.Error()})
		return Result{}, err
	}

	g.publish(req.TaskID, progress.EventTaskCompleted, map[string]any{
		"video_path":       result.VideoPath,
		"audio_path":       result.AudioPath,
		"duration_seconds": result.Duration,
		"resolution":       fmt.Sprintf("%dx%d", preset.Width, preset.Height),
		"clips":            result.Clips,
	})
	g.journalUpsert(ctx, tasks.Record{
		ID:        req.TaskID,
		Status:    string(progress.StatusCompleted),
		VideoPath: result.VideoPath,
		AudioPath: result.AudioPath,
		Duration:  result.Duration,
	})
	return result, nil
}

func (g *Generator) run(ctx context.Context, req Request, preset compose.Preset) (Result, string, error) {
	assets, err := g.renderAssets(ctx, req, preset)
	if err != nil {
		return Result{}, phaseAssets.Name, err
	}

	lines, err := g.synthesizeAudio(ctx, req)
	if err != nil {
		return Result{}, phaseAudio.Name, err
	}

	result, err := g.composeVideo(ctx, req, preset, assets, lines)
	if err != nil {
		return Result{}, phaseVideo.Name, err
	}
	return result, "", nil
}

func (g *Generator) phaseStart(ctx context.Context, taskID string, phase Phase) context.Context {
	g.publish(taskID, progress.EventPhaseStarted, map[string]any{
		"phase":        phase.Name,
		"phase_number": phase.Number,
		"total_phases": totalPhases,
		"description":  phase.Description,
	})
	g.journalUpsert(ctx, tasks.Record{ID: taskID, Status: string(progress.StatusRunning), Phase: phase.Name})
	return services.WithPhase(ctx, phase.Name)
}

func (g *Generator) phaseDone(taskID string, phase Phase) {
	g.publish(taskID, progress.EventPhaseCompleted, map[string]any{
		"phase":        phase.Name,
		"phase_number": phase.Number,
		"total_phases": totalPhases,
	})
}

// renderAssets renders the deduplicated visual set with bounded concurrency.
func (g *Generator) renderAssets(ctx context.Context, req Request, preset compose.Preset) (map[podcast.Visual]render.Asset, error) {
	ctx = g.phaseStart(ctx, req.TaskID, phaseAssets)

	visuals := req.Document.UniqueVisuals()
	assets := make(map[podcast.Visual]render.Asset, len(visuals))
	if len(visuals) == 0 {
		g.phaseDone(req.TaskID, phaseAssets)
		return assets, nil
	}

	var (
		mu   sync.Mutex
		done int
	)
	group, groupCtx := errgroup.WithContext(ctx)
	sem := semaphore.NewWeighted(int64(g.cfg.Render.Concurrency))

	for _, visual := range visuals {
		visual := visual
		if err := sem.Acquire(groupCtx, 1); err != nil {
			break
		}
		group.Go(func() error {
			defer sem.Release(1)

			started := time.Now()
			asset, cached, err := g.renderer.RenderVisual(groupCtx, visual, preset.Width, preset.Height)
			if err != nil {
				// One broken visual degrades to an error slide instead of
				// failing the task.
				g.publish(req.TaskID, progress.EventWarning, map[string]any{
					"message": fmt.Sprintf("visual render failed: %v", err),
				})
				asset, err = g.renderer.ErrorSlide(groupCtx, err.Error(), preset.Width, preset.Height)
				if err != nil {
					return err
				}
				cached = false
			}

			mu.Lock()
			assets[visual] = asset
			done++
			current := done
			mu.Unlock()

			g.publish(req.TaskID, progress.EventAssetRendered, map[string]any{
				"asset_id":       filepath.Base(asset.Path),
				"asset_type":     string(visual.Kind),
				"render_time_ms": time.Since(started).Milliseconds(),
				"cached":         cached,
			})
			g.publish(req.TaskID, progress.EventPhaseProgress, map[string]any{
				"phase":        phaseAssets.Name,
				"current":      current,
				"total":        len(visuals),
				"percentage":   float64(current) / float64(len(visuals)) * 100,
				"current_item": string(visual.Kind),
			})
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	g.phaseDone(req.TaskID, phaseAssets)
	return assets, nil
}

// synthesizeAudio runs the speech phase and returns per-line results in
// script order.
func (g *Generator) synthesizeAudio(ctx context.Context, req Request) ([]speech.LineResult, error) {
	ctx = g.phaseStart(ctx, req.TaskID, phaseAudio)

	doc := req.Document
	lang := speech.DetectLanguage(
		firstNonEmpty(g.cfg.Speech.Language, doc.Metadata.Language),
		doc.FirstDialogueText())
	voices := speech.VoicesFor(lang,
		firstNonEmpty(req.Speaker1Voice, g.cfg.Speech.Speaker1Voice),
		firstNonEmpty(req.Speaker2Voice, g.cfg.Speech.Speaker2Voice))
	g.logger.Info("voice assignment",
		logging.String("language", lang),
		logging.String(logging.FieldTaskID, req.TaskID))

	dialogues := doc.Dialogues()
	done := 0
	results, err := g.synth.SynthesizeAll(ctx, dialogues, voices, func(result speech.LineResult) {
		done++
		if result.Err == nil || !result.Dropped {
			g.publish(req.TaskID, progress.EventAudioGenerated, map[string]any{
				"dialogue_id":  result.Dialogue.ID,
				"speaker":      result.Dialogue.Speaker,
				"text_preview": preview(result.Dialogue.Text),
				"voice_id":     result.Voice,
			})
		} else {
			g.publish(req.TaskID, progress.EventWarning, map[string]any{
				"message":     fmt.Sprintf("dialogue %s dropped: %v", result.Dialogue.ID, result.Err),
				"dialogue_id": result.Dialogue.ID,
			})
		}
		g.publish(req.TaskID, progress.EventPhaseProgress, map[string]any{
			"phase":        phaseAudio.Name,
			"current":      done,
			"total":        len(dialogues),
			"percentage":   float64(done) / float64(len(dialogues)) * 100,
			"current_item": result.Dialogue.ID,
		})
	})
	if err != nil {
		return nil, err
	}
	g.phaseDone(req.TaskID, phaseAudio)
	return results, nil
}

// composeVideo assembles clips in script order and concatenates them.
func (g *Generator) composeVideo(ctx context.Context, req Request, preset compose.Preset, assets map[podcast.Visual]render.Asset, lines []speech.LineResult) (Result, error) {
	ctx = g.phaseStart(ctx, req.TaskID, phaseVideo)

	clipDir, err := os.MkdirTemp("", "vibecast-clips-")
	if err != nil {
		return Result{}, services.Wrap(services.ErrTransient, "pipeline", "compose", "create clip dir", err)
	}
	defer os.RemoveAll(clipDir)

	var clips []compose.Clip
	var lastVisual *podcast.Visual
	index := 0
	for i, line := range lines {
		if line.Dialogue.Visual != nil {
			lastVisual = line.Dialogue.Visual
		}
		if line.Dropped {
			continue
		}

		visual := lastVisual
		if visual == nil {
			title := firstNonEmpty(req.Document.Metadata.Title, "...")
			visual = &podcast.Visual{Kind: podcast.KindSlide, Content: "# " + title}
			asset, _, err := g.renderer.RenderVisual(ctx, *visual, preset.Width, preset.Height)
			if err != nil {
				return Result{}, err
			}
			assets[*visual] = asset
			lastVisual = visual
		}

		asset, ok := assets[*visual]
		if !ok {
			rendered, _, err := g.renderer.RenderVisual(ctx, *visual, preset.Width, preset.Height)
			if err != nil {
				return Result{}, err
			}
			assets[*visual] = rendered
			asset = rendered
		}

		speaker := podcast.NormalizeSpeaker(line.Dialogue.Speaker, i)

		if g.cfg.Render.Animated && line.Dialogue.Visual != nil {
			animated, cached, err := g.renderer.RenderAnimated(ctx, *visual, preset.Width, preset.Height, line.Track.Duration, speaker)
			if err != nil {
				g.publish(req.TaskID, progress.EventWarning, map[string]any{
					"message": fmt.Sprintf("animated render failed, using static visual: %v", err),
				})
			} else {
				asset = animated
				g.publish(req.TaskID, progress.EventAssetRendered, map[string]any{
					"asset_id":   filepath.Base(animated.Path),
					"asset_type": "animated",
					"cached":     cached,
				})
			}
		}

		clip, err := g.assembler.Assemble(ctx, compose.AssembleRequest{
			Index:      index,
			DialogueID: line.Dialogue.ID,
			Speaker:    speaker,
			Visual:     asset,
			Audio:      line.Track,
			Preset:     preset,
			OutputDir:  clipDir,
		})
		if err != nil {
			return Result{}, err
		}
		clips = append(clips, clip)
		index++
	}

	if len(clips) == 0 {
		return Result{}, services.Wrap(services.ErrValidation, "pipeline", "compose", "no clips survived synthesis", nil)
	}

	outputName := strings.TrimSpace(req.OutputName)
	if outputName == "" {
		outputName = req.TaskID
	}
	outputPath := filepath.Join(g.cfg.Paths.OutputDir, outputName+".mp4")

	extractAudio := g.cfg.Video.AudioPodcast
	if req.AudioPodcast != nil {
		extractAudio = *req.AudioPodcast
	}

	composed, err := g.composer.Compose(ctx, compose.ComposeRequest{
		Clips:        clips,
		Preset:       preset,
		OutputPath:   outputPath,
		ExtractAudio: extractAudio,
		OnProgress: func(current, total float64) {
			percentage := 0.0
			if total > 0 {
				percentage = current / total * 100
			}
			g.publish(req.TaskID, progress.EventCompositionProgress, map[string]any{
				"current_time_seconds":   current,
				"total_duration_seconds": total,
				"percentage":             percentage,
			})
		},
	})
	if err != nil {
		return Result{}, err
	}
	g.phaseDone(req.TaskID, phaseVideo)

	return Result{
		VideoPath: composed.VideoPath,
		AudioPath: composed.AudioPath,
		Duration:  composed.Duration,
		Clips:     len(clips),
	}, nil
}

func (g *Generator) publish(taskID string, eventType progress.EventType, data map[string]any) {
	if g.observer == nil {
		return
	}
	g.observer.Publish(taskID, eventType, data)
}

func (g *Generator) journalUpsert(ctx context.Context, record tasks.Record) {
	if g.journal == nil {
		return
	}
	if err := g.journal.Upsert(ctx, record); err != nil {
		g.logger.Warn("journal update failed",
			logging.String(logging.FieldTaskID, record.ID),
			logging.Error(err))
	}
}

func preview(text string) string {
	const max = 60
	text = strings.TrimSpace(text)
	if len(text) <= max {
		return text
	}
	return text[:max] + "..."
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}
