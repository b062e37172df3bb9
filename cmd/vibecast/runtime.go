package main

import (
	"log/slog"
	"time"

	"vibecast/internal/assetcache"
	"vibecast/internal/browser"
	"vibecast/internal/compose"
	"vibecast/internal/config"
	"vibecast/internal/pipeline"
	"vibecast/internal/progress"
	"vibecast/internal/render"
	"vibecast/internal/speech"
	"vibecast/internal/tasks"
	"vibecast/internal/tools"
)

// runtime bundles the long-lived pipeline components a command needs.
type runtime struct {
	cfg       *config.Config
	logger    *slog.Logger
	observer  *progress.Observer
	journal   *tasks.Store
	generator *pipeline.Generator
}

func (r *runtime) close() {
	if r.journal != nil {
		_ = r.journal.Close()
	}
}

// buildRuntime wires the full generation stack from configuration. The caller
// owns the returned runtime and must close it.
func buildRuntime(cfg *config.Config, logger *slog.Logger) (*runtime, error) {
	cache := assetcache.New(cfg.Paths.CacheDir, cfg.Cache.Exclusive)
	runner := tools.ExecRunner{}
	chrome := browser.New(cfg.Tools.Chromium)

	renderer := render.New(render.Options{
		Cache:    cache,
		Runner:   runner,
		Shot:     chrome,
		Recorder: chrome,
		Logger:   logger,
		FFmpeg:   cfg.Tools.FFmpeg,
		Mermaid:  cfg.Tools.Mermaid,
		MarginPx: cfg.Render.MarginPx,
		Settle:   time.Duration(cfg.Render.SettleMillis) * time.Millisecond,
		Buffer:   time.Duration(cfg.Render.BufferMillis) * time.Millisecond,
	})

	voiceClient := speech.NewClient(speech.ClientOptions{
		APIKey:       cfg.Speech.APIKey,
		BaseURL:      cfg.Speech.BaseURL,
		Model:        cfg.Speech.Model,
		OutputFormat: cfg.Speech.OutputFormat,
		Timeout:      time.Duration(cfg.Speech.TimeoutSecs) * time.Second,
	})
	synth := speech.NewSynthesizer(speech.SynthesizerOptions{
		Cache:        cache,
		Service:      voiceClient,
		Runner:       runner,
		Logger:       logger,
		FFmpeg:       cfg.Tools.FFmpeg,
		FFprobe:      cfg.Tools.FFprobe,
		Model:        cfg.Speech.Model,
		OutputFormat: cfg.Speech.OutputFormat,
		Concurrency:  cfg.Speech.Concurrency,
		BatchSize:    cfg.Speech.BatchSize,
		Policy:       speech.FailurePolicy(cfg.Speech.FailurePolicy),
	})

	assembler := compose.NewAssembler(compose.AssemblerOptions{
		Runner:           runner,
		Logger:           logger,
		FFmpeg:           cfg.Tools.FFmpeg,
		FFprobe:          cfg.Tools.FFprobe,
		SpeakerIndicator: cfg.Video.SpeakerIndicator,
	})
	composer := compose.NewComposer(compose.ComposerOptions{
		Runner:  runner,
		Logger:  logger,
		FFmpeg:  cfg.Tools.FFmpeg,
		FFprobe: cfg.Tools.FFprobe,
	})

	journal, err := tasks.Open(cfg.Paths.LogDir)
	if err != nil {
		return nil, err
	}

	observer := progress.NewObserver(logger)
	generator := pipeline.New(pipeline.Options{
		Config:    cfg,
		Logger:    logger,
		Observer:  observer,
		Journal:   journal,
		Renderer:  renderer,
		Synth:     synth,
		Assembler: assembler,
		Composer:  composer,
	})

	return &runtime{
		cfg:       cfg,
		logger:    logger,
		observer:  observer,
		journal:   journal,
		generator: generator,
	}, nil
}
