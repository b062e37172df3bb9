package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"vibecast/internal/compose"
	"vibecast/internal/podcast"
	"vibecast/internal/progress"
	"vibecast/internal/render"
	"vibecast/internal/speech"
	"vibecast/internal/testsupport"
)

type fakeRenderer struct {
	mu           sync.Mutex
	staticCalls  int
	animCalls    int
	animSpeakers []string
	errorSlides  int
	failContent  string
}

func (f *fakeRenderer) RenderVisual(_ context.Context, visual podcast.Visual, width, height int) (render.Asset, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.staticCalls++
	if f.failContent != "" && visual.Content == f.failContent {
		return render.Asset{}, false, errors.New("render exploded")
	}
	return render.Asset{Path: fmt.Sprintf("/cache/images/%s-%dx%d.png", visual.Kind, width, height), Kind: render.AssetImage}, false, nil
}

func (f *fakeRenderer) RenderAnimated(_ context.Context, visual podcast.Visual, _, _ int, duration float64, speaker string) (render.Asset, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.animCalls++
	f.animSpeakers = append(f.animSpeakers, speaker)
	return render.Asset{Path: "/cache/clips/anim.mp4", Kind: render.AssetClip, Duration: duration}, false, nil
}

func (f *fakeRenderer) ErrorSlide(_ context.Context, _ string, _, _ int) (render.Asset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errorSlides++
	return render.Asset{Path: "/cache/images/error.png", Kind: render.AssetImage}, nil
}

type fakeSynth struct {
	failIDs map[string]bool
}

func (f *fakeSynth) SynthesizeAll(_ context.Context, dialogues []podcast.Dialogue, voices speech.VoiceMap, onProgress speech.Progress) ([]speech.LineResult, error) {
	results := make([]speech.LineResult, len(dialogues))
	for i, dialogue := range dialogues {
		slot := podcast.NormalizeSpeaker(dialogue.Speaker, i)
		result := speech.LineResult{Dialogue: dialogue, Voice: voices[slot]}
		if f.failIDs[dialogue.ID] {
			result.Dropped = true
			result.Err = errors.New("synthesis failed")
		} else {
			result.Track = speech.Track{Path: "/cache/audio/" + dialogue.ID + ".mp3", Duration: 2.0}
		}
		results[i] = result
		if onProgress != nil {
			onProgress(result)
		}
	}
	return results, nil
}

type fakeAssembler struct {
	mu    sync.Mutex
	clips []compose.AssembleRequest
	err   error
}

func (f *fakeAssembler) Assemble(_ context.Context, req compose.AssembleRequest) (compose.Clip, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return compose.Clip{}, f.err
	}
	f.clips = append(f.clips, req)
	return compose.Clip{Index: req.Index, Path: "/clips/" + req.DialogueID + ".mp4", Duration: req.Audio.Duration}, nil
}

type fakeComposer struct {
	req *compose.ComposeRequest
}

func (f *fakeComposer) Compose(_ context.Context, req compose.ComposeRequest) (compose.Result, error) {
	f.req = &req
	if req.OnProgress != nil {
		req.OnProgress(1.0, 6.0)
	}
	total := 0.0
	for _, clip := range req.Clips {
		total += clip.Duration
	}
	return compose.Result{VideoPath: req.OutputPath, AudioPath: req.OutputPath + ".mp3", Duration: total, Copied: true}, nil
}

type env struct {
	generator *Generator
	observer  *progress.Observer
	renderer  *fakeRenderer
	synth     *fakeSynth
	assembler *fakeAssembler
	composer  *fakeComposer
}

func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{
		observer:  progress.NewObserver(nil),
		renderer:  &fakeRenderer{},
		synth:     &fakeSynth{},
		assembler: &fakeAssembler{},
		composer:  &fakeComposer{},
	}
	e.generator = New(Options{
		Config:    testsupport.NewConfig(t),
		Observer:  e.observer,
		Renderer:  e.renderer,
		Synth:     e.synth,
		Assembler: e.assembler,
		Composer:  e.composer,
	})
	return e
}

func threeLineDocument() *podcast.Document {
	return testsupport.NewDocumentClusters([][]testsupport.Line{
		{
			{Speaker: "lisa", Text: "What is a cache?", Visual: testsupport.Slide("# Caches")},
			{Speaker: "alex", Text: "It stores results.", Visual: testsupport.Diagram("graph TD; A-->B")},
		},
		{
			{Speaker: "lisa", Text: "Let us recap.", Visual: testsupport.Slide("# Caches")},
		},
	})
}

func drainEvents(sub *progress.Subscription) map[progress.EventType][]progress.Event {
	byType := make(map[progress.EventType][]progress.Event)
	for {
		select {
		case event := <-sub.Events():
			byType[event.Type] = append(byType[event.Type], event)
		default:
			return byType
		}
	}
}

func TestRunHappyPathEventFlow(t *testing.T) {
	e := newEnv(t)
	sub := e.observer.Subscribe("task-1")
	defer e.observer.Unsubscribe(sub)

	result, err := e.generator.Run(context.Background(), Request{
		Document: threeLineDocument(),
		TaskID:   "task-1",
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.Clips != 3 {
		t.Fatalf("expected 3 clips, got %d", result.Clips)
	}
	if result.Duration != 6.0 {
		t.Fatalf("expected duration 6.0, got %v", result.Duration)
	}

	events := drainEvents(sub)
	if len(events[progress.EventTaskStarted]) != 1 {
		t.Fatalf("expected exactly one task_started, got %d", len(events[progress.EventTaskStarted]))
	}
	if len(events[progress.EventPhaseStarted]) != 3 || len(events[progress.EventPhaseCompleted]) != 3 {
		t.Fatalf("expected 3 phase pairs, got %d/%d",
			len(events[progress.EventPhaseStarted]), len(events[progress.EventPhaseCompleted]))
	}
	// Two unique visuals across the three dialogues.
	if len(events[progress.EventAssetRendered]) != 2 {
		t.Fatalf("expected 2 asset_rendered, got %d", len(events[progress.EventAssetRendered]))
	}
	if len(events[progress.EventAudioGenerated]) != 3 {
		t.Fatalf("expected 3 audio_generated, got %d", len(events[progress.EventAudioGenerated]))
	}
	if len(events[progress.EventCompositionProgress]) == 0 {
		t.Fatal("expected composition progress events")
	}
	completed := events[progress.EventTaskCompleted]
	if len(completed) != 1 {
		t.Fatalf("expected one task_completed, got %d", len(completed))
	}
	if completed[0].Data["video_path"] == "" {
		t.Fatal("task_completed must carry the output path")
	}
	if completed[0].Data["duration_seconds"] != 6.0 {
		t.Fatalf("task_completed must carry duration_seconds, got %v", completed[0].Data["duration_seconds"])
	}
	if completed[0].Data["resolution"] != "1920x1080" {
		t.Fatalf("task_completed must carry the delivery resolution, got %v", completed[0].Data["resolution"])
	}

	phases := events[progress.EventPhaseStarted]
	wantOrder := []string{"asset_rendering", "audio_synthesis", "video_composition"}
	for i, event := range phases {
		if event.Data["phase"] != wantOrder[i] {
			t.Fatalf("phase %d = %v, want %s", i, event.Data["phase"], wantOrder[i])
		}
	}

	// Every phase_progress names its phase and percentages never regress
	// within one phase.
	lastPct := map[string]float64{}
	for _, event := range events[progress.EventPhaseProgress] {
		phase, ok := event.Data["phase"].(string)
		if !ok || phase == "" {
			t.Fatalf("phase_progress must carry its phase: %v", event.Data)
		}
		pct, ok := event.Data["percentage"].(float64)
		if !ok {
			t.Fatalf("phase_progress must carry a percentage: %v", event.Data)
		}
		if pct < lastPct[phase] {
			t.Fatalf("percentage regressed in %s: %v -> %v", phase, lastPct[phase], pct)
		}
		lastPct[phase] = pct
	}
	if len(lastPct) < 2 {
		t.Fatalf("expected progress from both fan-out phases, got %v", lastPct)
	}
}

func TestRunDropsFailedSynthesisLine(t *testing.T) {
	e := newEnv(t)
	e.synth.failIDs = map[string]bool{"d2": true}

	result, err := e.generator.Run(context.Background(), Request{
		Document: threeLineDocument(),
		TaskID:   "task-2",
	})
	if err != nil {
		t.Fatalf("one dropped line must not fail the task: %v", err)
	}
	if result.Clips != 2 {
		t.Fatalf("expected 2 surviving clips, got %d", result.Clips)
	}
	ids := []string{e.assembler.clips[0].DialogueID, e.assembler.clips[1].DialogueID}
	if ids[0] != "d1" || ids[1] != "d3" {
		t.Fatalf("expected clips for d1 and d3, got %v", ids)
	}
	// Indexes stay dense so composition order is contiguous.
	if e.assembler.clips[0].Index != 0 || e.assembler.clips[1].Index != 1 {
		t.Fatalf("expected dense clip indexes, got %d and %d",
			e.assembler.clips[0].Index, e.assembler.clips[1].Index)
	}
}

func TestRunPreservesScriptOrder(t *testing.T) {
	e := newEnv(t)
	var lines []testsupport.Line
	for i := 0; i < 8; i++ {
		lines = append(lines, testsupport.Line{
			Text:   fmt.Sprintf("line %d", i),
			Visual: testsupport.Slide(fmt.Sprintf("# Slide %d", i)),
		})
	}
	if _, err := e.generator.Run(context.Background(), Request{
		Document: testsupport.NewDocument(lines...),
		TaskID:   "task-3",
	}); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	for i, clip := range e.assembler.clips {
		if clip.Index != i {
			t.Fatalf("clip %d has index %d", i, clip.Index)
		}
		if clip.DialogueID != fmt.Sprintf("d%d", i+1) {
			t.Fatalf("clip %d assembled out of order: %s", i, clip.DialogueID)
		}
	}
	if e.composer.req == nil || len(e.composer.req.Clips) != 8 {
		t.Fatal("composer must receive all clips")
	}
}

func TestRunSubstitutesErrorSlideOnRenderFailure(t *testing.T) {
	e := newEnv(t)
	e.renderer.failContent = "# Caches"
	sub := e.observer.Subscribe("task-4")
	defer e.observer.Unsubscribe(sub)

	if _, err := e.generator.Run(context.Background(), Request{
		Document: threeLineDocument(),
		TaskID:   "task-4",
	}); err != nil {
		t.Fatalf("render failure must degrade, not fail: %v", err)
	}
	if e.renderer.errorSlides != 1 {
		t.Fatalf("expected one error slide, got %d", e.renderer.errorSlides)
	}
	events := drainEvents(sub)
	if len(events[progress.EventWarning]) == 0 {
		t.Fatal("expected a warning event for the failed render")
	}
}

func TestRunFailsTaskWhenAllLinesDrop(t *testing.T) {
	e := newEnv(t)
	e.synth.failIDs = map[string]bool{"d1": true, "d2": true, "d3": true}
	sub := e.observer.Subscribe("task-5")
	defer e.observer.Unsubscribe(sub)

	_, err := e.generator.Run(context.Background(), Request{
		Document: threeLineDocument(),
		TaskID:   "task-5",
	})
	if err == nil {
		t.Fatal("expected failure when no clips survive")
	}
	events := drainEvents(sub)
	failed := events[progress.EventTaskFailed]
	if len(failed) != 1 {
		t.Fatalf("expected one task_failed, got %d", len(failed))
	}
	if failed[0].Data["error_phase"] != "video_composition" {
		t.Fatalf("unexpected error phase %v", failed[0].Data["error_phase"])
	}
}

func TestRunRejectsUnknownQuality(t *testing.T) {
	e := newEnv(t)
	_, err := e.generator.Run(context.Background(), Request{
		Document: threeLineDocument(),
		TaskID:   "task-6",
		Quality:  "ultra",
	})
	if err == nil {
		t.Fatal("expected error for unknown quality")
	}
}

func TestRunAnimatedModeUsesAnimatedClips(t *testing.T) {
	e := newEnv(t)
	cfg := testsupport.NewConfig(t)
	cfg.Render.Animated = true
	e.generator = New(Options{
		Config:    cfg,
		Observer:  e.observer,
		Renderer:  e.renderer,
		Synth:     e.synth,
		Assembler: e.assembler,
		Composer:  e.composer,
	})

	if _, err := e.generator.Run(context.Background(), Request{
		Document: threeLineDocument(),
		TaskID:   "task-7",
	}); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if e.renderer.animCalls != 3 {
		t.Fatalf("expected 3 animated renders, got %d", e.renderer.animCalls)
	}
	// lisa, alex, lisa — the renderer needs the slot to bake the badge.
	wantSpeakers := []string{"speaker_1", "speaker_2", "speaker_1"}
	for i, speaker := range e.renderer.animSpeakers {
		if speaker != wantSpeakers[i] {
			t.Fatalf("animated render %d got speaker %q, want %q", i, speaker, wantSpeakers[i])
		}
	}
	for _, clip := range e.assembler.clips {
		if clip.Visual.Kind != render.AssetClip {
			t.Fatalf("animated mode must assemble clip visuals, got %q", clip.Visual.Kind)
		}
	}
}
