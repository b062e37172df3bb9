package speech

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"golang.org/x/sync/semaphore"

	"vibecast/internal/assetcache"
	"vibecast/internal/logging"
	"vibecast/internal/media/ffprobe"
	"vibecast/internal/podcast"
	"vibecast/internal/services"
	"vibecast/internal/tools"
)

// FailurePolicy decides what happens when one line fails to synthesize.
type FailurePolicy string

const (
	// PolicyDrop removes the line from the composition.
	PolicyDrop FailurePolicy = "drop"
	// PolicyPlaceholder substitutes silence sized to the line's word count.
	PolicyPlaceholder FailurePolicy = "placeholder"
	// PolicyFail aborts the whole batch.
	PolicyFail FailurePolicy = "fail"
)

// Track is one synthesized audio file with its measured duration.
type Track struct {
	Path     string
	Duration float64
}

// LineResult pairs a dialogue with its synthesis outcome. Exactly one of
// Track or Dropped is meaningful; Err records why a line was dropped.
type LineResult struct {
	Dialogue podcast.Dialogue
	Voice    string
	Track    Track
	Cached   bool
	Dropped  bool
	Err      error
}

// Progress is invoked once per finished line, in completion order.
type Progress func(result LineResult)

// SynthesizerOptions configures a Synthesizer. Model and OutputFormat are
// cache key components; they must match what the Service produces.
type SynthesizerOptions struct {
	Cache        *assetcache.Cache
	Service      Service
	Runner       tools.Runner
	Logger       *slog.Logger
	FFmpeg       string
	FFprobe      string
	Model        string
	OutputFormat string
	Concurrency  int
	BatchSize    int
	Policy       FailurePolicy
}

// Synthesizer turns a script's dialogue lines into audio tracks with bounded
// concurrency, one cached file per (text, voice, model, format, dialogue)
// tuple.
type Synthesizer struct {
	cache        *assetcache.Cache
	service      Service
	runner       tools.Runner
	logger       *slog.Logger
	ffmpeg       string
	ffprobe      string
	model        string
	outputFormat string
	concurrency  int64
	batchSize    int
	policy       FailurePolicy
}

// NewSynthesizer builds a Synthesizer, applying defaults for zero values.
func NewSynthesizer(opts SynthesizerOptions) *Synthesizer {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = 5
	}
	batch := opts.BatchSize
	if batch <= 0 {
		batch = 5
	}
	policy := opts.Policy
	switch policy {
	case PolicyDrop, PolicyPlaceholder, PolicyFail:
	default:
		policy = PolicyDrop
	}
	ffmpeg := opts.FFmpeg
	if ffmpeg == "" {
		ffmpeg = "ffmpeg"
	}
	ffprobeBin := opts.FFprobe
	if ffprobeBin == "" {
		ffprobeBin = "ffprobe"
	}
	model := opts.Model
	if model == "" {
		model = "eleven_multilingual_v2"
	}
	format := opts.OutputFormat
	if format == "" {
		format = "mp3_44100_128"
	}
	return &Synthesizer{
		cache:        opts.Cache,
		service:      opts.Service,
		runner:       opts.Runner,
		logger:       logging.NewComponentLogger(logger, "speech"),
		ffmpeg:       ffmpeg,
		ffprobe:      ffprobeBin,
		model:        model,
		outputFormat: format,
		concurrency:  int64(concurrency),
		batchSize:    batch,
		policy:       policy,
	}
}

// SynthesizeAll processes every dialogue line in batches, preserving script
// order in the returned slice. Lines that failed under the drop policy are
// marked Dropped rather than removed, so callers keep index alignment.
func (s *Synthesizer) SynthesizeAll(ctx context.Context, dialogues []podcast.Dialogue, voices VoiceMap, onProgress Progress) ([]LineResult, error) {
	results := make([]LineResult, len(dialogues))
	sem := semaphore.NewWeighted(s.concurrency)

	for start := 0; start < len(dialogues); start += s.batchSize {
		end := start + s.batchSize
		if end > len(dialogues) {
			end = len(dialogues)
		}

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			if err := sem.Acquire(ctx, 1); err != nil {
				wg.Wait()
				return nil, services.Wrap(services.ErrTransient, "speech", "batch", "acquire slot", err)
			}
			wg.Add(1)
			go func(index int) {
				defer wg.Done()
				defer sem.Release(1)
				results[index] = s.synthesizeLine(ctx, dialogues[index], index, voices)
			}(i)
		}
		wg.Wait()

		for i := start; i < end; i++ {
			if results[i].Err != nil && s.policy == PolicyFail {
				return nil, results[i].Err
			}
			if onProgress != nil {
				onProgress(results[i])
			}
		}
	}
	return results, nil
}

func (s *Synthesizer) synthesizeLine(ctx context.Context, dialogue podcast.Dialogue, index int, voices VoiceMap) LineResult {
	slot := podcast.NormalizeSpeaker(dialogue.Speaker, index)
	voice := voices[slot]
	result := LineResult{Dialogue: dialogue, Voice: voice}

	key := assetcache.Key(dialogue.Text, voice, s.model, s.outputFormat, dialogue.ID)
	lineCtx := services.WithDialogueID(ctx, dialogue.ID)

	path, cached, err := s.cache.GetOrCreate(lineCtx, assetcache.KindAudio, dialogue.ID, key, "mp3",
		func(ctx context.Context, dst string) error {
			audio, err := s.service.Synthesize(ctx, dialogue.Text, voice)
			if err != nil {
				return err
			}
			return os.WriteFile(dst, audio, 0o644)
		})
	if err != nil {
		return s.handleFailure(lineCtx, result, err)
	}

	duration, err := ffprobe.AudioDuration(lineCtx, s.runner, s.ffprobe, path)
	if err != nil {
		return s.handleFailure(lineCtx, result, err)
	}

	result.Track = Track{Path: path, Duration: duration}
	result.Cached = cached
	return result
}

func (s *Synthesizer) handleFailure(ctx context.Context, result LineResult, cause error) LineResult {
	result.Err = cause
	switch s.policy {
	case PolicyPlaceholder:
		track, err := s.silentTrack(ctx, result.Dialogue)
		if err != nil {
			s.logger.Error("placeholder synthesis failed",
				logging.String(logging.FieldDialogueID, result.Dialogue.ID),
				logging.Error(err))
			result.Dropped = true
			return result
		}
		s.logger.Warn("substituted silent placeholder",
			logging.String(logging.FieldDialogueID, result.Dialogue.ID),
			logging.Error(cause))
		result.Track = track
		return result
	case PolicyFail:
		return result
	default:
		s.logger.Warn("dropping dialogue after synthesis failure",
			logging.String(logging.FieldDialogueID, result.Dialogue.ID),
			logging.Error(cause))
		result.Dropped = true
		return result
	}
}

// silentTrack generates silence sized to the line's word count at a typical
// speaking rate, so pacing survives a dropped voice line.
func (s *Synthesizer) silentTrack(ctx context.Context, dialogue podcast.Dialogue) (Track, error) {
	const wordsPerMinute = 150.0
	words := len(strings.Fields(dialogue.Text))
	duration := float64(words) / wordsPerMinute * 60
	if duration < 1 {
		duration = 1
	}

	key := assetcache.Key("silence", fmt.Sprintf("%.2f", duration), dialogue.ID)
	path, _, err := s.cache.GetOrCreate(ctx, assetcache.KindAudio, dialogue.ID, key, "mp3",
		func(ctx context.Context, dst string) error {
			args := []string{
				"-y",
				"-f", "lavfi", "-i", "anullsrc=r=44100:cl=stereo",
				"-t", fmt.Sprintf("%.2f", duration),
				"-b:a", "128k",
				dst,
			}
			_, err := s.runner.Run(ctx, s.ffmpeg, args...)
			if err != nil {
				return services.Wrap(services.ErrExternalTool, "speech", "placeholder", "generate silence", err)
			}
			return nil
		})
	if err != nil {
		return Track{}, err
	}
	return Track{Path: path, Duration: duration}, nil
}
