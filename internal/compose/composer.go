package compose

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"vibecast/internal/fileutil"
	"vibecast/internal/logging"
	"vibecast/internal/media/ffprobe"
	"vibecast/internal/services"
	"vibecast/internal/tools"
)

// ComposeRequest describes one concatenation run.
type ComposeRequest struct {
	Clips        []Clip
	Preset       Preset
	OutputPath   string
	ExtractAudio bool
	// OnProgress receives (seconds composed, total seconds) ticks during
	// the encode.
	OnProgress func(current, total float64)
}

// Result is the finished composition.
type Result struct {
	VideoPath string
	AudioPath string
	Duration  float64
	// Copied reports whether the lossless stream-copy path succeeded.
	Copied bool
}

// ComposerOptions configures a Composer.
type ComposerOptions struct {
	Runner  tools.Runner
	Logger  *slog.Logger
	FFmpeg  string
	FFprobe string
}

// Composer concatenates clips into the delivery video.
type Composer struct {
	runner      tools.Runner
	logger      *slog.Logger
	ffmpeg      string
	ffprobe     string
	encoderOnce sync.Once
	encoder     Encoder
}

// NewComposer builds a Composer, applying defaults for zero values.
func NewComposer(opts ComposerOptions) *Composer {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	ffmpeg := opts.FFmpeg
	if ffmpeg == "" {
		ffmpeg = "ffmpeg"
	}
	ffprobeBin := opts.FFprobe
	if ffprobeBin == "" {
		ffprobeBin = "ffprobe"
	}
	return &Composer{
		runner:  opts.Runner,
		logger:  logging.NewComponentLogger(logger, "compose"),
		ffmpeg:  ffmpeg,
		ffprobe: ffprobeBin,
	}
}

// Compose concatenates the clips in index order. Stream copy is attempted
// when the clips look codec-compatible; any copy failure falls back to a
// single re-encode pass.
func (c *Composer) Compose(ctx context.Context, req ComposeRequest) (Result, error) {
	if len(req.Clips) == 0 {
		return Result{}, services.Wrap(services.ErrValidation, "compose", "concat", "no clips to compose", nil)
	}

	clips := append([]Clip(nil), req.Clips...)
	sort.Slice(clips, func(i, j int) bool { return clips[i].Index < clips[j].Index })

	total := 0.0
	for _, clip := range clips {
		total += clip.Duration
	}

	listPath, err := writeConcatList(clips)
	if err != nil {
		return Result{}, err
	}
	defer os.Remove(listPath)

	// Compose into a staging file so a failed run never leaves a truncated
	// delivery video behind.
	stagePath := req.OutputPath + ".partial.mp4"
	defer os.Remove(stagePath)

	copied := false
	if c.clipsCompatible(ctx, clips) {
		if err := c.concatCopy(ctx, listPath, stagePath, req, total); err != nil {
			c.logger.Warn("stream copy failed, re-encoding", logging.Error(err))
		} else {
			copied = true
		}
	}
	if !copied {
		if err := c.concatEncode(ctx, listPath, stagePath, req, total); err != nil {
			return Result{}, err
		}
	}
	if err := fileutil.MoveFile(stagePath, req.OutputPath); err != nil {
		return Result{}, services.Wrap(services.ErrTransient, "compose", "concat", "promote composition", err)
	}

	result := Result{VideoPath: req.OutputPath, Duration: total, Copied: copied}
	if req.ExtractAudio {
		result.AudioPath = c.extractAudio(ctx, req.OutputPath)
	}
	return result, nil
}

// clipsCompatible samples up to the first three clips and requires matching
// codec, pixel format, dimensions, and frame rate before trusting stream copy.
func (c *Composer) clipsCompatible(ctx context.Context, clips []Clip) bool {
	sample := clips
	if len(sample) > 3 {
		sample = sample[:3]
	}
	var reference ffprobe.Stream
	for i, clip := range sample {
		probe, err := ffprobe.Inspect(ctx, c.runner, c.ffprobe, clip.Path)
		if err != nil {
			return false
		}
		video, ok := probe.FirstVideoStream()
		if !ok {
			return false
		}
		if i == 0 {
			reference = video
			continue
		}
		if video.CodecName != reference.CodecName ||
			video.PixFmt != reference.PixFmt ||
			video.Width != reference.Width ||
			video.Height != reference.Height ||
			video.RFrameRate != reference.RFrameRate {
			return false
		}
	}
	return true
}

func (c *Composer) concatCopy(ctx context.Context, listPath, outPath string, req ComposeRequest, total float64) error {
	args := []string{
		"-y",
		"-f", "concat", "-safe", "0", "-i", listPath,
		"-c", "copy",
		"-movflags", "+faststart",
		"-progress", "pipe:1", "-nostats",
		outPath,
	}
	return c.runWithProgress(ctx, args, req.OnProgress, total)
}

func (c *Composer) concatEncode(ctx context.Context, listPath, outPath string, req ComposeRequest, total float64) error {
	encoder := c.selectEncoder(ctx)
	c.logger.Info("re-encoding composition", logging.String("encoder", encoder.Name))

	args := []string{
		"-y",
		"-f", "concat", "-safe", "0", "-i", listPath,
		"-c:v", encoder.Name,
	}
	args = append(args, encoder.Args...)
	args = append(args,
		"-b:v", req.Preset.VideoBitrate,
		"-r", strconv.Itoa(req.Preset.FPS),
		"-s", fmt.Sprintf("%dx%d", req.Preset.Width, req.Preset.Height),
		"-pix_fmt", "yuv420p",
		"-c:a", clipAudioCodec, "-b:a", clipAudioBitrate,
		"-movflags", "+faststart",
		"-progress", "pipe:1", "-nostats",
		outPath,
	)
	if err := c.runWithProgress(ctx, args, req.OnProgress, total); err != nil {
		return services.Wrap(services.ErrExternalTool, "compose", "concat", "re-encode composition", err)
	}
	return nil
}

func (c *Composer) runWithProgress(ctx context.Context, args []string, onProgress func(current, total float64), total float64) error {
	return c.runner.RunStream(ctx, c.ffmpeg, args, func(line string) {
		if onProgress == nil {
			return
		}
		if seconds, ok := parseProgressLine(line); ok {
			if seconds > total && total > 0 {
				seconds = total
			}
			onProgress(seconds, total)
		}
	})
}

// parseProgressLine extracts elapsed output time from `-progress pipe:1`
// key=value lines.
func parseProgressLine(line string) (float64, bool) {
	key, value, found := strings.Cut(strings.TrimSpace(line), "=")
	if !found {
		return 0, false
	}
	var divisor float64
	switch key {
	case "out_time_ms", "out_time_us":
		// Both keys carry microseconds in current ffmpeg builds.
		divisor = 1e6
	default:
		return 0, false
	}
	raw, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || raw < 0 {
		return 0, false
	}
	return raw / divisor, true
}

// extractAudio writes the podcast mp3 next to the video. Failure is logged
// and swallowed: the video is the deliverable.
func (c *Composer) extractAudio(ctx context.Context, videoPath string) string {
	audioPath := strings.TrimSuffix(videoPath, filepath.Ext(videoPath)) + ".mp3"
	args := []string{
		"-y", "-i", videoPath,
		"-vn",
		"-c:a", "libmp3lame", "-b:a", "256k", "-ar", "44100", "-ac", "2",
		audioPath,
	}
	if _, err := c.runner.Run(ctx, c.ffmpeg, args...); err != nil {
		c.logger.Warn("audio extraction failed", logging.Error(err))
		return ""
	}
	return audioPath
}

func writeConcatList(clips []Clip) (string, error) {
	file, err := os.CreateTemp("", "vibecast-concat-*.txt")
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "compose", "concat", "create list file", err)
	}
	defer file.Close()

	for _, clip := range clips {
		absolute, err := filepath.Abs(clip.Path)
		if err != nil {
			os.Remove(file.Name())
			return "", services.Wrap(services.ErrTransient, "compose", "concat", "resolve clip path", err)
		}
		escaped := strings.ReplaceAll(absolute, "'", `'\''`)
		if _, err := fmt.Fprintf(file, "file '%s'\n", escaped); err != nil {
			os.Remove(file.Name())
			return "", services.Wrap(services.ErrTransient, "compose", "concat", "write list file", err)
		}
	}
	return file.Name(), nil
}
