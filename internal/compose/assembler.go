package compose

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"path/filepath"

	"vibecast/internal/logging"
	"vibecast/internal/media/ffprobe"
	"vibecast/internal/render"
	"vibecast/internal/services"
	"vibecast/internal/speech"
	"vibecast/internal/tools"
)

// Audio settings shared by every clip so stream-copy concatenation stays an
// option.
const (
	clipAudioCodec   = "aac"
	clipAudioBitrate = "256k"
)

// Tolerance for the clip duration check. Container timestamps round to the
// audio frame size, so exact equality is not achievable at the file level.
const durationTolerance = 0.25

// Clip is one dialogue's timed unit in the final composition.
type Clip struct {
	Index    int
	Path     string
	Duration float64
}

// AssembleRequest pairs one visual asset with one audio track.
type AssembleRequest struct {
	Index      int
	DialogueID string
	Speaker    string
	Visual     render.Asset
	Audio      speech.Track
	Preset     Preset
	OutputDir  string
}

// AssemblerOptions configures an Assembler.
type AssemblerOptions struct {
	Runner           tools.Runner
	Logger           *slog.Logger
	FFmpeg           string
	FFprobe          string
	SpeakerIndicator bool
}

// Assembler builds per-dialogue clips.
type Assembler struct {
	runner           tools.Runner
	logger           *slog.Logger
	ffmpeg           string
	ffprobe          string
	speakerIndicator bool
}

// NewAssembler builds an Assembler, applying defaults for zero values.
func NewAssembler(opts AssemblerOptions) *Assembler {
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
	return &Assembler{
		runner:           opts.Runner,
		logger:           logging.NewComponentLogger(logger, "compose"),
		ffmpeg:           ffmpeg,
		ffprobe:          ffprobeBin,
		speakerIndicator: opts.SpeakerIndicator,
	}
}

// Assemble produces one clip whose duration equals the audio track's. Image
// visuals are held for the whole clip; video visuals are trimmed or looped to
// fit.
func (a *Assembler) Assemble(ctx context.Context, req AssembleRequest) (Clip, error) {
	if req.Audio.Duration <= 0 {
		return Clip{}, services.Wrap(services.ErrValidation, "compose", "assemble",
			fmt.Sprintf("dialogue %s has no audio duration", req.DialogueID), nil)
	}

	outPath := filepath.Join(req.OutputDir, fmt.Sprintf("clip-%04d-%s.mp4", req.Index, req.DialogueID))

	var args []string
	switch req.Visual.Kind {
	case render.AssetImage:
		args = a.imageClipArgs(req, outPath)
	case render.AssetClip:
		args = a.videoClipArgs(req, outPath)
	default:
		return Clip{}, services.Wrap(services.ErrValidation, "compose", "assemble",
			fmt.Sprintf("unknown visual kind %q", req.Visual.Kind), nil)
	}

	if _, err := a.runner.Run(ctx, a.ffmpeg, args...); err != nil {
		return Clip{}, services.Wrap(services.ErrExternalTool, "compose", "assemble",
			fmt.Sprintf("build clip for dialogue %s", req.DialogueID), err)
	}

	if err := a.verifyDuration(ctx, outPath, req.Audio.Duration); err != nil {
		return Clip{}, err
	}

	return Clip{Index: req.Index, Path: outPath, Duration: req.Audio.Duration}, nil
}

func (a *Assembler) imageClipArgs(req AssembleRequest, outPath string) []string {
	args := []string{
		"-y",
		"-loop", "1", "-i", req.Visual.Path,
		"-i", req.Audio.Path,
	}
	if filter := a.indicatorFilter(req.Speaker); filter != "" {
		args = append(args, "-vf", filter)
	}
	args = append(args,
		"-map", "0:v:0", "-map", "1:a:0",
		"-c:v", "libx264", "-preset", "veryfast", "-crf", "23",
		"-pix_fmt", "yuv420p",
		"-r", fmt.Sprintf("%d", req.Preset.FPS),
		"-c:a", clipAudioCodec, "-b:a", clipAudioBitrate,
		"-t", formatSeconds(req.Audio.Duration),
		"-movflags", "+faststart",
		outPath,
	)
	return args
}

func (a *Assembler) videoClipArgs(req AssembleRequest, outPath string) []string {
	args := []string{"-y"}
	// A visual shorter than the audio loops; a longer one is trimmed by -t.
	if req.Visual.Duration > 0 && req.Visual.Duration < req.Audio.Duration {
		args = append(args, "-stream_loop", "-1")
	}
	args = append(args,
		"-i", req.Visual.Path,
		"-i", req.Audio.Path,
		"-map", "0:v:0", "-map", "1:a:0",
		"-c:v", "copy",
		"-c:a", clipAudioCodec, "-b:a", clipAudioBitrate,
		"-t", formatSeconds(req.Audio.Duration),
		"-movflags", "+faststart",
		outPath,
	)
	return args
}

// indicatorFilter labels speaker_1 bottom-left and speaker_2 bottom-right so
// the corner alone identifies the voice.
func (a *Assembler) indicatorFilter(speaker string) string {
	if !a.speakerIndicator || speaker == "" {
		return ""
	}
	label, x := "Speaker 1", "48"
	if speaker == "speaker_2" {
		label, x = "Speaker 2", "w-tw-48"
	}
	return fmt.Sprintf(
		"drawtext=text='%s':x=%s:y=h-96:fontsize=36:fontcolor=0x1a1a2e:box=1:boxcolor=white@0.7:boxborderw=14",
		label, x)
}

func (a *Assembler) verifyDuration(ctx context.Context, path string, want float64) error {
	result, err := ffprobe.Inspect(ctx, a.runner, a.ffprobe, path)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "compose", "assemble", "probe finished clip", err)
	}
	got := result.DurationSeconds()
	if math.Abs(got-want) > durationTolerance {
		return services.Wrap(services.ErrValidation, "compose", "assemble",
			fmt.Sprintf("clip duration %.3fs deviates from audio %.3fs", got, want), nil)
	}
	return nil
}

func formatSeconds(seconds float64) string {
	return fmt.Sprintf("%.3f", seconds)
}
