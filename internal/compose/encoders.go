package compose

import (
	"context"
	"strings"
)

// Encoder is one candidate for the re-encode path. Candidates are ordered by
// preference: hardware encoders first, libx264 as the guaranteed fallback.
type Encoder struct {
	Name string
	Args []string
}

var encoderChain = []Encoder{
	{Name: "h264_nvenc", Args: []string{"-preset", "p4", "-rc", "vbr"}},
	{Name: "h264_videotoolbox", Args: []string{"-realtime", "false"}},
	{Name: "h264_qsv", Args: []string{"-preset", "medium"}},
	{Name: "libx264", Args: []string{"-preset", "medium"}},
}

// selectEncoder probes `ffmpeg -encoders` once per process and returns the
// first available candidate.
func (c *Composer) selectEncoder(ctx context.Context) Encoder {
	c.encoderOnce.Do(func() {
		c.encoder = encoderChain[len(encoderChain)-1]
		output, err := c.runner.Run(ctx, c.ffmpeg, "-hide_banner", "-encoders")
		if err != nil {
			return
		}
		listed := string(output)
		for _, candidate := range encoderChain {
			if strings.Contains(listed, " "+candidate.Name+" ") {
				c.encoder = candidate
				return
			}
		}
	})
	return c.encoder
}
