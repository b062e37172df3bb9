package config

import (
	"fmt"
	"strings"

	"vibecast/internal/services"
)

var knownQualities = map[string]struct{}{
	"fast":     {},
	"balanced": {},
	"maximum":  {},
}

var knownFailurePolicies = map[string]struct{}{
	"drop":        {},
	"placeholder": {},
	"fail":        {},
}

// Validate checks the configuration for internal consistency. It does not
// verify that external tools exist; `vibecast deps` does that on demand.
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.Paths.CacheDir) == "" {
		problems = append(problems, "paths.cache_dir must be set")
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		problems = append(problems, "paths.output_dir must be set")
	}
	if strings.TrimSpace(c.Paths.APIBind) == "" {
		problems = append(problems, "paths.api_bind must be set")
	}

	quality := strings.ToLower(strings.TrimSpace(c.Video.Quality))
	if _, ok := knownQualities[quality]; !ok {
		problems = append(problems, fmt.Sprintf("video.quality %q is not one of fast, balanced, maximum", c.Video.Quality))
	} else {
		c.Video.Quality = quality
	}

	policy := strings.ToLower(strings.TrimSpace(c.Speech.FailurePolicy))
	if _, ok := knownFailurePolicies[policy]; !ok {
		problems = append(problems, fmt.Sprintf("speech.failure_policy %q is not one of drop, placeholder, fail", c.Speech.FailurePolicy))
	} else {
		c.Speech.FailurePolicy = policy
	}

	if c.Render.MarginPx < 0 {
		problems = append(problems, "render.margin_px must not be negative")
	}
	if c.Render.SettleMillis < 0 {
		problems = append(problems, "render.settle_millis must not be negative")
	}
	if c.Render.BufferMillis < 0 {
		problems = append(problems, "render.buffer_millis must not be negative")
	}

	switch format := strings.ToLower(strings.TrimSpace(c.Logging.Format)); format {
	case "console", "json":
		c.Logging.Format = format
	default:
		problems = append(problems, fmt.Sprintf("logging.format %q is not one of console, json", c.Logging.Format))
	}

	if len(problems) > 0 {
		return services.Wrap(services.ErrConfiguration, "config", "validate", strings.Join(problems, "; "), nil)
	}
	return nil
}
