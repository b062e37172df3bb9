package config

// Default returns the built-in configuration. Values mirror the embedded
// sample_config.toml.
func Default() Config {
	return Config{
		Paths: Paths{
			CacheDir:  "~/.cache/vibecast",
			OutputDir: "~/vibecast/output",
			LogDir:    "~/.local/state/vibecast/logs",
			APIBind:   "127.0.0.1:8095",
		},
		Tools: Tools{
			FFmpeg:   "ffmpeg",
			FFprobe:  "ffprobe",
			Mermaid:  "mmdc",
			Chromium: "chromium",
		},
		Cache: Cache{
			Exclusive: false,
		},
		Render: Render{
			Concurrency:  5,
			MarginPx:     100,
			SettleMillis: 400,
			BufferMillis: 600,
			Animated:     false,
		},
		Speech: Speech{
			BaseURL:       "https://api.elevenlabs.io",
			Model:         "eleven_multilingual_v2",
			OutputFormat:  "mp3_44100_128",
			Concurrency:   5,
			BatchSize:     5,
			FailurePolicy: "drop",
			TimeoutSecs:   120,
		},
		Video: Video{
			Quality:          "balanced",
			SpeakerIndicator: true,
			AudioPodcast:     true,
		},
		Logging: Logging{
			Format: "console",
			Level:  "info",
		},
	}
}

func (c *Config) normalize() error {
	paths := []struct {
		name  string
		value *string
	}{
		{"paths.cache_dir", &c.Paths.CacheDir},
		{"paths.output_dir", &c.Paths.OutputDir},
		{"paths.log_dir", &c.Paths.LogDir},
	}
	for _, entry := range paths {
		expanded, err := expandPath(*entry.value)
		if err != nil {
			return err
		}
		*entry.value = expanded
	}

	if c.Render.Concurrency <= 0 {
		c.Render.Concurrency = 5
	}
	if c.Speech.Concurrency <= 0 {
		c.Speech.Concurrency = 5
	}
	if c.Speech.BatchSize <= 0 {
		c.Speech.BatchSize = 5
	}
	if c.Speech.TimeoutSecs <= 0 {
		c.Speech.TimeoutSecs = 120
	}
	return nil
}
