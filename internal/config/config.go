package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	CacheDir  string `toml:"cache_dir"`
	OutputDir string `toml:"output_dir"`
	LogDir    string `toml:"log_dir"`
	APIBind   string `toml:"api_bind"`
}

// Tools names the external binaries the pipeline shells out to.
type Tools struct {
	FFmpeg   string `toml:"ffmpeg"`
	FFprobe  string `toml:"ffprobe"`
	Mermaid  string `toml:"mermaid"`
	Chromium string `toml:"chromium"`
}

// Cache controls content-addressed asset cache behavior.
type Cache struct {
	// Exclusive serializes concurrent producers for the same cache key with a
	// per-key advisory file lock. Off by default: the duplicate-render race is
	// benign because identical inputs produce identical bytes.
	Exclusive bool `toml:"exclusive"`
}

// Render contains visual rendering settings.
type Render struct {
	Concurrency  int  `toml:"concurrency"`
	MarginPx     int  `toml:"margin_px"`
	SettleMillis int  `toml:"settle_millis"`
	BufferMillis int  `toml:"buffer_millis"`
	Animated     bool `toml:"animated"`
}

// Speech contains voice synthesis settings.
type Speech struct {
	APIKey        string `toml:"api_key"`
	BaseURL       string `toml:"base_url"`
	Model         string `toml:"model"`
	OutputFormat  string `toml:"output_format"`
	Language      string `toml:"language"`
	Concurrency   int    `toml:"concurrency"`
	BatchSize     int    `toml:"batch_size"`
	FailurePolicy string `toml:"failure_policy"`
	Speaker1Voice string `toml:"speaker_1_voice"`
	Speaker2Voice string `toml:"speaker_2_voice"`
	TimeoutSecs   int    `toml:"timeout_seconds"`
}

// Video contains composition settings.
type Video struct {
	Quality          string `toml:"quality"`
	SpeakerIndicator bool   `toml:"speaker_indicator"`
	AudioPodcast     bool   `toml:"audio_podcast"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for vibecast.
//
// Configuration sections by subsystem:
//   - Paths: cache/output/log directories and API bind address
//   - Tools: external binary names (ffmpeg, ffprobe, mermaid-cli, chromium)
//   - Cache: asset cache locking policy
//   - Render: visual rendering concurrency and canvas margins
//   - Speech: voice service connection, voices, and failure policy
//   - Video: quality preset and composition toggles
//   - Logging: log format and level
type Config struct {
	Paths   Paths   `toml:"paths"`
	Tools   Tools   `toml:"tools"`
	Cache   Cache   `toml:"cache"`
	Render  Render  `toml:"render"`
	Speech  Speech  `toml:"speech"`
	Video   Video   `toml:"video"`
	Logging Logging `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/vibecast/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("vibecast.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the cache, output, and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.CacheDir, c.Paths.OutputDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
