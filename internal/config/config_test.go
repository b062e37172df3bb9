package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	cfg, _, exists, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatal("expected exists=false for missing file")
	}
	if cfg.Video.Quality != "balanced" {
		t.Fatalf("expected default quality balanced, got %q", cfg.Video.Quality)
	}
	if cfg.Speech.Model != "eleven_multilingual_v2" {
		t.Fatalf("unexpected default model %q", cfg.Speech.Model)
	}
	if cfg.Render.Concurrency != 5 || cfg.Speech.BatchSize != 5 {
		t.Fatalf("unexpected default concurrency: render=%d batch=%d", cfg.Render.Concurrency, cfg.Speech.BatchSize)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	contents := `
[video]
quality = "Maximum"

[speech]
failure_policy = "PLACEHOLDER"
concurrency = 2

[logging]
format = "json"
level = "debug"
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists=true")
	}
	if resolved != path {
		t.Fatalf("expected resolved path %q, got %q", path, resolved)
	}
	if cfg.Video.Quality != "maximum" {
		t.Fatalf("expected lowercased quality, got %q", cfg.Video.Quality)
	}
	if cfg.Speech.FailurePolicy != "placeholder" {
		t.Fatalf("expected lowercased failure policy, got %q", cfg.Speech.FailurePolicy)
	}
	if cfg.Speech.Concurrency != 2 {
		t.Fatalf("expected concurrency override 2, got %d", cfg.Speech.Concurrency)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("expected json log format, got %q", cfg.Logging.Format)
	}
}

func TestLoadRejectsUnknownQuality(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[video]\nquality = \"ultra\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	_, _, _, err := Load(path)
	if err == nil {
		t.Fatal("expected validation error for unknown quality")
	}
	if !strings.Contains(err.Error(), "ultra") {
		t.Fatalf("error should name the bad value, got %v", err)
	}
}

func TestLoadRejectsUnknownFailurePolicy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[speech]\nfailure_policy = \"retry\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	_, _, _, err := Load(path)
	if err == nil {
		t.Fatal("expected validation error for unknown failure policy")
	}
}

func TestExpandPathHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home dir: %v", err)
	}
	expanded, err := ExpandPath("~/videos")
	if err != nil {
		t.Fatalf("ExpandPath returned error: %v", err)
	}
	if expanded != filepath.Join(home, "videos") {
		t.Fatalf("expected %q, got %q", filepath.Join(home, "videos"), expanded)
	}
}

func TestEnsureDirectories(t *testing.T) {
	base := t.TempDir()
	cfg := Default()
	cfg.Paths.CacheDir = filepath.Join(base, "cache")
	cfg.Paths.OutputDir = filepath.Join(base, "out")
	cfg.Paths.LogDir = filepath.Join(base, "logs")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories returned error: %v", err)
	}
	for _, dir := range []string{cfg.Paths.CacheDir, cfg.Paths.OutputDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Fatalf("expected directory %q to exist", dir)
		}
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	cfg, _, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load of sample returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected sample file to exist")
	}
	if cfg.Video.Quality != "balanced" {
		t.Fatalf("sample should carry default quality, got %q", cfg.Video.Quality)
	}
}
