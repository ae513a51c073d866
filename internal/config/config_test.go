package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"sprocket/internal/config"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	t.Setenv("SPROCKET_OUTPUT_DIR", "")
	missing := filepath.Join(t.TempDir(), "config.toml")

	cfg, path, exists, err := config.Load(missing)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if exists {
		t.Fatal("expected exists=false for missing file")
	}
	if path != missing {
		t.Fatalf("unexpected resolved path: %q", path)
	}
	if cfg.Fetch.Concurrency != 2 {
		t.Fatalf("unexpected default concurrency: %d", cfg.Fetch.Concurrency)
	}
	if !cfg.Fetch.ReuseExisting {
		t.Fatal("reuse_existing should default to true")
	}
	if cfg.FetcherBinary() != "yt-dlp" || cfg.TranscoderBinary() != "ffmpeg" || cfg.ProbeBinary() != "ffprobe" {
		t.Fatalf("unexpected default binaries: %q %q %q", cfg.FetcherBinary(), cfg.TranscoderBinary(), cfg.ProbeBinary())
	}
}

func TestLoadParsesAndExpands(t *testing.T) {
	t.Setenv("SPROCKET_OUTPUT_DIR", "")
	home := t.TempDir()
	t.Setenv("HOME", home)

	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body := `
[paths]
output_dir = "~/clips"

[fetch]
concurrency = 4
retry_attempts = 1

[logging]
level = "DEBUG"
format = "json"
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists {
		t.Fatal("expected exists=true")
	}
	if cfg.Paths.OutputDir != filepath.Join(home, "clips") {
		t.Fatalf("tilde not expanded: %q", cfg.Paths.OutputDir)
	}
	if cfg.Fetch.Concurrency != 4 || cfg.Fetch.RetryAttempts != 1 {
		t.Fatalf("fetch overrides not applied: %+v", cfg.Fetch)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("level should be lowercased: %q", cfg.Logging.Level)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"concurrency too high", "[fetch]\nconcurrency = 99\n", "fetch.concurrency"},
		{"retries too high", "[fetch]\nretry_attempts = 50\n", "fetch.retry_attempts"},
		{"bad level", "[logging]\nlevel = \"verbose\"\n", "logging.level"},
		{"bad format", "[logging]\nformat = \"xml\"\n", "logging.format"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(tc.body), 0o644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			_, _, _, err := config.Load(path)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected %q error, got %v", tc.want, err)
			}
		})
	}
}

func TestEnvOverridesOutputDir(t *testing.T) {
	override := t.TempDir()
	t.Setenv("SPROCKET_OUTPUT_DIR", override)

	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[paths]\noutput_dir = \"/somewhere/else\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Paths.OutputDir != override {
		t.Fatalf("env override not applied: %q", cfg.Paths.OutputDir)
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	t.Setenv("SPROCKET_OUTPUT_DIR", "")
	t.Setenv("HOME", t.TempDir())

	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample: %v", err)
	}
	if !exists {
		t.Fatal("sample file should exist")
	}
	if cfg.Clip.AudioBitrate != "256k" {
		t.Fatalf("unexpected sample bitrate: %q", cfg.Clip.AudioBitrate)
	}
}

func TestEnsureDirectories(t *testing.T) {
	root := t.TempDir()
	cfg := config.Default()
	cfg.Paths.OutputDir = filepath.Join(root, "out")
	cfg.Paths.LogDir = filepath.Join(root, "logs")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	for _, dir := range []string{cfg.Paths.OutputDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Fatalf("directory %q missing: %v", dir, err)
		}
	}
}
