package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths holds filesystem locations used by the pipeline.
type Paths struct {
	// OutputDir is the root under which per-job directories are created.
	OutputDir string `toml:"output_dir"`
	// LogDir receives the per-run log file. Empty disables file logging.
	LogDir string `toml:"log_dir"`
	// MinFreeGiB aborts a run when the output filesystem has less free
	// space than this. Zero disables the check.
	MinFreeGiB int `toml:"min_free_gib"`
}

// Inputs names the two flat input files.
type Inputs struct {
	URLFile       string `toml:"url_file"`
	TimestampFile string `toml:"timestamp_file"`
}

// Fetch controls the downloader and its retry policy.
type Fetch struct {
	Binary            string `toml:"binary"`
	Concurrency       int    `toml:"concurrency"`
	RetryAttempts     int    `toml:"retry_attempts"`
	RetryDelaySeconds int    `toml:"retry_delay_seconds"`
	TimeoutSeconds    int    `toml:"timeout_seconds"`
	ReuseExisting     bool   `toml:"reuse_existing"`
}

// Clip controls the transcoder invocations.
type Clip struct {
	Binary       string `toml:"binary"`
	ProbeBinary  string `toml:"probe_binary"`
	AudioOnly    bool   `toml:"audio_only"`
	AudioBitrate string `toml:"audio_bitrate"`
}

// Logging selects log verbosity and rendering.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Notifications configures the optional ntfy push channel.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Config is the root configuration document.
type Config struct {
	Paths         Paths         `toml:"paths"`
	Inputs        Inputs        `toml:"inputs"`
	Fetch         Fetch         `toml:"fetch"`
	Clip          Clip          `toml:"clip"`
	Logging       Logging       `toml:"logging"`
	Notifications Notifications `toml:"notifications"`
}

// DefaultConfigPath returns the expanded default config file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/sprocket/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. When no file exists at
// the resolved location, defaults are returned with exists set to false.
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
		if _, err := os.Stat(expanded); err != nil {
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
	if _, err := os.Stat(defaultPath); err == nil {
		return defaultPath, true, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", false, fmt.Errorf("stat config: %w", err)
	}
	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the pipeline writes into.
func (c *Config) EnsureDirectories() error {
	if err := os.MkdirAll(c.Paths.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", c.Paths.OutputDir, err)
	}
	if strings.TrimSpace(c.Paths.LogDir) != "" {
		if err := os.MkdirAll(c.Paths.LogDir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", c.Paths.LogDir, err)
		}
	}
	return nil
}

// JournalPath returns the location of the run journal database.
func (c *Config) JournalPath() string {
	return filepath.Join(c.Paths.OutputDir, "sprocket.db")
}

// FetcherBinary returns the downloader executable name.
func (c *Config) FetcherBinary() string {
	if b := strings.TrimSpace(c.Fetch.Binary); b != "" {
		return b
	}
	return defaultFetchBinary
}

// TranscoderBinary returns the transcoder executable name.
func (c *Config) TranscoderBinary() string {
	if b := strings.TrimSpace(c.Clip.Binary); b != "" {
		return b
	}
	return defaultClipBinary
}

// ProbeBinary returns the media inspection executable name.
func (c *Config) ProbeBinary() string {
	if b := strings.TrimSpace(c.Clip.ProbeBinary); b != "" {
		return b
	}
	return defaultProbeBinary
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
