package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"sprocket/internal/config"
	"sprocket/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)

	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())

	configPath := filepath.Join(homeDir, ".config", "sprocket", "config.toml")
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{cfg: cfg, configPath: configPath, baseDir: base}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(`[paths]
output_dir = %q
log_dir = %q

[inputs]
url_file = %q
timestamp_file = %q

[fetch]
binary = %q
concurrency = %d
retry_attempts = %d
timeout_seconds = %d

[clip]
binary = %q
probe_binary = %q

[logging]
level = %q
format = %q

[notifications]
ntfy_topic = %q
`,
		cfg.Paths.OutputDir,
		cfg.Paths.LogDir,
		cfg.Inputs.URLFile,
		cfg.Inputs.TimestampFile,
		cfg.Fetch.Binary,
		cfg.Fetch.Concurrency,
		cfg.Fetch.RetryAttempts,
		cfg.Fetch.TimeoutSeconds,
		cfg.Clip.Binary,
		cfg.Clip.ProbeBinary,
		cfg.Logging.Level,
		cfg.Logging.Format,
		cfg.Notifications.NtfyTopic,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
