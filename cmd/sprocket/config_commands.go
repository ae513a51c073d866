package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"sprocket/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigInitCommand())
	configCmd.AddCommand(newConfigShowCommand(ctx))
	configCmd.AddCommand(newConfigValidateCommand(ctx))

	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return fmt.Errorf("determine default config path: %w", err)
				}
				target = defaultPath
			} else {
				expanded, err := config.ExpandPath(target)
				if err != nil {
					return fmt.Errorf("resolve config path: %w", err)
				}
				target = expanded
			}

			dir := filepath.Dir(target)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create config directory %q: %w", dir, err)
			}

			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				} else if err != nil && !os.IsNotExist(err) {
					return fmt.Errorf("check config path: %w", err)
				}
			}

			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Edit [inputs] to point at your URL and timestamp lists before running sprocket.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			rows := [][]string{
				{"paths.output_dir", cfg.Paths.OutputDir},
				{"paths.log_dir", cfg.Paths.LogDir},
				{"paths.min_free_gib", strconv.Itoa(cfg.Paths.MinFreeGiB)},
				{"inputs.url_file", cfg.Inputs.URLFile},
				{"inputs.timestamp_file", cfg.Inputs.TimestampFile},
				{"fetch.binary", cfg.FetcherBinary()},
				{"fetch.concurrency", strconv.Itoa(cfg.Fetch.Concurrency)},
				{"fetch.retry_attempts", strconv.Itoa(cfg.Fetch.RetryAttempts)},
				{"fetch.retry_delay_seconds", strconv.Itoa(cfg.Fetch.RetryDelaySeconds)},
				{"fetch.timeout_seconds", strconv.Itoa(cfg.Fetch.TimeoutSeconds)},
				{"fetch.reuse_existing", yesNo(cfg.Fetch.ReuseExisting)},
				{"clip.binary", cfg.TranscoderBinary()},
				{"clip.probe_binary", cfg.ProbeBinary()},
				{"clip.audio_only", yesNo(cfg.Clip.AudioOnly)},
				{"clip.audio_bitrate", cfg.Clip.AudioBitrate},
				{"logging.level", cfg.Logging.Level},
				{"logging.format", cfg.Logging.Format},
				{"notifications.ntfy_topic", cfg.Notifications.NtfyTopic},
				{"notifications.request_timeout", strconv.Itoa(cfg.Notifications.RequestTimeout)},
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Setting", "Value"},
				rows,
				[]columnAlignment{alignLeft, alignLeft},
			))
			return nil
		},
	}
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "validate",
		Short:       "Validate the configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, exists, err := config.Load(ctx.configPath())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("ensure directories: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config path: %s\n", path)
			if !exists {
				fmt.Fprintln(out, "Config file did not exist; defaults were used")
			}
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}
