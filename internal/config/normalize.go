package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeInputs(); err != nil {
		return err
	}
	c.normalizeFetch()
	c.normalizeClip()
	c.normalizeLogging()
	c.normalizeNotifications()
	return nil
}

func (c *Config) normalizePaths() error {
	if value, ok := os.LookupEnv("SPROCKET_OUTPUT_DIR"); ok && strings.TrimSpace(value) != "" {
		c.Paths.OutputDir = value
	}
	var err error
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.MinFreeGiB < 0 {
		c.Paths.MinFreeGiB = 0
	}
	return nil
}

func (c *Config) normalizeInputs() error {
	if strings.TrimSpace(c.Inputs.URLFile) == "" {
		c.Inputs.URLFile = defaultURLFile
	}
	if strings.TrimSpace(c.Inputs.TimestampFile) == "" {
		c.Inputs.TimestampFile = defaultTimestampFile
	}
	var err error
	if c.Inputs.URLFile, err = expandPath(c.Inputs.URLFile); err != nil {
		return fmt.Errorf("inputs.url_file: %w", err)
	}
	if c.Inputs.TimestampFile, err = expandPath(c.Inputs.TimestampFile); err != nil {
		return fmt.Errorf("inputs.timestamp_file: %w", err)
	}
	return nil
}

func (c *Config) normalizeFetch() {
	if strings.TrimSpace(c.Fetch.Binary) == "" {
		c.Fetch.Binary = defaultFetchBinary
	}
	if c.Fetch.Concurrency <= 0 {
		c.Fetch.Concurrency = defaultFetchConcurrency
	}
	if c.Fetch.RetryAttempts < 0 {
		c.Fetch.RetryAttempts = defaultRetryAttempts
	}
	if c.Fetch.RetryDelaySeconds <= 0 {
		c.Fetch.RetryDelaySeconds = defaultRetryDelaySeconds
	}
	if c.Fetch.TimeoutSeconds < 0 {
		c.Fetch.TimeoutSeconds = 0
	}
}

func (c *Config) normalizeClip() {
	if strings.TrimSpace(c.Clip.Binary) == "" {
		c.Clip.Binary = defaultClipBinary
	}
	if strings.TrimSpace(c.Clip.ProbeBinary) == "" {
		c.Clip.ProbeBinary = defaultProbeBinary
	}
	if strings.TrimSpace(c.Clip.AudioBitrate) == "" {
		c.Clip.AudioBitrate = defaultAudioBitrate
	}
}

func (c *Config) normalizeLogging() {
	if strings.TrimSpace(c.Logging.Level) == "" {
		c.Logging.Level = defaultLogLevel
	}
	if strings.TrimSpace(c.Logging.Format) == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
}
