package config

import (
	"errors"
	"fmt"
)

const maxFetchConcurrency = 32

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateFetch(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.OutputDir == "" {
		return errors.New("paths.output_dir must be set")
	}
	return nil
}

func (c *Config) validateFetch() error {
	if c.Fetch.Concurrency < 1 || c.Fetch.Concurrency > maxFetchConcurrency {
		return fmt.Errorf("fetch.concurrency must be between 1 and %d", maxFetchConcurrency)
	}
	if c.Fetch.RetryAttempts > 10 {
		return errors.New("fetch.retry_attempts must be at most 10")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "auto", "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	return nil
}
