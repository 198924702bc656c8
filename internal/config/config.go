package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Package config loads bot settings from an optional config.yaml plus the
// environment. The bot token comes strictly from the environment; the process
// refuses to start without it.

// Defaults applied when config.yaml is absent or partial.
const (
	DefaultOutputDir      = "downloads"
	DefaultMaxSizeMB      = 50
	DefaultPollTimeoutSec = 10

	// TokenEnv is the environment variable holding the Telegram bot token.
	TokenEnv = "BOT_TOKEN"
)

// Config holds all bot settings.
type Config struct {
	Telegram struct {
		Token          string `yaml:"-"`
		PollTimeoutSec int    `yaml:"poll_timeout_sec"`
	} `yaml:"telegram"`
	Download struct {
		OutputDir string `yaml:"output_dir"`
		MaxSizeMB int    `yaml:"max_size_mb"`
	} `yaml:"download"`
}

// PollTimeout returns the long-poll timeout as a duration.
func (c *Config) PollTimeout() time.Duration {
	return time.Duration(c.Telegram.PollTimeoutSec) * time.Second
}

// MaxSizeBytes returns the upload size limit in bytes.
func (c *Config) MaxSizeBytes() int64 {
	return int64(c.Download.MaxSizeMB) * 1024 * 1024
}

// Load reads the yaml file at path (missing file is fine, defaults apply),
// loads a .env file if present, and requires the bot token in the
// environment.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// run on defaults
	default:
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	// .env is a convenience for local runs; absence is not an error.
	_ = godotenv.Load()

	cfg.Telegram.Token = os.Getenv(TokenEnv)
	if cfg.Telegram.Token == "" {
		return nil, fmt.Errorf("%s not set in environment", TokenEnv)
	}

	if cfg.Telegram.PollTimeoutSec <= 0 {
		cfg.Telegram.PollTimeoutSec = DefaultPollTimeoutSec
	}
	if cfg.Download.OutputDir == "" {
		cfg.Download.OutputDir = DefaultOutputDir
	}
	if cfg.Download.MaxSizeMB <= 0 {
		cfg.Download.MaxSizeMB = DefaultMaxSizeMB
	}

	return &cfg, nil
}
