// Package config loads portalctl settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"time"

	"github.com/joho/godotenv"

	"portalctl/src/logging"
	"portalctl/src/transfer"
)

type Config struct {
	// Control server
	Server  string
	Agent   string
	Timeout time.Duration

	// Logging
	LogLevel  string
	LogFormat string
	LogFile   string

	// Downloads land in DownloadDir unless an SFTP host is configured.
	DownloadDir  string
	SFTPAddr     string
	SFTPUser     string
	SFTPPassword string
	SFTPDir      string
}

// Load reads an optional .env file at envFile, then the environment.
// Variables already set in the environment win over the file.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	cfg := &Config{
		Server:       envOr("PORTAL_SERVER", "http://localhost:8080"),
		Agent:        envOr("PORTAL_AGENT", ""),
		Timeout:      envDuration("PORTAL_TIMEOUT", 30*time.Second),
		LogLevel:     envOr("PORTAL_LOG_LEVEL", "info"),
		LogFormat:    envOr("PORTAL_LOG_FORMAT", "console"),
		LogFile:      envOr("PORTAL_LOG_FILE", ""),
		DownloadDir:  envOr("PORTAL_DOWNLOAD_DIR", "."),
		SFTPAddr:     envOr("PORTAL_SFTP_ADDR", ""),
		SFTPUser:     envOr("PORTAL_SFTP_USER", ""),
		SFTPPassword: envOr("PORTAL_SFTP_PASSWORD", ""),
		SFTPDir:      envOr("PORTAL_SFTP_DIR", "."),
	}
	return cfg, cfg.Validate()
}

func (c *Config) Validate() error {
	u, err := url.Parse(c.Server)
	if err != nil {
		return fmt.Errorf("PORTAL_SERVER: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("PORTAL_SERVER must be an http or https url, got %q", c.Server)
	}
	if u.Host == "" {
		return fmt.Errorf("PORTAL_SERVER %q has no host", c.Server)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("PORTAL_TIMEOUT must be positive")
	}
	if c.SFTPAddr != "" && c.SFTPUser == "" {
		return fmt.Errorf("PORTAL_SFTP_USER is required with PORTAL_SFTP_ADDR")
	}
	return nil
}

// RequireAgent fails when no agent id has been chosen.
func (c *Config) RequireAgent() error {
	if c.Agent == "" {
		return fmt.Errorf("no agent selected: set PORTAL_AGENT or pass --agent")
	}
	return nil
}

// Logging returns the logger settings. An empty path means stderr.
func (c *Config) Logging(path string) logging.Config {
	if path == "" {
		path = "stderr"
	}
	return logging.Config{Level: c.LogLevel, Format: c.LogFormat, OutputPath: path}
}

func (c *Config) UseSFTP() bool { return c.SFTPAddr != "" }

func (c *Config) SFTP() transfer.SFTPConfig {
	return transfer.SFTPConfig{
		Addr:     c.SFTPAddr,
		User:     c.SFTPUser,
		Password: c.SFTPPassword,
		Dir:      c.SFTPDir,
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
