package core

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the full application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Stream    StreamConfig    `yaml:"stream"`
	FFmpeg    FFmpegConfig    `yaml:"ffmpeg"`
	Database  DatabaseConfig  `yaml:"database"`
	Snapshots SnapshotsConfig `yaml:"snapshots"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type ServerConfig struct {
	HTTPPort   int  `yaml:"http_port"`
	Production bool `yaml:"production"`
}

// StreamConfig carries the defaults applied to every camera stream.
type StreamConfig struct {
	TargetFPS      int    `yaml:"target_fps"`
	MaxFrameWidth  int    `yaml:"max_frame_width"`
	JPEGQuality    int    `yaml:"jpeg_quality"`
	ReconnectDelay int    `yaml:"reconnect_delay"`
	MaxAttempts    int    `yaml:"max_attempts"`
	Quality        string `yaml:"quality"`
}

type FFmpegConfig struct {
	Binary       string `yaml:"binary"`
	ProbeTimeout int    `yaml:"probe_timeout"`
	OpenTimeout  int    `yaml:"open_timeout"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type SnapshotsConfig struct {
	Dir string `yaml:"dir"`
}

type LoggingConfig struct {
	Level      string `yaml:"level"`
	Output     string `yaml:"output"`
	FilePath   string `yaml:"file_path"`
	MaxSize    int    `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"`
}

// ReconnectDelayDuration returns the reconnect delay as a duration.
func (c *StreamConfig) ReconnectDelayDuration() time.Duration {
	return time.Duration(c.ReconnectDelay) * time.Second
}

// LoadConfig reads and validates a YAML configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Server.HTTPPort == 0 {
		c.Server.HTTPPort = 8080
	}
	if c.Stream.TargetFPS == 0 {
		c.Stream.TargetFPS = 15
	}
	if c.Stream.MaxFrameWidth == 0 {
		c.Stream.MaxFrameWidth = 1280
	}
	if c.Stream.JPEGQuality == 0 {
		c.Stream.JPEGQuality = 80
	}
	if c.Stream.ReconnectDelay == 0 {
		c.Stream.ReconnectDelay = 3
	}
	if c.Stream.Quality == "" {
		c.Stream.Quality = "sub"
	}
	if c.FFmpeg.Binary == "" {
		c.FFmpeg.Binary = "ffmpeg"
	}
	if c.Database.Path == "" {
		c.Database.Path = "data/cameras.db"
	}
	if c.Snapshots.Dir == "" {
		c.Snapshots.Dir = "data/snapshots"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Output == "" {
		c.Logging.Output = "console"
	}
}

// Validate checks the configuration values.
func (c *Config) Validate() error {
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("invalid http_port: %d", c.Server.HTTPPort)
	}

	if c.Stream.TargetFPS <= 0 || c.Stream.TargetFPS > 60 {
		return fmt.Errorf("invalid target_fps: %d", c.Stream.TargetFPS)
	}

	if c.Stream.MaxFrameWidth <= 0 {
		return fmt.Errorf("max_frame_width must be positive")
	}

	if c.Stream.JPEGQuality < 1 || c.Stream.JPEGQuality > 100 {
		return fmt.Errorf("invalid jpeg_quality: %d", c.Stream.JPEGQuality)
	}

	if c.Stream.ReconnectDelay <= 0 {
		return fmt.Errorf("reconnect_delay must be positive")
	}

	if c.Stream.MaxAttempts < 0 {
		return fmt.Errorf("max_attempts must not be negative")
	}

	if c.Stream.Quality != "main" && c.Stream.Quality != "sub" {
		return fmt.Errorf("invalid quality: %s", c.Stream.Quality)
	}

	return nil
}
