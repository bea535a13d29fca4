// Package config holds the YAML configuration shared by the command-line
// tools.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Recording holds the parameters of newly created recordings.
type Recording struct {
	Channels   uint32  `yaml:"channels"`
	BlockSize  uint32  `yaml:"block-size"`
	SampleRate float32 `yaml:"sample-rate"`
	SampleType string  `yaml:"sample-type"`
	Gain       float32 `yaml:"gain"`
	Offset     float32 `yaml:"offset"`
	Room       string  `yaml:"room"`
	Array      string  `yaml:"array"`
}

// Follow configures the live reader.
type Follow struct {
	PollInterval time.Duration `yaml:"poll-interval"`
	MetricsAddr  string        `yaml:"metrics-addr"`
}

// Simulate configures the synthetic writer.
type Simulate struct {
	FeedBlock    uint32        `yaml:"feed-block"`
	FeedInterval time.Duration `yaml:"feed-interval"`
	Duration     time.Duration `yaml:"duration"`
	Amplitude    float64       `yaml:"amplitude"`
}

type Config struct {
	LogLevel  zapcore.Level `yaml:"log-level"`
	Recording Recording     `yaml:"recording"`
	Follow    Follow        `yaml:"follow"`
	Simulate  Simulate      `yaml:"simulate"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		LogLevel: zapcore.InfoLevel,
		Recording: Recording{
			Channels:   64,
			BlockSize:  20000,
			SampleRate: 10000,
			SampleType: "int16",
			Gain:       1,
			Offset:     0,
			Room:       "recorded in d239",
			Array:      "hexagonal",
		},
		Follow: Follow{
			PollInterval: 250 * time.Millisecond,
		},
		Simulate: Simulate{
			FeedBlock:    2000,
			FeedInterval: 200 * time.Millisecond,
			Duration:     10 * time.Second,
			Amplitude:    500,
		},
	}
}

// NewConfigFromFile decodes the file at path on top of the defaults.
func NewConfigFromFile(path string) (*Config, error) {
	if err := ValidateConfigPath(path); err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return NewConfigFromStr(raw)
}

// NewConfigFromStr decodes raw YAML on top of the defaults.
func NewConfigFromStr(raw []byte) (*Config, error) {
	cfg := Default()
	d := yaml.NewDecoder(bytes.NewReader(raw))
	d.KnownFields(true)
	if err := d.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	r := c.Recording
	if r.Channels == 0 {
		return fmt.Errorf("recording.channels must be positive")
	}
	if r.BlockSize == 0 {
		return fmt.Errorf("recording.block-size must be positive")
	}
	if r.SampleRate <= 0 {
		return fmt.Errorf("recording.sample-rate must be positive")
	}
	switch r.SampleType {
	case "int8", "int16", "int32", "uint8":
	default:
		return fmt.Errorf("recording.sample-type %q is not one of int8, int16, int32, uint8", r.SampleType)
	}
	if c.Follow.PollInterval <= 0 {
		return fmt.Errorf("follow.poll-interval must be positive")
	}
	if c.Simulate.FeedBlock == 0 || c.Simulate.FeedInterval <= 0 {
		return fmt.Errorf("simulate.feed-block and simulate.feed-interval must be positive")
	}
	return nil
}

// NewLogger builds a production logger at the configured level and installs
// it as the global logger.
func (c *Config) NewLogger() (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(c.LogLevel)
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	log, err := zc.Build()
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(log)
	return log, nil
}

// ValidateConfigPath just makes sure, that the path provided is a file,
// that can be read
func ValidateConfigPath(path string) error {
	s, err := os.Stat(path)
	if err != nil {
		return err
	}
	if s.IsDir() {
		return fmt.Errorf("'%s' is a directory, not a normal file", path)
	}
	return nil
}
