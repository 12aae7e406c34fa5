// Package config loads the YAML file read by midirack hosts.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/leandrodaf/midirack/sdk/backplane"
	"github.com/leandrodaf/midirack/sdk/contracts"
	"gopkg.in/yaml.v3"
)

var ErrInvalidConfig = errors.New("invalid config")

// Config describes one host: which device to capture, how to filter it and
// where logs and metrics go.
//
//	device: 0
//	channel: omni        # or 1..16
//	discriminant_key: type
//	buffer: 100
//	log:
//	  level: info
//	  file: /var/log/midirack.log
//	metrics:
//	  addr: ":9108"
type Config struct {
	Device          int                     `yaml:"device"`
	Channel         contracts.ChannelFilter `yaml:"channel"`
	DiscriminantKey string                  `yaml:"discriminant_key"`
	Buffer          int                     `yaml:"buffer"`
	Log             LogConfig               `yaml:"log"`
	Metrics         MetricsConfig           `yaml:"metrics"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

type MetricsConfig struct {
	// Addr is the listen address of the /metrics endpoint. Empty disables it.
	Addr string `yaml:"addr"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Device:          0,
		Channel:         contracts.Omni,
		DiscriminantKey: backplane.DefaultDiscriminantKey,
		Buffer:          100,
		Log:             LogConfig{Level: contracts.InfoLevel.String()},
	}
}

// Load reads path. A missing file yields Default.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes data over Default and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// Save writes cfg to path as YAML.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.DiscriminantKey == "" {
		c.DiscriminantKey = backplane.DefaultDiscriminantKey
	}
	if c.Buffer == 0 {
		c.Buffer = Default().Buffer
	}
	if c.Log.Level == "" {
		c.Log.Level = contracts.InfoLevel.String()
	}
}

func (c *Config) Validate() error {
	if c.Device < 0 {
		return fmt.Errorf("%w: device must not be negative, got %d", ErrInvalidConfig, c.Device)
	}
	if !c.Channel.Valid() {
		return fmt.Errorf("%w: channel: %w", ErrInvalidConfig, contracts.ErrInvalidChannel)
	}
	if c.Buffer < 0 {
		return fmt.Errorf("%w: buffer must not be negative, got %d", ErrInvalidConfig, c.Buffer)
	}
	if _, err := contracts.ParseLogLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: log.level: %w", ErrInvalidConfig, err)
	}
	return nil
}

// LogLevel returns the parsed log level. Invalid levels fall back to Info.
func (c *Config) LogLevel() contracts.LogLevel {
	level, err := contracts.ParseLogLevel(c.Log.Level)
	if err != nil {
		return contracts.InfoLevel
	}
	return level
}

// Options converts the config into client options.
func (c *Config) Options() []contracts.Option {
	opts := []contracts.Option{
		contracts.WithChannel(c.Channel),
		contracts.WithBufferSize(c.Buffer),
		contracts.WithLogLevel(c.LogLevel()),
	}
	if c.Log.File != "" {
		opts = append(opts, contracts.WithLogFile(c.Log.File))
	}
	return opts
}
