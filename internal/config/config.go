// Package config loads invstore settings.
//
// Sources are layered, later ones winning: built-in defaults, an optional
// YAML file, INVSTORE_* environment variables, and finally command-line
// flags applied by the caller. Validate checks the merged result against
// an embedded CUE schema.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of every environment override, e.g. INVSTORE_STORE_DIR.
const EnvPrefix = "INVSTORE"

// Defaults.
const (
	DefaultStoreName      = "dbInvoices"
	DefaultStoreVersion   = 1
	DefaultBlockedTimeout = 5 * time.Second
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "text"
	DefaultLogMaxSizeMB   = 10
	DefaultLogMaxBackups  = 5
)

// Config is the merged invstore configuration.
type Config struct {
	Store StoreConfig `yaml:"store" envconfig:"STORE"`
	Log   LogConfig   `yaml:"log" envconfig:"LOG"`
}

// StoreConfig selects the invoice store to open.
type StoreConfig struct {
	Name           string        `yaml:"name" envconfig:"NAME"`
	Dir            string        `yaml:"dir" envconfig:"DIR"`
	Version        int           `yaml:"version" envconfig:"VERSION"`
	BlockedTimeout time.Duration `yaml:"blocked_timeout" envconfig:"BLOCKED_TIMEOUT"`
}

// LogConfig controls diagnostic logging. An empty File logs to stderr.
type LogConfig struct {
	Level      string `yaml:"level" envconfig:"LEVEL"`
	Format     string `yaml:"format" envconfig:"FORMAT"`
	File       string `yaml:"file" envconfig:"FILE"`
	MaxSizeMB  int    `yaml:"max_size_mb" envconfig:"MAX_SIZE_MB"`
	MaxBackups int    `yaml:"max_backups" envconfig:"MAX_BACKUPS"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Store: StoreConfig{
			Name:           DefaultStoreName,
			Dir:            DefaultDir(),
			Version:        DefaultStoreVersion,
			BlockedTimeout: DefaultBlockedTimeout,
		},
		Log: LogConfig{
			Level:      DefaultLogLevel,
			Format:     DefaultLogFormat,
			MaxSizeMB:  DefaultLogMaxSizeMB,
			MaxBackups: DefaultLogMaxBackups,
		},
	}
}

// DefaultDir returns $XDG_DATA_HOME/invstore, falling back to
// ~/.local/share/invstore, or .invstore when no home directory is known.
func DefaultDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "invstore")
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".invstore"
	}
	return filepath.Join(home, ".local", "share", "invstore")
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty) and the environment. The result is not validated.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}
	return cfg, nil
}

// mergeFile overlays the YAML file at path. Unknown keys are an error.
func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil {
		// An empty file decodes to io.EOF and leaves the defaults
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// Marshal renders the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return buf.Bytes(), nil
}
