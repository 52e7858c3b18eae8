package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hupe1980/assetload/resource"
)

// BackendType names a blob store implementation.
type BackendType string

const (
	// BackendLocal reads files below Dir.
	BackendLocal BackendType = "local"
	// BackendFS reads a read-only directory tree through fs.FS.
	BackendFS BackendType = "fs"
	// BackendS3 reads objects from an S3 bucket.
	BackendS3 BackendType = "s3"
	// BackendMinIO reads objects from a MinIO (or other S3-compatible) server.
	BackendMinIO BackendType = "minio"
)

// Config is the loader configuration.
type Config struct {
	// DefaultLocation is the storage location ModeDefault resolves to:
	// streaming, bundled or persistent.
	DefaultLocation string `yaml:"default_location"`

	// TickInterval is how often the loader advances pending loads.
	// Default: 16ms
	TickInterval time.Duration `yaml:"tick_interval"`

	// Workers is the size of the fetch and decode worker pool.
	// Default: 0 (2x GOMAXPROCS)
	Workers int `yaml:"workers"`

	// LogLevel is debug, info, warn or error.
	// Default: info
	LogLevel string `yaml:"log_level"`

	// Resources bounds the pipeline.
	Resources ResourcesConfig `yaml:"resources"`

	// Backends maps a storage location name to its store.
	Backends map[string]BackendConfig `yaml:"backends"`

	// WarnOnRelease lists path substrings whose release is logged as a warning.
	WarnOnRelease []string `yaml:"warn_on_release"`
}

// ResourcesConfig mirrors resource.Config.
type ResourcesConfig struct {
	MemoryLimitBytes     int64 `yaml:"memory_limit_bytes"`
	MaxConcurrentFetches int64 `yaml:"max_concurrent_fetches"`
	IOLimitBytesPerSec   int64 `yaml:"io_limit_bytes_per_sec"`
}

// BackendConfig configures one blob store.
type BackendConfig struct {
	Type BackendType `yaml:"type"`

	// Dir is the root directory of a local or fs backend.
	Dir string `yaml:"dir"`

	// Bucket and Prefix locate objects in s3 and minio backends.
	Bucket string `yaml:"bucket"`
	Prefix string `yaml:"prefix"`

	// Region and Endpoint override the AWS defaults for s3.
	// Endpoint is the host:port of a minio server.
	Region   string `yaml:"region"`
	Endpoint string `yaml:"endpoint"`

	// AccessKey, SecretKey and Secure configure minio.
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Secure    bool   `yaml:"secure"`

	// CacheBytes puts a whole-blob LRU of this size in front of a remote
	// backend. 0 disables caching.
	CacheBytes int64 `yaml:"cache_bytes"`
}

// Default returns a configuration with only defaults set.
func Default() *Config {
	return &Config{
		DefaultLocation: "streaming",
		TickInterval:    16 * time.Millisecond,
		LogLevel:        "info",
		Backends:        map[string]BackendConfig{},
	}
}

// Load reads, expands and validates the file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes and validates a YAML document.
func Parse(data []byte) (*Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader([]byte(os.ExpandEnv(string(data)))))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var validLocations = []string{"streaming", "bundled", "persistent"}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	var errs []error

	if !contains(validLocations, c.DefaultLocation) {
		errs = append(errs, fmt.Errorf("default_location %q must be one of %s", c.DefaultLocation, strings.Join(validLocations, ", ")))
	}
	if c.TickInterval <= 0 {
		errs = append(errs, fmt.Errorf("tick_interval must be positive, got %s", c.TickInterval))
	}
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must not be negative, got %d", c.Workers))
	}
	if _, err := c.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	if c.Resources.MemoryLimitBytes < 0 || c.Resources.MaxConcurrentFetches < 0 || c.Resources.IOLimitBytesPerSec < 0 {
		errs = append(errs, errors.New("resources must not be negative"))
	}

	for name, b := range c.Backends {
		if !contains(validLocations, name) {
			errs = append(errs, fmt.Errorf("backends: unknown location %q", name))
			continue
		}
		if err := b.validate(); err != nil {
			errs = append(errs, fmt.Errorf("backends.%s: %w", name, err))
		}
	}

	return errors.Join(errs...)
}

func (b BackendConfig) validate() error {
	switch b.Type {
	case BackendLocal, BackendFS:
		if b.Dir == "" {
			return fmt.Errorf("%s backend requires dir", b.Type)
		}
	case BackendS3:
		if b.Bucket == "" {
			return errors.New("s3 backend requires bucket")
		}
	case BackendMinIO:
		if b.Bucket == "" || b.Endpoint == "" {
			return errors.New("minio backend requires endpoint and bucket")
		}
	default:
		return fmt.Errorf("unknown type %q", b.Type)
	}
	if b.CacheBytes < 0 {
		return errors.New("cache_bytes must not be negative")
	}
	return nil
}

// ResourceLimits converts Resources for resource.NewController.
func (c *Config) ResourceLimits() resource.Config {
	return resource.Config{
		MemoryLimitBytes:     c.Resources.MemoryLimitBytes,
		MaxConcurrentFetches: c.Resources.MaxConcurrentFetches,
		IOLimitBytesPerSec:   c.Resources.IOLimitBytesPerSec,
	}
}

// SlogLevel parses LogLevel.
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("log_level: %w", err)
	}
	return level, nil
}

func contains(list []string, s string) bool {
	return slices.Contains(list, s)
}
