// Package config loads runtime settings from an optional YAML file overlaid
// with REALIGN_* environment variables.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/aretw0/realign/pkg/persistence/middleware"
	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "REALIGN_"

// Store backends.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// Config holds every setting the binaries need.
type Config struct {
	AdviceBaseURL  string        `yaml:"advice_base_url" env:"ADVICE_BASE_URL"`
	RequestTimeout time.Duration `yaml:"request_timeout" env:"REQUEST_TIMEOUT"`
	LogLevel       string        `yaml:"log_level" env:"LOG_LEVEL"`
	HTTPAddr       string        `yaml:"http_addr" env:"HTTP_ADDR"`

	Store string      `yaml:"store" env:"STORE"`
	Redis RedisConfig `yaml:"redis" envPrefix:"REDIS_"`

	// EncryptionKey is a hex encoded AES-256 key. Empty disables encryption at rest.
	EncryptionKey string `yaml:"encryption_key" env:"ENCRYPTION_KEY"`
	// FallbackKeys decrypt sessions written before a key rotation.
	FallbackKeys []string `yaml:"fallback_keys" env:"FALLBACK_KEYS" envSeparator:","`

	// CatalogPath replaces the built-in questionnaire when set.
	CatalogPath  string `yaml:"catalog_path" env:"CATALOG_PATH"`
	MaxInputSize int    `yaml:"max_input_size" env:"MAX_INPUT_SIZE"`
	// TaskLimit caps concurrent remote calls; zero is unlimited.
	TaskLimit int `yaml:"task_limit" env:"TASK_LIMIT"`
}

// RedisConfig describes the redis session store.
type RedisConfig struct {
	Addr     string        `yaml:"addr" env:"ADDR"`
	Password string        `yaml:"password" env:"PASSWORD"`
	DB       int           `yaml:"db" env:"DB"`
	Prefix   string        `yaml:"prefix" env:"PREFIX"`
	TTL      time.Duration `yaml:"ttl" env:"TTL"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		AdviceBaseURL:  "http://localhost:8000",
		RequestTimeout: 30 * time.Second,
		LogLevel:       "info",
		HTTPAddr:       ":8080",
		Store:          StoreMemory,
		Redis: RedisConfig{
			Addr:   "localhost:6379",
			Prefix: "realign:session:",
			TTL:    24 * time.Hour,
		},
		MaxInputSize: 4096,
	}
}

// Load builds a Config from defaults, then the YAML file at path (if any),
// then the environment. The result is validated.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open config: %w", err)
		}
		defer f.Close()
		if err := Decode(f, cfg); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Decode reads YAML into cfg. Unknown keys are rejected so typos surface.
func Decode(r io.Reader, cfg *Config) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("invalid config yaml: %w", err)
	}
	return nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.AdviceBaseURL) == "" {
		errs = append(errs, errors.New("advice_base_url is required"))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, fmt.Errorf("request_timeout must be positive, got %s", c.RequestTimeout))
	}
	switch c.Store {
	case StoreMemory:
	case StoreRedis:
		if c.Redis.Addr == "" {
			errs = append(errs, errors.New("redis.addr is required for the redis store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store %q (want %s or %s)", c.Store, StoreMemory, StoreRedis))
	}
	if c.EncryptionKey != "" {
		if _, err := middleware.ParseKey(c.EncryptionKey); err != nil {
			errs = append(errs, err)
		}
	}
	for _, k := range c.FallbackKeys {
		if _, err := middleware.ParseKey(k); err != nil {
			errs = append(errs, fmt.Errorf("fallback key: %w", err))
		}
	}
	if c.MaxInputSize < 0 {
		errs = append(errs, errors.New("max_input_size cannot be negative"))
	}
	if c.TaskLimit < 0 {
		errs = append(errs, errors.New("task_limit cannot be negative"))
	}

	return errors.Join(errs...)
}

// Keys decodes the encryption keys. It returns nil when encryption is off.
func (c *Config) Keys() (active []byte, fallback [][]byte, err error) {
	if c.EncryptionKey == "" {
		return nil, nil, nil
	}
	active, err = middleware.ParseKey(c.EncryptionKey)
	if err != nil {
		return nil, nil, err
	}
	for _, k := range c.FallbackKeys {
		key, err := middleware.ParseKey(k)
		if err != nil {
			return nil, nil, err
		}
		fallback = append(fallback, key)
	}
	return active, fallback, nil
}
