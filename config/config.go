// Copyright 2021 The reqflow Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/gogama/reqflow/plugin"
)

// EnvPrefix is the prefix of every environment variable Load reads.
const EnvPrefix = "REQFLOW_"

// A Config holds every reqflow setting. Use Load to build one.
type Config struct {
	Retry  Retry  `koanf:"retry"`
	Stream Stream `koanf:"stream"`
	Client Client `koanf:"client"`
	Log    Log    `koanf:"log"`

	k *koanf.Koanf
}

// Retry configures the retry policy of every run.
type Retry struct {
	MaxAttempts int           `koanf:"max_attempts" validate:"min=1"`
	BaseDelay   time.Duration `koanf:"base_delay" validate:"gte=0"`
	MaxDelay    time.Duration `koanf:"max_delay" validate:"gtefield=BaseDelay"`
	Multiplier  float64       `koanf:"multiplier" validate:"gt=1"`
	Jitter      bool          `koanf:"jitter"`
}

// Stream configures streamed response bodies. Zero sizes and rates
// disable the corresponding stage, and zero timeouts and limits mean
// none.
type Stream struct {
	BufferSize              int           `koanf:"buffer_size" validate:"gte=0"`
	ChunkSize               int           `koanf:"chunk_size" validate:"gte=0"`
	RateLimitBytesPerSecond float64       `koanf:"rate_limit_bytes_per_second" validate:"gte=0"`
	RateLimitBurst          int           `koanf:"rate_limit_burst" validate:"gte=0"`
	MaxConcurrentStreams    int           `koanf:"max_concurrent_streams" validate:"gte=0"`
	AttemptTimeout          time.Duration `koanf:"attempt_timeout" validate:"gte=0"`
	OverallTimeout          time.Duration `koanf:"overall_timeout" validate:"gte=0"`
	ChunkTimeout            time.Duration `koanf:"chunk_timeout" validate:"gte=0"`
}

// Client configures the request side of the engine.
type Client struct {
	UserAgent      string            `koanf:"user_agent"`
	MaxBodySize    int64             `koanf:"max_body_size" validate:"gte=0"`
	DefaultHeaders map[string]string `koanf:"default_headers"`
	BaseURL        string            `koanf:"base_url" validate:"omitempty,url"`
	StrictURLs     bool              `koanf:"strict_urls"`
}

// Log configures the logger handed to the client and pipeline.
type Log struct {
	Level  string `koanf:"level"`
	Pretty bool   `koanf:"pretty"`
}

type options struct {
	path    string
	yaml    []byte
	environ func() []string
}

// An Option adds a source to Load.
type Option func(*options)

// WithFile loads the YAML file at path on top of the defaults. A
// missing file is skipped.
func WithFile(path string) Option {
	return func(o *options) { o.path = path }
}

// WithYAML loads b as YAML on top of the defaults and any file.
func WithYAML(b []byte) Option {
	return func(o *options) { o.yaml = b }
}

// WithEnviron replaces os.Environ as the source of environment
// variables.
func WithEnviron(f func() []string) Option {
	return func(o *options) { o.environ = f }
}

// Load builds a Config from the defaults, the sources named by opts and
// the environment, in that order of increasing priority, and validates
// it.
func Load(opts ...Option) (*Config, error) {
	o := options{environ: os.Environ}
	for _, opt := range opts {
		opt(&o)
	}

	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("reqflow/config: failed to load defaults: %w", err)
	}

	if o.path != "" {
		err := k.Load(file.Provider(o.path), yaml.Parser())
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("reqflow/config: failed to load %s: %w", o.path, err)
		}
	}

	if len(o.yaml) > 0 {
		if err := k.Load(rawbytes.Provider(o.yaml), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reqflow/config: failed to load yaml: %w", err)
		}
	}

	if err := k.Load(env.Provider(".", env.Opt{
		Prefix:        EnvPrefix,
		TransformFunc: envKey,
		EnvironFunc:   o.environ,
	}), nil); err != nil {
		return nil, fmt.Errorf("reqflow/config: failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("reqflow/config: failed to unmarshal config: %w", err)
	}
	cfg.k = k

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("reqflow/config: invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate checks every field of cfg against its constraints.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return err
	}
	return cfg.RetryPolicy().Validate()
}

// String returns the value at a dotted key path, such as
// "client.user_agent", or "" if it is not set.
func (c *Config) String(path string) string {
	if c.k == nil {
		return ""
	}
	return c.k.String(path)
}

func defaults() map[string]any {
	return map[string]any{
		"retry.max_attempts": 4,
		"retry.base_delay":   "1s",
		"retry.max_delay":    "10s",
		"retry.multiplier":   2.0,
		"retry.jitter":       true,

		"stream.buffer_size":                 8192,
		"stream.chunk_size":                  4096,
		"stream.rate_limit_bytes_per_second": 0,
		"stream.rate_limit_burst":            0,
		"stream.max_concurrent_streams":      10,
		"stream.attempt_timeout":             "30s",
		"stream.overall_timeout":             "0s",
		"stream.chunk_timeout":               "0s",

		"client.user_agent":    plugin.DefaultUserAgent,
		"client.max_body_size": 100 << 20,
		"client.base_url":      "",
		"client.strict_urls":   false,

		"log.level":  "info",
		"log.pretty": false,
	}
}

// envKey maps REQFLOW_RETRY__MAX_ATTEMPTS to retry.max_attempts.
func envKey(k, v string) (string, any) {
	k = strings.ToLower(strings.TrimPrefix(k, EnvPrefix))
	return strings.ReplaceAll(k, "__", "."), v
}
