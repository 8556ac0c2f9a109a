// Package config loads mimic settings from a YAML file and the environment.
//
// Values are layered: built-in defaults, then the YAML file (if any), then
// MIMIC_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/chosenoffset/mimic/pkg/mimic"
)

const EnvPrefix = "MIMIC_"

type Config struct {
	Source         string   `yaml:"source" env:"SOURCE"`
	Properties     []string `yaml:"properties" env:"PROPERTIES" envSeparator:","`
	StrictOrdering bool     `yaml:"strict_ordering" env:"STRICT_ORDERING"`

	Limits    Limits    `yaml:"limits" envPrefix:"LIMITS_"`
	Dashboard Dashboard `yaml:"dashboard" envPrefix:"DASHBOARD_"`
	Log       Log       `yaml:"log" envPrefix:"LOG_"`
	Feed      Feed      `yaml:"feed" envPrefix:"FEED_"`
}

type Limits struct {
	MaxElements     int   `yaml:"max_elements" env:"MAX_ELEMENTS"`
	MaxRuleLength   int   `yaml:"max_rule_length" env:"MAX_RULE_LENGTH"`
	MaxDocumentSize int64 `yaml:"max_document_size" env:"MAX_DOCUMENT_SIZE"`
}

type Dashboard struct {
	Addr       string `yaml:"addr" env:"ADDR"`
	MaxClients int    `yaml:"max_clients" env:"MAX_CLIENTS"`
}

type Log struct {
	Level  string `yaml:"level" env:"LEVEL"`
	Format string `yaml:"format" env:"FORMAT"`
}

// Feed configures an optional replayed telemetry file. An empty path
// disables it.
type Feed struct {
	Path     string        `yaml:"path" env:"PATH"`
	Interval time.Duration `yaml:"interval" env:"INTERVAL"`
}

func Default() *Config {
	l := mimic.DefaultLimits()
	return &Config{
		Properties: append([]string(nil), mimic.DefaultProperties...),
		Limits: Limits{
			MaxElements:     l.MaxElements,
			MaxRuleLength:   l.MaxRuleLength,
			MaxDocumentSize: l.MaxDocumentSize,
		},
		Dashboard: Dashboard{
			Addr:       ":9090",
			MaxClients: 100,
		},
		Log: Log{
			Level:  "info",
			Format: "text",
		},
		Feed: Feed{
			Interval: time.Second,
		},
	}
}

// Load reads path over the defaults and applies environment overrides. An
// empty path skips the file. The result is not validated, so callers can
// apply flag overrides first.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Source) == "" {
		errs = append(errs, errors.New("source is required"))
	}
	if err := c.MimicLimits().Validate(); err != nil {
		errs = append(errs, err)
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.Log.Format))
	}
	if c.Dashboard.MaxClients <= 0 {
		errs = append(errs, fmt.Errorf("dashboard max clients must be positive, got %d", c.Dashboard.MaxClients))
	}
	if c.Feed.Path != "" && c.Feed.Interval <= 0 {
		errs = append(errs, fmt.Errorf("feed interval must be positive, got %s", c.Feed.Interval))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

func (c *Config) MimicLimits() *mimic.Limits {
	return &mimic.Limits{
		MaxElements:     c.Limits.MaxElements,
		MaxRuleLength:   c.Limits.MaxRuleLength,
		MaxDocumentSize: c.Limits.MaxDocumentSize,
	}
}

func (c *Config) Compiler() *mimic.Compiler {
	opts := []mimic.CompilerOption{mimic.WithMaxRuleLength(c.Limits.MaxRuleLength)}
	if len(c.Properties) > 0 {
		opts = append(opts, mimic.WithProperties(c.Properties...))
	}
	if c.StrictOrdering {
		opts = append(opts, mimic.WithStrictOrdering())
	}
	return mimic.NewCompiler(opts...)
}

// Controller builds an uninitialised controller for the configured source.
// opts are applied after the configured ones.
func (c *Config) Controller(logger *slog.Logger, opts ...mimic.Option) *mimic.Controller {
	base := []mimic.Option{
		mimic.WithLimits(c.MimicLimits()),
		mimic.WithCompiler(c.Compiler()),
		mimic.WithLogger(logger.With("component", "mimic")),
	}
	return mimic.NewController(
		mimic.SourceFor(c.Source, c.Limits.MaxDocumentSize),
		append(base, opts...)...,
	)
}

// NewLogger builds the configured slog handler writing to w.
func (c *Config) NewLogger(w io.Writer) (*slog.Logger, error) {
	level, err := parseLevel(c.Log.Level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	switch c.Log.Format {
	case "json":
		h = slog.NewJSONHandler(w, opts)
	case "text":
		h = slog.NewTextHandler(w, opts)
	default:
		return nil, fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	return slog.New(h), nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("unknown log level %q", s)
	}
	return level, nil
}
