// Package config loads the catalog server configuration. Values come from
// built-in defaults, then an optional YAML file, then APICATALOG_*
// environment variables; command-line flags are applied by the caller.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joeshaw/envdecode"
	"gopkg.in/yaml.v3"
)

// Config is the complete server configuration. List values in the
// environment are separated by ";".
type Config struct {
	// Enabled mounts the SSE transport. The REST mirror and health check
	// are served either way.
	Enabled       bool   `yaml:"enabled" env:"APICATALOG_ENABLED"`
	ServerName    string `yaml:"serverName" env:"APICATALOG_SERVER_NAME" validate:"required"`
	ServerVersion string `yaml:"serverVersion" env:"APICATALOG_SERVER_VERSION" validate:"required"`

	Addr           string        `yaml:"addr" env:"APICATALOG_ADDR" validate:"required"`
	SSEPath        string        `yaml:"ssePath" env:"APICATALOG_SSE_PATH" validate:"required,startswith=/"`
	MessagePath    string        `yaml:"messagePath" env:"APICATALOG_MESSAGE_PATH" validate:"required,startswith=/,nefield=SSEPath"`
	KeepAlive      time.Duration `yaml:"keepAlive" env:"APICATALOG_KEEPALIVE" validate:"min=0"`
	AllowedOrigins []string      `yaml:"allowedOrigins" env:"APICATALOG_ALLOWED_ORIGINS"`
	MetricsPath    string        `yaml:"metricsPath" env:"APICATALOG_METRICS_PATH" validate:"omitempty,startswith=/"`

	LogLevel  string `yaml:"logLevel" env:"APICATALOG_LOG_LEVEL" validate:"oneof=debug info warn error"`
	LogFormat string `yaml:"logFormat" env:"APICATALOG_LOG_FORMAT" validate:"oneof=text json"`

	OpenAPIFiles []string `yaml:"openapiFiles" env:"APICATALOG_OPENAPI_FILES"`
	Watch        bool     `yaml:"watch" env:"APICATALOG_WATCH"`
	MaxDepth     int      `yaml:"maxDepth" env:"APICATALOG_MAX_DEPTH" validate:"min=1"`

	// RedisAddr enables cross-node session routing when set.
	RedisAddr      string `yaml:"redisAddr" env:"APICATALOG_REDIS_ADDR"`
	RedisKeyPrefix string `yaml:"redisKeyPrefix" env:"APICATALOG_REDIS_KEY_PREFIX"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Enabled:        true,
		ServerName:     "api-catalog",
		ServerVersion:  "1.0.0",
		Addr:           ":8080",
		SSEPath:        "/sse",
		MessagePath:    "/message",
		KeepAlive:      30 * time.Second,
		MetricsPath:    "/metrics",
		LogLevel:       "info",
		LogFormat:      "text",
		MaxDepth:       8,
		RedisKeyPrefix: "apicatalog:sessions:",
	}
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty) and the environment, then validates it.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := decodeYAML(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return Config{}, fmt.Errorf("decode environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// decodeYAML overlays data on cfg, rejecting unknown keys.
func decodeYAML(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("invalid config: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed %s", fe.Field(), fe.Tag()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

// SlogLevel maps LogLevel onto a slog.Level.
func (c Config) SlogLevel() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// Handler builds the slog handler selected by LogFormat.
func (c Config) Handler(w io.Writer) slog.Handler {
	opts := &slog.HandlerOptions{Level: c.SlogLevel()}
	if c.LogFormat == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}
