// Package config handles application configuration and environment loading.
//
// Values are resolved in order: built-in defaults, an optional YAML file,
// a .env file in the working directory, then the process environment.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the server and storage settings.
type Config struct {
	DataDir       string `yaml:"data_dir"`       // root of per-workspace graph stores
	MetaDBPath    string `yaml:"meta_db"`        // SQLite file with users, workspaces and tables
	ListenAddr    string `yaml:"listen_addr"`    // HTTP listen address
	LogLevel      string `yaml:"log_level"`      // debug, info, warn, error
	LogFormat     string `yaml:"log_format"`     // json or text
	MemoryProfile string `yaml:"memory_profile"` // default or low
	ReadOnly      bool   `yaml:"read_only"`
	MaxOpenStores int    `yaml:"max_open_stores"`

	RateLimitRPS   float64 `yaml:"rate_limit_rps"`
	RateLimitBurst int     `yaml:"rate_limit_burst"`

	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		DataDir:            "data",
		MetaDBPath:         filepath.Join("data", "meta.sqlite"),
		ListenAddr:         ":8080",
		LogLevel:           "info",
		LogFormat:          "json",
		MemoryProfile:      "default",
		MaxOpenStores:      10,
		RateLimitRPS:       100,
		RateLimitBurst:     200,
		CORSAllowedOrigins: []string{"*"},
	}
}

// Load builds the configuration. path names an optional YAML file; an empty
// path skips it.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	// Load .env file if present; a missing file is fine.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	setString(&c.DataDir, "GRPG_DATA_DIR")
	setString(&c.MetaDBPath, "GRPG_META_DB")
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.LogFormat, "LOG_FORMAT")
	setString(&c.MemoryProfile, "GRPG_MEMORY_PROFILE")
	setString(&c.ListenAddr, "GRPG_LISTEN_ADDR")
	if v := os.Getenv("PORT"); v != "" && os.Getenv("GRPG_LISTEN_ADDR") == "" {
		c.ListenAddr = ":" + v
	}

	if v := os.Getenv("GRPG_READ_ONLY"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("GRPG_READ_ONLY: %w", err)
		}
		c.ReadOnly = b
	}
	if v := os.Getenv("GRPG_MAX_OPEN_STORES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("GRPG_MAX_OPEN_STORES: %w", err)
		}
		c.MaxOpenStores = n
	}
	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("RATE_LIMIT_RPS: %w", err)
		}
		c.RateLimitRPS = f
	}
	if v := os.Getenv("RATE_LIMIT_BURST"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("RATE_LIMIT_BURST: %w", err)
		}
		c.RateLimitBurst = n
	}
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		origins := strings.Split(v, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		c.CORSAllowedOrigins = origins
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir must be set")
	}
	if c.MetaDBPath == "" {
		return fmt.Errorf("meta_db must be set")
	}
	switch c.MemoryProfile {
	case "default", "low":
	default:
		return fmt.Errorf("memory_profile must be \"default\" or \"low\", got %q", c.MemoryProfile)
	}
	switch strings.ToLower(c.LogFormat) {
	case "json", "text":
	default:
		return fmt.Errorf("log_format must be \"json\" or \"text\", got %q", c.LogFormat)
	}
	if c.RateLimitRPS < 0 || c.RateLimitBurst < 0 {
		return fmt.Errorf("rate limits must not be negative")
	}
	if c.RateLimitRPS > 0 && c.RateLimitBurst < 1 {
		return fmt.Errorf("rate_limit_burst must be at least 1 when rate limiting is on, got %d", c.RateLimitBurst)
	}
	return nil
}

// SlogLevel maps the LogLevel string to an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger builds the process logger described by the configuration.
func (c *Config) NewLogger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.SlogLevel()}
	if strings.EqualFold(c.LogFormat, "text") {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}
