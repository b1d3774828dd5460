// Package config reads the service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gallery-backend/models"

	"github.com/caarlos0/env/v6"
)

type (
	// Config holds every runtime setting of the gallery service
	Config struct {
		Port       string `env:"PORT" envDefault:"3000"`
		GinMode    string `env:"GIN_MODE" envDefault:"release"`
		DebugPprof bool   `env:"DEBUG_PPROF" envDefault:"false"`

		HTTP    HTTPConfig    `envPrefix:"HTTP_"`
		Upload  UploadConfig  `envPrefix:"UPLOAD_"`
		Storage StorageConfig `envPrefix:"STORAGE_"`
		Catalog CatalogConfig `envPrefix:"CATALOG_"`
		Log     LogConfig     `envPrefix:"LOG_"`
		CORS    CORSConfig    `envPrefix:"CORS_"`
	}

	HTTPConfig struct {
		ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"15s"`
		WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"30s"`
		IdleTimeout     time.Duration `env:"IDLE_TIMEOUT" envDefault:"60s"`
		ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	}

	UploadConfig struct {
		MaxBytes     int64    `env:"MAX_BYTES" envDefault:"10000000"`
		FieldName    string   `env:"FIELD" envDefault:"image"`
		Categories   []string `env:"CATEGORIES" envSeparator:"," envDefault:"Nature,Architecture,People,Animals"`
		MediaTypes   []string `env:"MEDIA_TYPES" envSeparator:"," envDefault:"image/jpeg,image/png,image/gif"`
		SniffContent bool     `env:"SNIFF_CONTENT" envDefault:"true"`
	}

	StorageConfig struct {
		Type           string `env:"TYPE" envDefault:"local"`
		LocalPath      string `env:"LOCAL_PATH" envDefault:"./uploads"`
		MemoryMaxBytes int64  `env:"MEMORY_MAX_BYTES" envDefault:"0"` // 0 = unlimited
	}

	CatalogConfig struct {
		Rehydrate bool `env:"REHYDRATE" envDefault:"true"`
	}

	LogConfig struct {
		Level      string `env:"LEVEL" envDefault:"info"`
		Path       string `env:"PATH"`
		MaxSizeMB  int    `env:"MAX_SIZE_MB" envDefault:"100"`
		MaxBackups int    `env:"MAX_BACKUPS" envDefault:"3"`
		MaxAgeDays int    `env:"MAX_AGE_DAYS" envDefault:"7"`
		Compress   bool   `env:"COMPRESS" envDefault:"false"`
	}

	CORSConfig struct {
		AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
	}
)

// Load parses the environment into a Config and validates it
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("read config error: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the service cannot start with
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT must not be empty")
	}
	if c.Upload.MaxBytes <= 0 {
		return fmt.Errorf("UPLOAD_MAX_BYTES must be positive, got %d", c.Upload.MaxBytes)
	}
	if c.Upload.FieldName == "" {
		return errors.New("UPLOAD_FIELD must not be empty")
	}
	categories := nonEmpty(c.Upload.Categories)
	if len(categories) == 0 {
		return errors.New("UPLOAD_CATEGORIES must name at least one category")
	}
	for _, category := range categories {
		// each category is a directory under the storage root
		if err := models.CheckPathSegment("category", category); err != nil {
			return fmt.Errorf("UPLOAD_CATEGORIES: %w", err)
		}
	}
	if len(nonEmpty(c.Upload.MediaTypes)) == 0 {
		return errors.New("UPLOAD_MEDIA_TYPES must name at least one media type")
	}
	switch c.Storage.Type {
	case "local":
		if c.Storage.LocalPath == "" {
			return errors.New("STORAGE_LOCAL_PATH is required for local storage")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown storage type: %s", c.Storage.Type)
	}
	if c.Storage.MemoryMaxBytes < 0 {
		return errors.New("STORAGE_MEMORY_MAX_BYTES must not be negative")
	}
	return nil
}

// Addr is the listen address of the HTTP server
func (c *Config) Addr() string {
	return ":" + c.Port
}

func nonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
