// Package config loads swimeeter settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"swimeeter/internal/blob"
	"swimeeter/internal/core"
	"swimeeter/pkg/domain"
)

// Trace span and metrics exporters selectable through SWIMEETER_TRACER and
// SWIMEETER_METRICS.
const (
	TracerJSON        = "json"
	TracerOtel        = "otel"
	MetricsPrometheus = "prometheus"
	MetricsExpvar     = "expvar"
)

// Config holds every SWIMEETER_* setting.
type Config struct {
	StorageDriver string `env:"SWIMEETER_STORAGE_DRIVER" envDefault:"sqlite"`
	SQLitePath    string `env:"SWIMEETER_SQLITE_PATH"    envDefault:"swimeeter.db"`
	PostgresDSN   string `env:"SWIMEETER_POSTGRES_DSN"`

	BlobDriver      string `env:"SWIMEETER_BLOB_DRIVER"           envDefault:"fs"`
	BlobFSRoot      string `env:"SWIMEETER_BLOB_FS_ROOT"          envDefault:"./blobdata"`
	S3Bucket        string `env:"SWIMEETER_BLOB_S3_BUCKET"`
	S3Region        string `env:"SWIMEETER_BLOB_S3_REGION"        envDefault:"us-east-1"`
	S3Endpoint      string `env:"SWIMEETER_BLOB_S3_ENDPOINT"`
	S3PathStyle     bool   `env:"SWIMEETER_BLOB_S3_PATH_STYLE"`
	S3AccessKeyID   string `env:"SWIMEETER_BLOB_S3_ACCESS_KEY_ID"`
	S3SecretKey     string `env:"SWIMEETER_BLOB_S3_SECRET_ACCESS_KEY"`
	S3SessionToken  string `env:"SWIMEETER_BLOB_S3_SESSION_TOKEN"`

	LogLevel  string `env:"SWIMEETER_LOG_LEVEL"  envDefault:"info"`
	LogFormat string `env:"SWIMEETER_LOG_FORMAT" envDefault:"text"`
	Tracer    string `env:"SWIMEETER_TRACER"     envDefault:"json"`
	Metrics   string `env:"SWIMEETER_METRICS"    envDefault:"prometheus"`

	DuplicateHandling string `env:"SWIMEETER_DUPLICATE_HANDLING"`
	TxRetries         int    `env:"SWIMEETER_TX_RETRIES" envDefault:"2"`
}

// ParseEnv parses environment variables into target.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// LoadDotEnv loads the given dotenv files into the process environment.
// Missing files are skipped and variables already set are never overwritten.
func LoadDotEnv(files ...string) error {
	for _, file := range files {
		if _, err := os.Stat(file); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(file); err != nil {
			return fmt.Errorf("load %s: %w", file, err)
		}
	}
	return nil
}

// Load reads the dotenv files, then parses and validates the environment.
func Load(files ...string) (Config, error) {
	if err := LoadDotEnv(files...); err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first inconsistent setting.
func (c Config) Validate() error {
	switch core.StorageDriver(c.StorageDriver) {
	case core.StorageMemory, core.StorageSQLite:
	case core.StoragePostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("SWIMEETER_POSTGRES_DSN is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown SWIMEETER_STORAGE_DRIVER %q", c.StorageDriver)
	}
	switch blob.Driver(c.BlobDriver) {
	case blob.DriverFilesystem, blob.DriverMemory:
	case blob.DriverS3:
		if c.S3Bucket == "" {
			return fmt.Errorf("SWIMEETER_BLOB_S3_BUCKET is required for the s3 driver")
		}
	default:
		return fmt.Errorf("unknown SWIMEETER_BLOB_DRIVER %q", c.BlobDriver)
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	if f := strings.ToLower(c.LogFormat); f != "text" && f != "json" {
		return fmt.Errorf("unknown SWIMEETER_LOG_FORMAT %q", c.LogFormat)
	}
	if t := c.Tracer; t != TracerJSON && t != TracerOtel {
		return fmt.Errorf("unknown SWIMEETER_TRACER %q", c.Tracer)
	}
	if m := c.Metrics; m != MetricsPrometheus && m != MetricsExpvar {
		return fmt.Errorf("unknown SWIMEETER_METRICS %q", c.Metrics)
	}
	if _, err := domain.ParseDuplicatePolicy(c.DuplicateHandling); err != nil {
		return fmt.Errorf("SWIMEETER_DUPLICATE_HANDLING: %w", err)
	}
	if c.TxRetries < 0 {
		return fmt.Errorf("SWIMEETER_TX_RETRIES must not be negative")
	}
	return nil
}

// Storage returns the persistent store settings.
func (c Config) Storage() core.StorageConfig {
	return core.StorageConfig{
		Driver:      core.StorageDriver(c.StorageDriver),
		SQLitePath:  c.SQLitePath,
		PostgresDSN: c.PostgresDSN,
	}
}

// Blob returns the archive blob store settings.
func (c Config) Blob() blob.Config {
	return blob.Config{
		Driver: blob.Driver(c.BlobDriver),
		FSRoot: c.BlobFSRoot,
		S3: blob.S3Config{
			Bucket:          c.S3Bucket,
			Region:          c.S3Region,
			Endpoint:        c.S3Endpoint,
			PathStyle:       c.S3PathStyle,
			AccessKeyID:     c.S3AccessKeyID,
			SecretAccessKey: c.S3SecretKey,
			SessionToken:    c.S3SessionToken,
		},
	}
}

// Preferences returns the default duplicate handling for requests that do
// not name a policy.
func (c Config) Preferences() domain.Preferences {
	policy, err := domain.ParseDuplicatePolicy(c.DuplicateHandling)
	if err != nil {
		return domain.Preferences{}
	}
	return domain.Preferences{DuplicateHandling: policy}
}

// Logger builds a slog logger writing to w in the configured format and level.
func (c Config) Logger(w io.Writer) *slog.Logger {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(raw string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(raw)); err != nil {
		return 0, fmt.Errorf("unknown SWIMEETER_LOG_LEVEL %q", raw)
	}
	return level, nil
}
