package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"swimeeter/internal/blob"
	"swimeeter/internal/core"
	"swimeeter/pkg/domain"
)

type envTestConfig struct {
	Port int `env:"SWIMEETER_TEST_PORT" envDefault:"123"`
}

func TestParseEnvDefaults(t *testing.T) {
	var cfg envTestConfig
	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.Port != 123 {
		t.Fatalf("expected default port 123, got %d", cfg.Port)
	}
}

func TestParseEnvError(t *testing.T) {
	var cfg envTestConfig
	t.Setenv("SWIMEETER_TEST_PORT", "not-an-int")
	err := ParseEnv(&cfg)
	if err == nil || !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env error, got %v", err)
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if diff := cmp.Diff(core.StorageConfig{Driver: core.StorageSQLite, SQLitePath: "swimeeter.db"}, cfg.Storage()); diff != "" {
		t.Fatalf("storage (-want +got):\n%s", diff)
	}
	if b := cfg.Blob(); b.Driver != blob.DriverFilesystem || b.FSRoot != "./blobdata" || b.S3.Region != "us-east-1" {
		t.Fatalf("unexpected blob config %+v", b)
	}
	if cfg.TxRetries != 2 || cfg.Preferences() != (domain.Preferences{}) || cfg.Tracer != TracerJSON || cfg.Metrics != MetricsPrometheus {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("SWIMEETER_STORAGE_DRIVER", "postgres")
	t.Setenv("SWIMEETER_POSTGRES_DSN", "postgres://meet@localhost/meets")
	t.Setenv("SWIMEETER_BLOB_DRIVER", "s3")
	t.Setenv("SWIMEETER_BLOB_S3_BUCKET", "archives")
	t.Setenv("SWIMEETER_BLOB_S3_PATH_STYLE", "true")
	t.Setenv("SWIMEETER_DUPLICATE_HANDLING", "keep_new")
	t.Setenv("SWIMEETER_TX_RETRIES", "5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if s := cfg.Storage(); s.Driver != core.StoragePostgres || s.PostgresDSN != "postgres://meet@localhost/meets" {
		t.Fatalf("unexpected storage %+v", s)
	}
	if b := cfg.Blob(); b.Driver != blob.DriverS3 || b.S3.Bucket != "archives" || !b.S3.PathStyle {
		t.Fatalf("unexpected blob %+v", b)
	}
	if cfg.Preferences().DuplicateHandling != domain.PolicyKeepNew || cfg.TxRetries != 5 {
		t.Fatalf("unexpected preferences %+v", cfg)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"unknown storage", map[string]string{"SWIMEETER_STORAGE_DRIVER": "tape"}, "SWIMEETER_STORAGE_DRIVER"},
		{"postgres without dsn", map[string]string{"SWIMEETER_STORAGE_DRIVER": "postgres"}, "SWIMEETER_POSTGRES_DSN"},
		{"unknown blob", map[string]string{"SWIMEETER_BLOB_DRIVER": "ftp"}, "SWIMEETER_BLOB_DRIVER"},
		{"s3 without bucket", map[string]string{"SWIMEETER_BLOB_DRIVER": "s3"}, "SWIMEETER_BLOB_S3_BUCKET"},
		{"bad level", map[string]string{"SWIMEETER_LOG_LEVEL": "loud"}, "SWIMEETER_LOG_LEVEL"},
		{"bad format", map[string]string{"SWIMEETER_LOG_FORMAT": "xml"}, "SWIMEETER_LOG_FORMAT"},
		{"bad policy", map[string]string{"SWIMEETER_DUPLICATE_HANDLING": "merge"}, "SWIMEETER_DUPLICATE_HANDLING"},
		{"unknown tracer", map[string]string{"SWIMEETER_TRACER": "zipkin"}, "SWIMEETER_TRACER"},
		{"unknown metrics", map[string]string{"SWIMEETER_METRICS": "statsd"}, "SWIMEETER_METRICS"},
		{"negative retries", map[string]string{"SWIMEETER_TX_RETRIES": "-1"}, "SWIMEETER_TX_RETRIES"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error naming %s, got %v", tc.want, err)
			}
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("SWIMEETER_STORAGE_DRIVER=memory\nSWIMEETER_LOG_FORMAT=json\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	// registered so t.Setenv restores the pre-test state after godotenv writes
	t.Setenv("SWIMEETER_STORAGE_DRIVER", "")
	os.Unsetenv("SWIMEETER_STORAGE_DRIVER")
	t.Setenv("SWIMEETER_LOG_FORMAT", "text")

	cfg, err := Load(filepath.Join(dir, "missing.env"), path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.StorageDriver != "memory" {
		t.Fatalf("expected dotenv value, got %q", cfg.StorageDriver)
	}
	if cfg.LogFormat != "text" {
		t.Fatalf("dotenv must not override the environment, got %q", cfg.LogFormat)
	}

	bad := filepath.Join(dir, "bad.env")
	if err := os.WriteFile(bad, []byte("SWIMEETER_LOG_LEVEL=\"debug\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := LoadDotEnv(bad); err == nil || !strings.Contains(err.Error(), "unterminated quoted value") {
		t.Fatalf("expected unterminated quote error, got %v", err)
	}
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	cfg := Config{LogLevel: "warn", LogFormat: "json"}
	logger := cfg.Logger(&buf)
	logger.Info("hidden")
	logger.Warn("shown", "meet", "m1")
	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, `"msg":"shown"`) || !strings.Contains(out, `"meet":"m1"`) {
		t.Fatalf("unexpected log output %q", out)
	}

	buf.Reset()
	Config{LogLevel: "debug", LogFormat: "text"}.Logger(&buf).Debug("detail")
	if !strings.Contains(buf.String(), "msg=detail") {
		t.Fatalf("expected text debug output, got %q", buf.String())
	}
}
