package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Server.Port != "8080" {
		t.Errorf("expected port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Store.Backend != "file" {
		t.Errorf("expected file backend, got %s", cfg.Store.Backend)
	}
	if cfg.Breaker.Timeout != 30*time.Second {
		t.Errorf("expected breaker timeout 30s, got %v", cfg.Breaker.Timeout)
	}
}

func TestLoadYAMLOverride(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "test.yaml")

	content := `
server:
  port: "9090"
  cors_origin: "http://example.com"
store:
  backend: "postgres"
logging:
  level: "debug"
`
	if err := os.WriteFile(yamlPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := Defaults()
	if err := loadYAML(&cfg, yamlPath); err != nil {
		t.Fatal(err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("expected port 9090, got %s", cfg.Server.Port)
	}
	if cfg.Server.CORSOrigin != "http://example.com" {
		t.Errorf("expected cors http://example.com, got %s", cfg.Server.CORSOrigin)
	}
	if cfg.Store.Backend != "postgres" {
		t.Errorf("expected backend postgres, got %s", cfg.Store.Backend)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level debug, got %s", cfg.Logging.Level)
	}
	// Unchanged fields keep defaults
	if cfg.Store.Dir != "./data" {
		t.Errorf("expected default data dir, got %s", cfg.Store.Dir)
	}
}

func TestLoadYAMLMissing(t *testing.T) {
	cfg := Defaults()
	if err := loadYAML(&cfg, "/nonexistent/path.yaml"); err != nil {
		t.Errorf("missing YAML should not error, got %v", err)
	}
}

func TestEnvOverride(t *testing.T) {
	cfg := Defaults()

	t.Setenv("AGENTCOORD_PORT", "7070")
	t.Setenv("AGENTCOORD_DATA_DIR", "/var/lib/agentcoord")
	t.Setenv("DATABASE_URL", "postgres://test:test@db:5432/test")
	t.Setenv("AGENTCOORD_LOG_LEVEL", "warn")
	t.Setenv("AGENTCOORD_BREAKER_TIMEOUT", "1m")

	loadEnv(&cfg)

	if cfg.Server.Port != "7070" {
		t.Errorf("expected port 7070, got %s", cfg.Server.Port)
	}
	if cfg.Store.Dir != "/var/lib/agentcoord" {
		t.Errorf("expected env data dir, got %s", cfg.Store.Dir)
	}
	if cfg.Postgres.DSN != "postgres://test:test@db:5432/test" {
		t.Errorf("expected test DSN, got %s", cfg.Postgres.DSN)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("expected log level warn, got %s", cfg.Logging.Level)
	}
	if cfg.Breaker.Timeout != time.Minute {
		t.Errorf("expected breaker timeout 1m, got %v", cfg.Breaker.Timeout)
	}
}

func TestValidateRequired(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		errMsg string
	}{
		{
			name:   "empty port",
			modify: func(c *Config) { c.Server.Port = "" },
			errMsg: "server.port is required",
		},
		{
			name:   "empty data dir with file backend",
			modify: func(c *Config) { c.Store.Dir = "" },
			errMsg: "store.dir is required",
		},
		{
			name: "empty DSN with postgres backend",
			modify: func(c *Config) {
				c.Store.Backend = "postgres"
				c.Postgres.DSN = ""
			},
			errMsg: "postgres.dsn is required",
		},
		{
			name:   "unknown backend",
			modify: func(c *Config) { c.Store.Backend = "etcd" },
			errMsg: "store.backend must be",
		},
		{
			name:   "breaker max failures",
			modify: func(c *Config) { c.Breaker.MaxFailures = 0 },
			errMsg: "breaker.max_failures must be >= 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.modify(&cfg)
			err := validate(&cfg)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("expected error containing %q, got %q", tt.errMsg, err.Error())
			}
		})
	}
}

func TestLoadFromFullHierarchy(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "agentcoord.yaml")

	content := `
server:
  port: "9090"
logging:
  level: "debug"
`
	if err := os.WriteFile(yamlPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	// ENV wins over YAML.
	t.Setenv("AGENTCOORD_PORT", "7070")

	cfg, err := LoadFrom(yamlPath)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != "7070" {
		t.Errorf("env should win over yaml: expected 7070, got %s", cfg.Server.Port)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("yaml should win over defaults: expected debug, got %s", cfg.Logging.Level)
	}
}
