package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "agentcoord.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// The YAML file is optional; a missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is validated by caller
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "AGENTCOORD_PORT")
	setString(&cfg.Server.CORSOrigin, "AGENTCOORD_CORS_ORIGIN")
	setString(&cfg.Server.APIKey, "AGENTCOORD_API_KEY")
	setString(&cfg.MCP.Addr, "AGENTCOORD_MCP_ADDR")
	setString(&cfg.MCP.Name, "AGENTCOORD_MCP_NAME")
	setString(&cfg.Store.Backend, "AGENTCOORD_STORE_BACKEND")
	setString(&cfg.Store.Dir, "AGENTCOORD_DATA_DIR")
	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "AGENTCOORD_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "AGENTCOORD_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "AGENTCOORD_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "AGENTCOORD_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "AGENTCOORD_PG_HEALTH_CHECK")
	setString(&cfg.NATS.URL, "NATS_URL")
	setString(&cfg.Logging.Level, "AGENTCOORD_LOG_LEVEL")
	setString(&cfg.Logging.Service, "AGENTCOORD_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "AGENTCOORD_LOG_ASYNC")
	setInt(&cfg.Breaker.MaxFailures, "AGENTCOORD_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "AGENTCOORD_BREAKER_TIMEOUT")
	setString(&cfg.Telemetry.Endpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
}

// validate checks that required fields are set.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	switch cfg.Store.Backend {
	case "file":
		if cfg.Store.Dir == "" {
			return errors.New("store.dir is required for the file backend")
		}
	case "postgres":
		if cfg.Postgres.DSN == "" {
			return errors.New("postgres.dsn is required for the postgres backend")
		}
		if cfg.Postgres.MaxConns < 1 {
			return errors.New("postgres.max_conns must be >= 1")
		}
	default:
		return fmt.Errorf("store.backend must be \"file\" or \"postgres\", got %q", cfg.Store.Backend)
	}
	if cfg.Breaker.MaxFailures < 1 {
		return errors.New("breaker.max_failures must be >= 1")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt32(dst *int32, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			*dst = int32(n)
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
