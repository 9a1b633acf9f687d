package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr            string
	// PublicURL is the server advertised in the OpenAPI document.
	PublicURL       string
	Database        DatabaseConfig
	LogLevel        string
	LogFormat       string
	Telemetry       TelemetryConfig
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	URL string
	// ConnMaxLifetime recycles pooled connections after this long.
	ConnMaxLifetime time.Duration
}

type TelemetryConfig struct {
	Enabled     bool
	ServiceName string
	Environment string
}

func defaultConfig() Config {
	return Config{
		Addr:      ":8000",
		PublicURL: "http://127.0.0.1:8000/",
		Database: DatabaseConfig{
			ConnMaxLifetime: 5 * time.Minute,
		},
		LogLevel:  "info",
		LogFormat: "text",
		Telemetry: TelemetryConfig{
			ServiceName: "todo-api",
			Environment: "development",
		},
		ShutdownTimeout: 5 * time.Second,
	}
}

// configFromEnv layers environment variables over the defaults.
func configFromEnv(getenv func(string) string) (Config, error) {
	cfg := defaultConfig()

	if v := getenv("PORT"); v != "" {
		cfg.Addr = ":" + v
	}
	if v := getenv("ADDR"); v != "" {
		cfg.Addr = v
	}
	if v := getenv("PUBLIC_URL"); v != "" {
		cfg.PublicURL = v
	}
	cfg.Database.URL = getenv("DATABASE_URL")
	if v := getenv("DB_CONN_MAX_LIFETIME"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return cfg, fmt.Errorf("DB_CONN_MAX_LIFETIME: %w", err)
		}
		cfg.Database.ConnMaxLifetime = d
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := getenv("LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
	if v := getenv("OTEL_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return cfg, fmt.Errorf("OTEL_ENABLED: %w", err)
		}
		cfg.Telemetry.Enabled = b
	}
	if v := getenv("OTEL_SERVICE_NAME"); v != "" {
		cfg.Telemetry.ServiceName = v
	}
	if v := getenv("DEPLOYMENT_ENVIRONMENT"); v != "" {
		cfg.Telemetry.Environment = v
	}
	if v := getenv("SHUTDOWN_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return cfg, fmt.Errorf("SHUTDOWN_TIMEOUT: %w", err)
		}
		cfg.ShutdownTimeout = d
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Database.URL == "" {
		return errors.New("database url is required (set DATABASE_URL or --database-url)")
	}
	if c.Database.ConnMaxLifetime < 0 {
		return errors.New("connection max lifetime must not be negative")
	}
	return nil
}

// envLookup reads variables from the process environment, falling back to
// the dotenv file at path. A missing file is not an error.
func envLookup(path string) (func(string) string, error) {
	vars, err := godotenv.Read(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return func(key string) string {
		if v, ok := os.LookupEnv(key); ok {
			return v
		}
		return vars[key]
	}, nil
}

func loadConfig(envFile string) (Config, error) {
	getenv, err := envLookup(envFile)
	if err != nil {
		return Config{}, err
	}
	return configFromEnv(getenv)
}
