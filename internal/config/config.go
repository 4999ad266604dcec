package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Calibration holds the pinhole-camera constants and regime bounds.
type Calibration struct {
	KnownDistanceCM float64 `envconfig:"KNOWN_DISTANCE_CM" default:"43"`
	KnownWidthCM    float64 `envconfig:"KNOWN_WIDTH_CM" default:"12.3"`
	MinSelfieCM     float64 `envconfig:"MIN_SELFIE_CM" default:"20"`
	MinFullBodyCM   float64 `envconfig:"MIN_FULLBODY_CM" default:"69"`
	MaxFullBodyCM   float64 `envconfig:"MAX_FULLBODY_CM" default:"140"`
}

// Worker configures the external Python detector process.
type Worker struct {
	Python  string        `envconfig:"PYTHON" default:"python3"`
	Script  string        `envconfig:"WORKER_SCRIPT" default:"python/worker.py"`
	Timeout time.Duration `envconfig:"WORKER_TIMEOUT" default:"30s"`
}

// Telemetry configures the OTLP metrics exporter.
type Telemetry struct {
	Enabled  bool   `envconfig:"OTEL_ENABLED" default:"false"`
	Endpoint string `envconfig:"OTEL_ENDPOINT"`
	Insecure bool   `envconfig:"OTEL_INSECURE" default:"true"`
}

// Config is the full process configuration, read from POSTURE_* variables.
type Config struct {
	DatabaseURL string `envconfig:"DATABASE_URL"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	Calibration Calibration `ignored:"true"`
	Worker      Worker      `ignored:"true"`
	Telemetry   Telemetry   `ignored:"true"`
}

// Load reads the configuration from the environment. Nested structs are
// processed separately so they share the flat POSTURE_ prefix, e.g.
// POSTURE_KNOWN_DISTANCE_CM.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("posture", &cfg); err != nil {
		return nil, err
	}
	if err := envconfig.Process("posture", &cfg.Calibration); err != nil {
		return nil, err
	}
	if err := envconfig.Process("posture", &cfg.Worker); err != nil {
		return nil, err
	}
	if err := envconfig.Process("posture", &cfg.Telemetry); err != nil {
		return nil, err
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = postgresURLFromEnv()
	}
	return &cfg, nil
}

// postgresURLFromEnv builds a connection string from the standard POSTGRES_*
// variables, falling back to a local embedded database file.
func postgresURLFromEnv() string {
	host := os.Getenv("POSTGRES_HOST")
	if host == "" {
		return "file:posture.db"
	}
	user := os.Getenv("POSTGRES_USER")
	pass := os.Getenv("POSTGRES_PASSWORD")
	name := os.Getenv("POSTGRES_DB")
	port := os.Getenv("POSTGRES_PORT")
	if port == "" {
		port = "5432"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s", user, pass, host, port, name)
}
