// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Estimator backends
const (
	BackendAnalytic = "analytic"
	BackendRemote   = "remote"
)

// Wire codecs for the remote estimator
const (
	CodecJSON    = "json"
	CodecMsgpack = "msgpack"
)

// Config holds application configuration
type Config struct {
	LogLevel  string
	LogPretty bool

	Estimation EstimationConfig
	Estimator  EstimatorConfig

	PlotDir    string // Charts are written under PlotDir/<run-id>/ (empty disables plotting)
	PlotFormat string // png, svg or pdf

	HistoryDB string // SQLite run journal path (empty disables the journal)

	Artifacts *ArtifactsConfig // nil when uploads are not configured
}

// EstimationConfig holds the register sizes and encoder fidelity knobs
type EstimationConfig struct {
	UncertaintyQubits int
	EvaluationQubits  int
	PayoffApproxScale float64
	DeltaApproxScale  float64
}

// EstimatorConfig selects and configures the amplitude estimation backend
type EstimatorConfig struct {
	Backend string
	URL     string
	Codec   string
	Timeout time.Duration
	Port    int // Listen port for the estimation service
}

// ArtifactsConfig holds S3-compatible (Cloudflare R2) upload settings
type ArtifactsConfig struct {
	Endpoint        string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	RetentionRuns   int // Newest runs kept in the bucket (0 keeps every run)
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogPretty: getEnvAsBool("LOG_PRETTY", true),
		Estimation: EstimationConfig{
			UncertaintyQubits: getEnvAsInt("UNCERTAINTY_QUBITS", 3),
			EvaluationQubits:  getEnvAsInt("EVALUATION_QUBITS", 6),
			PayoffApproxScale: getEnvAsFloat("PAYOFF_APPROX_SCALE", 0.25),
			DeltaApproxScale:  getEnvAsFloat("DELTA_APPROX_SCALE", 1),
		},
		Estimator: EstimatorConfig{
			Backend: strings.ToLower(getEnv("ESTIMATOR_BACKEND", BackendAnalytic)),
			URL:     strings.TrimRight(getEnv("ESTIMATOR_URL", "http://localhost:8090"), "/"),
			Codec:   strings.ToLower(getEnv("ESTIMATOR_CODEC", CodecJSON)),
			Timeout: getEnvAsDuration("ESTIMATOR_TIMEOUT", 60*time.Second),
			Port:    getEnvAsInt("ESTIMATOR_PORT", 8090),
		},
		PlotDir:    getEnv("PLOT_DIR", "plots"),
		PlotFormat: strings.ToLower(getEnv("PLOT_FORMAT", "png")),
		HistoryDB:  getEnv("HISTORY_DB", ""),
		Artifacts:  loadArtifactsConfig(),
	}

	if cfg.PlotDir != "" {
		absPlotDir, err := filepath.Abs(cfg.PlotDir)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve plot directory path: %w", err)
		}
		cfg.PlotDir = absPlotDir
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadArtifactsConfig returns nil unless both an endpoint and a bucket are set
func loadArtifactsConfig() *ArtifactsConfig {
	endpoint := getEnv("R2_ENDPOINT", "")
	bucket := getEnv("R2_BUCKET", "")
	if endpoint == "" || bucket == "" {
		return nil
	}
	return &ArtifactsConfig{
		Endpoint:        endpoint,
		Bucket:          bucket,
		AccessKeyID:     getEnv("R2_ACCESS_KEY_ID", ""),
		SecretAccessKey: getEnv("R2_SECRET_ACCESS_KEY", ""),
		Region:          getEnv("R2_REGION", "auto"),
		RetentionRuns:   getEnvAsInt("R2_RETENTION_RUNS", 0),
	}
}

// Validate checks that configured values are usable
func (c *Config) Validate() error {
	e := c.Estimation
	if e.UncertaintyQubits < 1 || e.UncertaintyQubits > 10 {
		return fmt.Errorf("UNCERTAINTY_QUBITS must be between 1 and 10, got %d", e.UncertaintyQubits)
	}
	if e.EvaluationQubits < 1 || e.EvaluationQubits > 12 {
		return fmt.Errorf("EVALUATION_QUBITS must be between 1 and 12, got %d", e.EvaluationQubits)
	}
	if e.PayoffApproxScale <= 0 || e.PayoffApproxScale > 1 {
		return fmt.Errorf("PAYOFF_APPROX_SCALE must be in (0, 1], got %v", e.PayoffApproxScale)
	}
	if e.DeltaApproxScale <= 0 || e.DeltaApproxScale > 1 {
		return fmt.Errorf("DELTA_APPROX_SCALE must be in (0, 1], got %v", e.DeltaApproxScale)
	}

	switch c.Estimator.Backend {
	case BackendAnalytic:
	case BackendRemote:
		if c.Estimator.URL == "" {
			return fmt.Errorf("ESTIMATOR_URL is required for the remote backend")
		}
	default:
		return fmt.Errorf("unknown ESTIMATOR_BACKEND %q (must be %s or %s)", c.Estimator.Backend, BackendAnalytic, BackendRemote)
	}

	switch c.Estimator.Codec {
	case CodecJSON, CodecMsgpack:
	default:
		return fmt.Errorf("unknown ESTIMATOR_CODEC %q (must be %s or %s)", c.Estimator.Codec, CodecJSON, CodecMsgpack)
	}

	switch c.PlotFormat {
	case "png", "svg", "pdf":
	default:
		return fmt.Errorf("unknown PLOT_FORMAT %q (must be png, svg or pdf)", c.PlotFormat)
	}

	if c.Artifacts != nil && (c.Artifacts.AccessKeyID == "" || c.Artifacts.SecretAccessKey == "") {
		return fmt.Errorf("R2_ACCESS_KEY_ID and R2_SECRET_ACCESS_KEY are required when R2_ENDPOINT is set")
	}
	if c.Artifacts != nil && c.Artifacts.RetentionRuns < 0 {
		return fmt.Errorf("R2_RETENTION_RUNS must not be negative, got %d", c.Artifacts.RetentionRuns)
	}

	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
