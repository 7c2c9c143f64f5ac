package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 3, cfg.Estimation.UncertaintyQubits)
	assert.Equal(t, 6, cfg.Estimation.EvaluationQubits)
	assert.Equal(t, 0.25, cfg.Estimation.PayoffApproxScale)
	assert.Equal(t, 1.0, cfg.Estimation.DeltaApproxScale)
	assert.Equal(t, BackendAnalytic, cfg.Estimator.Backend)
	assert.Equal(t, CodecJSON, cfg.Estimator.Codec)
	assert.Equal(t, 60*time.Second, cfg.Estimator.Timeout)
	assert.Equal(t, 8090, cfg.Estimator.Port)
	assert.Equal(t, "png", cfg.PlotFormat)
	assert.True(t, filepath.IsAbs(cfg.PlotDir))
	assert.Empty(t, cfg.HistoryDB)
	assert.Nil(t, cfg.Artifacts)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("UNCERTAINTY_QUBITS", "4")
	t.Setenv("EVALUATION_QUBITS", "8")
	t.Setenv("PAYOFF_APPROX_SCALE", "0.1")
	t.Setenv("ESTIMATOR_BACKEND", "REMOTE")
	t.Setenv("ESTIMATOR_URL", "http://estimator:9000/")
	t.Setenv("ESTIMATOR_CODEC", "msgpack")
	t.Setenv("ESTIMATOR_TIMEOUT", "5s")
	t.Setenv("PLOT_FORMAT", "svg")
	t.Setenv("HISTORY_DB", "/tmp/runs.db")
	t.Setenv("R2_ENDPOINT", "https://account.r2.cloudflarestorage.com")
	t.Setenv("R2_BUCKET", "charts")
	t.Setenv("R2_ACCESS_KEY_ID", "key")
	t.Setenv("R2_SECRET_ACCESS_KEY", "secret")
	t.Setenv("R2_RETENTION_RUNS", "25")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 4, cfg.Estimation.UncertaintyQubits)
	assert.Equal(t, 8, cfg.Estimation.EvaluationQubits)
	assert.Equal(t, 0.1, cfg.Estimation.PayoffApproxScale)
	assert.Equal(t, BackendRemote, cfg.Estimator.Backend)
	assert.Equal(t, "http://estimator:9000", cfg.Estimator.URL)
	assert.Equal(t, CodecMsgpack, cfg.Estimator.Codec)
	assert.Equal(t, 5*time.Second, cfg.Estimator.Timeout)
	assert.Equal(t, "svg", cfg.PlotFormat)
	assert.Equal(t, "/tmp/runs.db", cfg.HistoryDB)
	require.NotNil(t, cfg.Artifacts)
	assert.Equal(t, "charts", cfg.Artifacts.Bucket)
	assert.Equal(t, "auto", cfg.Artifacts.Region)
	assert.Equal(t, 25, cfg.Artifacts.RetentionRuns)
}

func TestLoad_InvalidNumbersFallBackToDefaults(t *testing.T) {
	t.Setenv("UNCERTAINTY_QUBITS", "three")
	t.Setenv("PAYOFF_APPROX_SCALE", "quarter")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Estimation.UncertaintyQubits)
	assert.Equal(t, 0.25, cfg.Estimation.PayoffApproxScale)
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"too many uncertainty qubits", "UNCERTAINTY_QUBITS", "11"},
		{"zero evaluation qubits", "EVALUATION_QUBITS", "0"},
		{"approx scale above one", "PAYOFF_APPROX_SCALE", "1.5"},
		{"negative delta scale", "DELTA_APPROX_SCALE", "-1"},
		{"unknown backend", "ESTIMATOR_BACKEND", "qpu"},
		{"unknown codec", "ESTIMATOR_CODEC", "xml"},
		{"unknown plot format", "PLOT_FORMAT", "gif"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoad_ArtifactsRequireCredentials(t *testing.T) {
	t.Setenv("R2_ENDPOINT", "https://account.r2.cloudflarestorage.com")
	t.Setenv("R2_BUCKET", "charts")

	_, err := Load()
	assert.ErrorContains(t, err, "R2_ACCESS_KEY_ID")
}

func TestLoad_NegativeRetention(t *testing.T) {
	t.Setenv("R2_ENDPOINT", "https://account.r2.cloudflarestorage.com")
	t.Setenv("R2_BUCKET", "charts")
	t.Setenv("R2_ACCESS_KEY_ID", "key")
	t.Setenv("R2_SECRET_ACCESS_KEY", "secret")
	t.Setenv("R2_RETENTION_RUNS", "-1")

	_, err := Load()
	assert.ErrorContains(t, err, "R2_RETENTION_RUNS")
}
