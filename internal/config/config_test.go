package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "joltage.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := writeFile(t, `
workers: 3
solver:
  brute_force_max_buttons: 4
  cross_check: true
log:
  level: debug
  format: json
telemetry:
  metric_exporter: prometheus
  metrics_addr: "127.0.0.1:9464"
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, 4, cfg.Solver.BruteForceMaxButtons)
	assert.True(t, cfg.Solver.CrossCheck)
	assert.Equal(t, Default().Solver.BruteForceBudget, cfg.Solver.BruteForceBudget)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "prometheus", cfg.Telemetry.MetricExporter)
	assert.Equal(t, "none", cfg.Telemetry.TraceExporter)
	assert.Len(t, cfg.SolverOptions(), 2)
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"negative workers", "workers: -1\n"},
		{"unknown log level", "log:\n  level: loud\n"},
		{"unknown exporter", "telemetry:\n  trace_exporter: zipkin\n"},
		{"zero budget", "solver:\n  brute_force_budget: 0\n"},
		{"threshold too large", "solver:\n  brute_force_max_buttons: 40\n"},
		{"bad metrics addr", "telemetry:\n  metric_exporter: prometheus\n  metrics_addr: \"not an address\"\n"},
		{"metrics addr without prometheus", "telemetry:\n  metric_exporter: stdout\n  metrics_addr: \"127.0.0.1:9464\"\n"},
		{"metrics addr with default exporter", "telemetry:\n  metrics_addr: \"127.0.0.1:9464\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.body))
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_MalformedYAML(t *testing.T) {
	_, err := Load(writeFile(t, "workers: [1, 2\n"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalid)
}
