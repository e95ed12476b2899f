// Package config loads the joltage CLI configuration from YAML and validates
// it. Every field has a default, so an absent file is not an error.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/gitrdm/joltage/pkg/joltage"
)

// Config is the top-level configuration.
//
// Thread Safety: Safe to read concurrently. Not safe to modify after creation.
type Config struct {
	// Solver contains solver selection settings.
	Solver SolverConfig `yaml:"solver"`

	// Workers bounds concurrent machine solves; 0 means one per CPU.
	Workers int `yaml:"workers" validate:"gte=0,lte=1024"`

	// Log contains logging settings.
	Log LogConfig `yaml:"log"`

	// Telemetry contains tracing and metrics exporter settings.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// SolverConfig contains solver settings.
type SolverConfig struct {
	BruteForceMaxButtons int  `yaml:"brute_force_max_buttons" validate:"gte=-1,lte=16"`
	BruteForceBudget     int  `yaml:"brute_force_budget" validate:"gt=0"`
	CrossCheck           bool `yaml:"cross_check"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

// TelemetryConfig contains exporter settings. MetricsAddr is only valid with
// the prometheus metric exporter.
type TelemetryConfig struct {
	TraceExporter  string `yaml:"trace_exporter" validate:"oneof=none stdout otlp"`
	MetricExporter string `yaml:"metric_exporter" validate:"oneof=none stdout prometheus"`
	OTLPEndpoint   string `yaml:"otlp_endpoint" validate:"required_if=TraceExporter otlp"`
	MetricsAddr    string `yaml:"metrics_addr" validate:"omitempty,hostname_port"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Solver: SolverConfig{
			BruteForceMaxButtons: joltage.DefaultBruteForceThreshold,
			BruteForceBudget:     joltage.DefaultBruteForceBudget,
		},
		Workers: 0,
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Telemetry: TelemetryConfig{
			TraceExporter:  "none",
			MetricExporter: "none",
			OTLPEndpoint:   "localhost:4317",
		},
	}
}

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("config: invalid")

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterStructValidation(validateTelemetry, TelemetryConfig{})
	return v
}

// validateTelemetry rejects a metrics listener that would have nothing to
// serve.
func validateTelemetry(sl validator.StructLevel) {
	t := sl.Current().Interface().(TelemetryConfig)
	if t.MetricsAddr != "" && t.MetricExporter != "prometheus" {
		sl.ReportError(t.MetricsAddr, "MetricsAddr", "MetricsAddr", "requires_prometheus", t.MetricExporter)
	}
}

// Validate checks every field constraint.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// SolverOptions converts the solver settings to joltage options.
func (c Config) SolverOptions() []joltage.Option {
	return []joltage.Option{
		joltage.WithBruteForceThreshold(c.Solver.BruteForceMaxButtons),
		joltage.WithBruteForceBudget(c.Solver.BruteForceBudget),
	}
}

// Load reads path over the defaults and validates the result. An empty path
// returns the validated defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, cfg.Validate()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}
