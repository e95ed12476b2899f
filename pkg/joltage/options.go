package joltage

import (
	"log/slog"
)

// Option configures New and the solver constructors.
type Option func(*config)

type config struct {
	logger              *slog.Logger
	bruteForceThreshold int
	bruteForceBudget    int
}

// DefaultBruteForceThreshold is the largest button count New hands to the
// brute-force solver.
const DefaultBruteForceThreshold = 2

// DefaultBruteForceBudget is the node budget of the brute-force solver.
const DefaultBruteForceBudget = 5_000_000

func defaultConfig() *config {
	return &config{
		logger:              slog.New(slog.DiscardHandler),
		bruteForceThreshold: DefaultBruteForceThreshold,
		bruteForceBudget:    DefaultBruteForceBudget,
	}
}

func buildConfig(opts []Option) *config {
	cfg := defaultConfig()
	for _, o := range opts {
		if o != nil {
			o(cfg)
		}
	}
	return cfg
}

// WithLogger sets the structured logger used for per-solve debug records.
// A nil logger is ignored.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithBruteForceThreshold makes New select the brute-force solver for
// machines with at most n buttons. n < 0 disables brute force entirely.
func WithBruteForceThreshold(n int) Option {
	return func(c *config) { c.bruteForceThreshold = n }
}

// WithBruteForceBudget caps the number of search nodes the brute-force
// solver may expand. Values <= 0 keep the default.
func WithBruteForceBudget(nodes int) Option {
	return func(c *config) {
		if nodes > 0 {
			c.bruteForceBudget = nodes
		}
	}
}
