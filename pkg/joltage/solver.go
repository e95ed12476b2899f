package joltage

import (
	"context"
	"fmt"
	"math/bits"

	"github.com/gitrdm/joltage/pkg/gf2"
)

// Solver computes minimum-press solutions for one fixed machine. The two
// implementations are *LinearSolver and *BruteForceSolver.
type Solver interface {
	// Name identifies the implementation ("linear" or "bruteforce").
	Name() string

	// Solve returns the fewest total presses that reach joltages exactly,
	// or Impossible when no non-negative combination does.
	Solve(ctx context.Context, joltages []int) (Cost, error)

	// Plan is like Solve and also returns the press count of every button.
	Plan(ctx context.Context, joltages []int) (Plan, error)

	isSolver()
}

var (
	_ Solver = (*LinearSolver)(nil)
	_ Solver = (*BruteForceSolver)(nil)
)

// New returns a solver for buttons over numCounters counters. Machines with at
// most the brute-force threshold of buttons (see WithBruteForceThreshold) get
// a BruteForceSolver, everything else a LinearSolver.
func New(buttons [][]int, numCounters int, opts ...Option) (Solver, error) {
	cfg := buildConfig(opts)
	if len(buttons) <= cfg.bruteForceThreshold {
		return NewBruteForceSolver(buttons, numCounters, opts...)
	}
	return NewLinearSolver(buttons, numCounters, opts...)
}

// MinToggles returns the fewest presses that turn on exactly the lights in
// pattern when every press toggles the lights a button is wired to. Pressing
// a button twice cancels out, so this is a minimum-weight GF(2) solve.
func MinToggles(buttons [][]int, numLights int, pattern uint64) (Cost, error) {
	s, err := gf2.NewSolver(buttons, numLights)
	if err != nil {
		return Impossible, err
	}
	if numLights < 64 && pattern>>uint(numLights) != 0 {
		return Impossible, fmt.Errorf("%w: pattern %b has lights beyond %d", ErrDimensionMismatch, pattern, numLights)
	}
	x, ok := s.MinWeightSolution(pattern)
	if !ok {
		return Impossible, nil
	}
	return Cost(bits.OnesCount64(x)), nil
}

func validateTarget(joltages []int, numCounters int) error {
	if len(joltages) != numCounters {
		return fmt.Errorf("%w: got %d entries, want %d", ErrDimensionMismatch, len(joltages), numCounters)
	}
	for i, v := range joltages {
		if v < 0 {
			return fmt.Errorf("%w: counter %d is %d", ErrNegativeJoltage, i, v)
		}
	}
	return nil
}
