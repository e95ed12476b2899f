// Package joltage computes the fewest button presses that drive a vector of
// counters to exact targets, where every press adds one to each counter the
// button is wired to.
//
// Two solvers implement the Solver interface: LinearSolver peels the press
// counts one binary digit at a time, solving a GF(2) system per bit-plane,
// and BruteForceSolver enumerates press counts exhaustively for very small
// machines. New picks between them when the button list is known.
package joltage

import (
	"errors"
	"strconv"
)

// Cost is a total number of button presses. Impossible marks a target that
// no non-negative combination of presses reaches.
type Cost int64

// Impossible is the cost of an unreachable target. It is never confused with
// a zero-press solution.
const Impossible Cost = -1

// IsImpossible reports whether c is the Impossible sentinel.
func (c Cost) IsImpossible() bool { return c < 0 }

// String returns the decimal cost or "impossible".
func (c Cost) String() string {
	if c.IsImpossible() {
		return "impossible"
	}
	return strconv.FormatInt(int64(c), 10)
}

// Plan is a minimum-press solution together with the per-button press counts
// that realise it. For an impossible target Cost is Impossible and Presses is
// nil.
type Plan struct {
	Cost    Cost
	Presses []int
}

// MaxJoltage bounds every target entry. Larger entries are treated as a
// runaway branch and reported as Impossible.
const MaxJoltage = 1 << 48

var (
	// ErrDimensionMismatch is returned when a target vector does not have one
	// entry per counter.
	ErrDimensionMismatch = errors.New("joltage: target length does not match counter count")

	// ErrNegativeJoltage is returned for a target with a negative entry.
	ErrNegativeJoltage = errors.New("joltage: negative target")

	// ErrSearchLimitReached is returned by the brute-force solver when its
	// node budget runs out before the search space is exhausted. No partial
	// result accompanies it.
	ErrSearchLimitReached = errors.New("joltage: search limit reached")

	// ErrSolverMismatch is returned by a cross-checked batch when the two
	// solvers disagree on a machine.
	ErrSolverMismatch = errors.New("joltage: solvers disagree")
)
