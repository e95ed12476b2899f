package joltage

import (
	"context"
	"encoding/binary"
	"log/slog"
	"math/bits"
	"time"

	"github.com/gitrdm/joltage/pkg/gf2"
)

// cancelCheckInterval is how many enumerated masks (or brute-force nodes)
// pass between context checks.
const cancelCheckInterval = 1024

// LinearSolver finds minimum-press solutions by recursion over binary digits.
//
// At each level the parity of every remaining target fixes, over GF(2), which
// buttons are pressed an odd number of times. Each such button subset is
// subtracted, the residual halved, and the higher-order digits found by
// recursing on the half-scale target:
//
//	cost(t) = min over masks m with A·m ≡ t (mod 2) of |m| + 2·cost((t - A·m)/2)
//
// Residuals strictly shrink, so recursion depth is bounded by the bit length
// of the largest target and the memo needs no depth in its key.
//
// A LinearSolver is immutable and may be shared between goroutines; every
// Solve call owns a private memo that is discarded when it returns.
type LinearSolver struct {
	gf     *gf2.Solver
	rows   []uint64
	logger *slog.Logger
}

// NewLinearSolver builds the GF(2) system for buttons over numCounters
// counters. It fails with a wrapped gf2 capacity error when either dimension
// exceeds 64.
func NewLinearSolver(buttons [][]int, numCounters int, opts ...Option) (*LinearSolver, error) {
	cfg := buildConfig(opts)
	gf, err := gf2.NewSolver(buttons, numCounters)
	if err != nil {
		return nil, err
	}
	return &LinearSolver{
		gf:     gf,
		rows:   gf.Matrix().Rows(),
		logger: cfg.logger,
	}, nil
}

// Name returns "linear".
func (s *LinearSolver) Name() string { return "linear" }

// GF2 returns the underlying reduced system.
func (s *LinearSolver) GF2() *gf2.Solver { return s.gf }

func (*LinearSolver) isSolver() {}

// Solve returns the minimum total presses reaching joltages exactly, or
// Impossible. Errors are reserved for malformed input and cancellation.
func (s *LinearSolver) Solve(ctx context.Context, joltages []int) (Cost, error) {
	p, err := s.run(ctx, joltages, false)
	return p.Cost, err
}

// Plan is like Solve but also reconstructs the per-button press counts.
func (s *LinearSolver) Plan(ctx context.Context, joltages []int) (Plan, error) {
	return s.run(ctx, joltages, true)
}

func (s *LinearSolver) run(ctx context.Context, joltages []int, withPresses bool) (Plan, error) {
	if err := validateTarget(joltages, len(s.rows)); err != nil {
		return Plan{Cost: Impossible}, err
	}
	if err := ctx.Err(); err != nil {
		return Plan{Cost: Impossible}, err
	}

	ctx, span := startSolveSpan(ctx, "LinearSolver.Solve", len(s.rows), s.gf.NumCols())
	start := time.Now()

	sr := &search{
		ctx:  ctx,
		gf:   s.gf,
		rows: s.rows,
		memo: make(map[string]memoEntry),
	}
	cost := sr.solve(joltages)
	err := sr.err

	plan := Plan{Cost: cost}
	if err != nil {
		plan.Cost = Impossible
	} else if withPresses && !cost.IsImpossible() {
		plan.Presses = sr.presses(joltages)
	}

	elapsed := time.Since(start)
	recordMemo(ctx, sr.hits, sr.misses)
	recordSolve(ctx, s.Name(), plan.Cost, err, elapsed)
	endSolveSpan(span, plan.Cost, err)

	s.logger.DebugContext(ctx, "linear solve finished",
		slog.Int("counters", len(s.rows)),
		slog.Int("buttons", s.gf.NumCols()),
		slog.Int("rank", s.gf.Rank()),
		slog.Int("memo_size", len(sr.memo)),
		slog.Int64("memo_hits", sr.hits),
		slog.String("cost", plan.Cost.String()),
		slog.Duration("elapsed", elapsed),
	)
	return plan, err
}

// memoEntry records the best cost for a residual and the button mask chosen
// at that level, so the press plan can be replayed.
type memoEntry struct {
	cost Cost
	mask uint64
}

// search is the per-call state of one top-level Solve.
type search struct {
	ctx    context.Context
	gf     *gf2.Solver
	rows   []uint64
	memo   map[string]memoEntry
	hits   int64
	misses int64
	masks  int64
	err    error
}

func (sr *search) solve(joltages []int) Cost {
	if sr.err != nil {
		return Impossible
	}

	zero := true
	for _, v := range joltages {
		if v > MaxJoltage {
			return Impossible
		}
		if v != 0 {
			zero = false
		}
	}
	if zero {
		return 0
	}

	key := memoKey(joltages)
	if e, ok := sr.memo[key]; ok {
		sr.hits++
		return e.cost
	}
	sr.misses++

	var parity uint64
	for i, v := range joltages {
		if v&1 == 1 {
			parity |= 1 << uint(i)
		}
	}

	best := memoEntry{cost: Impossible}
	next := make([]int, len(joltages))
	seq, _ := sr.gf.Solutions(parity)
enumerate:
	for mask := range seq {
		sr.masks++
		if sr.masks%cancelCheckInterval == 0 {
			if err := sr.ctx.Err(); err != nil {
				sr.err = err
				break
			}
		}
		for i, row := range sr.rows {
			p := bits.OnesCount64(mask & row)
			if p > joltages[i] || (joltages[i]-p)&1 != 0 {
				continue enumerate
			}
			next[i] = (joltages[i] - p) / 2
		}
		rec := sr.solve(next)
		if sr.err != nil {
			break
		}
		if rec.IsImpossible() {
			continue
		}
		candidate := Cost(bits.OnesCount64(mask)) + 2*rec
		if best.cost.IsImpossible() || candidate < best.cost {
			best = memoEntry{cost: candidate, mask: mask}
		}
	}
	if sr.err != nil {
		return Impossible
	}

	sr.memo[key] = best
	return best.cost
}

// presses replays the memoized masks from the top-level target downward.
// Bit d of a button's press count is its bit in the mask chosen at depth d.
func (sr *search) presses(joltages []int) []int {
	out := make([]int, sr.gf.NumCols())
	cur := append([]int(nil), joltages...)
	for depth := 0; !allZero(cur); depth++ {
		e := sr.memo[memoKey(cur)]
		for m := e.mask; m != 0; m &= m - 1 {
			out[bits.TrailingZeros64(m)] += 1 << uint(depth)
		}
		for i, row := range sr.rows {
			cur[i] = (cur[i] - bits.OnesCount64(e.mask&row)) / 2
		}
	}
	return out
}

// memoKey packs a residual vector into a compact map key.
func memoKey(v []int) string {
	buf := make([]byte, 0, len(v)*2)
	for _, x := range v {
		buf = binary.AppendUvarint(buf, uint64(x))
	}
	return string(buf)
}

func allZero(v []int) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}
