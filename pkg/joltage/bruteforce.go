package joltage

import (
	"context"
	"log/slog"
	"math/bits"
	"time"

	"github.com/gitrdm/joltage/pkg/gf2"
)

// BruteForceSolver enumerates press counts button by button. It is exact and
// only practical for machines with few buttons or small targets; it exists
// to cross-check LinearSolver and to handle trivial machines cheaply.
type BruteForceSolver struct {
	buttons     [][]int
	numCounters int
	// cover[j] is the set of counters touched by buttons j..n-1.
	cover  []uint64
	budget int
	logger *slog.Logger
}

// NewBruteForceSolver prepares an exhaustive solver. It shares the 64-counter
// and 64-button capacity limits of the GF(2) representation.
func NewBruteForceSolver(buttons [][]int, numCounters int, opts ...Option) (*BruteForceSolver, error) {
	cfg := buildConfig(opts)
	m, err := gf2.NewIncidenceMatrix(buttons, numCounters)
	if err != nil {
		return nil, err
	}

	// Deduplicate each button's counters through the incidence rows.
	sets := make([][]int, len(buttons))
	for i := 0; i < m.NumRows(); i++ {
		for r := m.Row(i); r != 0; r &= r - 1 {
			j := bits.TrailingZeros64(r)
			sets[j] = append(sets[j], i)
		}
	}

	cover := make([]uint64, len(buttons)+1)
	for j := len(buttons) - 1; j >= 0; j-- {
		cover[j] = cover[j+1]
		for _, i := range sets[j] {
			cover[j] |= 1 << uint(i)
		}
	}

	return &BruteForceSolver{
		buttons:     sets,
		numCounters: numCounters,
		cover:       cover,
		budget:      cfg.bruteForceBudget,
		logger:      cfg.logger,
	}, nil
}

// Name returns "bruteforce".
func (s *BruteForceSolver) Name() string { return "bruteforce" }

func (*BruteForceSolver) isSolver() {}

// Solve returns the minimum total presses or Impossible. It returns
// ErrSearchLimitReached, and no cost, when the node budget is exhausted.
func (s *BruteForceSolver) Solve(ctx context.Context, joltages []int) (Cost, error) {
	p, err := s.Plan(ctx, joltages)
	return p.Cost, err
}

// Plan is like Solve but also returns the per-button press counts.
func (s *BruteForceSolver) Plan(ctx context.Context, joltages []int) (Plan, error) {
	if err := validateTarget(joltages, s.numCounters); err != nil {
		return Plan{Cost: Impossible}, err
	}
	if err := ctx.Err(); err != nil {
		return Plan{Cost: Impossible}, err
	}

	ctx, span := startSolveSpan(ctx, "BruteForceSolver.Solve", s.numCounters, len(s.buttons))
	start := time.Now()

	e := &enumeration{
		ctx:       ctx,
		s:         s,
		remaining: append([]int(nil), joltages...),
		presses:   make([]int, len(s.buttons)),
		best:      Impossible,
	}
	for _, v := range joltages {
		if v > MaxJoltage {
			e.overflow = true
		}
	}
	if !e.overflow {
		e.dfs(0, 0)
	}

	plan := Plan{Cost: e.best, Presses: e.bestPresses}
	if e.err != nil {
		plan = Plan{Cost: Impossible}
	}

	elapsed := time.Since(start)
	recordNodes(ctx, e.nodes)
	recordSolve(ctx, s.Name(), plan.Cost, e.err, elapsed)
	endSolveSpan(span, plan.Cost, e.err)

	s.logger.DebugContext(ctx, "brute-force solve finished",
		slog.Int("counters", s.numCounters),
		slog.Int("buttons", len(s.buttons)),
		slog.Int64("nodes", e.nodes),
		slog.String("cost", plan.Cost.String()),
		slog.Duration("elapsed", elapsed),
	)
	return plan, e.err
}

// enumeration is the per-call state of one brute-force search.
type enumeration struct {
	ctx         context.Context
	s           *BruteForceSolver
	remaining   []int
	presses     []int
	best        Cost
	bestPresses []int
	nodes       int64
	overflow    bool
	err         error
}

func (e *enumeration) dfs(j int, spent Cost) {
	if e.err != nil {
		return
	}
	e.nodes++
	if e.nodes > int64(e.s.budget) {
		e.err = ErrSearchLimitReached
		return
	}
	if e.nodes%cancelCheckInterval == 0 {
		if err := e.ctx.Err(); err != nil {
			e.err = err
			return
		}
	}
	if !e.best.IsImpossible() && spent >= e.best {
		return
	}

	// A counter that no remaining button touches must already be satisfied.
	for i, v := range e.remaining {
		if v != 0 && e.s.cover[j]&(1<<uint(i)) == 0 {
			return
		}
	}
	if j == len(e.s.buttons) {
		e.best = spent
		e.bestPresses = append(e.bestPresses[:0], e.presses...)
		return
	}

	counters := e.s.buttons[j]
	limit := 0
	if len(counters) > 0 {
		limit = e.remaining[counters[0]]
		for _, i := range counters[1:] {
			limit = min(limit, e.remaining[i])
		}
	}

	for p := limit; p >= 0; p-- {
		for _, i := range counters {
			e.remaining[i] -= p
		}
		e.presses[j] = p
		e.dfs(j+1, spent+Cost(p))
		for _, i := range counters {
			e.remaining[i] += p
		}
	}
	e.presses[j] = 0
}
