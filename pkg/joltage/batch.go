package joltage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/gitrdm/joltage/internal/parallel"
)

// Machine is one entry of a factory manual: an optional indicator-light
// diagram, the buttons, and the joltage targets.
type Machine struct {
	// Lights is the indicator diagram, light i on iff Lights[i]. Nil when the
	// manual line has no diagram.
	Lights []bool

	// Buttons lists, per button, the counters (and lights) it is wired to.
	Buttons [][]int

	// Joltages holds one target per counter.
	Joltages []int
}

// LightMask packs the indicator diagram into a bitmask, light i at bit i.
func (m Machine) LightMask() uint64 {
	var mask uint64
	for i, on := range m.Lights {
		if on {
			mask |= 1 << uint(i)
		}
	}
	return mask
}

// Result is the outcome of solving one machine in a batch.
type Result struct {
	// Index is the machine's position in the batch.
	Index int

	// Solver names the implementation that produced Presses.
	Solver string

	// Presses is the minimum joltage cost.
	Presses Cost

	// Plan is the per-button press count realising Presses; nil when the
	// machine is impossible or failed.
	Plan []int

	// Toggles is the minimum light cost; Impossible when the machine has no
	// indicator diagram or its pattern cannot be reached.
	Toggles Cost

	// HasLights reports whether the machine has an indicator diagram.
	HasLights bool

	// Err is set when the machine could not be solved.
	Err error
}

// Totals sums the per-machine results of a batch. Machines that failed or
// are impossible are counted separately and excluded from the sums.
type Totals struct {
	Presses Cost
	Toggles Cost

	// Impossible counts machines whose joltage targets are unreachable.
	Impossible int

	// UnreachableLights counts machines with a diagram no presses produce.
	UnreachableLights int

	Failed int
}

// Sum aggregates results.
func Sum(results []Result) Totals {
	var t Totals
	for _, r := range results {
		if r.Err != nil {
			t.Failed++
			continue
		}
		if r.Presses.IsImpossible() {
			t.Impossible++
		} else {
			t.Presses += r.Presses
		}
		switch {
		case !r.Toggles.IsImpossible():
			t.Toggles += r.Toggles
		case r.HasLights:
			t.UnreachableLights++
		}
	}
	return t
}

// BatchOption configures SolveAll.
type BatchOption func(*batchConfig)

type batchConfig struct {
	workers    int
	crossCheck bool
	solverOpts []Option
}

// WithWorkers bounds the number of machines solved at once. Values <= 0 use
// one worker per CPU.
func WithWorkers(n int) BatchOption {
	return func(c *batchConfig) { c.workers = n }
}

// WithCrossCheck re-solves every machine with the brute-force solver and
// reports ErrSolverMismatch when the answers differ. Machines whose brute
// force search exceeds its budget are not compared.
func WithCrossCheck(enabled bool) BatchOption {
	return func(c *batchConfig) { c.crossCheck = enabled }
}

// WithSolverOptions passes options to every per-machine solver.
func WithSolverOptions(opts ...Option) BatchOption {
	return func(c *batchConfig) { c.solverOpts = append(c.solverOpts, opts...) }
}

// SolveAll solves every machine on a bounded worker pool. Each machine gets
// its own solver, so no state is shared between tasks. Per-machine failures
// are reported in Result.Err; the returned error is non-nil only when the
// batch was cancelled before every machine was scheduled.
func SolveAll(ctx context.Context, machines []Machine, opts ...BatchOption) ([]Result, error) {
	cfg := &batchConfig{}
	for _, o := range opts {
		if o != nil {
			o(cfg)
		}
	}
	logger := buildConfig(cfg.solverOpts).logger

	ctx, span := tracer.Start(ctx, "joltage.SolveAll",
		trace.WithAttributes(attribute.Int("joltage.machines", len(machines))),
	)
	defer span.End()

	pool := parallel.NewWorkerPool(cfg.workers)
	defer pool.Shutdown()

	results := make([]Result, len(machines))
	var submitErr error
	for i := range machines {
		err := pool.Submit(ctx, func() {
			results[i] = solveMachine(ctx, i, machines[i], cfg)
		})
		if err != nil {
			submitErr = fmt.Errorf("schedule machine %d: %w", i, err)
			for j := i; j < len(machines); j++ {
				results[j] = Result{Index: j, Presses: Impossible, Toggles: Impossible, Err: err}
			}
			break
		}
	}
	pool.Wait()

	totals := Sum(results)
	recordBatch(ctx, len(machines), totals.Failed)
	span.SetAttributes(
		attribute.Int64("joltage.total_presses", int64(totals.Presses)),
		attribute.Int("joltage.failed", totals.Failed),
	)
	if submitErr != nil {
		span.RecordError(submitErr)
		span.SetStatus(codes.Error, submitErr.Error())
	}
	logger.InfoContext(ctx, "batch solved",
		slog.Int("machines", len(machines)),
		slog.Int("workers", pool.Workers()),
		slog.Int64("presses", int64(totals.Presses)),
		slog.Int64("toggles", int64(totals.Toggles)),
		slog.Int("impossible", totals.Impossible),
		slog.Int("unreachable_lights", totals.UnreachableLights),
		slog.Int("failed", totals.Failed),
	)
	return results, submitErr
}

func solveMachine(ctx context.Context, i int, m Machine, cfg *batchConfig) Result {
	r := Result{Index: i, Presses: Impossible, Toggles: Impossible}

	if m.Lights != nil {
		r.HasLights = true
		toggles, err := MinToggles(m.Buttons, len(m.Lights), m.LightMask())
		if err != nil {
			r.Err = fmt.Errorf("machine %d lights: %w", i, err)
			return r
		}
		r.Toggles = toggles
	}

	s, err := New(m.Buttons, len(m.Joltages), cfg.solverOpts...)
	if err != nil {
		r.Err = fmt.Errorf("machine %d: %w", i, err)
		return r
	}
	r.Solver = s.Name()
	plan, err := s.Plan(ctx, m.Joltages)
	if err != nil {
		r.Err = fmt.Errorf("machine %d: %w", i, err)
		return r
	}
	r.Presses, r.Plan = plan.Cost, plan.Presses

	if cfg.crossCheck {
		if err := crossCheck(ctx, m, r.Presses, cfg.solverOpts); err != nil {
			r.Err = fmt.Errorf("machine %d: %w", i, err)
		}
	}
	return r
}

// crossCheck re-solves m with the brute-force solver and compares costs.
func crossCheck(ctx context.Context, m Machine, want Cost, opts []Option) error {
	bf, err := NewBruteForceSolver(m.Buttons, len(m.Joltages), opts...)
	if err != nil {
		return err
	}
	got, err := bf.Solve(ctx, m.Joltages)
	if errors.Is(err, ErrSearchLimitReached) {
		return nil
	}
	if err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("%w: brute force %s, selected solver %s", ErrSolverMismatch, got, want)
	}
	return nil
}
