package joltage

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Package-level tracer and meter for solver operations.
var (
	tracer = otel.Tracer("joltage")
	meter  = otel.Meter("joltage")
)

var (
	solvesTotal     metric.Int64Counter
	memoHits        metric.Int64Counter
	memoMisses      metric.Int64Counter
	searchNodes     metric.Int64Counter
	solveDuration   metric.Float64Histogram
	batchesTotal    metric.Int64Counter
	metricsInitOnce sync.Once
	metricsInitErr  error
)

// initMetrics registers the instruments once. Safe to call repeatedly.
func initMetrics() error {
	metricsInitOnce.Do(func() {
		var err error

		if solvesTotal, err = meter.Int64Counter(
			"joltage_solves_total",
			metric.WithDescription("Top-level solves by solver and outcome"),
		); err != nil {
			metricsInitErr = err
			return
		}
		if memoHits, err = meter.Int64Counter(
			"joltage_memo_hits_total",
			metric.WithDescription("Residual vectors answered from the memo"),
		); err != nil {
			metricsInitErr = err
			return
		}
		if memoMisses, err = meter.Int64Counter(
			"joltage_memo_misses_total",
			metric.WithDescription("Residual vectors solved by a GF(2) enumeration"),
		); err != nil {
			metricsInitErr = err
			return
		}
		if searchNodes, err = meter.Int64Counter(
			"joltage_bruteforce_nodes_total",
			metric.WithDescription("Nodes expanded by the brute-force solver"),
		); err != nil {
			metricsInitErr = err
			return
		}
		if solveDuration, err = meter.Float64Histogram(
			"joltage_solve_duration_seconds",
			metric.WithDescription("Duration of top-level solves"),
			metric.WithUnit("s"),
		); err != nil {
			metricsInitErr = err
			return
		}
		if batchesTotal, err = meter.Int64Counter(
			"joltage_batches_total",
			metric.WithDescription("Batches of machines solved"),
		); err != nil {
			metricsInitErr = err
			return
		}
	})
	return metricsInitErr
}

func outcome(c Cost, err error) string {
	switch {
	case err != nil:
		return "error"
	case c.IsImpossible():
		return "impossible"
	default:
		return "solved"
	}
}

// recordSolve records the outcome and latency of one top-level solve.
func recordSolve(ctx context.Context, solver string, c Cost, err error, elapsed time.Duration) {
	if initMetrics() != nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("solver", solver),
		attribute.String("outcome", outcome(c, err)),
	)
	solvesTotal.Add(ctx, 1, attrs)
	solveDuration.Record(ctx, elapsed.Seconds(), attrs)
}

func recordMemo(ctx context.Context, hits, misses int64) {
	if initMetrics() != nil {
		return
	}
	memoHits.Add(ctx, hits)
	memoMisses.Add(ctx, misses)
}

func recordNodes(ctx context.Context, nodes int64) {
	if initMetrics() != nil {
		return
	}
	searchNodes.Add(ctx, nodes)
}

func recordBatch(ctx context.Context, machines int, failed int) {
	if initMetrics() != nil {
		return
	}
	batchesTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.Int("machines", machines),
		attribute.Bool("failed", failed > 0),
	))
}

// startSolveSpan creates a span for a top-level solve.
func startSolveSpan(ctx context.Context, name string, counters, buttons int) (context.Context, trace.Span) {
	return tracer.Start(ctx, name,
		trace.WithAttributes(
			attribute.Int("joltage.counters", counters),
			attribute.Int("joltage.buttons", buttons),
		),
	)
}

// endSolveSpan records the result on span and ends it.
func endSolveSpan(span trace.Span, c Cost, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetAttributes(attribute.Int64("joltage.cost", int64(c)))
	}
	span.End()
}
