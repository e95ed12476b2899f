package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/gitrdm/joltage/internal/config"
	"github.com/gitrdm/joltage/internal/puzzle"
	"github.com/gitrdm/joltage/internal/telemetry"
	"github.com/gitrdm/joltage/pkg/joltage"
)

var errMachinesFailed = errors.New("some machines could not be solved")

func runSolve(cmd *cobra.Command, opts *solveOptions, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}

	logger, err := telemetry.NewLogger(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	logger = logger.With("run_id", uuid.NewString())

	providers, err := telemetry.Init(ctx, cfg.Telemetry, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown failed", "error", err)
		}
	}()

	var srv *http.Server
	if cfg.Telemetry.MetricsAddr != "" && providers.MetricsHandler != nil {
		srv = serveMetrics(cfg.Telemetry.MetricsAddr, providers.MetricsHandler, logger)
	}

	machines, err := readManuals(ctx, cmd.InOrStdin(), args)
	if err != nil {
		return err
	}
	logger.Info("manuals parsed", "files", max(len(args), 1), "machines", len(machines))

	results, err := joltage.SolveAll(ctx, machines,
		joltage.WithWorkers(cfg.Workers),
		joltage.WithCrossCheck(cfg.Solver.CrossCheck),
		joltage.WithSolverOptions(append(cfg.SolverOptions(), joltage.WithLogger(logger))...),
	)
	if err != nil {
		return err
	}

	totals := report(cmd.OutOrStdout(), results, opts.showPlan)
	for _, r := range results {
		if r.Err != nil {
			logger.Error("machine failed", "machine", r.Index, "error", r.Err)
		}
	}

	if srv != nil {
		logger.Info("serving metrics until interrupted", "addr", srv.Addr)
		<-ctx.Done()
		stopMetrics(context.Background(), srv, logger)
	}

	if totals.Failed > 0 {
		return fmt.Errorf("%w: %d of %d", errMachinesFailed, totals.Failed, len(results))
	}
	return nil
}

// loadConfig reads the config file and applies the flags the user set on
// top of it.
func loadConfig(cmd *cobra.Command, opts *solveOptions) (config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return cfg, err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Log.Level = opts.logLevel
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = opts.logFormat
	}
	if flags.Changed("workers") {
		cfg.Workers = opts.workers
	}
	if flags.Changed("brute-force-max-buttons") {
		cfg.Solver.BruteForceMaxButtons = opts.bruteForceMax
	}
	if flags.Changed("cross-check") {
		cfg.Solver.CrossCheck = opts.crossCheck
	}
	if flags.Changed("trace-exporter") {
		cfg.Telemetry.TraceExporter = opts.traceExporter
	}
	if flags.Changed("metric-exporter") {
		cfg.Telemetry.MetricExporter = opts.metricExporter
	}
	if flags.Changed("metrics-addr") {
		cfg.Telemetry.MetricsAddr = opts.metricsAddr
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// readManuals parses every file concurrently and returns the machines in
// argument order. With no files it reads stdin.
func readManuals(ctx context.Context, stdin io.Reader, paths []string) ([]joltage.Machine, error) {
	if len(paths) == 0 {
		machines, err := puzzle.Parse(stdin)
		if err != nil {
			return nil, fmt.Errorf("stdin: %w", err)
		}
		return machines, nil
	}

	parsed := make([][]joltage.Machine, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()

			machines, err := puzzle.Parse(f)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			parsed[i] = machines
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []joltage.Machine
	for _, ms := range parsed {
		all = append(all, ms...)
	}
	return all, nil
}

func report(w io.Writer, results []joltage.Result, showPlan bool) joltage.Totals {
	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(w, "machine %d: error: %v\n", r.Index+1, r.Err)
			continue
		}
		fmt.Fprintf(w, "machine %d: lights=%s presses=%s solver=%s\n",
			r.Index+1, r.Toggles, r.Presses, r.Solver)
		if showPlan && r.Plan != nil {
			fmt.Fprintf(w, "  plan %v\n", r.Plan)
		}
	}

	totals := joltage.Sum(results)
	fmt.Fprintf(w, "lights total: %d\n", totals.Toggles)
	fmt.Fprintf(w, "presses total: %d\n", totals.Presses)
	if totals.Impossible > 0 {
		fmt.Fprintf(w, "impossible: %d\n", totals.Impossible)
	}
	if totals.UnreachableLights > 0 {
		fmt.Fprintf(w, "unreachable lights: %d\n", totals.UnreachableLights)
	}
	return totals
}

func serveMetrics(addr string, handler http.Handler, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", "error", err)
		}
	}()
	return srv
}

// stopMetrics gives in-flight scrapes up to five seconds to finish.
func stopMetrics(ctx context.Context, srv *http.Server, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn("metrics server shutdown failed", "addr", srv.Addr, "error", err)
	}
}
