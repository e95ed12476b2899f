package main

import (
	"github.com/spf13/cobra"

	"github.com/gitrdm/joltage/pkg/joltage"
)

// rootOptions holds the flags shared by every subcommand.
type rootOptions struct {
	configPath string
	logLevel   string
	logFormat  string
	workers    int
}

// solveOptions holds the flags of the solve command.
type solveOptions struct {
	*rootOptions
	crossCheck     bool
	bruteForceMax  int
	traceExporter  string
	metricExporter string
	metricsAddr    string
	showPlan       bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "joltage",
		Short: "Minimum button presses for factory machines",
		Long: `joltage reads factory manuals, one machine per line:

  [.##.] (3) (1,3) (2) (2,3) (0,2) (0,1) {3,5,4,7}

and reports, per machine, the fewest presses that light the indicator
diagram and the fewest presses that drive every counter to its target.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "", "log format (text, json)")
	rootCmd.PersistentFlags().IntVarP(&opts.workers, "workers", "w", 0, "machines solved concurrently (0 = one per CPU)")

	rootCmd.AddCommand(newSolveCmd(opts))
	return rootCmd
}

func newSolveCmd(root *rootOptions) *cobra.Command {
	opts := &solveOptions{rootOptions: root}

	cmd := &cobra.Command{
		Use:   "solve [manual...]",
		Short: "Solve every machine in the given manuals (stdin when none)",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSolve(cmd, opts, args)
		},
	}

	cmd.Flags().BoolVar(&opts.crossCheck, "cross-check", false, "re-solve every machine by brute force and fail on disagreement")
	cmd.Flags().IntVar(&opts.bruteForceMax, "brute-force-max-buttons", joltage.DefaultBruteForceThreshold, "largest button count solved by brute force (-1 disables)")
	cmd.Flags().StringVar(&opts.traceExporter, "trace-exporter", "", "trace exporter (none, stdout, otlp)")
	cmd.Flags().StringVar(&opts.metricExporter, "metric-exporter", "", "metric exporter (none, stdout, prometheus)")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "serve /metrics on this address and wait for interrupt after solving")
	cmd.Flags().BoolVar(&opts.showPlan, "plan", false, "print the press count of every button")
	return cmd
}
