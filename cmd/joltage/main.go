// Command joltage solves factory manuals: for every machine it reports the
// fewest presses that light the indicator diagram and the fewest presses that
// reach the joltage targets exactly.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
