package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tilsley/ghgrab/apps/ghgrab/internal/cli"
	"github.com/tilsley/ghgrab/apps/ghgrab/internal/telemetry"
	"github.com/tilsley/ghgrab/pkg/logging"
)

func main() {
	log := logging.New()

	// Interrupt cancels the context: in-flight fetches are abandoned,
	// fully-written files stay on disk.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdown, err := telemetry.Setup(ctx)
	if err != nil {
		log.Error("telemetry init failed", "error", err)
		os.Exit(1)
	}

	root := cli.NewRootCmd(log)
	runErr := root.ExecuteContext(ctx)

	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := shutdown(flushCtx); err != nil {
		log.Error("telemetry shutdown failed", "error", err)
	}
	cancel()

	if runErr != nil {
		fmt.Fprintln(os.Stderr, runErr)
		os.Exit(1)
	}
}
