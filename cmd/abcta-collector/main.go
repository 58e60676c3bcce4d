// Command abcta-collector runs the analytics collector from environment
// configuration only, applying pending migrations at startup.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/emiliopalmerini/abcta/internal/cli"
	"github.com/emiliopalmerini/abcta/internal/infrastructure/config"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadCollector()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	exp, err := config.Experiment(cfg.ExperimentConfig)
	if err != nil {
		return err
	}
	exp.Endpoint = cfg.Endpoint

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return cli.RunCollector(ctx, cfg, exp, true, logger, os.Stdout)
}
