package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/shrtyk/ledger-coordinator/api"
	"github.com/shrtyk/ledger-coordinator/config"
	"github.com/shrtyk/ledger-coordinator/coordinator"
	"github.com/shrtyk/ledger-coordinator/pkg/logger"
)

var (
	cfgPath string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "ledgerctl",
	Short: "Client-side coordinator for the replicated bank ledger",
	Long: `ledgerctl talks to a cluster of consensus nodes holding a replicated
bank ledger. It routes deposits, withdrawals and transfers to the node
that may legally accept them, switches the cluster between consensus
algorithms and aggregates the per-node protocol logs.`,
	Version: "1.0.0",
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to a config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose coordinator logging")
}

// cliLogger returns a debug logger under --verbose and a silent one
// otherwise, so command output stays clean.
func cliLogger() *slog.Logger {
	if verbose {
		return logger.NewLogger(logger.Dev, false)
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// withCoordinator builds and starts a coordinator, runs fn against it and
// tears it down. One-shot commands share this lifecycle.
func withCoordinator(fn func(ctx context.Context, c api.Coordinator) error) error {
	cfg, err := config.Load(cfgPath, false)
	if err != nil {
		return err
	}

	coord, err := coordinator.NewBuilder().
		WithConfig(cfg).
		WithLogger(cliLogger()).
		Build()
	if err != nil {
		return err
	}
	if err := coord.Start(); err != nil {
		return err
	}
	defer func() { _ = coord.Stop() }()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return fn(ctx, coord)
}
