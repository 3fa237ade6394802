package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/shrtyk/ledger-coordinator/config"
	"github.com/shrtyk/ledger-coordinator/coordinator"
	"github.com/shrtyk/ledger-coordinator/pkg/apiserver"
	"github.com/shrtyk/ledger-coordinator/pkg/logger"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the coordinator with its HTTP facade until interrupted",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath, true)
		if err != nil {
			return err
		}
		if serveAddr != "" {
			cfg.HTTPAddr = serveAddr
		}
		if cfg.HTTPAddr == "" {
			cfg.HTTPAddr = ":8080"
		}

		log := logger.NewLogger(cfg.Log.Env, false)

		coord, err := coordinator.NewBuilder().
			WithConfig(cfg).
			WithLogger(log).
			Build()
		if err != nil {
			return err
		}
		if err := coord.Start(); err != nil {
			return err
		}
		defer func() { _ = coord.Stop() }()

		srv := apiserver.NewServer(cfg.HTTPAddr, coord, cfg.Cluster.Accounts, log)

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() { errCh <- srv.Run() }()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Timings.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "HTTP listen address (overrides config)")
	rootCmd.AddCommand(serveCmd)
}
