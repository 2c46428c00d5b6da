// audit-worker cross-checks stored account balances against their event
// history, both on every ledger event and on a periodic sweep.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"finanzas/internal/cli"
	"finanzas/internal/ledger"
	"finanzas/internal/undo"
	"finanzas/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()

	logger.Info("Starting audit-worker")

	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitRepository(logger, cfg.DBPath)
	defer repo.Close()

	events := cli.InitAMQP(logger, cfg)
	if events != nil {
		defer events.Close()
	}

	service := ledger.NewService(repo, nil, undo.NewStack())
	auditor := worker.NewAuditWorker(service, events, cfg.AuditInterval)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())
		cancel()
	}()

	logger.Info("Audit worker configured",
		"sweep_interval", cfg.AuditInterval,
		"db", cfg.DBPath)

	if err := auditor.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Audit worker stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("Audit-worker shutdown complete")
}
