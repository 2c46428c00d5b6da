// recurrentes-worker materializes recurring charges into fixed expenses on a
// schedule. Materialization is idempotent per charge and month, so frequent
// ticks are harmless.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"finanzas/internal/cli"
	"finanzas/internal/ledger"
	"finanzas/internal/undo"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()

	logger.Info("Starting recurrentes-worker")

	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitRepository(logger, cfg.DBPath)
	defer repo.Close()

	events := cli.InitAMQP(logger, cfg)
	if events != nil {
		defer events.Close()
	}

	service := ledger.NewService(repo, events, undo.NewStack())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger.Info("Materializer configured",
		"interval", cfg.MaterializeInterval,
		"db", cfg.DBPath)

	ticker := time.NewTicker(cfg.MaterializeInterval)
	defer ticker.Stop()

	// First pass on startup so a restart never misses the current month.
	if count, err := service.MaterializeMonth(ctx, time.Now()); err != nil {
		logger.Error("Initial materialization failed", "error", err)
	} else {
		logger.Info("Initial materialization complete", "expenses_created", count)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				count, err := service.MaterializeMonth(ctx, now)
				if err != nil {
					logger.Error("Materialization failed", "error", err)
					continue
				}
				logger.Info("Materialization complete",
					"expenses_created", count,
					"next_check", now.Add(cfg.MaterializeInterval).Format("15:04:05"))
			}
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	logger.Info("Shutdown signal received", "signal", sig.String())

	cancel()
	logger.Info("Recurrentes-worker shutdown complete")
}
