// finanzas-init prepares a ledger database: it runs migrations and seeds the
// default categories, tags and settings. Safe to run repeatedly.
package main

import (
	"context"

	"finanzas/internal/cli"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()

	logger.Info("Starting finanzas-init")

	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitRepository(logger, cfg.DBPath)
	defer repo.Close()

	ctx := context.Background()
	if err := repo.SeedDefaults(ctx); err != nil {
		logger.Error("Failed to seed defaults", "error", err)
		return
	}

	logger.Info("Ledger database ready", "path", cfg.DBPath)
}
