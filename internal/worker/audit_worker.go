// Package worker hosts the background audit process that cross-checks
// stored balances against event-history reconstruction.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"finanzas/internal/amqp"
	"finanzas/internal/core"
	"finanzas/internal/ledger"
)

// AuditWorker listens for ledger events and re-verifies the touched account;
// a periodic sweep covers accounts no event has mentioned recently. A
// non-zero discrepancy is logged, never auto-corrected: a drifted balance is
// evidence of a bug and overwriting it would destroy the evidence.
type AuditWorker struct {
	service *ledger.Service
	events  *amqp.Client
	sweep   time.Duration
}

func NewAuditWorker(service *ledger.Service, events *amqp.Client, sweepInterval time.Duration) *AuditWorker {
	return &AuditWorker{
		service: service,
		events:  events,
		sweep:   sweepInterval,
	}
}

// Run consumes events and sweeps until ctx is cancelled. Without an AMQP
// client only the sweep runs.
func (w *AuditWorker) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	if w.events != nil {
		g.Go(func() error {
			return w.events.ConsumeLedgerEvents(ctx, w.HandleEvent)
		})
	}

	g.Go(func() error {
		ticker := time.NewTicker(w.sweep)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				if err := w.SweepAccounts(ctx); err != nil {
					slog.ErrorContext(ctx, "Audit sweep failed", "error", err)
				}
			}
		}
	})

	return g.Wait()
}

// HandleEvent re-verifies the account an event touched. Events without an
// account reference are acknowledged and skipped.
func (w *AuditWorker) HandleEvent(event *amqp.LedgerEvent) error {
	if event.AccountID == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	discrepancy, err := w.service.ReconcileAccount(ctx, event.AccountID)
	if err != nil {
		return fmt.Errorf("reconcile account %d: %w", event.AccountID, err)
	}
	if discrepancy != 0 {
		slog.WarnContext(ctx, "Balance discrepancy detected",
			"account_id", event.AccountID,
			"discrepancy_cents", discrepancy,
			"trigger_event", event.Kind)
	}
	return nil
}

// SweepAccounts reconciles every active account.
func (w *AuditWorker) SweepAccounts(ctx context.Context) error {
	accounts, err := w.service.Repo().Queries().ListAccounts(ctx, core.StatusActive)
	if err != nil {
		return fmt.Errorf("list accounts: %w", err)
	}

	clean := 0
	for _, account := range accounts {
		discrepancy, err := w.service.ReconcileAccount(ctx, account.ID)
		if err != nil {
			return fmt.Errorf("reconcile account %d: %w", account.ID, err)
		}
		if discrepancy != 0 {
			slog.WarnContext(ctx, "Balance discrepancy detected",
				"account_id", account.ID,
				"account", account.Name,
				"discrepancy_cents", discrepancy)
			continue
		}
		clean++
	}

	slog.InfoContext(ctx, "Audit sweep complete",
		"accounts", len(accounts),
		"clean", clean)
	return nil
}
