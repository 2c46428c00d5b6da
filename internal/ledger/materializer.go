package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"finanzas/internal/amqp"
	"finanzas/internal/core"
	"finanzas/internal/storage"
)

// AddRecurringCharge registers a charge template. Account and category are
// resolved by name with get-or-create semantics; empty names leave the
// reference unset, in which case materialization skips the charge until an
// account is assigned.
func (s *Service) AddRecurringCharge(ctx context.Context, name string, amountCents int64, dayOfMonth int, account, category string) (core.RecurringCharge, error) {
	draft := core.RecurringCharge{
		Name:        name,
		AmountCents: amountCents,
		Period:      core.Monthly,
		DayOfMonth:  dayOfMonth,
	}
	if err := draft.Validate(); err != nil {
		return core.RecurringCharge{}, err
	}

	var charge core.RecurringCharge
	err := s.repo.WithTx(ctx, func(q *storage.Queries) error {
		var accountID, categoryID *int64
		if account != "" {
			acc, err := storage.GetOrCreateAccount(ctx, q, account)
			if err != nil {
				return err
			}
			accountID = &acc.ID
		}
		var err error
		categoryID, err = storage.GetOrCreateCategory(ctx, q, category)
		if err != nil {
			return err
		}
		charge, err = q.CreateRecurringCharge(ctx, storage.CreateRecurringChargeParams{
			Name:        name,
			AmountCents: amountCents,
			Period:      core.Monthly,
			DayOfMonth:  dayOfMonth,
			AccountID:   accountID,
			CategoryID:  categoryID,
		})
		if err != nil {
			return fmt.Errorf("create recurring charge: %w", err)
		}
		return nil
	})
	if err != nil {
		return core.RecurringCharge{}, err
	}

	slog.InfoContext(ctx, "Recurring charge registered",
		"id", charge.ID,
		"name", charge.Name,
		"day_of_month", charge.DayOfMonth)
	return charge, nil
}

// DeactivateRecurringCharge stops future materialization. Already generated
// expenses are untouched.
func (s *Service) DeactivateRecurringCharge(ctx context.Context, id int64) error {
	return s.repo.WithTx(ctx, func(q *storage.Queries) error {
		if _, err := q.GetRecurringCharge(ctx, id); err != nil {
			return fmt.Errorf("recurring charge %d: %w", id, core.ErrNotFound)
		}
		return q.SetRecurringChargeStatus(ctx, id, core.StatusInactive)
	})
}

// MaterializeMonth generates one fixed expense per active recurring charge
// for the given month and returns how many were created. The operation is
// idempotent: a charge that already produced an expense inside the month is
// skipped, keyed by its recurring id, so reruns create nothing. Charges with
// no account assigned are skipped too.
//
// The scheduled day is clamped to the month's last day, so a day-31 charge
// lands on Feb 28 (or 29) instead of being lost.
func (s *Service) MaterializeMonth(ctx context.Context, month time.Time) (int, error) {
	charges, err := s.repo.Queries().ListActiveRecurringCharges(ctx)
	if err != nil {
		return 0, fmt.Errorf("list recurring charges: %w", err)
	}

	start, end := core.MonthRange(month)
	created := 0
	for _, charge := range charges {
		if charge.AccountID == nil {
			slog.WarnContext(ctx, "Recurring charge has no account, skipping",
				"id", charge.ID, "name", charge.Name)
			continue
		}

		count, err := s.repo.Queries().CountExpensesForRecurring(ctx, charge.ID, start, end)
		if err != nil {
			return created, fmt.Errorf("count materialized for charge %d: %w", charge.ID, err)
		}
		if count > 0 {
			continue
		}

		day := charge.DayOfMonth
		if last := core.LastDayOfMonth(month); day > last {
			day = last
		}
		date := time.Date(month.Year(), month.Month(), day, 0, 0, 0, 0, time.UTC)

		recurringID := charge.ID
		var expense core.Expense
		err = s.repo.WithTx(ctx, func(q *storage.Queries) error {
			var err error
			expense, err = q.CreateExpense(ctx, storage.CreateExpenseParams{
				Date:        date,
				AccountID:   *charge.AccountID,
				Description: charge.Name,
				CategoryID:  charge.CategoryID,
				Type:        core.TypeFixed,
				AmountCents: charge.AmountCents,
				RecurringID: &recurringID,
			})
			if err != nil {
				return fmt.Errorf("materialize charge %d: %w", charge.ID, err)
			}
			return q.AdjustAccountBalance(ctx, *charge.AccountID, -charge.AmountCents)
		})
		if err != nil {
			return created, err
		}

		created++
		slog.InfoContext(ctx, "Recurring charge materialized",
			"charge_id", charge.ID,
			"expense_id", expense.ID,
			"date", date.Format("2006-01-02"),
			"amount_cents", charge.AmountCents)
		s.publish(ctx, amqp.NewLedgerEvent(amqp.EventChargeMaterialized, expense.ID, *charge.AccountID))
	}

	if created > 0 {
		slog.InfoContext(ctx, "Month materialized",
			"month", month.Format("2006-01"),
			"created", created)
	}
	return created, nil
}
