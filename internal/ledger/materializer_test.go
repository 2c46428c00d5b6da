package ledger

import (
	"context"
	"testing"
	"time"

	"finanzas/internal/core"
)

func TestMaterializeMonthCreatesFixedExpenses(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	if _, err := s.AddAccount(ctx, "Checking", 200000); err != nil {
		t.Fatalf("AddAccount: %v", err)
	}
	charge, err := s.AddRecurringCharge(ctx, "Alquiler", 85000, 1, "Checking", "Vivienda")
	if err != nil {
		t.Fatalf("AddRecurringCharge: %v", err)
	}

	created, err := s.MaterializeMonth(ctx, today)
	if err != nil {
		t.Fatalf("MaterializeMonth: %v", err)
	}
	if created != 1 {
		t.Fatalf("created = %d, want 1", created)
	}
	if got := balanceOf(t, s, "Checking"); got != 115000 {
		t.Errorf("balance = %d, want 115000", got)
	}

	start, end := core.MonthRange(today)
	expenses, err := s.repo.Queries().ListExpensesInRange(ctx, start, end)
	if err != nil {
		t.Fatalf("ListExpensesInRange: %v", err)
	}
	if len(expenses) != 1 {
		t.Fatalf("expenses = %d, want 1", len(expenses))
	}
	e := expenses[0]
	if e.Type != core.TypeFixed {
		t.Errorf("type = %q, want Fijo", e.Type)
	}
	if e.RecurringID == nil || *e.RecurringID != charge.ID {
		t.Errorf("recurring id = %v, want %d", e.RecurringID, charge.ID)
	}
	if e.Date.Day() != 1 {
		t.Errorf("date day = %d, want 1", e.Date.Day())
	}
	if e.Description != "Alquiler" {
		t.Errorf("description = %q", e.Description)
	}
}

func TestMaterializeMonthIsIdempotent(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	if _, err := s.AddAccount(ctx, "Checking", 200000); err != nil {
		t.Fatalf("AddAccount: %v", err)
	}
	if _, err := s.AddRecurringCharge(ctx, "Internet", 4000, 5, "Checking", "Servicios"); err != nil {
		t.Fatalf("AddRecurringCharge: %v", err)
	}

	first, err := s.MaterializeMonth(ctx, today)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if first != 1 {
		t.Fatalf("first run created %d, want 1", first)
	}

	for i := 0; i < 2; i++ {
		again, err := s.MaterializeMonth(ctx, today)
		if err != nil {
			t.Fatalf("rerun %d: %v", i, err)
		}
		if again != 0 {
			t.Errorf("rerun %d created %d, want 0", i, again)
		}
	}
	if got := balanceOf(t, s, "Checking"); got != 196000 {
		t.Errorf("balance = %d, want 196000 (charged once)", got)
	}

	// A new month materializes again.
	next, err := s.MaterializeMonth(ctx, today.AddDate(0, 1, 0))
	if err != nil {
		t.Fatalf("next month: %v", err)
	}
	if next != 1 {
		t.Errorf("next month created %d, want 1", next)
	}
}

func TestMaterializeClampsDayToShortMonth(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	if _, err := s.AddAccount(ctx, "Checking", 100000); err != nil {
		t.Fatalf("AddAccount: %v", err)
	}
	if _, err := s.AddRecurringCharge(ctx, "Seguro", 2500, 31, "Checking", "Servicios"); err != nil {
		t.Fatalf("AddRecurringCharge: %v", err)
	}

	february := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	created, err := s.MaterializeMonth(ctx, february)
	if err != nil {
		t.Fatalf("MaterializeMonth: %v", err)
	}
	if created != 1 {
		t.Fatalf("created = %d, want 1", created)
	}

	start, end := core.MonthRange(february)
	expenses, err := s.repo.Queries().ListExpensesInRange(ctx, start, end)
	if err != nil || len(expenses) != 1 {
		t.Fatalf("ListExpensesInRange = %v, %v", expenses, err)
	}
	if got := expenses[0].Date.Format("2006-01-02"); got != "2026-02-28" {
		t.Errorf("date = %s, want 2026-02-28", got)
	}
}

func TestMaterializeSkipsChargesWithoutAccount(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	if _, err := s.AddRecurringCharge(ctx, "Suscripcion", 999, 10, "", "Ocio"); err != nil {
		t.Fatalf("AddRecurringCharge: %v", err)
	}

	created, err := s.MaterializeMonth(ctx, today)
	if err != nil {
		t.Fatalf("MaterializeMonth: %v", err)
	}
	if created != 0 {
		t.Errorf("created = %d, want 0", created)
	}
}

func TestMaterializeSkipsInactiveCharges(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	if _, err := s.AddAccount(ctx, "Checking", 100000); err != nil {
		t.Fatalf("AddAccount: %v", err)
	}
	charge, err := s.AddRecurringCharge(ctx, "Revista", 500, 15, "Checking", "Ocio")
	if err != nil {
		t.Fatalf("AddRecurringCharge: %v", err)
	}
	if err := s.DeactivateRecurringCharge(ctx, charge.ID); err != nil {
		t.Fatalf("DeactivateRecurringCharge: %v", err)
	}

	created, err := s.MaterializeMonth(ctx, today)
	if err != nil {
		t.Fatalf("MaterializeMonth: %v", err)
	}
	if created != 0 {
		t.Errorf("created = %d, want 0", created)
	}
}

func TestManualExpenseDoesNotBlockMaterialization(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	if _, err := s.AddAccount(ctx, "Checking", 100000); err != nil {
		t.Fatalf("AddAccount: %v", err)
	}
	// Manual expense with the same description, no recurring link.
	if _, err := s.AddExpense(ctx, ExpenseInput{
		Date: today, Account: "Checking", Description: "Alquiler",
		Type: core.TypeFixed, AmountCents: 85000,
	}); err != nil {
		t.Fatalf("AddExpense: %v", err)
	}
	if _, err := s.AddRecurringCharge(ctx, "Alquiler", 85000, 1, "Checking", "Vivienda"); err != nil {
		t.Fatalf("AddRecurringCharge: %v", err)
	}

	// Idempotence is keyed on the recurring link, not the description.
	created, err := s.MaterializeMonth(ctx, today)
	if err != nil {
		t.Fatalf("MaterializeMonth: %v", err)
	}
	if created != 1 {
		t.Errorf("created = %d, want 1", created)
	}
}
