package budget

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"finanzas/internal/core"
	"finanzas/internal/storage"
)

var month = time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)

func newTestAggregator(t *testing.T) (*Aggregator, *storage.Repository) {
	t.Helper()
	repo, err := storage.NewRepository(filepath.Join(t.TempDir(), "finanzas.db"))
	if err != nil {
		t.Fatalf("NewRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return NewAggregator(repo), repo
}

func seedMonth(t *testing.T, repo *storage.Repository) {
	t.Helper()
	ctx := context.Background()
	q := repo.Queries()

	account, err := q.CreateAccount(ctx, "Checking", 0)
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}

	if _, err := q.CreateIncome(ctx, storage.CreateIncomeParams{
		Date: month.AddDate(0, 0, -14), AccountID: account.ID,
		Description: "Nomina", Source: "Nomina",
		GrossCents: 250000, NetCents: 200000,
	}); err != nil {
		t.Fatalf("CreateIncome: %v", err)
	}

	expenses := []struct {
		typ   core.ExpenseType
		cents int64
	}{
		{core.TypeFixed, 85000},
		{core.TypeFixed, 4000},
		{core.TypeVariable, 25000},
		{core.TypeOther, 3000},
	}
	for _, e := range expenses {
		if _, err := q.CreateExpense(ctx, storage.CreateExpenseParams{
			Date: month, AccountID: account.ID, Description: "Gasto",
			Type: e.typ, AmountCents: e.cents,
		}); err != nil {
			t.Fatalf("CreateExpense: %v", err)
		}
	}
}

func TestComputeKPIs(t *testing.T) {
	agg, repo := newTestAggregator(t)
	ctx := context.Background()
	seedMonth(t, repo)

	settings := core.DefaultSettings(month)
	settings.MonthlyAutoSavings = 50000
	if err := repo.SaveSettings(ctx, settings); err != nil {
		t.Fatalf("SaveSettings: %v", err)
	}

	m, err := agg.ComputeKPIs(ctx, month)
	if err != nil {
		t.Fatalf("ComputeKPIs: %v", err)
	}
	if m.NetIncomeCents != 200000 {
		t.Errorf("net income = %d, want 200000 (gross must not count)", m.NetIncomeCents)
	}
	if m.TotalExpensesCents != 117000 {
		t.Errorf("total expenses = %d, want 117000", m.TotalExpensesCents)
	}
	if m.FixedCents != 89000 || m.VariableCents != 25000 || m.OtherCents != 3000 {
		t.Errorf("split = %d/%d/%d, want 89000/25000/3000", m.FixedCents, m.VariableCents, m.OtherCents)
	}
	// Savings is the configured pay-yourself-first amount, not the leftover.
	if m.SavingsCents != 50000 {
		t.Errorf("savings = %d, want 50000", m.SavingsCents)
	}
	if m.RemainingCents != 33000 {
		t.Errorf("remaining = %d, want 33000", m.RemainingCents)
	}
	if m.SavingsRate != 0.25 {
		t.Errorf("savings rate = %v, want 0.25", m.SavingsRate)
	}
}

func TestComputeKPIsIgnoresOtherMonths(t *testing.T) {
	agg, repo := newTestAggregator(t)
	ctx := context.Background()
	seedMonth(t, repo)

	account, _ := repo.Queries().GetAccountByName(ctx, "Checking")
	if _, err := repo.Queries().CreateExpense(ctx, storage.CreateExpenseParams{
		Date: month.AddDate(0, 1, 0), AccountID: account.ID,
		Description: "Gasto febrero", Type: core.TypeVariable, AmountCents: 99999,
	}); err != nil {
		t.Fatalf("CreateExpense: %v", err)
	}

	m, err := agg.ComputeKPIs(ctx, month)
	if err != nil {
		t.Fatalf("ComputeKPIs: %v", err)
	}
	if m.TotalExpensesCents != 117000 {
		t.Errorf("total = %d, want 117000 (February expense leaked in)", m.TotalExpensesCents)
	}
}

func TestBlocksDeviationSigns(t *testing.T) {
	agg, repo := newTestAggregator(t)
	ctx := context.Background()
	seedMonth(t, repo)

	settings := core.DefaultSettings(month)
	settings.MonthlyAutoSavings = 40000
	settings.FixedExpenseTarget = 90000
	settings.VariableExpenseTarget = 20000
	if err := repo.SaveSettings(ctx, settings); err != nil {
		t.Fatalf("SaveSettings: %v", err)
	}

	blocks, err := agg.Blocks(ctx, month)
	if err != nil {
		t.Fatalf("Blocks: %v", err)
	}
	if len(blocks) != 3 {
		t.Fatalf("blocks = %d, want 3", len(blocks))
	}

	savings, fixed, variable := blocks[0], blocks[1], blocks[2]

	// No envelopes: savings actual equals the auto-save amount, on target.
	if savings.DeviationCents != 0 {
		t.Errorf("savings deviation = %d, want 0", savings.DeviationCents)
	}

	// Fixed spend 89000 against 90000: under budget reads positive.
	if fixed.DeviationCents != 1000 {
		t.Errorf("fixed deviation = %d, want +1000", fixed.DeviationCents)
	}

	// Variable spend 25000 against 20000: over budget reads negative.
	if variable.DeviationCents != -5000 {
		t.Errorf("variable deviation = %d, want -5000", variable.DeviationCents)
	}
}

func TestBlocksFallBackToPercentageTargets(t *testing.T) {
	agg, repo := newTestAggregator(t)
	ctx := context.Background()
	seedMonth(t, repo)

	// No absolute targets configured: derive from the 50/25 split of net income.
	settings := core.DefaultSettings(month)
	if err := repo.SaveSettings(ctx, settings); err != nil {
		t.Fatalf("SaveSettings: %v", err)
	}

	blocks, err := agg.Blocks(ctx, month)
	if err != nil {
		t.Fatalf("Blocks: %v", err)
	}
	if blocks[1].TargetCents != 100000 {
		t.Errorf("fixed target = %d, want 100000 (50%% of 200000)", blocks[1].TargetCents)
	}
	if blocks[2].TargetCents != 50000 {
		t.Errorf("variable target = %d, want 50000 (25%% of 200000)", blocks[2].TargetCents)
	}
}

func TestBlocksIncludeEnvelopes(t *testing.T) {
	agg, repo := newTestAggregator(t)
	ctx := context.Background()

	if _, err := repo.Queries().CreateEnvelope(ctx, storage.CreateEnvelopeParams{
		Name: "Vacaciones", TargetCents: 60000, CurrentCents: 45000,
	}); err != nil {
		t.Fatalf("CreateEnvelope: %v", err)
	}
	settings := core.DefaultSettings(month)
	settings.MonthlyAutoSavings = 30000
	if err := repo.SaveSettings(ctx, settings); err != nil {
		t.Fatalf("SaveSettings: %v", err)
	}

	blocks, err := agg.Blocks(ctx, month)
	if err != nil {
		t.Fatalf("Blocks: %v", err)
	}
	savings := blocks[0]
	if savings.TargetCents != 90000 {
		t.Errorf("savings target = %d, want 90000", savings.TargetCents)
	}
	if savings.ActualCents != 75000 {
		t.Errorf("savings actual = %d, want 75000", savings.ActualCents)
	}
	if savings.DeviationCents != -15000 {
		t.Errorf("savings deviation = %d, want -15000 (behind target)", savings.DeviationCents)
	}
}

func TestValidatePercentages(t *testing.T) {
	tests := []struct {
		name                     string
		savings, fixed, variable float64
		wantErr                  bool
	}{
		{"exact", 0.25, 0.50, 0.25, false},
		{"within tolerance high", 0.26, 0.50, 0.245, false},
		{"within tolerance low", 0.24, 0.50, 0.255, false},
		{"over", 0.30, 0.50, 0.25, true},
		{"under", 0.10, 0.50, 0.25, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePercentages(tt.savings, tt.fixed, tt.variable)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePercentages(%v, %v, %v) = %v, wantErr %v",
					tt.savings, tt.fixed, tt.variable, err, tt.wantErr)
			}
		})
	}
}

func TestApplyBudgetSplit(t *testing.T) {
	agg, repo := newTestAggregator(t)
	ctx := context.Background()

	// Validation on, auto-correction off: a bad split is rejected.
	settings := core.DefaultSettings(month)
	settings.ValidateBudget100 = true
	settings.AutoCorrectBudget = false
	if err := repo.SaveSettings(ctx, settings); err != nil {
		t.Fatalf("SaveSettings: %v", err)
	}
	if _, err := agg.ApplyBudgetSplit(ctx, 0.40, 0.40, 0.40); err == nil {
		t.Error("off-by-20% split accepted with auto-correction disabled")
	}

	// Auto-correction on: the split is rescaled and persisted.
	settings.AutoCorrectBudget = true
	if err := repo.SaveSettings(ctx, settings); err != nil {
		t.Fatalf("SaveSettings: %v", err)
	}
	applied, err := agg.ApplyBudgetSplit(ctx, 0.40, 0.40, 0.40)
	if err != nil {
		t.Fatalf("ApplyBudgetSplit: %v", err)
	}
	if sum := applied.SavingsTargetPct + applied.FixedTargetPct + applied.VariableTargetPct; sum < 0.999 || sum > 1.001 {
		t.Errorf("applied sum = %v, want 1", sum)
	}

	loaded, err := repo.LoadSettings(ctx)
	if err != nil {
		t.Fatalf("LoadSettings: %v", err)
	}
	if loaded.SavingsTargetPct != applied.SavingsTargetPct {
		t.Errorf("persisted pct = %v, want %v", loaded.SavingsTargetPct, applied.SavingsTargetPct)
	}

	// Validation off: any split goes through untouched.
	settings.ValidateBudget100 = false
	if err := repo.SaveSettings(ctx, settings); err != nil {
		t.Fatalf("SaveSettings: %v", err)
	}
	applied, err = agg.ApplyBudgetSplit(ctx, 0.10, 0.10, 0.10)
	if err != nil {
		t.Fatalf("ApplyBudgetSplit unvalidated: %v", err)
	}
	if applied.SavingsTargetPct != 0.10 {
		t.Errorf("unvalidated pct = %v, want 0.10", applied.SavingsTargetPct)
	}
}

func TestAutoCorrectPercentages(t *testing.T) {
	s, f, v := AutoCorrectPercentages(0.30, 0.30, 0.30)
	if s != f || f != v {
		t.Errorf("equal inputs should stay equal: %v/%v/%v", s, f, v)
	}
	if sum := s + f + v; sum < 0.999 || sum > 1.001 {
		t.Errorf("corrected sum = %v, want 1", sum)
	}

	s, f, v = AutoCorrectPercentages(0, 0, 0)
	if s != 0.25 || f != 0.50 || v != 0.25 {
		t.Errorf("all-zero fallback = %v/%v/%v, want 0.25/0.50/0.25", s, f, v)
	}

	// Relative weights are preserved.
	s, f, v = AutoCorrectPercentages(0.20, 0.60, 0.40)
	if f != 0.50 {
		t.Errorf("fixed = %v, want 0.50", f)
	}
}
