// Package budget derives monthly KPIs and target deviations from the ledger.
// It is strictly read-side: nothing here mutates balances.
package budget

import (
	"context"
	"fmt"
	"math"
	"time"

	"finanzas/internal/core"
	"finanzas/internal/storage"
)

// Aggregator computes monthly metrics over the ledger store.
type Aggregator struct {
	repo *storage.Repository
}

func NewAggregator(repo *storage.Repository) *Aggregator {
	return &Aggregator{repo: repo}
}

// KPIMetrics summarizes one calendar month. Savings follows the configured
// pay-yourself-first amount, not income minus expenses; RemainingCents is the
// arithmetic leftover after expenses and that automatic savings.
type KPIMetrics struct {
	Month              time.Time
	NetIncomeCents     int64
	TotalExpensesCents int64
	FixedCents         int64
	VariableCents      int64
	OtherCents         int64
	SavingsCents       int64
	RemainingCents     int64
	// SavingsRate is SavingsCents over net income, 0 when there is no income.
	SavingsRate float64
}

// ComputeKPIs aggregates incomes and expenses for the month containing the
// given date.
func (a *Aggregator) ComputeKPIs(ctx context.Context, month time.Time) (KPIMetrics, error) {
	start, end := core.MonthRange(month)
	q := a.repo.Queries()

	incomes, err := q.ListIncomesInRange(ctx, start, end)
	if err != nil {
		return KPIMetrics{}, fmt.Errorf("list incomes: %w", err)
	}
	expenses, err := q.ListExpensesInRange(ctx, start, end)
	if err != nil {
		return KPIMetrics{}, fmt.Errorf("list expenses: %w", err)
	}
	settings, err := a.repo.LoadSettings(ctx)
	if err != nil {
		return KPIMetrics{}, err
	}

	m := KPIMetrics{Month: start}
	for _, income := range incomes {
		m.NetIncomeCents += income.NetCents
	}
	for _, expense := range expenses {
		m.TotalExpensesCents += expense.AmountCents
		switch {
		case expense.Type.IsFixed():
			m.FixedCents += expense.AmountCents
		case expense.Type.IsVariable():
			m.VariableCents += expense.AmountCents
		default:
			m.OtherCents += expense.AmountCents
		}
	}
	m.SavingsCents = settings.MonthlyAutoSavings
	m.RemainingCents = m.NetIncomeCents - m.TotalExpensesCents - m.SavingsCents
	if m.NetIncomeCents > 0 {
		m.SavingsRate = float64(m.SavingsCents) / float64(m.NetIncomeCents)
	}
	return m, nil
}

// Block is one budget line: what the plan allots versus what happened.
// The deviation sign is asymmetric on purpose. For savings, positive means
// ahead of target (actual minus target). For expense blocks, positive means
// under budget (target minus actual). Positive always reads as good news.
type Block struct {
	Name           string
	TargetCents    int64
	ActualCents    int64
	DeviationCents int64
}

// Blocks builds the three budget lines for the month. Expense targets come
// from the configured absolute amounts when set, otherwise from the
// percentage split applied to the month's net income. The savings line folds
// in envelope activity: targets add envelope goals, actuals add what the
// envelopes currently hold.
func (a *Aggregator) Blocks(ctx context.Context, month time.Time) ([]Block, error) {
	m, err := a.ComputeKPIs(ctx, month)
	if err != nil {
		return nil, err
	}
	settings, err := a.repo.LoadSettings(ctx)
	if err != nil {
		return nil, err
	}
	envelopes, err := a.repo.Queries().ListActiveEnvelopes(ctx)
	if err != nil {
		return nil, fmt.Errorf("list envelopes: %w", err)
	}

	savingsTarget := settings.MonthlyAutoSavings
	savingsActual := settings.MonthlyAutoSavings
	for _, env := range envelopes {
		savingsTarget += env.TargetCents
		savingsActual += env.CurrentCents
	}

	fixedTarget := settings.FixedExpenseTarget
	if fixedTarget == 0 {
		fixedTarget = pctOf(m.NetIncomeCents, settings.FixedTargetPct)
	}
	variableTarget := settings.VariableExpenseTarget
	if variableTarget == 0 {
		variableTarget = pctOf(m.NetIncomeCents, settings.VariableTargetPct)
	}

	return []Block{
		{
			Name:           "Ahorro",
			TargetCents:    savingsTarget,
			ActualCents:    savingsActual,
			DeviationCents: savingsActual - savingsTarget,
		},
		{
			Name:           "Gastos fijos",
			TargetCents:    fixedTarget,
			ActualCents:    m.FixedCents,
			DeviationCents: fixedTarget - m.FixedCents,
		},
		{
			Name:           "Gastos variables",
			TargetCents:    variableTarget,
			ActualCents:    m.VariableCents,
			DeviationCents: variableTarget - m.VariableCents,
		},
	}, nil
}

func pctOf(cents int64, pct float64) int64 {
	return int64(math.Round(float64(cents) * pct))
}

// pctTolerance allows for rounding noise when three hand-entered percentages
// should sum to 100%.
const pctTolerance = 0.01

// ValidatePercentages checks that the three budget fractions sum to 1 within
// tolerance.
func ValidatePercentages(savings, fixed, variable float64) error {
	sum := savings + fixed + variable
	if math.Abs(sum-1.0) > pctTolerance {
		return fmt.Errorf("budget percentages sum to %.2f, want 1.00: %w", sum, core.ErrInvalidPercentages)
	}
	return nil
}

// AutoCorrectPercentages rescales the three fractions so they sum to exactly
// 1, preserving their relative weights. All-zero input falls back to the
// default 25/50/25 split.
func AutoCorrectPercentages(savings, fixed, variable float64) (float64, float64, float64) {
	sum := savings + fixed + variable
	if sum <= 0 {
		return 0.25, 0.50, 0.25
	}
	return savings / sum, fixed / sum, variable / sum
}

// ApplyBudgetSplit persists a new percentage split, honoring the configured
// validation policy: when validation is on and the split is off by more than
// the tolerance, the split is auto-corrected if that is enabled and rejected
// otherwise.
func (a *Aggregator) ApplyBudgetSplit(ctx context.Context, savings, fixed, variable float64) (core.Settings, error) {
	settings, err := a.repo.LoadSettings(ctx)
	if err != nil {
		return core.Settings{}, err
	}

	if settings.ValidateBudget100 {
		if err := ValidatePercentages(savings, fixed, variable); err != nil {
			if !settings.AutoCorrectBudget {
				return core.Settings{}, err
			}
			savings, fixed, variable = AutoCorrectPercentages(savings, fixed, variable)
		}
	}

	settings.SavingsTargetPct = savings
	settings.FixedTargetPct = fixed
	settings.VariableTargetPct = variable
	if err := a.repo.SaveSettings(ctx, settings); err != nil {
		return core.Settings{}, err
	}
	return settings, nil
}
