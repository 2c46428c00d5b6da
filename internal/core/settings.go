package core

import (
	"strconv"
	"strings"
	"time"
)

// Settings keys as stored in the settings table. The key space is closed:
// readers and writers go through the Settings struct, never through ad-hoc
// string keys.
const (
	KeyCurrency              = "currency"
	KeySavingsTargetPct      = "savings_target_pct"
	KeyFixedTargetPct        = "fixed_target_pct"
	KeyVariableTargetPct     = "variable_target_pct"
	KeyTargetMonth           = "target_month"
	KeyIncomeSources         = "income_sources"
	KeyValidateBudget100     = "validate_budget_100"
	KeyAutoCorrectBudget     = "auto_correct_budget"
	KeyMonthlyAutoSavings    = "monthly_auto_savings"
	KeyFixedExpenseTarget    = "fixed_expense_target"
	KeyVariableExpenseTarget = "variable_expense_target"
	KeyClassificationRules   = "classification_rules"
)

// Settings is the typed ledger configuration. Monetary fields are cents,
// percentage fields are fractions of 1.
type Settings struct {
	Currency              string
	SavingsTargetPct      float64
	FixedTargetPct        float64
	VariableTargetPct     float64
	TargetMonth           time.Time
	IncomeSources         []string
	ValidateBudget100     bool
	AutoCorrectBudget     bool
	MonthlyAutoSavings    int64
	FixedExpenseTarget    int64
	VariableExpenseTarget int64
	ClassificationRules   string // JSON blob, owned by the classifier
}

// DefaultSettings mirrors the defaults seeded on first run.
func DefaultSettings(now time.Time) Settings {
	return Settings{
		Currency:            "EUR",
		SavingsTargetPct:    0.25,
		FixedTargetPct:      0.50,
		VariableTargetPct:   0.25,
		TargetMonth:         time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC),
		IncomeSources:       []string{"Nomina"},
		ValidateBudget100:   true,
		AutoCorrectBudget:   false,
		ClassificationRules: "{}",
	}
}

// Encode flattens the settings into the stored key/value form.
func (s Settings) Encode() map[string]string {
	return map[string]string{
		KeyCurrency:              s.Currency,
		KeySavingsTargetPct:      strconv.FormatFloat(s.SavingsTargetPct, 'f', -1, 64),
		KeyFixedTargetPct:        strconv.FormatFloat(s.FixedTargetPct, 'f', -1, 64),
		KeyVariableTargetPct:     strconv.FormatFloat(s.VariableTargetPct, 'f', -1, 64),
		KeyTargetMonth:           s.TargetMonth.Format("2006-01-02"),
		KeyIncomeSources:         strings.Join(s.IncomeSources, ","),
		KeyValidateBudget100:     strconv.FormatBool(s.ValidateBudget100),
		KeyAutoCorrectBudget:     strconv.FormatBool(s.AutoCorrectBudget),
		KeyMonthlyAutoSavings:    FormatCents(s.MonthlyAutoSavings),
		KeyFixedExpenseTarget:    FormatCents(s.FixedExpenseTarget),
		KeyVariableExpenseTarget: FormatCents(s.VariableExpenseTarget),
		KeyClassificationRules:   s.ClassificationRules,
	}
}

// DecodeSettings rebuilds a Settings from stored key/value pairs, falling back
// to defaults for absent or malformed values.
func DecodeSettings(values map[string]string, now time.Time) Settings {
	s := DefaultSettings(now)
	if v, ok := values[KeyCurrency]; ok && v != "" {
		s.Currency = v
	}
	if v, ok := values[KeySavingsTargetPct]; ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			s.SavingsTargetPct = f
		}
	}
	if v, ok := values[KeyFixedTargetPct]; ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			s.FixedTargetPct = f
		}
	}
	if v, ok := values[KeyVariableTargetPct]; ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			s.VariableTargetPct = f
		}
	}
	if v, ok := values[KeyTargetMonth]; ok {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			s.TargetMonth = t
		}
	}
	if v, ok := values[KeyIncomeSources]; ok && v != "" {
		s.IncomeSources = strings.Split(v, ",")
	}
	if v, ok := values[KeyValidateBudget100]; ok {
		if b, err := strconv.ParseBool(v); err == nil {
			s.ValidateBudget100 = b
		}
	}
	if v, ok := values[KeyAutoCorrectBudget]; ok {
		if b, err := strconv.ParseBool(v); err == nil {
			s.AutoCorrectBudget = b
		}
	}
	if v, ok := values[KeyMonthlyAutoSavings]; ok {
		if c, err := ParseDecimalToCentsAllowZero(v); err == nil {
			s.MonthlyAutoSavings = c
		}
	}
	if v, ok := values[KeyFixedExpenseTarget]; ok {
		if c, err := ParseDecimalToCentsAllowZero(v); err == nil {
			s.FixedExpenseTarget = c
		}
	}
	if v, ok := values[KeyVariableExpenseTarget]; ok {
		if c, err := ParseDecimalToCentsAllowZero(v); err == nil {
			s.VariableExpenseTarget = c
		}
	}
	if v, ok := values[KeyClassificationRules]; ok && v != "" {
		s.ClassificationRules = v
	}
	return s
}
